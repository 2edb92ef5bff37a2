package cache

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
	"github.com/vde76ru/module-sub000/internal/infrastructure/config"
)

// Backends holds the coordination primitives shared by the whole process:
// the run locker for procurement runs and the idempotency store for event
// handlers. Both are redis backed when redis is enabled.
type Backends struct {
	Locker      shared.RunLocker
	Idempotency shared.IdempotencyStore
	Client      *redis.Client

	closers []func() error
}

// BackendsOption is a functional option for NewBackends
type BackendsOption func(*backendsOptions)

type backendsOptions struct {
	logger                *zap.Logger
	allowInMemoryFallback bool
}

// WithLogger sets the logger
func WithLogger(logger *zap.Logger) BackendsOption {
	return func(o *backendsOptions) {
		o.logger = logger
	}
}

// WithInMemoryFallback controls whether an unreachable redis falls back to
// process-local implementations instead of failing. Default is false.
func WithInMemoryFallback(allow bool) BackendsOption {
	return func(o *backendsOptions) {
		o.allowInMemoryFallback = allow
	}
}

// NewBackends builds the locker and idempotency store from configuration
func NewBackends(ctx context.Context, cfg *config.RedisConfig, opts ...BackendsOption) (*Backends, error) {
	o := backendsOptions{logger: zap.NewNop()}
	for _, opt := range opts {
		opt(&o)
	}

	if cfg.Enabled {
		client, err := NewRedisClient(ctx, cfg)
		if err == nil {
			o.logger.Info("using redis for locks and idempotency", zap.String("addr", cfg.Addr()))
			return &Backends{
				Locker:      NewRedisRunLocker(client, ""),
				Idempotency: NewRedisIdempotencyStore(client, ""),
				Client:      client,
				closers:     []func() error{client.Close},
			}, nil
		}
		if !o.allowInMemoryFallback {
			return nil, fmt.Errorf("redis required but unavailable: %w", err)
		}
		o.logger.Warn("redis unavailable, falling back to in-memory locks; "+
			"concurrent instances will not exclude each other", zap.Error(err))
	}

	return NewInMemoryBackends(), nil
}

// NewInMemoryBackends returns process-local implementations
func NewInMemoryBackends() *Backends {
	locker := NewInMemoryRunLocker()
	store := NewInMemoryIdempotencyStore()
	return &Backends{
		Locker:      locker,
		Idempotency: store,
		closers:     []func() error{locker.Close, store.Close},
	}
}

// Close releases every underlying resource
func (b *Backends) Close() error {
	var firstErr error
	for _, c := range b.closers {
		if err := c(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	return firstErr
}
