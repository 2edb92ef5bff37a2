package event

import (
	"context"
	"errors"
	"time"

	"go.uber.org/zap"

	"github.com/vde76ru/module-sub000/internal/domain/shared"
)

// IdempotentHandler guards a handler against outbox redelivery. A delivery
// claims "<name>:<event id>" before the handler runs; a duplicate claim is
// acknowledged without running it. When the handler fails the claim is
// released, so the outbox retry after backoff runs the handler again.
type IdempotentHandler struct {
	name    string
	handler shared.EventHandler
	store   shared.IdempotencyStore
	ttl     time.Duration
	logger  *zap.Logger
}

// IdempotentHandlerOption configures NewIdempotentHandler
type IdempotentHandlerOption func(*IdempotentHandler)

// WithClaimTTL overrides shared.DefaultIdempotencyTTL
func WithClaimTTL(ttl time.Duration) IdempotentHandlerOption {
	return func(h *IdempotentHandler) {
		if ttl > 0 {
			h.ttl = ttl
		}
	}
}

func NewIdempotentHandler(
	name string,
	handler shared.EventHandler,
	store shared.IdempotencyStore,
	logger *zap.Logger,
	opts ...IdempotentHandlerOption,
) *IdempotentHandler {
	h := &IdempotentHandler{
		name:    name,
		handler: handler,
		store:   store,
		ttl:     shared.DefaultIdempotencyTTL,
		logger:  logger,
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

func (h *IdempotentHandler) EventTypes() []string {
	return h.handler.EventTypes()
}

// Handle runs the wrapped handler at most once per successful delivery.
// An unreachable store degrades to at-least-once.
func (h *IdempotentHandler) Handle(ctx context.Context, event shared.DomainEvent) error {
	key := h.name + ":" + event.EventID().String()
	claimed, err := h.store.Claim(ctx, key, h.ttl)
	if err != nil {
		h.logger.Warn("Idempotency store unavailable, handling without a claim",
			zap.String("key", key), zap.Error(err))
		return h.handler.Handle(ctx, event)
	}
	if !claimed {
		h.logger.Debug("Duplicate delivery skipped", zap.String("key", key))
		return nil
	}

	handleErr := h.handler.Handle(ctx, event)
	if handleErr == nil {
		return nil
	}
	if err := h.store.Release(context.WithoutCancel(ctx), key); err != nil {
		// the claim expires on its own; until then retries are skipped
		h.logger.Error("Failed to release claim after handler error",
			zap.String("key", key), zap.Error(err))
		return errors.Join(handleErr, err)
	}
	return handleErr
}

var _ shared.EventHandler = (*IdempotentHandler)(nil)
