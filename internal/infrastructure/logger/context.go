package logger

import (
	"context"

	"go.uber.org/zap"
)

type ctxKey int

const (
	loggerKey ctxKey = iota
	correlationKey
)

// correlation holds the ids stamped on every entry written for a context
type correlation struct {
	RequestID string
	TenantID  string
	RunID     string
	BatchID   string
}

func (c correlation) fields() []zap.Field {
	fields := make([]zap.Field, 0, 4)
	for _, kv := range [...]struct{ key, val string }{
		{"request_id", c.RequestID},
		{"tenant_id", c.TenantID},
		{"run_id", c.RunID},
		{"batch_id", c.BatchID},
	} {
		if kv.val != "" {
			fields = append(fields, zap.String(kv.key, kv.val))
		}
	}
	return fields
}

func correlationOf(ctx context.Context) correlation {
	c, _ := ctx.Value(correlationKey).(correlation)
	return c
}

func withCorrelation(ctx context.Context, set func(*correlation)) context.Context {
	c := correlationOf(ctx)
	set(&c)
	return context.WithValue(ctx, correlationKey, c)
}

// WithContext attaches a logger for L to find
func WithContext(ctx context.Context, log *zap.Logger) context.Context {
	return context.WithValue(ctx, loggerKey, log)
}

// FromContext returns the attached logger, or a no-op logger
func FromContext(ctx context.Context) *zap.Logger {
	if log, ok := ctx.Value(loggerKey).(*zap.Logger); ok && log != nil {
		return log
	}
	return zap.NewNop()
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.RequestID = id })
}

func WithTenantID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.TenantID = id })
}

// WithRunID tags a sync or procurement run
func WithRunID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.RunID = id })
}

func WithBatchID(ctx context.Context, id string) context.Context {
	return withCorrelation(ctx, func(c *correlation) { c.BatchID = id })
}

func GetRequestID(ctx context.Context) string { return correlationOf(ctx).RequestID }
func GetTenantID(ctx context.Context) string  { return correlationOf(ctx).TenantID }

// L returns the context's logger carrying its correlation ids.
//
//	logger.L(ctx).Info("run started", zap.Int("items", n))
func L(ctx context.Context) *zap.Logger {
	return WithLogger(ctx, FromContext(ctx))
}

// WithLogger is L over an explicit base logger, for services that own one
func WithLogger(ctx context.Context, base *zap.Logger) *zap.Logger {
	if base == nil {
		base = zap.NewNop()
	}
	if fields := correlationOf(ctx).fields(); len(fields) > 0 {
		return base.With(fields...)
	}
	return base
}
