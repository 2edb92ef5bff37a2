package telemetry

import (
	"time"

	"github.com/uptrace/opentelemetry-go-extra/otelgorm"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

const startedKey = "telemetry:started_at"

// DBTracing registers otelgorm on a connection and flags slow statements
// on the span gorm is running under
type DBTracing struct {
	system        string
	slowThreshold time.Duration
	logger        *zap.Logger
}

// NewDBTracing creates the plugin. system is the db.system value, for
// example "postgresql" or "sqlite".
func NewDBTracing(system string, slowThreshold time.Duration, logger *zap.Logger) *DBTracing {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DBTracing{system: system, slowThreshold: slowThreshold, logger: logger}
}

// Register installs the otelgorm plugin and the timing callbacks. Query
// variables never reach the spans since they carry customer data.
func (p *DBTracing) Register(db *gorm.DB) error {
	if err := db.Use(otelgorm.NewPlugin(
		otelgorm.WithDBName(p.system),
		otelgorm.WithoutQueryVariables(),
	)); err != nil {
		return err
	}

	before := func(tx *gorm.DB) { tx.InstanceSet(startedKey, time.Now()) }
	cb := db.Callback()
	for _, reg := range []struct {
		name     string
		register func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().Before("gorm:create").Register},
		{"query", cb.Query().Before("gorm:query").Register},
		{"update", cb.Update().Before("gorm:update").Register},
		{"delete", cb.Delete().Before("gorm:delete").Register},
		{"row", cb.Row().Before("gorm:row").Register},
		{"raw", cb.Raw().Before("gorm:raw").Register},
	} {
		if err := reg.register("telemetry:before_"+reg.name, before); err != nil {
			return err
		}
	}
	for _, reg := range []struct {
		name     string
		register func(string, func(*gorm.DB)) error
	}{
		{"create", cb.Create().After("gorm:create").Register},
		{"query", cb.Query().After("gorm:query").Register},
		{"update", cb.Update().After("gorm:update").Register},
		{"delete", cb.Delete().After("gorm:delete").Register},
		{"row", cb.Row().After("gorm:row").Register},
		{"raw", cb.Raw().After("gorm:raw").Register},
	} {
		if err := reg.register("telemetry:after_"+reg.name, p.after); err != nil {
			return err
		}
	}

	p.logger.Info("Database tracing enabled",
		zap.String("db_system", p.system),
		zap.Duration("slow_query_threshold", p.slowThreshold))
	return nil
}

func (p *DBTracing) after(tx *gorm.DB) {
	v, ok := tx.InstanceGet(startedKey)
	if !ok {
		return
	}
	started, ok := v.(time.Time)
	if !ok {
		return
	}
	elapsed := time.Since(started)
	if p.slowThreshold <= 0 || elapsed < p.slowThreshold {
		return
	}
	if tx.Statement.Context != nil {
		span := trace.SpanFromContext(tx.Statement.Context)
		span.SetAttributes(
			attribute.Bool("db.slow_query", true),
			attribute.Int64("db.duration_ms", elapsed.Milliseconds()),
		)
	}
	p.logger.Warn("Slow query",
		zap.String("table", tx.Statement.Table),
		zap.Duration("elapsed", elapsed),
		zap.Int64("rows", tx.RowsAffected))
}
