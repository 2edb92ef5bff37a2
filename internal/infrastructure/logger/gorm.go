package logger

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"
	gormlogger "gorm.io/gorm/logger"
)

// GormConfig controls which statements reach the log
type GormConfig struct {
	// Level is one of silent, error, warn, info
	Level string
	// SlowThreshold flags statements that ran longer; zero disables it
	SlowThreshold time.Duration
}

// gormAdapter writes gorm output through zap with the request's
// correlation ids. Missing rows are expected and never logged.
type gormAdapter struct {
	log   *zap.Logger
	level gormlogger.LogLevel
	slow  time.Duration
}

func NewGormLogger(log *zap.Logger, cfg GormConfig) gormlogger.Interface {
	return &gormAdapter{log: log, level: gormLevel(cfg.Level), slow: cfg.SlowThreshold}
}

func gormLevel(level string) gormlogger.LogLevel {
	switch level {
	case "silent":
		return gormlogger.Silent
	case "error":
		return gormlogger.Error
	case "info", "debug":
		return gormlogger.Info
	default:
		return gormlogger.Warn
	}
}

func (g *gormAdapter) LogMode(level gormlogger.LogLevel) gormlogger.Interface {
	clone := *g
	clone.level = level
	return &clone
}

func (g *gormAdapter) Info(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Info, msg, args)
}

func (g *gormAdapter) Warn(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Warn, msg, args)
}

func (g *gormAdapter) Error(ctx context.Context, msg string, args ...any) {
	g.printf(ctx, gormlogger.Error, msg, args)
}

func (g *gormAdapter) printf(ctx context.Context, at gormlogger.LogLevel, msg string, args []any) {
	if g.level < at {
		return
	}
	log := WithLogger(ctx, g.log)
	text := fmt.Sprintf(msg, args...)
	switch at {
	case gormlogger.Error:
		log.Error(text)
	case gormlogger.Warn:
		log.Warn(text)
	default:
		log.Info(text)
	}
}

// Trace logs failed statements at error, slow ones at warn and, at the
// info level, everything else at debug.
func (g *gormAdapter) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if g.level == gormlogger.Silent {
		return
	}
	elapsed := time.Since(begin)
	failed := err != nil && !errors.Is(err, gormlogger.ErrRecordNotFound)
	slow := g.slow > 0 && elapsed > g.slow

	var emit func(string, ...zap.Field)
	log := WithLogger(ctx, g.log)
	switch {
	case failed && g.level >= gormlogger.Error:
		emit = log.Error
	case slow && g.level >= gormlogger.Warn:
		emit = log.Warn
	case !failed && g.level >= gormlogger.Info:
		emit = log.Debug
	default:
		return
	}

	query, rows := fc()
	fields := []zap.Field{zap.String("sql", query), zap.Int64("rows", rows), zap.Duration("elapsed", elapsed)}
	switch {
	case failed:
		emit("sql failed", append(fields, zap.Error(err))...)
	case slow:
		emit("slow sql", append(fields, zap.Duration("threshold", g.slow))...)
	default:
		emit("sql", fields...)
	}
}
