package database

import (
	"context"
	"errors"
	"time"

	"github.com/cloudwego/hertz/pkg/common/hlog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

// slowQueryThreshold marks ledger statements worth a warning.
const slowQueryThreshold = 200 * time.Millisecond

// Logger routes gorm's output through hlog so ledger queries share the
// request log and its request id.
type Logger struct {
	level logger.LogLevel
}

// NewLogger returns a gorm logger that emits at level and above.
func NewLogger(level logger.LogLevel) *Logger {
	return &Logger{level: level}
}

func (l *Logger) LogMode(level logger.LogLevel) logger.Interface {
	return &Logger{level: level}
}

func (l *Logger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Info {
		hlog.CtxInfof(ctx, "gorm: "+msg, args...)
	}
}

func (l *Logger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Warn {
		hlog.CtxWarnf(ctx, "gorm: "+msg, args...)
	}
}

func (l *Logger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.level >= logger.Error {
		hlog.CtxErrorf(ctx, "gorm: "+msg, args...)
	}
}

// Trace logs failed statements as errors and slow ones as warnings. A
// missing row is an expected outcome, not a failure.
func (l *Logger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.level <= logger.Silent {
		return
	}
	elapsed := time.Since(begin)
	switch {
	case err != nil && !errors.Is(err, gorm.ErrRecordNotFound) && l.level >= logger.Error:
		sql, rows := fc()
		hlog.CtxErrorf(ctx, "gorm: %v [%s] rows=%d %s", err, elapsed, rows, sql)
	case elapsed > slowQueryThreshold && l.level >= logger.Warn:
		sql, rows := fc()
		hlog.CtxWarnf(ctx, "gorm: slow query [%s] rows=%d %s", elapsed, rows, sql)
	case l.level >= logger.Info:
		sql, rows := fc()
		hlog.CtxDebugf(ctx, "gorm: [%s] rows=%d %s", elapsed, rows, sql)
	}
}
