package db

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"github.com/sirupsen/logrus"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultSlowThreshold = 200 * time.Millisecond

// GormLogger forwards gorm's query log to logrus.
type GormLogger struct {
	logger        *logrus.Logger
	level         logger.LogLevel
	slowThreshold time.Duration
}

var _ logger.Interface = (*GormLogger)(nil)

// NewGormLogger returns a gorm logger that writes warnings and errors through the supplied logrus logger.
func NewGormLogger(log *logrus.Logger) *GormLogger {
	return &GormLogger{
		logger:        log,
		level:         logger.Warn,
		slowThreshold: defaultSlowThreshold,
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	clone := *l
	clone.level = level
	return &clone
}

func (l *GormLogger) Info(ctx context.Context, msg string, args ...interface{}) {
	if l.logger == nil || l.level < logger.Info {
		return
	}
	l.entry().Infof(msg, args...)
}

func (l *GormLogger) Warn(ctx context.Context, msg string, args ...interface{}) {
	if l.logger == nil || l.level < logger.Warn {
		return
	}
	l.entry().Warnf(msg, args...)
}

func (l *GormLogger) Error(ctx context.Context, msg string, args ...interface{}) {
	if l.logger == nil || l.level < logger.Error {
		return
	}
	l.entry().Errorf(msg, args...)
}

func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.logger == nil || l.level <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)

	switch {
	// Missing rows are reported to callers as nil results, not logged.
	case err != nil && l.level >= logger.Error && !eris.Is(err, gorm.ErrRecordNotFound):
		sql, rows := fc()
		l.entry().WithFields(logrus.Fields{
			"sql":         sql,
			"rows":        rows,
			"duration_ms": float64(elapsed.Microseconds()) / 1000,
			"error":       err.Error(),
		}).Error("query failed")
	case elapsed > l.slowThreshold && l.slowThreshold > 0 && l.level >= logger.Warn:
		sql, rows := fc()
		l.entry().WithFields(logrus.Fields{
			"sql":         sql,
			"rows":        rows,
			"duration_ms": float64(elapsed.Microseconds()) / 1000,
		}).Warn("slow query")
	case l.level >= logger.Info:
		sql, rows := fc()
		l.entry().WithFields(logrus.Fields{
			"sql":         sql,
			"rows":        rows,
			"duration_ms": float64(elapsed.Microseconds()) / 1000,
		}).Debug("query executed")
	}
}

func (l *GormLogger) entry() *logrus.Entry {
	return l.logger.WithField("component", "gorm")
}
