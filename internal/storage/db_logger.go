package storage

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
	"gorm.io/gorm/utils"
)

// GormLogger forwards gorm's SQL tracing to zerolog.
type GormLogger struct {
	log                       zerolog.Logger
	LogLevel                  logger.LogLevel
	SlowThreshold             time.Duration
	IgnoreRecordNotFoundError bool
}

// NewGormLogger maps a level name (silent, error, warn, info) onto a gorm logger.
func NewGormLogger(log zerolog.Logger, level string) logger.Interface {
	var logLevel logger.LogLevel
	switch strings.ToLower(level) {
	case "silent":
		logLevel = logger.Silent
	case "error":
		logLevel = logger.Error
	case "info", "debug":
		logLevel = logger.Info
	default:
		logLevel = logger.Warn
	}

	return &GormLogger{
		log:                       log.With().Str("component", "gorm").Logger(),
		LogLevel:                  logLevel,
		SlowThreshold:             200 * time.Millisecond,
		IgnoreRecordNotFoundError: true,
	}
}

func (l *GormLogger) LogMode(level logger.LogLevel) logger.Interface {
	newLogger := *l
	newLogger.LogLevel = level
	return &newLogger
}

func (l *GormLogger) Info(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Info {
		l.log.Info().Msgf(msg, data...)
	}
}

func (l *GormLogger) Warn(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Warn {
		l.log.Warn().Msgf(msg, data...)
	}
}

func (l *GormLogger) Error(ctx context.Context, msg string, data ...interface{}) {
	if l.LogLevel >= logger.Error {
		l.log.Error().Msgf(msg, data...)
	}
}

// Trace logs failed statements, slow statements and, at info level, every statement.
func (l *GormLogger) Trace(ctx context.Context, begin time.Time, fc func() (string, int64), err error) {
	if l.LogLevel <= logger.Silent {
		return
	}

	elapsed := time.Since(begin)
	switch {
	case err != nil && l.LogLevel >= logger.Error && (!errors.Is(err, gorm.ErrRecordNotFound) || !l.IgnoreRecordNotFoundError):
		sql, rows := fc()
		l.log.Error().Err(err).Str("source", utils.FileWithLineNum()).Dur("elapsed", elapsed).
			Int64("rows", rows).Str("sql", sql).Msg("sql error")
	case l.SlowThreshold != 0 && elapsed > l.SlowThreshold && l.LogLevel >= logger.Warn:
		sql, rows := fc()
		l.log.Warn().Str("source", utils.FileWithLineNum()).Dur("elapsed", elapsed).
			Dur("threshold", l.SlowThreshold).Int64("rows", rows).Str("sql", sql).Msg("slow sql")
	case l.LogLevel == logger.Info:
		sql, rows := fc()
		l.log.Debug().Str("source", utils.FileWithLineNum()).Dur("elapsed", elapsed).
			Int64("rows", rows).Str("sql", sql).Msg("sql")
	}
}
