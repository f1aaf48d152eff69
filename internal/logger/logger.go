package logger

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
	"gopkg.in/natefinch/lumberjack.v2"

	"chat-backend/internal/config"
)

// createRotatingLogger creates a lumberjack rotating logger
func createRotatingLogger(logFilePath string, cfg config.LoggerConfig) *lumberjack.Logger {
	return &lumberjack.Logger{
		Filename:   logFilePath,
		MaxSize:    cfg.MaxSize,
		MaxBackups: cfg.MaxBackups,
		MaxAge:     cfg.MaxAge,
		Compress:   cfg.Compress,
	}
}

// ParseLevel maps a config level name to a zerolog level, defaulting to info.
func ParseLevel(level string) zerolog.Level {
	lvl, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(level)))
	if err != nil || lvl == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return lvl
}

// Setup builds the process logger: stdout (console format when enabled) plus a
// rotating JSON file under the configured directory. The result is also
// installed as the zerolog global logger.
func Setup(app string, cfg config.LoggerConfig) (zerolog.Logger, error) {
	if err := os.MkdirAll(cfg.Directory, 0755); err != nil {
		return zerolog.Nop(), fmt.Errorf("failed to create log directory: %w", err)
	}

	logFilePath := filepath.Join(cfg.Directory, app+".log")
	var stdout io.Writer = os.Stdout
	if cfg.Console {
		stdout = zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339}
	}
	writer := zerolog.MultiLevelWriter(stdout, createRotatingLogger(logFilePath, cfg))

	logger := zerolog.New(writer).
		Level(ParseLevel(cfg.Level)).
		With().Timestamp().Str("app", app).Logger()
	log.Logger = logger

	logger.Info().Str("file", logFilePath).Msg("logging initialized")
	return logger, nil
}
