package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds all configuration for the chat server
type Config struct {
	Port                      string        `env:"PORT" envDefault:"3001"`
	Origin                    string        `env:"ORIGIN" envDefault:"http://localhost:8000"`
	Environment               string        `env:"APP_ENV" envDefault:"development"`
	JWTSecret                 string        `env:"JWT_SECRET" envDefault:"default_jwt_secret"`
	JWTRefreshSecret          string        `env:"JWT_REFRESH_SECRET" envDefault:"default_refresh_secret"`
	JWTExpirationMinutes      int           `env:"JWT_EXPIRATION_MINUTES" envDefault:"15"`
	JWTRefreshExpirationHours int           `env:"JWT_REFRESH_EXPIRATION_HOURS" envDefault:"168"` // 7 days
	ReadTimeout               time.Duration `env:"SERVER_READ_TIMEOUT" envDefault:"15s"`
	WriteTimeout              time.Duration `env:"SERVER_WRITE_TIMEOUT" envDefault:"30s"`
	Database                  DatabaseConfig
	Chat                      ChatConfig
	Uploads                   UploadConfig
	Logger                    LoggerConfig
}

// DatabaseConfig holds database connection details
type DatabaseConfig struct {
	Driver     string `env:"DB_DRIVER" envDefault:"mysql"`
	Host       string `env:"DB_HOST" envDefault:"localhost"`
	Port       string `env:"DB_PORT" envDefault:"3306"`
	Username   string `env:"DB_USERNAME" envDefault:"root"`
	Password   string `env:"DB_PASSWORD"`
	Name       string `env:"DB_NAME" envDefault:"message_app"`
	SQLitePath string `env:"SQLITE_PATH" envDefault:"data/chat.db"`
	LogLevel   string `env:"DB_LOG_LEVEL" envDefault:"warn"`
	DSN        string
}

// ChatConfig holds messaging limits
type ChatConfig struct {
	MessagesPerPage int `env:"MESSAGES_PER_PAGE" envDefault:"50"`
	MaxHistory      int `env:"MAX_HISTORY" envDefault:"200"`
	MaxTextLength   int `env:"MAX_TEXT_LENGTH" envDefault:"5000"`
	PollIntervalMS  int `env:"POLL_INTERVAL_MS" envDefault:"3000"`
}

// UploadConfig holds message attachment settings
type UploadConfig struct {
	Dir       string `env:"UPLOAD_DIR" envDefault:"public/uploads"`
	URLPrefix string `env:"UPLOAD_URL" envDefault:"/uploads"`
	MaxBytes  int64  `env:"MAX_UPLOAD_BYTES" envDefault:"5242880"` // 5MB
}

// LoggerConfig holds logging and rotation settings
type LoggerConfig struct {
	Level      string `env:"LOG_LEVEL" envDefault:"info"`
	Directory  string `env:"LOG_DIR" envDefault:"logs"`
	Console    bool   `env:"LOG_CONSOLE" envDefault:"true"`
	MaxSize    int    `env:"LOG_MAX_SIZE_MB" envDefault:"10"`
	MaxBackups int    `env:"LOG_MAX_BACKUPS" envDefault:"30"`
	MaxAge     int    `env:"LOG_MAX_AGE_DAYS" envDefault:"90"`
	Compress   bool   `env:"LOG_COMPRESS" envDefault:"true"`
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse environment: %w", err)
	}

	switch cfg.Database.Driver {
	case "mysql":
		cfg.Database.DSN = fmt.Sprintf("%s:%s@tcp(%s:%s)/%s?charset=utf8mb4&parseTime=True&loc=UTC",
			cfg.Database.Username, cfg.Database.Password, cfg.Database.Host, cfg.Database.Port, cfg.Database.Name)
	case "sqlite":
		cfg.Database.DSN = cfg.Database.SQLitePath
	default:
		return nil, fmt.Errorf("invalid DB_DRIVER %q: want mysql or sqlite", cfg.Database.Driver)
	}

	if cfg.Chat.MessagesPerPage <= 0 {
		return nil, fmt.Errorf("invalid MESSAGES_PER_PAGE: %d", cfg.Chat.MessagesPerPage)
	}
	if cfg.Chat.MaxHistory < cfg.Chat.MessagesPerPage {
		return nil, fmt.Errorf("MAX_HISTORY (%d) must be at least MESSAGES_PER_PAGE (%d)", cfg.Chat.MaxHistory, cfg.Chat.MessagesPerPage)
	}

	return cfg, nil
}

// IsDevelopment reports whether the server runs with development defaults.
func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}
