package config

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
)

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	Port        string `env:"PORT" envDefault:"8080" validate:"required"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	SchedulePath    string `env:"SCHEDULE_PATH" envDefault:"schedule.json" validate:"required"`
	PollIntervalSec int    `env:"POLL_INTERVAL_SEC" envDefault:"20" validate:"min=1,max=60"`

	TTLockClientID     string `env:"TTLOCK_CLIENT_ID,required"     validate:"required"`
	TTLockClientSecret string `env:"TTLOCK_CLIENT_SECRET,required" validate:"required"`
	TTLockUsername     string `env:"TTLOCK_USERNAME,required"      validate:"required"`
	TTLockPassword     string `env:"TTLOCK_PASSWORD,required"      validate:"required"`
	TTLockLockID       int64  `env:"TTLOCK_LOCK_ID"` // 0 means pick the first lock on the account

	TelegramToken    string `env:"TELEGRAM_BOT_TOKEN,required" validate:"required"`
	TelegramChatID   int64  `env:"TELEGRAM_CHAT_ID,required"   validate:"required"`
	TelegramCodeword string `env:"TELEGRAM_CODEWORD,required"  validate:"required,min=4"`

	ResendAPIKey string `env:"RESEND_API_KEY" validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom   string `env:"RESEND_FROM"    validate:"required_if=Env production,required_if=Env staging"`
	AlertEmailTo string `env:"ALERT_EMAIL_TO" validate:"required_if=Env production,required_if=Env staging"`
}

func Load() (*Config, error) {
	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.PollIntervalSec) * time.Second
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}
