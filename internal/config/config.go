package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Config keeps runtime settings for the bot and the engine.
type Config struct {
	TelegramToken string `envconfig:"TELEGRAM_TOKEN"`
	DatabaseURL   string `envconfig:"DATABASE_URL" default:"taskward.db" validate:"required"`

	LogLevel  string `envconfig:"LOG_LEVEL" default:"info" validate:"oneof=trace debug info warn error"`
	LogFormat string `envconfig:"LOG_FORMAT" default:"console" validate:"oneof=console json"`

	SweepInterval    time.Duration `envconfig:"SWEEP_INTERVAL" default:"15m" validate:"gte=1s"`
	SweepConcurrency int           `envconfig:"SWEEP_CONCURRENCY" default:"4" validate:"min=1,max=64"`
	SweepMaxCatchUp  int           `envconfig:"SWEEP_MAX_CATCHUP" default:"366" validate:"min=1"`

	// SummaryTime is the HH:MM local time of the daily summary message.
	SummaryTime string `envconfig:"SUMMARY_TIME" default:"09:00" validate:"datetime=15:04"`
	Timezone    string `envconfig:"TIMEZONE" default:"UTC" validate:"timezone"`
}

// ErrMissingToken is returned by RequireBot when no Telegram token is set.
var ErrMissingToken = errors.New("TELEGRAM_TOKEN is required")

// Load reads configuration from an optional .env file and the environment.
// Variables already set in the environment win over the file.
func Load(envFiles ...string) (Config, error) {
	if err := godotenv.Load(envFiles...); err != nil && !errors.Is(err, os.ErrNotExist) {
		return Config{}, fmt.Errorf("load env file: %w", err)
	}

	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, fmt.Errorf("process environment: %w", err)
	}
	cfg.TelegramToken = strings.TrimSpace(cfg.TelegramToken)
	cfg.DatabaseURL = strings.TrimSpace(cfg.DatabaseURL)

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("invalid configuration: %w", err)
	}
	return cfg, nil
}

// RequireBot checks the settings that only the bot needs.
func (c Config) RequireBot() error {
	if c.TelegramToken == "" {
		return ErrMissingToken
	}
	return nil
}

// Location resolves Timezone.
func (c Config) Location() (*time.Location, error) {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return nil, fmt.Errorf("load timezone %q: %w", c.Timezone, err)
	}
	return loc, nil
}
