// Package config loads runtime configuration from RITE_* environment
// variables.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/perales/rite/internal/ceremony"
)

// Config holds the runtime settings of the rite client. Values come from the
// environment; command-line flags may override individual fields after Load.
type Config struct {
	// DBPath locates the sqlite file holding validation state.
	DBPath string `env:"RITE_DB_PATH" envDefault:"rite.db"`

	// LogLevel is one of debug, info, warn, error.
	LogLevel string `env:"RITE_LOG_LEVEL" envDefault:"info"`

	// ShortSession and LongSession are the period lengths used to arm the
	// countdown when the matching period begins.
	ShortSession time.Duration `env:"RITE_SHORT_SESSION" envDefault:"2m"`
	LongSession  time.Duration `env:"RITE_LONG_SESSION" envDefault:"30m"`

	// RefetchInterval is how often unresolved flips are re-requested while a
	// session is live.
	RefetchInterval time.Duration `env:"RITE_REFETCH_INTERVAL" envDefault:"3s"`

	// SubmitTries bounds the delivery retries inside a single submission
	// attempt.
	SubmitTries uint `env:"RITE_SUBMIT_TRIES" envDefault:"3"`
}

// Load reads configuration from environment variables.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.ShortSession <= 0 || c.LongSession <= 0 {
		return fmt.Errorf("session durations must be positive (short %s, long %s)", c.ShortSession, c.LongSession)
	}
	if c.RefetchInterval <= 0 {
		return fmt.Errorf("refetch interval must be positive (%s)", c.RefetchInterval)
	}
	if c.SubmitTries == 0 {
		return errors.New("submit tries must be at least 1")
	}
	if _, err := c.Level(); err != nil {
		return err
	}
	return nil
}

// Level parses LogLevel into a slog level.
func (c Config) Level() (slog.Level, error) {
	switch strings.ToLower(c.LogLevel) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown log level %q", c.LogLevel)
	}
}

// SessionLength reports the configured length of a period. Periods without a
// session deadline return false.
func (c Config) SessionLength(p ceremony.Period) (time.Duration, bool) {
	switch p {
	case ceremony.PeriodShortSession:
		return c.ShortSession, true
	case ceremony.PeriodLongSession:
		return c.LongSession, true
	default:
		return 0, false
	}
}
