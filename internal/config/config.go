// Package config loads server settings from the environment.
package config

import (
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
)

// Config holds every knob the server reads at startup.
type Config struct {
	Port         string        `env:"PORT" envDefault:"5175"`
	LogLevel     string        `env:"LOG_LEVEL" envDefault:"info"`
	Storage      string        `env:"STORAGE" envDefault:"sqlite"` // sqlite | memory
	DBPath       string        `env:"DB_PATH" envDefault:"./data/guessnumber.db"`
	JWTSecret    string        `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	CookieName   string        `env:"COOKIE_NAME" envDefault:"gtn_session"`
	ClientOrigin string        `env:"CLIENT_ORIGIN" envDefault:"http://localhost:5173"`
	RoundDelay   time.Duration `env:"ROUND_DELAY" envDefault:"1800ms"`
	SessionTTL   time.Duration `env:"SESSION_TTL" envDefault:"24h"`
	Env          string        `env:"NODE_ENV" envDefault:"development"`
}

// Production reports whether cookies should be Secure/SameSite=None.
func (c Config) Production() bool { return c.Env == "production" }

// Load parses the environment into a Config.
func Load() (Config, error) {
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}
	switch cfg.Storage {
	case "sqlite", "memory":
	default:
		return Config{}, fmt.Errorf("STORAGE must be sqlite or memory, got %q", cfg.Storage)
	}
	if cfg.RoundDelay < 0 {
		return Config{}, fmt.Errorf("ROUND_DELAY must not be negative")
	}
	if cfg.SessionTTL <= 0 {
		return Config{}, fmt.Errorf("SESSION_TTL must be positive")
	}
	return cfg, nil
}
