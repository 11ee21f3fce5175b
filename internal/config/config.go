// internal/config/config.go
//
// Process configuration, read from the environment.
//   - `.env` is loaded first when present (development).
//   - Values are parsed into Config with caarlos0/env; defaults match local dev.
//   - Production refuses the development JWT secret.

package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// DevJWTSecret is the fallback secret for local development only.
const DevJWTSecret = "dev_secret_change_me"

type Config struct {
	Port         string `env:"PORT" envDefault:"5175"`
	DBPath       string `env:"DB_PATH" envDefault:"./data/uwguessr.db"`
	ClientOrigin string `env:"CLIENT_ORIGIN" envDefault:"http://localhost:3000"`

	JWTSecret      string `env:"JWT_SECRET" envDefault:"dev_secret_change_me"`
	JWTExpiresDays int    `env:"JWT_EXPIRES_DAYS" envDefault:"14"`
	DailySalt      string `env:"DAILY_SALT" envDefault:"local_dev_salt"`

	// RedisURL switches the submission limiter to Redis when set.
	RedisURL     string        `env:"REDIS_URL"`
	SubmitLimit  int           `env:"SUBMIT_LIMIT" envDefault:"2"`
	SubmitWindow time.Duration `env:"SUBMIT_WINDOW" envDefault:"1m"`

	SweepInterval time.Duration `env:"SWEEP_INTERVAL" envDefault:"1h"`
	// SessionTTL bounds how long an idle ephemeral session is kept in memory.
	SessionTTL time.Duration `env:"SESSION_TTL" envDefault:"24h"`

	LogLevel  string `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat string `env:"LOG_FORMAT" envDefault:"json"` // json | console
	NodeEnv   string `env:"NODE_ENV" envDefault:"development"`
}

// Production reports whether secure cookies and strict checks apply.
func (c *Config) Production() bool { return c.NodeEnv == "production" }

// Addr is the listen address.
func (c *Config) Addr() string { return ":" + c.Port }

// Load reads `.env` (if any) and the environment.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg, err := env.ParseAs[Config]()
	if err != nil {
		return nil, fmt.Errorf("parsing environment: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

func (c *Config) validate() error {
	if c.Production() && c.JWTSecret == DevJWTSecret {
		return errors.New("JWT_SECRET must be set in production")
	}
	if c.SubmitLimit < 1 {
		return fmt.Errorf("SUBMIT_LIMIT must be positive, got %d", c.SubmitLimit)
	}
	if c.SubmitWindow <= 0 || c.SweepInterval <= 0 {
		return errors.New("SUBMIT_WINDOW and SWEEP_INTERVAL must be positive")
	}
	return nil
}
