package main

import (
	"fmt"
	"strings"
	"time"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
)

// Config is read from the environment once at startup.
type Config struct {
	Env             string          `env:"APP_ENV" envDefault:"development"`
	Port            string          `env:"PORT" envDefault:"8081"`
	ShutdownTimeout time.Duration   `env:"SHUTDOWN_TIMEOUT" envDefault:"10s"`
	LogLevel        string          `env:"LOG_LEVEL" envDefault:"info"`
	LogFormat       string          `env:"LOG_FORMAT"` // json or console; empty picks by APP_ENV
	EarningsGoal    decimal.Decimal `env:"EARNINGS_GOAL" envDefault:"10000"`
	DatabaseURL     string          `env:"DATABASE_URL"`

	Database  DatabaseConfig  `envPrefix:"DB_"`
	CORS      CORSConfig      `envPrefix:"CORS_"`
	RateLimit RateLimitConfig `envPrefix:"RATE_LIMIT_"`
}

type DatabaseConfig struct {
	SSLMode         string        `env:"SSLMODE" envDefault:"require"`
	AutoMigrate     bool          `env:"AUTO_MIGRATE" envDefault:"true"`
	MaxOpenConns    int           `env:"MAX_OPEN_CONNS" envDefault:"10"`
	MaxIdleConns    int           `env:"MAX_IDLE_CONNS" envDefault:"5"`
	ConnMaxLifetime time.Duration `env:"CONN_MAX_LIFETIME" envDefault:"30m"`
}

type CORSConfig struct {
	AllowOrigins     []string      `env:"ALLOW_ORIGINS" envSeparator:"," envDefault:"*"`
	AllowMethods     []string      `env:"ALLOW_METHODS" envSeparator:"," envDefault:"GET,POST,DELETE,OPTIONS"`
	AllowHeaders     []string      `env:"ALLOW_HEADERS" envSeparator:"," envDefault:"*"`
	AllowCredentials bool          `env:"ALLOW_CREDENTIALS" envDefault:"false"`
	MaxAge           time.Duration `env:"MAX_AGE" envDefault:"24h"`
}

// RateLimitConfig holds one budget per tier: every request, writes, and
// bulk clears. A budget of Requests per Window is enforced per client IP.
type RateLimitConfig struct {
	Enabled bool        `env:"ENABLED" envDefault:"true"`
	General LimitConfig `envPrefix:"GENERAL_"`
	Write   LimitConfig `envPrefix:"WRITE_"`
	Clear   LimitConfig `envPrefix:"CLEAR_"`
}

type LimitConfig struct {
	Requests int           `env:"REQUESTS"`
	Window   time.Duration `env:"WINDOW"`
}

func defaultRateLimits() RateLimitConfig {
	return RateLimitConfig{
		General: LimitConfig{Requests: 100, Window: 15 * time.Minute},
		Write:   LimitConfig{Requests: 20, Window: 5 * time.Minute},
		Clear:   LimitConfig{Requests: 3, Window: time.Hour},
	}
}

// loadConfig loads ./.env when present (real environment variables win) and
// parses the environment into a Config.
func loadConfig() (Config, error) {
	_ = godotenv.Load()
	return parseConfig(nil)
}

// parseConfig parses the process environment, or environment when non-nil.
func parseConfig(environment map[string]string) (Config, error) {
	cfg := Config{RateLimit: defaultRateLimits()}
	opts := env.Options{Environment: environment}
	if err := env.ParseWithOptions(&cfg, opts); err != nil {
		return Config{}, fmt.Errorf("parse config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.DatabaseURL) == "" {
		return fmt.Errorf("DATABASE_URL is not set. This service requires a Postgres connection string in DATABASE_URL")
	}
	if c.EarningsGoal.IsNegative() {
		return fmt.Errorf("EARNINGS_GOAL must not be negative, got %s", c.EarningsGoal)
	}
	for name, l := range map[string]LimitConfig{"GENERAL": c.RateLimit.General, "WRITE": c.RateLimit.Write, "CLEAR": c.RateLimit.Clear} {
		if c.RateLimit.Enabled && (l.Requests <= 0 || l.Window <= 0) {
			return fmt.Errorf("RATE_LIMIT_%s_REQUESTS and RATE_LIMIT_%s_WINDOW must be positive", name, name)
		}
	}
	return nil
}

func (c Config) isDevelopment() bool {
	return c.Env == "development" || c.Env == "local"
}
