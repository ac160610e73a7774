// Package jobenv sets up what every batch command under process/ needs: the
// environment, a console logger and the Postgres store.
package jobenv

import (
	"context"
	"fmt"
	"os"
	"time"

	"earnings/store"

	"github.com/caarlos0/env/v8"
	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
)

const connectTimeout = 10 * time.Second

type Config struct {
	DatabaseURL string `env:"DATABASE_URL,required,notEmpty"`
	SSLMode     string `env:"DB_SSLMODE" envDefault:"require"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// Load reads ./.env when present and then the process environment.
func Load() (Config, error) {
	_ = godotenv.Load()
	var cfg Config
	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("job config: %w", err)
	}
	return cfg, nil
}

func Logger(cfg Config) zerolog.Logger {
	level, err := zerolog.ParseLevel(cfg.LogLevel)
	if err != nil || level == zerolog.NoLevel {
		level = zerolog.InfoLevel
	}
	out := zerolog.ConsoleWriter{Out: os.Stderr, TimeFormat: time.Kitchen}
	return zerolog.New(out).Level(level).With().Timestamp().Logger()
}

// Open connects to the configured database. The caller owns Close.
func Open(ctx context.Context, cfg Config) (*store.Postgres, error) {
	ctx, cancel := context.WithTimeout(ctx, connectTimeout)
	defer cancel()
	return store.OpenPostgres(ctx, cfg.DatabaseURL, store.Options{SSLMode: cfg.SSLMode, MaxOpenConns: 2})
}

// MustSetup is Load, Logger and Open for a command's main. It exits the
// process with status 2 when the environment is incomplete.
func MustSetup(ctx context.Context) (*store.Postgres, zerolog.Logger) {
	cfg, err := Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "%v; export DATABASE_URL and retry\n", err)
		os.Exit(2)
	}
	log := Logger(cfg)
	db, err := Open(ctx, cfg)
	if err != nil {
		log.Fatal().Err(err).Msg("open database")
	}
	return db, log
}
