package main

import (
	"context"
	"fmt"
	"time"

	"earnings/store"

	"github.com/rs/zerolog"
)

const dbConnectTimeout = 10 * time.Second

// initDB opens the process-wide store and, unless DB_AUTO_MIGRATE is off,
// brings the earnings table up to date. The caller owns Close.
func initDB(cfg Config, log zerolog.Logger) (*store.Postgres, error) {
	ctx, cancel := context.WithTimeout(context.Background(), dbConnectTimeout)
	defer cancel()

	db, err := store.OpenPostgres(ctx, cfg.DatabaseURL, store.Options{
		SSLMode:         cfg.Database.SSLMode,
		MaxOpenConns:    cfg.Database.MaxOpenConns,
		MaxIdleConns:    cfg.Database.MaxIdleConns,
		ConnMaxLifetime: cfg.Database.ConnMaxLifetime,
		Logger:          newGormLogger(log),
	})
	if err != nil {
		return nil, fmt.Errorf("failed to connect postgres database: %w", err)
	}
	logSSLMode(cfg, log)

	if !cfg.Database.AutoMigrate {
		log.Info().Msg("DB_AUTO_MIGRATE is off; skipping schema migration")
		return db, nil
	}
	if err := db.Migrate(); err != nil {
		_ = db.Close()
		return nil, err
	}
	log.Info().Msg("earnings table migrated")
	return db, nil
}

// logSSLMode records the effective sslmode and warns when a non-development
// deployment connects without TLS.
func logSSLMode(cfg Config, log zerolog.Logger) {
	mode := store.SSLModeOf(cfg.DatabaseURL, cfg.Database.SSLMode)
	if store.PlaintextSSLMode(mode) && !cfg.isDevelopment() {
		log.Warn().Str("sslmode", mode).Str("env", cfg.Env).Msg("postgres connection is not encrypted")
		return
	}
	log.Info().Str("sslmode", mode).Msg("connected to postgres")
}
