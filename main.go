package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"
)

const (
	readHeaderTimeout  = 10 * time.Second
	limiterSweepPeriod = 10 * time.Minute
)

func main() {
	cfg, err := loadConfig()
	if err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
	log := newLogger(cfg, os.Stderr)

	// `./earnings migrate` creates or updates the table and exits.
	if len(os.Args) > 1 && os.Args[1] == "migrate" {
		cfg.Database.AutoMigrate = true
		db, err := initDB(cfg, log)
		if err != nil {
			log.Fatal().Err(err).Msg("migration failed")
		}
		_ = db.Close()
		log.Info().Msg("migration completed")
		return
	}

	if err := run(cfg, log); err != nil {
		log.Fatal().Err(err).Msg("server stopped")
	}
}

// run serves until SIGINT or SIGTERM, then drains in-flight requests and
// closes the database pool.
func run(cfg Config, log zerolog.Logger) error {
	if !cfg.isDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	db, err := initDB(cfg, log)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			log.Error().Err(err).Msg("closing database")
		}
	}()

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	srv := newServer(cfg, db, log)
	go srv.limits.runSweeper(ctx, limiterSweepPeriod, func(removed int) {
		if removed > 0 {
			log.Debug().Int("removed", removed).Msg("rate limiter: idle clients dropped")
		}
	})

	httpSrv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           srv.router(),
		ReadHeaderTimeout: readHeaderTimeout,
	}
	httpSrv.RegisterOnShutdown(srv.events.closeAll)

	errCh := make(chan error, 1)
	go func() {
		log.Info().Str("addr", httpSrv.Addr).Str("env", cfg.Env).Msg("earnings service listening")
		if err := httpSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info().Dur("timeout", cfg.ShutdownTimeout).Msg("shutting down")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.ShutdownTimeout)
	defer cancel()
	if err := httpSrv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("shutdown: %w", err)
	}
	return nil
}
