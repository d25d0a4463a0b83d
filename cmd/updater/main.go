package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"
	_ "time/tzdata" // REPORT_TZ on hosts without a zoneinfo database

	"github.com/rs/zerolog/log"

	"cinema_catalog/internal/adapters/observability"
	"cinema_catalog/internal/bootstrap"
	"cinema_catalog/internal/domain"
	"cinema_catalog/internal/shared"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := shared.Load()

	// 1) initialize global logger (console in dev, JSON otherwise)
	log.Logger = observability.NewLogger(cfg.AppEnv, "updater", cfg.LogLevel)
	observability.Serve(cfg.MetricsAddr)

	deps, err := bootstrap.Build(ctx, cfg, bootstrap.Options{})
	if err != nil {
		log.Fatal().Err(err).Msg("bootstrap failed")
	}
	defer deps.Close()

	if cfg.UpdateInterval <= 0 {
		if _, err := deps.Updates.Run(ctx); err != nil && !errors.Is(err, domain.ErrRunInProgress) {
			log.Error().Err(err).Msg("update failed")
			deps.Close()
			os.Exit(1)
		}
		return
	}

	log.Info().Dur("interval", cfg.UpdateInterval).Msg("updater starting")
	runOnce(ctx, deps)
	t := time.NewTicker(cfg.UpdateInterval)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("updater stopped")
			return
		case <-t.C:
			runOnce(ctx, deps)
		}
	}
}

// runOnce logs instead of exiting; the next tick retries from scratch.
func runOnce(ctx context.Context, deps *bootstrap.Deps) {
	_, err := deps.Updates.Run(ctx)
	switch {
	case errors.Is(err, domain.ErrRunInProgress):
		log.Info().Msg("previous update still running, skipping tick")
	case err != nil:
		log.Warn().Err(err).Msg("update failed, waiting for next tick")
	}
}
