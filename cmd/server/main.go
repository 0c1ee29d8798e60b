// Package main is the entry point for the stockwatch service.
//
// The service tracks stock quotes from two providers (Alpha Vantage for
// global symbols, NSE for Indian symbols), keeps a local price history in
// SQLite and serves it over a REST API. Batch refreshes run on a schedule.
package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/aristath/stockwatch/internal/config"
	"github.com/aristath/stockwatch/internal/di"
	"github.com/aristath/stockwatch/internal/modules/stocks"
	"github.com/aristath/stockwatch/internal/scheduler"
	"github.com/aristath/stockwatch/internal/server"
	"github.com/aristath/stockwatch/internal/version"
	"github.com/aristath/stockwatch/pkg/logger"
	"github.com/rs/zerolog"
)

func main() {
	// Load configuration first to get log level
	cfg, err := config.Load()
	if err != nil {
		// Use fallback logger if config fails
		fallbackLog := logger.New(logger.Config{
			Level:  "info",
			Pretty: true,
		})
		fallbackLog.Fatal().Err(err).Msg("Failed to load configuration")
	}

	log := logger.New(logger.Config{
		Level:  cfg.LogLevel,
		Pretty: cfg.DevMode,
		App:    "stockwatch",
	})
	logger.SetGlobalLogger(log)

	log.Info().Str("version", version.Version).Msg("Starting stockwatch")

	// Databases, repositories, provider clients and services
	container, err := di.Wire(cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to wire dependencies")
	}
	defer container.Close()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Seeding runs in the background so the API is available immediately;
	// paced global symbols can take minutes.
	if cfg.SeedFile != "" {
		go seed(ctx, container.SyncService, cfg.SeedFile, log)
	}

	sched := scheduler.New(log)
	if _, err := di.RegisterJobs(container, sched, cfg, log); err != nil {
		log.Fatal().Err(err).Msg("Failed to register jobs")
	}
	sched.Start()

	srv := server.New(server.Config{
		Log:       log,
		Config:    cfg,
		Port:      cfg.Port,
		DevMode:   cfg.DevMode,
		Container: container,
	})

	go func() {
		if err := srv.Start(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			log.Fatal().Err(err).Msg("Failed to start server")
		}
	}()

	log.Info().Int("port", cfg.Port).Msg("Server started successfully")

	// Wait for interrupt signal
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit

	log.Info().Msg("Shutting down server...")
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown")
	}

	// Waits for a running refresh to finish
	sched.Stop()

	log.Info().Msg("Server stopped")
}

func seed(ctx context.Context, svc *stocks.SyncService, path string, log zerolog.Logger) {
	entries, err := stocks.LoadSeedFile(path)
	if err != nil {
		log.Error().Err(err).Str("path", path).Msg("Failed to load seed file")
		return
	}

	result, err := svc.Seed(ctx, entries)
	if err != nil {
		log.Error().Err(err).Msg("Seeding failed")
		return
	}

	for _, f := range result.Failed {
		log.Warn().Str("symbol", f.Symbol).Str("error", f.Error).Msg("Failed to seed symbol")
	}
}
