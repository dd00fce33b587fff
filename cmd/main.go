package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/rs/zerolog/log"

	"voice-relay-bot/internal/app"
	"voice-relay-bot/internal/config"
	"voice-relay-bot/internal/observability/logging"
)

// shutdownTimeout covers stopping the poll, draining jobs and closing writers.
const shutdownTimeout = 15 * time.Second

func main() {
	cfg := config.Load()

	logging.Init(logging.Config{
		Level:  cfg.Observability.LogLevel,
		Format: cfg.Observability.LogFormat,
	})

	if err := cfg.Validate(); err != nil {
		log.Error().Err(err).Msg("Invalid configuration")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	application, err := app.New(ctx, cfg)
	if err != nil {
		log.Error().Err(err).Msg("Failed to initialize bot")
		os.Exit(1)
	}

	if err := application.Start(ctx); err != nil {
		log.Error().Err(err).Msg("Failed to start bot")
		os.Exit(1)
	}

	<-ctx.Done()
	stop()
	log.Info().Msg("Shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()

	if err := application.Shutdown(shutdownCtx); err != nil {
		cancel()
		os.Exit(1)
	}
}
