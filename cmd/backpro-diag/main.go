package main

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"backpro/internal/config"
	"backpro/internal/diagnostics"
	"backpro/internal/log"
)

// backpro-diag follows the diagnostics stream and logs every generation
// failure the web instances recorded.
func main() {
	cfg, err := config.LoadDiagnostics()
	if err != nil {
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	client, err := diagnostics.Dial(ctx, cfg.Redis)
	if err != nil {
		logger.Fatal().Err(err).Msg("redis connection failed")
	}
	defer client.Close()

	processor := diagnostics.NewProcessor(logger)
	consumer := diagnostics.NewConsumer(
		client,
		cfg.Redis.Stream,
		cfg.Redis.Group,
		cfg.Redis.Consumer,
		cfg.Diagnostics.ClaimInterval,
		logger,
		processor,
	)

	logger.Info().Str("stream", cfg.Redis.Stream).Str("group", cfg.Redis.Group).Msg("following diagnostics")

	if err := consumer.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error().Err(err).Msg("consumer stopped unexpectedly")
	}

	logger.Info().Interface("failures", processor.Counts()).Msg("shutdown")
}
