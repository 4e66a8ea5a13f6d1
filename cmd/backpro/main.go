package main

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"backpro/internal/config"
	"backpro/internal/diagnostics"
	"backpro/internal/encoder"
	"backpro/internal/gemini"
	"backpro/internal/handlers"
	"backpro/internal/jobs"
	"backpro/internal/log"
	"backpro/internal/server"
	"backpro/internal/session"
	"backpro/internal/storage"
	"backpro/internal/web"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		if errors.Is(err, config.ErrMissingAPIKey) {
			fmt.Fprintln(os.Stderr, "API_KEY environment variable is not set (or BACKPRO_GEMINI_APIKEY)")
			os.Exit(1)
		}
		panic(err)
	}

	logger := log.New(cfg.Environment, cfg.Log.Level)

	ctx := context.Background()

	store, err := newStore(ctx, cfg.Storage, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init preview store")
	}

	var redisClient *redis.Client
	var recorder diagnostics.Recorder = diagnostics.NewLogRecorder(logger)
	if cfg.Redis.Addr != "" {
		redisClient, err = diagnostics.Dial(ctx, cfg.Redis)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect redis")
		}
		recorder = diagnostics.NewStreamRecorder(redisClient, cfg.Redis.Stream, logger)
	}

	generator, err := gemini.New(ctx, gemini.Config{
		APIKey:  cfg.Gemini.APIKey,
		Model:   cfg.Gemini.Model,
		BaseURL: cfg.Gemini.BaseURL,
		Timeout: cfg.Gemini.Timeout,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to init gemini client")
	}

	tmpl, err := web.Templates()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to parse templates")
	}

	registry := session.NewRegistry(store, encoder.New(store), generator, recorder, logger)
	handlerSet := handlers.NewHandlerSet(logger, cfg, registry, store, redisClient, tmpl)
	httpServer := server.NewHTTPServer(cfg, logger, handlerSet)

	scheduler := jobs.NewScheduler(registry, cfg.Session.SweepInterval, cfg.Session.IdleTimeout, logger)
	if err := scheduler.Start(); err != nil {
		logger.Error().Err(err).Msg("scheduler start failed")
	}

	go func() {
		if err := httpServer.Start(); err != nil {
			logger.Fatal().Err(err).Msg("http server failed")
		}
	}()

	waitForShutdown(logger, httpServer, scheduler, registry, redisClient)
}

func newStore(ctx context.Context, cfg config.StorageConfig, logger zerolog.Logger) (storage.Store, error) {
	if cfg.Driver != config.StorageDriverMinio {
		logger.Info().Msg("previews kept in memory")
		return storage.NewMemoryStore(), nil
	}

	objectStore, err := storage.NewObjectStore(cfg)
	if err != nil {
		return nil, err
	}
	if err := objectStore.EnsureBucket(ctx); err != nil {
		logger.Warn().Err(err).Msg("ensure bucket failed")
	}
	logger.Info().Str("bucket", cfg.Bucket).Msg("previews kept in object storage")
	return objectStore, nil
}

func waitForShutdown(logger zerolog.Logger, srv *server.HTTPServer, scheduler *jobs.Scheduler, registry *session.Registry, redisClient *redis.Client) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()
	logger.Info().Msg("shutdown signal received")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	select {
	case <-scheduler.Stop().Done():
	case <-shutdownCtx.Done():
	}

	registry.Close(shutdownCtx)

	if redisClient != nil {
		if err := redisClient.Close(); err != nil {
			logger.Error().Err(err).Msg("redis close error")
		}
	}

	logger.Info().Msg("server exited cleanly")
}
