package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/api"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/config"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/database"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/face"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/gallery"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/service"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/stats"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/ws"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	// Load configuration
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	// Initialize logger
	logger := config.NewLogger(cfg.Environment, os.Stdout)
	slog.SetDefault(logger)

	logger.Info("starting Face Gallery API",
		slog.String("environment", cfg.Environment),
		slog.Int("port", cfg.Port),
		slog.String("provider", cfg.ProviderType),
	)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer pool.Close()

	extractor, err := face.NewExtractor(cfg)
	if err != nil {
		return fmt.Errorf("failed to create extractor: %w", err)
	}

	store := repository.NewIdentityRepository(pool)
	cache := gallery.NewCache(store, cfg.StoreTimeout, logger)

	statsWorker := stats.NewWorker(store, logger, stats.Config{
		BufferSize: cfg.StatsBufferSize,
		Workers:    cfg.StatsWorkers,
		Timeout:    cfg.StatsTimeout,
	})
	statsWorker.Start()
	defer statsWorker.Stop()

	hub := ws.NewHub()
	hubCtx, cancelHub := context.WithCancel(context.Background())
	defer cancelHub()
	go hub.Run(hubCtx)

	svc := service.NewGalleryService(store, cache, extractor, statsWorker, logger).
		WithThresholds(service.Thresholds{
			Similarity:  cfg.SimilarityThreshold,
			Recognition: cfg.RecognitionThreshold,
			Duplicate:   cfg.DuplicateThreshold,
			TopK:        cfg.TopK,
		}).
		WithStoreTimeout(cfg.StoreTimeout).
		WithAudit(audit.NewMultiLogger(audit.NewSlogLogger(logger), hub))

	// Startup is not blocked by an unreachable store; the cache stays stale and
	// enrollments fail until a rebuild succeeds.
	if err := svc.Refresh(ctx); err != nil {
		logger.Warn("initial gallery load failed", slog.Any("error", err))
	} else {
		logger.Info("gallery loaded", slog.Int("identities", cache.Len()))
	}

	router := api.NewRouter(logger, &api.Dependencies{
		Gallery: svc,
		Store:   store,
		Events:  hub,
	})
	router.Setup()

	// Start server in goroutine
	errChan := make(chan error, 1)
	go func() {
		addr := fmt.Sprintf(":%d", cfg.Port)
		logger.Info("server listening", slog.String("addr", addr))
		if err := router.Listen(addr); err != nil {
			errChan <- err
		}
	}()

	// Wait for shutdown signal or error
	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-errChan:
		return fmt.Errorf("server error: %w", err)
	}

	logger.Info("shutting down server...")
	done := make(chan error, 1)
	go func() { done <- router.Shutdown() }()

	select {
	case err := <-done:
		if err != nil {
			logger.Error("shutdown error", slog.Any("error", err))
		}
	case <-time.After(10 * time.Second):
		logger.Error("shutdown timed out")
	}

	logger.Info("server stopped",
		slog.Int64("stats_processed", statsWorker.Processed()),
		slog.Int64("stats_dropped", statsWorker.Dropped()),
	)

	return nil
}
