// Command gallery runs gallery operations from the shell and prints the results as JSON.
package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/config"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/database"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/face"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/gallery"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/repository"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/service"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/stats"
)

func main() {
	if err := newRootCmd(openApp).Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

// app is the wired service plus whatever must be released after the command
type app struct {
	svc   *service.GalleryService
	close func()
}

// appFactory wires an app whose logs are written to logOut
type appFactory func(ctx context.Context, logOut io.Writer) (*app, error)

func newRootCmd(factory appFactory) *cobra.Command {
	root := &cobra.Command{
		Use:   "gallery",
		Short: "Face gallery recognition and enrollment",
		Long: `gallery recognizes, searches and enrolls faces against the local gallery.

Configuration comes from the environment (DATABASE_URL, PROVIDER_TYPE, DEEPFACE_URL,
thresholds); a .env file in the working directory is loaded when present.`,
		SilenceUsage: true,
	}

	root.AddCommand(
		newRecognizeCmd(factory),
		newSearchCmd(factory),
		newRegisterCmd(factory),
		newExtractCmd(factory),
		newStatusCmd(factory),
		newListPeopleCmd(factory),
		newDeletePersonCmd(factory),
		newClearAllCmd(factory),
	)

	return root
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}

// openApp wires the gallery against the configured store and extractor.
// Logs and audit events go to logOut, never to the JSON output.
func openApp(ctx context.Context, logOut io.Writer) (*app, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}

	logger := config.NewLogger(cfg.Environment, logOut)
	slog.SetDefault(logger)

	pool, err := database.NewPool(ctx, database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return nil, err
	}

	extractor, err := face.NewExtractor(cfg)
	if err != nil {
		pool.Close()
		return nil, err
	}

	store := repository.NewIdentityRepository(pool)
	cache := gallery.NewCache(store, cfg.StoreTimeout, logger)

	worker := stats.NewWorker(store, logger, stats.Config{
		BufferSize: cfg.StatsBufferSize,
		Workers:    cfg.StatsWorkers,
		Timeout:    cfg.StatsTimeout,
	})
	worker.Start()

	svc := service.NewGalleryService(store, cache, extractor, worker, logger).
		WithThresholds(service.Thresholds{
			Similarity:  cfg.SimilarityThreshold,
			Recognition: cfg.RecognitionThreshold,
			Duplicate:   cfg.DuplicateThreshold,
			TopK:        cfg.TopK,
		}).
		WithStoreTimeout(cfg.StoreTimeout).
		WithAudit(audit.NewSlogLogger(logger))

	if err := svc.Refresh(ctx); err != nil {
		logger.Warn("gallery load failed, continuing with empty cache", "error", err)
	}

	return &app{
		svc: svc,
		close: func() {
			// drena as estatísticas antes de fechar o pool
			worker.Stop()
			pool.Close()
		},
	}, nil
}
