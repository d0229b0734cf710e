package main

import (
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"os"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/config"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/database"
)

func main() {
	if err := run(); err != nil {
		fmt.Fprintf(os.Stderr, "error: %v\n", err)
		os.Exit(1)
	}
}

func run() error {
	action := flag.String("action", "up", "Migration action: up, down, version, status, force")
	version := flag.Int("version", 0, "Target version (for force action, -1 clears it)")
	dbName := flag.String("db", "gallery", "Database name recorded by the migrate driver")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("failed to load config: %w", err)
	}

	logger := config.NewLogger(cfg.Environment, os.Stderr)

	// golang-migrate needs a database/sql handle; OpenSQL pings before returning
	db, err := database.OpenSQL(database.DefaultPoolConfig(cfg.DatabaseURL))
	if err != nil {
		return err
	}
	defer func() { _ = db.Close() }()

	migrator, err := database.NewMigrator(db, *dbName, database.WithLogger(logger))
	if err != nil {
		return fmt.Errorf("failed to create migrator: %w", err)
	}
	defer func() { _ = migrator.Close() }()

	switch *action {
	case "up":
		before, err := migrator.Status()
		if err != nil {
			return err
		}
		if err := migrator.Up(); err != nil {
			return fmt.Errorf("migration up failed: %w", err)
		}
		logger.Info("gallery schema up to date",
			slog.Uint64("from", uint64(before.Version)),
			slog.Uint64("to", uint64(before.Latest)),
		)

	case "down":
		if err := migrator.Down(); err != nil {
			return fmt.Errorf("migration down failed: %w", err)
		}
		logger.Warn("rolled back last migration")

	case "version", "status":
		status, err := migrator.Status()
		if err != nil {
			return fmt.Errorf("failed to get version: %w", err)
		}
		if status.Dirty {
			logger.Warn("schema is dirty, fix it by hand and force the version",
				slog.Uint64("version", uint64(status.Version)))
		}
		enc := json.NewEncoder(os.Stdout)
		enc.SetIndent("", "  ")
		return enc.Encode(struct {
			database.MigrationStatus
			Pending bool `json:"pending"`
		}{status, status.Pending()})

	case "force":
		if *version == 0 {
			return fmt.Errorf("-version is required for force action")
		}
		if err := migrator.Force(*version); err != nil {
			return fmt.Errorf("force migration failed: %w", err)
		}
		logger.Warn("migration version forced", slog.Int("version", *version))

	default:
		return fmt.Errorf("invalid action: %s (use: up, down, version, status, force)", *action)
	}

	return nil
}
