package config

import (
	"io"
	"log/slog"
)

// NewLogger builds the process logger on w. Production emits JSON at Info,
// every other environment emits text at Debug with source locations in development.
func NewLogger(env string, w io.Writer) *slog.Logger {
	opts := &slog.HandlerOptions{
		Level:     slog.LevelDebug,
		AddSource: env == "development",
	}

	if env == "production" {
		opts.Level = slog.LevelInfo
		return slog.New(slog.NewJSONHandler(w, opts))
	}

	return slog.New(slog.NewTextHandler(w, opts))
}
