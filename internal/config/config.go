package config

import (
	"errors"
	"fmt"
	"time"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// Server
	Port        int    `envconfig:"PORT" default:"3000"`
	Environment string `envconfig:"ENV" default:"development"`

	// Database
	DatabaseURL  string        `envconfig:"DATABASE_URL" required:"true"`
	StoreTimeout time.Duration `envconfig:"STORE_TIMEOUT" default:"5s"`

	// Provider
	ProviderType     string `envconfig:"PROVIDER_TYPE" default:"deepface"`
	DeepFaceURL      string `envconfig:"DEEPFACE_URL" default:"http://localhost:5005"`
	DeepFaceModel    string `envconfig:"DEEPFACE_MODEL" default:"Facenet512"`
	DeepFaceDetector string `envconfig:"DEEPFACE_DETECTOR" default:"retinaface"`

	// Matching
	SimilarityThreshold  float64 `envconfig:"SIMILARITY_THRESHOLD" default:"0.6"`
	RecognitionThreshold float64 `envconfig:"RECOGNITION_THRESHOLD" default:"0.4"`
	DuplicateThreshold   float64 `envconfig:"DUPLICATE_THRESHOLD" default:"0.9"`
	TopK                 int     `envconfig:"TOP_K" default:"5"`

	// Stats
	StatsBufferSize int           `envconfig:"STATS_BUFFER_SIZE" default:"1000"`
	StatsWorkers    int           `envconfig:"STATS_WORKERS" default:"2"`
	StatsTimeout    time.Duration `envconfig:"STATS_TIMEOUT" default:"5s"`
}

func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("load config: %w", err)
	}
	return &cfg, nil
}

// Validate checks threshold ranges and the relations between them.
func (c *Config) Validate() error {
	var errs []error

	for name, v := range map[string]float64{
		"SIMILARITY_THRESHOLD":  c.SimilarityThreshold,
		"RECOGNITION_THRESHOLD": c.RecognitionThreshold,
		"DUPLICATE_THRESHOLD":   c.DuplicateThreshold,
	} {
		if v < 0 || v > 1 {
			errs = append(errs, fmt.Errorf("%s must be within [0, 1], got %v", name, v))
		}
	}

	if c.DuplicateThreshold <= c.SimilarityThreshold {
		errs = append(errs, fmt.Errorf("DUPLICATE_THRESHOLD (%v) must be greater than SIMILARITY_THRESHOLD (%v)",
			c.DuplicateThreshold, c.SimilarityThreshold))
	}
	if c.TopK < 1 {
		errs = append(errs, fmt.Errorf("TOP_K must be positive, got %d", c.TopK))
	}
	if c.StatsWorkers < 1 {
		errs = append(errs, fmt.Errorf("STATS_WORKERS must be positive, got %d", c.StatsWorkers))
	}
	if c.StatsBufferSize < 1 {
		errs = append(errs, fmt.Errorf("STATS_BUFFER_SIZE must be positive, got %d", c.StatsBufferSize))
	}
	if c.StoreTimeout <= 0 {
		errs = append(errs, errors.New("STORE_TIMEOUT must be positive"))
	}

	return errors.Join(errs...)
}

func (c *Config) IsDevelopment() bool {
	return c.Environment == "development"
}

func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}
