package face

import (
	"fmt"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/config"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/provider/deepface"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/provider/mock"
)

// ProviderType defines supported signature extractor types
type ProviderType string

const (
	// ProviderTypeDeepFace is the DeepFace HTTP service
	ProviderTypeDeepFace ProviderType = "deepface"
	// ProviderTypeMock is the deterministic in-process extractor (dev/test)
	ProviderTypeMock ProviderType = "mock"
)

// NewExtractor creates a SignatureExtractor based on configuration
//
// Environment variables:
//   - PROVIDER_TYPE: "deepface" or "mock" (default: "deepface")
//   - DEEPFACE_URL: DeepFace API URL (default: "http://localhost:5005")
//   - DEEPFACE_MODEL, DEEPFACE_DETECTOR: model and detector backend names
func NewExtractor(cfg *config.Config) (provider.SignatureExtractor, error) {
	switch ProviderType(cfg.ProviderType) {
	case ProviderTypeDeepFace, "":
		return createDeepFaceProvider(cfg), nil

	case ProviderTypeMock:
		return mock.New(), nil

	default:
		return nil, fmt.Errorf("unknown provider type: %s (supported: %s, %s)",
			cfg.ProviderType, ProviderTypeDeepFace, ProviderTypeMock)
	}
}

// createDeepFaceProvider creates a DeepFace provider instance
func createDeepFaceProvider(cfg *config.Config) *deepface.Provider {
	deepfaceConfig := deepface.DefaultConfig()

	if cfg.DeepFaceURL != "" {
		deepfaceConfig.BaseURL = cfg.DeepFaceURL
	}
	if cfg.DeepFaceModel != "" {
		deepfaceConfig.Model = cfg.DeepFaceModel
	}
	if cfg.DeepFaceDetector != "" {
		deepfaceConfig.Detector = cfg.DeepFaceDetector
	}

	return deepface.NewProvider(deepfaceConfig)
}
