package mock

import (
	"context"
	"crypto/sha256"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/provider"
)

const embeddingDimension = 512

// minImageSize abaixo disso a imagem é considerada corrompida
const minImageSize = 1000

// Provider implementa provider.SignatureExtractor para testes e desenvolvimento
type Provider struct{}

// New cria uma nova instância do MockProvider
func New() *Provider {
	return &Provider{}
}

// DetectFaces simula detecção de uma face por imagem.
// Uma imagem totalmente zerada (quadro em branco) não tem face.
func (p *Provider) DetectFaces(ctx context.Context, image []byte) ([]provider.DetectedFace, error) {
	if len(image) < minImageSize {
		return nil, domain.ErrInvalidImage
	}

	if isBlank(image) {
		return []provider.DetectedFace{}, nil
	}

	return []provider.DetectedFace{
		{
			BoundingBox: provider.BoundingBox{
				X:      64,
				Y:      48,
				Width:  256,
				Height: 256,
			},
			Confidence: 0.99,
			Embedding:  generateEmbedding(image),
		},
	}, nil
}

// Available always reports true: the mock has no backend.
func (p *Provider) Available(ctx context.Context) bool {
	return true
}

func isBlank(image []byte) bool {
	for _, b := range image {
		if b != 0 {
			return false
		}
	}
	return true
}

// generateEmbedding gera embedding determinístico baseado no hash da imagem.
// O vetor não é normalizado aqui; provider.Extract faz isso.
func generateEmbedding(image []byte) []float64 {
	hash := sha256.Sum256(image)
	embedding := make([]float64, embeddingDimension)
	hashLen := len(hash)

	for i := 0; i < embeddingDimension; i++ {
		idx := i % hashLen
		//nolint:gosec // idx is always < hashLen due to modulo operation
		embedding[i] = (float64(hash[idx])/255.0)*2 - 1
	}

	return embedding
}

var _ provider.SignatureExtractor = (*Provider)(nil)
