package provider

import (
	"context"
	"fmt"
	"math"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

// SignatureExtractor define a interface para provedores de assinatura facial
type SignatureExtractor interface {
	// DetectFaces detecta faces na imagem e retorna o embedding bruto de cada uma.
	// Uma imagem sem faces retorna slice vazio e erro nil.
	DetectFaces(ctx context.Context, image []byte) ([]DetectedFace, error)

	// Available reports whether the detection backend can currently serve requests.
	Available(ctx context.Context) bool
}

// DetectedFace represents a detected face in the image
type DetectedFace struct {
	BoundingBox BoundingBox `json:"bounding_box"`
	Confidence  float64     `json:"confidence"`
	Embedding   []float64   `json:"embedding"`
}

// BoundingBox represents the face area in the image
type BoundingBox struct {
	X      float64 `json:"x"`
	Y      float64 `json:"y"`
	Width  float64 `json:"width"`
	Height float64 `json:"height"`
}

// Corners returns the box as [x1, y1, x2, y2] in whole pixels.
func (b BoundingBox) Corners() []int {
	return []int{
		int(b.X),
		int(b.Y),
		int(b.X + b.Width),
		int(b.Y + b.Height),
	}
}

// Extract runs detection and reduces the result to the single best face signature.
// Only the face with the highest detection confidence is kept; its embedding is
// normalized to unit length here and nowhere else. A nil signature with a nil error
// means no usable face was found.
func Extract(ctx context.Context, ex SignatureExtractor, image []byte) (*domain.Signature, error) {
	faces, err := ex.DetectFaces(ctx, image)
	if err != nil {
		return nil, fmt.Errorf("extract signature: %w", err)
	}

	best := -1
	for i, f := range faces {
		if len(f.Embedding) == 0 {
			continue
		}
		if best < 0 || f.Confidence > faces[best].Confidence {
			best = i
		}
	}
	if best < 0 {
		return nil, nil
	}

	face := faces[best]
	embedding, ok := NormalizeEmbedding(face.Embedding)
	if !ok {
		return nil, nil
	}

	return &domain.Signature{
		Embedding:           embedding,
		DetectionConfidence: face.Confidence,
		QualityScore:        domain.QualityFromDetection(face.Confidence),
		BoundingBox:         face.BoundingBox.Corners(),
	}, nil
}

// NormalizeEmbedding returns a unit length copy of the embedding.
// ok is false for empty or all-zero vectors, which have no direction.
func NormalizeEmbedding(embedding []float64) ([]float64, bool) {
	if len(embedding) == 0 {
		return nil, false
	}

	var norm float64
	for _, v := range embedding {
		norm += v * v
	}

	if norm == 0 {
		return nil, false
	}

	norm = math.Sqrt(norm)
	normalized := make([]float64, len(embedding))
	for i, v := range embedding {
		normalized[i] = v / norm
	}

	return normalized, true
}
