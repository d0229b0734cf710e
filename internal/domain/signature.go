package domain

// Signature is the best face found in an image, as produced by a signature extractor.
// Embedding always has unit L2 norm.
type Signature struct {
	Embedding           []float64 `json:"embedding"`
	DetectionConfidence float64   `json:"det_score"`
	QualityScore        float64   `json:"quality_score"`
	BoundingBox         []int     `json:"bbox"`
}

// QualityFromDetection derives the quality score stored with an enrollment.
func QualityFromDetection(detectionConfidence float64) float64 {
	q := detectionConfidence + 0.3
	if q > 1.0 {
		return 1.0
	}
	return q
}
