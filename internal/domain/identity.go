package domain

import (
	"time"

	"github.com/google/uuid"
)

// Identity representa uma pessoa cadastrada na galeria
type Identity struct {
	ID                  uuid.UUID `json:"id"`
	Name                string    `json:"name"`
	Embedding           []float64 `json:"-"`
	EnrollmentQuality   float64   `json:"enrollment_quality"`
	DetectionConfidence float64   `json:"detection_confidence"`
	BoundingBox         []int     `json:"bbox,omitempty"`
	RecognitionCount    int64     `json:"recognition_count"`
	QualityScores       []float64 `json:"quality_scores,omitempty"`
	Tags                []string  `json:"tags,omitempty"`
	Locations           []string  `json:"locations,omitempty"`
	Notes               string    `json:"notes,omitempty"`
	CreatedAt           time.Time `json:"created_at"`
	LastSeen            time.Time `json:"last_seen"`
}

// IdentityMetadata is the read-only projection of an identity kept next to its vector in
// the gallery cache.
type IdentityMetadata struct {
	RecognitionCount int64     `json:"recognition_count"`
	Tags             []string  `json:"tags,omitempty"`
	Locations        []string  `json:"locations,omitempty"`
	Notes            string    `json:"notes,omitempty"`
	QualityScores    []float64 `json:"quality_scores,omitempty"`
}

// Metadata projects the auxiliary fields of the identity.
func (i *Identity) Metadata() IdentityMetadata {
	return IdentityMetadata{
		RecognitionCount: i.RecognitionCount,
		Tags:             i.Tags,
		Locations:        i.Locations,
		Notes:            i.Notes,
		QualityScores:    i.QualityScores,
	}
}

// LogActionRecognized is the only action written to the recognition log.
const LogActionRecognized = "recognized"

// RecognitionLog is an immutable audit entry appended on every confirmed recognition.
type RecognitionLog struct {
	ID         uuid.UUID `json:"id"`
	IdentityID uuid.UUID `json:"identity_id"`
	Action     string    `json:"action"`
	Confidence float64   `json:"confidence"`
	CreatedAt  time.Time `json:"timestamp"`
}

// EnrollRequest carries the caller supplied data for a new identity.
type EnrollRequest struct {
	Name      string   `json:"name"`
	Tags      []string `json:"tags,omitempty"`
	Locations []string `json:"locations,omitempty"`
	Notes     string   `json:"notes,omitempty"`
}

// PersonSummary aggregates every identity record sharing a name.
type PersonSummary struct {
	Name             string    `json:"name"`
	ImageCount       int       `json:"image_count"`
	RecognitionCount int64     `json:"recognition_count"`
	LastSeen         time.Time `json:"last_seen"`
}
