package domain

import "github.com/google/uuid"

// Match is a ranked gallery hit for a query signature
type Match struct {
	IdentityID uuid.UUID        `json:"face_id"`
	Name       string           `json:"name"`
	Similarity float64          `json:"similarity"`
	Metadata   IdentityMetadata `json:"metadata"`
	Index      int              `json:"index"`
}

// MatchContext is the confidence and advice derived from a set of matches.
type MatchContext struct {
	Summary         string   `json:"context"`
	Recommendations []string `json:"recommendations"`
	Confidence      float64  `json:"confidence"`
	SimilarCount    int      `json:"similar_count"`
}
