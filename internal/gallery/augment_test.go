package gallery

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

func TestAugment(t *testing.T) {
	tests := []struct {
		name                string
		matches             []domain.Match
		wantConfidence      float64
		wantRecommendations []string
		wantSummary         []string
	}{
		{
			name:                "no matches",
			matches:             nil,
			wantConfidence:      0,
			wantRecommendations: []string{RecommendRegister},
			wantSummary:         []string{noMatchesSummary},
		},
		{
			name:                "single strong match",
			matches:             []domain.Match{{Name: "alice", Similarity: 0.93}},
			wantConfidence:      0.93,
			wantRecommendations: []string{RecommendSamePerson},
			wantSummary:         []string{"Similar person: alice (similarity: 0.930)"},
		},
		{
			name:                "single medium match",
			matches:             []domain.Match{{Name: "bob", Similarity: 0.7}},
			wantConfidence:      0.7,
			wantRecommendations: []string{RecommendVerify},
		},
		{
			name: "mean of all similarities",
			matches: []domain.Match{
				{Name: "alice", Similarity: 0.9},
				{Name: "bob", Similarity: 0.5},
			},
			wantConfidence:      0.7,
			wantRecommendations: []string{RecommendVerify, RecommendDuplicates},
		},
		{
			name: "weak matches suggest new person",
			matches: []domain.Match{
				{Name: "alice", Similarity: 0.62},
				{Name: "carol", Similarity: 0.5},
			},
			wantConfidence:      0.56,
			wantRecommendations: []string{RecommendNewPerson, RecommendDuplicates},
		},
		{
			name: "metadata lines",
			matches: []domain.Match{{
				Name:       "alice",
				Similarity: 0.85,
				Metadata: domain.IdentityMetadata{
					RecognitionCount: 4,
					Locations:        []string{"gate", "lobby", "cafe", "lab"},
					Tags:             []string{"staff", "vip"},
				},
			}},
			wantConfidence:      0.85,
			wantRecommendations: []string{RecommendSamePerson},
			wantSummary: []string{
				"Similar person: alice (similarity: 0.850)",
				"  - Recognized 4 times",
				"  - Last seen locations: lobby, cafe, lab",
				"  - Tags: staff, vip",
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Augment(tt.matches)

			assert.InDelta(t, tt.wantConfidence, got.Confidence, 1e-9)
			assert.Equal(t, tt.wantRecommendations, got.Recommendations)
			assert.Equal(t, len(tt.matches), got.SimilarCount)
			for _, line := range tt.wantSummary {
				assert.Contains(t, got.Summary, line)
			}
		})
	}
}

func TestAugment_DoesNotMutateInput(t *testing.T) {
	matches := []domain.Match{{
		Name:       "alice",
		Similarity: 0.9,
		Metadata:   domain.IdentityMetadata{Locations: []string{"a", "b", "c", "d"}},
	}}

	_ = Augment(matches)

	assert.Equal(t, []string{"a", "b", "c", "d"}, matches[0].Metadata.Locations)
}
