package gallery

import (
	"fmt"
	"strings"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

const (
	HighConfidence   = 0.8
	MediumConfidence = 0.6

	// quantas localizações recentes entram no resumo
	recentLocations = 3
)

const (
	RecommendSamePerson = "High confidence match - this is likely the same person"
	RecommendVerify     = "Medium confidence - verify identity before proceeding"
	RecommendNewPerson  = "Low confidence - this might be a new person"
	RecommendDuplicates = "Multiple similar faces found - check for duplicates"
	RecommendRegister   = "Consider adding this as a new person"

	noMatchesSummary = "No similar faces found in database"
)

// Augment derives confidence, recommendations and a readable summary from ranked matches.
// Confidence is the mean similarity of all matches, not just the best one.
func Augment(matches []domain.Match) domain.MatchContext {
	if len(matches) == 0 {
		return domain.MatchContext{
			Summary:         noMatchesSummary,
			Recommendations: []string{RecommendRegister},
			Confidence:      0,
			SimilarCount:    0,
		}
	}

	var (
		lines []string
		total float64
	)
	for _, m := range matches {
		lines = append(lines, fmt.Sprintf("Similar person: %s (similarity: %.3f)", m.Name, m.Similarity))
		if m.Metadata.RecognitionCount > 0 {
			lines = append(lines, fmt.Sprintf("  - Recognized %d times", m.Metadata.RecognitionCount))
		}
		if locs := m.Metadata.Locations; len(locs) > 0 {
			if len(locs) > recentLocations {
				locs = locs[len(locs)-recentLocations:]
			}
			lines = append(lines, "  - Last seen locations: "+strings.Join(locs, ", "))
		}
		if len(m.Metadata.Tags) > 0 {
			lines = append(lines, "  - Tags: "+strings.Join(m.Metadata.Tags, ", "))
		}
		total += m.Similarity
	}

	confidence := total / float64(len(matches))

	var recommendations []string
	switch {
	case confidence > HighConfidence:
		recommendations = append(recommendations, RecommendSamePerson)
	case confidence > MediumConfidence:
		recommendations = append(recommendations, RecommendVerify)
	default:
		recommendations = append(recommendations, RecommendNewPerson)
	}
	if len(matches) > 1 {
		recommendations = append(recommendations, RecommendDuplicates)
	}

	return domain.MatchContext{
		Summary:         strings.Join(lines, "\n"),
		Recommendations: recommendations,
		Confidence:      confidence,
		SimilarCount:    len(matches),
	}
}
