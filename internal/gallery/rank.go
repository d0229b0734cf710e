package gallery

import (
	"cmp"
	"slices"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

const (
	DefaultSimilarityThreshold = 0.6
	DefaultTopK                = 5
)

// Rank scores every cached entry against the query and returns at most topK matches with
// similarity strictly above threshold, best first. Equal scores keep cache order.
//
// Vectors are unit length, so cosine similarity is the dot product. Entries whose
// dimension differs from the query are skipped.
func Rank(snap *Snapshot, query []float64, topK int, threshold float64) []domain.Match {
	if snap.Len() == 0 || len(query) == 0 || topK <= 0 {
		return []domain.Match{}
	}

	matches := make([]domain.Match, 0, topK)
	for i := range snap.Entries {
		entry := &snap.Entries[i]
		if len(entry.Vector) != len(query) {
			continue
		}

		similarity := Dot(query, entry.Vector)
		if similarity <= threshold {
			continue
		}

		matches = append(matches, domain.Match{
			IdentityID: entry.ID,
			Name:       entry.Name,
			Similarity: similarity,
			Metadata:   entry.Metadata,
			Index:      i,
		})
	}

	slices.SortStableFunc(matches, func(a, b domain.Match) int {
		return cmp.Compare(b.Similarity, a.Similarity)
	})

	if len(matches) > topK {
		matches = matches[:topK]
	}
	return matches
}

// Dot returns the dot product of two equal length vectors
func Dot(a, b []float64) float64 {
	var sum float64
	for i := range a {
		sum += a[i] * b[i]
	}
	return sum
}
