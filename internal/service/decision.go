package service

import (
	"fmt"
	"time"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/gallery"
)

// Thresholds tune ranking, recognition and duplicate detection
type Thresholds struct {
	Similarity  float64 // per match cut, strict
	Recognition float64 // applied to the averaged confidence, strict
	Duplicate   float64 // enrollment refusal, strict
	TopK        int
}

// DefaultThresholds returns the stock matching configuration
func DefaultThresholds() Thresholds {
	return Thresholds{
		Similarity:  gallery.DefaultSimilarityThreshold,
		Recognition: 0.4,
		Duplicate:   0.9,
		TopK:        gallery.DefaultTopK,
	}
}

const (
	msgNoFace            = "No face detected in the image"
	msgNotRecognized     = "Person not recognized in database"
	msgRegistrationReady = "Face extracted and ready for registration"
)

// Decide turns a ranked query into the result for the requested action. It performs no
// I/O: when a recognition is confirmed the chosen match is returned so the caller can
// record it.
//
// A nil signature means no face was found; that outcome is the same for every action.
func Decide(sig *domain.Signature, matches []domain.Match, mctx domain.MatchContext, action domain.Action, recognitionThreshold float64) (*domain.Result, *domain.Match) {
	res := &domain.Result{
		Timestamp:    time.Now().UTC(),
		Action:       action,
		FaceDetected: sig != nil,
	}

	if sig == nil {
		res.Message = msgNoFace
		return res, nil
	}

	res.Context = &mctx
	res.Technical = &domain.Technical{
		FaceQuality:         sig.QualityScore,
		DetectionConfidence: sig.DetectionConfidence,
		BoundingBox:         sig.BoundingBox,
		SimilarCount:        len(matches),
	}

	var recognized *domain.Match

	switch action {
	case domain.ActionRecognize:
		ok := len(matches) > 0 && mctx.Confidence > recognitionThreshold
		res.Recognized = &ok
		if !ok {
			res.Message = msgNotRecognized
			break
		}

		best := matches[0]
		recognized = &best
		res.Person = &domain.Person{
			ID:         best.IdentityID,
			Name:       best.Name,
			Confidence: best.Similarity,
		}
		res.Message = fmt.Sprintf("Recognized as %s with %.1f%% confidence", best.Name, best.Similarity*100)

	case domain.ActionRegister:
		res.RegistrationReady = true
		res.Message = msgRegistrationReady

	case domain.ActionSearch:
		res.SearchResults = matches
		res.Message = fmt.Sprintf("Found %d similar faces", len(matches))
	}

	return res, recognized
}
