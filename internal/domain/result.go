package domain

import (
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
)

// Action selects what the decision engine does with a ranked query.
type Action string

const (
	ActionRecognize Action = "recognize"
	ActionRegister  Action = "register"
	ActionSearch    Action = "search"
)

// ParseAction validates a caller supplied action name.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case ActionRecognize, ActionRegister, ActionSearch:
		return a, nil
	default:
		return "", ErrInvalidAction.WithError(fmt.Errorf("unknown action %q", s))
	}
}

// Person is the identity chosen by a successful recognition.
type Person struct {
	ID         uuid.UUID `json:"id"`
	Name       string    `json:"name"`
	Confidence float64   `json:"confidence"`
}

// Technical describes the query face itself.
type Technical struct {
	FaceQuality         float64 `json:"face_quality"`
	DetectionConfidence float64 `json:"detection_score"`
	BoundingBox         []int   `json:"bbox"`
	SimilarCount        int     `json:"similar_faces_count"`
}

// Result is the structured outcome of a recognize, register or search request.
type Result struct {
	Timestamp         time.Time       `json:"timestamp"`
	Action            Action          `json:"action"`
	FaceDetected      bool            `json:"face_detected"`
	Context           *MatchContext   `json:"context,omitempty"`
	Recognized        *bool           `json:"recognized,omitempty"`
	Person            *Person         `json:"person,omitempty"`
	RegistrationReady bool            `json:"registration_ready,omitempty"`
	SearchResults     []Match         `json:"search_results,omitempty"`
	Message           string          `json:"message"`
	Technical         *Technical      `json:"technical,omitempty"`
	Registration      *MutationResult `json:"registration,omitempty"`
}

// MutationResult reports the outcome of enroll, delete and clear operations at the public
// boundary: failures carry a flag and a readable reason instead of an error value.
type MutationResult struct {
	Success        bool       `json:"success"`
	ID             *uuid.UUID `json:"face_id,omitempty"`
	Message        string     `json:"message,omitempty"`
	Error          string     `json:"error,omitempty"`
	Code           string     `json:"code,omitempty"`
	SimilarPerson  string     `json:"similar_person,omitempty"`
	Deleted        int64      `json:"deleted,omitempty"`
	CacheRefreshed bool       `json:"cache_refreshed"`
}

// NewMutationResult converts a mutation error into its failure report.
func NewMutationResult(err error) *MutationResult {
	res := &MutationResult{Success: false, Error: err.Error()}

	var dup *DuplicateEnrollmentError
	if errors.As(err, &dup) {
		res.SimilarPerson = dup.ExistingName
		res.Code = ErrFaceBiometricExists.Code
		res.Error = ErrFaceBiometricExists.Message
		return res
	}

	var appErr *AppError
	if errors.As(err, &appErr) {
		res.Code = appErr.Code
		res.Error = appErr.Message
	}

	return res
}

// Status summarizes the gallery for health and dashboard use.
type Status struct {
	Status            string    `json:"status"`
	TotalFaces        int       `json:"total_faces"`
	TotalRecognitions int64     `json:"total_recognitions"`
	ExtractorLoaded   bool      `json:"extractor_available"`
	CacheStale        bool      `json:"cache_stale"`
	CacheBuiltAt      time.Time `json:"cache_built_at"`
	LastUpdated       time.Time `json:"last_updated"`
}
