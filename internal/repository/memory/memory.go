// Package memory provides an in-process GalleryStore for tests and the CLI dry runs.
package memory

import (
	"context"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/repository"
)

// Store is a mutex guarded GalleryStore keeping identities in insertion order
type Store struct {
	mu         sync.RWMutex
	identities []domain.Identity
	logs       []domain.RecognitionLog

	// Error injection
	CreateError    error
	FindAllError   error
	IncrementError error
	AppendLogError error
	CountLogsError error
	DeleteError    error
	DeleteAllError error
	PingError      error

	// Delay is applied to every call; it honours ctx so store timeouts can be exercised
	Delay time.Duration
}

// New creates an empty store
func New() *Store {
	return &Store{}
}

func (s *Store) wait(ctx context.Context) error {
	if s.Delay <= 0 {
		return ctx.Err()
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-time.After(s.Delay):
		return nil
	}
}

func (s *Store) Create(ctx context.Context, identity *domain.Identity) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.CreateError != nil {
		return s.CreateError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	now := time.Now().UTC()
	identity.RecognitionCount = 0
	identity.CreatedAt = now
	identity.LastSeen = now

	s.identities = append(s.identities, cloneIdentity(*identity))
	return nil
}

func (s *Store) FindAll(ctx context.Context) ([]domain.Identity, error) {
	if err := s.wait(ctx); err != nil {
		return nil, err
	}
	if s.FindAllError != nil {
		return nil, s.FindAllError
	}

	s.mu.RLock()
	defer s.mu.RUnlock()

	out := make([]domain.Identity, len(s.identities))
	for i, identity := range s.identities {
		out[i] = cloneIdentity(identity)
	}
	return out, nil
}

func (s *Store) IncrementRecognition(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.IncrementError != nil {
		return s.IncrementError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for i := range s.identities {
		if s.identities[i].ID == id {
			s.identities[i].RecognitionCount++
			s.identities[i].LastSeen = seenAt
			return nil
		}
	}
	return domain.ErrNotFound
}

func (s *Store) AppendLog(ctx context.Context, entry *domain.RecognitionLog) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.AppendLogError != nil {
		return s.AppendLogError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}
	s.logs = append(s.logs, *entry)
	return nil
}

func (s *Store) CountLogs(ctx context.Context) (int64, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	if s.CountLogsError != nil {
		return 0, s.CountLogsError
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return int64(len(s.logs)), nil
}

func (s *Store) DeleteByName(ctx context.Context, name string) (int64, error) {
	if err := s.wait(ctx); err != nil {
		return 0, err
	}
	if s.DeleteError != nil {
		return 0, s.DeleteError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	before := len(s.identities)
	s.identities = slices.DeleteFunc(s.identities, func(i domain.Identity) bool {
		return i.Name == name
	})
	return int64(before - len(s.identities)), nil
}

func (s *Store) DeleteAll(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	if s.DeleteAllError != nil {
		return s.DeleteAllError
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	s.identities = nil
	s.logs = nil
	return nil
}

func (s *Store) Ping(ctx context.Context) error {
	if err := s.wait(ctx); err != nil {
		return err
	}
	return s.PingError
}

// Logs returns a copy of the recognition log
func (s *Store) Logs() []domain.RecognitionLog {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return slices.Clone(s.logs)
}

func cloneIdentity(i domain.Identity) domain.Identity {
	i.Embedding = slices.Clone(i.Embedding)
	i.BoundingBox = slices.Clone(i.BoundingBox)
	i.QualityScores = slices.Clone(i.QualityScores)
	i.Tags = slices.Clone(i.Tags)
	i.Locations = slices.Clone(i.Locations)
	return i
}

var _ repository.GalleryStore = (*Store)(nil)
