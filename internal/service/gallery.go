package service

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/audit"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/gallery"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/provider"
	"github.com/saturnino-fabrica-de-software/facegallery/internal/repository"
)

// StatsRecorder receives confirmed recognitions; Enqueue must not block
type StatsRecorder interface {
	Enqueue(identityID uuid.UUID, confidence float64)
}

const defaultStoreTimeout = 5 * time.Second

// GalleryService runs the match pipeline and owns every gallery mutation.
//
// Matching reads the cache snapshot without locking. Enroll, Delete, ClearAll and Refresh
// hold mu for their whole check, write and rebuild sequence.
type GalleryService struct {
	store     repository.GalleryStore
	cache     *gallery.Cache
	extractor provider.SignatureExtractor
	stats     StatsRecorder
	audit     audit.Logger
	logger    *slog.Logger

	thresholds   Thresholds
	storeTimeout time.Duration

	mu sync.Mutex
}

func NewGalleryService(
	store repository.GalleryStore,
	cache *gallery.Cache,
	extractor provider.SignatureExtractor,
	stats StatsRecorder,
	logger *slog.Logger,
) *GalleryService {
	return &GalleryService{
		store:        store,
		cache:        cache,
		extractor:    extractor,
		stats:        stats,
		audit:        &audit.NoOpLogger{},
		logger:       logger.With("component", "gallery_service"),
		thresholds:   DefaultThresholds(),
		storeTimeout: defaultStoreTimeout,
	}
}

func (s *GalleryService) WithThresholds(t Thresholds) *GalleryService {
	s.thresholds = t
	return s
}

func (s *GalleryService) WithStoreTimeout(d time.Duration) *GalleryService {
	if d > 0 {
		s.storeTimeout = d
	}
	return s
}

func (s *GalleryService) WithAudit(l audit.Logger) *GalleryService {
	s.audit = l
	return s
}

func (s *GalleryService) storeCtx(ctx context.Context) (context.Context, context.CancelFunc) {
	return context.WithTimeout(ctx, s.storeTimeout)
}

func storeUnavailable(op string, err error) error {
	return domain.ErrStoreUnavailable.WithError(fmt.Errorf("%s: %w", op, err))
}

// extract returns nil, nil when the image holds no usable face
func (s *GalleryService) extract(ctx context.Context, image []byte) (*domain.Signature, error) {
	if len(image) == 0 {
		return nil, domain.ErrInvalidImage
	}

	sig, err := provider.Extract(ctx, s.extractor, image)
	if err != nil {
		var appErr *domain.AppError
		if errors.As(err, &appErr) {
			return nil, err
		}
		return nil, domain.ErrExtractorUnavailable.WithError(err)
	}
	return sig, nil
}

// Extract returns the signature of the best face without touching the gallery
func (s *GalleryService) Extract(ctx context.Context, image []byte) (*domain.Signature, error) {
	sig, err := s.extract(ctx, image)
	if err != nil {
		return nil, err
	}
	if sig == nil {
		return nil, domain.ErrNoFaceDetected
	}
	return sig, nil
}

// Process is the single entry point for recognize, register and search. With the register
// action and a non-empty name the extracted signature is enrolled and the outcome is
// attached to the result.
func (s *GalleryService) Process(ctx context.Context, image []byte, action domain.Action, req *domain.EnrollRequest) (*domain.Result, error) {
	sig, err := s.extract(ctx, image)
	if err != nil {
		return nil, err
	}

	var (
		matches []domain.Match
		mctx    domain.MatchContext
	)
	if sig != nil {
		matches = gallery.Rank(s.cache.Snapshot(), sig.Embedding, s.thresholds.TopK, s.thresholds.Similarity)
		mctx = gallery.Augment(matches)
	}

	res, recognized := Decide(sig, matches, mctx, action, s.thresholds.Recognition)

	if recognized != nil {
		s.stats.Enqueue(recognized.IdentityID, recognized.Similarity)
		s.logAudit(ctx, audit.Event{
			EventType:  audit.EventFaceRecognized,
			IdentityID: recognized.IdentityID.String(),
			Name:       recognized.Name,
			Success:    true,
			Metadata:   map[string]string{"confidence": strconv.FormatFloat(recognized.Similarity, 'f', 3, 64)},
		})
	}
	if action == domain.ActionSearch && sig != nil {
		s.logAudit(ctx, audit.Event{
			EventType: audit.EventFaceSearched,
			Success:   true,
			Metadata:  map[string]string{"matches": strconv.Itoa(len(matches))},
		})
	}

	if action == domain.ActionRegister && sig != nil && req != nil && strings.TrimSpace(req.Name) != "" {
		reg, err := s.Enroll(ctx, sig, *req)
		if err != nil {
			reg = domain.NewMutationResult(err)
		}
		res.Registration = reg
	}

	return res, nil
}

func (s *GalleryService) Recognize(ctx context.Context, image []byte) (*domain.Result, error) {
	return s.Process(ctx, image, domain.ActionRecognize, nil)
}

func (s *GalleryService) Search(ctx context.Context, image []byte) (*domain.Result, error) {
	return s.Process(ctx, image, domain.ActionSearch, nil)
}

// Register extracts the face in image and enrolls it under req.Name
func (s *GalleryService) Register(ctx context.Context, image []byte, req domain.EnrollRequest) (*domain.Result, error) {
	if strings.TrimSpace(req.Name) == "" {
		return nil, domain.ErrInvalidName
	}
	return s.Process(ctx, image, domain.ActionRegister, &req)
}

// Enroll writes a new identity unless the face is already in the gallery.
// The duplicate check, the write and the cache rebuild run as one unit under mu.
func (s *GalleryService) Enroll(ctx context.Context, sig *domain.Signature, req domain.EnrollRequest) (*domain.MutationResult, error) {
	name := strings.TrimSpace(req.Name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}
	if sig == nil || len(sig.Embedding) == 0 {
		return nil, domain.ErrNoFaceDetected
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	// O check de duplicidade não pode rodar contra um snapshot desatualizado
	if s.cache.Stale() {
		if err := s.cache.Rebuild(ctx); err != nil {
			s.auditEnroll(ctx, name, nil, err)
			return nil, err
		}
	}

	candidates := gallery.Rank(s.cache.Snapshot(), sig.Embedding, 1, s.thresholds.Similarity)
	if len(candidates) > 0 && candidates[0].Similarity > s.thresholds.Duplicate {
		dup := &domain.DuplicateEnrollmentError{
			ExistingID:   candidates[0].IdentityID,
			ExistingName: candidates[0].Name,
			Similarity:   candidates[0].Similarity,
		}
		s.logger.Info("enrollment refused as duplicate",
			"name", name,
			"existing", dup.ExistingName,
			"similarity", dup.Similarity,
		)
		s.auditEnroll(ctx, name, nil, dup)
		return nil, dup
	}

	identity := &domain.Identity{
		Name:                name,
		Embedding:           sig.Embedding,
		EnrollmentQuality:   sig.QualityScore,
		DetectionConfidence: sig.DetectionConfidence,
		BoundingBox:         sig.BoundingBox,
		QualityScores:       []float64{sig.QualityScore},
		Tags:                req.Tags,
		Locations:           req.Locations,
		Notes:               req.Notes,
	}

	storeCtx, cancel := s.storeCtx(ctx)
	err := s.store.Create(storeCtx, identity)
	cancel()
	if err != nil {
		err = storeUnavailable("create identity", err)
		s.auditEnroll(ctx, name, nil, err)
		return nil, err
	}

	refreshed := s.rebuildAfterWrite(ctx, "enroll")
	s.auditEnroll(ctx, name, &identity.ID, nil)

	id := identity.ID
	return &domain.MutationResult{
		Success:        true,
		ID:             &id,
		Message:        fmt.Sprintf("Successfully registered %s", name),
		CacheRefreshed: refreshed,
	}, nil
}

// Delete removes every identity with the given name. Recognition logs are kept.
func (s *GalleryService) Delete(ctx context.Context, name string) (*domain.MutationResult, error) {
	name = strings.TrimSpace(name)
	if name == "" {
		return nil, domain.ErrInvalidName
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	storeCtx, cancel := s.storeCtx(ctx)
	deleted, err := s.store.DeleteByName(storeCtx, name)
	cancel()
	if err != nil {
		return nil, storeUnavailable("delete identities", err)
	}

	if deleted == 0 {
		return nil, domain.ErrPersonNotFound.WithError(fmt.Errorf("no person found with name %s", name))
	}

	refreshed := s.rebuildAfterWrite(ctx, "delete")

	s.logAudit(ctx, audit.Event{
		EventType: audit.EventPersonDeleted,
		Name:      name,
		Success:   true,
		Metadata:  map[string]string{"deleted": strconv.FormatInt(deleted, 10)},
	})

	return &domain.MutationResult{
		Success:        true,
		Message:        fmt.Sprintf("Successfully deleted %s", name),
		Deleted:        deleted,
		CacheRefreshed: refreshed,
	}, nil
}

// ClearAll removes every identity and every recognition log
func (s *GalleryService) ClearAll(ctx context.Context) (*domain.MutationResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	storeCtx, cancel := s.storeCtx(ctx)
	err := s.store.DeleteAll(storeCtx)
	cancel()
	if err != nil {
		return nil, storeUnavailable("clear gallery", err)
	}

	refreshed := s.rebuildAfterWrite(ctx, "clear")

	s.logAudit(ctx, audit.Event{EventType: audit.EventGalleryCleared, Success: true})

	return &domain.MutationResult{
		Success:        true,
		Message:        "Gallery cleared",
		CacheRefreshed: refreshed,
	}, nil
}

// Refresh rebuilds the cache from the store
func (s *GalleryService) Refresh(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.cache.Rebuild(ctx)
}

// rebuildAfterWrite refreshes the cache once a write committed. The write is not undone
// on failure; the cache stays stale and the next Enroll rebuilds before checking.
func (s *GalleryService) rebuildAfterWrite(ctx context.Context, op string) bool {
	if err := s.cache.Rebuild(ctx); err != nil {
		s.logger.Warn("cache rebuild after write failed",
			"operation", op,
			"error", err,
		)
		return false
	}
	return true
}

// ListPeople groups identities by name, in first enrollment order
func (s *GalleryService) ListPeople(ctx context.Context) ([]domain.PersonSummary, error) {
	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	identities, err := s.store.FindAll(storeCtx)
	if err != nil {
		return nil, storeUnavailable("list people", err)
	}

	people := make([]domain.PersonSummary, 0)
	index := make(map[string]int)
	for _, identity := range identities {
		i, ok := index[identity.Name]
		if !ok {
			i = len(people)
			index[identity.Name] = i
			people = append(people, domain.PersonSummary{Name: identity.Name})
		}

		p := &people[i]
		p.ImageCount++
		p.RecognitionCount += identity.RecognitionCount
		if identity.LastSeen.After(p.LastSeen) {
			p.LastSeen = identity.LastSeen
		}
	}

	return people, nil
}

// Status reports gallery size, total recognitions and extractor availability.
// A store failure degrades the report instead of failing it.
func (s *GalleryService) Status(ctx context.Context) *domain.Status {
	status := &domain.Status{
		Status:          "healthy",
		TotalFaces:      s.cache.Len(),
		ExtractorLoaded: s.extractor.Available(ctx),
		CacheStale:      s.cache.Stale(),
		CacheBuiltAt:    s.cache.Snapshot().BuiltAt,
		LastUpdated:     time.Now().UTC(),
	}

	storeCtx, cancel := s.storeCtx(ctx)
	defer cancel()

	total, err := s.store.CountLogs(storeCtx)
	if err != nil {
		s.logger.Warn("count recognition logs failed", "error", err)
		status.Status = "degraded"
	}
	status.TotalRecognitions = total

	if status.CacheStale || !status.ExtractorLoaded {
		status.Status = "degraded"
	}

	return status
}

func (s *GalleryService) auditEnroll(ctx context.Context, name string, id *uuid.UUID, err error) {
	ev := audit.Event{
		EventType: audit.EventFaceEnrolled,
		Name:      name,
		Success:   err == nil,
	}
	if id != nil {
		ev.IdentityID = id.String()
	}
	if err != nil {
		ev.Error = err.Error()
	}
	s.logAudit(ctx, ev)
}

func (s *GalleryService) logAudit(ctx context.Context, ev audit.Event) {
	if err := s.audit.Log(ctx, ev); err != nil {
		s.logger.Warn("audit log failed", "event_type", ev.EventType, "error", err)
	}
}
