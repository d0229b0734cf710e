// Package gallery holds the in-memory projection of enrolled identities and the pure
// matching functions that run against it.
package gallery

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

// Loader reads the full gallery from durable storage
type Loader interface {
	FindAll(ctx context.Context) ([]domain.Identity, error)
}

// Entry is one cached identity
type Entry struct {
	ID       uuid.UUID
	Name     string
	Vector   []float64
	Metadata domain.IdentityMetadata
}

// Snapshot is an immutable view of the gallery. It is never modified after publication.
type Snapshot struct {
	Entries []Entry
	BuiltAt time.Time
}

// Len returns the number of cached identities
func (s *Snapshot) Len() int {
	if s == nil {
		return 0
	}
	return len(s.Entries)
}

// Cache publishes gallery snapshots with a single atomic swap, so readers see either the
// previous snapshot or the new one and never a mix.
type Cache struct {
	snapshot atomic.Pointer[Snapshot]
	stale    atomic.Bool
	rebuild  sync.Mutex // Serializes rebuilds only

	loader  Loader
	timeout time.Duration
	logger  *slog.Logger
}

// NewCache creates an empty cache. It is stale until the first successful Rebuild.
func NewCache(loader Loader, timeout time.Duration, logger *slog.Logger) *Cache {
	c := &Cache{
		loader:  loader,
		timeout: timeout,
		logger:  logger.With("component", "gallery_cache"),
	}
	c.snapshot.Store(&Snapshot{})
	c.stale.Store(true)
	return c
}

// Snapshot returns the current snapshot; it is safe to read without locking
func (c *Cache) Snapshot() *Snapshot {
	return c.snapshot.Load()
}

// Len returns the size of the current snapshot
func (c *Cache) Len() int {
	return c.Snapshot().Len()
}

// Stale reports whether the last rebuild failed (or none succeeded yet)
func (c *Cache) Stale() bool {
	return c.stale.Load()
}

// MarkStale flags the cache as out of date without touching the snapshot
func (c *Cache) MarkStale() {
	c.stale.Store(true)
}

// Rebuild reloads every identity from the store and swaps the snapshot in.
// On failure the previous snapshot keeps serving and ErrStoreUnavailable is returned.
func (c *Cache) Rebuild(ctx context.Context) error {
	c.rebuild.Lock()
	defer c.rebuild.Unlock()

	loadCtx := ctx
	if c.timeout > 0 {
		var cancel context.CancelFunc
		loadCtx, cancel = context.WithTimeout(ctx, c.timeout)
		defer cancel()
	}

	start := time.Now()
	identities, err := c.loader.FindAll(loadCtx)
	if err != nil {
		c.stale.Store(true)
		c.logger.Warn("gallery rebuild failed, serving stale snapshot",
			"error", err,
			"cached", c.Len(),
		)
		return domain.ErrStoreUnavailable.WithError(fmt.Errorf("rebuild gallery: %w", err))
	}

	snap := &Snapshot{
		Entries: make([]Entry, 0, len(identities)),
		BuiltAt: time.Now().UTC(),
	}
	for i := range identities {
		identity := &identities[i]
		snap.Entries = append(snap.Entries, Entry{
			ID:       identity.ID,
			Name:     identity.Name,
			Vector:   identity.Embedding,
			Metadata: identity.Metadata(),
		})
	}

	c.snapshot.Store(snap)
	c.stale.Store(false)

	c.logger.Debug("gallery rebuilt",
		"identities", snap.Len(),
		"duration_ms", time.Since(start).Milliseconds(),
	)

	return nil
}
