// Package stats applies recognition side effects off the request path.
package stats

import (
	"context"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

// Recorder is the slice of the gallery store the worker writes to
type Recorder interface {
	IncrementRecognition(ctx context.Context, id uuid.UUID, seenAt time.Time) error
	AppendLog(ctx context.Context, entry *domain.RecognitionLog) error
}

// Event is one confirmed recognition
type Event struct {
	IdentityID uuid.UUID
	Confidence float64
	At         time.Time
}

// Worker handles async recognition stats updates.
// Every event counts: there is no debouncing or deduplication.
type Worker struct {
	store  Recorder
	logger *slog.Logger

	// Channel with buffer to prevent blocking
	events chan Event

	// Config
	workers int
	timeout time.Duration

	// Counters
	processed atomic.Int64
	dropped   atomic.Int64
	failed    atomic.Int64

	// Lifecycle
	done     chan struct{}
	wg       sync.WaitGroup
	started  atomic.Bool
	stopped  atomic.Bool
	stopOnce sync.Once
}

// Config holds configuration for the worker
type Config struct {
	BufferSize int           // Channel buffer size (default: 1000)
	Workers    int           // Concurrent consumers (default: 2)
	Timeout    time.Duration // Per event store timeout (default: 5 seconds)
}

// DefaultConfig returns default configuration
func DefaultConfig() Config {
	return Config{
		BufferSize: 1000,
		Workers:    2,
		Timeout:    5 * time.Second,
	}
}

// NewWorker creates a new worker
func NewWorker(store Recorder, logger *slog.Logger, config Config) *Worker {
	if config.BufferSize <= 0 {
		config.BufferSize = 1000
	}
	if config.Workers <= 0 {
		config.Workers = 2
	}
	if config.Timeout <= 0 {
		config.Timeout = 5 * time.Second
	}

	return &Worker{
		store:   store,
		logger:  logger.With("component", "stats_worker"),
		events:  make(chan Event, config.BufferSize),
		workers: config.Workers,
		timeout: config.Timeout,
		done:    make(chan struct{}),
	}
}

// Start begins the background consumers
func (w *Worker) Start() {
	if !w.started.CompareAndSwap(false, true) {
		return
	}

	for i := 0; i < w.workers; i++ {
		w.wg.Add(1)
		go w.run()
	}

	w.logger.Info("stats worker started",
		"buffer_size", cap(w.events),
		"workers", w.workers,
		"timeout", w.timeout,
	)
}

// Stop drains queued events and waits for the consumers to exit
func (w *Worker) Stop() {
	w.stopOnce.Do(func() {
		w.stopped.Store(true)
		close(w.done)
		w.wg.Wait()

		// Start nunca foi chamado: aplica o que ficou no buffer
		if !w.started.Load() {
			w.drain()
		}

		w.logger.Info("stats worker stopped",
			"processed", w.processed.Load(),
			"dropped", w.dropped.Load(),
			"failed", w.failed.Load(),
		)
	})
}

// Enqueue schedules a stats update for a recognized identity.
// Non-blocking: if the buffer is full or the worker stopped, the update is dropped.
func (w *Worker) Enqueue(identityID uuid.UUID, confidence float64) {
	if w.stopped.Load() {
		w.dropped.Add(1)
		w.logger.Warn("stats update dropped - worker stopped", "identity_id", identityID)
		return
	}

	ev := Event{IdentityID: identityID, Confidence: confidence, At: time.Now().UTC()}

	select {
	case w.events <- ev:
	default:
		w.dropped.Add(1)
		w.logger.Warn("stats update dropped - buffer full", "identity_id", identityID)
	}
}

// Processed returns how many events were applied successfully
func (w *Worker) Processed() int64 { return w.processed.Load() }

// Dropped returns how many events never reached the store
func (w *Worker) Dropped() int64 { return w.dropped.Load() }

// Failed returns how many events hit a store error
func (w *Worker) Failed() int64 { return w.failed.Load() }

func (w *Worker) run() {
	defer w.wg.Done()

	for {
		select {
		case <-w.done:
			w.drain()
			return

		case ev := <-w.events:
			w.apply(ev)
		}
	}
}

func (w *Worker) drain() {
	for {
		select {
		case ev := <-w.events:
			w.apply(ev)
		default:
			return
		}
	}
}

func (w *Worker) apply(ev Event) {
	ctx, cancel := context.WithTimeout(context.Background(), w.timeout)
	defer cancel()

	ok := true

	if err := w.store.IncrementRecognition(ctx, ev.IdentityID, ev.At); err != nil {
		ok = false
		w.logger.Error("failed to increment recognition count",
			"identity_id", ev.IdentityID,
			"error", err,
		)
	}

	entry := &domain.RecognitionLog{
		IdentityID: ev.IdentityID,
		Action:     domain.LogActionRecognized,
		Confidence: ev.Confidence,
		CreatedAt:  ev.At,
	}
	if err := w.store.AppendLog(ctx, entry); err != nil {
		ok = false
		w.logger.Error("failed to append recognition log",
			"identity_id", ev.IdentityID,
			"error", err,
		)
	}

	if !ok {
		w.failed.Add(1)
		return
	}
	w.processed.Add(1)
}
