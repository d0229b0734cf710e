package repository

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

// PgxPool is the subset of *pgxpool.Pool used by the repositories; pgxmock satisfies it in tests
type PgxPool interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
	Query(ctx context.Context, sql string, args ...any) (pgx.Rows, error)
	QueryRow(ctx context.Context, sql string, args ...any) pgx.Row
	Begin(ctx context.Context) (pgx.Tx, error)
	Ping(ctx context.Context) error
}

// GalleryStore is the durable source of truth for identities and recognition logs
type GalleryStore interface {
	Create(ctx context.Context, identity *domain.Identity) error
	FindAll(ctx context.Context) ([]domain.Identity, error)
	IncrementRecognition(ctx context.Context, id uuid.UUID, seenAt time.Time) error
	AppendLog(ctx context.Context, entry *domain.RecognitionLog) error
	CountLogs(ctx context.Context) (int64, error)
	DeleteByName(ctx context.Context, name string) (int64, error)
	DeleteAll(ctx context.Context) error
	Ping(ctx context.Context) error
}
