package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/pgvector/pgvector-go"

	"github.com/saturnino-fabrica-de-software/facegallery/internal/domain"
)

type IdentityRepository struct {
	pool PgxPool
}

func NewIdentityRepository(pool PgxPool) *IdentityRepository {
	return &IdentityRepository{pool: pool}
}

func (r *IdentityRepository) Create(ctx context.Context, identity *domain.Identity) error {
	query := `
		INSERT INTO identities (id, name, embedding, enrollment_quality, detection_confidence, bbox,
			recognition_count, quality_scores, tags, locations, notes, created_at, last_seen)
		VALUES ($1, $2, $3, $4, $5, $6, 0, $7, $8, $9, $10, NOW(), NOW())
		RETURNING created_at, last_seen
	`

	if identity.ID == uuid.Nil {
		identity.ID = uuid.New()
	}
	identity.RecognitionCount = 0

	bbox := make([]int32, len(identity.BoundingBox))
	for i, v := range identity.BoundingBox {
		bbox[i] = int32(v)
	}

	err := r.pool.QueryRow(ctx, query,
		identity.ID,
		identity.Name,
		toVector(identity.Embedding),
		identity.EnrollmentQuality,
		identity.DetectionConfidence,
		bbox,
		nonNil(identity.QualityScores),
		nonNil(identity.Tags),
		nonNil(identity.Locations),
		identity.Notes,
	).Scan(&identity.CreatedAt, &identity.LastSeen)
	if err != nil {
		return fmt.Errorf("create identity: %w", err)
	}

	return nil
}

// FindAll returns every identity in insertion order
func (r *IdentityRepository) FindAll(ctx context.Context) ([]domain.Identity, error) {
	query := `
		SELECT id, name, embedding, enrollment_quality, detection_confidence, bbox,
			recognition_count, quality_scores, tags, locations, notes, created_at, last_seen
		FROM identities
		ORDER BY created_at, id
	`

	rows, err := r.pool.Query(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list identities: %w", err)
	}
	defer rows.Close()

	identities := make([]domain.Identity, 0)
	for rows.Next() {
		var (
			identity  domain.Identity
			embedding *pgvector.Vector
			bbox      []int32
		)

		err := rows.Scan(
			&identity.ID,
			&identity.Name,
			&embedding,
			&identity.EnrollmentQuality,
			&identity.DetectionConfidence,
			&bbox,
			&identity.RecognitionCount,
			&identity.QualityScores,
			&identity.Tags,
			&identity.Locations,
			&identity.Notes,
			&identity.CreatedAt,
			&identity.LastSeen,
		)
		if err != nil {
			return nil, fmt.Errorf("scan identity: %w", err)
		}

		if embedding != nil {
			identity.Embedding = fromVector(*embedding)
		}
		if len(bbox) > 0 {
			identity.BoundingBox = make([]int, len(bbox))
			for i, v := range bbox {
				identity.BoundingBox[i] = int(v)
			}
		}

		identities = append(identities, identity)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate identities: %w", err)
	}

	return identities, nil
}

// IncrementRecognition bumps the counter in SQL so concurrent updates never lose a count
func (r *IdentityRepository) IncrementRecognition(ctx context.Context, id uuid.UUID, seenAt time.Time) error {
	query := `
		UPDATE identities
		SET recognition_count = recognition_count + 1, last_seen = $2
		WHERE id = $1
	`

	result, err := r.pool.Exec(ctx, query, id, seenAt)
	if err != nil {
		return fmt.Errorf("increment recognition: %w", err)
	}

	if result.RowsAffected() == 0 {
		return domain.ErrNotFound
	}

	return nil
}

func (r *IdentityRepository) AppendLog(ctx context.Context, entry *domain.RecognitionLog) error {
	query := `
		INSERT INTO recognition_logs (id, identity_id, action, confidence, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`

	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	_, err := r.pool.Exec(ctx, query, entry.ID, entry.IdentityID, entry.Action, entry.Confidence, entry.CreatedAt)
	if err != nil {
		return fmt.Errorf("append recognition log: %w", err)
	}

	return nil
}

func (r *IdentityRepository) CountLogs(ctx context.Context) (int64, error) {
	var count int64
	err := r.pool.QueryRow(ctx, `SELECT COUNT(*) FROM recognition_logs`).Scan(&count)
	if err != nil {
		return 0, fmt.Errorf("count recognition logs: %w", err)
	}
	return count, nil
}

// DeleteByName removes every identity with the name. Recognition logs are kept.
func (r *IdentityRepository) DeleteByName(ctx context.Context, name string) (int64, error) {
	result, err := r.pool.Exec(ctx, `DELETE FROM identities WHERE name = $1`, name)
	if err != nil {
		return 0, fmt.Errorf("delete identities by name: %w", err)
	}
	return result.RowsAffected(), nil
}

// DeleteAll removes identities and logs in a single transaction
func (r *IdentityRepository) DeleteAll(ctx context.Context) (err error) {
	tx, err := r.pool.Begin(ctx)
	if err != nil {
		return fmt.Errorf("begin clear gallery: %w", err)
	}
	defer func() {
		if err != nil {
			if rbErr := tx.Rollback(ctx); rbErr != nil && !errors.Is(rbErr, pgx.ErrTxClosed) {
				err = errors.Join(err, fmt.Errorf("rollback clear gallery: %w", rbErr))
			}
		}
	}()

	if _, err = tx.Exec(ctx, `DELETE FROM identities`); err != nil {
		return fmt.Errorf("delete identities: %w", err)
	}
	if _, err = tx.Exec(ctx, `DELETE FROM recognition_logs`); err != nil {
		return fmt.Errorf("delete recognition logs: %w", err)
	}

	if err = tx.Commit(ctx); err != nil {
		return fmt.Errorf("commit clear gallery: %w", err)
	}

	return nil
}

func (r *IdentityRepository) Ping(ctx context.Context) error {
	return r.pool.Ping(ctx)
}

var _ GalleryStore = (*IdentityRepository)(nil)
