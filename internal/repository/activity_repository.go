package repository

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// ActivityRepository stores record activity feeds.
type ActivityRepository interface {
	Create(ctx context.Context, activity *domain.Activity) error
	ListByRecord(ctx context.Context, recordType, recordID string) ([]domain.Activity, error)
}

type activityRepository struct {
	pool *pgxpool.Pool
}

// NewActivityRepository builds repository.
func NewActivityRepository(pool *pgxpool.Pool) ActivityRepository {
	return &activityRepository{pool: pool}
}

func (r *activityRepository) Create(ctx context.Context, activity *domain.Activity) error {
	const query = `
        INSERT INTO activities (record_type, record_id, kind, body, user_id)
        VALUES ($1,$2,$3,$4,$5)
        RETURNING id, created_at`
	return r.pool.QueryRow(ctx, query,
		activity.RecordType,
		activity.RecordID,
		activity.Kind,
		activity.Body,
		activity.UserID,
	).Scan(&activity.ID, &activity.CreatedAt)
}

func (r *activityRepository) ListByRecord(ctx context.Context, recordType, recordID string) ([]domain.Activity, error) {
	const query = `
        SELECT id, record_type, record_id, kind, body, user_id, created_at
        FROM activities WHERE record_type=$1 AND record_id=$2 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, recordType, recordID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Activity
	for rows.Next() {
		var activity domain.Activity
		if err := rows.Scan(
			&activity.ID,
			&activity.RecordType,
			&activity.RecordID,
			&activity.Kind,
			&activity.Body,
			&activity.UserID,
			&activity.CreatedAt,
		); err != nil {
			return nil, err
		}
		result = append(result, activity)
	}
	return result, rows.Err()
}
