package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// NotificationRepository stores the call audit trail.
type NotificationRepository interface {
	Create(ctx context.Context, entry *domain.NotificationTransaction) error
	// LatestOTP returns the most recent OTP-bearing entry for the call.
	LatestOTP(ctx context.Context, callID string) (*domain.NotificationTransaction, error)
	ListByCall(ctx context.Context, callID string) ([]domain.NotificationTransaction, error)
}

const notificationColumns = `id, call_id, technician_id, service_partner_id, notification_type, old_status, new_status,
               description, otp_code, otp_generated_at, otp_verified, created_by, created_at`

type notificationRepository struct {
	pool *pgxpool.Pool
}

// NewNotificationRepository builds repository.
func NewNotificationRepository(pool *pgxpool.Pool) NotificationRepository {
	return &notificationRepository{pool: pool}
}

func (r *notificationRepository) Create(ctx context.Context, entry *domain.NotificationTransaction) error {
	return insertNotification(ctx, r.pool, entry)
}

func insertNotification(ctx context.Context, db dbtx, entry *domain.NotificationTransaction) error {
	const query = `
        INSERT INTO notification_transactions (call_id, technician_id, service_partner_id, notification_type,
            old_status, new_status, description, otp_code, otp_generated_at, otp_verified, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11)
        RETURNING id, created_at`
	return db.QueryRow(ctx, query,
		entry.CallID,
		entry.TechnicianID,
		entry.ServicePartnerID,
		entry.Type,
		entry.OldStatus,
		entry.NewStatus,
		entry.Description,
		entry.OTPCode,
		entry.OTPGeneratedAt,
		entry.OTPVerified,
		entry.CreatedBy,
	).Scan(&entry.ID, &entry.CreatedAt)
}

func markNotificationVerified(ctx context.Context, db dbtx, entry *domain.NotificationTransaction) error {
	const query = `
        UPDATE notification_transactions SET notification_type=$1, description=$2, otp_verified=$3
        WHERE id=$4`
	cmd, err := db.Exec(ctx, query, entry.Type, entry.Description, entry.OTPVerified, entry.ID)
	if err != nil {
		return err
	}
	if cmd.RowsAffected() == 0 {
		return pgx.ErrNoRows
	}
	return nil
}

func (r *notificationRepository) LatestOTP(ctx context.Context, callID string) (*domain.NotificationTransaction, error) {
	query := `SELECT ` + notificationColumns + `
        FROM notification_transactions
        WHERE call_id=$1 AND otp_code IS NOT NULL AND notification_type IN ('otp_generated', 'otp_verified')
        ORDER BY created_at DESC LIMIT 1`
	return scanNotification(r.pool.QueryRow(ctx, query, callID))
}

func (r *notificationRepository) ListByCall(ctx context.Context, callID string) ([]domain.NotificationTransaction, error) {
	query := `SELECT ` + notificationColumns + `
        FROM notification_transactions WHERE call_id=$1 ORDER BY created_at ASC`
	rows, err := r.pool.Query(ctx, query, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.NotificationTransaction
	for rows.Next() {
		entry, err := scanNotification(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *entry)
	}
	return result, rows.Err()
}

func scanNotification(row pgx.Row) (*domain.NotificationTransaction, error) {
	var entry domain.NotificationTransaction
	if err := row.Scan(
		&entry.ID,
		&entry.CallID,
		&entry.TechnicianID,
		&entry.ServicePartnerID,
		&entry.Type,
		&entry.OldStatus,
		&entry.NewStatus,
		&entry.Description,
		&entry.OTPCode,
		&entry.OTPGeneratedAt,
		&entry.OTPVerified,
		&entry.CreatedBy,
		&entry.CreatedAt,
	); err != nil {
		return nil, err
	}
	return &entry, nil
}
