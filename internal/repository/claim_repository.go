package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// ClaimRepository persists partner claims and their TAT lines.
type ClaimRepository interface {
	Create(ctx context.Context, claim *domain.Claim) error
	// ReplaceLines swaps the claim's lines and totals in one transaction.
	ReplaceLines(ctx context.Context, claim *domain.Claim) error
	// SaveState writes the workflow fields and flags paidCallIDs as paid in one transaction.
	SaveState(ctx context.Context, claim *domain.Claim, paidCallIDs []string) error
	GetByID(ctx context.Context, id string) (*domain.Claim, error)
}

type claimRepository struct {
	pool *pgxpool.Pool
}

// NewClaimRepository instantiates repository.
func NewClaimRepository(pool *pgxpool.Pool) ClaimRepository {
	return &claimRepository{pool: pool}
}

func (r *claimRepository) Create(ctx context.Context, claim *domain.Claim) error {
	const query = `
        INSERT INTO claims (reference, service_partner_id, period_start, period_end, state, total_amount, created_by)
        VALUES ($1,$2,$3,$4,$5,$6,$7)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		claim.Reference,
		claim.ServicePartnerID,
		claim.PeriodStart,
		claim.PeriodEnd,
		claim.State,
		claim.TotalAmount,
		claim.CreatedBy,
	).Scan(&claim.ID, &claim.CreatedAt, &claim.UpdatedAt)
	return translateError(err)
}

func (r *claimRepository) ReplaceLines(ctx context.Context, claim *domain.Claim) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		if _, err := tx.Exec(ctx, `DELETE FROM claim_lines WHERE claim_id=$1`, claim.ID); err != nil {
			return err
		}
		for i := range claim.Lines {
			line := &claim.Lines[i]
			line.ClaimID = claim.ID
			const insert = `
                INSERT INTO claim_lines (claim_id, tat_category_id, category_name, days, call_ids, rate, amount)
                VALUES ($1,$2,$3,$4,$5,$6,$7)
                RETURNING id`
			if err := tx.QueryRow(ctx, insert,
				line.ClaimID,
				line.TATCategoryID,
				line.CategoryName,
				line.Days,
				line.CallIDs,
				line.Rate,
				line.Amount,
			).Scan(&line.ID); err != nil {
				return err
			}
		}
		const update = `UPDATE claims SET state=$1, total_amount=$2, updated_at=NOW() WHERE id=$3 RETURNING updated_at`
		return tx.QueryRow(ctx, update, claim.State, claim.TotalAmount, claim.ID).Scan(&claim.UpdatedAt)
	})
}

func (r *claimRepository) SaveState(ctx context.Context, claim *domain.Claim, paidCallIDs []string) error {
	return pgx.BeginFunc(ctx, r.pool, func(tx pgx.Tx) error {
		const update = `
            UPDATE claims SET state=$1, submitted_by=$2, submitted_at=$3, verified_by=$4, verified_at=$5,
                approved_by=$6, approved_at=$7, rejected_by=$8, rejected_at=$9, rejection_reason=$10,
                payment_method=$11, payment_reference=$12, payment_date=$13, updated_at=NOW()
            WHERE id=$14
            RETURNING updated_at`
		if err := tx.QueryRow(ctx, update,
			claim.State,
			claim.SubmittedBy,
			claim.SubmittedAt,
			claim.VerifiedBy,
			claim.VerifiedAt,
			claim.ApprovedBy,
			claim.ApprovedAt,
			claim.RejectedBy,
			claim.RejectedAt,
			claim.RejectionReason,
			claim.PaymentMethod,
			claim.PaymentReference,
			claim.PaymentDate,
			claim.ID,
		).Scan(&claim.UpdatedAt); err != nil {
			return err
		}
		if len(paidCallIDs) == 0 {
			return nil
		}
		_, err := tx.Exec(ctx,
			`UPDATE service_calls SET is_paid=TRUE, updated_at=NOW() WHERE id::text = ANY($1)`,
			paidCallIDs)
		return err
	})
}

func (r *claimRepository) GetByID(ctx context.Context, id string) (*domain.Claim, error) {
	const query = `
        SELECT id, reference, service_partner_id, period_start, period_end, state, total_amount,
               submitted_by, submitted_at, verified_by, verified_at, approved_by, approved_at,
               rejected_by, rejected_at, rejection_reason, payment_method, payment_reference, payment_date,
               created_by, created_at, updated_at
        FROM claims WHERE id=$1`
	var claim domain.Claim
	if err := r.pool.QueryRow(ctx, query, id).Scan(
		&claim.ID,
		&claim.Reference,
		&claim.ServicePartnerID,
		&claim.PeriodStart,
		&claim.PeriodEnd,
		&claim.State,
		&claim.TotalAmount,
		&claim.SubmittedBy,
		&claim.SubmittedAt,
		&claim.VerifiedBy,
		&claim.VerifiedAt,
		&claim.ApprovedBy,
		&claim.ApprovedAt,
		&claim.RejectedBy,
		&claim.RejectedAt,
		&claim.RejectionReason,
		&claim.PaymentMethod,
		&claim.PaymentReference,
		&claim.PaymentDate,
		&claim.CreatedBy,
		&claim.CreatedAt,
		&claim.UpdatedAt,
	); err != nil {
		return nil, err
	}

	const lines = `
        SELECT id, claim_id, tat_category_id, category_name, days, call_ids, rate, amount
        FROM claim_lines WHERE claim_id=$1 ORDER BY days ASC`
	rows, err := r.pool.Query(ctx, lines, id)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	for rows.Next() {
		var line domain.ClaimLine
		if err := rows.Scan(
			&line.ID,
			&line.ClaimID,
			&line.TATCategoryID,
			&line.CategoryName,
			&line.Days,
			&line.CallIDs,
			&line.Rate,
			&line.Amount,
		); err != nil {
			return nil, err
		}
		claim.Lines = append(claim.Lines, line)
	}
	return &claim, rows.Err()
}
