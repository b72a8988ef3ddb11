package repository

import (
	"context"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/spec-kit/field-service/internal/domain"
)

// FeedbackRepository persists customer feedback.
type FeedbackRepository interface {
	Create(ctx context.Context, feedback *domain.Feedback) error
	Update(ctx context.Context, feedback *domain.Feedback) error
	GetByID(ctx context.Context, id string) (*domain.Feedback, error)
	ListByCall(ctx context.Context, callID string) ([]domain.Feedback, error)
	// HasSubmitted reports whether a submitted or reviewed feedback exists for the call.
	HasSubmitted(ctx context.Context, callID string) (bool, error)
}

const feedbackColumns = `id, call_id, rating, satisfaction, punctuality, professionalism, problem_resolution,
               would_recommend, positive_feedback, improvement_areas, additional_comments, verification_method,
               otp_code, otp_generated_at, otp_attempts, otp_verified, otp_sent_to, state, submitted_at,
               submitted_by, reviewed_at, reviewed_by, review_notes, requires_followup, followup_done,
               created_at, updated_at`

type feedbackRepository struct {
	pool *pgxpool.Pool
}

// NewFeedbackRepository builds repository.
func NewFeedbackRepository(pool *pgxpool.Pool) FeedbackRepository {
	return &feedbackRepository{pool: pool}
}

func (r *feedbackRepository) Create(ctx context.Context, feedback *domain.Feedback) error {
	const query = `
        INSERT INTO feedbacks (call_id, rating, satisfaction, punctuality, professionalism, problem_resolution,
            would_recommend, positive_feedback, improvement_areas, additional_comments, verification_method, state)
        VALUES ($1,$2,$3,$4,$5,$6,$7,$8,$9,$10,$11,$12)
        RETURNING id, created_at, updated_at`
	err := r.pool.QueryRow(ctx, query,
		feedback.CallID,
		feedback.Rating,
		feedback.Satisfaction,
		feedback.Punctuality,
		feedback.Professionalism,
		feedback.ProblemResolution,
		feedback.WouldRecommend,
		feedback.PositiveFeedback,
		feedback.ImprovementAreas,
		feedback.AdditionalComments,
		feedback.VerificationMethod,
		feedback.State,
	).Scan(&feedback.ID, &feedback.CreatedAt, &feedback.UpdatedAt)
	return translateError(err)
}

func (r *feedbackRepository) Update(ctx context.Context, feedback *domain.Feedback) error {
	const query = `
        UPDATE feedbacks SET rating=$1, satisfaction=$2, punctuality=$3, professionalism=$4, problem_resolution=$5,
            would_recommend=$6, positive_feedback=$7, improvement_areas=$8, additional_comments=$9,
            verification_method=$10, otp_code=$11, otp_generated_at=$12, otp_attempts=$13, otp_verified=$14,
            otp_sent_to=$15, state=$16, submitted_at=$17, submitted_by=$18, reviewed_at=$19, reviewed_by=$20,
            review_notes=$21, requires_followup=$22, followup_done=$23, updated_at=NOW()
        WHERE id=$24
        RETURNING updated_at`
	err := r.pool.QueryRow(ctx, query,
		feedback.Rating,
		feedback.Satisfaction,
		feedback.Punctuality,
		feedback.Professionalism,
		feedback.ProblemResolution,
		feedback.WouldRecommend,
		feedback.PositiveFeedback,
		feedback.ImprovementAreas,
		feedback.AdditionalComments,
		feedback.VerificationMethod,
		feedback.OTPCode,
		feedback.OTPGeneratedAt,
		feedback.OTPAttempts,
		feedback.OTPVerified,
		feedback.OTPSentTo,
		feedback.State,
		feedback.SubmittedAt,
		feedback.SubmittedBy,
		feedback.ReviewedAt,
		feedback.ReviewedBy,
		feedback.ReviewNotes,
		feedback.RequiresFollowup,
		feedback.FollowupDone,
		feedback.ID,
	).Scan(&feedback.UpdatedAt)
	return translateError(err)
}

func (r *feedbackRepository) GetByID(ctx context.Context, id string) (*domain.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedbacks WHERE id=$1`
	return scanFeedback(r.pool.QueryRow(ctx, query, id))
}

func (r *feedbackRepository) ListByCall(ctx context.Context, callID string) ([]domain.Feedback, error) {
	query := `SELECT ` + feedbackColumns + ` FROM feedbacks WHERE call_id=$1 ORDER BY created_at DESC`
	rows, err := r.pool.Query(ctx, query, callID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var result []domain.Feedback
	for rows.Next() {
		feedback, err := scanFeedback(rows)
		if err != nil {
			return nil, err
		}
		result = append(result, *feedback)
	}
	return result, rows.Err()
}

func (r *feedbackRepository) HasSubmitted(ctx context.Context, callID string) (bool, error) {
	const query = `SELECT EXISTS (SELECT 1 FROM feedbacks WHERE call_id=$1 AND state IN ('submitted', 'reviewed'))`
	var exists bool
	if err := r.pool.QueryRow(ctx, query, callID).Scan(&exists); err != nil {
		return false, err
	}
	return exists, nil
}

func scanFeedback(row pgx.Row) (*domain.Feedback, error) {
	var f domain.Feedback
	if err := row.Scan(
		&f.ID,
		&f.CallID,
		&f.Rating,
		&f.Satisfaction,
		&f.Punctuality,
		&f.Professionalism,
		&f.ProblemResolution,
		&f.WouldRecommend,
		&f.PositiveFeedback,
		&f.ImprovementAreas,
		&f.AdditionalComments,
		&f.VerificationMethod,
		&f.OTPCode,
		&f.OTPGeneratedAt,
		&f.OTPAttempts,
		&f.OTPVerified,
		&f.OTPSentTo,
		&f.State,
		&f.SubmittedAt,
		&f.SubmittedBy,
		&f.ReviewedAt,
		&f.ReviewedBy,
		&f.ReviewNotes,
		&f.RequiresFollowup,
		&f.FollowupDone,
		&f.CreatedAt,
		&f.UpdatedAt,
	); err != nil {
		return nil, err
	}
	return &f, nil
}
