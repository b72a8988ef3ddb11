package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/sequence"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// ClaimService manages service partners, TAT tiers and payout claims.
type ClaimService struct {
	partners   repository.ServicePartnerRepository
	claims     repository.ClaimRepository
	calls      repository.CallRepository
	references *sequence.Generator
	activity   ActivityLog
	now        Clock
	logger     *zap.Logger
}

// ClaimDependencies bundles collaborators. Activity and Clock are optional.
type ClaimDependencies struct {
	PartnerRepo repository.ServicePartnerRepository
	ClaimRepo   repository.ClaimRepository
	CallRepo    repository.CallRepository
	References  *sequence.Generator
	Activity    ActivityLog
	Clock       Clock
	Logger      *zap.Logger
}

// PaymentInput settles an approved claim.
type PaymentInput struct {
	Method    domain.PaymentMethod
	Reference string
}

// NewClaimService constructs the service.
func NewClaimService(deps ClaimDependencies) *ClaimService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ClaimService{
		partners:   deps.PartnerRepo,
		claims:     deps.ClaimRepo,
		calls:      deps.CallRepo,
		references: deps.References,
		activity:   deps.Activity,
		now:        clockOrDefault(deps.Clock),
		logger:     logger,
	}
}

// CreatePartner registers a service partner.
func (s *ClaimService) CreatePartner(ctx context.Context, name string) (*domain.ServicePartner, error) {
	trimmed, err := requireText("name", name)
	if err != nil {
		return nil, err
	}
	partner := &domain.ServicePartner{Name: trimmed, Active: true}
	if err := s.partners.Create(ctx, partner); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("service partner already exists", map[string]any{"name": trimmed})
		}
		return nil, apperrors.MapError(err)
	}
	return partner, nil
}

// CreateTATCategory adds a payout tier to a partner.
func (s *ClaimService) CreateTATCategory(ctx context.Context, partnerID, name string, days int, amount float64) (*domain.TATCategory, error) {
	if _, err := s.loadPartner(ctx, partnerID); err != nil {
		return nil, err
	}
	trimmed, err := requireText("name", name)
	if err != nil {
		return nil, err
	}
	if days <= 0 {
		return nil, apperrors.NewValidationError("days must be positive", map[string]any{"days": days})
	}
	if amount <= 0 {
		return nil, apperrors.NewValidationError("amount must be positive", map[string]any{"amount": amount})
	}
	category := &domain.TATCategory{ServicePartnerID: partnerID, Name: trimmed, Days: days, Amount: amount}
	if err := s.partners.CreateTATCategory(ctx, category); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("a TAT category with these days already exists", map[string]any{"days": days})
		}
		return nil, apperrors.MapError(err)
	}
	return category, nil
}

// ListTATCategories returns a partner's tiers by ascending days.
func (s *ClaimService) ListTATCategories(ctx context.Context, partnerID string) ([]domain.TATCategory, error) {
	if _, err := s.loadPartner(ctx, partnerID); err != nil {
		return nil, err
	}
	categories, err := s.partners.ListTATCategories(ctx, partnerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return categories, nil
}

// CreateClaim opens a draft claim for a billing period.
func (s *ClaimService) CreateClaim(ctx context.Context, actorID *string, partnerID string, periodStart, periodEnd time.Time) (*domain.Claim, error) {
	if strings.TrimSpace(partnerID) == "" {
		return nil, apperrors.NewValidationError("service_partner_id is required", nil)
	}
	if periodEnd.Before(periodStart) {
		return nil, apperrors.NewValidationError("period end cannot be before period start", nil)
	}
	if _, err := s.loadPartner(ctx, partnerID); err != nil {
		return nil, err
	}
	reference, err := s.references.ClaimReference(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	claim := &domain.Claim{
		Reference:        reference,
		ServicePartnerID: partnerID,
		PeriodStart:      periodStart,
		PeriodEnd:        periodEnd,
		State:            domain.ClaimDraft,
		CreatedBy:        actorID,
	}
	if err := s.claims.Create(ctx, claim); err != nil {
		return nil, apperrors.MapError(err)
	}
	return claim, nil
}

// Calculate recomputes the claim lines from the partner's closed calls in the period.
// Only draft or calculated claims can be recalculated.
func (s *ClaimService) Calculate(ctx context.Context, actorID *string, claimID string) (*domain.Claim, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	rule, err := checkClaimTransition(ClaimActionCalculate, claim.State)
	if err != nil {
		return nil, err
	}
	categories, err := s.partners.ListTATCategories(ctx, claim.ServicePartnerID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if len(categories) == 0 {
		return nil, apperrors.NewNoTATCategories(claim.ServicePartnerID)
	}

	partnerID := claim.ServicePartnerID
	from := claim.PeriodStart
	to := endOfDay(claim.PeriodEnd)
	calls, err := collectCalls(ctx, s.calls, repository.CallFilter{
		States:           []domain.CallState{domain.CallStateClosed, domain.CallStateResolved},
		ServicePartnerID: &partnerID,
		CallDateFrom:     &from,
		CallDateTo:       &to,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}

	claim.Lines = MatchTAT(categories, calls)
	claim.TotalAmount = 0
	for _, line := range claim.Lines {
		claim.TotalAmount += line.Amount
	}
	claim.State = rule.to
	if err := s.claims.ReplaceLines(ctx, claim); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.postNote(ctx, claim, fmt.Sprintf("%s Total: %.2f", rule.note, claim.TotalAmount), actorID)
	s.logger.Info("claim calculated",
		zap.String("reference", claim.Reference),
		zap.Int("calls", len(calls)),
		zap.Int("lines", len(claim.Lines)),
		zap.Float64("total", claim.TotalAmount))
	return claim, nil
}

// Submit sends a calculated claim for verification.
func (s *ClaimService) Submit(ctx context.Context, actorID *string, claimID string) (*domain.Claim, error) {
	return s.advance(ctx, actorID, claimID, ClaimActionSubmit, func(claim *domain.Claim, now time.Time) (string, []string, error) {
		if len(claim.Lines) == 0 {
			return "", nil, apperrors.NewValidationError("please calculate the claim before submitting", map[string]any{"claim": claim.Reference})
		}
		claim.SubmittedBy = actorID
		claim.SubmittedAt = &now
		return "", nil, nil
	})
}

// Verify records that the claim details were checked.
func (s *ClaimService) Verify(ctx context.Context, actorID *string, claimID string) (*domain.Claim, error) {
	return s.advance(ctx, actorID, claimID, ClaimActionVerify, func(claim *domain.Claim, now time.Time) (string, []string, error) {
		claim.VerifiedBy = actorID
		claim.VerifiedAt = &now
		return "", nil, nil
	})
}

// Approve clears a verified claim for payment.
func (s *ClaimService) Approve(ctx context.Context, actorID *string, claimID string) (*domain.Claim, error) {
	return s.advance(ctx, actorID, claimID, ClaimActionApprove, func(claim *domain.Claim, now time.Time) (string, []string, error) {
		claim.ApprovedBy = actorID
		claim.ApprovedAt = &now
		return "", nil, nil
	})
}

// Pay settles an approved claim and flags every call on its lines as paid.
func (s *ClaimService) Pay(ctx context.Context, actorID *string, claimID string, input PaymentInput) (*domain.Claim, error) {
	reference := strings.TrimSpace(input.Reference)
	method := input.Method
	if method == "" {
		method = domain.PaymentBankTransfer
	}
	switch method {
	case domain.PaymentBankTransfer, domain.PaymentCheque, domain.PaymentCash, domain.PaymentOnline:
	default:
		return nil, apperrors.NewValidationError("unknown payment method", map[string]any{"payment_method": string(method)})
	}
	return s.advance(ctx, actorID, claimID, ClaimActionPay, func(claim *domain.Claim, now time.Time) (string, []string, error) {
		if reference == "" {
			return "", nil, apperrors.NewValidationError("please enter payment reference", map[string]any{"field": "payment_reference"})
		}
		y, m, d := now.Date()
		paidOn := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
		claim.PaymentMethod = method
		claim.PaymentReference = reference
		claim.PaymentDate = &paidOn
		return fmt.Sprintf("Claim paid. Reference: %s", reference), claim.CallIDs(), nil
	})
}

// Reject turns a claim down with a reason. Paid and cancelled claims cannot be rejected.
func (s *ClaimService) Reject(ctx context.Context, actorID *string, claimID, reason string) (*domain.Claim, error) {
	trimmed, err := requireText("rejection_reason", reason)
	if err != nil {
		return nil, err
	}
	return s.advance(ctx, actorID, claimID, ClaimActionReject, func(claim *domain.Claim, now time.Time) (string, []string, error) {
		claim.RejectedBy = actorID
		claim.RejectedAt = &now
		claim.RejectionReason = trimmed
		return fmt.Sprintf("Claim rejected. Reason: %s", trimmed), nil, nil
	})
}

// Cancel withdraws any claim that has not been paid.
func (s *ClaimService) Cancel(ctx context.Context, actorID *string, claimID string) (*domain.Claim, error) {
	return s.advance(ctx, actorID, claimID, ClaimActionCancel, nil)
}

// advance applies a workflow step. prepare runs the step's guards and field updates and
// may override the activity note and name calls to flag as paid.
func (s *ClaimService) advance(ctx context.Context, actorID *string, claimID string, action ClaimAction, prepare func(*domain.Claim, time.Time) (string, []string, error)) (*domain.Claim, error) {
	claim, err := s.Get(ctx, claimID)
	if err != nil {
		return nil, err
	}
	rule, err := checkClaimTransition(action, claim.State)
	if err != nil {
		return nil, err
	}

	note := rule.note
	var paidCalls []string
	if prepare != nil {
		custom, paid, err := prepare(claim, s.now())
		if err != nil {
			return nil, err
		}
		if custom != "" {
			note = custom
		}
		paidCalls = paid
	}

	old := claim.State
	claim.State = rule.to
	if err := s.claims.SaveState(ctx, claim, paidCalls); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.postNote(ctx, claim, note, actorID)
	s.logger.Info("claim transition",
		zap.String("reference", claim.Reference),
		zap.String("action", string(action)),
		zap.String("from", string(old)),
		zap.String("to", string(claim.State)),
		zap.Int("paid_calls", len(paidCalls)))
	return claim, nil
}

func (s *ClaimService) postNote(ctx context.Context, claim *domain.Claim, body string, actorID *string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Post(ctx, domain.RecordTypeClaim, claim.ID, body, actorID); err != nil {
		s.logger.Warn("claim note not recorded", zap.String("reference", claim.Reference), zap.Error(err))
	}
}

// Get fetches a claim with its lines.
func (s *ClaimService) Get(ctx context.Context, claimID string) (*domain.Claim, error) {
	claim, err := s.claims.GetByID(ctx, claimID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("claim", map[string]any{"claim_id": claimID})
		}
		return nil, apperrors.MapError(err)
	}
	return claim, nil
}

func (s *ClaimService) loadPartner(ctx context.Context, partnerID string) (*domain.ServicePartner, error) {
	partner, err := s.partners.GetByID(ctx, partnerID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service partner", map[string]any{"service_partner_id": partnerID})
		}
		return nil, apperrors.MapError(err)
	}
	return partner, nil
}

const callPageSize = 200

// collectCalls pages through every call matching the filter.
func collectCalls(ctx context.Context, repo repository.CallRepository, filter repository.CallFilter) ([]domain.ServiceCall, error) {
	filter.Limit = callPageSize
	filter.Offset = 0
	var all []domain.ServiceCall
	for {
		page, err := repo.List(ctx, filter)
		if err != nil {
			return nil, err
		}
		all = append(all, page...)
		if len(page) < callPageSize {
			return all, nil
		}
		filter.Offset += callPageSize
	}
}

func endOfDay(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 23, 59, 59, int(time.Second-time.Nanosecond), t.Location())
}
