package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

// CreatePartnerRequest payload.
type CreatePartnerRequest struct {
	Name string `json:"name" validate:"required"`
}

// PartnerResponse is a service partner.
type PartnerResponse struct {
	ID     string `json:"id"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// NewPartnerResponse maps a service partner.
func NewPartnerResponse(p *domain.ServicePartner) PartnerResponse {
	return PartnerResponse{ID: p.ID, Name: p.Name, Active: p.Active}
}

// CreateTATCategoryRequest payload.
type CreateTATCategoryRequest struct {
	Name   string  `json:"name" validate:"required"`
	Days   int     `json:"days" validate:"required,gt=0"`
	Amount float64 `json:"amount" validate:"required,gt=0"`
}

// TATCategoryResponse is a payout tier.
type TATCategoryResponse struct {
	ID               string  `json:"id"`
	ServicePartnerID string  `json:"service_partner_id"`
	Name             string  `json:"name"`
	Days             int     `json:"days"`
	Amount           float64 `json:"amount"`
}

// NewTATCategoryResponse maps a tier.
func NewTATCategoryResponse(c *domain.TATCategory) TATCategoryResponse {
	return TATCategoryResponse{
		ID:               c.ID,
		ServicePartnerID: c.ServicePartnerID,
		Name:             c.Name,
		Days:             c.Days,
		Amount:           c.Amount,
	}
}

// CreateClaimRequest payload. Dates are inclusive calendar days.
type CreateClaimRequest struct {
	ServicePartnerID string `json:"service_partner_id" validate:"required"`
	PeriodStart      string `json:"period_start" validate:"required,datetime=2006-01-02"`
	PeriodEnd        string `json:"period_end" validate:"required,datetime=2006-01-02"`
}

// Period parses the claim period. Validate must run first.
func (r CreateClaimRequest) Period() (time.Time, time.Time) {
	start, _ := time.Parse(DateLayout, r.PeriodStart)
	end, _ := time.Parse(DateLayout, r.PeriodEnd)
	return start, end
}

// PayClaimRequest settles an approved claim. The method defaults to bank_transfer.
type PayClaimRequest struct {
	PaymentMethod    string `json:"payment_method" validate:"omitempty,oneof=bank_transfer cheque cash online"`
	PaymentReference string `json:"payment_reference" validate:"required,max=100"`
}

// RejectClaimRequest payload.
type RejectClaimRequest struct {
	Reason string `json:"reason" validate:"required,max=500"`
}

// ClaimLineResponse groups the calls paid at one tier.
type ClaimLineResponse struct {
	TATCategoryID string   `json:"tat_category_id"`
	CategoryName  string   `json:"category_name"`
	Days          int      `json:"days"`
	CallCount     int      `json:"call_count"`
	CallIDs       []string `json:"call_ids"`
	Rate          float64  `json:"rate"`
	Amount        float64  `json:"amount"`
}

// ClaimResponse is a claim with its lines.
type ClaimResponse struct {
	ID               string                `json:"id"`
	Reference        string                `json:"reference"`
	ServicePartnerID string                `json:"service_partner_id"`
	PeriodStart      string                `json:"period_start"`
	PeriodEnd        string                `json:"period_end"`
	State            domain.ClaimState     `json:"state"`
	Lines            []ClaimLineResponse   `json:"lines"`
	TotalAmount      float64               `json:"total_amount"`
	SubmittedAt      *time.Time            `json:"submitted_at,omitempty"`
	VerifiedAt       *time.Time            `json:"verified_at,omitempty"`
	ApprovedAt       *time.Time            `json:"approved_at,omitempty"`
	RejectedAt       *time.Time            `json:"rejected_at,omitempty"`
	RejectionReason  string                `json:"rejection_reason,omitempty"`
	PaymentMethod    domain.PaymentMethod  `json:"payment_method,omitempty"`
	PaymentReference string                `json:"payment_reference,omitempty"`
	PaymentDate      string                `json:"payment_date,omitempty"`
	AllowedActions   []service.ClaimAction `json:"allowed_actions"`
	CreatedAt        time.Time             `json:"created_at"`
}

// NewClaimResponse maps a claim.
func NewClaimResponse(c *domain.Claim) ClaimResponse {
	lines := make([]ClaimLineResponse, 0, len(c.Lines))
	for _, l := range c.Lines {
		lines = append(lines, ClaimLineResponse{
			TATCategoryID: l.TATCategoryID,
			CategoryName:  l.CategoryName,
			Days:          l.Days,
			CallCount:     l.CallCount(),
			CallIDs:       l.CallIDs,
			Rate:          l.Rate,
			Amount:        l.Amount,
		})
	}
	var paidOn string
	if c.PaymentDate != nil {
		paidOn = c.PaymentDate.Format(DateLayout)
	}
	return ClaimResponse{
		ID:               c.ID,
		Reference:        c.Reference,
		ServicePartnerID: c.ServicePartnerID,
		PeriodStart:      c.PeriodStart.Format(DateLayout),
		PeriodEnd:        c.PeriodEnd.Format(DateLayout),
		State:            c.State,
		Lines:            lines,
		TotalAmount:      c.TotalAmount,
		SubmittedAt:      c.SubmittedAt,
		VerifiedAt:       c.VerifiedAt,
		ApprovedAt:       c.ApprovedAt,
		RejectedAt:       c.RejectedAt,
		RejectionReason:  c.RejectionReason,
		PaymentMethod:    c.PaymentMethod,
		PaymentReference: c.PaymentReference,
		PaymentDate:      paidOn,
		AllowedActions:   service.AllowedClaimActions(c.State),
		CreatedAt:        c.CreatedAt,
	}
}
