package domain

import "time"

// ServicePartner is an external company whose technicians handle calls.
type ServicePartner struct {
	ID     string
	Name   string
	Active bool
}

// TATCategory is a payout tier: calls closed within Days earn Amount each.
type TATCategory struct {
	ID               string
	ServicePartnerID string
	Name             string
	Days             int
	Amount           float64
}

// ClaimState tracks a claim document through review and payment.
type ClaimState string

const (
	ClaimDraft      ClaimState = "draft"
	ClaimCalculated ClaimState = "calculated"
	ClaimSubmitted  ClaimState = "submitted"
	ClaimVerified   ClaimState = "verified"
	ClaimApproved   ClaimState = "approved"
	ClaimPaid       ClaimState = "paid"
	ClaimRejected   ClaimState = "rejected"
	ClaimCancelled  ClaimState = "cancelled"
)

// ClaimStates lists every claim state in workflow order.
var ClaimStates = []ClaimState{
	ClaimDraft,
	ClaimCalculated,
	ClaimSubmitted,
	ClaimVerified,
	ClaimApproved,
	ClaimPaid,
	ClaimRejected,
	ClaimCancelled,
}

// PaymentMethod is how a claim was settled.
type PaymentMethod string

const (
	PaymentBankTransfer PaymentMethod = "bank_transfer"
	PaymentCheque       PaymentMethod = "cheque"
	PaymentCash         PaymentMethod = "cash"
	PaymentOnline       PaymentMethod = "online"
)

// Claim is a service partner's payout request for a billing period.
type Claim struct {
	ID               string
	Reference        string
	ServicePartnerID string
	PeriodStart      time.Time
	PeriodEnd        time.Time
	State            ClaimState
	Lines            []ClaimLine
	TotalAmount      float64
	SubmittedBy      *string
	SubmittedAt      *time.Time
	VerifiedBy       *string
	VerifiedAt       *time.Time
	ApprovedBy       *string
	ApprovedAt       *time.Time
	RejectedBy       *string
	RejectedAt       *time.Time
	RejectionReason  string
	PaymentMethod    PaymentMethod
	PaymentReference string
	PaymentDate      *time.Time
	CreatedBy        *string
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CallIDs returns every call paid by the claim's lines.
func (c *Claim) CallIDs() []string {
	var ids []string
	for _, line := range c.Lines {
		ids = append(ids, line.CallIDs...)
	}
	return ids
}

// ClaimLine groups the calls paid at one TAT tier.
type ClaimLine struct {
	ID            string
	ClaimID       string
	TATCategoryID string
	CategoryName  string
	Days          int
	CallIDs       []string
	Rate          float64
	Amount        float64
}

// CallCount is the number of calls on the line.
func (l ClaimLine) CallCount() int {
	return len(l.CallIDs)
}
