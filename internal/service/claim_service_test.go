package service

import (
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

func day(d int, hour int) time.Time {
	return time.Date(2026, 3, d, hour, 0, 0, 0, time.UTC)
}

func closedCall(id string, opened, closed time.Time) domain.ServiceCall {
	return domain.ServiceCall{ID: id, State: domain.CallStateClosed, CallDate: opened, ClosedDate: &closed}
}

func TestMatchTATUsesTightestTier(t *testing.T) {
	categories := []domain.TATCategory{
		{ID: "week", Name: "Within a week", Days: 7, Amount: 50},
		{ID: "fast", Name: "Within 3 days", Days: 3, Amount: 100},
	}
	calls := []domain.ServiceCall{
		closedCall("two-days", day(2, 17), day(4, 9)),
		closedCall("five-days", day(2, 9), day(7, 9)),
		closedCall("ten-days", day(2, 9), day(12, 9)),
		{ID: "open", State: domain.CallStateResolved, CallDate: day(2, 9)},
	}

	lines := MatchTAT(categories, calls)
	require.Len(t, lines, 2)

	assert.Equal(t, "fast", lines[0].TATCategoryID)
	assert.Equal(t, []string{"two-days"}, lines[0].CallIDs)
	assert.Equal(t, 100.0, lines[0].Amount)

	assert.Equal(t, "week", lines[1].TATCategoryID)
	assert.Equal(t, 1, lines[1].CallCount())
	assert.Equal(t, 50.0, lines[1].Amount)
}

func TestMatchTATCountsSameDayAsZero(t *testing.T) {
	lines := MatchTAT(
		[]domain.TATCategory{{ID: "same", Days: 1, Amount: 80}},
		[]domain.ServiceCall{closedCall("a", day(3, 8), day(3, 20)), closedCall("b", day(3, 23), day(4, 1))},
	)
	require.Len(t, lines, 1)
	assert.Equal(t, 2, lines[0].CallCount())
	assert.Equal(t, 160.0, lines[0].Amount)
}

func TestCalendarDays(t *testing.T) {
	assert.Equal(t, 1, calendarDays(day(2, 23), day(3, 1)))
	assert.Equal(t, 0, calendarDays(day(2, 1), day(2, 23)))
	assert.Equal(t, 2, calendarDays(day(2, 17), day(4, 9)))
}

func TestClaimCalculate(t *testing.T) {
	h := newHarness(t)
	partner, err := h.claims.CreatePartner(h.ctx, "CoolFix Services")
	require.NoError(t, err)

	_, err = h.claims.CreateTATCategory(h.ctx, partner.ID, "Within 3 days", 3, 100)
	require.NoError(t, err)
	_, err = h.claims.CreateTATCategory(h.ctx, partner.ID, "Within a week", 7, 50)
	require.NoError(t, err)
	_, err = h.claims.CreateTATCategory(h.ctx, partner.ID, "Duplicate", 7, 10)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	other := "another-partner"
	inserts := []domain.ServiceCall{
		{ServicePartnerID: &partner.ID, CallDate: day(2, 9), ClosedDate: ptrTime(day(4, 9)), State: domain.CallStateClosed},
		{ServicePartnerID: &partner.ID, CallDate: day(5, 9), ClosedDate: ptrTime(day(10, 9)), State: domain.CallStateClosed},
		{ServicePartnerID: &partner.ID, CallDate: day(6, 9), State: domain.CallStateInProgress},
		{ServicePartnerID: &other, CallDate: day(6, 9), ClosedDate: ptrTime(day(6, 12)), State: domain.CallStateClosed},
		{ServicePartnerID: &partner.ID, CallDate: time.Date(2026, 4, 1, 9, 0, 0, 0, time.UTC), ClosedDate: ptrTime(time.Date(2026, 4, 1, 12, 0, 0, 0, time.UTC)), State: domain.CallStateClosed},
	}
	for i := range inserts {
		inserts[i].Reference = fmt.Sprintf("REPR-202603-%05d", i+1)
		require.NoError(t, h.store.Calls().Create(h.ctx, &inserts[i]))
	}

	claim, err := h.claims.CreateClaim(h.ctx, nil, partner.ID, day(1, 0), day(31, 0))
	require.NoError(t, err)
	assert.Equal(t, "CLM-202603-00001", claim.Reference)
	assert.Equal(t, domain.ClaimDraft, claim.State)

	claim, err = h.claims.Calculate(h.ctx, nil, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimCalculated, claim.State)
	require.Len(t, claim.Lines, 2)
	assert.Equal(t, 150.0, claim.TotalAmount)

	stored, err := h.claims.Get(h.ctx, claim.ID)
	require.NoError(t, err)
	assert.Len(t, stored.Lines, 2)
	assert.Equal(t, 150.0, stored.TotalAmount)
}

func TestClaimGuards(t *testing.T) {
	h := newHarness(t)
	partner, err := h.claims.CreatePartner(h.ctx, "Bare Partner")
	require.NoError(t, err)

	_, err = h.claims.CreateTATCategory(h.ctx, partner.ID, "Zero", 0, 100)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = h.claims.CreateTATCategory(h.ctx, partner.ID, "Free", 3, 0)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.claims.CreateClaim(h.ctx, nil, partner.ID, day(10, 0), day(9, 0))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
	_, err = h.claims.CreateClaim(h.ctx, nil, "missing", day(1, 0), day(9, 0))
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))

	claim, err := h.claims.CreateClaim(h.ctx, nil, partner.ID, day(1, 0), day(9, 0))
	require.NoError(t, err)
	_, err = h.claims.Calculate(h.ctx, nil, claim.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoTATCategories))
}

func calculatedClaim(t *testing.T, h *harness) (*domain.Claim, []string) {
	t.Helper()
	partner, err := h.claims.CreatePartner(h.ctx, "Payout Partner")
	require.NoError(t, err)
	_, err = h.claims.CreateTATCategory(h.ctx, partner.ID, "Within 3 days", 3, 100)
	require.NoError(t, err)

	var ids []string
	for i, opened := range []time.Time{day(2, 9), day(3, 9)} {
		call := &domain.ServiceCall{
			Reference:        fmt.Sprintf("REPR-202603-%05d", i+1),
			ServicePartnerID: &partner.ID,
			CallDate:         opened,
			ClosedDate:       ptrTime(opened.Add(24 * time.Hour)),
			State:            domain.CallStateClosed,
		}
		require.NoError(t, h.store.Calls().Create(h.ctx, call))
		ids = append(ids, call.ID)
	}

	claim, err := h.claims.CreateClaim(h.ctx, nil, partner.ID, day(1, 0), day(31, 0))
	require.NoError(t, err)
	claim, err = h.claims.Calculate(h.ctx, nil, claim.ID)
	require.NoError(t, err)
	require.Equal(t, 200.0, claim.TotalAmount)
	return claim, ids
}

func TestClaimWorkflowMarksCallsPaid(t *testing.T) {
	h := newHarness(t)
	claim, callIDs := calculatedClaim(t, h)
	desk, admin := "desk-1", "admin-1"

	claim, err := h.claims.Submit(h.ctx, &desk, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimSubmitted, claim.State)
	assert.Equal(t, &desk, claim.SubmittedBy)
	require.NotNil(t, claim.SubmittedAt)

	claim, err = h.claims.Verify(h.ctx, &desk, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimVerified, claim.State)

	_, err = h.claims.Pay(h.ctx, &admin, claim.ID, PaymentInput{Reference: "UTR-1"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	claim, err = h.claims.Approve(h.ctx, &admin, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimApproved, claim.State)
	assert.Equal(t, &admin, claim.ApprovedBy)

	_, err = h.claims.Pay(h.ctx, &admin, claim.ID, PaymentInput{Reference: "  "})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	claim, err = h.claims.Pay(h.ctx, &admin, claim.ID, PaymentInput{Reference: "UTR-1"})
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimPaid, claim.State)
	assert.Equal(t, domain.PaymentBankTransfer, claim.PaymentMethod)
	assert.Equal(t, "UTR-1", claim.PaymentReference)
	require.NotNil(t, claim.PaymentDate)
	assert.Equal(t, time.Date(2026, 3, 2, 0, 0, 0, 0, time.UTC), *claim.PaymentDate)

	for _, id := range callIDs {
		call, err := h.store.Calls().GetByID(h.ctx, id)
		require.NoError(t, err)
		assert.True(t, call.IsPaid, id)
	}

	stored, err := h.claims.Get(h.ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimPaid, stored.State)
	assert.Len(t, stored.Lines, 1)

	feed, err := h.activity.List(h.ctx, domain.RecordTypeClaim, claim.ID)
	require.NoError(t, err)
	require.Len(t, feed, 5)
	assert.Contains(t, feed[0].Body, "Claim calculated based on TAT categories.")
	assert.Equal(t, "Claim submitted for verification.", feed[1].Body)
	assert.Equal(t, "Claim paid. Reference: UTR-1", feed[4].Body)

	_, err = h.claims.Reject(h.ctx, &admin, claim.ID, "late")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	_, err = h.claims.Cancel(h.ctx, &admin, claim.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestClaimSubmitRequiresLines(t *testing.T) {
	h := newHarness(t)
	partner, err := h.claims.CreatePartner(h.ctx, "Empty Partner")
	require.NoError(t, err)
	claim, err := h.claims.CreateClaim(h.ctx, nil, partner.ID, day(1, 0), day(9, 0))
	require.NoError(t, err)

	_, err = h.claims.Submit(h.ctx, nil, claim.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	stored, err := h.claims.Get(h.ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimDraft, stored.State)
}

func TestClaimRejectAndCancel(t *testing.T) {
	h := newHarness(t)
	claim, callIDs := calculatedClaim(t, h)

	_, err := h.claims.Reject(h.ctx, nil, claim.ID, "   ")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	claim, err = h.claims.Reject(h.ctx, nil, claim.ID, "Duplicate period")
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimRejected, claim.State)
	assert.Equal(t, "Duplicate period", claim.RejectionReason)
	require.NotNil(t, claim.RejectedAt)

	_, err = h.claims.Calculate(h.ctx, nil, claim.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	claim, err = h.claims.Cancel(h.ctx, nil, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimCancelled, claim.State)
	_, err = h.claims.Cancel(h.ctx, nil, claim.ID)
	require.NoError(t, err)
	_, err = h.claims.Reject(h.ctx, nil, claim.ID, "again")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	call, err := h.store.Calls().GetByID(h.ctx, callIDs[0])
	require.NoError(t, err)
	assert.False(t, call.IsPaid)

	feed, err := h.activity.List(h.ctx, domain.RecordTypeClaim, claim.ID)
	require.NoError(t, err)
	require.Len(t, feed, 4)
	assert.Equal(t, "Claim rejected. Reason: Duplicate period", feed[1].Body)
}

func TestClaimPayRejectsUnknownMethod(t *testing.T) {
	h := newHarness(t)
	claim, _ := calculatedClaim(t, h)
	_, err := h.claims.Pay(h.ctx, nil, claim.ID, PaymentInput{Method: "barter", Reference: "X"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))
}

func TestAllowedClaimActions(t *testing.T) {
	assert.Equal(t, []ClaimAction{ClaimActionCalculate, ClaimActionSubmit, ClaimActionReject, ClaimActionCancel}, AllowedClaimActions(domain.ClaimDraft))
	assert.Equal(t, []ClaimAction{ClaimActionVerify, ClaimActionReject, ClaimActionCancel}, AllowedClaimActions(domain.ClaimSubmitted))
	assert.Equal(t, []ClaimAction{ClaimActionPay, ClaimActionReject, ClaimActionCancel}, AllowedClaimActions(domain.ClaimApproved))
	assert.Empty(t, AllowedClaimActions(domain.ClaimPaid))
	assert.Equal(t, []ClaimAction{ClaimActionCancel}, AllowedClaimActions(domain.ClaimCancelled))
}

func ptrTime(t time.Time) *time.Time {
	return &t
}
