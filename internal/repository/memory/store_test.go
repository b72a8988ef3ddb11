package memory

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
)

func strPtr(s string) *string { return &s }

func TestCountActiveByTechniciansIgnoresTerminalCalls(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	calls := store.Calls()

	for i, state := range []domain.CallState{domain.CallStateAssigned, domain.CallStateInProgress, domain.CallStateClosed, domain.CallStateCancelled} {
		call := &domain.ServiceCall{Reference: "REPR-202610-0000" + string(rune('1'+i)), State: state, TechnicianID: strPtr("t1")}
		require.NoError(t, calls.Create(ctx, call))
	}

	counts, err := calls.CountActiveByTechnicians(ctx, []string{"t1", "t2"})
	require.NoError(t, err)
	assert.Equal(t, map[string]int{"t1": 2, "t2": 0}, counts)
}

func TestSaveTransitionInsertsAndVerifiesEntries(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	calls := store.Calls()
	notifications := store.Notifications()

	call := &domain.ServiceCall{Reference: "REPR-202610-00001", State: domain.CallStateInProgress}
	require.NoError(t, calls.Create(ctx, call))

	call.State = domain.CallStateResolved
	entry := &domain.NotificationTransaction{CallID: call.ID, Type: domain.NotificationOTPGenerated, OTPCode: strPtr("12345")}
	require.NoError(t, calls.SaveTransition(ctx, call, []*domain.NotificationTransaction{entry}))
	require.NotEmpty(t, entry.ID)

	latest, err := notifications.LatestOTP(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, "12345", *latest.OTPCode)

	latest.OTPVerified = true
	latest.Type = domain.NotificationOTPVerified
	call.State = domain.CallStateClosed
	require.NoError(t, calls.SaveTransition(ctx, call, []*domain.NotificationTransaction{latest}))

	entries, err := notifications.ListByCall(ctx, call.ID)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.True(t, entries[0].OTPVerified)

	stored, err := calls.GetByID(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateClosed, stored.State)
}

func TestSaveTransitionUnknownEntryLeavesCallUntouched(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	calls := store.Calls()

	call := &domain.ServiceCall{Reference: "REPR-202610-00001", State: domain.CallStateResolved}
	require.NoError(t, calls.Create(ctx, call))

	call.State = domain.CallStateClosed
	err := calls.SaveTransition(ctx, call, []*domain.NotificationTransaction{{ID: "missing"}})
	assert.ErrorIs(t, err, pgx.ErrNoRows)

	stored, err := calls.GetByID(ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateResolved, stored.State)
}

func TestListCandidatesFiltersInactiveAndUnavailable(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	technicians := store.Technicians()
	areas := store.ServiceAreas()

	add := func(code string, state domain.TechnicianState, active, areaActive bool) {
		tech := &domain.Technician{Code: code, UserID: "u-" + code, State: state, Active: active}
		require.NoError(t, technicians.Create(ctx, tech))
		require.NoError(t, areas.Create(ctx, &domain.ServiceArea{TechnicianID: tech.ID, PostalCode: "560001", Priority: 10, Active: areaActive}))
	}
	add("TECH-00001", domain.TechnicianAvailable, true, true)
	add("TECH-00002", domain.TechnicianBusy, true, true)
	add("TECH-00003", domain.TechnicianAvailable, false, true)
	add("TECH-00004", domain.TechnicianAvailable, true, false)

	candidates, err := areas.ListCandidates(ctx, "560001")
	require.NoError(t, err)
	require.Len(t, candidates, 1)
	assert.Equal(t, "TECH-00001", candidates[0].Technician.Code)

	none, err := areas.ListCandidates(ctx, "110001")
	require.NoError(t, err)
	assert.Empty(t, none)
}

func TestUniqueConstraints(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	require.NoError(t, store.Technicians().Create(ctx, &domain.Technician{Code: "TECH-00001", UserID: "u1"}))
	err := store.Technicians().Create(ctx, &domain.Technician{Code: "TECH-00002", UserID: "u1"})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	require.NoError(t, store.Partners().CreateTATCategory(ctx, &domain.TATCategory{ServicePartnerID: "p1", Days: 3, Amount: 100}))
	err = store.Partners().CreateTATCategory(ctx, &domain.TATCategory{ServicePartnerID: "p1", Days: 3, Amount: 50})
	assert.ErrorIs(t, err, repository.ErrDuplicate)

	submitted := &domain.Feedback{CallID: "c1", State: domain.FeedbackSubmitted}
	require.NoError(t, store.Feedbacks().Create(ctx, submitted))
	second := &domain.Feedback{CallID: "c1", State: domain.FeedbackVerified}
	require.NoError(t, store.Feedbacks().Create(ctx, second))
	second.State = domain.FeedbackSubmitted
	assert.ErrorIs(t, store.Feedbacks().Update(ctx, second), repository.ErrDuplicate)
}

func TestCallListFilters(t *testing.T) {
	ctx := context.Background()
	store := NewStore()
	calls := store.Calls()
	base := time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC)

	for i, state := range []domain.CallState{domain.CallStateAssigned, domain.CallStateClosed, domain.CallStateAssigned} {
		call := &domain.ServiceCall{
			Reference:   "REPR-202610-0000" + string(rune('1'+i)),
			State:       state,
			CallDate:    base.Add(time.Duration(i) * time.Hour),
			SLADeadline: base.Add(time.Duration(i+1) * time.Hour),
		}
		require.NoError(t, calls.Create(ctx, call))
	}

	open, err := calls.List(ctx, repository.CallFilter{States: []domain.CallState{domain.CallStateAssigned}})
	require.NoError(t, err)
	require.Len(t, open, 2)
	assert.Equal(t, "REPR-202610-00003", open[0].Reference)

	cutoff := base.Add(90 * time.Minute)
	overdue, err := calls.List(ctx, repository.CallFilter{SLADeadlineBefore: &cutoff})
	require.NoError(t, err)
	require.Len(t, overdue, 1)
	assert.Equal(t, "REPR-202610-00001", overdue[0].Reference)
}

func TestClaimSaveStateMarksCallsPaid(t *testing.T) {
	ctx := context.Background()
	store := NewStore()

	call := &domain.ServiceCall{Reference: "REPR-202610-00001", State: domain.CallStateClosed}
	require.NoError(t, store.Calls().Create(ctx, call))
	claim := &domain.Claim{Reference: "CLM-202610-00001", State: domain.ClaimCalculated}
	require.NoError(t, store.Claims().Create(ctx, claim))
	claim.Lines = []domain.ClaimLine{{CallIDs: []string{call.ID}, Amount: 100}}
	require.NoError(t, store.Claims().ReplaceLines(ctx, claim))

	claim.State = domain.ClaimPaid
	claim.PaymentReference = "UTR-9"
	err := store.Claims().SaveState(ctx, claim, []string{call.ID, "missing"})
	assert.ErrorIs(t, err, pgx.ErrNoRows)
	stored, err := store.Calls().GetByID(ctx, call.ID)
	require.NoError(t, err)
	assert.False(t, stored.IsPaid)

	require.NoError(t, store.Claims().SaveState(ctx, &domain.Claim{ID: claim.ID, State: domain.ClaimPaid, PaymentReference: "UTR-9"}, []string{call.ID}))
	stored, err = store.Calls().GetByID(ctx, call.ID)
	require.NoError(t, err)
	assert.True(t, stored.IsPaid)

	saved, err := store.Claims().GetByID(ctx, claim.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.ClaimPaid, saved.State)
	assert.Equal(t, "UTR-9", saved.PaymentReference)
	assert.Len(t, saved.Lines, 1)
}
