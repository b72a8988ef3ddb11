package service

import (
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

func TestCreateServiceCallNumbersReferencesPerType(t *testing.T) {
	h := newHarness(t)
	var refs []string
	for i := 0; i < 3; i++ {
		call, _ := h.newCall(t, "560001")
		refs = append(refs, call.Reference)
	}
	assert.Equal(t, []string{"REPR-202603-00001", "REPR-202603-00002", "REPR-202603-00003"}, refs)

	install, _, err := h.calls.CreateServiceCall(h.ctx, nil, CreateCallInput{CallType: domain.CallTypeInstallation, CustomerName: "Ben"})
	require.NoError(t, err)
	assert.Equal(t, "INST-202603-00001", install.Reference)
}

func TestCreateServiceCallAutoAssigns(t *testing.T) {
	h := newHarness(t)
	technician := h.technician(t, "Ravi", "560001", 10)

	call, outcome := h.newCall(t, "560001")
	assert.True(t, outcome.Assigned)
	assert.True(t, outcome.AutoAssigned)
	require.NotNil(t, call.TechnicianID)
	assert.Equal(t, technician.ID, *call.TechnicianID)
	assert.True(t, call.AutoAssigned)
	assert.Equal(t, domain.CallStateDraft, call.State)
	assert.Equal(t, call.CallDate.Add(48*time.Hour), call.SLADeadline)
	assert.Equal(t, domain.WarrantyStatusOut, call.WarrantyStatus)
	assert.Len(t, h.eventsOfType(events.EventCallCreated), 1)
}

func TestCreateServiceCallWithoutTechnicianStillSucceeds(t *testing.T) {
	h := newHarness(t)
	call, outcome := h.newCall(t, "110001")
	assert.False(t, outcome.Assigned)
	assert.Contains(t, outcome.Reason, "110001")
	assert.Nil(t, call.TechnicianID)

	stored, err := h.calls.Get(h.ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, call.Reference, stored.Reference)
}

func TestCreateServiceCallValidation(t *testing.T) {
	h := newHarness(t)
	priority := 7
	future := h.clock.Now().Add(48 * time.Hour)
	cases := map[string]CreateCallInput{
		"missing customer": {CallType: domain.CallTypeRepair},
		"unknown type":     {CallType: "plumbing", CustomerName: "A"},
		"bad priority":     {CallType: domain.CallTypeRepair, CustomerName: "A", Priority: &priority},
		"bad mobile":       {CallType: domain.CallTypeRepair, CustomerName: "A", Mobile: "12345"},
		"bad email":        {CallType: domain.CallTypeRepair, CustomerName: "A", Email: "nope"},
		"negative charge":  {CallType: domain.CallTypeRepair, CustomerName: "A", ServiceCharge: -1},
		"future purchase":  {CallType: domain.CallTypeRepair, CustomerName: "A", PurchaseDate: &future},
		"derived warranty": {CallType: domain.CallTypeRepair, CustomerName: "A", WarrantyStatus: domain.WarrantyStatusUnder},
	}
	for name, input := range cases {
		t.Run(name, func(t *testing.T) {
			_, _, err := h.calls.CreateServiceCall(h.ctx, nil, input)
			require.Error(t, err)
			assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation), err.Error())
		})
	}
}

func TestCreateServiceCallRejectsOfflineTechnician(t *testing.T) {
	h := newHarness(t)
	technician := h.technician(t, "Ravi", "560001", 10)
	_, err := h.technicians.SetAvailability(h.ctx, nil, technician.ID, domain.TechnicianOffline)
	require.NoError(t, err)

	_, _, err = h.calls.CreateServiceCall(h.ctx, nil, CreateCallInput{
		CallType:     domain.CallTypeRepair,
		CustomerName: "A",
		TechnicianID: &technician.ID,
	})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))
}

func TestAssignWithoutCandidates(t *testing.T) {
	h := newHarness(t)
	call, _ := h.newCall(t, "110001")
	_, err := h.calls.Assign(h.ctx, nil, call.ID, nil)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoTechnicianAvailable))

	stored, err := h.calls.Get(h.ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateDraft, stored.State)
}

func TestAssignSchedulesTodoForTechnician(t *testing.T) {
	h := newHarness(t)
	technician := h.technician(t, "Ravi", "560001", 10)
	call, _ := h.newCall(t, "110001")

	assigned, err := h.calls.Assign(h.ctx, nil, call.ID, &technician.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateAssigned, assigned.State)
	assert.False(t, assigned.AutoAssigned)
	require.NotNil(t, assigned.AssignedDate)

	feed, err := h.activity.List(h.ctx, domain.RecordTypeCall, call.ID)
	require.NoError(t, err)
	var todos []domain.Activity
	for _, activity := range feed {
		if activity.Kind == domain.ActivityTodo {
			todos = append(todos, activity)
		}
	}
	require.Len(t, todos, 1)
	require.NotNil(t, todos[0].UserID)
	assert.Equal(t, technician.UserID, *todos[0].UserID)
	assert.Contains(t, todos[0].Body, call.Reference)

	published := h.eventsOfType(events.EventCallAssigned)
	require.Len(t, published, 1)
	payload := published[0].Payload.(events.CallAssignedPayload)
	assert.Equal(t, technician.ID, payload.TechnicianID)
}

func TestCloseRequiresResolvedState(t *testing.T) {
	h := newHarness(t)
	h.technician(t, "Ravi", "560001", 10)
	call, _ := h.newCall(t, "560001")
	_, err := h.calls.Assign(h.ctx, nil, call.ID, nil)
	require.NoError(t, err)

	_, err = h.calls.Close(h.ctx, nil, call.ID, "12345")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	domainErr := apperrors.ToDomainError(err)
	assert.Equal(t, []string{"resolved"}, domainErr.Details["required_states"])

	stored, err := h.calls.Get(h.ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateAssigned, stored.State)
}

func TestResolveGuards(t *testing.T) {
	h := newHarness(t)
	h.technician(t, "Ravi", "560001", 10)
	call, _ := h.newCall(t, "560001")
	_, err := h.calls.Assign(h.ctx, nil, call.ID, nil)
	require.NoError(t, err)
	_, err = h.calls.Start(h.ctx, nil, call.ID)
	require.NoError(t, err)

	_, err = h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "Replaced compressor"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeAttachmentsRequired))

	stored, err := h.calls.Get(h.ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateInProgress, stored.State)
	assert.Nil(t, stored.CurrentOTP)
}

func TestResolveAndCloseWithOTP(t *testing.T) {
	h := newHarness(t)
	h.technician(t, "Ravi", "560001", 10)
	call := h.inProgressCall(t, "560001")
	h.otp.codes = []string{"54321"}

	resolved, err := h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "Replaced compressor", PartsUsed: "compressor"})
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateResolved, resolved.State)
	require.NotNil(t, resolved.CurrentOTP)
	assert.Equal(t, "54321", *resolved.CurrentOTP)
	require.Len(t, h.notifier.sms, 1)
	assert.Equal(t, "9876543210", h.notifier.sms[0].To)
	assert.Contains(t, h.notifier.sms[0].Body, "54321")

	_, err = h.calls.Close(h.ctx, nil, call.ID, "00000")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOTPInvalidCode))
	stored, err := h.calls.Get(h.ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateResolved, stored.State)

	h.clock.Advance(2 * time.Hour)
	closed, err := h.calls.Close(h.ctx, nil, call.ID, " 54321 ")
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateClosed, closed.State)
	assert.Nil(t, closed.CurrentOTP)
	require.NotNil(t, closed.ClosedDate)
	assert.Equal(t, h.clock.Now(), *closed.ClosedDate)

	history, err := h.calls.History(h.ctx, call.ID)
	require.NoError(t, err)
	var verified, closedEntries int
	for _, entry := range history {
		if entry.Type == domain.NotificationOTPVerified {
			verified++
			assert.True(t, entry.OTPVerified)
			assert.Equal(t, "54321", *entry.OTPCode)
		}
		if entry.Type == domain.NotificationCallClosed {
			closedEntries++
		}
	}
	assert.Equal(t, 1, verified)
	assert.Equal(t, 1, closedEntries)

	var resolvedEntries int
	for _, entry := range history {
		if entry.Type == domain.NotificationCallResolved {
			resolvedEntries++
			assert.Nil(t, entry.OTPCode)
			assert.Equal(t, domain.CallStateResolved, entry.NewStatus)
			assert.Contains(t, entry.Description, "Replaced compressor")
		}
	}
	assert.Equal(t, 1, resolvedEntries)
	assert.Len(t, h.eventsOfType(events.EventCallClosed), 1)
}

func TestResolveSurvivesSMSFailure(t *testing.T) {
	h := newHarness(t)
	h.technician(t, "Ravi", "560001", 10)
	call := h.inProgressCall(t, "560001")
	h.notifier.smsErr = errors.New("gateway down")

	resolved, err := h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "Cleaned filter"})
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateResolved, resolved.State)

	feed, err := h.activity.List(h.ctx, domain.RecordTypeCall, call.ID)
	require.NoError(t, err)
	found := false
	for _, activity := range feed {
		if activity.Kind == domain.ActivityNote && strings.Contains(activity.Body, "delivery") && strings.Contains(activity.Body, "gateway down") {
			found = true
		}
	}
	assert.True(t, found, "delivery failure should be noted on the call")
}

func TestPendingAndResolveFromPending(t *testing.T) {
	h := newHarness(t)
	h.technician(t, "Ravi", "560001", 10)
	call := h.inProgressCall(t, "560001")

	pending, err := h.calls.MarkPendingSpares(h.ctx, nil, call.ID, "compressor on order")
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatePendingSpares, pending.State)

	resolved, err := h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "Fitted compressor"})
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateResolved, resolved.State)
}

func TestCancelAndReopen(t *testing.T) {
	h := newHarness(t)
	call, _ := h.newCall(t, "110001")

	cancelled, err := h.calls.Cancel(h.ctx, nil, call.ID, "customer withdrew")
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateCancelled, cancelled.State)

	again, err := h.calls.Cancel(h.ctx, nil, call.ID, "duplicate booking")
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateCancelled, again.State)

	reopened, err := h.calls.Reopen(h.ctx, nil, call.ID, "customer called back")
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateConfirmed, reopened.State)

	history, err := h.calls.History(h.ctx, call.ID)
	require.NoError(t, err)
	require.Len(t, history, 3)
	assert.Equal(t, domain.NotificationCallCancelled, history[0].Type)
	assert.Equal(t, domain.CallStateCancelled, history[1].OldStatus)
	assert.Contains(t, history[1].Description, "duplicate booking")
	assert.Equal(t, domain.CallStateCancelled, history[2].OldStatus)
}

func TestCancelRejectsClosedCall(t *testing.T) {
	h := newHarness(t)
	h.technician(t, "Ravi", "560001", 10)
	call := h.inProgressCall(t, "560001")
	h.otp.codes = []string{"24680"}
	_, err := h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "Cleaned filter"})
	require.NoError(t, err)
	_, err = h.calls.Close(h.ctx, nil, call.ID, "24680")
	require.NoError(t, err)

	_, err = h.calls.Cancel(h.ctx, nil, call.ID, "too late")
	require.Error(t, err)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}

func TestParkingResolvedCallDropsClosureOTP(t *testing.T) {
	h := newHarness(t)
	h.technician(t, "Ravi", "560001", 10)
	call := h.inProgressCall(t, "560001")
	h.otp.codes = []string{"11223", "44556"}

	resolved, err := h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "Replaced fan"})
	require.NoError(t, err)
	require.NotNil(t, resolved.CurrentOTP)

	parked, err := h.calls.MarkPendingSpares(h.ctx, nil, call.ID, "fan noisy again")
	require.NoError(t, err)
	assert.Equal(t, domain.CallStatePendingSpares, parked.State)
	assert.Nil(t, parked.CurrentOTP)
	assert.Nil(t, parked.OTPGeneratedAt)

	stored, err := h.calls.Get(h.ctx, call.ID)
	require.NoError(t, err)
	assert.Nil(t, stored.CurrentOTP)

	_, err = h.calls.Close(h.ctx, nil, call.ID, "11223")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	again, err := h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "Replaced fan bearing"})
	require.NoError(t, err)
	require.NotNil(t, again.CurrentOTP)
	assert.Equal(t, "44556", *again.CurrentOTP)
}

func TestSweepSLABreaches(t *testing.T) {
	h := newHarness(t)
	urgent := domain.PriorityUrgent
	_, _, err := h.calls.CreateServiceCall(h.ctx, nil, CreateCallInput{CallType: domain.CallTypeRepair, CustomerName: "A", Priority: &urgent})
	require.NoError(t, err)
	h.newCall(t, "110001")

	h.clock.Advance(5 * time.Hour)
	breached, err := h.calls.SweepSLABreaches(h.ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, breached)
	assert.Len(t, h.eventsOfType(events.EventCallSLABreached), 1)
}

func TestAllowedActions(t *testing.T) {
	assert.Equal(t, []CallAction{ActionConfirm, ActionAssign, ActionMarkPendingSpares, ActionMarkPendingCustomer, ActionCancel},
		AllowedActions(domain.CallStateDraft))
	assert.Equal(t, []CallAction{ActionReopen}, AllowedActions(domain.CallStateClosed))
	assert.Equal(t, []CallAction{ActionCancel, ActionReopen}, AllowedActions(domain.CallStateCancelled))
}

func TestAttachmentValidation(t *testing.T) {
	h := newHarness(t)
	call, _ := h.newCall(t, "110001")
	_, err := h.calls.AddAttachment(h.ctx, nil, call.ID, AttachmentInput{FileName: "a.jpg"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	_, err = h.calls.AddAttachment(h.ctx, nil, "missing", AttachmentInput{FileName: "a.jpg", StorageKey: "k"})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNotFound))
}
