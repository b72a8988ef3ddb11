package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/repository/memory"
	"github.com/spec-kit/field-service/internal/sequence"
)

type testClock struct {
	mu sync.Mutex
	t  time.Time
}

func (c *testClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.t
}

func (c *testClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.t = c.t.Add(d)
}

// scriptedOTP hands out queued codes, then a run of ones.
type scriptedOTP struct {
	codes []string
}

func (g *scriptedOTP) Generate(length int) string {
	if len(g.codes) > 0 {
		code := g.codes[0]
		g.codes = g.codes[1:]
		return code
	}
	return strings.Repeat("1", length)
}

type sentMessage struct {
	To   string
	Body string
}

type recordingNotifier struct {
	mu     sync.Mutex
	sms    []sentMessage
	emails []sentMessage
	smsErr error
}

func (n *recordingNotifier) SendSMS(_ context.Context, mobile, message string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	if n.smsErr != nil {
		return n.smsErr
	}
	n.sms = append(n.sms, sentMessage{To: mobile, Body: message})
	return nil
}

func (n *recordingNotifier) SendEmail(_ context.Context, to, _, body string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.emails = append(n.emails, sentMessage{To: to, Body: body})
	return nil
}

type harness struct {
	ctx         context.Context
	clock       *testClock
	store       *memory.Store
	otp         *scriptedOTP
	notifier    *recordingNotifier
	activity    *ActivityService
	calls       *CallService
	feedback    *FeedbackService
	claims      *ClaimService
	technicians *TechnicianService
	assignment  *AssignmentService

	mu        sync.Mutex
	published []events.Event
	operators int
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	clock := &testClock{t: time.Date(2026, 3, 2, 10, 0, 0, 0, time.UTC)}
	store := memory.NewStore().WithClock(clock.Now)
	refs := sequence.NewGenerator(sequence.NewMemoryCounter(), clock.Now)
	dispatcher := events.NewInMemoryDispatcher(nil)
	activity := NewActivityService(store.Activities())
	notifier := &recordingNotifier{}
	generator := &scriptedOTP{}

	matcher := NewGeoMatcher(store.ServiceAreas(), store.Calls())
	assignment := NewAssignmentService(AssignmentDependencies{Matcher: matcher, TechnicianRepo: store.Technicians()})
	calls := NewCallService(CallDependencies{
		CallRepo:         store.Calls(),
		NotificationRepo: store.Notifications(),
		AttachmentRepo:   store.Attachments(),
		Assignment:       assignment,
		References:       refs,
		OTP:              generator,
		Activity:         activity,
		Scheduler:        activity,
		Notifier:         notifier,
		Dispatcher:       dispatcher,
		Clock:            clock.Now,
	})

	h := &harness{
		ctx:        context.Background(),
		clock:      clock,
		store:      store,
		otp:        generator,
		notifier:   notifier,
		activity:   activity,
		calls:      calls,
		assignment: assignment,
		feedback: NewFeedbackService(FeedbackDependencies{
			FeedbackRepo:   store.Feedbacks(),
			CallRepo:       store.Calls(),
			TechnicianRepo: store.Technicians(),
			CallService:    calls,
			OTP:            generator,
			Notifier:       notifier,
			Activity:       activity,
			Scheduler:      activity,
			Dispatcher:     dispatcher,
			Clock:          clock.Now,
		}),
		claims: NewClaimService(ClaimDependencies{
			PartnerRepo: store.Partners(),
			ClaimRepo:   store.Claims(),
			CallRepo:    store.Calls(),
			References:  refs,
			Activity:    activity,
			Clock:       clock.Now,
		}),
		technicians: NewTechnicianService(TechnicianDependencies{
			TechnicianRepo:  store.Technicians(),
			ServiceAreaRepo: store.ServiceAreas(),
			OperatorRepo:    store.Operators(),
			CallRepo:        store.Calls(),
			Matcher:         matcher,
			References:      refs,
			Activity:        activity,
		}),
	}
	for _, eventType := range []events.EventType{
		events.EventCallCreated, events.EventCallAssigned, events.EventCallStatusChanged,
		events.EventCallResolved, events.EventCallClosed, events.EventCallSLABreached,
		events.EventFeedbackSubmitted,
	} {
		dispatcher.Subscribe(eventType, h.record)
	}
	return h
}

func (h *harness) record(_ context.Context, event events.Event) error {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.published = append(h.published, event)
	return nil
}

func (h *harness) eventsOfType(eventType events.EventType) []events.Event {
	h.mu.Lock()
	defer h.mu.Unlock()
	var result []events.Event
	for _, event := range h.published {
		if event.Type == eventType {
			result = append(result, event)
		}
	}
	return result
}

func (h *harness) operator(t *testing.T, role domain.OperatorRole) *domain.Operator {
	t.Helper()
	h.operators++
	operator := &domain.Operator{
		Name:   "Operator",
		Email:  fmt.Sprintf("op-%d@example.com", h.operators),
		Role:   role,
		Active: true,
	}
	require.NoError(t, h.store.Operators().Create(h.ctx, operator))
	return operator
}

func (h *harness) technician(t *testing.T, name, postalCode string, priority int) *domain.Technician {
	t.Helper()
	user := h.operator(t, domain.OperatorRoleTechnician)
	technician, err := h.technicians.Create(h.ctx, TechnicianInput{UserID: user.ID, Name: name, Mobile: "9000000001"})
	require.NoError(t, err)
	_, err = h.technicians.AddServiceArea(h.ctx, technician.ID, ServiceAreaInput{PostalCode: postalCode, Priority: &priority})
	require.NoError(t, err)
	return technician
}

func (h *harness) newCall(t *testing.T, postalCode string) (*domain.ServiceCall, *AssignmentOutcome) {
	t.Helper()
	call, outcome, err := h.calls.CreateServiceCall(h.ctx, nil, CreateCallInput{
		CallType:          domain.CallTypeRepair,
		CustomerName:      "Asha Verma",
		Mobile:            "9876543210",
		Email:             "asha@example.com",
		PostalCode:        postalCode,
		NatureOfComplaint: "No cooling",
	})
	require.NoError(t, err)
	return call, outcome
}

func (h *harness) attach(t *testing.T, callID string) {
	t.Helper()
	_, err := h.calls.AddAttachment(h.ctx, nil, callID, AttachmentInput{StorageKey: "calls/" + callID + "/photo.jpg", FileName: "photo.jpg"})
	require.NoError(t, err)
}

// inProgressCall walks a call to in_progress with an attachment.
func (h *harness) inProgressCall(t *testing.T, postalCode string) *domain.ServiceCall {
	t.Helper()
	call, _ := h.newCall(t, postalCode)
	_, err := h.calls.Confirm(h.ctx, nil, call.ID)
	require.NoError(t, err)
	_, err = h.calls.Assign(h.ctx, nil, call.ID, nil)
	require.NoError(t, err)
	call, err = h.calls.Start(h.ctx, nil, call.ID)
	require.NoError(t, err)
	h.attach(t, call.ID)
	return call
}
