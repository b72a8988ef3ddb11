package service

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/events"
)

type recordingSink struct {
	mu    sync.Mutex
	types []string
	err   error
}

func (s *recordingSink) Post(_ context.Context, eventType string, _ any) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.types = append(s.types, eventType)
	return s.err
}

func newNotificationFixture(sink *recordingSink) (events.Dispatcher, *recordingNotifier) {
	dispatcher := events.NewInMemoryDispatcher(zap.NewNop())
	notifier := &recordingNotifier{}
	deps := NotificationDependencies{Dispatcher: dispatcher, Notifier: notifier}
	if sink != nil {
		deps.Sink = sink
	}
	NewNotificationService(deps).RegisterHandlers()
	return dispatcher, notifier
}

func TestAssignedCallTextsTechnician(t *testing.T) {
	sink := &recordingSink{}
	dispatcher, notifier := newNotificationFixture(sink)

	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:   events.EventCallAssigned,
		CallID: "call-1",
		Payload: events.CallAssignedPayload{
			Reference:    "REPR-202603-00001",
			TechnicianID: "tech-1",
			Mobile:       "9876543210",
		},
	}))

	require.Len(t, notifier.sms, 1)
	assert.Equal(t, "9876543210", notifier.sms[0].To)
	assert.Contains(t, notifier.sms[0].Body, "REPR-202603-00001")
	assert.Equal(t, []string{string(events.EventCallAssigned)}, sink.types)
}

func TestEventsForwardWithoutSink(t *testing.T) {
	dispatcher, notifier := newNotificationFixture(nil)
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventCallClosed, CallID: "call-2"}))
	require.NoError(t, dispatcher.Publish(context.Background(), events.Event{
		Type:    events.EventCallAssigned,
		Payload: events.CallAssignedPayload{Reference: "REPR-202603-00002"},
	}))
	assert.Empty(t, notifier.sms)
}

func TestSinkFailureDoesNotReachPublisher(t *testing.T) {
	sink := &recordingSink{err: errors.New("webhook down")}
	dispatcher, _ := newNotificationFixture(sink)
	assert.NoError(t, dispatcher.Publish(context.Background(), events.Event{Type: events.EventFeedbackSubmitted}))
	assert.Equal(t, []string{string(events.EventFeedbackSubmitted)}, sink.types)
}
