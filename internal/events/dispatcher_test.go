package events

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func TestPublishInvokesAllHandlersDespiteErrors(t *testing.T) {
	d := NewInMemoryDispatcher(zap.NewNop())
	var calls []string

	d.Subscribe(EventCallClosed, func(context.Context, Event) error {
		calls = append(calls, "first")
		return errors.New("boom")
	})
	d.Subscribe(EventCallClosed, func(_ context.Context, e Event) error {
		calls = append(calls, "second:"+e.CallID)
		return nil
	})
	d.Subscribe(EventCallCreated, func(context.Context, Event) error {
		calls = append(calls, "other")
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventCallClosed, CallID: "c1"}))
	assert.Equal(t, []string{"first", "second:c1"}, calls)
}

func TestActorFor(t *testing.T) {
	assert.Equal(t, ActorSystem, ActorFor(nil).Type)
	id := "op-1"
	actor := ActorFor(&id)
	assert.Equal(t, ActorOperator, actor.Type)
	assert.Equal(t, &id, actor.OperatorID)
}

func TestPublishStampsAndSurvivesPanics(t *testing.T) {
	d := NewInMemoryDispatcher(nil)
	var seen Event
	d.Subscribe(EventCallSLABreached, func(context.Context, Event) error {
		panic("bad handler")
	})
	d.Subscribe(EventCallSLABreached, func(_ context.Context, e Event) error {
		seen = e
		return nil
	})

	require.NoError(t, d.Publish(context.Background(), Event{Type: EventCallSLABreached, CallID: "c2"}))
	assert.NotEmpty(t, seen.ID)
	assert.False(t, seen.Timestamp.IsZero())
	assert.Equal(t, "c2", seen.CallID)
}
