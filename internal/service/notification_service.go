package service

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/events"
)

// EventSink forwards events outside the process.
type EventSink interface {
	Post(ctx context.Context, eventType string, payload any) error
}

// NotificationService reacts to call events with technician messages and webhooks.
type NotificationService struct {
	dispatcher events.Dispatcher
	notifier   Notifier
	sink       EventSink
	logger     *zap.Logger
}

// NotificationDependencies bundles collaborators. Notifier and Sink are optional.
type NotificationDependencies struct {
	Dispatcher events.Dispatcher
	Notifier   Notifier
	Sink       EventSink
	Logger     *zap.Logger
}

// NewNotificationService creates the service.
func NewNotificationService(deps NotificationDependencies) *NotificationService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &NotificationService{
		dispatcher: deps.Dispatcher,
		notifier:   deps.Notifier,
		sink:       deps.Sink,
		logger:     logger,
	}
}

// RegisterHandlers subscribes to events.
func (n *NotificationService) RegisterHandlers() {
	if n.dispatcher == nil {
		return
	}
	n.dispatcher.Subscribe(events.EventCallCreated, n.forward)
	n.dispatcher.Subscribe(events.EventCallAssigned, n.handleCallAssigned)
	n.dispatcher.Subscribe(events.EventCallStatusChanged, n.forward)
	n.dispatcher.Subscribe(events.EventCallResolved, n.forward)
	n.dispatcher.Subscribe(events.EventCallClosed, n.forward)
	n.dispatcher.Subscribe(events.EventCallSLABreached, n.handleSLABreached)
	n.dispatcher.Subscribe(events.EventFeedbackSubmitted, n.forward)
}

func (n *NotificationService) handleCallAssigned(ctx context.Context, event events.Event) error {
	payload, ok := event.Payload.(events.CallAssignedPayload)
	if ok && n.notifier != nil && payload.Mobile != "" {
		message := fmt.Sprintf("New service call %s has been assigned to you.", payload.Reference)
		if err := n.notifier.SendSMS(ctx, payload.Mobile, message); err != nil {
			n.logger.Warn("technician sms failed",
				zap.String("call_id", event.CallID),
				zap.String("technician_id", payload.TechnicianID),
				zap.Error(err))
		}
	}
	return n.forward(ctx, event)
}

func (n *NotificationService) handleSLABreached(ctx context.Context, event events.Event) error {
	if payload, ok := event.Payload.(events.CallSLABreachedPayload); ok {
		n.logger.Warn("service call breached SLA",
			zap.String("reference", payload.Reference),
			zap.String("state", string(payload.State)),
			zap.Time("sla_deadline", payload.SLADeadline))
	}
	return n.forward(ctx, event)
}

func (n *NotificationService) forward(ctx context.Context, event events.Event) error {
	n.logger.Debug("call event", zap.String("type", string(event.Type)), zap.String("call_id", event.CallID))
	if n.sink == nil {
		return nil
	}
	if err := n.sink.Post(ctx, string(event.Type), event); err != nil {
		return fmt.Errorf("forward %s: %w", event.Type, err)
	}
	return nil
}
