package events

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// EventType enumerates supported event identifiers.
type EventType string

const (
	EventCallCreated       EventType = "call_created"
	EventCallAssigned      EventType = "call_assigned"
	EventCallStatusChanged EventType = "call_status_changed"
	EventCallResolved      EventType = "call_resolved"
	EventCallClosed        EventType = "call_closed"
	EventCallSLABreached   EventType = "call_sla_breached"
	EventFeedbackSubmitted EventType = "feedback_submitted"
)

// AllEventTypes lists every event the services publish.
var AllEventTypes = []EventType{
	EventCallCreated,
	EventCallAssigned,
	EventCallStatusChanged,
	EventCallResolved,
	EventCallClosed,
	EventCallSLABreached,
	EventFeedbackSubmitted,
}

// ActorType identifies who triggered an event.
type ActorType string

const (
	ActorOperator ActorType = "operator"
	ActorSystem   ActorType = "system"
)

// Actor encapsulates actor metadata for an event.
type Actor struct {
	Type       ActorType `json:"type"`
	OperatorID *string   `json:"operator_id,omitempty"`
}

// ActorFor returns the system actor when operatorID is nil.
func ActorFor(operatorID *string) Actor {
	if operatorID == nil {
		return Actor{Type: ActorSystem}
	}
	return Actor{Type: ActorOperator, OperatorID: operatorID}
}

// Event represents a domain event emitted by services.
type Event struct {
	ID        string    `json:"id"`
	Type      EventType `json:"type"`
	CallID    string    `json:"call_id"`
	Actor     Actor     `json:"actor"`
	Timestamp time.Time `json:"timestamp"`
	Payload   any       `json:"payload"`
}

// CallCreatedPayload payload.
type CallCreatedPayload struct {
	Reference    string          `json:"reference"`
	CallType     domain.CallType `json:"call_type"`
	Priority     int             `json:"priority"`
	PostalCode   string          `json:"postal_code"`
	TechnicianID *string         `json:"technician_id,omitempty"`
	AutoAssigned bool            `json:"auto_assigned"`
}

// CallAssignedPayload payload.
type CallAssignedPayload struct {
	Reference      string `json:"reference"`
	TechnicianID   string `json:"technician_id"`
	TechnicianName string `json:"technician_name"`
	Mobile         string `json:"technician_mobile,omitempty"`
	AutoAssigned   bool   `json:"auto_assigned"`
}

// CallStatusChangedPayload payload.
type CallStatusChangedPayload struct {
	Reference string           `json:"reference"`
	Action    string           `json:"action"`
	OldState  domain.CallState `json:"old_state"`
	NewState  domain.CallState `json:"new_state"`
	Comment   string           `json:"comment,omitempty"`
}

// CallSLABreachedPayload payload.
type CallSLABreachedPayload struct {
	Reference    string           `json:"reference"`
	State        domain.CallState `json:"state"`
	SLADeadline  time.Time        `json:"sla_deadline"`
	TechnicianID *string          `json:"technician_id,omitempty"`
}

// FeedbackSubmittedPayload payload.
type FeedbackSubmittedPayload struct {
	FeedbackID       string `json:"feedback_id"`
	Rating           int    `json:"rating"`
	RequiresFollowup bool   `json:"requires_followup"`
}
