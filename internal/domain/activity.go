package domain

import "time"

// ActivityKind distinguishes feed notes from scheduled to-dos.
type ActivityKind string

const (
	ActivityNote ActivityKind = "note"
	ActivityTodo ActivityKind = "todo"
)

// Record types that own an activity feed.
const (
	RecordTypeCall       = "call"
	RecordTypeFeedback   = "feedback"
	RecordTypeTechnician = "technician"
	RecordTypeClaim      = "claim"
)

// Activity is an append-only entry in a record's activity feed.
type Activity struct {
	ID         string
	RecordType string
	RecordID   string
	Kind       ActivityKind
	Body       string
	UserID     *string
	CreatedAt  time.Time
}
