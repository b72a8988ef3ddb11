package service

import (
	"context"
	"time"
)

// ActivityLog appends notes to a record's activity feed.
type ActivityLog interface {
	Post(ctx context.Context, recordType, recordID, body string, userID *string) error
}

// TodoRequest describes a follow-up activity for a user.
type TodoRequest struct {
	RecordType string    `json:"record_type"`
	RecordID   string    `json:"record_id"`
	UserID     string    `json:"user_id"`
	Summary    string    `json:"summary"`
	Note       string    `json:"note,omitempty"`
	DueAt      time.Time `json:"due_at"`
}

// TaskScheduler schedules follow-up to-dos.
type TaskScheduler interface {
	ScheduleTodo(ctx context.Context, todo TodoRequest) error
}

// Notifier delivers messages to customers and technicians.
type Notifier interface {
	SendSMS(ctx context.Context, mobile, message string) error
	SendEmail(ctx context.Context, to, subject, body string) error
}

// Clock returns the current time.
type Clock func() time.Time

func clockOrDefault(c Clock) Clock {
	if c == nil {
		return time.Now
	}
	return c
}
