package domain

import "time"

// NotificationType identifies why a notification transaction was recorded.
type NotificationType string

const (
	NotificationCallCreated   NotificationType = "call_created"
	NotificationCallAssigned  NotificationType = "call_assigned"
	NotificationCallStarted   NotificationType = "call_started"
	NotificationCallResolved  NotificationType = "call_resolved"
	NotificationCallClosed    NotificationType = "call_closed"
	NotificationCallCancelled NotificationType = "call_cancelled"
	NotificationStatusChanged NotificationType = "status_changed"
	NotificationOTPGenerated  NotificationType = "otp_generated"
	NotificationOTPVerified   NotificationType = "otp_verified"
)

// NotificationTransaction is an append-only audit record of a call status change.
// Only the OTP verification fields change after creation.
type NotificationTransaction struct {
	ID               string
	CallID           string
	TechnicianID     *string
	ServicePartnerID *string
	Type             NotificationType
	OldStatus        CallState
	NewStatus        CallState
	Description      string
	OTPCode          *string
	OTPGeneratedAt   *time.Time
	OTPVerified      bool
	CreatedBy        *string
	CreatedAt        time.Time
}

// HasOTP reports whether the record carries a closure code.
func (n *NotificationTransaction) HasOTP() bool {
	return n.OTPCode != nil && *n.OTPCode != ""
}
