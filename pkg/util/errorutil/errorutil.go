package errorutil

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/jackc/pgx/v5"
)

// Error codes surfaced by the call engine.
const (
	CodeValidation            = "VALIDATION_FAILED"
	CodeNotFound              = "NOT_FOUND"
	CodeUnauthorized          = "UNAUTHORIZED"
	CodeForbidden             = "FORBIDDEN"
	CodeConflict              = "CONFLICT"
	CodeInternal              = "INTERNAL_ERROR"
	CodeInvalidTransition     = "INVALID_TRANSITION"
	CodeAttachmentsRequired   = "ATTACHMENTS_REQUIRED"
	CodeNoTechnicianAvailable = "NO_TECHNICIAN_AVAILABLE"
	CodeNoTATCategories       = "NO_TAT_CATEGORIES"
	CodeNoContactInfo         = "NO_CONTACT_INFO"
	CodeOTPCooldownActive     = "OTP_COOLDOWN_ACTIVE"
	CodeOTPExpired            = "OTP_EXPIRED"
	CodeOTPAttemptsExceeded   = "OTP_ATTEMPTS_EXCEEDED"
	CodeOTPInvalidCode        = "OTP_INVALID_CODE"
	CodeOTPNotGenerated       = "OTP_NOT_GENERATED"
	CodeRateLimited           = "RATE_LIMITED"
)

// DomainError standardizes application errors.
type DomainError struct {
	Code       string
	Message    string
	HTTPStatus int
	Details    map[string]any
	Err        error
}

func (e *DomainError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Err)
	}
	return e.Message
}

func (e *DomainError) Unwrap() error {
	return e.Err
}

// NewDomainError constructs a DomainError.
func NewDomainError(code, message string, status int, details map[string]any) *DomainError {
	return &DomainError{Code: code, Message: message, HTTPStatus: status, Details: details}
}

func NewValidationError(message string, details map[string]any) error {
	return NewDomainError(CodeValidation, message, http.StatusBadRequest, details)
}

func NewNotFound(resource string, details map[string]any) error {
	if details == nil {
		details = map[string]any{}
	}
	return &DomainError{
		Code:       CodeNotFound,
		Message:    fmt.Sprintf("%s not found", resource),
		HTTPStatus: http.StatusNotFound,
		Details:    details,
	}
}

func NewUnauthorized(message string) error {
	return NewDomainError(CodeUnauthorized, message, http.StatusUnauthorized, nil)
}

func NewForbidden(message string) error {
	return NewDomainError(CodeForbidden, message, http.StatusForbidden, nil)
}

func NewConflict(message string, details map[string]any) error {
	return NewDomainError(CodeConflict, message, http.StatusConflict, details)
}

func NewInternalError(err error) error {
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// NewInvalidTransition reports an action attempted from a state that does not allow it.
func NewInvalidTransition(action, current string, required []string) error {
	return NewDomainError(CodeInvalidTransition,
		fmt.Sprintf("cannot %s: state must be one of [%s]", action, strings.Join(required, ", ")),
		http.StatusConflict,
		map[string]any{"action": action, "current_state": current, "required_states": required})
}

func NewAttachmentsRequired(callRef string) error {
	return NewDomainError(CodeAttachmentsRequired, "at least one attachment is required",
		http.StatusUnprocessableEntity, map[string]any{"call": callRef})
}

func NewNoTechnicianAvailable(postalCode string) error {
	return NewDomainError(CodeNoTechnicianAvailable,
		fmt.Sprintf("no available technician for postal code %s", postalCode),
		http.StatusConflict, map[string]any{"postal_code": postalCode})
}

func NewNoTATCategories(servicePartnerID string) error {
	return NewDomainError(CodeNoTATCategories, "no TAT categories defined for this service partner",
		http.StatusUnprocessableEntity, map[string]any{"service_partner_id": servicePartnerID})
}

func NewNoContactInfo(method string) error {
	return NewDomainError(CodeNoContactInfo, "customer has no valid contact information for OTP delivery",
		http.StatusUnprocessableEntity, map[string]any{"verification_method": method})
}

func NewOTPCooldownActive(retryAfterSeconds int) error {
	return NewDomainError(CodeOTPCooldownActive, "please wait before requesting a new OTP",
		http.StatusTooManyRequests, map[string]any{"retry_after_seconds": retryAfterSeconds})
}

func NewRateLimited() error {
	return NewDomainError(CodeRateLimited, "rate limit exceeded, try again later", http.StatusTooManyRequests, nil)
}

func NewOTPExpired() error {
	return NewDomainError(CodeOTPExpired, "OTP has expired, generate a new one", http.StatusGone, nil)
}

func NewOTPAttemptsExceeded() error {
	return NewDomainError(CodeOTPAttemptsExceeded, "maximum OTP attempts exceeded, generate a new one",
		http.StatusLocked, map[string]any{"remaining_attempts": 0})
}

// NewOTPInvalidCode reports a mismatch. remaining < 0 means the variant has no attempt cap.
func NewOTPInvalidCode(remaining int) error {
	details := map[string]any{}
	message := "invalid OTP"
	if remaining >= 0 {
		details["remaining_attempts"] = remaining
		message = fmt.Sprintf("invalid OTP, %d attempts remaining", remaining)
	}
	return NewDomainError(CodeOTPInvalidCode, message, http.StatusUnprocessableEntity, details)
}

func NewOTPNotGenerated(message string) error {
	return NewDomainError(CodeOTPNotGenerated, message, http.StatusConflict, nil)
}

// HasCode reports whether err carries a DomainError with the given code.
func HasCode(err error, code string) bool {
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr.Code == code
	}
	return false
}

// ToDomainError converts generic errors to DomainError.
func ToDomainError(err error) *DomainError {
	if err == nil {
		return nil
	}
	var domainErr *DomainError
	if errors.As(err, &domainErr) {
		return domainErr
	}
	if errors.Is(err, pgx.ErrNoRows) {
		if de, ok := NewNotFound("resource", nil).(*DomainError); ok {
			return de
		}
	}
	if de, ok := NewInternalError(err).(*DomainError); ok {
		return de
	}
	return &DomainError{
		Code:       CodeInternal,
		Message:    "internal server error",
		HTTPStatus: http.StatusInternalServerError,
		Err:        err,
	}
}

// MapError normalises err into a DomainError, passing nil through.
func MapError(err error) error {
	if err == nil {
		return nil
	}
	return ToDomainError(err)
}
