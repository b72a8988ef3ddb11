// Package otp implements the numeric one-time codes that gate call closure and
// customer feedback submission. Codes are an operational confirmation step and
// are not generated with a cryptographic source.
package otp

import (
	"math"
	"math/rand"
	"strings"
	"time"

	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

const (
	CallClosureLength   = 5
	FeedbackLength      = 6
	FeedbackValidity    = 10 * time.Minute
	FeedbackCooldown    = time.Minute
	FeedbackMaxAttempts = 3
)

// Generator produces fixed-length decimal codes.
type Generator interface {
	Generate(length int) string
}

// RandomGenerator draws each digit uniformly.
type RandomGenerator struct{}

// Generate returns a string of length random digits.
func (RandomGenerator) Generate(length int) string {
	var b strings.Builder
	b.Grow(length)
	for i := 0; i < length; i++ {
		b.WriteByte(byte('0' + rand.Intn(10)))
	}
	return b.String()
}

// Policy bounds a challenge. Zero values disable the matching check.
type Policy struct {
	Validity    time.Duration
	Cooldown    time.Duration
	MaxAttempts int
}

// FeedbackPolicy applies to customer feedback verification.
var FeedbackPolicy = Policy{
	Validity:    FeedbackValidity,
	Cooldown:    FeedbackCooldown,
	MaxAttempts: FeedbackMaxAttempts,
}

// Challenge is the mutable verification state carried by the owning record.
type Challenge struct {
	Code        string
	GeneratedAt time.Time
	Attempts    int
	Verified    bool
}

// Issue generates a fresh code, resetting attempts. It fails while the cooldown is active.
func (c *Challenge) Issue(gen Generator, length int, policy Policy, now time.Time) error {
	if c.Code != "" && !c.GeneratedAt.IsZero() && policy.Cooldown > 0 {
		elapsed := now.Sub(c.GeneratedAt)
		if elapsed < policy.Cooldown {
			wait := int(math.Ceil((policy.Cooldown - elapsed).Seconds()))
			return apperrors.NewOTPCooldownActive(wait)
		}
	}
	c.Code = gen.Generate(length)
	c.GeneratedAt = now
	c.Attempts = 0
	c.Verified = false
	return nil
}

// Verify checks a submitted code. A mismatch consumes one attempt.
// Re-verifying an already verified code succeeds without side effects.
func (c *Challenge) Verify(code string, policy Policy, now time.Time) error {
	if c.Code == "" {
		return apperrors.NewOTPNotGenerated("no verification code has been generated")
	}
	if c.Verified && code == c.Code {
		return nil
	}
	if policy.Validity > 0 && now.Sub(c.GeneratedAt) > policy.Validity {
		return apperrors.NewOTPExpired()
	}
	if policy.MaxAttempts > 0 && c.Attempts >= policy.MaxAttempts {
		return apperrors.NewOTPAttemptsExceeded()
	}
	if code != c.Code {
		c.Attempts++
		return apperrors.NewOTPInvalidCode(c.RemainingAttempts(policy))
	}
	c.Verified = true
	return nil
}

// RemainingAttempts returns -1 when the policy has no attempt cap.
func (c *Challenge) RemainingAttempts(policy Policy) int {
	if policy.MaxAttempts <= 0 {
		return -1
	}
	remaining := policy.MaxAttempts - c.Attempts
	if remaining < 0 {
		return 0
	}
	return remaining
}

// VerifyClosureCode checks the code entered to close a resolved call.
// The closure variant has no expiry and no attempt cap.
func VerifyClosureCode(expected, entered string) error {
	if expected == "" {
		return apperrors.NewOTPNotGenerated("no OTP found for this call, resolve the call first")
	}
	if entered != expected {
		return apperrors.NewOTPInvalidCode(-1)
	}
	return nil
}
