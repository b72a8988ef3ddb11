package service

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

func (h *harness) resolvedCall(t *testing.T) *domain.ServiceCall {
	t.Helper()
	h.technician(t, "Ravi", "560001", 10)
	call := h.inProgressCall(t, "560001")
	call, err := h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "Replaced fan motor"})
	require.NoError(t, err)
	return call
}

func TestFeedbackFullFlowClosesResolvedCall(t *testing.T) {
	h := newHarness(t)
	call := h.resolvedCall(t)

	feedback, err := h.feedback.Create(h.ctx, FeedbackInput{CallID: call.ID, Rating: 2})
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackDraft, feedback.State)
	assert.Equal(t, domain.Dissatisfied, feedback.Satisfaction)
	assert.Equal(t, domain.VerifyBySMS, feedback.VerificationMethod)

	h.otp.codes = []string{"123456"}
	feedback, err = h.feedback.SendOTP(h.ctx, feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackOTPSent, feedback.State)
	assert.Equal(t, "9876543210", feedback.OTPSentTo)
	last := h.notifier.sms[len(h.notifier.sms)-1]
	assert.Contains(t, last.Body, "123456")

	feedback, err = h.feedback.VerifyOTP(h.ctx, feedback.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackVerified, feedback.State)

	again, err := h.feedback.VerifyOTP(h.ctx, feedback.ID, "123456")
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackVerified, again.State)

	feedback, err = h.feedback.Submit(h.ctx, nil, feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackSubmitted, feedback.State)
	assert.True(t, feedback.RequiresFollowup)
	require.NotNil(t, feedback.SubmittedAt)

	closed, err := h.calls.Get(h.ctx, call.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.CallStateClosed, closed.State)
	assert.Nil(t, closed.CurrentOTP)

	followups, err := h.activity.List(h.ctx, domain.RecordTypeFeedback, feedback.ID)
	require.NoError(t, err)
	var todos int
	for _, activity := range followups {
		if activity.Kind == domain.ActivityTodo {
			todos++
		}
	}
	assert.Equal(t, 1, todos)
	assert.Len(t, h.eventsOfType(events.EventFeedbackSubmitted), 1)

	_, err = h.feedback.Create(h.ctx, FeedbackInput{CallID: call.ID, Rating: 5})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeConflict))

	reviewed, err := h.feedback.Review(h.ctx, nil, feedback.ID, "called customer")
	require.NoError(t, err)
	assert.Equal(t, domain.FeedbackReviewed, reviewed.State)
}

func TestFeedbackAttemptsCooldownAndRegeneration(t *testing.T) {
	h := newHarness(t)
	call := h.resolvedCall(t)
	feedback, err := h.feedback.Create(h.ctx, FeedbackInput{CallID: call.ID, Rating: 4})
	require.NoError(t, err)

	h.otp.codes = []string{"111222", "333444"}
	_, err = h.feedback.SendOTP(h.ctx, feedback.ID)
	require.NoError(t, err)

	for remaining := 2; remaining >= 0; remaining-- {
		_, err = h.feedback.VerifyOTP(h.ctx, feedback.ID, "000000")
		require.Error(t, err)
		assert.True(t, apperrors.HasCode(err, apperrors.CodeOTPInvalidCode))
		assert.Equal(t, remaining, apperrors.ToDomainError(err).Details["remaining_attempts"])
	}
	_, err = h.feedback.VerifyOTP(h.ctx, feedback.ID, "111222")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOTPAttemptsExceeded))

	stored, err := h.feedback.Get(h.ctx, feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, 3, stored.OTPAttempts)
	assert.Equal(t, domain.FeedbackOTPSent, stored.State)

	h.clock.Advance(59 * time.Second)
	_, err = h.feedback.SendOTP(h.ctx, feedback.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOTPCooldownActive))

	h.clock.Advance(2 * time.Second)
	regenerated, err := h.feedback.SendOTP(h.ctx, feedback.ID)
	require.NoError(t, err)
	assert.Equal(t, 0, regenerated.OTPAttempts)

	verified, err := h.feedback.VerifyOTP(h.ctx, feedback.ID, "333444")
	require.NoError(t, err)
	assert.True(t, verified.OTPVerified)
}

func TestFeedbackOTPExpires(t *testing.T) {
	h := newHarness(t)
	call := h.resolvedCall(t)
	feedback, err := h.feedback.Create(h.ctx, FeedbackInput{CallID: call.ID, Rating: 5})
	require.NoError(t, err)

	h.otp.codes = []string{"555666"}
	_, err = h.feedback.SendOTP(h.ctx, feedback.ID)
	require.NoError(t, err)

	h.clock.Advance(11 * time.Minute)
	_, err = h.feedback.VerifyOTP(h.ctx, feedback.ID, "555666")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeOTPExpired))
}

func TestFeedbackRequiresContactForMethod(t *testing.T) {
	h := newHarness(t)
	h.technician(t, "Ravi", "560001", 10)
	call, _, err := h.calls.CreateServiceCall(h.ctx, nil, CreateCallInput{
		CallType:     domain.CallTypeRepair,
		CustomerName: "No Email",
		Mobile:       "9876543210",
		PostalCode:   "560001",
	})
	require.NoError(t, err)
	_, err = h.calls.Assign(h.ctx, nil, call.ID, nil)
	require.NoError(t, err)
	_, err = h.calls.Start(h.ctx, nil, call.ID)
	require.NoError(t, err)
	h.attach(t, call.ID)
	_, err = h.calls.Resolve(h.ctx, nil, call.ID, ResolveInput{Resolution: "done"})
	require.NoError(t, err)

	byEmail, err := h.feedback.Create(h.ctx, FeedbackInput{CallID: call.ID, Rating: 3, VerificationMethod: domain.VerifyByEmail})
	require.NoError(t, err)
	_, err = h.feedback.SendOTP(h.ctx, byEmail.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeNoContactInfo))

	both, err := h.feedback.Create(h.ctx, FeedbackInput{CallID: call.ID, Rating: 3, VerificationMethod: domain.VerifyByBoth})
	require.NoError(t, err)
	sent, err := h.feedback.SendOTP(h.ctx, both.ID)
	require.NoError(t, err)
	assert.Equal(t, "9876543210", sent.OTPSentTo)
}

func TestFeedbackGuards(t *testing.T) {
	h := newHarness(t)
	call, _ := h.newCall(t, "110001")

	_, err := h.feedback.Create(h.ctx, FeedbackInput{CallID: call.ID, Rating: 3})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))

	_, err = h.feedback.Create(h.ctx, FeedbackInput{CallID: call.ID, Rating: 6})
	assert.True(t, apperrors.HasCode(err, apperrors.CodeValidation))

	resolved := h.resolvedCall(t)
	feedback, err := h.feedback.Create(h.ctx, FeedbackInput{CallID: resolved.ID, Rating: 3})
	require.NoError(t, err)
	_, err = h.feedback.Submit(h.ctx, nil, feedback.ID)
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
	_, err = h.feedback.VerifyOTP(h.ctx, feedback.ID, "123456")
	assert.True(t, apperrors.HasCode(err, apperrors.CodeInvalidTransition))
}
