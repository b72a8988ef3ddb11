package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/otp"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// FeedbackService runs the OTP-verified customer feedback workflow.
type FeedbackService struct {
	feedbacks   repository.FeedbackRepository
	calls       repository.CallRepository
	technicians repository.TechnicianRepository
	callService *CallService
	otp         otp.Generator
	notifier    Notifier
	activity    ActivityLog
	scheduler   TaskScheduler
	dispatcher  events.Dispatcher
	logger      *zap.Logger
	now         Clock
}

// FeedbackDependencies bundles collaborators.
type FeedbackDependencies struct {
	FeedbackRepo   repository.FeedbackRepository
	CallRepo       repository.CallRepository
	TechnicianRepo repository.TechnicianRepository
	CallService    *CallService
	OTP            otp.Generator
	Notifier       Notifier
	Activity       ActivityLog
	Scheduler      TaskScheduler
	Dispatcher     events.Dispatcher
	Logger         *zap.Logger
	Clock          Clock
}

// NewFeedbackService constructs the service.
func NewFeedbackService(deps FeedbackDependencies) *FeedbackService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	generator := deps.OTP
	if generator == nil {
		generator = otp.RandomGenerator{}
	}
	return &FeedbackService{
		feedbacks:   deps.FeedbackRepo,
		calls:       deps.CallRepo,
		technicians: deps.TechnicianRepo,
		callService: deps.CallService,
		otp:         generator,
		notifier:    deps.Notifier,
		activity:    deps.Activity,
		scheduler:   deps.Scheduler,
		dispatcher:  deps.Dispatcher,
		logger:      logger,
		now:         clockOrDefault(deps.Clock),
	}
}

// FeedbackInput captures a customer's rating of a call.
type FeedbackInput struct {
	CallID             string
	Rating             int
	Punctuality        string
	Professionalism    string
	ProblemResolution  string
	WouldRecommend     bool
	PositiveFeedback   string
	ImprovementAreas   string
	AdditionalComments string
	VerificationMethod domain.VerificationMethod
}

// Create records a draft feedback. A call accepts at most one submitted feedback.
func (s *FeedbackService) Create(ctx context.Context, input FeedbackInput) (*domain.Feedback, error) {
	if input.Rating < 1 || input.Rating > 5 {
		return nil, apperrors.NewValidationError("rating must be between 1 and 5", map[string]any{"rating": input.Rating})
	}
	method := input.VerificationMethod
	if method == "" {
		method = domain.VerifyBySMS
	}
	if !method.Valid() {
		return nil, apperrors.NewValidationError("invalid verification method", map[string]any{"verification_method": method})
	}
	call, err := s.loadCall(ctx, input.CallID)
	if err != nil {
		return nil, err
	}
	if call.State != domain.CallStateResolved && call.State != domain.CallStateClosed {
		return nil, apperrors.NewInvalidTransition("feedback", string(call.State),
			[]string{string(domain.CallStateResolved), string(domain.CallStateClosed)})
	}
	submitted, err := s.feedbacks.HasSubmitted(ctx, call.ID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if submitted {
		return nil, apperrors.NewConflict("feedback already submitted for this service call", map[string]any{"call_id": call.ID})
	}

	feedback := &domain.Feedback{
		CallID:             call.ID,
		Rating:             input.Rating,
		Satisfaction:       domain.SatisfactionForRating(input.Rating),
		Punctuality:        strings.TrimSpace(input.Punctuality),
		Professionalism:    strings.TrimSpace(input.Professionalism),
		ProblemResolution:  strings.TrimSpace(input.ProblemResolution),
		WouldRecommend:     input.WouldRecommend,
		PositiveFeedback:   strings.TrimSpace(input.PositiveFeedback),
		ImprovementAreas:   strings.TrimSpace(input.ImprovementAreas),
		AdditionalComments: strings.TrimSpace(input.AdditionalComments),
		VerificationMethod: method,
		State:              domain.FeedbackDraft,
		RequiresFollowup:   input.Rating <= domain.FollowupRatingThreshold,
	}
	if err := s.feedbacks.Create(ctx, feedback); err != nil {
		return nil, apperrors.MapError(err)
	}
	return feedback, nil
}

// SendOTP issues a verification code and delivers it over the selected channels.
func (s *FeedbackService) SendOTP(ctx context.Context, feedbackID string) (*domain.Feedback, error) {
	feedback, err := s.load(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	if feedback.State != domain.FeedbackDraft && feedback.State != domain.FeedbackOTPSent {
		return nil, apperrors.NewInvalidTransition("send_otp", string(feedback.State),
			[]string{string(domain.FeedbackDraft), string(domain.FeedbackOTPSent)})
	}
	call, err := s.loadCall(ctx, feedback.CallID)
	if err != nil {
		return nil, err
	}
	sendSMS, sendEmail, err := selectChannels(feedback.VerificationMethod, call)
	if err != nil {
		return nil, err
	}

	challenge := challengeOf(feedback)
	if err := challenge.Issue(s.otp, otp.FeedbackLength, otp.FeedbackPolicy, s.now()); err != nil {
		return nil, err
	}
	applyChallenge(feedback, challenge)
	feedback.State = domain.FeedbackOTPSent

	var targets []string
	if sendSMS {
		targets = append(targets, call.Mobile)
	}
	if sendEmail {
		targets = append(targets, call.Email)
	}
	feedback.OTPSentTo = strings.Join(targets, ", ")
	if err := s.feedbacks.Update(ctx, feedback); err != nil {
		return nil, apperrors.MapError(err)
	}

	s.deliver(ctx, feedback, call, challenge.Code, sendSMS, sendEmail)
	return feedback, nil
}

// VerifyOTP checks the customer's code. Mismatches consume attempts even though the call fails.
func (s *FeedbackService) VerifyOTP(ctx context.Context, feedbackID, code string) (*domain.Feedback, error) {
	feedback, err := s.load(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	code = strings.TrimSpace(code)
	challenge := challengeOf(feedback)

	if feedback.OTPVerified {
		if err := challenge.Verify(code, otp.FeedbackPolicy, s.now()); err != nil {
			return nil, err
		}
		return feedback, nil
	}
	if feedback.State != domain.FeedbackOTPSent {
		return nil, apperrors.NewInvalidTransition("verify_otp", string(feedback.State), []string{string(domain.FeedbackOTPSent)})
	}

	verifyErr := challenge.Verify(code, otp.FeedbackPolicy, s.now())
	if verifyErr != nil && challenge.Attempts == feedback.OTPAttempts {
		return nil, verifyErr
	}
	applyChallenge(feedback, challenge)
	if verifyErr == nil {
		feedback.State = domain.FeedbackVerified
	}
	if err := s.feedbacks.Update(ctx, feedback); err != nil {
		return nil, apperrors.MapError(err)
	}
	if verifyErr != nil {
		return nil, verifyErr
	}
	s.postNote(ctx, feedback.ID, "Customer verified the feedback OTP", nil)
	return feedback, nil
}

// Submit finalises verified feedback. A resolved call is closed on the customer's behalf.
func (s *FeedbackService) Submit(ctx context.Context, actorID *string, feedbackID string) (*domain.Feedback, error) {
	feedback, err := s.load(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	if feedback.State != domain.FeedbackVerified || !feedback.OTPVerified {
		return nil, apperrors.NewInvalidTransition("submit", string(feedback.State), []string{string(domain.FeedbackVerified)})
	}
	submitted, err := s.feedbacks.HasSubmitted(ctx, feedback.CallID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	if submitted {
		return nil, apperrors.NewConflict("feedback already submitted for this service call", map[string]any{"call_id": feedback.CallID})
	}

	now := s.now()
	feedback.State = domain.FeedbackSubmitted
	feedback.SubmittedAt = &now
	feedback.SubmittedBy = actorID
	feedback.RequiresFollowup = feedback.Rating <= domain.FollowupRatingThreshold
	if err := s.feedbacks.Update(ctx, feedback); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("feedback already submitted for this service call", map[string]any{"call_id": feedback.CallID})
		}
		return nil, apperrors.MapError(err)
	}

	call, err := s.loadCall(ctx, feedback.CallID)
	if err != nil {
		return nil, err
	}
	if call.State == domain.CallStateResolved && s.callService != nil {
		if _, err := s.callService.CloseAfterFeedback(ctx, actorID, call.ID, feedback.ID); err != nil {
			s.logger.Warn("call not closed after feedback",
				zap.String("reference", call.Reference),
				zap.String("feedback_id", feedback.ID),
				zap.Error(err))
			s.postNote(ctx, feedback.ID, fmt.Sprintf("Service call %s could not be closed: %v", call.Reference, err), actorID)
		}
	}

	if feedback.RequiresFollowup {
		s.scheduleFollowup(ctx, feedback, call, actorID)
	}
	if s.dispatcher != nil {
		_ = s.dispatcher.Publish(ctx, events.Event{
			ID:        uuid.NewString(),
			Type:      events.EventFeedbackSubmitted,
			CallID:    call.ID,
			Actor:     events.ActorFor(actorID),
			Timestamp: now,
			Payload: events.FeedbackSubmittedPayload{
				FeedbackID:       feedback.ID,
				Rating:           feedback.Rating,
				RequiresFollowup: feedback.RequiresFollowup,
			},
		})
	}
	return feedback, nil
}

// Review marks submitted feedback as reviewed by an operator.
func (s *FeedbackService) Review(ctx context.Context, actorID *string, feedbackID, notes string) (*domain.Feedback, error) {
	feedback, err := s.load(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	if feedback.State != domain.FeedbackSubmitted {
		return nil, apperrors.NewInvalidTransition("review", string(feedback.State), []string{string(domain.FeedbackSubmitted)})
	}
	now := s.now()
	feedback.State = domain.FeedbackReviewed
	feedback.ReviewedAt = &now
	feedback.ReviewedBy = actorID
	feedback.ReviewNotes = strings.TrimSpace(notes)
	if err := s.feedbacks.Update(ctx, feedback); err != nil {
		return nil, apperrors.MapError(err)
	}
	return feedback, nil
}

// MarkFollowupDone closes the follow-up on low-rated feedback.
func (s *FeedbackService) MarkFollowupDone(ctx context.Context, actorID *string, feedbackID string) (*domain.Feedback, error) {
	feedback, err := s.load(ctx, feedbackID)
	if err != nil {
		return nil, err
	}
	if !feedback.RequiresFollowup {
		return nil, apperrors.NewConflict("feedback does not require follow-up", map[string]any{"feedback_id": feedbackID})
	}
	if feedback.FollowupDone {
		return feedback, nil
	}
	feedback.FollowupDone = true
	if err := s.feedbacks.Update(ctx, feedback); err != nil {
		return nil, apperrors.MapError(err)
	}
	s.postNote(ctx, feedback.ID, "Follow-up completed", actorID)
	return feedback, nil
}

// Get fetches feedback by id.
func (s *FeedbackService) Get(ctx context.Context, feedbackID string) (*domain.Feedback, error) {
	return s.load(ctx, feedbackID)
}

// ListByCall returns all feedback recorded for a call.
func (s *FeedbackService) ListByCall(ctx context.Context, callID string) ([]domain.Feedback, error) {
	if _, err := s.loadCall(ctx, callID); err != nil {
		return nil, err
	}
	feedbacks, err := s.feedbacks.ListByCall(ctx, callID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return feedbacks, nil
}

// selectChannels picks delivery channels for the method. "both" uses whatever contact exists.
func selectChannels(method domain.VerificationMethod, call *domain.ServiceCall) (sms bool, email bool, err error) {
	hasMobile := strings.TrimSpace(call.Mobile) != ""
	hasEmail := strings.TrimSpace(call.Email) != ""
	switch method {
	case domain.VerifyBySMS:
		sms = hasMobile
	case domain.VerifyByEmail:
		email = hasEmail
	case domain.VerifyByBoth:
		sms, email = hasMobile, hasEmail
	}
	if !sms && !email {
		return false, false, apperrors.NewNoContactInfo(string(method))
	}
	return sms, email, nil
}

func challengeOf(feedback *domain.Feedback) otp.Challenge {
	challenge := otp.Challenge{Attempts: feedback.OTPAttempts, Verified: feedback.OTPVerified}
	if feedback.OTPCode != nil {
		challenge.Code = *feedback.OTPCode
	}
	if feedback.OTPGeneratedAt != nil {
		challenge.GeneratedAt = *feedback.OTPGeneratedAt
	}
	return challenge
}

func applyChallenge(feedback *domain.Feedback, challenge otp.Challenge) {
	code := challenge.Code
	generatedAt := challenge.GeneratedAt
	feedback.OTPCode = &code
	feedback.OTPGeneratedAt = &generatedAt
	feedback.OTPAttempts = challenge.Attempts
	feedback.OTPVerified = challenge.Verified
}

func (s *FeedbackService) deliver(ctx context.Context, feedback *domain.Feedback, call *domain.ServiceCall, code string, sms, email bool) {
	if s.notifier == nil {
		return
	}
	message := fmt.Sprintf("Your feedback verification code for service call %s is %s. It is valid for %d minutes.",
		call.Reference, code, int(otp.FeedbackValidity.Minutes()))
	if sms {
		if err := s.notifier.SendSMS(ctx, call.Mobile, message); err != nil {
			s.logger.Warn("feedback otp sms failed", zap.String("feedback_id", feedback.ID), zap.Error(err))
			s.postNote(ctx, feedback.ID, fmt.Sprintf("OTP SMS delivery to %s failed: %v", call.Mobile, err), nil)
		}
	}
	if email {
		subject := fmt.Sprintf("Feedback verification for %s", call.Reference)
		if err := s.notifier.SendEmail(ctx, call.Email, subject, message); err != nil {
			s.logger.Warn("feedback otp email failed", zap.String("feedback_id", feedback.ID), zap.Error(err))
			s.postNote(ctx, feedback.ID, fmt.Sprintf("OTP email delivery to %s failed: %v", call.Email, err), nil)
		}
	}
}

func (s *FeedbackService) scheduleFollowup(ctx context.Context, feedback *domain.Feedback, call *domain.ServiceCall, actorID *string) {
	if s.scheduler == nil {
		return
	}
	var userID string
	if call.TechnicianID != nil {
		technician, err := s.technicians.GetByID(ctx, *call.TechnicianID)
		if err == nil {
			userID = technician.UserID
		}
	}
	if userID == "" && actorID != nil {
		userID = *actorID
	}
	todo := TodoRequest{
		RecordType: domain.RecordTypeFeedback,
		RecordID:   feedback.ID,
		UserID:     userID,
		Summary:    fmt.Sprintf("Follow up low rating on %s", call.Reference),
		Note:       fmt.Sprintf("Customer %s rated the service %d/5", call.CustomerName, feedback.Rating),
		DueAt:      s.now(),
	}
	if err := s.scheduler.ScheduleTodo(ctx, todo); err != nil {
		s.logger.Warn("follow-up scheduling failed", zap.String("feedback_id", feedback.ID), zap.Error(err))
	}
}

func (s *FeedbackService) postNote(ctx context.Context, feedbackID, body string, actorID *string) {
	if s.activity == nil {
		return
	}
	if err := s.activity.Post(ctx, domain.RecordTypeFeedback, feedbackID, body, actorID); err != nil {
		s.logger.Warn("activity note failed", zap.String("feedback_id", feedbackID), zap.Error(err))
	}
}

func (s *FeedbackService) load(ctx context.Context, feedbackID string) (*domain.Feedback, error) {
	feedback, err := s.feedbacks.GetByID(ctx, feedbackID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("feedback", map[string]any{"feedback_id": feedbackID})
		}
		return nil, apperrors.MapError(err)
	}
	return feedback, nil
}

func (s *FeedbackService) loadCall(ctx context.Context, callID string) (*domain.ServiceCall, error) {
	call, err := s.calls.GetByID(ctx, callID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service call", map[string]any{"call_id": callID})
		}
		return nil, apperrors.MapError(err)
	}
	return call, nil
}
