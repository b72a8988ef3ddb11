package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

// CreateFeedbackRequest payload.
type CreateFeedbackRequest struct {
	CallID             string                    `json:"call_id" validate:"required"`
	Rating             int                       `json:"rating" validate:"required,min=1,max=5"`
	Punctuality        string                    `json:"punctuality"`
	Professionalism    string                    `json:"professionalism"`
	ProblemResolution  string                    `json:"problem_resolution"`
	WouldRecommend     bool                      `json:"would_recommend"`
	PositiveFeedback   string                    `json:"positive_feedback"`
	ImprovementAreas   string                    `json:"improvement_areas"`
	AdditionalComments string                    `json:"additional_comments"`
	VerificationMethod domain.VerificationMethod `json:"verification_method" validate:"omitempty,oneof=sms email both"`
}

// ToInput converts the request into a service input.
func (r CreateFeedbackRequest) ToInput() service.FeedbackInput {
	return service.FeedbackInput{
		CallID:             r.CallID,
		Rating:             r.Rating,
		Punctuality:        r.Punctuality,
		Professionalism:    r.Professionalism,
		ProblemResolution:  r.ProblemResolution,
		WouldRecommend:     r.WouldRecommend,
		PositiveFeedback:   r.PositiveFeedback,
		ImprovementAreas:   r.ImprovementAreas,
		AdditionalComments: r.AdditionalComments,
		VerificationMethod: r.VerificationMethod,
	}
}

// VerifyOTPRequest payload.
type VerifyOTPRequest struct {
	OTP string `json:"otp" validate:"required,max=12"`
}

// ReviewRequest payload.
type ReviewRequest struct {
	Notes string `json:"notes" validate:"max=2000"`
}

// FeedbackResponse is the public view of a feedback. The OTP code is never exposed.
type FeedbackResponse struct {
	ID                 string                    `json:"id"`
	CallID             string                    `json:"call_id"`
	Rating             int                       `json:"rating"`
	Satisfaction       domain.Satisfaction       `json:"satisfaction"`
	Punctuality        string                    `json:"punctuality,omitempty"`
	Professionalism    string                    `json:"professionalism,omitempty"`
	ProblemResolution  string                    `json:"problem_resolution,omitempty"`
	WouldRecommend     bool                      `json:"would_recommend"`
	PositiveFeedback   string                    `json:"positive_feedback,omitempty"`
	ImprovementAreas   string                    `json:"improvement_areas,omitempty"`
	AdditionalComments string                    `json:"additional_comments,omitempty"`
	VerificationMethod domain.VerificationMethod `json:"verification_method"`
	OTPSentTo          string                    `json:"otp_sent_to,omitempty"`
	OTPGeneratedAt     *time.Time                `json:"otp_generated_at,omitempty"`
	OTPAttempts        int                       `json:"otp_attempts"`
	OTPVerified        bool                      `json:"otp_verified"`
	State              domain.FeedbackState      `json:"state"`
	SubmittedAt        *time.Time                `json:"submitted_at,omitempty"`
	ReviewedAt         *time.Time                `json:"reviewed_at,omitempty"`
	ReviewNotes        string                    `json:"review_notes,omitempty"`
	RequiresFollowup   bool                      `json:"requires_followup"`
	FollowupDone       bool                      `json:"followup_done"`
	CreatedAt          time.Time                 `json:"created_at"`
}

// NewFeedbackResponse maps a feedback.
func NewFeedbackResponse(f *domain.Feedback) FeedbackResponse {
	return FeedbackResponse{
		ID:                 f.ID,
		CallID:             f.CallID,
		Rating:             f.Rating,
		Satisfaction:       f.Satisfaction,
		Punctuality:        f.Punctuality,
		Professionalism:    f.Professionalism,
		ProblemResolution:  f.ProblemResolution,
		WouldRecommend:     f.WouldRecommend,
		PositiveFeedback:   f.PositiveFeedback,
		ImprovementAreas:   f.ImprovementAreas,
		AdditionalComments: f.AdditionalComments,
		VerificationMethod: f.VerificationMethod,
		OTPSentTo:          f.OTPSentTo,
		OTPGeneratedAt:     f.OTPGeneratedAt,
		OTPAttempts:        f.OTPAttempts,
		OTPVerified:        f.OTPVerified,
		State:              f.State,
		SubmittedAt:        f.SubmittedAt,
		ReviewedAt:         f.ReviewedAt,
		ReviewNotes:        f.ReviewNotes,
		RequiresFollowup:   f.RequiresFollowup,
		FollowupDone:       f.FollowupDone,
		CreatedAt:          f.CreatedAt,
	}
}
