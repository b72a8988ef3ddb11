package domain

import "time"

// FeedbackState is the customer feedback verification workflow.
type FeedbackState string

const (
	FeedbackDraft     FeedbackState = "draft"
	FeedbackOTPSent   FeedbackState = "otp_sent"
	FeedbackVerified  FeedbackState = "verified"
	FeedbackSubmitted FeedbackState = "submitted"
	FeedbackReviewed  FeedbackState = "reviewed"
)

// VerificationMethod selects the OTP delivery channel.
type VerificationMethod string

const (
	VerifyBySMS   VerificationMethod = "sms"
	VerifyByEmail VerificationMethod = "email"
	VerifyByBoth  VerificationMethod = "both"
)

// Valid reports whether the method is known.
func (m VerificationMethod) Valid() bool {
	return m == VerifyBySMS || m == VerifyByEmail || m == VerifyByBoth
}

// Satisfaction is derived from the overall rating.
type Satisfaction string

const (
	HighlySatisfied    Satisfaction = "highly_satisfied"
	Satisfied          Satisfaction = "satisfied"
	Neutral            Satisfaction = "neutral"
	Dissatisfied       Satisfaction = "dissatisfied"
	HighlyDissatisfied Satisfaction = "highly_dissatisfied"
)

// SatisfactionForRating maps a 1-5 rating.
func SatisfactionForRating(rating int) Satisfaction {
	switch {
	case rating >= 5:
		return HighlySatisfied
	case rating == 4:
		return Satisfied
	case rating == 3:
		return Neutral
	case rating == 2:
		return Dissatisfied
	default:
		return HighlyDissatisfied
	}
}

// FollowupRatingThreshold is the highest rating that still requires a follow-up.
const FollowupRatingThreshold = 2

// Feedback is a customer's OTP-verified rating of a service call.
type Feedback struct {
	ID                 string
	CallID             string
	Rating             int
	Satisfaction       Satisfaction
	Punctuality        string
	Professionalism    string
	ProblemResolution  string
	WouldRecommend     bool
	PositiveFeedback   string
	ImprovementAreas   string
	AdditionalComments string
	VerificationMethod VerificationMethod
	OTPCode            *string
	OTPGeneratedAt     *time.Time
	OTPAttempts        int
	OTPVerified        bool
	OTPSentTo          string
	State              FeedbackState
	SubmittedAt        *time.Time
	SubmittedBy        *string
	ReviewedAt         *time.Time
	ReviewedBy         *string
	ReviewNotes        string
	RequiresFollowup   bool
	FollowupDone       bool
	CreatedAt          time.Time
	UpdatedAt          time.Time
}
