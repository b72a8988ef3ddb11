package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

// FeedbackHandler runs the OTP-verified customer feedback flow.
type FeedbackHandler struct {
	feedback *service.FeedbackService
}

// NewFeedbackHandler constructs handler.
func NewFeedbackHandler(feedback *service.FeedbackService) *FeedbackHandler {
	return &FeedbackHandler{feedback: feedback}
}

// Create POST /feedback.
func (h *FeedbackHandler) Create(c *fiber.Ctx) error {
	var req dto.CreateFeedbackRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	feedback, err := h.feedback.Create(c.UserContext(), req.ToInput())
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewFeedbackResponse(feedback)})
}

// Get GET /feedback/:id.
func (h *FeedbackHandler) Get(c *fiber.Ctx) error {
	feedback, err := h.feedback.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respondFeedback(c, feedback)
}

// ListByCall GET /calls/:id/feedback.
func (h *FeedbackHandler) ListByCall(c *fiber.Ctx) error {
	items, err := h.feedback.ListByCall(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	out := make([]dto.FeedbackResponse, 0, len(items))
	for i := range items {
		out = append(out, dto.NewFeedbackResponse(&items[i]))
	}
	return c.JSON(fiber.Map{"data": out})
}

// SendOTP POST /feedback/:id/otp.
func (h *FeedbackHandler) SendOTP(c *fiber.Ctx) error {
	feedback, err := h.feedback.SendOTP(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return respondFeedback(c, feedback)
}

// VerifyOTP POST /feedback/:id/verify.
func (h *FeedbackHandler) VerifyOTP(c *fiber.Ctx) error {
	var req dto.VerifyOTPRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	feedback, err := h.feedback.VerifyOTP(c.UserContext(), c.Params("id"), req.OTP)
	if err != nil {
		return err
	}
	return respondFeedback(c, feedback)
}

// Submit POST /feedback/:id/submit.
func (h *FeedbackHandler) Submit(c *fiber.Ctx) error {
	feedback, err := h.feedback.Submit(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respondFeedback(c, feedback)
}

// Review POST /feedback/:id/review.
func (h *FeedbackHandler) Review(c *fiber.Ctx) error {
	var req dto.ReviewRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	feedback, err := h.feedback.Review(c.UserContext(), actorID(c), c.Params("id"), req.Notes)
	if err != nil {
		return err
	}
	return respondFeedback(c, feedback)
}

// FollowupDone POST /feedback/:id/followup-done.
func (h *FeedbackHandler) FollowupDone(c *fiber.Ctx) error {
	feedback, err := h.feedback.MarkFollowupDone(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return respondFeedback(c, feedback)
}

func respondFeedback(c *fiber.Ctx, feedback *domain.Feedback) error {
	return c.JSON(fiber.Map{"data": dto.NewFeedbackResponse(feedback)})
}
