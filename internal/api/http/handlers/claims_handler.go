package handlers

import (
	"context"
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
)

// ClaimsHandler manages service partners, TAT tiers and payout claims.
type ClaimsHandler struct {
	claims *service.ClaimService
}

// NewClaimsHandler constructs handler.
func NewClaimsHandler(claims *service.ClaimService) *ClaimsHandler {
	return &ClaimsHandler{claims: claims}
}

// CreatePartner POST /partners.
func (h *ClaimsHandler) CreatePartner(c *fiber.Ctx) error {
	var req dto.CreatePartnerRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	partner, err := h.claims.CreatePartner(c.UserContext(), req.Name)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewPartnerResponse(partner)})
}

// CreateTATCategory POST /partners/:id/tat-categories.
func (h *ClaimsHandler) CreateTATCategory(c *fiber.Ctx) error {
	var req dto.CreateTATCategoryRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	category, err := h.claims.CreateTATCategory(c.UserContext(), c.Params("id"), req.Name, req.Days, req.Amount)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewTATCategoryResponse(category)})
}

// ListTATCategories GET /partners/:id/tat-categories.
func (h *ClaimsHandler) ListTATCategories(c *fiber.Ctx) error {
	categories, err := h.claims.ListTATCategories(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	items := make([]dto.TATCategoryResponse, 0, len(categories))
	for i := range categories {
		items = append(items, dto.NewTATCategoryResponse(&categories[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// CreateClaim POST /claims.
func (h *ClaimsHandler) CreateClaim(c *fiber.Ctx) error {
	var req dto.CreateClaimRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	start, end := req.Period()
	claim, err := h.claims.CreateClaim(c.UserContext(), actorID(c), req.ServicePartnerID, start, end)
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewClaimResponse(claim)})
}

// Calculate POST /claims/:id/calculate.
func (h *ClaimsHandler) Calculate(c *fiber.Ctx) error {
	claim, err := h.claims.Calculate(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClaimResponse(claim)})
}

// Get GET /claims/:id.
func (h *ClaimsHandler) Get(c *fiber.Ctx) error {
	claim, err := h.claims.Get(c.UserContext(), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClaimResponse(claim)})
}

// Submit POST /claims/:id/submit.
func (h *ClaimsHandler) Submit(c *fiber.Ctx) error {
	return h.step(c, h.claims.Submit)
}

// Verify POST /claims/:id/verify.
func (h *ClaimsHandler) Verify(c *fiber.Ctx) error {
	return h.step(c, h.claims.Verify)
}

// Approve POST /claims/:id/approve.
func (h *ClaimsHandler) Approve(c *fiber.Ctx) error {
	return h.step(c, h.claims.Approve)
}

// Cancel POST /claims/:id/cancel.
func (h *ClaimsHandler) Cancel(c *fiber.Ctx) error {
	return h.step(c, h.claims.Cancel)
}

// Pay POST /claims/:id/pay.
func (h *ClaimsHandler) Pay(c *fiber.Ctx) error {
	var req dto.PayClaimRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	claim, err := h.claims.Pay(c.UserContext(), actorID(c), c.Params("id"), service.PaymentInput{
		Method:    domain.PaymentMethod(req.PaymentMethod),
		Reference: req.PaymentReference,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClaimResponse(claim)})
}

// Reject POST /claims/:id/reject.
func (h *ClaimsHandler) Reject(c *fiber.Ctx) error {
	var req dto.RejectClaimRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	claim, err := h.claims.Reject(c.UserContext(), actorID(c), c.Params("id"), req.Reason)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClaimResponse(claim)})
}

type claimStep func(ctx context.Context, actorID *string, claimID string) (*domain.Claim, error)

func (h *ClaimsHandler) step(c *fiber.Ctx, run claimStep) error {
	claim, err := run(c.UserContext(), actorID(c), c.Params("id"))
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewClaimResponse(claim)})
}
