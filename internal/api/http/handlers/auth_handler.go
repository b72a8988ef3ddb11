package handlers

import (
	"net/http"

	"github.com/gofiber/fiber/v2"

	"github.com/spec-kit/field-service/internal/api/dto"
	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/service"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// AuthHandler exposes login and operator management.
type AuthHandler struct {
	authService     *service.AuthService
	operatorService *service.OperatorService
}

// NewAuthHandler constructs handler.
func NewAuthHandler(authService *service.AuthService, operatorService *service.OperatorService) *AuthHandler {
	return &AuthHandler{authService: authService, operatorService: operatorService}
}

// Login handles POST /auth/login.
func (h *AuthHandler) Login(c *fiber.Ctx) error {
	var req dto.LoginRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	operator, token, exp, err := h.authService.Login(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.AuthResponse{
		Token:     token,
		ExpiresAt: exp,
		Operator:  dto.NewOperatorResponse(operator),
	}})
}

// Me handles GET /auth/me.
func (h *AuthHandler) Me(c *fiber.Ctx) error {
	operator, err := currentOperator(c)
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperatorResponse(operator)})
}

// ChangePassword handles POST /auth/password/change.
func (h *AuthHandler) ChangePassword(c *fiber.Ctx) error {
	operator, err := currentOperator(c)
	if err != nil {
		return err
	}
	var req dto.PasswordChangeRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	if err := h.authService.ChangePassword(c.UserContext(), operator.ID, req.CurrentPassword, req.NewPassword); err != nil {
		return err
	}
	return c.SendStatus(http.StatusNoContent)
}

// CreateOperator handles POST /operators.
func (h *AuthHandler) CreateOperator(c *fiber.Ctx) error {
	actor, err := currentOperator(c)
	if err != nil {
		return err
	}
	var req dto.CreateOperatorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	operator, err := h.operatorService.CreateOperator(c.UserContext(), actor, service.OperatorInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
	})
	if err != nil {
		return err
	}
	return c.Status(http.StatusCreated).JSON(fiber.Map{"data": dto.NewOperatorResponse(operator)})
}

// ListOperators handles GET /operators.
func (h *AuthHandler) ListOperators(c *fiber.Ctx) error {
	actor, err := currentOperator(c)
	if err != nil {
		return err
	}
	filters := service.OperatorListFilters{Active: parseBool(c.Query("active"))}
	if role := c.Query("role"); role != "" {
		r := domain.OperatorRole(role)
		filters.Role = &r
	}
	filters.Limit, filters.Offset = paging(c)
	operators, err := h.operatorService.ListOperators(c.UserContext(), actor, filters)
	if err != nil {
		return err
	}
	items := make([]dto.OperatorResponse, 0, len(operators))
	for i := range operators {
		items = append(items, dto.NewOperatorResponse(&operators[i]))
	}
	return c.JSON(fiber.Map{"data": items})
}

// UpdateOperator handles PATCH /operators/:id.
func (h *AuthHandler) UpdateOperator(c *fiber.Ctx) error {
	actor, err := currentOperator(c)
	if err != nil {
		return err
	}
	var req dto.UpdateOperatorRequest
	if err := bind(c, &req); err != nil {
		return err
	}
	operator, err := h.operatorService.UpdateOperator(c.UserContext(), actor, c.Params("id"), service.OperatorInput{
		Name:     req.Name,
		Email:    req.Email,
		Password: req.Password,
		Role:     req.Role,
		Active:   req.Active,
	})
	if err != nil {
		return err
	}
	return c.JSON(fiber.Map{"data": dto.NewOperatorResponse(operator)})
}

func currentOperator(c *fiber.Ctx) (*domain.Operator, error) {
	principal, ok := auth.PrincipalFromContext(c)
	if !ok || principal.Operator == nil {
		return nil, apperrors.NewUnauthorized("operator required")
	}
	return principal.Operator, nil
}
