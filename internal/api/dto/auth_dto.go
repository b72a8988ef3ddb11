package dto

import (
	"time"

	"github.com/spec-kit/field-service/internal/domain"
)

// LoginRequest payload.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// PasswordChangeRequest payload for authenticated password changes.
type PasswordChangeRequest struct {
	CurrentPassword string `json:"current_password" validate:"required"`
	NewPassword     string `json:"new_password" validate:"required,min=8"`
}

// AuthResponse standard response for auth endpoints.
type AuthResponse struct {
	Token     string           `json:"token"`
	ExpiresAt time.Time        `json:"expires_at"`
	Operator  OperatorResponse `json:"operator"`
}

// CreateOperatorRequest payload.
type CreateOperatorRequest struct {
	Name     string              `json:"name" validate:"required"`
	Email    string              `json:"email" validate:"required,email"`
	Password string              `json:"password" validate:"required,min=8"`
	Role     domain.OperatorRole `json:"role" validate:"required,oneof=ADMIN DISPATCHER TECHNICIAN"`
}

// UpdateOperatorRequest payload. Omitted fields are kept.
type UpdateOperatorRequest struct {
	Name     string              `json:"name"`
	Email    string              `json:"email" validate:"omitempty,email"`
	Password string              `json:"password" validate:"omitempty,min=8"`
	Role     domain.OperatorRole `json:"role" validate:"omitempty,oneof=ADMIN DISPATCHER TECHNICIAN"`
	Active   *bool               `json:"active"`
}

// OperatorResponse is the public view of an operator.
type OperatorResponse struct {
	ID        string              `json:"id"`
	Name      string              `json:"name"`
	Email     string              `json:"email"`
	Role      domain.OperatorRole `json:"role"`
	Active    bool                `json:"active"`
	CreatedAt time.Time           `json:"created_at"`
}

// NewOperatorResponse maps an operator without its password hash.
func NewOperatorResponse(o *domain.Operator) OperatorResponse {
	return OperatorResponse{
		ID:        o.ID,
		Name:      o.Name,
		Email:     o.Email,
		Role:      o.Role,
		Active:    o.Active,
		CreatedAt: o.CreatedAt,
	}
}
