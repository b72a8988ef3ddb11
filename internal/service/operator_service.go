package service

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/auth"
	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// OperatorService manages back-office accounts.
type OperatorService struct {
	operators  repository.OperatorRepository
	bcryptCost int
	logger     *zap.Logger
}

// OperatorListFilters narrows operator listings.
type OperatorListFilters struct {
	Role   *domain.OperatorRole
	Active *bool
	Limit  int
	Offset int
}

// OperatorInput carries operator attributes.
type OperatorInput struct {
	Name     string
	Email    string
	Password string
	Role     domain.OperatorRole
	Active   *bool
}

// NewOperatorService builds the service.
func NewOperatorService(cfg config.Config, repo repository.OperatorRepository, logger *zap.Logger) *OperatorService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &OperatorService{operators: repo, bcryptCost: cfg.Auth.BcryptCost, logger: logger}
}

func requireAdmin(actor *domain.Operator) error {
	if actor == nil || actor.Role != domain.OperatorRoleAdmin {
		return apperrors.NewForbidden("admin role required")
	}
	return nil
}

// CreateOperator adds an account. Only admins may create operators.
func (s *OperatorService) CreateOperator(ctx context.Context, actor *domain.Operator, input OperatorInput) (*domain.Operator, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	return s.create(ctx, input)
}

// EnsureBootstrapAdmin creates the first admin when the email is configured and unknown.
func (s *OperatorService) EnsureBootstrapAdmin(ctx context.Context, email, password string) error {
	if strings.TrimSpace(email) == "" || password == "" {
		return nil
	}
	_, err := s.operators.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
	if err == nil {
		return nil
	}
	if !errors.Is(err, pgx.ErrNoRows) {
		return apperrors.MapError(err)
	}
	operator, err := s.create(ctx, OperatorInput{Name: "Administrator", Email: email, Password: password, Role: domain.OperatorRoleAdmin})
	if err != nil {
		return err
	}
	s.logger.Info("bootstrap admin created", zap.String("operator_id", operator.ID))
	return nil
}

func (s *OperatorService) create(ctx context.Context, input OperatorInput) (*domain.Operator, error) {
	name, err := requireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail("email", input.Email)
	if err != nil {
		return nil, err
	}
	if email == "" {
		return nil, apperrors.NewValidationError("email is required", map[string]any{"field": "email"})
	}
	email = strings.ToLower(email)
	if !input.Role.Valid() {
		return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
	}
	if err := auth.CheckPasswordPolicy(input.Password); err != nil {
		return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "password"})
	}
	if existing, err := s.operators.GetByEmail(ctx, email); err == nil && existing != nil {
		return nil, apperrors.NewConflict("operator email already exists", map[string]any{"email": email})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	hash, err := auth.HashPassword(input.Password, s.bcryptCost)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	operator := &domain.Operator{
		Name:         name,
		Email:        email,
		PasswordHash: hash,
		Role:         input.Role,
		Active:       true,
	}
	if err := s.operators.Create(ctx, operator); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("operator email already exists", map[string]any{"email": email})
		}
		return nil, apperrors.MapError(err)
	}
	return operator, nil
}

// ListOperators lists operators with filters.
func (s *OperatorService) ListOperators(ctx context.Context, actor *domain.Operator, filters OperatorListFilters) ([]domain.Operator, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	operators, err := s.operators.List(ctx, repository.OperatorFilter{
		Role:   filters.Role,
		Active: filters.Active,
		Limit:  filters.Limit,
		Offset: filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return operators, nil
}

// GetOperator fetches an operator.
func (s *OperatorService) GetOperator(ctx context.Context, actor *domain.Operator, id string) (*domain.Operator, error) {
	if err := requireAdmin(actor); err != nil {
		return nil, err
	}
	operator, err := s.operators.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("operator", map[string]any{"operator_id": id})
		}
		return nil, apperrors.MapError(err)
	}
	return operator, nil
}

// UpdateOperator changes name, email, role or active flag. Empty fields are kept.
func (s *OperatorService) UpdateOperator(ctx context.Context, actor *domain.Operator, id string, input OperatorInput) (*domain.Operator, error) {
	operator, err := s.GetOperator(ctx, actor, id)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		operator.Name = name
	}
	if input.Email != "" {
		email, err := validateEmail("email", input.Email)
		if err != nil {
			return nil, err
		}
		email = strings.ToLower(email)
		if email != operator.Email {
			if existing, err := s.operators.GetByEmail(ctx, email); err == nil && existing.ID != operator.ID {
				return nil, apperrors.NewConflict("operator email already exists", map[string]any{"email": email})
			} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
				return nil, apperrors.MapError(err)
			}
			operator.Email = email
		}
	}
	if input.Role != "" {
		if !input.Role.Valid() {
			return nil, apperrors.NewValidationError("invalid role", map[string]any{"role": input.Role})
		}
		operator.Role = input.Role
	}
	if input.Active != nil {
		if !*input.Active && operator.ID == actor.ID {
			return nil, apperrors.NewConflict("cannot deactivate your own account", nil)
		}
		operator.Active = *input.Active
	}
	if input.Password != "" {
		if err := auth.CheckPasswordPolicy(input.Password); err != nil {
			return nil, apperrors.NewValidationError(err.Error(), map[string]any{"field": "password"})
		}
		hash, err := auth.HashPassword(input.Password, s.bcryptCost)
		if err != nil {
			return nil, apperrors.NewInternalError(err)
		}
		operator.PasswordHash = hash
	}
	if err := s.operators.Update(ctx, operator); err != nil {
		return nil, apperrors.MapError(err)
	}
	return operator, nil
}
