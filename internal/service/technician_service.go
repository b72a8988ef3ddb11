package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	"github.com/spec-kit/field-service/internal/sequence"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// TechnicianService manages technicians, their availability and service areas.
type TechnicianService struct {
	technicians repository.TechnicianRepository
	areas       repository.ServiceAreaRepository
	operators   repository.OperatorRepository
	calls       repository.CallRepository
	matcher     *GeoMatcher
	references  *sequence.Generator
	activity    ActivityLog
	logger      *zap.Logger
}

// TechnicianDependencies bundles collaborators.
type TechnicianDependencies struct {
	TechnicianRepo  repository.TechnicianRepository
	ServiceAreaRepo repository.ServiceAreaRepository
	OperatorRepo    repository.OperatorRepository
	CallRepo        repository.CallRepository
	Matcher         *GeoMatcher
	References      *sequence.Generator
	Activity        ActivityLog
	Logger          *zap.Logger
}

// NewTechnicianService constructs the service.
func NewTechnicianService(deps TechnicianDependencies) *TechnicianService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &TechnicianService{
		technicians: deps.TechnicianRepo,
		areas:       deps.ServiceAreaRepo,
		operators:   deps.OperatorRepo,
		calls:       deps.CallRepo,
		matcher:     deps.Matcher,
		references:  deps.References,
		activity:    deps.Activity,
		logger:      logger,
	}
}

// TechnicianInput describes a technician profile.
type TechnicianInput struct {
	UserID           string
	Name             string
	Mobile           string
	Email            string
	ServicePartnerID *string
	Active           *bool
}

// ServiceAreaInput describes a postal code coverage entry.
type ServiceAreaInput struct {
	PostalCode string
	AreaName   string
	City       string
	Priority   *int
	Active     *bool
}

// TechnicianListFilters narrows technician listings.
type TechnicianListFilters struct {
	State            *domain.TechnicianState
	ServicePartnerID *string
	Active           *bool
	Limit            int
	Offset           int
}

// Create registers a technician for an operator account. Each operator backs at most one technician.
func (s *TechnicianService) Create(ctx context.Context, input TechnicianInput) (*domain.Technician, error) {
	name, err := requireText("name", input.Name)
	if err != nil {
		return nil, err
	}
	userID, err := requireText("user_id", input.UserID)
	if err != nil {
		return nil, err
	}
	mobile, err := validateMobile("mobile", input.Mobile)
	if err != nil {
		return nil, err
	}
	email, err := validateEmail("email", input.Email)
	if err != nil {
		return nil, err
	}
	if _, err := s.operators.GetByID(ctx, userID); err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("operator", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	if existing, err := s.technicians.GetByUserID(ctx, userID); err == nil && existing != nil {
		return nil, apperrors.NewConflict("a technician already exists for this user", map[string]any{"user_id": userID})
	} else if err != nil && !errors.Is(err, pgx.ErrNoRows) {
		return nil, apperrors.MapError(err)
	}

	code, err := s.references.TechnicianCode(ctx)
	if err != nil {
		return nil, apperrors.NewInternalError(err)
	}
	technician := &domain.Technician{
		Code:             code,
		Name:             name,
		UserID:           userID,
		ServicePartnerID: input.ServicePartnerID,
		Mobile:           mobile,
		Email:            email,
		State:            domain.TechnicianAvailable,
		Active:           true,
	}
	if err := s.technicians.Create(ctx, technician); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("a technician already exists for this user", map[string]any{"user_id": userID})
		}
		return nil, apperrors.MapError(err)
	}
	s.logger.Info("technician created", zap.String("code", technician.Code), zap.String("user_id", userID))
	return technician, nil
}

// Update edits profile fields. Empty strings keep the current value.
func (s *TechnicianService) Update(ctx context.Context, technicianID string, input TechnicianInput) (*domain.Technician, error) {
	technician, err := s.Get(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if name := strings.TrimSpace(input.Name); name != "" {
		technician.Name = name
	}
	if input.Mobile != "" {
		mobile, err := validateMobile("mobile", input.Mobile)
		if err != nil {
			return nil, err
		}
		technician.Mobile = mobile
	}
	if input.Email != "" {
		email, err := validateEmail("email", input.Email)
		if err != nil {
			return nil, err
		}
		technician.Email = email
	}
	if input.ServicePartnerID != nil {
		if *input.ServicePartnerID == "" {
			technician.ServicePartnerID = nil
		} else {
			technician.ServicePartnerID = input.ServicePartnerID
		}
	}
	if input.Active != nil {
		technician.Active = *input.Active
	}
	if err := s.technicians.Update(ctx, technician); err != nil {
		return nil, apperrors.MapError(err)
	}
	return technician, nil
}

// SetAvailability moves the technician to available, busy or offline.
func (s *TechnicianService) SetAvailability(ctx context.Context, actorID *string, technicianID string, state domain.TechnicianState) (*domain.Technician, error) {
	if !state.Valid() {
		return nil, apperrors.NewValidationError("invalid technician state", map[string]any{"state": state})
	}
	technician, err := s.Get(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	if technician.State == state {
		return technician, nil
	}
	old := technician.State
	technician.State = state
	if err := s.technicians.Update(ctx, technician); err != nil {
		return nil, apperrors.MapError(err)
	}
	if s.activity != nil {
		body := fmt.Sprintf("Availability changed from %s to %s", old, state)
		if err := s.activity.Post(ctx, domain.RecordTypeTechnician, technician.ID, body, actorID); err != nil {
			s.logger.Warn("activity note failed", zap.String("technician_id", technician.ID), zap.Error(err))
		}
	}
	return technician, nil
}

// AddServiceArea registers a postal code for a technician. Priority defaults to 10.
func (s *TechnicianService) AddServiceArea(ctx context.Context, technicianID string, input ServiceAreaInput) (*domain.ServiceArea, error) {
	if _, err := s.Get(ctx, technicianID); err != nil {
		return nil, err
	}
	postalCode, err := requireText("postal_code", input.PostalCode)
	if err != nil {
		return nil, err
	}
	priority := domain.DefaultServiceAreaPriority
	if input.Priority != nil {
		priority = *input.Priority
	}
	if priority < 0 {
		return nil, apperrors.NewValidationError("priority cannot be negative", map[string]any{"priority": priority})
	}
	active := true
	if input.Active != nil {
		active = *input.Active
	}
	area := &domain.ServiceArea{
		TechnicianID: technicianID,
		PostalCode:   postalCode,
		AreaName:     strings.TrimSpace(input.AreaName),
		City:         strings.TrimSpace(input.City),
		Priority:     priority,
		Active:       active,
	}
	if err := s.areas.Create(ctx, area); err != nil {
		if errors.Is(err, repository.ErrDuplicate) {
			return nil, apperrors.NewConflict("technician already serves this postal code",
				map[string]any{"technician_id": technicianID, "postal_code": postalCode})
		}
		return nil, apperrors.MapError(err)
	}
	return area, nil
}

// UpdateServiceArea changes priority, names or the active flag of an area.
func (s *TechnicianService) UpdateServiceArea(ctx context.Context, areaID string, input ServiceAreaInput) (*domain.ServiceArea, error) {
	area, err := s.areas.GetByID(ctx, areaID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("service area", map[string]any{"area_id": areaID})
		}
		return nil, apperrors.MapError(err)
	}
	if name := strings.TrimSpace(input.AreaName); name != "" {
		area.AreaName = name
	}
	if city := strings.TrimSpace(input.City); city != "" {
		area.City = city
	}
	if input.Priority != nil {
		if *input.Priority < 0 {
			return nil, apperrors.NewValidationError("priority cannot be negative", map[string]any{"priority": *input.Priority})
		}
		area.Priority = *input.Priority
	}
	if input.Active != nil {
		area.Active = *input.Active
	}
	if err := s.areas.Update(ctx, area); err != nil {
		return nil, apperrors.MapError(err)
	}
	return area, nil
}

// ListServiceAreas returns every area of a technician.
func (s *TechnicianService) ListServiceAreas(ctx context.Context, technicianID string) ([]domain.ServiceArea, error) {
	if _, err := s.Get(ctx, technicianID); err != nil {
		return nil, err
	}
	areas, err := s.areas.ListByTechnician(ctx, technicianID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return areas, nil
}

// TechniciansForPostalCode lists ranked candidates for a postal code.
func (s *TechnicianService) TechniciansForPostalCode(ctx context.Context, postalCode string) ([]Candidate, error) {
	return s.matcher.FindCandidates(ctx, postalCode)
}

// Workload summarises a technician's calls.
func (s *TechnicianService) Workload(ctx context.Context, technicianID string) (*domain.TechnicianWorkload, error) {
	if _, err := s.Get(ctx, technicianID); err != nil {
		return nil, err
	}
	workload, err := s.calls.Workload(ctx, technicianID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return workload, nil
}

// Get fetches a technician by id.
func (s *TechnicianService) Get(ctx context.Context, technicianID string) (*domain.Technician, error) {
	technician, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.MapError(err)
	}
	return technician, nil
}

// List returns technicians matching the filters.
func (s *TechnicianService) List(ctx context.Context, filters TechnicianListFilters) ([]domain.Technician, error) {
	technicians, err := s.technicians.List(ctx, repository.TechnicianFilter{
		State:            filters.State,
		ServicePartnerID: filters.ServicePartnerID,
		Active:           filters.Active,
		Limit:            filters.Limit,
		Offset:           filters.Offset,
	})
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return technicians, nil
}
