package service

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// AssignmentOutcome reports what happened to assignment during call creation.
type AssignmentOutcome struct {
	Assigned     bool
	AutoAssigned bool
	Technician   *domain.Technician
	Reason       string
}

// AssignmentService selects technicians for calls.
type AssignmentService struct {
	matcher     *GeoMatcher
	technicians repository.TechnicianRepository
	logger      *zap.Logger
}

// AssignmentDependencies bundles collaborators.
type AssignmentDependencies struct {
	Matcher        *GeoMatcher
	TechnicianRepo repository.TechnicianRepository
	Logger         *zap.Logger
}

// NewAssignmentService creates the service.
func NewAssignmentService(deps AssignmentDependencies) *AssignmentService {
	logger := deps.Logger
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AssignmentService{
		matcher:     deps.Matcher,
		technicians: deps.TechnicianRepo,
		logger:      logger,
	}
}

// SelectTechnician returns the best candidate for the postal code, or nil when none qualifies.
func (s *AssignmentService) SelectTechnician(ctx context.Context, postalCode string) (*domain.Technician, error) {
	candidates, err := s.matcher.FindCandidates(ctx, postalCode)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}
	best := candidates[0]
	s.logger.Debug("technician selected",
		zap.String("postal_code", postalCode),
		zap.String("technician_id", best.Technician.ID),
		zap.Int("priority", best.Priority),
		zap.Int("active_calls", best.ActiveCalls),
		zap.Int("candidates", len(candidates)))
	return &best.Technician, nil
}

// Assign resolves the call's technician. A pre-specified technician is kept,
// otherwise the geo matcher picks one and the call is flagged auto-assigned.
// It returns nil when no technician can be found; the call is left untouched then.
func (s *AssignmentService) Assign(ctx context.Context, call *domain.ServiceCall) (*domain.Technician, error) {
	if call.TechnicianID != nil {
		technician, err := s.loadAssignable(ctx, *call.TechnicianID)
		if err != nil {
			return nil, err
		}
		call.ServicePartnerID = technician.ServicePartnerID
		return technician, nil
	}

	technician, err := s.SelectTechnician(ctx, call.PostalCode)
	if err != nil || technician == nil {
		return nil, err
	}
	call.TechnicianID = &technician.ID
	call.ServicePartnerID = technician.ServicePartnerID
	call.AutoAssigned = true
	return technician, nil
}

// AssignManually sets an explicitly chosen technician.
func (s *AssignmentService) AssignManually(ctx context.Context, call *domain.ServiceCall, technicianID string) (*domain.Technician, error) {
	technician, err := s.loadAssignable(ctx, technicianID)
	if err != nil {
		return nil, err
	}
	call.TechnicianID = &technician.ID
	call.ServicePartnerID = technician.ServicePartnerID
	call.AutoAssigned = false
	return technician, nil
}

func (s *AssignmentService) loadAssignable(ctx context.Context, technicianID string) (*domain.Technician, error) {
	technician, err := s.technicians.GetByID(ctx, technicianID)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, apperrors.NewNotFound("technician", map[string]any{"technician_id": technicianID})
		}
		return nil, apperrors.MapError(err)
	}
	if !technician.Active {
		return nil, apperrors.NewConflict("technician inactive", map[string]any{"technician_id": technicianID})
	}
	if technician.State == domain.TechnicianOffline {
		return nil, apperrors.NewConflict("technician offline", map[string]any{"technician_id": technicianID})
	}
	return technician, nil
}
