package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
)

// TechnicianRepository implements repository.TechnicianRepository.
type TechnicianRepository struct{ s *Store }

var _ repository.TechnicianRepository = (*TechnicianRepository)(nil)

func (r *TechnicianRepository) Create(_ context.Context, technician *domain.Technician) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.technicians {
		if existing.UserID == technician.UserID || existing.Code == technician.Code {
			return repository.ErrDuplicate
		}
	}
	technician.ID = newID()
	technician.CreatedAt = r.s.now()
	technician.UpdatedAt = technician.CreatedAt
	r.s.technicians[technician.ID] = *technician
	return nil
}

func (r *TechnicianRepository) Update(_ context.Context, technician *domain.Technician) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.technicians[technician.ID]; !ok {
		return pgx.ErrNoRows
	}
	technician.UpdatedAt = r.s.now()
	r.s.technicians[technician.ID] = *technician
	return nil
}

func (r *TechnicianRepository) GetByID(_ context.Context, id string) (*domain.Technician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	technician, ok := r.s.technicians[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &technician, nil
}

func (r *TechnicianRepository) GetByUserID(_ context.Context, userID string) (*domain.Technician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, technician := range r.s.technicians {
		if technician.UserID == userID {
			t := technician
			return &t, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *TechnicianRepository) List(_ context.Context, filter repository.TechnicianFilter) ([]domain.Technician, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.Technician
	for _, technician := range r.s.technicians {
		if filter.State != nil && technician.State != *filter.State {
			continue
		}
		if filter.ServicePartnerID != nil && (technician.ServicePartnerID == nil || *technician.ServicePartnerID != *filter.ServicePartnerID) {
			continue
		}
		if filter.Active != nil && technician.Active != *filter.Active {
			continue
		}
		result = append(result, technician)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Code < result[j].Code })
	return paginate(result, filter.Limit, filter.Offset, 50), nil
}

// ServiceAreaRepository implements repository.ServiceAreaRepository.
type ServiceAreaRepository struct{ s *Store }

var _ repository.ServiceAreaRepository = (*ServiceAreaRepository)(nil)

func (r *ServiceAreaRepository) Create(_ context.Context, area *domain.ServiceArea) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.areas {
		if existing.TechnicianID == area.TechnicianID && existing.PostalCode == area.PostalCode {
			return repository.ErrDuplicate
		}
	}
	area.ID = newID()
	area.CreatedAt = r.s.now()
	r.s.areas[area.ID] = *area
	return nil
}

func (r *ServiceAreaRepository) Update(_ context.Context, area *domain.ServiceArea) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.areas[area.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	stored.AreaName = area.AreaName
	stored.City = area.City
	stored.Priority = area.Priority
	stored.Active = area.Active
	r.s.areas[area.ID] = stored
	return nil
}

func (r *ServiceAreaRepository) GetByID(_ context.Context, id string) (*domain.ServiceArea, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	area, ok := r.s.areas[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &area, nil
}

func (r *ServiceAreaRepository) ListByTechnician(_ context.Context, technicianID string) ([]domain.ServiceArea, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.ServiceArea
	for _, area := range r.s.areas {
		if area.TechnicianID == technicianID {
			result = append(result, area)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Priority == result[j].Priority {
			return result[i].PostalCode < result[j].PostalCode
		}
		return result[i].Priority < result[j].Priority
	})
	return result, nil
}

func (r *ServiceAreaRepository) ListCandidates(_ context.Context, postalCode string) ([]domain.ServiceAreaCandidate, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.ServiceAreaCandidate
	for _, area := range r.s.areas {
		if area.PostalCode != postalCode || !area.Active {
			continue
		}
		technician, ok := r.s.technicians[area.TechnicianID]
		if !ok || !technician.Active || technician.State != domain.TechnicianAvailable {
			continue
		}
		result = append(result, domain.ServiceAreaCandidate{Area: area, Technician: technician})
	}
	return result, nil
}
