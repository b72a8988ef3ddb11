package memory

import (
	"context"
	"slices"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
)

// ServicePartnerRepository implements repository.ServicePartnerRepository.
type ServicePartnerRepository struct{ s *Store }

var _ repository.ServicePartnerRepository = (*ServicePartnerRepository)(nil)

func (r *ServicePartnerRepository) Create(_ context.Context, partner *domain.ServicePartner) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	partner.ID = newID()
	r.s.partners[partner.ID] = *partner
	return nil
}

func (r *ServicePartnerRepository) GetByID(_ context.Context, id string) (*domain.ServicePartner, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	partner, ok := r.s.partners[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &partner, nil
}

func (r *ServicePartnerRepository) CreateTATCategory(_ context.Context, category *domain.TATCategory) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.categories {
		if existing.ServicePartnerID == category.ServicePartnerID && existing.Days == category.Days {
			return repository.ErrDuplicate
		}
	}
	category.ID = newID()
	r.s.categories[category.ID] = *category
	return nil
}

func (r *ServicePartnerRepository) ListTATCategories(_ context.Context, partnerID string) ([]domain.TATCategory, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.TATCategory
	for _, category := range r.s.categories {
		if category.ServicePartnerID == partnerID {
			result = append(result, category)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].Days < result[j].Days })
	return result, nil
}

// ClaimRepository implements repository.ClaimRepository.
type ClaimRepository struct{ s *Store }

var _ repository.ClaimRepository = (*ClaimRepository)(nil)

func cloneClaim(claim domain.Claim) domain.Claim {
	lines := make([]domain.ClaimLine, len(claim.Lines))
	for i, line := range claim.Lines {
		line.CallIDs = slices.Clone(line.CallIDs)
		lines[i] = line
	}
	claim.Lines = lines
	return claim
}

func (r *ClaimRepository) Create(_ context.Context, claim *domain.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.claims {
		if existing.Reference == claim.Reference {
			return repository.ErrDuplicate
		}
	}
	claim.ID = newID()
	claim.CreatedAt = r.s.now()
	claim.UpdatedAt = claim.CreatedAt
	r.s.claims[claim.ID] = cloneClaim(*claim)
	return nil
}

func (r *ClaimRepository) ReplaceLines(_ context.Context, claim *domain.Claim) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.claims[claim.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for i := range claim.Lines {
		claim.Lines[i].ClaimID = claim.ID
		if claim.Lines[i].ID == "" {
			claim.Lines[i].ID = newID()
		}
	}
	claim.UpdatedAt = r.s.now()
	stored.Lines = claim.Lines
	stored.State = claim.State
	stored.TotalAmount = claim.TotalAmount
	stored.UpdatedAt = claim.UpdatedAt
	r.s.claims[claim.ID] = cloneClaim(stored)
	return nil
}

func (r *ClaimRepository) SaveState(_ context.Context, claim *domain.Claim, paidCallIDs []string) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	stored, ok := r.s.claims[claim.ID]
	if !ok {
		return pgx.ErrNoRows
	}
	for _, id := range paidCallIDs {
		if _, ok := r.s.calls[id]; !ok {
			return pgx.ErrNoRows
		}
	}

	now := r.s.now()
	for _, id := range paidCallIDs {
		call := r.s.calls[id]
		call.IsPaid = true
		call.UpdatedAt = now
		r.s.calls[id] = call
	}
	claim.UpdatedAt = now
	lines := stored.Lines
	stored = *claim
	stored.Lines = lines
	r.s.claims[claim.ID] = cloneClaim(stored)
	return nil
}

func (r *ClaimRepository) GetByID(_ context.Context, id string) (*domain.Claim, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	claim, ok := r.s.claims[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	clone := cloneClaim(claim)
	return &clone, nil
}
