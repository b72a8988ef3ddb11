package memory

import (
	"context"
	"slices"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
)

// CallRepository implements repository.CallRepository.
type CallRepository struct{ s *Store }

var _ repository.CallRepository = (*CallRepository)(nil)

func (r *CallRepository) Create(_ context.Context, call *domain.ServiceCall) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.calls {
		if existing.Reference == call.Reference {
			return repository.ErrDuplicate
		}
	}
	call.ID = newID()
	call.CreatedAt = r.s.now()
	call.UpdatedAt = call.CreatedAt
	r.s.calls[call.ID] = *call
	return nil
}

func (r *CallRepository) Update(_ context.Context, call *domain.ServiceCall) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	return r.updateLocked(call)
}

func (r *CallRepository) updateLocked(call *domain.ServiceCall) error {
	if _, ok := r.s.calls[call.ID]; !ok {
		return pgx.ErrNoRows
	}
	call.UpdatedAt = r.s.now()
	r.s.calls[call.ID] = *call
	return nil
}

func (r *CallRepository) SaveTransition(_ context.Context, call *domain.ServiceCall, entries []*domain.NotificationTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()

	if _, ok := r.s.calls[call.ID]; !ok {
		return pgx.ErrNoRows
	}
	for _, entry := range entries {
		if entry.ID != "" && r.s.notificationIndex(entry.ID) < 0 {
			return pgx.ErrNoRows
		}
	}

	if err := r.updateLocked(call); err != nil {
		return err
	}
	for _, entry := range entries {
		if entry.ID == "" {
			r.s.insertNotificationLocked(entry)
			continue
		}
		idx := r.s.notificationIndex(entry.ID)
		stored := &r.s.notifications[idx]
		stored.Type = entry.Type
		stored.Description = entry.Description
		stored.OTPVerified = entry.OTPVerified
	}
	return nil
}

func (r *CallRepository) GetByID(_ context.Context, id string) (*domain.ServiceCall, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	call, ok := r.s.calls[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &call, nil
}

func (r *CallRepository) GetByReference(_ context.Context, reference string) (*domain.ServiceCall, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, call := range r.s.calls {
		if call.Reference == reference {
			c := call
			return &c, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *CallRepository) List(_ context.Context, filter repository.CallFilter) ([]domain.ServiceCall, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	var result []domain.ServiceCall
	for _, call := range r.s.calls {
		if matchesCall(call, filter) {
			result = append(result, call)
		}
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].CallDate.Equal(result[j].CallDate) {
			return result[i].Reference > result[j].Reference
		}
		return result[i].CallDate.After(result[j].CallDate)
	})
	return paginate(result, filter.Limit, filter.Offset, 20), nil
}

func matchesCall(call domain.ServiceCall, filter repository.CallFilter) bool {
	if len(filter.States) > 0 && !slices.Contains(filter.States, call.State) {
		return false
	}
	if filter.CallType != nil && call.CallType != *filter.CallType {
		return false
	}
	if filter.TechnicianID != nil && (call.TechnicianID == nil || *call.TechnicianID != *filter.TechnicianID) {
		return false
	}
	if filter.ServicePartnerID != nil && (call.ServicePartnerID == nil || *call.ServicePartnerID != *filter.ServicePartnerID) {
		return false
	}
	if filter.PostalCode != nil && call.PostalCode != *filter.PostalCode {
		return false
	}
	if filter.CallDateFrom != nil && call.CallDate.Before(*filter.CallDateFrom) {
		return false
	}
	if filter.CallDateTo != nil && call.CallDate.After(*filter.CallDateTo) {
		return false
	}
	if filter.SLADeadlineBefore != nil && !call.SLADeadline.Before(*filter.SLADeadlineBefore) {
		return false
	}
	if filter.SearchTerm != nil && strings.TrimSpace(*filter.SearchTerm) != "" {
		term := strings.ToLower(strings.TrimSpace(*filter.SearchTerm))
		if !strings.Contains(strings.ToLower(call.Reference), term) &&
			!strings.Contains(strings.ToLower(call.CustomerName), term) &&
			!strings.Contains(call.Mobile, term) {
			return false
		}
	}
	return true
}

func (r *CallRepository) CountActiveByTechnicians(_ context.Context, technicianIDs []string) (map[string]int, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	counts := make(map[string]int, len(technicianIDs))
	for _, id := range technicianIDs {
		counts[id] = 0
	}
	for _, call := range r.s.calls {
		if call.TechnicianID == nil || call.State.IsTerminal() {
			continue
		}
		if _, tracked := counts[*call.TechnicianID]; tracked {
			counts[*call.TechnicianID]++
		}
	}
	return counts, nil
}

func (r *CallRepository) Workload(_ context.Context, technicianID string) (*domain.TechnicianWorkload, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()

	workload := &domain.TechnicianWorkload{TechnicianID: technicianID}
	var closedDays float64
	var closedWithDate int
	for _, call := range r.s.calls {
		if call.TechnicianID == nil || *call.TechnicianID != technicianID {
			continue
		}
		workload.TotalCalls++
		if !call.State.IsTerminal() {
			workload.ActiveCalls++
		}
		if call.State == domain.CallStateClosed {
			workload.CompletedCalls++
		}
		if call.ClosedDate != nil {
			closedDays += call.ClosedDate.Sub(call.CallDate).Hours() / 24
			closedWithDate++
		}
	}
	if closedWithDate > 0 {
		workload.AvgResolutionDays = closedDays / float64(closedWithDate)
	}
	return workload, nil
}

func paginate[T any](items []T, limit, offset, fallback int) []T {
	if limit <= 0 {
		limit = fallback
	}
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	end := offset + limit
	if end > len(items) {
		end = len(items)
	}
	return items[offset:end]
}
