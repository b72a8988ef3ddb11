package memory

import (
	"context"
	"sort"
	"strings"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
)

// AttachmentRepository implements repository.AttachmentRepository.
type AttachmentRepository struct{ s *Store }

var _ repository.AttachmentRepository = (*AttachmentRepository)(nil)

func (r *AttachmentRepository) Create(_ context.Context, attachment *domain.Attachment) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	attachment.ID = newID()
	attachment.CreatedAt = r.s.now()
	r.s.attachments = append(r.s.attachments, *attachment)
	return nil
}

func (r *AttachmentRepository) HasAny(_ context.Context, callID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, attachment := range r.s.attachments {
		if attachment.CallID == callID {
			return true, nil
		}
	}
	return false, nil
}

func (r *AttachmentRepository) ListByCall(_ context.Context, callID string) ([]domain.Attachment, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Attachment
	for _, attachment := range r.s.attachments {
		if attachment.CallID == callID {
			result = append(result, attachment)
		}
	}
	return result, nil
}

// ActivityRepository implements repository.ActivityRepository.
type ActivityRepository struct{ s *Store }

var _ repository.ActivityRepository = (*ActivityRepository)(nil)

func (r *ActivityRepository) Create(_ context.Context, activity *domain.Activity) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	activity.ID = newID()
	activity.CreatedAt = r.s.now()
	r.s.activities = append(r.s.activities, *activity)
	return nil
}

func (r *ActivityRepository) ListByRecord(_ context.Context, recordType, recordID string) ([]domain.Activity, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Activity
	for _, activity := range r.s.activities {
		if activity.RecordType == recordType && activity.RecordID == recordID {
			result = append(result, activity)
		}
	}
	return result, nil
}

// OperatorRepository implements repository.OperatorRepository.
type OperatorRepository struct{ s *Store }

var _ repository.OperatorRepository = (*OperatorRepository)(nil)

func (r *OperatorRepository) Create(_ context.Context, operator *domain.Operator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	for _, existing := range r.s.operators {
		if strings.EqualFold(existing.Email, operator.Email) {
			return repository.ErrDuplicate
		}
	}
	operator.ID = newID()
	operator.CreatedAt = r.s.now()
	operator.UpdatedAt = operator.CreatedAt
	r.s.operators[operator.ID] = *operator
	return nil
}

func (r *OperatorRepository) Update(_ context.Context, operator *domain.Operator) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.operators[operator.ID]; !ok {
		return pgx.ErrNoRows
	}
	operator.UpdatedAt = r.s.now()
	r.s.operators[operator.ID] = *operator
	return nil
}

func (r *OperatorRepository) GetByID(_ context.Context, id string) (*domain.Operator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	operator, ok := r.s.operators[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &operator, nil
}

func (r *OperatorRepository) GetByEmail(_ context.Context, email string) (*domain.Operator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for _, operator := range r.s.operators {
		if strings.EqualFold(operator.Email, email) {
			o := operator
			return &o, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *OperatorRepository) List(_ context.Context, filter repository.OperatorFilter) ([]domain.Operator, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Operator
	for _, operator := range r.s.operators {
		if filter.Role != nil && operator.Role != *filter.Role {
			continue
		}
		if filter.Active != nil && operator.Active != *filter.Active {
			continue
		}
		result = append(result, operator)
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return paginate(result, filter.Limit, filter.Offset, 50), nil
}
