package memory

import (
	"context"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
)

// NotificationRepository implements repository.NotificationRepository.
type NotificationRepository struct{ s *Store }

var _ repository.NotificationRepository = (*NotificationRepository)(nil)

func (s *Store) insertNotificationLocked(entry *domain.NotificationTransaction) {
	entry.ID = newID()
	entry.CreatedAt = s.now()
	s.notifications = append(s.notifications, *entry)
}

func (s *Store) notificationIndex(id string) int {
	for i := range s.notifications {
		if s.notifications[i].ID == id {
			return i
		}
	}
	return -1
}

func (r *NotificationRepository) Create(_ context.Context, entry *domain.NotificationTransaction) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	r.s.insertNotificationLocked(entry)
	return nil
}

func (r *NotificationRepository) LatestOTP(_ context.Context, callID string) (*domain.NotificationTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	for i := len(r.s.notifications) - 1; i >= 0; i-- {
		entry := r.s.notifications[i]
		if entry.CallID != callID || !entry.HasOTP() {
			continue
		}
		if entry.Type == domain.NotificationOTPGenerated || entry.Type == domain.NotificationOTPVerified {
			return &entry, nil
		}
	}
	return nil, pgx.ErrNoRows
}

func (r *NotificationRepository) ListByCall(_ context.Context, callID string) ([]domain.NotificationTransaction, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.NotificationTransaction
	for _, entry := range r.s.notifications {
		if entry.CallID == callID {
			result = append(result, entry)
		}
	}
	return result, nil
}
