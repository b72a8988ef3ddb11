package memory

import (
	"context"
	"sort"

	"github.com/jackc/pgx/v5"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
)

// FeedbackRepository implements repository.FeedbackRepository.
type FeedbackRepository struct{ s *Store }

var _ repository.FeedbackRepository = (*FeedbackRepository)(nil)

func isFinalFeedback(state domain.FeedbackState) bool {
	return state == domain.FeedbackSubmitted || state == domain.FeedbackReviewed
}

func (r *FeedbackRepository) Create(_ context.Context, feedback *domain.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if isFinalFeedback(feedback.State) && r.hasFinalLocked(feedback.CallID, "") {
		return repository.ErrDuplicate
	}
	feedback.ID = newID()
	feedback.CreatedAt = r.s.now()
	feedback.UpdatedAt = feedback.CreatedAt
	r.s.feedbacks[feedback.ID] = *feedback
	return nil
}

func (r *FeedbackRepository) Update(_ context.Context, feedback *domain.Feedback) error {
	r.s.mu.Lock()
	defer r.s.mu.Unlock()
	if _, ok := r.s.feedbacks[feedback.ID]; !ok {
		return pgx.ErrNoRows
	}
	if isFinalFeedback(feedback.State) && r.hasFinalLocked(feedback.CallID, feedback.ID) {
		return repository.ErrDuplicate
	}
	feedback.UpdatedAt = r.s.now()
	r.s.feedbacks[feedback.ID] = *feedback
	return nil
}

func (r *FeedbackRepository) hasFinalLocked(callID, excludeID string) bool {
	for id, existing := range r.s.feedbacks {
		if id != excludeID && existing.CallID == callID && isFinalFeedback(existing.State) {
			return true
		}
	}
	return false
}

func (r *FeedbackRepository) GetByID(_ context.Context, id string) (*domain.Feedback, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	feedback, ok := r.s.feedbacks[id]
	if !ok {
		return nil, pgx.ErrNoRows
	}
	return &feedback, nil
}

func (r *FeedbackRepository) ListByCall(_ context.Context, callID string) ([]domain.Feedback, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	var result []domain.Feedback
	for _, feedback := range r.s.feedbacks {
		if feedback.CallID == callID {
			result = append(result, feedback)
		}
	}
	sort.Slice(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	return result, nil
}

func (r *FeedbackRepository) HasSubmitted(_ context.Context, callID string) (bool, error) {
	r.s.mu.RLock()
	defer r.s.mu.RUnlock()
	return r.hasFinalLocked(callID, ""), nil
}
