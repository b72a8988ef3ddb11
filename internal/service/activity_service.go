package service

import (
	"context"
	"fmt"
	"strings"

	"github.com/spec-kit/field-service/internal/domain"
	"github.com/spec-kit/field-service/internal/repository"
	apperrors "github.com/spec-kit/field-service/pkg/util/errorutil"
)

// ActivityService writes and reads record activity feeds.
// It satisfies ActivityLog and, for deployments without a queue, TaskScheduler.
type ActivityService struct {
	repo repository.ActivityRepository
}

// NewActivityService builds the service.
func NewActivityService(repo repository.ActivityRepository) *ActivityService {
	return &ActivityService{repo: repo}
}

// Post appends a note.
func (s *ActivityService) Post(ctx context.Context, recordType, recordID, body string, userID *string) error {
	return s.repo.Create(ctx, &domain.Activity{
		RecordType: recordType,
		RecordID:   recordID,
		Kind:       domain.ActivityNote,
		Body:       body,
		UserID:     userID,
	})
}

// RecordTodo materialises a scheduled to-do on the record's feed.
func (s *ActivityService) RecordTodo(ctx context.Context, todo TodoRequest) error {
	if strings.TrimSpace(todo.RecordID) == "" || strings.TrimSpace(todo.Summary) == "" {
		return apperrors.NewValidationError("todo requires a record and a summary", nil)
	}
	body := todo.Summary
	if todo.Note != "" {
		body = fmt.Sprintf("%s\n%s", todo.Summary, todo.Note)
	}
	var userID *string
	if todo.UserID != "" {
		userID = &todo.UserID
	}
	return s.repo.Create(ctx, &domain.Activity{
		RecordType: todo.RecordType,
		RecordID:   todo.RecordID,
		Kind:       domain.ActivityTodo,
		Body:       body,
		UserID:     userID,
	})
}

// ScheduleTodo records the to-do immediately.
func (s *ActivityService) ScheduleTodo(ctx context.Context, todo TodoRequest) error {
	return s.RecordTodo(ctx, todo)
}

// List returns a record's feed in creation order.
func (s *ActivityService) List(ctx context.Context, recordType, recordID string) ([]domain.Activity, error) {
	activities, err := s.repo.ListByRecord(ctx, recordType, recordID)
	if err != nil {
		return nil, apperrors.MapError(err)
	}
	return activities, nil
}
