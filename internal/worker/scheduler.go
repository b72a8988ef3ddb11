package worker

import (
	"context"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/service"
)

// Enqueuer is the subset of the asynq client used for scheduling.
type Enqueuer interface {
	EnqueueContext(ctx context.Context, task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Scheduler queues to-dos for the worker process.
type Scheduler struct {
	client Enqueuer
	queue  string
	delay  time.Duration
	logger *zap.Logger
}

// NewScheduler builds a scheduler over an asynq client.
func NewScheduler(client Enqueuer, cfg config.WorkerConfig, logger *zap.Logger) *Scheduler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Scheduler{
		client: client,
		queue:  cfg.Queue,
		delay:  time.Duration(cfg.TodoDelayHours) * time.Hour,
		logger: logger,
	}
}

// ScheduleTodo enqueues the to-do, delayed by the configured offset from its due time.
func (s *Scheduler) ScheduleTodo(ctx context.Context, todo service.TodoRequest) error {
	due := todo.DueAt
	if due.IsZero() {
		due = time.Now()
	}
	task, opts, err := NewTodoTask(todo, s.queue, due.Add(s.delay))
	if err != nil {
		return fmt.Errorf("build todo task: %w", err)
	}
	info, err := s.client.EnqueueContext(ctx, task, opts...)
	if err != nil {
		return fmt.Errorf("enqueue todo: %w", err)
	}
	s.logger.Debug("todo scheduled",
		zap.String("task_id", info.ID),
		zap.String("record_id", todo.RecordID),
		zap.String("user_id", todo.UserID))
	return nil
}

var _ service.TaskScheduler = (*Scheduler)(nil)
