package worker

import (
	"encoding/json"
	"time"

	"github.com/hibiken/asynq"

	"github.com/spec-kit/field-service/internal/service"
)

const (
	TypeActivityTodo = "activity:todo"
	TypeSLASweep     = "call:sla_sweep"
)

// NewTodoTask wraps a to-do for delivery at processAt.
func NewTodoTask(todo service.TodoRequest, queue string, processAt time.Time) (*asynq.Task, []asynq.Option, error) {
	b, err := json.Marshal(todo)
	if err != nil {
		return nil, nil, err
	}
	task := asynq.NewTask(TypeActivityTodo, b)
	opts := []asynq.Option{asynq.ProcessAt(processAt), asynq.MaxRetry(5)}
	if queue != "" {
		opts = append(opts, asynq.Queue(queue))
	}
	return task, opts, nil
}

// NewSLASweepTask builds the periodic sweep task.
func NewSLASweepTask() *asynq.Task {
	return asynq.NewTask(TypeSLASweep, nil)
}
