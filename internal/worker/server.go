package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/service"
)

// TodoRecorder materialises to-dos on the activity feed.
type TodoRecorder interface {
	RecordTodo(ctx context.Context, todo service.TodoRequest) error
}

// SLASweeper flags open calls past their deadline.
type SLASweeper interface {
	SweepSLABreaches(ctx context.Context) (int, error)
}

// Handlers processes queued tasks.
type Handlers struct {
	Todos  TodoRecorder
	Calls  SLASweeper
	Logger *zap.Logger
}

// NewServeMux routes task types to handlers.
func NewServeMux(h Handlers) *asynq.ServeMux {
	if h.Logger == nil {
		h.Logger = zap.NewNop()
	}
	mux := asynq.NewServeMux()
	mux.HandleFunc(TypeActivityTodo, h.handleTodo)
	mux.HandleFunc(TypeSLASweep, h.handleSLASweep)
	return mux
}

func (h Handlers) handleTodo(ctx context.Context, task *asynq.Task) error {
	var todo service.TodoRequest
	if err := json.Unmarshal(task.Payload(), &todo); err != nil {
		h.Logger.Error("invalid todo payload", zap.Error(err))
		return fmt.Errorf("decode todo: %v: %w", err, asynq.SkipRetry)
	}
	if err := h.Todos.RecordTodo(ctx, todo); err != nil {
		h.Logger.Warn("todo not recorded", zap.String("record_id", todo.RecordID), zap.Error(err))
		return err
	}
	return nil
}

func (h Handlers) handleSLASweep(ctx context.Context, _ *asynq.Task) error {
	breached, err := h.Calls.SweepSLABreaches(ctx)
	if err != nil {
		h.Logger.Error("sla sweep failed", zap.Error(err))
		return err
	}
	h.Logger.Info("sla sweep finished", zap.Int("breached", breached))
	return nil
}

// RedisOpt converts the Redis config for asynq.
func RedisOpt(cfg config.RedisConfig) asynq.RedisClientOpt {
	return asynq.RedisClientOpt{Addr: cfg.Addr, Password: cfg.Password, DB: cfg.DB}
}

// NewServer builds the task server for the configured queue.
func NewServer(redisOpt asynq.RedisConnOpt, cfg config.WorkerConfig, logger *zap.Logger) *asynq.Server {
	queue := cfg.Queue
	if queue == "" {
		queue = "default"
	}
	return asynq.NewServer(redisOpt, asynq.Config{
		Concurrency: cfg.Concurrency,
		Queues:      map[string]int{queue: 1},
		Logger:      logger.Sugar(),
	})
}

// NewPeriodicScheduler registers the SLA sweep on its cron spec.
func NewPeriodicScheduler(redisOpt asynq.RedisConnOpt, cfg config.WorkerConfig, logger *zap.Logger) (*asynq.Scheduler, error) {
	scheduler := asynq.NewScheduler(redisOpt, &asynq.SchedulerOpts{
		Location: time.UTC,
		Logger:   logger.Sugar(),
	})
	opts := []asynq.Option{asynq.MaxRetry(0), asynq.Unique(time.Minute)}
	if cfg.Queue != "" {
		opts = append(opts, asynq.Queue(cfg.Queue))
	}
	entryID, err := scheduler.Register(cfg.SLASweepCron, NewSLASweepTask(), opts...)
	if err != nil {
		return nil, fmt.Errorf("register sla sweep: %w", err)
	}
	logger.Info("sla sweep scheduled", zap.String("cron", cfg.SLASweepCron), zap.String("entry_id", entryID))
	return scheduler, nil
}
