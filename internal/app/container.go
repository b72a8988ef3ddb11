// Package app assembles the services shared by the API and worker binaries.
package app

import (
	"context"
	"fmt"

	"github.com/hibiken/asynq"
	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/events"
	"github.com/spec-kit/field-service/internal/notify"
	"github.com/spec-kit/field-service/internal/observability"
	"github.com/spec-kit/field-service/internal/persistence"
	"github.com/spec-kit/field-service/internal/sequence"
	"github.com/spec-kit/field-service/internal/service"
	"github.com/spec-kit/field-service/internal/worker"
)

// Container holds the wired services and the connections they own.
type Container struct {
	Config   config.Config
	Logger   *zap.Logger
	Postgres *persistence.Postgres
	Redis    *persistence.Redis
	Repos    persistence.Repositories
	Metrics  *observability.Metrics

	Dispatcher    events.Dispatcher
	Activity      *service.ActivityService
	Calls         *service.CallService
	Feedback      *service.FeedbackService
	Claims        *service.ClaimService
	Technicians   *service.TechnicianService
	Operators     *service.OperatorService
	Auth          *service.AuthService
	Notifications *service.NotificationService

	queue *asynq.Client
}

// New connects to Postgres and Redis and builds every service.
// Without a DSN the in-memory store is used; without Redis to-dos are recorded inline.
func New(ctx context.Context, cfg config.Config, logger *zap.Logger) (*Container, error) {
	pg, err := persistence.NewPostgres(ctx, cfg.Postgres, logger)
	if err != nil {
		return nil, fmt.Errorf("connect postgres: %w", err)
	}
	if cfg.Postgres.RunMigrations {
		if err := persistence.RunMigrations(ctx, pg.PoolHandle(), logger); err != nil {
			pg.Close()
			return nil, fmt.Errorf("run migrations: %w", err)
		}
	}
	rdb := persistence.NewRedis(ctx, cfg.Redis, logger)

	c := &Container{
		Config:     cfg,
		Logger:     logger,
		Postgres:   pg,
		Redis:      rdb,
		Repos:      persistence.NewRepositories(pg.PoolHandle()),
		Metrics:    observability.NewMetrics(),
		Dispatcher: events.NewInMemoryDispatcher(logger.Named("events")),
	}
	c.build()
	return c, nil
}

func (c *Container) build() {
	cfg, logger, repos := c.Config, c.Logger, c.Repos

	references := sequence.NewGenerator(c.counter(), nil)
	c.Activity = service.NewActivityService(repos.Activities)

	var scheduler service.TaskScheduler = c.Activity
	if c.Redis.Available() {
		c.queue = asynq.NewClient(worker.RedisOpt(cfg.Redis))
		scheduler = worker.NewScheduler(c.queue, cfg.Worker, logger.Named("scheduler"))
	} else {
		logger.Warn("redis unavailable; follow-up to-dos are recorded inline")
	}

	deliverer := notify.NewDeliverer(cfg.Notification, logger.Named("notify"))
	matcher := service.NewGeoMatcher(repos.ServiceAreas, repos.Calls)
	assignment := service.NewAssignmentService(service.AssignmentDependencies{
		Matcher:        matcher,
		TechnicianRepo: repos.Technicians,
		Logger:         logger.Named("assignment"),
	})

	c.Calls = service.NewCallService(service.CallDependencies{
		CallRepo:         repos.Calls,
		NotificationRepo: repos.Notifications,
		AttachmentRepo:   repos.Attachments,
		Assignment:       assignment,
		References:       references,
		Activity:         c.Activity,
		Scheduler:        scheduler,
		Notifier:         deliverer,
		Dispatcher:       c.Dispatcher,
		Logger:           logger.Named("calls"),
	})
	c.Feedback = service.NewFeedbackService(service.FeedbackDependencies{
		FeedbackRepo:   repos.Feedbacks,
		CallRepo:       repos.Calls,
		TechnicianRepo: repos.Technicians,
		CallService:    c.Calls,
		Notifier:       deliverer,
		Activity:       c.Activity,
		Scheduler:      scheduler,
		Dispatcher:     c.Dispatcher,
		Logger:         logger.Named("feedback"),
	})
	c.Claims = service.NewClaimService(service.ClaimDependencies{
		PartnerRepo: repos.Partners,
		ClaimRepo:   repos.Claims,
		CallRepo:    repos.Calls,
		References:  references,
		Activity:    c.Activity,
		Logger:      logger.Named("claims"),
	})
	c.Technicians = service.NewTechnicianService(service.TechnicianDependencies{
		TechnicianRepo:  repos.Technicians,
		ServiceAreaRepo: repos.ServiceAreas,
		OperatorRepo:    repos.Operators,
		CallRepo:        repos.Calls,
		Matcher:         matcher,
		References:      references,
		Activity:        c.Activity,
		Logger:          logger.Named("technicians"),
	})
	c.Operators = service.NewOperatorService(cfg, repos.Operators, logger.Named("operators"))
	c.Auth = service.NewAuthService(cfg, service.AuthDependencies{OperatorRepo: repos.Operators})

	notifications := service.NotificationDependencies{
		Dispatcher: c.Dispatcher,
		Notifier:   deliverer,
		Logger:     logger.Named("notifications"),
	}
	if webhook := notify.NewWebhook(cfg.Notification, logger.Named("webhook")); webhook != nil {
		notifications.Sink = webhook
	}
	c.Notifications = service.NewNotificationService(notifications)
	c.Notifications.RegisterHandlers()
	c.Metrics.Subscribe(c.Dispatcher, events.AllEventTypes...)
}

// counter prefers Redis, then the Postgres sequence table, then process memory.
func (c *Container) counter() sequence.Counter {
	switch {
	case c.Redis.Available():
		return sequence.NewRedisCounter(c.Redis.Client)
	case c.Postgres.PoolHandle() != nil:
		return sequence.NewPostgresCounter(c.Postgres.PoolHandle())
	default:
		return sequence.NewMemoryCounter()
	}
}

// Close releases the queue client and connections.
func (c *Container) Close() {
	if c.queue != nil {
		_ = c.queue.Close()
	}
	c.Redis.Close()
	c.Postgres.Close()
}
