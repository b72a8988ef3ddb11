package main

import (
	"context"
	"log"
	"os"
	"os/signal"
	"syscall"

	"go.uber.org/zap"

	"github.com/spec-kit/field-service/internal/app"
	"github.com/spec-kit/field-service/internal/config"
	"github.com/spec-kit/field-service/internal/observability"
	"github.com/spec-kit/field-service/internal/worker"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger(cfg.Logger, cfg.App)
	if err != nil {
		log.Fatalf("failed to init logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	container, err := app.New(ctx, *cfg, logger)
	if err != nil {
		logger.Fatal("failed to start", zap.Error(err))
	}
	defer container.Close()

	if !container.Redis.Available() {
		logger.Fatal("worker requires redis", zap.String("addr", cfg.Redis.Addr))
	}

	redisOpt := worker.RedisOpt(cfg.Redis)
	server := worker.NewServer(redisOpt, cfg.Worker, logger.Named("asynq"))
	mux := worker.NewServeMux(worker.Handlers{
		Todos:  container.Activity,
		Calls:  container.Calls,
		Logger: logger.Named("tasks"),
	})

	periodic, err := worker.NewPeriodicScheduler(redisOpt, cfg.Worker, logger.Named("cron"))
	if err != nil {
		logger.Fatal("failed to schedule sla sweep", zap.Error(err))
	}
	if err := periodic.Start(); err != nil {
		logger.Fatal("failed to start scheduler", zap.Error(err))
	}
	if err := server.Start(mux); err != nil {
		logger.Fatal("failed to start worker", zap.Error(err))
	}
	logger.Info("worker started", zap.String("queue", cfg.Worker.Queue), zap.Int("concurrency", cfg.Worker.Concurrency))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh
	logger.Info("shutting down", zap.String("signal", sig.String()))

	periodic.Shutdown()
	server.Shutdown()
}
