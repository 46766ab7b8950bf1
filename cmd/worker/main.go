package main

import (
	"context"
	"errors"
	"fmt"
	"log"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"github.com/kursadbilgin/application-notifier/internal/app"
	"github.com/kursadbilgin/application-notifier/internal/config"
	"github.com/kursadbilgin/application-notifier/internal/observability"
	"github.com/kursadbilgin/application-notifier/internal/service"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger("application-notifier-worker", cfg.LogLevel)
	if err != nil {
		log.Fatalf("failed to initialize logger: %v", err)
	}
	defer logger.Sync() //nolint:errcheck

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	shutdownTracing := observability.SetupTracing(cfg.TraceSampleRatio)

	container, err := app.New(ctx, cfg, logger)
	if err != nil {
		logger.Fatal("dependency initialization failed", zap.Error(err))
	}

	worker, err := service.NewTaskWorker(
		container.Notifications,
		container.NewConsumer(),
		container.Publisher,
		cfg.WorkerConcurrency,
		cfg.TaskMaxAttempts,
		logger,
	)
	if err != nil {
		logger.Fatal("task worker initialization failed", zap.Error(err))
	}
	worker.SetMetrics(container.Metrics)

	ops := container.NewOpsServer()

	g, groupCtx := errgroup.WithContext(ctx)
	g.Go(func() error {
		return worker.Start(groupCtx)
	})
	g.Go(func() error {
		return ops.Listen(fmt.Sprintf(":%d", cfg.WorkerHTTPPort))
	})
	g.Go(func() error {
		<-groupCtx.Done()
		return ops.ShutdownWithTimeout(shutdownTimeout)
	})

	logger.Info("application-notifier worker started",
		zap.Int("concurrency", cfg.WorkerConcurrency),
		zap.Int("httpPort", cfg.WorkerHTTPPort),
	)

	if err := g.Wait(); err != nil && !errors.Is(err, context.Canceled) {
		logger.Error("worker stopped with error", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}

	if err := container.Close(); err != nil {
		logger.Error("failed to close dependencies", zap.Error(err))
	}
	logger.Info("application-notifier worker stopped")
}
