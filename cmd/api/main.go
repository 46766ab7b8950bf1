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
	"go.uber.org/zap"
)

const shutdownTimeout = 10 * time.Second

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("failed to load config: %v", err)
	}

	logger, err := observability.NewLogger("application-notifier-api", cfg.LogLevel)
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

	server, err := container.NewAPIServer()
	if err != nil {
		logger.Fatal("http server initialization failed", zap.Error(err))
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("application-notifier api started", zap.Int("port", cfg.APIPort))
		serveErr <- server.Listen(fmt.Sprintf(":%d", cfg.APIPort))
	}()

	select {
	case <-ctx.Done():
		logger.Info("shutdown signal received")
	case err := <-serveErr:
		if err != nil {
			logger.Error("http server stopped", zap.Error(err))
		}
	}

	if err := server.ShutdownWithTimeout(shutdownTimeout); err != nil {
		logger.Error("http server shutdown failed", zap.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := shutdownTracing(shutdownCtx); err != nil && !errors.Is(err, context.DeadlineExceeded) {
		logger.Warn("tracer shutdown failed", zap.Error(err))
	}

	if err := container.Close(); err != nil {
		logger.Error("failed to close dependencies", zap.Error(err))
	}
	logger.Info("application-notifier api stopped")
}
