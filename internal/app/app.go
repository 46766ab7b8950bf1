// Package app wires the notifier's dependencies for the api and worker
// binaries.
package app

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/hashicorp/go-multierror"
	"github.com/kursadbilgin/application-notifier/internal/config"
	"github.com/kursadbilgin/application-notifier/internal/infra/postgresql"
	"github.com/kursadbilgin/application-notifier/internal/infra/postgresql/migrations"
	infraredis "github.com/kursadbilgin/application-notifier/internal/infra/redis"
	"github.com/kursadbilgin/application-notifier/internal/observability"
	"github.com/kursadbilgin/application-notifier/internal/provider"
	"github.com/kursadbilgin/application-notifier/internal/queue"
	"github.com/kursadbilgin/application-notifier/internal/ratelimit"
	"github.com/kursadbilgin/application-notifier/internal/render"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"github.com/kursadbilgin/application-notifier/internal/service"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"
)

// Container holds the long-lived clients and services shared by both binaries.
type Container struct {
	Config  *config.Config
	Logger  *zap.Logger
	Metrics *observability.Metrics

	DB     *gorm.DB
	SQLDB  *sql.DB
	Redis  *redis.Client
	Broker *queue.RabbitMQ

	Publisher *queue.RabbitMQPublisher

	Notifications *service.NotificationService
	Applications  *service.ApplicationService
	Settings      *service.SettingsService

	closers []func() error
}

// New connects to every backing service and builds the service graph. On
// failure, anything already opened is closed before returning.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (c *Container, err error) {
	c = &Container{
		Config:  cfg,
		Logger:  logger,
		Metrics: observability.NewMetrics(),
	}
	defer func() {
		if err != nil {
			_ = c.Close()
			c = nil
		}
	}()

	if err := c.connect(ctx); err != nil {
		return c, err
	}
	if err := c.buildServices(ctx); err != nil {
		return c, err
	}

	return c, nil
}

func (c *Container) connect(ctx context.Context) error {
	cfg := c.Config

	db, err := postgresql.NewPostgres(ctx, cfg.DatabaseDSN)
	if err != nil {
		return fmt.Errorf("postgres initialization failed: %w", err)
	}
	c.DB = db

	sqlDB, err := db.DB()
	if err != nil {
		return fmt.Errorf("postgres underlying db init failed: %w", err)
	}
	c.SQLDB = sqlDB
	c.closers = append(c.closers, sqlDB.Close)

	if cfg.AutoMigrate {
		if err := migrations.Migrate(db); err != nil {
			return fmt.Errorf("database migrations failed: %w", err)
		}
		c.Logger.Info("database migrations applied")
	}

	rdb, err := infraredis.NewRedis(ctx, cfg.RedisURL)
	if err != nil {
		return fmt.Errorf("redis initialization failed: %w", err)
	}
	c.Redis = rdb
	c.closers = append(c.closers, rdb.Close)

	broker, err := queue.NewRabbitMQ(ctx, cfg.RabbitMQURL)
	if err != nil {
		return fmt.Errorf("rabbitmq initialization failed: %w", err)
	}
	c.Broker = broker
	c.closers = append(c.closers, broker.Close)

	// Publisher and consumers share the broker connection closed above.
	c.Publisher = queue.NewRabbitMQPublisher(broker)

	return nil
}

func (c *Container) buildServices(ctx context.Context) error {
	cfg := c.Config

	emailProvider, err := newEmailProvider(ctx, cfg)
	if err != nil {
		return err
	}

	var limiter ratelimit.RateLimiter = ratelimit.Unlimited{}
	if cfg.RateLimitPerSec > 0 {
		sendLimiter, err := infraredis.NewSendRateLimiter(c.Redis, cfg.RateLimitPerSec)
		if err != nil {
			return fmt.Errorf("rate limiter initialization failed: %w", err)
		}
		limiter = sendLimiter
	}

	dedup, err := infraredis.NewDedupGuard(c.Redis, cfg.DedupTTL())
	if err != nil {
		return fmt.Errorf("dedup guard initialization failed: %w", err)
	}

	renderer, err := render.NewRenderer(cfg.DashboardURL)
	if err != nil {
		return fmt.Errorf("renderer initialization failed: %w", err)
	}

	applicationRepo := repository.NewGormApplicationRepo(c.DB)
	adminRepo := repository.NewGormAdminRepo(c.DB)
	preferenceRepo := repository.NewGormPreferenceRepo(c.DB)
	brandingRepo := repository.NewGormBrandingRepo(c.DB)
	logRepo := repository.NewGormNotificationLogRepo(c.DB)

	dispatcher, err := service.NewDispatcher(
		provider.NewTracingProvider(emailProvider),
		logRepo,
		limiter,
		cfg.EmailFrom,
		cfg.DispatchConcurrency,
		c.Logger,
	)
	if err != nil {
		return fmt.Errorf("dispatcher initialization failed: %w", err)
	}
	dispatcher.SetMetrics(c.Metrics)

	notifications, err := service.NewNotificationService(
		applicationRepo,
		adminRepo,
		preferenceRepo,
		service.NewBrandingResolver(brandingRepo, c.Logger),
		renderer,
		dispatcher,
		c.Logger,
	)
	if err != nil {
		return fmt.Errorf("notification service initialization failed: %w", err)
	}
	notifications.SetMetrics(c.Metrics)
	notifications.SetDeduper(dedup)
	c.Notifications = notifications

	applications, err := service.NewApplicationService(applicationRepo, c.Publisher, c.Logger)
	if err != nil {
		return fmt.Errorf("application service initialization failed: %w", err)
	}
	c.Applications = applications

	settings, err := service.NewSettingsService(adminRepo, preferenceRepo, brandingRepo, logRepo, c.Logger)
	if err != nil {
		return fmt.Errorf("settings service initialization failed: %w", err)
	}
	c.Settings = settings

	c.Logger.Info("notifier dependencies ready",
		zap.String("emailProvider", emailProvider.Name()),
		zap.Int("rateLimitPerSec", cfg.RateLimitPerSec),
		zap.Int("dispatchConcurrency", cfg.DispatchConcurrency),
	)
	return nil
}

// NewConsumer returns a task consumer on the shared broker connection.
func (c *Container) NewConsumer() *queue.RabbitMQConsumer {
	return queue.NewRabbitMQConsumer(c.Broker, c.Config.WorkerPrefetch, c.Logger)
}

// Close releases clients in reverse order of creation.
func (c *Container) Close() error {
	var result *multierror.Error
	for i := len(c.closers) - 1; i >= 0; i-- {
		if err := c.closers[i](); err != nil {
			result = multierror.Append(result, err)
		}
	}
	c.closers = nil
	return result.ErrorOrNil()
}

func newEmailProvider(ctx context.Context, cfg *config.Config) (provider.EmailProvider, error) {
	switch strings.ToLower(cfg.EmailProvider) {
	case config.EmailProviderSES:
		p, err := provider.NewSESProvider(ctx, cfg.AWSRegion)
		if err != nil {
			return nil, fmt.Errorf("ses provider initialization failed: %w", err)
		}
		return p, nil
	default:
		p, err := provider.NewHTTPEmailProvider(cfg.EmailAPIURL, cfg.EmailAPIKey)
		if err != nil {
			return nil, fmt.Errorf("http email provider initialization failed: %w", err)
		}
		return p, nil
	}
}
