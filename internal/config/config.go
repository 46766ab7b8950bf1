package config

import (
	"fmt"
	"strings"
	"time"

	"github.com/Netflix/go-env"
	"github.com/kursadbilgin/application-notifier/internal/domain"
)

const (
	EmailProviderHTTP = "http"
	EmailProviderSES  = "ses"
)

type Config struct {
	DatabaseDSN string `env:"DATABASE_DSN,required=true"`
	RabbitMQURL string `env:"RABBITMQ_URL,required=true"`
	RedisURL    string `env:"REDIS_URL,required=true"`

	EmailProvider string `env:"EMAIL_PROVIDER,default=http"`
	EmailAPIURL   string `env:"EMAIL_API_URL,default=https://api.resend.com/emails"`
	EmailAPIKey   string `env:"EMAIL_API_KEY"`
	EmailFrom     string `env:"EMAIL_FROM,default=Opportunities Portal <notifications@resend.dev>"`
	AWSRegion     string `env:"AWS_REGION,default=us-east-1"`
	DashboardURL  string `env:"DASHBOARD_URL,default=http://localhost:3000"`

	RateLimitPerSec     int    `env:"RATE_LIMIT_PER_SEC,default=10"`
	DispatchConcurrency int    `env:"DISPATCH_CONCURRENCY,default=8"`
	DedupTTLRaw         string `env:"DEDUP_TTL,default=24h"`
	TaskMaxAttempts     int    `env:"TASK_MAX_ATTEMPTS,default=5"`
	WorkerPrefetch      int    `env:"WORKER_PREFETCH,default=4"`
	WorkerConcurrency   int    `env:"WORKER_CONCURRENCY,default=2"`

	APIPort          int     `env:"API_PORT,default=8080"`
	WorkerHTTPPort   int     `env:"WORKER_HTTP_PORT,default=8081"`
	LogLevel         string  `env:"LOG_LEVEL,default=info"`
	AutoMigrate      bool    `env:"AUTO_MIGRATE,default=false"`
	TraceSampleRatio float64 `env:"TRACE_SAMPLE_RATIO,default=0.1"`

	dedupTTL time.Duration
}

func Load() (*Config, error) {
	var cfg Config
	_, err := env.UnmarshalFromEnviron(&cfg)
	if err != nil {
		return nil, fmt.Errorf("failed to load config: %w", err)
	}
	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return &cfg, nil
}

// DedupTTL is how long a handled new-application event is remembered.
func (c *Config) DedupTTL() time.Duration {
	return c.dedupTTL
}

func (c *Config) validate() error {
	for key, value := range map[string]string{
		"DATABASE_DSN": c.DatabaseDSN,
		"RABBITMQ_URL": c.RabbitMQURL,
		"REDIS_URL":    c.RedisURL,
	} {
		if strings.TrimSpace(value) == "" {
			return fmt.Errorf("%s must not be blank", key)
		}
	}

	c.EmailProvider = strings.ToLower(strings.TrimSpace(c.EmailProvider))
	switch c.EmailProvider {
	case EmailProviderHTTP:
		if !domain.IsHTTPURL(c.EmailAPIURL) {
			return fmt.Errorf("EMAIL_API_URL must be an http(s) url")
		}
	case EmailProviderSES:
		if strings.TrimSpace(c.AWSRegion) == "" {
			return fmt.Errorf("AWS_REGION is required for the ses provider")
		}
	default:
		return fmt.Errorf("EMAIL_PROVIDER must be %q or %q, got %q", EmailProviderHTTP, EmailProviderSES, c.EmailProvider)
	}

	if strings.TrimSpace(c.EmailFrom) == "" {
		return fmt.Errorf("EMAIL_FROM is required")
	}

	ttl, err := time.ParseDuration(strings.TrimSpace(c.DedupTTLRaw))
	if err != nil || ttl <= 0 {
		return fmt.Errorf("DEDUP_TTL must be a positive duration, got %q", c.DedupTTLRaw)
	}
	c.dedupTTL = ttl

	if c.TaskMaxAttempts < 1 {
		return fmt.Errorf("TASK_MAX_ATTEMPTS must be >= 1")
	}
	if c.TraceSampleRatio < 0 || c.TraceSampleRatio > 1 {
		return fmt.Errorf("TRACE_SAMPLE_RATIO must be within [0, 1]")
	}
	return nil
}
