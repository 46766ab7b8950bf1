package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/go-multierror"
	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/observability"
	"github.com/kursadbilgin/application-notifier/internal/provider"
	"github.com/kursadbilgin/application-notifier/internal/ratelimit"
	"github.com/kursadbilgin/application-notifier/internal/render"
	"github.com/kursadbilgin/application-notifier/internal/repository"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const defaultDispatchConcurrency = 8

// Delivery is one email to one recipient. Render is called inside the
// recipient's own error boundary, so a template failure only fails that
// recipient.
type Delivery struct {
	To          string
	Application *domain.ApplicationRef
	Render      func() (render.Email, error)
}

// DispatchResult summarizes a batch. Errors aggregates the per-recipient
// failures and is nil when every send succeeded.
type DispatchResult struct {
	Kind      domain.NotificationKind
	Attempted int
	Sent      int
	Failed    int
	Errors    error
}

func (r DispatchResult) Message() string {
	switch {
	case r.Attempted == 0:
		return fmt.Sprintf("no %s emails to send", r.Kind)
	case r.Failed == 0:
		return fmt.Sprintf("sent %d %s email(s)", r.Sent, r.Kind)
	}
	return fmt.Sprintf("sent %d of %d %s email(s), %d failed", r.Sent, r.Attempted, r.Kind, r.Failed)
}

type Dispatcher struct {
	provider    provider.EmailProvider
	logs        repository.NotificationLogRepository
	rateLimiter ratelimit.RateLimiter
	from        string
	concurrency int
	logger      *zap.Logger
	metrics     *observability.Metrics
	now         func() time.Time
}

func NewDispatcher(
	emailProvider provider.EmailProvider,
	logs repository.NotificationLogRepository,
	rateLimiter ratelimit.RateLimiter,
	from string,
	concurrency int,
	logger *zap.Logger,
) (*Dispatcher, error) {
	if emailProvider == nil {
		return nil, errors.New("email provider is required")
	}
	if logs == nil {
		return nil, errors.New("notification log repository is required")
	}
	if strings.TrimSpace(from) == "" {
		return nil, errors.New("sender address is required")
	}
	if rateLimiter == nil {
		rateLimiter = ratelimit.Unlimited{}
	}
	if concurrency < 1 {
		concurrency = defaultDispatchConcurrency
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &Dispatcher{
		provider:    emailProvider,
		logs:        logs,
		rateLimiter: rateLimiter,
		from:        strings.TrimSpace(from),
		concurrency: concurrency,
		logger:      logger,
		now:         time.Now,
	}, nil
}

func (d *Dispatcher) SetMetrics(metrics *observability.Metrics) {
	if d == nil {
		return
	}
	d.metrics = metrics
}

// Dispatch sends every delivery and never stops early on a failed recipient.
// One log entry is written per successful send.
func (d *Dispatcher) Dispatch(ctx context.Context, kind domain.NotificationKind, deliveries []Delivery) DispatchResult {
	result := DispatchResult{Kind: kind, Attempted: len(deliveries)}
	if len(deliveries) == 0 {
		return result
	}

	var (
		mu   sync.Mutex
		errs *multierror.Error
	)

	// A plain group: one recipient's failure must not cancel its siblings.
	var g errgroup.Group
	g.SetLimit(d.concurrency)
	for _, delivery := range deliveries {
		delivery := delivery
		g.Go(func() error {
			err := d.deliver(ctx, kind, delivery)

			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				result.Failed++
				errs = multierror.Append(errs, fmt.Errorf("%s: %w", delivery.To, err))
				return nil
			}
			result.Sent++
			return nil
		})
	}
	_ = g.Wait()

	result.Errors = errs.ErrorOrNil()
	return result
}

func (d *Dispatcher) deliver(ctx context.Context, kind domain.NotificationKind, delivery Delivery) error {
	kindLabel := kind.String()
	d.metrics.IncDispatchInFlight(kindLabel)
	defer d.metrics.DecDispatchInFlight(kindLabel)

	log := observability.WithContextLogger(d.logger, ctx).With(
		zap.String("kind", kindLabel),
		zap.String("recipient", delivery.To),
	)

	if delivery.Render == nil {
		d.metrics.IncEmailFailed(kindLabel, "render_error")
		return fmt.Errorf("no renderer for %s email", kindLabel)
	}
	email, err := delivery.Render()
	if err != nil {
		d.metrics.IncEmailFailed(kindLabel, "render_error")
		log.Error("failed to render email", zap.Error(err))
		return err
	}

	outbound := provider.OutboundEmail{
		From:    d.from,
		To:      strings.TrimSpace(delivery.To),
		Subject: email.Subject,
		HTML:    email.HTML,
	}
	if err := outbound.Validate(); err != nil {
		d.metrics.IncEmailFailed(kindLabel, "invalid_email")
		log.Warn("skipping invalid email", zap.Error(err))
		return err
	}

	providerName := d.provider.Name()
	if err := d.rateLimiter.Wait(ctx, providerName); err != nil {
		d.metrics.IncEmailFailed(kindLabel, "rate_limit")
		return fmt.Errorf("rate limiter wait failed: %w", err)
	}

	sendStart := d.now()
	resp, err := d.provider.Send(ctx, outbound)
	d.metrics.ObserveEmailSendDuration(providerName, d.now().Sub(sendStart))
	if err != nil {
		d.metrics.IncEmailFailed(kindLabel, provider.Reason(err))
		log.Warn("email send failed",
			zap.String("provider", providerName),
			zap.Bool("transient", provider.IsTransient(err)),
			zap.Error(err),
		)
		return err
	}
	d.metrics.IncEmailSent(kindLabel)

	entry := &domain.NotificationLogEntry{
		Recipient: outbound.To,
		Kind:      kind,
		SentAt:    d.now().UTC(),
	}
	if delivery.Application != nil {
		appKind := delivery.Application.Kind
		appID := delivery.Application.ID
		entry.ApplicationKind = &appKind
		entry.ApplicationID = &appID
	}
	if resp != nil && strings.TrimSpace(resp.MessageID) != "" {
		messageID := resp.MessageID
		entry.ProviderMessageID = &messageID
	}

	// The email is already out; a failed audit write is logged, not retried.
	if err := d.logs.Create(ctx, entry); err != nil {
		log.Error("failed to write notification log", zap.Error(err))
	}

	log.Info("email sent",
		zap.String("provider", providerName),
		zap.String("providerMessageId", stringPtrValue(entry.ProviderMessageID)),
	)
	return nil
}

func stringPtrValue(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}
