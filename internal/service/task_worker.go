package service

import (
	"context"
	"errors"
	"fmt"
	"math/rand"
	"time"

	"github.com/kursadbilgin/application-notifier/internal/domain"
	"github.com/kursadbilgin/application-notifier/internal/observability"
	"github.com/kursadbilgin/application-notifier/internal/provider"
	"github.com/kursadbilgin/application-notifier/internal/queue"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

const (
	minWorkerConcurrency   = 1
	defaultTaskMaxAttempts = 5
	maxRetryDelay          = 60 * time.Second
	baseRetryDelay         = time.Second
	maxRetryJitterMillis   = 250
)

// Notifier runs the three notification triggers. *NotificationService
// implements it.
type Notifier interface {
	NotifyNewApplication(ctx context.Context, event domain.NewApplicationEvent) (Outcome, error)
	RunDigest(ctx context.Context, req domain.DigestRequest) (Outcome, error)
	NotifyStatusChange(ctx context.Context, req domain.StatusChangeRequest) (Outcome, error)
}

var _ Notifier = (*NotificationService)(nil)

// TaskWorker consumes queued notification tasks and retries transient
// failures with exponential backoff through the delayed retry queue.
type TaskWorker struct {
	notifier    Notifier
	consumer    queue.Consumer
	publisher   queue.Publisher
	logger      *zap.Logger
	metrics     *observability.Metrics
	concurrency int
	maxAttempts int
	now         func() time.Time
	randIntn    func(n int) int
}

func NewTaskWorker(
	notifier Notifier,
	consumer queue.Consumer,
	publisher queue.Publisher,
	concurrency int,
	maxAttempts int,
	logger *zap.Logger,
) (*TaskWorker, error) {
	if notifier == nil {
		return nil, errors.New("notifier is required")
	}
	if consumer == nil || publisher == nil {
		return nil, errors.New("consumer and publisher are required")
	}
	if concurrency < minWorkerConcurrency {
		concurrency = minWorkerConcurrency
	}
	if maxAttempts < 1 {
		maxAttempts = defaultTaskMaxAttempts
	}
	if logger == nil {
		logger = zap.NewNop()
	}

	return &TaskWorker{
		notifier:    notifier,
		consumer:    consumer,
		publisher:   publisher,
		logger:      logger,
		concurrency: concurrency,
		maxAttempts: maxAttempts,
		now:         time.Now,
		randIntn:    rand.Intn,
	}, nil
}

func (w *TaskWorker) SetMetrics(metrics *observability.Metrics) {
	if w == nil {
		return
	}
	w.metrics = metrics
}

// Start consumes the task queue until context cancellation.
func (w *TaskWorker) Start(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}

	g, groupCtx := errgroup.WithContext(ctx)
	for i := 0; i < w.concurrency; i++ {
		workerID := i + 1

		g.Go(func() error {
			w.logger.Info("worker started",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.TaskQueue),
			)

			err := w.consumer.Consume(groupCtx, queue.TaskQueue, w.processMessage)
			if err != nil {
				w.logger.Error("worker stopped with error",
					zap.Int("workerId", workerID),
					zap.String("queue", queue.TaskQueue),
					zap.Error(err),
				)
				return err
			}

			w.logger.Info("worker stopped",
				zap.Int("workerId", workerID),
				zap.String("queue", queue.TaskQueue),
			)
			return nil
		})
	}

	return g.Wait()
}

func (w *TaskWorker) processMessage(ctx context.Context, msg queue.TaskMessage) error {
	if msg.CorrelationID != "" {
		ctx = observability.WithCorrelationID(ctx, msg.CorrelationID)
	}
	log := observability.WithContextLogger(w.logger, ctx).With(
		zap.String("taskId", msg.TaskID),
		zap.String("kind", msg.Kind.String()),
		zap.Int("attempt", msg.Attempt),
	)

	outcome, err := w.run(ctx, msg)
	if err == nil {
		log.Info("task completed",
			zap.Bool("skipped", outcome.Skipped),
			zap.Int("sent", outcome.Sent),
			zap.Int("failed", outcome.Failed),
			zap.String("message", outcome.Message),
		)
		return nil
	}

	// Shutdown: let the broker redeliver.
	if ctx.Err() != nil {
		return err
	}

	kindLabel := msg.Kind.String()
	if isPermanentTaskError(err) {
		w.metrics.IncTaskDeadLettered(kindLabel)
		log.Error("task failed permanently", zap.Error(err))
		return fmt.Errorf("%w: %v", queue.ErrDeadLetter, err)
	}
	if msg.Attempt >= w.maxAttempts {
		w.metrics.IncTaskDeadLettered(kindLabel)
		log.Error("task retries exhausted", zap.Int("maxAttempts", w.maxAttempts), zap.Error(err))
		return fmt.Errorf("%w: retries exhausted: %v", queue.ErrDeadLetter, err)
	}

	delay := w.computeRetryDelay(msg.Attempt)
	if publishErr := w.publisher.PublishDelayed(ctx, msg.NextAttempt(), delay); publishErr != nil {
		return fmt.Errorf("failed to schedule retry: %w", publishErr)
	}
	w.metrics.IncTaskRetried(kindLabel)
	log.Warn("task failed, retry scheduled",
		zap.Duration("delay", delay),
		zap.Time("retryAt", w.now().Add(delay).UTC()),
		zap.Error(err),
	)
	return nil
}

func (w *TaskWorker) run(ctx context.Context, msg queue.TaskMessage) (Outcome, error) {
	switch msg.Kind {
	case queue.TaskNewApplication:
		var event domain.NewApplicationEvent
		if err := msg.Decode(&event); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return w.notifier.NotifyNewApplication(ctx, event)
	case queue.TaskDigest:
		var req domain.DigestRequest
		if err := msg.Decode(&req); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return w.notifier.RunDigest(ctx, req)
	case queue.TaskStatusUpdate:
		var req domain.StatusChangeRequest
		if err := msg.Decode(&req); err != nil {
			return Outcome{}, fmt.Errorf("%w: %v", domain.ErrValidation, err)
		}
		return w.notifier.NotifyStatusChange(ctx, req)
	}
	return Outcome{}, fmt.Errorf("%w: unsupported task kind %q", domain.ErrValidation, msg.Kind)
}

// isPermanentTaskError reports failures a retry cannot fix: bad input, a
// missing application, or a provider that rejected the message outright.
func isPermanentTaskError(err error) bool {
	if errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrNotFound) {
		return true
	}
	var providerErr *provider.ProviderError
	if errors.As(err, &providerErr) {
		return !providerErr.Transient
	}
	return false
}

func (w *TaskWorker) computeRetryDelay(attemptNumber int) time.Duration {
	if attemptNumber < 1 {
		attemptNumber = 1
	}

	delay := baseRetryDelay
	for i := 1; i < attemptNumber; i++ {
		delay *= 2
		if delay >= maxRetryDelay {
			delay = maxRetryDelay
			break
		}
	}

	jitterMillis := 0
	if w.randIntn != nil && maxRetryJitterMillis > 0 {
		jitterMillis = w.randIntn(maxRetryJitterMillis + 1)
	}

	return delay + time.Duration(jitterMillis)*time.Millisecond
}
