package queue

import (
	"context"
	"errors"
	"time"
)

const (
	// TaskQueue is the work queue every notification task is consumed from.
	TaskQueue = "notifications.tasks"
	// RetryQueue holds delayed retries. Messages expire back into TaskQueue.
	RetryQueue = "notifications.tasks.retry"
	// DeadLetterQueue receives tasks that failed permanently or ran out of
	// attempts.
	DeadLetterQueue = "dlq.notifications.tasks"

	queueMaxPriority int32 = 3
)

// ErrDeadLetter marks a handler failure that must not be redelivered. The
// consumer routes such messages to DeadLetterQueue.
var ErrDeadLetter = errors.New("dead letter")

// Publisher publishes notification tasks.
type Publisher interface {
	Publish(ctx context.Context, msg TaskMessage) error
	PublishDelayed(ctx context.Context, msg TaskMessage, delay time.Duration) error
	Close() error
}

// MessageHandler handles a consumed task. A nil error acks the delivery, an
// error wrapping ErrDeadLetter dead-letters it and any other error requeues
// it.
type MessageHandler func(ctx context.Context, msg TaskMessage) error

// Consumer consumes notification tasks.
type Consumer interface {
	Consume(ctx context.Context, queue string, handler MessageHandler) error
	Close() error
}

// PriorityValue maps task kind to RabbitMQ message priority. Applicant-facing
// status emails go first, digests last.
func PriorityValue(kind TaskKind) uint8 {
	switch kind {
	case TaskStatusUpdate:
		return 3
	case TaskNewApplication:
		return 2
	case TaskDigest:
		return 1
	default:
		return 0
	}
}
