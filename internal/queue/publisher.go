package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

type RabbitMQPublisher struct {
	client *RabbitMQ
}

func NewRabbitMQPublisher(client *RabbitMQ) *RabbitMQPublisher {
	return &RabbitMQPublisher{client: client}
}

func (p *RabbitMQPublisher) Publish(ctx context.Context, msg TaskMessage) error {
	return p.publish(ctx, TaskQueue, msg, 0)
}

// PublishDelayed parks msg on RetryQueue; it reaches TaskQueue once delay
// has passed.
func (p *RabbitMQPublisher) PublishDelayed(ctx context.Context, msg TaskMessage, delay time.Duration) error {
	if delay <= 0 {
		return p.Publish(ctx, msg)
	}
	return p.publish(ctx, RetryQueue, msg, delay)
}

func (p *RabbitMQPublisher) publish(ctx context.Context, queue string, msg TaskMessage, delay time.Duration) error {
	if p == nil || p.client == nil {
		return fmt.Errorf("publisher is not initialized")
	}
	if err := msg.Validate(); err != nil {
		return fmt.Errorf("invalid task message: %w", err)
	}

	payload, err := json.Marshal(msg)
	if err != nil {
		return fmt.Errorf("failed to marshal task message: %w", err)
	}

	ch, err := p.client.channel(ctx)
	if err != nil {
		return err
	}
	defer ch.Close()

	if err := ch.PublishWithContext(ctx, "", queue, false, false, buildPublishing(msg, payload, delay)); err != nil {
		return fmt.Errorf("failed to publish message to queue %q: %w", queue, err)
	}

	return nil
}

func buildPublishing(msg TaskMessage, payload []byte, delay time.Duration) amqp.Publishing {
	publishing := amqp.Publishing{
		ContentType:   "application/json",
		DeliveryMode:  amqp.Persistent,
		Timestamp:     time.Now().UTC(),
		MessageId:     msg.TaskID,
		CorrelationId: msg.CorrelationID,
		Type:          msg.Kind.String(),
		Priority:      PriorityValue(msg.Kind),
		Body:          payload,
	}
	if delay > 0 {
		publishing.Expiration = strconv.FormatInt(max(delay.Milliseconds(), 1), 10)
	}
	return publishing
}

func (p *RabbitMQPublisher) Close() error {
	if p == nil || p.client == nil {
		return nil
	}
	return p.client.Close()
}
