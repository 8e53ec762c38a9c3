package queue

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

const (
	// DefaultQueueName is the main job queue
	DefaultQueueName = "reminder_jobs"
	// DefaultDLQName receives rejected and expired jobs
	DefaultDLQName = "reminder_jobs_dlq"
	// DefaultExchangeName is the direct exchange for immediate jobs
	DefaultExchangeName = "billminder_jobs"
	// DefaultDelayedExchangeName holds jobs until their delay elapses.
	// Requires the rabbitmq_delayed_message_exchange plugin.
	DefaultDelayedExchangeName = "billminder_jobs_delayed"
)

const jobsRoutingKey = "jobs"

// RabbitMQQueue implements JobQueue using RabbitMQ
type RabbitMQQueue struct {
	conn                *amqp.Connection
	channel             *amqp.Channel
	queueName           string
	dlqName             string
	exchangeName        string
	delayedExchangeName string
}

// NewRabbitMQQueue connects to RabbitMQ and declares the exchanges and queues.
func NewRabbitMQQueue(amqpURL string) (*RabbitMQQueue, error) {
	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to RabbitMQ: %w", err)
	}

	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to open channel: %w", err)
	}

	q := &RabbitMQQueue{
		conn:                conn,
		channel:             ch,
		queueName:           DefaultQueueName,
		dlqName:             DefaultDLQName,
		exchangeName:        DefaultExchangeName,
		delayedExchangeName: DefaultDelayedExchangeName,
	}

	if err := q.setup(); err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("failed to setup queues: %w", err)
	}

	return q, nil
}

func (q *RabbitMQQueue) setup() error {
	// The delayed exchange needs a plugin; run without scheduled delivery
	// when it is missing instead of failing startup.
	err := q.channel.ExchangeDeclare(
		q.delayedExchangeName, "x-delayed-message",
		true, false, false, false,
		amqp.Table{"x-delayed-type": "direct"},
	)
	if err != nil {
		if q.channel.IsClosed() {
			newCh, openErr := q.conn.Channel()
			if openErr != nil {
				return fmt.Errorf("failed to reopen channel after delayed exchange error: %w", openErr)
			}
			q.channel = newCh
		}
		fmt.Printf("Warning: delayed message exchange not available (plugin may not be installed): %v\n", err)
	}

	if err := q.channel.ExchangeDeclare(
		q.exchangeName, "direct",
		true, false, false, false, nil,
	); err != nil {
		return fmt.Errorf("failed to declare exchange: %w", err)
	}

	if _, err := q.channel.QueueDeclare(q.dlqName, true, false, false, false, amqp.Table{}); err != nil {
		return fmt.Errorf("failed to declare DLQ: %w", err)
	}
	if err := q.channel.QueueBind(q.dlqName, "dlq", q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind DLQ: %w", err)
	}

	mainArgs := amqp.Table{
		"x-dead-letter-exchange":    q.exchangeName,
		"x-dead-letter-routing-key": "dlq",
	}
	if _, err := q.channel.QueueDeclare(q.queueName, true, false, false, false, mainArgs); err != nil {
		return fmt.Errorf("failed to declare queue: %w", err)
	}
	if err := q.channel.QueueBind(q.queueName, jobsRoutingKey, q.exchangeName, false, nil); err != nil {
		return fmt.Errorf("failed to bind queue to exchange: %w", err)
	}

	// Binding to the delayed exchange fails when the plugin is absent.
	_ = q.channel.QueueBind(q.queueName, jobsRoutingKey, q.delayedExchangeName, false, nil)

	return nil
}

// Enqueue publishes a job. NotBefore routes through the delayed exchange;
// NotAfter becomes a per-message TTL so stale jobs dead-letter instead of firing.
func (q *RabbitMQQueue) Enqueue(ctx context.Context, job *Job) error {
	body, err := json.Marshal(job)
	if err != nil {
		return fmt.Errorf("failed to marshal job: %w", err)
	}

	publishing := amqp.Publishing{
		ContentType:  "application/json",
		Body:         body,
		DeliveryMode: amqp.Persistent,
		MessageId:    job.ID.String(),
		Timestamp:    job.CreatedAt,
	}

	if job.NotAfter != nil {
		if ttl := time.Until(*job.NotAfter); ttl > 0 {
			publishing.Expiration = fmt.Sprintf("%d", int(ttl.Milliseconds()))
		}
	}

	exchange := q.exchangeName
	if job.NotBefore != nil {
		if delay := time.Until(*job.NotBefore); delay > 0 {
			exchange = q.delayedExchangeName
			publishing.Headers = amqp.Table{"x-delay": int(delay.Milliseconds())}
		}
	}

	if err := q.channel.PublishWithContext(ctx, exchange, jobsRoutingKey, false, false, publishing); err != nil {
		return fmt.Errorf("failed to publish job: %w", err)
	}
	return nil
}

// Consume delivers messages asynchronously on a dedicated channel. Prefetch
// bounds the unacknowledged messages each consumer holds; 1 gives fair
// dispatch across workers.
func (q *RabbitMQQueue) Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error) {
	consumeCh, err := q.conn.Channel()
	if err != nil {
		return nil, nil, fmt.Errorf("failed to create consumer channel: %w", err)
	}

	if err := consumeCh.Qos(prefetchCount, 0, false); err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to set QoS: %w", err)
	}

	deliveries, err := consumeCh.Consume(q.queueName, "", false, false, false, false, nil)
	if err != nil {
		_ = consumeCh.Close()
		return nil, nil, fmt.Errorf("failed to start consuming: %w", err)
	}

	msgChan := make(chan *Message, prefetchCount)
	errChan := make(chan error, 1)

	go func() {
		defer close(msgChan)
		defer close(errChan)
		defer func() { _ = consumeCh.Close() }()

		for {
			select {
			case <-ctx.Done():
				return
			case delivery, ok := <-deliveries:
				if !ok {
					errChan <- fmt.Errorf("delivery channel closed")
					return
				}

				job, requeue, err := decodeDelivery(&delivery)
				if err != nil {
					_ = delivery.Nack(false, false)
					errChan <- err
					continue
				}
				if job == nil {
					_ = delivery.Nack(false, requeue)
					continue
				}

				msg := &Message{
					Job:         job,
					DeliveryTag: delivery.DeliveryTag,
					Channel:     consumeCh,
				}

				select {
				case <-ctx.Done():
					_ = delivery.Nack(false, true)
					return
				case msgChan <- msg:
				}
			}
		}
	}()

	return msgChan, errChan, nil
}

// decodeDelivery parses a delivery into a job. A nil job with requeue=true
// means the job is not due yet; requeue=false means it expired.
func decodeDelivery(delivery *amqp.Delivery) (*Job, bool, error) {
	if delivery.Expiration != "" {
		return nil, false, nil
	}

	var job Job
	if err := json.Unmarshal(delivery.Body, &job); err != nil {
		return nil, false, fmt.Errorf("failed to unmarshal job: %w", err)
	}

	if !job.ShouldProcess() {
		return nil, true, nil
	}
	return &job, false, nil
}

// Dequeue pulls a single message, or nil when the queue is empty.
// DEPRECATED: Use Consume() instead; polling adds delivery latency.
func (q *RabbitMQQueue) Dequeue(ctx context.Context) (*Message, error) {
	delivery, ok, err := q.channel.Get(q.queueName, false)
	if err != nil {
		return nil, fmt.Errorf("failed to get message: %w", err)
	}
	if !ok {
		return nil, nil
	}

	job, requeue, err := decodeDelivery(&delivery)
	if err != nil {
		_ = delivery.Nack(false, false)
		return nil, err
	}
	if job == nil {
		_ = delivery.Nack(false, requeue)
		return nil, nil
	}

	return &Message{
		Job:         job,
		DeliveryTag: delivery.DeliveryTag,
		Channel:     q.channel,
	}, nil
}

// HealthCheck verifies the connection and channel are usable.
func (q *RabbitMQQueue) HealthCheck(ctx context.Context) error {
	if q.conn == nil || q.conn.IsClosed() {
		return fmt.Errorf("rabbitmq connection closed")
	}
	if q.channel == nil || q.channel.IsClosed() {
		return fmt.Errorf("rabbitmq channel closed")
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
	}
	return nil
}

// PurgeOlderThan drains dead-lettered messages older than retention. The
// DLQ is roughly time ordered, so the scan stops at the first message young
// enough to keep; that message is requeued.
func (q *RabbitMQQueue) PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error) {
	cutoff := time.Now().Add(-retention)
	purged := 0

	for {
		select {
		case <-ctx.Done():
			return purged, ctx.Err()
		default:
		}

		msg, ok, err := q.channel.Get(q.dlqName, false)
		if err != nil {
			return purged, fmt.Errorf("failed to read DLQ: %w", err)
		}
		if !ok {
			return purged, nil
		}

		if msg.Timestamp.IsZero() || msg.Timestamp.Before(cutoff) {
			if err := msg.Ack(false); err != nil {
				return purged, fmt.Errorf("failed to ack purged message: %w", err)
			}
			purged++
			continue
		}

		// Young message: put it back and stop.
		if err := msg.Nack(false, true); err != nil {
			return purged, fmt.Errorf("failed to requeue DLQ message: %w", err)
		}
		return purged, nil
	}
}

// Close closes the queue connection
func (q *RabbitMQQueue) Close() error {
	var err error
	if q.channel != nil {
		err = q.channel.Close()
	}
	if q.conn != nil {
		if closeErr := q.conn.Close(); closeErr != nil && err == nil {
			err = closeErr
		}
	}
	return err
}
