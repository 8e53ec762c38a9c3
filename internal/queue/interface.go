package queue

import (
	"context"
	"time"
)

// MessageInterface abstracts a delivered message so workers can be tested
// without a broker.
type MessageInterface interface {
	Ack() error
	Nack(requeue bool) error
	GetJob() *Job
}

// JobQueue is the interface for job queues
type JobQueue interface {
	// Enqueue adds a job to the queue
	Enqueue(ctx context.Context, job *Job) error

	// Dequeue pulls a single message, or nil when none is available.
	// The caller acknowledges the message.
	// DEPRECATED: Use Consume() instead; polling adds delivery latency
	Dequeue(ctx context.Context) (*Message, error)

	// Consume streams messages as they arrive. The caller acknowledges each
	// message; prefetch bounds the unacknowledged messages held at once.
	// Both channels close when the context is cancelled or the connection drops.
	Consume(ctx context.Context, prefetchCount int) (<-chan *Message, <-chan error, error)

	// Close closes the queue connection
	Close() error

	// HealthCheck verifies the queue connection is healthy
	HealthCheck(ctx context.Context) error
}

// DLQPurger removes dead-lettered messages older than a retention window.
// Implemented by queues that keep a DLQ; the garbage collector calls it
// periodically.
type DLQPurger interface {
	PurgeOlderThan(ctx context.Context, retention time.Duration) (int, error)
}
