package notify

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/queue"
	"github.com/billminder/billminder/internal/reminders"
)

// Epochs tracks each user's current plan epoch. Backed by the KV store.
type Epochs interface {
	Incr(ctx context.Context, key string) (int64, error)
	GetInt64(ctx context.Context, key string) (int64, error)
}

func epochKey(userID uuid.UUID) string {
	return fmt.Sprintf("user:%s:plan_epoch", userID)
}

// QueueNotifier schedules reminders as delayed queue jobs. Cancellation is
// epoch based: CancelAll bumps the user's plan epoch, and jobs stamped with
// an older epoch are dropped when they surface for delivery. Nothing is
// removed from the broker itself.
type QueueNotifier struct {
	jobs   queue.JobQueue
	epochs Epochs
	log    *zap.Logger
}

// NewQueueNotifier creates a notifier over the given job queue and epoch store.
func NewQueueNotifier(jobs queue.JobQueue, epochs Epochs, log *zap.Logger) *QueueNotifier {
	if log == nil {
		log = zap.NewNop()
	}
	return &QueueNotifier{jobs: jobs, epochs: epochs, log: log}
}

var _ reminders.Notifier = (*QueueNotifier)(nil)

// Schedule enqueues one reminder for delivery at its fire time, stamped with
// the user's current plan epoch.
func (n *QueueNotifier) Schedule(ctx context.Context, userID uuid.UUID, reminder reminders.PlannedReminder) error {
	epoch, err := n.epochs.GetInt64(ctx, epochKey(userID))
	if err != nil {
		return fmt.Errorf("read plan epoch: %w", err)
	}

	job := queue.NewJob(queue.JobTypeReminderDelivery, userID, nil)
	job.NotBefore = &reminder.FireAt
	job.PlanEpoch = epoch
	job.Title = reminder.Title
	job.Body = reminder.Body

	// A reminder that sits undelivered for a day past its fire time is
	// stale; let the broker expire it rather than waking the user at a
	// meaningless hour.
	notAfter := reminder.FireAt.Add(24 * time.Hour)
	job.NotAfter = &notAfter

	if err := n.jobs.Enqueue(ctx, job); err != nil {
		return fmt.Errorf("enqueue reminder: %w", err)
	}

	n.log.Debug("reminder_enqueued",
		zap.String("user_id", userID.String()),
		zap.Time("fire_at", reminder.FireAt),
		zap.Int64("plan_epoch", epoch),
	)
	return nil
}

// CancelAll invalidates every outstanding reminder for the user by bumping
// the plan epoch.
func (n *QueueNotifier) CancelAll(ctx context.Context, userID uuid.UUID) error {
	epoch, err := n.epochs.Incr(ctx, epochKey(userID))
	if err != nil {
		return fmt.Errorf("bump plan epoch: %w", err)
	}
	n.log.Debug("reminders_cancelled",
		zap.String("user_id", userID.String()),
		zap.Int64("plan_epoch", epoch),
	)
	return nil
}

// CurrentEpoch returns the user's live plan epoch. The delivery worker
// compares job epochs against this.
func (n *QueueNotifier) CurrentEpoch(ctx context.Context, userID uuid.UUID) (int64, error) {
	return n.epochs.GetInt64(ctx, epochKey(userID))
}
