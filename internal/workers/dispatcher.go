package workers

import (
	"context"
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/notify"
	"github.com/billminder/billminder/internal/queue"
)

// EpochSource reports a user's live plan epoch.
type EpochSource interface {
	CurrentEpoch(ctx context.Context, userID uuid.UUID) (int64, error)
}

// Dispatcher delivers reminder jobs surfacing from the queue. A job whose
// plan epoch lags the user's current epoch belongs to a cancelled schedule
// and is dropped silently.
type Dispatcher struct {
	pusher notify.Pusher
	epochs EpochSource
	log    *zap.Logger
}

// NewDispatcher creates a reminder dispatcher.
func NewDispatcher(pusher notify.Pusher, epochs EpochSource, log *zap.Logger) *Dispatcher {
	if log == nil {
		log = zap.NewNop()
	}
	return &Dispatcher{pusher: pusher, epochs: epochs, log: log}
}

// ProcessJob handles one reminder delivery message, acknowledging it
// according to the outcome.
func (d *Dispatcher) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.Type != queue.JobTypeReminderDelivery {
		if nackErr := msg.Nack(false); nackErr != nil {
			d.log.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unexpected job type: %s", job.Type)
	}

	if job.IsExpired() {
		d.log.Info("reminder_expired",
			zap.String("job_id", job.ID.String()),
			zap.String("user_id", job.UserID.String()),
		)
		return msg.Ack()
	}

	epoch, err := d.epochs.CurrentEpoch(ctx, job.UserID)
	if err != nil {
		// Without the epoch we cannot tell live from cancelled. Requeue
		// and try again once the store is back.
		if nackErr := msg.Nack(true); nackErr != nil {
			d.log.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("read plan epoch: %w", err)
	}

	if job.PlanEpoch < epoch {
		d.log.Debug("reminder_dropped_stale_epoch",
			zap.String("job_id", job.ID.String()),
			zap.Int64("job_epoch", job.PlanEpoch),
			zap.Int64("current_epoch", epoch),
		)
		return msg.Ack()
	}

	if err := d.pusher.Push(ctx, job.UserID, job.Title, job.Body); err != nil {
		return d.handleDeliveryError(msg, job, err)
	}

	d.log.Info("reminder_delivered",
		zap.String("job_id", job.ID.String()),
		zap.String("user_id", job.UserID.String()),
		zap.String("title", job.Title),
	)
	return msg.Ack()
}

func (d *Dispatcher) handleDeliveryError(msg queue.MessageInterface, job *queue.Job, err error) error {
	if job.CanRetry() {
		job.IncrementRetry()
		d.log.Warn("reminder_delivery_retry",
			zap.String("job_id", job.ID.String()),
			zap.Int("attempt", job.RetryCount),
			zap.Int("max_retries", job.MaxRetries),
			zap.Error(err),
		)
		if nackErr := msg.Nack(true); nackErr != nil {
			d.log.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("delivery failed (will retry): %w", err)
	}

	d.log.Error("reminder_delivery_exhausted",
		zap.String("job_id", job.ID.String()),
		zap.Int("max_retries", job.MaxRetries),
		zap.Error(err),
	)
	if nackErr := msg.Nack(false); nackErr != nil {
		d.log.Warn("nack_failed", zap.Error(nackErr))
	}
	return fmt.Errorf("delivery failed (sent to DLQ): %w", err)
}
