package reminders

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/models"
)

// Notifier is the delivery collaborator: it accepts reminder instances for
// future delivery and supports bulk cancellation only. There is deliberately
// no per-task handle; the design cancels everything and resubmits.
type Notifier interface {
	Schedule(ctx context.Context, userID uuid.UUID, reminder PlannedReminder) error
	CancelAll(ctx context.Context, userID uuid.UUID) error
}

// Scheduler turns tasks and settings into submitted reminder plans.
type Scheduler struct {
	notifier Notifier
	log      *zap.Logger
	now      func() time.Time
}

// NewScheduler creates a scheduler submitting to notifier.
func NewScheduler(notifier Notifier, log *zap.Logger) *Scheduler {
	if log == nil {
		log = zap.NewNop()
	}
	return &Scheduler{notifier: notifier, log: log, now: time.Now}
}

// WithClock overrides the scheduler's clock. Test hook.
func (s *Scheduler) WithClock(now func() time.Time) *Scheduler {
	s.now = now
	return s
}

// Schedule computes and submits the reminder plan for one task. Returns the
// number of reminders submitted.
func (s *Scheduler) Schedule(ctx context.Context, task *models.Task, settings *models.AppSettings) (int, error) {
	plan := BuildPlan(task, settings, s.now())
	submitted := 0
	for _, r := range plan {
		if err := s.notifier.Schedule(ctx, task.UserID, r); err != nil {
			return submitted, fmt.Errorf("schedule reminder for task %s: %w", task.ID, err)
		}
		submitted++
	}
	s.log.Debug("reminders_scheduled",
		zap.String("task_id", task.ID.String()),
		zap.Int("count", submitted),
	)
	return submitted, nil
}

// RescheduleAll cancels every previously scheduled reminder for the user and
// resubmits the full plan for every open unpaid task. O(tasks x reminders),
// acceptable at personal-app scale.
func (s *Scheduler) RescheduleAll(ctx context.Context, userID uuid.UUID, tasks []*models.Task, settings *models.AppSettings) (int, error) {
	if err := s.notifier.CancelAll(ctx, userID); err != nil {
		return 0, fmt.Errorf("cancel reminders for user %s: %w", userID, err)
	}

	total := 0
	for _, task := range tasks {
		if task.IsPaid || !task.IsOpen() {
			continue
		}
		n, err := s.Schedule(ctx, task, settings)
		total += n
		if err != nil {
			return total, err
		}
	}
	s.log.Info("reminders_rescheduled",
		zap.String("user_id", userID.String()),
		zap.Int("tasks", len(tasks)),
		zap.Int("reminders", total),
	)
	return total, nil
}
