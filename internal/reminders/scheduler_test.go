package reminders

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/billminder/billminder/internal/models"
)

type fakeNotifier struct {
	scheduled  []PlannedReminder
	cancels    int
	failSched  error
	failCancel error
}

func (f *fakeNotifier) Schedule(_ context.Context, _ uuid.UUID, r PlannedReminder) error {
	if f.failSched != nil {
		return f.failSched
	}
	f.scheduled = append(f.scheduled, r)
	return nil
}

func (f *fakeNotifier) CancelAll(_ context.Context, _ uuid.UUID) error {
	if f.failCancel != nil {
		return f.failCancel
	}
	f.cancels++
	f.scheduled = nil
	return nil
}

func schedClock() func() time.Time {
	return func() time.Time {
		return time.Date(2024, time.March, 5, 12, 0, 0, 0, time.UTC)
	}
}

func TestScheduler_Schedule(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	s := NewScheduler(notifier, nil).WithClock(schedClock())
	task := billTask("2024-03-15", models.RecurrenceMonthly)

	n, err := s.Schedule(context.Background(), task, enabledSettings(models.ReminderFrequencyFiveDay))
	if err != nil {
		t.Fatal(err)
	}
	if n != 4 || len(notifier.scheduled) != 4 {
		t.Errorf("submitted %d reminders (notifier saw %d), want 4", n, len(notifier.scheduled))
	}
}

func TestScheduler_Schedule_DisabledSubmitsNothing(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	s := NewScheduler(notifier, nil).WithClock(schedClock())
	task := billTask("2024-03-15", models.RecurrenceMonthly)

	n, err := s.Schedule(context.Background(), task, nil)
	if err != nil {
		t.Fatal(err)
	}
	if n != 0 || len(notifier.scheduled) != 0 {
		t.Errorf("disabled settings submitted %d reminders", len(notifier.scheduled))
	}
}

func TestScheduler_RescheduleAll(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{}
	s := NewScheduler(notifier, nil).WithClock(schedClock())
	userID := uuid.New()

	open := billTask("2024-03-15", models.RecurrenceMonthly)
	paid := billTask("2024-03-20", models.RecurrenceMonthly)
	paid.IsPaid = true
	done := billTask("2024-03-25", models.RecurrenceMonthly)
	done.Status = models.TaskStatusCompleted

	tasks := []*models.Task{open, paid, done}
	n, err := s.RescheduleAll(context.Background(), userID, tasks, enabledSettings(models.ReminderFrequencyDueOnly))
	if err != nil {
		t.Fatal(err)
	}
	if notifier.cancels != 1 {
		t.Errorf("cancel-all called %d times, want 1", notifier.cancels)
	}
	// Only the open unpaid task gets a plan.
	if n != 1 || len(notifier.scheduled) != 1 {
		t.Errorf("rescheduled %d reminders, want 1", n)
	}
}

func TestScheduler_RescheduleAll_CancelFailure(t *testing.T) {
	t.Parallel()

	notifier := &fakeNotifier{failCancel: errors.New("broker down")}
	s := NewScheduler(notifier, nil).WithClock(schedClock())

	_, err := s.RescheduleAll(context.Background(), uuid.New(), []*models.Task{billTask("2024-03-15", models.RecurrenceMonthly)}, enabledSettings(models.ReminderFrequencyDueOnly))
	if err == nil {
		t.Fatal("expected error when cancel-all fails")
	}
	if len(notifier.scheduled) != 0 {
		t.Error("reminders submitted despite failed cancel-all")
	}
}
