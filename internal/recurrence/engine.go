package recurrence

import (
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/billminder/billminder/internal/dates"
	"github.com/billminder/billminder/internal/models"
)

// Result is the outcome of completing a task: the completed row and, for a
// continuing series, exactly one successor.
type Result struct {
	Completed *models.Task
	Next      *models.Task // nil when the series ends
}

// Engine advances recurring task series.
type Engine struct {
	loc *time.Location
	now func() time.Time
}

// NewEngine creates an engine computing dates in loc. A nil loc uses the
// system local zone.
func NewEngine(loc *time.Location) *Engine {
	if loc == nil {
		loc = time.Local
	}
	return &Engine{loc: loc, now: time.Now}
}

// WithClock overrides the engine's clock. Test hook.
func (e *Engine) WithClock(now func() time.Time) *Engine {
	e.now = now
	return e
}

// CompleteAndAdvance marks task completed and, if its series continues,
// returns a successor inheriting every field except id, due date, status, and
// paid flag. existing is scanned so a double invocation can't insert the same
// occurrence twice.
func (e *Engine) CompleteAndAdvance(task *models.Task, existing []*models.Task) (*Result, error) {
	now := e.now()

	completed := *task
	completed.Status = models.TaskStatusCompleted
	completed.IsPaid = true
	completed.UpdatedAt = now
	completedAt := now
	completed.CompletedAt = &completedAt

	if task.Recurrence == models.RecurrenceOnce || task.Recurrence == "" {
		return &Result{Completed: &completed}, nil
	}

	nextDue, err := e.nextDueDate(task.DueDate, task.Recurrence)
	if err != nil {
		return nil, err
	}

	// Date keys compare lexicographically, so a plain string compare is a
	// calendar compare.
	if task.RecurrenceEndDate != "" && nextDue > task.RecurrenceEndDate {
		return &Result{Completed: &completed}, nil
	}

	if hasOpenDuplicate(existing, task.Title, nextDue) {
		return &Result{Completed: &completed}, nil
	}

	next := *task
	next.ID = uuid.New()
	next.DueDate = nextDue
	next.Status = models.TaskStatusPending
	next.IsPaid = false
	next.CreatedAt = now
	next.UpdatedAt = now
	next.CompletedAt = nil

	return &Result{Completed: &completed, Next: &next}, nil
}

// nextDueDate computes the following occurrence's due date. Monthly and
// yearly steps use time.AddDate normalization, so Jan 31 + 1 month lands on
// Mar 2 in leap years and Mar 3 otherwise.
func (e *Engine) nextDueDate(dueDate string, freq models.Recurrence) (string, error) {
	switch freq {
	case models.RecurrenceDaily:
		return dates.AddToDateKey(dueDate, 0, 0, 1, e.loc)
	case models.RecurrenceWeekly:
		return dates.AddToDateKey(dueDate, 0, 0, 7, e.loc)
	case models.RecurrenceBiweekly:
		return dates.AddToDateKey(dueDate, 0, 0, 14, e.loc)
	case models.RecurrenceMonthly:
		return dates.AddToDateKey(dueDate, 0, 1, 0, e.loc)
	case models.RecurrenceYearly:
		return dates.AddToDateKey(dueDate, 1, 0, 0, e.loc)
	default:
		return "", fmt.Errorf("recurrence %q has no next occurrence", freq)
	}
}

// hasOpenDuplicate reports whether a non-completed task with the same title
// and due date already exists. Linear scan; fine at personal-app scale.
func hasOpenDuplicate(tasks []*models.Task, title, dueDate string) bool {
	for _, t := range tasks {
		if t.Status != models.TaskStatusCompleted && t.Title == title && t.DueDate == dueDate {
			return true
		}
	}
	return false
}
