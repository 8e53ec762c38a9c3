package reminders

import (
	"fmt"
	"time"

	"github.com/billminder/billminder/internal/dates"
	"github.com/billminder/billminder/internal/models"
)

// PlannedReminder is one notification instance in a task's reminder plan.
// Plans are derived values: recomputed and resubmitted wholesale whenever a
// due date or the notification settings change, never stored.
type PlannedReminder struct {
	Title  string    `json:"title"`
	Body   string    `json:"body"`
	FireAt time.Time `json:"fire_at"`
}

// MinLeadTime is the shortest distance in the future a reminder may fire.
// Anything closer (or in the past) is dropped: the delivery side can't fire
// it reliably and a surprise immediate notification is worse than none.
const MinLeadTime = time.Minute

const (
	morningHabitHour = 8
	eveningHabitHour = 20
	dueTodayHour     = 9
	leadReminderHour = 10
	lastCallHour     = 11
)

// BuildPlan computes the full reminder plan for a task. Missing or disabled
// settings produce an empty plan; that is the fail-safe default, not an
// error. All fire times are local wall-clock times derived from now's
// location.
func BuildPlan(task *models.Task, settings *models.AppSettings, now time.Time) []PlannedReminder {
	if !settings.NotificationsActive() {
		return nil
	}

	switch task.Recurrence {
	case models.RecurrenceDaily:
		return dropImminent(dailyHabitPlan(task, now), now)
	case models.RecurrenceWeekly:
		return dropImminent(weeklyPlan(task, now), now)
	default:
		return dropImminent(dueDatePlan(task, settings.Notifications.Frequency, now), now)
	}
}

// dailyHabitPlan ignores the due date entirely: habits get a morning and an
// evening nudge, each rolled to tomorrow once today's slot has passed.
func dailyHabitPlan(task *models.Task, now time.Time) []PlannedReminder {
	return []PlannedReminder{
		{
			Title:  task.Title,
			Body:   "Morning check-in for your daily habit.",
			FireAt: nextAtHour(now, morningHabitHour),
		},
		{
			Title:  task.Title,
			Body:   "Evening check-in. Did you finish today?",
			FireAt: nextAtHour(now, eveningHabitHour),
		},
	}
}

func weeklyPlan(task *models.Task, now time.Time) []PlannedReminder {
	due, err := dates.ParseDateKey(task.DueDate, now.Location())
	if err != nil {
		return nil
	}
	return []PlannedReminder{
		{
			Title:  task.Title,
			Body:   "Due tomorrow.",
			FireAt: atHour(due.AddDate(0, 0, -1), dueTodayHour),
		},
	}
}

// dueDatePlan is the monthly/yearly/once ladder, widening with the user's
// chosen frequency.
func dueDatePlan(task *models.Task, freq models.ReminderFrequency, now time.Time) []PlannedReminder {
	due, err := dates.ParseDateKey(task.DueDate, now.Location())
	if err != nil {
		return nil
	}

	type step struct {
		daysBefore int
		hour       int
		body       string
	}
	ladder := map[models.ReminderFrequency][]step{
		models.ReminderFrequencyFiveDay: {
			{5, leadReminderHour, "Due in 5 days."},
			{3, leadReminderHour, "Due in 3 days."},
			{1, lastCallHour, "Due tomorrow."},
			{0, dueTodayHour, "Due today."},
		},
		models.ReminderFrequencyThreeDay: {
			{3, leadReminderHour, "Due in 3 days."},
			{1, lastCallHour, "Due tomorrow."},
			{0, dueTodayHour, "Due today."},
		},
		models.ReminderFrequencyUrgentDue: {
			{1, lastCallHour, "Due tomorrow."},
			{0, dueTodayHour, "Due today."},
		},
		models.ReminderFrequencyDueOnly: {
			{0, dueTodayHour, "Due today."},
		},
	}

	steps, ok := ladder[freq]
	if !ok {
		return nil
	}

	plan := make([]PlannedReminder, 0, len(steps))
	for _, s := range steps {
		plan = append(plan, PlannedReminder{
			Title:  task.Title,
			Body:   withAmount(s.body, task),
			FireAt: atHour(due.AddDate(0, 0, -s.daysBefore), s.hour),
		})
	}
	return plan
}

func withAmount(body string, task *models.Task) string {
	if task.Amount == nil {
		return body
	}
	currency := task.Currency
	if currency == "" {
		return fmt.Sprintf("%s Amount: %.2f.", body, *task.Amount)
	}
	return fmt.Sprintf("%s Amount: %.2f %s.", body, *task.Amount, currency)
}

// nextAtHour returns today at the given hour, or tomorrow if that hour has
// already passed.
func nextAtHour(now time.Time, hour int) time.Time {
	at := atHour(now, hour)
	if !at.After(now) {
		at = at.AddDate(0, 0, 1)
	}
	return at
}

func atHour(day time.Time, hour int) time.Time {
	year, month, d := day.Date()
	return time.Date(year, month, d, hour, 0, 0, 0, day.Location())
}

func dropImminent(plan []PlannedReminder, now time.Time) []PlannedReminder {
	cutoff := now.Add(MinLeadTime)
	kept := plan[:0]
	for _, r := range plan {
		if r.FireAt.After(cutoff) {
			kept = append(kept, r)
		}
	}
	if len(kept) == 0 {
		return nil
	}
	return kept
}
