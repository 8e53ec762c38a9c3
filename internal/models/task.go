package models

import (
	"time"

	"github.com/google/uuid"
)

// Category classifies what a task is about. The set is fixed; the UI picks
// icons and colors from it.
type Category string

const (
	CategoryFinance       Category = "finance"
	CategoryAcademic      Category = "academic"
	CategoryHousing       Category = "housing"
	CategoryUtility       Category = "utility"
	CategoryWork          Category = "work"
	CategoryMedicine      Category = "medicine"
	CategoryGym           Category = "gym"
	CategoryHealth        Category = "health"
	CategoryFood          Category = "food"
	CategoryTransport     Category = "transport"
	CategoryShopping      Category = "shopping"
	CategoryEntertainment Category = "entertainment"
	CategoryOther         Category = "other"
)

// Categories lists every valid category value.
func Categories() []Category {
	return []Category{
		CategoryFinance, CategoryAcademic, CategoryHousing, CategoryUtility,
		CategoryWork, CategoryMedicine, CategoryGym, CategoryHealth,
		CategoryFood, CategoryTransport, CategoryShopping,
		CategoryEntertainment, CategoryOther,
	}
}

// TaskType determines which screens show the task.
type TaskType string

const (
	TaskTypeBill      TaskType = "bill"
	TaskTypeChecklist TaskType = "checklist"
	TaskTypeExpense   TaskType = "expense"
)

// Recurrence is how often a task repeats.
type Recurrence string

const (
	RecurrenceOnce     Recurrence = "once"
	RecurrenceDaily    Recurrence = "daily"
	RecurrenceWeekly   Recurrence = "weekly"
	RecurrenceBiweekly Recurrence = "biweekly"
	RecurrenceMonthly  Recurrence = "monthly"
	RecurrenceYearly   Recurrence = "yearly"
)

// TaskStatus represents the status of a task
type TaskStatus string

const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusSnoozed   TaskStatus = "snoozed"
	TaskStatusOverdue   TaskStatus = "overdue"
)

// Task represents a bill, checklist item, or expense record. Exactly one
// pending task row represents the current occurrence of a recurring series;
// completing it may spawn a successor with a new ID and the next due date.
type Task struct {
	ID       uuid.UUID  `json:"id"`
	UserID   uuid.UUID  `json:"user_id"`
	Title    string     `json:"title"`
	Subtitle string     `json:"subtitle,omitempty"`
	Category Category   `json:"category"`
	Type     TaskType   `json:"type"`
	// DueDate is a local calendar date key (YYYY-MM-DD), never a UTC instant.
	DueDate           string     `json:"due_date"`
	Recurrence        Recurrence `json:"recurrence"`
	RecurrenceEndDate string     `json:"recurrence_end_date,omitempty"`
	Status            TaskStatus `json:"status"`
	Amount            *float64   `json:"amount,omitempty"`
	Currency          string     `json:"currency,omitempty"`
	IsPaid            bool       `json:"is_paid"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	CompletedAt       *time.Time `json:"completed_at,omitempty"`
}

// IsOpen reports whether the task still needs attention (pending, snoozed,
// or overdue). Completed tasks are closed.
func (t *Task) IsOpen() bool {
	return t.Status != TaskStatusCompleted
}
