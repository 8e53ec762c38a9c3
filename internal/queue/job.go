package queue

import (
	"time"

	"github.com/google/uuid"
)

// JobType represents the type of job
type JobType string

const (
	// JobTypeReminderDelivery delivers one scheduled reminder to the push
	// gateway at its fire time.
	JobTypeReminderDelivery JobType = "reminder_delivery"
	// JobTypeCategorySuggestion asks the suggestion service to pick a
	// category for an uncategorized task.
	JobTypeCategorySuggestion JobType = "category_suggestion"
)

// Job represents a job in the queue
type Job struct {
	ID        uuid.UUID  `json:"id"`
	Type      JobType    `json:"type"`
	UserID    uuid.UUID  `json:"user_id"`
	TaskID    *uuid.UUID `json:"task_id,omitempty"`
	NotBefore *time.Time `json:"not_before,omitempty"` // Earliest time to process job (nil = immediate)
	NotAfter  *time.Time `json:"not_after,omitempty"`  // Latest time to process job (nil = no expiration)

	// PlanEpoch ties a reminder job to the schedule that created it.
	// Cancelling a user's plan bumps the epoch; jobs from older epochs
	// are dropped at delivery time instead of being hunted down in the
	// broker.
	PlanEpoch int64 `json:"plan_epoch,omitempty"`

	Title string `json:"title,omitempty"`
	Body  string `json:"body,omitempty"`

	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  time.Time      `json:"created_at"`
	RetryCount int            `json:"retry_count"`
	MaxRetries int            `json:"max_retries"`
}

// NewJob creates a new job
func NewJob(jobType JobType, userID uuid.UUID, taskID *uuid.UUID) *Job {
	return &Job{
		ID:         uuid.New(),
		Type:       jobType,
		UserID:     userID,
		TaskID:     taskID,
		Metadata:   make(map[string]any),
		CreatedAt:  time.Now(),
		RetryCount: 0,
		MaxRetries: 3,
	}
}

// ShouldProcess checks if the job should be processed now
func (j *Job) ShouldProcess() bool {
	now := time.Now()

	if j.NotBefore != nil && now.Before(*j.NotBefore) {
		return false
	}

	if j.NotAfter != nil && now.After(*j.NotAfter) {
		return false
	}

	return true
}

// IsExpired checks if the job has expired
func (j *Job) IsExpired() bool {
	if j.NotAfter == nil {
		return false
	}

	return time.Now().After(*j.NotAfter)
}

// CanRetry checks if the job can be retried
func (j *Job) CanRetry() bool {
	return j.RetryCount < j.MaxRetries
}

// IncrementRetry increments the retry count
func (j *Job) IncrementRetry() {
	j.RetryCount++
}
