package queue

import (
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewJob(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	taskID := uuid.New()
	job := NewJob(JobTypeReminderDelivery, userID, &taskID)

	if job.ID == uuid.Nil {
		t.Error("job has no ID")
	}
	if job.Type != JobTypeReminderDelivery {
		t.Errorf("type = %s", job.Type)
	}
	if job.UserID != userID || job.TaskID == nil || *job.TaskID != taskID {
		t.Error("job lost its identifiers")
	}
	if job.MaxRetries != 3 || job.RetryCount != 0 {
		t.Errorf("retry defaults = %d/%d", job.RetryCount, job.MaxRetries)
	}
}

func TestJob_ShouldProcess(t *testing.T) {
	t.Parallel()

	past := time.Now().Add(-time.Hour)
	future := time.Now().Add(time.Hour)

	tests := []struct {
		name      string
		notBefore *time.Time
		notAfter  *time.Time
		want      bool
	}{
		{"no window", nil, nil, true},
		{"not before in past", &past, nil, true},
		{"not before in future", &future, nil, false},
		{"not after in future", nil, &future, true},
		{"not after in past", nil, &past, false},
		{"open window", &past, &future, true},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			job := NewJob(JobTypeReminderDelivery, uuid.New(), nil)
			job.NotBefore = tt.notBefore
			job.NotAfter = tt.notAfter
			if got := job.ShouldProcess(); got != tt.want {
				t.Errorf("ShouldProcess() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestJob_IsExpired(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeReminderDelivery, uuid.New(), nil)
	if job.IsExpired() {
		t.Error("job without NotAfter reported expired")
	}

	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	if !job.IsExpired() {
		t.Error("job past NotAfter not reported expired")
	}
}

func TestJob_Retry(t *testing.T) {
	t.Parallel()

	job := NewJob(JobTypeCategorySuggestion, uuid.New(), nil)
	for i := 0; i < 3; i++ {
		if !job.CanRetry() {
			t.Fatalf("CanRetry() = false at retry %d", i)
		}
		job.IncrementRetry()
	}
	if job.CanRetry() {
		t.Error("CanRetry() = true after max retries")
	}
}
