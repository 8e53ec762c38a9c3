package workers

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/billminder/billminder/internal/queue"
)

type fakeMessage struct {
	job      *queue.Job
	acked    bool
	nacked   bool
	requeued bool
}

func (m *fakeMessage) Ack() error { m.acked = true; return nil }
func (m *fakeMessage) Nack(requeue bool) error {
	m.nacked = true
	m.requeued = requeue
	return nil
}
func (m *fakeMessage) GetJob() *queue.Job { return m.job }

type fakePusher struct {
	pushes int
	err    error
	title  string
}

func (p *fakePusher) Push(_ context.Context, _ uuid.UUID, title, _ string) error {
	if p.err != nil {
		return p.err
	}
	p.pushes++
	p.title = title
	return nil
}

type fakeEpochSource struct {
	epoch int64
	err   error
}

func (f *fakeEpochSource) CurrentEpoch(context.Context, uuid.UUID) (int64, error) {
	return f.epoch, f.err
}

func reminderJob(epoch int64) *queue.Job {
	job := queue.NewJob(queue.JobTypeReminderDelivery, uuid.New(), nil)
	job.PlanEpoch = epoch
	job.Title = "Rent"
	job.Body = "Due tomorrow."
	return job
}

func TestDispatcher_DeliversLiveReminder(t *testing.T) {
	t.Parallel()

	pusher := &fakePusher{}
	d := NewDispatcher(pusher, &fakeEpochSource{epoch: 3}, nil)
	msg := &fakeMessage{job: reminderJob(3)}

	if err := d.ProcessJob(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if pusher.pushes != 1 || pusher.title != "Rent" {
		t.Error("reminder was not delivered")
	}
	if !msg.acked {
		t.Error("delivered message not acked")
	}
}

func TestDispatcher_DropsStaleEpoch(t *testing.T) {
	t.Parallel()

	pusher := &fakePusher{}
	d := NewDispatcher(pusher, &fakeEpochSource{epoch: 5}, nil)
	msg := &fakeMessage{job: reminderJob(4)}

	if err := d.ProcessJob(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if pusher.pushes != 0 {
		t.Error("stale reminder was delivered")
	}
	if !msg.acked {
		t.Error("stale message must be acked, not requeued")
	}
}

func TestDispatcher_DropsExpired(t *testing.T) {
	t.Parallel()

	pusher := &fakePusher{}
	d := NewDispatcher(pusher, &fakeEpochSource{}, nil)

	job := reminderJob(0)
	past := time.Now().Add(-time.Minute)
	job.NotAfter = &past
	msg := &fakeMessage{job: job}

	if err := d.ProcessJob(context.Background(), msg); err != nil {
		t.Fatal(err)
	}
	if pusher.pushes != 0 {
		t.Error("expired reminder was delivered")
	}
	if !msg.acked {
		t.Error("expired message not acked")
	}
}

func TestDispatcher_RequeuesOnEpochStoreFailure(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&fakePusher{}, &fakeEpochSource{err: errors.New("redis away")}, nil)
	msg := &fakeMessage{job: reminderJob(0)}

	if err := d.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if !msg.nacked || !msg.requeued {
		t.Error("message not requeued when epoch unreadable")
	}
}

func TestDispatcher_RetriesThenDeadLetters(t *testing.T) {
	t.Parallel()

	pusher := &fakePusher{err: errors.New("gateway down")}
	d := NewDispatcher(pusher, &fakeEpochSource{}, nil)

	job := reminderJob(0)
	msg := &fakeMessage{job: job}

	// First failures requeue.
	if err := d.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if !msg.requeued {
		t.Error("retryable failure not requeued")
	}

	// Exhausted retries dead-letter.
	job.RetryCount = job.MaxRetries
	msg = &fakeMessage{job: job}
	if err := d.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if !msg.nacked || msg.requeued {
		t.Error("exhausted job not sent to DLQ")
	}
}

func TestDispatcher_RejectsWrongJobType(t *testing.T) {
	t.Parallel()

	d := NewDispatcher(&fakePusher{}, &fakeEpochSource{}, nil)
	msg := &fakeMessage{job: queue.NewJob(queue.JobTypeCategorySuggestion, uuid.New(), nil)}

	if err := d.ProcessJob(context.Background(), msg); err == nil {
		t.Fatal("expected error")
	}
	if !msg.nacked || msg.requeued {
		t.Error("wrong job type not dead-lettered")
	}
}
