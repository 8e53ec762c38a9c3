package workers

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"github.com/billminder/billminder/internal/database"
	"github.com/billminder/billminder/internal/models"
	"github.com/billminder/billminder/internal/queue"
	"github.com/billminder/billminder/internal/services/ai"
)

// Categorizer processes category suggestion jobs: it asks the AI provider
// for a category and writes it back to the task. Only tasks still filed
// under "other" are touched; a category the user chose stays.
type Categorizer struct {
	provider ai.Provider
	tasks    database.TaskRepositoryInterface
	log      *zap.Logger
}

// NewCategorizer creates a categorizer.
func NewCategorizer(provider ai.Provider, tasks database.TaskRepositoryInterface, log *zap.Logger) *Categorizer {
	if log == nil {
		log = zap.NewNop()
	}
	return &Categorizer{provider: provider, tasks: tasks, log: log}
}

// ProcessJob handles one category suggestion message.
func (c *Categorizer) ProcessJob(ctx context.Context, msg queue.MessageInterface) error {
	job := msg.GetJob()

	if job.Type != queue.JobTypeCategorySuggestion {
		if nackErr := msg.Nack(false); nackErr != nil {
			c.log.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("unexpected job type: %s", job.Type)
	}

	if job.TaskID == nil {
		if nackErr := msg.Nack(false); nackErr != nil {
			c.log.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("task_id is required for category suggestion job")
	}

	task, err := c.tasks.GetByID(ctx, *job.TaskID)
	if err != nil {
		// Task deleted before the job ran. Nothing to do.
		if ackErr := msg.Ack(); ackErr != nil {
			c.log.Warn("ack_failed", zap.Error(ackErr))
		}
		return nil
	}

	if task.UserID != job.UserID {
		if nackErr := msg.Nack(false); nackErr != nil {
			c.log.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("task does not belong to user")
	}

	if task.Category != models.CategoryOther {
		c.log.Debug("categorize_skipped",
			zap.String("task_id", task.ID.String()),
			zap.String("category", string(task.Category)),
		)
		return msg.Ack()
	}

	suggestion, err := c.provider.SuggestCategory(ctx, task.Title, task.Subtitle)
	if err != nil {
		if errors.Is(err, ai.ErrUnavailable) && job.CanRetry() {
			job.IncrementRetry()
			if nackErr := msg.Nack(true); nackErr != nil {
				c.log.Warn("nack_failed", zap.Error(nackErr))
			}
			return fmt.Errorf("suggestion unavailable (will retry): %w", err)
		}
		if nackErr := msg.Nack(false); nackErr != nil {
			c.log.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("suggest category: %w", err)
	}

	if suggestion.Category == models.CategoryOther {
		// No better answer than what the task already has.
		return msg.Ack()
	}

	task.Category = suggestion.Category
	if err := c.tasks.Update(ctx, task); err != nil {
		if job.CanRetry() {
			job.IncrementRetry()
			if nackErr := msg.Nack(true); nackErr != nil {
				c.log.Warn("nack_failed", zap.Error(nackErr))
			}
			return fmt.Errorf("update task category (will retry): %w", err)
		}
		if nackErr := msg.Nack(false); nackErr != nil {
			c.log.Warn("nack_failed", zap.Error(nackErr))
		}
		return fmt.Errorf("update task category: %w", err)
	}

	c.log.Info("task_categorized",
		zap.String("task_id", task.ID.String()),
		zap.String("category", string(suggestion.Category)),
		zap.Float64("confidence", suggestion.Confidence),
	)
	return msg.Ack()
}
