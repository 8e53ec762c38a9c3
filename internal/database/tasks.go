package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/billminder/billminder/internal/models"
)

// TaskRepository handles task rows in the remote store. It is the
// authoritative copy once a device has synced.
type TaskRepository struct {
	db *DB
}

// NewTaskRepository creates a new task repository
func NewTaskRepository(db *DB) *TaskRepository {
	return &TaskRepository{db: db}
}

const taskColumns = `id, user_id, title, subtitle, category, type, due_date, recurrence,
	recurrence_end_date, status, amount, currency, is_paid, created_at, updated_at, completed_at`

// Create inserts a new task.
func (r *TaskRepository) Create(ctx context.Context, task *models.Task) error {
	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		RETURNING created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		nullString(task.Subtitle),
		task.Category,
		task.Type,
		task.DueDate,
		task.Recurrence,
		nullString(task.RecurrenceEndDate),
		task.Status,
		task.Amount,
		nullString(task.Currency),
		task.IsPaid,
		now,
		now,
		nullTime(task.CompletedAt),
	).Scan(&task.CreatedAt, &task.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to create task: %w", err)
	}

	return nil
}

// GetByID retrieves a task by ID
func (r *TaskRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(r.db.QueryRowContext(ctx, query, id))
	if err == sql.ErrNoRows {
		return nil, fmt.Errorf("task not found: %w", err)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get task: %w", err)
	}
	return task, nil
}

// GetByUserID retrieves all tasks for a user, optionally filtered by type
// and status, newest due date first.
func (r *TaskRepository) GetByUserID(ctx context.Context, userID uuid.UUID, taskType *models.TaskType, status *models.TaskStatus) ([]*models.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE user_id = $1`
	args := []any{userID}
	argIndex := 2

	if taskType != nil {
		query += fmt.Sprintf(" AND type = $%d", argIndex)
		args = append(args, string(*taskType))
		argIndex++
	}
	if status != nil {
		query += fmt.Sprintf(" AND status = $%d", argIndex)
		args = append(args, string(*status))
		argIndex++
	}

	query += " ORDER BY due_date ASC, created_at DESC"

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query tasks: %w", err)
	}
	defer rows.Close()

	var tasks []*models.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, fmt.Errorf("failed to scan task: %w", err)
		}
		tasks = append(tasks, task)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating tasks: %w", err)
	}

	return tasks, nil
}

// Upsert writes a batch of tasks keyed by id. Conflict policy is last push
// wins: an existing row is fully overwritten by the incoming row's values.
// No timestamp comparison happens here; that is the sync contract.
func (r *TaskRepository) Upsert(ctx context.Context, tasks []*models.Task) error {
	if len(tasks) == 0 {
		return nil
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16)
		ON CONFLICT (id) DO UPDATE SET
			user_id = EXCLUDED.user_id,
			title = EXCLUDED.title,
			subtitle = EXCLUDED.subtitle,
			category = EXCLUDED.category,
			type = EXCLUDED.type,
			due_date = EXCLUDED.due_date,
			recurrence = EXCLUDED.recurrence,
			recurrence_end_date = EXCLUDED.recurrence_end_date,
			status = EXCLUDED.status,
			amount = EXCLUDED.amount,
			currency = EXCLUDED.currency,
			is_paid = EXCLUDED.is_paid,
			updated_at = EXCLUDED.updated_at,
			completed_at = EXCLUDED.completed_at
	`

	now := time.Now()
	for _, task := range tasks {
		createdAt := task.CreatedAt
		if createdAt.IsZero() {
			createdAt = now
		}
		_, err := r.db.ExecContext(ctx, query,
			task.ID,
			task.UserID,
			task.Title,
			nullString(task.Subtitle),
			task.Category,
			task.Type,
			task.DueDate,
			task.Recurrence,
			nullString(task.RecurrenceEndDate),
			task.Status,
			task.Amount,
			nullString(task.Currency),
			task.IsPaid,
			createdAt,
			now,
			nullTime(task.CompletedAt),
		)
		if err != nil {
			return fmt.Errorf("failed to upsert task %s: %w", task.ID, err)
		}
	}

	return nil
}

// Update updates an existing task
func (r *TaskRepository) Update(ctx context.Context, task *models.Task) error {
	query := `
		UPDATE tasks
		SET title = $2, subtitle = $3, category = $4, type = $5, due_date = $6,
			recurrence = $7, recurrence_end_date = $8, status = $9, amount = $10,
			currency = $11, is_paid = $12, updated_at = $13, completed_at = $14
		WHERE id = $1
		RETURNING updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		task.ID,
		task.Title,
		nullString(task.Subtitle),
		task.Category,
		task.Type,
		task.DueDate,
		task.Recurrence,
		nullString(task.RecurrenceEndDate),
		task.Status,
		task.Amount,
		nullString(task.Currency),
		task.IsPaid,
		now,
		nullTime(task.CompletedAt),
	).Scan(&task.UpdatedAt)

	if err == sql.ErrNoRows {
		return fmt.Errorf("task not found")
	}
	if err != nil {
		return fmt.Errorf("failed to update task: %w", err)
	}

	return nil
}

// Delete deletes a task by ID. Deletion is permanent; there is no soft
// delete.
func (r *TaskRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete task: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("task not found")
	}

	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*models.Task, error) {
	task := &models.Task{}
	var subtitle, recurrenceEnd, currency sql.NullString
	var amount sql.NullFloat64
	var completedAt sql.NullTime

	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&subtitle,
		&task.Category,
		&task.Type,
		&task.DueDate,
		&task.Recurrence,
		&recurrenceEnd,
		&task.Status,
		&amount,
		&currency,
		&task.IsPaid,
		&task.CreatedAt,
		&task.UpdatedAt,
		&completedAt,
	)
	if err != nil {
		return nil, err
	}

	task.Subtitle = subtitle.String
	task.RecurrenceEndDate = recurrenceEnd.String
	task.Currency = currency.String
	if amount.Valid {
		task.Amount = &amount.Float64
	}
	if completedAt.Valid {
		task.CompletedAt = &completedAt.Time
	}
	return task, nil
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}

func nullTime(t *time.Time) sql.NullTime {
	if t == nil {
		return sql.NullTime{}
	}
	return sql.NullTime{Time: *t, Valid: true}
}
