package database

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/billminder/billminder/internal/models"
)

// BudgetRepository handles budget rows in the remote store. One row per
// user and category.
type BudgetRepository struct {
	db *DB
}

// NewBudgetRepository creates a new budget repository
func NewBudgetRepository(db *DB) *BudgetRepository {
	return &BudgetRepository{db: db}
}

// GetByUserID retrieves all budgets for a user ordered by category.
func (r *BudgetRepository) GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Budget, error) {
	query := `
		SELECT id, user_id, category, monthly_limit, currency, created_at, updated_at
		FROM budgets
		WHERE user_id = $1
		ORDER BY category
	`

	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to query budgets: %w", err)
	}
	defer rows.Close()

	var budgets []*models.Budget
	for rows.Next() {
		b := &models.Budget{}
		err := rows.Scan(
			&b.ID,
			&b.UserID,
			&b.Category,
			&b.Limit,
			&b.Currency,
			&b.CreatedAt,
			&b.UpdatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan budget: %w", err)
		}
		budgets = append(budgets, b)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating budgets: %w", err)
	}

	return budgets, nil
}

// Upsert writes a budget keyed by (user_id, category). Setting a new limit
// for an existing category replaces the old one.
func (r *BudgetRepository) Upsert(ctx context.Context, budget *models.Budget) error {
	query := `
		INSERT INTO budgets (id, user_id, category, monthly_limit, currency, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
		ON CONFLICT (user_id, category) DO UPDATE SET
			monthly_limit = EXCLUDED.monthly_limit,
			currency = EXCLUDED.currency,
			updated_at = EXCLUDED.updated_at
		RETURNING id, created_at, updated_at
	`

	now := time.Now()
	err := r.db.QueryRowContext(ctx, query,
		budget.ID,
		budget.UserID,
		budget.Category,
		budget.Limit,
		budget.Currency,
		now,
		now,
	).Scan(&budget.ID, &budget.CreatedAt, &budget.UpdatedAt)

	if err != nil {
		return fmt.Errorf("failed to upsert budget: %w", err)
	}

	return nil
}

// Delete deletes a budget by ID
func (r *BudgetRepository) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM budgets WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("failed to delete budget: %w", err)
	}

	rowsAffected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}

	if rowsAffected == 0 {
		return fmt.Errorf("budget not found")
	}

	return nil
}

// MonthlySpend sums paid expense task amounts per category for the given
// month (YYYY-MM). Only tasks marked paid count toward spend.
func (r *BudgetRepository) MonthlySpend(ctx context.Context, userID uuid.UUID, month string) ([]*models.CategorySpend, error) {
	query := `
		SELECT category, COALESCE(SUM(amount), 0), COUNT(*)
		FROM tasks
		WHERE user_id = $1
		  AND type = 'expense'
		  AND is_paid = true
		  AND amount IS NOT NULL
		  AND due_date >= $2 || '-01'
		  AND due_date < $3 || '-01'
		GROUP BY category
		ORDER BY category
	`

	next, err := nextMonthKey(month)
	if err != nil {
		return nil, err
	}

	rows, err := r.db.QueryContext(ctx, query, userID, month, next)
	if err != nil {
		return nil, fmt.Errorf("failed to query monthly spend: %w", err)
	}
	defer rows.Close()

	var spends []*models.CategorySpend
	for rows.Next() {
		s := &models.CategorySpend{}
		if err := rows.Scan(&s.Category, &s.Spent, &s.Count); err != nil {
			return nil, fmt.Errorf("failed to scan spend: %w", err)
		}
		spends = append(spends, s)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating spend: %w", err)
	}

	return spends, nil
}

// nextMonthKey returns the YYYY-MM one month after the given one.
func nextMonthKey(month string) (string, error) {
	t, err := time.Parse("2006-01", month)
	if err != nil {
		return "", fmt.Errorf("invalid month %q: %w", month, err)
	}
	return t.AddDate(0, 1, 0).Format("2006-01"), nil
}
