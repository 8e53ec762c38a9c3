package models

import (
	"time"

	"github.com/google/uuid"
)

// Budget is a monthly spending cap for one category.
type Budget struct {
	ID        uuid.UUID `json:"id"`
	UserID    uuid.UUID `json:"user_id"`
	Category  Category  `json:"category"`
	Limit     float64   `json:"limit"`
	Currency  string    `json:"currency,omitempty"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// CategorySpend is month-to-date spend against one category's budget.
type CategorySpend struct {
	Category Category `json:"category"`
	Limit    float64  `json:"limit"`
	Spent    float64  `json:"spent"`
	Count    int      `json:"count"`
}

// BudgetSummary is the month-to-date spend report returned by the budgets API.
type BudgetSummary struct {
	Month      string          `json:"month"` // YYYY-MM
	Total      float64         `json:"total"`
	Categories []CategorySpend `json:"categories"`
}
