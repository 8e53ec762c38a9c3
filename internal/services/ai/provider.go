package ai

import (
	"context"

	"github.com/billminder/billminder/internal/models"
)

// CategorySuggestion is the provider's answer for one task title.
type CategorySuggestion struct {
	Category   models.Category `json:"category"`
	Confidence float64         `json:"confidence"`
}

// Provider suggests a spending category for a task based on its title and
// subtitle. Implementations must return ErrUnavailable when the backing
// service cannot be reached so callers can fall back to "other".
type Provider interface {
	SuggestCategory(ctx context.Context, title, subtitle string) (*CategorySuggestion, error)
}
