package database

import (
	"context"

	"github.com/google/uuid"

	"github.com/billminder/billminder/internal/models"
)

// TaskRepositoryInterface defines the interface for task repository operations
// This interface enables better testability by allowing mock implementations
type TaskRepositoryInterface interface {
	Create(ctx context.Context, task *models.Task) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Task, error)
	GetByUserID(ctx context.Context, userID uuid.UUID, taskType *models.TaskType, status *models.TaskStatus) ([]*models.Task, error)
	Upsert(ctx context.Context, tasks []*models.Task) error
	Update(ctx context.Context, task *models.Task) error
	Delete(ctx context.Context, id uuid.UUID) error
}

// UserRepositoryInterface defines the interface for user repository operations
type UserRepositoryInterface interface {
	Create(ctx context.Context, user *models.User) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.User, error)
	GetByProviderID(ctx context.Context, providerID string) (*models.User, error)
	Update(ctx context.Context, user *models.User) error
}

// BudgetRepositoryInterface defines the interface for budget repository operations
type BudgetRepositoryInterface interface {
	GetByUserID(ctx context.Context, userID uuid.UUID) ([]*models.Budget, error)
	Upsert(ctx context.Context, budget *models.Budget) error
	Delete(ctx context.Context, id uuid.UUID) error
	MonthlySpend(ctx context.Context, userID uuid.UUID, month string) ([]*models.CategorySpend, error)
}

// Ensure concrete types implement the interfaces
var (
	_ TaskRepositoryInterface   = (*TaskRepository)(nil)
	_ UserRepositoryInterface   = (*UserRepository)(nil)
	_ BudgetRepositoryInterface = (*BudgetRepository)(nil)
)
