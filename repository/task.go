package repository

import (
	"context"

	"github.com/taskhive/backend/domain"
)

// Sort keys accepted by TaskFilter.
const (
	SortCreatedDesc = "created_desc"
	SortCreatedAsc  = "created_asc"
	SortDueAsc      = "due_asc"
)

// TaskFilter scopes a listing. UserID is mandatory: tasks are always
// partitioned by owner.
type TaskFilter struct {
	UserID string
	Status domain.Status
	Sort   string
	Limit  int
	Offset int
}

type TaskRepository interface {
	// GetByID returns the task only when it is owned by userID; an ownership
	// mismatch is indistinguishable from nonexistence.
	GetByID(ctx context.Context, userID, id string) (*domain.Task, error)
	List(ctx context.Context, filter TaskFilter) ([]domain.Task, error)
	Create(ctx context.Context, task *domain.Task) (*domain.Task, error)
	// Update persists the full task row, matching on both id and owner.
	Update(ctx context.Context, task *domain.Task) error
	Delete(ctx context.Context, userID, id string) error
}
