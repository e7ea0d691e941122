package repository

import (
	"context"

	"github.com/taskhive/backend/domain"
)

type TaskEventRepository interface {
	Append(ctx context.Context, event domain.TaskEvent) error
	ListByTask(ctx context.Context, userID, taskID string, limit int) ([]domain.TaskEvent, error)
}
