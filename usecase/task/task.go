package task

import (
	"context"
	"encoding/json"

	"go.uber.org/zap"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
	"github.com/taskhive/backend/usecase"
)

type UseCase struct {
	tasks  repository.TaskRepository
	events repository.TaskEventRepository
	buffer usecase.OperationBuffer
	logger *zap.Logger
}

func New(tasks repository.TaskRepository, events repository.TaskEventRepository, buffer usecase.OperationBuffer, logger *zap.Logger) *UseCase {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UseCase{
		tasks:  tasks,
		events: events,
		buffer: buffer,
		logger: logger,
	}
}

// ListTasks returns the owner's tasks. An owner with no tasks gets an empty
// slice, never an error.
func (uc *UseCase) ListTasks(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	if filter.Status != "" {
		if _, err := domain.ParseStatus(string(filter.Status)); err != nil {
			return nil, err
		}
	}
	switch filter.Sort {
	case "", repository.SortCreatedDesc, repository.SortCreatedAsc, repository.SortDueAsc:
	default:
		return nil, domain.NewError(domain.ErrCodeValidation, "unknown sort key")
	}

	tasks, err := uc.tasks.List(ctx, filter)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to list tasks", err)
	}
	return tasks, nil
}

// GetTask returns the task only when ownerID owns it; a foreign or missing
// task is the same not-found error.
func (uc *UseCase) GetTask(ctx context.Context, ownerID, taskID string) (*domain.Task, error) {
	task, err := uc.tasks.GetByID(ctx, ownerID, taskID)
	if err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, err
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load task", err)
	}
	return task, nil
}

// CreateTask persists a task owned by ownerID. Any owner supplied on the task
// itself is overwritten; callers cannot create tasks for other users.
func (uc *UseCase) CreateTask(ctx context.Context, ownerID string, task *domain.Task) (*domain.Task, error) {
	if task == nil {
		return nil, domain.ErrInvalidPayload
	}
	task.UserID = ownerID
	if task.Status == "" {
		task.Status = domain.StatusPending
	}
	if err := task.Validate(); err != nil {
		return nil, err
	}

	created, err := uc.tasks.Create(ctx, task)
	if err != nil {
		if uc.shouldBuffer(ctx, domain.EventTaskCreated, task, err) {
			return task, nil
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to create task", err)
	}

	uc.recordEvent(ctx, domain.EventTaskCreated, created)
	return created, nil
}

// UpdateTask applies a partial patch under the same ownership rule as GetTask.
// Fields absent from the patch are preserved; nothing is written unless the
// merged task is valid.
func (uc *UseCase) UpdateTask(ctx context.Context, ownerID, taskID string, patch domain.TaskPatch) (*domain.Task, error) {
	task, err := uc.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return nil, err
	}

	if err := patch.Apply(task); err != nil {
		return nil, err
	}

	if err := uc.tasks.Update(ctx, task); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return nil, err
		}
		if uc.shouldBuffer(ctx, domain.EventTaskUpdated, task, err) {
			return task, nil
		}
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to update task", err)
	}

	uc.recordEvent(ctx, domain.EventTaskUpdated, task)
	return task, nil
}

// DeleteTask removes the task under the same ownership rule as GetTask.
func (uc *UseCase) DeleteTask(ctx context.Context, ownerID, taskID string) error {
	task, err := uc.GetTask(ctx, ownerID, taskID)
	if err != nil {
		return err
	}

	if err := uc.tasks.Delete(ctx, ownerID, taskID); err != nil {
		if domain.IsDomainError(err, domain.ErrCodeNotFound) {
			return err
		}
		if uc.shouldBuffer(ctx, domain.EventTaskDeleted, task, err) {
			return nil
		}
		return domain.WrapError(domain.ErrCodeInternal, "failed to delete task", err)
	}

	uc.recordEvent(ctx, domain.EventTaskDeleted, task)
	return nil
}

// TaskHistory returns the audit trail for one of the owner's tasks.
func (uc *UseCase) TaskHistory(ctx context.Context, ownerID, taskID string, limit int) ([]domain.TaskEvent, error) {
	if _, err := uc.GetTask(ctx, ownerID, taskID); err != nil {
		return nil, err
	}
	events, err := uc.events.ListByTask(ctx, ownerID, taskID, limit)
	if err != nil {
		return nil, domain.WrapError(domain.ErrCodeInternal, "failed to load task history", err)
	}
	return events, nil
}

// shouldBuffer defers a failed write to the offline buffer. Validation and
// ownership checks have already passed by the time this runs.
func (uc *UseCase) shouldBuffer(ctx context.Context, operation string, task *domain.Task, cause error) bool {
	if uc.buffer == nil {
		return false
	}
	if err := uc.buffer.BufferTask(ctx, operation, task); err != nil {
		uc.logger.Error("failed to buffer task operation",
			zap.String("operation", operation),
			zap.NamedError("cause", cause),
			zap.Error(err))
		return false
	}
	uc.logger.Warn("task operation buffered", zap.String("operation", operation), zap.NamedError("cause", cause))
	return true
}

func (uc *UseCase) recordEvent(ctx context.Context, name string, task *domain.Task) {
	if uc.events == nil || task == nil {
		return
	}
	payload, err := json.Marshal(task)
	if err != nil {
		return
	}
	event := domain.TaskEvent{
		TaskID:  task.ID,
		UserID:  task.UserID,
		Name:    name,
		Payload: payload,
	}
	if err := uc.events.Append(ctx, event); err != nil {
		uc.logger.Warn("failed to record task event", zap.String("event", name), zap.Error(err))
	}
}
