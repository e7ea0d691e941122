package task

import (
	"context"
	"sort"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
)

type memTaskRepo struct {
	tasks map[string]*domain.Task
	clock time.Time
}

func newMemTaskRepo() *memTaskRepo {
	return &memTaskRepo{
		tasks: make(map[string]*domain.Task),
		clock: time.Date(2026, 8, 1, 12, 0, 0, 0, time.UTC),
	}
}

func (m *memTaskRepo) tick() time.Time {
	m.clock = m.clock.Add(time.Second)
	return m.clock
}

func (m *memTaskRepo) GetByID(ctx context.Context, userID, id string) (*domain.Task, error) {
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return nil, domain.ErrTaskNotFound
	}
	copied := *task
	return &copied, nil
}

func (m *memTaskRepo) List(ctx context.Context, filter repository.TaskFilter) ([]domain.Task, error) {
	out := []domain.Task{}
	for _, task := range m.tasks {
		if task.UserID != filter.UserID {
			continue
		}
		if filter.Status != "" && task.Status != filter.Status {
			continue
		}
		out = append(out, *task)
	}
	sort.Slice(out, func(i, j int) bool {
		switch filter.Sort {
		case repository.SortCreatedAsc:
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		case repository.SortDueAsc:
			a, b := out[i].DueDate, out[j].DueDate
			if a == nil && b == nil {
				return out[i].CreatedAt.After(out[j].CreatedAt)
			}
			if a == nil {
				return false
			}
			if b == nil {
				return true
			}
			return a.Before(*b)
		default:
			return out[i].CreatedAt.After(out[j].CreatedAt)
		}
	})
	return out, nil
}

func (m *memTaskRepo) Create(ctx context.Context, task *domain.Task) (*domain.Task, error) {
	if task.ID == "" {
		task.ID = uuid.NewString()
	}
	task.CreatedAt = m.tick()
	task.UpdatedAt = task.CreatedAt
	copied := *task
	m.tasks[task.ID] = &copied
	return task, nil
}

func (m *memTaskRepo) Update(ctx context.Context, task *domain.Task) error {
	existing, ok := m.tasks[task.ID]
	if !ok || existing.UserID != task.UserID {
		return domain.ErrTaskNotFound
	}
	task.UpdatedAt = m.tick()
	copied := *task
	m.tasks[task.ID] = &copied
	return nil
}

func (m *memTaskRepo) Delete(ctx context.Context, userID, id string) error {
	task, ok := m.tasks[id]
	if !ok || task.UserID != userID {
		return domain.ErrTaskNotFound
	}
	delete(m.tasks, id)
	return nil
}

type memEventRepo struct {
	events []domain.TaskEvent
}

func (m *memEventRepo) Append(ctx context.Context, event domain.TaskEvent) error {
	m.events = append(m.events, event)
	return nil
}

func (m *memEventRepo) ListByTask(ctx context.Context, userID, taskID string, limit int) ([]domain.TaskEvent, error) {
	var out []domain.TaskEvent
	for _, event := range m.events {
		if event.TaskID == taskID && event.UserID == userID {
			out = append(out, event)
		}
	}
	return out, nil
}

func newTestUseCase() (*UseCase, *memTaskRepo, *memEventRepo) {
	tasks := newMemTaskRepo()
	events := &memEventRepo{}
	return New(tasks, events, nil, nil), tasks, events
}

func TestCreateTaskAssignsOwnerAndDefaults(t *testing.T) {
	uc, _, events := newTestUseCase()

	// The task already claims another owner; the authenticated owner wins.
	created, err := uc.CreateTask(context.Background(), "user-a", &domain.Task{
		UserID: "user-b",
		Title:  "Buy milk",
	})
	require.NoError(t, err)
	require.Equal(t, "user-a", created.UserID)
	require.Equal(t, domain.StatusPending, created.Status)
	require.NotEmpty(t, created.ID)
	require.False(t, created.CreatedAt.IsZero())

	require.Len(t, events.events, 1)
	require.Equal(t, domain.EventTaskCreated, events.events[0].Name)
}

func TestCreateTaskRequiresTitle(t *testing.T) {
	uc, _, _ := newTestUseCase()

	_, err := uc.CreateTask(context.Background(), "user-a", &domain.Task{Title: "  "})
	require.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestOwnershipHidesForeignTasks(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, "user-a", &domain.Task{Title: "private"})
	require.NoError(t, err)

	_, err = uc.GetTask(ctx, "user-b", created.ID)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	title := "hijack"
	_, err = uc.UpdateTask(ctx, "user-b", created.ID, domain.TaskPatch{Title: &title})
	require.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	err = uc.DeleteTask(ctx, "user-b", created.ID)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	// Identical shape for a task that never existed.
	_, err = uc.GetTask(ctx, "user-b", "no-such-task")
	require.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))

	// The real owner still sees it untouched.
	task, err := uc.GetTask(ctx, "user-a", created.ID)
	require.NoError(t, err)
	require.Equal(t, "private", task.Title)
}

func TestUpdateTaskAppliesPartialPatch(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, "user-a", &domain.Task{Title: "X"})
	require.NoError(t, err)

	status := domain.StatusCompleted
	updated, err := uc.UpdateTask(ctx, "user-a", created.ID, domain.TaskPatch{Status: &status})
	require.NoError(t, err)
	require.Equal(t, "X", updated.Title)
	require.Equal(t, domain.StatusCompleted, updated.Status)

	bad := domain.Status("done")
	_, err = uc.UpdateTask(ctx, "user-a", created.ID, domain.TaskPatch{Status: &bad})
	require.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	// The failed update left the record alone.
	task, err := uc.GetTask(ctx, "user-a", created.ID)
	require.NoError(t, err)
	require.Equal(t, domain.StatusCompleted, task.Status)
}

func TestDeleteThenGet(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, "user-a", &domain.Task{Title: "ephemeral"})
	require.NoError(t, err)

	require.NoError(t, uc.DeleteTask(ctx, "user-a", created.ID))

	_, err = uc.GetTask(ctx, "user-a", created.ID)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}

func TestListTasks(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	empty, err := uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-a"})
	require.NoError(t, err)
	require.Empty(t, empty)

	for _, title := range []string{"first", "second", "third"} {
		_, err := uc.CreateTask(ctx, "user-a", &domain.Task{Title: title})
		require.NoError(t, err)
	}
	_, err = uc.CreateTask(ctx, "user-b", &domain.Task{Title: "foreign"})
	require.NoError(t, err)

	tasks, err := uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-a"})
	require.NoError(t, err)
	require.Len(t, tasks, 3)
	// Newest first by default.
	require.Equal(t, "third", tasks[0].Title)
	require.Equal(t, "first", tasks[2].Title)

	// Stable across consecutive calls with no writes in between.
	again, err := uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-a"})
	require.NoError(t, err)
	require.Equal(t, tasks, again)

	asc, err := uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-a", Sort: repository.SortCreatedAsc})
	require.NoError(t, err)
	require.Equal(t, "first", asc[0].Title)

	_, err = uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-a", Status: "done"})
	require.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))

	_, err = uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-a", Sort: "title"})
	require.True(t, domain.IsDomainError(err, domain.ErrCodeValidation))
}

func TestListTasksSortsMissingDueDatesLast(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	later := time.Date(2026, 9, 10, 0, 0, 0, 0, time.UTC)
	sooner := time.Date(2026, 9, 2, 0, 0, 0, 0, time.UTC)

	_, err := uc.CreateTask(ctx, "user-a", &domain.Task{Title: "no due date"})
	require.NoError(t, err)
	_, err = uc.CreateTask(ctx, "user-a", &domain.Task{Title: "later", DueDate: &later})
	require.NoError(t, err)
	_, err = uc.CreateTask(ctx, "user-a", &domain.Task{Title: "sooner", DueDate: &sooner})
	require.NoError(t, err)

	tasks, err := uc.ListTasks(ctx, repository.TaskFilter{UserID: "user-a", Sort: repository.SortDueAsc})
	require.NoError(t, err)
	require.Equal(t, []string{"sooner", "later", "no due date"},
		[]string{tasks[0].Title, tasks[1].Title, tasks[2].Title})
}

func TestTaskHistoryIsOwnerScoped(t *testing.T) {
	uc, _, _ := newTestUseCase()
	ctx := context.Background()

	created, err := uc.CreateTask(ctx, "user-a", &domain.Task{Title: "tracked"})
	require.NoError(t, err)
	status := domain.StatusInProgress
	_, err = uc.UpdateTask(ctx, "user-a", created.ID, domain.TaskPatch{Status: &status})
	require.NoError(t, err)

	history, err := uc.TaskHistory(ctx, "user-a", created.ID, 10)
	require.NoError(t, err)
	require.Len(t, history, 2)

	_, err = uc.TaskHistory(ctx, "user-b", created.ID, 10)
	require.True(t, domain.IsDomainError(err, domain.ErrCodeNotFound))
}
