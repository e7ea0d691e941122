package postgres

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/taskhive/backend/domain"
	"github.com/taskhive/backend/repository"
)

type taskEventRepository struct {
	pool *pgxpool.Pool
}

// NewTaskEventRepository creates a Postgres-backed append-only event log.
func NewTaskEventRepository(pool *pgxpool.Pool) repository.TaskEventRepository {
	return &taskEventRepository{pool: pool}
}

func (r *taskEventRepository) Append(ctx context.Context, event domain.TaskEvent) error {
	if event.ID == "" {
		event.ID = uuid.NewString()
	}

	const query = `
	INSERT INTO task_events (id, task_id, user_id, name, payload)
	VALUES ($1, $2, $3, $4, $5)
	`
	_, err := r.pool.Exec(ctx, query,
		event.ID,
		event.TaskID,
		event.UserID,
		event.Name,
		[]byte(event.Payload),
	)
	return err
}

func (r *taskEventRepository) ListByTask(ctx context.Context, userID, taskID string, limit int) ([]domain.TaskEvent, error) {
	const query = `
	SELECT id, task_id, user_id, name, payload, created_at
	FROM task_events
	WHERE task_id = $1 AND user_id = $2
	ORDER BY created_at DESC
	LIMIT $3
	`
	rows, err := r.pool.Query(ctx, query, taskID, userID, clampLimit(limit))
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []domain.TaskEvent
	for rows.Next() {
		var event domain.TaskEvent
		var payload []byte
		if err := rows.Scan(&event.ID, &event.TaskID, &event.UserID, &event.Name, &payload, &event.CreatedAt); err != nil {
			return nil, err
		}
		event.Payload = payload
		events = append(events, event)
	}
	return events, rows.Err()
}
