package transport

import (
	"time"

	"github.com/taskhive/backend/domain"
)

type RegisterRequest struct {
	Username string `json:"username"`
	Email    string `json:"email"`
	Password string `json:"password"`
}

type LoginRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

// TaskCreateRequest deliberately has no owner field: ownership always comes
// from the authenticated identity.
type TaskCreateRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	Status      string `json:"status"`
	DueDate     string `json:"dueDate"`
}

func (r TaskCreateRequest) ToTask() (*domain.Task, error) {
	task := &domain.Task{
		Title:       r.Title,
		Description: r.Description,
		Status:      domain.Status(r.Status),
	}
	if r.DueDate != "" {
		due, err := parseDate(r.DueDate)
		if err != nil {
			return nil, err
		}
		task.DueDate = &due
	}
	return task, nil
}

// TaskUpdateRequest distinguishes omitted fields from explicitly empty ones:
// a nil pointer leaves the field unchanged, an empty string clears it (where
// clearing is legal).
type TaskUpdateRequest struct {
	Title       *string `json:"title"`
	Description *string `json:"description"`
	Status      *string `json:"status"`
	DueDate     *string `json:"dueDate"`
}

func (r TaskUpdateRequest) ToPatch() (domain.TaskPatch, error) {
	patch := domain.TaskPatch{
		Title:       r.Title,
		Description: r.Description,
	}
	if r.Status != nil {
		status, err := domain.ParseStatus(*r.Status)
		if err != nil {
			return domain.TaskPatch{}, err
		}
		patch.Status = &status
	}
	if r.DueDate != nil {
		if *r.DueDate == "" {
			patch.ClearDueDate = true
		} else {
			due, err := parseDate(*r.DueDate)
			if err != nil {
				return domain.TaskPatch{}, err
			}
			patch.DueDate = &due
		}
	}
	return patch, nil
}

// parseDate accepts the RFC 3339 timestamps the browser client sends, and
// bare dates as a convenience.
func parseDate(value string) (time.Time, error) {
	if t, err := time.Parse(time.RFC3339, value); err == nil {
		return t, nil
	}
	if t, err := time.Parse("2006-01-02", value); err == nil {
		return t, nil
	}
	return time.Time{}, domain.NewError(domain.ErrCodeValidation, "dueDate must be an RFC 3339 timestamp or YYYY-MM-DD date")
}
