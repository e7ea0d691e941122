package domain

import (
	"strings"
	"time"
)

// Status enumerates the task lifecycle states. Transitions between them are
// unrestricted; only unknown values are rejected.
type Status string

const (
	StatusPending    Status = "pending"
	StatusInProgress Status = "in-progress"
	StatusCompleted  Status = "completed"
)

// ParseStatus validates a status value coming off the wire.
func ParseStatus(value string) (Status, error) {
	switch Status(value) {
	case StatusPending, StatusInProgress, StatusCompleted:
		return Status(value), nil
	default:
		return "", NewError(ErrCodeValidation, "status must be one of pending, in-progress, completed")
	}
}

// Task represents a user-owned activity item. UserID and CreatedAt are fixed
// at creation.
type Task struct {
	ID          string     `json:"id"`
	UserID      string     `json:"userId"`
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Status      Status     `json:"status"`
	DueDate     *time.Time `json:"dueDate,omitempty"`
	CreatedAt   time.Time  `json:"createdAt"`
	UpdatedAt   time.Time  `json:"updatedAt"`
}

func (t *Task) IsCompleted() bool {
	return t != nil && t.Status == StatusCompleted
}

// Validate checks the invariants that must hold before a task is persisted.
func (t *Task) Validate() error {
	if t == nil {
		return ErrInvalidPayload
	}
	if strings.TrimSpace(t.Title) == "" {
		return NewError(ErrCodeValidation, "title is required")
	}
	if _, err := ParseStatus(string(t.Status)); err != nil {
		return err
	}
	return nil
}

// TaskPatch carries a partial update. A nil field means "leave unchanged";
// a non-nil pointer to an empty string clears the field. ClearDueDate
// distinguishes "remove the due date" from "due date omitted".
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *Status
	DueDate      *time.Time
	ClearDueDate bool
}

// Apply merges the patch onto the task and revalidates the result. The task
// is only mutated when the merged result is valid.
func (p TaskPatch) Apply(t *Task) error {
	if t == nil {
		return ErrInvalidPayload
	}

	merged := *t
	if p.Title != nil {
		merged.Title = *p.Title
	}
	if p.Description != nil {
		merged.Description = *p.Description
	}
	if p.Status != nil {
		merged.Status = *p.Status
	}
	if p.ClearDueDate {
		merged.DueDate = nil
	} else if p.DueDate != nil {
		due := *p.DueDate
		merged.DueDate = &due
	}

	if err := merged.Validate(); err != nil {
		return err
	}
	*t = merged
	return nil
}
