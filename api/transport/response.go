package transport

import "github.com/taskhive/backend/domain"

// ErrorResponse is the only failure body shape: a human-readable message and
// nothing else. Internal detail never crosses this boundary.
type ErrorResponse struct {
	Message string `json:"message"`
}

// MessageResponse acknowledges an operation with no payload, e.g. a delete.
type MessageResponse struct {
	Message string `json:"message"`
}

// LoginResponse carries the bearer token plus the public user fields.
type LoginResponse struct {
	Token string       `json:"token"`
	User  *domain.User `json:"user"`
}

// NewError builds a failure body.
func NewError(message string) ErrorResponse {
	return ErrorResponse{Message: message}
}
