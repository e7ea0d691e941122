package domain

import (
	"regexp"
	"time"
)

const (
	MinUsernameLength = 3
	MinPasswordLength = 6
)

var emailPattern = regexp.MustCompile(`^[\w\-.]+@([\w-]+\.)+[\w-]{2,4}$`)

// User represents a registered account. The password is only ever held as a
// bcrypt hash and never serialized.
type User struct {
	ID           string    `json:"id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	CreatedAt    time.Time `json:"createdAt"`
}

// ValidateRegistration checks raw registration input against the account
// constraints before anything touches storage.
func ValidateRegistration(username, email, password string) error {
	if len(username) < MinUsernameLength {
		return NewError(ErrCodeValidation, "username must be at least 3 characters")
	}
	if !emailPattern.MatchString(email) {
		return NewError(ErrCodeValidation, "invalid email address")
	}
	if len(password) < MinPasswordLength {
		return NewError(ErrCodeValidation, "password must be at least 6 characters")
	}
	return nil
}
