package domain

import (
	"fmt"
	"regexp"

	"github.com/google/uuid"
)

var emailPattern = regexp.MustCompile(`^[\w.-]+@[\w.-]+\.\w+$`)

// User is a stored account. Timestamps are milliseconds since the Unix epoch
// and are always set by the repository.
type User struct {
	ID           uuid.UUID `json:"user_id"`
	Username     string    `json:"username"`
	Email        string    `json:"email"`
	PasswordHash string    `json:"-"`
	Description  string    `json:"description,omitempty"`
	Interests    []string  `json:"interests,omitempty"`
	CreatedAt    int64     `json:"created_at"`
	UpdatedAt    int64     `json:"updated_at"`
	LastLogin    int64     `json:"last_login"`
}

// NewUser is the client-supplied candidate for createUser. Password is the
// plaintext and never leaves the repository.
type NewUser struct {
	Username    string
	Email       string
	Password    string
	Description string
	Interests   []string
}

// ValidateEmail checks the local@domain.tld shape.
func ValidateEmail(email string) error {
	if !emailPattern.MatchString(email) {
		return fmt.Errorf("%w: %q", ErrInvalidEmail, email)
	}
	return nil
}
