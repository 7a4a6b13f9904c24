package domain

import (
	"errors"
	"fmt"

	"github.com/google/uuid"
)

// Session pool and transport errors. These propagate unchanged from the pool
// through the repositories.
var (
	// ErrPoolExhausted: no session became available before the acquire timeout.
	// HTTP Status: 503 Service Unavailable
	ErrPoolExhausted = errors.New("session pool exhausted")

	// ErrPoolClosed: acquire was called after the pool was shut down.
	// HTTP Status: 503 Service Unavailable
	ErrPoolClosed = errors.New("session pool closed")

	// ErrConnectFailed: a new session could not be established against the cluster.
	// HTTP Status: 503 Service Unavailable
	ErrConnectFailed = errors.New("cluster connect failed")

	// ErrSessionBroken: a session failed its liveness probe and was discarded.
	ErrSessionBroken = errors.New("session broken")

	// ErrExecutionTimeout: a statement timed out in the driver. Retryable.
	// HTTP Status: 504 Gateway Timeout
	ErrExecutionTimeout = errors.New("statement execution timeout")

	// ErrStoreUnavailable: the store rejected or could not serve a statement.
	// HTTP Status: 503 Service Unavailable
	ErrStoreUnavailable = errors.New("store unavailable")
)

// Repository errors.
var (
	ErrNotFound      = errors.New("not found")
	ErrUserNotFound  = fmt.Errorf("user %w", ErrNotFound)
	ErrEventNotFound = fmt.Errorf("event %w", ErrNotFound)

	// ErrIncompleteKey is returned for event lookups missing part of the
	// (group_id, start_time, event_id) key. It matches ErrEventNotFound.
	ErrIncompleteKey = fmt.Errorf("incomplete event key: %w", ErrEventNotFound)

	// ErrInvalidEvent: the event cannot be keyed (nil group or a zero start time).
	// HTTP Status: 400 Bad Request
	ErrInvalidEvent = errors.New("invalid event")

	ErrInvalidEmail       = errors.New("invalid email")
	ErrEmailExists        = errors.New("email already exists")
	ErrIndexWriteFailed   = errors.New("email index write failed")
	ErrInvalidCredentials = errors.New("invalid credentials")
	ErrHashFailure        = errors.New("password hash failure")
	ErrTokenFailure       = errors.New("token issuance failure")
)

// IndexWriteError reports that a user row was stored but its email index row
// was not. The user exists but cannot be found by email until the index write
// is repeated for UserID and Email.
type IndexWriteError struct {
	UserID uuid.UUID
	Email  string
	Err    error
}

func (e *IndexWriteError) Error() string {
	return fmt.Sprintf("%s for user %s: %v", ErrIndexWriteFailed, e.UserID, e.Err)
}

func (e *IndexWriteError) Unwrap() []error {
	return []error{ErrIndexWriteFailed, e.Err}
}

// IsRetryable reports whether err is a transient failure the caller may retry.
func IsRetryable(err error) bool {
	return errors.Is(err, ErrExecutionTimeout)
}
