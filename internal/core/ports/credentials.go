package ports

import "context"

// Credentials is the password hashing and token issuing collaborator.
type Credentials interface {
	Hash(plaintext string) (string, error)
	// Verify reports whether plaintext matches hash. A malformed hash is an
	// error, a mismatch is (false, nil).
	Verify(plaintext, hash string) (bool, error)
	IssueToken(subject string) (string, error)
}

// EmailReserver holds short-lived, cross-process claims on an email address
// while a user is being created.
type EmailReserver interface {
	// Reserve returns false when another creator already holds the email.
	Reserve(ctx context.Context, email string) (bool, error)
	Release(ctx context.Context, email string) error
}
