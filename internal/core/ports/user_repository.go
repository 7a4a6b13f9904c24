package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

// UserRepository stores users and keeps the email index in agreement with them.
type UserRepository interface {
	Create(ctx context.Context, candidate domain.NewUser) (*domain.User, error)
	GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	// GetByEmail resolves through the email index. An index row whose user is
	// gone yields domain.ErrUserNotFound.
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	// List is an unbounded full scan of the users table.
	List(ctx context.Context) ([]*domain.User, error)
	Delete(ctx context.Context, id uuid.UUID, email string) error
	Login(ctx context.Context, email, password string) (string, *domain.User, error)
	// RepairEmailIndex repeats the index write for a user whose Create failed
	// with a *domain.IndexWriteError.
	RepairEmailIndex(ctx context.Context, id uuid.UUID, email string) error
}

// IndexRepairTask identifies a user whose email index row is missing.
type IndexRepairTask struct {
	UserID uuid.UUID
	Email  string
}

// EmailIndexRepairer is the slice of UserRepository the repair workers need.
type EmailIndexRepairer interface {
	RepairEmailIndex(ctx context.Context, id uuid.UUID, email string) error
}
