package ports

import (
	"context"

	"github.com/google/uuid"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

// EventRepository stores events keyed by (group_id, start_time, event_id).
type EventRepository interface {
	Create(ctx context.Context, groupID uuid.UUID, fields domain.NewEvent) (*domain.Event, error)
	// Get requires the full key; a partial key yields domain.ErrIncompleteKey.
	Get(ctx context.Context, key domain.EventKey) (*domain.Event, error)
	// ListByGroup returns the group's events ordered by start time.
	ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.Event, error)
	// Delete fails with domain.ErrEventNotFound when no row matched the key.
	Delete(ctx context.Context, key domain.EventKey) error
}
