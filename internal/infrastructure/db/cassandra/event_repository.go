package cassandra

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openmeet/openmeet-api/internal/core/domain"
	"github.com/openmeet/openmeet-api/internal/pkg/metrics"
)

// EventRepository addresses events by (group_id, start_time, event_id). Every
// point read or delete needs all three; there is no lookup by event_id alone.
type EventRepository struct {
	pool *Pool
	log  zerolog.Logger
	now  func() time.Time
}

func NewEventRepository(pool *Pool, log zerolog.Logger) *EventRepository {
	return &EventRepository{
		pool: pool,
		log:  log.With().Str("component", "event_repository").Logger(),
		now:  time.Now,
	}
}

func (r *EventRepository) Create(ctx context.Context, groupID uuid.UUID, fields domain.NewEvent) (*domain.Event, error) {
	if groupID == uuid.Nil {
		return nil, fmt.Errorf("%w: group id is required", domain.ErrInvalidEvent)
	}
	// A zero start time could never be addressed by Get or Delete.
	if fields.StartTime == 0 {
		return nil, fmt.Errorf("%w: start time must not be the epoch", domain.ErrInvalidEvent)
	}

	now := r.now().UnixMilli()
	e := &domain.Event{
		ID:          uuid.New(),
		GroupID:     groupID,
		Title:       fields.Title,
		Description: fields.Description,
		StartTime:   fields.StartTime,
		EndTime:     fields.EndTime,
		Lat:         fields.Lat,
		Lon:         fields.Lon,
		Location:    fields.Location,
		CreatedAt:   now,
		UpdatedAt:   now,
	}

	err := r.pool.WithSession(ctx, func(s Session) error {
		return s.Exec(ctx, cqlInsertEvent,
			toCQL(e.GroupID), e.StartTime, toCQL(e.ID), e.Title, e.Description,
			e.EndTime, e.Lat, e.Lon, e.Location, e.CreatedAt, e.UpdatedAt)
	})
	if err != nil {
		return nil, fmt.Errorf("insert event: %w", err)
	}

	metrics.EventsCreatedTotal.Inc()
	r.log.Debug().Stringer("group_id", groupID).Stringer("event_id", e.ID).Msg("event created")
	return e, nil
}

func (r *EventRepository) Get(ctx context.Context, key domain.EventKey) (*domain.Event, error) {
	if !key.Complete() {
		return nil, domain.ErrIncompleteKey
	}

	var event *domain.Event
	err := r.pool.WithSession(ctx, func(s Session) error {
		rows, err := s.Query(ctx, cqlSelectEvent, toCQL(key.GroupID), key.StartTime, toCQL(key.EventID))
		if err != nil {
			return fmt.Errorf("select event: %w", err)
		}
		if len(rows) == 0 {
			return domain.ErrEventNotFound
		}
		event = decodeEvent(rows[0])
		return nil
	})
	if err != nil {
		return nil, err
	}
	return event, nil
}

// ListByGroup scans one partition; rows come back in clustering order, which
// is ascending start_time.
func (r *EventRepository) ListByGroup(ctx context.Context, groupID uuid.UUID) ([]*domain.Event, error) {
	if groupID == uuid.Nil {
		return nil, domain.ErrIncompleteKey
	}

	var events []*domain.Event
	err := r.pool.WithSession(ctx, func(s Session) error {
		rows, err := s.Query(ctx, cqlSelectEventsByGroup, toCQL(groupID))
		if err != nil {
			return fmt.Errorf("select events: %w", err)
		}
		events = make([]*domain.Event, 0, len(rows))
		for _, row := range rows {
			events = append(events, decodeEvent(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return events, nil
}

// Delete fails with domain.ErrEventNotFound when nothing matched, so callers
// can tell an already-deleted event from one removed by this call.
func (r *EventRepository) Delete(ctx context.Context, key domain.EventKey) error {
	if !key.Complete() {
		return domain.ErrIncompleteKey
	}

	return r.pool.WithSession(ctx, func(s Session) error {
		applied, _, err := s.ExecCAS(ctx, cqlDeleteEvent, toCQL(key.GroupID), key.StartTime, toCQL(key.EventID))
		if err != nil {
			return fmt.Errorf("delete event: %w", err)
		}
		if !applied {
			return domain.ErrEventNotFound
		}
		return nil
	})
}
