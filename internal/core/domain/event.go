package domain

import "github.com/google/uuid"

// Event is a scheduled group event. Rows are physically keyed by
// (GroupID, StartTime, ID): GroupID is the partition, StartTime and ID cluster.
type Event struct {
	ID          uuid.UUID `json:"event_id"`
	GroupID     uuid.UUID `json:"group_id"`
	Title       string    `json:"title"`
	Description string    `json:"description"`
	StartTime   int64     `json:"start_time"`
	EndTime     int64     `json:"end_time"`
	Lat         float64   `json:"lat"`
	Lon         float64   `json:"lon"`
	Location    string    `json:"location"`
	CreatedAt   int64     `json:"created_at"`
	UpdatedAt   int64     `json:"updated_at"`
}

// Key returns the full physical key of e.
func (e *Event) Key() EventKey {
	return EventKey{GroupID: e.GroupID, StartTime: e.StartTime, EventID: e.ID}
}

// NewEvent carries the client-supplied fields for createEvent.
type NewEvent struct {
	Title       string
	Description string
	StartTime   int64
	EndTime     int64
	Lat         float64
	Lon         float64
	Location    string
}

// EventKey addresses exactly one event row.
type EventKey struct {
	GroupID   uuid.UUID
	StartTime int64
	EventID   uuid.UUID
}

// Complete reports whether every key component is set. A zero StartTime
// counts as absent, so events cannot start at the Unix epoch.
func (k EventKey) Complete() bool {
	return k.GroupID != uuid.Nil && k.EventID != uuid.Nil && k.StartTime != 0
}
