package cassandra

import (
	"github.com/gocql/gocql"
	"github.com/google/uuid"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

func toCQL(id uuid.UUID) gocql.UUID {
	return gocql.UUID(id)
}

// Column helpers tolerate NULL cells, which the driver may report as nil.

func (r Row) uuidCol(col string) uuid.UUID {
	switch v := r[col].(type) {
	case gocql.UUID:
		return uuid.UUID(v)
	case uuid.UUID:
		return v
	case [16]byte:
		return uuid.UUID(v)
	case string:
		id, err := uuid.Parse(v)
		if err != nil {
			return uuid.Nil
		}
		return id
	default:
		return uuid.Nil
	}
}

func (r Row) text(col string) string {
	s, _ := r[col].(string)
	return s
}

func (r Row) bigint(col string) int64 {
	switch v := r[col].(type) {
	case int64:
		return v
	case int:
		return int64(v)
	case int32:
		return int64(v)
	default:
		return 0
	}
}

func (r Row) double(col string) float64 {
	switch v := r[col].(type) {
	case float64:
		return v
	case float32:
		return float64(v)
	default:
		return 0
	}
}

func (r Row) textList(col string) []string {
	v, _ := r[col].([]string)
	if len(v) == 0 {
		return nil
	}
	out := make([]string, len(v))
	copy(out, v)
	return out
}

func decodeUser(r Row) *domain.User {
	return &domain.User{
		ID:           r.uuidCol("user_id"),
		Username:     r.text("username"),
		Email:        r.text("email"),
		PasswordHash: r.text("password_hash"),
		Description:  r.text("description"),
		Interests:    r.textList("interests"),
		CreatedAt:    r.bigint("created_at"),
		UpdatedAt:    r.bigint("updated_at"),
		LastLogin:    r.bigint("last_login"),
	}
}

func decodeEvent(r Row) *domain.Event {
	return &domain.Event{
		ID:          r.uuidCol("event_id"),
		GroupID:     r.uuidCol("group_id"),
		Title:       r.text("title"),
		Description: r.text("description"),
		StartTime:   r.bigint("start_time"),
		EndTime:     r.bigint("end_time"),
		Lat:         r.double("lat"),
		Lon:         r.double("lon"),
		Location:    r.text("location"),
		CreatedAt:   r.bigint("created_at"),
		UpdatedAt:   r.bigint("updated_at"),
	}
}
