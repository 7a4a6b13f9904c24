package cassandra

import (
	"context"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/openmeet/openmeet-api/internal/core/domain"
	"github.com/openmeet/openmeet-api/internal/pkg/metrics"
)

// indexWriteState names each point of the two-row user create.
type indexWriteState int

const (
	writePending indexWriteState = iota
	writeUserStored
	writeIndexed
	writeIndexFailed
	writeCompensated
	writeCompensationFailed
)

func (s indexWriteState) String() string {
	switch s {
	case writePending:
		return "pending"
	case writeUserStored:
		return "user_stored"
	case writeIndexed:
		return "indexed"
	case writeIndexFailed:
		return "index_failed"
	case writeCompensated:
		return "compensated"
	case writeCompensationFailed:
		return "compensation_failed"
	default:
		return "unknown"
	}
}

// emailIndexWrite stores a user row and then claims its email in email_index
// with a conditional insert. Losing the claim to another user deletes the
// row just written. The user row is never left behind silently: an index
// failure is reported as *domain.IndexWriteError so it can be repaired.
type emailIndexWrite struct {
	user  *domain.User
	state indexWriteState
	log   zerolog.Logger
}

func newEmailIndexWrite(user *domain.User, log zerolog.Logger) *emailIndexWrite {
	return &emailIndexWrite{
		user:  user,
		state: writePending,
		log:   log.With().Stringer("user_id", user.ID).Logger(),
	}
}

func (w *emailIndexWrite) run(ctx context.Context, s Session) error {
	u := w.user
	err := s.Exec(ctx, cqlInsertUser,
		toCQL(u.ID), u.Username, u.Email, u.PasswordHash, u.Description,
		u.Interests, u.CreatedAt, u.UpdatedAt, u.LastLogin)
	if err != nil {
		return fmt.Errorf("insert user: %w", err)
	}
	w.state = writeUserStored

	applied, existing, err := s.ExecCAS(ctx, cqlInsertEmailIndex, u.Email, toCQL(u.ID))
	if err != nil {
		w.state = writeIndexFailed
		metrics.EmailIndexInconsistenciesTotal.WithLabelValues("index_write_failed").Inc()
		w.log.Error().Err(err).Msg("email index write failed, user row has no index entry")
		return &domain.IndexWriteError{UserID: u.ID, Email: u.Email, Err: err}
	}

	if applied || existing.uuidCol("user_id") == u.ID {
		w.state = writeIndexed
		return nil
	}

	// Another creator claimed the email between the existence check and here.
	if _, _, err := s.ExecCAS(ctx, cqlDeleteUser, toCQL(u.ID)); err != nil {
		w.state = writeCompensationFailed
		metrics.EmailIndexInconsistenciesTotal.WithLabelValues("compensation_failed").Inc()
		w.log.Error().Err(err).Msg("could not remove user row after losing email claim")
		return domain.ErrEmailExists
	}
	w.state = writeCompensated
	w.log.Info().Msg("email claimed concurrently, user row removed")
	return domain.ErrEmailExists
}
