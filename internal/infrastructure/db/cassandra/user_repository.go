package cassandra

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/openmeet/openmeet-api/internal/core/domain"
	"github.com/openmeet/openmeet-api/internal/core/ports"
	"github.com/openmeet/openmeet-api/internal/pkg/metrics"
)

// UserRepository keeps users and email_index in agreement without multi-row
// transactions.
//
// Known race: the existence check in Create and the index insert are separate
// statements. Two creators for one email can both pass the check; the
// conditional index insert then lets exactly one of them win and the loser's
// user row is removed again. An optional EmailReserver narrows the window
// further across processes.
type UserRepository struct {
	pool     *Pool
	creds    ports.Credentials
	reserver ports.EmailReserver
	log      zerolog.Logger
	now      func() time.Time
}

// NewUserRepository wires the repository. reserver may be nil.
func NewUserRepository(pool *Pool, creds ports.Credentials, reserver ports.EmailReserver, log zerolog.Logger) *UserRepository {
	return &UserRepository{
		pool:     pool,
		creds:    creds,
		reserver: reserver,
		log:      log.With().Str("component", "user_repository").Logger(),
		now:      time.Now,
	}
}

func (r *UserRepository) Create(ctx context.Context, candidate domain.NewUser) (*domain.User, error) {
	if err := domain.ValidateEmail(candidate.Email); err != nil {
		return nil, err
	}

	hash, err := r.creds.Hash(candidate.Password)
	if err != nil {
		if !errors.Is(err, domain.ErrHashFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrHashFailure, err)
		}
		return nil, err
	}

	now := r.now().UnixMilli()
	user := &domain.User{
		ID:           uuid.New(),
		Username:     candidate.Username,
		Email:        candidate.Email,
		PasswordHash: hash,
		Description:  candidate.Description,
		Interests:    candidate.Interests,
		CreatedAt:    now,
		UpdatedAt:    now,
		LastLogin:    now,
	}

	if r.reserver != nil {
		reserved, err := r.reserver.Reserve(ctx, user.Email)
		switch {
		case err != nil:
			r.log.Warn().Err(err).Msg("email reservation unavailable, relying on conditional insert")
		case !reserved:
			return nil, domain.ErrEmailExists
		default:
			defer r.releaseReservation(user.Email)
		}
	}

	err = r.pool.WithSession(ctx, func(s Session) error {
		rows, err := s.Query(ctx, cqlSelectEmailIndex, user.Email)
		if err != nil {
			return fmt.Errorf("check email index: %w", err)
		}
		if len(rows) > 0 {
			return domain.ErrEmailExists
		}

		return newEmailIndexWrite(user, r.log).run(ctx, s)
	})
	if err != nil {
		return nil, err
	}

	metrics.UsersCreatedTotal.Inc()
	return user, nil
}

func (r *UserRepository) releaseReservation(email string) {
	ctx, cancel := context.WithTimeout(context.Background(), time.Second)
	defer cancel()
	if err := r.reserver.Release(ctx, email); err != nil {
		r.log.Warn().Err(err).Msg("email reservation release failed")
	}
}

func (r *UserRepository) GetByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	var user *domain.User
	err := r.pool.WithSession(ctx, func(s Session) error {
		var err error
		user, err = getUser(ctx, s, id)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func getUser(ctx context.Context, s Session, id uuid.UUID) (*domain.User, error) {
	rows, err := s.Query(ctx, cqlSelectUserByID, toCQL(id))
	if err != nil {
		return nil, fmt.Errorf("select user: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrUserNotFound
	}
	return decodeUser(rows[0]), nil
}

// GetByEmail never surfaces an index inconsistency as an error: a dangling or
// mismatched index row reads as an absent user and is logged and counted.
func (r *UserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	var user *domain.User
	err := r.pool.WithSession(ctx, func(s Session) error {
		var err error
		user, err = r.getByEmail(ctx, s, email)
		return err
	})
	if err != nil {
		return nil, err
	}
	return user, nil
}

func (r *UserRepository) getByEmail(ctx context.Context, s Session, email string) (*domain.User, error) {
	rows, err := s.Query(ctx, cqlSelectEmailIndex, email)
	if err != nil {
		return nil, fmt.Errorf("select email index: %w", err)
	}
	if len(rows) == 0 {
		return nil, domain.ErrUserNotFound
	}
	id := rows[0].uuidCol("user_id")

	user, err := getUser(ctx, s, id)
	if errors.Is(err, domain.ErrUserNotFound) {
		metrics.EmailIndexInconsistenciesTotal.WithLabelValues("orphaned_index").Inc()
		r.log.Warn().Str("email", email).Stringer("user_id", id).Msg("email index points at missing user")
		return nil, domain.ErrUserNotFound
	}
	if err != nil {
		return nil, err
	}
	if user.Email != email {
		metrics.EmailIndexInconsistenciesTotal.WithLabelValues("email_mismatch").Inc()
		r.log.Warn().Str("email", email).Stringer("user_id", id).Msg("email index points at user with another email")
		return nil, domain.ErrUserNotFound
	}
	return user, nil
}

// List is an unbounded full scan of the users table. There is no paging.
func (r *UserRepository) List(ctx context.Context) ([]*domain.User, error) {
	var users []*domain.User
	err := r.pool.WithSession(ctx, func(s Session) error {
		rows, err := s.Query(ctx, cqlSelectUsers)
		if err != nil {
			return fmt.Errorf("select users: %w", err)
		}
		users = make([]*domain.User, 0, len(rows))
		for _, row := range rows {
			users = append(users, decodeUser(row))
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return users, nil
}

// Delete removes the user row and then its index row. The index delete only
// applies while the row still points at id, so a stale email cannot remove
// another user's entry. A crash between the two leaves an orphaned index row,
// which GetByEmail treats as absent.
func (r *UserRepository) Delete(ctx context.Context, id uuid.UUID, email string) error {
	return r.pool.WithSession(ctx, func(s Session) error {
		userDeleted, _, err := s.ExecCAS(ctx, cqlDeleteUser, toCQL(id))
		if err != nil {
			return fmt.Errorf("delete user: %w", err)
		}

		indexDeleted, _, err := s.ExecCAS(ctx, cqlDeleteEmailIndex, email, toCQL(id))
		if err != nil {
			if userDeleted {
				metrics.EmailIndexInconsistenciesTotal.WithLabelValues("orphaned_index").Inc()
				r.log.Error().Err(err).Stringer("user_id", id).Msg("user deleted but email index row remains")
			}
			return fmt.Errorf("delete email index: %w", err)
		}

		if !userDeleted && !indexDeleted {
			return domain.ErrUserNotFound
		}
		if !userDeleted {
			r.log.Info().Stringer("user_id", id).Msg("removed orphaned email index row")
		}
		return nil
	})
}

// Login verifies password against the stored hash and issues a token whose
// subject is the user id. No session is held while the hash is checked.
// last_login is updated best-effort on a second lease.
func (r *UserRepository) Login(ctx context.Context, email, password string) (string, *domain.User, error) {
	var user *domain.User
	err := r.pool.WithSession(ctx, func(s Session) error {
		var err error
		user, err = r.getByEmail(ctx, s, email)
		return err
	})
	if err != nil {
		return "", nil, err
	}

	if user.PasswordHash == "" {
		return "", nil, domain.ErrInvalidCredentials
	}
	ok, err := r.creds.Verify(password, user.PasswordHash)
	if err != nil {
		r.log.Warn().Err(err).Stringer("user_id", user.ID).Msg("stored password hash unusable")
		return "", nil, domain.ErrInvalidCredentials
	}
	if !ok {
		return "", nil, domain.ErrInvalidCredentials
	}

	token, err := r.creds.IssueToken(user.ID.String())
	if err != nil {
		if !errors.Is(err, domain.ErrTokenFailure) {
			err = fmt.Errorf("%w: %w", domain.ErrTokenFailure, err)
		}
		return "", nil, err
	}

	now := r.now().UnixMilli()
	err = r.pool.WithSession(ctx, func(s Session) error {
		_, _, err := s.ExecCAS(ctx, cqlUpdateLastLogin, now, now, toCQL(user.ID))
		return err
	})
	if err != nil {
		r.log.Warn().Err(err).Stringer("user_id", user.ID).Msg("last_login update failed")
		return token, user, nil
	}
	user.LastLogin = now
	user.UpdatedAt = now
	return token, user, nil
}

// RepairEmailIndex repeats the conditional index insert for a user that was
// stored without one. It succeeds when the index already points at id.
func (r *UserRepository) RepairEmailIndex(ctx context.Context, id uuid.UUID, email string) error {
	if err := domain.ValidateEmail(email); err != nil {
		return err
	}

	return r.pool.WithSession(ctx, func(s Session) error {
		if _, err := getUser(ctx, s, id); err != nil {
			return err
		}

		applied, existing, err := s.ExecCAS(ctx, cqlInsertEmailIndex, email, toCQL(id))
		if err != nil {
			metrics.IndexRepairsTotal.WithLabelValues("failed").Inc()
			return &domain.IndexWriteError{UserID: id, Email: email, Err: err}
		}
		if applied || existing.uuidCol("user_id") == id {
			metrics.IndexRepairsTotal.WithLabelValues("repaired").Inc()
			return nil
		}

		metrics.IndexRepairsTotal.WithLabelValues("conflict").Inc()
		r.log.Warn().Str("email", email).Stringer("user_id", id).Msg("email index repair lost to another user")
		return domain.ErrEmailExists
	})
}
