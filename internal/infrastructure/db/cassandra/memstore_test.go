package cassandra

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gocql/gocql"
	"github.com/rs/zerolog"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

// ---------------------------------------------------------------------------
// In-memory store
// ---------------------------------------------------------------------------

var errInjected = fmt.Errorf("%w: injected fault", domain.ErrStoreUnavailable)

type eventPK struct {
	group gocql.UUID
	start int64
	id    gocql.UUID
}

// fault fails a statement once it has run more than `after` times.
type fault struct {
	after int
	err   error
}

// memStore understands exactly the statements in statements.go.
type memStore struct {
	mu         sync.Mutex
	users      map[gocql.UUID]Row
	emailIndex map[string]gocql.UUID
	events     map[eventPK]Row
	calls      map[string]int
	faults     map[string]fault
	// before runs with mu held just before stmt executes.
	before map[string]func(*memStore)
}

func newMemStore() *memStore {
	return &memStore{
		users:      make(map[gocql.UUID]Row),
		emailIndex: make(map[string]gocql.UUID),
		events:     make(map[eventPK]Row),
		calls:      make(map[string]int),
		faults:     make(map[string]fault),
		before:     make(map[string]func(*memStore)),
	}
}

func (m *memStore) failOn(stmt string, after int, err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.faults[stmt] = fault{after: after, err: err}
}

func (m *memStore) clearFault(stmt string) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.faults, stmt)
}

func (m *memStore) callCount(stmt string) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls[stmt]
}

func (m *memStore) indexEntry(email string) (gocql.UUID, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	id, ok := m.emailIndex[email]
	return id, ok
}

func (m *memStore) userCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.users)
}

// enter records the call and returns an injected fault, if any. mu must be held.
func (m *memStore) enter(stmt string) error {
	m.calls[stmt]++
	if f, ok := m.faults[stmt]; ok && m.calls[stmt] > f.after {
		return f.err
	}
	if hook, ok := m.before[stmt]; ok {
		hook(m)
	}
	return nil
}

func copyRow(r Row) Row {
	out := make(Row, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// ---------------------------------------------------------------------------
// Session and connector fakes
// ---------------------------------------------------------------------------

type memSession struct {
	id     int
	store  *memStore
	broken atomic.Bool
	closed atomic.Bool
	leased atomic.Int32
	// probeRows overrides the single row the probe normally returns.
	probeRows []Row
}

func (s *memSession) Query(_ context.Context, stmt string, values ...any) ([]Row, error) {
	if s.closed.Load() {
		return nil, fmt.Errorf("%w: session closed", domain.ErrStoreUnavailable)
	}
	if stmt == cqlProbe {
		if s.broken.Load() {
			return nil, fmt.Errorf("%w: connection reset", domain.ErrStoreUnavailable)
		}
		if s.probeRows != nil {
			return s.probeRows, nil
		}
		return []Row{{"system.now()": gocql.TimeUUID()}}, nil
	}

	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(stmt); err != nil {
		return nil, err
	}

	switch stmt {
	case cqlSelectEmailIndex:
		id, ok := m.emailIndex[values[0].(string)]
		if !ok {
			return nil, nil
		}
		return []Row{{"user_id": id}}, nil
	case cqlSelectUserByID:
		u, ok := m.users[values[0].(gocql.UUID)]
		if !ok {
			return nil, nil
		}
		return []Row{copyRow(u)}, nil
	case cqlSelectUsers:
		rows := make([]Row, 0, len(m.users))
		for _, u := range m.users {
			rows = append(rows, copyRow(u))
		}
		return rows, nil
	case cqlSelectEvent:
		e, ok := m.events[eventPK{values[0].(gocql.UUID), values[1].(int64), values[2].(gocql.UUID)}]
		if !ok {
			return nil, nil
		}
		return []Row{copyRow(e)}, nil
	case cqlSelectEventsByGroup:
		group := values[0].(gocql.UUID)
		var keys []eventPK
		for k := range m.events {
			if k.group == group {
				keys = append(keys, k)
			}
		}
		sort.Slice(keys, func(i, j int) bool {
			if keys[i].start != keys[j].start {
				return keys[i].start < keys[j].start
			}
			return keys[i].id.String() < keys[j].id.String()
		})
		rows := make([]Row, 0, len(keys))
		for _, k := range keys {
			rows = append(rows, copyRow(m.events[k]))
		}
		return rows, nil
	}
	return nil, fmt.Errorf("memstore: unexpected query %q", stmt)
}

func (s *memSession) Exec(_ context.Context, stmt string, values ...any) error {
	if s.closed.Load() {
		return fmt.Errorf("%w: session closed", domain.ErrStoreUnavailable)
	}

	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(stmt); err != nil {
		return err
	}

	switch {
	case stmt == cqlInsertUser:
		m.users[values[0].(gocql.UUID)] = Row{
			"user_id":       values[0],
			"username":      values[1],
			"email":         values[2],
			"password_hash": values[3],
			"description":   values[4],
			"interests":     values[5],
			"created_at":    values[6],
			"updated_at":    values[7],
			"last_login":    values[8],
		}
		return nil
	case stmt == cqlInsertEvent:
		pk := eventPK{values[0].(gocql.UUID), values[1].(int64), values[2].(gocql.UUID)}
		m.events[pk] = Row{
			"group_id":    values[0],
			"start_time":  values[1],
			"event_id":    values[2],
			"title":       values[3],
			"description": values[4],
			"end_time":    values[5],
			"lat":         values[6],
			"lon":         values[7],
			"location":    values[8],
			"created_at":  values[9],
			"updated_at":  values[10],
		}
		return nil
	case strings.HasPrefix(stmt, "CREATE TABLE"):
		return nil
	}
	return fmt.Errorf("memstore: unexpected exec %q", stmt)
}

func (s *memSession) ExecCAS(_ context.Context, stmt string, values ...any) (bool, Row, error) {
	if s.closed.Load() {
		return false, nil, fmt.Errorf("%w: session closed", domain.ErrStoreUnavailable)
	}

	m := s.store
	m.mu.Lock()
	defer m.mu.Unlock()
	if err := m.enter(stmt); err != nil {
		return false, nil, err
	}

	switch stmt {
	case cqlInsertEmailIndex:
		email, id := values[0].(string), values[1].(gocql.UUID)
		if existing, ok := m.emailIndex[email]; ok {
			return false, Row{"email": email, "user_id": existing}, nil
		}
		m.emailIndex[email] = id
		return true, nil, nil
	case cqlDeleteEmailIndex:
		email, id := values[0].(string), values[1].(gocql.UUID)
		existing, ok := m.emailIndex[email]
		if !ok {
			return false, nil, nil
		}
		if existing != id {
			return false, Row{"user_id": existing}, nil
		}
		delete(m.emailIndex, email)
		return true, nil, nil
	case cqlDeleteUser:
		id := values[0].(gocql.UUID)
		if _, ok := m.users[id]; !ok {
			return false, nil, nil
		}
		delete(m.users, id)
		return true, nil, nil
	case cqlUpdateLastLogin:
		id := values[2].(gocql.UUID)
		u, ok := m.users[id]
		if !ok {
			return false, nil, nil
		}
		u["last_login"] = values[0]
		u["updated_at"] = values[1]
		return true, nil, nil
	case cqlDeleteEvent:
		pk := eventPK{values[0].(gocql.UUID), values[1].(int64), values[2].(gocql.UUID)}
		if _, ok := m.events[pk]; !ok {
			return false, nil, nil
		}
		delete(m.events, pk)
		return true, nil, nil
	}
	return false, nil, fmt.Errorf("memstore: unexpected CAS %q", stmt)
}

func (s *memSession) Close() {
	s.closed.Store(true)
}

type fakeConnector struct {
	store *memStore

	mu       sync.Mutex
	sessions []*memSession
	err      error
	// delay simulates a slow handshake.
	delay time.Duration
}

func newFakeConnector(store *memStore) *fakeConnector {
	return &fakeConnector{store: store}
}

func (c *fakeConnector) Connect(ctx context.Context) (Session, error) {
	if c.delay > 0 {
		select {
		case <-time.After(c.delay):
		case <-ctx.Done():
			return nil, ctx.Err()
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.err != nil {
		return nil, c.err
	}
	s := &memSession{id: len(c.sessions) + 1, store: c.store}
	c.sessions = append(c.sessions, s)
	return s, nil
}

func (c *fakeConnector) connects() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.sessions)
}

func (c *fakeConnector) session(i int) *memSession {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.sessions[i]
}

// ---------------------------------------------------------------------------
// Credentials stub
// ---------------------------------------------------------------------------

type stubCredentials struct {
	hashErr   error
	verifyErr error
	tokenErr  error
	onVerify  func()
}

func (c *stubCredentials) Hash(plaintext string) (string, error) {
	if c.hashErr != nil {
		return "", c.hashErr
	}
	return "hashed:" + plaintext, nil
}

func (c *stubCredentials) Verify(plaintext, hash string) (bool, error) {
	if c.onVerify != nil {
		c.onVerify()
	}
	if c.verifyErr != nil {
		return false, c.verifyErr
	}
	return hash == "hashed:"+plaintext, nil
}

func (c *stubCredentials) IssueToken(subject string) (string, error) {
	if c.tokenErr != nil {
		return "", c.tokenErr
	}
	return "token:" + subject, nil
}

type stubReserver struct {
	mu       sync.Mutex
	held     map[string]bool
	err      error
	released []string
}

func (r *stubReserver) Reserve(_ context.Context, email string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.err != nil {
		return false, r.err
	}
	if r.held == nil {
		r.held = make(map[string]bool)
	}
	if r.held[email] {
		return false, nil
	}
	r.held[email] = true
	return true, nil
}

func (r *stubReserver) Release(_ context.Context, email string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.held, email)
	r.released = append(r.released, email)
	return nil
}

// ---------------------------------------------------------------------------
// Helpers
// ---------------------------------------------------------------------------

func testPoolConfig(size int) PoolConfig {
	return PoolConfig{
		ContactPoints:  []string{"127.0.0.1"},
		Size:           size,
		AcquireTimeout: 200 * time.Millisecond,
		QueryTimeout:   time.Second,
	}
}

func newTestPool(t *testing.T, size int, conn Connector) *Pool {
	t.Helper()
	pool, err := NewPool(testPoolConfig(size), conn, zerolog.Nop())
	if err != nil {
		t.Fatalf("NewPool: %v", err)
	}
	t.Cleanup(pool.Close)
	return pool
}

func fixedClock(ms int64) func() time.Time {
	return func() time.Time { return time.UnixMilli(ms) }
}

func mustNotErr(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}

func assertErrIs(t *testing.T, err, target error) {
	t.Helper()
	if !errors.Is(err, target) {
		t.Fatalf("expected %v, got: %v", target, err)
	}
}
