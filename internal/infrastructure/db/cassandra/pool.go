package cassandra

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rs/zerolog"

	"github.com/openmeet/openmeet-api/internal/core/domain"
	"github.com/openmeet/openmeet-api/internal/pkg/metrics"
)

const (
	defaultPoolSize       = 8
	maxPoolSize           = 64
	defaultAcquireTimeout = 5 * time.Second
	defaultConnectTimeout = 10 * time.Second
	defaultQueryTimeout   = 5 * time.Second
	defaultConsistency    = "QUORUM"
	defaultKeyspace       = "openmeet"
)

// PoolConfig captures the recognised cluster and pool settings.
type PoolConfig struct {
	ContactPoints  []string
	Username       string
	Password       string
	Keyspace       string
	Consistency    string
	Size           int
	AcquireTimeout time.Duration
	ConnectTimeout time.Duration
	QueryTimeout   time.Duration
}

// Validate reports configuration that must stop the process at startup.
func (c PoolConfig) Validate() error {
	if len(c.ContactPoints) == 0 {
		return errors.New("cassandra: at least one contact point is required")
	}
	for _, cp := range c.ContactPoints {
		if cp == "" {
			return errors.New("cassandra: empty contact point")
		}
	}
	if c.Size < 0 || c.Size > maxPoolSize {
		return fmt.Errorf("cassandra: pool size %d out of range 1..%d", c.Size, maxPoolSize)
	}
	if (c.Username == "") != (c.Password == "") {
		return errors.New("cassandra: username and password must be set together")
	}
	return nil
}

func (c PoolConfig) withDefaults() PoolConfig {
	if c.Size <= 0 {
		c.Size = defaultPoolSize
	}
	if c.AcquireTimeout <= 0 {
		c.AcquireTimeout = defaultAcquireTimeout
	}
	if c.ConnectTimeout <= 0 {
		c.ConnectTimeout = defaultConnectTimeout
	}
	if c.QueryTimeout <= 0 {
		c.QueryTimeout = defaultQueryTimeout
	}
	if c.Consistency == "" {
		c.Consistency = defaultConsistency
	}
	if c.Keyspace == "" {
		c.Keyspace = defaultKeyspace
	}
	return c
}

// SessionState is the lifecycle state of a pooled session.
type SessionState int32

const (
	StateIdle SessionState = iota
	StateInUse
	StateBroken
)

func (s SessionState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateInUse:
		return "in_use"
	case StateBroken:
		return "broken"
	default:
		return "unknown"
	}
}

type pooledSession struct {
	id      uint64
	session Session
	state   SessionState
}

// Lease grants exclusive use of one session until Release.
type Lease struct {
	pool     *Pool
	ps       *pooledSession
	released atomic.Bool
}

// Session returns the leased session. It must not be used after Release.
func (l *Lease) Session() Session {
	return l.ps.session
}

// Release returns the session to the pool. Calls after the first are no-ops.
func (l *Lease) Release() {
	if !l.released.CompareAndSwap(false, true) {
		l.pool.log.Warn().Uint64("session_id", l.ps.id).Msg("lease released twice")
		return
	}
	l.pool.put(l.ps)
}

// PoolStats is a point-in-time snapshot of pool bookkeeping.
type PoolStats struct {
	Open  int
	Idle  int
	InUse int
}

// Pool hands out up to Size sessions. Holding a slot token is what entitles a
// caller to a session; sessions are created lazily when no idle one exists,
// so the number of live sessions never exceeds Size.
type Pool struct {
	cfg       PoolConfig
	connector Connector
	log       zerolog.Logger

	slots chan struct{}
	done  chan struct{}

	mu     sync.Mutex
	idle   []*pooledSession
	open   int
	inUse  int
	nextID uint64
	closed bool
}

// NewPool creates a pool. No session is opened until the first Acquire.
func NewPool(cfg PoolConfig, connector Connector, log zerolog.Logger) (*Pool, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	return &Pool{
		cfg:       cfg,
		connector: connector,
		log:       log.With().Str("component", "session_pool").Logger(),
		slots:     make(chan struct{}, cfg.Size),
		done:      make(chan struct{}),
	}, nil
}

// Acquire blocks until a validated session is available, the acquire timeout
// elapses (domain.ErrPoolExhausted) or ctx is done.
func (p *Pool) Acquire(ctx context.Context) (*Lease, error) {
	start := time.Now()
	defer func() { metrics.PoolAcquireDuration.Observe(time.Since(start).Seconds()) }()

	timer := time.NewTimer(p.cfg.AcquireTimeout)
	defer timer.Stop()

	select {
	case <-p.done:
		metrics.PoolAcquireErrorsTotal.WithLabelValues("closed").Inc()
		return nil, domain.ErrPoolClosed
	case p.slots <- struct{}{}:
	case <-timer.C:
		metrics.PoolAcquireErrorsTotal.WithLabelValues("exhausted").Inc()
		p.log.Warn().Dur("timeout", p.cfg.AcquireTimeout).Msg("acquire timed out")
		return nil, domain.ErrPoolExhausted
	case <-ctx.Done():
		metrics.PoolAcquireErrorsTotal.WithLabelValues("cancelled").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrPoolExhausted, ctx.Err())
	}

	// A cancelled waiter may still win the slot race; it must not get a session.
	if err := ctx.Err(); err != nil {
		<-p.slots
		metrics.PoolAcquireErrorsTotal.WithLabelValues("cancelled").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrPoolExhausted, err)
	}

	ps, err := p.checkout(ctx)
	if err != nil {
		<-p.slots
		return nil, err
	}

	if err := ctx.Err(); err != nil {
		p.put(ps)
		metrics.PoolAcquireErrorsTotal.WithLabelValues("cancelled").Inc()
		return nil, fmt.Errorf("%w: %w", domain.ErrPoolExhausted, err)
	}

	return &Lease{pool: p, ps: ps}, nil
}

// WithSession runs fn on a leased session and releases it afterwards.
func (p *Pool) WithSession(ctx context.Context, fn func(Session) error) error {
	lease, err := p.Acquire(ctx)
	if err != nil {
		return err
	}
	defer lease.Release()

	return fn(lease.Session())
}

// checkout is called while holding a slot. It prefers idle sessions, probing
// each before reuse, and connects a new one only when none is left.
func (p *Pool) checkout(ctx context.Context) (*pooledSession, error) {
	for {
		p.mu.Lock()
		if p.closed {
			p.mu.Unlock()
			metrics.PoolAcquireErrorsTotal.WithLabelValues("closed").Inc()
			return nil, domain.ErrPoolClosed
		}

		if n := len(p.idle); n > 0 {
			ps := p.idle[n-1]
			p.idle[n-1] = nil
			p.idle = p.idle[:n-1]
			p.mu.Unlock()

			if err := p.validate(ctx, ps); err != nil {
				p.discard(ps, err)
				continue
			}

			p.mu.Lock()
			ps.state = StateInUse
			p.inUse++
			p.mu.Unlock()
			metrics.PoolSessionsInUse.Inc()
			return ps, nil
		}

		p.open++
		p.nextID++
		id := p.nextID
		p.mu.Unlock()
		metrics.PoolSessionsOpen.Inc()

		session, err := p.connector.Connect(ctx)
		if err != nil {
			p.mu.Lock()
			p.open--
			p.mu.Unlock()
			metrics.PoolSessionsOpen.Dec()
			metrics.PoolAcquireErrorsTotal.WithLabelValues("connect_failed").Inc()
			p.log.Error().Err(err).Strs("contact_points", p.cfg.ContactPoints).Msg("session connect failed")
			if !errors.Is(err, domain.ErrConnectFailed) {
				err = fmt.Errorf("%w: %w", domain.ErrConnectFailed, err)
			}
			return nil, err
		}

		ps := &pooledSession{id: id, session: session, state: StateInUse}
		p.mu.Lock()
		p.inUse++
		p.mu.Unlock()
		metrics.PoolSessionsInUse.Inc()
		p.log.Debug().Uint64("session_id", id).Msg("session created")
		return ps, nil
	}
}

// validate runs the liveness probe. The probe is not cut short by the
// caller's cancellation so a healthy session is never marked broken by it.
func (p *Pool) validate(ctx context.Context, ps *pooledSession) error {
	probeCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), p.cfg.QueryTimeout)
	defer cancel()

	rows, err := ps.session.Query(probeCtx, cqlProbe)
	if err != nil {
		return fmt.Errorf("%w: %w", domain.ErrSessionBroken, err)
	}
	if len(rows) != 1 {
		return fmt.Errorf("%w: probe returned %d rows", domain.ErrSessionBroken, len(rows))
	}
	return nil
}

func (p *Pool) discard(ps *pooledSession, cause error) {
	p.mu.Lock()
	ps.state = StateBroken
	p.open--
	p.mu.Unlock()

	ps.session.Close()
	metrics.PoolSessionsOpen.Dec()
	metrics.PoolSessionsDiscardedTotal.Inc()
	p.log.Warn().Err(cause).Uint64("session_id", ps.id).Msg("session discarded")
}

func (p *Pool) put(ps *pooledSession) {
	p.mu.Lock()
	p.inUse--
	if p.closed {
		p.open--
		p.mu.Unlock()
		ps.session.Close()
		metrics.PoolSessionsInUse.Dec()
		metrics.PoolSessionsOpen.Dec()
		<-p.slots
		return
	}
	ps.state = StateIdle
	p.idle = append(p.idle, ps)
	p.mu.Unlock()

	metrics.PoolSessionsInUse.Dec()
	<-p.slots
}

// Stats returns a snapshot of the pool counters.
func (p *Pool) Stats() PoolStats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return PoolStats{Open: p.open, Idle: len(p.idle), InUse: p.inUse}
}

// Ping leases a session, which probes it when reused, and releases it.
func (p *Pool) Ping(ctx context.Context) error {
	return p.WithSession(ctx, func(Session) error { return nil })
}

// Close shuts idle sessions down and fails future acquires. Leased sessions
// are closed when released.
func (p *Pool) Close() {
	p.mu.Lock()
	if p.closed {
		p.mu.Unlock()
		return
	}
	p.closed = true
	close(p.done)
	idle := p.idle
	p.idle = nil
	p.open -= len(idle)
	p.mu.Unlock()

	for _, ps := range idle {
		ps.session.Close()
		metrics.PoolSessionsOpen.Dec()
	}
	p.log.Info().Int("closed_sessions", len(idle)).Msg("session pool closed")
}
