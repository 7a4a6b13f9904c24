package cassandra

import (
	"context"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

// Row is one result row keyed by column name.
type Row map[string]any

// Session is a live, exclusively leased handle to the cluster. Errors
// returned by a Session are already mapped to domain errors.
type Session interface {
	Query(ctx context.Context, stmt string, values ...any) ([]Row, error)
	Exec(ctx context.Context, stmt string, values ...any) error
	// ExecCAS runs a lightweight transaction. When the condition does not
	// hold, applied is false and existing holds the current row, if any.
	ExecCAS(ctx context.Context, stmt string, values ...any) (applied bool, existing Row, err error)
	Close()
}

// Connector builds new sessions for the pool.
type Connector interface {
	Connect(ctx context.Context) (Session, error)
}

// ClusterConnector creates gocql sessions against the configured contact points.
type ClusterConnector struct {
	cfg PoolConfig
}

func NewClusterConnector(cfg PoolConfig) *ClusterConnector {
	return &ClusterConnector{cfg: cfg.withDefaults()}
}

func (c *ClusterConnector) cluster() (*gocql.ClusterConfig, error) {
	consistency, err := gocql.ParseConsistencyWrapper(c.cfg.Consistency)
	if err != nil {
		return nil, fmt.Errorf("consistency %q: %w", c.cfg.Consistency, err)
	}

	cluster := gocql.NewCluster(c.cfg.ContactPoints...)
	cluster.Keyspace = c.cfg.Keyspace
	cluster.Consistency = consistency
	cluster.SerialConsistency = gocql.Serial
	cluster.Timeout = c.cfg.QueryTimeout
	cluster.ConnectTimeout = c.cfg.ConnectTimeout
	// The pool multiplexes leases over sessions; one connection per host is enough.
	cluster.NumConns = 1
	if c.cfg.Username != "" && c.cfg.Password != "" {
		cluster.Authenticator = gocql.PasswordAuthenticator{
			Username: c.cfg.Username,
			Password: c.cfg.Password,
		}
	}
	return cluster, nil
}

// Connect creates one session. Failures are not retried.
func (c *ClusterConnector) Connect(ctx context.Context) (Session, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectFailed, err)
	}

	cluster, err := c.cluster()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectFailed, err)
	}

	s, err := cluster.CreateSession()
	if err != nil {
		return nil, fmt.Errorf("%w: %w", domain.ErrConnectFailed, err)
	}
	return &gocqlSession{s: s}, nil
}

type gocqlSession struct {
	s *gocql.Session
}

func (g *gocqlSession) Query(ctx context.Context, stmt string, values ...any) ([]Row, error) {
	iter := g.s.Query(stmt, values...).WithContext(ctx).Iter()
	maps, err := iter.SliceMap()
	if err != nil {
		_ = iter.Close()
		return nil, mapStoreErr(err)
	}
	if err := iter.Close(); err != nil {
		return nil, mapStoreErr(err)
	}

	rows := make([]Row, 0, len(maps))
	for _, m := range maps {
		rows = append(rows, Row(m))
	}
	return rows, nil
}

func (g *gocqlSession) Exec(ctx context.Context, stmt string, values ...any) error {
	return mapStoreErr(g.s.Query(stmt, values...).WithContext(ctx).Exec())
}

func (g *gocqlSession) ExecCAS(ctx context.Context, stmt string, values ...any) (bool, Row, error) {
	existing := make(map[string]interface{})
	applied, err := g.s.Query(stmt, values...).WithContext(ctx).MapScanCAS(existing)
	if err != nil {
		return false, nil, mapStoreErr(err)
	}
	if applied {
		return true, nil, nil
	}
	return false, Row(existing), nil
}

func (g *gocqlSession) Close() {
	g.s.Close()
}
