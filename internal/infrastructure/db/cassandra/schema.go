package cassandra

import (
	"context"
	"fmt"
	"time"
)

const schemaTimeout = 30 * time.Second

// EnsureSchema creates the users, email_index and events tables when they do
// not exist. The keyspace itself is expected to be provisioned already.
func EnsureSchema(ctx context.Context, pool *Pool) error {
	ctx, cancel := context.WithTimeout(ctx, schemaTimeout)
	defer cancel()

	return pool.WithSession(ctx, func(s Session) error {
		for _, stmt := range schemaStatements {
			if err := s.Exec(ctx, stmt); err != nil {
				return fmt.Errorf("ensure schema: %w", err)
			}
		}
		return nil
	})
}
