package cassandra

import (
	"context"
	"errors"
	"fmt"

	"github.com/gocql/gocql"

	"github.com/openmeet/openmeet-api/internal/core/domain"
)

// mapStoreErr maps driver errors to domain errors. Timeouts become the
// retryable domain.ErrExecutionTimeout, everything else
// domain.ErrStoreUnavailable. If err is nil, mapStoreErr returns nil.
func mapStoreErr(err error) error {
	if err == nil {
		return nil
	}

	var (
		writeTimeout *gocql.RequestErrWriteTimeout
		readTimeout  *gocql.RequestErrReadTimeout
	)
	switch {
	case errors.Is(err, context.DeadlineExceeded),
		errors.Is(err, gocql.ErrTimeoutNoResponse),
		errors.As(err, &writeTimeout),
		errors.As(err, &readTimeout):
		return fmt.Errorf("%w: %w", domain.ErrExecutionTimeout, err)
	default:
		return fmt.Errorf("%w: %w", domain.ErrStoreUnavailable, err)
	}
}
