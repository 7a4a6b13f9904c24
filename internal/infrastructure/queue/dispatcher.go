package queue

import (
	"context"
	"errors"
	"hash/fnv"
	"sync"
	"time"

	"github.com/rs/zerolog"
	"github.com/sethvargo/go-retry"

	"github.com/openmeet/openmeet-api/internal/core/domain"
	"github.com/openmeet/openmeet-api/internal/core/ports"
)

const (
	defaultWorkers    = 4
	channelBuffer     = 256
	defaultRetries    = 3
	defaultRetryDelay = 200 * time.Millisecond
)

// RepairDispatcher retries email index writes for users created without one.
// Tasks are sharded on the email so repairs for one address never run
// concurrently with each other.
type RepairDispatcher struct {
	workers  []chan ports.IndexRepairTask
	repairer ports.EmailIndexRepairer
	log      zerolog.Logger

	retries    uint64
	retryDelay time.Duration

	wg sync.WaitGroup
}

// NewRepairDispatcher creates a dispatcher with numWorkers sharded workers.
// If numWorkers <= 0, defaultWorkers is used.
func NewRepairDispatcher(numWorkers int, repairer ports.EmailIndexRepairer, log zerolog.Logger) *RepairDispatcher {
	if numWorkers <= 0 {
		numWorkers = defaultWorkers
	}
	d := &RepairDispatcher{
		workers:    make([]chan ports.IndexRepairTask, numWorkers),
		repairer:   repairer,
		log:        log.With().Str("component", "index_repair").Logger(),
		retries:    defaultRetries,
		retryDelay: defaultRetryDelay,
	}
	for i := range d.workers {
		d.workers[i] = make(chan ports.IndexRepairTask, channelBuffer)
	}
	return d
}

// Start launches all worker goroutines. Workers stop when ctx is cancelled.
func (d *RepairDispatcher) Start(ctx context.Context) {
	for i, ch := range d.workers {
		d.wg.Add(1)
		go func() {
			defer d.wg.Done()
			d.runWorker(ctx, i, ch)
		}()
	}
}

// Wait blocks until every worker has returned.
func (d *RepairDispatcher) Wait() {
	d.wg.Wait()
}

// Enqueue hands the task to the worker owning its email. It never blocks: a
// full queue drops the task and returns false, leaving the index for a later
// repair.
func (d *RepairDispatcher) Enqueue(task ports.IndexRepairTask) bool {
	select {
	case d.workers[d.shardIndex(task.Email)] <- task:
		return true
	default:
		d.log.Warn().Stringer("user_id", task.UserID).Msg("repair queue full, task dropped")
		return false
	}
}

// shardIndex maps an email deterministically to a worker index.
func (d *RepairDispatcher) shardIndex(email string) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(email))
	return int(h.Sum32() % uint32(len(d.workers)))
}

func (d *RepairDispatcher) runWorker(ctx context.Context, id int, ch <-chan ports.IndexRepairTask) {
	for {
		select {
		case <-ctx.Done():
			return
		case task, ok := <-ch:
			if !ok {
				return
			}
			if err := d.repair(ctx, task); err != nil {
				d.log.Error().Err(err).
					Stringer("user_id", task.UserID).
					Str("email", task.Email).
					Int("worker_id", id).
					Msg("email index repair failed")
				continue
			}
			d.log.Info().Stringer("user_id", task.UserID).Int("worker_id", id).Msg("email index repaired")
		}
	}
}

func (d *RepairDispatcher) repair(ctx context.Context, task ports.IndexRepairTask) error {
	backoff := retry.WithMaxRetries(d.retries, retry.NewExponential(d.retryDelay))
	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := d.repairer.RepairEmailIndex(ctx, task.UserID, task.Email)
		if transient(err) {
			return retry.RetryableError(err)
		}
		return err
	})
}

// transient reports errors worth another attempt. Conflicts and missing
// users are final.
func transient(err error) bool {
	return err != nil && (domain.IsRetryable(err) ||
		errors.Is(err, domain.ErrStoreUnavailable) ||
		errors.Is(err, domain.ErrPoolExhausted) ||
		errors.Is(err, domain.ErrConnectFailed))
}
