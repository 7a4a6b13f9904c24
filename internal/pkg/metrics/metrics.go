// Package metrics defines and registers all custom Prometheus metrics for the
// openmeet API. It is the single source of truth for metric names, labels,
// and help strings.
//
// Metrics are registered with the default Prometheus registry on package
// initialisation via promauto.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const namespace = "openmeet"

// ── Session pool metrics ──────────────────────────────────────────────────────

// PoolSessionsOpen tracks live sessions (idle + leased) held by the pool.
var PoolSessionsOpen = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "sessions_open",
		Help:      "Number of live cluster sessions owned by the pool.",
	},
)

// PoolSessionsInUse tracks sessions currently leased to a caller.
var PoolSessionsInUse = promauto.NewGauge(
	prometheus.GaugeOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "sessions_in_use",
		Help:      "Number of cluster sessions currently leased.",
	},
)

// PoolSessionsDiscardedTotal counts sessions dropped after a failed liveness probe.
var PoolSessionsDiscardedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "sessions_discarded_total",
		Help:      "Total number of sessions discarded after failing the pre-lease probe.",
	},
)

// PoolAcquireErrorsTotal counts failed acquire calls.
// Label:
//   - reason: "exhausted", "cancelled", "connect_failed", "closed"
var PoolAcquireErrorsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "acquire_errors_total",
		Help:      "Total number of failed session acquisitions, by reason.",
	},
	[]string{"reason"},
)

// PoolAcquireDuration measures how long callers wait for a lease.
var PoolAcquireDuration = promauto.NewHistogram(
	prometheus.HistogramOpts{
		Namespace: namespace,
		Subsystem: "pool",
		Name:      "acquire_duration_seconds",
		Help:      "Time spent waiting for a session lease, including probe and connect.",
		Buckets:   prometheus.DefBuckets,
	},
)

// ── Repository metrics ────────────────────────────────────────────────────────

// EmailIndexInconsistenciesTotal counts disagreements between users and email_index.
// Label:
//   - kind: "orphaned_index", "email_mismatch", "index_write_failed", "compensation_failed"
var EmailIndexInconsistenciesTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_index_inconsistencies_total",
		Help:      "Total number of detected or created email index inconsistencies.",
	},
	[]string{"kind"},
)

// IndexRepairsTotal counts index repair attempts run by the repair dispatcher.
// Label:
//   - result: "repaired", "conflict", "failed"
var IndexRepairsTotal = promauto.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "email_index_repairs_total",
		Help:      "Total number of email index repair attempts, by result.",
	},
	[]string{"result"},
)

// UsersCreatedTotal counts users created with a consistent index row.
var UsersCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "users_created_total",
		Help:      "Total number of users created.",
	},
)

// EventsCreatedTotal counts newly created events.
var EventsCreatedTotal = promauto.NewCounter(
	prometheus.CounterOpts{
		Namespace: namespace,
		Name:      "events_created_total",
		Help:      "Total number of events created.",
	},
)
