// Package broker implements the work broker: a fair, affinity-aware
// dispatcher that hands out tasks expanded from submitted job templates to
// polling workers, redelivers tasks a worker never completed, and
// provisions additional worker capacity on demand.
//
// All mutable broker state (the job ring, the worker catalog, the
// provisioning gate, and every Job's own counters) is owned by a single
// Broker value and mutated only while its mutex is held, per the
// concurrency model in the design notes: the one exception is the call to
// LauncherPort.ensureCapacity, which is deliberately made outside the lock
// so a slow or failing provisioning RPC never blocks dispatch.
package broker

import "time"

// Limits bundles the tunables spec section 6 lists as configuration keys.
// Zero-value Limits is invalid; use DefaultLimits and override as needed.
type Limits struct {
	// WorkOffline suppresses all LauncherPort calls and widens affinity
	// matching to graph-only (tolerating a worker's version mismatch).
	WorkOffline bool
	// MaxWorkers caps the size of the worker catalog before the broker
	// stops asking the launcher for more capacity.
	MaxWorkers int
	// WorkerStartupWindow is STARTUP_WINDOW: the minimum interval between
	// two ensureCapacity requests for the same category.
	WorkerStartupWindow time.Duration
	// WorkerTTL is WORKER_TTL: an observation older than this is purged.
	WorkerTTL time.Duration
	// MaxTasksPerPoll bounds how many tasks a single dequeue call returns.
	MaxTasksPerPoll int
	// MaxRedeliveryPasses bounds deliveryPass (MAX_REDELIVERY_PASSES).
	MaxRedeliveryPasses int
	// RedeliveryQuietPeriod is the minimum time since the last delivery
	// before a job's undelivered tasks may be resent.
	RedeliveryQuietPeriod time.Duration
}

// DefaultLimits returns the defaults named throughout spec sections 3 and 4.
func DefaultLimits() Limits {
	return Limits{
		WorkOffline:           false,
		MaxWorkers:            0, // 0 means unbounded
		WorkerStartupWindow:   time.Hour,
		WorkerTTL:             120 * time.Second,
		MaxTasksPerPoll:       8,
		MaxRedeliveryPasses:   2,
		RedeliveryQuietPeriod: 2 * time.Minute,
	}
}
