// Package domain defines the core entities and sentinel errors of the work
// broker: worker categories, worker observations, jobs and their template
// tasks. It has no dependency on transport, storage, or the broker's
// dispatch logic.
package domain

import "errors"

// Error taxonomy (sentinels). Broker operations wrap these with context via
// fmt.Errorf("%w: ...") rather than defining bespoke error types, so callers
// can branch with errors.Is.
var (
	// ErrDuplicateJob is returned by enqueue when jobId already exists.
	ErrDuplicateJob = errors.New("duplicate job")
	// ErrNotFound is returned when a jobId is unknown to completeTask or deleteJob.
	ErrNotFound = errors.New("not found")
	// ErrInvalidArgument flags a malformed template or worker status payload.
	ErrInvalidArgument = errors.New("invalid argument")
	// ErrCapacityExhausted marks an enqueue that could not be matched to any
	// worker and for which the configured worker cap prevents provisioning.
	// It is logged, never surfaced as a request failure.
	ErrCapacityExhausted = errors.New("capacity exhausted")
	// ErrLauncherUnavailable marks a LauncherPort failure. It is logged, and
	// the broker clears the category's ProvisionGate entry so a later enqueue
	// can retry.
	ErrLauncherUnavailable = errors.New("launcher unavailable")
)
