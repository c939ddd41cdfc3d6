package broker

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"github.com/routerfleet/regional-broker/internal/domain"
)

var tracer = otel.Tracer("broker")

// Clock abstracts wall-clock time so tests can drive redelivery timing
// deterministically instead of sleeping.
type Clock func() time.Time

// Broker is the single owner of all mutable broker state: the job ring, the
// worker catalog, and the provisioning gate. Every public operation except
// the call into LauncherPort runs under mu, matching the
// single-exclusion-domain model in the design notes.
type Broker struct {
	mu sync.Mutex

	limits   Limits
	ring     *JobRing
	catalog  *WorkerCatalog
	gate     *ProvisionGate
	launcher LauncherPort
	clock    Clock
}

// New constructs a Broker. launcher may be nil only when limits.WorkOffline
// is true; New panics otherwise, since every online enqueue path depends on
// it.
func New(limits Limits, launcher LauncherPort) *Broker {
	if launcher == nil && !limits.WorkOffline {
		panic("broker: a LauncherPort is required unless WorkOffline is set")
	}
	return &Broker{
		limits:   limits,
		ring:     NewJobRing(),
		catalog:  NewWorkerCatalog(),
		gate:     NewProvisionGate(),
		launcher: launcher,
		clock:    time.Now,
	}
}

func (b *Broker) nowMillis() int64 { return b.clock().UnixMilli() }

// EnqueueJob expands template into a Job and appends it to the ring. If no
// worker currently matches the job's category (and the broker isn't in
// offline mode), it asks the LauncherPort to start one after releasing the
// broker mutex. The launcher call is not made in the background: EnqueueJob
// returns only once EnsureCapacity has returned, and a launcher error is
// logged rather than returned to the caller.
func (b *Broker) EnqueueJob(ctx context.Context, template domain.TemplateTask) error {
	ctx, span := tracer.Start(ctx, "Broker.EnqueueJob",
		trace.WithAttributes(
			attribute.String("job.id", template.JobID),
			attribute.String("job.category", template.Category.String()),
		))
	defer span.End()

	b.mu.Lock()
	if b.ring.Find(template.JobID) != nil {
		b.mu.Unlock()
		return fmt.Errorf("%w: %s", domain.ErrDuplicateJob, template.JobID)
	}
	job := NewJob(template)
	b.ring.Insert(job)

	needsCapacity := !b.limits.WorkOffline && !b.catalog.HasWorker(job.Category(), false)
	var shouldLaunch bool
	if needsCapacity {
		if b.limits.MaxWorkers > 0 && b.catalog.Size() >= b.limits.MaxWorkers {
			slog.Warn("capacity exhausted at max-workers cap, job left in ring",
				slog.String("job_id", job.ID()), slog.String("category", job.Category().String()))
			needsCapacity = false
		} else {
			shouldLaunch = b.gate.ShouldRequest(job.Category(), b.nowMillis(), b.limits.WorkerStartupWindow.Milliseconds())
		}
	}
	cat := job.Category()
	b.mu.Unlock()

	if needsCapacity && shouldLaunch {
		b.requestCapacity(ctx, cat)
	}
	return nil
}

// requestCapacity calls the launcher outside the broker's mutex, per the
// documented concurrency pitfall: holding the lock across a provisioning
// RPC would serialize every other broker operation behind it. Failure is
// logged and the gate entry is reset so a later enqueue can retry.
func (b *Broker) requestCapacity(ctx context.Context, cat domain.WorkerCategory) {
	ctx, span := tracer.Start(ctx, "Broker.requestCapacity", trace.WithAttributes(attribute.String("category", cat.String())))
	defer span.End()

	if err := b.launcher.EnsureCapacity(ctx, cat, 1); err != nil {
		span.RecordError(err)
		slog.Error("launcher failed to provision capacity",
			slog.String("category", cat.String()), slog.Any("error", err))
		b.mu.Lock()
		b.gate.Reset(cat)
		b.mu.Unlock()
		return
	}
	slog.Info("requested worker capacity", slog.String("category", cat.String()))
}

// DequeueWork purges dead workers, then selects the first job in ring order
// matching category (or any job, for an any-category poller) that still has
// deliverable tasks, and hands back up to MaxTasksPerPoll of them. When the
// broker is in offline mode, matching widens to graph-only: a worker whose
// version doesn't match a job's still receives its tasks, since offline mode
// can never provision a version-matched worker to replace it. If no job
// matches, it runs a redelivery check over every job in the ring; when that
// starts a new pass on a matching job, this same poll is served from it,
// otherwise it returns empty.
func (b *Broker) DequeueWork(category domain.WorkerCategory) []domain.Task {
	b.mu.Lock()
	defer b.mu.Unlock()

	now := b.nowMillis()
	b.catalog.PurgeDead(now, b.limits.WorkerTTL.Milliseconds())

	var pred func(*Job) bool
	switch {
	case category.IsAny():
		pred = func(j *Job) bool { return j.HasDeliverable() }
	case b.limits.WorkOffline:
		pred = func(j *Job) bool {
			return j.Category().GraphID == category.GraphID && j.HasDeliverable()
		}
	default:
		pred = func(j *Job) bool { return j.Category().Equal(category) && j.HasDeliverable() }
	}

	if job := b.ring.AdvanceTo(pred); job != nil {
		return job.TakeSome(b.limits.MaxTasksPerPoll, now)
	}

	for _, job := range b.ring.Jobs() {
		if n := job.Redeliver(now, b.limits.MaxRedeliveryPasses, b.limits.RedeliveryQuietPeriod.Milliseconds()); n > 0 {
			slog.Info("redelivery sweep started",
				slog.String("job_id", job.ID()), slog.Int("resent", n), slog.Int("pass", job.DeliveryPass()))
		}
	}
	if job := b.ring.AdvanceTo(pred); job != nil {
		return job.TakeSome(b.limits.MaxTasksPerPoll, now)
	}
	return nil
}

// CompleteTask marks taskIndex complete on jobId. accepted is false if the
// job is unknown or the index was already complete. finished reports
// whether this call was the one that completed the whole job, in which
// case category identifies the job that was just verified and removed
// from the ring (for callers that want to label a completion metric).
func (b *Broker) CompleteTask(jobID string, taskIndex int) (accepted, finished bool, category domain.WorkerCategory) {
	b.mu.Lock()
	defer b.mu.Unlock()

	job := b.ring.Find(jobID)
	if job == nil {
		return false, false, domain.WorkerCategory{}
	}
	accepted = job.MarkComplete(taskIndex)
	if job.IsComplete() {
		category = job.Category()
		job.VerifyComplete()
		b.ring.Remove(job)
		slog.Info("job complete, removed from ring", slog.String("job_id", jobID))
		finished = true
	}
	return accepted, finished, category
}

// DeleteJob removes jobId from the ring unconditionally (cancellation). It
// returns false if the job was not present.
func (b *Broker) DeleteJob(jobID string) bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	job := b.ring.Find(jobID)
	if job == nil {
		return false
	}
	b.ring.Remove(job)
	return true
}

// RecordWorker delegates to the WorkerCatalog. It never dispatches work
// itself; a recorded worker is considered only on its next poll.
func (b *Broker) RecordWorker(obs domain.WorkerObservation) {
	b.mu.Lock()
	defer b.mu.Unlock()
	obs.LastSeenMillis = b.nowMillis()
	b.catalog.Record(obs)
}

// ListJobs returns a point-in-time snapshot of every job currently in the
// ring, in ring order.
func (b *Broker) ListJobs() []domain.JobStatus {
	b.mu.Lock()
	defer b.mu.Unlock()
	jobs := b.ring.Jobs()
	out := make([]domain.JobStatus, 0, len(jobs))
	for _, j := range jobs {
		out = append(out, j.Status())
	}
	return out
}

// ListWorkers returns a point-in-time snapshot of every tracked worker.
func (b *Broker) ListWorkers() []domain.WorkerObservation {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.catalog.SnapshotObservations()
}
