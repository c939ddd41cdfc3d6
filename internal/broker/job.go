package broker

import (
	"log/slog"

	"github.com/routerfleet/regional-broker/internal/domain"
	"github.com/routerfleet/regional-broker/internal/geo"
)

// Job holds a template task, its completion bitset, and the cursors that
// drive one or more delivery passes over its task space. A Job never
// shrinks: once a bit is set in completed it is never cleared.
type Job struct {
	template domain.TemplateTask

	jobID         string
	category      domain.WorkerCategory
	nTasksTotal   int
	completed     bitset
	nextToDeliver int
	nCompleted    int

	lastDeliveryMillis int64
	deliveryPass       int
}

// NewJob constructs a Job from a template, allocating a zeroed completion
// bitset sized width*height and resetting all cursors.
func NewJob(template domain.TemplateTask) *Job {
	n := template.Width * template.Height
	return &Job{
		template:    template,
		jobID:       template.JobID,
		category:    template.Category,
		nTasksTotal: n,
		completed:   newBitset(n),
	}
}

// ID returns the job's identifier.
func (j *Job) ID() string { return j.jobID }

// Category returns the job's worker category.
func (j *Job) Category() domain.WorkerCategory { return j.category }

// NTasksTotal returns the total number of tasks the job's grid expands to.
func (j *Job) NTasksTotal() int { return j.nTasksTotal }

// NCompleted returns the number of tasks marked complete so far.
func (j *Job) NCompleted() int { return j.nCompleted }

// DeliveryPass returns the number of redelivery sweeps started so far.
func (j *Job) DeliveryPass() int { return j.deliveryPass }

// IsComplete reports whether every task index has been marked complete.
func (j *Job) IsComplete() bool { return j.nCompleted >= j.nTasksTotal }

// HasDeliverable reports whether the job still has tasks left to hand out
// in the current delivery pass.
func (j *Job) HasDeliverable() bool {
	return j.nCompleted < j.nTasksTotal && j.nextToDeliver < j.nTasksTotal
}

// synthesize builds the Task for grid index i.
func (j *Job) synthesize(i int) domain.Task {
	t := j.template
	x := i % t.Width
	y := i / t.Width
	lat, lon := geo.CellCenter(x, y, t.Width, t.Height, t.MinLon, t.MinLat, t.MaxLon, t.MaxLat)
	return domain.Task{
		JobID:    j.jobID,
		Index:    i,
		X:        x,
		Y:        y,
		Lat:      lat,
		Lon:      lon,
		Category: j.category,
		Payload:  t.Payload,
	}
}

// TakeSome emits up to max freshly synthesized tasks starting at
// nextToDeliver, skipping indices already marked complete. nextToDeliver
// advances past every index it considers, delivered or not, so a worker
// never sees the same index twice within one pass. Calling TakeSome(0)
// returns nothing and leaves the cursor untouched.
func (j *Job) TakeSome(max int, nowMillis int64) []domain.Task {
	if max <= 0 {
		return nil
	}
	out := make([]domain.Task, 0, max)
	for j.nextToDeliver < j.nTasksTotal && len(out) < max {
		i := j.nextToDeliver
		j.nextToDeliver++
		if j.completed.get(i) {
			continue
		}
		out = append(out, j.synthesize(i))
	}
	if len(out) > 0 {
		j.lastDeliveryMillis = nowMillis
	}
	return out
}

// MarkComplete sets the bit for taskIndex and returns true iff it
// transitioned from unset to set. Out-of-range or already-set indices
// return false and leave nCompleted untouched, making a repeated call
// idempotent at the level of its boolean result.
func (j *Job) MarkComplete(taskIndex int) bool {
	if taskIndex < 0 || taskIndex >= j.nTasksTotal {
		return false
	}
	if j.completed.get(taskIndex) {
		return false
	}
	j.completed.set(taskIndex)
	j.nCompleted++
	return true
}

// Redeliver starts a new delivery pass over any tasks still undelivered or
// uncompleted, when all of: the job isn't complete, the current pass is
// exhausted, the pass budget isn't spent, and the quiet period has elapsed
// since the last delivery. Returns the number of tasks that will be resent,
// or 0 if any guard fails.
func (j *Job) Redeliver(nowMillis int64, maxPasses int, quietPeriodMillis int64) int {
	if j.IsComplete() {
		return 0
	}
	if j.nextToDeliver != j.nTasksTotal {
		return 0
	}
	if j.deliveryPass >= maxPasses {
		return 0
	}
	if nowMillis-j.lastDeliveryMillis < quietPeriodMillis {
		return 0
	}
	j.deliveryPass++
	j.nextToDeliver = 0
	return j.nTasksTotal - j.nCompleted
}

// VerifyComplete is a defensive consistency check run when a job is
// retired from the ring: it asserts popcount(completed) == nTasksTotal and
// logs (never panics) if the invariant somehow doesn't hold.
func (j *Job) VerifyComplete() {
	if got := j.completed.popcount(); got != j.nTasksTotal {
		slog.Error("job retired with inconsistent completion bitset",
			slog.String("job_id", j.jobID),
			slog.Int("popcount", got),
			slog.Int("n_tasks_total", j.nTasksTotal))
	}
}

// Status renders the stable JobStatus introspection shape for this job.
func (j *Job) Status() domain.JobStatus {
	return domain.JobStatus{
		JobID:        j.jobID,
		GraphID:      j.category.GraphID,
		Version:      j.category.Version,
		Total:        j.nTasksTotal,
		Complete:     j.nCompleted,
		Incomplete:   j.nTasksTotal - j.nCompleted,
		DeliveryPass: j.deliveryPass,
	}
}
