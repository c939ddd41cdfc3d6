package broker

// JobRing is an insertion-ordered circular sequence of jobs with a rotating
// cursor. Servicing a job advances the cursor one step past it, so the next
// AdvanceTo naturally rotates past it first — the LRU-like fairness
// described in spec section 4.3: a job that was just served is not
// preferentially retried.
type JobRing struct {
	jobs   []*Job
	cursor int
}

// NewJobRing returns an empty ring.
func NewJobRing() *JobRing { return &JobRing{} }

// Len returns the number of jobs currently in the ring.
func (r *JobRing) Len() int { return len(r.jobs) }

// Insert appends a job at the tail.
func (r *JobRing) Insert(j *Job) {
	r.jobs = append(r.jobs, j)
}

// Remove deletes the given job from the ring in O(size), fixing the cursor
// so it still names a valid element (or stays in range on an empty ring).
func (r *JobRing) Remove(j *Job) {
	for i, cur := range r.jobs {
		if cur == j {
			r.jobs = append(r.jobs[:i], r.jobs[i+1:]...)
			if len(r.jobs) == 0 {
				r.cursor = 0
			} else if r.cursor > i || r.cursor >= len(r.jobs) {
				r.cursor = r.cursor % len(r.jobs)
			}
			return
		}
	}
}

// Advance moves the cursor one step forward unconditionally.
func (r *JobRing) Advance() {
	if len(r.jobs) == 0 {
		return
	}
	r.cursor = (r.cursor + 1) % len(r.jobs)
}

// AdvanceTo rotates the cursor forward up to Len steps looking for the
// first job satisfying pred. On a match, the cursor is left one step past
// the matched job, so a job just handed out is not the first one checked
// on the next call — it only comes up again after every other matching job
// has had a turn. If no job in a full loop satisfies pred, it returns nil
// and the cursor is restored to where it started.
func (r *JobRing) AdvanceTo(pred func(*Job) bool) *Job {
	n := len(r.jobs)
	if n == 0 {
		return nil
	}
	start := r.cursor
	for step := 0; step < n; step++ {
		idx := (start + step) % n
		if pred(r.jobs[idx]) {
			r.cursor = (idx + 1) % n
			return r.jobs[idx]
		}
	}
	r.cursor = start
	return nil
}

// Jobs returns the ring's current contents in ring order. Callers must not
// mutate the returned slice; it aliases internal storage.
func (r *JobRing) Jobs() []*Job { return r.jobs }

// Find returns the job with the given id, or nil if absent.
func (r *JobRing) Find(jobID string) *Job {
	for _, j := range r.jobs {
		if j.ID() == jobID {
			return j
		}
	}
	return nil
}
