package broker

import "github.com/routerfleet/regional-broker/internal/domain"

// WorkerCatalog tracks the last observation of every live worker, plus two
// indices kept in lockstep with the observation map so that affinity checks
// and provisioning decisions do not have to scan every worker. Callers
// (Broker) are responsible for serializing access; WorkerCatalog itself does
// no locking.
type WorkerCatalog struct {
	observations map[string]domain.WorkerObservation
	byCategory   map[domain.WorkerCategory]map[string]struct{}
	byGraph      map[string]map[string]struct{}
}

// NewWorkerCatalog returns an empty catalog.
func NewWorkerCatalog() *WorkerCatalog {
	return &WorkerCatalog{
		observations: make(map[string]domain.WorkerObservation),
		byCategory:   make(map[domain.WorkerCategory]map[string]struct{}),
		byGraph:      make(map[string]map[string]struct{}),
	}
}

// Record inserts or refreshes a worker observation. If the worker was
// already known under a different category, it is detached from the old
// category/graph indices before being attached to the new ones, so a worker
// that reconnects with a different handshake never leaves a dangling entry
// behind (testable property 6).
func (c *WorkerCatalog) Record(obs domain.WorkerObservation) {
	if prev, ok := c.observations[obs.WorkerID]; ok && !prev.Category.Equal(obs.Category) {
		c.detach(obs.WorkerID, prev.Category)
	}
	c.observations[obs.WorkerID] = obs
	c.attach(obs.WorkerID, obs.Category)
}

func (c *WorkerCatalog) attach(workerID string, cat domain.WorkerCategory) {
	if c.byCategory[cat] == nil {
		c.byCategory[cat] = make(map[string]struct{})
	}
	c.byCategory[cat][workerID] = struct{}{}
	if c.byGraph[cat.GraphID] == nil {
		c.byGraph[cat.GraphID] = make(map[string]struct{})
	}
	c.byGraph[cat.GraphID][workerID] = struct{}{}
}

func (c *WorkerCatalog) detach(workerID string, cat domain.WorkerCategory) {
	if set, ok := c.byCategory[cat]; ok {
		delete(set, workerID)
		if len(set) == 0 {
			delete(c.byCategory, cat)
		}
	}
	if set, ok := c.byGraph[cat.GraphID]; ok {
		delete(set, workerID)
		if len(set) == 0 {
			delete(c.byGraph, cat.GraphID)
		}
	}
}

// PurgeDead removes every observation whose LastSeenMillis is older than
// ttl relative to nowMillis, from the observation map and both indices.
func (c *WorkerCatalog) PurgeDead(nowMillis int64, ttlMillis int64) {
	cutoff := nowMillis - ttlMillis
	for id, obs := range c.observations {
		if obs.LastSeenMillis < cutoff {
			c.detach(id, obs.Category)
			delete(c.observations, id)
		}
	}
}

// HasWorker reports whether a worker matching category is known. When
// allowAnyOffline is true (offline mode), a graph match is sufficient even
// if the version differs.
func (c *WorkerCatalog) HasWorker(cat domain.WorkerCategory, allowAnyOffline bool) bool {
	if allowAnyOffline {
		return len(c.byGraph[cat.GraphID]) > 0
	}
	return len(c.byCategory[cat]) > 0
}

// Size returns the number of distinct workers currently tracked.
func (c *WorkerCatalog) Size() int { return len(c.observations) }

// SnapshotObservations returns a defensive copy suitable for API exposure.
func (c *WorkerCatalog) SnapshotObservations() []domain.WorkerObservation {
	out := make([]domain.WorkerObservation, 0, len(c.observations))
	for _, obs := range c.observations {
		out = append(out, obs)
	}
	return out
}
