package broker

import "github.com/routerfleet/regional-broker/internal/domain"

// ProvisionGate throttles LauncherPort requests per category so a burst of
// enqueues for the same (graph, version) doesn't stampede the launcher
// while a just-requested worker is still booting.
type ProvisionGate struct {
	lastRequestMillis map[domain.WorkerCategory]int64
}

// NewProvisionGate returns an empty gate.
func NewProvisionGate() *ProvisionGate {
	return &ProvisionGate{lastRequestMillis: make(map[domain.WorkerCategory]int64)}
}

// ShouldRequest reports whether a provisioning request for category should
// be made now. If the category has no entry, or its entry is older than
// windowMillis, it records nowMillis and returns true; otherwise it leaves
// the entry untouched and returns false.
func (g *ProvisionGate) ShouldRequest(cat domain.WorkerCategory, nowMillis int64, windowMillis int64) bool {
	last, ok := g.lastRequestMillis[cat]
	if ok && nowMillis-last < windowMillis {
		return false
	}
	g.lastRequestMillis[cat] = nowMillis
	return true
}

// Reset clears a category's throttle entry, allowing the very next enqueue
// to retry immediately. Used when the launcher call itself failed, per the
// LauncherUnavailable error semantics in spec section 7: the gate must not
// remember a request that never actually landed.
func (g *ProvisionGate) Reset(cat domain.WorkerCategory) {
	delete(g.lastRequestMillis, cat)
}
