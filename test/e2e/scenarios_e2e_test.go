//go:build e2e
// +build e2e

package e2e_test

import (
	"net/http"
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// TestE2E_S1_HappyPath mirrors the broker's own S1 scenario, but driven
// entirely over HTTP against a containerized broker.
func TestE2E_S1_HappyPath(t *testing.T) {
	enqueue(t, "e2e-s1", "graph-s1", "v1", 3, 2)

	tasks := dequeue(t, "w-s1", "graph-s1", "v1")
	require.Len(t, tasks, 6)
	idx := jobIndices(tasks)
	sort.Ints(idx)
	require.Equal(t, []int{0, 1, 2, 3, 4, 5}, idx)

	for _, tk := range tasks {
		require.Equal(t, http.StatusOK, complete(t, tk.JobID, tk.Index))
	}

	second := dequeue(t, "w-s1", "graph-s1", "v1")
	require.Empty(t, second)

	for _, j := range listJobs(t) {
		assert.NotEqual(t, "e2e-s1", j["jobId"])
	}
}

// TestE2E_S2_Redelivery mirrors S2: a worker that only completes half its
// batch sees the rest come back after the quiet period elapses.
func TestE2E_S2_Redelivery(t *testing.T) {
	enqueue(t, "e2e-s2", "graph-s2", "v1", 2, 2)

	first := dequeue(t, "w-s2", "graph-s2", "v1")
	require.Len(t, first, 4)
	for _, tk := range first {
		if tk.Index == 0 || tk.Index == 2 {
			require.Equal(t, http.StatusOK, complete(t, tk.JobID, tk.Index))
		}
	}

	// REDELIVERY_QUIET_PERIOD is configured to 2s for this suite.
	time.Sleep(3 * time.Second)

	redelivered := dequeue(t, "w-s2", "graph-s2", "v1")
	idx := jobIndices(redelivered)
	sort.Ints(idx)
	require.Equal(t, []int{1, 3}, idx)

	for _, tk := range redelivered {
		require.Equal(t, http.StatusOK, complete(t, tk.JobID, tk.Index))
	}

	for _, j := range listJobs(t) {
		assert.NotEqual(t, "e2e-s2", j["jobId"])
	}
}

// TestE2E_S4_Affinity mirrors S4: a worker only ever receives tasks that
// match its own category, regardless of enqueue order.
func TestE2E_S4_Affinity(t *testing.T) {
	enqueue(t, "e2e-s4-a", "graph-s4-a", "v1", 1, 1)
	enqueue(t, "e2e-s4-b", "graph-s4-b", "v1", 1, 1)

	tasks := dequeue(t, "w-s4", "graph-s4-b", "v1")
	require.Len(t, tasks, 1)
	require.Equal(t, "e2e-s4-b", tasks[0].JobID)

	require.Equal(t, http.StatusOK, complete(t, "e2e-s4-b", 0))
	cleanup := dequeue(t, "w-s4-a", "graph-s4-a", "v1")
	for _, tk := range cleanup {
		complete(t, tk.JobID, tk.Index)
	}
}

// TestE2E_S5_OfflineToleration mirrors S5: with the suite's broker running
// work-offline, dequeue widens to a graph-only match, so a worker whose
// version doesn't match the job's still receives its tasks, while a worker
// polling an unrelated graph id still gets nothing.
func TestE2E_S5_OfflineToleration(t *testing.T) {
	enqueue(t, "e2e-s5", "graph-s5", "v1", 1, 1)

	wrongGraph := dequeue(t, "w-s5-wrong-graph", "graph-s5-other", "v1")
	require.Empty(t, wrongGraph)

	tasks := dequeue(t, "w-s5", "graph-s5", "v0-mismatch")
	require.Len(t, tasks, 1)
	require.Equal(t, "e2e-s5", tasks[0].JobID)

	require.Equal(t, http.StatusOK, complete(t, "e2e-s5", 0))
}
