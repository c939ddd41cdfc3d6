package broker

import (
	"testing"

	"github.com/routerfleet/regional-broker/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestTemplate(jobID string, width, height int) domain.TemplateTask {
	return domain.TemplateTask{
		JobID:    jobID,
		Category: domain.NewWorkerCategory("G", "V"),
		Width:    width, Height: height,
		MinLon: -1, MinLat: -1, MaxLon: 1, MaxLat: 1,
	}
}

func TestJob_TakeSomeAdvancesAndSkipsCompleted(t *testing.T) {
	j := NewJob(newTestTemplate("j1", 3, 2)) // 6 tasks
	tasks := j.TakeSome(8, 1000)
	require.Len(t, tasks, 6)
	for i, tk := range tasks {
		assert.Equal(t, i, tk.Index)
	}
	assert.False(t, j.HasDeliverable())

	// second poll in the same pass returns nothing
	assert.Empty(t, j.TakeSome(8, 1100))
}

func TestJob_TakeSomeZeroDoesNotAdvance(t *testing.T) {
	j := NewJob(newTestTemplate("j1", 2, 2))
	assert.Empty(t, j.TakeSome(0, 1000))
	assert.Equal(t, 0, j.nextToDeliver)
}

func TestJob_MarkCompleteIdempotent(t *testing.T) {
	j := NewJob(newTestTemplate("j1", 2, 2))
	assert.True(t, j.MarkComplete(0))
	assert.Equal(t, 1, j.NCompleted())
	assert.False(t, j.MarkComplete(0), "second mark of the same index must return false")
	assert.Equal(t, 1, j.NCompleted(), "counter must not change on the repeated call")
}

func TestJob_MarkCompleteOutOfRange(t *testing.T) {
	j := NewJob(newTestTemplate("j1", 2, 2))
	assert.False(t, j.MarkComplete(-1))
	assert.False(t, j.MarkComplete(4))
}

func TestJob_SingleTaskCompletesInOneCall(t *testing.T) {
	j := NewJob(newTestTemplate("j1", 1, 1))
	assert.Equal(t, 1, j.NTasksTotal())
	assert.True(t, j.MarkComplete(0))
	assert.True(t, j.IsComplete())
}

func TestJob_RedeliverGuards(t *testing.T) {
	j := NewJob(newTestTemplate("j1", 2, 2)) // 4 tasks
	// not exhausted yet: nextToDeliver == 0
	assert.Equal(t, 0, j.Redeliver(10_000_000, 2, 120_000))

	tasks := j.TakeSome(8, 0)
	require.Len(t, tasks, 4)
	assert.True(t, j.MarkComplete(0))
	assert.True(t, j.MarkComplete(2))

	// quiet period not yet elapsed
	assert.Equal(t, 0, j.Redeliver(1000, 2, 120_000))

	// quiet period elapsed: resend the 2 still-incomplete indices
	n := j.Redeliver(121_000, 2, 120_000)
	assert.Equal(t, 2, n)
	assert.Equal(t, 1, j.DeliveryPass())

	resent := j.TakeSome(8, 121_000)
	require.Len(t, resent, 2)
	idx := []int{resent[0].Index, resent[1].Index}
	assert.ElementsMatch(t, []int{1, 3}, idx, "only uncompleted indices are resent")
}

func TestJob_RedeliverCapsAtMaxPasses(t *testing.T) {
	j := NewJob(newTestTemplate("j1", 2, 2))
	j.TakeSome(8, 0)
	// nobody completes anything; two redelivery passes then it starves
	assert.Equal(t, 4, j.Redeliver(200_000, 2, 120_000))
	j.TakeSome(8, 200_000)
	assert.Equal(t, 4, j.Redeliver(400_000, 2, 120_000))
	j.TakeSome(8, 400_000)
	assert.Equal(t, 2, j.DeliveryPass())

	// pass budget spent: no further redelivery even though quiet period elapsed
	assert.Equal(t, 0, j.Redeliver(600_000, 2, 120_000))
	assert.Equal(t, 2, j.DeliveryPass())
}

func TestJob_VerifyCompleteDoesNotPanicOnInconsistency(t *testing.T) {
	j := NewJob(newTestTemplate("j1", 2, 2))
	// Force an inconsistent state directly to exercise the defensive check;
	// VerifyComplete must only log, never panic.
	j.nCompleted = j.nTasksTotal
	assert.NotPanics(t, func() { j.VerifyComplete() })
}
