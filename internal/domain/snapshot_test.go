package domain

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func snapTask(id string, due time.Time, effort int, score float64) CanonicalTask {
	return CanonicalTask{
		TaskID:                 id,
		Title:                  "task " + id,
		Kind:                   KindAssignment,
		DueAtUTC:               due,
		EstimatedEffortMinutes: effort,
		PriorityScore:          score,
	}
}

func TestDiffSnapshots(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)

	prev := Snapshot{Tasks: []CanonicalTask{
		snapTask("keep", due, 60, 0.5),
		snapTask("moved", due, 60, 0.5),
		snapTask("gone", due, 60, 0.5),
	}}
	next := Snapshot{Tasks: []CanonicalTask{
		snapTask("keep", due, 60, 0.5),
		snapTask("moved", due.Add(24*time.Hour), 60, 0.4),
		snapTask("new", due, 30, 0.2),
	}}

	diff := DiffSnapshots(prev, next)

	require.Len(t, diff.Added, 1)
	assert.Equal(t, "new", diff.Added[0].TaskID)

	require.Len(t, diff.Removed, 1)
	assert.Equal(t, "gone", diff.Removed[0].TaskID)

	require.Len(t, diff.Changed, 1)
	assert.Equal(t, "moved", diff.Changed[0].After.TaskID)
	assert.Equal(t, due, diff.Changed[0].Before.DueAtUTC)
	assert.False(t, diff.Empty())
}

func TestDiffIgnoresOrderChurn(t *testing.T) {
	t.Parallel()

	due := time.Date(2026, time.March, 9, 12, 0, 0, 0, time.UTC)
	a := snapTask("a", due, 60, 0.5)
	b := snapTask("b", due, 30, 0.4)

	diff := DiffSnapshots(
		Snapshot{Tasks: []CanonicalTask{a, b}},
		Snapshot{Tasks: []CanonicalTask{b, a}},
	)

	assert.True(t, diff.Empty())
}

func TestWithEffortCopies(t *testing.T) {
	t.Parallel()

	orig := snapTask("a", time.Now().UTC(), 0, 0)
	enriched := orig.WithEffort(90, EffortFromOracle)

	assert.Equal(t, 90, enriched.EstimatedEffortMinutes)
	assert.True(t, enriched.Enriched())
	assert.Zero(t, orig.EstimatedEffortMinutes)
	assert.False(t, orig.Enriched())
}
