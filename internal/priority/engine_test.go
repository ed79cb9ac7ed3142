package priority

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudyPlanner/internal/domain"
)

func task(id string, due time.Time, effort int) domain.CanonicalTask {
	return domain.CanonicalTask{
		TaskID:                 id,
		Title:                  "task " + id,
		Kind:                   domain.KindAssignment,
		DueAtUTC:               due,
		EstimatedEffortMinutes: effort,
		EffortSource:           domain.EffortFromOracle,
	}
}

func TestRankScenario(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	a := task("aaaa", now.Add(2*time.Hour), 60)
	b := task("bbbb", now.Add(20*24*time.Hour), 300)

	ranked := Rank([]domain.CanonicalTask{b, a}, now, DefaultConfig())

	require.Len(t, ranked, 2)
	assert.Equal(t, "aaaa", ranked[0].TaskID)
	assert.Equal(t, "bbbb", ranked[1].TaskID)

	// A: urgency = 1 - 2h/14d ~= 0.994, effort 60/240 = 0.25.
	assert.InDelta(t, 0.775, ranked[0].PriorityScore, 0.01)
	// B: urgency clamps to 0, effort clamps to 1.
	assert.InDelta(t, 0.3, ranked[1].PriorityScore, 1e-9)
}

func TestOverdueDominance(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	overdue := task("late", now.Add(-time.Minute), 0)
	urgent := task("soon", now.Add(time.Minute), 240)

	ranked := Rank([]domain.CanonicalTask{urgent, overdue}, now, DefaultConfig())

	assert.Equal(t, "late", ranked[0].TaskID)
	assert.Equal(t, 1.0, ranked[0].PriorityScore)
	assert.Less(t, ranked[1].PriorityScore, 1.0)
}

func TestStrictTotalOrder(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	due := now.Add(48 * time.Hour)

	// Identical score and due time: TaskID must break the tie.
	batch := []domain.CanonicalTask{
		task("cccc", due, 60),
		task("aaaa", due, 60),
		task("bbbb", due, 60),
	}

	ranked := Rank(batch, now, DefaultConfig())
	require.Len(t, ranked, 3)
	assert.Equal(t, "aaaa", ranked[0].TaskID)
	assert.Equal(t, "bbbb", ranked[1].TaskID)
	assert.Equal(t, "cccc", ranked[2].TaskID)

	// No two adjacent tasks compare equal under (score, due, id).
	for i := 1; i < len(ranked); i++ {
		p, q := ranked[i-1], ranked[i]
		equal := p.PriorityScore == q.PriorityScore &&
			p.DueAtUTC.Equal(q.DueAtUTC) &&
			p.TaskID == q.TaskID
		assert.False(t, equal, "tasks %d and %d compare equal", i-1, i)
	}
}

func TestRankDoesNotMutateInput(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)
	batch := []domain.CanonicalTask{task("aaaa", now.Add(time.Hour), 60)}

	_ = Rank(batch, now, DefaultConfig())

	assert.Zero(t, batch[0].PriorityScore)
	assert.Empty(t, batch[0].HorizonBucket)
}

func TestBuckets(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 12, 0, 0, 0, time.UTC)

	cases := []struct {
		name      string
		remaining time.Duration
		want      domain.HorizonBucket
	}{
		{"overdue lands in today", -time.Hour, domain.BucketToday},
		{"under 24h", 23 * time.Hour, domain.BucketToday},
		{"under 72h", 48 * time.Hour, domain.BucketNext3Days},
		{"under a week", 5 * 24 * time.Hour, domain.BucketNextWeek},
		{"under a month", 20 * 24 * time.Hour, domain.BucketNextMonth},
		{"beyond", 45 * 24 * time.Hour, domain.BucketBeyond},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			assert.Equal(t, tc.want, Bucket(now.Add(tc.remaining), now))
		})
	}
}
