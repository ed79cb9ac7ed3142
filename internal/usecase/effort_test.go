package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudyPlanner/internal/domain"
	"StudyPlanner/internal/ports"
)

type fakeOracle struct {
	mu      sync.Mutex
	calls   int
	respond func(ctx context.Context, q ports.EffortQuery) (int, error)
}

func (f *fakeOracle) EstimateEffort(ctx context.Context, q ports.EffortQuery) (int, error) {
	f.mu.Lock()
	f.calls++
	f.mu.Unlock()
	return f.respond(ctx, q)
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.calls
}

func effortTask(id, title string, kind domain.Kind) domain.CanonicalTask {
	return domain.CanonicalTask{
		TaskID:   id,
		Title:    title,
		Kind:     kind,
		DueAtUTC: time.Date(2026, time.March, 10, 12, 0, 0, 0, time.UTC),
	}
}

func quickConfig() EffortConfig {
	return EffortConfig{
		CallTimeout: time.Second,
		RunDeadline: 2 * time.Second,
		Workers:     2,
		CacheSize:   64,
	}
}

func TestEnrichAttachesOracleEstimates(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{respond: func(_ context.Context, _ ports.EffortQuery) (int, error) {
		return 90, nil
	}}
	enricher, err := NewEffortEnricher(oracle, quickConfig(), nil)
	require.NoError(t, err)

	out := enricher.Enrich(context.Background(), []domain.CanonicalTask{
		effortTask("a", "Assignment 1", domain.KindAssignment),
	})

	require.Len(t, out, 1)
	assert.Equal(t, 90, out[0].EstimatedEffortMinutes)
	assert.Equal(t, domain.EffortFromOracle, out[0].EffortSource)
}

func TestEnrichCacheSharedAcrossRuns(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{respond: func(_ context.Context, _ ports.EffortQuery) (int, error) {
		return 45, nil
	}}
	enricher, err := NewEffortEnricher(oracle, quickConfig(), nil)
	require.NoError(t, err)

	batch := []domain.CanonicalTask{effortTask("a", "Assignment 1", domain.KindAssignment)}

	first := enricher.Enrich(context.Background(), batch)
	second := enricher.Enrich(context.Background(), batch)

	assert.Equal(t, 1, oracle.callCount(), "identical content must not query the oracle twice")
	assert.Equal(t, first[0].EstimatedEffortMinutes, second[0].EstimatedEffortMinutes)
	assert.Equal(t, domain.EffortFromOracle, second[0].EffortSource)
}

func TestEnrichDeduplicatesWithinBatch(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{respond: func(_ context.Context, _ ports.EffortQuery) (int, error) {
		return 75, nil
	}}
	enricher, err := NewEffortEnricher(oracle, quickConfig(), nil)
	require.NoError(t, err)

	// Five expanded instances of the same recurring lecture: identical kind,
	// title, and course code, distinct task IDs.
	var batch []domain.CanonicalTask
	for _, id := range []string{"a", "b", "c", "d", "e"} {
		batch = append(batch, effortTask(id, "CS-E4710 Lecture", domain.KindLecture))
	}

	out := enricher.Enrich(context.Background(), batch)

	assert.Equal(t, 1, oracle.callCount(), "identical content in one batch must share a single oracle call")
	require.Len(t, out, len(batch))
	for _, task := range out {
		assert.Equal(t, 75, task.EstimatedEffortMinutes)
		assert.Equal(t, domain.EffortFromOracle, task.EffortSource)
	}
}

func TestEnrichMedianFallback(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{respond: func(_ context.Context, q ports.EffortQuery) (int, error) {
		switch q.Title {
		case "Assignment 1":
			return 60, nil
		case "Assignment 2":
			return 100, nil
		default:
			return 0, &domain.OracleError{Tag: domain.OracleUnavailable}
		}
	}}
	enricher, err := NewEffortEnricher(oracle, quickConfig(), nil)
	require.NoError(t, err)

	out := enricher.Enrich(context.Background(), []domain.CanonicalTask{
		effortTask("a", "Assignment 1", domain.KindAssignment),
		effortTask("b", "Assignment 2", domain.KindAssignment),
		effortTask("c", "Assignment 3", domain.KindAssignment),
	})

	byID := map[string]domain.CanonicalTask{}
	for _, task := range out {
		byID[task.TaskID] = task
	}

	// Failed task gets the batch median for its kind.
	assert.Equal(t, 60, byID["c"].EstimatedEffortMinutes)
	assert.Equal(t, domain.EffortFromFallback, byID["c"].EffortSource)
	assert.Equal(t, domain.EffortFromOracle, byID["a"].EffortSource)
}

func TestEnrichPerKindDefaults(t *testing.T) {
	t.Parallel()

	oracle := &fakeOracle{respond: func(_ context.Context, _ ports.EffortQuery) (int, error) {
		return 0, &domain.OracleError{Tag: domain.OracleUnavailable}
	}}
	enricher, err := NewEffortEnricher(oracle, quickConfig(), nil)
	require.NoError(t, err)

	out := enricher.Enrich(context.Background(), []domain.CanonicalTask{
		effortTask("l", "Lecture", domain.KindLecture),
		effortTask("a", "Assignment", domain.KindAssignment),
		effortTask("e", "Exam", domain.KindExam),
		effortTask("o", "Something else", domain.KindOther),
	})

	want := map[string]int{"l": 0, "a": 120, "e": 240, "o": 30}
	for _, task := range out {
		assert.Equal(t, want[task.TaskID], task.EstimatedEffortMinutes, "task %s", task.TaskID)
		assert.Equal(t, domain.EffortFromFallback, task.EffortSource)
	}
}

func TestEnrichNeverBlocksOnSilentOracle(t *testing.T) {
	t.Parallel()

	// The oracle never answers; it only returns once its call context dies.
	oracle := &fakeOracle{respond: func(ctx context.Context, _ ports.EffortQuery) (int, error) {
		<-ctx.Done()
		return 0, &domain.OracleError{Tag: domain.OracleTimeout, Err: ctx.Err()}
	}}

	cfg := EffortConfig{
		CallTimeout: 10 * time.Second,
		RunDeadline: 200 * time.Millisecond,
		Workers:     2,
		CacheSize:   64,
	}
	enricher, err := NewEffortEnricher(oracle, cfg, nil)
	require.NoError(t, err)

	var batch []domain.CanonicalTask
	for _, id := range []string{"a", "b", "c", "d", "e", "f"} {
		batch = append(batch, effortTask(id, "Assignment "+id, domain.KindAssignment))
	}

	started := time.Now()
	out := enricher.Enrich(context.Background(), batch)
	elapsed := time.Since(started)

	assert.Less(t, elapsed, 3*time.Second, "run must complete shortly after the run deadline")
	require.Len(t, out, len(batch))
	for _, task := range out {
		assert.Equal(t, domain.EffortFromFallback, task.EffortSource)
		assert.Equal(t, 120, task.EstimatedEffortMinutes)
	}
}
