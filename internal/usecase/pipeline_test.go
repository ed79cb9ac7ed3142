package usecase

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"StudyPlanner/internal/domain"
	"StudyPlanner/internal/infrastructure/storage"
	"StudyPlanner/internal/ports"
)

type fakeSource struct {
	occs      []domain.RawOccurrence
	parseErrs []domain.ParseError
	err       error
}

func (f *fakeSource) FetchOccurrences(_ context.Context, _ time.Time) ([]domain.RawOccurrence, []domain.ParseError, error) {
	return f.occs, f.parseErrs, f.err
}

type fakeNotifier struct {
	digests []string
}

func (f *fakeNotifier) PublishDigest(_ context.Context, digest string) error {
	f.digests = append(f.digests, digest)
	return nil
}

func occurrence(uid, summary string, start time.Time, dur time.Duration) domain.RawOccurrence {
	return domain.RawOccurrence{
		SourceUID:    uid,
		RecurrenceID: start.UTC().Format("20060102T150405Z"),
		Summary:      summary,
		StartUTC:     start.UTC(),
		EndUTC:       start.UTC().Add(dur),
	}
}

func TestPipelineRunSavesRankedSnapshot(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	source := &fakeSource{occs: []domain.RawOccurrence{
		occurrence("uid-lec", "CS-E4710 Lecture 5", now.Add(20*24*time.Hour), time.Hour),
		occurrence("uid-hw", "CS-E4710 Assignment 2 deadline", now.Add(48*time.Hour), 0),
		occurrence("uid-exam", "MS-A0111 Exam", now.Add(5*24*time.Hour), 3*time.Hour),
	}}

	oracle := &fakeOracle{respond: func(_ context.Context, _ ports.EffortQuery) (int, error) {
		return 0, &domain.OracleError{Tag: domain.OracleUnavailable}
	}}
	enricher, err := NewEffortEnricher(oracle, quickConfig(), nil)
	require.NoError(t, err)

	repo := storage.NewMemoryRepository()
	pipeline := NewPipeline(PipelineDeps{
		Source:     source,
		Enricher:   enricher,
		Repository: repo,
	})

	snapshot, err := pipeline.Run(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, snapshot.Tasks, 3)
	assert.Equal(t, now, snapshot.FetchedAtUTC)

	// Scores come out in strict descending order and every task is enriched.
	for i, task := range snapshot.Tasks {
		assert.True(t, task.Enriched(), "task %s not enriched", task.TaskID)
		assert.NotEmpty(t, task.HorizonBucket)
		if i > 0 {
			assert.GreaterOrEqual(t, snapshot.Tasks[i-1].PriorityScore, task.PriorityScore)
		}
	}
	// The near-term assignment outranks the far-off lecture.
	assert.Equal(t, "CS-E4710 Assignment 2 deadline", snapshot.Tasks[0].Title)

	saved, err := repo.Latest(context.Background())
	require.NoError(t, err)
	require.NotNil(t, saved)
	assert.Equal(t, snapshot.ID, saved.ID)
}

func TestPipelineRunZeroOccurrencesFatal(t *testing.T) {
	t.Parallel()

	pipeline := NewPipeline(PipelineDeps{
		Source:     &fakeSource{},
		Repository: storage.NewMemoryRepository(),
	})

	_, err := pipeline.Run(context.Background(), time.Now())
	assert.ErrorIs(t, err, domain.ErrNoOccurrences)
}

func TestPipelineRunFetchErrorFatal(t *testing.T) {
	t.Parallel()

	fetchErr := &domain.FetchError{Kind: domain.FetchAuthExpired, Feed: "mycourses"}
	pipeline := NewPipeline(PipelineDeps{
		Source:     &fakeSource{err: fetchErr},
		Repository: storage.NewMemoryRepository(),
	})

	_, err := pipeline.Run(context.Background(), time.Now())
	require.Error(t, err)

	var wrapped *domain.FetchError
	require.True(t, errors.As(err, &wrapped))
	assert.Equal(t, domain.FetchAuthExpired, wrapped.Kind)
}

func TestPipelineRunPublishesDiffDigest(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	due := now.Add(72 * time.Hour)
	source := &fakeSource{occs: []domain.RawOccurrence{
		occurrence("uid-hw", "CS-E4710 Assignment 2 deadline", due, 0),
	}}

	repo := storage.NewMemoryRepository()
	notifier := &fakeNotifier{}
	pipeline := NewPipeline(PipelineDeps{
		Source:     source,
		Repository: repo,
		Notifier:   notifier,
	})

	_, err := pipeline.Run(context.Background(), now)
	require.NoError(t, err)
	assert.Empty(t, notifier.digests, "first run has nothing to diff against")

	// The assignment moves a day later; the next run must announce it.
	source.occs = []domain.RawOccurrence{
		occurrence("uid-hw", "CS-E4710 Assignment 2 deadline", due.Add(24*time.Hour), 0),
	}

	_, err = pipeline.Run(context.Background(), now)
	require.NoError(t, err)
	require.Len(t, notifier.digests, 1)
	assert.Contains(t, notifier.digests[0], "CS-E4710 Assignment 2 deadline")
}

func TestPipelineRunUnchangedFeedStaysQuiet(t *testing.T) {
	t.Parallel()

	now := time.Date(2026, time.March, 2, 9, 0, 0, 0, time.UTC)
	source := &fakeSource{occs: []domain.RawOccurrence{
		occurrence("uid-hw", "CS-E4710 Assignment 2 deadline", now.Add(72*time.Hour), 0),
	}}

	notifier := &fakeNotifier{}
	pipeline := NewPipeline(PipelineDeps{
		Source:     source,
		Repository: storage.NewMemoryRepository(),
		Notifier:   notifier,
	})

	// Same anchor time, same feed content: scores are identical, so the
	// second run produces an empty diff.
	_, err := pipeline.Run(context.Background(), now)
	require.NoError(t, err)
	_, err = pipeline.Run(context.Background(), now)
	require.NoError(t, err)

	assert.Empty(t, notifier.digests)
}
