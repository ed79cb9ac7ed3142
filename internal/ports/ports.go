package ports

import (
	"context"
	"time"

	"StudyPlanner/internal/domain"
)

// OccurrenceSource pulls calendar feeds and normalizes them into deduplicated
// occurrences within the configured horizon. Per-event parse failures are
// returned alongside the surviving occurrences; a non-nil error means the raw
// data could not be obtained at all.
type OccurrenceSource interface {
	FetchOccurrences(ctx context.Context, now time.Time) ([]domain.RawOccurrence, []domain.ParseError, error)
}

// EffortQuery is the content the oracle estimates from. Tasks with identical
// queries are interchangeable as far as effort is concerned.
type EffortQuery struct {
	Kind       domain.Kind
	Title      string
	CourseCode string
}

// EffortOracle estimates how many minutes a task will take. Failed calls
// return an error carrying a domain.OracleErrorTag.
type EffortOracle interface {
	EstimateEffort(ctx context.Context, q EffortQuery) (int, error)
}

// SnapshotRepository persists immutable run snapshots, append-only.
type SnapshotRepository interface {
	Save(ctx context.Context, snap domain.Snapshot) error
	Latest(ctx context.Context) (*domain.Snapshot, error)
}

// Notifier surfaces the "what changed since last run" digest to the user.
type Notifier interface {
	PublishDigest(ctx context.Context, digest string) error
}

// Scheduler controls when pipeline runs execute.
type Scheduler interface {
	Start(ctx context.Context, job func(time.Time)) error
	Stop(ctx context.Context) error
}
