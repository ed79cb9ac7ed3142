package usecase

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"StudyPlanner/internal/classify"
	"StudyPlanner/internal/domain"
	"StudyPlanner/internal/ports"
	"StudyPlanner/internal/priority"
)

// PipelineDeps wires all driven adapters into the orchestration pipeline.
type PipelineDeps struct {
	Source     ports.OccurrenceSource
	Classifier *classify.Classifier
	Enricher   *EffortEnricher
	Repository ports.SnapshotRepository
	Notifier   ports.Notifier
	Priority   priority.Config
	Logger     *slog.Logger
}

// Pipeline implements one full normalization+scoring run:
// fetch → normalize → classify → enrich → rank → snapshot → diff → notify.
type Pipeline struct {
	source     ports.OccurrenceSource
	classifier *classify.Classifier
	enricher   *EffortEnricher
	repository ports.SnapshotRepository
	notifier   ports.Notifier
	priority   priority.Config
	logger     *slog.Logger
}

// NewPipeline constructs the orchestration component.
func NewPipeline(deps PipelineDeps) *Pipeline {
	if deps.Classifier == nil {
		deps.Classifier = classify.NewClassifier(nil)
	}
	if deps.Priority == (priority.Config{}) {
		deps.Priority = priority.DefaultConfig()
	}
	if deps.Logger == nil {
		deps.Logger = slog.Default()
	}
	return &Pipeline{
		source:     deps.Source,
		classifier: deps.Classifier,
		enricher:   deps.Enricher,
		repository: deps.Repository,
		notifier:   deps.Notifier,
		priority:   deps.Priority,
		logger:     deps.Logger,
	}
}

// Run executes one run anchored at now and returns the persisted snapshot.
// Fetch failures and a feed with zero surviving occurrences are fatal;
// everything else degrades with logging.
func (p *Pipeline) Run(ctx context.Context, now time.Time) (*domain.Snapshot, error) {
	occs, parseErrs, err := p.source.FetchOccurrences(ctx, now)
	if err != nil {
		return nil, fmt.Errorf("fetch occurrences: %w", err)
	}
	for _, perr := range parseErrs {
		p.logger.Warn("occurrence skipped", "error", perr.Error())
	}
	if len(occs) == 0 {
		return nil, domain.ErrNoOccurrences
	}

	tasks := p.classifier.ClassifyAll(occs)

	if p.enricher != nil {
		tasks = p.enricher.Enrich(ctx, tasks)
	}

	ranked := priority.Rank(tasks, now, p.priority)

	snapshot := domain.Snapshot{
		ID:           uuid.NewString(),
		FetchedAtUTC: now.UTC(),
		Tasks:        ranked,
	}

	var previous *domain.Snapshot
	if p.repository != nil {
		previous, err = p.repository.Latest(ctx)
		if err != nil {
			p.logger.Warn("cannot load previous snapshot", "error", err)
			previous = nil
		}
		if err := p.repository.Save(ctx, snapshot); err != nil {
			return nil, fmt.Errorf("save snapshot: %w", err)
		}
	}

	p.logger.Info("run complete",
		"snapshot", snapshot.ID, "tasks", len(ranked), "skipped", len(parseErrs))

	if p.notifier != nil && previous != nil {
		diff := domain.DiffSnapshots(*previous, snapshot)
		if !diff.Empty() {
			if err := p.notifier.PublishDigest(ctx, formatDigest(diff)); err != nil {
				p.logger.Warn("cannot publish change digest", "error", err)
			}
		}
	}

	return &snapshot, nil
}

// formatDigest renders the "what changed since last run" message.
func formatDigest(diff domain.SnapshotDiff) string {
	var out string
	for _, t := range diff.Added {
		out += fmt.Sprintf("+ %s (%s, due %s)\n", t.Title, t.Kind, t.DueAtUTC.Format("Mon Jan 2 15:04"))
	}
	for _, t := range diff.Removed {
		out += fmt.Sprintf("- %s (%s)\n", t.Title, t.Kind)
	}
	for _, c := range diff.Changed {
		out += fmt.Sprintf("~ %s: due %s -> %s, effort %dm -> %dm\n",
			c.After.Title,
			c.Before.DueAtUTC.Format("Jan 2 15:04"), c.After.DueAtUTC.Format("Jan 2 15:04"),
			c.Before.EstimatedEffortMinutes, c.After.EstimatedEffortMinutes)
	}
	return out
}
