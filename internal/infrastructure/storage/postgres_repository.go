package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	sq "github.com/Masterminds/squirrel"

	"StudyPlanner/internal/domain"
	"StudyPlanner/internal/ports"
)

// PostgresRepository persists run snapshots into Postgres, append-only: a
// snapshot row plus one task row per position. Prior snapshots are never
// touched.
type PostgresRepository struct {
	db *sql.DB
}

var _ ports.SnapshotRepository = (*PostgresRepository)(nil)

// NewPostgresRepository wires a sql.DB implementation.
func NewPostgresRepository(db *sql.DB) *PostgresRepository {
	return &PostgresRepository{db: db}
}

// EnsureSchema creates the snapshot tables when they do not exist yet.
func (r *PostgresRepository) EnsureSchema(ctx context.Context) error {
	const schema = `
CREATE TABLE IF NOT EXISTS snapshots (
    id         TEXT PRIMARY KEY,
    fetched_at TIMESTAMPTZ NOT NULL
);
CREATE TABLE IF NOT EXISTS snapshot_tasks (
    snapshot_id    TEXT NOT NULL REFERENCES snapshots(id),
    position       INT NOT NULL,
    task_id        TEXT NOT NULL,
    course_code    TEXT NOT NULL DEFAULT '',
    title          TEXT NOT NULL,
    kind           TEXT NOT NULL,
    due_at         TIMESTAMPTZ NOT NULL,
    effort_minutes INT NOT NULL,
    effort_source  TEXT NOT NULL,
    priority_score DOUBLE PRECISION NOT NULL,
    horizon_bucket TEXT NOT NULL,
    PRIMARY KEY (snapshot_id, position)
);`
	if _, err := r.db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("ensure schema: %w", err)
	}
	return nil
}

// Save appends a new snapshot within a transaction.
func (r *PostgresRepository) Save(ctx context.Context, snap domain.Snapshot) error {
	tx, err := r.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin tx: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query, args, err := sq.Insert("snapshots").
		Columns("id", "fetched_at").
		Values(snap.ID, snap.FetchedAtUTC).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return fmt.Errorf("build snapshot insert: %w", err)
	}
	if _, err := tx.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}

	if len(snap.Tasks) > 0 {
		builder := sq.Insert("snapshot_tasks").
			Columns("snapshot_id", "position", "task_id", "course_code", "title",
				"kind", "due_at", "effort_minutes", "effort_source",
				"priority_score", "horizon_bucket").
			PlaceholderFormat(sq.Dollar)
		for i, t := range snap.Tasks {
			builder = builder.Values(snap.ID, i, t.TaskID, t.CourseCode, t.Title,
				string(t.Kind), t.DueAtUTC, t.EstimatedEffortMinutes,
				string(t.EffortSource), t.PriorityScore, string(t.HorizonBucket))
		}
		query, args, err = builder.ToSql()
		if err != nil {
			return fmt.Errorf("build task insert: %w", err)
		}
		if _, err := tx.ExecContext(ctx, query, args...); err != nil {
			return fmt.Errorf("insert tasks: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit snapshot: %w", err)
	}
	return nil
}

// Latest loads the most recent snapshot, or nil when none exists.
func (r *PostgresRepository) Latest(ctx context.Context) (*domain.Snapshot, error) {
	query, args, err := sq.Select("id", "fetched_at").
		From("snapshots").
		OrderBy("fetched_at DESC", "id DESC").
		Limit(1).
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build snapshot select: %w", err)
	}

	var snap domain.Snapshot
	var fetchedAt time.Time
	err = r.db.QueryRowContext(ctx, query, args...).Scan(&snap.ID, &fetchedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("query snapshot: %w", err)
	}
	snap.FetchedAtUTC = fetchedAt.UTC()

	query, args, err = sq.Select("task_id", "course_code", "title", "kind",
		"due_at", "effort_minutes", "effort_source", "priority_score", "horizon_bucket").
		From("snapshot_tasks").
		Where(sq.Eq{"snapshot_id": snap.ID}).
		OrderBy("position ASC").
		PlaceholderFormat(sq.Dollar).
		ToSql()
	if err != nil {
		return nil, fmt.Errorf("build task select: %w", err)
	}

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query tasks: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var t domain.CanonicalTask
		var kind, source, bucket string
		var dueAt time.Time
		if err := rows.Scan(&t.TaskID, &t.CourseCode, &t.Title, &kind,
			&dueAt, &t.EstimatedEffortMinutes, &source, &t.PriorityScore, &bucket); err != nil {
			return nil, fmt.Errorf("scan task: %w", err)
		}
		t.Kind = domain.Kind(kind)
		t.DueAtUTC = dueAt.UTC()
		t.EffortSource = domain.EffortSource(source)
		t.HorizonBucket = domain.HorizonBucket(bucket)
		snap.Tasks = append(snap.Tasks, t)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate tasks: %w", err)
	}

	return &snap, nil
}
