package domain

import "time"

// Snapshot is one immutable, timestamped result of a full
// normalization+scoring run. Snapshots are append-only: a new run produces a
// new snapshot and never rewrites a prior one.
type Snapshot struct {
	ID           string          `json:"id"`
	FetchedAtUTC time.Time       `json:"fetchedAtUtc"`
	Tasks        []CanonicalTask `json:"tasks"`
}

// TaskChange pairs the previous and current version of a task whose
// schedule-relevant fields differ between two snapshots.
type TaskChange struct {
	Before CanonicalTask `json:"before"`
	After  CanonicalTask `json:"after"`
}

// SnapshotDiff describes what changed between two snapshots.
type SnapshotDiff struct {
	Added   []CanonicalTask `json:"added"`
	Removed []CanonicalTask `json:"removed"`
	Changed []TaskChange    `json:"changed"`
}

// Empty reports whether the diff carries no changes at all.
func (d SnapshotDiff) Empty() bool {
	return len(d.Added) == 0 && len(d.Removed) == 0 && len(d.Changed) == 0
}

// DiffSnapshots compares two snapshots by TaskID. A task counts as changed
// when its due time, effort estimate, or priority score moved; title or
// bucket churn alone is not reported.
func DiffSnapshots(prev, next Snapshot) SnapshotDiff {
	var diff SnapshotDiff

	prevByID := make(map[string]CanonicalTask, len(prev.Tasks))
	for _, t := range prev.Tasks {
		prevByID[t.TaskID] = t
	}

	seen := make(map[string]bool, len(next.Tasks))
	for _, t := range next.Tasks {
		seen[t.TaskID] = true
		old, ok := prevByID[t.TaskID]
		if !ok {
			diff.Added = append(diff.Added, t)
			continue
		}
		if !old.DueAtUTC.Equal(t.DueAtUTC) ||
			old.EstimatedEffortMinutes != t.EstimatedEffortMinutes ||
			old.PriorityScore != t.PriorityScore {
			diff.Changed = append(diff.Changed, TaskChange{Before: old, After: t})
		}
	}

	for _, t := range prev.Tasks {
		if !seen[t.TaskID] {
			diff.Removed = append(diff.Removed, t)
		}
	}

	return diff
}
