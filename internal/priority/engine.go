// Package priority computes a deterministic score and strict total order over
// a batch of canonical tasks. It performs no I/O and keeps no state: ranking
// the same batch against the same clock always yields the same output.
package priority

import (
	"sort"
	"time"

	"StudyPlanner/internal/domain"
)

// Config fixes the scoring constants for one run.
type Config struct {
	// DeadlineWindow is the span over which urgency decays from 1 to 0.
	DeadlineWindow time.Duration
	// EffortNormalizerMinutes is the effort at which effortFactor saturates.
	EffortNormalizerMinutes int
	UrgencyWeight           float64
	EffortWeight            float64
}

// DefaultConfig returns the standard weights: urgency dominates effort 70/30,
// urgency decays over two weeks, effort saturates at four hours.
func DefaultConfig() Config {
	return Config{
		DeadlineWindow:          14 * 24 * time.Hour,
		EffortNormalizerMinutes: 240,
		UrgencyWeight:           0.7,
		EffortWeight:            0.3,
	}
}

// Rank returns a new slice with PriorityScore and HorizonBucket populated,
// ordered by descending score, then ascending due time, then TaskID. The
// three-level comparison leaves no unresolved ties, so the order is a strict
// total order and reruns are byte-identical.
func Rank(tasks []domain.CanonicalTask, now time.Time, cfg Config) []domain.CanonicalTask {
	ranked := make([]domain.CanonicalTask, len(tasks))
	for i, t := range tasks {
		t.PriorityScore = Score(t, now, cfg)
		t.HorizonBucket = Bucket(t.DueAtUTC, now)
		ranked[i] = t
	}

	sort.Slice(ranked, func(i, j int) bool {
		a, b := ranked[i], ranked[j]
		if a.PriorityScore != b.PriorityScore {
			return a.PriorityScore > b.PriorityScore
		}
		if !a.DueAtUTC.Equal(b.DueAtUTC) {
			return a.DueAtUTC.Before(b.DueAtUTC)
		}
		return a.TaskID < b.TaskID
	})

	return ranked
}

// Score computes the priority of a single task. Overdue tasks are forced to
// the maximum score regardless of effort, so they always sort first.
func Score(t domain.CanonicalTask, now time.Time, cfg Config) float64 {
	if t.DueAtUTC.Before(now) {
		return 1.0
	}

	remaining := t.DueAtUTC.Sub(now)
	urgency := clamp(1-float64(remaining)/float64(cfg.DeadlineWindow), 0, 1)
	effortFactor := clamp(float64(t.EstimatedEffortMinutes)/float64(cfg.EffortNormalizerMinutes), 0, 1)

	return cfg.UrgencyWeight*urgency + cfg.EffortWeight*effortFactor
}

// Bucket assigns the horizon bucket from the time remaining until due.
// Overdue tasks land in "today".
func Bucket(due, now time.Time) domain.HorizonBucket {
	remaining := due.Sub(now)
	switch {
	case remaining < 24*time.Hour:
		return domain.BucketToday
	case remaining < 72*time.Hour:
		return domain.BucketNext3Days
	case remaining < 7*24*time.Hour:
		return domain.BucketNextWeek
	case remaining < 30*24*time.Hour:
		return domain.BucketNextMonth
	default:
		return domain.BucketBeyond
	}
}

func clamp(v, lo, hi float64) float64 {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
