package domain

import "time"

// Kind buckets calendar entries into the categories the planner ranks.
type Kind string

const (
	KindLecture    Kind = "lecture"
	KindAssignment Kind = "assignment"
	KindExam       Kind = "exam"
	KindOther      Kind = "other"
)

// DeadlineLike reports whether the due time for this kind comes from the
// event end (something to hand in by then) rather than its start.
func (k Kind) DeadlineLike() bool {
	return k == KindAssignment || k == KindExam
}

// HorizonBucket groups tasks by how soon they are due.
type HorizonBucket string

const (
	BucketToday     HorizonBucket = "today"
	BucketNext3Days HorizonBucket = "next3Days"
	BucketNextWeek  HorizonBucket = "nextWeek"
	BucketNextMonth HorizonBucket = "nextMonth"
	BucketBeyond    HorizonBucket = "beyond"
)

// EffortSource records where an effort estimate came from.
type EffortSource string

const (
	EffortFromOracle   EffortSource = "oracle"
	EffortFromFallback EffortSource = "fallback"
)

// OccurrenceKey uniquely identifies one concrete event instance within a feed.
type OccurrenceKey struct {
	SourceUID    string
	RecurrenceID string
}

// RawOccurrence is one concrete calendar event instance after recurrence
// expansion: a non-recurring event, or a single expanded instance of a
// recurring master with overrides already applied.
type RawOccurrence struct {
	SourceUID    string
	RecurrenceID string // empty for non-recurring events
	Summary      string
	Description  string
	Location     string
	Categories   []string
	StartUTC     time.Time
	EndUTC       time.Time
	Sequence     int
	Cancelled    bool
}

// Key returns the identity of the occurrence. A later Sequence for the same
// key supersedes an earlier one.
func (o RawOccurrence) Key() OccurrenceKey {
	return OccurrenceKey{SourceUID: o.SourceUID, RecurrenceID: o.RecurrenceID}
}

// CanonicalTask is the classified, enrichable view of a surviving occurrence.
// Values are never mutated in place: enrichment and scoring return copies
// bound to the same TaskID.
type CanonicalTask struct {
	TaskID     string    `json:"taskId"`
	CourseCode string    `json:"courseCode,omitempty"`
	Title      string    `json:"title"`
	Kind       Kind      `json:"kind"`
	DueAtUTC   time.Time `json:"dueAtUtc"`

	// Effort fields are zero until the oracle adapter has run; EffortSource
	// doubles as the "estimate present" marker.
	EstimatedEffortMinutes int          `json:"estimatedEffortMinutes"`
	EffortSource           EffortSource `json:"estimatedEffortSource,omitempty"`

	// Scoring fields are zero until the priority engine has run;
	// HorizonBucket doubles as the "scored" marker.
	PriorityScore float64       `json:"priorityScore"`
	HorizonBucket HorizonBucket `json:"horizonBucket,omitempty"`
}

// WithEffort returns a copy of the task carrying the given estimate.
func (t CanonicalTask) WithEffort(minutes int, source EffortSource) CanonicalTask {
	t.EstimatedEffortMinutes = minutes
	t.EffortSource = source
	return t
}

// Enriched reports whether an effort estimate has been attached.
func (t CanonicalTask) Enriched() bool {
	return t.EffortSource != ""
}
