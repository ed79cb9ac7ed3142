package classify

import (
	"crypto/sha256"
	"encoding/hex"
	"regexp"
	"strings"

	"StudyPlanner/internal/domain"
)

// courseCodePattern matches the leading course token university calendars put
// in summaries, e.g. "CS-E4710 Lecture 3" or "MS-A0111 Exercise round 2".
var courseCodePattern = regexp.MustCompile(`^([A-Z]{2,6}-?[A-Z]?[0-9]{3,5})\b`)

// Classifier maps surviving occurrences to canonical tasks. It is a pure
// function of its rule table: identical occurrences always classify
// identically.
type Classifier struct {
	rules []Rule
}

// NewClassifier builds a classifier; nil rules means DefaultRules.
func NewClassifier(rules []Rule) *Classifier {
	if rules == nil {
		rules = DefaultRules()
	}
	return &Classifier{rules: rules}
}

// TaskID derives the deterministic task identity from the occurrence key.
// The NUL separator keeps (a,"bc") and ("ab","c") distinct.
func TaskID(sourceUID, recurrenceID string) string {
	sum := sha256.Sum256([]byte(sourceUID + "\x00" + recurrenceID))
	return hex.EncodeToString(sum[:])[:16]
}

// Classify converts one occurrence into a canonical task. Enrichment and
// scoring fields stay zero.
func (c *Classifier) Classify(occ domain.RawOccurrence) domain.CanonicalTask {
	kind := c.kindOf(occ)

	due := occ.StartUTC
	if kind.DeadlineLike() {
		due = occ.EndUTC
	}

	return domain.CanonicalTask{
		TaskID:     TaskID(occ.SourceUID, occ.RecurrenceID),
		CourseCode: courseCode(occ.Summary),
		Title:      strings.TrimSpace(occ.Summary),
		Kind:       kind,
		DueAtUTC:   due,
	}
}

// ClassifyAll maps occurrences one-to-one to tasks, preserving order.
func (c *Classifier) ClassifyAll(occs []domain.RawOccurrence) []domain.CanonicalTask {
	tasks := make([]domain.CanonicalTask, 0, len(occs))
	for _, occ := range occs {
		tasks = append(tasks, c.Classify(occ))
	}
	return tasks
}

// kindOf prefers explicit CATEGORIES over keyword matching; both go through
// the same ordered rule table.
func (c *Classifier) kindOf(occ domain.RawOccurrence) domain.Kind {
	for _, cat := range occ.Categories {
		if kind, ok := c.match(cat); ok {
			return kind
		}
	}
	if kind, ok := c.match(occ.Summary + " " + occ.Description); ok {
		return kind
	}
	return domain.KindOther
}

func (c *Classifier) match(text string) (domain.Kind, bool) {
	lower := strings.ToLower(text)
	for _, rule := range c.rules {
		for _, kw := range rule.Keywords {
			if strings.Contains(lower, kw) {
				return rule.Kind, true
			}
		}
	}
	return "", false
}

func courseCode(summary string) string {
	m := courseCodePattern.FindStringSubmatch(strings.TrimSpace(summary))
	if m == nil {
		return ""
	}
	return m[1]
}
