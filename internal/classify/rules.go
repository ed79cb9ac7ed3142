package classify

import "StudyPlanner/internal/domain"

// Rule maps keyword needles to a task kind. Rules are evaluated in order and
// the first match wins, so more specific kinds must come first.
type Rule struct {
	Kind     domain.Kind
	Keywords []string
}

// DefaultRules covers the vocabulary MyCourses/Moodle exports actually use,
// English and Finnish. Exam keywords outrank assignment keywords outrank
// lecture keywords; anything unmatched classifies as "other".
func DefaultRules() []Rule {
	return []Rule{
		{
			Kind:     domain.KindExam,
			Keywords: []string{"exam", "tentti", "midterm", "final exam", "quiz", "retake"},
		},
		{
			Kind: domain.KindAssignment,
			Keywords: []string{
				"assignment", "deadline", "due", "submission", "submit",
				"homework", "exercise", "hand-in", "report", "palautus",
			},
		},
		{
			Kind:     domain.KindLecture,
			Keywords: []string{"lecture", "luento", "seminar", "tutorial", "lab session", "class"},
		},
	}
}
