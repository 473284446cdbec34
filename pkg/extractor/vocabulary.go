// Package extractor finds course identifiers, academic keywords and deadline
// phrasing in normalized text.
package extractor

import "errors"

// ErrExtraction is wrapped by every error an extractor pass reports.
var ErrExtraction = errors.New("extraction failed")

// Vocabulary holds the fixed word lists the extractors match against.
// An empty list means "use the built-in default" (see WithDefaults).
type Vocabulary struct {
	// Keywords in canonical output order.
	Keywords []string `yaml:"keywords,omitempty"`

	// Abbreviations are whole-word course abbreviations such as HCI.
	Abbreviations []string `yaml:"abbreviations,omitempty"`

	// Exclusions are letter prefixes that disqualify a coded course match
	// (month and weekday abbreviations, AM/PM, time zones).
	Exclusions []string `yaml:"exclusions,omitempty"`

	// Triggers mark the start of a deadline context.
	Triggers []string `yaml:"triggers,omitempty"`

	// UnitNouns follow a free-text course name ("Data Structures assignment").
	UnitNouns []string `yaml:"unit_nouns,omitempty"`

	// NameStopwords are dropped from the front of a free-text course name.
	NameStopwords []string `yaml:"name_stopwords,omitempty"`
}

var defaultKeywords = []string{
	// Assessments
	"exam", "test", "quiz", "midterm", "final", "assessment",
	// Work
	"assignment", "homework", "project", "lab", "practical", "tutorial",
	// Submissions
	"submission", "submit", "due", "deadline", "hand in", "turn in",
	// Events
	"meeting", "presentation", "seminar", "lecture", "class", "session",
	// Grading
	"grade", "marked", "graded", "result", "score",
	// General
	"course", "subject", "module",
}

var defaultAbbreviations = []string{
	"DSA", "OS", "HCI", "AI", "ML", "DB", "DM", "SE", "CN", "TOC",
	"DBMS", "OOP", "DS", "NLP", "CV", "RL", "GIS", "CAD", "IOT",
}

var defaultExclusions = []string{
	"JAN", "FEB", "MAR", "APR", "MAY", "JUN", "JUL", "AUG",
	"SEP", "OCT", "NOV", "DEC",
	"MON", "TUE", "WED", "THU", "FRI", "SAT", "SUN",
	"AM", "PM", "GMT", "UTC",
}

var defaultTriggers = []string{"deadline", "due", "submit", "submission", "hand in"}

var defaultUnitNouns = []string{
	"assignment", "exam", "quiz", "project", "course",
	"class", "module", "test", "lab", "homework",
}

var defaultNameStopwords = []string{
	"The", "This", "That", "These", "Those", "Our", "My", "Your", "Their",
	"Next", "Last", "Final", "Midterm", "Weekly", "Group", "Each", "Every",
	"First", "Second", "Third", "An", "Upcoming", "Submit", "Due", "Today",
	"Tomorrow", "Tonight",
}

// DefaultVocabulary returns a fresh copy of the built-in word lists.
func DefaultVocabulary() Vocabulary {
	return Vocabulary{
		Keywords:      clone(defaultKeywords),
		Abbreviations: clone(defaultAbbreviations),
		Exclusions:    clone(defaultExclusions),
		Triggers:      clone(defaultTriggers),
		UnitNouns:     clone(defaultUnitNouns),
		NameStopwords: clone(defaultNameStopwords),
	}
}

// WithDefaults returns v with every empty list replaced by its default.
func (v Vocabulary) WithDefaults() Vocabulary {
	d := DefaultVocabulary()
	if len(v.Keywords) == 0 {
		v.Keywords = d.Keywords
	}
	if len(v.Abbreviations) == 0 {
		v.Abbreviations = d.Abbreviations
	}
	if len(v.Exclusions) == 0 {
		v.Exclusions = d.Exclusions
	}
	if len(v.Triggers) == 0 {
		v.Triggers = d.Triggers
	}
	if len(v.UnitNouns) == 0 {
		v.UnitNouns = d.UnitNouns
	}
	if len(v.NameStopwords) == 0 {
		v.NameStopwords = d.NameStopwords
	}
	return v
}

func clone(s []string) []string {
	out := make([]string, len(s))
	copy(out, s)
	return out
}

func toSet(words []string, norm func(string) string) map[string]struct{} {
	set := make(map[string]struct{}, len(words))
	for _, w := range words {
		set[norm(w)] = struct{}{}
	}
	return set
}
