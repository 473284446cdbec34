// Package output provides formatting for parse reports.
package output

import (
	"sort"
	"time"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/pipeline"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/source"
)

// Report is the complete output of a parse run.
type Report struct {
	// Summary provides aggregate statistics.
	Summary Summary `json:"summary"`

	// Entries holds one parse result per message, in input order.
	Entries []Entry `json:"entries"`

	// Metadata provides context about the run.
	Metadata Metadata `json:"metadata"`
}

// Entry pairs a parse result with where its text came from.
type Entry struct {
	Source  string `json:"source,omitempty"`
	LineNum int    `json:"line,omitempty"`

	*pipeline.ParseResult
}

// Summary provides aggregate statistics.
type Summary struct {
	// Messages is the number of texts parsed.
	Messages int `json:"messages"`

	// WithCourses counts results naming at least one course.
	WithCourses int `json:"with_courses"`

	// WithDeadlines counts results carrying a deadline phrase.
	WithDeadlines int `json:"with_deadlines"`

	// Resolved counts results with a resolved timestamp.
	Resolved int `json:"resolved"`

	// Failed counts results whose parse failed outright.
	Failed int `json:"failed"`

	// Strategies counts resolved results per winning strategy.
	Strategies map[string]int `json:"strategies"`
}

// Metadata provides context about the parse run.
type Metadata struct {
	// ConfigFile is the path to the configuration file used.
	ConfigFile string `json:"config_file,omitempty"`

	// Sources lists the transcripts that were read.
	Sources []string `json:"sources,omitempty"`

	// ParsedAt is when the run finished.
	ParsedAt time.Time `json:"parsed_at"`

	// Duration is how long the run took.
	Duration time.Duration `json:"duration"`
}

// NewReport builds a report from messages and their results. results[i]
// must belong to messages[i]; messages may be nil for bare texts.
func NewReport(messages []source.Message, results []*pipeline.ParseResult, meta Metadata) *Report {
	report := &Report{
		Entries:  make([]Entry, 0, len(results)),
		Metadata: meta,
		Summary:  Summary{Strategies: map[string]int{}},
	}

	seen := make(map[string]bool)
	for i, r := range results {
		if r == nil {
			continue
		}
		e := Entry{ParseResult: r}
		if i < len(messages) {
			e.Source = messages[i].Source
			e.LineNum = messages[i].LineNum
			if e.Source != "" && !seen[e.Source] && meta.Sources == nil {
				seen[e.Source] = true
				report.Metadata.Sources = append(report.Metadata.Sources, e.Source)
			}
		}
		report.Entries = append(report.Entries, e)
		report.Summary.add(r)
	}

	if report.Metadata.ParsedAt.IsZero() {
		report.Metadata.ParsedAt = time.Now()
	}
	return report
}

func (s *Summary) add(r *pipeline.ParseResult) {
	s.Messages++
	if len(r.Courses) > 0 {
		s.WithCourses++
	}
	if r.DeadlinePhrase != nil {
		s.WithDeadlines++
	}
	if r.Resolved() {
		s.Resolved++
		s.Strategies[r.ResolutionStrategy]++
	}
	if r.Failed() {
		s.Failed++
	}
}

// HasDeadlines returns true if any message resolved to a timestamp.
func (r *Report) HasDeadlines() bool {
	return r.Summary.Resolved > 0
}

// StrategyNames returns the winning strategies in name order.
func (s Summary) StrategyNames() []string {
	names := make([]string, 0, len(s.Strategies))
	for name := range s.Strategies {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
