package pipeline

import (
	"time"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/resolver"
)

// ParseResult is the record produced for one input text.
type ParseResult struct {
	OriginalText       string     `json:"original_text"`
	CleanedText        string     `json:"cleaned_text"`
	Courses            []string   `json:"courses"`
	Keywords           []string   `json:"keywords"`
	DeadlinePhrase     *string    `json:"deadline_phrase"`
	DeadlineFocused    *string    `json:"deadline_focused"`
	ResolvedDatetime   *time.Time `json:"resolved_datetime"`
	ResolutionStrategy string     `json:"resolution_strategy"`
	Error              string     `json:"error,omitempty"`

	err error
}

// Err returns the failure behind Error, or nil.
func (r *ParseResult) Err() error { return r.err }

// Failed reports whether the pipeline could not process the input.
func (r *ParseResult) Failed() bool { return r.Error != "" }

// Resolved reports whether a timestamp was found.
func (r *ParseResult) Resolved() bool { return r.ResolvedDatetime != nil }

// emptyResult returns the "nothing found" shape for original.
func emptyResult(original string) *ParseResult {
	return &ParseResult{
		OriginalText:       original,
		Courses:            []string{},
		Keywords:           []string{},
		ResolutionStrategy: string(resolver.StrategyNone),
	}
}

// failedResult returns the all-empty shape carrying err.
func failedResult(original string, err error) *ParseResult {
	r := emptyResult(original)
	r.Error = err.Error()
	r.err = err
	return r
}

func optionalString(s string) *string {
	if s == "" {
		return nil
	}
	return &s
}
