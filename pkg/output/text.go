package output

import (
	"context"
	"fmt"
	"io"
	"strings"
	"time"
)

// TextFormatter formats reports as human-readable text.
type TextFormatter struct {
	opts FormatOptions
}

// NewTextFormatter creates a new text formatter with the given options.
func NewTextFormatter(opts FormatOptions) *TextFormatter {
	return &TextFormatter{opts: opts}
}

// Name returns the format name.
func (f *TextFormatter) Name() string {
	return "text"
}

// Format renders the report as text.
func (f *TextFormatter) Format(_ context.Context, report *Report, w io.Writer) error {
	if f.opts.Quiet {
		return f.formatQuiet(report, w)
	}
	return f.formatFull(report, w)
}

func (f *TextFormatter) formatQuiet(report *Report, w io.Writer) error {
	_, err := fmt.Fprintf(w, "ACC: %d messages, %d with deadlines, %d resolved, %d failed\n",
		report.Summary.Messages,
		report.Summary.WithDeadlines,
		report.Summary.Resolved,
		report.Summary.Failed)
	return err
}

func (f *TextFormatter) formatFull(report *Report, w io.Writer) error {
	fmt.Fprintln(w, "=== ACC Parse Report ===")
	fmt.Fprintln(w)

	for i := range report.Entries {
		f.formatEntry(&report.Entries[i], w)
	}

	fmt.Fprintln(w, "---")
	fmt.Fprintf(w, "Summary: %d messages, %d with courses, %d with deadlines, %d resolved, %d failed\n",
		report.Summary.Messages,
		report.Summary.WithCourses,
		report.Summary.WithDeadlines,
		report.Summary.Resolved,
		report.Summary.Failed)

	if f.opts.Verbose {
		for _, name := range report.Summary.StrategyNames() {
			fmt.Fprintf(w, "  %s: %d\n", name, report.Summary.Strategies[name])
		}
		if len(report.Metadata.Sources) > 0 {
			fmt.Fprintf(w, "Sources: %s\n", strings.Join(report.Metadata.Sources, ", "))
		}
		_, err := fmt.Fprintf(w, "Duration: %s\n", report.Metadata.Duration.Round(time.Millisecond))
		return err
	}

	return nil
}

func (f *TextFormatter) formatEntry(e *Entry, w io.Writer) {
	if e.Source != "" {
		fmt.Fprintf(w, "[%s:%d] %s\n", e.Source, e.LineNum, oneLine(e.OriginalText))
	} else {
		fmt.Fprintf(w, "> %s\n", oneLine(e.OriginalText))
	}

	if e.Failed() {
		fmt.Fprintf(w, "  Error: %s\n", e.Error)
		fmt.Fprintln(w)
		return
	}

	if f.opts.Verbose {
		fmt.Fprintf(w, "  Cleaned:  %s\n", e.CleanedText)
	}
	if len(e.Courses) > 0 {
		fmt.Fprintf(w, "  Courses:  %s\n", strings.Join(e.Courses, ", "))
	}
	if len(e.Keywords) > 0 {
		fmt.Fprintf(w, "  Keywords: %s\n", strings.Join(e.Keywords, ", "))
	}
	if e.DeadlinePhrase != nil {
		fmt.Fprintf(w, "  Deadline: %s\n", *e.DeadlinePhrase)
		if e.DeadlineFocused != nil && f.opts.Verbose {
			fmt.Fprintf(w, "  Focus:    %s\n", *e.DeadlineFocused)
		}
	}
	if e.ResolvedDatetime != nil {
		fmt.Fprintf(w, "  Due:      %s (%s)\n", e.ResolvedDatetime.Format(time.RFC3339), e.ResolutionStrategy)
	} else {
		fmt.Fprintln(w, "  Due:      unresolved")
	}
	fmt.Fprintln(w)
}

// oneLine keeps multi-line messages on a single report line.
func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
