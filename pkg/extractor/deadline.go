package extractor

import (
	"regexp"
	"sort"
	"strings"
	"unicode"
	"unicode/utf8"
)

const (
	// DefaultContextLimit is the number of characters captured after a
	// deadline trigger.
	DefaultContextLimit = 150

	// DefaultFocusWindow is the maximum length of the focused span.
	DefaultFocusWindow = 100
)

// Indicator is a date/time shape used to narrow a deadline phrase.
type Indicator struct {
	Name    string
	Pattern *regexp.Regexp
}

const monthNames = `(?:jan(?:uary)?|feb(?:ruary)?|mar(?:ch)?|apr(?:il)?|may|june?|july?|aug(?:ust)?|sep(?:t(?:ember)?)?|oct(?:ober)?|nov(?:ember)?|dec(?:ember)?)`

const weekdayNames = `(?:monday|tuesday|wednesday|thursday|friday|saturday|sunday|mon|tues?|wed|thu(?:rs?)?|fri|sat|sun)`

// DefaultIndicators returns the indicator catalogue. Order only breaks ties
// between matches that start at the same offset.
func DefaultIndicators() []Indicator {
	return []Indicator{
		{"time-of-day", regexp.MustCompile(`(?i)\b\d{1,2}(?::\d{2})?\s?(?:[ap]m\b|[ap]\.m\.)|\b\d{1,2}:\d{2}\b|\b(?:noon|midnight)\b`)},
		{"relative-day", regexp.MustCompile(`(?i)\b(?:today|tonight|tomorrow|tmrw|tmr|yesterday)\b`)},
		{"relative-range", regexp.MustCompile(`(?i)\b(?:(?:this|next|coming|following)\s+(?:week(?:end)?|month|semester|term|year|` + weekdayNames + `)|end\s+of\s+(?:the\s+)?(?:day|week|month|semester|term)|in\s+\d+\s+(?:days?|weeks?|hours?))\b`)},
		{"numeric-date", regexp.MustCompile(`\b(?:\d{4}-\d{1,2}-\d{1,2}(?:[T ]\d{2}:\d{2}(?::\d{2})?)?|\d{1,2}[/.-]\d{1,2}(?:[/.-]\d{2,4})?)\b`)},
		{"spelled-date", regexp.MustCompile(`(?i)\b(?:\d{1,2}(?:st|nd|rd|th)?\s+(?:of\s+)?` + monthNames + `\b\.?(?:,?\s+\d{4})?|` + monthNames + `\b\.?\s+\d{1,2}(?:st|nd|rd|th)?\b(?:,?\s+\d{4})?)`)},
		{"weekday", regexp.MustCompile(`(?i)\b` + weekdayNames + `\b`)},
	}
}

// Deadline is the located deadline context. Empty strings mean absent.
type Deadline struct {
	Phrase    string // Trigger word plus the following context
	Focused   string // Sub-span most likely to hold the date/time
	Indicator string // Name of the winning indicator, empty on fallback
}

// DeadlineLocator finds the deadline phrase and narrows it to a focused span.
type DeadlineLocator struct {
	trigger      *regexp.Regexp
	indicators   []Indicator
	contextLimit int
	focusWindow  int
}

// DeadlineOption configures a DeadlineLocator.
type DeadlineOption func(*DeadlineLocator)

// WithContextLimit sets how many characters follow the trigger (default 150).
func WithContextLimit(n int) DeadlineOption {
	return func(l *DeadlineLocator) {
		if n > 0 {
			l.contextLimit = n
		}
	}
}

// WithFocusWindow sets the maximum focused span length (default 100).
func WithFocusWindow(n int) DeadlineOption {
	return func(l *DeadlineLocator) {
		if n > 0 {
			l.focusWindow = n
		}
	}
}

// WithIndicators replaces the indicator catalogue.
func WithIndicators(ind []Indicator) DeadlineOption {
	return func(l *DeadlineLocator) {
		if len(ind) > 0 {
			l.indicators = ind
		}
	}
}

// NewDeadlineLocator builds a locator for v.Triggers.
func NewDeadlineLocator(v Vocabulary, opts ...DeadlineOption) *DeadlineLocator {
	v = v.WithDefaults()
	l := &DeadlineLocator{
		trigger:      compileTriggers(v.Triggers),
		indicators:   DefaultIndicators(),
		contextLimit: DefaultContextLimit,
		focusWindow:  DefaultFocusWindow,
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// compileTriggers builds one alternation with longer triggers first so that
// "submission" is not cut short by "submit".
func compileTriggers(triggers []string) *regexp.Regexp {
	alts := make([]string, 0, len(triggers))
	for _, t := range triggers {
		words := strings.Fields(t)
		if len(words) == 0 {
			continue
		}
		for i, w := range words {
			words[i] = regexp.QuoteMeta(w)
		}
		alts = append(alts, strings.Join(words, `\s+`))
	}
	if len(alts) == 0 {
		return compileTriggers(defaultTriggers)
	}
	sort.SliceStable(alts, func(i, j int) bool { return len(alts[i]) > len(alts[j]) })
	return regexp.MustCompile(`(?i)\b(?:` + strings.Join(alts, "|") + `)`)
}

// Locate returns the deadline context of text. When no trigger occurs both
// fields are empty.
func (l *DeadlineLocator) Locate(text string) Deadline {
	loc := l.trigger.FindStringIndex(text)
	if loc == nil {
		return Deadline{}
	}

	trigger := text[loc[0]:loc[1]]
	after := sentenceSpan(text[loc[1]:], l.contextLimit)
	d := Deadline{Phrase: strings.TrimRightFunc(trigger+after, unicode.IsSpace)}

	d.Focused, d.Indicator = l.focus(after)
	return d
}

// focus picks the indicator match with the smallest start offset in post.
func (l *DeadlineLocator) focus(post string) (string, string) {
	best, name := -1, ""
	for _, ind := range l.indicators {
		m := ind.Pattern.FindStringIndex(post)
		if m == nil {
			continue
		}
		if best < 0 || m[0] < best {
			best, name = m[0], ind.Name
		}
	}

	if best < 0 {
		return strings.TrimSpace(truncateRunes(strings.TrimSpace(post), l.focusWindow)), ""
	}
	return strings.TrimSpace(truncateRunes(post[best:], l.focusWindow)), name
}

// sentenceSpan returns up to limit runes of s, stopping before a newline,
// '!' or '?', and before a '.' that ends a sentence (followed by whitespace
// or the end of text). Dots inside "28.02.2025" or "2.5" do not stop it.
func sentenceSpan(s string, limit int) string {
	n := 0
	for i, r := range s {
		if n == limit {
			return s[:i]
		}
		switch r {
		case '\n', '\r', '!', '?':
			return s[:i]
		case '.':
			next, size := utf8.DecodeRuneInString(s[i+1:])
			if size == 0 || unicode.IsSpace(next) {
				return s[:i]
			}
		}
		n++
	}
	return s
}

func truncateRunes(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	i := 0
	for j := range s {
		if i == n {
			return s[:j]
		}
		i++
	}
	return s
}
