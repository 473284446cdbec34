// Package resolver turns date-bearing text into one absolute UTC timestamp.
//
// A Ladder tries an ordered list of strategies and stops at the first that
// produces a time. Natural-language understanding is delegated to two
// collaborators: a FlexibleResolver (backed by go-dateparser) and a
// CalendarResolver (backed by olebedev/when).
package resolver

import (
	"errors"
	"time"
)

// ErrResolution is wrapped by errors describing a faulted strategy.
var ErrResolution = errors.New("resolution failed")

// Strategy names the ladder rung that produced a Resolution.
type Strategy string

// Strategies in ladder order.
const (
	StrategyDeadlineExplicit Strategy = "deadline-explicit"
	StrategyDeadlineFlexible Strategy = "deadline-dateparser"
	StrategyDeadlineCalendar Strategy = "deadline-parsedatetime"
	StrategyExplicitFormat   Strategy = "explicit-format"
	StrategyFlexibleFull     Strategy = "dateparser-full"
	StrategyCalendarFull     Strategy = "parsedatetime-full"
	StrategyNone             Strategy = "none"
)

// Explicit reports whether s is one of the explicit-grammar strategies.
func (s Strategy) Explicit() bool {
	return s == StrategyDeadlineExplicit || s == StrategyExplicitFormat
}

// Date orders understood by Options.DateOrder.
const (
	OrderDMY = "DMY"
	OrderMDY = "MDY"
	OrderYMD = "YMD"
)

// Options controls a FlexibleResolver call.
type Options struct {
	// PreferFuture resolves ambiguous phrases ("Friday") to the next
	// occurrence rather than the last.
	PreferFuture bool

	// ReturnWithTimezone asks for a zone-aware result.
	ReturnWithTimezone bool

	// TargetTimezone is an IANA name the result is converted to. Empty
	// leaves the result in the anchor's zone.
	TargetTimezone string

	// Anchor is "now" for relative phrases. Its location is also the zone
	// assumed for values that carry none.
	Anchor time.Time

	// DateOrder is OrderDMY, OrderMDY or OrderYMD. Empty lets the
	// resolver decide.
	DateOrder string
}

// FlexibleResolver understands free-form date language. Implementations
// report false on unparseable input and must not panic.
type FlexibleResolver interface {
	Resolve(text string, opts Options) (time.Time, bool)
}

// CalendarResolver understands simple relative phrases such as
// "tomorrow at 5pm", relative to anchor and in anchor's zone.
type CalendarResolver interface {
	Resolve(text string, anchor time.Time) (time.Time, bool)
}

// Resolution is the outcome of a ladder run.
type Resolution struct {
	Time     time.Time // UTC; zero when Strategy is StrategyNone
	Strategy Strategy
}

// Resolved reports whether a strategy produced a time.
func (r Resolution) Resolved() bool {
	return r.Strategy != StrategyNone && r.Strategy != ""
}
