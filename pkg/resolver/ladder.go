package resolver

import (
	"fmt"
	"time"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
)

// Ladder runs the resolution strategies in priority order.
type Ladder struct {
	flexible     FlexibleResolver
	calendar     CalendarResolver
	loc          *time.Location
	clock        func() time.Time
	preferFuture bool
	logger       logging.Logger
}

// LadderOption configures a Ladder.
type LadderOption func(*Ladder)

// WithLocation sets the local zone used as the relative anchor (default
// time.Local).
func WithLocation(loc *time.Location) LadderOption {
	return func(l *Ladder) {
		if loc != nil {
			l.loc = loc
		}
	}
}

// WithClock overrides the source of "now".
func WithClock(clock func() time.Time) LadderOption {
	return func(l *Ladder) {
		if clock != nil {
			l.clock = clock
		}
	}
}

// WithPreferFuture sets the ambiguity bias for flexible calls (default true).
func WithPreferFuture(v bool) LadderOption {
	return func(l *Ladder) {
		l.preferFuture = v
	}
}

// WithLogger sets the logger for strategy faults and winners.
func WithLogger(log logging.Logger) LadderOption {
	return func(l *Ladder) {
		if log != nil {
			l.logger = log
		}
	}
}

// NewLadder builds a ladder over the two collaborators. Either may be nil,
// in which case its strategies never succeed.
func NewLadder(flexible FlexibleResolver, calendar CalendarResolver, opts ...LadderOption) *Ladder {
	l := &Ladder{
		flexible:     flexible,
		calendar:     calendar,
		loc:          time.Local,
		clock:        time.Now,
		preferFuture: true,
		logger:       logging.NewNopLogger(),
	}
	for _, opt := range opts {
		opt(l)
	}
	return l
}

// Resolve picks one timestamp for cleaned text. focused is the narrowed
// deadline span, empty when none was located. The first strategy that
// succeeds wins:
//
//  1. deadline-explicit: explicit grammar inside focused
//  2. deadline-dateparser, deadline-parsedatetime: all of focused, only when
//     focused held no explicit date
//  3. explicit-format: explicit grammar over cleaned, only without focused
//  4. dateparser-full, parsedatetime-full: all of cleaned
func (l *Ladder) Resolve(cleaned, focused string) Resolution {
	now := l.clock()

	if focused != "" {
		if m, ok := FindExplicit(focused); ok {
			if r, ok := l.explicit(StrategyDeadlineExplicit, m, now); ok {
				return r
			}
		} else {
			if r, ok := l.flexibleAttempt(StrategyDeadlineFlexible, focused, now); ok {
				return r
			}
			if r, ok := l.calendarAttempt(StrategyDeadlineCalendar, focused, now); ok {
				return r
			}
		}
	} else if m, ok := FindExplicit(cleaned); ok {
		if r, ok := l.explicit(StrategyExplicitFormat, m, now); ok {
			return r
		}
	}

	if cleaned != "" {
		if r, ok := l.flexibleAttempt(StrategyFlexibleFull, cleaned, now); ok {
			return r
		}
		if r, ok := l.calendarAttempt(StrategyCalendarFull, cleaned, now); ok {
			return r
		}
	}

	return Resolution{Strategy: StrategyNone}
}

// explicit hands a structural match to the flexible resolver. Values
// without a zone are read as UTC.
func (l *Ladder) explicit(s Strategy, m ExplicitMatch, now time.Time) (Resolution, bool) {
	if l.flexible == nil {
		return Resolution{}, false
	}
	return l.attempt(s, m.Text, func() (time.Time, bool) {
		return l.flexible.Resolve(m.Text, Options{
			ReturnWithTimezone: true,
			TargetTimezone:     "UTC",
			Anchor:             now.In(time.UTC),
			DateOrder:          m.DateOrder,
		})
	})
}

func (l *Ladder) flexibleAttempt(s Strategy, text string, now time.Time) (Resolution, bool) {
	if l.flexible == nil {
		return Resolution{}, false
	}
	return l.attempt(s, text, func() (time.Time, bool) {
		return l.flexible.Resolve(text, Options{
			PreferFuture:       l.preferFuture,
			ReturnWithTimezone: true,
			TargetTimezone:     "UTC",
			Anchor:             now.In(l.loc),
		})
	})
}

func (l *Ladder) calendarAttempt(s Strategy, text string, now time.Time) (Resolution, bool) {
	if l.calendar == nil {
		return Resolution{}, false
	}
	return l.attempt(s, text, func() (time.Time, bool) {
		return l.calendar.Resolve(text, now.In(l.loc))
	})
}

// attempt runs one strategy inside its own recover boundary. A panicking
// collaborator counts as "no result" and the ladder moves on.
func (l *Ladder) attempt(s Strategy, text string, fn func() (time.Time, bool)) (res Resolution, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %s: %v", ErrResolution, s, r)
			l.logger.Warn("resolution strategy faulted",
				logging.String("strategy", string(s)),
				logging.Err(err))
			res, ok = Resolution{}, false
		}
	}()

	t, ok := fn()
	if !ok || t.IsZero() {
		return Resolution{}, false
	}
	res = Resolution{Time: t.UTC(), Strategy: s}
	l.logger.Debug("date resolved",
		logging.String("strategy", string(s)),
		logging.String("input", text),
		logging.String("resolved", res.Time.Format(time.RFC3339)))
	return res, true
}
