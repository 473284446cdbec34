package resolver

import (
	"sync"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
)

// CalendarPhrases is the CalendarResolver backed by olebedev/when. Building
// the rule set is the expensive part, so one instance is shared per process
// and calls are serialized.
type CalendarPhrases struct {
	mu sync.Mutex
	w  *when.Parser
}

// NewCalendarPhrases builds an English rule set.
func NewCalendarPhrases() *CalendarPhrases {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	return &CalendarPhrases{w: w}
}

var (
	sharedCalendarOnce sync.Once
	sharedCalendar     *CalendarPhrases
)

// SharedCalendarPhrases returns the process-wide instance.
func SharedCalendarPhrases() *CalendarPhrases {
	sharedCalendarOnce.Do(func() {
		sharedCalendar = NewCalendarPhrases()
	})
	return sharedCalendar
}

// Resolve finds the first calendar phrase in text relative to anchor. The
// anchor's zone is the zone phrases like "5pm" are read in. A zero anchor
// means the current time in UTC.
func (c *CalendarPhrases) Resolve(text string, anchor time.Time) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	if text == "" {
		return time.Time{}, false
	}
	if anchor.IsZero() {
		anchor = time.Now().UTC()
	}

	c.mu.Lock()
	defer c.mu.Unlock()

	r, err := c.w.Parse(text, anchor)
	if err != nil || r == nil {
		return time.Time{}, false
	}
	return r.Time, true
}
