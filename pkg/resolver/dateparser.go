package resolver

import (
	"time"

	dps "github.com/markusmobius/go-dateparser"
)

// DateParser is the FlexibleResolver backed by go-dateparser.
type DateParser struct {
	languages []string
}

// NewDateParser returns a DateParser. With no languages go-dateparser
// detects the language itself.
func NewDateParser(languages ...string) *DateParser {
	return &DateParser{languages: languages}
}

// Resolve parses text with go-dateparser configured from opts.
func (p *DateParser) Resolve(text string, opts Options) (t time.Time, ok bool) {
	defer func() {
		if r := recover(); r != nil {
			t, ok = time.Time{}, false
		}
	}()

	if text == "" {
		return time.Time{}, false
	}

	anchor := opts.Anchor
	if anchor.IsZero() {
		anchor = time.Now()
	}

	cfg := &dps.Configuration{
		Languages:       p.languages,
		CurrentTime:     anchor,
		DefaultTimezone: anchor.Location(),
	}
	if opts.PreferFuture {
		cfg.PreferredDateSource = dps.Future
	}
	switch opts.DateOrder {
	case OrderDMY:
		cfg.DateOrder = dps.DMY
	case OrderMDY:
		cfg.DateOrder = dps.MDY
	case OrderYMD:
		cfg.DateOrder = dps.YMD
	}

	dt, err := dps.Parse(cfg, text)
	if err != nil || dt.Time.IsZero() {
		return time.Time{}, false
	}

	t = dt.Time
	if opts.TargetTimezone != "" {
		if loc, err := time.LoadLocation(opts.TargetTimezone); err == nil {
			t = t.In(loc)
		}
	}
	return t, true
}
