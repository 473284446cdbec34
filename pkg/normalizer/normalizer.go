// Package normalizer cleans informal chat text before extraction.
//
// Normalize removes chat-export envelopes (timestamp and sender prefixes,
// forwarded-message banners), folds typographic quotes to their ASCII form
// and collapses whitespace. The result is a fixed point: normalizing an
// already normalized string returns it unchanged.
package normalizer

import (
	"regexp"
	"strings"
)

// Envelope is a known chat-export prefix shape.
type Envelope struct {
	Name       string         // Short identifier, e.g. "whatsapp-bracketed"
	Pattern    *regexp.Regexp // Anchored pattern (set during init)
	PatternStr string         // Pattern source
	Examples   []string       // Sample messages carrying this envelope
}

var envelopes = compileEnvelopes([]*Envelope{
	// WhatsApp iOS export: "[10/24/25, 3:45 PM] John: ..."
	{
		Name:       "whatsapp-bracketed",
		PatternStr: `^\[\d{1,2}/\d{1,2}/\d{2,4},? \d{1,2}:\d{2}(?::\d{2})?(?: ?[AaPp]\.?[Mm]\.?)?\] ?[^:\[\]]{1,60}?:(?: |$)`,
		Examples:   []string{"[10/24/25, 3:45 PM] John: CSC101 due tomorrow"},
	},
	// WhatsApp Android export: "10/24/25, 3:45 PM - John: ..."
	{
		Name:       "whatsapp-dash",
		PatternStr: `^\d{1,2}/\d{1,2}/\d{2,4},? \d{1,2}:\d{2}(?::\d{2})?(?: ?[AaPp]\.?[Mm]\.?)? [-–] [^:]{1,60}?:(?: |$)`,
		Examples:   []string{"10/24/25, 3:45 PM - John: quiz on Friday"},
	},
	// Slack/Discord style copy: "[2025-10-24 15:45] John: ..." (sender optional)
	{
		Name:       "iso-bracketed",
		PatternStr: `^\[\d{4}-\d{2}-\d{2}[ T]\d{1,2}:\d{2}(?::\d{2})?\] ?(?:[^:\[\]]{1,60}?:(?: |$))?`,
		Examples:   []string{"[2025-10-24 15:45] John: lab report due Monday"},
	},
	// Telegram desktop copy: "John Doe, [24.10.25 15:45]: ..."
	{
		Name:       "sender-bracketed",
		PatternStr: `^[^,\[\]:]{1,60}, ?\[\d{1,2}[./-]\d{1,2}[./-]\d{2,4},? ?\d{1,2}:\d{2}(?::\d{2})?(?: ?[AaPp][Mm])?\]:?(?: |$)`,
		Examples:   []string{"John Doe, [24.10.25 15:45]: submit HCI essay by Friday"},
	},
	// Email-style forward banner: "---------- Forwarded message ---------"
	{
		Name:       "forwarded-banner",
		PatternStr: `(?i)^-* ?forwarded message ?-*:?(?: |$)`,
		Examples:   []string{"---------- Forwarded message --------- Exam moved to Monday"},
	},
	// Messenger forward marker: "[Forwarded from Jane] ..." or "Forwarded from Jane: ..."
	{
		Name:       "forwarded-from",
		PatternStr: `(?i)^(?:\[forwarded from [^\]]{1,60}\]|forwarded from [^:]{1,60}:)(?: |$)`,
		Examples:   []string{"[Forwarded from Jane] MATH201 homework due tonight"},
	},
})

func compileEnvelopes(list []*Envelope) []*Envelope {
	for _, e := range list {
		e.Pattern = regexp.MustCompile(e.PatternStr)
	}
	return list
}

// Envelopes returns the built-in envelope catalogue in match order.
func Envelopes() []*Envelope {
	out := make([]*Envelope, len(envelopes))
	copy(out, envelopes)
	return out
}

var quoteReplacer = strings.NewReplacer(
	"‘", "'", "’", "'", "‚", "'", "‛", "'", "′", "'", "`", "'",
	"“", `"`, "”", `"`, "„", `"`, "‟", `"`, "″", `"`,
	"«", `"`, "»", `"`,
)

// Normalize returns the cleaned form of text. It never fails; input with no
// envelope is only whitespace- and quote-normalized.
func Normalize(text string) string {
	if text == "" {
		return ""
	}

	s := collapseWhitespace(quoteReplacer.Replace(text))

	// Exports can quote other exports, so keep stripping until a full pass
	// over every envelope removes nothing.
	for {
		stripped := false
		for _, e := range envelopes {
			loc := e.Pattern.FindStringIndex(s)
			if loc == nil || loc[1] == 0 {
				continue
			}
			s = strings.TrimSpace(s[loc[1]:])
			stripped = true
		}
		if !stripped {
			break
		}
	}

	return s
}

// MatchEnvelope reports which envelope, if any, prefixes the collapsed form
// of line.
func MatchEnvelope(line string) (*Envelope, bool) {
	s := collapseWhitespace(quoteReplacer.Replace(line))
	for _, e := range envelopes {
		if loc := e.Pattern.FindStringIndex(s); loc != nil && loc[1] > 0 {
			return e, true
		}
	}
	return nil, false
}

// collapseWhitespace folds every Unicode whitespace run (including the
// narrow no-break space WhatsApp puts before AM/PM) into one ASCII space.
func collapseWhitespace(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
