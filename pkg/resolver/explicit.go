package resolver

import (
	"regexp"
	"strings"
)

// explicitRE is the unambiguous date grammar: ISO date with optional time,
// and day-first numeric dates with a four digit year.
var explicitRE = regexp.MustCompile(
	`\b(\d{4}-\d{2}-\d{2}(?:[ T]\d{2}:\d{2}(?::\d{2})?)?|\d{1,2}/\d{1,2}/\d{4}|\d{1,2}-\d{1,2}-\d{4})\b`)

// ExplicitMatch is a structural match of the explicit grammar.
type ExplicitMatch struct {
	Text      string
	DateOrder string // OrderYMD for ISO forms, OrderDMY otherwise
}

// FindExplicit returns the first explicit date in text.
func FindExplicit(text string) (ExplicitMatch, bool) {
	m := explicitRE.FindString(text)
	if m == "" {
		return ExplicitMatch{}, false
	}
	em := ExplicitMatch{Text: m, DateOrder: OrderYMD}
	if strings.Contains(m, "/") || !isISODate(m) {
		em.DateOrder = OrderDMY
	}
	return em, true
}

func isISODate(s string) bool {
	return len(s) >= 10 && s[4] == '-' && s[7] == '-'
}
