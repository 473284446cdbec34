package detector

import (
	"regexp"
	"strconv"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/resolver"
)

// numericDate captures the two leading fields of a d/m/y style date and
// the year.
var numericDate = regexp.MustCompile(`(\d{1,2})[./-](\d{1,2})[./-](\d{2,4})`)

// isoDate matches a year-first date.
var isoDate = regexp.MustCompile(`\d{4}-\d{2}-\d{2}`)

// orderVotes tallies evidence for each date order across sampled lines.
type orderVotes struct {
	dmy, mdy, ymd, ambiguous int
}

// observe records the date order implied by an envelope prefix.
func (v *orderVotes) observe(prefix string) {
	if isoDate.MatchString(prefix) {
		v.ymd++
		return
	}

	m := numericDate.FindStringSubmatch(prefix)
	if len(m) < 3 {
		return
	}
	first, err1 := strconv.Atoi(m[1])
	second, err2 := strconv.Atoi(m[2])
	if err1 != nil || err2 != nil {
		return
	}

	switch {
	case first > 12 && second <= 12:
		v.dmy++
	case second > 12 && first <= 12:
		v.mdy++
	default:
		v.ambiguous++
	}
}

// decide returns the inferred order, or "" when the evidence conflicts or
// every date read both ways.
func (v *orderVotes) decide() string {
	switch {
	case v.dmy > 0 && v.mdy > 0:
		return ""
	case v.dmy > 0:
		return resolver.OrderDMY
	case v.mdy > 0:
		return resolver.OrderMDY
	case v.ymd > 0 && v.ambiguous == 0:
		return resolver.OrderYMD
	}
	return ""
}

func (v *orderVotes) sawNumericDates() bool {
	return v.dmy+v.mdy+v.ambiguous > 0
}
