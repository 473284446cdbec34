package extractor

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

var (
	codedCourseRE  = regexp.MustCompile(`\b([A-Z]{2,4}\s\d{2,3}|[A-Z]{2,4}\d{2,3})\b`)
	upperWordRE    = regexp.MustCompile(`\b[A-Z]+\b`)
	leadingLetters = regexp.MustCompile(`^[A-Z]+`)
)

// coursePass produces candidates from the original text and its uppercased
// form.
type coursePass struct {
	name string
	run  func(text, upper string) []string
}

// CourseExtractor finds course codes, known abbreviations and free-text
// course names.
type CourseExtractor struct {
	abbreviations map[string]struct{}
	exclusions    map[string]struct{}
	stopwords     map[string]struct{}
	namedRE       *regexp.Regexp
	passes        []coursePass
}

// NewCourseExtractor builds an extractor from v. Empty lists in v fall back
// to the defaults.
func NewCourseExtractor(v Vocabulary) *CourseExtractor {
	v = v.WithDefaults()

	nouns := make([]string, len(v.UnitNouns))
	for i, n := range v.UnitNouns {
		nouns[i] = regexp.QuoteMeta(strings.ToLower(n))
	}

	e := &CourseExtractor{
		abbreviations: toSet(v.Abbreviations, strings.ToUpper),
		exclusions:    toSet(v.Exclusions, strings.ToUpper),
		stopwords:     toSet(v.NameStopwords, strings.ToLower),
		namedRE: regexp.MustCompile(
			`\b([A-Z][a-z]+(?:\s+(?:and\s+)?[A-Z][a-z]+){0,3})\s+(?i:(?:` +
				strings.Join(nouns, "|") + `)s?)\b`),
	}
	e.passes = []coursePass{
		{name: "coded", run: e.coded},
		{name: "abbreviation", run: e.abbreviation},
		{name: "named", run: e.named},
	}
	return e
}

// Extract returns distinct course identifiers in first-seen order. Two
// identifiers are the same course when they match after uppercasing and
// removing spaces ("CE 382" and "ce382"). A faulting pass discards the whole
// result and reports an error wrapping ErrExtraction.
func (e *CourseExtractor) Extract(text string) ([]string, error) {
	courses := []string{}
	if text == "" {
		return courses, nil
	}

	upper := strings.ToUpper(text)
	seen := make(map[string]struct{})

	for _, p := range e.passes {
		found, err := runPass(p, text, upper)
		if err != nil {
			return []string{}, err
		}
		for _, c := range found {
			key := courseKey(c)
			if _, dup := seen[key]; dup {
				continue
			}
			seen[key] = struct{}{}
			courses = append(courses, c)
		}
	}
	return courses, nil
}

func runPass(p coursePass, text, upper string) (found []string, err error) {
	defer func() {
		if r := recover(); r != nil {
			found = nil
			err = fmt.Errorf("%w: %s pass: %v", ErrExtraction, p.name, r)
		}
	}()
	return p.run(text, upper), nil
}

// coded matches "CSC101" and "CE 382" shapes, skipping dates like "SEP 16".
func (e *CourseExtractor) coded(_, upper string) []string {
	var out []string
	for _, m := range codedCourseRE.FindAllString(upper, -1) {
		letters := leadingLetters.FindString(m)
		if _, ok := e.exclusions[letters]; ok {
			continue
		}
		if len(letters) > 3 {
			if _, ok := e.exclusions[letters[:3]]; ok {
				continue
			}
		}
		out = append(out, strings.Join(strings.Fields(m), " "))
	}
	return out
}

func (e *CourseExtractor) abbreviation(_, upper string) []string {
	var out []string
	for _, w := range upperWordRE.FindAllString(upper, -1) {
		if _, ok := e.abbreviations[w]; ok {
			out = append(out, w)
		}
	}
	return out
}

// named matches "Data Structures assignment" and returns "Data Structures".
func (e *CourseExtractor) named(text, _ string) []string {
	var out []string
	for _, m := range e.namedRE.FindAllStringSubmatch(text, -1) {
		if name := e.trimStopwords(m[1]); name != "" {
			out = append(out, name)
		}
	}
	return out
}

func (e *CourseExtractor) trimStopwords(name string) string {
	words := strings.Fields(name)
	for len(words) > 0 {
		w := strings.ToLower(words[0])
		if _, stop := e.stopwords[w]; !stop && w != "and" {
			break
		}
		words = words[1:]
	}
	return strings.Join(words, " ")
}

func courseKey(c string) string {
	return strings.Map(func(r rune) rune {
		if unicode.IsSpace(r) {
			return -1
		}
		return r
	}, strings.ToUpper(c))
}
