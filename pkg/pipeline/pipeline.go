// Package pipeline turns one informal text into a ParseResult: normalize,
// extract courses, keywords and the deadline span, then resolve a date.
//
// Each stage runs inside its own recover boundary so a faulting stage only
// empties its own field. Parse never panics and never returns nil.
package pipeline

import (
	"fmt"
	"strings"
	"time"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/extractor"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/normalizer"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/resolver"
)

// Stage names used in logs and metrics.
const (
	StageCourses  = "courses"
	StageKeywords = "keywords"
	StageDeadline = "deadline"
	StageResolve  = "resolve"
)

// CourseFinder extracts course identifiers.
type CourseFinder interface {
	Extract(text string) ([]string, error)
}

// KeywordFinder extracts vocabulary terms.
type KeywordFinder interface {
	Extract(text string) []string
}

// DeadlineFinder locates the deadline phrase and its focused span.
type DeadlineFinder interface {
	Locate(text string) extractor.Deadline
}

// DateResolver picks one timestamp for cleaned text and a focused span.
type DateResolver interface {
	Resolve(cleaned, focused string) resolver.Resolution
}

// Observer receives per-parse telemetry. internal/metrics implements it.
type Observer interface {
	ObserveParse(strategy string, took time.Duration, failed bool)
	ObserveStageFailure(stage string)
}

type nopObserver struct{}

func (nopObserver) ObserveParse(string, time.Duration, bool) {}
func (nopObserver) ObserveStageFailure(string)              {}

// Pipeline runs the extraction stages and the resolution ladder.
type Pipeline struct {
	courses  CourseFinder
	keywords KeywordFinder
	deadline DeadlineFinder
	dates    DateResolver
	logger   logging.Logger
	observer Observer
}

type settings struct {
	vocabulary   extractor.Vocabulary
	deadlineOpts []extractor.DeadlineOption
	location     *time.Location
	clock        func() time.Time
	preferFuture bool

	courses  CourseFinder
	keywords KeywordFinder
	deadline DeadlineFinder
	dates    DateResolver
	logger   logging.Logger
	observer Observer
}

// Option configures a Pipeline.
type Option func(*settings)

// WithVocabulary sets the word lists. Empty lists keep their defaults.
func WithVocabulary(v extractor.Vocabulary) Option {
	return func(s *settings) { s.vocabulary = v }
}

// WithLimits sets the deadline context length and focus window.
func WithLimits(contextLimit, focusWindow int) Option {
	return func(s *settings) {
		s.deadlineOpts = append(s.deadlineOpts,
			extractor.WithContextLimit(contextLimit),
			extractor.WithFocusWindow(focusWindow))
	}
}

// WithLocation sets the local zone for relative dates (default time.Local).
func WithLocation(loc *time.Location) Option {
	return func(s *settings) {
		if loc != nil {
			s.location = loc
		}
	}
}

// WithClock overrides the source of "now".
func WithClock(clock func() time.Time) Option {
	return func(s *settings) {
		if clock != nil {
			s.clock = clock
		}
	}
}

// WithPreferFuture sets the ambiguity bias (default true).
func WithPreferFuture(v bool) Option {
	return func(s *settings) { s.preferFuture = v }
}

// WithCourseFinder replaces the course extractor.
func WithCourseFinder(f CourseFinder) Option {
	return func(s *settings) { s.courses = f }
}

// WithKeywordFinder replaces the keyword extractor.
func WithKeywordFinder(f KeywordFinder) Option {
	return func(s *settings) { s.keywords = f }
}

// WithDeadlineFinder replaces the deadline locator.
func WithDeadlineFinder(f DeadlineFinder) Option {
	return func(s *settings) { s.deadline = f }
}

// WithDateResolver replaces the resolution ladder.
func WithDateResolver(r DateResolver) Option {
	return func(s *settings) { s.dates = r }
}

// WithLogger sets the logger.
func WithLogger(l logging.Logger) Option {
	return func(s *settings) {
		if l != nil {
			s.logger = l
		}
	}
}

// WithObserver sets the telemetry sink.
func WithObserver(o Observer) Option {
	return func(s *settings) {
		if o != nil {
			s.observer = o
		}
	}
}

// New builds a Pipeline. Without WithDateResolver it uses a Ladder over
// go-dateparser and the shared calendar-phrase resolver.
func New(opts ...Option) *Pipeline {
	s := &settings{
		location:     time.Local,
		clock:        time.Now,
		preferFuture: true,
		logger:       logging.NewNopLogger(),
		observer:     nopObserver{},
	}
	for _, opt := range opts {
		opt(s)
	}

	p := &Pipeline{
		courses:  s.courses,
		keywords: s.keywords,
		deadline: s.deadline,
		dates:    s.dates,
		logger:   s.logger.Named("pipeline"),
		observer: s.observer,
	}
	if p.courses == nil {
		p.courses = extractor.NewCourseExtractor(s.vocabulary)
	}
	if p.keywords == nil {
		p.keywords = extractor.NewKeywordExtractor(s.vocabulary)
	}
	if p.deadline == nil {
		p.deadline = extractor.NewDeadlineLocator(s.vocabulary, s.deadlineOpts...)
	}
	if p.dates == nil {
		p.dates = resolver.NewLadder(
			resolver.NewDateParser(),
			resolver.SharedCalendarPhrases(),
			resolver.WithLocation(s.location),
			resolver.WithClock(s.clock),
			resolver.WithPreferFuture(s.preferFuture),
			resolver.WithLogger(p.logger.Named("ladder")),
		)
	}
	return p
}

// Parse processes one text.
func (p *Pipeline) Parse(text string) (res *ParseResult) {
	start := time.Now()
	defer func() {
		if r := recover(); r != nil {
			err := fmt.Errorf("%w: %v", ErrPipelineFault, r)
			p.logger.Error("pipeline fault", logging.Err(err))
			res = failedResult(text, err)
		}
		p.observer.ObserveParse(res.ResolutionStrategy, time.Since(start), res.Failed())
	}()

	if strings.TrimSpace(text) == "" {
		p.logger.Warn("empty text provided")
		return failedResult(text, errEmptyInput)
	}

	res = emptyResult(text)
	res.CleanedText = normalizer.Normalize(text)
	cleaned := res.CleanedText

	p.stage(StageCourses, func() error {
		courses, err := p.courses.Extract(cleaned)
		if err != nil {
			return err
		}
		if courses != nil {
			res.Courses = courses
		}
		return nil
	})

	p.stage(StageKeywords, func() error {
		if kw := p.keywords.Extract(cleaned); kw != nil {
			res.Keywords = kw
		}
		return nil
	})

	var focused string
	p.stage(StageDeadline, func() error {
		d := p.deadline.Locate(cleaned)
		res.DeadlinePhrase = optionalString(d.Phrase)
		res.DeadlineFocused = optionalString(d.Focused)
		focused = d.Focused
		return nil
	})

	p.stage(StageResolve, func() error {
		r := p.dates.Resolve(cleaned, focused)
		if !r.Resolved() {
			return nil
		}
		t := r.Time.UTC()
		res.ResolvedDatetime = &t
		res.ResolutionStrategy = string(r.Strategy)
		return nil
	})

	return res
}

// ParseValue processes an arbitrary value. Anything but a string yields the
// type-mismatch failure with the value's display form as original text.
func (p *Pipeline) ParseValue(v any) *ParseResult {
	if s, ok := v.(string); ok {
		return p.Parse(s)
	}

	err := &InputError{Reason: fmt.Sprintf("invalid input type: expected string, got %T", v)}
	p.logger.Warn("non-string input", logging.String("type", fmt.Sprintf("%T", v)))
	res := failedResult(fmt.Sprint(v), err)
	p.observer.ObserveParse(res.ResolutionStrategy, 0, true)
	return res
}

// stage runs fn inside a recover boundary. A failure is logged and counted;
// whatever fn already wrote to the result stays, and callers only write
// after success, so a failed stage leaves its field empty.
func (p *Pipeline) stage(name string, fn func() error) {
	defer func() {
		if r := recover(); r != nil {
			sentinel := ErrExtraction
			if name == StageResolve {
				sentinel = ErrResolution
			}
			p.stageFailed(name, fmt.Errorf("%w: %s stage: %v", sentinel, name, r))
		}
	}()

	if err := fn(); err != nil {
		p.stageFailed(name, err)
	}
}

func (p *Pipeline) stageFailed(name string, err error) {
	p.logger.Warn("stage failed", logging.String("stage", name), logging.Err(err))
	p.observer.ObserveStageFailure(name)
}
