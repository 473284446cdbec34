package pipeline

import (
	"context"
	"encoding/json"
	"errors"
	"reflect"
	"strings"
	"sync"
	"testing"
	"time"

	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/extractor"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/normalizer"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/resolver"
)

var fixedNow = time.Date(2025, 10, 1, 9, 0, 0, 0, time.UTC)

// stubResolver returns a fixed resolution and records its inputs.
type stubResolver struct {
	mu     sync.Mutex
	res    resolver.Resolution
	calls  [][2]string
	panics bool
}

func (s *stubResolver) Resolve(cleaned, focused string) resolver.Resolution {
	s.mu.Lock()
	s.calls = append(s.calls, [2]string{cleaned, focused})
	s.mu.Unlock()
	if s.panics {
		panic("resolver exploded")
	}
	if s.res.Strategy == "" {
		return resolver.Resolution{Strategy: resolver.StrategyNone}
	}
	return s.res
}

type panickingCourses struct{}

func (panickingCourses) Extract(string) ([]string, error) { panic("nil map write") }

type failingCourses struct{}

func (failingCourses) Extract(string) ([]string, error) {
	return nil, errors.New("pass broke")
}

type panickingDeadline struct{}

func (panickingDeadline) Locate(string) extractor.Deadline { panic("slice bounds") }

type recordingObserver struct {
	mu       sync.Mutex
	parses   []string
	failures []string
	failed   int
}

func (o *recordingObserver) ObserveParse(strategy string, _ time.Duration, failed bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.parses = append(o.parses, strategy)
	if failed {
		o.failed++
	}
}

func (o *recordingObserver) ObserveStageFailure(stage string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.failures = append(o.failures, stage)
}

func TestParse_Scenarios(t *testing.T) {
	p := New(WithDateResolver(&stubResolver{}))

	tests := []struct {
		name         string
		in           string
		wantCleaned  string
		wantCourses  []string
		wantKeywords []string
		wantFocused  string
	}{
		{
			name:         "two course codes",
			in:           "CSC101 and MATH201 exams",
			wantCleaned:  "CSC101 and MATH201 exams",
			wantCourses:  []string{"CSC101", "MATH201"},
			wantKeywords: []string{"exam"},
		},
		{
			name:         "spaced code and abbreviation",
			in:           "CE 382 HCI presentation",
			wantCleaned:  "CE 382 HCI presentation",
			wantCourses:  []string{"CE 382", "HCI"},
			wantKeywords: []string{"presentation"},
		},
		{
			name:         "chat export prefix",
			in:           "[10/24/25, 3:45 PM] John: CSC101 due tomorrow",
			wantCleaned:  "CSC101 due tomorrow",
			wantCourses:  []string{"CSC101"},
			wantKeywords: []string{"due"},
			wantFocused:  "tomorrow",
		},
		{
			name:         "distractor month",
			in:           "We are in the month of February 2025 and the deadline for the CSC101 project submission is 11:59pm today",
			wantCleaned:  "We are in the month of February 2025 and the deadline for the CSC101 project submission is 11:59pm today",
			wantCourses:  []string{"CSC101", "IS 11"},
			wantKeywords: []string{"project", "submission", "deadline"},
			wantFocused:  "11:59pm today",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := p.Parse(tt.in)
			if got.Error != "" {
				t.Fatalf("Parse(%q) error = %q", tt.in, got.Error)
			}
			if got.OriginalText != tt.in {
				t.Errorf("OriginalText = %q, want %q", got.OriginalText, tt.in)
			}
			if got.CleanedText != tt.wantCleaned {
				t.Errorf("CleanedText = %q, want %q", got.CleanedText, tt.wantCleaned)
			}
			if !reflect.DeepEqual(got.Courses, tt.wantCourses) {
				t.Errorf("Courses = %q, want %q", got.Courses, tt.wantCourses)
			}
			if !reflect.DeepEqual(got.Keywords, tt.wantKeywords) {
				t.Errorf("Keywords = %q, want %q", got.Keywords, tt.wantKeywords)
			}
			focused := ""
			if got.DeadlineFocused != nil {
				focused = *got.DeadlineFocused
			}
			if focused != tt.wantFocused {
				t.Errorf("DeadlineFocused = %q, want %q", focused, tt.wantFocused)
			}
		})
	}
}

func TestParse_ExplicitDateEndToEnd(t *testing.T) {
	p := New(WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))

	got := p.Parse("final exam 2025-11-15 at 2:00pm")
	if got.Error != "" {
		t.Fatalf("Parse() error = %q", got.Error)
	}
	if !resolver.Strategy(got.ResolutionStrategy).Explicit() {
		t.Errorf("ResolutionStrategy = %q, want an explicit strategy", got.ResolutionStrategy)
	}
	if got.ResolvedDatetime == nil {
		t.Fatal("ResolvedDatetime = nil")
	}
	if y, m, d := got.ResolvedDatetime.Date(); y != 2025 || m != time.November || d != 15 {
		t.Errorf("ResolvedDatetime = %v, want date 2025-11-15", got.ResolvedDatetime)
	}
	if got.ResolvedDatetime.Location() != time.UTC {
		t.Errorf("ResolvedDatetime zone = %v, want UTC", got.ResolvedDatetime.Location())
	}
}

func TestParse_CalendarPhraseUsesClock(t *testing.T) {
	p := New(WithClock(func() time.Time { return fixedNow }), WithLocation(time.UTC))

	got := p.Parse("project meeting next monday 3pm")
	if got.Error != "" {
		t.Fatalf("Parse() error = %q", got.Error)
	}
	if got.ResolutionStrategy != string(resolver.StrategyCalendarFull) {
		t.Errorf("ResolutionStrategy = %q, want %q", got.ResolutionStrategy, resolver.StrategyCalendarFull)
	}
	if got.ResolvedDatetime == nil {
		t.Fatal("ResolvedDatetime = nil")
	}
	at := *got.ResolvedDatetime
	if at.Before(fixedNow) || at.After(fixedNow.AddDate(0, 0, 14)) {
		t.Errorf("ResolvedDatetime = %v, want within two weeks of %v", at, fixedNow)
	}
	if at.Weekday() != time.Monday || at.Hour() != 15 {
		t.Errorf("ResolvedDatetime = %v, want a Monday at 15:00", at)
	}
}

func TestParse_EmptyInput(t *testing.T) {
	for _, in := range []string{"", "   \n\t"} {
		stub := &stubResolver{}
		got := New(WithDateResolver(stub)).Parse(in)

		if got.Error != "empty input text" {
			t.Errorf("Parse(%q).Error = %q, want %q", in, got.Error, "empty input text")
		}
		if !errors.Is(got.Err(), ErrInvalidInput) {
			t.Errorf("Parse(%q).Err() = %v, want ErrInvalidInput", in, got.Err())
		}
		if got.OriginalText != in {
			t.Errorf("OriginalText = %q, want %q", got.OriginalText, in)
		}
		assertEmptyFields(t, got)
		if len(stub.calls) != 0 {
			t.Errorf("resolver called %d times for empty input", len(stub.calls))
		}
	}
}

func TestParseValue_NonString(t *testing.T) {
	p := New(WithDateResolver(&stubResolver{}))

	tests := []struct {
		in           any
		wantOriginal string
		wantError    string
	}{
		{42, "42", "invalid input type: expected string, got int"},
		{3.5, "3.5", "invalid input type: expected string, got float64"},
		{nil, "<nil>", "invalid input type: expected string, got <nil>"},
		{[]string{"a"}, "[a]", "invalid input type: expected string, got []string"},
	}

	for _, tt := range tests {
		got := p.ParseValue(tt.in)
		if got.OriginalText != tt.wantOriginal {
			t.Errorf("ParseValue(%v).OriginalText = %q, want %q", tt.in, got.OriginalText, tt.wantOriginal)
		}
		if got.Error != tt.wantError {
			t.Errorf("ParseValue(%v).Error = %q, want %q", tt.in, got.Error, tt.wantError)
		}
		if !errors.Is(got.Err(), ErrInvalidInput) {
			t.Errorf("ParseValue(%v).Err() = %v, want ErrInvalidInput", tt.in, got.Err())
		}
		assertEmptyFields(t, got)
	}

	if got := p.ParseValue("CSC101 quiz"); got.Error != "" || len(got.Courses) != 1 {
		t.Errorf("ParseValue(string) = %+v, want normal parse", got)
	}
}

func TestParse_ResolutionCopied(t *testing.T) {
	wat := time.FixedZone("WAT", 3600)
	stub := &stubResolver{res: resolver.Resolution{
		Time:     time.Date(2025, 10, 2, 18, 0, 0, 0, wat),
		Strategy: resolver.StrategyDeadlineFlexible,
	}}
	got := New(WithDateResolver(stub)).Parse("[2025-10-01 08:00] Ada: HCI essay due tomorrow at 6pm")

	if got.ResolutionStrategy != "deadline-dateparser" {
		t.Errorf("ResolutionStrategy = %q", got.ResolutionStrategy)
	}
	if got.ResolvedDatetime == nil || got.ResolvedDatetime.Location() != time.UTC || got.ResolvedDatetime.Hour() != 17 {
		t.Errorf("ResolvedDatetime = %v, want 17:00 UTC", got.ResolvedDatetime)
	}
	if len(stub.calls) != 1 {
		t.Fatalf("resolver called %d times, want 1", len(stub.calls))
	}
	if stub.calls[0] != [2]string{"HCI essay due tomorrow at 6pm", "tomorrow at 6pm"} {
		t.Errorf("resolver got %q", stub.calls[0])
	}
}

func TestParse_StageFaultsAreIsolated(t *testing.T) {
	core, logs := observer.New(zapcore.WarnLevel)
	obs := &recordingObserver{}
	p := New(
		WithCourseFinder(panickingCourses{}),
		WithDeadlineFinder(panickingDeadline{}),
		WithDateResolver(&stubResolver{panics: true}),
		WithLogger(logging.NewLoggerFromCore(core)),
		WithObserver(obs),
	)

	got := p.Parse("CSC101 quiz due Friday")
	if got.Error != "" {
		t.Fatalf("stage faults must not set Error, got %q", got.Error)
	}
	if got.Courses == nil || len(got.Courses) != 0 {
		t.Errorf("Courses = %q, want empty", got.Courses)
	}
	if !reflect.DeepEqual(got.Keywords, []string{"quiz", "due"}) {
		t.Errorf("Keywords = %q, want [quiz due]", got.Keywords)
	}
	if got.DeadlinePhrase != nil || got.DeadlineFocused != nil {
		t.Errorf("deadline fields should be absent after a fault")
	}
	if got.ResolutionStrategy != "none" || got.ResolvedDatetime != nil {
		t.Errorf("resolution = %q %v, want none", got.ResolutionStrategy, got.ResolvedDatetime)
	}

	wantStages := []string{StageCourses, StageDeadline, StageResolve}
	if !reflect.DeepEqual(obs.failures, wantStages) {
		t.Errorf("stage failures = %q, want %q", obs.failures, wantStages)
	}
	if logs.FilterMessage("stage failed").Len() != 3 {
		t.Errorf("stage failed logs = %d, want 3", logs.FilterMessage("stage failed").Len())
	}
}

func TestParse_CourseErrorDegradesField(t *testing.T) {
	got := New(WithCourseFinder(failingCourses{}), WithDateResolver(&stubResolver{})).Parse("CSC101 exam")
	if got.Courses == nil || len(got.Courses) != 0 {
		t.Errorf("Courses = %q, want empty non-nil", got.Courses)
	}
	if !reflect.DeepEqual(got.Keywords, []string{"exam"}) {
		t.Errorf("Keywords = %q", got.Keywords)
	}
}

func TestParse_Properties(t *testing.T) {
	p := New(WithDateResolver(&stubResolver{res: resolver.Resolution{
		Time:     fixedNow,
		Strategy: resolver.StrategyFlexibleFull,
	}}))

	inputs := []string{
		"CE 382, ce382 and CE382 quiz",
		"  [10/24/25, 3:45 PM] John:   HCI   and hci DUE “tomorrow”  ",
		"John Doe, [24.10.25 15:45]: [Forwarded from Jane] MATH 201 lab",
		"nothing here",
		"¿Dónde está el examen?",
	}

	for _, in := range inputs {
		got := p.Parse(in)
		if got.OriginalText != in {
			t.Errorf("OriginalText = %q, want %q", got.OriginalText, in)
		}
		seen := map[string]bool{}
		for _, c := range got.Courses {
			k := strings.ToUpper(strings.ReplaceAll(c, " ", ""))
			if seen[k] {
				t.Errorf("Parse(%q) duplicate course %q in %q", in, c, got.Courses)
			}
			seen[k] = true
		}
		if got.Resolved() != (got.ResolutionStrategy != "none") {
			t.Errorf("Parse(%q) strategy %q inconsistent with %v", in, got.ResolutionStrategy, got.ResolvedDatetime)
		}
		if got.Resolved() && got.ResolvedDatetime.Location() != time.UTC {
			t.Errorf("Parse(%q) zone = %v", in, got.ResolvedDatetime.Location())
		}
		if again := normalizer.Normalize(got.CleanedText); again != got.CleanedText {
			t.Errorf("cleaned text not a fixed point: %q -> %q", got.CleanedText, again)
		}
	}
}

func TestParseResult_JSON(t *testing.T) {
	got := New(WithDateResolver(&stubResolver{})).Parse("hello")
	data, err := json.Marshal(got)
	if err != nil {
		t.Fatalf("Marshal() error = %v", err)
	}

	var m map[string]any
	if err := json.Unmarshal(data, &m); err != nil {
		t.Fatalf("Unmarshal() error = %v", err)
	}
	for _, key := range []string{"deadline_phrase", "deadline_focused", "resolved_datetime"} {
		v, ok := m[key]
		if !ok || v != nil {
			t.Errorf("%s = %v (present %v), want null", key, v, ok)
		}
	}
	if _, ok := m["error"]; ok {
		t.Error("error key should be omitted on success")
	}
	if courses, ok := m["courses"].([]any); !ok || len(courses) != 0 {
		t.Errorf("courses = %v, want []", m["courses"])
	}
}

func TestParseBatch(t *testing.T) {
	obs := &recordingObserver{}
	p := New(WithDateResolver(&stubResolver{}), WithObserver(obs))

	inputs := []any{"CSC101 exam", 7, "", "HCI lab due Monday", "MATH201 quiz"}
	got, err := p.ParseBatch(context.Background(), inputs, 2)
	if err != nil {
		t.Fatalf("ParseBatch() error = %v", err)
	}
	if len(got) != len(inputs) {
		t.Fatalf("got %d results, want %d", len(got), len(inputs))
	}

	wantOriginal := []string{"CSC101 exam", "7", "", "HCI lab due Monday", "MATH201 quiz"}
	for i, r := range got {
		if r.OriginalText != wantOriginal[i] {
			t.Errorf("result %d OriginalText = %q, want %q", i, r.OriginalText, wantOriginal[i])
		}
	}
	if got[1].Error == "" || got[2].Error == "" {
		t.Error("non-string and empty inputs should carry errors")
	}
	if got[3].DeadlineFocused == nil || *got[3].DeadlineFocused != "Monday" {
		t.Errorf("result 3 focused = %v", got[3].DeadlineFocused)
	}
	if obs.failed != 2 || len(obs.parses) != len(inputs) {
		t.Errorf("observer saw %d parses, %d failed", len(obs.parses), obs.failed)
	}
}

func TestParseBatch_Cancelled(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	got, err := New(WithDateResolver(&stubResolver{})).ParseAll(ctx, []string{"a", "b", "c"}, 1)
	if !errors.Is(err, context.Canceled) {
		t.Errorf("ParseAll() error = %v, want context.Canceled", err)
	}
	for i, r := range got {
		if r == nil {
			t.Fatalf("result %d is nil", i)
		}
		if r.Error == "" {
			t.Errorf("result %d should carry the cancellation", i)
		}
		if !errors.Is(r.Err(), ErrPipelineFault) {
			t.Errorf("result %d Err() = %v, want ErrPipelineFault", i, r.Err())
		}
	}
}

func TestParseBatch_Empty(t *testing.T) {
	got, err := New(WithDateResolver(&stubResolver{})).ParseBatch(context.Background(), nil, 4)
	if err != nil || len(got) != 0 {
		t.Errorf("ParseBatch(nil) = %v, %v", got, err)
	}
}

func assertEmptyFields(t *testing.T, r *ParseResult) {
	t.Helper()
	if r.CleanedText != "" {
		t.Errorf("CleanedText = %q, want empty", r.CleanedText)
	}
	if r.Courses == nil || len(r.Courses) != 0 {
		t.Errorf("Courses = %v, want empty non-nil", r.Courses)
	}
	if r.Keywords == nil || len(r.Keywords) != 0 {
		t.Errorf("Keywords = %v, want empty non-nil", r.Keywords)
	}
	if r.DeadlinePhrase != nil || r.DeadlineFocused != nil || r.ResolvedDatetime != nil {
		t.Error("optional fields should be absent")
	}
	if r.ResolutionStrategy != "none" {
		t.Errorf("ResolutionStrategy = %q, want none", r.ResolutionStrategy)
	}
}
