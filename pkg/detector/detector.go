// Package detector identifies the chat-export format of transcript files.
//
// It samples lines, scores each known message envelope by the share of
// lines it matches, and infers the day/month order used by the export's
// own timestamps.
package detector

import (
	"bufio"
	"context"
	"os"
	"sort"
	"strings"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/normalizer"
)

// DefaultSampleSize is the number of lines sampled when none is set.
const DefaultSampleSize = 100

// DetectionResult holds the result of analyzing a transcript.
type DetectionResult struct {
	Matches       []EnvelopeMatch // Envelopes that matched, sorted by confidence descending
	SampledLines  int             // Number of lines sampled
	MatchedLines  int             // Number of lines carrying the best envelope
	DateOrder     string          // Inferred timestamp order, empty if unknown
	AmbiguityNote string          // Warning about date ordering if applicable
}

// EnvelopeMatch represents an envelope that matched with its confidence score.
type EnvelopeMatch struct {
	Envelope   *normalizer.Envelope
	Confidence float64 // 0.0 to 1.0 (share of sampled lines matched)
	MatchCount int     // Number of lines that matched
	SampleLine string  // Example line that matched
}

// Detector analyzes transcripts to identify their export format.
type Detector struct {
	envelopes  []*normalizer.Envelope
	sampleSize int
}

// Option configures the Detector.
type Option func(*Detector)

// WithSampleSize sets the number of lines to sample (default 100).
func WithSampleSize(n int) Option {
	return func(d *Detector) {
		if n > 0 {
			d.sampleSize = n
		}
	}
}

// New creates a new Detector over the built-in envelope catalogue.
func New(opts ...Option) *Detector {
	d := &Detector{
		envelopes:  normalizer.Envelopes(),
		sampleSize: DefaultSampleSize,
	}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// DetectFromFile analyzes a transcript file and returns detected envelopes.
func (d *Detector) DetectFromFile(ctx context.Context, path string) (*DetectionResult, error) {
	lines, err := d.sampleFile(ctx, path)
	if err != nil {
		return nil, err
	}
	return d.DetectFromLines(lines), nil
}

// DetectFromLines analyzes a slice of transcript lines.
func (d *Detector) DetectFromLines(lines []string) *DetectionResult {
	result := &DetectionResult{}

	type envelopeStats struct {
		envelope   *normalizer.Envelope
		matchCount int
		sampleLine string
	}

	stats := make(map[string]*envelopeStats)
	votes := make(map[string]*orderVotes)

	for _, line := range lines {
		line = strings.TrimSpace(line)
		if line == "" {
			continue
		}
		result.SampledLines++

		// Envelopes are tested independently: a line can satisfy more than
		// one shape, and the ranking sorts that out.
		for _, env := range d.envelopes {
			prefix := env.Pattern.FindString(line)
			if prefix == "" {
				continue
			}

			s := stats[env.Name]
			if s == nil {
				s = &envelopeStats{envelope: env, sampleLine: line}
				stats[env.Name] = s
				votes[env.Name] = &orderVotes{}
			}
			s.matchCount++
			votes[env.Name].observe(prefix)
		}
	}

	if result.SampledLines == 0 {
		return result
	}

	for _, s := range stats {
		result.Matches = append(result.Matches, EnvelopeMatch{
			Envelope:   s.envelope,
			Confidence: float64(s.matchCount) / float64(result.SampledLines),
			MatchCount: s.matchCount,
			SampleLine: s.sampleLine,
		})
	}

	// Sort by confidence descending, then by pattern length (more specific first)
	sort.Slice(result.Matches, func(i, j int) bool {
		if result.Matches[i].Confidence != result.Matches[j].Confidence {
			return result.Matches[i].Confidence > result.Matches[j].Confidence
		}
		return len(result.Matches[i].Envelope.PatternStr) > len(result.Matches[j].Envelope.PatternStr)
	})

	if len(result.Matches) == 0 {
		return result
	}

	best := result.Matches[0]
	result.MatchedLines = best.MatchCount

	v := votes[best.Envelope.Name]
	result.DateOrder = v.decide()
	if result.DateOrder == "" && v.sawNumericDates() {
		result.AmbiguityNote = "Export timestamps do not settle the date ordering (MM/DD vs DD/MM). " +
			"Numeric deadlines such as 03/04 may resolve to the wrong day."
	}

	return result
}

// sampleFile reads up to sampleSize non-blank lines from a file.
func (d *Detector) sampleFile(ctx context.Context, path string) ([]string, error) {
	file, err := os.Open(path) // #nosec G304 -- path is provided by user via CLI
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var lines []string
	scanner := bufio.NewScanner(file)

	for scanner.Scan() && len(lines) < d.sampleSize {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if strings.TrimSpace(scanner.Text()) != "" {
			lines = append(lines, scanner.Text())
		}
	}

	if err := scanner.Err(); err != nil {
		return nil, err
	}

	return lines, nil
}

// BestMatch returns the highest confidence match, or nil if none found.
func (r *DetectionResult) BestMatch() *EnvelopeMatch {
	if len(r.Matches) == 0 {
		return nil
	}
	return &r.Matches[0]
}

// HasMatch returns true if at least one envelope matched.
func (r *DetectionResult) HasMatch() bool {
	return len(r.Matches) > 0
}
