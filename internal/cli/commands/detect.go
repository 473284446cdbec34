package commands

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/detector"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/normalizer"
)

// DetectOptions holds command-line options for the detect command.
type DetectOptions struct {
	Output      string
	SampleSize  int
	ShowAll     bool
	WriteConfig string
}

// NewDetectCommand creates the detect command.
func NewDetectCommand() *cobra.Command {
	opts := &DetectOptions{}

	cmd := &cobra.Command{
		Use:   "detect <transcript>",
		Short: "Detect the chat-export format of a transcript",
		Long: `Analyze a transcript to identify the chat-export envelope its lines carry.

Samples lines from the file and tests them against the known envelopes
(WhatsApp bracketed and dash exports, ISO-stamped and sender-bracketed
copies, forwarded-message banners). Reports the best match with a confidence score,
shows how a sample line is cleaned, and infers whether the export writes
dates day-first or month-first.

Optionally generates a starter config file with --write-config.

Example:
  acc detect chat.txt
  acc detect --sample 500 chat.txt
  acc detect --write-config acc.yaml chat.txt`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDetect(cmd, args, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().IntVarP(&opts.SampleSize, "sample", "n", detector.DefaultSampleSize, "Number of lines to sample")
	cmd.Flags().BoolVar(&opts.ShowAll, "all", false, "Show all detected envelopes, not just the best match")
	cmd.Flags().StringVarP(&opts.WriteConfig, "write-config", "w", "", "Write starter config to file (will not overwrite)")

	return cmd
}

func runDetect(cmd *cobra.Command, args []string, opts *DetectOptions) error {
	transcript := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	if _, err := os.Stat(transcript); os.IsNotExist(err) {
		return fmt.Errorf("transcript not found: %s", transcript)
	}

	d := detector.New(detector.WithSampleSize(opts.SampleSize))

	result, err := d.DetectFromFile(ctx, transcript)
	if err != nil {
		return fmt.Errorf("detection failed: %w", err)
	}

	if opts.WriteConfig != "" {
		if err := writeStarterConfig(result, transcript, opts.WriteConfig); err != nil {
			return err
		}
	}

	switch opts.Output {
	case "json":
		return outputDetectJSON(result, transcript, opts)
	default:
		return outputDetectText(result, transcript, opts)
	}
}

func outputDetectText(result *detector.DetectionResult, transcript string, opts *DetectOptions) error {
	fmt.Println("=== Chat Export Detection ===")
	fmt.Println()
	fmt.Printf("File: %s\n", transcript)
	fmt.Printf("Lines sampled: %d\n", result.SampledLines)
	fmt.Printf("Lines with envelope: %d\n", result.MatchedLines)
	fmt.Println()

	if !result.HasMatch() {
		fmt.Println("No chat-export envelope detected.")
		fmt.Println()
		fmt.Println("Tip: Plain messages need no envelope and parse as they are.")
		fmt.Println("Use 'acc batch' directly on this file.")
		return nil
	}

	best := result.BestMatch()
	fmt.Printf("Detected Envelope: %s\n", best.Envelope.Name)
	fmt.Printf("Confidence: %.1f%% (%d/%d lines matched)\n",
		best.Confidence*100, best.MatchCount, result.SampledLines)
	fmt.Println()
	fmt.Printf("Sample match:\n  %s\n", best.SampleLine)
	fmt.Printf("Cleaned as:\n  %s\n", normalizer.Normalize(best.SampleLine))
	fmt.Println()

	if result.DateOrder != "" {
		fmt.Printf("Date order: %s\n", result.DateOrder)
		fmt.Println()
	}
	if result.AmbiguityNote != "" {
		fmt.Printf("Note: %s\n", result.AmbiguityNote)
		fmt.Println()
	}

	if opts.ShowAll && len(result.Matches) > 1 {
		fmt.Println("--- Alternative envelopes detected ---")
		for i, m := range result.Matches[1:] {
			fmt.Printf("%d. %s (%.1f%% confidence)\n", i+2, m.Envelope.Name, m.Confidence*100)
			fmt.Printf("   pattern: '%s'\n", m.Envelope.PatternStr)
		}
		fmt.Println()
	}

	return nil
}

// JSONMatch represents an envelope match in JSON output.
type JSONMatch struct {
	Name       string  `json:"name"`
	Pattern    string  `json:"pattern"`
	Confidence float64 `json:"confidence"`
	MatchCount int     `json:"match_count"`
	SampleLine string  `json:"sample_line"`
	Cleaned    string  `json:"cleaned"`
}

// JSONOutput represents the full JSON output.
type JSONOutput struct {
	File          string      `json:"file"`
	Matches       []JSONMatch `json:"matches"`
	SampledLines  int         `json:"sampled_lines"`
	MatchedLines  int         `json:"matched_lines"`
	DateOrder     string      `json:"date_order,omitempty"`
	AmbiguityNote string      `json:"ambiguity_note,omitempty"`
}

func outputDetectJSON(result *detector.DetectionResult, transcript string, opts *DetectOptions) error {
	out := JSONOutput{
		File:          transcript,
		SampledLines:  result.SampledLines,
		MatchedLines:  result.MatchedLines,
		DateOrder:     result.DateOrder,
		AmbiguityNote: result.AmbiguityNote,
		Matches:       make([]JSONMatch, 0),
	}

	matches := result.Matches
	if !opts.ShowAll && len(matches) > 1 {
		matches = matches[:1]
	}

	for _, m := range matches {
		out.Matches = append(out.Matches, JSONMatch{
			Name:       m.Envelope.Name,
			Pattern:    m.Envelope.PatternStr,
			Confidence: m.Confidence,
			MatchCount: m.MatchCount,
			SampleLine: m.SampleLine,
			Cleaned:    normalizer.Normalize(m.SampleLine),
		})
	}

	encoder := json.NewEncoder(os.Stdout)
	encoder.SetIndent("", "  ")
	return encoder.Encode(out)
}

// writeStarterConfig generates a starter config file for the transcript.
func writeStarterConfig(result *detector.DetectionResult, transcript, configPath string) error {
	if _, err := os.Stat(configPath); err == nil {
		return fmt.Errorf("config file already exists: %s (will not overwrite)", configPath)
	}

	content := generateStarterConfig(transcript, result)

	// #nosec G306 - config file doesn't need restrictive permissions
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}

	fmt.Printf("Wrote starter config to: %s\n\n", configPath)
	return nil
}

// generateStarterConfig creates a YAML config template.
func generateStarterConfig(transcript string, result *detector.DetectionResult) string {
	envelope := "none (plain messages)"
	if best := result.BestMatch(); best != nil {
		envelope = fmt.Sprintf("%s (%.0f%% confidence)", best.Envelope.Name, best.Confidence*100)
	}
	order := result.DateOrder
	if order == "" {
		order = "unknown"
	}

	return fmt.Sprintf(`# ACC Configuration
# Generated by: acc detect %s
# Detected envelope: %s
# Export date order: %s

# Zone used for "today", "tomorrow" and weekday names.
timezone: Local
prefer_future: true

limits:
  deadline_context: 150
  focus_window: 100
  max_batch: 100
  workers: 0

server:
  listen_addr: ":5000"
  cors_origins: ["*"]

store:
  path: tasks.db

log:
  level: info
  format: json

# Extend the built-in word lists (omitted lists keep their defaults):
# vocabulary:
#   abbreviations: [DSA, OS, HCI]
#   triggers: [deadline, due, submit, submission, hand in]

# Post batch reports somewhere:
# webhooks:
#   - name: planner
#     url: https://example.com/hooks/acc
#     token: ${ACC_WEBHOOK_TOKEN}
#     trigger: on_deadlines
`, transcript, envelope, order)
}
