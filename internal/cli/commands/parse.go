package commands

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/output"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/source"
)

// ParseOptions holds command-line options for the parse command.
type ParseOptions struct {
	Output  string
	Now     string
	Verbose bool
	Quiet   bool
}

// NewParseCommand creates the parse command.
func NewParseCommand(g *GlobalOptions) *cobra.Command {
	opts := &ParseOptions{}

	cmd := &cobra.Command{
		Use:   "parse [text...]",
		Short: "Extract courses, keywords and deadlines from messages",
		Long: `Parse one or more chat messages and report what was found.

Each argument is parsed as a separate message. With no arguments, every
non-blank line of standard input is parsed as a message.

Exit codes:
  0 - All messages parsed
  1 - At least one message could not be parsed
  2 - Configuration or runtime error

Example:
  acc parse "CSC101 assignment due next Friday"
  acc parse --now 2025-10-01T09:00:00Z -o json "quiz on 24/10/2025"
  cat messages.txt | acc parse -q`,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runParse(cmd, args, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "Resolve relative dates against this RFC 3339 time")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show cleaned text and the focused deadline span")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	return cmd
}

func runParse(cmd *cobra.Command, args []string, g *GlobalOptions, opts *ParseOptions) error {
	ctx := commandContext(cmd)
	start := time.Now()

	formatter, err := createFormatter(opts.Output, output.FormatOptions{Verbose: opts.Verbose, Quiet: opts.Quiet})
	if err != nil {
		return err
	}

	cfg, err := loadConfig(ctx, g)
	if err != nil {
		return err
	}
	logger, err := newLogger(cfg)
	if err != nil {
		return err
	}
	clock, err := clockOptions(opts.Now, cfg.Location())
	if err != nil {
		return err
	}

	var messages []source.Message
	if len(args) > 0 {
		for _, a := range args {
			messages = append(messages, source.Message{Text: a})
		}
	} else {
		src := source.NewReaderSource(cmd.InOrStdin(), "stdin")
		messages, err = source.ReadAll(ctx, src)
		if err != nil {
			return fmt.Errorf("reading stdin: %w", err)
		}
	}
	if len(messages) == 0 {
		return fmt.Errorf("no text to parse")
	}

	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
	}

	p := newPipeline(cfg, logger, clock...)
	results, err := p.ParseAll(ctx, texts, cfg.Limits.Workers)
	if err != nil {
		return fmt.Errorf("parse interrupted: %w", err)
	}

	report := output.NewReport(messages, results, output.Metadata{
		ConfigFile: g.ConfigPath,
		Duration:   time.Since(start),
	})
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	if report.Summary.Failed > 0 {
		ExitCode = 1
	}
	return nil
}
