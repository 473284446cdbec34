package commands

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/config"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/output"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/source"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/webhook"
)

// BatchOptions holds command-line options for the batch command.
type BatchOptions struct {
	Output  string
	Now     string
	Workers int
	Join    bool
	Verbose bool
	Quiet   bool

	// Webhook options
	WebhookURL     string
	WebhookToken   string
	WebhookTrigger string
}

// NewBatchCommand creates the batch command.
func NewBatchCommand(g *GlobalOptions) *cobra.Command {
	opts := &BatchOptions{}

	cmd := &cobra.Command{
		Use:   "batch <transcript>...",
		Short: "Parse every message in exported chat transcripts",
		Long: `Parse chat transcripts (files or glob patterns) message by message.

Each non-blank line is a message. With --join, lines without a chat-export
envelope are folded into the message above them.

The report can be posted to webhooks from the configuration file or from
--webhook-url.

Exit codes:
  0 - All messages parsed
  1 - At least one message could not be parsed
  2 - Configuration or runtime error`,
		Args: cobra.MinimumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runBatch(cmd, args, g, opts)
		},
	}

	cmd.Flags().StringVarP(&opts.Output, "output", "o", "text", "Output format (text|json)")
	cmd.Flags().StringVar(&opts.Now, "now", "", "Resolve relative dates against this RFC 3339 time")
	cmd.Flags().IntVarP(&opts.Workers, "workers", "w", 0, "Concurrent parsers (0 uses limits.workers)")
	cmd.Flags().BoolVar(&opts.Join, "join", false, "Fold envelope-less lines into the previous message")
	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show cleaned text and strategy breakdown")
	cmd.Flags().BoolVarP(&opts.Quiet, "quiet", "q", false, "Summary only, no details")

	// Webhook flags
	cmd.Flags().StringVar(&opts.WebhookURL, "webhook-url", "", "Webhook endpoint URL")
	cmd.Flags().StringVar(&opts.WebhookToken, "webhook-token", "", "Bearer token for webhook auth")
	cmd.Flags().StringVar(&opts.WebhookTrigger, "webhook-trigger", "on_deadlines", "When to fire webhook (on_deadlines|always|never)")

	return cmd
}

func runBatch(cmd *cobra.Command, args []string, g *GlobalOptions, opts *BatchOptions) error {
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

	files, err := source.ExpandGlobs(args)
	if err != nil {
		return fmt.Errorf("expanding transcripts: %w", err)
	}

	var srcOpts []source.Option
	if opts.Join {
		srcOpts = append(srcOpts, source.WithJoinContinuations())
	}
	src := source.NewFileSource(files, srcOpts...)
	defer src.Close()

	messages, err := source.ReadAll(ctx, src)
	if err != nil {
		return fmt.Errorf("reading transcripts: %w", err)
	}
	if len(messages) == 0 {
		return fmt.Errorf("no messages found in %v", files)
	}

	texts := make([]string, len(messages))
	for i, m := range messages {
		texts[i] = m.Text
	}

	workers := opts.Workers
	if workers <= 0 {
		workers = cfg.Limits.Workers
	}

	p := newPipeline(cfg, logger, clock...)
	results, err := p.ParseAll(ctx, texts, workers)
	if err != nil {
		return fmt.Errorf("batch interrupted: %w", err)
	}

	report := output.NewReport(messages, results, output.Metadata{
		ConfigFile: g.ConfigPath,
		Sources:    files,
		Duration:   time.Since(start),
	})
	if err := formatter.Format(ctx, report, os.Stdout); err != nil {
		return fmt.Errorf("formatting output: %w", err)
	}

	// Webhook failures are logged, they never fail the batch.
	sendWebhooks(ctx, cfg, opts, report, logger)

	if report.Summary.Failed > 0 {
		ExitCode = 1
	}
	return nil
}

// sendWebhooks posts the report to the configured and CLI webhooks.
func sendWebhooks(ctx context.Context, cfg *config.Config, opts *BatchOptions, report *output.Report, logger logging.Logger) map[string]*webhook.Response {
	hooks := collectWebhooks(cfg, opts)
	if len(hooks) == 0 {
		return nil
	}
	client := webhook.NewClient(webhook.WithLogger(logger.Named("webhook")))
	return client.Dispatch(ctx, hooks, report)
}

// collectWebhooks merges config file webhooks with the CLI webhook.
func collectWebhooks(cfg *config.Config, opts *BatchOptions) []config.WebhookConfig {
	webhooks := make([]config.WebhookConfig, 0, len(cfg.Webhooks)+1)
	webhooks = append(webhooks, cfg.Webhooks...)

	if opts.WebhookURL != "" {
		trigger := config.WebhookTrigger(opts.WebhookTrigger)
		if trigger == "" {
			trigger = config.WebhookTriggerOnDeadlines
		}

		webhooks = append(webhooks, config.WebhookConfig{
			Name:    "cli",
			URL:     opts.WebhookURL,
			Token:   opts.WebhookToken,
			Trigger: trigger,
			Timeout: config.DefaultWebhookTimeout,
		})
	}

	return webhooks
}
