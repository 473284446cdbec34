package commands

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/config"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/output"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/pipeline"
)

// ExitCode is set by commands to indicate the result
var ExitCode = 0

// GlobalOptions holds flags shared by every command.
type GlobalOptions struct {
	ConfigPath string
	LogLevel   string
}

func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}

// loadConfig reads the --config file, or the built-in defaults when none
// was given, and applies the --log-level override.
func loadConfig(ctx context.Context, g *GlobalOptions) (*config.Config, error) {
	cfg, err := config.LoadOrDefault(ctx, g.ConfigPath)
	if err != nil {
		return nil, fmt.Errorf("loading config: %w", err)
	}
	if g.LogLevel != "" {
		cfg.Log.Level = g.LogLevel
	}
	return cfg, nil
}

func newLogger(cfg *config.Config) (logging.Logger, error) {
	logger, err := logging.NewLogger(cfg.Log)
	if err != nil {
		return nil, fmt.Errorf("creating logger: %w", err)
	}
	logging.SetDefault(logger)
	return logger, nil
}

// newPipeline builds the parse pipeline described by cfg.
func newPipeline(cfg *config.Config, logger logging.Logger, extra ...pipeline.Option) *pipeline.Pipeline {
	opts := []pipeline.Option{
		pipeline.WithVocabulary(cfg.Vocabulary),
		pipeline.WithLimits(cfg.Limits.DeadlineContext, cfg.Limits.FocusWindow),
		pipeline.WithLocation(cfg.Location()),
		pipeline.WithPreferFuture(cfg.PreferFutureDates()),
		pipeline.WithLogger(logger),
	}
	return pipeline.New(append(opts, extra...)...)
}

// clockOptions pins "now" when --now is set.
func clockOptions(now string, loc *time.Location) ([]pipeline.Option, error) {
	if now == "" {
		return nil, nil
	}
	t, err := time.ParseInLocation(time.RFC3339, now, loc)
	if err != nil {
		return nil, fmt.Errorf("invalid --now %q (use RFC 3339, e.g. 2025-10-01T09:00:00Z): %w", now, err)
	}
	return []pipeline.Option{pipeline.WithClock(func() time.Time { return t })}, nil
}

func createFormatter(name string, opts output.FormatOptions) (output.Formatter, error) {
	f, ok := output.NewFormatter(name, opts)
	if !ok {
		return nil, fmt.Errorf("unknown output format %q (use text or json)", name)
	}
	return f, nil
}
