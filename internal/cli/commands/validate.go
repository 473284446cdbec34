package commands

import (
	"context"
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/config"
)

// NewValidateCommand creates the validate command.
func NewValidateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "validate <config-file>",
		Short: "Validate a configuration file",
		Long: `Validate an ACC configuration file without parsing anything.

Checks:
  - YAML syntax
  - Time zone name
  - Limit values (focus_window must fit in deadline_context)
  - Server listen address
  - Log level and format
  - Webhook URLs and triggers`,
		Args: cobra.ExactArgs(1),
		RunE: runValidate,
	}
}

func runValidate(cmd *cobra.Command, args []string) error {
	configPath := args[0]
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	fmt.Printf("Validating %s...\n", configPath)

	cfg, err := config.Load(ctx, configPath)
	if err != nil {
		return fmt.Errorf("validation failed: %w", err)
	}

	workers := fmt.Sprint(cfg.Limits.Workers)
	if cfg.Limits.Workers == 0 {
		workers = "auto"
	}

	fmt.Printf("\nConfiguration valid!\n")
	fmt.Printf("  Timezone:      %s\n", cfg.Location())
	fmt.Printf("  Prefer future: %t\n", cfg.PreferFutureDates())
	fmt.Printf("  Limits:        context %d, focus %d, batch %d, workers %s\n",
		cfg.Limits.DeadlineContext, cfg.Limits.FocusWindow, cfg.Limits.MaxBatch, workers)
	fmt.Printf("  Listen:        %s\n", cfg.Server.ListenAddr)
	fmt.Printf("  Store:         %s\n", cfg.Store.Path)
	fmt.Printf("  Log:           %s (%s)\n", cfg.Log.Level, cfg.Log.Format)

	v := cfg.Vocabulary
	fmt.Printf("\nVocabulary:\n")
	fmt.Printf("  Keywords:      %d\n", len(v.Keywords))
	fmt.Printf("  Abbreviations: %d\n", len(v.Abbreviations))
	fmt.Printf("  Exclusions:    %d\n", len(v.Exclusions))
	fmt.Printf("  Triggers:      %s\n", strings.Join(v.Triggers, ", "))

	if len(cfg.Webhooks) > 0 {
		fmt.Printf("\nWebhooks:\n")
		for i, wh := range cfg.Webhooks {
			name := wh.Name
			if name == "" {
				name = wh.URL
			}
			fmt.Printf("  %d. %s [%s]\n", i+1, name, wh.Trigger)
		}
	}

	return nil
}
