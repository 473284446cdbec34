// Package cli provides the command-line interface for acc.
package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/cli/commands"
)

// Execute runs the root command and returns the exit code.
func Execute() int {
	rootCmd := NewRootCommand()

	if err := rootCmd.Execute(); err != nil {
		// SilenceErrors keeps Cobra from printing this itself.
		_, _ = fmt.Fprintf(os.Stderr, "Error: %v\n", err)
		return 2 // Configuration or runtime error
	}
	return commands.ExitCode
}

// NewRootCommand creates the root cobra command.
func NewRootCommand() *cobra.Command {
	g := &commands.GlobalOptions{}

	rootCmd := &cobra.Command{
		Use:   "acc",
		Short: "Find courses and deadlines in student chat messages",
		Long: `acc (Academic Calendar Core) turns informal chat messages into structured
academic tasks.

For each message it:
  - Strips chat-export envelopes and normalizes the text
  - Finds course identifiers (CSC101, DSA, "Data Structures assignment")
  - Finds academic keywords (exam, quiz, submission, ...)
  - Locates the deadline phrase after words like "due" or "deadline"
  - Resolves it to a date and time ("next Friday 5pm", "24/10/2025")

Run it once over text or transcripts, or serve it as an HTTP API with a
task store.`,
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	rootCmd.PersistentFlags().StringVarP(&g.ConfigPath, "config", "c", "", "Configuration file (built-in defaults when empty)")
	rootCmd.PersistentFlags().StringVar(&g.LogLevel, "log-level", "", "Override log level (debug|info|warn|error)")

	rootCmd.AddCommand(commands.NewParseCommand(g))
	rootCmd.AddCommand(commands.NewBatchCommand(g))
	rootCmd.AddCommand(commands.NewServeCommand(g))
	rootCmd.AddCommand(commands.NewDetectCommand())
	rootCmd.AddCommand(commands.NewDiagnoseCommand())
	rootCmd.AddCommand(commands.NewValidateCommand())
	rootCmd.AddCommand(commands.NewVersionCommand())

	return rootCmd
}
