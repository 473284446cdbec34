package commands

import (
	"context"
	"fmt"
	"net/http"
	"net/url"
	"os"
	"path/filepath"
	"slices"
	"strings"
	"time"

	"github.com/ACC-Eagle-Force/nlp-preprocessing/internal/store"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/config"
	"github.com/ACC-Eagle-Force/nlp-preprocessing/pkg/logging"

	"github.com/spf13/cobra"
)

// smokeText exercises every extraction stage with an explicit date.
const smokeText = "CSC101 assignment due 2025-10-24"

// DiagnoseOptions holds options for the diagnose command
type DiagnoseOptions struct {
	Verbose bool
}

// DiagnosticResult represents the result of a single diagnostic check
type DiagnosticResult struct {
	Check    string
	Status   string // "ok", "warning", "error"
	Message  string
	Details  []string
	Suggests []string
}

// NewDiagnoseCommand creates the diagnose command
func NewDiagnoseCommand() *cobra.Command {
	opts := &DiagnoseOptions{}

	cmd := &cobra.Command{
		Use:   "diagnose <config-file>",
		Short: "Diagnose common configuration issues",
		Long: `Diagnose common configuration issues.

This command checks your configuration file for common problems:
- Config file syntax and structure
- Time zone resolution
- A sample message through the configured pipeline
- Task database accessibility
- Webhook settings

Example:
  acc diagnose acc.yaml
  acc diagnose -v acc.yaml  # verbose output`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runDiagnose(commandContext(cmd), args[0], opts)
		},
	}

	cmd.Flags().BoolVarP(&opts.Verbose, "verbose", "v", false, "Show detailed diagnostic output")

	return cmd
}

func runDiagnose(ctx context.Context, configPath string, opts *DiagnoseOptions) error {
	results := []DiagnosticResult{}

	result := checkConfigExists(configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(results, opts)
		return nil
	}

	cfg, result := checkConfigParseable(ctx, configPath)
	results = append(results, result)
	if result.Status == "error" {
		printDiagnostics(results, opts)
		return nil
	}

	results = append(results, checkTimezone(cfg))
	results = append(results, checkPipeline(cfg, opts))
	results = append(results, checkStore(ctx, cfg))
	results = append(results, checkWebhooks(cfg, opts)...)

	printDiagnostics(results, opts)
	return nil
}

func checkConfigExists(path string) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Config File",
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		result.Status = "error"
		result.Message = fmt.Sprintf("Config file not found: %s", path)
		result.Suggests = []string{
			"Check the file path is correct",
			"Use 'acc detect <transcript> --write-config acc.yaml' to generate a starter config",
		}
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access config file: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "Path is a directory, not a file"
		return result
	}
	if info.Size() == 0 {
		result.Status = "error"
		result.Message = "Config file is empty"
		result.Suggests = []string{
			"Use 'acc detect <transcript> --write-config acc.yaml' to generate a starter config",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Found: %s (%d bytes)", path, info.Size())
	return result
}

func checkConfigParseable(ctx context.Context, path string) (*config.Config, DiagnosticResult) {
	result := DiagnosticResult{
		Check: "Config Syntax",
	}

	cfg, err := config.Load(ctx, path)
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Failed to parse config: %v", err)
		switch {
		case strings.Contains(err.Error(), "yaml"):
			result.Suggests = []string{
				"Check YAML syntax - ensure proper indentation (use spaces, not tabs)",
			}
		case strings.Contains(err.Error(), "timezone"):
			result.Suggests = []string{
				"Use an IANA zone name such as Europe/London or America/New_York",
			}
		}
		return nil, result
	}

	result.Status = "ok"
	result.Message = "Config file parsed successfully"
	result.Details = []string{
		fmt.Sprintf("Keywords: %d", len(cfg.Vocabulary.Keywords)),
		fmt.Sprintf("Triggers: %d", len(cfg.Vocabulary.Triggers)),
		fmt.Sprintf("Webhooks: %d", len(cfg.Webhooks)),
	}
	return cfg, result
}

func checkTimezone(cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Timezone",
	}

	loc := cfg.Location()
	now := time.Now().In(loc)
	if loc == time.Local {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Using the host zone (%s)", now.Format("MST -07:00"))
		result.Suggests = []string{
			"Set timezone so relative dates do not depend on where acc runs",
		}
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("%s (now %s)", loc, now.Format("2006-01-02 15:04 MST"))
	return result
}

// checkPipeline parses a fixed message through the configured pipeline.
func checkPipeline(cfg *config.Config, opts *DiagnoseOptions) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Pipeline",
	}

	p := newPipeline(cfg, logging.NewNopLogger())
	res := p.Parse(smokeText)

	var problems []string
	if res.Failed() {
		problems = append(problems, "Parse failed: "+res.Error)
	}
	if !slices.Contains(res.Courses, "CSC101") {
		problems = append(problems, "Course code CSC101 not found")
	}
	if res.DeadlinePhrase == nil {
		problems = append(problems, "No deadline phrase after 'due'")
	}
	if !res.Resolved() {
		problems = append(problems, "Explicit date 2025-10-24 not resolved")
	}

	details := []string{
		fmt.Sprintf("Input: %s", smokeText),
		fmt.Sprintf("Courses: %v", res.Courses),
		fmt.Sprintf("Keywords: %v", res.Keywords),
		fmt.Sprintf("Strategy: %s", res.ResolutionStrategy),
	}

	if len(problems) > 0 {
		result.Status = "warning"
		result.Message = fmt.Sprintf("%d problem(s) parsing a sample message", len(problems))
		result.Details = append(problems, details...)
		result.Suggests = []string{
			"Check the vocabulary section; custom triggers replace the defaults",
		}
		return result
	}

	result.Status = "ok"
	result.Message = "Sample message parsed and resolved"
	if opts.Verbose {
		result.Details = details
	}
	return result
}

func checkStore(ctx context.Context, cfg *config.Config) DiagnosticResult {
	result := DiagnosticResult{
		Check: "Task Store",
	}

	path := cfg.Store.Path
	if path == store.MemoryPath {
		result.Status = "warning"
		result.Message = "In-memory store: tasks are lost when the server stops"
		return result
	}

	info, err := os.Stat(path)
	if os.IsNotExist(err) {
		dir := filepath.Dir(path)
		if _, derr := os.Stat(dir); derr != nil {
			result.Status = "warning"
			result.Message = fmt.Sprintf("Database and its directory do not exist yet: %s", path)
			result.Suggests = []string{"The directory is created on first 'acc serve'"}
			return result
		}
		result.Status = "ok"
		result.Message = fmt.Sprintf("Database will be created at %s", path)
		return result
	}
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot access database: %v", err)
		result.Suggests = []string{"Check file permissions"}
		return result
	}
	if info.IsDir() {
		result.Status = "error"
		result.Message = "store.path is a directory, not a file"
		return result
	}

	st, err := store.NewStore(store.Config{DBPath: path})
	if err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Cannot open database: %v", err)
		result.Suggests = []string{"Check that the file is an SQLite database"}
		return result
	}
	defer st.Close()

	if err := st.Ping(ctx); err != nil {
		result.Status = "error"
		result.Message = fmt.Sprintf("Database not reachable: %v", err)
		return result
	}

	pending, err := st.List(ctx, store.StatusPending)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Database opened but tasks could not be listed: %v", err)
		return result
	}

	result.Status = "ok"
	result.Message = fmt.Sprintf("Database ready (%d pending task(s))", len(pending))
	return result
}

func printDiagnostics(results []DiagnosticResult, opts *DiagnoseOptions) {
	fmt.Println("=== ACC Configuration Diagnostics ===")
	fmt.Println()

	okCount := 0
	warnCount := 0
	errCount := 0

	for _, r := range results {
		var icon string
		switch r.Status {
		case "ok":
			icon = "PASS"
			okCount++
		case "warning":
			icon = "WARN"
			warnCount++
		case "error":
			icon = "FAIL"
			errCount++
		}

		fmt.Printf("[%s] %s\n", icon, r.Check)
		fmt.Printf("    %s\n", r.Message)

		if opts.Verbose || r.Status != "ok" {
			for _, d := range r.Details {
				fmt.Printf("      - %s\n", d)
			}
		}

		for _, s := range r.Suggests {
			fmt.Printf("      Hint: %s\n", s)
		}

		fmt.Println()
	}

	fmt.Println("---")
	fmt.Printf("Summary: %d passed, %d warnings, %d errors\n", okCount, warnCount, errCount)

	if errCount > 0 {
		fmt.Println("\nFix the errors above before running acc.")
	} else if warnCount > 0 {
		fmt.Println("\nConfiguration is usable but has warnings.")
	} else {
		fmt.Println("\nConfiguration looks good!")
	}
}

func checkWebhooks(cfg *config.Config, opts *DiagnoseOptions) []DiagnosticResult {
	results := []DiagnosticResult{}

	if len(cfg.Webhooks) == 0 {
		if opts.Verbose {
			results = append(results, DiagnosticResult{
				Check:   "Webhooks",
				Status:  "ok",
				Message: "No webhooks configured (optional)",
			})
		}
		return results
	}

	for _, wh := range cfg.Webhooks {
		name := wh.Name
		if name == "" {
			name = wh.URL
		}

		result := DiagnosticResult{
			Check: fmt.Sprintf("Webhook: %s", name),
		}

		issues := []string{}
		warnings := []string{}

		if wh.URL == "" {
			issues = append(issues, "Missing url")
		} else {
			u, err := url.Parse(wh.URL)
			if err != nil {
				issues = append(issues, fmt.Sprintf("Invalid URL: %v", err))
			} else if u.Scheme != "http" && u.Scheme != "https" {
				issues = append(issues, fmt.Sprintf("URL scheme must be http or https, got %q", u.Scheme))
			} else if u.Host == "" {
				issues = append(issues, "URL must have a host")
			} else if u.Scheme == "http" && wh.Token != "" {
				warnings = append(warnings, "Bearer token is sent over plain http")
			}
		}

		switch wh.Trigger {
		case "", config.WebhookTriggerOnDeadlines, config.WebhookTriggerAlways:
		case config.WebhookTriggerNever:
			warnings = append(warnings, "Trigger is 'never'; this webhook is disabled")
		default:
			issues = append(issues, fmt.Sprintf("Invalid trigger %q (use on_deadlines, always, or never)", wh.Trigger))
		}

		if len(issues) > 0 {
			result.Status = "error"
			result.Message = fmt.Sprintf("%d configuration issue(s)", len(issues))
			result.Details = issues
		} else if len(warnings) > 0 {
			result.Status = "warning"
			result.Message = fmt.Sprintf("%d warning(s)", len(warnings))
			result.Details = warnings
		} else {
			result.Status = "ok"
			result.Message = fmt.Sprintf("Trigger: %s", wh.Trigger)
			if opts.Verbose {
				result.Details = []string{
					fmt.Sprintf("URL: %s", wh.URL),
					fmt.Sprintf("Timeout: %s", wh.Timeout),
				}
				if wh.Token != "" {
					result.Details = append(result.Details, "Token: configured")
				}
			}
		}

		results = append(results, result)
	}

	if opts.Verbose {
		for _, wh := range cfg.Webhooks {
			if wh.URL == "" {
				continue
			}

			name := wh.Name
			if name == "" {
				name = wh.URL
			}

			result := checkWebhookConnectivity(wh)
			result.Check = fmt.Sprintf("Webhook Connectivity: %s", name)
			results = append(results, result)
		}
	}

	return results
}

func checkWebhookConnectivity(wh config.WebhookConfig) DiagnosticResult {
	result := DiagnosticResult{}

	client := &http.Client{
		Timeout: 5 * time.Second,
	}

	req, err := http.NewRequest(http.MethodHead, wh.URL, nil)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot create request: %v", err)
		return result
	}

	if wh.Token != "" {
		req.Header.Set("Authorization", "Bearer "+wh.Token)
	}

	resp, err := client.Do(req)
	if err != nil {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Cannot connect: %v", err)
		result.Suggests = []string{
			"Check if the webhook URL is correct",
			"Verify network connectivity",
		}
		return result
	}
	defer resp.Body.Close()

	// Any response means the endpoint is reachable.
	if resp.StatusCode >= 200 && resp.StatusCode < 400 {
		result.Status = "ok"
		result.Message = fmt.Sprintf("Reachable (status %d)", resp.StatusCode)
	} else {
		result.Status = "warning"
		result.Message = fmt.Sprintf("Reachable but returned status %d", resp.StatusCode)
		result.Suggests = []string{
			"The endpoint may only accept POST (reports are POSTed)",
			"Check authentication if using a token",
		}
	}

	return result
}
