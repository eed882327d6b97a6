package cli

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"golang.org/x/sync/errgroup"

	"github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/config"
	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/harness"
	"github.com/roach88/formcheck/internal/store"
)

// TestOptions holds flags for the test command.
type TestOptions struct {
	*RootOptions
	Update    bool   // regenerate golden files
	Filter    string // scenario filter (glob pattern)
	NoHistory bool   // do not record runs in the history database
	Parallel  int    // scenarios run concurrently, each on its own page
}

// ScenarioResult holds the result of a single scenario execution.
type ScenarioResult struct {
	Name    string   `json:"name"`
	File    string   `json:"file"`
	Pass    bool     `json:"pass"`
	RunID   string   `json:"run_id,omitempty"`
	Passed  int      `json:"checks_passed"`
	Failed  int      `json:"checks_failed"`
	Aborted bool     `json:"aborted,omitempty"`
	Errors  []string `json:"errors,omitempty"`

	// Report is the full report; nil when the scenario never ran.
	Report *assert.Report `json:"report,omitempty"`

	configError   bool
	goldenUpdated bool
}

// TestResult holds the overall test result.
type TestResult struct {
	Scenarios []ScenarioResult `json:"scenarios"`
	Passed    int              `json:"passed"`
	Failed    int              `json:"failed"`
	Total     int              `json:"total"`
}

// NewTestCommand creates the test command.
func NewTestCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &TestOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "test [scenarios-dir]",
		Short: "Run scenarios against the form",
		Long: `Run every scenario file against the form under test.

Each scenario gets a fresh page; --parallel runs several pages at once. Its report is compared against a golden
file when one exists next to the scenarios (golden/<file>.golden) and is
recorded in the history database unless --no-history is set.

Exit codes:
  0 - All scenarios passed
  1 - One or more scenarios failed
  2 - Command error (bad config, broken scenario, missing base_url, etc.)

Examples:
  formcheck test
  formcheck test ./scenarios --filter "clear_*"
  formcheck test --update
  formcheck test --parallel 4
  formcheck test --format json`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runTests(opts, dir, cmd)
		},
	}

	cmd.Flags().BoolVar(&opts.Update, "update", false, "regenerate golden files")
	cmd.Flags().StringVar(&opts.Filter, "filter", "", "filter scenarios by glob pattern")
	cmd.Flags().BoolVar(&opts.NoHistory, "no-history", false, "do not record runs in the history database")
	cmd.Flags().IntVarP(&opts.Parallel, "parallel", "p", 1, "number of scenarios to run concurrently")

	return cmd
}

// testEnv is everything a scenario run needs besides the scenario.
type testEnv struct {
	opts     *TestOptions
	cfg      config.Config
	registry *field.Registry
	history  *store.Store
	logger   *slog.Logger // one handler, shared by concurrent scenarios
	cmd      *cobra.Command
}

func runTests(opts *TestOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return err
	}
	if scenariosDir == "" {
		scenariosDir = cfg.Path(cfg.Scenarios)
	}
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir))
	}

	registry, err := loadRegistry(cfg)
	if err != nil {
		return err
	}
	formatter.VerboseLog("Registry has %d field(s)", registry.Len())

	scenarioFiles, err := findScenarioFiles(scenariosDir, opts.Filter)
	if err != nil {
		return WrapExitError(ExitCommandError, "failed to find scenarios", err)
	}

	if len(scenarioFiles) == 0 {
		if opts.Format == "json" {
			return outputTestJSON(cmd, TestResult{
				Scenarios: []ScenarioResult{},
				Total:     0,
			})
		}
		fmt.Fprintln(cmd.OutOrStdout(), "No scenarios found.")
		return nil
	}

	env := &testEnv{
		opts:     opts,
		cfg:      cfg,
		registry: registry,
		logger:   opts.logger(cmd.ErrOrStderr()),
		cmd:      cmd,
	}
	if cfg.DB != "" && !opts.NoHistory {
		dbPath := cfg.Path(cfg.DB)
		history, err := store.Open(dbPath)
		if err != nil {
			return WrapExitError(ExitCommandError, "failed to open history database", err)
		}
		defer history.Close()
		env.history = history
		formatter.VerboseLog("Recording runs in %s", dbPath)
	}

	results := make([]ScenarioResult, len(scenarioFiles))
	g, ctx := errgroup.WithContext(cmd.Context())
	g.SetLimit(max(opts.Parallel, 1))
	for i, scenarioFile := range scenarioFiles {
		i, scenarioFile := i, scenarioFile // per-iteration copy (go 1.21 loop semantics)
		formatter.VerboseLog("Running %s", scenarioFile)
		g.Go(func() error {
			res, err := env.runScenario(ctx, scenarioFile)
			results[i] = res
			return err
		})
	}
	if err := g.Wait(); err != nil {
		return err
	}

	result := TestResult{Scenarios: results, Total: len(results)}
	configErrors := 0
	for _, res := range results {
		if opts.Format != "json" {
			env.printScenario(res)
		}
		if res.configError {
			configErrors++
		}
		if res.Pass {
			result.Passed++
		} else {
			result.Failed++
		}
	}

	var outErr error
	if opts.Format == "json" {
		outErr = outputTestJSON(cmd, result)
	} else {
		outErr = outputTestText(cmd, result)
	}
	if configErrors > 0 {
		return NewExitError(ExitCommandError, fmt.Sprintf("%d scenario(s) could not be run", configErrors))
	}
	return outErr
}

// findScenarioFiles finds all YAML scenario files in a directory.
func findScenarioFiles(dir string, filter string) ([]string, error) {
	var files []string

	err := filepath.Walk(dir, func(path string, info os.FileInfo, err error) error {
		if err != nil {
			return err
		}

		if info.IsDir() {
			return nil
		}

		ext := filepath.Ext(path)
		if ext != ".yaml" && ext != ".yml" {
			return nil
		}

		if filter != "" {
			base := filepath.Base(path)
			name := strings.TrimSuffix(base, ext)
			matched, err := filepath.Match(filter, name)
			if err != nil {
				return fmt.Errorf("invalid filter pattern: %w", err)
			}
			if !matched {
				return nil
			}
		}

		files = append(files, path)
		return nil
	})

	return files, err
}

// runScenario executes a single scenario file on its own page. Scenario-level
// problems are reported in the result; only failures of the run itself
// (cancellation, history writes) are returned as errors.
func (env *testEnv) runScenario(ctx context.Context, scenarioFile string) (ScenarioResult, error) {
	res := ScenarioResult{Name: filepath.Base(scenarioFile), File: scenarioFile}
	fail := func(format string, args ...any) (ScenarioResult, error) {
		res.Pass = false
		res.Errors = append(res.Errors, fmt.Sprintf(format, args...))
		return res, nil
	}

	scenario, err := harness.LoadScenario(scenarioFile)
	if err != nil {
		res.configError = true
		return fail("Load error: %v", err)
	}
	res.Name = scenario.Name

	if err := harness.Check(env.registry, scenario); err != nil {
		res.configError = true
		return fail("Configuration error: %v", err)
	}

	logger := env.logger.With("scenario", scenario.Name)
	page, release, err := env.opts.pages()(ctx, env.cfg, logger)
	if err != nil {
		res.configError = true
		return fail("Page error: %v", err)
	}
	defer release()

	runOpts := []harness.Option{
		harness.WithWaiter(env.opts.waiter(env.cfg)),
		harness.WithLogger(logger),
	}
	if env.opts.IDs != nil {
		runOpts = append(runOpts, harness.WithIDGenerator(env.opts.IDs))
	}
	runner := harness.NewRunner(env.registry, page, runOpts...)

	report, err := runner.Run(ctx, scenario)
	if err != nil {
		if harness.IsConfigError(err) {
			res.configError = true
			return fail("Configuration error: %v", err)
		}
		return res, WrapExitError(ExitCommandError, fmt.Sprintf("scenario %s did not complete", scenario.Name), err)
	}

	res.Report = report
	res.RunID = report.RunID
	res.Passed, res.Failed = report.Counts()
	res.Aborted = report.Aborted
	res.Pass = report.Pass

	if env.history != nil {
		if err := env.history.WriteReport(ctx, report); err != nil {
			return res, WrapExitError(ExitCommandError, "failed to record run", err)
		}
	}

	goldenPath := goldenFilePath(scenarioFile)
	if env.opts.Update {
		if err := updateGoldenFile(scenario, report, goldenPath); err != nil {
			return fail("Golden update error: %v", err)
		}
		res.goldenUpdated = true
		return res, nil
	}
	match, err := compareWithGolden(scenario, report, goldenPath)
	if err != nil {
		return fail("Golden comparison error: %v", err)
	}
	if !match {
		return fail("Golden file mismatch: report does not match golden file (run with --update to regenerate)")
	}
	return res, nil
}

func (env *testEnv) printScenario(res ScenarioResult) {
	w := env.cmd.OutOrStdout()
	if res.Pass {
		suffix := ""
		if res.goldenUpdated {
			suffix = " (golden updated)"
		}
		fmt.Fprintf(w, "✓ %s%s\n", res.Name, suffix)
		return
	}

	fmt.Fprintf(w, "✗ %s\n", res.Name)
	for _, e := range res.Errors {
		fmt.Fprintf(w, "  %s\n", e)
	}
	if res.Report != nil && !res.Report.Pass {
		var buf bytes.Buffer
		_ = res.Report.Render(&buf)
		// Skip the status line; the scenario line above replaces it.
		lines := strings.Split(strings.TrimRight(buf.String(), "\n"), "\n")
		for _, line := range lines[1:] {
			fmt.Fprintln(w, line)
		}
	}
}

// goldenFilePath returns the path to the golden file for a scenario.
func goldenFilePath(scenarioFile string) string {
	dir := filepath.Dir(scenarioFile)
	base := filepath.Base(scenarioFile)
	name := strings.TrimSuffix(base, filepath.Ext(base))
	return filepath.Join(dir, "golden", name+".golden")
}

// updateGoldenFile writes the report snapshot as the golden file.
func updateGoldenFile(scenario *harness.Scenario, report *assert.Report, goldenPath string) error {
	if err := os.MkdirAll(filepath.Dir(goldenPath), 0755); err != nil {
		return fmt.Errorf("failed to create golden directory: %w", err)
	}

	data, err := harness.MarshalReport(scenario, report)
	if err != nil {
		return fmt.Errorf("failed to marshal report: %w", err)
	}

	if err := os.WriteFile(goldenPath, data, 0644); err != nil {
		return fmt.Errorf("failed to write golden file: %w", err)
	}
	return nil
}

// compareWithGolden compares the report snapshot against the golden file.
// A missing golden file matches: the scenario's checks alone decide.
func compareWithGolden(scenario *harness.Scenario, report *assert.Report, goldenPath string) (bool, error) {
	goldenData, err := os.ReadFile(goldenPath)
	if os.IsNotExist(err) {
		return true, nil
	}
	if err != nil {
		return false, fmt.Errorf("failed to read golden file: %w", err)
	}

	currentData, err := harness.MarshalReport(scenario, report)
	if err != nil {
		return false, fmt.Errorf("failed to marshal report: %w", err)
	}

	return bytes.Equal(goldenData, currentData), nil
}

// outputTestJSON outputs the test result as JSON.
func outputTestJSON(cmd *cobra.Command, result TestResult) error {
	status := "ok"
	if result.Failed > 0 {
		status = "error"
	}

	response := CLIResponse{
		Status: status,
		Data:   result,
	}
	if len(result.Scenarios) == 1 {
		response.RunID = result.Scenarios[0].RunID
	}

	if result.Failed > 0 {
		response.Error = &CLIError{
			Code:    "E_TEST_FAILED",
			Message: fmt.Sprintf("%d scenario(s) failed", result.Failed),
		}
	}

	encoder := json.NewEncoder(cmd.OutOrStdout())
	encoder.SetIndent("", "  ")
	if err := encoder.Encode(response); err != nil {
		return err
	}

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}
	return nil
}

// outputTestText outputs the test result as text.
func outputTestText(cmd *cobra.Command, result TestResult) error {
	w := cmd.OutOrStdout()

	fmt.Fprintln(w)
	fmt.Fprintf(w, "Test Summary: %d passed, %d failed, %d total\n", result.Passed, result.Failed, result.Total)

	if result.Failed > 0 {
		return NewExitError(ExitFailure, fmt.Sprintf("%d scenario(s) failed", result.Failed))
	}

	fmt.Fprintln(w, "✓ All scenarios passed")
	return nil
}
