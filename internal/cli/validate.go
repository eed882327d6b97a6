package cli

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"github.com/roach88/formcheck/internal/harness"
)

// ValidationError is one scenario file that failed to load or plan.
type ValidationError struct {
	File    string `json:"file"`
	Message string `json:"message"`
}

// ValidationResult holds validation results.
type ValidationResult struct {
	Valid     bool              `json:"valid"`
	Fields    int               `json:"fields"`
	Scenarios int               `json:"scenarios"`
	Errors    []ValidationError `json:"errors,omitempty"`
}

// NewValidateCommand creates the validate command.
func NewValidateCommand(rootOpts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "validate [scenarios-dir]",
		Short: "Validate the registry and scenarios without a browser",
		Long: `Load the field registry and every scenario file, and resolve each
scenario against the registry: unknown fields, invalid actions, where
expressions and assertions a field cannot support are reported without
touching a page.`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			dir := ""
			if len(args) == 1 {
				dir = args[0]
			}
			return runValidate(rootOpts, dir, cmd)
		},
	}

	return cmd
}

func runValidate(opts *RootOptions, scenariosDir string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return outputCommandError(formatter, "E_CONFIG", err)
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return outputCommandError(formatter, "E_REGISTRY", err)
	}
	if scenariosDir == "" {
		scenariosDir = cfg.Path(cfg.Scenarios)
	}
	if _, err := os.Stat(scenariosDir); os.IsNotExist(err) {
		return outputCommandError(formatter, "E_NOT_FOUND",
			NewExitError(ExitCommandError, fmt.Sprintf("scenarios directory not found: %s", scenariosDir)))
	}

	files, err := findScenarioFiles(scenariosDir, "")
	if err != nil {
		return outputCommandError(formatter, "E_NOT_FOUND", WrapExitError(ExitCommandError, "failed to find scenarios", err))
	}
	formatter.VerboseLog("Found %d scenario file(s) in %s", len(files), scenariosDir)

	result := ValidationResult{Fields: registry.Len(), Scenarios: len(files)}
	names := make(map[string]string, len(files))
	for _, file := range files {
		rel := relPath(scenariosDir, file)
		formatter.VerboseLog("Validating %s", rel)

		sc, err := harness.LoadScenario(file)
		if err != nil {
			result.Errors = append(result.Errors, ValidationError{File: rel, Message: err.Error()})
			continue
		}
		if prev, dup := names[sc.Name]; dup {
			result.Errors = append(result.Errors, ValidationError{
				File:    rel,
				Message: fmt.Sprintf("duplicate scenario name %q (also in %s)", sc.Name, prev),
			})
			continue
		}
		names[sc.Name] = rel
		if err := harness.Check(registry, sc); err != nil {
			result.Errors = append(result.Errors, ValidationError{File: rel, Message: err.Error()})
		}
	}
	result.Valid = len(result.Errors) == 0

	if !result.Valid {
		return outputValidationErrors(formatter, result)
	}
	if opts.Format == "json" {
		return formatter.Success(result)
	}
	return formatter.Success(fmt.Sprintf("✓ %d scenario(s) valid against %d field(s)", result.Scenarios, result.Fields))
}

func outputValidationErrors(formatter *OutputFormatter, result ValidationResult) error {
	msg := fmt.Sprintf("%d invalid scenario file(s)", len(result.Errors))
	if formatter.Format == "json" {
		if err := formatter.Error("E_INVALID_SCENARIO", msg, result.Errors); err != nil {
			return err
		}
		return NewExitError(ExitFailure, msg)
	}

	w := formatter.Writer
	for _, e := range result.Errors {
		fmt.Fprintf(w, "✗ %s\n", e.File)
		fmt.Fprintf(w, "  %s\n", e.Message)
	}
	fmt.Fprintf(w, "\n%s\n", msg)
	return NewExitError(ExitFailure, msg)
}

// outputCommandError reports err in the configured format and returns it as
// an exit error.
func outputCommandError(formatter *OutputFormatter, code string, err error) error {
	if outErr := formatter.Error(code, err.Error(), nil); outErr != nil {
		return outErr
	}
	if GetExitCode(err) == ExitCommandError {
		return err
	}
	return WrapExitError(ExitCommandError, code, err)
}

func relPath(base, path string) string {
	if rel, err := filepath.Rel(base, path); err == nil {
		return rel
	}
	return path
}
