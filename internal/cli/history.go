package cli

import (
	"errors"
	"fmt"
	"os"
	"strings"

	"github.com/spf13/cobra"

	"github.com/roach88/formcheck/internal/store"
)

// HistoryOptions holds flags for the history command.
type HistoryOptions struct {
	*RootOptions
	Limit int
	Run   string // show one stored report
	Check string // show one check across runs
}

// NewHistoryCommand creates the history command.
func NewHistoryCommand(rootOpts *RootOptions) *cobra.Command {
	opts := &HistoryOptions{RootOptions: rootOpts}

	cmd := &cobra.Command{
		Use:   "history [scenario]",
		Short: "Show recorded runs",
		Long: `Show runs recorded by the test command.

Without flags, lists runs newest first, optionally for one scenario.
--run prints the stored report of a run; --check lists the outcomes of one
check id across runs, to tell a flaky check from a regression.

Examples:
  formcheck history
  formcheck history last_name_clear --limit 5
  formcheck history --run 3f6c2a9e-...
  formcheck history --check lastName.invalid`,
		Args:          cobra.MaximumNArgs(1),
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			scenario := ""
			if len(args) == 1 {
				scenario = args[0]
			}
			return runHistory(opts, scenario, cmd)
		},
	}

	cmd.Flags().IntVarP(&opts.Limit, "limit", "n", 20, "maximum entries to show (0 for all)")
	cmd.Flags().StringVar(&opts.Run, "run", "", "show the stored report of a run id")
	cmd.Flags().StringVar(&opts.Check, "check", "", "show the outcomes of a check id")
	cmd.MarkFlagsMutuallyExclusive("run", "check")

	return cmd
}

func runHistory(opts *HistoryOptions, scenario string, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return outputCommandError(formatter, "E_CONFIG", err)
	}
	if cfg.DB == "" {
		return outputCommandError(formatter, "E_NO_HISTORY",
			NewExitError(ExitCommandError, "no history database configured"))
	}
	dbPath := cfg.Path(cfg.DB)
	if _, err := os.Stat(dbPath); os.IsNotExist(err) {
		return outputCommandError(formatter, "E_NO_HISTORY",
			NewExitError(ExitCommandError, fmt.Sprintf("no run history at %s", dbPath)))
	}

	st, err := store.Open(dbPath)
	if err != nil {
		return outputCommandError(formatter, "E_DB", WrapExitError(ExitCommandError, "failed to open history database", err))
	}
	defer st.Close()

	ctx := cmd.Context()
	switch {
	case opts.Run != "":
		report, err := st.ReadReport(ctx, opts.Run)
		if errors.Is(err, store.ErrRunNotFound) {
			return outputCommandError(formatter, "E_RUN_NOT_FOUND", WrapExitError(ExitCommandError, "unknown run", err))
		}
		if err != nil {
			return outputCommandError(formatter, "E_DB", err)
		}
		if opts.Format == "json" {
			return formatter.Success(report)
		}
		var b strings.Builder
		if err := report.Render(&b); err != nil {
			return err
		}
		fmt.Fprintf(formatter.Writer, "run %s\n%s", report.RunID, b.String())
		return nil

	case opts.Check != "":
		outcomes, err := st.CheckHistory(ctx, opts.Check, opts.Limit)
		if err != nil {
			return outputCommandError(formatter, "E_DB", err)
		}
		if opts.Format == "json" {
			return formatter.Success(outcomes)
		}
		w := formatter.Writer
		if len(outcomes) == 0 {
			fmt.Fprintf(w, "No runs of check %s.\n", opts.Check)
			return nil
		}
		fmt.Fprintf(w, "%s\n", opts.Check)
		for _, o := range outcomes {
			status := "ok  "
			if !o.Passed {
				status = "FAIL"
			}
			line := fmt.Sprintf("  %4d %s %s %s", o.Seq, status, o.RunID, o.Scenario)
			if o.Kind != "" {
				line += fmt.Sprintf(" [%s]", o.Kind)
			}
			if o.DefectReproduced {
				line += " known defect reproduced"
			}
			fmt.Fprintln(w, line)
		}
		return nil

	default:
		runs, err := st.ListRuns(ctx, scenario, opts.Limit)
		if err != nil {
			return outputCommandError(formatter, "E_DB", err)
		}
		if opts.Format == "json" {
			return formatter.Success(runs)
		}
		w := formatter.Writer
		if len(runs) == 0 {
			fmt.Fprintln(w, "No runs recorded.")
			return nil
		}
		for _, r := range runs {
			status := "PASS"
			if !r.Pass {
				status = "FAIL"
			}
			fmt.Fprintf(w, "%4d %s %s %s (%d passed, %d failed)", r.Seq, status, r.ID, r.Scenario, r.Passed, r.Failed)
			if r.Aborted {
				fmt.Fprint(w, " aborted")
			}
			fmt.Fprintln(w)
		}
		return nil
	}
}
