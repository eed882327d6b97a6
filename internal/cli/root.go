package cli

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/spf13/cobra"

	"github.com/roach88/formcheck/internal/config"
	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/harness"
	"github.com/roach88/formcheck/internal/ui"
)

// PageFactory opens a page showing the form under test. The returned
// release func is called once the scenario is done with the page.
type PageFactory func(ctx context.Context, cfg config.Config, logger *slog.Logger) (ui.Page, func(), error)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	Verbose bool
	Format  string // "json" | "text"
	Config  string // config file; empty looks for formcheck.yaml

	// Pages opens one page per scenario. Nil launches headless Chrome.
	Pages PageFactory
	// Clock drives bounded waits. Nil uses the wall clock.
	Clock ui.Clock
	// IDs generates run ids. Nil generates UUIDs.
	IDs harness.IDGenerator
}

// ValidFormats defines the allowed output formats.
var ValidFormats = []string{"text", "json"}

// NewRootCommand creates the root command for the formcheck CLI.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWithOptions(&RootOptions{})
}

// NewRootCommandWithOptions creates the root command around opts, so callers
// can swap the page factory, clock and run ids.
func NewRootCommandWithOptions(opts *RootOptions) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "formcheck",
		Short: "formcheck - form validation checks",
		Long: `Drive a signup form through declarative scenarios and check that every
field settles in the validation state its scenario expects.`,
		SilenceUsage:  true,
		SilenceErrors: true, // main reports errors with their exit code
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if !isValidFormat(opts.Format) {
				return fmt.Errorf("invalid format %q: must be one of %v", opts.Format, ValidFormats)
			}
			return nil
		},
	}

	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "verbose output")
	cmd.PersistentFlags().StringVar(&opts.Format, "format", "text", "output format (json|text)")
	cmd.PersistentFlags().StringVarP(&opts.Config, "config", "c", "", "config file (default formcheck.yaml)")

	cmd.AddCommand(NewTestCommand(opts))
	cmd.AddCommand(NewValidateCommand(opts))
	cmd.AddCommand(NewFieldsCommand(opts))
	cmd.AddCommand(NewHistoryCommand(opts))

	return cmd
}

// isValidFormat checks if the format is one of the allowed values.
func isValidFormat(format string) bool {
	for _, f := range ValidFormats {
		if f == format {
			return true
		}
	}
	return false
}

func (o *RootOptions) formatter(cmd *cobra.Command) *OutputFormatter {
	return &OutputFormatter{
		Format:    o.Format,
		Writer:    cmd.OutOrStdout(),
		ErrWriter: cmd.ErrOrStderr(),
		Verbose:   o.Verbose,
	}
}

// logger writes warnings to w, and everything with --verbose.
func (o *RootOptions) logger(w io.Writer) *slog.Logger {
	level := slog.LevelWarn
	if o.Verbose {
		level = slog.LevelDebug
	}
	return slog.New(slog.NewTextHandler(w, &slog.HandlerOptions{Level: level}))
}

func (o *RootOptions) loadConfig() (config.Config, error) {
	cfg, err := config.LoadOrDefault(o.Config)
	if err != nil {
		return config.Config{}, WrapExitError(ExitCommandError, "failed to load config", err)
	}
	return cfg, nil
}

func (o *RootOptions) waiter(cfg config.Config) ui.Waiter {
	w := ui.NewWaiter(cfg.Wait.Timeout, cfg.Wait.Interval)
	if o.Clock != nil {
		w.Clock = o.Clock
	}
	return w
}

func (o *RootOptions) pages() PageFactory {
	if o.Pages != nil {
		return o.Pages
	}
	return chromePages
}

// loadRegistry returns the configured registry file, or the built-in signup
// registry when none is configured.
func loadRegistry(cfg config.Config) (*field.Registry, error) {
	if cfg.Registry == "" {
		return field.Signup(field.SignupOptions{LastNameRequired: cfg.Signup.LastNameRequired}), nil
	}
	reg, err := field.Load(cfg.Path(cfg.Registry))
	if err != nil {
		return nil, WrapExitError(ExitCommandError, "failed to load registry", err)
	}
	return reg, nil
}

// chromePages launches one Chrome tab per scenario and loads base_url.
func chromePages(ctx context.Context, cfg config.Config, logger *slog.Logger) (ui.Page, func(), error) {
	if cfg.BaseURL == "" {
		return nil, nil, fmt.Errorf("base_url is required to run scenarios in a browser")
	}
	b, err := ui.NewBrowser(ctx, ui.BrowserOptions{
		Headless: cfg.Browser.Headless,
		Width:    cfg.Browser.Width,
		Height:   cfg.Browser.Height,
		ExecPath: cfg.Browser.ExecPath,
		Logger:   logger,
	})
	if err != nil {
		return nil, nil, err
	}
	if err := b.Navigate(ctx, cfg.BaseURL); err != nil {
		b.Close()
		return nil, nil, err
	}
	return b, b.Close, nil
}
