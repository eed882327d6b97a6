package harness

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/expr-lang/expr/vm"
	"github.com/google/uuid"

	"github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/locator"
	"github.com/roach88/formcheck/internal/state"
	"github.com/roach88/formcheck/internal/ui"
)

// IDGenerator produces run ids.
type IDGenerator interface {
	NewID() string
}

type uuidGenerator struct{}

func (uuidGenerator) NewID() string { return uuid.NewString() }

// ConfigError reports a broken scenario definition: an unknown field, an
// invalid action, or an assertion a field cannot support. It is never
// reported as a check result.
type ConfigError struct {
	Scenario string
	Err      error
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("scenario %q: %v", e.Scenario, e.Err)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// IsConfigError reports whether err is a *ConfigError.
func IsConfigError(err error) bool {
	var cfg *ConfigError
	return errors.As(err, &cfg)
}

// Runner executes scenarios against one UI session.
//
// A Runner drives a single page and must not run scenarios concurrently;
// parallel scenarios each need their own page and Runner.
type Runner struct {
	registry *field.Registry
	page     ui.Page
	waiter   ui.Waiter
	logger   *slog.Logger
	ids      IDGenerator
}

// Option configures a Runner.
type Option func(*Runner)

// WithWaiter sets the bounded wait policy for UI reads.
func WithWaiter(w ui.Waiter) Option {
	return func(r *Runner) { r.waiter = w }
}

// WithLogger sets the logger. The default discards output.
func WithLogger(l *slog.Logger) Option {
	return func(r *Runner) { r.logger = l }
}

// WithIDGenerator sets the run id source. The default generates UUIDs.
func WithIDGenerator(g IDGenerator) Option {
	return func(r *Runner) { r.ids = g }
}

// NewRunner creates a runner for the fields of registry on page.
func NewRunner(registry *field.Registry, page ui.Page, opts ...Option) *Runner {
	r := &Runner{
		registry: registry,
		page:     page,
		waiter:   ui.NewWaiter(0, 0),
		logger:   slog.New(slog.NewTextHandler(io.Discard, nil)),
		ids:      uuidGenerator{},
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Run executes a scenario and returns its report.
//
// Execution flow:
//  1. Check the scenario against the registry; configuration errors are
//     returned as *ConfigError before any UI interaction.
//  2. Execute the steps strictly in order. A step whose element never
//     appears ends the scenario with an aborted report.
//  3. For every expected field, re-resolve its handles and poll fresh
//     snapshots until the expectation holds or the wait bound elapses.
//  4. Aggregate the checks into a report.
//
// If ctx is cancelled Run returns ctx.Err() and no report.
func (r *Runner) Run(ctx context.Context, sc *Scenario) (*assert.Report, error) {
	p, err := r.plan(sc)
	if err != nil {
		return nil, &ConfigError{Scenario: sc.Name, Err: err}
	}

	logger := r.logger.With("scenario", sc.Name)
	logger.Info("running scenario", "steps", len(p.steps), "expectations", len(p.expect))

	x := &execution{
		Runner:   r,
		plan:     p,
		logger:   logger,
		captures: make(map[string]captured),
		model:    newModel(r.registry),
	}

	if p.form != nil && p.form.StaysOnForm {
		if x.startURL, err = r.page.URL(ctx); err != nil {
			return nil, fmt.Errorf("failed to read start URL: %w", err)
		}
	}

	agg := assert.New()
	if err := x.runSteps(ctx, agg); err != nil {
		return nil, err
	}
	if !x.aborted {
		x.addChecks(agg)
	}

	report, err := agg.Evaluate(ctx)
	if err != nil {
		if ctx.Err() == nil && field.IsConfigError(err) {
			return nil, &ConfigError{Scenario: sc.Name, Err: err}
		}
		return nil, err
	}
	report.Scenario = sc.Name
	report.RunID = r.ids.NewID()

	passed, failed := report.Counts()
	logger.Info("scenario finished", "run_id", report.RunID, "pass", report.Pass,
		"passed", passed, "failed", failed, "aborted", report.Aborted)
	return report, nil
}

// Check resolves sc against registry without touching a page and returns
// the *ConfigError Run would return for it, if any.
func Check(registry *field.Registry, sc *Scenario) error {
	r := &Runner{registry: registry}
	if _, err := r.plan(sc); err != nil {
		return &ConfigError{Scenario: sc.Name, Err: err}
	}
	return nil
}

type plannedStep struct {
	Step
	index   int
	action  state.Action
	desc    *field.Descriptor
	value   string
	control ui.Locator
}

type plannedExpectation struct {
	Expectation
	id     string
	desc   field.Descriptor
	state  state.State
	class  assert.Class
	where  *vm.Program
	defect *vm.Program
}

type plan struct {
	name   string
	steps  []plannedStep
	expect []plannedExpectation
	skip   map[field.ID]bool
	form   *FormExpectation
}

// plan resolves every field id and compiles every expression of sc.
func (r *Runner) plan(sc *Scenario) (*plan, error) {
	if err := validateScenario(sc); err != nil {
		return nil, err
	}
	p := &plan{name: sc.Name, skip: make(map[field.ID]bool), form: sc.Form}

	for _, id := range sc.Skip {
		if _, err := r.registry.Get(field.ID(id)); err != nil {
			return nil, fmt.Errorf("skip: %w", err)
		}
		p.skip[field.ID(id)] = true
	}

	controls := r.registry.Controls()
	model := newModel(r.registry)
	for i, s := range sc.Steps {
		ps := plannedStep{Step: s, index: i}
		ps.action, _ = state.ParseAction(s.Action)
		if s.Field != "" {
			d, err := r.registry.Get(field.ID(s.Field))
			if err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
			ps.desc = &d
			ps.value = d.ValidValue
		}
		if s.Value != nil {
			ps.value = *s.Value
		}
		if ps.action == state.Submit && controls.Submit.IsZero() {
			return nil, fmt.Errorf("steps[%d]: registry defines no submit control", i)
		}
		if ps.action == state.Toggle {
			loc, err := controls.Control(s.Control)
			if err != nil {
				return nil, fmt.Errorf("steps[%d]: %w", i, err)
			}
			ps.control = loc
		}
		advanceModel(r.registry, model, ps)
		p.steps = append(p.steps, ps)
	}

	ids := make(map[string]int)
	for i, e := range sc.Expect {
		d, err := r.registry.Get(field.ID(e.Field))
		if err != nil {
			return nil, fmt.Errorf("expect[%d]: %w", i, err)
		}
		if e.ErrorVisible != nil && !d.Flags.HasErrorIndicator {
			return nil, fmt.Errorf("expect[%d]: cannot assert error_visible on field %q: %w", i, d.ID, locator.ErrNoErrorIndicator)
		}
		if p.skip[d.ID] {
			continue
		}

		pe := plannedExpectation{Expectation: e, desc: d}
		switch e.State {
		case "":
		case ExpectedState:
			if pe.state = model[d.ID]; pe.state == state.Unknown {
				return nil, fmt.Errorf("expect[%d]: no expected state for field %q after a fill with a non-canonical value", i, d.ID)
			}
		default:
			pe.state, _ = state.ParseState(e.State)
		}
		pe.class, _ = assert.ParseClass(e.Class)
		if e.Where != "" {
			if pe.where, err = compileWhere(e.Where); err != nil {
				return nil, fmt.Errorf("expect[%d].where: %w", i, err)
			}
			if err := checkIndicatorUse(d, pe.where); err != nil {
				return nil, fmt.Errorf("expect[%d].where: %w", i, err)
			}
		}
		if e.KnownDefect != nil {
			if pe.defect, err = compileWhere(e.KnownDefect.Observed); err != nil {
				return nil, fmt.Errorf("expect[%d].known_defect: %w", i, err)
			}
			if err := checkIndicatorUse(d, pe.defect); err != nil {
				return nil, fmt.Errorf("expect[%d].known_defect: %w", i, err)
			}
		}

		label := string(pe.state)
		if label == "" {
			label = "snapshot"
		}
		pe.id = fmt.Sprintf("%s.%s", d.ID, label)
		ids[pe.id]++
		if n := ids[pe.id]; n > 1 {
			pe.id = fmt.Sprintf("%s#%d", pe.id, n)
		}
		p.expect = append(p.expect, pe)
	}

	if f := sc.Form; f != nil {
		if (f.SubmitEnabled != nil || f.SubmitLabel != "") && controls.Submit.IsZero() {
			return nil, fmt.Errorf("form: registry defines no submit control")
		}
		if f.NewsletterChecked != nil {
			if _, err := controls.Control(field.ControlNewsletter); err != nil {
				return nil, fmt.Errorf("form: %w", err)
			}
		}
	}
	return p, nil
}

// checkIndicatorUse rejects an expression reading errorVisible on a field
// without an error indicator: it would always see false.
func checkIndicatorUse(d field.Descriptor, program *vm.Program) error {
	if d.Flags.HasErrorIndicator || !reads(program, "errorVisible") {
		return nil
	}
	return fmt.Errorf("cannot read errorVisible of field %q: %w", d.ID, locator.ErrNoErrorIndicator)
}

// newModel starts every registered field pristine, as on a fresh page.
func newModel(reg *field.Registry) map[field.ID]state.State {
	model := make(map[field.ID]state.State, reg.Len())
	for _, id := range reg.IDs() {
		model[id] = state.Pristine
	}
	return model
}

// advanceModel moves model past step s following state.After. A fill with
// a non-canonical value leaves the field Unknown.
func advanceModel(reg *field.Registry, model map[field.ID]state.State, s plannedStep) {
	switch s.action {
	case state.Fill:
		if s.value == s.desc.ValidValue {
			model[s.desc.ID] = state.After(state.Fill, model[s.desc.ID], s.desc.Flags)
		} else {
			model[s.desc.ID] = state.Unknown
		}
	case state.Clear:
		model[s.desc.ID] = state.After(state.Clear, model[s.desc.ID], s.desc.Flags)
	case state.Submit:
		for _, id := range reg.IDs() {
			d, _ := reg.Get(id)
			model[id] = state.After(state.Submit, model[id], d.Flags)
		}
	}
}

type captured struct {
	snap state.Snapshot
	err  error
}

// execution is the state of one Run call.
type execution struct {
	*Runner
	plan     *plan
	logger   *slog.Logger
	startURL string
	captures map[string]captured
	// model tracks the state each field is expected to settle in,
	// following state.After. Unknown after a non-canonical fill.
	model   map[field.ID]state.State
	aborted bool
}

// runSteps drives the UI. Steps are retried while their element is not
// found; a step that times out is recorded as a failed hard check and ends
// the scenario.
func (x *execution) runSteps(ctx context.Context, agg *assert.Aggregator) error {
	for _, s := range x.plan.steps {
		s := s // per-iteration copy (go 1.21 loop semantics)
		if err := ctx.Err(); err != nil {
			return err
		}
		x.logger.Debug("step", "index", s.index, "action", s.action, "field", s.Field)

		what := fmt.Sprintf("step %d (%s %s%s)", s.index, s.action, s.Field, s.Control)
		err := x.waiter.Until(ctx, what, func(ctx context.Context) (bool, error) {
			return true, x.apply(ctx, s)
		})
		var timeout *ui.TimeoutError
		switch {
		case err == nil:
		case errors.As(err, &timeout):
			x.logger.Warn("step timed out", "index", s.index, "error", err)
			agg.Add(assert.Check{
				ID:    fmt.Sprintf("step[%d].%s", s.index, s.action),
				Field: stepField(s),
				Class: assert.Hard,
				Run:   func(context.Context) error { return err },
			})
			x.aborted = true
			return nil
		default:
			return fmt.Errorf("step %d: %w", s.index, err)
		}

		advanceModel(x.registry, x.model, s)

		if s.Capture != "" {
			c := x.capture(ctx, s)
			if errors.Is(c.err, context.Canceled) || errors.Is(c.err, context.DeadlineExceeded) {
				return c.err
			}
			x.captures[s.Capture] = c
		}
	}
	return nil
}

func stepField(s plannedStep) field.ID {
	if s.desc == nil {
		return ""
	}
	return s.desc.ID
}

// apply performs one action through the UI substrate.
func (x *execution) apply(ctx context.Context, s plannedStep) error {
	switch s.action {
	case state.Fill:
		if s.desc.Kind == field.KindSelect {
			return x.page.Select(ctx, s.desc.Input, s.value)
		}
		return x.page.Fill(ctx, s.desc.Input, s.value)
	case state.Clear:
		return x.page.Clear(ctx, s.desc.Input)
	case state.Defocus:
		return x.page.Blur(ctx)
	case state.Submit:
		return x.page.Click(ctx, x.registry.Controls().Submit)
	case state.Toggle:
		return x.page.Click(ctx, s.control)
	}
	return fmt.Errorf("unsupported action %q", s.action)
}

// capture waits for the field of s to settle in its modeled state and
// records the snapshot. With no modeled state any classified state counts
// as settled.
func (x *execution) capture(ctx context.Context, s plannedStep) captured {
	h := locator.Resolve(*s.desc)
	want := x.model[s.desc.ID]

	var snap state.Snapshot
	err := x.waiter.Until(ctx, fmt.Sprintf("capture %q of field %q", s.Capture, s.desc.ID), func(ctx context.Context) (bool, error) {
		var err error
		if snap, err = state.ReadSnapshot(ctx, x.page, h); err != nil {
			return false, err
		}
		got := state.Classify(snap, s.desc.Flags)
		if want == state.Unknown {
			return got != state.Unknown, nil
		}
		return got == want, nil
	})
	x.logger.Debug("captured snapshot", "capture", s.Capture, "field", s.desc.ID, "snapshot", snap.String(), "error", err)
	return captured{snap: snap, err: err}
}

// addChecks registers one check per expectation, then the form checks.
func (x *execution) addChecks(agg *assert.Aggregator) {
	for _, pe := range x.plan.expect {
		pe := pe // per-iteration copy (go 1.21 loop semantics)
		agg.Add(assert.Check{
			ID:    pe.id,
			Field: pe.desc.ID,
			Class: pe.class,
			Run:   func(ctx context.Context) error { return x.verifyField(ctx, pe) },
		})
	}
	if x.plan.form != nil {
		x.addFormChecks(agg, x.plan.form)
	}
}
