// Package assert runs batches of independent checks and aggregates their
// outcomes into a report.
//
// Every check is classified. A failing soft check is recorded and the batch
// continues; a failing hard check is recorded and the remaining checks are
// skipped, marking the report as aborted. Per-field state checks default to
// soft so that one broken field does not hide failures on the others.
//
// Failures are classified by kind rather than collapsed into a boolean, so a
// report can tell "the UI never settled" apart from "the UI settled in the
// wrong state" and from "the locator strategy no longer matches the markup".
package assert

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/locator"
	"github.com/roach88/formcheck/internal/state"
	"github.com/roach88/formcheck/internal/ui"
)

// Class decides what a failing check does to the rest of the batch.
type Class string

const (
	Soft Class = "soft"
	Hard Class = "hard"
)

// ParseClass parses a class name; empty means Soft.
func ParseClass(s string) (Class, error) {
	switch c := Class(s); c {
	case "":
		return Soft, nil
	case Soft, Hard:
		return c, nil
	}
	return "", fmt.Errorf("unknown check class %q (want soft or hard)", s)
}

// Kind classifies a failed result.
type Kind string

const (
	// KindAssertion: the UI was read but its state did not match.
	KindAssertion Kind = "assertion"
	// KindTimeout: the UI state could not be read within the wait bound.
	KindTimeout Kind = "timeout"
	// KindIndicatorNotFound: indicator traversal yielded no status icon.
	KindIndicatorNotFound Kind = "indicator_not_found"
)

// Check is one independent assertion.
//
// Run returns nil when the check passes. A *Failure, *ui.TimeoutError or
// *locator.IndicatorNotFoundError becomes a failed result of the matching
// kind. Any other error is a broken test definition or a cancelled context
// and stops evaluation.
type Check struct {
	ID    string
	Field field.ID
	Class Class
	Run   func(ctx context.Context) error
}

// Aggregator collects checks and evaluates them in insertion order.
type Aggregator struct {
	checks []Check
}

// New creates an empty aggregator.
func New() *Aggregator {
	return &Aggregator{}
}

// Add appends a check. An empty class defaults to Soft.
func (a *Aggregator) Add(c Check) {
	if c.Class == "" {
		c.Class = Soft
	}
	a.checks = append(a.checks, c)
}

// Len returns the number of checks added.
func (a *Aggregator) Len() int {
	return len(a.checks)
}

// Evaluate runs every check and returns the report.
//
// Evaluate returns an error and no report if ctx is cancelled or a check
// returns an unclassified error; a partial report is never returned.
func (a *Aggregator) Evaluate(ctx context.Context) (*Report, error) {
	report := &Report{Results: make([]Result, 0, len(a.checks)), Pass: true}

	for _, c := range a.checks {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		res, err := evaluate(ctx, c)
		if err != nil {
			return nil, fmt.Errorf("check %s: %w", c.ID, err)
		}
		report.add(res)

		if !res.Passed && c.Class == Hard {
			report.Aborted = true
			break
		}
	}
	return report, nil
}

func evaluate(ctx context.Context, c Check) (Result, error) {
	res := Result{CheckID: c.ID, Field: c.Field, Class: c.Class, Passed: true}

	err := c.Run(ctx)
	if err == nil {
		return res, nil
	}
	if ctxErr := ctx.Err(); ctxErr != nil {
		return Result{}, ctxErr
	}

	var failure *Failure
	var timeout *ui.TimeoutError
	var notFound *locator.IndicatorNotFoundError
	switch {
	case errors.As(err, &failure):
		res.Kind = KindAssertion
		res.Expected = failure.Expected
		res.Observed = failure.Observed
		res.Mismatches = failure.Mismatches
		res.KnownDefect = failure.KnownDefect
		res.DefectReproduced = failure.DefectReproduced
		res.Detail = failure.Error()
	case errors.As(err, &notFound):
		res.Kind = KindIndicatorNotFound
		res.Detail = err.Error()
	case errors.As(err, &timeout):
		res.Kind = KindTimeout
		res.Detail = err.Error()
	default:
		return Result{}, err
	}
	res.Passed = false
	return res, nil
}

// Failure is an observed state that does not match its expectation.
type Failure struct {
	Field      field.ID
	Expected   string
	Observed   *state.Snapshot
	Mismatches []state.Mismatch
	// Detail replaces the mismatch list in the message when set.
	Detail string
	// KnownDefect names a documented product defect the check guards.
	KnownDefect string
	// DefectReproduced is set when the observation equals the documented
	// defective behavior.
	DefectReproduced bool
}

func (f *Failure) Error() string {
	msg := fmt.Sprintf("form: expected %s", f.Expected)
	if f.Field != "" {
		msg = fmt.Sprintf("field %q: expected %s", f.Field, f.Expected)
	}
	if f.Observed != nil {
		msg += fmt.Sprintf(", observed %s", f.Observed)
	}
	switch {
	case f.Detail != "":
		msg += ": " + f.Detail
	case len(f.Mismatches) > 0:
		msg += ":"
		for i, m := range f.Mismatches {
			if i > 0 {
				msg += ";"
			}
			msg += " " + m.String()
		}
	}
	if f.DefectReproduced {
		msg += fmt.Sprintf(" (known defect %s reproduced)", f.KnownDefect)
	}
	return msg
}
