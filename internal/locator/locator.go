// Package locator resolves a field descriptor into the concrete UI handles
// the harness reads: the input, its status indicators and its required
// message.
//
// Indicators are never addressed by a global selector. They are found by
// walking a fixed number of parent elements up from the input to the
// field's wrapper, then querying the wrapper for a status-icon marker with a
// given fill color. Resolution is pure: handles are locator values and are
// evaluated against the page on every read.
package locator

import (
	"context"
	"errors"
	"fmt"

	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/ui"
)

// ErrNoErrorIndicator is returned when the error indicator of a field that
// has none is requested.
var ErrNoErrorIndicator = errors.New("field has no error indicator")

// IndicatorNotFoundError reports that the ancestor traversal from a field's
// input did not yield any status-icon node. It signals broken traversal,
// not an indicator that is correctly hidden.
type IndicatorNotFoundError struct {
	Field   field.ID
	Locator ui.Locator
}

func (e *IndicatorNotFoundError) Error() string {
	return fmt.Sprintf("field %q: no status indicator at %s", e.Field, e.Locator)
}

// Indicator names one of a field's status indicators.
type Indicator string

const (
	Success Indicator = "success"
	Error   Indicator = "error"
)

// Handles are the resolved locators for one field.
type Handles struct {
	Field   field.ID
	Input   ui.Locator
	Message ui.Locator

	success      ui.Locator
	successScope ui.Locator
	errorInd     *ui.Locator
	errorScope   *ui.Locator
}

// Resolve builds the handles for d. The error indicator is resolved only
// when d declares one.
func Resolve(d field.Descriptor) Handles {
	h := Handles{
		Field:        d.ID,
		Input:        d.Input,
		Message:      d.RequiredMessage,
		success:      Relation(d.Input, d.Success),
		successScope: Scope(d.Input, d.Success),
	}
	if d.Flags.HasErrorIndicator {
		e, s := Relation(d.Input, d.Error), Scope(d.Input, d.Error)
		h.errorInd, h.errorScope = &e, &s
	}
	return h
}

// Relation returns the locator of the indicator rel describes, relative to
// input.
func Relation(input ui.Locator, rel field.IndicatorRelation) ui.Locator {
	return input.Ancestor(rel.Depth).Find(fmt.Sprintf(`%s[fill="%s"]`, rel.Marker, rel.Fill))
}

// Scope returns the locator of every status-icon marker in the wrapper rel
// points at, whatever its fill.
func Scope(input ui.Locator, rel field.IndicatorRelation) ui.Locator {
	return input.Ancestor(rel.Depth).Find(rel.Marker)
}

// Wrapper returns the locator of the field's wrapper container.
func (h Handles) Wrapper() ui.Locator {
	w := h.successScope
	w.Within = ""
	return w
}

// Success returns the success indicator locator.
func (h Handles) Success() ui.Locator {
	return h.success
}

// Error returns the error indicator locator, or ErrNoErrorIndicator.
func (h Handles) Error() (ui.Locator, error) {
	if h.errorInd == nil {
		return ui.Locator{}, fmt.Errorf("field %q: %w", h.Field, ErrNoErrorIndicator)
	}
	return *h.errorInd, nil
}

// HasError reports whether the error indicator was resolved.
func (h Handles) HasError() bool {
	return h.errorInd != nil
}

// CheckIndicator verifies that the traversal for ind reaches a wrapper
// holding at least one status-icon marker. A missing input is reported as
// ui.ErrNotFound so that waits keep retrying it.
func (h Handles) CheckIndicator(ctx context.Context, page ui.Page, ind Indicator) error {
	scope := h.successScope
	if ind == Error {
		if h.errorScope == nil {
			return fmt.Errorf("field %q: %w", h.Field, ErrNoErrorIndicator)
		}
		scope = *h.errorScope
	}

	n, err := page.Count(ctx, h.Input)
	if err != nil {
		return err
	}
	if n == 0 {
		return fmt.Errorf("%s: %w", h.Input, ui.ErrNotFound)
	}

	n, err = page.Count(ctx, scope)
	if err != nil {
		return err
	}
	if n == 0 {
		return &IndicatorNotFoundError{Field: h.Field, Locator: scope}
	}
	return nil
}

// CheckIndicators runs CheckIndicator for every indicator the field has.
func (h Handles) CheckIndicators(ctx context.Context, page ui.Page) error {
	if err := h.CheckIndicator(ctx, page, Success); err != nil {
		return err
	}
	if h.HasError() {
		return h.CheckIndicator(ctx, page, Error)
	}
	return nil
}
