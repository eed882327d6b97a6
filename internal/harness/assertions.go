package harness

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/go-cmp/cmp"

	"github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/locator"
	"github.com/roach88/formcheck/internal/state"
	"github.com/roach88/formcheck/internal/ui"
)

// verifyField polls fresh snapshots of the expected field until the
// expectation holds.
//
// Outcomes:
//   - nil: the expectation held within the wait bound.
//   - *ui.TimeoutError: the field could not be read at all.
//   - *locator.IndicatorNotFoundError: reads succeeded, but an indicator the
//     expectation needs has no status-icon node to be found at all.
//   - *assert.Failure: reads succeeded and the last snapshot mismatched.
func (x *execution) verifyField(ctx context.Context, pe plannedExpectation) error {
	var capturedSnap *state.Snapshot
	if pe.MatchesCapture != "" {
		c := x.captures[pe.MatchesCapture]
		if c.err != nil {
			return fmt.Errorf("capture %q: %w", pe.MatchesCapture, c.err)
		}
		capturedSnap = &c.snap
	}

	h := locator.Resolve(pe.desc)
	var (
		last       state.Snapshot
		read       bool
		mismatches []state.Mismatch
	)
	err := x.waiter.Until(ctx, fmt.Sprintf("field %q: %s", pe.desc.ID, describe(pe)), func(ctx context.Context) (bool, error) {
		snap, err := state.ReadSnapshot(ctx, x.page, h)
		if err != nil {
			return false, err
		}
		last, read = snap, true
		if mismatches, err = compare(pe, snap, capturedSnap); err != nil {
			return false, err
		}
		return len(mismatches) == 0, nil
	})
	if err == nil {
		return nil
	}

	var timeout *ui.TimeoutError
	if !errors.As(err, &timeout) || timeout.Last != nil || !read {
		return err
	}

	if ind, ok := missingIndicator(pe, last, mismatches); ok {
		if cerr := h.CheckIndicator(ctx, x.page, ind); cerr != nil {
			if errors.Is(cerr, ui.ErrNotFound) {
				return err
			}
			return cerr
		}
	}

	failure := &assert.Failure{
		Field:      pe.desc.ID,
		Expected:   describe(pe),
		Observed:   &last,
		Mismatches: mismatches,
	}
	if pe.defect != nil {
		failure.KnownDefect = pe.KnownDefect.ID
		reproduced, derr := evalWhere(pe.defect, last, pe.desc.Flags)
		if derr != nil {
			return fmt.Errorf("known defect %s: %w", pe.KnownDefect.ID, derr)
		}
		failure.DefectReproduced = reproduced
	}
	x.logger.Debug("expectation failed", "field", pe.desc.ID, "snapshot", last.String(), "defect_reproduced", failure.DefectReproduced)
	return failure
}

// compare lists every way snap disagrees with pe.
func compare(pe plannedExpectation, snap state.Snapshot, capturedSnap *state.Snapshot) ([]state.Mismatch, error) {
	var out []state.Mismatch
	if pe.state != "" {
		out = append(out, state.Diff(pe.state, snap, pe.desc.Flags)...)
	}
	if pe.Value != nil && snap.Value != *pe.Value {
		out = append(out, state.Mismatch{Property: "value", Want: strconv.Quote(*pe.Value), Got: strconv.Quote(snap.Value)})
	}
	if pe.ErrorVisible != nil && snap.ErrorVisible != *pe.ErrorVisible {
		out = append(out, state.Mismatch{Property: "error_visible", Want: strconv.FormatBool(*pe.ErrorVisible), Got: strconv.FormatBool(snap.ErrorVisible)})
	}
	if pe.where != nil {
		ok, err := evalWhere(pe.where, snap, pe.desc.Flags)
		if err != nil {
			return nil, fmt.Errorf("where %q: %w", pe.Where, err)
		}
		if !ok {
			out = append(out, state.Mismatch{Property: "where", Want: pe.Where, Got: "false"})
		}
	}
	if capturedSnap != nil && !cmp.Equal(*capturedSnap, snap) {
		out = append(out, snapshotDelta("capture "+pe.MatchesCapture, *capturedSnap, snap)...)
	}
	return out, nil
}

// snapshotDelta lists the properties where got differs from want.
func snapshotDelta(prefix string, want, got state.Snapshot) []state.Mismatch {
	var out []state.Mismatch
	add := func(prop, w, g string) {
		if w != g {
			out = append(out, state.Mismatch{Property: prefix + "." + prop, Want: w, Got: g})
		}
	}
	add("value", strconv.Quote(want.Value), strconv.Quote(got.Value))
	add("border_color", string(want.BorderColor), string(got.BorderColor))
	add("success_visible", strconv.FormatBool(want.SuccessVisible), strconv.FormatBool(got.SuccessVisible))
	add("error_visible", strconv.FormatBool(want.ErrorVisible), strconv.FormatBool(got.ErrorVisible))
	add("message_visible", strconv.FormatBool(want.MessageVisible), strconv.FormatBool(got.MessageVisible))
	return out
}

// missingIndicator returns the indicator the expectation needs but the
// last snapshot does not show, provided the indicators are all that is
// wrong. A field in an altogether different state is an assertion failure
// even if its wrapper holds no icon.
func missingIndicator(pe plannedExpectation, last state.Snapshot, mismatches []state.Mismatch) (locator.Indicator, bool) {
	for _, m := range mismatches {
		if m.Property != "success_visible" && m.Property != "error_visible" {
			return "", false
		}
	}
	wantError := pe.state == state.Invalid && pe.desc.Flags.HasErrorIndicator
	if pe.ErrorVisible != nil && *pe.ErrorVisible {
		wantError = true
	}
	switch {
	case pe.state == state.Valid && !last.SuccessVisible:
		return locator.Success, true
	case wantError && !last.ErrorVisible:
		return locator.Error, true
	}
	return "", false
}

// describe renders the expectation for reports.
func describe(pe plannedExpectation) string {
	var parts []string
	if pe.state != "" {
		parts = append(parts, string(pe.state))
	}
	if pe.Value != nil {
		parts = append(parts, "value="+strconv.Quote(*pe.Value))
	}
	if pe.ErrorVisible != nil {
		parts = append(parts, "error_visible="+strconv.FormatBool(*pe.ErrorVisible))
	}
	if pe.Where != "" {
		parts = append(parts, "where "+pe.Where)
	}
	if pe.MatchesCapture != "" {
		parts = append(parts, "matches capture "+strconv.Quote(pe.MatchesCapture))
	}
	return strings.Join(parts, ", ")
}

// addFormChecks registers the form-level checks.
func (x *execution) addFormChecks(agg *assert.Aggregator, f *FormExpectation) {
	submit := x.registry.Controls().Submit

	if f.SubmitEnabled != nil {
		want := strconv.FormatBool(*f.SubmitEnabled)
		agg.Add(assert.Check{ID: "form.submit_enabled", Run: func(ctx context.Context) error {
			return x.expectForm(ctx, "", "submit enabled", want, func(ctx context.Context) (string, error) {
				ok, err := x.page.Enabled(ctx, submit)
				return strconv.FormatBool(ok), err
			})
		}})
	}

	if f.SubmitLabel != "" {
		agg.Add(assert.Check{ID: "form.submit_label", Run: func(ctx context.Context) error {
			return x.expectForm(ctx, "", "submit label", f.SubmitLabel, func(ctx context.Context) (string, error) {
				return x.page.Text(ctx, submit)
			})
		}})
	}

	if f.StaysOnForm {
		agg.Add(assert.Check{ID: "form.stays_on_form", Run: func(ctx context.Context) error {
			return x.expectForm(ctx, "", "url", x.startURL, x.page.URL)
		}})
	}

	if f.NewsletterChecked != nil {
		newsletter, _ := x.registry.Controls().Control(field.ControlNewsletter)
		want := strconv.FormatBool(*f.NewsletterChecked)
		agg.Add(assert.Check{ID: "form.newsletter_checked", Run: func(ctx context.Context) error {
			return x.expectForm(ctx, "", "newsletter checked", want, func(ctx context.Context) (string, error) {
				ok, err := x.page.Checked(ctx, newsletter)
				return strconv.FormatBool(ok), err
			})
		}})
	}

	if f.FieldsInteractive {
		for _, id := range x.registry.IDs() {
			id := id // per-iteration copy (go 1.21 loop semantics)
			if x.plan.skip[id] {
				continue
			}
			d, _ := x.registry.Get(id)
			agg.Add(assert.Check{ID: fmt.Sprintf("form.%s.interactive", id), Field: id, Run: func(ctx context.Context) error {
				return x.expectForm(ctx, id, "interactive", "true", func(ctx context.Context) (string, error) {
					visible, err := x.page.Visible(ctx, d.Input)
					if err != nil || !visible {
						return "false", err
					}
					enabled, err := x.page.Enabled(ctx, d.Input)
					return strconv.FormatBool(enabled), err
				})
			}})
		}
	}
}

// expectForm polls read until it returns want. Like verifyField, a value
// that was read but never matched is an assertion failure.
func (x *execution) expectForm(ctx context.Context, id field.ID, what, want string, read func(context.Context) (string, error)) error {
	var got string
	var seen bool
	err := x.waiter.Until(ctx, fmt.Sprintf("%s to be %q", what, want), func(ctx context.Context) (bool, error) {
		v, err := read(ctx)
		if err != nil {
			return false, err
		}
		got, seen = v, true
		return v == want, nil
	})
	var timeout *ui.TimeoutError
	if err == nil || !errors.As(err, &timeout) || timeout.Last != nil || !seen {
		return err
	}
	return &assert.Failure{
		Field:    id,
		Expected: fmt.Sprintf("%s %q", what, want),
		Detail:   fmt.Sprintf("got %q", got),
	}
}
