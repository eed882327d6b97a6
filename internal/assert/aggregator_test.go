package assert

import (
	"bytes"
	"context"
	"errors"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/locator"
	"github.com/roach88/formcheck/internal/state"
	"github.com/roach88/formcheck/internal/ui"
)

func pass(context.Context) error { return nil }

func failWith(err error) func(context.Context) error {
	return func(context.Context) error { return err }
}

func TestEvaluate_AllPass(t *testing.T) {
	a := New()
	a.Add(Check{ID: "a", Run: pass})
	a.Add(Check{ID: "b", Run: pass})

	r, err := a.Evaluate(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Pass)
	assert.False(t, r.Aborted)
	require.Len(t, r.Results, 2)
	assert.Equal(t, Soft, r.Results[0].Class, "class defaults to soft")
	assert.Empty(t, r.Failures())
}

func TestEvaluate_SoftFailuresAllRecorded(t *testing.T) {
	a := New()
	a.Add(Check{ID: "email", Field: "email", Run: failWith(&Failure{Field: "email", Expected: "valid"})})
	a.Add(Check{ID: "password", Field: "password", Run: pass})
	a.Add(Check{ID: "lastName", Field: "lastName", Run: failWith(&Failure{Field: "lastName", Expected: "invalid"})})

	r, err := a.Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, r.Pass)
	assert.False(t, r.Aborted)
	require.Len(t, r.Results, 3)

	failures := r.Failures()
	require.Len(t, failures, 2)
	assert.Equal(t, field.ID("email"), failures[0].Field)
	assert.Equal(t, field.ID("lastName"), failures[1].Field)
	for _, f := range failures {
		assert.Equal(t, KindAssertion, f.Kind)
	}

	passed, failed := r.Counts()
	assert.Equal(t, 1, passed)
	assert.Equal(t, 2, failed)
}

func TestEvaluate_HardFailureAborts(t *testing.T) {
	ran := false
	a := New()
	a.Add(Check{ID: "first", Run: pass})
	a.Add(Check{ID: "gate", Class: Hard, Run: failWith(&Failure{Field: "email", Expected: "valid"})})
	a.Add(Check{ID: "after", Run: func(context.Context) error { ran = true; return nil }})

	r, err := a.Evaluate(context.Background())
	require.NoError(t, err)
	assert.True(t, r.Aborted)
	assert.False(t, r.Pass)
	assert.Len(t, r.Results, 2)
	assert.False(t, ran, "checks after a hard failure must not run")
}

func TestEvaluate_HardPassContinues(t *testing.T) {
	a := New()
	a.Add(Check{ID: "gate", Class: Hard, Run: pass})
	a.Add(Check{ID: "next", Run: pass})

	r, err := a.Evaluate(context.Background())
	require.NoError(t, err)
	assert.False(t, r.Aborted)
	assert.Len(t, r.Results, 2)
}

func TestEvaluate_Kinds(t *testing.T) {
	a := New()
	a.Add(Check{ID: "timeout", Run: failWith(&ui.TimeoutError{What: "email", After: 5 * time.Second})})
	a.Add(Check{ID: "traversal", Run: failWith(&locator.IndicatorNotFoundError{Field: "email", Locator: ui.ByCSS("#e").Ancestor(2)})})
	a.Add(Check{ID: "wrapped", Run: failWith(errors.Join(errors.New("ctx"), &Failure{Field: "email", Expected: "pristine"}))})

	r, err := a.Evaluate(context.Background())
	require.NoError(t, err)
	require.Len(t, r.Results, 3)
	assert.Equal(t, KindTimeout, r.Results[0].Kind)
	assert.Contains(t, r.Results[0].Detail, "timed out after 5s")
	assert.Equal(t, KindIndicatorNotFound, r.Results[1].Kind)
	assert.Equal(t, KindAssertion, r.Results[2].Kind)
	assert.Equal(t, "pristine", r.Results[2].Expected)
}

func TestEvaluate_UnclassifiedErrorStops(t *testing.T) {
	a := New()
	a.Add(Check{ID: "ok", Run: pass})
	a.Add(Check{ID: "broken", Run: failWith(&field.UnknownFieldError{ID: "nickname"})})

	r, err := a.Evaluate(context.Background())
	require.Error(t, err)
	assert.Nil(t, r)
	assert.True(t, field.IsConfigError(err))
	assert.Contains(t, err.Error(), "check broken")
}

func TestEvaluate_CancelledYieldsNoReport(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := New()
	a.Add(Check{ID: "first", Run: func(context.Context) error { cancel(); return nil }})
	a.Add(Check{ID: "second", Run: pass})

	r, err := a.Evaluate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, r)
}

func TestEvaluate_CancelDuringCheck(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	a := New()
	a.Add(Check{ID: "slow", Run: func(ctx context.Context) error {
		cancel()
		return &ui.TimeoutError{What: "x"}
	}})

	r, err := a.Evaluate(ctx)
	assert.ErrorIs(t, err, context.Canceled)
	assert.Nil(t, r)
}

func TestFailure_CarriesSnapshot(t *testing.T) {
	observed := &state.Snapshot{BorderColor: state.Neutral, SuccessVisible: true}
	mismatches := state.Diff(state.Invalid, *observed, field.Flags{HasErrorIndicator: true, IsRequired: true})

	a := New()
	a.Add(Check{ID: "lastName.cleared", Field: "lastName", Run: failWith(&Failure{
		Field:            "lastName",
		Expected:         "invalid",
		Observed:         observed,
		Mismatches:       mismatches,
		KnownDefect:      "sticky-success",
		DefectReproduced: true,
	})})

	r, err := a.Evaluate(context.Background())
	require.NoError(t, err)
	got := r.Results[0]

	want := Result{
		CheckID:          "lastName.cleared",
		Field:            "lastName",
		Class:            Soft,
		Kind:             KindAssertion,
		Expected:         "invalid",
		Observed:         observed,
		Mismatches:       mismatches,
		KnownDefect:      "sticky-success",
		DefectReproduced: true,
	}
	got.Detail = ""
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("result mismatch (-want +got):\n%s", diff)
	}
	assert.Contains(t, r.Results[0].Detail, "success_visible: want false, got true")
	assert.Contains(t, r.Results[0].Detail, "known defect sticky-success reproduced")
}

func TestParseClass(t *testing.T) {
	c, err := ParseClass("")
	require.NoError(t, err)
	assert.Equal(t, Soft, c)
	c, err = ParseClass("hard")
	require.NoError(t, err)
	assert.Equal(t, Hard, c)
	_, err = ParseClass("fatal")
	assert.Error(t, err)
}

func TestReport_Render(t *testing.T) {
	r := &Report{
		Scenario: "clear required fields",
		Results: []Result{
			{CheckID: "email.state", Passed: true},
			{CheckID: "lastName.state", Kind: KindAssertion, Detail: "field \"lastName\": expected invalid", KnownDefect: "sticky-success", DefectReproduced: true},
		},
		Aborted: true,
	}

	var buf bytes.Buffer
	require.NoError(t, r.Render(&buf))
	want := `FAIL clear required fields
  ok   email.state
  FAIL lastName.state [assertion]
       field "lastName": expected invalid
       known defect: sticky-success (reproduced: true)
  aborted after hard failure
  1 passed, 1 failed
`
	assert.Equal(t, want, buf.String())
}
