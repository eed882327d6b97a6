package harness

import (
	"context"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	checks "github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/locator"
	"github.com/roach88/formcheck/internal/state"
	"github.com/roach88/formcheck/internal/testutil"
)

func validSnapshot(value string) state.Snapshot {
	return state.Snapshot{Value: value, BorderColor: state.Neutral, SuccessVisible: true}
}

func planned(t *testing.T, id field.ID, e Expectation) plannedExpectation {
	t.Helper()
	d, err := signup().Get(id)
	require.NoError(t, err)
	e.Field = string(id)
	pe := plannedExpectation{Expectation: e, desc: d}
	if e.State != "" {
		pe.state, err = state.ParseState(e.State)
		require.NoError(t, err)
	}
	if e.Where != "" {
		pe.where, err = compileWhere(e.Where)
		require.NoError(t, err)
	}
	return pe
}

func TestCompare_StateAndValue(t *testing.T) {
	pe := planned(t, field.Email, Expectation{State: "valid", Value: ptr("jane@example.com")})

	got, err := compare(pe, validSnapshot("jane@example.com"), nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = compare(pe, validSnapshot("john@example.com"), nil)
	require.NoError(t, err)
	want := []state.Mismatch{{Property: "value", Want: `"jane@example.com"`, Got: `"john@example.com"`}}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compare() mismatch (-want +got):\n%s", diff)
	}
}

func TestCompare_ErrorVisible(t *testing.T) {
	pe := planned(t, field.Email, Expectation{ErrorVisible: ptr(true)})

	got, err := compare(pe, validSnapshot("jane@example.com"), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "error_visible", got[0].Property)
	assert.Equal(t, "true", got[0].Want)
}

func TestCompare_Where(t *testing.T) {
	pe := planned(t, field.Email, Expectation{Where: `state == "invalid" && !messageVisible`})

	malformed := state.Snapshot{Value: "nope", BorderColor: state.ErrorRed, ErrorVisible: true}
	got, err := compare(pe, malformed, nil)
	require.NoError(t, err)
	assert.Empty(t, got)

	got, err = compare(pe, validSnapshot("jane@example.com"), nil)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, "where", got[0].Property)
}

func TestCompare_Capture(t *testing.T) {
	pe := planned(t, field.Email, Expectation{MatchesCapture: "first"})
	first := validSnapshot("jane@example.com")

	got, err := compare(pe, first, &first)
	require.NoError(t, err)
	assert.Empty(t, got)

	later := first
	later.BorderColor = state.ErrorRed
	later.SuccessVisible = false
	got, err = compare(pe, later, &first)
	require.NoError(t, err)
	want := []state.Mismatch{
		{Property: "capture first.border_color", Want: "rgb(0, 0, 0)", Got: "rgb(236, 39, 43)"},
		{Property: "capture first.success_visible", Want: "true", Got: "false"},
	}
	if diff := cmp.Diff(want, got); diff != "" {
		t.Errorf("compare() mismatch (-want +got):\n%s", diff)
	}
}

func TestMissingIndicator(t *testing.T) {
	tests := []struct {
		name   string
		id     field.ID
		e      Expectation
		snap   state.Snapshot
		want   locator.Indicator
		wantOK bool
	}{
		{
			name:   "valid without success icon",
			id:     field.Email,
			e:      Expectation{State: "valid"},
			snap:   state.Snapshot{Value: "jane@example.com", BorderColor: state.Neutral},
			want:   locator.Success,
			wantOK: true,
		},
		{
			name:   "invalid without error icon",
			id:     field.Email,
			e:      Expectation{State: "invalid"},
			snap:   state.Snapshot{Value: "x", BorderColor: state.ErrorRed},
			want:   locator.Error,
			wantOK: true,
		},
		{
			name: "field without error indicator",
			id:   field.Location,
			e:    Expectation{State: "invalid"},
			snap: state.Snapshot{Value: "x", BorderColor: state.ErrorRed},
		},
		{
			name: "other properties wrong too",
			id:   field.Email,
			e:    Expectation{State: "valid"},
			snap: state.Snapshot{BorderColor: state.Neutral},
		},
		{
			name: "indicator shown",
			id:   field.Email,
			e:    Expectation{State: "valid"},
			snap: validSnapshot("jane@example.com"),
		},
	}

	for _, tt := range tests {
		tt := tt // per-iteration copy (go 1.21 loop semantics)
		t.Run(tt.name, func(t *testing.T) {
			pe := planned(t, tt.id, tt.e)
			mismatches, err := compare(pe, tt.snap, nil)
			require.NoError(t, err)

			got, ok := missingIndicator(pe, tt.snap, mismatches)
			assert.Equal(t, tt.wantOK, ok)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDescribe(t *testing.T) {
	pe := planned(t, field.Email, Expectation{
		State:          "invalid",
		Value:          ptr(""),
		ErrorVisible:   ptr(true),
		Where:          "messageVisible",
		MatchesCapture: "first",
	})
	assert.Equal(t, `invalid, value="", error_visible=true, where messageVisible, matches capture "first"`, describe(pe))
}

func TestEvalWhere_StateVariable(t *testing.T) {
	program, err := compileWhere(`state == "pristine" && border == "rgb(0, 0, 0)"`)
	require.NoError(t, err)

	ok, err := evalWhere(program, state.Snapshot{BorderColor: state.Neutral}, field.Flags{IsRequired: true, HasErrorIndicator: true})
	require.NoError(t, err)
	assert.True(t, ok)

	ok, err = evalWhere(program, validSnapshot("x"), field.Flags{})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestCompileWhere_UnknownVariable(t *testing.T) {
	_, err := compileWhere("colour == 1")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "colour")
}

func TestFormCheck_WrongLabelIsAssertion(t *testing.T) {
	runner, _ := newTestRunner(signup(), testutil.NewFakeForm())
	sc := &Scenario{
		Name:        "label",
		Description: "an untouched form is not busy",
		Steps:       []Step{{Action: "defocus"}},
		Form:        &FormExpectation{SubmitLabel: "Please wait..."},
	}

	report, err := runner.Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.Equal(t, "form.submit_label", res.CheckID)
	assert.Equal(t, checks.KindAssertion, res.Kind)
	assert.Equal(t, `form: expected submit label "Please wait...": got "Sign up"`, res.Detail)
}

func TestVerifyField_CaptureFailurePropagates(t *testing.T) {
	// The sticky form never lets the cleared field settle invalid, so the
	// capture itself times out.
	page := testutil.NewFakeForm(testutil.WithStickySuccess("lastName"))
	runner, _ := newTestRunner(signup(), page)
	sc := &Scenario{
		Name:        "bad_capture",
		Description: "capture of a field that never settles",
		Steps: []Step{
			{Field: "lastName", Action: "fill"},
			{Action: "defocus"},
			{Field: "lastName", Action: "clear"},
			{Field: "lastName", Action: "defocus", Capture: "cleared"},
		},
		Expect: []Expectation{{Field: "lastName", MatchesCapture: "cleared"}},
	}

	report, err := runner.Run(context.Background(), sc)
	require.NoError(t, err)
	require.Len(t, report.Results, 1)

	res := report.Results[0]
	assert.False(t, res.Passed)
	assert.Equal(t, "lastName.snapshot", res.CheckID)
	assert.Equal(t, checks.KindTimeout, res.Kind)
	assert.Contains(t, res.Detail, `capture "cleared"`)
}
