package harness

import (
	"bytes"
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/roach88/formcheck/internal/testutil"
)

func TestRunWithGolden_ValidField(t *testing.T) {
	runner, _ := newTestRunner(signup(), testutil.NewFakeForm())
	sc := &Scenario{
		Name:        "email_valid",
		Description: "A canonical email settles valid",
		Steps: []Step{
			{Field: "email", Action: "fill"},
			{Action: "defocus"},
		},
		Expect: []Expectation{{Field: "email", State: "valid"}},
	}

	// Regenerate with: go test ./internal/harness -run TestRunWithGolden -update
	report, err := RunWithGolden(t, runner, sc)
	require.NoError(t, err)
	assert.True(t, report.Pass)
}

func TestRunWithGolden_KnownDefect(t *testing.T) {
	page := testutil.NewFakeForm(testutil.WithStickySuccess("lastName"))
	runner, _ := newTestRunner(signup(), page)
	sc := &Scenario{
		Name:        "last_name_sticky_success",
		Description: "Clearing a valid last name must show the error",
		Steps: []Step{
			{Field: "lastName", Action: "fill"},
			{Action: "defocus"},
			{Field: "lastName", Action: "clear"},
			{Action: "defocus"},
		},
		Expect: []Expectation{{
			Field:       "lastName",
			State:       "invalid",
			KnownDefect: &KnownDefect{ID: "sticky-success", Observed: "successVisible && !errorVisible"},
		}},
	}

	report, err := RunWithGolden(t, runner, sc)
	require.NoError(t, err)
	assert.False(t, report.Pass)
}

func TestRunWithGolden_ConfigError(t *testing.T) {
	runner, _ := newTestRunner(signup(), testutil.NewFakeForm())
	sc := &Scenario{
		Name:        "unknown_field",
		Description: "d",
		Steps:       []Step{{Field: "middleName", Action: "fill"}},
		Expect:      []Expectation{{Field: "middleName", State: "valid"}},
	}

	report, err := RunWithGolden(t, runner, sc)
	require.Error(t, err)
	assert.Nil(t, report)
	assert.True(t, IsConfigError(err))
}

func TestMarshalReport_Deterministic(t *testing.T) {
	sc := ClearScenario(signup())

	var outputs [][]byte
	for i := 0; i < 3; i++ {
		runner, _ := newTestRunner(signup(), testutil.NewFakeForm())
		report, err := runner.Run(context.Background(), sc)
		require.NoError(t, err)

		data, err := MarshalReport(sc, report)
		require.NoError(t, err)
		outputs = append(outputs, data)
	}

	assert.Equal(t, outputs[0], outputs[1])
	assert.Equal(t, outputs[1], outputs[2])
	assert.True(t, bytes.HasSuffix(outputs[0], []byte("}\n")))
	assert.NotContains(t, string(outputs[0]), "run_id", "run ids differ between runs and stay out of golden files")
}
