package harness

import (
	"fmt"

	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/state"
)

// The builders below express the form's validation principles as
// parameterized scenarios over a registry. Each takes an optional list of
// field ids; with none, every registered field is used in registration order.

func selectIDs(reg *field.Registry, ids []field.ID) []field.ID {
	if len(ids) == 0 {
		return reg.IDs()
	}
	return ids
}

func mustGet(reg *field.Registry, id field.ID) field.Descriptor {
	d, err := reg.Get(id)
	if err != nil {
		// Builders only receive ids from the same registry; an unknown id
		// surfaces as a ConfigError when the scenario runs.
		return field.Descriptor{ID: id}
	}
	return d
}

// ValidFillScenario fills each field with its canonical valid value and
// defocuses; every field must end Valid.
func ValidFillScenario(reg *field.Registry, ids ...field.ID) *Scenario {
	s := &Scenario{
		Name:        "valid_fill",
		Description: "Filling each field with its canonical value and defocusing yields Valid",
	}
	for _, id := range selectIDs(reg, ids) {
		s.Steps = append(s.Steps,
			Step{Field: string(id), Action: string(state.Fill)},
			Step{Action: string(state.Defocus)},
		)
		s.Expect = append(s.Expect, Expectation{Field: string(id), State: string(state.Valid)})
	}
	return s
}

// ClearScenario fills, defocuses, clears and defocuses each field. Required
// fields must end Invalid, optional fields Pristine.
func ClearScenario(reg *field.Registry, ids ...field.ID) *Scenario {
	s := &Scenario{
		Name:        "clear_after_valid",
		Description: "Clearing a previously valid field yields Invalid if required, else Pristine",
	}
	for _, id := range selectIDs(reg, ids) {
		d := mustGet(reg, id)
		s.Steps = append(s.Steps,
			Step{Field: string(id), Action: string(state.Fill)},
			Step{Action: string(state.Defocus)},
			Step{Field: string(id), Action: string(state.Clear)},
			Step{Action: string(state.Defocus)},
		)
		want := state.After(state.Clear, state.After(state.Fill, state.Pristine, d.Flags), d.Flags)
		s.Expect = append(s.Expect, Expectation{Field: string(id), State: string(want), Value: ptr("")})
	}
	return s
}

// EmptySubmitScenario submits the untouched form. Every required field must
// turn Invalid with its message, and the form must not navigate away.
func EmptySubmitScenario(reg *field.Registry, ids ...field.ID) *Scenario {
	s := &Scenario{
		Name:        "empty_submit",
		Description: "Submitting with every field pristine marks required fields invalid and stays on the form",
		Steps:       []Step{{Action: string(state.Submit)}},
		Form:        &FormExpectation{StaysOnForm: true, SubmitEnabled: ptr(false)},
	}
	for _, id := range selectIDs(reg, ids) {
		d := mustGet(reg, id)
		want := state.After(state.Submit, state.Pristine, d.Flags)
		s.Expect = append(s.Expect, Expectation{Field: string(id), State: string(want)})
	}
	return s
}

// FilledSubmitScenario fills every field and submits; the submit control
// must show its busy label.
func FilledSubmitScenario(reg *field.Registry, busyLabel string) *Scenario {
	s := &Scenario{
		Name:        "filled_submit",
		Description: "Submitting a fully valid form shows the busy label",
		Form:        &FormExpectation{SubmitEnabled: ptr(true), SubmitLabel: busyLabel},
	}
	for _, id := range reg.IDs() {
		s.Steps = append(s.Steps,
			Step{Field: string(id), Action: string(state.Fill)},
			Step{Action: string(state.Defocus)},
		)
		s.Expect = append(s.Expect, Expectation{Field: string(id), State: string(state.Valid)})
	}
	s.Steps = append(s.Steps, Step{Action: string(state.Submit)})
	return s
}

// RoundTripScenario checks that Fill, Clear, Fill reproduces the snapshot
// of the first Fill.
func RoundTripScenario(reg *field.Registry, id field.ID) *Scenario {
	capture := fmt.Sprintf("%s_first_fill", id)
	return &Scenario{
		Name:        fmt.Sprintf("round_trip_%s", id),
		Description: "Fill, clear and fill again leaves no residual state",
		Steps: []Step{
			{Field: string(id), Action: string(state.Fill)},
			{Field: string(id), Action: string(state.Defocus), Capture: capture},
			{Field: string(id), Action: string(state.Clear)},
			{Action: string(state.Defocus)},
			{Field: string(id), Action: string(state.Fill)},
			{Action: string(state.Defocus)},
		},
		Expect: []Expectation{{Field: string(id), State: string(state.Valid), MatchesCapture: capture}},
	}
}

func ptr[T any](v T) *T {
	return &v
}
