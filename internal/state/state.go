// Package state defines the observable validation states of a form field
// and how to read and compare them.
//
// A Snapshot is a point-in-time read of one field. It is recomputed on
// every read and never cached across actions: a cached read would hide UI
// lag and stale-state defects. State is derived from a Snapshot and is
// likewise never stored.
//
//	State     value      success  error          border     message
//	Pristine  empty      hidden   hidden         neutral    hidden
//	Valid     non-empty  visible  hidden         neutral    hidden
//	Invalid   any        hidden   visible (1)    error-red  visible (2)
//
// (1) only for fields with an error indicator; otherwise not checked.
// (2) only when the value is empty; a malformed value shows no required
// message.
package state

import (
	"context"
	"fmt"

	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/locator"
	"github.com/roach88/formcheck/internal/ui"
)

// State is a canonical visual state of a field.
type State string

const (
	Pristine State = "pristine"
	Valid    State = "valid"
	Invalid  State = "invalid"
	// Unknown is what Classify returns for a snapshot matching no state.
	Unknown State = "unknown"
)

// ParseState parses a state name as used in scenario files.
func ParseState(s string) (State, error) {
	switch st := State(s); st {
	case Pristine, Valid, Invalid:
		return st, nil
	}
	return "", fmt.Errorf("unknown state %q (want pristine, valid or invalid)", s)
}

// Snapshot is a point-in-time read of one field's observable UI state.
type Snapshot struct {
	Value          string `json:"value"`
	BorderColor    Color  `json:"border_color"`
	SuccessVisible bool   `json:"success_visible"`
	ErrorVisible   bool   `json:"error_visible"`
	MessageVisible bool   `json:"message_visible"`
}

func (s Snapshot) String() string {
	return fmt.Sprintf("value=%q border=%s success=%t error=%t message=%t",
		s.Value, s.BorderColor, s.SuccessVisible, s.ErrorVisible, s.MessageVisible)
}

// ReadSnapshot reads all five properties of the field h points at. The
// error indicator is read only if the field has one.
func ReadSnapshot(ctx context.Context, page ui.Page, h locator.Handles) (Snapshot, error) {
	var s Snapshot
	var err error

	if s.Value, err = page.Value(ctx, h.Input); err != nil {
		return Snapshot{}, err
	}
	border, err := page.CSS(ctx, h.Input, "border-color")
	if err != nil {
		return Snapshot{}, err
	}
	if s.BorderColor, err = ParseColor(border); err != nil {
		// Not a design-token notation; keep what was observed so it is
		// reported as a border mismatch.
		s.BorderColor = RawColor(border)
	}
	if s.SuccessVisible, err = page.Visible(ctx, h.Success()); err != nil {
		return Snapshot{}, err
	}
	if errLoc, lerr := h.Error(); lerr == nil {
		if s.ErrorVisible, err = page.Visible(ctx, errLoc); err != nil {
			return Snapshot{}, err
		}
	}
	if s.MessageVisible, err = page.Visible(ctx, h.Message); err != nil {
		return Snapshot{}, err
	}
	return s, nil
}

// Mismatch is one property of a snapshot that disagrees with a state.
type Mismatch struct {
	Property string `json:"property"`
	Want     string `json:"want"`
	Got      string `json:"got"`
}

func (m Mismatch) String() string {
	return fmt.Sprintf("%s: want %s, got %s", m.Property, m.Want, m.Got)
}

// Diff lists the properties of s that disagree with expected. An empty
// result means s is in the expected state.
func Diff(expected State, s Snapshot, flags field.Flags) []Mismatch {
	var out []Mismatch
	check := func(prop string, want, got bool) {
		if want != got {
			out = append(out, Mismatch{Property: prop, Want: fmt.Sprint(want), Got: fmt.Sprint(got)})
		}
	}
	border := func(want Color) {
		if s.BorderColor != want {
			out = append(out, Mismatch{Property: "border_color", Want: string(want), Got: string(s.BorderColor)})
		}
	}

	switch expected {
	case Pristine:
		if s.Value != "" {
			out = append(out, Mismatch{Property: "value", Want: "empty", Got: fmt.Sprintf("%q", s.Value)})
		}
		check("success_visible", false, s.SuccessVisible)
		if flags.HasErrorIndicator {
			check("error_visible", false, s.ErrorVisible)
		}
		border(Neutral)
		check("message_visible", false, s.MessageVisible)
	case Valid:
		if s.Value == "" {
			out = append(out, Mismatch{Property: "value", Want: "non-empty", Got: `""`})
		}
		check("success_visible", true, s.SuccessVisible)
		if flags.HasErrorIndicator {
			check("error_visible", false, s.ErrorVisible)
		}
		border(Neutral)
		check("message_visible", false, s.MessageVisible)
	case Invalid:
		check("success_visible", false, s.SuccessVisible)
		if flags.HasErrorIndicator {
			check("error_visible", true, s.ErrorVisible)
		}
		border(ErrorRed)
		if s.Value == "" {
			check("message_visible", true, s.MessageVisible)
		}
	default:
		out = append(out, Mismatch{Property: "state", Want: string(expected), Got: "unsupported expectation"})
	}
	return out
}

// Classify derives the state of s, or Unknown if it matches none.
func Classify(s Snapshot, flags field.Flags) State {
	for _, st := range []State{Pristine, Valid, Invalid} {
		if len(Diff(st, s, flags)) == 0 {
			return st
		}
	}
	return Unknown
}

// Action is one of the primitive verbs a scenario drives a field with.
type Action string

const (
	Fill    Action = "fill"
	Clear   Action = "clear"
	Defocus Action = "defocus"
	Submit  Action = "submit"
	// Toggle clicks a named form control such as the newsletter checkbox.
	Toggle Action = "toggle"
)

// ParseAction parses an action name as used in scenario files.
func ParseAction(s string) (Action, error) {
	switch a := Action(s); a {
	case Fill, Clear, Defocus, Submit, Toggle:
		return a, nil
	}
	return "", fmt.Errorf("unknown action %q (want fill, clear, defocus, submit or toggle)", s)
}

// After returns the state a field is expected to settle in once a has been
// applied and the field defocused. Fill assumes the field's canonical valid
// value.
func After(a Action, prev State, flags field.Flags) State {
	switch a {
	case Fill:
		return Valid
	case Clear:
		if prev == Pristine {
			return Pristine
		}
		if flags.IsRequired {
			return Invalid
		}
		return Pristine
	case Submit:
		if prev == Pristine && flags.IsRequired {
			return Invalid
		}
		return prev
	default:
		return prev
	}
}
