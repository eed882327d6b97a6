package harness

import (
	"bytes"
	"fmt"
	"os"
	"path/filepath"
	"sort"

	"gopkg.in/yaml.v3"

	"github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/state"
)

// Scenario is a declarative sequence of actions followed by the expected
// post-conditions, the unit of test execution.
type Scenario struct {
	// Name uniquely identifies this scenario. It also names its golden file.
	Name string `yaml:"name" json:"name"`

	// Description explains what this scenario validates.
	Description string `yaml:"description" json:"description"`

	// Steps are executed strictly in order.
	Steps []Step `yaml:"steps" json:"steps"`

	// Expect lists the expected post-conditions per field.
	Expect []Expectation `yaml:"expect,omitempty" json:"expect,omitempty"`

	// Skip excludes fields from every expectation of this scenario, e.g. a
	// field under documented-defect investigation.
	Skip []string `yaml:"skip,omitempty" json:"skip,omitempty"`

	// Form holds form-level expectations on the submit control and page.
	Form *FormExpectation `yaml:"form,omitempty" json:"form,omitempty"`
}

// Step applies one action. Field is required for fill and clear; defocus and
// submit act on the form; toggle clicks the form control named by Control.
type Step struct {
	Field   string `yaml:"field,omitempty" json:"field,omitempty"`
	Action  string `yaml:"action" json:"action"`
	Control string `yaml:"control,omitempty" json:"control,omitempty"`

	// Value is the text to fill. When nil, fill uses the field's canonical
	// valid value.
	Value *string `yaml:"value,omitempty" json:"value,omitempty"`

	// Capture stores the field's settled snapshot under this name after the
	// step, for a later matches_capture expectation.
	Capture string `yaml:"capture,omitempty" json:"capture,omitempty"`
}

// Expectation is the expected post-condition of one field.
type Expectation struct {
	Field string `yaml:"field" json:"field"`

	// State is pristine, valid or invalid, or "expected" for the state the
	// steps lead to under the field's flags (see state.After).
	State string `yaml:"state,omitempty" json:"state,omitempty"`

	// Value, when set, is the exact text the field must hold.
	Value *string `yaml:"value,omitempty" json:"value,omitempty"`

	// ErrorVisible asserts the error indicator directly. Setting it on a
	// field without an error indicator is a configuration error.
	ErrorVisible *bool `yaml:"error_visible,omitempty" json:"error_visible,omitempty"`

	// Where is a boolean expression over the snapshot (value, border,
	// successVisible, errorVisible, messageVisible, state).
	Where string `yaml:"where,omitempty" json:"where,omitempty"`

	// MatchesCapture names a capture whose snapshot must be reproduced.
	MatchesCapture string `yaml:"matches_capture,omitempty" json:"matches_capture,omitempty"`

	// Class is soft (default) or hard.
	Class string `yaml:"class,omitempty" json:"class,omitempty"`

	// KnownDefect links the expectation to a documented product defect.
	KnownDefect *KnownDefect `yaml:"known_defect,omitempty" json:"known_defect,omitempty"`
}

// KnownDefect describes a documented defective behavior. The expectation
// still asserts the correct behavior; a failure whose snapshot satisfies
// Observed is reported as the defect reproducing.
type KnownDefect struct {
	ID       string `yaml:"id" json:"id"`
	Observed string `yaml:"observed" json:"observed"`
}

// FormExpectation covers the form-level contract of a scenario.
type FormExpectation struct {
	// SubmitEnabled asserts whether the submit control accepts interaction.
	SubmitEnabled *bool `yaml:"submit_enabled,omitempty" json:"submit_enabled,omitempty"`

	// SubmitLabel asserts the submit control's text, e.g. the busy label.
	SubmitLabel string `yaml:"submit_label,omitempty" json:"submit_label,omitempty"`

	// StaysOnForm asserts that no navigation happened.
	StaysOnForm bool `yaml:"stays_on_form,omitempty" json:"stays_on_form,omitempty"`

	// FieldsInteractive asserts every non-skipped field is visible and enabled.
	FieldsInteractive bool `yaml:"fields_interactive,omitempty" json:"fields_interactive,omitempty"`

	// NewsletterChecked asserts the newsletter checkbox state.
	NewsletterChecked *bool `yaml:"newsletter_checked,omitempty" json:"newsletter_checked,omitempty"`
}

// ExpectedState is the State keyword deriving the target state from the
// steps instead of naming it.
const ExpectedState = "expected"

// LoadScenario reads and parses a scenario YAML file.
// Returns an error if the file doesn't exist, is malformed,
// contains unknown fields (typos), or is missing required fields.
func LoadScenario(path string) (*Scenario, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read scenario file: %w", err)
	}
	return ParseScenario(data)
}

// ParseScenario parses a scenario YAML document.
func ParseScenario(data []byte) (*Scenario, error) {
	// Strict decoding catches typos like "expects:" vs "expect:"
	var scenario Scenario
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&scenario); err != nil {
		return nil, fmt.Errorf("failed to parse YAML: %w", err)
	}

	if err := validateScenario(&scenario); err != nil {
		return nil, fmt.Errorf("invalid scenario: %w", err)
	}
	return &scenario, nil
}

// LoadScenarios loads every *.yaml and *.yml file in dir, sorted by file
// name. Scenario names must be unique.
func LoadScenarios(dir string) ([]*Scenario, error) {
	var paths []string
	for _, pattern := range []string{"*.yaml", "*.yml"} {
		matches, err := filepath.Glob(filepath.Join(dir, pattern))
		if err != nil {
			return nil, err
		}
		paths = append(paths, matches...)
	}
	sort.Strings(paths)

	seen := make(map[string]string, len(paths))
	scenarios := make([]*Scenario, 0, len(paths))
	for _, path := range paths {
		s, err := LoadScenario(path)
		if err != nil {
			return nil, fmt.Errorf("%s: %w", filepath.Base(path), err)
		}
		if prev, dup := seen[s.Name]; dup {
			return nil, fmt.Errorf("%s: duplicate scenario name %q (also in %s)", filepath.Base(path), s.Name, prev)
		}
		seen[s.Name] = filepath.Base(path)
		scenarios = append(scenarios, s)
	}
	return scenarios, nil
}

// validateScenario checks the scenario's shape. Field ids are checked
// against a registry when the scenario runs.
func validateScenario(s *Scenario) error {
	if s.Name == "" {
		return fmt.Errorf("name is required")
	}

	if s.Description == "" {
		return fmt.Errorf("description is required")
	}

	if len(s.Steps) == 0 {
		return fmt.Errorf("steps list is required and must be non-empty")
	}

	if len(s.Expect) == 0 && s.Form == nil {
		return fmt.Errorf("expect or form is required")
	}

	captures := make(map[string]bool)
	for i, step := range s.Steps {
		action, err := state.ParseAction(step.Action)
		if err != nil {
			return fmt.Errorf("steps[%d]: %w", i, err)
		}
		switch action {
		case state.Fill, state.Clear:
			if step.Field == "" {
				return fmt.Errorf("steps[%d]: field is required for %s", i, action)
			}
		case state.Toggle:
			if step.Control == "" {
				return fmt.Errorf("steps[%d]: control is required for toggle", i)
			}
			if step.Field != "" {
				return fmt.Errorf("steps[%d]: toggle takes a control, not a field", i)
			}
		}
		if action != state.Toggle && step.Control != "" {
			return fmt.Errorf("steps[%d]: control is only allowed for toggle", i)
		}
		if action != state.Fill && step.Value != nil {
			return fmt.Errorf("steps[%d]: value is only allowed for fill", i)
		}
		if step.Capture != "" {
			if step.Field == "" {
				return fmt.Errorf("steps[%d]: capture requires a field", i)
			}
			if captures[step.Capture] {
				return fmt.Errorf("steps[%d]: duplicate capture %q", i, step.Capture)
			}
			captures[step.Capture] = true
		}
	}

	for i, e := range s.Expect {
		i, e := i, e // per-iteration copy (go 1.21 loop semantics)
		if err := validateExpectation(i, &e, captures); err != nil {
			return err
		}
	}
	return nil
}

// validateExpectation validates a single expectation.
func validateExpectation(index int, e *Expectation, captures map[string]bool) error {
	if e.Field == "" {
		return fmt.Errorf("expect[%d]: field is required", index)
	}

	if e.State == "" && e.Value == nil && e.ErrorVisible == nil && e.Where == "" && e.MatchesCapture == "" {
		return fmt.Errorf("expect[%d]: at least one of state, value, error_visible, where or matches_capture is required", index)
	}

	if e.State != "" && e.State != ExpectedState {
		if _, err := state.ParseState(e.State); err != nil {
			return fmt.Errorf("expect[%d]: %w", index, err)
		}
	}

	if _, err := assert.ParseClass(e.Class); err != nil {
		return fmt.Errorf("expect[%d]: %w", index, err)
	}

	if e.MatchesCapture != "" && !captures[e.MatchesCapture] {
		return fmt.Errorf("expect[%d]: unknown capture %q", index, e.MatchesCapture)
	}

	if e.Where != "" {
		if _, err := compileWhere(e.Where); err != nil {
			return fmt.Errorf("expect[%d].where: %w", index, err)
		}
	}

	if e.KnownDefect != nil {
		if e.KnownDefect.ID == "" {
			return fmt.Errorf("expect[%d].known_defect: id is required", index)
		}
		if e.KnownDefect.Observed == "" {
			return fmt.Errorf("expect[%d].known_defect: observed is required", index)
		}
		if _, err := compileWhere(e.KnownDefect.Observed); err != nil {
			return fmt.Errorf("expect[%d].known_defect.observed: %w", index, err)
		}
	}
	return nil
}
