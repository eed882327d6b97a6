package field

import (
	"fmt"
	"regexp"

	"github.com/roach88/formcheck/internal/ui"
)

// ID identifies a registered field. It is a stable key, never derived from
// label text.
type ID string

// Kind selects how a field receives a Fill action.
type Kind string

const (
	// KindText fields are typed into.
	KindText Kind = "text"
	// KindSelect fields open a listbox and pick the option named by the value.
	KindSelect Kind = "select"
)

// Status icon markers rendered next to form inputs.
const (
	DefaultMarker = `svg[data-testid="icon-svg"]`
	SuccessFill   = "#93BD49"
	ErrorFill     = "#EC272B"
	DefaultDepth  = 2
)

// IndicatorRelation locates a status indicator relative to a field's input:
// walk Depth parent elements up from the input to the field's wrapper, then
// query for Marker carrying the given fill color.
//
// The depth couples the harness to the form's markup. A markup change should
// be a one-line edit here, not a search through scenarios.
type IndicatorRelation struct {
	Depth  int    `yaml:"depth" json:"depth"`
	Marker string `yaml:"marker" json:"marker"`
	Fill   string `yaml:"fill" json:"fill"`
}

// SuccessRelation returns the default success indicator relation.
func SuccessRelation() IndicatorRelation {
	return IndicatorRelation{Depth: DefaultDepth, Marker: DefaultMarker, Fill: SuccessFill}
}

// ErrorRelation returns the default error indicator relation.
func ErrorRelation() IndicatorRelation {
	return IndicatorRelation{Depth: DefaultDepth, Marker: DefaultMarker, Fill: ErrorFill}
}

// Flags declare where a field deviates from the default validation contract.
type Flags struct {
	// HasErrorIndicator is false for fields without a discrete error icon;
	// their error-indicator check is skipped, never asserted false.
	HasErrorIndicator bool `yaml:"has_error_indicator" json:"has_error_indicator"`
	// IsRequired decides whether clearing the field is expected to make it
	// Invalid (required) or Pristine (optional).
	IsRequired bool `yaml:"is_required" json:"is_required"`
}

// Descriptor is the static description of one form field.
type Descriptor struct {
	ID              ID
	Label           string
	Kind            Kind
	Input           ui.Locator
	Success         IndicatorRelation
	Error           IndicatorRelation
	RequiredMessage ui.Locator
	// ValidValue satisfies the field's format rules and exercises no edge
	// case. It exists to produce a deterministic Valid observation.
	ValidValue string
	Flags      Flags
}

var validID = regexp.MustCompile(`^[A-Za-z][A-Za-z0-9_]*$`)

// Validate checks the descriptor's own invariants.
func (d Descriptor) Validate() error {
	if !validID.MatchString(string(d.ID)) {
		return &DescriptorError{ID: d.ID, Field: "id", Message: fmt.Sprintf("invalid id %q: must match %s", d.ID, validID)}
	}
	switch d.Kind {
	case KindText, KindSelect:
	default:
		return &DescriptorError{ID: d.ID, Field: "kind", Message: fmt.Sprintf("unknown kind %q", d.Kind)}
	}
	if d.Input.IsZero() {
		return &DescriptorError{ID: d.ID, Field: "input", Message: "input locator is required"}
	}
	if d.RequiredMessage.IsZero() {
		return &DescriptorError{ID: d.ID, Field: "required_message", Message: "required message locator is required"}
	}
	if d.ValidValue == "" {
		return &DescriptorError{ID: d.ID, Field: "valid_value", Message: "valid value must not be empty"}
	}
	if err := d.Success.validate(d.ID, "success"); err != nil {
		return err
	}
	if d.Flags.HasErrorIndicator {
		if err := d.Error.validate(d.ID, "error"); err != nil {
			return err
		}
	}
	return nil
}

func (r IndicatorRelation) validate(id ID, name string) error {
	if r.Depth < 1 {
		return &DescriptorError{ID: id, Field: name + ".depth", Message: fmt.Sprintf("depth must be at least 1, got %d", r.Depth)}
	}
	if r.Marker == "" {
		return &DescriptorError{ID: id, Field: name + ".marker", Message: "marker selector is required"}
	}
	if r.Fill == "" {
		return &DescriptorError{ID: id, Field: name + ".fill", Message: "fill color is required"}
	}
	return nil
}

// Names of the form controls a scenario can address.
const (
	ControlSubmit     = "submit"
	ControlNewsletter = "newsletter"
)

// Controls are the form-level elements shared by all fields.
type Controls struct {
	Submit     ui.Locator
	BusyLabel  string
	Newsletter ui.Locator
}

// Control returns the locator of the control called name.
func (c Controls) Control(name string) (ui.Locator, error) {
	var loc ui.Locator
	switch name {
	case ControlSubmit:
		loc = c.Submit
	case ControlNewsletter:
		loc = c.Newsletter
	default:
		return ui.Locator{}, fmt.Errorf("unknown control %q (want %s or %s)", name, ControlSubmit, ControlNewsletter)
	}
	if loc.IsZero() {
		return ui.Locator{}, fmt.Errorf("registry defines no %s control", name)
	}
	return loc, nil
}
