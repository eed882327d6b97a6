package field

import (
	"bytes"
	_ "embed"
	"fmt"
	"os"
	"path/filepath"

	"cuelang.org/go/cue"
	"cuelang.org/go/cue/cuecontext"
	cueerrors "cuelang.org/go/cue/errors"
	"gopkg.in/yaml.v3"

	"github.com/roach88/formcheck/internal/ui"
)

//go:embed schema.cue
var schemaCUE string

// File is the on-disk form of a registry: plain structured data that can be
// authored without touching harness logic.
type File struct {
	Controls *FileControls `yaml:"controls,omitempty" json:"controls,omitempty"`
	Fields   []FileField   `yaml:"fields" json:"fields"`
}

// FileControls is the on-disk form of Controls.
type FileControls struct {
	Submit     ui.Locator `yaml:"submit" json:"submit"`
	BusyLabel  string     `yaml:"busy_label,omitempty" json:"busy_label,omitempty"`
	Newsletter ui.Locator `yaml:"newsletter,omitempty" json:"newsletter,omitempty"`
}

// FileField is the on-disk form of a Descriptor.
type FileField struct {
	ID              string             `yaml:"id" json:"id"`
	Label           string             `yaml:"label,omitempty" json:"label,omitempty"`
	Kind            string             `yaml:"kind,omitempty" json:"kind,omitempty"`
	Input           ui.Locator         `yaml:"input" json:"input"`
	Success         *IndicatorRelation `yaml:"success,omitempty" json:"success,omitempty"`
	Error           *IndicatorRelation `yaml:"error,omitempty" json:"error,omitempty"`
	RequiredMessage ui.Locator         `yaml:"required_message" json:"required_message"`
	ValidValue      string             `yaml:"valid_value" json:"valid_value"`
	Flags           *FileFlags         `yaml:"flags,omitempty" json:"flags,omitempty"`
}

// FileFlags is the on-disk form of Flags; omitted flags default to true.
type FileFlags struct {
	HasErrorIndicator *bool `yaml:"has_error_indicator,omitempty" json:"has_error_indicator,omitempty"`
	IsRequired        *bool `yaml:"is_required,omitempty" json:"is_required,omitempty"`
}

// Descriptor converts the on-disk field, filling defaults.
func (f FileField) Descriptor() Descriptor {
	d := Descriptor{
		ID:              ID(f.ID),
		Label:           f.Label,
		Kind:            Kind(f.Kind),
		Input:           f.Input,
		Success:         mergeRelation(SuccessRelation(), f.Success),
		Error:           mergeRelation(ErrorRelation(), f.Error),
		RequiredMessage: f.RequiredMessage,
		ValidValue:      f.ValidValue,
		Flags:           Flags{HasErrorIndicator: true, IsRequired: true},
	}
	if d.Kind == "" {
		d.Kind = KindText
	}
	if f.Flags != nil {
		if f.Flags.HasErrorIndicator != nil {
			d.Flags.HasErrorIndicator = *f.Flags.HasErrorIndicator
		}
		if f.Flags.IsRequired != nil {
			d.Flags.IsRequired = *f.Flags.IsRequired
		}
	}
	return d
}

func mergeRelation(def IndicatorRelation, r *IndicatorRelation) IndicatorRelation {
	if r == nil {
		return def
	}
	if r.Depth != 0 {
		def.Depth = r.Depth
	}
	if r.Marker != "" {
		def.Marker = r.Marker
	}
	if r.Fill != "" {
		def.Fill = r.Fill
	}
	return def
}

// Build registers every field of the file and freezes the registry.
func (f *File) Build() (*Registry, error) {
	if len(f.Fields) == 0 {
		return nil, &DescriptorError{Field: "fields", Message: "at least one field is required"}
	}
	r := NewRegistry()
	for _, ff := range f.Fields {
		if err := r.Register(ff.Descriptor()); err != nil {
			return nil, err
		}
	}
	if f.Controls != nil {
		if err := r.SetControls(Controls{
			Submit:     f.Controls.Submit,
			BusyLabel:  f.Controls.BusyLabel,
			Newsletter: f.Controls.Newsletter,
		}); err != nil {
			return nil, err
		}
	}
	return r.Freeze(), nil
}

// Load reads a registry file, choosing the format by extension
// (.yaml/.yml or .cue).
func Load(path string) (*Registry, error) {
	switch filepath.Ext(path) {
	case ".cue":
		return LoadCUE(path)
	case ".yaml", ".yml":
		return LoadYAML(path)
	default:
		return nil, fmt.Errorf("unsupported registry format %q", filepath.Ext(path))
	}
}

// LoadYAML reads a YAML registry file. Unknown keys are rejected so that a
// typo fails at configuration time rather than at first use.
func LoadYAML(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	return ParseYAML(data)
}

// ParseYAML parses a YAML registry document.
func ParseYAML(data []byte) (*Registry, error) {
	var file File
	decoder := yaml.NewDecoder(bytes.NewReader(data))
	decoder.KnownFields(true)
	if err := decoder.Decode(&file); err != nil {
		return nil, fmt.Errorf("failed to parse registry YAML: %w", err)
	}
	return file.Build()
}

// LoadCUE reads a CUE registry file and checks it against the registry schema.
func LoadCUE(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read registry file: %w", err)
	}
	return ParseCUE(data, path)
}

// ParseCUE compiles a CUE registry document, unifies it with #Registry
// (which supplies defaults and constraints) and decodes the result.
func ParseCUE(data []byte, filename string) (*Registry, error) {
	ctx := cuecontext.New()

	schema := ctx.CompileString(schemaCUE, cue.Filename("schema.cue"))
	if err := schema.Err(); err != nil {
		return nil, fmt.Errorf("registry schema: %w", err)
	}

	doc := ctx.CompileBytes(data, cue.Filename(filename))
	if err := doc.Err(); err != nil {
		return nil, formatCUEError(err)
	}

	value := schema.LookupPath(cue.ParsePath("#Registry")).Unify(doc)
	if err := value.Validate(cue.Concrete(true)); err != nil {
		return nil, formatCUEError(err)
	}

	var file File
	if err := value.Decode(&file); err != nil {
		return nil, formatCUEError(err)
	}
	return file.Build()
}

// formatCUEError flattens CUE's multi-error into one message with positions.
func formatCUEError(err error) error {
	return fmt.Errorf("invalid registry: %s", cueerrors.Details(err, nil))
}
