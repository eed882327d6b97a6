package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"
)

// FieldInfo is the printable form of one registered field.
type FieldInfo struct {
	ID             string `json:"id"`
	Label          string `json:"label"`
	Kind           string `json:"kind"`
	Required       bool   `json:"required"`
	ErrorIndicator bool   `json:"error_indicator"`
	Input          string `json:"input"`
	Message        string `json:"message"`
	ValidValue     string `json:"valid_value"`
}

// NewFieldsCommand creates the fields command.
func NewFieldsCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:           "fields",
		Short:         "List the fields of the configured registry",
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runFields(rootOpts, cmd)
		},
	}
}

func runFields(opts *RootOptions, cmd *cobra.Command) error {
	formatter := opts.formatter(cmd)

	cfg, err := opts.loadConfig()
	if err != nil {
		return outputCommandError(formatter, "E_CONFIG", err)
	}
	registry, err := loadRegistry(cfg)
	if err != nil {
		return outputCommandError(formatter, "E_REGISTRY", err)
	}

	infos := make([]FieldInfo, 0, registry.Len())
	for _, id := range registry.IDs() {
		d, err := registry.Get(id)
		if err != nil {
			return err
		}
		infos = append(infos, FieldInfo{
			ID:             string(d.ID),
			Label:          d.Label,
			Kind:           string(d.Kind),
			Required:       d.Flags.IsRequired,
			ErrorIndicator: d.Flags.HasErrorIndicator,
			Input:          d.Input.String(),
			Message:        d.RequiredMessage.String(),
			ValidValue:     d.ValidValue,
		})
	}

	if opts.Format == "json" {
		return formatter.Success(infos)
	}

	var b strings.Builder
	fmt.Fprintf(&b, "%-12s %-8s %-9s %-6s %s\n", "FIELD", "KIND", "REQUIRED", "ERROR", "INPUT")
	for _, f := range infos {
		fmt.Fprintf(&b, "%-12s %-8s %-9s %-6s %s\n", f.ID, f.Kind, yesNo(f.Required), yesNo(f.ErrorIndicator), f.Input)
	}
	fmt.Fprintf(&b, "%d field(s)", len(infos))
	return formatter.Success(b.String())
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}
