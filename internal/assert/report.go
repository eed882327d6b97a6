package assert

import (
	"fmt"
	"io"
	"strings"

	"github.com/roach88/formcheck/internal/field"
	"github.com/roach88/formcheck/internal/state"
)

// Result is the outcome of one check.
type Result struct {
	CheckID          string           `json:"check_id"`
	Field            field.ID         `json:"field,omitempty"`
	Class            Class            `json:"class"`
	Passed           bool             `json:"passed"`
	Kind             Kind             `json:"kind,omitempty"`
	Detail           string           `json:"detail,omitempty"`
	Expected         string           `json:"expected,omitempty"`
	Observed         *state.Snapshot  `json:"observed,omitempty"`
	Mismatches       []state.Mismatch `json:"mismatches,omitempty"`
	KnownDefect      string           `json:"known_defect,omitempty"`
	DefectReproduced bool             `json:"defect_reproduced,omitempty"`
}

// Report aggregates the results of one scenario run. It is handed to the
// invoker, which decides what an overall failure means.
type Report struct {
	Scenario string   `json:"scenario"`
	RunID    string   `json:"run_id"`
	Results  []Result `json:"results"`
	Aborted  bool     `json:"aborted"`
	Pass     bool     `json:"pass"`
}

func (r *Report) add(res Result) {
	r.Results = append(r.Results, res)
	if !res.Passed {
		r.Pass = false
	}
}

// Failures returns the failed results in check order.
func (r *Report) Failures() []Result {
	var out []Result
	for _, res := range r.Results {
		if !res.Passed {
			out = append(out, res)
		}
	}
	return out
}

// Counts returns the number of passed and failed results.
func (r *Report) Counts() (passed, failed int) {
	for _, res := range r.Results {
		if res.Passed {
			passed++
		} else {
			failed++
		}
	}
	return passed, failed
}

// Render writes a human-readable report.
func (r *Report) Render(w io.Writer) error {
	var b strings.Builder
	status := "PASS"
	if !r.Pass {
		status = "FAIL"
	}
	fmt.Fprintf(&b, "%s %s\n", status, r.Scenario)
	for _, res := range r.Results {
		if res.Passed {
			fmt.Fprintf(&b, "  ok   %s\n", res.CheckID)
			continue
		}
		fmt.Fprintf(&b, "  FAIL %s [%s]\n", res.CheckID, res.Kind)
		fmt.Fprintf(&b, "       %s\n", res.Detail)
		if res.KnownDefect != "" {
			fmt.Fprintf(&b, "       known defect: %s (reproduced: %t)\n", res.KnownDefect, res.DefectReproduced)
		}
	}
	if r.Aborted {
		b.WriteString("  aborted after hard failure\n")
	}
	passed, failed := r.Counts()
	fmt.Fprintf(&b, "  %d passed, %d failed\n", passed, failed)
	_, err := io.WriteString(w, b.String())
	return err
}
