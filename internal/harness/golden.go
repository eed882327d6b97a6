package harness

import (
	"context"
	"testing"

	"github.com/sebdah/goldie/v2"

	"github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/canon"
)

// ReportSnapshot is the golden-file form of a scenario run: the steps that
// were driven and every check outcome. The run id is omitted because it
// differs between runs.
type ReportSnapshot struct {
	Scenario string          `json:"scenario"`
	Steps    []Step          `json:"steps"`
	Results  []assert.Result `json:"results"`
	Aborted  bool            `json:"aborted"`
	Pass     bool            `json:"pass"`
}

// NewReportSnapshot pairs a scenario with its report.
func NewReportSnapshot(sc *Scenario, report *assert.Report) ReportSnapshot {
	return ReportSnapshot{
		Scenario: sc.Name,
		Steps:    sc.Steps,
		Results:  report.Results,
		Aborted:  report.Aborted,
		Pass:     report.Pass,
	}
}

// MarshalReport serializes a report snapshot as indented canonical JSON.
func MarshalReport(sc *Scenario, report *assert.Report) ([]byte, error) {
	return canon.MarshalIndent(NewReportSnapshot(sc, report))
}

// RunWithGolden executes a scenario and compares the report against a golden file.
// The golden file is stored in testdata/golden/{scenario.Name}.golden
//
// To regenerate golden files, run:
//
//	go test ./internal/harness -update
//
// Returns error if scenario execution fails.
// Test failure (via goldie) occurs if the report doesn't match the golden file.
func RunWithGolden(t *testing.T, r *Runner, sc *Scenario) (*assert.Report, error) {
	t.Helper()

	report, err := r.Run(context.Background(), sc)
	if err != nil {
		return nil, err
	}
	return report, AssertGolden(t, sc, report)
}

// AssertGolden compares an existing report against the scenario's golden
// file without re-running it.
func AssertGolden(t *testing.T, sc *Scenario, report *assert.Report) error {
	t.Helper()

	data, err := MarshalReport(sc, report)
	if err != nil {
		return err
	}

	g := goldie.New(t,
		goldie.WithFixtureDir("testdata/golden"),
		goldie.WithNameSuffix(".golden"),
	)
	g.Assert(t, sc.Name, data)
	return nil
}
