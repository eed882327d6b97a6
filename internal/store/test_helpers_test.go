package store

import (
	"path/filepath"
	"testing"

	"github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/state"
)

// createTestStore creates a new store in a temp directory for testing.
func createTestStore(t *testing.T) *Store {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	s, err := Open(path)
	if err != nil {
		t.Fatalf("Open() failed: %v", err)
	}
	t.Cleanup(func() { s.Close() })
	return s
}

// createTestReport creates a report with one passing and one failing check.
func createTestReport(runID, scenario string) *assert.Report {
	return &assert.Report{
		Scenario: scenario,
		RunID:    runID,
		Results: []assert.Result{
			{CheckID: "email.valid", Field: "email", Class: assert.Soft, Passed: true},
			{
				CheckID:  "lastName.invalid",
				Field:    "lastName",
				Class:    assert.Soft,
				Kind:     assert.KindAssertion,
				Detail:   `field "lastName": expected invalid`,
				Expected: "invalid",
				Observed: &state.Snapshot{BorderColor: state.Neutral, SuccessVisible: true},
				Mismatches: []state.Mismatch{
					{Property: "success_visible", Want: "false", Got: "true"},
				},
				KnownDefect:      "sticky-success",
				DefectReproduced: true,
			},
		},
	}
}
