package store

import (
	"context"
	"strings"
	"testing"
)

func TestWriteReport_StoresRunAndResults(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteReport(ctx, createTestReport("run-1", "clear_after_valid")); err != nil {
		t.Fatalf("WriteReport() failed: %v", err)
	}

	var runs, results int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM runs").Scan(&runs); err != nil {
		t.Fatal(err)
	}
	if err := s.db.QueryRow("SELECT COUNT(*) FROM results WHERE run_id = 'run-1'").Scan(&results); err != nil {
		t.Fatal(err)
	}
	if runs != 1 || results != 2 {
		t.Errorf("got %d runs and %d results, want 1 and 2", runs, results)
	}
}

func TestWriteReport_Idempotent(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	first := createTestReport("run-1", "clear_after_valid")
	if err := s.WriteReport(ctx, first); err != nil {
		t.Fatalf("first WriteReport() failed: %v", err)
	}

	second := createTestReport("run-1", "clear_after_valid")
	second.Results = second.Results[:1]
	if err := s.WriteReport(ctx, second); err != nil {
		t.Fatalf("second WriteReport() failed: %v", err)
	}

	var results int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM results").Scan(&results); err != nil {
		t.Fatal(err)
	}
	if results != 2 {
		t.Errorf("results = %d, want 2 (first write kept)", results)
	}
}

func TestWriteReport_CanonicalJSON(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	if err := s.WriteReport(ctx, createTestReport("run-1", "clear_after_valid")); err != nil {
		t.Fatal(err)
	}

	var data string
	if err := s.db.QueryRow("SELECT report FROM runs WHERE id = 'run-1'").Scan(&data); err != nil {
		t.Fatal(err)
	}
	if !strings.HasPrefix(data, `{"aborted":false,"pass":false,"results":[`) {
		t.Errorf("report is not canonical JSON: %s", data)
	}
}

func TestWriteReport_Validation(t *testing.T) {
	s := createTestStore(t)
	ctx := context.Background()

	noID := createTestReport("", "clear_after_valid")
	if err := s.WriteReport(ctx, noID); err == nil || !strings.Contains(err.Error(), "run id is required") {
		t.Errorf("WriteReport() without run id = %v", err)
	}

	noScenario := createTestReport("run-1", "")
	if err := s.WriteReport(ctx, noScenario); err == nil || !strings.Contains(err.Error(), "scenario is required") {
		t.Errorf("WriteReport() without scenario = %v", err)
	}
}

func TestWriteReport_CancelledContext(t *testing.T) {
	s := createTestStore(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	if err := s.WriteReport(ctx, createTestReport("run-1", "s")); err == nil {
		t.Fatal("WriteReport() with cancelled context should fail")
	}

	runs, err := s.ListRuns(context.Background(), "", 0)
	if err != nil {
		t.Fatal(err)
	}
	if len(runs) != 0 {
		t.Errorf("cancelled write left %d runs", len(runs))
	}
}
