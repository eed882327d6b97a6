package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/field"
)

// RunSummary is one stored run without its results.
type RunSummary struct {
	Seq      int64  `json:"seq"`
	ID       string `json:"id"`
	Scenario string `json:"scenario"`
	Pass     bool   `json:"pass"`
	Aborted  bool   `json:"aborted"`
	Passed   int    `json:"passed"`
	Failed   int    `json:"failed"`
}

// CheckOutcome is the result of one check in one stored run.
type CheckOutcome struct {
	Seq              int64       `json:"seq"`
	RunID            string      `json:"run_id"`
	Scenario         string      `json:"scenario"`
	Passed           bool        `json:"passed"`
	Kind             assert.Kind `json:"kind,omitempty"`
	DefectReproduced bool        `json:"defect_reproduced,omitempty"`
}

// ListRuns returns stored runs, newest first. An empty scenario lists every
// scenario; limit <= 0 means no limit.
//
// Returns an empty slice (not nil) if no runs match.
func (s *Store) ListRuns(ctx context.Context, scenario string, limit int) ([]RunSummary, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.seq, r.id, r.scenario, r.pass, r.aborted,
		       (SELECT COUNT(*) FROM results x WHERE x.run_id = r.id AND x.passed = 1),
		       (SELECT COUNT(*) FROM results x WHERE x.run_id = r.id AND x.passed = 0)
		FROM runs r
		WHERE ? = '' OR r.scenario = ?
		ORDER BY r.seq DESC
		LIMIT ?
	`, scenario, scenario, limit)
	if err != nil {
		return nil, fmt.Errorf("query runs: %w", err)
	}
	defer rows.Close()

	runs := []RunSummary{}
	for rows.Next() {
		var r RunSummary
		var pass, aborted int
		if err := rows.Scan(&r.Seq, &r.ID, &r.Scenario, &pass, &aborted, &r.Passed, &r.Failed); err != nil {
			return nil, fmt.Errorf("scan run: %w", err)
		}
		r.Pass, r.Aborted = pass == 1, aborted == 1
		runs = append(runs, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate runs: %w", err)
	}
	return runs, nil
}

// ReadReport returns the stored report of a run exactly as it was written.
// Returns ErrRunNotFound if the run does not exist.
func (s *Store) ReadReport(ctx context.Context, runID string) (*assert.Report, error) {
	var data string
	err := s.db.QueryRowContext(ctx, `SELECT report FROM runs WHERE id = ?`, runID).Scan(&data)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("read report: %w", err)
	}
	return unmarshalReport(data)
}

// ReadResults returns the flattened results of a run in check order.
// Snapshots and mismatches are only kept in the full report; see ReadReport.
// Returns ErrRunNotFound if the run does not exist.
func (s *Store) ReadResults(ctx context.Context, runID string) ([]assert.Result, error) {
	var exists int
	err := s.db.QueryRowContext(ctx, `SELECT 1 FROM runs WHERE id = ?`, runID).Scan(&exists)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrRunNotFound, runID)
	}
	if err != nil {
		return nil, fmt.Errorf("read results: %w", err)
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT check_id, field, class, passed, kind, detail, known_defect, defect_reproduced
		FROM results
		WHERE run_id = ?
		ORDER BY idx ASC
	`, runID)
	if err != nil {
		return nil, fmt.Errorf("query results: %w", err)
	}
	defer rows.Close()

	results := []assert.Result{}
	for rows.Next() {
		var (
			r                  assert.Result
			fieldID, class     string
			kind               string
			passed, reproduced int
		)
		if err := rows.Scan(&r.CheckID, &fieldID, &class, &passed, &kind, &r.Detail, &r.KnownDefect, &reproduced); err != nil {
			return nil, fmt.Errorf("scan result: %w", err)
		}
		r.Field = field.ID(fieldID)
		r.Class = assert.Class(class)
		r.Kind = assert.Kind(kind)
		r.Passed = passed == 1
		r.DefectReproduced = reproduced == 1
		results = append(results, r)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate results: %w", err)
	}
	return results, nil
}

// CheckHistory returns the outcomes of one check id across stored runs,
// newest first. limit <= 0 means no limit.
func (s *Store) CheckHistory(ctx context.Context, checkID string, limit int) ([]CheckOutcome, error) {
	if limit <= 0 {
		limit = -1
	}
	rows, err := s.db.QueryContext(ctx, `
		SELECT r.seq, r.id, r.scenario, x.passed, x.kind, x.defect_reproduced
		FROM results x
		JOIN runs r ON r.id = x.run_id
		WHERE x.check_id = ?
		ORDER BY r.seq DESC, x.idx ASC
		LIMIT ?
	`, checkID, limit)
	if err != nil {
		return nil, fmt.Errorf("query check history: %w", err)
	}
	defer rows.Close()

	out := []CheckOutcome{}
	for rows.Next() {
		var (
			o                  CheckOutcome
			kind               string
			passed, reproduced int
		)
		if err := rows.Scan(&o.Seq, &o.RunID, &o.Scenario, &passed, &kind, &reproduced); err != nil {
			return nil, fmt.Errorf("scan check outcome: %w", err)
		}
		o.Passed = passed == 1
		o.Kind = assert.Kind(kind)
		o.DefectReproduced = reproduced == 1
		out = append(out, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterate check history: %w", err)
	}
	return out, nil
}
