package store

import (
	"context"
	"fmt"

	"github.com/roach88/formcheck/internal/assert"
)

// WriteReport stores a report and its results in one transaction.
// Uses ON CONFLICT(id) DO NOTHING for idempotency - writing the same run id
// twice keeps the first report and is not an error.
func (s *Store) WriteReport(ctx context.Context, r *assert.Report) error {
	if r.RunID == "" {
		return fmt.Errorf("write report: run id is required")
	}
	if r.Scenario == "" {
		return fmt.Errorf("write report: scenario is required")
	}

	reportJSON, err := marshalReport(r)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("write report: begin: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO runs (id, scenario, pass, aborted, report)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(id) DO NOTHING
	`, r.RunID, r.Scenario, boolToInt(r.Pass), boolToInt(r.Aborted), reportJSON)
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("write report: %w", err)
	}
	if n == 0 {
		return nil
	}

	for i, result := range r.Results {
		_, err := tx.ExecContext(ctx, `
			INSERT INTO results
			(run_id, idx, check_id, field, class, passed, kind, detail, known_defect, defect_reproduced)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		`,
			r.RunID,
			i,
			result.CheckID,
			string(result.Field),
			string(result.Class),
			boolToInt(result.Passed),
			string(result.Kind),
			result.Detail,
			result.KnownDefect,
			boolToInt(result.DefectReproduced),
		)
		if err != nil {
			return fmt.Errorf("write result %s: %w", result.CheckID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("write report: commit: %w", err)
	}
	return nil
}
