package store

import (
	"encoding/json"
	"fmt"

	"github.com/roach88/formcheck/internal/assert"
	"github.com/roach88/formcheck/internal/canon"
)

// marshalReport converts a report to canonical JSON TEXT for storage, so
// the same report always stores identical bytes.
func marshalReport(r *assert.Report) (string, error) {
	data, err := canon.Marshal(r)
	if err != nil {
		return "", fmt.Errorf("marshal report: %w", err)
	}
	return string(data), nil
}

// unmarshalReport parses a stored report.
func unmarshalReport(data string) (*assert.Report, error) {
	var r assert.Report
	if err := json.Unmarshal([]byte(data), &r); err != nil {
		return nil, fmt.Errorf("unmarshal report: %w", err)
	}
	if r.Results == nil {
		r.Results = []assert.Result{}
	}
	return &r, nil
}
