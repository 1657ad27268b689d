package core

// preview.go validates a selected file without persisting anything, so the
// user can fix the mapping or the file before importing.

import (
	"context"

	"github.com/cockroachdb/errors"
)

// MaxErrorSamples caps the error lines returned by Analyze.
const MaxErrorSamples = 10

// AnalysisResult describes what an import of the current file would do.
type AnalysisResult struct {
	TotalRows    int      `json:"totalRows"`
	CheckedRows  int      `json:"checkedRows"`
	ValidRows    int      `json:"validRows"`
	InvalidRows  int      `json:"invalidRows"`
	Truncated    bool     `json:"truncated"`
	ErrorSamples []string `json:"errorSamples"`
}

// CanImport reports whether every checked row would be accepted.
func (a *AnalysisResult) CanImport() bool {
	return a.InvalidRows == 0 && a.CheckedRows > 0
}

// Analyze validates the capped row set against the current mapping.
// Store-side constraints are not checked.
func (s *ImportSession) Analyze(ctx context.Context) (*AnalysisResult, error) {
	s.mu.Lock()
	if err := s.requireMappableLocked(); err != nil {
		s.mu.Unlock()
		return nil, err
	}
	if conflicts := s.mapping.Conflicts(); len(conflicts) > 0 {
		s.mu.Unlock()
		return nil, &MappingConflictError{Conflicts: conflicts}
	}
	mapping := s.mapping.Clone()
	text := s.text
	s.mu.Unlock()

	doc, err := ParseFull(text, s.limits)
	if err != nil {
		return nil, err
	}

	result := &AnalysisResult{
		TotalRows:    doc.TotalRows,
		Truncated:    doc.Truncated(),
		ErrorSamples: []string{},
	}

	for i, row := range doc.Rows {
		if err := ctx.Err(); err != nil {
			return nil, errors.Wrap(err, "analyze")
		}
		result.CheckedRows++

		_, fieldErrs := ValidateRow(s.schema, mapping.Apply(row))
		if len(fieldErrs) == 0 {
			result.ValidRows++
			continue
		}

		result.InvalidRows++
		if len(result.ErrorSamples) < MaxErrorSamples {
			msgs := make([]string, len(fieldErrs))
			for j, fe := range fieldErrs {
				msgs[j] = fe.Error()
			}
			result.ErrorSamples = append(result.ErrorSamples, FormatRowErrors(i+1, msgs))
		}
	}

	return result, nil
}
