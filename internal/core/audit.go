package core

import (
	"encoding/json"
	"sort"
	"time"

	"github.com/google/uuid"
)

// ImportStatus is the final status stored on an audit record.
type ImportStatus string

const (
	StatusCompleted           ImportStatus = "completed"
	StatusCompletedWithErrors ImportStatus = "completed_with_errors"
	StatusCancelled           ImportStatus = "cancelled"
)

// AuditRecord is the durable record of one import run. Errors holds at
// most Limits.AuditErrorLimit entries.
type AuditRecord struct {
	ID           uuid.UUID      `json:"id"`
	OwnerID      uuid.UUID      `json:"ownerId"`
	FileName     string         `json:"fileName"`
	Schema       SchemaKey      `json:"schema"`
	Mapping      []MappingEntry `json:"mapping"`
	TotalRows    int            `json:"totalRows"`
	ImportedRows int            `json:"importedRows"`
	FailedRows   int            `json:"failedRows"`
	Status       ImportStatus   `json:"status"`
	Errors       []string       `json:"errors"`
	CreatedAt    time.Time      `json:"createdAt"`
}

// NewAuditRecord builds the audit entry for a finished run.
func NewAuditRecord(owner uuid.UUID, mapping ColumnMapping, s ImportSummary, errorLimit int) AuditRecord {
	errs := s.SampleErrors
	if errorLimit > 0 && len(errs) > errorLimit {
		errs = errs[:errorLimit]
	}
	if errs == nil {
		errs = []string{}
	}

	return AuditRecord{
		ID:           uuid.New(),
		OwnerID:      owner,
		FileName:     s.FileName,
		Schema:       s.Schema,
		Mapping:      mapping.Clone().Entries,
		TotalRows:    s.TotalRows,
		ImportedRows: s.ImportedCount,
		FailedRows:   s.FailedCount,
		Status:       s.Status,
		Errors:       errs,
		CreatedAt:    s.StartedAt,
	}
}

// MappingJSON encodes the mapping as a {"csv column": "field"} object.
// Unmapped columns are left out.
func (a AuditRecord) MappingJSON() ([]byte, error) {
	m := make(map[string]string, len(a.Mapping))
	for _, e := range a.Mapping {
		if e.Target != "" {
			m[e.CSVColumn] = e.Target
		}
	}
	return json.Marshal(m)
}

// ErrorsJSON encodes the stored error lines as a JSON array.
func (a AuditRecord) ErrorsJSON() ([]byte, error) {
	if a.Errors == nil {
		return []byte("[]"), nil
	}
	return json.Marshal(a.Errors)
}

// MappingFromJSON decodes a mapping stored by MappingJSON. Column indices
// are not preserved, entries are ordered by CSV column name.
func MappingFromJSON(data []byte) ([]MappingEntry, error) {
	if len(data) == 0 {
		return nil, nil
	}
	var m map[string]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, err
	}
	entries := make([]MappingEntry, 0, len(m))
	for col, target := range m {
		entries = append(entries, MappingEntry{Column: -1, CSVColumn: col, Target: target})
	}
	sort.Slice(entries, func(i, j int) bool {
		return entries[i].CSVColumn < entries[j].CSVColumn
	})
	return entries, nil
}
