package core

import (
	"context"
	"io"
	"time"

	"github.com/google/uuid"
)

// FieldKind represents the expected shape of a schema field value.
type FieldKind int

const (
	KindText FieldKind = iota
	KindEnum
	KindDate
	KindEmail
)

// FieldSpec defines validation rules for a single schema field.
type FieldSpec struct {
	Name       string              // Field name (also the storage column)
	Label      string              // Display name used in messages ("Title")
	Kind       FieldKind           // Expected value shape
	Required   bool                // Empty values are rejected
	MinLength  int                 // Minimum length in runes (0 = none)
	MaxLength  int                 // Maximum length in runes (0 = none)
	EnumValues []string            // Allowed values for KindEnum
	Default    string              // Applied when the value is empty
	Normalizer func(string) string // Optional transformation applied before checks
}

// SchemaKey names one of the importable record kinds.
type SchemaKey string

const (
	SchemaTasks       SchemaKey = "tasks"
	SchemaTeamMembers SchemaKey = "team_members"
)

// knownSchemaKeys is the closed set of schema keys.
var knownSchemaKeys = []SchemaKey{SchemaTasks, SchemaTeamMembers}

// Schema describes a target record kind and its typed field constraints.
type Schema struct {
	Key    SchemaKey
	Label  string // Display name: "Tasks"
	Table  string // Storage table name
	Fields []FieldSpec
}

// FieldNames returns the schema's field names in declaration order.
func (s Schema) FieldNames() []string {
	names := make([]string, len(s.Fields))
	for i, f := range s.Fields {
		names[i] = f.Name
	}
	return names
}

// Field returns the spec for name.
func (s Schema) Field(name string) (FieldSpec, bool) {
	for _, f := range s.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return FieldSpec{}, false
}

// RawCsvDocument is the tokenized, sanitized content of an uploaded file.
type RawCsvDocument struct {
	Headers   []string
	Rows      [][]string
	TotalRows int // Non-blank data rows in the file, may exceed len(Rows)
}

// Truncated reports whether the file held more data rows than were parsed.
func (d *RawCsvDocument) Truncated() bool {
	return d.TotalRows > len(d.Rows)
}

// FieldValue is one named value of a record. Value is a string, a time.Time
// for dates, or nil for an absent optional field.
type FieldValue struct {
	Name  string `json:"name"`
	Value any    `json:"value"`
}

// Record is a validated row ready for persistence.
type Record struct {
	Schema SchemaKey    `json:"schema"`
	Fields []FieldValue `json:"fields"`
}

// Get returns the value stored under name.
func (r Record) Get(name string) (any, bool) {
	for _, f := range r.Fields {
		if f.Name == name {
			return f.Value, true
		}
	}
	return nil, false
}

// StoredRow is a persisted record as returned by the store, including
// bookkeeping columns such as id, user_id and created_at.
type StoredRow []FieldValue

// RowOutcome records what happened to one data row during an import.
type RowOutcome struct {
	Row    int      `json:"row"` // 1-based data row index
	Record *Record  `json:"record,omitempty"`
	Errors []string `json:"errors,omitempty"`
}

// Imported reports whether the row was persisted.
func (o RowOutcome) Imported() bool {
	return len(o.Errors) == 0
}

// ImportSummary is produced once at the end of an import run.
type ImportSummary struct {
	ImportID      string        `json:"importId"`
	FileName      string        `json:"fileName"`
	Schema        SchemaKey     `json:"schema"`
	TotalRows     int           `json:"totalRows"`
	ProcessedRows int           `json:"processedRows"`
	ImportedCount int           `json:"importedCount"`
	FailedCount   int           `json:"failedCount"`
	SampleErrors  []string      `json:"sampleErrors"`
	Truncated     bool          `json:"truncated"`
	Cancelled     bool          `json:"cancelled"`
	Status        ImportStatus  `json:"status"`
	StartedAt     time.Time     `json:"startedAt"`
	Duration      time.Duration `json:"duration"`
	AuditError    string        `json:"auditError,omitempty"`
}

// Store is the persistence collaborator. Implementations must be safe for
// concurrent use by multiple sessions.
type Store interface {
	Insert(ctx context.Context, schema Schema, rec Record, owner uuid.UUID) error
	ListAll(ctx context.Context, schema Schema, owner uuid.UUID) ([]StoredRow, error)
	InsertAudit(ctx context.Context, rec AuditRecord) error
	ListAudits(ctx context.Context, owner uuid.UUID, limit int) ([]AuditRecord, error)
}

// Purger is implemented by stores that can delete an owner's data.
type Purger interface {
	DeleteAll(ctx context.Context, schema Schema, owner uuid.UUID) (int64, error)
	DeleteAudits(ctx context.Context, owner uuid.UUID) (int64, error)
}

// FileSource is an uploaded file as handed over by the transport layer.
type FileSource struct {
	Name        string
	ContentType string
	Size        int64 // Declared size, -1 if unknown
	Reader      io.Reader
}

// Limits bounds the work done for a single file.
type Limits struct {
	MaxFileBytes    int64
	MaxRows         int
	MaxColumns      int
	MaxCellLength   int
	PreviewRows     int
	AuditErrorLimit int
}

// DefaultLimits returns the limits used when none are configured.
func DefaultLimits() Limits {
	return Limits{
		MaxFileBytes:    5 * 1024 * 1024,
		MaxRows:         1000,
		MaxColumns:      50,
		MaxCellLength:   1000,
		PreviewRows:     5,
		AuditErrorLimit: 10,
	}
}

// withDefaults fills zero values from DefaultLimits.
func (l Limits) withDefaults() Limits {
	d := DefaultLimits()
	if l.MaxFileBytes <= 0 {
		l.MaxFileBytes = d.MaxFileBytes
	}
	if l.MaxRows <= 0 {
		l.MaxRows = d.MaxRows
	}
	if l.MaxColumns <= 0 {
		l.MaxColumns = d.MaxColumns
	}
	if l.MaxCellLength <= 0 {
		l.MaxCellLength = d.MaxCellLength
	}
	if l.PreviewRows <= 0 {
		l.PreviewRows = d.PreviewRows
	}
	if l.AuditErrorLimit <= 0 {
		l.AuditErrorLimit = d.AuditErrorLimit
	}
	return l
}
