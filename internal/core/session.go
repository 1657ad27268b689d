package core

// session.go implements the import session state machine:
//
//	Idle -> FileSelected -> Mapped -> Importing -> Completed | Failed
//
// Structural parse errors return the session to Idle. Failed is only
// reachable when the file itself cannot be read. Row-level validation or
// persistence failures are bookkeeping inside Completed.

import (
	"context"
	"fmt"
	"io"
	"path/filepath"
	"strings"
	"sync"
	"time"

	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
)

// SessionState is the coordinator state of an import session.
type SessionState string

const (
	StateIdle         SessionState = "idle"
	StateFileSelected SessionState = "file_selected"
	StateMapped       SessionState = "mapped"
	StateImporting    SessionState = "importing"
	StateCompleted    SessionState = "completed"
	StateFailed       SessionState = "failed"
)

// csvContentTypes are MIME types browsers and tools send for CSV files.
var csvContentTypes = map[string]bool{
	"text/csv":                    true,
	"application/csv":             true,
	"text/comma-separated-values": true,
	"application/vnd.ms-excel":    true,
}

// ImportSession owns one file, its mapping and its result.
// It is safe for concurrent use.
type ImportSession struct {
	ID     string
	Owner  uuid.UUID
	schema Schema
	store  Store
	limits Limits

	mu        sync.Mutex
	state     SessionState
	fileName  string
	text      string
	preview   *RawCsvDocument
	mapping   ColumnMapping
	summary   *ImportSummary
	outcomes  []RowOutcome
	lastErr   error
	updatedAt time.Time
}

// NewImportSession creates an Idle session for schema.
func NewImportSession(owner uuid.UUID, schema Schema, store Store, limits Limits) *ImportSession {
	return &ImportSession{
		ID:        uuid.NewString(),
		Owner:     owner,
		schema:    schema,
		store:     store,
		limits:    limits.withDefaults(),
		state:     StateIdle,
		updatedAt: time.Now(),
	}
}

// SessionView is a read-only snapshot of a session.
type SessionView struct {
	ID               string            `json:"id"`
	Schema           SchemaKey         `json:"schema"`
	State            SessionState      `json:"state"`
	FileName         string            `json:"fileName,omitempty"`
	Headers          []string          `json:"headers,omitempty"`
	PreviewRows      [][]string        `json:"previewRows,omitempty"`
	TotalRows        int               `json:"totalRows"`
	Mapping          ColumnMapping     `json:"mapping"`
	Conflicts        []MappingConflict `json:"conflicts,omitempty"`
	TruncationNotice string            `json:"truncationNotice,omitempty"`
	Summary          *ImportSummary    `json:"summary,omitempty"`
	Error            string            `json:"error,omitempty"`
}

// State returns the current state.
func (s *ImportSession) State() SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// Snapshot returns the current view of the session.
func (s *ImportSession) Snapshot() SessionView {
	s.mu.Lock()
	defer s.mu.Unlock()

	v := SessionView{
		ID:       s.ID,
		Schema:   s.schema.Key,
		State:    s.state,
		FileName: s.fileName,
		Mapping:  s.mapping.Clone(),
		Summary:  s.summary,
	}
	if s.preview != nil {
		v.Headers = s.preview.Headers
		v.PreviewRows = s.preview.Rows
		v.TotalRows = s.preview.TotalRows
		v.Conflicts = s.mapping.Conflicts()
		v.TruncationNotice = s.truncationNoticeLocked()
	}
	if s.lastErr != nil {
		v.Error = s.lastErr.Error()
	}
	return v
}

// SelectFile reads and previews src, then proposes an automatic mapping.
func (s *ImportSession) SelectFile(ctx context.Context, src FileSource) (*RawCsvDocument, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	switch s.state {
	case StateIdle, StateFileSelected, StateMapped:
	default:
		return nil, errors.Wrapf(ErrInvalidState, "cannot select a file while %s", s.state)
	}

	fail := func(err error) (*RawCsvDocument, error) {
		s.clearLocked()
		s.lastErr = err
		return nil, err
	}

	if err := CheckFileType(src.Name, src.ContentType); err != nil {
		return fail(err)
	}
	if src.Size > s.limits.MaxFileBytes {
		return fail(fileTooLarge(src.Size, s.limits.MaxFileBytes))
	}

	data, err := io.ReadAll(WrapUpload(src.Reader, s.limits.MaxFileBytes))
	if err != nil {
		if errors.Is(err, ErrFileTooLarge) {
			return fail(fileTooLarge(-1, s.limits.MaxFileBytes))
		}
		s.clearLocked()
		s.state = StateFailed
		s.lastErr = errors.Wrap(err, "read file")
		return nil, s.lastErr
	}
	if err := ctx.Err(); err != nil {
		return fail(err)
	}

	text := string(data)
	doc, err := ParsePreview(text, s.limits)
	if err != nil {
		return fail(err)
	}

	s.lastErr = nil
	s.fileName = src.Name
	s.text = text
	s.preview = doc
	s.mapping = AutoMap(doc.Headers, s.schema)
	s.summary = nil
	s.outcomes = nil
	s.state = StateFileSelected
	s.touchLocked()
	return doc, nil
}

// Mapping returns a copy of the current mapping.
func (s *ImportSession) Mapping() ColumnMapping {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.mapping.Clone()
}

// SetMapping replaces the mapping. Conflicting targets are accepted here
// and rejected by Run.
func (s *ImportSession) SetMapping(m ColumnMapping) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.requireMappableLocked(); err != nil {
		return err
	}
	if err := m.Validate(s.schema, len(s.preview.Headers)); err != nil {
		return err
	}
	s.mapping = m.Clone()
	s.state = StateMapped
	s.touchLocked()
	return nil
}

// ConfirmMapping accepts the current mapping as is.
func (s *ImportSession) ConfirmMapping() error {
	return s.SetMapping(s.Mapping())
}

// Remap points every column named csvColumn at target.
func (s *ImportSession) Remap(csvColumn, target string) error {
	s.mu.Lock()
	m := Remap(s.mapping, csvColumn, target)
	s.mu.Unlock()
	return s.SetMapping(m)
}

// RemapColumn points the column at index at target.
func (s *ImportSession) RemapColumn(index int, target string) error {
	s.mu.Lock()
	m := RemapColumn(s.mapping, index, target)
	s.mu.Unlock()
	return s.SetMapping(m)
}

// TruncationNotice returns a warning when the file exceeds the row cap.
func (s *ImportSession) TruncationNotice() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.truncationNoticeLocked()
}

func (s *ImportSession) truncationNoticeLocked() string {
	if s.preview == nil || s.preview.TotalRows <= s.limits.MaxRows {
		return ""
	}
	return fmt.Sprintf("File has %d rows; only the first %d will be imported.",
		s.preview.TotalRows, s.limits.MaxRows)
}

// Run imports every row of the capped row set and records an audit entry.
func (s *ImportSession) Run(ctx context.Context) (*ImportSummary, error) {
	s.mu.Lock()
	if s.state != StateMapped {
		state := s.state
		s.mu.Unlock()
		return nil, errors.Wrapf(ErrInvalidState, "cannot import while %s", state)
	}
	if conflicts := s.mapping.Conflicts(); len(conflicts) > 0 {
		s.mu.Unlock()
		return nil, withHint(&MappingConflictError{Conflicts: conflicts},
			"Map each schema field from at most one column.")
	}
	if s.mapping.MappedCount() == 0 {
		s.mu.Unlock()
		return nil, withHint(ErrNothingMapped, "Map at least one column to a schema field.")
	}

	doc, err := ParseFull(s.text, s.limits)
	if err != nil {
		s.state = StateFailed
		s.lastErr = err
		s.mu.Unlock()
		return nil, err
	}

	job := importJob{
		owner:    s.Owner,
		schema:   s.schema,
		mapping:  s.mapping.Clone(),
		fileName: s.fileName,
		store:    s.store,
		limits:   s.limits,
	}
	s.state = StateImporting
	s.touchLocked()
	s.mu.Unlock()

	summary, outcomes := job.run(ctx, doc)

	s.mu.Lock()
	defer s.mu.Unlock()
	s.summary = &summary
	s.outcomes = outcomes
	s.state = StateCompleted
	s.touchLocked()
	return &summary, nil
}

// Outcomes returns the per-row outcomes of the last run.
func (s *ImportSession) Outcomes() []RowOutcome {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]RowOutcome, len(s.outcomes))
	copy(out, s.outcomes)
	return out
}

// Summary returns the summary of the last run, or nil.
func (s *ImportSession) Summary() *ImportSummary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.summary
}

// Reset discards the file, mapping and result and returns to Idle.
func (s *ImportSession) Reset() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.state == StateImporting {
		return errors.Wrap(ErrInvalidState, "cannot reset while importing")
	}
	s.clearLocked()
	s.lastErr = nil
	s.touchLocked()
	return nil
}

// idleSince reports when the session last changed state.
func (s *ImportSession) idleSince() (time.Time, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.updatedAt, s.state != StateImporting
}

func (s *ImportSession) requireMappableLocked() error {
	if s.state != StateFileSelected && s.state != StateMapped {
		return errors.Wrapf(ErrInvalidState, "cannot change mapping while %s", s.state)
	}
	return nil
}

func (s *ImportSession) clearLocked() {
	s.state = StateIdle
	s.fileName = ""
	s.text = ""
	s.preview = nil
	s.mapping = ColumnMapping{}
	s.summary = nil
	s.outcomes = nil
}

func (s *ImportSession) touchLocked() {
	s.updatedAt = time.Now()
}

// CheckFileType accepts files with a .csv extension or a CSV content type.
func CheckFileType(name, contentType string) error {
	if strings.EqualFold(filepath.Ext(name), ".csv") {
		return nil
	}
	mediaType := strings.ToLower(strings.TrimSpace(strings.Split(contentType, ";")[0]))
	if csvContentTypes[mediaType] {
		return nil
	}
	return withHint(errors.Wrapf(ErrUnsupportedFileType, "%q (%s)", name, contentType),
		"Please upload a CSV file.")
}

func fileTooLarge(size, max int64) error {
	err := errors.Wrapf(ErrFileTooLarge, "limit is %d bytes", max)
	if size >= 0 {
		err = errors.Wrapf(ErrFileTooLarge, "%d bytes exceeds limit of %d bytes", size, max)
	}
	return withHint(err, fmt.Sprintf("Split the file into parts smaller than %d MB.", max/(1024*1024)))
}
