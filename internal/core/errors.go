package core

import (
	"fmt"

	"github.com/cockroachdb/errors"
)

// Structural errors abort the current operation before any row is touched.
var (
	ErrEmptyFile           = errors.New("CSV file is empty")
	ErrTooManyColumns      = errors.New("too many columns")
	ErrFileTooLarge        = errors.New("file too large")
	ErrUnsupportedFileType = errors.New("unsupported file type")
	ErrInvalidCSV          = errors.New("invalid csv")
)

// Session and lookup errors.
var (
	ErrSchemaNotFound  = errors.New("schema not found")
	ErrUnknownField    = errors.New("unknown target field")
	ErrMappingConflict = errors.New("mapping conflict")
	ErrNothingMapped   = errors.New("no columns mapped")
	ErrInvalidState    = errors.New("invalid session state")
	ErrSessionNotFound = errors.New("import session not found")
	ErrNoData          = errors.New("No data found to export")
)

// TooManyColumnsError reports a header row wider than the configured cap.
type TooManyColumnsError struct {
	Count int
	Max   int
}

func (e *TooManyColumnsError) Error() string {
	return fmt.Sprintf("Too many columns (%d). Maximum allowed is %d.", e.Count, e.Max)
}

func (e *TooManyColumnsError) Unwrap() error {
	return ErrTooManyColumns
}

// MappingConflictError lists every target field claimed by more than one column.
type MappingConflictError struct {
	Conflicts []MappingConflict
}

func (e *MappingConflictError) Error() string {
	msg := "mapping conflict:"
	for i, c := range e.Conflicts {
		if i > 0 {
			msg += ";"
		}
		msg += fmt.Sprintf(" %s is mapped from %d columns", c.Target, len(c.Columns))
	}
	return msg
}

func (e *MappingConflictError) Unwrap() error {
	return ErrMappingConflict
}

// withHint attaches a user-facing remedy to err.
func withHint(err error, hint string) error {
	return errors.WithHint(err, hint)
}
