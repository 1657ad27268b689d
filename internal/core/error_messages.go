package core

// error_messages.go maps errors to user-facing messages with support codes.
//
// This file defines user-friendly error messages with codes for support reference.
// When users encounter errors, they can quote the error code to support staff
// for faster diagnosis.
//
// Known sentinel errors are matched first with errors.Is. Anything else
// (driver errors, wrapped library errors) falls back to case-insensitive
// message patterns.
//
// # File Errors (FILE001-FILE099)
//
//	FILE001 - File too large: File exceeds maximum size limit (5MB)
//	          Action: Split the file into smaller files
//	          Sentinel: ErrFileTooLarge
//
//	FILE002 - Invalid CSV: File is not a valid CSV
//	          Action: Ensure the file is comma-separated with quoted fields closed
//	          Sentinel: ErrInvalidCSV
//
//	FILE003 - Unsupported type: Only CSV files are accepted
//	          Action: Export your spreadsheet as .csv and try again
//	          Sentinel: ErrUnsupportedFileType
//
//	FILE004 - No file: No file was selected
//	          Action: Please select a CSV file to upload
//	          Patterns: "no file provided"
//
//	FILE005 - Empty file: The uploaded file is empty
//	          Action: Please upload a CSV file with a header row
//	          Sentinel: ErrEmptyFile
//
//	FILE006 - Too many columns: The header row is too wide
//	          Action: Remove unused columns from the file
//	          Sentinel: ErrTooManyColumns
//
// # Mapping Errors (MAP001-MAP099)
//
//	MAP001 - Conflict: Two columns are mapped to the same field
//	MAP002 - Nothing mapped: No columns are mapped to a field
//	MAP003 - Unknown field: Mapping targets a field the schema does not have
//
// # Validation Errors (VAL001-VAL099)
//
//	VAL001 - Invalid date        Patterns: "invalid date"
//	VAL002 - Invalid email       Patterns: "invalid email"
//	VAL003 - Required field      Patterns: "is required"
//	VAL004 - Invalid value       Patterns: "must be one of"
//	VAL005 - Length              Patterns: "characters"
//
// # Database Errors (DB001-DB099)
//
//	DB001 - Duplicate key           Patterns: "duplicate key"
//	DB002 - Unique constraint       Patterns: "unique constraint", "violates unique"
//	DB003 - Foreign key             Patterns: "foreign key constraint", "violates foreign key"
//	DB004 - Connection refused      Patterns: "connection refused"
//	DB005 - Connection reset        Patterns: "connection reset"
//	DB006 - Timeout                 Patterns: "timeout"
//	DB007 - Deadlock                Patterns: "deadlock"
//
// # Import Errors (IMP001-IMP099)
//
//	IMP001 - Session not found   Sentinel: ErrSessionNotFound
//	IMP002 - System busy         Sentinel: ErrTooManyImports
//	IMP003 - Wrong step          Sentinel: ErrInvalidState
//	IMP004 - Request cancelled   Sentinel: context.Canceled
//	IMP005 - Request timeout     Sentinel: context.DeadlineExceeded
//
// # Other
//
//	SCH001  - Unknown schema     Sentinel: ErrSchemaNotFound
//	EXP001  - Nothing to export  Sentinel: ErrNoData
//	RATE001 - Rate limited       Patterns: "rate limit"
//	AUTH001 - Unauthorized       Patterns: "unauthorized"
//	ERR000  - Unknown error      Fallback
//
// # For Support Staff
//
// When a user reports an error code:
//  1. Look up the code in this reference
//  2. Review the suggested action to guide the user
//  3. If ERR000, check application logs for the original technical error

import (
	"context"
	"fmt"
	"strings"

	"github.com/cockroachdb/errors"
)

// UserMessage provides user-friendly error information with actionable guidance.
type UserMessage struct {
	Message string // What happened (user-friendly)
	Action  string // What to do about it
	Code    string // Error code for support reference
}

// errorSentinel maps a sentinel error to its user message.
type errorSentinel struct {
	target error
	msg    UserMessage
}

// errorPattern defines a pattern to match and its corresponding user message.
type errorPattern struct {
	pattern string
	msg     UserMessage
}

var (
	msgFileTooLarge = UserMessage{
		Message: "File exceeds maximum size limit (5MB)",
		Action:  "Split the file into smaller files",
		Code:    "FILE001",
	}
	msgInvalidCSV = UserMessage{
		Message: "File is not a valid CSV",
		Action:  "Ensure the file is comma-separated with quoted fields closed",
		Code:    "FILE002",
	}
	msgEmptyFile = UserMessage{
		Message: "The uploaded file is empty",
		Action:  "Please upload a CSV file with a header row",
		Code:    "FILE005",
	}
	msgTimeout = UserMessage{
		Message: "Request timed out",
		Action:  "Try importing a smaller file or try again later",
		Code:    "IMP005",
	}
)

// errorSentinels is checked in order before any pattern.
var errorSentinels = []errorSentinel{
	{target: ErrFileTooLarge, msg: msgFileTooLarge},
	{target: ErrInvalidCSV, msg: msgInvalidCSV},
	{
		target: ErrUnsupportedFileType,
		msg: UserMessage{
			Message: "Only CSV files are accepted",
			Action:  "Export your spreadsheet as .csv and try again",
			Code:    "FILE003",
		},
	},
	{target: ErrEmptyFile, msg: msgEmptyFile},
	{
		target: ErrTooManyColumns,
		msg: UserMessage{
			Message: "The file has too many columns",
			Action:  "Remove unused columns from the file",
			Code:    "FILE006",
		},
	},
	{
		target: ErrMappingConflict,
		msg: UserMessage{
			Message: "Two or more columns are mapped to the same field",
			Action:  "Change the mapping so every field is used at most once",
			Code:    "MAP001",
		},
	},
	{
		target: ErrNothingMapped,
		msg: UserMessage{
			Message: "No columns are mapped",
			Action:  "Map at least one column to a field",
			Code:    "MAP002",
		},
	},
	{
		target: ErrUnknownField,
		msg: UserMessage{
			Message: "Mapping refers to an unknown field",
			Action:  "Download the template to see the available fields",
			Code:    "MAP003",
		},
	},
	{
		target: ErrSessionNotFound,
		msg: UserMessage{
			Message: "Import session not found",
			Action:  "The session may have expired. Please upload the file again",
			Code:    "IMP001",
		},
	},
	{
		target: ErrTooManyImports,
		msg: UserMessage{
			Message: "System is busy processing other imports",
			Action:  "Please wait a moment and try again",
			Code:    "IMP002",
		},
	},
	{
		target: ErrInvalidState,
		msg: UserMessage{
			Message: "This step is not available right now",
			Action:  "Select a file and confirm the mapping first",
			Code:    "IMP003",
		},
	},
	{
		target: context.Canceled,
		msg: UserMessage{
			Message: "Request was cancelled",
			Action:  "Please try again",
			Code:    "IMP004",
		},
	},
	{target: context.DeadlineExceeded, msg: msgTimeout},
	{
		target: ErrSchemaNotFound,
		msg: UserMessage{
			Message: "Unknown schema",
			Action:  "Choose one of the listed schemas",
			Code:    "SCH001",
		},
	},
	{
		target: ErrNoData,
		msg: UserMessage{
			Message: "No data found to export",
			Action:  "Import some records before exporting",
			Code:    "EXP001",
		},
	},
}

// errorPatterns maps technical error patterns (case-insensitive) to user messages.
// The first matching pattern wins, so more specific patterns come first.
var errorPatterns = []errorPattern{
	// Database constraint errors
	{
		pattern: "duplicate key",
		msg: UserMessage{
			Message: "A record with this ID already exists",
			Action:  "Remove the duplicate rows and import again",
			Code:    "DB001",
		},
	},
	{
		pattern: "unique constraint",
		msg: UserMessage{
			Message: "This value must be unique but already exists",
			Action:  "Check for duplicate entries in your CSV",
			Code:    "DB002",
		},
	},
	{
		pattern: "violates unique",
		msg: UserMessage{
			Message: "A duplicate value was found",
			Action:  "Review your data for duplicate key values",
			Code:    "DB002",
		},
	},
	{
		pattern: "foreign key constraint",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure referenced records exist first",
			Code:    "DB003",
		},
	},
	{
		pattern: "violates foreign key",
		msg: UserMessage{
			Message: "Referenced record does not exist",
			Action:  "Ensure referenced records exist first",
			Code:    "DB003",
		},
	},

	// Database connection errors
	{
		pattern: "connection refused",
		msg: UserMessage{
			Message: "Unable to connect to database",
			Action:  "Please try again in a few moments",
			Code:    "DB004",
		},
	},
	{
		pattern: "connection reset",
		msg: UserMessage{
			Message: "Database connection was interrupted",
			Action:  "Please try again",
			Code:    "DB005",
		},
	},
	{
		pattern: "timeout",
		msg: UserMessage{
			Message: "Operation timed out",
			Action:  "Try importing a smaller file or try again later",
			Code:    "DB006",
		},
	},
	{
		pattern: "deadlock",
		msg: UserMessage{
			Message: "Database was busy with conflicting operations",
			Action:  "Please try again",
			Code:    "DB007",
		},
	},

	// Row validation errors
	{
		pattern: "invalid date",
		msg: UserMessage{
			Message: "Invalid date format detected",
			Action:  "Use YYYY-MM-DD, MM/DD/YYYY, or Jan 15, 2024",
			Code:    "VAL001",
		},
	},
	{
		pattern: "invalid email",
		msg: UserMessage{
			Message: "Invalid email address detected",
			Action:  "Use the form name@example.com",
			Code:    "VAL002",
		},
	},
	{
		pattern: "is required",
		msg: UserMessage{
			Message: "Required field is empty",
			Action:  "Ensure all required columns have values",
			Code:    "VAL003",
		},
	},
	{
		pattern: "must be one of",
		msg: UserMessage{
			Message: "Value is not in the allowed list",
			Action:  "Check the allowed values for this field",
			Code:    "VAL004",
		},
	},
	{
		pattern: "characters",
		msg: UserMessage{
			Message: "Value has the wrong length",
			Action:  "Shorten or lengthen the value to fit the field",
			Code:    "VAL005",
		},
	},

	// Transport
	{
		pattern: "no file provided",
		msg: UserMessage{
			Message: "No file was selected",
			Action:  "Please select a CSV file to upload",
			Code:    "FILE004",
		},
	},
	{
		pattern: "rate limit",
		msg: UserMessage{
			Message: "Too many requests",
			Action:  "Please wait a moment before trying again",
			Code:    "RATE001",
		},
	},
	{
		pattern: "unauthorized",
		msg: UserMessage{
			Message: "Authentication required",
			Action:  "Provide a valid API key",
			Code:    "AUTH001",
		},
	},
}

// defaultMessage is returned when nothing matches (ERR000).
// Support staff should check application logs for the original technical
// error when users report ERR000.
var defaultMessage = UserMessage{
	Message: "An unexpected error occurred",
	Action:  "Please try again or contact support",
	Code:    "ERR000",
}

// MapError converts a technical error to a user-friendly message.
// Sentinel errors are resolved with errors.Is, then the message is searched
// for known patterns. If nothing matches, ERR000 is returned.
//
// Example:
//
//	err := errors.Wrap(ErrEmptyFile, "select file")
//	msg := MapError(err)
//	// msg.Code == "FILE005"
func MapError(err error) UserMessage {
	if err == nil {
		return UserMessage{}
	}

	for _, s := range errorSentinels {
		if errors.Is(err, s.target) {
			return s.msg
		}
	}

	errStr := strings.ToLower(err.Error())
	for _, ep := range errorPatterns {
		if strings.Contains(errStr, ep.pattern) {
			return ep.msg
		}
	}

	return defaultMessage
}

// FormatUserError creates a formatted error string for display.
// The format is: "Message (Code: XXX). Action"
func FormatUserError(err error) string {
	msg := MapError(err)
	if msg.Message == "" {
		return ""
	}
	return fmt.Sprintf("%s (Code: %s). %s", msg.Message, msg.Code, msg.Action)
}

// IsUserFacing reports whether err maps to a specific message rather than
// the generic ERR000 fallback.
func IsUserFacing(err error) bool {
	if err == nil {
		return false
	}
	return MapError(err).Code != defaultMessage.Code
}

// Detail returns the most specific user-facing text for err: the error's own
// message for structural errors that already read well, plus any attached
// hints.
func Detail(err error) string {
	if err == nil {
		return ""
	}
	var parts []string
	var tooWide *TooManyColumnsError
	switch {
	case errors.As(err, &tooWide):
		parts = append(parts, tooWide.Error())
	case errors.Is(err, ErrEmptyFile), errors.Is(err, ErrNoData):
		parts = append(parts, errors.UnwrapAll(err).Error())
	}
	parts = append(parts, errors.GetAllHints(err)...)
	return strings.Join(parts, " ")
}
