package core

// parser.go tokenizes uploaded CSV text into a RawCsvDocument.
//
// Every cell passes through SanitizeCell, which is the formula-injection
// defense: a cell that starts like a spreadsheet formula gets a leading
// apostrophe so spreadsheet software treats it as text.

import (
	"encoding/csv"
	"io"
	"strings"
	"unicode"
	"unicode/utf8"

	"github.com/cockroachdb/errors"
)

// formulaPrefixes are the leading characters spreadsheet software may
// interpret as the start of a formula.
const formulaPrefixes = "=+-@\t\r\n"

// ParsePreview parses the header row and the first PreviewRows data rows.
// TotalRows still reflects every data row in the file.
func ParsePreview(text string, limits Limits) (*RawCsvDocument, error) {
	limits = limits.withDefaults()
	return parse(text, limits, limits.PreviewRows)
}

// ParseFull parses the header row and up to MaxRows data rows.
func ParseFull(text string, limits Limits) (*RawCsvDocument, error) {
	limits = limits.withDefaults()
	return parse(text, limits, limits.MaxRows)
}

func parse(text string, limits Limits, maxRows int) (*RawCsvDocument, error) {
	if strings.TrimSpace(text) == "" {
		return nil, withHint(ErrEmptyFile, "Upload a CSV file with a header row and at least one data row.")
	}

	r := csv.NewReader(strings.NewReader(text))
	r.LazyQuotes = true
	r.TrimLeadingSpace = true
	r.FieldsPerRecord = -1

	var doc *RawCsvDocument
	for {
		record, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Mark(errors.Wrap(err, "invalid csv"), ErrInvalidCSV)
		}
		if isBlankRecord(record) {
			continue
		}

		if doc == nil {
			if len(record) > limits.MaxColumns {
				return nil, &TooManyColumnsError{Count: len(record), Max: limits.MaxColumns}
			}
			doc = &RawCsvDocument{Headers: sanitizeRecord(record, limits.MaxCellLength)}
			continue
		}

		doc.TotalRows++
		if len(doc.Rows) >= maxRows {
			continue
		}
		if len(record) > limits.MaxColumns {
			record = record[:limits.MaxColumns]
		}
		doc.Rows = append(doc.Rows, sanitizeRecord(record, limits.MaxCellLength))
	}

	if doc == nil {
		return nil, withHint(ErrEmptyFile, "Upload a CSV file with a header row and at least one data row.")
	}
	return doc, nil
}

// SanitizeCell trims a cell, caps its length in runes and neutralizes
// formula prefixes.
//
// Only spaces are trimmed on the left so a leading tab or line break
// still triggers the prefix.
func SanitizeCell(s string, maxLen int) string {
	s = strings.TrimRightFunc(s, unicode.IsSpace)
	s = strings.TrimLeft(s, " ")

	if maxLen > 0 && utf8.RuneCountInString(s) > maxLen {
		s = string([]rune(s)[:maxLen])
	}

	if s != "" && strings.IndexByte(formulaPrefixes, s[0]) >= 0 {
		s = "'" + s
	}
	return s
}

func sanitizeRecord(record []string, maxLen int) []string {
	out := make([]string, len(record))
	for i, cell := range record {
		out[i] = SanitizeCell(cell, maxLen)
	}
	return out
}

// isBlankRecord reports whether every cell is empty or whitespace.
func isBlankRecord(record []string) bool {
	for _, cell := range record {
		if strings.TrimSpace(cell) != "" {
			return false
		}
	}
	return true
}
