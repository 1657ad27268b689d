package core

// export.go serializes stored rows back to CSV.
//
// Every cell is wrapped in double quotes with embedded quotes doubled.
// encoding/csv only quotes when needed, so the writer is hand-rolled.

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/cockroachdb/errors"
)

// DefaultExcludedColumns are never exported: they are internal identifiers
// and are not needed to re-import the file.
var DefaultExcludedColumns = []string{"id", "user_id"}

// ExportOptions tunes CSV output.
type ExportOptions struct {
	// SpreadsheetSafe re-applies the formula prefix defense to exported cells.
	SpreadsheetSafe bool
}

// ExportCSV renders rows as CSV text. Columns are taken from the first row
// minus excluded. Returns ErrNoData when rows is empty.
func ExportCSV(rows []StoredRow, excluded []string) (string, error) {
	var b strings.Builder
	if err := WriteCSV(&b, rows, excluded, ExportOptions{}); err != nil {
		return "", err
	}
	return b.String(), nil
}

// WriteCSV streams rows as CSV to w. Lines are separated by "\n" with no
// trailing newline.
func WriteCSV(w io.Writer, rows []StoredRow, excluded []string, opts ExportOptions) error {
	if len(rows) == 0 {
		return withHint(ErrNoData, "Import some records before exporting.")
	}

	columns := ExportColumns(rows[0], excluded)

	if err := writeLine(w, columns, opts); err != nil {
		return err
	}

	cells := make([]string, len(columns))
	for _, row := range rows {
		values := make(map[string]any, len(row))
		for _, fv := range row {
			values[fv.Name] = fv.Value
		}
		for i, col := range columns {
			cells[i] = FormatValue(values[col])
		}
		if _, err := io.WriteString(w, "\n"); err != nil {
			return errors.Wrap(err, "write csv")
		}
		if err := writeLine(w, cells, opts); err != nil {
			return err
		}
	}
	return nil
}

// ExportColumns returns the column names of row minus excluded, in order.
func ExportColumns(row StoredRow, excluded []string) []string {
	skip := make(map[string]bool, len(excluded))
	for _, c := range excluded {
		skip[c] = true
	}
	columns := make([]string, 0, len(row))
	for _, fv := range row {
		if !skip[fv.Name] {
			columns = append(columns, fv.Name)
		}
	}
	return columns
}

// ExportFileName returns the download name for an export taken at now.
func ExportFileName(key SchemaKey, now time.Time) string {
	return fmt.Sprintf("%s_export_%s.csv", key, now.Format(ISODate))
}

func writeLine(w io.Writer, cells []string, opts ExportOptions) error {
	var b strings.Builder
	for i, cell := range cells {
		if i > 0 {
			b.WriteByte(',')
		}
		if opts.SpreadsheetSafe && cell != "" && strings.IndexByte(formulaPrefixes, cell[0]) >= 0 {
			cell = "'" + cell
		}
		b.WriteString(QuoteCell(cell))
	}
	if _, err := io.WriteString(w, b.String()); err != nil {
		return errors.Wrap(err, "write csv")
	}
	return nil
}

// QuoteCell wraps s in double quotes, doubling any quote inside it.
func QuoteCell(s string) string {
	return `"` + strings.ReplaceAll(s, `"`, `""`) + `"`
}
