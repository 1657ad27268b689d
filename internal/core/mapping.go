package core

import (
	"strings"
	"unicode"

	"github.com/cockroachdb/errors"
)

// MappingEntry maps one CSV column to a schema field. An empty Target
// means the column is not imported.
type MappingEntry struct {
	Column    int    `json:"column"`
	CSVColumn string `json:"csvColumn"`
	Target    string `json:"target"`
}

// ColumnMapping is the ordered column-to-field assignment for one file.
type ColumnMapping struct {
	Entries []MappingEntry `json:"entries"`
}

// MappingConflict is a target field claimed by more than one CSV column.
type MappingConflict struct {
	Target  string `json:"target"`
	Columns []int  `json:"columns"`
}

// normalizeName lowercases s and drops underscores, hyphens and whitespace.
func normalizeName(s string) string {
	var b strings.Builder
	b.Grow(len(s))
	for _, r := range strings.ToLower(s) {
		if r == '_' || r == '-' || unicode.IsSpace(r) {
			continue
		}
		b.WriteRune(r)
	}
	return b.String()
}

// AutoMap proposes a mapping by comparing normalized header and field names.
// The first matching column wins; a field is assigned at most once.
func AutoMap(headers []string, schema Schema) ColumnMapping {
	fields := make(map[string]string, len(schema.Fields))
	for _, f := range schema.Fields {
		fields[normalizeName(f.Name)] = f.Name
	}

	assigned := make(map[string]bool, len(schema.Fields))
	m := ColumnMapping{Entries: make([]MappingEntry, len(headers))}
	for i, h := range headers {
		entry := MappingEntry{Column: i, CSVColumn: h}
		if name, ok := fields[normalizeName(h)]; ok && !assigned[name] {
			entry.Target = name
			assigned[name] = true
		}
		m.Entries[i] = entry
	}
	return m
}

// Remap returns a copy of m where every column named csvColumn targets
// target. An empty target unmaps the column. Uniqueness is not enforced.
func Remap(m ColumnMapping, csvColumn, target string) ColumnMapping {
	out := m.Clone()
	for i := range out.Entries {
		if out.Entries[i].CSVColumn == csvColumn {
			out.Entries[i].Target = target
		}
	}
	return out
}

// RemapColumn is Remap addressed by column index, for files whose header
// repeats a name.
func RemapColumn(m ColumnMapping, column int, target string) ColumnMapping {
	out := m.Clone()
	for i := range out.Entries {
		if out.Entries[i].Column == column {
			out.Entries[i].Target = target
		}
	}
	return out
}

// Clone returns a deep copy of m.
func (m ColumnMapping) Clone() ColumnMapping {
	entries := make([]MappingEntry, len(m.Entries))
	copy(entries, m.Entries)
	return ColumnMapping{Entries: entries}
}

// Conflicts lists targets assigned to more than one column, in the order
// the target is first seen.
func (m ColumnMapping) Conflicts() []MappingConflict {
	columns := make(map[string][]int)
	var order []string
	for _, e := range m.Entries {
		if e.Target == "" {
			continue
		}
		if _, seen := columns[e.Target]; !seen {
			order = append(order, e.Target)
		}
		columns[e.Target] = append(columns[e.Target], e.Column)
	}

	var conflicts []MappingConflict
	for _, target := range order {
		if cols := columns[target]; len(cols) > 1 {
			conflicts = append(conflicts, MappingConflict{Target: target, Columns: cols})
		}
	}
	return conflicts
}

// MappedCount returns how many columns have a target.
func (m ColumnMapping) MappedCount() int {
	n := 0
	for _, e := range m.Entries {
		if e.Target != "" {
			n++
		}
	}
	return n
}

// Validate checks that every target names a field of schema and that the
// mapping covers exactly the given number of columns.
func (m ColumnMapping) Validate(schema Schema, columns int) error {
	if len(m.Entries) != columns {
		return errors.Wrapf(ErrInvalidState, "mapping has %d columns, file has %d", len(m.Entries), columns)
	}
	for _, e := range m.Entries {
		if e.Column < 0 || e.Column >= columns {
			return errors.Wrapf(ErrUnknownField, "column index %d out of range", e.Column)
		}
		if e.Target == "" {
			continue
		}
		if _, ok := schema.Field(e.Target); !ok {
			return errors.Wrapf(ErrUnknownField, "%q is not a field of %s", e.Target, schema.Key)
		}
	}
	return nil
}

// Apply projects a data row onto field names. Unmapped columns are dropped
// and cells missing from a short row read as empty.
func (m ColumnMapping) Apply(row []string) map[string]string {
	values := make(map[string]string, len(m.Entries))
	for _, e := range m.Entries {
		if e.Target == "" {
			continue
		}
		var cell string
		if e.Column < len(row) {
			cell = row[e.Column]
		}
		values[e.Target] = cell
	}
	return values
}
