package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func targets(m ColumnMapping) []string {
	out := make([]string, len(m.Entries))
	for i, e := range m.Entries {
		out[i] = e.Target
	}
	return out
}

func TestAutoMap(t *testing.T) {
	registerTestSchemas(t)
	tasks := mustSchema(t, SchemaTasks)

	tests := []struct {
		name    string
		headers []string
		want    []string
	}{
		{"exact", []string{"title", "status"}, []string{"title", "status"}},
		{"case and separators", []string{"Title", "Due Date", "PRIORITY"}, []string{"title", "due_date", "priority"}},
		{"hyphenated", []string{"due-date"}, []string{"due_date"}},
		{"unknown column", []string{"title", "owner"}, []string{"title", ""}},
		{"first column wins", []string{"Title", "title", "TITLE"}, []string{"title", "", ""}},
		{"no match", []string{"foo", "bar"}, []string{"", ""}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			m := AutoMap(tt.headers, tasks)
			assert.Equal(t, tt.want, targets(m))
			for i, e := range m.Entries {
				assert.Equal(t, i, e.Column)
				assert.Equal(t, tt.headers[i], e.CSVColumn)
			}
			assert.Empty(t, m.Conflicts())
		})
	}
}

func TestRemap(t *testing.T) {
	registerTestSchemas(t)
	m := AutoMap([]string{"title", "notes"}, mustSchema(t, SchemaTasks))

	got := Remap(m, "notes", "description")
	assert.Equal(t, []string{"title", "description"}, targets(got))
	assert.Equal(t, []string{"title", ""}, targets(m), "original is unchanged")

	got = Remap(got, "title", "")
	assert.Equal(t, []string{"", "description"}, targets(got))
	assert.Equal(t, 1, got.MappedCount())
}

func TestRemap_AllowsConflicts(t *testing.T) {
	registerTestSchemas(t)
	m := AutoMap([]string{"title", "summary", "status", "state"}, mustSchema(t, SchemaTasks))

	m = Remap(m, "summary", "title")
	m = Remap(m, "state", "status")

	assert.Equal(t, []MappingConflict{
		{Target: "title", Columns: []int{0, 1}},
		{Target: "status", Columns: []int{2, 3}},
	}, m.Conflicts())
}

func TestRemapColumn_DuplicateHeaders(t *testing.T) {
	registerTestSchemas(t)
	m := AutoMap([]string{"title", "title"}, mustSchema(t, SchemaTasks))

	got := RemapColumn(m, 1, "description")
	assert.Equal(t, []string{"title", "description"}, targets(got))

	got = Remap(m, "title", "description")
	assert.Equal(t, []string{"description", "description"}, targets(got), "by name hits both")
}

func TestColumnMapping_Validate(t *testing.T) {
	registerTestSchemas(t)
	tasks := mustSchema(t, SchemaTasks)
	m := AutoMap([]string{"title", "x"}, tasks)

	require.NoError(t, m.Validate(tasks, 2))
	assert.True(t, errors.Is(m.Validate(tasks, 3), ErrInvalidState))
	assert.True(t, errors.Is(Remap(m, "x", "owner").Validate(tasks, 2), ErrUnknownField))

	bad := m.Clone()
	bad.Entries[1].Column = 7
	assert.True(t, errors.Is(bad.Validate(tasks, 2), ErrUnknownField))
}

func TestColumnMapping_Apply(t *testing.T) {
	registerTestSchemas(t)
	m := AutoMap([]string{"title", "skip", "status"}, mustSchema(t, SchemaTasks))

	assert.Equal(t,
		map[string]string{"title": "A", "status": "todo"},
		m.Apply([]string{"A", "ignored", "todo"}))

	assert.Equal(t,
		map[string]string{"title": "A", "status": ""},
		m.Apply([]string{"A"}), "short row reads as empty")
}

func TestColumnMapping_Clone(t *testing.T) {
	m := ColumnMapping{Entries: []MappingEntry{{Column: 0, CSVColumn: "a", Target: "title"}}}
	c := m.Clone()
	c.Entries[0].Target = ""
	assert.Equal(t, "title", m.Entries[0].Target)
}
