package core

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNewAuditRecord(t *testing.T) {
	mapping := ColumnMapping{Entries: []MappingEntry{
		{Column: 0, CSVColumn: "Title", Target: "title"},
		{Column: 1, CSVColumn: "Notes"},
	}}
	started := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
	summary := ImportSummary{
		FileName:      "t.csv",
		Schema:        SchemaTasks,
		TotalRows:     12,
		ImportedCount: 9,
		FailedCount:   3,
		Status:        StatusCompletedWithErrors,
		SampleErrors:  []string{"Row 1: x", "Row 2: y", "Row 3: z"},
		StartedAt:     started,
	}

	rec := NewAuditRecord(testOwner, mapping, summary, 2)

	assert.Equal(t, testOwner, rec.OwnerID)
	assert.Equal(t, "t.csv", rec.FileName)
	assert.Equal(t, SchemaTasks, rec.Schema)
	assert.Equal(t, 12, rec.TotalRows)
	assert.Equal(t, 9, rec.ImportedRows)
	assert.Equal(t, 3, rec.FailedRows)
	assert.Equal(t, StatusCompletedWithErrors, rec.Status)
	assert.Equal(t, []string{"Row 1: x", "Row 2: y"}, rec.Errors)
	assert.Equal(t, started, rec.CreatedAt)
	assert.Equal(t, mapping.Entries, rec.Mapping)

	mapping.Entries[0].Target = "description"
	assert.Equal(t, "title", rec.Mapping[0].Target, "mapping is copied")
}

func TestNewAuditRecord_NoErrors(t *testing.T) {
	rec := NewAuditRecord(testOwner, ColumnMapping{}, ImportSummary{Status: StatusCompleted}, 10)
	assert.NotNil(t, rec.Errors)

	data, err := rec.ErrorsJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `[]`, string(data))
}

func TestAuditRecord_MappingJSON(t *testing.T) {
	rec := AuditRecord{Mapping: []MappingEntry{
		{Column: 0, CSVColumn: "Title", Target: "title"},
		{Column: 1, CSVColumn: "Notes"},
		{Column: 2, CSVColumn: "Due", Target: "due_date"},
	}}

	data, err := rec.MappingJSON()
	require.NoError(t, err)
	assert.JSONEq(t, `{"Title":"title","Due":"due_date"}`, string(data))

	entries, err := MappingFromJSON(data)
	require.NoError(t, err)
	assert.Equal(t, []MappingEntry{
		{Column: -1, CSVColumn: "Due", Target: "due_date"},
		{Column: -1, CSVColumn: "Title", Target: "title"},
	}, entries)
}

func TestMappingFromJSON_Edge(t *testing.T) {
	entries, err := MappingFromJSON(nil)
	require.NoError(t, err)
	assert.Nil(t, entries)

	_, err = MappingFromJSON([]byte(`[1,2]`))
	assert.Error(t, err)
}
