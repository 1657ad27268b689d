package tables

import (
	"testing"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSchemasRegistered(t *testing.T) {
	tasks, err := core.SchemaFor(core.SchemaTasks)
	require.NoError(t, err)
	assert.Equal(t, []string{"title", "description", "status", "priority", "due_date"}, tasks.FieldNames())

	members, err := core.SchemaFor(core.SchemaTeamMembers)
	require.NoError(t, err)
	assert.Equal(t, []string{"name", "email", "role", "department"}, members.FieldNames())
}

func TestNormalizeEnum(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"todo", "todo"},
		{"  TODO ", "todo"},
		{"In Progress", "in-progress"},
		{"in_progress", "in-progress"},
		{"URGENT", "urgent"},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, NormalizeEnum(tt.in))
		})
	}
}

func TestTasksValidation(t *testing.T) {
	schema, err := core.SchemaFor(core.SchemaTasks)
	require.NoError(t, err)

	tests := []struct {
		name       string
		values     map[string]string
		wantErrs   []string
		wantStatus string
	}{
		{
			name:       "defaults applied",
			values:     map[string]string{"title": "Buy milk"},
			wantStatus: "todo",
		},
		{
			name:       "status case folded",
			values:     map[string]string{"title": "Ship", "status": "In Progress", "priority": "HIGH"},
			wantStatus: "in-progress",
		},
		{
			name:     "missing title and bad status",
			values:   map[string]string{"status": "done", "priority": "medium"},
			wantErrs: []string{"title", "status"},
		},
		{
			name:     "bad due date",
			values:   map[string]string{"title": "x", "due_date": "2024-02-30"},
			wantErrs: []string{"due_date"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec, errs := core.ValidateRow(schema, tt.values)
			if len(tt.wantErrs) > 0 {
				fields := make([]string, len(errs))
				for i, e := range errs {
					fields[i] = e.Field
				}
				assert.Equal(t, tt.wantErrs, fields)
				return
			}
			require.Empty(t, errs)
			status, _ := rec.Get("status")
			assert.Equal(t, tt.wantStatus, status)
		})
	}
}

func TestTeamMembersValidation(t *testing.T) {
	schema, err := core.SchemaFor(core.SchemaTeamMembers)
	require.NoError(t, err)

	rec, errs := core.ValidateRow(schema, map[string]string{
		"name":  "  Ada   Lovelace ",
		"email": "ADA@Example.com",
		"role":  "Engineer",
	})
	require.Empty(t, errs)
	name, _ := rec.Get("name")
	email, _ := rec.Get("email")
	assert.Equal(t, "Ada Lovelace", name)
	assert.Equal(t, "ada@example.com", email)

	_, errs = core.ValidateRow(schema, map[string]string{"name": "A", "email": "nope", "role": ""})
	require.Len(t, errs, 3)
	assert.Equal(t, "Name must be at least 2 characters", errs[0].Message)
	assert.Equal(t, "Invalid email address", errs[1].Message)
	assert.Equal(t, "Role is required", errs[2].Message)
}
