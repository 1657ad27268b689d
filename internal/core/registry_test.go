package core

import (
	"testing"

	"github.com/cockroachdb/errors"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestRegistry(t *testing.T) {
	registerTestSchemas(t)

	assert.Equal(t, 2, SchemaCount())

	all := All()
	require.Len(t, all, 2)
	assert.Equal(t, SchemaTasks, all[0].Key)
	assert.Equal(t, SchemaTeamMembers, all[1].Key)

	s, err := SchemaFor(SchemaTeamMembers)
	require.NoError(t, err)
	assert.Equal(t, "team_members", s.Table)
	assert.Equal(t, "name,email,role,department\n", s.TemplateCSV())

	_, err = SchemaFor("invoices")
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestParseSchemaKey(t *testing.T) {
	registerTestSchemas(t)

	tests := []struct {
		in   string
		want SchemaKey
		ok   bool
	}{
		{"tasks", SchemaTasks, true},
		{" Team_Members ", SchemaTeamMembers, true},
		{"invoices", "", false},
		{"", "", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseSchemaKey(tt.in)
			if !tt.ok {
				assert.True(t, errors.Is(err, ErrSchemaNotFound))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestParseSchemaKey_KnownButUnregistered(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	_, err := ParseSchemaKey("tasks")
	assert.True(t, errors.Is(err, ErrSchemaNotFound))
}

func TestRegister_Panics(t *testing.T) {
	registerTestSchemas(t)

	assert.Panics(t, func() { Register(Schema{Key: "invoices"}) }, "unknown key")
	assert.Panics(t, func() { Register(Schema{Key: SchemaTasks}) }, "duplicate key")

	Clear()
	assert.Panics(t, func() {
		Register(Schema{Key: SchemaTasks, Fields: []FieldSpec{{Name: "a"}, {Name: "a"}}})
	}, "duplicate field")
}

func TestRegister_DefaultsTable(t *testing.T) {
	Clear()
	t.Cleanup(Clear)

	Register(Schema{Key: SchemaTasks, Fields: []FieldSpec{{Name: "title"}}})
	s, err := SchemaFor(SchemaTasks)
	require.NoError(t, err)
	assert.Equal(t, "tasks", s.Table)
}
