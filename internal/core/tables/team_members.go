package tables

import "github.com/JonMunkholm/dataport/internal/core"

func init() {
	registerTeamMembers()
}

func registerTeamMembers() {
	core.Register(core.Schema{
		Key:   core.SchemaTeamMembers,
		Label: "Team Members",
		Table: "team_members",
		Fields: []core.FieldSpec{
			{Name: "name", Label: "Name", Kind: core.KindText, Required: true, MinLength: 2, MaxLength: 100, Normalizer: CollapseSpaces},
			{Name: "email", Label: "Email", Kind: core.KindEmail, Required: true, MaxLength: 255, Normalizer: NormalizeEmail},
			{Name: "role", Label: "Role", Kind: core.KindText, Required: true, MaxLength: 50},
			{Name: "department", Label: "Department", Kind: core.KindText, MaxLength: 100},
		},
	})
}
