package tables

import "github.com/JonMunkholm/dataport/internal/core"

// Task enum values.
var (
	TaskStatuses   = []string{"todo", "in-progress", "completed"}
	TaskPriorities = []string{"low", "medium", "high", "urgent"}
)

func init() {
	registerTasks()
}

func registerTasks() {
	core.Register(core.Schema{
		Key:   core.SchemaTasks,
		Label: "Tasks",
		Table: "tasks",
		Fields: []core.FieldSpec{
			{Name: "title", Label: "Title", Kind: core.KindText, Required: true, MaxLength: 200},
			{Name: "description", Label: "Description", Kind: core.KindText, MaxLength: 2000},
			{
				Name:       "status",
				Label:      "Status",
				Kind:       core.KindEnum,
				EnumValues: TaskStatuses,
				Default:    "todo",
				Normalizer: NormalizeEnum,
			},
			{
				Name:       "priority",
				Label:      "Priority",
				Kind:       core.KindEnum,
				EnumValues: TaskPriorities,
				Default:    "medium",
				Normalizer: NormalizeEnum,
			},
			{Name: "due_date", Label: "Due date", Kind: core.KindDate},
		},
	})
}
