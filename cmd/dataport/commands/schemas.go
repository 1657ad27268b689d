package commands

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/cockroachdb/errors"
	"github.com/spf13/cobra"
)

// schemaDoc is the YAML form of a schema.
type schemaDoc struct {
	Key    string     `yaml:"key"`
	Label  string     `yaml:"label"`
	Table  string     `yaml:"table"`
	Fields []fieldDoc `yaml:"fields"`
}

type fieldDoc struct {
	Name     string   `yaml:"name"`
	Kind     string   `yaml:"kind"`
	Required bool     `yaml:"required,omitempty"`
	Min      int      `yaml:"min_length,omitempty"`
	Max      int      `yaml:"max_length,omitempty"`
	Values   []string `yaml:"values,omitempty"`
	Default  string   `yaml:"default,omitempty"`
}

func kindName(k core.FieldKind) string {
	switch k {
	case core.KindEnum:
		return "enum"
	case core.KindDate:
		return "date"
	case core.KindEmail:
		return "email"
	}
	return "text"
}

func newSchemasCmd(a *app) *cobra.Command {
	format := formatFlag("table")

	cmd := &cobra.Command{
		Use:   "schemas",
		Short: "List registered schemas and their fields",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			out := cmd.OutOrStdout()
			schemas := core.All()

			if format == "yaml" {
				docs := make([]schemaDoc, len(schemas))
				for i, s := range schemas {
					docs[i] = schemaDoc{Key: string(s.Key), Label: s.Label, Table: s.Table}
					for _, f := range s.Fields {
						docs[i].Fields = append(docs[i].Fields, fieldDoc{
							Name:     f.Name,
							Kind:     kindName(f.Kind),
							Required: f.Required,
							Min:      f.MinLength,
							Max:      f.MaxLength,
							Values:   f.EnumValues,
							Default:  f.Default,
						})
					}
				}
				return renderYAML(out, docs)
			}

			for _, s := range schemas {
				fmt.Fprintf(out, "%s (%s)\n", s.Label, s.Key)
				rows := make([][]string, len(s.Fields))
				for i, f := range s.Fields {
					rows[i] = []string{f.Name, kindName(f.Kind), requiredMark(f.Required), constraints(f)}
				}
				if err := renderTable(out, []string{"Field", "Kind", "Required", "Constraints"}, rows); err != nil {
					return err
				}
				fmt.Fprintln(out)
			}
			return nil
		},
	}
	cmd.Flags().VarP(&format, "format", "f", "Output format: table, yaml")
	return cmd
}

func requiredMark(required bool) string {
	if required {
		return "yes"
	}
	return ""
}

func constraints(f core.FieldSpec) string {
	var parts []string
	if f.MinLength > 0 {
		parts = append(parts, fmt.Sprintf("min %d", f.MinLength))
	}
	if f.MaxLength > 0 {
		parts = append(parts, fmt.Sprintf("max %d", f.MaxLength))
	}
	if len(f.EnumValues) > 0 {
		parts = append(parts, "one of "+strings.Join(f.EnumValues, "|"))
	}
	if f.Default != "" {
		parts = append(parts, "default "+f.Default)
	}
	return strings.Join(parts, ", ")
}

func newTemplateCmd(a *app) *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "template <schema>",
		Short: "Write a header-only CSV for a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			schema, err := lookupSchema(args[0])
			if err != nil {
				return err
			}
			return writeOutput(cmd.OutOrStdout(), output, schema.TemplateCSV())
		},
	}
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	return cmd
}

func lookupSchema(raw string) (core.Schema, error) {
	key, err := core.ParseSchemaKey(raw)
	if err != nil {
		return core.Schema{}, err
	}
	return core.SchemaFor(key)
}

// writeOutput writes text to path, or to w when path is empty.
func writeOutput(w io.Writer, path, text string) error {
	if path == "" {
		_, err := io.WriteString(w, text)
		return err
	}
	if err := os.WriteFile(path, []byte(text), 0o644); err != nil {
		return errors.Wrapf(err, "write %s", path)
	}
	return nil
}
