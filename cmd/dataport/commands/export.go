package commands

import (
	"fmt"
	"strings"
	"time"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/spf13/cobra"
)

func newExportCmd(a *app) *cobra.Command {
	var schema, output string
	var safe bool

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Export stored rows of a schema as CSV",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			key, err := core.ParseSchemaKey(schema)
			if err != nil {
				return err
			}
			rows, err := a.service.ExportRows(cmd.Context(), a.owner, key)
			if err != nil {
				return err
			}

			var b strings.Builder
			if err := core.WriteCSV(&b, rows, core.DefaultExcludedColumns, core.ExportOptions{SpreadsheetSafe: safe}); err != nil {
				return err
			}
			if output == "" {
				b.WriteString("\n")
			}
			return writeOutput(cmd.OutOrStdout(), output, b.String())
		},
	}
	cmd.Flags().StringVarP(&schema, "schema", "s", "", "Schema to export (required)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "Write to file instead of stdout")
	cmd.Flags().BoolVar(&safe, "safe", false, "Prefix formula-like cells for spreadsheet use")
	cmd.MarkFlagRequired("schema")
	return cmd
}

// historyDoc is the YAML form of an audit record.
type historyDoc struct {
	ID       string   `yaml:"id"`
	File     string   `yaml:"file"`
	Schema   string   `yaml:"schema"`
	Status   string   `yaml:"status"`
	Total    int      `yaml:"total_rows"`
	Imported int      `yaml:"imported_rows"`
	Failed   int      `yaml:"failed_rows"`
	Mapping  []string `yaml:"mapping,omitempty"`
	Errors   []string `yaml:"errors,omitempty"`
	When     string   `yaml:"created_at"`
}

func newHistoryCmd(a *app) *cobra.Command {
	var limit int
	format := formatFlag("table")

	cmd := &cobra.Command{
		Use:   "history",
		Short: "List recent imports, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			records, err := a.service.History(cmd.Context(), a.owner, limit)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if format == "yaml" {
				docs := make([]historyDoc, len(records))
				for i, r := range records {
					docs[i] = historyDoc{
						ID:       r.ID.String(),
						File:     r.FileName,
						Schema:   string(r.Schema),
						Status:   string(r.Status),
						Total:    r.TotalRows,
						Imported: r.ImportedRows,
						Failed:   r.FailedRows,
						Errors:   r.Errors,
						When:     r.CreatedAt.Format(time.RFC3339),
					}
					for _, m := range r.Mapping {
						docs[i].Mapping = append(docs[i].Mapping, m.CSVColumn+" -> "+m.Target)
					}
				}
				return renderYAML(out, docs)
			}

			if len(records) == 0 {
				fmt.Fprintln(out, "No imports yet.")
				return nil
			}
			rows := make([][]string, len(records))
			for i, r := range records {
				rows[i] = []string{
					r.CreatedAt.Local().Format("2006-01-02 15:04"),
					r.FileName,
					string(r.Schema),
					string(r.Status),
					fmt.Sprintf("%d/%d", r.ImportedRows, r.TotalRows),
				}
			}
			return renderTable(out, []string{"When", "File", "Schema", "Status", "Imported"}, rows)
		},
	}
	cmd.Flags().IntVarP(&limit, "limit", "n", 20, "Number of records to show")
	cmd.Flags().VarP(&format, "format", "f", "Output format: table, yaml")
	return cmd
}
