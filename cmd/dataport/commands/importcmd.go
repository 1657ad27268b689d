package commands

import (
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newPreviewCmd(a *app) *cobra.Command {
	var schema string
	var maps []string

	cmd := &cobra.Command{
		Use:   "preview <file>",
		Short: "Show the mapping and validation result without importing",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.runImport(cmd, args[0], schema, maps, true)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if err := printPreview(out, res.Session); err != nil {
				return err
			}

			an := res.Analysis
			fmt.Fprintf(out, "\nRows checked: %d  valid: %d  invalid: %d\n",
				an.CheckedRows, an.ValidRows, an.InvalidRows)
			for _, line := range an.ErrorSamples {
				fmt.Fprintf(out, "  %s\n", line)
			}
			if an.CanImport() {
				pterm.Success.WithWriter(out).Println("All rows are valid.")
			} else {
				pterm.Warning.WithWriter(out).Println("Invalid rows will be skipped on import.")
			}
			return nil
		},
	}
	cmd.Flags().StringVarP(&schema, "schema", "s", "", "Target schema (required)")
	cmd.Flags().StringArrayVarP(&maps, "map", "m", nil, "Override a column mapping: column=field (field empty to skip)")
	cmd.MarkFlagRequired("schema")
	return cmd
}

func newImportCmd(a *app) *cobra.Command {
	var schema string
	var maps []string
	var dryRun bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Import a CSV file into a schema",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			res, err := a.runImport(cmd, args[0], schema, maps, dryRun)
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()

			if dryRun {
				an := res.Analysis
				pterm.Info.WithWriter(out).Printfln("Dry run: %d of %d rows would be imported.",
					an.ValidRows, an.CheckedRows)
				for _, line := range an.ErrorSamples {
					fmt.Fprintf(out, "  %s\n", line)
				}
				return nil
			}

			return printSummary(out, res.Summary, res.Outcomes)
		},
	}
	cmd.Flags().StringVarP(&schema, "schema", "s", "", "Target schema (required)")
	cmd.Flags().StringArrayVarP(&maps, "map", "m", nil, "Override a column mapping: column=field (field empty to skip)")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "Validate without storing anything")
	cmd.MarkFlagRequired("schema")
	return cmd
}

func (a *app) runImport(cmd *cobra.Command, path, schema string, maps []string, dryRun bool) (*core.ImportResult, error) {
	key, err := core.ParseSchemaKey(schema)
	if err != nil {
		return nil, err
	}
	overrides, err := parseOverrides(maps)
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrapf(err, "open %s", path)
	}
	defer f.Close()

	size := int64(-1)
	if info, err := f.Stat(); err == nil {
		size = info.Size()
	}

	return a.service.Import(cmd.Context(), core.ImportRequest{
		Owner:  a.owner,
		Schema: key,
		File: core.FileSource{
			Name:   filepath.Base(path),
			Size:   size,
			Reader: f,
		},
		Overrides: overrides,
		DryRun:    dryRun,
	})
}

// parseOverrides turns column=field flags into a mapping override set.
func parseOverrides(maps []string) (map[string]string, error) {
	overrides := make(map[string]string, len(maps))
	for _, m := range maps {
		column, field, ok := strings.Cut(m, "=")
		if !ok || strings.TrimSpace(column) == "" {
			return nil, errors.Newf("invalid --map %q, expected column=field", m)
		}
		overrides[strings.TrimSpace(column)] = strings.TrimSpace(field)
	}
	return overrides, nil
}

func printPreview(out io.Writer, view core.SessionView) error {
	fmt.Fprintf(out, "File: %s (%d rows)\n", view.FileName, view.TotalRows)
	if view.TruncationNotice != "" {
		pterm.Warning.WithWriter(out).Println(view.TruncationNotice)
	}

	rows := make([][]string, len(view.Mapping.Entries))
	for i, e := range view.Mapping.Entries {
		target := e.Target
		if target == "" {
			target = "(skip)"
		}
		sample := ""
		if len(view.PreviewRows) > 0 && e.Column < len(view.PreviewRows[0]) {
			sample = view.PreviewRows[0][e.Column]
		}
		rows[i] = []string{e.CSVColumn, target, sample}
	}
	if err := renderTable(out, []string{"Column", "Field", "First value"}, rows); err != nil {
		return err
	}

	for _, c := range view.Conflicts {
		pterm.Warning.WithWriter(out).Printfln("%s is mapped from %d columns", c.Target, len(c.Columns))
	}
	return nil
}

func printSummary(out io.Writer, s *core.ImportSummary, outcomes []core.RowOutcome) error {
	msg := fmt.Sprintf("Imported %d of %d rows into %s", s.ImportedCount, s.TotalRows, s.Schema)
	switch {
	case s.Cancelled:
		pterm.Warning.WithWriter(out).Println(msg + " (cancelled)")
	case s.FailedCount > 0:
		pterm.Warning.WithWriter(out).Println(msg)
	default:
		pterm.Success.WithWriter(out).Println(msg)
	}
	if s.Truncated {
		pterm.Warning.WithWriter(out).Printfln("Only the first %d rows were processed.", s.ProcessedRows)
	}
	if s.AuditError != "" {
		pterm.Error.WithWriter(out).Println("Audit record not written: " + s.AuditError)
	}

	var rejected [][]string
	for _, o := range outcomes {
		if !o.Imported() {
			rejected = append(rejected, []string{fmt.Sprint(o.Row), strings.Join(o.Errors, "; ")})
		}
	}
	if len(rejected) == 0 {
		return nil
	}
	fmt.Fprintln(out)
	return renderTable(out, []string{"Row", "Errors"}, rejected)
}
