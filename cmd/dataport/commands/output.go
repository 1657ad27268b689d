package commands

import (
	"io"
	"strings"

	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/pflag"
	"gopkg.in/yaml.v3"
)

// formatFlag is an output format restricted to table or yaml.
type formatFlag string

var _ pflag.Value = (*formatFlag)(nil)

func (f *formatFlag) String() string { return string(*f) }

func (f *formatFlag) Set(v string) error {
	switch v := strings.ToLower(v); v {
	case "table", "yaml":
		*f = formatFlag(v)
		return nil
	}
	return errors.Newf("unsupported format %q (supported: table, yaml)", v)
}

func (f *formatFlag) Type() string { return "format" }

// renderTable prints rows with a header line.
func renderTable(w io.Writer, header []string, rows [][]string) error {
	data := pterm.TableData{header}
	data = append(data, rows...)
	return pterm.DefaultTable.WithHasHeader().WithWriter(w).WithData(data).Render()
}

// renderYAML prints v as a YAML document.
func renderYAML(w io.Writer, v any) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(v); err != nil {
		return errors.Wrap(err, "encode yaml")
	}
	return enc.Close()
}
