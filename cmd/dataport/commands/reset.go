package commands

import (
	"github.com/JonMunkholm/dataport/internal/admin"
	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/cockroachdb/errors"
	"github.com/pterm/pterm"
	"github.com/spf13/cobra"
)

func newResetCmd(a *app) *cobra.Command {
	var schema string
	var yes bool

	cmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete the owner's stored rows and import history",
		Long: `Delete everything the owner has imported.

With --schema only that schema's rows are deleted and the import history is
kept. Without it every schema and the history are cleared.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if !yes {
				return errors.New("refusing to delete data without --yes")
			}
			r := &admin.Resetter{Store: a.store}

			var (
				res *admin.ResetResult
				err error
			)
			if schema != "" {
				key, perr := core.ParseSchemaKey(schema)
				if perr != nil {
					return perr
				}
				res, err = r.ResetSchema(cmd.Context(), a.owner, key)
			} else {
				res, err = r.ResetAll(cmd.Context(), a.owner)
			}
			if err != nil {
				return err
			}

			pterm.Success.WithWriter(cmd.OutOrStdout()).Printfln(
				"Deleted %d rows and %d import records.", res.Total(), res.Audits)
			return nil
		},
	}
	cmd.Flags().StringVarP(&schema, "schema", "s", "", "Only reset this schema")
	cmd.Flags().BoolVar(&yes, "yes", false, "Confirm the deletion")
	return cmd
}
