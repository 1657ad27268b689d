// Package commands implements the dataport CLI.
package commands

import (
	"os"

	"github.com/JonMunkholm/dataport/internal/config"
	"github.com/JonMunkholm/dataport/internal/core"
	"github.com/JonMunkholm/dataport/internal/logging"
	"github.com/JonMunkholm/dataport/internal/store/sqlite"
	"github.com/cockroachdb/errors"
	"github.com/google/uuid"
	"github.com/spf13/cobra"
)

// app is the state shared by every subcommand once PersistentPreRunE ran.
type app struct {
	configPath string
	dbPath     string
	ownerFlag  string

	cfg     *config.Config
	store   *sqlite.Store
	service *core.Service
	owner   uuid.UUID
}

// NewRootCmd builds the command tree.
func NewRootCmd() *cobra.Command {
	a := &app{}

	root := &cobra.Command{
		Use:   "dataport",
		Short: "Import and export CSV files against typed schemas",
		Long: `dataport imports CSV files into typed record tables and exports them back.

Files are parsed with formula-injection protection, columns are matched to
schema fields automatically, and every row is validated before it is stored.
Data lives in a local SQLite database.

Examples:
  dataport schemas                               # List schemas and fields
  dataport template tasks > tasks.csv            # Header-only starter file
  dataport preview tasks.csv --schema tasks      # Check a file without importing
  dataport import tasks.csv --schema tasks       # Import a file
  dataport import t.csv -s tasks --map Name=title
  dataport export --schema tasks -o out.csv      # Export stored rows
  dataport history                               # Recent imports
  dataport reset --yes                           # Delete all stored data`,
		SilenceUsage:      true,
		SilenceErrors:     true,
		PersistentPreRunE: a.setup,
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.store != nil {
				return a.store.Close()
			}
			return nil
		},
	}

	root.PersistentFlags().StringVar(&a.configPath, "config", "", "Config file (yaml, toml or json)")
	root.PersistentFlags().StringVar(&a.dbPath, "db", "dataport.db", "SQLite database path")
	root.PersistentFlags().StringVar(&a.ownerFlag, "owner", "", "Owner id for stored rows (default: DEFAULT_OWNER_ID)")

	root.AddCommand(
		newSchemasCmd(a),
		newTemplateCmd(a),
		newPreviewCmd(a),
		newImportCmd(a),
		newExportCmd(a),
		newHistoryCmd(a),
		newResetCmd(a),
	)
	return root
}

func (a *app) setup(cmd *cobra.Command, args []string) error {
	cfg, err := config.LoadFile(a.configPath)
	if err != nil {
		return err
	}
	a.cfg = cfg
	logging.SetupWriter(os.Stderr, cfg.Logging.Level, cfg.Logging.Format)

	owner := a.ownerFlag
	if owner == "" {
		owner = cfg.Security.DefaultOwner
	}
	a.owner, err = uuid.Parse(owner)
	if err != nil {
		return errors.Wrapf(err, "invalid owner %q", owner)
	}

	a.store, err = sqlite.Open(a.dbPath)
	if err != nil {
		return err
	}

	a.service, err = core.NewService(a.store, cfg.Import.ServiceConfig())
	return err
}
