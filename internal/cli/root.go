// Package cli implements theractl, the operator command line for a TheraPro database.
package cli

import (
	"database/sql"
	"fmt"

	"github.com/spf13/cobra"
	_ "modernc.org/sqlite"

	"therapro/internal/adapters/storage"
	childStore "therapro/internal/adapters/storage/child"
	therapistStore "therapro/internal/adapters/storage/therapist"
	"therapro/internal/application/projections"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	DBPath string
}

// NewRootCommand creates the root command. defaultDB is used when --db is not given.
func NewRootCommand(defaultDB string) *cobra.Command {
	opts := &RootOptions{}

	cmd := &cobra.Command{
		Use:   "theractl",
		Short: "TheraPro operator tool",
		Long:  "Inspect, export and import the roster of a TheraPro database.",
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			if opts.DBPath == "" {
				return fmt.Errorf("--db must not be empty")
			}
			return nil
		},
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.DBPath, "db", defaultDB, "SQLite database path")

	cmd.AddCommand(NewExportCommand(opts))
	cmd.AddCommand(NewImportCommand(opts))
	cmd.AddCommand(NewOverviewCommand(opts))
	cmd.AddCommand(NewAccountsCommand(opts))

	return cmd
}

// openDB opens and migrates the database so every command sees the current schema.
func openDB(opts *RootOptions) (*sql.DB, error) {
	db, err := storage.Open(opts.DBPath)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", opts.DBPath, err)
	}
	if err := storage.MigrateDB(db); err != nil {
		db.Close()
		return nil, fmt.Errorf("migrate %s: %w", opts.DBPath, err)
	}
	return db, nil
}

func rosterDeps(db *sql.DB) projections.RosterDeps {
	return projections.RosterDeps{
		TherapistStore: therapistStore.NewSQLiteStore(db),
		ChildStore:     childStore.NewSQLiteStore(db),
	}
}
