package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	rosterStore "therapro/internal/adapters/storage/roster"
	"therapro/internal/application/orchestrators"
	"therapro/internal/application/snapshot"
)

// NewImportCommand creates the import command.
func NewImportCommand(rootOpts *RootOptions) *cobra.Command {
	var replace bool

	cmd := &cobra.Command{
		Use:   "import <file>",
		Short: "Load a roster snapshot",
		Long: `Load a JSON or YAML snapshot (chosen by file extension).

Records with an existing id are updated and new ones added, and children may
be assigned to therapists already stored. With --replace the current roster is
discarded first, so every assignment must name a therapist in the file. A
corrupt snapshot changes nothing.`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			return runImport(cmd, rootOpts, args[0], replace)
		},
	}

	cmd.Flags().BoolVar(&replace, "replace", false, "discard the current roster before loading")

	return cmd
}

func runImport(cmd *cobra.Command, opts *RootOptions, path string, replace bool) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()
	snap, err := snapshot.Decode(f, snapshot.FormatForPath(path))
	if err != nil {
		return fmt.Errorf("%s: %w", path, err)
	}

	db, err := openDB(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	res, err := orchestrators.ExecuteImportRoster(cmd.Context(), orchestrators.ImportRosterInput{
		Snapshot: snap,
		Replace:  replace,
	}, orchestrators.RosterDeps{Roster: rosterStore.NewSQLiteStore(db)})
	if err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "imported %d therapists and %d children\n", res.Therapists, res.Children)
	return nil
}
