package cli

import (
	"fmt"
	"io"
	"os"

	"github.com/spf13/cobra"

	"therapro/internal/application/projections"
	"therapro/internal/application/snapshot"
)

// NewExportCommand creates the export command.
func NewExportCommand(rootOpts *RootOptions) *cobra.Command {
	var format, output string

	cmd := &cobra.Command{
		Use:   "export",
		Short: "Write the roster as a snapshot",
		Long: `Write every therapist and child, newest first, as a JSON or YAML snapshot.

The output can be loaded again with "theractl import" or used as THERAPRO_SEED_FILE.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			f, err := snapshot.ParseFormat(format)
			if err != nil {
				return err
			}
			var w io.Writer = cmd.OutOrStdout()
			if output != "" {
				file, err := os.Create(output)
				if err != nil {
					return err
				}
				defer file.Close()
				w = file
			}
			return runExport(cmd, rootOpts, f, w)
		},
	}

	cmd.Flags().StringVar(&format, "format", "json", "snapshot format (json|yaml)")
	cmd.Flags().StringVarP(&output, "output", "o", "", "write to a file instead of stdout")

	return cmd
}

func runExport(cmd *cobra.Command, opts *RootOptions, format snapshot.Format, w io.Writer) error {
	db, err := openDB(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	snap, err := projections.QueryRosterSnapshot(cmd.Context(), rosterDeps(db))
	if err != nil {
		return fmt.Errorf("read roster: %w", err)
	}
	return snapshot.Encode(w, snap, format)
}
