package cli

import (
	"encoding/json"
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"therapro/internal/application/projections"
)

// NewOverviewCommand creates the overview command.
func NewOverviewCommand(rootOpts *RootOptions) *cobra.Command {
	var asJSON bool

	cmd := &cobra.Command{
		Use:   "overview",
		Short: "Show how many children each therapist has",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runOverview(cmd, rootOpts, asJSON)
		},
	}

	cmd.Flags().BoolVar(&asJSON, "json", false, "print JSON instead of a table")

	return cmd
}

func runOverview(cmd *cobra.Command, opts *RootOptions, asJSON bool) error {
	db, err := openDB(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	o, err := projections.QueryAssignmentOverview(cmd.Context(), rosterDeps(db))
	if err != nil {
		return err
	}
	out := cmd.OutOrStdout()
	if asJSON {
		enc := json.NewEncoder(out)
		enc.SetIndent("", "  ")
		return enc.Encode(o)
	}

	tw := tabwriter.NewWriter(out, 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "THERAPIST\tCHILDREN\t")
	for _, l := range o.Loads {
		fmt.Fprintf(tw, "%s\t%d\t%s\n", l.Name, l.Children, strings.Repeat("#", l.Children))
	}
	fmt.Fprintf(tw, "(unassigned)\t%d\t\n", o.Unassigned)
	return tw.Flush()
}
