package cli

import (
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	accountStore "therapro/internal/adapters/storage/account"
)

// NewAccountsCommand creates the accounts command.
func NewAccountsCommand(rootOpts *RootOptions) *cobra.Command {
	var role string

	cmd := &cobra.Command{
		Use:   "accounts",
		Short: "List login accounts",
		Long:  "List usernames, roles and linked therapist records. Passwords are never shown.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runAccounts(cmd, rootOpts, role)
		},
	}

	cmd.Flags().StringVar(&role, "role", "", "only list accounts with this role")

	return cmd
}

func runAccounts(cmd *cobra.Command, opts *RootOptions, role string) error {
	db, err := openDB(opts)
	if err != nil {
		return err
	}
	defer db.Close()

	accounts, err := accountStore.NewSQLiteStore(db).List(cmd.Context(), accountStore.ListFilter{Role: role})
	if err != nil {
		return err
	}
	tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
	fmt.Fprintln(tw, "USERNAME\tROLE\tTHERAPIST")
	for _, a := range accounts {
		linked := a.TherapistID
		if linked == "" {
			linked = "-"
		}
		fmt.Fprintf(tw, "%s\t%s\t%s\n", a.Username, a.Role, linked)
	}
	return tw.Flush()
}
