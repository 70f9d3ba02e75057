package ctl

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sokonihq/sokoni/internal/user"
)

type userRow struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Username  string    `json:"username"`
	Location  string    `json:"location,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

func newUsersCmd(opts *options) *cobra.Command {
	users := &cobra.Command{
		Use:   "users",
		Short: "Inspect marketplace accounts",
	}
	users.AddCommand(newUsersListCmd(opts))
	return users
}

func newUsersListCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List every account, oldest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			accounts, err := store.ListUsers(cmd.Context())
			if err != nil {
				return err
			}

			rows := make([]userRow, len(accounts))
			for i, u := range accounts {
				rows[i] = newUserRow(u)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, rows)
			}

			if len(rows) == 0 {
				fmt.Fprintln(out, "No users found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tEMAIL\tUSERNAME\tLOCATION\tJOINED")
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\n",
					row.ID,
					row.Email,
					row.Username,
					row.Location,
					row.CreatedAt.Format("2006-01-02"),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: %d user(s)\n", len(rows))
			return nil
		},
	}
}

func newUserRow(u user.User) userRow {
	return userRow{
		ID:        u.ID,
		Email:     u.Email,
		Username:  u.Username,
		Location:  u.Location,
		CreatedAt: u.CreatedAt,
	}
}
