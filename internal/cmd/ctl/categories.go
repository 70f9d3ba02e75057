package ctl

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sokonihq/sokoni/internal/market"
)

type categoryRow struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Description string    `json:"description,omitempty"`
	Active      bool      `json:"active"`
	CreatedAt   time.Time `json:"created_at"`
}

func newCategoriesCmd(opts *options) *cobra.Command {
	categories := &cobra.Command{
		Use:   "categories",
		Short: "Manage request categories",
	}
	categories.AddCommand(newCategoriesListCmd(opts))
	categories.AddCommand(newCategoriesAddCmd(opts))
	categories.AddCommand(newCategoriesDisableCmd(opts))
	return categories
}

func newCategoriesListCmd(opts *options) *cobra.Command {
	var all bool

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List categories",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			categories, err := store.ListCategories(cmd.Context(), !all)
			if err != nil {
				return err
			}

			rows := make([]categoryRow, len(categories))
			for i, c := range categories {
				rows[i] = categoryRow{
					ID:          c.ID,
					Name:        c.Name,
					Description: c.Description,
					Active:      c.Active,
					CreatedAt:   c.CreatedAt,
				}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, rows)
			}

			if len(rows) == 0 {
				fmt.Fprintln(out, "No categories found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tNAME\tACTIVE\tDESCRIPTION")
			for _, row := range rows {
				active := "yes"
				if !row.Active {
					active = "no"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\n",
					row.ID,
					row.Name,
					active,
					truncate(row.Description, 60),
				)
			}
			return w.Flush()
		},
	}

	cmd.Flags().BoolVar(&all, "all", false, "include disabled categories")
	return cmd
}

func newCategoriesAddCmd(opts *options) *cobra.Command {
	var description string

	cmd := &cobra.Command{
		Use:   "add <name>",
		Short: "Add a category",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			category, err := market.CreateCategory(market.CreateCategoryInput{
				Name:        args[0],
				Description: description,
			}, nil, nil)
			if err != nil {
				return err
			}

			store, err := opts.createStore()
			if err != nil {
				return err
			}
			defer store.Close()

			if err := store.CreateCategory(cmd.Context(), category); err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, categoryRow{
					ID:          category.ID,
					Name:        category.Name,
					Description: category.Description,
					Active:      category.Active,
					CreatedAt:   category.CreatedAt,
				})
			}
			fmt.Fprintf(out, "Category %q added (%s)\n", category.Name, category.ID)
			return nil
		},
	}

	cmd.Flags().StringVar(&description, "description", "", "category description")
	return cmd
}

func newCategoriesDisableCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "disable <name>",
		Short: "Disable a category so new requests cannot use it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			category, err := store.GetCategoryByName(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if err := store.SetCategoryActive(cmd.Context(), category.ID, false); err != nil {
				return err
			}

			fmt.Fprintf(cmd.OutOrStdout(), "Category %q disabled\n", category.Name)
			return nil
		},
	}
}
