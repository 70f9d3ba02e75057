package ctl

import (
	"fmt"
	"log"

	"github.com/spf13/cobra"

	"github.com/sokonihq/sokoni/internal/seed"
)

func newSeedCmd(opts *options) *cobra.Command {
	var file string

	cmd := &cobra.Command{
		Use:   "seed",
		Short: "Load a YAML fixture into the database",
		Long: `Seed loads users, categories, requests, bids, and accept/pay steps
from a YAML fixture. Records pass through the same domain rules as the
API, and users and categories already present are reused, so fixtures
can be applied repeatedly.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			fixture, err := seed.Load(file)
			if err != nil {
				return err
			}

			store, err := opts.createStore()
			if err != nil {
				return err
			}
			defer store.Close()

			log.SetPrefix("[SEED] ")
			result, err := seed.Apply(cmd.Context(), store, fixture, seed.Options{})
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, result)
			}
			fmt.Fprintf(out, "Seeded: %d users, %d categories, %d requests, %d bids (%d accepted, %d paid)\n",
				result.Users, result.Categories, result.Requests, result.Bids, result.Accepted, result.Paid)
			return nil
		},
	}

	cmd.Flags().StringVar(&file, "file", "", "fixture file to load")
	_ = cmd.MarkFlagRequired("file")
	return cmd
}
