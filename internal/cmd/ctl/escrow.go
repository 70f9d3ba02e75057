package ctl

import (
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sokonihq/sokoni/internal/escrow"
)

type escrowRow struct {
	ID               string     `json:"id"`
	RequestID        string     `json:"request_id"`
	BidID            string     `json:"bid_id"`
	BuyerID          string     `json:"buyer_id"`
	SellerID         string     `json:"seller_id"`
	Status           string     `json:"status"`
	AmountCents      int64      `json:"amount_cents"`
	FeeCents         int64      `json:"fee_cents"`
	TotalCents       int64      `json:"total_cents"`
	PaymentMethod    string     `json:"payment_method,omitempty"`
	PaymentReference string     `json:"payment_reference"`
	Notes            string     `json:"notes,omitempty"`
	ExpiresAt        time.Time  `json:"expires_at"`
	LockedAt         *time.Time `json:"locked_at,omitempty"`
	ReleasedAt       *time.Time `json:"released_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
}

func newEscrowRow(esc escrow.Escrow) escrowRow {
	return escrowRow{
		ID:               esc.ID,
		RequestID:        esc.RequestID,
		BidID:            esc.BidID,
		BuyerID:          esc.BuyerID,
		SellerID:         esc.SellerID,
		Status:           string(esc.Status),
		AmountCents:      esc.AmountCents,
		FeeCents:         esc.FeeCents,
		TotalCents:       esc.TotalCents,
		PaymentMethod:    string(esc.PaymentMethod),
		PaymentReference: esc.PaymentReference,
		Notes:            esc.Notes,
		ExpiresAt:        esc.ExpiresAt,
		LockedAt:         esc.LockedAt,
		ReleasedAt:       esc.ReleasedAt,
		CreatedAt:        esc.CreatedAt,
	}
}

func newEscrowCmd(opts *options) *cobra.Command {
	esc := &cobra.Command{
		Use:   "escrow",
		Short: "Inspect escrow fund custody records",
	}
	esc.AddCommand(newEscrowShowCmd(opts))
	esc.AddCommand(newEscrowListCmd(opts))
	return esc
}

func newEscrowShowCmd(opts *options) *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show one escrow in full",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			esc, err := store.GetEscrow(cmd.Context(), args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, newEscrowRow(esc))
			}

			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintf(w, "ID:\t%s\n", esc.ID)
			fmt.Fprintf(w, "Request:\t%s\n", esc.RequestID)
			fmt.Fprintf(w, "Bid:\t%s\n", esc.BidID)
			fmt.Fprintf(w, "Buyer:\t%s\n", esc.BuyerID)
			fmt.Fprintf(w, "Seller:\t%s\n", esc.SellerID)
			fmt.Fprintf(w, "Status:\t%s\n", esc.Status)
			fmt.Fprintf(w, "Amount:\t%s\n", formatCents(esc.AmountCents))
			fmt.Fprintf(w, "Fee:\t%s\n", formatCents(esc.FeeCents))
			fmt.Fprintf(w, "Total:\t%s\n", formatCents(esc.TotalCents))
			if esc.PaymentMethod != "" {
				fmt.Fprintf(w, "Method:\t%s\n", esc.PaymentMethod)
			}
			fmt.Fprintf(w, "Reference:\t%s\n", esc.PaymentReference)
			if esc.Notes != "" {
				fmt.Fprintf(w, "Notes:\t%s\n", esc.Notes)
			}
			fmt.Fprintf(w, "Expires:\t%s\n", esc.ExpiresAt.Format(time.RFC3339))
			if esc.LockedAt != nil {
				fmt.Fprintf(w, "Locked:\t%s\n", esc.LockedAt.Format(time.RFC3339))
			}
			if esc.ReleasedAt != nil {
				fmt.Fprintf(w, "Released:\t%s\n", esc.ReleasedAt.Format(time.RFC3339))
			}
			fmt.Fprintf(w, "Created:\t%s\n", esc.CreatedAt.Format(time.RFC3339))
			return w.Flush()
		},
	}
}

func newEscrowListCmd(opts *options) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List escrows, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter escrow.Status
			if status != "" {
				parsed, err := escrow.ParseStatus(status)
				if err != nil {
					return err
				}
				filter = parsed
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			escrows, err := store.ListEscrows(cmd.Context(), filter)
			if err != nil {
				return err
			}

			rows := make([]escrowRow, len(escrows))
			for i, esc := range escrows {
				rows[i] = newEscrowRow(esc)
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, rows)
			}

			if len(rows) == 0 {
				fmt.Fprintln(out, "No escrows found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tREQUEST\tSTATUS\tAMOUNT\tTOTAL\tMETHOD\tCREATED")
			for _, row := range rows {
				method := row.PaymentMethod
				if method == "" {
					method = "-"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					row.ID,
					row.RequestID,
					row.Status,
					formatCents(row.AmountCents),
					formatCents(row.TotalCents),
					method,
					row.CreatedAt.Format("2006-01-02"),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: %d escrow(s)\n", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (pending, locked, released, held, refunded, failed)")
	return cmd
}
