package ctl

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sokonihq/sokoni/internal/storage"
)

type bidRow struct {
	ID           string     `json:"id"`
	RequestID    string     `json:"request_id"`
	Seller       string     `json:"seller"`
	AmountCents  int64      `json:"amount_cents"`
	DeliveryDays *int       `json:"delivery_days,omitempty"`
	ExpiresAt    *time.Time `json:"expires_at,omitempty"`
	Accepted     bool       `json:"accepted"`
	CreatedAt    time.Time  `json:"created_at"`
}

func newBidsCmd(opts *options) *cobra.Command {
	bids := &cobra.Command{
		Use:   "bids",
		Short: "Inspect seller bids",
	}
	bids.AddCommand(newBidsListCmd(opts))
	return bids
}

func newBidsListCmd(opts *options) *cobra.Command {
	var requestID string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List bids on one request, cheapest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := collectBids(cmd.Context(), store, requestID)
			if err != nil {
				return err
			}

			rows := make([]bidRow, len(records))
			for i, record := range records {
				rows[i] = bidRow{
					ID:           record.ID,
					RequestID:    record.RequestID,
					Seller:       record.SellerUsername,
					AmountCents:  record.AmountCents,
					DeliveryDays: record.DeliveryDays,
					ExpiresAt:    record.ExpiresAt,
					Accepted:     record.Accepted,
					CreatedAt:    record.CreatedAt,
				}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, rows)
			}

			if len(rows) == 0 {
				fmt.Fprintln(out, "No bids found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tSELLER\tAMOUNT\tDELIVERY\tACCEPTED\tCREATED")
			for _, row := range rows {
				delivery := "-"
				if row.DeliveryDays != nil {
					delivery = fmt.Sprintf("%dd", *row.DeliveryDays)
				}
				accepted := ""
				if row.Accepted {
					accepted = "yes"
				}
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%s\n",
					row.ID,
					row.Seller,
					formatCents(row.AmountCents),
					delivery,
					accepted,
					row.CreatedAt.Format("2006-01-02"),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: %d bid(s)\n", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&requestID, "request", "", "request ID to list bids for")
	_ = cmd.MarkFlagRequired("request")
	return cmd
}

type bidLister interface {
	ListBidsForRequest(ctx context.Context, requestID, sellerID string, pageSize int, pageToken string) (storage.BidPage, error)
}

func collectBids(ctx context.Context, store bidLister, requestID string) ([]storage.BidRecord, error) {
	var records []storage.BidRecord
	token := ""
	for {
		page, err := store.ListBidsForRequest(ctx, requestID, "", listPageSize, token)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Bids...)
		if page.NextPageToken == "" {
			return records, nil
		}
		token = page.NextPageToken
	}
}
