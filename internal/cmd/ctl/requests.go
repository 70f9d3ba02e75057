package ctl

import (
	"context"
	"fmt"
	"text/tabwriter"
	"time"

	"github.com/spf13/cobra"

	"github.com/sokonihq/sokoni/internal/market"
	"github.com/sokonihq/sokoni/internal/storage"
)

// listPageSize is the page size used when walking paginated listings to
// completion.
const listPageSize = 50

type requestRow struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Buyer       string     `json:"buyer"`
	Status      string     `json:"status"`
	BudgetCents int64      `json:"budget_cents"`
	BidCount    int        `json:"bid_count"`
	Deadline    *time.Time `json:"deadline,omitempty"`
	CreatedAt   time.Time  `json:"created_at"`
}

func newRequestsCmd(opts *options) *cobra.Command {
	requests := &cobra.Command{
		Use:   "requests",
		Short: "Inspect buyer requests",
	}
	requests.AddCommand(newRequestsListCmd(opts))
	return requests
}

func newRequestsListCmd(opts *options) *cobra.Command {
	var status string

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List requests, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			var filter storage.RequestFilter
			if status != "" {
				parsed, err := market.ParseRequestStatus(status)
				if err != nil {
					return err
				}
				filter.Status = parsed
			}

			store, err := opts.openStore()
			if err != nil {
				return err
			}
			defer store.Close()

			records, err := collectRequests(cmd.Context(), store, filter)
			if err != nil {
				return err
			}

			rows := make([]requestRow, len(records))
			for i, record := range records {
				rows[i] = requestRow{
					ID:          record.ID,
					Title:       record.Title,
					Buyer:       record.BuyerUsername,
					Status:      string(record.Status),
					BudgetCents: record.BudgetCents,
					BidCount:    record.BidCount,
					Deadline:    record.Deadline,
					CreatedAt:   record.CreatedAt,
				}
			}

			out := cmd.OutOrStdout()
			if opts.jsonOut {
				return printJSON(out, rows)
			}

			if len(rows) == 0 {
				fmt.Fprintln(out, "No requests found.")
				return nil
			}
			w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
			fmt.Fprintln(w, "ID\tTITLE\tBUYER\tSTATUS\tBUDGET\tBIDS\tCREATED")
			for _, row := range rows {
				fmt.Fprintf(w, "%s\t%s\t%s\t%s\t%s\t%d\t%s\n",
					row.ID,
					truncate(row.Title, 40),
					row.Buyer,
					row.Status,
					formatCents(row.BudgetCents),
					row.BidCount,
					row.CreatedAt.Format("2006-01-02"),
				)
			}
			if err := w.Flush(); err != nil {
				return err
			}
			fmt.Fprintf(out, "Total: %d request(s)\n", len(rows))
			return nil
		},
	}

	cmd.Flags().StringVar(&status, "status", "", "filter by status (open, accepted, delivered, completed, disputed, cancelled)")
	return cmd
}

type requestLister interface {
	ListRequests(ctx context.Context, filter storage.RequestFilter, order storage.RequestOrder, pageSize int, pageToken string) (storage.RequestPage, error)
}

// collectRequests walks every page of the newest-first listing.
func collectRequests(ctx context.Context, store requestLister, filter storage.RequestFilter) ([]storage.RequestRecord, error) {
	var records []storage.RequestRecord
	token := ""
	for {
		page, err := store.ListRequests(ctx, filter, storage.RequestOrderNewest, listPageSize, token)
		if err != nil {
			return nil, err
		}
		records = append(records, page.Requests...)
		if page.NextPageToken == "" {
			return records, nil
		}
		token = page.NextPageToken
	}
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max-3] + "..."
}
