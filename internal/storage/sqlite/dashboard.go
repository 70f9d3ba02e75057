package sqlite

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/sokonihq/sokoni/internal/escrow"
	"github.com/sokonihq/sokoni/internal/market"
	"github.com/sokonihq/sokoni/internal/storage"
)

// dashboardRecentLimit caps the preview lists on both dashboards.
const dashboardRecentLimit = 10

// BuyerDashboard aggregates one buyer's requests, spend, and incoming
// bids.
func (s *Store) BuyerDashboard(ctx context.Context, userID string, now time.Time) (storage.BuyerDashboard, error) {
	if err := ctx.Err(); err != nil {
		return storage.BuyerDashboard{}, err
	}
	if err := s.ready(); err != nil {
		return storage.BuyerDashboard{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.BuyerDashboard{}, fmt.Errorf("user id is required")
	}

	var dashboard storage.BuyerDashboard
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status = ? THEN 1 ELSE 0 END), 0)
		   FROM requests
		  WHERE buyer_id = ? AND deleted = 0`,
		string(market.RequestStatusOpen),
		string(market.RequestStatusCompleted),
		userID,
	)
	if err := row.Scan(&dashboard.TotalRequests, &dashboard.OpenRequests, &dashboard.CompletedRequests); err != nil {
		return storage.BuyerDashboard{}, fmt.Errorf("buyer dashboard counts: %w", err)
	}

	row = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(total_cents), 0)
		   FROM escrows
		  WHERE buyer_id = ? AND status = ?`,
		userID,
		string(escrow.StatusReleased),
	)
	if err := row.Scan(&dashboard.TotalSpentCents); err != nil {
		return storage.BuyerDashboard{}, fmt.Errorf("buyer dashboard spend: %w", err)
	}

	recent, err := s.ListRequests(
		ctx,
		storage.RequestFilter{BuyerID: userID},
		storage.RequestOrderNewest,
		dashboardRecentLimit,
		"",
	)
	if err != nil {
		return storage.BuyerDashboard{}, fmt.Errorf("buyer dashboard requests: %w", err)
	}
	dashboard.RecentRequests = recent.Requests

	bids, err := s.listIncomingBids(ctx, userID)
	if err != nil {
		return storage.BuyerDashboard{}, fmt.Errorf("buyer dashboard bids: %w", err)
	}
	dashboard.RecentBids = bids

	return dashboard, nil
}

// SellerDashboard aggregates one seller's bids, earnings, and open
// opportunities.
func (s *Store) SellerDashboard(ctx context.Context, userID string, now time.Time) (storage.SellerDashboard, error) {
	if err := ctx.Err(); err != nil {
		return storage.SellerDashboard{}, err
	}
	if err := s.ready(); err != nil {
		return storage.SellerDashboard{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.SellerDashboard{}, fmt.Errorf("user id is required")
	}

	var dashboard storage.SellerDashboard
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*), COALESCE(SUM(accepted), 0)
		   FROM bids
		  WHERE seller_id = ? AND deleted = 0`,
		userID,
	)
	if err := row.Scan(&dashboard.TotalBids, &dashboard.AcceptedBids); err != nil {
		return storage.SellerDashboard{}, fmt.Errorf("seller dashboard counts: %w", err)
	}

	row = s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COALESCE(SUM(CASE WHEN status = ? THEN amount_cents ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN status IN (?, ?) THEN amount_cents ELSE 0 END), 0)
		   FROM escrows
		  WHERE seller_id = ?`,
		string(escrow.StatusReleased),
		string(escrow.StatusLocked),
		string(escrow.StatusHeld),
		userID,
	)
	if err := row.Scan(&dashboard.TotalEarnedCents, &dashboard.PendingEarningsCents); err != nil {
		return storage.SellerDashboard{}, fmt.Errorf("seller dashboard earnings: %w", err)
	}

	bids, err := s.ListBidsForSeller(ctx, userID, dashboardRecentLimit, "")
	if err != nil {
		return storage.SellerDashboard{}, fmt.Errorf("seller dashboard bids: %w", err)
	}
	dashboard.RecentBids = bids.Bids

	available, err := s.ListRequests(
		ctx,
		storage.RequestFilter{
			ExcludeBuyerID:  userID,
			ExcludeBidderID: userID,
			OnlyBiddable:    true,
			Now:             now,
		},
		storage.RequestOrderNewest,
		dashboardRecentLimit,
		"",
	)
	if err != nil {
		return storage.SellerDashboard{}, fmt.Errorf("seller dashboard requests: %w", err)
	}
	dashboard.AvailableRequests = available.Requests

	return dashboard, nil
}

// listIncomingBids returns the newest live bids across all of a buyer's
// requests.
func (s *Store) listIncomingBids(ctx context.Context, buyerID string) ([]storage.BidRecord, error) {
	query := `SELECT ` + bidRecordColumns + bidRecordJoins + `
	  WHERE b.deleted = 0
	    AND r.deleted = 0
	    AND r.buyer_id = ?
	  ORDER BY b.created_at DESC, b.id DESC
	  LIMIT ?`

	rows, err := s.sqlDB.QueryContext(ctx, query, buyerID, dashboardRecentLimit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var bids []storage.BidRecord
	for rows.Next() {
		record, err := scanBidRecord(rows)
		if err != nil {
			return nil, err
		}
		bids = append(bids, record)
	}
	if err := rows.Err(); err != nil {
		return nil, err
	}
	return bids, nil
}
