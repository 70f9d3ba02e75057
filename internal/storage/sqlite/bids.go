package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/sokonihq/sokoni/internal/market"
	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/pagination"
	"github.com/sokonihq/sokoni/internal/storage"
)

// CreateBid inserts one bid record. Each seller gets one live bid per
// request; the unique constraint enforces it.
func (s *Store) CreateBid(ctx context.Context, bid market.Bid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id := strings.TrimSpace(bid.ID)
	requestID := strings.TrimSpace(bid.RequestID)
	sellerID := strings.TrimSpace(bid.SellerID)
	if id == "" {
		return fmt.Errorf("bid id is required")
	}
	if requestID == "" {
		return fmt.Errorf("request id is required")
	}
	if sellerID == "" {
		return fmt.Errorf("seller id is required")
	}
	if bid.AmountCents <= 0 {
		return fmt.Errorf("amount must be greater than zero")
	}
	createdAt := bid.CreatedAt.UTC()
	updatedAt := bid.UpdatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO bids (
		   id, request_id, seller_id, amount_cents, message, delivery_days,
		   expires_at, accepted, deleted, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		requestID,
		sellerID,
		bid.AmountCents,
		bid.Message,
		toNullInt(bid.DeliveryDays),
		toNullMillis(bid.ExpiresAt),
		boolToInt(bid.Accepted),
		boolToInt(bid.Deleted),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if violatesColumn(err, "bids.request_id") {
			return apperrors.New(apperrors.CodeBidDuplicate, "seller already has a bid on this request")
		}
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create bid: %w", err)
	}
	return nil
}

// GetBid returns one bid by ID. Withdrawn bids are not visible.
func (s *Store) GetBid(ctx context.Context, id string) (market.Bid, error) {
	if err := ctx.Err(); err != nil {
		return market.Bid{}, err
	}
	if err := s.ready(); err != nil {
		return market.Bid{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return market.Bid{}, fmt.Errorf("bid id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, request_id, seller_id, amount_cents, message, delivery_days,
		        expires_at, accepted, deleted, created_at, updated_at
		   FROM bids
		  WHERE id = ? AND deleted = 0`,
		id,
	)

	var bid market.Bid
	var deliveryDays sql.NullInt64
	var expiresAt sql.NullInt64
	var accepted int
	var deleted int
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&bid.ID,
		&bid.RequestID,
		&bid.SellerID,
		&bid.AmountCents,
		&bid.Message,
		&deliveryDays,
		&expiresAt,
		&accepted,
		&deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Bid{}, storage.ErrNotFound
		}
		return market.Bid{}, fmt.Errorf("get bid: %w", err)
	}
	bid.DeliveryDays = fromNullInt(deliveryDays)
	bid.ExpiresAt = fromNullMillis(expiresAt)
	bid.Accepted = accepted != 0
	bid.Deleted = deleted != 0
	bid.CreatedAt = fromMillis(createdAt)
	bid.UpdatedAt = fromMillis(updatedAt)
	return bid, nil
}

// UpdateBid persists changes to one bid.
func (s *Store) UpdateBid(ctx context.Context, bid market.Bid) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id := strings.TrimSpace(bid.ID)
	if id == "" {
		return fmt.Errorf("bid id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE bids
		    SET amount_cents = ?, message = ?, delivery_days = ?, expires_at = ?,
		        accepted = ?, updated_at = ?
		  WHERE id = ? AND deleted = 0`,
		bid.AmountCents,
		bid.Message,
		toNullInt(bid.DeliveryDays),
		toNullMillis(bid.ExpiresAt),
		boolToInt(bid.Accepted),
		toMillis(bid.UpdatedAt.UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update bid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update bid: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SoftDeleteBid hides one bid from reads.
func (s *Store) SoftDeleteBid(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("bid id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE bids SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0`,
		toMillis(at.UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete bid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete bid: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const bidRecordColumns = `b.id, b.request_id, b.seller_id, b.amount_cents, b.message,
       b.delivery_days, b.expires_at, b.accepted, b.deleted, b.created_at, b.updated_at,
       u.username, r.title, r.budget_cents`

const bidRecordJoins = `
   FROM bids b
   JOIN users u ON u.id = b.seller_id
   JOIN requests r ON r.id = b.request_id`

// ListBidsForRequest returns one page of bids on a request, cheapest
// first. A non-empty sellerID restricts to that seller's bids.
func (s *Store) ListBidsForRequest(ctx context.Context, requestID, sellerID string, pageSize int, pageToken string) (storage.BidPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.BidPage{}, err
	}
	if err := s.ready(); err != nil {
		return storage.BidPage{}, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return storage.BidPage{}, fmt.Errorf("request id is required")
	}
	if pageSize <= 0 {
		return storage.BidPage{}, fmt.Errorf("page size must be greater than zero")
	}

	conditions := []string{"b.deleted = 0", "b.request_id = ?"}
	args := []any{requestID}
	if sellerID = strings.TrimSpace(sellerID); sellerID != "" {
		conditions = append(conditions, "b.seller_id = ?")
		args = append(args, sellerID)
	}

	const orderBy = "amount_asc"
	filterKey := "request=" + requestID + ";seller=" + sellerID
	pageToken = strings.TrimSpace(pageToken)
	if pageToken != "" {
		cursor, err := pagination.Decode(pageToken, filterKey, orderBy)
		if err != nil {
			return storage.BidPage{}, err
		}
		conditions = append(conditions, "(b.amount_cents > ? OR (b.amount_cents = ? AND b.id > ?))")
		args = append(args, cursor.Key, cursor.Key, cursor.ID)
	}

	query := `SELECT ` + bidRecordColumns + bidRecordJoins + `
	  WHERE ` + strings.Join(conditions, "\n    AND ") + `
	  ORDER BY b.amount_cents ASC, b.id ASC
	  LIMIT ?`
	args = append(args, pageSize+1)

	page, err := s.queryBidPage(ctx, query, args, pageSize, func(record storage.BidRecord) pagination.Cursor {
		return pagination.NewCursor(record.AmountCents, record.ID, filterKey, orderBy)
	})
	if err != nil {
		return storage.BidPage{}, fmt.Errorf("list bids for request: %w", err)
	}
	return page, nil
}

// ListBidsForSeller returns one page of a seller's bids, newest first.
func (s *Store) ListBidsForSeller(ctx context.Context, sellerID string, pageSize int, pageToken string) (storage.BidPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.BidPage{}, err
	}
	if err := s.ready(); err != nil {
		return storage.BidPage{}, err
	}
	sellerID = strings.TrimSpace(sellerID)
	if sellerID == "" {
		return storage.BidPage{}, fmt.Errorf("seller id is required")
	}
	if pageSize <= 0 {
		return storage.BidPage{}, fmt.Errorf("page size must be greater than zero")
	}

	conditions := []string{"b.deleted = 0", "b.seller_id = ?"}
	args := []any{sellerID}

	const orderBy = "created_desc"
	filterKey := "seller=" + sellerID
	pageToken = strings.TrimSpace(pageToken)
	if pageToken != "" {
		cursor, err := pagination.Decode(pageToken, filterKey, orderBy)
		if err != nil {
			return storage.BidPage{}, err
		}
		conditions = append(conditions, "(b.created_at < ? OR (b.created_at = ? AND b.id < ?))")
		args = append(args, cursor.Key, cursor.Key, cursor.ID)
	}

	query := `SELECT ` + bidRecordColumns + bidRecordJoins + `
	  WHERE ` + strings.Join(conditions, "\n    AND ") + `
	  ORDER BY b.created_at DESC, b.id DESC
	  LIMIT ?`
	args = append(args, pageSize+1)

	page, err := s.queryBidPage(ctx, query, args, pageSize, func(record storage.BidRecord) pagination.Cursor {
		return pagination.NewCursor(toMillis(record.CreatedAt), record.ID, filterKey, orderBy)
	})
	if err != nil {
		return storage.BidPage{}, fmt.Errorf("list bids for seller: %w", err)
	}
	return page, nil
}

// CountLiveBids counts undeleted bids on a request.
func (s *Store) CountLiveBids(ctx context.Context, requestID string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, err
	}
	if err := s.ready(); err != nil {
		return 0, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return 0, fmt.Errorf("request id is required")
	}

	var count int
	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT COUNT(*) FROM bids WHERE request_id = ? AND deleted = 0`,
		requestID,
	)
	if err := row.Scan(&count); err != nil {
		return 0, fmt.Errorf("count live bids: %w", err)
	}
	return count, nil
}

func (s *Store) queryBidPage(ctx context.Context, query string, args []any, pageSize int, nextCursor func(storage.BidRecord) pagination.Cursor) (storage.BidPage, error) {
	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.BidPage{}, err
	}
	defer rows.Close()

	page := storage.BidPage{
		Bids: make([]storage.BidRecord, 0, pageSize),
	}
	for rows.Next() {
		record, err := scanBidRecord(rows)
		if err != nil {
			return storage.BidPage{}, err
		}
		page.Bids = append(page.Bids, record)
	}
	if err := rows.Err(); err != nil {
		return storage.BidPage{}, err
	}

	if len(page.Bids) > pageSize {
		page.Bids = page.Bids[:pageSize]
		token, err := pagination.Encode(nextCursor(page.Bids[pageSize-1]))
		if err != nil {
			return storage.BidPage{}, err
		}
		page.NextPageToken = token
	}
	return page, nil
}

func scanBidRecord(rows *sql.Rows) (storage.BidRecord, error) {
	var record storage.BidRecord
	var deliveryDays sql.NullInt64
	var expiresAt sql.NullInt64
	var accepted int
	var deleted int
	var createdAt int64
	var updatedAt int64
	err := rows.Scan(
		&record.ID,
		&record.RequestID,
		&record.SellerID,
		&record.AmountCents,
		&record.Message,
		&deliveryDays,
		&expiresAt,
		&accepted,
		&deleted,
		&createdAt,
		&updatedAt,
		&record.SellerUsername,
		&record.RequestTitle,
		&record.RequestBudgetCents,
	)
	if err != nil {
		return storage.BidRecord{}, err
	}
	record.DeliveryDays = fromNullInt(deliveryDays)
	record.ExpiresAt = fromNullMillis(expiresAt)
	record.Accepted = accepted != 0
	record.Deleted = deleted != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
