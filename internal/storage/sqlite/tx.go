package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/sokonihq/sokoni/internal/escrow"
	"github.com/sokonihq/sokoni/internal/market"
	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/storage"
)

// AcceptBid persists a bid acceptance atomically: the request moves to
// accepted, the winning bid is flagged, and the escrow opens. Any failure
// rolls the whole acceptance back.
func (s *Store) AcceptBid(ctx context.Context, req market.Request, bid market.Bid, esc escrow.Escrow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("request id is required")
	}
	if strings.TrimSpace(bid.ID) == "" {
		return fmt.Errorf("bid id is required")
	}
	if err := validateEscrowIdentity(esc); err != nil {
		return err
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin accept bid: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	if err := txUpdateRequestStatus(ctx, tx, req); err != nil {
		return err
	}

	result, err := tx.ExecContext(
		ctx,
		`UPDATE bids SET accepted = 1, updated_at = ? WHERE id = ? AND deleted = 0`,
		toMillis(bid.UpdatedAt.UTC()),
		bid.ID,
	)
	if err != nil {
		return fmt.Errorf("accept bid: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("accept bid: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	_, err = tx.ExecContext(
		ctx,
		`INSERT INTO escrows (
		   id, request_id, bid_id, buyer_id, seller_id, amount_cents,
		   fee_cents, total_cents, payment_method, status, payment_reference,
		   payment_token, notes, expires_at, locked_at, released_at,
		   created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		esc.ID,
		esc.RequestID,
		esc.BidID,
		esc.BuyerID,
		esc.SellerID,
		esc.AmountCents,
		esc.FeeCents,
		esc.TotalCents,
		string(esc.PaymentMethod),
		string(esc.Status),
		esc.PaymentReference,
		esc.PaymentToken,
		esc.Notes,
		toMillis(esc.ExpiresAt),
		toNullMillis(esc.LockedAt),
		toNullMillis(esc.ReleasedAt),
		toMillis(esc.CreatedAt.UTC()),
		toMillis(esc.UpdatedAt.UTC()),
	)
	if err != nil {
		if violatesColumn(err, "escrows.request_id") {
			return apperrors.New(apperrors.CodeEscrowAlreadyExists, "request already has an escrow")
		}
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("open escrow: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit accept bid: %w", err)
	}
	return nil
}

// SettleEscrow persists an escrow state change and its paired request
// transition atomically.
func (s *Store) SettleEscrow(ctx context.Context, esc escrow.Escrow, req market.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if strings.TrimSpace(esc.ID) == "" {
		return fmt.Errorf("escrow id is required")
	}
	if strings.TrimSpace(req.ID) == "" {
		return fmt.Errorf("request id is required")
	}

	tx, err := s.sqlDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin settle escrow: %w", err)
	}
	defer func() {
		_ = tx.Rollback()
	}()

	result, err := tx.ExecContext(
		ctx,
		`UPDATE escrows
		    SET payment_method = ?, status = ?, notes = ?, locked_at = ?,
		        released_at = ?, updated_at = ?
		  WHERE id = ?`,
		string(esc.PaymentMethod),
		string(esc.Status),
		esc.Notes,
		toNullMillis(esc.LockedAt),
		toNullMillis(esc.ReleasedAt),
		toMillis(esc.UpdatedAt.UTC()),
		esc.ID,
	)
	if err != nil {
		return fmt.Errorf("settle escrow: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("settle escrow: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}

	if err := txUpdateRequestStatus(ctx, tx, req); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit settle escrow: %w", err)
	}
	return nil
}

func txUpdateRequestStatus(ctx context.Context, tx *sql.Tx, req market.Request) error {
	result, err := tx.ExecContext(
		ctx,
		`UPDATE requests SET status = ?, updated_at = ? WHERE id = ? AND deleted = 0`,
		string(req.Status),
		toMillis(req.UpdatedAt.UTC()),
		req.ID,
	)
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request status: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}
