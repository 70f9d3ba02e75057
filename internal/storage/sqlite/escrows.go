package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/sokonihq/sokoni/internal/escrow"
	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/pagination"
	"github.com/sokonihq/sokoni/internal/storage"
)

const escrowColumns = `id, request_id, bid_id, buyer_id, seller_id, amount_cents,
       fee_cents, total_cents, payment_method, status, payment_reference,
       payment_token, notes, expires_at, locked_at, released_at, created_at, updated_at`

// CreateEscrow inserts one escrow record. A request carries at most one
// escrow; the unique constraint enforces it.
func (s *Store) CreateEscrow(ctx context.Context, esc escrow.Escrow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	if err := validateEscrowIdentity(esc); err != nil {
		return err
	}

	_, err := s.sqlDB.ExecContext(
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
		return fmt.Errorf("create escrow: %w", err)
	}
	return nil
}

func validateEscrowIdentity(esc escrow.Escrow) error {
	if strings.TrimSpace(esc.ID) == "" {
		return fmt.Errorf("escrow id is required")
	}
	if strings.TrimSpace(esc.RequestID) == "" {
		return fmt.Errorf("request id is required")
	}
	if strings.TrimSpace(esc.BidID) == "" {
		return fmt.Errorf("bid id is required")
	}
	if strings.TrimSpace(esc.BuyerID) == "" {
		return fmt.Errorf("buyer id is required")
	}
	if strings.TrimSpace(esc.SellerID) == "" {
		return fmt.Errorf("seller id is required")
	}
	return nil
}

// GetEscrow returns one escrow by ID.
func (s *Store) GetEscrow(ctx context.Context, id string) (escrow.Escrow, error) {
	if err := ctx.Err(); err != nil {
		return escrow.Escrow{}, err
	}
	if err := s.ready(); err != nil {
		return escrow.Escrow{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return escrow.Escrow{}, fmt.Errorf("escrow id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+escrowColumns+` FROM escrows WHERE id = ?`,
		id,
	)
	return scanEscrowRow(row)
}

// GetEscrowByRequest returns the escrow attached to a request.
func (s *Store) GetEscrowByRequest(ctx context.Context, requestID string) (escrow.Escrow, error) {
	if err := ctx.Err(); err != nil {
		return escrow.Escrow{}, err
	}
	if err := s.ready(); err != nil {
		return escrow.Escrow{}, err
	}
	requestID = strings.TrimSpace(requestID)
	if requestID == "" {
		return escrow.Escrow{}, fmt.Errorf("request id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT `+escrowColumns+` FROM escrows WHERE request_id = ?`,
		requestID,
	)
	return scanEscrowRow(row)
}

// UpdateEscrow persists state changes to one escrow.
func (s *Store) UpdateEscrow(ctx context.Context, esc escrow.Escrow) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id := strings.TrimSpace(esc.ID)
	if id == "" {
		return fmt.Errorf("escrow id is required")
	}

	result, err := s.sqlDB.ExecContext(
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
		id,
	)
	if err != nil {
		return fmt.Errorf("update escrow: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update escrow: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// ListEscrowsForUser returns one page of escrows where the user is buyer
// or seller, newest first.
func (s *Store) ListEscrowsForUser(ctx context.Context, userID string, pageSize int, pageToken string) (storage.EscrowPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.EscrowPage{}, err
	}
	if err := s.ready(); err != nil {
		return storage.EscrowPage{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.EscrowPage{}, fmt.Errorf("user id is required")
	}
	if pageSize <= 0 {
		return storage.EscrowPage{}, fmt.Errorf("page size must be greater than zero")
	}

	conditions := []string{"(buyer_id = ? OR seller_id = ?)"}
	args := []any{userID, userID}

	const orderBy = "created_desc"
	filterKey := "user=" + userID
	pageToken = strings.TrimSpace(pageToken)
	if pageToken != "" {
		cursor, err := pagination.Decode(pageToken, filterKey, orderBy)
		if err != nil {
			return storage.EscrowPage{}, err
		}
		conditions = append(conditions, "(created_at < ? OR (created_at = ? AND id < ?))")
		args = append(args, cursor.Key, cursor.Key, cursor.ID)
	}

	query := `SELECT ` + escrowColumns + `
	   FROM escrows
	  WHERE ` + strings.Join(conditions, "\n    AND ") + `
	  ORDER BY created_at DESC, id DESC
	  LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.EscrowPage{}, fmt.Errorf("list escrows: %w", err)
	}
	defer rows.Close()

	page := storage.EscrowPage{
		Escrows: make([]escrow.Escrow, 0, pageSize),
	}
	for rows.Next() {
		esc, err := scanEscrowRows(rows)
		if err != nil {
			return storage.EscrowPage{}, fmt.Errorf("list escrows: %w", err)
		}
		page.Escrows = append(page.Escrows, esc)
	}
	if err := rows.Err(); err != nil {
		return storage.EscrowPage{}, fmt.Errorf("list escrows: %w", err)
	}

	if len(page.Escrows) > pageSize {
		page.Escrows = page.Escrows[:pageSize]
		last := page.Escrows[pageSize-1]
		token, err := pagination.Encode(pagination.NewCursor(
			toMillis(last.CreatedAt),
			last.ID,
			filterKey,
			orderBy,
		))
		if err != nil {
			return storage.EscrowPage{}, fmt.Errorf("list escrows: %w", err)
		}
		page.NextPageToken = token
	}
	return page, nil
}

// ListEscrows returns every escrow, newest first, optionally filtered
// by status. This backs the operator CLI, so it is not paginated.
func (s *Store) ListEscrows(ctx context.Context, status escrow.Status) ([]escrow.Escrow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `SELECT ` + escrowColumns + ` FROM escrows`
	var args []any
	if status != "" {
		query += ` WHERE status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, id DESC`

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}
	defer rows.Close()

	var escrows []escrow.Escrow
	for rows.Next() {
		esc, err := scanEscrowRows(rows)
		if err != nil {
			return nil, fmt.Errorf("list escrows: %w", err)
		}
		escrows = append(escrows, esc)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list escrows: %w", err)
	}
	return escrows, nil
}

// EscrowStatistics aggregates one user's escrows across both roles.
func (s *Store) EscrowStatistics(ctx context.Context, userID string) (storage.EscrowStatistics, error) {
	if err := ctx.Err(); err != nil {
		return storage.EscrowStatistics{}, err
	}
	if err := s.ready(); err != nil {
		return storage.EscrowStatistics{}, err
	}
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return storage.EscrowStatistics{}, fmt.Errorf("user id is required")
	}

	rows, err := s.sqlDB.QueryContext(
		ctx,
		`SELECT status,
		        COUNT(*),
		        SUM(total_cents),
		        SUM(amount_cents),
		        SUM(CASE WHEN buyer_id = ? THEN 1 ELSE 0 END),
		        SUM(CASE WHEN seller_id = ? THEN 1 ELSE 0 END)
		   FROM escrows
		  WHERE buyer_id = ? OR seller_id = ?
		  GROUP BY status`,
		userID,
		userID,
		userID,
		userID,
	)
	if err != nil {
		return storage.EscrowStatistics{}, fmt.Errorf("escrow statistics: %w", err)
	}
	defer rows.Close()

	stats := storage.EscrowStatistics{
		ByStatus: make(map[escrow.Status]int),
	}
	for rows.Next() {
		var status string
		var count int
		var totalCents int64
		var amountCents int64
		var asBuyer int
		var asSeller int
		if err := rows.Scan(&status, &count, &totalCents, &amountCents, &asBuyer, &asSeller); err != nil {
			return storage.EscrowStatistics{}, fmt.Errorf("escrow statistics: %w", err)
		}
		st := escrow.Status(status)
		stats.ByStatus[st] = count
		stats.TotalEscrows += count
		stats.AsBuyer += asBuyer
		stats.AsSeller += asSeller
		stats.TotalCents += totalCents
		switch st {
		case escrow.StatusReleased:
			stats.ReleasedCents += amountCents
		case escrow.StatusPending, escrow.StatusLocked:
			stats.PendingCents += amountCents
		case escrow.StatusHeld:
			stats.HeldCents += amountCents
		}
	}
	if err := rows.Err(); err != nil {
		return storage.EscrowStatistics{}, fmt.Errorf("escrow statistics: %w", err)
	}
	return stats, nil
}

type escrowScanner interface {
	Scan(dest ...any) error
}

func scanEscrowRow(row *sql.Row) (escrow.Escrow, error) {
	esc, err := scanEscrow(row)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return escrow.Escrow{}, storage.ErrNotFound
		}
		return escrow.Escrow{}, fmt.Errorf("get escrow: %w", err)
	}
	return esc, nil
}

func scanEscrowRows(rows *sql.Rows) (escrow.Escrow, error) {
	return scanEscrow(rows)
}

func scanEscrow(scanner escrowScanner) (escrow.Escrow, error) {
	var esc escrow.Escrow
	var method string
	var status string
	var expiresAt int64
	var lockedAt sql.NullInt64
	var releasedAt sql.NullInt64
	var createdAt int64
	var updatedAt int64
	err := scanner.Scan(
		&esc.ID,
		&esc.RequestID,
		&esc.BidID,
		&esc.BuyerID,
		&esc.SellerID,
		&esc.AmountCents,
		&esc.FeeCents,
		&esc.TotalCents,
		&method,
		&status,
		&esc.PaymentReference,
		&esc.PaymentToken,
		&esc.Notes,
		&expiresAt,
		&lockedAt,
		&releasedAt,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		return escrow.Escrow{}, err
	}
	esc.PaymentMethod = escrow.PaymentMethod(method)
	esc.Status = escrow.Status(status)
	esc.ExpiresAt = fromMillis(expiresAt)
	esc.LockedAt = fromNullMillis(lockedAt)
	esc.ReleasedAt = fromNullMillis(releasedAt)
	esc.CreatedAt = fromMillis(createdAt)
	esc.UpdatedAt = fromMillis(updatedAt)
	return esc, nil
}
