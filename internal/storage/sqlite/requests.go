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

// CreateRequest inserts one request record.
func (s *Store) CreateRequest(ctx context.Context, req market.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id := strings.TrimSpace(req.ID)
	buyerID := strings.TrimSpace(req.BuyerID)
	title := strings.TrimSpace(req.Title)
	if id == "" {
		return fmt.Errorf("request id is required")
	}
	if buyerID == "" {
		return fmt.Errorf("buyer id is required")
	}
	if title == "" {
		return fmt.Errorf("title is required")
	}
	if req.BudgetCents <= 0 {
		return fmt.Errorf("budget must be greater than zero")
	}
	if req.Status == "" {
		return fmt.Errorf("status is required")
	}
	createdAt := req.CreatedAt.UTC()
	updatedAt := req.UpdatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}
	if updatedAt.IsZero() {
		updatedAt = createdAt
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO requests (
		   id, buyer_id, title, description, budget_cents, category_id,
		   deadline, status, deleted, created_at, updated_at
		 ) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id,
		buyerID,
		title,
		req.Description,
		req.BudgetCents,
		toNullString(strings.TrimSpace(req.CategoryID)),
		toNullMillis(req.Deadline),
		string(req.Status),
		boolToInt(req.Deleted),
		toMillis(createdAt),
		toMillis(updatedAt),
	)
	if err != nil {
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create request: %w", err)
	}
	return nil
}

// GetRequest returns one request by ID. Soft-deleted requests are not
// visible.
func (s *Store) GetRequest(ctx context.Context, id string) (market.Request, error) {
	if err := ctx.Err(); err != nil {
		return market.Request{}, err
	}
	if err := s.ready(); err != nil {
		return market.Request{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return market.Request{}, fmt.Errorf("request id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, buyer_id, title, description, budget_cents, category_id,
		        deadline, status, deleted, created_at, updated_at
		   FROM requests
		  WHERE id = ? AND deleted = 0`,
		id,
	)

	var req market.Request
	var categoryID sql.NullString
	var deadline sql.NullInt64
	var status string
	var deleted int
	var createdAt int64
	var updatedAt int64
	err := row.Scan(
		&req.ID,
		&req.BuyerID,
		&req.Title,
		&req.Description,
		&req.BudgetCents,
		&categoryID,
		&deadline,
		&status,
		&deleted,
		&createdAt,
		&updatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Request{}, storage.ErrNotFound
		}
		return market.Request{}, fmt.Errorf("get request: %w", err)
	}
	req.CategoryID = categoryID.String
	req.Deadline = fromNullMillis(deadline)
	req.Status = market.RequestStatus(status)
	req.Deleted = deleted != 0
	req.CreatedAt = fromMillis(createdAt)
	req.UpdatedAt = fromMillis(updatedAt)
	return req, nil
}

// UpdateRequest persists changes to one request.
func (s *Store) UpdateRequest(ctx context.Context, req market.Request) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id := strings.TrimSpace(req.ID)
	if id == "" {
		return fmt.Errorf("request id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE requests
		    SET title = ?, description = ?, budget_cents = ?, category_id = ?,
		        deadline = ?, status = ?, updated_at = ?
		  WHERE id = ? AND deleted = 0`,
		req.Title,
		req.Description,
		req.BudgetCents,
		toNullString(strings.TrimSpace(req.CategoryID)),
		toNullMillis(req.Deadline),
		string(req.Status),
		toMillis(req.UpdatedAt.UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("update request: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

// SoftDeleteRequest hides one request from reads.
func (s *Store) SoftDeleteRequest(ctx context.Context, id string, at time.Time) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("request id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE requests SET deleted = 1, updated_at = ? WHERE id = ? AND deleted = 0`,
		toMillis(at.UTC()),
		id,
	)
	if err != nil {
		return fmt.Errorf("soft delete request: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("soft delete request: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

const requestRecordColumns = `r.id, r.buyer_id, r.title, r.description, r.budget_cents,
       r.category_id, r.deadline, r.status, r.deleted, r.created_at, r.updated_at,
       u.username,
       (SELECT COUNT(*) FROM bids b WHERE b.request_id = r.id AND b.deleted = 0) AS bid_count`

// ListRequests returns one page of request records matching the filter.
func (s *Store) ListRequests(ctx context.Context, filter storage.RequestFilter, order storage.RequestOrder, pageSize int, pageToken string) (storage.RequestPage, error) {
	if err := ctx.Err(); err != nil {
		return storage.RequestPage{}, err
	}
	if err := s.ready(); err != nil {
		return storage.RequestPage{}, err
	}
	if pageSize <= 0 {
		return storage.RequestPage{}, fmt.Errorf("page size must be greater than zero")
	}
	if order == "" {
		order = storage.RequestOrderNewest
	}

	conditions, args := requestFilterConditions(filter)

	pageToken = strings.TrimSpace(pageToken)
	filterKey := requestFilterKey(filter)
	if pageToken != "" {
		cursor, err := pagination.Decode(pageToken, filterKey, string(order))
		if err != nil {
			return storage.RequestPage{}, err
		}
		predicate, predicateArgs, err := requestKeysetPredicate(order, cursor)
		if err != nil {
			return storage.RequestPage{}, err
		}
		conditions = append(conditions, predicate)
		args = append(args, predicateArgs...)
	}

	orderClause, err := requestOrderClause(order)
	if err != nil {
		return storage.RequestPage{}, err
	}

	query := `SELECT ` + requestRecordColumns + `
	   FROM requests r
	   JOIN users u ON u.id = r.buyer_id
	  WHERE ` + strings.Join(conditions, "\n    AND ") + `
	  ORDER BY ` + orderClause + `
	  LIMIT ?`
	args = append(args, pageSize+1)

	rows, err := s.sqlDB.QueryContext(ctx, query, args...)
	if err != nil {
		return storage.RequestPage{}, fmt.Errorf("list requests: %w", err)
	}
	defer rows.Close()

	page := storage.RequestPage{
		Requests: make([]storage.RequestRecord, 0, pageSize),
	}
	for rows.Next() {
		record, err := scanRequestRecord(rows)
		if err != nil {
			return storage.RequestPage{}, fmt.Errorf("list requests: %w", err)
		}
		page.Requests = append(page.Requests, record)
	}
	if err := rows.Err(); err != nil {
		return storage.RequestPage{}, fmt.Errorf("list requests: %w", err)
	}

	if len(page.Requests) > pageSize {
		page.Requests = page.Requests[:pageSize]
		last := page.Requests[pageSize-1]
		token, err := pagination.Encode(pagination.NewCursor(
			requestOrderKey(order, last),
			last.ID,
			filterKey,
			string(order),
		))
		if err != nil {
			return storage.RequestPage{}, fmt.Errorf("list requests: %w", err)
		}
		page.NextPageToken = token
	}
	return page, nil
}

func requestFilterConditions(filter storage.RequestFilter) ([]string, []any) {
	conditions := []string{"r.deleted = 0"}
	var args []any
	if filter.Status != "" {
		conditions = append(conditions, "r.status = ?")
		args = append(args, string(filter.Status))
	}
	if buyerID := strings.TrimSpace(filter.BuyerID); buyerID != "" {
		conditions = append(conditions, "r.buyer_id = ?")
		args = append(args, buyerID)
	}
	if excludeID := strings.TrimSpace(filter.ExcludeBuyerID); excludeID != "" {
		conditions = append(conditions, "r.buyer_id != ?")
		args = append(args, excludeID)
	}
	if bidderID := strings.TrimSpace(filter.ExcludeBidderID); bidderID != "" {
		conditions = append(conditions, "NOT EXISTS (SELECT 1 FROM bids xb WHERE xb.request_id = r.id AND xb.seller_id = ? AND xb.deleted = 0)")
		args = append(args, bidderID)
	}
	if categoryID := strings.TrimSpace(filter.CategoryID); categoryID != "" {
		conditions = append(conditions, "r.category_id = ?")
		args = append(args, categoryID)
	}
	if filter.MinBudgetCents > 0 {
		conditions = append(conditions, "r.budget_cents >= ?")
		args = append(args, filter.MinBudgetCents)
	}
	if filter.MaxBudgetCents > 0 {
		conditions = append(conditions, "r.budget_cents <= ?")
		args = append(args, filter.MaxBudgetCents)
	}
	if search := strings.ToLower(strings.TrimSpace(filter.Search)); search != "" {
		conditions = append(conditions, "(LOWER(r.title) LIKE ? OR LOWER(r.description) LIKE ?)")
		pattern := "%" + search + "%"
		args = append(args, pattern, pattern)
	}
	if filter.OnlyBiddable {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		conditions = append(conditions, "r.status = ?", "(r.deadline IS NULL OR r.deadline > ?)")
		args = append(args, string(market.RequestStatusOpen), toMillis(now))
	}
	return conditions, args
}

// requestFilterKey canonicalizes the filter for page-token validation.
// The biddable clock is excluded so tokens survive across requests.
func requestFilterKey(filter storage.RequestFilter) string {
	return fmt.Sprintf(
		"status=%s;buyer=%s;xbuyer=%s;xbidder=%s;category=%s;min=%d;max=%d;q=%s;biddable=%t",
		filter.Status,
		strings.TrimSpace(filter.BuyerID),
		strings.TrimSpace(filter.ExcludeBuyerID),
		strings.TrimSpace(filter.ExcludeBidderID),
		strings.TrimSpace(filter.CategoryID),
		filter.MinBudgetCents,
		filter.MaxBudgetCents,
		strings.ToLower(strings.TrimSpace(filter.Search)),
		filter.OnlyBiddable,
	)
}

func requestKeysetPredicate(order storage.RequestOrder, cursor pagination.Cursor) (string, []any, error) {
	switch order {
	case storage.RequestOrderNewest:
		return "(r.created_at < ? OR (r.created_at = ? AND r.id < ?))",
			[]any{cursor.Key, cursor.Key, cursor.ID}, nil
	case storage.RequestOrderBudgetAsc:
		return "(r.budget_cents > ? OR (r.budget_cents = ? AND r.id > ?))",
			[]any{cursor.Key, cursor.Key, cursor.ID}, nil
	case storage.RequestOrderBudgetDesc:
		return "(r.budget_cents < ? OR (r.budget_cents = ? AND r.id < ?))",
			[]any{cursor.Key, cursor.Key, cursor.ID}, nil
	}
	return "", nil, apperrors.WithMetadata(
		apperrors.CodeOrderByInvalid,
		"invalid request order",
		map[string]string{"OrderBy": string(order)},
	)
}

func requestOrderClause(order storage.RequestOrder) (string, error) {
	switch order {
	case storage.RequestOrderNewest:
		return "r.created_at DESC, r.id DESC", nil
	case storage.RequestOrderBudgetAsc:
		return "r.budget_cents ASC, r.id ASC", nil
	case storage.RequestOrderBudgetDesc:
		return "r.budget_cents DESC, r.id DESC", nil
	}
	return "", apperrors.WithMetadata(
		apperrors.CodeOrderByInvalid,
		"invalid request order",
		map[string]string{"OrderBy": string(order)},
	)
}

func requestOrderKey(order storage.RequestOrder, record storage.RequestRecord) int64 {
	switch order {
	case storage.RequestOrderBudgetAsc, storage.RequestOrderBudgetDesc:
		return record.BudgetCents
	}
	return toMillis(record.CreatedAt)
}

func scanRequestRecord(rows *sql.Rows) (storage.RequestRecord, error) {
	var record storage.RequestRecord
	var categoryID sql.NullString
	var deadline sql.NullInt64
	var status string
	var deleted int
	var createdAt int64
	var updatedAt int64
	err := rows.Scan(
		&record.ID,
		&record.BuyerID,
		&record.Title,
		&record.Description,
		&record.BudgetCents,
		&categoryID,
		&deadline,
		&status,
		&deleted,
		&createdAt,
		&updatedAt,
		&record.BuyerUsername,
		&record.BidCount,
	)
	if err != nil {
		return storage.RequestRecord{}, err
	}
	record.CategoryID = categoryID.String
	record.Deadline = fromNullMillis(deadline)
	record.Status = market.RequestStatus(status)
	record.Deleted = deleted != 0
	record.CreatedAt = fromMillis(createdAt)
	record.UpdatedAt = fromMillis(updatedAt)
	return record, nil
}
