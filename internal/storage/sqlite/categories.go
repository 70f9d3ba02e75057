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
	"github.com/sokonihq/sokoni/internal/storage"
)

// CreateCategory inserts one category record.
func (s *Store) CreateCategory(ctx context.Context, category market.Category) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id := strings.TrimSpace(category.ID)
	name := strings.TrimSpace(category.Name)
	if id == "" {
		return fmt.Errorf("category id is required")
	}
	if name == "" {
		return fmt.Errorf("category name is required")
	}
	createdAt := category.CreatedAt.UTC()
	if createdAt.IsZero() {
		createdAt = time.Now().UTC()
	}

	_, err := s.sqlDB.ExecContext(
		ctx,
		`INSERT INTO categories (id, name, description, active, created_at)
		 VALUES (?, ?, ?, ?, ?)`,
		id,
		name,
		category.Description,
		boolToInt(category.Active),
		toMillis(createdAt),
	)
	if err != nil {
		if violatesColumn(err, "categories.name") {
			return apperrors.New(apperrors.CodeCategoryNameTaken, "category name is already taken")
		}
		if isUniqueViolation(err) {
			return storage.ErrAlreadyExists
		}
		return fmt.Errorf("create category: %w", err)
	}
	return nil
}

// GetCategory returns one category by ID.
func (s *Store) GetCategory(ctx context.Context, id string) (market.Category, error) {
	if err := ctx.Err(); err != nil {
		return market.Category{}, err
	}
	if err := s.ready(); err != nil {
		return market.Category{}, err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return market.Category{}, fmt.Errorf("category id is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, description, active, created_at
		   FROM categories
		  WHERE id = ?`,
		id,
	)
	return scanCategory(row)
}

// GetCategoryByName returns one category by its unique name.
func (s *Store) GetCategoryByName(ctx context.Context, name string) (market.Category, error) {
	if err := ctx.Err(); err != nil {
		return market.Category{}, err
	}
	if err := s.ready(); err != nil {
		return market.Category{}, err
	}
	name = strings.TrimSpace(name)
	if name == "" {
		return market.Category{}, fmt.Errorf("category name is required")
	}

	row := s.sqlDB.QueryRowContext(
		ctx,
		`SELECT id, name, description, active, created_at
		   FROM categories
		  WHERE name = ?`,
		name,
	)
	return scanCategory(row)
}

// ListCategories returns categories ordered by name.
func (s *Store) ListCategories(ctx context.Context, activeOnly bool) ([]market.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if err := s.ready(); err != nil {
		return nil, err
	}

	query := `SELECT id, name, description, active, created_at FROM categories`
	if activeOnly {
		query += ` WHERE active = 1`
	}
	query += ` ORDER BY name ASC`

	rows, err := s.sqlDB.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	defer rows.Close()

	var categories []market.Category
	for rows.Next() {
		var category market.Category
		var active int
		var createdAt int64
		if err := rows.Scan(
			&category.ID,
			&category.Name,
			&category.Description,
			&active,
			&createdAt,
		); err != nil {
			return nil, fmt.Errorf("list categories: %w", err)
		}
		category.Active = active != 0
		category.CreatedAt = fromMillis(createdAt)
		categories = append(categories, category)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("list categories: %w", err)
	}
	return categories, nil
}

// SetCategoryActive flips one category's active flag.
func (s *Store) SetCategoryActive(ctx context.Context, id string, active bool) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := s.ready(); err != nil {
		return err
	}
	id = strings.TrimSpace(id)
	if id == "" {
		return fmt.Errorf("category id is required")
	}

	result, err := s.sqlDB.ExecContext(
		ctx,
		`UPDATE categories SET active = ? WHERE id = ?`,
		boolToInt(active),
		id,
	)
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("set category active: %w", err)
	}
	if affected == 0 {
		return storage.ErrNotFound
	}
	return nil
}

func scanCategory(row *sql.Row) (market.Category, error) {
	var category market.Category
	var active int
	var createdAt int64
	err := row.Scan(
		&category.ID,
		&category.Name,
		&category.Description,
		&active,
		&createdAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return market.Category{}, storage.ErrNotFound
		}
		return market.Category{}, fmt.Errorf("scan category: %w", err)
	}
	category.Active = active != 0
	category.CreatedAt = fromMillis(createdAt)
	return category, nil
}

func boolToInt(value bool) int {
	if value {
		return 1
	}
	return 0
}
