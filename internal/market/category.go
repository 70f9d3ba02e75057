package market

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/id"
)

// MaxCategoryNameLength bounds category names.
const MaxCategoryNameLength = 100

var (
	// ErrInvalidCategoryName indicates an empty or oversized name.
	ErrInvalidCategoryName = apperrors.New(apperrors.CodeCategoryNameEmpty, "category name must be between 1 and 100 characters")
	// ErrCategoryInactive indicates a request referencing a disabled category.
	ErrCategoryInactive = apperrors.New(apperrors.CodeCategoryInactive, "category is not active")
)

// Category groups requests by the kind of service wanted.
type Category struct {
	ID          string
	Name        string
	Description string
	Active      bool
	CreatedAt   time.Time
}

// CreateCategoryInput describes the data needed to add a category.
type CreateCategoryInput struct {
	Name        string
	Description string
}

// CreateCategory builds an active category from operator input.
func CreateCategory(input CreateCategoryInput, now func() time.Time, idGenerator func() (string, error)) (Category, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateCategoryInput(input)
	if err != nil {
		return Category{}, err
	}

	categoryID, err := idGenerator()
	if err != nil {
		return Category{}, fmt.Errorf("generate category id: %w", err)
	}

	return Category{
		ID:          categoryID,
		Name:        normalized.Name,
		Description: normalized.Description,
		Active:      true,
		CreatedAt:   now().UTC(),
	}, nil
}

// NormalizeCreateCategoryInput trims and validates input before use.
func NormalizeCreateCategoryInput(input CreateCategoryInput) (CreateCategoryInput, error) {
	input.Name = strings.TrimSpace(input.Name)
	input.Description = strings.TrimSpace(input.Description)

	if input.Name == "" || len(input.Name) > MaxCategoryNameLength {
		return CreateCategoryInput{}, ErrInvalidCategoryName
	}
	return input, nil
}
