// Package market provides the request, bid, and category domain for the
// reverse marketplace: buyers post requests with budgets, sellers bid
// against them, and requests move through a fixed status lifecycle.
package market

import (
	"fmt"
	"strings"
	"time"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/id"
)

// RequestStatus tracks where a request sits in the marketplace workflow.
type RequestStatus string

const (
	RequestStatusOpen      RequestStatus = "open"
	RequestStatusAccepted  RequestStatus = "accepted"
	RequestStatusDelivered RequestStatus = "delivered"
	RequestStatusCompleted RequestStatus = "completed"
	RequestStatusDisputed  RequestStatus = "disputed"
	RequestStatusCancelled RequestStatus = "cancelled"
)

// requestTransitions is the single source of truth for the request
// lifecycle. Completed and cancelled are terminal.
var requestTransitions = map[RequestStatus][]RequestStatus{
	RequestStatusOpen:      {RequestStatusAccepted, RequestStatusCancelled},
	RequestStatusAccepted:  {RequestStatusDelivered, RequestStatusDisputed, RequestStatusCancelled},
	RequestStatusDelivered: {RequestStatusCompleted, RequestStatusDisputed},
	RequestStatusDisputed:  {RequestStatusCompleted, RequestStatusCancelled},
	RequestStatusCompleted: {},
	RequestStatusCancelled: {},
}

const (
	// MinTitleLength and MaxTitleLength bound request titles.
	MinTitleLength = 5
	MaxTitleLength = 200
	// MinDescriptionLength and MaxDescriptionLength bound request
	// descriptions.
	MinDescriptionLength = 20
	MaxDescriptionLength = 5000
	// MinBudgetCents is five dollars; MaxBudgetCents one million.
	MinBudgetCents int64 = 500
	MaxBudgetCents int64 = 100_000_000
	// MaxDeadlineAhead bounds how far out a deadline may be set.
	MaxDeadlineAhead = 365 * 24 * time.Hour
)

var (
	// ErrInvalidTitle indicates a title outside the accepted length.
	ErrInvalidTitle = apperrors.New(apperrors.CodeRequestTitleInvalid, "title must be between 5 and 200 characters")
	// ErrInvalidDescription indicates a description outside the accepted length.
	ErrInvalidDescription = apperrors.New(apperrors.CodeRequestDescriptionInvalid, "description must be between 20 and 5000 characters")
	// ErrInvalidBudget indicates a budget outside the accepted range.
	ErrInvalidBudget = apperrors.New(apperrors.CodeRequestBudgetInvalid, "budget must be between 500 and 100000000 cents")
	// ErrInvalidDeadline indicates a deadline in the past or too far out.
	ErrInvalidDeadline = apperrors.New(apperrors.CodeRequestDeadlineInvalid, "deadline must be in the future and at most 365 days out")
	// ErrRequestNotEditable indicates the request left the open status.
	ErrRequestNotEditable = apperrors.New(apperrors.CodeRequestStatusDisallowsOp, "request can only be changed while open")
	// ErrBudgetLocked indicates a budget decrease after bids arrived.
	ErrBudgetLocked = apperrors.New(apperrors.CodeRequestBudgetLocked, "budget cannot decrease once bids exist")
	// ErrRequestHasBids indicates a delete attempt on a request with live bids.
	ErrRequestHasBids = apperrors.New(apperrors.CodeRequestHasBids, "request cannot be deleted while bids exist")
	// ErrRequestNotBiddable indicates the request no longer accepts bids.
	ErrRequestNotBiddable = apperrors.New(apperrors.CodeRequestNotBiddable, "request is not open for bidding")
)

// Request represents a buyer's posting in the marketplace.
type Request struct {
	ID          string
	BuyerID     string
	Title       string
	Description string
	BudgetCents int64
	CategoryID  string
	Deadline    *time.Time
	Status      RequestStatus
	Deleted     bool
	CreatedAt   time.Time
	UpdatedAt   time.Time
}

// CreateRequestInput describes the data needed to post a request.
type CreateRequestInput struct {
	BuyerID     string
	Title       string
	Description string
	BudgetCents int64
	CategoryID  string
	Deadline    *time.Time
}

// UpdateRequestInput carries a partial edit. Nil fields are left as is;
// ClearDeadline removes an existing deadline.
type UpdateRequestInput struct {
	Title         *string
	Description   *string
	BudgetCents   *int64
	CategoryID    *string
	Deadline      *time.Time
	ClearDeadline bool
}

// ValidStatus reports whether s names a known request status.
func ValidStatus(s RequestStatus) bool {
	_, ok := requestTransitions[s]
	return ok
}

// ParseRequestStatus converts a raw string into a request status.
func ParseRequestStatus(raw string) (RequestStatus, error) {
	s := RequestStatus(strings.ToLower(strings.TrimSpace(raw)))
	if !ValidStatus(s) {
		return "", apperrors.WithMetadata(
			apperrors.CodeRequestInvalidStatusTransition,
			"unknown request status",
			map[string]string{"Status": raw},
		)
	}
	return s, nil
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s RequestStatus) CanTransitionTo(next RequestStatus) bool {
	for _, allowed := range requestTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s RequestStatus) Terminal() bool {
	return ValidStatus(s) && len(requestTransitions[s]) == 0
}

// TransitionRequest moves a request to the next status, enforcing the
// lifecycle table.
func TransitionRequest(req Request, next RequestStatus, now func() time.Time) (Request, error) {
	if now == nil {
		now = time.Now
	}
	if !req.Status.CanTransitionTo(next) {
		return Request{}, apperrors.WithMetadata(
			apperrors.CodeRequestInvalidStatusTransition,
			fmt.Sprintf("request cannot move from %s to %s", req.Status, next),
			map[string]string{"From": string(req.Status), "To": string(next)},
		)
	}
	req.Status = next
	req.UpdatedAt = now().UTC()
	return req, nil
}

// CreateRequest builds a new open request from untrusted input.
func CreateRequest(input CreateRequestInput, now func() time.Time, idGenerator func() (string, error)) (Request, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	normalized, err := NormalizeCreateRequestInput(input, now)
	if err != nil {
		return Request{}, err
	}

	requestID, err := idGenerator()
	if err != nil {
		return Request{}, fmt.Errorf("generate request id: %w", err)
	}

	createdAt := now().UTC()
	return Request{
		ID:          requestID,
		BuyerID:     normalized.BuyerID,
		Title:       normalized.Title,
		Description: normalized.Description,
		BudgetCents: normalized.BudgetCents,
		CategoryID:  normalized.CategoryID,
		Deadline:    normalized.Deadline,
		Status:      RequestStatusOpen,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}, nil
}

// NormalizeCreateRequestInput trims and validates input before use.
func NormalizeCreateRequestInput(input CreateRequestInput, now func() time.Time) (CreateRequestInput, error) {
	if now == nil {
		now = time.Now
	}
	input.BuyerID = strings.TrimSpace(input.BuyerID)
	input.Title = strings.TrimSpace(input.Title)
	input.Description = strings.TrimSpace(input.Description)
	input.CategoryID = strings.TrimSpace(input.CategoryID)

	if input.BuyerID == "" {
		return CreateRequestInput{}, fmt.Errorf("buyer id is required")
	}
	if err := validateTitle(input.Title); err != nil {
		return CreateRequestInput{}, err
	}
	if err := validateDescription(input.Description); err != nil {
		return CreateRequestInput{}, err
	}
	if err := validateBudget(input.BudgetCents); err != nil {
		return CreateRequestInput{}, err
	}
	if input.Deadline != nil {
		deadline := input.Deadline.UTC()
		if err := validateDeadline(deadline, now().UTC()); err != nil {
			return CreateRequestInput{}, err
		}
		input.Deadline = &deadline
	}
	return input, nil
}

// ApplyRequestUpdate validates a partial edit against the current record
// and returns the modified request. liveBids is the number of
// non-deleted bids already placed.
func ApplyRequestUpdate(current Request, input UpdateRequestInput, liveBids int, now func() time.Time) (Request, error) {
	if now == nil {
		now = time.Now
	}
	if current.Status != RequestStatusOpen || current.Deleted {
		return Request{}, ErrRequestNotEditable
	}

	if input.Title != nil {
		title := strings.TrimSpace(*input.Title)
		if err := validateTitle(title); err != nil {
			return Request{}, err
		}
		current.Title = title
	}
	if input.Description != nil {
		description := strings.TrimSpace(*input.Description)
		if err := validateDescription(description); err != nil {
			return Request{}, err
		}
		current.Description = description
	}
	if input.BudgetCents != nil {
		budget := *input.BudgetCents
		if err := validateBudget(budget); err != nil {
			return Request{}, err
		}
		if liveBids > 0 && budget < current.BudgetCents {
			return Request{}, ErrBudgetLocked
		}
		current.BudgetCents = budget
	}
	if input.CategoryID != nil {
		current.CategoryID = strings.TrimSpace(*input.CategoryID)
	}
	if input.ClearDeadline {
		current.Deadline = nil
	} else if input.Deadline != nil {
		deadline := input.Deadline.UTC()
		if err := validateDeadline(deadline, now().UTC()); err != nil {
			return Request{}, err
		}
		current.Deadline = &deadline
	}

	current.UpdatedAt = now().UTC()
	return current, nil
}

// CanDeleteRequest reports whether the buyer may soft-delete the request.
func CanDeleteRequest(current Request, liveBids int) error {
	if current.Status != RequestStatusOpen || current.Deleted {
		return ErrRequestNotEditable
	}
	if liveBids > 0 {
		return ErrRequestHasBids
	}
	return nil
}

// Biddable reports whether the request can receive new bids: open, not
// deleted, and not past its deadline.
func Biddable(req Request, now time.Time) bool {
	if req.Status != RequestStatusOpen || req.Deleted {
		return false
	}
	if req.Deadline != nil && !req.Deadline.After(now) {
		return false
	}
	return true
}

func validateTitle(title string) error {
	if len(title) < MinTitleLength || len(title) > MaxTitleLength {
		return ErrInvalidTitle
	}
	return nil
}

func validateDescription(description string) error {
	if len(description) < MinDescriptionLength || len(description) > MaxDescriptionLength {
		return ErrInvalidDescription
	}
	return nil
}

func validateBudget(cents int64) error {
	if cents < MinBudgetCents || cents > MaxBudgetCents {
		return ErrInvalidBudget
	}
	return nil
}

func validateDeadline(deadline, now time.Time) error {
	if !deadline.After(now) {
		return ErrInvalidDeadline
	}
	if deadline.After(now.Add(MaxDeadlineAhead)) {
		return ErrInvalidDeadline
	}
	return nil
}
