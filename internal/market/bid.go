package market

import (
	"fmt"
	"math"
	"strings"
	"time"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/id"
)

const (
	// MinBidMessageLength and MaxBidMessageLength bound bid proposals.
	MinBidMessageLength = 10
	MaxBidMessageLength = 2000
	// MinDeliveryDays and MaxDeliveryDays bound the estimated delivery.
	MinDeliveryDays = 1
	MaxDeliveryDays = 365
)

var (
	// ErrInvalidBidAmount indicates a non-positive bid amount.
	ErrInvalidBidAmount = apperrors.New(apperrors.CodeBidAmountInvalid, "bid amount must be greater than zero")
	// ErrBidAboveBudget indicates a bid above the request's budget.
	ErrBidAboveBudget = apperrors.New(apperrors.CodeBidAmountAboveBudget, "bid amount cannot exceed the request budget")
	// ErrInvalidBidMessage indicates a message outside the accepted length.
	ErrInvalidBidMessage = apperrors.New(apperrors.CodeBidMessageInvalid, "message must be between 10 and 2000 characters")
	// ErrInvalidDeliveryDays indicates a delivery estimate outside 1..365 days.
	ErrInvalidDeliveryDays = apperrors.New(apperrors.CodeBidDeliveryInvalid, "delivery days must be between 1 and 365")
	// ErrInvalidBidExpiry indicates an expiry in the past.
	ErrInvalidBidExpiry = apperrors.New(apperrors.CodeBidExpiryInvalid, "expiry must be in the future")
	// ErrOwnRequestBid indicates the buyer bidding on their own request.
	ErrOwnRequestBid = apperrors.New(apperrors.CodeBidOwnRequest, "sellers cannot bid on their own requests")
	// ErrBidNotEditable indicates the bid can no longer change.
	ErrBidNotEditable = apperrors.New(apperrors.CodeBidNotEditable, "bid can no longer be changed")
	// ErrBidNotAcceptable indicates the bid cannot be accepted.
	ErrBidNotAcceptable = apperrors.New(apperrors.CodeBidNotAcceptable, "bid cannot be accepted")
	// ErrBidExpired indicates the bid passed its expiry.
	ErrBidExpired = apperrors.New(apperrors.CodeBidExpired, "bid has expired")
)

// Bid represents a seller's offer against a request.
type Bid struct {
	ID           string
	RequestID    string
	SellerID     string
	AmountCents  int64
	Message      string
	DeliveryDays *int
	ExpiresAt    *time.Time
	Accepted     bool
	Deleted      bool
	CreatedAt    time.Time
	UpdatedAt    time.Time
}

// CreateBidInput describes the data needed to place a bid.
type CreateBidInput struct {
	SellerID     string
	AmountCents  int64
	Message      string
	DeliveryDays *int
	ExpiresAt    *time.Time
}

// UpdateBidInput carries a partial edit. Nil fields are left as is;
// ClearExpiry removes an existing expiry.
type UpdateBidInput struct {
	AmountCents  *int64
	Message      *string
	DeliveryDays *int
	ExpiresAt    *time.Time
	ClearExpiry  bool
}

// CreateBid builds a bid against the given request, enforcing the
// cross-record rules: the seller is not the buyer, the request is still
// biddable, and the amount fits the budget. Duplicate detection is the
// store's concern.
func CreateBid(input CreateBidInput, req Request, now func() time.Time, idGenerator func() (string, error)) (Bid, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	nowUTC := now().UTC()
	normalized, err := NormalizeCreateBidInput(input, now)
	if err != nil {
		return Bid{}, err
	}
	if normalized.SellerID == req.BuyerID {
		return Bid{}, ErrOwnRequestBid
	}
	if !Biddable(req, nowUTC) {
		return Bid{}, ErrRequestNotBiddable
	}
	if normalized.AmountCents > req.BudgetCents {
		return Bid{}, ErrBidAboveBudget
	}

	bidID, err := idGenerator()
	if err != nil {
		return Bid{}, fmt.Errorf("generate bid id: %w", err)
	}

	return Bid{
		ID:           bidID,
		RequestID:    req.ID,
		SellerID:     normalized.SellerID,
		AmountCents:  normalized.AmountCents,
		Message:      normalized.Message,
		DeliveryDays: normalized.DeliveryDays,
		ExpiresAt:    normalized.ExpiresAt,
		CreatedAt:    nowUTC,
		UpdatedAt:    nowUTC,
	}, nil
}

// NormalizeCreateBidInput trims and validates the bid's own fields.
func NormalizeCreateBidInput(input CreateBidInput, now func() time.Time) (CreateBidInput, error) {
	if now == nil {
		now = time.Now
	}
	input.SellerID = strings.TrimSpace(input.SellerID)
	input.Message = strings.TrimSpace(input.Message)

	if input.SellerID == "" {
		return CreateBidInput{}, fmt.Errorf("seller id is required")
	}
	if input.AmountCents <= 0 {
		return CreateBidInput{}, ErrInvalidBidAmount
	}
	if err := validateBidMessage(input.Message); err != nil {
		return CreateBidInput{}, err
	}
	if input.DeliveryDays != nil {
		if err := validateDeliveryDays(*input.DeliveryDays); err != nil {
			return CreateBidInput{}, err
		}
	}
	if input.ExpiresAt != nil {
		expiry := input.ExpiresAt.UTC()
		if !expiry.After(now().UTC()) {
			return CreateBidInput{}, ErrInvalidBidExpiry
		}
		input.ExpiresAt = &expiry
	}
	return input, nil
}

// Expired reports whether the bid passed its expiry.
func (b Bid) Expired(now time.Time) bool {
	return b.ExpiresAt != nil && !b.ExpiresAt.After(now)
}

// Editable reports whether the seller may still change the bid: not
// accepted, not withdrawn, not expired, and the request still biddable.
func (b Bid) Editable(req Request, now time.Time) bool {
	return !b.Accepted && !b.Deleted && !b.Expired(now) && Biddable(req, now)
}

// ApplyBidUpdate validates a partial edit against the current bid and
// its request and returns the modified bid.
func ApplyBidUpdate(current Bid, input UpdateBidInput, req Request, now func() time.Time) (Bid, error) {
	if now == nil {
		now = time.Now
	}
	nowUTC := now().UTC()
	if !current.Editable(req, nowUTC) {
		return Bid{}, ErrBidNotEditable
	}

	if input.AmountCents != nil {
		amount := *input.AmountCents
		if amount <= 0 {
			return Bid{}, ErrInvalidBidAmount
		}
		if amount > req.BudgetCents {
			return Bid{}, ErrBidAboveBudget
		}
		current.AmountCents = amount
	}
	if input.Message != nil {
		message := strings.TrimSpace(*input.Message)
		if err := validateBidMessage(message); err != nil {
			return Bid{}, err
		}
		current.Message = message
	}
	if input.DeliveryDays != nil {
		if err := validateDeliveryDays(*input.DeliveryDays); err != nil {
			return Bid{}, err
		}
		current.DeliveryDays = input.DeliveryDays
	}
	if input.ClearExpiry {
		current.ExpiresAt = nil
	} else if input.ExpiresAt != nil {
		expiry := input.ExpiresAt.UTC()
		if !expiry.After(nowUTC) {
			return Bid{}, ErrInvalidBidExpiry
		}
		current.ExpiresAt = &expiry
	}

	current.UpdatedAt = nowUTC
	return current, nil
}

// CanWithdrawBid reports whether the seller may withdraw the bid.
func CanWithdrawBid(current Bid) error {
	if current.Accepted || current.Deleted {
		return ErrBidNotEditable
	}
	return nil
}

// AcceptBid marks the bid accepted once CanAcceptBid passes. The request
// and escrow changes that accompany an acceptance are the caller's
// concern; they commit together in one storage transaction.
func AcceptBid(bid Bid, req Request, now func() time.Time) (Bid, error) {
	if now == nil {
		now = time.Now
	}
	nowUTC := now().UTC()
	if err := CanAcceptBid(bid, req, nowUTC); err != nil {
		return Bid{}, err
	}
	bid.Accepted = true
	bid.UpdatedAt = nowUTC
	return bid, nil
}

// CanAcceptBid reports whether the buyer may accept the bid for the
// given request.
func CanAcceptBid(bid Bid, req Request, now time.Time) error {
	if bid.RequestID != req.ID {
		return ErrBidNotAcceptable
	}
	if bid.Accepted || bid.Deleted {
		return ErrBidNotAcceptable
	}
	if bid.Expired(now) {
		return ErrBidExpired
	}
	if !Biddable(req, now) {
		return ErrRequestNotBiddable
	}
	if bid.AmountCents > req.BudgetCents {
		return ErrBidAboveBudget
	}
	return nil
}

// SavingsCents is how much the bid undercuts the request budget.
func SavingsCents(bid Bid, req Request) int64 {
	return req.BudgetCents - bid.AmountCents
}

// SavingsPercent is the undercut as a percentage of the budget, rounded
// to two decimals.
func SavingsPercent(bid Bid, req Request) float64 {
	if req.BudgetCents <= 0 {
		return 0
	}
	return math.Round(float64(SavingsCents(bid, req))/float64(req.BudgetCents)*10000) / 100
}

func validateBidMessage(message string) error {
	if len(message) < MinBidMessageLength || len(message) > MaxBidMessageLength {
		return ErrInvalidBidMessage
	}
	return nil
}

func validateDeliveryDays(days int) error {
	if days < MinDeliveryDays || days > MaxDeliveryDays {
		return ErrInvalidDeliveryDays
	}
	return nil
}
