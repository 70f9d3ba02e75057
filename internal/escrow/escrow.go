// Package escrow provides the simulated fund custody domain. An escrow
// record is created when a bid is accepted, locks funds through a
// simulated payment processor, and releases, holds, or refunds them as
// the paired request moves through its lifecycle.
package escrow

import (
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
	"github.com/sokonihq/sokoni/internal/platform/id"
)

// Status tracks where an escrow sits in the custody lifecycle.
type Status string

const (
	StatusPending  Status = "pending"
	StatusLocked   Status = "locked"
	StatusReleased Status = "released"
	StatusHeld     Status = "held"
	StatusRefunded Status = "refunded"
	StatusFailed   Status = "failed"
)

// statusTransitions is the single source of truth for the escrow
// lifecycle. Released and refunded are terminal; failed may retry.
var statusTransitions = map[Status][]Status{
	StatusPending:  {StatusLocked, StatusFailed},
	StatusLocked:   {StatusReleased, StatusHeld, StatusRefunded},
	StatusHeld:     {StatusReleased, StatusRefunded},
	StatusReleased: {},
	StatusRefunded: {},
	StatusFailed:   {StatusPending},
}

const (
	// FeeFixedCents is the flat part of the escrow fee.
	FeeFixedCents int64 = 30
	// ExpiryWindow is how long an escrow stays open before expiring.
	ExpiryWindow = 30 * 24 * time.Hour
)

// Escrow represents simulated fund custody for an accepted bid. One
// escrow exists per request.
type Escrow struct {
	ID               string
	RequestID        string
	BidID            string
	BuyerID          string
	SellerID         string
	AmountCents      int64
	FeeCents         int64
	TotalCents       int64
	PaymentMethod    PaymentMethod
	Status           Status
	PaymentReference string
	PaymentToken     string
	Notes            string
	ExpiresAt        time.Time
	LockedAt         *time.Time
	ReleasedAt       *time.Time
	CreatedAt        time.Time
	UpdatedAt        time.Time
}

// CreateEscrowInput describes the data needed to open an escrow.
type CreateEscrowInput struct {
	RequestID     string
	BidID         string
	BuyerID       string
	SellerID      string
	AmountCents   int64
	PaymentMethod PaymentMethod
}

// ValidStatus reports whether s names a known escrow status.
func ValidStatus(s Status) bool {
	_, ok := statusTransitions[s]
	return ok
}

// ParseStatus converts a raw string into an escrow status.
func ParseStatus(raw string) (Status, error) {
	s := Status(strings.ToLower(strings.TrimSpace(raw)))
	if !ValidStatus(s) {
		return "", apperrors.WithMetadata(
			apperrors.CodeEscrowInvalidStatusTransition,
			"unknown escrow status",
			map[string]string{"Status": raw},
		)
	}
	return s, nil
}

// CanTransitionTo reports whether the lifecycle allows moving to next.
func (s Status) CanTransitionTo(next Status) bool {
	for _, allowed := range statusTransitions[s] {
		if allowed == next {
			return true
		}
	}
	return false
}

// Terminal reports whether the status has no outgoing transitions.
func (s Status) Terminal() bool {
	return ValidStatus(s) && len(statusTransitions[s]) == 0
}

// Statuses lists every escrow status in lifecycle order.
func Statuses() []Status {
	return []Status{StatusPending, StatusLocked, StatusReleased, StatusHeld, StatusRefunded, StatusFailed}
}

// Fee is the escrow service fee for the given amount: 2.9% rounded half
// up, plus a flat 30 cents.
func Fee(amountCents int64) int64 {
	return (amountCents*29+500)/1000 + FeeFixedCents
}

// CreateEscrow opens a pending escrow for an accepted bid. The amount is
// the bid amount; the fee and total are derived here.
func CreateEscrow(input CreateEscrowInput, now func() time.Time, idGenerator func() (string, error)) (Escrow, error) {
	if now == nil {
		now = time.Now
	}
	if idGenerator == nil {
		idGenerator = id.NewID
	}

	input.RequestID = strings.TrimSpace(input.RequestID)
	input.BidID = strings.TrimSpace(input.BidID)
	input.BuyerID = strings.TrimSpace(input.BuyerID)
	input.SellerID = strings.TrimSpace(input.SellerID)
	if input.RequestID == "" || input.BidID == "" {
		return Escrow{}, fmt.Errorf("request id and bid id are required")
	}
	if input.BuyerID == "" || input.SellerID == "" {
		return Escrow{}, fmt.Errorf("buyer id and seller id are required")
	}
	if input.AmountCents <= 0 {
		return Escrow{}, fmt.Errorf("escrow amount must be greater than zero")
	}
	if input.PaymentMethod == "" {
		input.PaymentMethod = DefaultMethod
	}
	if !input.PaymentMethod.Valid() {
		return Escrow{}, apperrors.WithMetadata(
			apperrors.CodeEscrowPaymentMethodInvalid,
			"unknown payment method",
			map[string]string{"PaymentMethod": string(input.PaymentMethod)},
		)
	}

	escrowID, err := idGenerator()
	if err != nil {
		return Escrow{}, fmt.Errorf("generate escrow id: %w", err)
	}

	fee := Fee(input.AmountCents)
	createdAt := now().UTC()
	return Escrow{
		ID:               escrowID,
		RequestID:        input.RequestID,
		BidID:            input.BidID,
		BuyerID:          input.BuyerID,
		SellerID:         input.SellerID,
		AmountCents:      input.AmountCents,
		FeeCents:         fee,
		TotalCents:       input.AmountCents + fee,
		PaymentMethod:    input.PaymentMethod,
		Status:           StatusPending,
		PaymentReference: NewPaymentReference(),
		PaymentToken:     NewPaymentToken(),
		ExpiresAt:        createdAt.Add(ExpiryWindow),
		CreatedAt:        createdAt,
		UpdatedAt:        createdAt,
	}, nil
}

// Transition moves an escrow to the next status, enforcing the
// lifecycle table.
func Transition(esc Escrow, next Status, now func() time.Time) (Escrow, error) {
	if now == nil {
		now = time.Now
	}
	if !esc.Status.CanTransitionTo(next) {
		return Escrow{}, apperrors.WithMetadata(
			apperrors.CodeEscrowInvalidStatusTransition,
			fmt.Sprintf("escrow cannot move from %s to %s", esc.Status, next),
			map[string]string{"From": string(esc.Status), "To": string(next)},
		)
	}
	esc.Status = next
	esc.UpdatedAt = now().UTC()
	return esc, nil
}

// Expired reports whether the escrow passed its expiry without closing.
func (e Escrow) Expired(now time.Time) bool {
	return !e.ExpiresAt.IsZero() && now.After(e.ExpiresAt)
}

// NewPaymentReference derives a human-quotable reference like
// ESC_4F2A91C3 from fresh UUID material.
func NewPaymentReference() string {
	u := uuid.New()
	return "ESC_" + strings.ToUpper(hex.EncodeToString(u[:4]))
}

// NewPaymentToken derives an opaque token like tok_9f86d081884c7d65
// from fresh UUID material.
func NewPaymentToken() string {
	u := uuid.New()
	return "tok_" + hex.EncodeToString(u[:8])
}
