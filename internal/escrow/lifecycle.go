package escrow

import (
	"fmt"
	"strings"
	"time"

	"github.com/sokonihq/sokoni/internal/market"
	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
)

// ErrDisputeReasonRequired indicates a dispute without a reason.
var ErrDisputeReasonRequired = apperrors.New(apperrors.CodeEscrowStatusDisallowsOp, "dispute reason is required")

// CanRelease reports whether funds may go to the seller: the escrow is
// locked or held and the paired request has reached delivery (or, for a
// held escrow, sits in dispute).
func CanRelease(esc Escrow, reqStatus market.RequestStatus) error {
	switch esc.Status {
	case StatusLocked:
		if reqStatus != market.RequestStatusDelivered && reqStatus != market.RequestStatusCompleted {
			return apperrors.WithMetadata(
				apperrors.CodeEscrowStatusDisallowsOp,
				fmt.Sprintf("cannot release funds while the request is %s", reqStatus),
				map[string]string{"RequestStatus": string(reqStatus)},
			)
		}
	case StatusHeld:
		switch reqStatus {
		case market.RequestStatusDisputed, market.RequestStatusDelivered, market.RequestStatusCompleted:
		default:
			return apperrors.WithMetadata(
				apperrors.CodeEscrowStatusDisallowsOp,
				fmt.Sprintf("cannot release held funds while the request is %s", reqStatus),
				map[string]string{"RequestStatus": string(reqStatus)},
			)
		}
	default:
		return apperrors.WithMetadata(
			apperrors.CodeEscrowStatusDisallowsOp,
			fmt.Sprintf("cannot release funds from %s status", esc.Status),
			map[string]string{"Status": string(esc.Status)},
		)
	}
	return nil
}

// CanRefund reports whether funds may return to the buyer.
func CanRefund(esc Escrow) error {
	if esc.Status != StatusLocked && esc.Status != StatusHeld {
		return apperrors.WithMetadata(
			apperrors.CodeEscrowStatusDisallowsOp,
			fmt.Sprintf("cannot refund funds from %s status", esc.Status),
			map[string]string{"Status": string(esc.Status)},
		)
	}
	return nil
}

// Release moves funds to the seller. The paired request completes in the
// same storage transaction; callers pass its current status for the
// precondition check.
func Release(esc Escrow, reqStatus market.RequestStatus, notes string, now func() time.Time) (Escrow, error) {
	if now == nil {
		now = time.Now
	}
	if err := CanRelease(esc, reqStatus); err != nil {
		return Escrow{}, err
	}
	released, err := Transition(esc, StatusReleased, now)
	if err != nil {
		return Escrow{}, err
	}
	releasedAt := now().UTC()
	released.ReleasedAt = &releasedAt

	releaseNotes := "Funds released to seller"
	if notes = strings.TrimSpace(notes); notes != "" {
		releaseNotes += ". " + notes
	}
	released.Notes = releaseNotes
	return released, nil
}

// Dispute holds locked funds while the parties argue. The paired
// request moves to disputed in the same storage transaction.
func Dispute(esc Escrow, reason string, now func() time.Time) (Escrow, error) {
	if now == nil {
		now = time.Now
	}
	reason = strings.TrimSpace(reason)
	if reason == "" {
		return Escrow{}, ErrDisputeReasonRequired
	}
	held, err := Transition(esc, StatusHeld, now)
	if err != nil {
		return Escrow{}, err
	}
	held.Notes = "Funds held due to dispute. Reason: " + reason
	return held, nil
}

// Refund returns the full total, fee included, to the buyer. The paired
// request cancels in the same storage transaction.
func Refund(esc Escrow, notes string, now func() time.Time) (Escrow, error) {
	if now == nil {
		now = time.Now
	}
	if err := CanRefund(esc); err != nil {
		return Escrow{}, err
	}
	refunded, err := Transition(esc, StatusRefunded, now)
	if err != nil {
		return Escrow{}, err
	}
	refundedAt := now().UTC()
	refunded.ReleasedAt = &refundedAt

	refundNotes := "Funds refunded to buyer"
	if notes = strings.TrimSpace(notes); notes != "" {
		refundNotes += ". Reason: " + notes
	}
	refunded.Notes = refundNotes
	return refunded, nil
}
