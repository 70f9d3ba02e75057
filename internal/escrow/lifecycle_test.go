package escrow

import (
	"errors"
	"testing"
	"time"

	"github.com/sokonihq/sokoni/internal/market"
	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
)

func lockedEscrow() Escrow {
	lockedAt := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	esc := pendingEscrow()
	esc.Status = StatusLocked
	esc.LockedAt = &lockedAt
	return esc
}

func TestRelease(t *testing.T) {
	fixedTime := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixedTime }

	released, err := Release(lockedEscrow(), market.RequestStatusDelivered, "great work", now)
	if err != nil {
		t.Fatalf("release: %v", err)
	}
	if released.Status != StatusReleased {
		t.Fatalf("expected released status, got %s", released.Status)
	}
	if released.ReleasedAt == nil || !released.ReleasedAt.Equal(fixedTime) {
		t.Fatalf("expected released timestamp, got %v", released.ReleasedAt)
	}
	if released.Notes != "Funds released to seller. great work" {
		t.Fatalf("unexpected notes %q", released.Notes)
	}

	bare, err := Release(lockedEscrow(), market.RequestStatusDelivered, "  ", now)
	if err != nil {
		t.Fatalf("release without notes: %v", err)
	}
	if bare.Notes != "Funds released to seller" {
		t.Fatalf("unexpected notes %q", bare.Notes)
	}
}

func TestReleasePreconditions(t *testing.T) {
	now := func() time.Time { return time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC) }

	_, err := Release(lockedEscrow(), market.RequestStatusOpen, "", now)
	if apperrors.CodeOf(err) != apperrors.CodeEscrowStatusDisallowsOp {
		t.Fatalf("expected precondition error for open request, got %v", err)
	}

	pending := pendingEscrow()
	_, err = Release(pending, market.RequestStatusDelivered, "", now)
	if apperrors.CodeOf(err) != apperrors.CodeEscrowStatusDisallowsOp {
		t.Fatalf("expected precondition error for pending escrow, got %v", err)
	}

	held := pendingEscrow()
	held.Status = StatusHeld
	if _, err := Release(held, market.RequestStatusDisputed, "resolved for seller", now); err != nil {
		t.Fatalf("expected held escrow to release during dispute, got %v", err)
	}
	_, err = Release(held, market.RequestStatusOpen, "", now)
	if apperrors.CodeOf(err) != apperrors.CodeEscrowStatusDisallowsOp {
		t.Fatalf("expected precondition error for held escrow on open request, got %v", err)
	}
}

func TestDispute(t *testing.T) {
	fixedTime := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixedTime }

	held, err := Dispute(lockedEscrow(), "work not delivered as described", now)
	if err != nil {
		t.Fatalf("dispute: %v", err)
	}
	if held.Status != StatusHeld {
		t.Fatalf("expected held status, got %s", held.Status)
	}
	if held.Notes != "Funds held due to dispute. Reason: work not delivered as described" {
		t.Fatalf("unexpected notes %q", held.Notes)
	}

	_, err = Dispute(lockedEscrow(), "   ", now)
	if !errors.Is(err, ErrDisputeReasonRequired) {
		t.Fatalf("expected ErrDisputeReasonRequired, got %v", err)
	}

	_, err = Dispute(pendingEscrow(), "some reason", now)
	if apperrors.CodeOf(err) != apperrors.CodeEscrowInvalidStatusTransition {
		t.Fatalf("expected transition error for pending escrow, got %v", err)
	}
}

func TestRefund(t *testing.T) {
	fixedTime := time.Date(2026, 2, 13, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixedTime }

	refunded, err := Refund(lockedEscrow(), "buyer cancelled", now)
	if err != nil {
		t.Fatalf("refund: %v", err)
	}
	if refunded.Status != StatusRefunded {
		t.Fatalf("expected refunded status, got %s", refunded.Status)
	}
	if refunded.ReleasedAt == nil || !refunded.ReleasedAt.Equal(fixedTime) {
		t.Fatalf("expected refund timestamp, got %v", refunded.ReleasedAt)
	}
	if refunded.Notes != "Funds refunded to buyer. Reason: buyer cancelled" {
		t.Fatalf("unexpected notes %q", refunded.Notes)
	}

	held := pendingEscrow()
	held.Status = StatusHeld
	if _, err := Refund(held, "", now); err != nil {
		t.Fatalf("expected held escrow to refund, got %v", err)
	}

	_, err = Refund(pendingEscrow(), "", now)
	if apperrors.CodeOf(err) != apperrors.CodeEscrowStatusDisallowsOp {
		t.Fatalf("expected precondition error for pending escrow, got %v", err)
	}
}
