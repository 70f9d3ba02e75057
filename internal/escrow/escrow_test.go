package escrow

import (
	"errors"
	"strings"
	"testing"
	"time"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
)

func validEscrowInput() CreateEscrowInput {
	return CreateEscrowInput{
		RequestID:   "request-1",
		BidID:       "bid-1",
		BuyerID:     "buyer-1",
		SellerID:    "seller-1",
		AmountCents: 20_000,
	}
}

func TestFee(t *testing.T) {
	tests := []struct {
		amount int64
		want   int64
	}{
		{amount: 500, want: 45},
		{amount: 10_000, want: 320},
		{amount: 20_000, want: 610},
		{amount: 123, want: 34},
		{amount: 100_000_000, want: 2_900_030},
	}

	for _, tt := range tests {
		if got := Fee(tt.amount); got != tt.want {
			t.Fatalf("Fee(%d): expected %d, got %d", tt.amount, tt.want, got)
		}
	}
}

func TestCreateEscrow(t *testing.T) {
	fixedTime := time.Date(2026, 2, 10, 12, 0, 0, 0, time.UTC)

	created, err := CreateEscrow(validEscrowInput(), func() time.Time { return fixedTime }, func() (string, error) {
		return "escrow-1", nil
	})
	if err != nil {
		t.Fatalf("create escrow: %v", err)
	}

	if created.ID != "escrow-1" || created.Status != StatusPending {
		t.Fatalf("unexpected escrow: %+v", created)
	}
	if created.PaymentMethod != DefaultMethod {
		t.Fatalf("expected default payment method, got %s", created.PaymentMethod)
	}
	if created.FeeCents != 610 || created.TotalCents != 20_610 {
		t.Fatalf("expected fee 610 and total 20610, got %d %d", created.FeeCents, created.TotalCents)
	}
	if !strings.HasPrefix(created.PaymentReference, "ESC_") || len(created.PaymentReference) != 12 {
		t.Fatalf("unexpected payment reference %q", created.PaymentReference)
	}
	if created.PaymentReference != strings.ToUpper(created.PaymentReference) {
		t.Fatalf("expected uppercase payment reference, got %q", created.PaymentReference)
	}
	if !strings.HasPrefix(created.PaymentToken, "tok_") || len(created.PaymentToken) != 20 {
		t.Fatalf("unexpected payment token %q", created.PaymentToken)
	}
	if !created.ExpiresAt.Equal(fixedTime.Add(30 * 24 * time.Hour)) {
		t.Fatalf("expected expiry 30 days out, got %v", created.ExpiresAt)
	}
}

func TestCreateEscrowValidation(t *testing.T) {
	missing := validEscrowInput()
	missing.BidID = ""
	if _, err := CreateEscrow(missing, nil, nil); err == nil {
		t.Fatal("expected error for missing bid id")
	}

	zero := validEscrowInput()
	zero.AmountCents = 0
	if _, err := CreateEscrow(zero, nil, nil); err == nil {
		t.Fatal("expected error for zero amount")
	}

	bogus := validEscrowInput()
	bogus.PaymentMethod = "cheque"
	_, err := CreateEscrow(bogus, nil, nil)
	if apperrors.CodeOf(err) != apperrors.CodeEscrowPaymentMethodInvalid {
		t.Fatalf("expected payment method error, got %v", err)
	}

	_, err = CreateEscrow(validEscrowInput(), nil, func() (string, error) { return "", errors.New("id generator error") })
	if err == nil {
		t.Fatal("expected error")
	}
}

func TestStatusTransitions(t *testing.T) {
	tests := []struct {
		from    Status
		to      Status
		allowed bool
	}{
		{StatusPending, StatusLocked, true},
		{StatusPending, StatusFailed, true},
		{StatusPending, StatusReleased, false},
		{StatusLocked, StatusReleased, true},
		{StatusLocked, StatusHeld, true},
		{StatusLocked, StatusRefunded, true},
		{StatusLocked, StatusPending, false},
		{StatusHeld, StatusReleased, true},
		{StatusHeld, StatusRefunded, true},
		{StatusHeld, StatusLocked, false},
		{StatusFailed, StatusPending, true},
		{StatusFailed, StatusLocked, false},
		{StatusReleased, StatusRefunded, false},
		{StatusRefunded, StatusPending, false},
	}

	for _, tt := range tests {
		t.Run(string(tt.from)+" to "+string(tt.to), func(t *testing.T) {
			if got := tt.from.CanTransitionTo(tt.to); got != tt.allowed {
				t.Fatalf("expected %v, got %v", tt.allowed, got)
			}
		})
	}
}

func TestTerminalStatuses(t *testing.T) {
	if !StatusReleased.Terminal() || !StatusRefunded.Terminal() {
		t.Fatal("expected released and refunded to be terminal")
	}
	if StatusPending.Terminal() || StatusFailed.Terminal() || Status("bogus").Terminal() {
		t.Fatal("expected pending, failed, and unknown statuses to be non-terminal")
	}
}

func TestParseStatus(t *testing.T) {
	status, err := ParseStatus(" Locked ")
	if err != nil || status != StatusLocked {
		t.Fatalf("expected locked, got %v %v", status, err)
	}
	if _, err := ParseStatus("funded"); err == nil {
		t.Fatal("expected error for unknown status")
	}
}

func TestTransition(t *testing.T) {
	fixedTime := time.Date(2026, 2, 11, 9, 0, 0, 0, time.UTC)
	esc := Escrow{ID: "escrow-1", Status: StatusPending}

	locked, err := Transition(esc, StatusLocked, func() time.Time { return fixedTime })
	if err != nil {
		t.Fatalf("transition: %v", err)
	}
	if locked.Status != StatusLocked || !locked.UpdatedAt.Equal(fixedTime) {
		t.Fatalf("unexpected result: %+v", locked)
	}

	_, err = Transition(esc, StatusReleased, nil)
	if apperrors.CodeOf(err) != apperrors.CodeEscrowInvalidStatusTransition {
		t.Fatalf("expected invalid transition error, got %v", err)
	}
}

func TestExpired(t *testing.T) {
	now := time.Date(2026, 2, 11, 12, 0, 0, 0, time.UTC)
	if (Escrow{}).Expired(now) {
		t.Fatal("expected zero expiry to never expire")
	}
	if (Escrow{ExpiresAt: now.Add(time.Hour)}).Expired(now) {
		t.Fatal("expected future expiry to be live")
	}
	if !(Escrow{ExpiresAt: now.Add(-time.Hour)}).Expired(now) {
		t.Fatal("expected past expiry to be expired")
	}
}
