package escrow

import (
	"math/rand"
	"strings"
	"testing"
	"time"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
)

// fixedSource pins the random stream so payment outcomes are
// deterministic. Zero always clears; nearly-one always declines.
type fixedSource struct{ v int64 }

func (s fixedSource) Int63() int64 { return s.v }
func (s fixedSource) Seed(int64)   {}

func alwaysClear() *rand.Rand   { return rand.New(fixedSource{0}) }
func alwaysDecline() *rand.Rand { return rand.New(fixedSource{1<<63 - 1<<53}) }

func pendingEscrow() Escrow {
	return Escrow{
		ID:            "escrow-1",
		RequestID:     "request-1",
		BidID:         "bid-1",
		BuyerID:       "buyer-1",
		SellerID:      "seller-1",
		AmountCents:   20_000,
		FeeCents:      610,
		TotalCents:    20_610,
		PaymentMethod: MethodCreditCard,
		Status:        StatusPending,
	}
}

func TestProcessPaymentSuccess(t *testing.T) {
	fixedTime := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixedTime }

	locked, outcome, err := ProcessPayment(pendingEscrow(), MethodCreditCard, now, alwaysClear())
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if !outcome.Success {
		t.Fatalf("expected success, got %+v", outcome)
	}
	if locked.Status != StatusLocked {
		t.Fatalf("expected locked status, got %s", locked.Status)
	}
	if locked.LockedAt == nil || !locked.LockedAt.Equal(fixedTime) {
		t.Fatalf("expected locked timestamp, got %v", locked.LockedAt)
	}
	if locked.Notes != "Payment processed successfully via Credit Card" {
		t.Fatalf("unexpected notes %q", locked.Notes)
	}
	if outcome.Processor != "Stripe Payment Processing" {
		t.Fatalf("unexpected processor %q", outcome.Processor)
	}
}

func TestProcessPaymentDecline(t *testing.T) {
	fixedTime := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixedTime }

	failed, outcome, err := ProcessPayment(pendingEscrow(), MethodBankTransfer, now, alwaysDecline())
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if outcome.Success {
		t.Fatalf("expected decline, got %+v", outcome)
	}
	if failed.Status != StatusFailed {
		t.Fatalf("expected failed status, got %s", failed.Status)
	}
	if failed.PaymentMethod != MethodBankTransfer {
		t.Fatalf("expected payment method to update, got %s", failed.PaymentMethod)
	}

	known := false
	for _, reason := range failureReasons {
		if outcome.FailureReason == reason {
			known = true
		}
	}
	if !known {
		t.Fatalf("unexpected failure reason %q", outcome.FailureReason)
	}
	if failed.Notes != "Payment failed: "+outcome.FailureReason {
		t.Fatalf("unexpected notes %q", failed.Notes)
	}
	if outcome.Processor != "ACH Processing Network" {
		t.Fatalf("unexpected processor %q", outcome.Processor)
	}
}

func TestProcessPaymentRetriesFailed(t *testing.T) {
	fixedTime := time.Date(2026, 2, 12, 12, 0, 0, 0, time.UTC)
	now := func() time.Time { return fixedTime }

	failed := pendingEscrow()
	failed.Status = StatusFailed

	locked, outcome, err := ProcessPayment(failed, MethodApplePay, now, alwaysClear())
	if err != nil {
		t.Fatalf("process payment: %v", err)
	}
	if !outcome.Success || locked.Status != StatusLocked {
		t.Fatalf("expected retry to lock funds, got %s %+v", locked.Status, outcome)
	}
}

func TestProcessPaymentRejectsClosedEscrow(t *testing.T) {
	locked := pendingEscrow()
	locked.Status = StatusLocked

	_, _, err := ProcessPayment(locked, MethodCreditCard, nil, alwaysClear())
	if apperrors.CodeOf(err) != apperrors.CodeEscrowStatusDisallowsOp {
		t.Fatalf("expected status error, got %v", err)
	}

	_, _, err = ProcessPayment(pendingEscrow(), "cheque", nil, alwaysClear())
	if apperrors.CodeOf(err) != apperrors.CodeEscrowPaymentMethodInvalid {
		t.Fatalf("expected payment method error, got %v", err)
	}
}

func TestParsePaymentMethod(t *testing.T) {
	method, err := ParsePaymentMethod(" PayPal ")
	if err != nil || method != MethodPayPal {
		t.Fatalf("expected paypal, got %v %v", method, err)
	}
	_, err = ParsePaymentMethod("cheque")
	if apperrors.CodeOf(err) != apperrors.CodeEscrowPaymentMethodInvalid {
		t.Fatalf("expected payment method error, got %v", err)
	}
}

func TestSuccessRates(t *testing.T) {
	tests := []struct {
		method PaymentMethod
		want   float64
	}{
		{MethodCreditCard, 0.95},
		{MethodDebitCard, 0.92},
		{MethodBankTransfer, 0.88},
		{MethodPayPal, 0.94},
		{MethodApplePay, 0.97},
		{MethodGooglePay, 0.96},
		{MethodStripe, 0.96},
		{PaymentMethod("cheque"), 0.90},
	}

	for _, tt := range tests {
		if got := tt.method.SuccessRate(); got != tt.want {
			t.Fatalf("SuccessRate(%s): expected %v, got %v", tt.method, tt.want, got)
		}
	}
}

func TestCatalog(t *testing.T) {
	catalog := Catalog()
	if len(catalog) != 7 {
		t.Fatalf("expected 7 payment methods, got %d", len(catalog))
	}
	if catalog[0].Method != MethodCreditCard || catalog[0].DisplayName != "Credit Card" {
		t.Fatalf("expected credit card first, got %+v", catalog[0])
	}
	for _, info := range catalog {
		if info.Processor == "" || info.ProcessorKey == "" {
			t.Fatalf("expected processor details for %s", info.Method)
		}
		if len(info.RequiredFields) == 0 || len(info.SupportedCurrencies) == 0 {
			t.Fatalf("expected fields and currencies for %s", info.Method)
		}
	}
	if !strings.HasPrefix(MethodGooglePay.Processor(), "Google Pay") {
		t.Fatalf("unexpected google pay processor %q", MethodGooglePay.Processor())
	}
	if PaymentMethod("cheque").Processor() != "Generic Payment Processor" {
		t.Fatal("expected generic processor for unknown method")
	}
}
