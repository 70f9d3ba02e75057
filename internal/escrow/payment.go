package escrow

import (
	"fmt"
	"math/rand"
	"strings"
	"time"

	apperrors "github.com/sokonihq/sokoni/internal/platform/errors"
)

// PaymentMethod names how the buyer funds the escrow.
type PaymentMethod string

const (
	MethodCreditCard   PaymentMethod = "credit_card"
	MethodDebitCard    PaymentMethod = "debit_card"
	MethodBankTransfer PaymentMethod = "bank_transfer"
	MethodPayPal       PaymentMethod = "paypal"
	MethodApplePay     PaymentMethod = "apple_pay"
	MethodGooglePay    PaymentMethod = "google_pay"
	MethodStripe       PaymentMethod = "stripe"
)

// DefaultMethod is used when the buyer does not pick one.
const DefaultMethod = MethodCreditCard

// defaultSuccessRate applies to any method missing from the rate table.
const defaultSuccessRate = 0.90

// MethodInfo describes a payment method for the public catalog.
type MethodInfo struct {
	Method              PaymentMethod
	DisplayName         string
	ProcessorKey        string
	Processor           string
	RequiredFields      []string
	SupportedCurrencies []string
}

var methodCatalog = map[PaymentMethod]MethodInfo{
	MethodCreditCard: {
		Method:              MethodCreditCard,
		DisplayName:         "Credit Card",
		ProcessorKey:        "stripe",
		Processor:           "Stripe Payment Processing",
		RequiredFields:      []string{"card_number", "expiry_date", "cvv", "cardholder_name"},
		SupportedCurrencies: []string{"USD", "EUR", "GBP", "KES", "UGX", "TZS"},
	},
	MethodDebitCard: {
		Method:              MethodDebitCard,
		DisplayName:         "Debit Card",
		ProcessorKey:        "stripe",
		Processor:           "Stripe Payment Processing",
		RequiredFields:      []string{"card_number", "expiry_date", "cvv", "cardholder_name"},
		SupportedCurrencies: []string{"USD", "EUR", "GBP", "KES", "UGX", "TZS"},
	},
	MethodBankTransfer: {
		Method:              MethodBankTransfer,
		DisplayName:         "Bank Transfer",
		ProcessorKey:        "stripe_ach",
		Processor:           "ACH Processing Network",
		RequiredFields:      []string{"account_number", "routing_number", "account_holder_name"},
		SupportedCurrencies: []string{"USD", "EUR", "GBP", "KES"},
	},
	MethodPayPal: {
		Method:              MethodPayPal,
		DisplayName:         "PayPal",
		ProcessorKey:        "paypal",
		Processor:           "PayPal Payment System",
		RequiredFields:      []string{"paypal_email"},
		SupportedCurrencies: []string{"USD", "EUR", "GBP"},
	},
	MethodApplePay: {
		Method:              MethodApplePay,
		DisplayName:         "Apple Pay",
		ProcessorKey:        "stripe",
		Processor:           "Apple Pay via Stripe",
		RequiredFields:      []string{"device_token"},
		SupportedCurrencies: []string{"USD", "EUR", "GBP"},
	},
	MethodGooglePay: {
		Method:              MethodGooglePay,
		DisplayName:         "Google Pay",
		ProcessorKey:        "stripe",
		Processor:           "Google Pay via Stripe",
		RequiredFields:      []string{"device_token"},
		SupportedCurrencies: []string{"USD", "EUR", "GBP"},
	},
	MethodStripe: {
		Method:              MethodStripe,
		DisplayName:         "Stripe",
		ProcessorKey:        "stripe",
		Processor:           "Stripe Direct Processing",
		RequiredFields:      []string{"payment_token"},
		SupportedCurrencies: []string{"USD", "EUR", "GBP", "KES", "UGX", "TZS"},
	},
}

var methodSuccessRates = map[PaymentMethod]float64{
	MethodCreditCard:   0.95,
	MethodDebitCard:    0.92,
	MethodBankTransfer: 0.88,
	MethodPayPal:       0.94,
	MethodApplePay:     0.97,
	MethodGooglePay:    0.96,
	MethodStripe:       0.96,
}

// failureReasons are the simulated decline messages, picked at random.
var failureReasons = []string{
	"Insufficient funds",
	"Payment method declined",
	"Card expired",
	"Invalid payment details",
	"Transaction limit exceeded",
}

// Methods lists every payment method in catalog order.
func Methods() []PaymentMethod {
	return []PaymentMethod{
		MethodCreditCard,
		MethodDebitCard,
		MethodBankTransfer,
		MethodPayPal,
		MethodApplePay,
		MethodGooglePay,
		MethodStripe,
	}
}

// Catalog returns the public payment method catalog in a stable order.
func Catalog() []MethodInfo {
	methods := Methods()
	infos := make([]MethodInfo, 0, len(methods))
	for _, m := range methods {
		infos = append(infos, methodCatalog[m])
	}
	return infos
}

// Valid reports whether m names a known payment method.
func (m PaymentMethod) Valid() bool {
	_, ok := methodCatalog[m]
	return ok
}

// ParsePaymentMethod converts a raw string into a payment method.
func ParsePaymentMethod(raw string) (PaymentMethod, error) {
	m := PaymentMethod(strings.ToLower(strings.TrimSpace(raw)))
	if !m.Valid() {
		return "", apperrors.WithMetadata(
			apperrors.CodeEscrowPaymentMethodInvalid,
			"unknown payment method",
			map[string]string{"PaymentMethod": raw},
		)
	}
	return m, nil
}

// DisplayName is the human-readable method name.
func (m PaymentMethod) DisplayName() string {
	if info, ok := methodCatalog[m]; ok {
		return info.DisplayName
	}
	return string(m)
}

// Processor is the simulated processor behind the method.
func (m PaymentMethod) Processor() string {
	if info, ok := methodCatalog[m]; ok {
		return info.Processor
	}
	return "Generic Payment Processor"
}

// SuccessRate is the simulated probability of a payment clearing.
func (m PaymentMethod) SuccessRate() float64 {
	if rate, ok := methodSuccessRates[m]; ok {
		return rate
	}
	return defaultSuccessRate
}

// PaymentOutcome reports the result of a simulated payment attempt.
type PaymentOutcome struct {
	Success       bool
	Message       string
	FailureReason string
	Processor     string
}

// ProcessPayment runs the simulated processor against a pending or
// failed escrow. On success the escrow locks; on decline it moves to
// failed with a reason in the notes. A failed escrow retries through
// pending first. Pass rng to control the outcome directly; nil uses a
// time-seeded source.
func ProcessPayment(esc Escrow, method PaymentMethod, now func() time.Time, rng *rand.Rand) (Escrow, PaymentOutcome, error) {
	if now == nil {
		now = time.Now
	}
	if rng == nil {
		rng = rand.New(rand.NewSource(now().UnixNano()))
	}
	if !method.Valid() {
		return Escrow{}, PaymentOutcome{}, apperrors.WithMetadata(
			apperrors.CodeEscrowPaymentMethodInvalid,
			"unknown payment method",
			map[string]string{"PaymentMethod": string(method)},
		)
	}

	if esc.Status == StatusFailed {
		retried, err := Transition(esc, StatusPending, now)
		if err != nil {
			return Escrow{}, PaymentOutcome{}, err
		}
		esc = retried
	}
	if esc.Status != StatusPending {
		return Escrow{}, PaymentOutcome{}, apperrors.WithMetadata(
			apperrors.CodeEscrowStatusDisallowsOp,
			fmt.Sprintf("cannot process payment from %s status", esc.Status),
			map[string]string{"Status": string(esc.Status)},
		)
	}

	esc.PaymentMethod = method
	nowUTC := now().UTC()

	if rng.Float64() < method.SuccessRate() {
		locked, err := Transition(esc, StatusLocked, now)
		if err != nil {
			return Escrow{}, PaymentOutcome{}, err
		}
		locked.LockedAt = &nowUTC
		locked.Notes = fmt.Sprintf("Payment processed successfully via %s", method.DisplayName())
		return locked, PaymentOutcome{
			Success:   true,
			Message:   "Funds successfully locked in escrow",
			Processor: method.Processor(),
		}, nil
	}

	failed, err := Transition(esc, StatusFailed, now)
	if err != nil {
		return Escrow{}, PaymentOutcome{}, err
	}
	reason := failureReasons[rng.Intn(len(failureReasons))]
	failed.Notes = fmt.Sprintf("Payment failed: %s", reason)
	return failed, PaymentOutcome{
		Success:       false,
		Message:       fmt.Sprintf("Payment processing failed: %s", reason),
		FailureReason: reason,
		Processor:     method.Processor(),
	}, nil
}
