package invoicing

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"
)

var (
	// ErrInvalidBillingType is returned for billing types other than
	// hourly, per_job or flat_rate.
	ErrInvalidBillingType = errors.New("invalid billing type")

	// ErrNonPositiveAmount is returned when a payment amount is <= 0.
	ErrNonPositiveAmount = errors.New("payment amount must be positive")

	// ErrPaymentExceedsOpen is returned when a payment would exceed the
	// invoice's outstanding amount.
	ErrPaymentExceedsOpen = errors.New("payment exceeds open amount")

	// ErrInvoiceNotOpen is returned when dunning a settled or partially
	// paid invoice.
	ErrInvoiceNotOpen = errors.New("invoice is not open")

	// ErrNegativeDunningFee is returned for dunning fees below zero.
	ErrNegativeDunningFee = errors.New("dunning fee must not be negative")
)

// PaymentExceedsOpenError carries the remaining open amount so callers
// can report it back to the user.
type PaymentExceedsOpenError struct {
	Open decimal.Decimal
}

func (e *PaymentExceedsOpenError) Error() string {
	return fmt.Sprintf("payment exceeds open amount (%s outstanding)", e.Open)
}

func (e *PaymentExceedsOpenError) Unwrap() error {
	return ErrPaymentExceedsOpen
}
