/*
payment.go - Payment application and dunning rules

STATUS TRANSITIONS:
  cumulative paid == 0            -> open
  0 < cumulative paid < total     -> partial
  cumulative paid >= total        -> paid (paid_date set)

  Payments must be positive and may never exceed the open amount.

DUNNING:
  Only invoices that are still fully open are dunned. A notice carries
  an escalation level, a non-negative fee, and a new due date; the
  invoice tracks the latest level issued.
*/
package invoicing

import (
	"github.com/shopspring/decimal"

	"github.com/nachtwache/billing-engine/billing"
)

// StatusForPaid maps a cumulative paid amount to the invoice status.
func StatusForPaid(total, paid decimal.Decimal) Status {
	switch {
	case paid.GreaterThanOrEqual(total):
		return StatusPaid
	case paid.IsPositive():
		return StatusPartial
	default:
		return StatusOpen
	}
}

// ApplyPayment validates a payment against the invoice, records it, and
// advances the status. The payment date doubles as the paid date when
// the invoice settles.
func ApplyPayment(inv *Invoice, p Payment) error {
	if !p.Amount.IsPositive() {
		return ErrNonPositiveAmount
	}

	open := inv.OpenAmount()
	if p.Amount.GreaterThan(open) {
		return &PaymentExceedsOpenError{Open: open}
	}

	inv.Payments = append(inv.Payments, p)
	inv.Status = StatusForPaid(inv.TotalAmount, inv.TotalPaid())
	if inv.Status == StatusPaid {
		paid := p.Date
		inv.PaidDate = &paid
	}
	return nil
}

// NewDunning issues a dunning notice for an overdue invoice.
func NewDunning(inv Invoice, level int, date, newDueDate billing.Date, fee decimal.Decimal) (Dunning, error) {
	if inv.Status != StatusOpen {
		return Dunning{}, ErrInvoiceNotOpen
	}
	if fee.IsNegative() {
		return Dunning{}, ErrNegativeDunningFee
	}
	return Dunning{
		InvoiceID:  inv.ID,
		Level:      level,
		Date:       date,
		NewDueDate: newDueDate,
		Fee:        fee,
	}, nil
}
