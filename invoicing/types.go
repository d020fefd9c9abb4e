/*
Package invoicing turns billed hours into invoices, payments and dunning
notices.

PURPOSE:
  This package contains the invoice domain on top of the billing engine:
  - subtotal/tax/total computation per billing type
  - year-scoped sequential invoice numbers (RE-YYYY-NNNN)
  - payment application with open -> partial -> paid transitions
  - dunning notices against overdue invoices

DESIGN PRINCIPLES:
  1. Precision: All money uses decimal.Decimal. Hours stay float64; they
     are quantities, not currency.
  2. Snapshots: The takeover rate is captured on the invoice at creation
     time and is immune to later rate changes on the company.
  3. Purity: Nothing here performs I/O; persistence is the store's job.

KEY CONCEPTS IN THIS FILE (types.go):
  - Invoice: A persisted invoice with billing-type-specific fields
  - Payment: A partial or full payment against an invoice
  - Dunning: A formal payment reminder with level, fee and new due date
*/
package invoicing

import (
	"github.com/shopspring/decimal"

	"github.com/nachtwache/billing-engine/billing"
)

// BillingType selects the subtotal formula of an invoice.
type BillingType string

const (
	BillingHourly   BillingType = "hourly"
	BillingPerJob   BillingType = "per_job"
	BillingFlatRate BillingType = "flat_rate"
)

// Valid reports whether the billing type is one of the known values.
func (b BillingType) Valid() bool {
	switch b {
	case BillingHourly, BillingPerJob, BillingFlatRate:
		return true
	}
	return false
}

// Status is the payment state of an invoice, driven by cumulative
// payments against the total amount.
type Status string

const (
	StatusOpen    Status = "open"
	StatusPartial Status = "partial"
	StatusPaid    Status = "paid"
)

// Invoice is a persisted invoice. Which numeric fields are meaningful
// depends on BillingType; the rest stay at their zero values.
type Invoice struct {
	ID          int64
	Number      string
	CompanyID   int64
	InvoiceDate billing.Date
	DueDate     billing.Date
	Period      billing.Period
	BillingType BillingType

	// hourly
	TotalHours float64
	HourlyRate decimal.Decimal

	// per_job: tow jobs by vehicle class plus a service fee
	CountPKW      int
	CountLKW      int
	CountOilspill int
	PricePKW      decimal.Decimal
	PriceLKW      decimal.Decimal
	PriceOilspill decimal.Decimal
	ServiceFee    decimal.Decimal

	// flat_rate
	MonthlyRate decimal.Decimal

	// Optional early-takeover surcharge. TakeoverRate is the company's
	// rate snapshotted at creation time; nil when none applied.
	TakeoverHours float64
	TakeoverRate  *decimal.Decimal

	Subtotal    decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal

	Status       Status
	DunningLevel int
	PaidDate     *billing.Date
	Notes        string
	CreatedBy    string

	Payments []Payment
}

// TotalPaid sums all recorded payments.
func (inv Invoice) TotalPaid() decimal.Decimal {
	sum := decimal.Zero
	for _, p := range inv.Payments {
		sum = sum.Add(p.Amount)
	}
	return sum
}

// OpenAmount is the outstanding remainder.
func (inv Invoice) OpenAmount() decimal.Decimal {
	return inv.TotalAmount.Sub(inv.TotalPaid())
}

// IsOverdue reports whether the invoice is still open past its due date.
// Partially paid invoices are not dunned.
func (inv Invoice) IsOverdue(today billing.Date) bool {
	return inv.Status == StatusOpen && inv.DueDate.Before(today)
}

// Payment is a single payment recorded against an invoice.
type Payment struct {
	ID        int64
	InvoiceID int64
	Amount    decimal.Decimal
	Date      billing.Date
	Method    string
	Notes     string
	CreatedBy string
}

// Dunning is a formal payment reminder issued against an overdue
// invoice: escalation level, a fee, and a new due date.
type Dunning struct {
	ID         int64
	InvoiceID  int64
	Level      int
	Date       billing.Date
	NewDueDate billing.Date
	Fee        decimal.Decimal
	CreatedBy  string
}
