/*
amounts.go - Invoice Amount Calculator

FORMULAS:
  hourly:    subtotal = total_hours * hourly_rate
  per_job:   subtotal = service_fee + count_pkw*price_pkw
                        + count_lkw*price_lkw + count_oilspill*price_oilspill
  flat_rate: subtotal = monthly_rate

  If takeover hours were billed and the company had a takeover rate at
  creation time: subtotal += takeover_hours * takeover_rate.

  tax_amount   = subtotal * tax_rate / 100   (tax_rate defaults to 19)
  total_amount = subtotal + tax_amount
*/
package invoicing

import (
	"fmt"

	"github.com/shopspring/decimal"
)

// DefaultTaxRate is the German standard VAT rate in percent.
var DefaultTaxRate = decimal.NewFromInt(19)

// AmountInput carries the billing-type-specific figures for one invoice.
type AmountInput struct {
	BillingType BillingType

	TotalHours float64
	HourlyRate decimal.Decimal

	CountPKW      int
	CountLKW      int
	CountOilspill int
	PricePKW      decimal.Decimal
	PriceLKW      decimal.Decimal
	PriceOilspill decimal.Decimal
	ServiceFee    decimal.Decimal

	MonthlyRate decimal.Decimal

	TakeoverHours float64
	TakeoverRate  *decimal.Decimal

	// TaxRate in percent; zero means DefaultTaxRate.
	TaxRate decimal.Decimal
}

// Amounts is the computed subtotal/tax/total triple.
type Amounts struct {
	Subtotal    decimal.Decimal
	TaxRate     decimal.Decimal
	TaxAmount   decimal.Decimal
	TotalAmount decimal.Decimal
}

// Calculate computes the invoice amounts for the given input.
func Calculate(in AmountInput) (Amounts, error) {
	var subtotal decimal.Decimal

	switch in.BillingType {
	case BillingHourly:
		subtotal = decimal.NewFromFloat(in.TotalHours).Mul(in.HourlyRate)
	case BillingPerJob:
		subtotal = in.ServiceFee.
			Add(decimal.NewFromInt(int64(in.CountPKW)).Mul(in.PricePKW)).
			Add(decimal.NewFromInt(int64(in.CountLKW)).Mul(in.PriceLKW)).
			Add(decimal.NewFromInt(int64(in.CountOilspill)).Mul(in.PriceOilspill))
	case BillingFlatRate:
		subtotal = in.MonthlyRate
	default:
		return Amounts{}, fmt.Errorf("%w: %q", ErrInvalidBillingType, in.BillingType)
	}

	if in.TakeoverHours > 0 && in.TakeoverRate != nil && !in.TakeoverRate.IsZero() {
		subtotal = subtotal.Add(decimal.NewFromFloat(in.TakeoverHours).Mul(*in.TakeoverRate))
	}

	taxRate := in.TaxRate
	if taxRate.IsZero() {
		taxRate = DefaultTaxRate
	}
	taxAmount := subtotal.Mul(taxRate).Div(decimal.NewFromInt(100))

	return Amounts{
		Subtotal:    subtotal,
		TaxRate:     taxRate,
		TaxAmount:   taxAmount,
		TotalAmount: subtotal.Add(taxAmount),
	}, nil
}
