/*
dto.go - Request/response data structures

PURPOSE:
  JSON shapes for the REST API. DTOs keep the wire format decoupled from
  store records and engine types: dates travel as YYYY-MM-DD strings,
  money as decimal strings, schedules as weekday-keyed maps.

CONVENTIONS:
  - Dates: "2006-01-02" in requests, same in responses. Report entries
    use the German display format the documents use.
  - Money: strings ("1234.50") parsed through shopspring/decimal.
  - Schedules: {"monday": {"start": "22:00", "end": "06:00"}, ...};
    absent or empty weekdays mean no shift.

SEE ALSO:
  - handlers.go: where these are decoded and validated
*/
package api

import (
	"github.com/nachtwache/billing-engine/billing"
	"github.com/nachtwache/billing-engine/store/sqlite"
)

// =============================================================================
// COMPANIES
// =============================================================================

// CompanyDTO is the wire form of a company.
type CompanyDTO struct {
	ID                 int64                        `json:"id,omitempty"`
	Name               string                       `json:"name"`
	CustomerNumber     string                       `json:"customer_number,omitempty"`
	ContactPerson      string                       `json:"contact_person,omitempty"`
	Address            string                       `json:"address,omitempty"`
	PostalCode         string                       `json:"postal_code,omitempty"`
	City               string                       `json:"city,omitempty"`
	Email              string                       `json:"email,omitempty"`
	Phone              string                       `json:"phone,omitempty"`
	FederalState       string                       `json:"federal_state,omitempty"`
	EarlyTakeoverPrice string                       `json:"early_takeover_price,omitempty"`
	HolidayTakeover    bool                         `json:"holiday_takeover"`
	HolidayScheduleRef string                       `json:"holiday_schedule_ref,omitempty"`
	Schedule           map[string]sqlite.ShiftTimes `json:"schedule"`
}

// =============================================================================
// TAKEOVERS / COMPENSATIONS
// =============================================================================

// TakeoverDTO is the wire form of an early-takeover override.
type TakeoverDTO struct {
	ID        int64  `json:"id,omitempty"`
	CompanyID int64  `json:"company_id"`
	StartDate string `json:"start_date"`
	EndDate   string `json:"end_date"`
	StartTime string `json:"start_time"`
	EndTime   string `json:"end_time"`
	Notes     string `json:"notes,omitempty"`
}

// CompensationDTO is the wire form of an hours compensation.
type CompensationDTO struct {
	ID         int64   `json:"id,omitempty"`
	CompanyID  int64   `json:"company_id"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	TotalHours float64 `json:"total_hours"`
}

// =============================================================================
// REPORTS
// =============================================================================

// ReportRequest asks for an hour report or an hours rollup over a period.
type ReportRequest struct {
	CompanyID  int64   `json:"company_id"`
	StartDate  string  `json:"start_date"`
	EndDate    string  `json:"end_date"`
	HourlyRate float64 `json:"hourly_rate,omitempty"`
}

// HoursResponse is the rollup used when creating an hourly invoice.
type HoursResponse struct {
	CompanyID int64          `json:"company_id"`
	Period    string         `json:"period"`
	Totals    billing.Totals `json:"totals"`
	Days      int            `json:"billable_days"`
}

// HolidayDTO is one public holiday of a state's calendar.
type HolidayDTO struct {
	Date string `json:"date"`
	Name string `json:"name"`
}

// =============================================================================
// INVOICES
// =============================================================================

// InvoiceRequest creates an invoice. Money fields are decimal strings;
// which ones are required depends on billing_type.
type InvoiceRequest struct {
	CompanyID   int64  `json:"company_id"`
	InvoiceDate string `json:"invoice_date"`
	DueDate     string `json:"due_date"`
	StartDate   string `json:"start_date"`
	EndDate     string `json:"end_date"`
	BillingType string `json:"billing_type"`

	TotalHours float64 `json:"total_hours,omitempty"`
	HourlyRate string  `json:"hourly_rate,omitempty"`

	CountPKW      int    `json:"count_pkw,omitempty"`
	CountLKW      int    `json:"count_lkw,omitempty"`
	CountOilspill int    `json:"count_oilspill,omitempty"`
	PricePKW      string `json:"price_pkw,omitempty"`
	PriceLKW      string `json:"price_lkw,omitempty"`
	PriceOilspill string `json:"price_oilspill,omitempty"`
	ServiceFee    string `json:"service_fee,omitempty"`

	MonthlyRate string `json:"monthly_rate,omitempty"`

	TakeoverHours float64 `json:"takeover_hours,omitempty"`

	TaxRate   string `json:"tax_rate,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

// InvoiceDTO is the wire form of an invoice.
type InvoiceDTO struct {
	ID            int64        `json:"id"`
	Number        string       `json:"invoice_number"`
	CompanyID     int64        `json:"company_id"`
	InvoiceDate   string       `json:"invoice_date"`
	DueDate       string       `json:"due_date"`
	PeriodStart   string       `json:"period_start"`
	PeriodEnd     string       `json:"period_end"`
	BillingType   string       `json:"billing_type"`
	TotalHours    float64      `json:"total_hours,omitempty"`
	HourlyRate    string       `json:"hourly_rate,omitempty"`
	TakeoverHours float64      `json:"takeover_hours,omitempty"`
	TakeoverRate  string       `json:"takeover_rate,omitempty"`
	Subtotal      string       `json:"subtotal"`
	TaxRate       string       `json:"tax_rate"`
	TaxAmount     string       `json:"tax_amount"`
	TotalAmount   string       `json:"total_amount"`
	Status        string       `json:"status"`
	DunningLevel  int          `json:"dunning_level"`
	PaidDate      string       `json:"paid_date,omitempty"`
	TotalPaid     string       `json:"total_paid"`
	OpenAmount    string       `json:"open_amount"`
	Notes         string       `json:"notes,omitempty"`
	Payments      []PaymentDTO `json:"payments,omitempty"`
}

// PaymentRequest records a payment against an invoice.
type PaymentRequest struct {
	Amount    string `json:"amount"`
	Date      string `json:"payment_date"`
	Method    string `json:"payment_method,omitempty"`
	Notes     string `json:"notes,omitempty"`
	CreatedBy string `json:"created_by,omitempty"`
}

// PaymentDTO is the wire form of a recorded payment.
type PaymentDTO struct {
	ID     int64  `json:"id"`
	Amount string `json:"amount"`
	Date   string `json:"payment_date"`
	Method string `json:"payment_method,omitempty"`
	Notes  string `json:"notes,omitempty"`
}

// DunningRequest issues a dunning notice against an overdue invoice.
type DunningRequest struct {
	Level      int    `json:"dunning_level"`
	Date       string `json:"dunning_date"`
	NewDueDate string `json:"new_due_date"`
	Fee        string `json:"fee_amount,omitempty"`
	CreatedBy  string `json:"created_by,omitempty"`
}

// DunningDTO is the wire form of a dunning notice.
type DunningDTO struct {
	ID         int64  `json:"id"`
	InvoiceID  int64  `json:"invoice_id"`
	Level      int    `json:"dunning_level"`
	Date       string `json:"dunning_date"`
	NewDueDate string `json:"new_due_date"`
	Fee        string `json:"fee_amount"`
}

// =============================================================================
// TIME ENTRIES
// =============================================================================

// TimeEntryRequest opens a clock record. EndTime may be given up front.
type TimeEntryRequest struct {
	CompanyID    int64  `json:"company_id"`
	UserName     string `json:"user_name"`
	Date         string `json:"date"`
	StartTime    string `json:"start_time"`
	EndTime      string `json:"end_time,omitempty"`
	PauseMinutes int    `json:"pause_minutes,omitempty"`
	Notes        string `json:"notes,omitempty"`
}

// CompleteTimeEntryRequest closes an open clock record.
type CompleteTimeEntryRequest struct {
	EndTime      string `json:"end_time"`
	PauseMinutes int    `json:"pause_minutes,omitempty"`
}

// TimeEntryDTO is the wire form of a clock record.
type TimeEntryDTO struct {
	ID           int64    `json:"id"`
	CompanyID    int64    `json:"company_id"`
	UserName     string   `json:"user_name"`
	Date         string   `json:"date"`
	StartTime    string   `json:"start_time"`
	EndTime      string   `json:"end_time,omitempty"`
	PauseMinutes int      `json:"pause_minutes"`
	TotalHours   *float64 `json:"total_hours,omitempty"`
	Notes        string   `json:"notes,omitempty"`
	Completed    bool     `json:"is_completed"`
}

// TimeEntrySummary aggregates a listing for display.
type TimeEntrySummary struct {
	TotalHours float64 `json:"total_hours"`
	Days       int     `json:"days"`
	Entries    int     `json:"entries"`
}

// TimeEntryListResponse bundles entries with their summary.
type TimeEntryListResponse struct {
	Entries []TimeEntryDTO   `json:"entries"`
	Summary TimeEntrySummary `json:"summary"`
}

// ErrorResponse is the JSON error envelope.
type ErrorResponse struct {
	Error   string `json:"error"`
	Details string `json:"details,omitempty"`
}
