/*
handlers.go - HTTP API handlers for the billing back office

PURPOSE:
  Exposes the billing engine and invoicing flow via REST. Handles HTTP
  request/response, JSON serialization, and delegates to domain logic.

ENDPOINTS:
  Companies:
    GET    /api/companies                      List all companies
    POST   /api/companies                      Create company
    GET    /api/companies/{id}                 Get company
    PUT    /api/companies/{id}                 Update company
    DELETE /api/companies/{id}                 Delete company

  Overrides:
    GET    /api/companies/{id}/takeovers       List takeovers (optional range)
    POST   /api/companies/{id}/takeovers       Create takeover
    GET    /api/companies/{id}/compensations   List compensations
    POST   /api/companies/{id}/compensations   Create compensation
    DELETE /api/takeovers/{id}                 Delete takeover
    DELETE /api/compensations/{id}             Delete compensation

  Reports:
    GET    /api/holidays                       Holiday calendar per state/year
    POST   /api/reports/hours                  Hour report (JSON)
    GET    /api/reports/hours/xlsx             Hour report (spreadsheet)

  Invoices:
    POST   /api/invoices/calculate-hours       Hours rollup for a period
    GET    /api/invoices                       List (status/company filters)
    POST   /api/invoices                       Create (computes amounts)
    GET    /api/invoices/{id}                  Get with payments
    PUT    /api/invoices/{id}                  Update status/notes
    DELETE /api/invoices/{id}                  Delete with payments
    POST   /api/invoices/{id}/payments         Record payment
    GET    /api/invoices/overdue               List overdue invoices
    POST   /api/invoices/{id}/dunnings         Issue dunning notice
    GET    /api/invoices/{id}/dunnings         List dunning notices

  Time entries:
    GET    /api/time-entries                   List with summary
    POST   /api/time-entries                   Open clock record
    POST   /api/time-entries/{id}/complete     Close clock record
    DELETE /api/time-entries/{id}              Delete clock record

REQUEST FLOW:
  1. Parse HTTP request
  2. Validate input
  3. Call domain logic (aggregator, amount calculator, store)
  4. Serialize response
  5. Handle errors

ERROR HANDLING:
  Errors are returned as JSON with appropriate HTTP status:
  - 400: Validation errors, invalid input
  - 404: Resource not found
  - 409: Conflict (overpayment, invoice not open)
  - 500: Internal errors

SEE ALSO:
  - dto.go: Request/response data structures
  - export.go: XLSX rendering of the hour report
  - server.go: Router setup and middleware
*/
package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"

	"github.com/nachtwache/billing-engine/billing"
	"github.com/nachtwache/billing-engine/invoicing"
	"github.com/nachtwache/billing-engine/store/sqlite"
)

// =============================================================================
// HANDLER CONTEXT
// =============================================================================

// Handler holds all dependencies for HTTP handlers. The store is
// injected; handlers never reach for globals.
type Handler struct {
	Store *sqlite.Store
	Log   zerolog.Logger
}

// NewHandler creates a new handler with the given store.
func NewHandler(store *sqlite.Store, log zerolog.Logger) *Handler {
	return &Handler{Store: store, Log: log}
}

// Health reports liveness.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// =============================================================================
// COMPANY HANDLERS
// =============================================================================

// ListCompanies returns all companies ordered by name.
func (h *Handler) ListCompanies(w http.ResponseWriter, r *http.Request) {
	companies, err := h.Store.ListCompanies(r.Context())
	if err != nil {
		h.internal(w, "Failed to list companies", err)
		return
	}

	dtos := make([]CompanyDTO, len(companies))
	for i, c := range companies {
		dtos[i] = toCompanyDTO(c)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetCompany returns one company.
func (h *Handler) GetCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	c, err := h.Store.GetCompany(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Company not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to get company", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(c))
}

// CreateCompany creates a company. The federal state, when not given,
// is derived from the postal code; it decides the holiday calendar.
func (h *Handler) CreateCompany(w http.ResponseWriter, r *http.Request) {
	var dto CompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if dto.Name == "" {
		writeError(w, http.StatusBadRequest, "name is required", nil)
		return
	}

	c, err := fromCompanyDTO(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid company", err)
		return
	}
	if err := h.Store.CreateCompany(r.Context(), c); err != nil {
		h.internal(w, "Failed to create company", err)
		return
	}
	writeJSON(w, http.StatusCreated, toCompanyDTO(c))
}

// UpdateCompany replaces a company's fields.
func (h *Handler) UpdateCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var dto CompanyDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	c, err := fromCompanyDTO(dto)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid company", err)
		return
	}
	c.ID = id

	err = h.Store.UpdateCompany(r.Context(), c)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Company not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to update company", err)
		return
	}
	writeJSON(w, http.StatusOK, toCompanyDTO(c))
}

// DeleteCompany removes a company.
func (h *Handler) DeleteCompany(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	err := h.Store.DeleteCompany(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Company not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to delete company", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toCompanyDTO(c *sqlite.Company) CompanyDTO {
	dto := CompanyDTO{
		ID:                 c.ID,
		Name:               c.Name,
		CustomerNumber:     c.CustomerNumber,
		ContactPerson:      c.ContactPerson,
		Address:            c.Address,
		PostalCode:         c.PostalCode,
		City:               c.City,
		Email:              c.Email,
		Phone:              c.Phone,
		FederalState:       c.FederalState,
		HolidayTakeover:    c.HolidayTakeover,
		HolidayScheduleRef: c.HolidayScheduleRef,
		Schedule:           c.Schedule,
	}
	if c.EarlyTakeoverPrice != nil {
		dto.EarlyTakeoverPrice = c.EarlyTakeoverPrice.String()
	}
	return dto
}

func fromCompanyDTO(dto CompanyDTO) (*sqlite.Company, error) {
	c := &sqlite.Company{
		Name:               dto.Name,
		CustomerNumber:     dto.CustomerNumber,
		ContactPerson:      dto.ContactPerson,
		Address:            dto.Address,
		PostalCode:         dto.PostalCode,
		City:               dto.City,
		Email:              dto.Email,
		Phone:              dto.Phone,
		FederalState:       dto.FederalState,
		HolidayTakeover:    dto.HolidayTakeover,
		HolidayScheduleRef: dto.HolidayScheduleRef,
		Schedule:           dto.Schedule,
	}
	if c.Schedule == nil {
		c.Schedule = map[string]sqlite.ShiftTimes{}
	}
	// Reject malformed clock times up front instead of at report time.
	for _, times := range c.Schedule {
		if times.Start == "" && times.End == "" {
			continue
		}
		if _, err := billing.ParseClockTime(times.Start); err != nil {
			return nil, err
		}
		if _, err := billing.ParseClockTime(times.End); err != nil {
			return nil, err
		}
	}
	if c.FederalState == "" && c.PostalCode != "" {
		if state, ok := billing.StateFromPostalCode(c.PostalCode); ok {
			c.FederalState = state
		}
	}
	if dto.EarlyTakeoverPrice != "" {
		price, err := decimal.NewFromString(dto.EarlyTakeoverPrice)
		if err != nil {
			return nil, err
		}
		c.EarlyTakeoverPrice = &price
	}
	return c, nil
}

// =============================================================================
// TAKEOVER / COMPENSATION HANDLERS
// =============================================================================

// ListTakeovers returns a company's takeovers, optionally restricted to
// a ?start_date=&end_date= range.
func (h *Handler) ListTakeovers(w http.ResponseWriter, r *http.Request) {
	companyID, ok := idParam(w, r)
	if !ok {
		return
	}

	var (
		records []*sqlite.TakeoverRecord
		err     error
	)
	if period, ok, perr := periodQuery(r); perr != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", perr)
		return
	} else if ok {
		records, err = h.Store.TakeoversOverlapping(r.Context(), companyID, period)
	} else {
		records, err = h.Store.ListTakeovers(r.Context(), companyID)
	}
	if err != nil {
		h.internal(w, "Failed to list takeovers", err)
		return
	}

	dtos := make([]TakeoverDTO, len(records))
	for i, rec := range records {
		dtos[i] = TakeoverDTO{
			ID:        rec.ID,
			CompanyID: rec.CompanyID,
			StartDate: rec.StartDate.ISO(),
			EndDate:   rec.EndDate.ISO(),
			StartTime: rec.StartTime,
			EndTime:   rec.EndTime,
			Notes:     rec.Notes,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateTakeover creates an early-takeover override for a company.
func (h *Handler) CreateTakeover(w http.ResponseWriter, r *http.Request) {
	companyID, ok := idParam(w, r)
	if !ok {
		return
	}
	var dto TakeoverDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := billing.ParseDate(dto.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := billing.ParseDate(dto.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	if _, err := billing.NewPeriod(start, end); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}
	if _, err := billing.ParseClockTime(dto.StartTime); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_time (use HH:MM)", err)
		return
	}
	if _, err := billing.ParseClockTime(dto.EndTime); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_time (use HH:MM)", err)
		return
	}

	rec := &sqlite.TakeoverRecord{
		CompanyID: companyID,
		StartDate: start,
		EndDate:   end,
		StartTime: dto.StartTime,
		EndTime:   dto.EndTime,
		Notes:     dto.Notes,
	}
	if err := h.Store.CreateTakeover(r.Context(), rec); err != nil {
		h.internal(w, "Failed to create takeover", err)
		return
	}
	dto.ID = rec.ID
	dto.CompanyID = companyID
	writeJSON(w, http.StatusCreated, dto)
}

// DeleteTakeover removes a takeover.
func (h *Handler) DeleteTakeover(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	err := h.Store.DeleteTakeover(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Takeover not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to delete takeover", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// ListCompensations returns a company's hour compensations.
func (h *Handler) ListCompensations(w http.ResponseWriter, r *http.Request) {
	companyID, ok := idParam(w, r)
	if !ok {
		return
	}
	records, err := h.Store.ListCompensations(r.Context(), companyID)
	if err != nil {
		h.internal(w, "Failed to list compensations", err)
		return
	}

	dtos := make([]CompensationDTO, len(records))
	for i, rec := range records {
		dtos[i] = CompensationDTO{
			ID:         rec.ID,
			CompanyID:  rec.CompanyID,
			StartDate:  rec.StartDate.ISO(),
			EndDate:    rec.EndDate.ISO(),
			TotalHours: rec.TotalHours,
		}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateCompensation creates an hours compensation for a company.
func (h *Handler) CreateCompensation(w http.ResponseWriter, r *http.Request) {
	companyID, ok := idParam(w, r)
	if !ok {
		return
	}
	var dto CompensationDTO
	if err := json.NewDecoder(r.Body).Decode(&dto); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	start, err := billing.ParseDate(dto.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := billing.ParseDate(dto.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	if _, err := billing.NewPeriod(start, end); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	rec := &sqlite.CompensationRecord{
		CompanyID:  companyID,
		StartDate:  start,
		EndDate:    end,
		TotalHours: dto.TotalHours,
	}
	if err := h.Store.CreateCompensation(r.Context(), rec); err != nil {
		h.internal(w, "Failed to create compensation", err)
		return
	}
	dto.ID = rec.ID
	dto.CompanyID = companyID
	writeJSON(w, http.StatusCreated, dto)
}

// DeleteCompensation removes a compensation.
func (h *Handler) DeleteCompensation(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	err := h.Store.DeleteCompensation(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Compensation not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to delete compensation", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// =============================================================================
// HOLIDAY HANDLERS
// =============================================================================

// ListHolidays returns the holiday calendar for a state over a year
// range. GET /api/holidays?state=Bayern&year=2025&end_year=2026
func (h *Handler) ListHolidays(w http.ResponseWriter, r *http.Request) {
	state := r.URL.Query().Get("state")
	if state == "" {
		writeError(w, http.StatusBadRequest, "state is required", nil)
		return
	}
	year, err := strconv.Atoi(r.URL.Query().Get("year"))
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid year", err)
		return
	}
	endYear := year
	if s := r.URL.Query().Get("end_year"); s != "" {
		if endYear, err = strconv.Atoi(s); err != nil || endYear < year {
			writeError(w, http.StatusBadRequest, "Invalid end_year", err)
			return
		}
	}

	holidays := billing.HolidaysForStateRange(state, year, endYear)
	dtos := make([]HolidayDTO, len(holidays))
	for i, hol := range holidays {
		dtos[i] = HolidayDTO{Date: hol.Date.ISO(), Name: hol.Name}
	}
	writeJSON(w, http.StatusOK, dtos)
}

// =============================================================================
// REPORT HANDLERS
// =============================================================================

// HourReport builds the hour report for a company and period.
// POST /api/reports/hours
func (h *Handler) HourReport(w http.ResponseWriter, r *http.Request) {
	report, ok := h.buildReport(w, r.Context(), reportRequestFromBody(w, r))
	if !ok {
		return
	}
	writeJSON(w, http.StatusOK, report)
}

// CalculateHours returns the hours rollup used when creating an hourly
// invoice. POST /api/invoices/calculate-hours
func (h *Handler) CalculateHours(w http.ResponseWriter, r *http.Request) {
	req := reportRequestFromBody(w, r)
	if req == nil {
		return
	}
	company, period, input, ok := h.loadScheduleInput(w, r.Context(), *req)
	if !ok {
		return
	}

	entries, totals := billing.Aggregate(period, input)
	writeJSON(w, http.StatusOK, HoursResponse{
		CompanyID: company.ID,
		Period:    period.String(),
		Totals:    totals.Rounded(),
		Days:      len(entries),
	})
}

// reportRequestFromBody decodes and validates the shared report request.
// Returns nil after writing the error response on failure.
func reportRequestFromBody(w http.ResponseWriter, r *http.Request) *ReportRequest {
	var req ReportRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return nil
	}
	if req.CompanyID == 0 {
		writeError(w, http.StatusBadRequest, "company_id is required", nil)
		return nil
	}
	return &req
}

func (h *Handler) buildReport(w http.ResponseWriter, ctx context.Context, req *ReportRequest) (billing.HourReport, bool) {
	if req == nil {
		return billing.HourReport{}, false
	}
	company, period, input, ok := h.loadScheduleInput(w, ctx, *req)
	if !ok {
		return billing.HourReport{}, false
	}
	return billing.BuildHourReport(company.Name, period, input, req.HourlyRate), true
}

// loadScheduleInput loads the company and its overrides for a period
// and converts them into the aggregator's input.
func (h *Handler) loadScheduleInput(w http.ResponseWriter, ctx context.Context, req ReportRequest) (*sqlite.Company, billing.Period, billing.ScheduleInput, bool) {
	fail := func() (*sqlite.Company, billing.Period, billing.ScheduleInput, bool) {
		return nil, billing.Period{}, billing.ScheduleInput{}, false
	}

	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return fail()
	}
	end, err := billing.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return fail()
	}
	period, err := billing.NewPeriod(start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return fail()
	}

	company, err := h.Store.GetCompany(ctx, req.CompanyID)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Company not found", nil)
		return fail()
	}
	if err != nil {
		h.internal(w, "Failed to load company", err)
		return fail()
	}

	schedule, err := company.WeeklySchedule()
	if err != nil {
		h.internal(w, "Company schedule is malformed", err)
		return fail()
	}

	takeoverRecs, err := h.Store.TakeoversOverlapping(ctx, company.ID, period)
	if err != nil {
		h.internal(w, "Failed to load takeovers", err)
		return fail()
	}
	takeovers := make([]billing.Takeover, len(takeoverRecs))
	for i, rec := range takeoverRecs {
		if takeovers[i], err = rec.Takeover(); err != nil {
			h.internal(w, "Takeover record is malformed", err)
			return fail()
		}
	}

	compRecs, err := h.Store.CompensationsOverlapping(ctx, company.ID, period)
	if err != nil {
		h.internal(w, "Failed to load compensations", err)
		return fail()
	}
	comps := make([]billing.Compensation, len(compRecs))
	for i, rec := range compRecs {
		if comps[i], err = rec.Compensation(); err != nil {
			h.internal(w, "Compensation record is malformed", err)
			return fail()
		}
	}

	return company, period, billing.ScheduleInput{
		Schedule:      schedule,
		Takeovers:     takeovers,
		Compensations: comps,
	}, true
}

// =============================================================================
// INVOICE HANDLERS
// =============================================================================

// ListInvoices returns invoices with optional ?status= and ?company_id=
// filters. Status "open" includes partially paid invoices.
func (h *Handler) ListInvoices(w http.ResponseWriter, r *http.Request) {
	var companyID int64
	if s := r.URL.Query().Get("company_id"); s != "" {
		id, err := strconv.ParseInt(s, 10, 64)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid company_id", err)
			return
		}
		companyID = id
	}

	invoices, err := h.Store.ListInvoices(r.Context(), r.URL.Query().Get("status"), companyID)
	if err != nil {
		h.internal(w, "Failed to list invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// GetInvoice returns one invoice with its payments.
func (h *Handler) GetInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	inv, err := h.Store.GetInvoice(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to get invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// CreateInvoice creates an invoice. Amounts are always computed server
// side; the company's takeover rate is snapshotted onto the invoice
// when takeover hours are billed.
func (h *Handler) CreateInvoice(w http.ResponseWriter, r *http.Request) {
	var req InvoiceRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	billingType := invoicing.BillingType(req.BillingType)
	if !billingType.Valid() {
		writeError(w, http.StatusBadRequest, "Invalid billing_type", invoicing.ErrInvalidBillingType)
		return
	}

	company, err := h.Store.GetCompany(r.Context(), req.CompanyID)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Company not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to load company", err)
		return
	}

	invoiceDate, err := billing.ParseDate(req.InvoiceDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid invoice_date (use YYYY-MM-DD)", err)
		return
	}
	dueDate, err := billing.ParseDate(req.DueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid due_date (use YYYY-MM-DD)", err)
		return
	}
	start, err := billing.ParseDate(req.StartDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid start_date (use YYYY-MM-DD)", err)
		return
	}
	end, err := billing.ParseDate(req.EndDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid end_date (use YYYY-MM-DD)", err)
		return
	}
	period, err := billing.NewPeriod(start, end)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid period", err)
		return
	}

	money := func(s string) (decimal.Decimal, error) {
		if s == "" {
			return decimal.Zero, nil
		}
		return decimal.NewFromString(s)
	}
	input := invoicing.AmountInput{
		BillingType:   billingType,
		TotalHours:    req.TotalHours,
		CountPKW:      req.CountPKW,
		CountLKW:      req.CountLKW,
		CountOilspill: req.CountOilspill,
		TakeoverHours: req.TakeoverHours,
	}
	for _, f := range []struct {
		dst *decimal.Decimal
		src string
	}{
		{&input.HourlyRate, req.HourlyRate},
		{&input.PricePKW, req.PricePKW},
		{&input.PriceLKW, req.PriceLKW},
		{&input.PriceOilspill, req.PriceOilspill},
		{&input.ServiceFee, req.ServiceFee},
		{&input.MonthlyRate, req.MonthlyRate},
		{&input.TaxRate, req.TaxRate},
	} {
		if *f.dst, err = money(f.src); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid amount", err)
			return
		}
	}
	if req.TakeoverHours > 0 {
		input.TakeoverRate = company.EarlyTakeoverPrice
	}

	amounts, err := invoicing.Calculate(input)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Failed to calculate amounts", err)
		return
	}

	inv := &invoicing.Invoice{
		CompanyID:     company.ID,
		InvoiceDate:   invoiceDate,
		DueDate:       dueDate,
		Period:        period,
		BillingType:   billingType,
		TotalHours:    req.TotalHours,
		HourlyRate:    input.HourlyRate,
		CountPKW:      req.CountPKW,
		CountLKW:      req.CountLKW,
		CountOilspill: req.CountOilspill,
		PricePKW:      input.PricePKW,
		PriceLKW:      input.PriceLKW,
		PriceOilspill: input.PriceOilspill,
		ServiceFee:    input.ServiceFee,
		MonthlyRate:   input.MonthlyRate,
		TakeoverHours: req.TakeoverHours,
		TakeoverRate:  input.TakeoverRate,
		Subtotal:      amounts.Subtotal,
		TaxRate:       amounts.TaxRate,
		TaxAmount:     amounts.TaxAmount,
		TotalAmount:   amounts.TotalAmount,
		Status:        invoicing.StatusOpen,
		Notes:         req.Notes,
		CreatedBy:     req.CreatedBy,
	}
	if err := h.Store.CreateInvoice(r.Context(), inv); err != nil {
		h.internal(w, "Failed to create invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// UpdateInvoice updates status and notes.
// PUT /api/invoices/{id} {"status": "paid", "paid_date": "...", "notes": "..."}
func (h *Handler) UpdateInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req struct {
		Status   string `json:"status"`
		PaidDate string `json:"paid_date,omitempty"`
		Notes    string `json:"notes,omitempty"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	status := invoicing.Status(req.Status)
	switch status {
	case invoicing.StatusOpen, invoicing.StatusPartial, invoicing.StatusPaid:
	default:
		writeError(w, http.StatusBadRequest, "Invalid status", nil)
		return
	}
	var paidDate *billing.Date
	if req.PaidDate != "" {
		d, err := billing.ParseDate(req.PaidDate)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid paid_date (use YYYY-MM-DD)", err)
			return
		}
		paidDate = &d
	}

	err := h.Store.UpdateInvoiceStatus(r.Context(), id, status, paidDate, req.Notes)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to update invoice", err)
		return
	}

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if err != nil {
		h.internal(w, "Failed to reload invoice", err)
		return
	}
	writeJSON(w, http.StatusOK, toInvoiceDTO(inv))
}

// DeleteInvoice removes an invoice with its payments and dunnings.
func (h *Handler) DeleteInvoice(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	err := h.Store.DeleteInvoice(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to delete invoice", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// RecordPayment records a payment against an invoice and moves its
// status along open -> partial -> paid. Overpayment is rejected.
func (h *Handler) RecordPayment(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req PaymentRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	amount, err := decimal.NewFromString(req.Amount)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid amount", err)
		return
	}
	date, err := billing.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid payment_date (use YYYY-MM-DD)", err)
		return
	}

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to load invoice", err)
		return
	}

	payment := invoicing.Payment{
		InvoiceID: id,
		Amount:    amount,
		Date:      date,
		Method:    req.Method,
		Notes:     req.Notes,
		CreatedBy: req.CreatedBy,
	}
	if err := invoicing.ApplyPayment(inv, payment); err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, invoicing.ErrPaymentExceedsOpen) {
			status = http.StatusConflict
		}
		writeError(w, status, "Payment rejected", err)
		return
	}
	if err := h.Store.RecordPayment(r.Context(), &payment, inv.Status, inv.PaidDate); err != nil {
		h.internal(w, "Failed to record payment", err)
		return
	}

	inv, err = h.Store.GetInvoice(r.Context(), id)
	if err != nil {
		h.internal(w, "Failed to reload invoice", err)
		return
	}
	writeJSON(w, http.StatusCreated, toInvoiceDTO(inv))
}

// ListOverdueInvoices returns open invoices past their due date.
// GET /api/invoices/overdue?date=YYYY-MM-DD (defaults to today)
func (h *Handler) ListOverdueInvoices(w http.ResponseWriter, r *http.Request) {
	today := billing.Today()
	if s := r.URL.Query().Get("date"); s != "" {
		d, err := billing.ParseDate(s)
		if err != nil {
			writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
			return
		}
		today = d
	}

	invoices, err := h.Store.ListOverdueInvoices(r.Context(), today)
	if err != nil {
		h.internal(w, "Failed to list overdue invoices", err)
		return
	}

	dtos := make([]InvoiceDTO, len(invoices))
	for i, inv := range invoices {
		dtos[i] = toInvoiceDTO(inv)
	}
	writeJSON(w, http.StatusOK, dtos)
}

// CreateDunning issues a dunning notice against an overdue invoice.
func (h *Handler) CreateDunning(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req DunningRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	date, err := billing.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid dunning_date (use YYYY-MM-DD)", err)
		return
	}
	newDue, err := billing.ParseDate(req.NewDueDate)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid new_due_date (use YYYY-MM-DD)", err)
		return
	}
	fee := decimal.Zero
	if req.Fee != "" {
		if fee, err = decimal.NewFromString(req.Fee); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid fee_amount", err)
			return
		}
	}

	inv, err := h.Store.GetInvoice(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Invoice not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to load invoice", err)
		return
	}

	dunning, err := invoicing.NewDunning(*inv, req.Level, date, newDue, fee)
	if err != nil {
		status := http.StatusBadRequest
		if errors.Is(err, invoicing.ErrInvoiceNotOpen) {
			status = http.StatusConflict
		}
		writeError(w, status, "Dunning rejected", err)
		return
	}
	dunning.CreatedBy = req.CreatedBy
	if err := h.Store.CreateDunning(r.Context(), &dunning); err != nil {
		h.internal(w, "Failed to create dunning", err)
		return
	}

	writeJSON(w, http.StatusCreated, toDunningDTO(dunning))
}

// ListDunnings returns an invoice's dunning notices.
func (h *Handler) ListDunnings(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	dunnings, err := h.Store.ListDunnings(r.Context(), id)
	if err != nil {
		h.internal(w, "Failed to list dunnings", err)
		return
	}

	dtos := make([]DunningDTO, len(dunnings))
	for i, d := range dunnings {
		dtos[i] = toDunningDTO(d)
	}
	writeJSON(w, http.StatusOK, dtos)
}

func toInvoiceDTO(inv *invoicing.Invoice) InvoiceDTO {
	dto := InvoiceDTO{
		ID:            inv.ID,
		Number:        inv.Number,
		CompanyID:     inv.CompanyID,
		InvoiceDate:   inv.InvoiceDate.ISO(),
		DueDate:       inv.DueDate.ISO(),
		PeriodStart:   inv.Period.Start.ISO(),
		PeriodEnd:     inv.Period.End.ISO(),
		BillingType:   string(inv.BillingType),
		TotalHours:    inv.TotalHours,
		TakeoverHours: inv.TakeoverHours,
		Subtotal:      inv.Subtotal.String(),
		TaxRate:       inv.TaxRate.String(),
		TaxAmount:     inv.TaxAmount.String(),
		TotalAmount:   inv.TotalAmount.String(),
		Status:        string(inv.Status),
		DunningLevel:  inv.DunningLevel,
		TotalPaid:     inv.TotalPaid().String(),
		OpenAmount:    inv.OpenAmount().String(),
		Notes:         inv.Notes,
	}
	if !inv.HourlyRate.IsZero() {
		dto.HourlyRate = inv.HourlyRate.String()
	}
	if inv.TakeoverRate != nil {
		dto.TakeoverRate = inv.TakeoverRate.String()
	}
	if inv.PaidDate != nil {
		dto.PaidDate = inv.PaidDate.ISO()
	}
	for _, p := range inv.Payments {
		dto.Payments = append(dto.Payments, PaymentDTO{
			ID:     p.ID,
			Amount: p.Amount.String(),
			Date:   p.Date.ISO(),
			Method: p.Method,
			Notes:  p.Notes,
		})
	}
	return dto
}

func toDunningDTO(d invoicing.Dunning) DunningDTO {
	return DunningDTO{
		ID:         d.ID,
		InvoiceID:  d.InvoiceID,
		Level:      d.Level,
		Date:       d.Date.ISO(),
		NewDueDate: d.NewDueDate.ISO(),
		Fee:        d.Fee.String(),
	}
}

// =============================================================================
// TIME ENTRY HANDLERS
// =============================================================================

// ListTimeEntries returns clock records with a summary.
// GET /api/time-entries?company_id=&start_date=&end_date=&user_name=
func (h *Handler) ListTimeEntries(w http.ResponseWriter, r *http.Request) {
	companyID, err := strconv.ParseInt(r.URL.Query().Get("company_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "company_id is required", err)
		return
	}

	var period *billing.Period
	if p, ok, perr := periodQuery(r); perr != nil {
		writeError(w, http.StatusBadRequest, "Invalid date range", perr)
		return
	} else if ok {
		period = &p
	}

	entries, err := h.Store.ListTimeEntries(r.Context(), companyID, period, r.URL.Query().Get("user_name"))
	if err != nil {
		h.internal(w, "Failed to list time entries", err)
		return
	}

	resp := TimeEntryListResponse{Entries: []TimeEntryDTO{}}
	days := map[string]bool{}
	for _, e := range entries {
		resp.Entries = append(resp.Entries, toTimeEntryDTO(e))
		if e.TotalHours != nil {
			resp.Summary.TotalHours = billing.Round2(resp.Summary.TotalHours + *e.TotalHours)
		}
		days[e.Date.ISO()] = true
	}
	resp.Summary.Days = len(days)
	resp.Summary.Entries = len(entries)
	writeJSON(w, http.StatusOK, resp)
}

// CreateTimeEntry opens a clock record.
func (h *Handler) CreateTimeEntry(w http.ResponseWriter, r *http.Request) {
	var req TimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}
	if req.CompanyID == 0 || req.UserName == "" {
		writeError(w, http.StatusBadRequest, "company_id and user_name are required", nil)
		return
	}
	date, err := billing.ParseDate(req.Date)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid date (use YYYY-MM-DD)", err)
		return
	}

	entry := &sqlite.TimeEntry{
		CompanyID:    req.CompanyID,
		UserName:     req.UserName,
		Date:         date,
		StartTime:    req.StartTime,
		EndTime:      req.EndTime,
		PauseMinutes: req.PauseMinutes,
		Notes:        req.Notes,
	}
	if err := h.Store.CreateTimeEntry(r.Context(), entry); err != nil {
		if errors.Is(err, billing.ErrInvalidTimeFormat) {
			writeError(w, http.StatusBadRequest, "Invalid clock time (use HH:MM)", err)
			return
		}
		h.internal(w, "Failed to create time entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, toTimeEntryDTO(entry))
}

// CompleteTimeEntry closes an open clock record and computes its hours.
func (h *Handler) CompleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	var req CompleteTimeEntryRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body", err)
		return
	}

	entry, err := h.Store.CompleteTimeEntry(r.Context(), id, req.EndTime, req.PauseMinutes)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Time entry not found", nil)
		return
	}
	if errors.Is(err, billing.ErrInvalidTimeFormat) {
		writeError(w, http.StatusBadRequest, "Invalid clock time (use HH:MM)", err)
		return
	}
	if err != nil {
		h.internal(w, "Failed to complete time entry", err)
		return
	}
	writeJSON(w, http.StatusOK, toTimeEntryDTO(entry))
}

// DeleteTimeEntry removes a clock record.
func (h *Handler) DeleteTimeEntry(w http.ResponseWriter, r *http.Request) {
	id, ok := idParam(w, r)
	if !ok {
		return
	}
	err := h.Store.DeleteTimeEntry(r.Context(), id)
	if errors.Is(err, sqlite.ErrNotFound) {
		writeError(w, http.StatusNotFound, "Time entry not found", nil)
		return
	}
	if err != nil {
		h.internal(w, "Failed to delete time entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func toTimeEntryDTO(e *sqlite.TimeEntry) TimeEntryDTO {
	return TimeEntryDTO{
		ID:           e.ID,
		CompanyID:    e.CompanyID,
		UserName:     e.UserName,
		Date:         e.Date.ISO(),
		StartTime:    e.StartTime,
		EndTime:      e.EndTime,
		PauseMinutes: e.PauseMinutes,
		TotalHours:   e.TotalHours,
		Notes:        e.Notes,
		Completed:    e.Completed,
	}
}

// =============================================================================
// HELPERS
// =============================================================================

func idParam(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, "id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "Invalid id", err)
		return 0, false
	}
	return id, true
}

// periodQuery reads the optional ?start_date=&end_date= pair. Both must
// be present for the filter to apply.
func periodQuery(r *http.Request) (billing.Period, bool, error) {
	startStr := r.URL.Query().Get("start_date")
	endStr := r.URL.Query().Get("end_date")
	if startStr == "" || endStr == "" {
		return billing.Period{}, false, nil
	}
	start, err := billing.ParseDate(startStr)
	if err != nil {
		return billing.Period{}, false, err
	}
	end, err := billing.ParseDate(endStr)
	if err != nil {
		return billing.Period{}, false, err
	}
	period, err := billing.NewPeriod(start, end)
	if err != nil {
		return billing.Period{}, false, err
	}
	return period, true, nil
}

func (h *Handler) internal(w http.ResponseWriter, message string, err error) {
	h.Log.Error().Err(err).Msg(message)
	writeError(w, http.StatusInternalServerError, message, err)
}

func writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(data)
}

func writeError(w http.ResponseWriter, status int, message string, err error) {
	resp := ErrorResponse{Error: message}
	if err != nil {
		resp.Details = err.Error()
	}
	writeJSON(w, status, resp)
}
