/*
handlers_test.go - Unit tests for API handlers

Tests for:
- Company creation with postal-code state derivation
- Hour report over a takeover/holiday week
- Invoice creation with server-side amounts and takeover snapshot
- Payment flow and overpayment rejection
- Dunning against overdue invoices
- Time entry clock-in/clock-out
*/
package api

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nachtwache/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestServer(t *testing.T) (*httptest.Server, *sqlite.Store) {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	handler := NewHandler(store, zerolog.Nop())
	srv := httptest.NewServer(NewRouter(handler))
	t.Cleanup(srv.Close)
	return srv, store
}

func doJSON(t *testing.T, method, url string, body any, out any) *http.Response {
	t.Helper()

	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req, err := http.NewRequest(method, url, &buf)
	require.NoError(t, err)
	req.Header.Set("Content-Type", "application/json")

	resp, err := http.DefaultClient.Do(req)
	require.NoError(t, err)
	t.Cleanup(func() { resp.Body.Close() })

	if out != nil {
		require.NoError(t, json.NewDecoder(resp.Body).Decode(out))
	}
	return resp
}

func createTestCompany(t *testing.T, srv *httptest.Server) CompanyDTO {
	body := CompanyDTO{
		Name:               "Autohaus Müller GmbH",
		PostalCode:         "80331", // München -> Bayern
		EarlyTakeoverPrice: "25.50",
		HolidayTakeover:    true,
		Schedule: map[string]sqlite.ShiftTimes{
			"monday":    {Start: "22:00", End: "06:00"},
			"tuesday":   {Start: "22:00", End: "06:00"},
			"wednesday": {Start: "22:00", End: "06:00"},
			"thursday":  {Start: "22:00", End: "06:00"},
			"friday":    {Start: "22:00", End: "06:00"},
			"saturday":  {Start: "20:00", End: "06:00"},
			"sunday":    {Start: "20:00", End: "06:00"},
		},
	}

	var created CompanyDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/companies", body, &created)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	return created
}

// =============================================================================
// COMPANY TESTS
// =============================================================================

func TestCreateCompany_DerivesFederalState(t *testing.T) {
	// GIVEN: A company with a Munich postal code and no federal state
	// WHEN: Creating it
	// THEN: The state is derived as Bayern and drives the holiday calendar

	srv, _ := newTestServer(t)

	created := createTestCompany(t, srv)
	assert.Equal(t, "Bayern", created.FederalState)
	assert.NotZero(t, created.ID)
	assert.Equal(t, "sunday", created.HolidayScheduleRef)

	var fetched CompanyDTO
	resp := doJSON(t, http.MethodGet, fmt.Sprintf("%s/api/companies/%d", srv.URL, created.ID), nil, &fetched)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, created.Name, fetched.Name)
	assert.Equal(t, "25.5", fetched.EarlyTakeoverPrice)
}

func TestCreateCompany_RejectsBadClockTime(t *testing.T) {
	srv, _ := newTestServer(t)

	body := CompanyDTO{
		Name: "Kaputt GmbH",
		Schedule: map[string]sqlite.ShiftTimes{
			"monday": {Start: "22:0", End: "06:00"},
		},
	}
	var errResp ErrorResponse
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/companies", body, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
	assert.NotEmpty(t, errResp.Error)
}

// =============================================================================
// REPORT TESTS
// =============================================================================

func TestHourReport_TakeoverBeatsHoliday(t *testing.T) {
	// GIVEN: A Bayern company with nightly 8h shifts and a takeover from
	//        18:00 covering Pfingstmontag (2025-06-09)
	// WHEN: Reporting that week
	// THEN: June 9 bills 12 takeover hours, the other six days 8h/10h
	//       regular hours

	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	takeover := TakeoverDTO{
		StartDate: "2025-06-09",
		EndDate:   "2025-06-09",
		StartTime: "18:00",
		EndTime:   "06:00",
	}
	resp := doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/companies/%d/takeovers", srv.URL, company.ID), takeover, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var report struct {
		Entries []struct {
			Date         string  `json:"date"`
			Hours        float64 `json:"hours"`
			IsTakeover   bool    `json:"is_takeover"`
			IsHoliday    bool    `json:"is_holiday"`
			TakeoverNote string  `json:"takeover_note"`
		} `json:"entries"`
		Totals struct {
			Total    float64 `json:"total_hours"`
			Takeover float64 `json:"takeover_hours"`
		} `json:"totals"`
	}
	resp = doJSON(t, http.MethodPost, srv.URL+"/api/reports/hours", ReportRequest{
		CompanyID: company.ID,
		StartDate: "2025-06-09",
		EndDate:   "2025-06-15",
	}, &report)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	require.Len(t, report.Entries, 7)
	monday := report.Entries[0]
	assert.Equal(t, "09.06.2025", monday.Date)
	assert.True(t, monday.IsTakeover)
	assert.False(t, monday.IsHoliday)
	assert.Equal(t, 12.0, monday.Hours)
	assert.Equal(t, "Frühzeitige Übernahme", monday.TakeoverNote)

	// Tue-Fri 8h, Sat+Sun 10h, Mon 12h
	assert.Equal(t, 64.0, report.Totals.Total)
	assert.Equal(t, 12.0, report.Totals.Takeover)
}

func TestCalculateHours_Rollup(t *testing.T) {
	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	var rollup HoursResponse
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices/calculate-hours", ReportRequest{
		CompanyID: company.ID,
		StartDate: "2025-03-03",
		EndDate:   "2025-03-09",
	}, &rollup)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	// Five 8h weeknights plus two 10h weekend nights, no holidays that week
	assert.Equal(t, 60.0, rollup.Totals.Total)
	assert.Equal(t, 60.0, rollup.Totals.Regular)
	assert.Equal(t, 7, rollup.Days)
	assert.Equal(t, "03.03.2025 - 09.03.2025", rollup.Period)
}

func TestHourReportXLSX_Download(t *testing.T) {
	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	url := fmt.Sprintf("%s/api/reports/hours/xlsx?company_id=%d&start_date=2025-03-03&end_date=2025-03-09",
		srv.URL, company.ID)
	resp, err := http.Get(url)
	require.NoError(t, err)
	defer resp.Body.Close()

	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t,
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet",
		resp.Header.Get("Content-Type"))
	assert.Contains(t, resp.Header.Get("Content-Disposition"), "stundenreport_2025")
}

// =============================================================================
// INVOICE TESTS
// =============================================================================

func TestCreateInvoice_HourlyWithTakeoverSurcharge(t *testing.T) {
	// GIVEN: 160 regular hours at 18.50 and 4 takeover hours, company
	//        rate 25.50
	// WHEN: Creating the invoice
	// THEN: subtotal 3062, tax 581.78, total 3643.78, number RE-2025-0001

	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	var inv InvoiceDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", InvoiceRequest{
		CompanyID:     company.ID,
		InvoiceDate:   "2025-02-01",
		DueDate:       "2025-02-15",
		StartDate:     "2025-01-01",
		EndDate:       "2025-01-31",
		BillingType:   "hourly",
		TotalHours:    160,
		HourlyRate:    "18.50",
		TakeoverHours: 4,
	}, &inv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	assert.Equal(t, "RE-2025-0001", inv.Number)
	assert.Equal(t, "25.5", inv.TakeoverRate)
	// 160*18.50 + 4*25.50 = 2960 + 102 = 3062
	assert.Equal(t, "3062", inv.Subtotal)
	assert.Equal(t, "581.78", inv.TaxAmount)
	assert.Equal(t, "3643.78", inv.TotalAmount)
	assert.Equal(t, "open", inv.Status)
}

func TestCreateInvoice_RejectsUnknownBillingType(t *testing.T) {
	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	var errResp ErrorResponse
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", InvoiceRequest{
		CompanyID:   company.ID,
		InvoiceDate: "2025-02-01",
		DueDate:     "2025-02-15",
		StartDate:   "2025-01-01",
		EndDate:     "2025-01-31",
		BillingType: "per_hour",
	}, &errResp)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)
}

func TestRecordPayment_FlowAndOverpayment(t *testing.T) {
	// GIVEN: A flat-rate invoice over 1190 total
	// WHEN: Paying 1000, then trying 500, then paying the 190 remainder
	// THEN: partial -> 409 conflict -> paid

	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	var inv InvoiceDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", InvoiceRequest{
		CompanyID:   company.ID,
		InvoiceDate: "2025-04-01",
		DueDate:     "2025-04-15",
		StartDate:   "2025-04-01",
		EndDate:     "2025-04-30",
		BillingType: "flat_rate",
		MonthlyRate: "1000.00",
	}, &inv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	require.Equal(t, "1190", inv.TotalAmount)

	payURL := fmt.Sprintf("%s/api/invoices/%d/payments", srv.URL, inv.ID)

	var afterFirst InvoiceDTO
	resp = doJSON(t, http.MethodPost, payURL, PaymentRequest{
		Amount: "1000.00", Date: "2025-04-20",
	}, &afterFirst)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "partial", afterFirst.Status)
	assert.Equal(t, "190", afterFirst.OpenAmount)

	var errResp ErrorResponse
	resp = doJSON(t, http.MethodPost, payURL, PaymentRequest{
		Amount: "500.00", Date: "2025-04-21",
	}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)

	var settled InvoiceDTO
	resp = doJSON(t, http.MethodPost, payURL, PaymentRequest{
		Amount: "190.00", Date: "2025-04-22",
	}, &settled)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, "paid", settled.Status)
	assert.Equal(t, "2025-04-22", settled.PaidDate)
	require.Len(t, settled.Payments, 2)
}

func TestDunning_OnlyAgainstOpenInvoices(t *testing.T) {
	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	var inv InvoiceDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", InvoiceRequest{
		CompanyID:   company.ID,
		InvoiceDate: "2025-01-10",
		DueDate:     "2025-01-24",
		StartDate:   "2025-01-01",
		EndDate:     "2025-01-31",
		BillingType: "flat_rate",
		MonthlyRate: "500.00",
	}, &inv)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	// Shows up as overdue well past the due date
	var overdue []InvoiceDTO
	resp = doJSON(t, http.MethodGet, srv.URL+"/api/invoices/overdue?date=2025-03-01", nil, &overdue)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.Len(t, overdue, 1)

	var dunning DunningDTO
	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/invoices/%d/dunnings", srv.URL, inv.ID), DunningRequest{
			Level: 1, Date: "2025-03-01", NewDueDate: "2025-03-15", Fee: "5.00",
		}, &dunning)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.Equal(t, 1, dunning.Level)

	// Settle the invoice, further dunning must be rejected
	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/invoices/%d/payments", srv.URL, inv.ID), PaymentRequest{
			Amount: "595", Date: "2025-03-05",
		}, nil)
	require.Equal(t, http.StatusCreated, resp.StatusCode)

	var errResp ErrorResponse
	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/invoices/%d/dunnings", srv.URL, inv.ID), DunningRequest{
			Level: 2, Date: "2025-03-20", NewDueDate: "2025-04-01",
		}, &errResp)
	assert.Equal(t, http.StatusConflict, resp.StatusCode)
}

func TestListInvoices_OpenIncludesPartial(t *testing.T) {
	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	mk := func(month int) InvoiceDTO {
		var inv InvoiceDTO
		resp := doJSON(t, http.MethodPost, srv.URL+"/api/invoices", InvoiceRequest{
			CompanyID:   company.ID,
			InvoiceDate: fmt.Sprintf("2025-%02d-01", month),
			DueDate:     fmt.Sprintf("2025-%02d-15", month),
			StartDate:   fmt.Sprintf("2025-%02d-01", month),
			EndDate:     fmt.Sprintf("2025-%02d-28", month),
			BillingType: "flat_rate",
			MonthlyRate: "100.00",
		}, &inv)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
		return inv
	}
	mk(1)
	second := mk(2)
	third := mk(3)

	pay := func(inv InvoiceDTO, amount string) {
		resp := doJSON(t, http.MethodPost,
			fmt.Sprintf("%s/api/invoices/%d/payments", srv.URL, inv.ID), PaymentRequest{
				Amount: amount, Date: "2025-04-01",
			}, nil)
		require.Equal(t, http.StatusCreated, resp.StatusCode)
	}
	pay(second, "50.00") // partial
	pay(third, "119.00") // paid

	var open []InvoiceDTO
	resp := doJSON(t, http.MethodGet, srv.URL+"/api/invoices?status=open", nil, &open)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Len(t, open, 2)
}

// =============================================================================
// TIME ENTRY TESTS
// =============================================================================

func TestTimeEntries_ClockInClockOut(t *testing.T) {
	srv, _ := newTestServer(t)
	company := createTestCompany(t, srv)

	var entry TimeEntryDTO
	resp := doJSON(t, http.MethodPost, srv.URL+"/api/time-entries", TimeEntryRequest{
		CompanyID: company.ID,
		UserName:  "m.weber",
		Date:      "2025-07-14",
		StartTime: "22:00",
	}, &entry)
	require.Equal(t, http.StatusCreated, resp.StatusCode)
	assert.False(t, entry.Completed)

	var done TimeEntryDTO
	resp = doJSON(t, http.MethodPost,
		fmt.Sprintf("%s/api/time-entries/%d/complete", srv.URL, entry.ID),
		CompleteTimeEntryRequest{EndTime: "06:00", PauseMinutes: 30}, &done)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	require.NotNil(t, done.TotalHours)
	assert.Equal(t, 7.5, *done.TotalHours)

	var list TimeEntryListResponse
	resp = doJSON(t, http.MethodGet,
		fmt.Sprintf("%s/api/time-entries?company_id=%d", srv.URL, company.ID), nil, &list)
	require.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Equal(t, 7.5, list.Summary.TotalHours)
	assert.Equal(t, 1, list.Summary.Days)
}
