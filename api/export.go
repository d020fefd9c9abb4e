/*
export.go - Spreadsheet rendering of the hour report

  Renders the hour report as an XLSX workbook for the office staff who
  reconcile reports against client confirmations in Excel. Layout
  mirrors the printed report: header block, one row per billable day,
  totals block at the bottom.
*/
package api

import (
	"fmt"
	"net/http"
	"strconv"

	"github.com/xuri/excelize/v2"

	"github.com/nachtwache/billing-engine/billing"
)

// HourReportXLSX renders the hour report as a spreadsheet download.
// GET /api/reports/hours/xlsx?company_id=&start_date=&end_date=&hourly_rate=
func (h *Handler) HourReportXLSX(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	companyID, err := strconv.ParseInt(q.Get("company_id"), 10, 64)
	if err != nil {
		writeError(w, http.StatusBadRequest, "company_id is required", err)
		return
	}
	var hourlyRate float64
	if s := q.Get("hourly_rate"); s != "" {
		if hourlyRate, err = strconv.ParseFloat(s, 64); err != nil {
			writeError(w, http.StatusBadRequest, "Invalid hourly_rate", err)
			return
		}
	}

	req := &ReportRequest{
		CompanyID:  companyID,
		StartDate:  q.Get("start_date"),
		EndDate:    q.Get("end_date"),
		HourlyRate: hourlyRate,
	}
	report, ok := h.buildReport(w, r.Context(), req)
	if !ok {
		return
	}

	f, err := renderHourReportXLSX(report)
	if err != nil {
		h.internal(w, "Failed to render spreadsheet", err)
		return
	}
	defer f.Close()

	filename := fmt.Sprintf("stundenreport_%d_%s.xlsx", report.Year, q.Get("start_date"))
	w.Header().Set("Content-Type",
		"application/vnd.openxmlformats-officedocument.spreadsheetml.sheet")
	w.Header().Set("Content-Disposition", `attachment; filename="`+filename+`"`)
	if _, err := f.WriteTo(w); err != nil {
		h.Log.Error().Err(err).Msg("Failed to write spreadsheet response")
	}
}

func renderHourReportXLSX(report billing.HourReport) (*excelize.File, error) {
	f := excelize.NewFile()
	const sheet = "Stundenreport"
	f.SetSheetName("Sheet1", sheet)

	bold, err := f.NewStyle(&excelize.Style{Font: &excelize.Font{Bold: true}})
	if err != nil {
		return nil, err
	}

	// Header block
	f.SetCellValue(sheet, "A1", "Stundenreport")
	f.SetCellValue(sheet, "A2", report.CompanyName)
	f.SetCellValue(sheet, "A3", report.Period)
	f.SetCellStyle(sheet, "A1", "A1", bold)

	// Column headers
	headers := []string{"Datum", "Wochentag", "Beginn", "Ende", "Stunden", "Bemerkung"}
	for i, head := range headers {
		cell, err := excelize.CoordinatesToCellName(i+1, 5)
		if err != nil {
			return nil, err
		}
		f.SetCellValue(sheet, cell, head)
		f.SetCellStyle(sheet, cell, cell, bold)
	}

	// One row per billable day
	row := 6
	for _, entry := range report.Entries {
		remark := ""
		switch {
		case entry.IsTakeover:
			remark = entry.TakeoverNote
		case entry.IsHoliday:
			remark = entry.HolidayName
		}
		values := []any{entry.Date, entry.Weekday, entry.StartTime, entry.EndTime, entry.Hours, remark}
		for i, v := range values {
			cell, err := excelize.CoordinatesToCellName(i+1, row)
			if err != nil {
				return nil, err
			}
			f.SetCellValue(sheet, cell, v)
		}
		row++
	}

	// Totals block
	row++
	totals := []struct {
		label string
		value float64
	}{
		{"Gesamtstunden", report.Totals.Total},
		{"Reguläre Stunden", report.Totals.Regular},
		{"Übernahmestunden", report.Totals.Takeover},
		{"Feiertagsstunden", report.Totals.Holiday},
		{"Benötigte Mitarbeiter", report.EmployeesNeeded},
	}
	for _, t := range totals {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), t.label)
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), t.value)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), bold)
		row++
	}
	if report.HourlyRate > 0 {
		f.SetCellValue(sheet, fmt.Sprintf("A%d", row), "Kostenprognose")
		f.SetCellValue(sheet, fmt.Sprintf("E%d", row), report.CostProjection)
		f.SetCellStyle(sheet, fmt.Sprintf("A%d", row), fmt.Sprintf("A%d", row), bold)
	}

	f.SetColWidth(sheet, "A", "A", 14)
	f.SetColWidth(sheet, "B", "D", 12)
	f.SetColWidth(sheet, "F", "F", 28)

	return f, nil
}
