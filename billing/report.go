/*
report.go - Period Aggregator

PURPOSE:
  Orchestrates holiday lookup, day resolution, shift-length arithmetic
  and compensation distribution over every calendar date in a period.
  Produces the per-day entry list consumed by the hour report and the
  rollup totals consumed by invoice creation.

  Iteration is date-by-date in ascending order. The computation is pure:
  running it twice with identical inputs yields identical output.
*/
package billing

// ReportHoursPerEmployee is the monthly hours figure used to derive the
// informational "employees needed" number on the hour report.
const ReportHoursPerEmployee = 160

// ScheduleInput bundles everything the aggregator needs about one
// company. Takeovers must be ordered by (start date, id); compensations
// carry no ordering requirement.
type ScheduleInput struct {
	Schedule      WeeklySchedule
	Takeovers     []Takeover
	Compensations []Compensation
}

// DayEntry is one billable day of an hour report. Entries are computed
// fresh per request and never persisted.
type DayEntry struct {
	Date         string  `json:"date"` // DD.MM.YYYY
	Weekday      string  `json:"weekday"`
	StartTime    string  `json:"start_time"`
	EndTime      string  `json:"end_time"`
	Hours        float64 `json:"hours"`
	IsHoliday    bool    `json:"is_holiday"`
	IsTakeover   bool    `json:"is_takeover"`
	HolidayName  string  `json:"holiday_name,omitempty"`
	TakeoverNote string  `json:"takeover_note,omitempty"`
}

// Totals are the rollup sums over a period, one bucket per day class
// plus the overall sum. Values are unrounded; see Rounded.
type Totals struct {
	Total    float64 `json:"total_hours"`
	Regular  float64 `json:"regular_hours"`
	Takeover float64 `json:"takeover_hours"`
	Holiday  float64 `json:"holiday_hours"`
}

// Rounded returns the totals rounded to two decimals for API responses.
func (t Totals) Rounded() Totals {
	return Totals{
		Total:    Round2(t.Total),
		Regular:  Round2(t.Regular),
		Takeover: Round2(t.Takeover),
		Holiday:  Round2(t.Holiday),
	}
}

// Aggregate walks every day of the period and produces the entry list
// and totals. Days without a resolved shift are iterated but excluded
// from the entries; compensation hours are added on top of resolved
// shift hours and counted in the day's class bucket.
func Aggregate(period Period, in ScheduleInput) ([]DayEntry, Totals) {
	holidays := NewHolidayIndex(
		HolidaysForStateRange(in.Schedule.State, period.Start.Year(), period.End.Year()))
	compByDay := DistributeCompensations(in.Compensations)

	entries := []DayEntry{}
	var totals Totals

	for _, day := range period.Days() {
		resolved := ResolveDay(day, in.Schedule, in.Takeovers, holidays)
		if !resolved.HasShift() {
			continue
		}

		hours := ShiftHours(resolved.Shift.Start, resolved.Shift.End)
		hours += compByDay[day]

		isHoliday := resolved.Class == ClassHoliday
		isTakeover := resolved.Class == ClassTakeover

		entry := DayEntry{
			Date:       day.German(),
			Weekday:    day.WeekdayName(),
			StartTime:  resolved.Shift.Start.String(),
			EndTime:    resolved.Shift.End.String(),
			Hours:      hours,
			IsHoliday:  isHoliday,
			IsTakeover: isTakeover,
		}
		if isHoliday {
			entry.HolidayName = resolved.HolidayName
		}
		if isTakeover {
			entry.TakeoverNote = resolved.TakeoverNote
		}
		entries = append(entries, entry)

		totals.Total += hours
		switch resolved.Class {
		case ClassTakeover:
			totals.Takeover += hours
		case ClassHoliday:
			totals.Holiday += hours
		default:
			totals.Regular += hours
		}
	}

	return entries, totals
}

// =============================================================================
// HOUR REPORT (Stundenreport)
// =============================================================================

// HourReport is the full document handed to report rendering: per-day
// breakdown, totals, and informational staffing/cost projections.
type HourReport struct {
	CompanyName string     `json:"company_name"`
	Period      string     `json:"period"` // DD.MM.YYYY - DD.MM.YYYY
	Year        int        `json:"year"`
	Entries     []DayEntry `json:"entries"`
	Totals      Totals     `json:"totals"`

	// TotalHours is the whole-hour display total.
	TotalHours int `json:"total_hours"`

	// EmployeesNeeded and CostProjection are informational display
	// figures, never persisted billing data.
	EmployeesNeeded float64 `json:"employees_needed"`
	HourlyRate      float64 `json:"hourly_rate"`
	CostProjection  float64 `json:"cost_projection"`
}

// BuildHourReport aggregates the period and derives the display figures.
func BuildHourReport(companyName string, period Period, in ScheduleInput, hourlyRate float64) HourReport {
	entries, totals := Aggregate(period, in)

	return HourReport{
		CompanyName:     companyName,
		Period:          period.String(),
		Year:            period.Start.Year(),
		Entries:         entries,
		Totals:          totals.Rounded(),
		TotalHours:      int(Round0(totals.Total)),
		EmployeesNeeded: Round2(totals.Total / ReportHoursPerEmployee),
		HourlyRate:      hourlyRate,
		CostProjection:  Round2(totals.Total * hourlyRate),
	}
}
