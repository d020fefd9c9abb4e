/*
Package billing contains the hours/billing computation engine.

PURPOSE:
  Reconstructs, day by day, how many billable hours a client generated
  over an arbitrary date range. Inputs are a weekly recurring schedule,
  public-holiday overrides, ad-hoc early-takeover overrides, and manually
  entered hour compensations. Output is a per-day entry list plus rollup
  totals that feed invoice creation and report rendering.

KEY CONCEPTS IN THIS FILE (time.go):
  - Date:   A calendar day, always normalized to midnight UTC
  - Period: An inclusive [start, end] date range
  - German weekday names and DD.MM.YYYY formatting for report output

DESIGN PRINCIPLES:
  1. Purity: Everything in this package is a pure function over its inputs.
     No I/O, no clocks inside the computation, no shared state.
  2. Day granularity: All schedule decisions happen per calendar day in
     UTC, which keeps daylight-saving shifts out of day counting.
  3. Determinism: Identical inputs always produce identical output;
     reports are regenerated, never cached.

SEE ALSO:
  - schedule.go: Weekly schedules, takeovers, day resolution
  - hours.go:    HH:MM clock times and shift-length arithmetic
  - report.go:   Period aggregation into entries and totals
*/
package billing

import (
	"fmt"
	"math"
	"time"
)

// =============================================================================
// DATE - Calendar day at UTC midnight
// =============================================================================

// Date is a calendar day. The embedded time is always midnight UTC, so
// Dates are comparable with == and usable as map keys.
type Date struct {
	t time.Time
}

func NewDate(year int, month time.Month, day int) Date {
	return Date{t: time.Date(year, month, day, 0, 0, 0, 0, time.UTC)}
}

// DateOf truncates an arbitrary instant to its UTC calendar day.
func DateOf(t time.Time) Date {
	u := t.UTC()
	return NewDate(u.Year(), u.Month(), u.Day())
}

// ParseDate parses an ISO date (YYYY-MM-DD).
func ParseDate(s string) (Date, error) {
	t, err := time.Parse("2006-01-02", s)
	if err != nil {
		return Date{}, fmt.Errorf("invalid date %q: %w", s, err)
	}
	return DateOf(t), nil
}

func Today() Date {
	return DateOf(time.Now())
}

// Comparison
func (d Date) Before(other Date) bool        { return d.t.Before(other.t) }
func (d Date) After(other Date) bool         { return d.t.After(other.t) }
func (d Date) Equal(other Date) bool         { return d.t.Equal(other.t) }
func (d Date) BeforeOrEqual(other Date) bool { return !d.After(other) }
func (d Date) AfterOrEqual(other Date) bool  { return !d.Before(other) }

// Arithmetic and properties
func (d Date) AddDays(n int) Date      { return DateOf(d.t.AddDate(0, 0, n)) }
func (d Date) Year() int               { return d.t.Year() }
func (d Date) Month() time.Month       { return d.t.Month() }
func (d Date) Day() int                { return d.t.Day() }
func (d Date) Weekday() time.Weekday   { return d.t.Weekday() }
func (d Date) IsZero() bool            { return d.t.IsZero() }
func (d Date) Time() time.Time         { return d.t }

// ISO returns the date as YYYY-MM-DD.
func (d Date) ISO() string { return d.t.Format("2006-01-02") }

// German returns the date as DD.MM.YYYY, the format used on reports
// and invoices.
func (d Date) German() string { return d.t.Format("02.01.2006") }

func (d Date) String() string { return d.ISO() }

// germanWeekdays maps Go weekdays to the names printed on the hour report.
var germanWeekdays = map[time.Weekday]string{
	time.Monday:    "Montag",
	time.Tuesday:   "Dienstag",
	time.Wednesday: "Mittwoch",
	time.Thursday:  "Donnerstag",
	time.Friday:    "Freitag",
	time.Saturday:  "Samstag",
	time.Sunday:    "Sonntag",
}

// WeekdayName returns the German weekday name for the date.
func (d Date) WeekdayName() string { return germanWeekdays[d.Weekday()] }

// =============================================================================
// PERIOD - Inclusive date range
// =============================================================================

// Period is an inclusive [Start, End] range of calendar days.
type Period struct {
	Start Date
	End   Date
}

// NewPeriod validates that start <= end.
func NewPeriod(start, end Date) (Period, error) {
	if end.Before(start) {
		return Period{}, fmt.Errorf("%w: %s after %s", ErrInvalidPeriod, start, end)
	}
	return Period{Start: start, End: end}, nil
}

// Contains reports whether the day falls within [Start, End].
func (p Period) Contains(d Date) bool {
	return d.AfterOrEqual(p.Start) && d.BeforeOrEqual(p.End)
}

// Overlaps reports whether two inclusive ranges share at least one day.
func (p Period) Overlaps(other Period) bool {
	return p.Start.BeforeOrEqual(other.End) && other.Start.BeforeOrEqual(p.End)
}

// DayCount returns the inclusive number of days in the period.
// Both endpoints are UTC midnights, so the division is exact and immune
// to daylight-saving transitions.
func (p Period) DayCount() int {
	return int(p.End.t.Sub(p.Start.t).Hours()/24) + 1
}

// Days returns every day in the period in ascending order.
func (p Period) Days() []Date {
	days := make([]Date, 0, p.DayCount())
	for d := p.Start; d.BeforeOrEqual(p.End); d = d.AddDays(1) {
		days = append(days, d)
	}
	return days
}

// String renders the period the way reports display it: DD.MM.YYYY - DD.MM.YYYY.
func (p Period) String() string {
	return p.Start.German() + " - " + p.End.German()
}

// =============================================================================
// ROUNDING
// =============================================================================

// Round2 rounds to two decimals. Applied only at reporting boundaries;
// intermediate hour arithmetic is never rounded.
func Round2(x float64) float64 {
	return math.Round(x*100) / 100
}

// Round0 rounds to the nearest whole number. Used only for the
// report-level display total.
func Round0(x float64) float64 {
	return math.Round(x)
}
