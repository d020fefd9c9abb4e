/*
compensation.go - Hours Compensation Distributor

PURPOSE:
  Spreads a manually entered total-hours adjustment for a date range
  evenly across the days in that range, in "clean" increments:

  1. Whole-hour path: base = floor(total/days). If the remainder is a
     whole number no larger than the day count, the first `remainder`
     days (in range order) get base+1, the rest get base.
  2. Half-hour fallback: base = floor((total/days)*2)/2, remainder
     distributed in 0.5 steps to days in range order.

INVARIANTS:
  - The per-day shares of one record sum to exactly its total hours.
  - Overlapping records sum per day; they never override each other.
  - A record only applies when total > 0 and the range is non-empty.

  Distributed hours are added on top of whatever the schedule resolver
  produced for the day. They top up days that already have a shift; they
  never turn an off day into a billable one (the aggregator skips days
  without a resolved shift before compensation is applied).
*/
package billing

import "math"

// Compensation is a manually entered adjustment: a single total-hours
// value to be distributed across every day of an inclusive date range.
type Compensation struct {
	Period     Period
	TotalHours float64
}

// distribute returns the per-day share for each day of the record's
// range, in range order. Returns nil when the record does not apply.
func (c Compensation) distribute() []float64 {
	days := c.Period.DayCount()
	if days < 1 || c.TotalHours <= 0 {
		return nil
	}

	shares := make([]float64, days)

	base := math.Floor(c.TotalHours / float64(days))
	remainder := c.TotalHours - base*float64(days)

	if remainder == math.Floor(remainder) && remainder <= float64(days) {
		for i := range shares {
			shares[i] = base
			if remainder >= 1 {
				shares[i]++
				remainder--
			}
		}
		return shares
	}

	// Half-hour fallback. The remainder is re-rounded to the 0.5 grid to
	// keep floating-point noise from dropping the last increment.
	base = math.Floor((c.TotalHours/float64(days))*2) / 2
	remainder = math.Round((c.TotalHours-base*float64(days))*2) / 2

	for i := range shares {
		shares[i] = base
		if remainder >= 0.5 {
			shares[i] += 0.5
			remainder -= 0.5
		}
	}
	return shares
}

// DistributeCompensations builds the per-day compensation map for a set
// of records. Days covered by several records receive the sum of their
// shares.
func DistributeCompensations(comps []Compensation) map[Date]float64 {
	byDay := make(map[Date]float64)
	for _, c := range comps {
		shares := c.distribute()
		if shares == nil {
			continue
		}
		for i, d := range c.Period.Days() {
			byDay[d] += shares[i]
		}
	}
	return byDay
}
