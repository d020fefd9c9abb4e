/*
hours.go - Clock times and daily shift-length arithmetic

PURPOSE:
  Converts a resolved start/end time pair into worked hours.

RULES (in order):
  1. start == end (string equality)  => full 24-hour shift, 1440 minutes
  2. end < start (by clock time)     => shift crosses midnight, add 1440
  3. otherwise                       => end minus start

  No rounding happens here. Rounding to two decimals is applied only at
  reporting boundaries (see Round2), rounding to whole hours only for
  the report-level display total.
*/
package billing

// MinutesPerDay is the length of a full 24-hour shift in minutes.
const MinutesPerDay = 24 * 60

// ClockTime is a time of day in HH:MM form. The raw string is kept
// because the 24-hour-shift rule compares start and end as strings.
type ClockTime struct {
	raw     string
	minutes int
}

// ParseClockTime parses a strict two-digit HH:MM string.
func ParseClockTime(s string) (ClockTime, error) {
	if len(s) != 5 || s[2] != ':' {
		return ClockTime{}, &InvalidTimeError{Value: s}
	}
	h, ok1 := twoDigits(s[0], s[1])
	m, ok2 := twoDigits(s[3], s[4])
	if !ok1 || !ok2 || h > 23 || m > 59 {
		return ClockTime{}, &InvalidTimeError{Value: s}
	}
	return ClockTime{raw: s, minutes: h*60 + m}, nil
}

// MustClockTime parses a clock time and panics on failure. Test helper
// and literal-schedule convenience only.
func MustClockTime(s string) ClockTime {
	ct, err := ParseClockTime(s)
	if err != nil {
		panic(err)
	}
	return ct
}

func twoDigits(a, b byte) (int, bool) {
	if a < '0' || a > '9' || b < '0' || b > '9' {
		return 0, false
	}
	return int(a-'0')*10 + int(b-'0'), true
}

func (c ClockTime) String() string { return c.raw }

// Minutes returns minutes since midnight.
func (c ClockTime) Minutes() int { return c.minutes }

func (c ClockTime) IsZero() bool { return c.raw == "" }

// ShiftMinutes returns the length of a shift in minutes.
func ShiftMinutes(start, end ClockTime) int {
	if start.raw == end.raw {
		// Equal times mean a full 24-hour shift, not a zero-length one.
		return MinutesPerDay
	}
	m := end.minutes - start.minutes
	if m < 0 {
		// Overnight shift, e.g. 22:00 to 06:00.
		m += MinutesPerDay
	}
	return m
}

// ShiftHours returns the length of a shift in (possibly fractional) hours.
func ShiftHours(start, end ClockTime) float64 {
	return float64(ShiftMinutes(start, end)) / 60
}

// WorkedHours computes the billable hours of a completed clock record:
// shift length minus unpaid pause, rounded to two decimals. Clock
// records are entered per day, so the 24-hour rule of ShiftMinutes does
// not apply; equal start and end with no pause yield a full day.
func WorkedHours(start, end ClockTime, pauseMinutes int) float64 {
	return Round2(float64(ShiftMinutes(start, end)-pauseMinutes) / 60)
}
