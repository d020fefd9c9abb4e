/*
schedule.go - Weekly schedules, takeover overrides, and day resolution

PURPOSE:
  Decides, for a single calendar date, which start/end time pair applies
  and how the day is classified.

RESOLUTION PRECEDENCE (highest first):
  1. Takeover override - any takeover whose range contains the date wins,
     regardless of weekday schedule or holiday status.
  2. Holiday - if the company does not cover holidays, the day yields no
     hours; otherwise the schedule of the configured reference weekday
     (default Sunday) applies.
  3. Regular weekday schedule.

  A day with no applicable shift is a valid "no hours" outcome, not an
  error: it contributes zero and produces no report entry.

TIE-BREAK:
  Overlapping takeovers are not rejected at write time. When more than
  one takeover contains a date, the first one in the given slice wins;
  callers pass takeovers ordered by (start date, id) so the choice is
  deterministic.
*/
package billing

import "time"

// =============================================================================
// WEEKLY SCHEDULE
// =============================================================================

// ShiftWindow is a fixed start/end time pair.
type ShiftWindow struct {
	Start ClockTime
	End   ClockTime
}

// WeeklySchedule is a company's recurring schedule: at most one shift
// window per weekday. Weekdays without an entry have no shift.
type WeeklySchedule struct {
	// Days maps each weekday to its shift window.
	Days map[time.Weekday]ShiftWindow

	// State selects the public-holiday calendar (German federal state).
	State string

	// HolidayTakeover controls whether the company is covered on public
	// holidays. When false, holidays yield no hours.
	HolidayTakeover bool

	// HolidayScheduleRef names the weekday whose shift window is reused
	// on covered holidays. Defaults to Sunday.
	HolidayScheduleRef time.Weekday
}

// ShiftFor returns the shift window for a weekday, if one is defined.
func (ws WeeklySchedule) ShiftFor(day time.Weekday) (ShiftWindow, bool) {
	w, ok := ws.Days[day]
	return w, ok
}

// holidayShift returns the shift applied on a covered holiday.
func (ws WeeklySchedule) holidayShift() (ShiftWindow, bool) {
	return ws.ShiftFor(ws.HolidayScheduleRef)
}

// =============================================================================
// TAKEOVER - ad-hoc schedule override
// =============================================================================

// DefaultTakeoverNote is used when a takeover carries no free-text note.
const DefaultTakeoverNote = "Frühzeitige Übernahme"

// Takeover replaces the normal or holiday schedule with fixed times for
// every day in an inclusive date range.
type Takeover struct {
	Period Period
	Start  ClockTime
	End    ClockTime
	Note   string
}

// =============================================================================
// DAY RESOLUTION
// =============================================================================

// DayClass classifies how a day's hours were determined.
type DayClass string

const (
	ClassRegular  DayClass = "regular"
	ClassTakeover DayClass = "takeover"
	ClassHoliday  DayClass = "holiday"
)

// ResolvedDay is the outcome of resolving one calendar date. A nil Shift
// means the day contributes zero hours.
type ResolvedDay struct {
	Shift        *ShiftWindow
	Class        DayClass
	HolidayName  string
	TakeoverNote string
}

// HasShift reports whether the day produces any hours.
func (r ResolvedDay) HasShift() bool { return r.Shift != nil }

// ResolveDay applies the precedence rules to a single date. Takeovers
// must be ordered deterministically; the first containing range wins.
func ResolveDay(date Date, sched WeeklySchedule, takeovers []Takeover, holidays HolidayIndex) ResolvedDay {
	for _, to := range takeovers {
		if to.Period.Contains(date) {
			note := to.Note
			if note == "" {
				note = DefaultTakeoverNote
			}
			return ResolvedDay{
				Shift:        &ShiftWindow{Start: to.Start, End: to.End},
				Class:        ClassTakeover,
				TakeoverNote: note,
			}
		}
	}

	if name, ok := holidays.Lookup(date); ok {
		if !sched.HolidayTakeover {
			return ResolvedDay{Class: ClassHoliday, HolidayName: name}
		}
		resolved := ResolvedDay{Class: ClassHoliday, HolidayName: name}
		if shift, ok := sched.holidayShift(); ok {
			resolved.Shift = &shift
		}
		return resolved
	}

	resolved := ResolvedDay{Class: ClassRegular}
	if shift, ok := sched.ShiftFor(date.Weekday()); ok {
		resolved.Shift = &shift
	}
	return resolved
}

// ParseWeekdayName maps an English lowercase weekday name (the form the
// holiday schedule reference is stored in) to a Go weekday. Unknown
// names default to Sunday.
func ParseWeekdayName(name string) time.Weekday {
	switch name {
	case "monday":
		return time.Monday
	case "tuesday":
		return time.Tuesday
	case "wednesday":
		return time.Wednesday
	case "thursday":
		return time.Thursday
	case "friday":
		return time.Friday
	case "saturday":
		return time.Saturday
	default:
		return time.Sunday
	}
}

// WeekdayKey is the inverse of ParseWeekdayName.
func WeekdayKey(day time.Weekday) string {
	switch day {
	case time.Monday:
		return "monday"
	case time.Tuesday:
		return "tuesday"
	case time.Wednesday:
		return "wednesday"
	case time.Thursday:
		return "thursday"
	case time.Friday:
		return "friday"
	case time.Saturday:
		return "saturday"
	default:
		return "sunday"
	}
}
