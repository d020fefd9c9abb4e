/*
holidays.go - German public-holiday calendar

PURPOSE:
  Maps a federal state (Bundesland) and a year to the sorted list of
  public holidays that apply there. Purely computed - no persistence,
  no network. Movable feasts are derived from the Gregorian Easter date
  (anonymous Gauss algorithm), so the calendar is correct for any year.

BEHAVIOR:
  - Result is the union of the nationwide set and the state-specific set.
  - Unknown state => nationwide holidays only, never an error.
  - Output is sorted ascending by date.

  Also provides the postal-code to federal-state lookup used when a
  company record carries only an address.
*/
package billing

import (
	"sort"
	"strconv"
	"time"
)

// Holiday is a public holiday: a date plus its human-readable name.
type Holiday struct {
	Date Date
	Name string
}

// easterSunday computes Gregorian Easter Sunday (anonymous Gauss algorithm).
func easterSunday(year int) Date {
	a := year % 19
	b := year / 100
	c := year % 100
	d := b / 4
	e := b % 4
	f := (b + 8) / 25
	g := (b - f + 1) / 3
	h := (19*a + b - d - g + 15) % 30
	i := c / 4
	k := c % 4
	l := (32 + 2*e + 2*i - h - k) % 7
	m := (a + 11*h + 22*l) / 451
	month := (h + l - 7*m + 114) / 31
	day := (h+l-7*m+114)%31 + 1
	return NewDate(year, time.Month(month), day)
}

// bussUndBettag is the Wednesday before November 23 (Saxony only).
func bussUndBettag(year int) Date {
	d := NewDate(year, time.November, 22)
	for d.Weekday() != time.Wednesday {
		d = d.AddDays(-1)
	}
	return d
}

// nationalHolidays are observed in every federal state.
func nationalHolidays(year int) []Holiday {
	easter := easterSunday(year)
	return []Holiday{
		{NewDate(year, time.January, 1), "Neujahr"},
		{easter.AddDays(-2), "Karfreitag"},
		{easter.AddDays(1), "Ostermontag"},
		{NewDate(year, time.May, 1), "Tag der Arbeit"},
		{easter.AddDays(39), "Christi Himmelfahrt"},
		{easter.AddDays(50), "Pfingstmontag"},
		{NewDate(year, time.October, 3), "Tag der Deutschen Einheit"},
		{NewDate(year, time.December, 25), "1. Weihnachtstag"},
		{NewDate(year, time.December, 26), "2. Weihnachtstag"},
	}
}

// stateHolidays returns the extra holidays of a single federal state.
func stateHolidays(state string, year int) []Holiday {
	easter := easterSunday(year)

	dreikoenige := Holiday{NewDate(year, time.January, 6), "Heilige Drei Könige"}
	fronleichnam := Holiday{easter.AddDays(60), "Fronleichnam"}
	himmelfahrt := Holiday{NewDate(year, time.August, 15), "Mariä Himmelfahrt"}
	allerheiligen := Holiday{NewDate(year, time.November, 1), "Allerheiligen"}
	reformationstag := Holiday{NewDate(year, time.October, 31), "Reformationstag"}

	switch state {
	case "Baden-Württemberg":
		return []Holiday{dreikoenige, fronleichnam, allerheiligen}
	case "Bayern":
		return []Holiday{dreikoenige, fronleichnam, himmelfahrt, allerheiligen}
	case "Berlin":
		return []Holiday{{NewDate(year, time.March, 8), "Internationaler Frauentag"}}
	case "Brandenburg", "Bremen", "Hamburg", "Mecklenburg-Vorpommern",
		"Niedersachsen", "Schleswig-Holstein":
		return []Holiday{reformationstag}
	case "Hessen":
		return []Holiday{fronleichnam}
	case "Nordrhein-Westfalen", "Rheinland-Pfalz":
		return []Holiday{fronleichnam, allerheiligen}
	case "Saarland":
		return []Holiday{fronleichnam, himmelfahrt, allerheiligen}
	case "Sachsen":
		return []Holiday{reformationstag, {bussUndBettag(year), "Buß- und Bettag"}}
	case "Sachsen-Anhalt":
		return []Holiday{dreikoenige, reformationstag}
	case "Thüringen":
		return []Holiday{reformationstag, {NewDate(year, time.September, 20), "Weltkindertag"}}
	default:
		return nil
	}
}

// HolidaysForState returns all public holidays of a federal state for one
// year, sorted ascending. Unknown states get the nationwide set.
func HolidaysForState(state string, year int) []Holiday {
	all := append(nationalHolidays(year), stateHolidays(state, year)...)
	sort.Slice(all, func(i, j int) bool { return all[i].Date.Before(all[j].Date) })
	return all
}

// HolidaysForStateRange returns holidays for every year in [fromYear, toYear].
func HolidaysForStateRange(state string, fromYear, toYear int) []Holiday {
	var all []Holiday
	for y := fromYear; y <= toYear; y++ {
		all = append(all, HolidaysForState(state, y)...)
	}
	return all
}

// =============================================================================
// HOLIDAY INDEX - date -> name lookup for day resolution
// =============================================================================

// HolidayIndex is a by-date lookup over a holiday list.
type HolidayIndex map[Date]string

func NewHolidayIndex(holidays []Holiday) HolidayIndex {
	idx := make(HolidayIndex, len(holidays))
	for _, h := range holidays {
		idx[h.Date] = h.Name
	}
	return idx
}

// Lookup returns the holiday name for a date, if any.
func (idx HolidayIndex) Lookup(d Date) (string, bool) {
	name, ok := idx[d]
	return name, ok
}

// =============================================================================
// POSTAL CODE -> FEDERAL STATE
// =============================================================================

type postalRange struct {
	lo, hi int
	state  string
}

// postalRanges is scanned linearly; the first matching range wins.
// Several ranges overlap (e.g. 14xxx Berlin vs Brandenburg, 66xxx
// Rheinland-Pfalz vs Saarland) and the historical assignment resolved
// them by this exact order, so the order is load-bearing.
var postalRanges = []postalRange{
	{68000, 69999, "Baden-Württemberg"},
	{70000, 76999, "Baden-Württemberg"},
	{77000, 79999, "Baden-Württemberg"},
	{88000, 89999, "Baden-Württemberg"},
	{80000, 87999, "Bayern"},
	{90000, 97999, "Bayern"},
	{10000, 14999, "Berlin"},
	{14000, 16999, "Brandenburg"},
	{17000, 19999, "Brandenburg"},
	{27568, 27580, "Bremen"},
	{28000, 28999, "Bremen"},
	{20000, 21999, "Hamburg"},
	{22000, 22999, "Hamburg"},
	{34000, 36999, "Hessen"},
	{60000, 61999, "Hessen"},
	{63000, 65999, "Hessen"},
	{17000, 19999, "Mecklenburg-Vorpommern"},
	{23900, 23999, "Mecklenburg-Vorpommern"},
	{21000, 21999, "Niedersachsen"},
	{26000, 27999, "Niedersachsen"},
	{28000, 29999, "Niedersachsen"},
	{30000, 31999, "Niedersachsen"},
	{37000, 38999, "Niedersachsen"},
	{49000, 49999, "Niedersachsen"},
	{32000, 33999, "Nordrhein-Westfalen"},
	{40000, 48999, "Nordrhein-Westfalen"},
	{50000, 53999, "Nordrhein-Westfalen"},
	{57000, 59999, "Nordrhein-Westfalen"},
	{54000, 56999, "Rheinland-Pfalz"},
	{65000, 67999, "Rheinland-Pfalz"},
	{76000, 76999, "Rheinland-Pfalz"},
	{66000, 66999, "Saarland"},
	{1000, 9999, "Sachsen"},
	{6000, 6999, "Sachsen-Anhalt"},
	{38000, 39999, "Sachsen-Anhalt"},
	{23000, 25999, "Schleswig-Holstein"},
	{7000, 7999, "Thüringen"},
	{36000, 37999, "Thüringen"},
	{98000, 99999, "Thüringen"},
}

// StateFromPostalCode derives the federal state from a German postal code.
func StateFromPostalCode(postalCode string) (string, bool) {
	code, err := strconv.Atoi(postalCode)
	if err != nil {
		return "", false
	}
	for _, r := range postalRanges {
		if code >= r.lo && code <= r.hi {
			return r.state, true
		}
	}
	return "", false
}
