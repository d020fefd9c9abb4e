package billing_test

import (
	"sort"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nachtwache/billing-engine/billing"
)

func holidayDates(hs []billing.Holiday) map[string]string {
	m := make(map[string]string, len(hs))
	for _, h := range hs {
		m[h.Date.ISO()] = h.Name
	}
	return m
}

func TestHolidaysForState_National2025(t *testing.T) {
	// The movable feasts must land on the documented 2025 dates.
	hs := holidayDates(billing.HolidaysForState("", 2025))

	assert.Equal(t, "Neujahr", hs["2025-01-01"])
	assert.Equal(t, "Karfreitag", hs["2025-04-18"])
	assert.Equal(t, "Ostermontag", hs["2025-04-21"])
	assert.Equal(t, "Tag der Arbeit", hs["2025-05-01"])
	assert.Equal(t, "Christi Himmelfahrt", hs["2025-05-29"])
	assert.Equal(t, "Pfingstmontag", hs["2025-06-09"])
	assert.Equal(t, "Tag der Deutschen Einheit", hs["2025-10-03"])
	assert.Equal(t, "1. Weihnachtstag", hs["2025-12-25"])
	assert.Equal(t, "2. Weihnachtstag", hs["2025-12-26"])
	assert.Len(t, hs, 9)
}

func TestHolidaysForState_Bayern(t *testing.T) {
	hs := holidayDates(billing.HolidaysForState("Bayern", 2025))

	assert.Equal(t, "Heilige Drei Könige", hs["2025-01-06"])
	assert.Equal(t, "Fronleichnam", hs["2025-06-19"])
	assert.Equal(t, "Mariä Himmelfahrt", hs["2025-08-15"])
	assert.Equal(t, "Allerheiligen", hs["2025-11-01"])
	assert.Len(t, hs, 13)
}

func TestHolidaysForState_Sachsen_BussUndBettag(t *testing.T) {
	// Buß- und Bettag is the Wednesday before November 23.
	hs := holidayDates(billing.HolidaysForState("Sachsen", 2025))
	assert.Equal(t, "Buß- und Bettag", hs["2025-11-19"])
}

func TestHolidaysForState_UnknownState(t *testing.T) {
	// Unknown regions still get the nationwide set, never an error.
	hs := billing.HolidaysForState("Atlantis", 2025)
	assert.Len(t, hs, 9)
}

func TestHolidaysForState_SortedAscending(t *testing.T) {
	hs := billing.HolidaysForState("Baden-Württemberg", 2026)
	require.NotEmpty(t, hs)
	assert.True(t, sort.SliceIsSorted(hs, func(i, j int) bool {
		return hs[i].Date.Before(hs[j].Date)
	}))
}

func TestHolidaysForStateRange_MultiYear(t *testing.T) {
	hs := billing.HolidaysForStateRange("Berlin", 2024, 2026)
	// 9 national + 1 Berlin per year.
	assert.Len(t, hs, 30)
}

func TestEaster_OtherYears(t *testing.T) {
	// Easter Monday 2024 was April 1, Good Friday 2026 is April 3.
	hs24 := holidayDates(billing.HolidaysForState("", 2024))
	assert.Equal(t, "Ostermontag", hs24["2024-04-01"])

	hs26 := holidayDates(billing.HolidaysForState("", 2026))
	assert.Equal(t, "Karfreitag", hs26["2026-04-03"])
}

func TestHolidayIndex_Lookup(t *testing.T) {
	idx := billing.NewHolidayIndex(billing.HolidaysForState("Hessen", 2025))

	name, ok := idx.Lookup(billing.NewDate(2025, time.June, 19))
	assert.True(t, ok)
	assert.Equal(t, "Fronleichnam", name)

	_, ok = idx.Lookup(billing.NewDate(2025, time.June, 20))
	assert.False(t, ok)
}

// =============================================================================
// POSTAL CODE LOOKUP
// =============================================================================

func TestStateFromPostalCode(t *testing.T) {
	cases := []struct {
		code  string
		state string
	}{
		{"80331", "Bayern"},
		{"70173", "Baden-Württemberg"},
		{"10115", "Berlin"},
		{"20095", "Hamburg"},
		{"50667", "Nordrhein-Westfalen"},
		{"01067", "Sachsen"},
		{"99084", "Thüringen"},
	}
	for _, c := range cases {
		state, ok := billing.StateFromPostalCode(c.code)
		require.True(t, ok, "code %s", c.code)
		assert.Equal(t, c.state, state, "code %s", c.code)
	}
}

func TestStateFromPostalCode_Invalid(t *testing.T) {
	_, ok := billing.StateFromPostalCode("not-a-plz")
	assert.False(t, ok)

	_, ok = billing.StateFromPostalCode("00100")
	assert.False(t, ok)
}
