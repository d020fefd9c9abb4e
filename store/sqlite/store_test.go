package sqlite_test

import (
	"context"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/nachtwache/billing-engine/billing"
	"github.com/nachtwache/billing-engine/invoicing"
	"github.com/nachtwache/billing-engine/store/sqlite"
)

// =============================================================================
// TEST SETUP
// =============================================================================

func newTestStore(t *testing.T) *sqlite.Store {
	store, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })
	return store
}

func testCompany(name string) *sqlite.Company {
	rate := decimal.RequireFromString("25.50")
	return &sqlite.Company{
		Name:               name,
		CustomerNumber:     "K-1001",
		PostalCode:         "80331",
		City:               "München",
		FederalState:       "Bayern",
		EarlyTakeoverPrice: &rate,
		HolidayTakeover:    true,
		HolidayScheduleRef: "sunday",
		Schedule: map[string]sqlite.ShiftTimes{
			"monday":  {Start: "22:00", End: "06:00"},
			"tuesday": {Start: "22:00", End: "06:00"},
			"sunday":  {Start: "20:00", End: "06:00"},
		},
	}
}

func testInvoice(companyID int64, date billing.Date, total string) *invoicing.Invoice {
	period, _ := billing.NewPeriod(
		billing.NewDate(date.Year(), 1, 1),
		billing.NewDate(date.Year(), 1, 31),
	)
	return &invoicing.Invoice{
		CompanyID:   companyID,
		InvoiceDate: date,
		DueDate:     date.AddDays(14),
		Period:      period,
		BillingType: invoicing.BillingHourly,
		TotalHours:  160,
		HourlyRate:  decimal.RequireFromString("18.50"),
		Subtotal:    decimal.RequireFromString(total),
		TaxRate:     invoicing.DefaultTaxRate,
		TaxAmount:   decimal.Zero,
		TotalAmount: decimal.RequireFromString(total),
		Status:      invoicing.StatusOpen,
	}
}

// =============================================================================
// COMPANY TESTS
// =============================================================================

func TestStore_Company_RoundTrip(t *testing.T) {
	// GIVEN: A company with a three-day schedule and a takeover rate
	// WHEN: Creating and reloading it
	// THEN: Every field including the schedule JSON survives

	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Autohaus Nord GmbH")
	require.NoError(t, store.CreateCompany(ctx, c))
	require.NotZero(t, c.ID)

	got, err := store.GetCompany(ctx, c.ID)
	require.NoError(t, err)

	assert.Equal(t, "Autohaus Nord GmbH", got.Name)
	assert.Equal(t, "K-1001", got.CustomerNumber)
	assert.Equal(t, "Bayern", got.FederalState)
	assert.True(t, got.HolidayTakeover)
	require.NotNil(t, got.EarlyTakeoverPrice)
	assert.True(t, got.EarlyTakeoverPrice.Equal(decimal.RequireFromString("25.50")))
	assert.Equal(t, sqlite.ShiftTimes{Start: "22:00", End: "06:00"}, got.Schedule["monday"])
	assert.Equal(t, sqlite.ShiftTimes{Start: "20:00", End: "06:00"}, got.Schedule["sunday"])

	schedule, err := got.WeeklySchedule()
	require.NoError(t, err)
	assert.Len(t, schedule.Days, 3)
	assert.Equal(t, "Bayern", schedule.State)
}

func TestStore_Company_Update(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Alte Firma")
	require.NoError(t, store.CreateCompany(ctx, c))

	c.Name = "Neue Firma"
	c.HolidayTakeover = false
	c.EarlyTakeoverPrice = nil
	c.Schedule["friday"] = sqlite.ShiftTimes{Start: "23:00", End: "05:00"}
	require.NoError(t, store.UpdateCompany(ctx, c))

	got, err := store.GetCompany(ctx, c.ID)
	require.NoError(t, err)
	assert.Equal(t, "Neue Firma", got.Name)
	assert.False(t, got.HolidayTakeover)
	assert.Nil(t, got.EarlyTakeoverPrice)
	assert.Len(t, got.Schedule, 4)
}

func TestStore_Company_ListOrderedByName(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	for _, name := range []string{"Zeta Wache", "Alpha Sicherheit", "Mitte GmbH"} {
		c := testCompany(name)
		require.NoError(t, store.CreateCompany(ctx, c))
	}

	companies, err := store.ListCompanies(ctx)
	require.NoError(t, err)
	require.Len(t, companies, 3)
	assert.Equal(t, "Alpha Sicherheit", companies[0].Name)
	assert.Equal(t, "Mitte GmbH", companies[1].Name)
	assert.Equal(t, "Zeta Wache", companies[2].Name)
}

func TestStore_Company_NotFound(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	_, err := store.GetCompany(ctx, 999)
	assert.ErrorIs(t, err, sqlite.ErrNotFound)

	assert.ErrorIs(t, store.DeleteCompany(ctx, 999), sqlite.ErrNotFound)
}

// =============================================================================
// TAKEOVER / COMPENSATION TESTS
// =============================================================================

func TestStore_Takeovers_OverlappingOrdered(t *testing.T) {
	// GIVEN: Three takeovers, two overlapping the queried week
	// WHEN: Querying the week
	// THEN: Only the overlapping two return, ordered by start date then id

	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Wache Süd")
	require.NoError(t, store.CreateCompany(ctx, c))

	mk := func(start, end billing.Date) *sqlite.TakeoverRecord {
		r := &sqlite.TakeoverRecord{
			CompanyID: c.ID,
			StartDate: start,
			EndDate:   end,
			StartTime: "18:00",
			EndTime:   "06:00",
		}
		require.NoError(t, store.CreateTakeover(ctx, r))
		return r
	}

	late := mk(billing.NewDate(2025, 3, 12), billing.NewDate(2025, 3, 14))
	early := mk(billing.NewDate(2025, 3, 10), billing.NewDate(2025, 3, 11))
	mk(billing.NewDate(2025, 4, 1), billing.NewDate(2025, 4, 2)) // outside

	week, err := billing.NewPeriod(billing.NewDate(2025, 3, 10), billing.NewDate(2025, 3, 16))
	require.NoError(t, err)

	got, err := store.TakeoversOverlapping(ctx, c.ID, week)
	require.NoError(t, err)
	require.Len(t, got, 2)
	assert.Equal(t, early.ID, got[0].ID)
	assert.Equal(t, late.ID, got[1].ID)

	takeover, err := got[0].Takeover()
	require.NoError(t, err)
	assert.Equal(t, billing.MustClockTime("18:00"), takeover.Start)
}

func TestStore_Compensations_Overlapping(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Wache West")
	require.NoError(t, store.CreateCompany(ctx, c))

	r := &sqlite.CompensationRecord{
		CompanyID:  c.ID,
		StartDate:  billing.NewDate(2025, 5, 1),
		EndDate:    billing.NewDate(2025, 5, 7),
		TotalHours: 16.5,
	}
	require.NoError(t, store.CreateCompensation(ctx, r))

	may, err := billing.NewPeriod(billing.NewDate(2025, 5, 1), billing.NewDate(2025, 5, 31))
	require.NoError(t, err)
	got, err := store.CompensationsOverlapping(ctx, c.ID, may)
	require.NoError(t, err)
	require.Len(t, got, 1)

	comp, err := got[0].Compensation()
	require.NoError(t, err)
	assert.Equal(t, 16.5, comp.TotalHours)

	june, err := billing.NewPeriod(billing.NewDate(2025, 6, 1), billing.NewDate(2025, 6, 30))
	require.NoError(t, err)
	got, err = store.CompensationsOverlapping(ctx, c.ID, june)
	require.NoError(t, err)
	assert.Empty(t, got)
}

// =============================================================================
// INVOICE NUMBERING TESTS
// =============================================================================

func TestStore_Invoice_NumberSequence(t *testing.T) {
	// GIVEN: An empty store
	// WHEN: Creating three invoices in 2025 and one in 2026
	// THEN: Numbers run RE-2025-0001..0003 and restart at RE-2026-0001

	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Nummern GmbH")
	require.NoError(t, store.CreateCompany(ctx, c))

	date2025 := billing.NewDate(2025, 1, 15)
	for i, want := range []string{"RE-2025-0001", "RE-2025-0002", "RE-2025-0003"} {
		inv := testInvoice(c.ID, date2025.AddDays(i), "1000.00")
		require.NoError(t, store.CreateInvoice(ctx, inv))
		assert.Equal(t, want, inv.Number)
	}

	inv := testInvoice(c.ID, billing.NewDate(2026, 1, 5), "500.00")
	require.NoError(t, store.CreateInvoice(ctx, inv))
	assert.Equal(t, "RE-2026-0001", inv.Number)
}

func TestStore_Invoice_RoundTrip(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Rechnungs GmbH")
	require.NoError(t, store.CreateCompany(ctx, c))

	rate := decimal.RequireFromString("25.50")
	inv := testInvoice(c.ID, billing.NewDate(2025, 2, 1), "2260.10")
	inv.TakeoverHours = 7.6
	inv.TakeoverRate = &rate
	inv.Notes = "Februar"
	require.NoError(t, store.CreateInvoice(ctx, inv))

	got, err := store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, inv.Number, got.Number)
	assert.Equal(t, invoicing.BillingHourly, got.BillingType)
	assert.Equal(t, 7.6, got.TakeoverHours)
	require.NotNil(t, got.TakeoverRate)
	assert.True(t, got.TakeoverRate.Equal(rate))
	assert.True(t, got.TotalAmount.Equal(decimal.RequireFromString("2260.10")))
	assert.Equal(t, invoicing.StatusOpen, got.Status)
	assert.Empty(t, got.Payments)
	assert.Equal(t, "01.01.2025 - 31.01.2025", got.Period.String())
}

// =============================================================================
// PAYMENT TESTS
// =============================================================================

func TestStore_Payment_PartialThenPaid(t *testing.T) {
	// GIVEN: An open invoice over 1000
	// WHEN: Recording 400 and then 600
	// THEN: Status moves open -> partial -> paid, paid date set by the
	//       settling payment

	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Zahler GmbH")
	require.NoError(t, store.CreateCompany(ctx, c))

	inv := testInvoice(c.ID, billing.NewDate(2025, 3, 1), "1000.00")
	require.NoError(t, store.CreateInvoice(ctx, inv))

	pay := func(amount string, day int) {
		p := invoicing.Payment{
			InvoiceID: inv.ID,
			Amount:    decimal.RequireFromString(amount),
			Date:      billing.NewDate(2025, 3, day),
			Method:    "bank_transfer",
		}
		require.NoError(t, invoicing.ApplyPayment(inv, p))
		require.NoError(t, store.RecordPayment(ctx, &p, inv.Status, inv.PaidDate))
	}

	pay("400.00", 10)
	got, err := store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.StatusPartial, got.Status)
	require.Len(t, got.Payments, 1)
	assert.True(t, got.OpenAmount().Equal(decimal.RequireFromString("600.00")))

	pay("600.00", 20)
	got, err = store.GetInvoice(ctx, inv.ID)
	require.NoError(t, err)
	assert.Equal(t, invoicing.StatusPaid, got.Status)
	require.NotNil(t, got.PaidDate)
	assert.Equal(t, billing.NewDate(2025, 3, 20), *got.PaidDate)
	assert.True(t, got.OpenAmount().IsZero())
}

// =============================================================================
// OVERDUE / DUNNING TESTS
// =============================================================================

func TestStore_OverdueAndDunning(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Säumig GmbH")
	require.NoError(t, store.CreateCompany(ctx, c))

	overdue := testInvoice(c.ID, billing.NewDate(2025, 1, 10), "800.00")
	require.NoError(t, store.CreateInvoice(ctx, overdue))
	current := testInvoice(c.ID, billing.NewDate(2025, 6, 1), "500.00")
	require.NoError(t, store.CreateInvoice(ctx, current))

	today := billing.NewDate(2025, 6, 10)
	got, err := store.ListOverdueInvoices(ctx, today)
	require.NoError(t, err)
	require.Len(t, got, 1)
	assert.Equal(t, overdue.Number, got[0].Number)

	d, err := invoicing.NewDunning(*got[0], 1, today, today.AddDays(7),
		decimal.RequireFromString("5.00"))
	require.NoError(t, err)
	require.NoError(t, store.CreateDunning(ctx, &d))

	reloaded, err := store.GetInvoice(ctx, overdue.ID)
	require.NoError(t, err)
	assert.Equal(t, 1, reloaded.DunningLevel)

	dunnings, err := store.ListDunnings(ctx, overdue.ID)
	require.NoError(t, err)
	require.Len(t, dunnings, 1)
	assert.True(t, dunnings[0].Fee.Equal(decimal.RequireFromString("5.00")))
	assert.Equal(t, today.AddDays(7), dunnings[0].NewDueDate)
}

func TestStore_ListInvoices_StatusFilter(t *testing.T) {
	// GIVEN: One open, one partial and one paid invoice
	// WHEN: Filtering by "open"
	// THEN: Partial counts as open, paid does not

	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Filter GmbH")
	require.NoError(t, store.CreateCompany(ctx, c))

	mk := func(day int, status invoicing.Status) *invoicing.Invoice {
		inv := testInvoice(c.ID, billing.NewDate(2025, 4, day), "100.00")
		require.NoError(t, store.CreateInvoice(ctx, inv))
		if status != invoicing.StatusOpen {
			require.NoError(t, store.UpdateInvoiceStatus(ctx, inv.ID, status, nil, ""))
		}
		return inv
	}
	mk(1, invoicing.StatusOpen)
	mk(2, invoicing.StatusPartial)
	mk(3, invoicing.StatusPaid)

	open, err := store.ListInvoices(ctx, "open", 0)
	require.NoError(t, err)
	assert.Len(t, open, 2)

	paid, err := store.ListInvoices(ctx, "paid", 0)
	require.NoError(t, err)
	assert.Len(t, paid, 1)

	all, err := store.ListInvoices(ctx, "all", c.ID)
	require.NoError(t, err)
	assert.Len(t, all, 3)
}

// =============================================================================
// TIME ENTRY TESTS
// =============================================================================

func TestStore_TimeEntry_OvernightCompletion(t *testing.T) {
	// GIVEN: An open clock record starting at 22:00
	// WHEN: Completing it at 06:00 with a 30 minute pause
	// THEN: The shift wraps past midnight and totals 7.5 hours

	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Uhr GmbH")
	require.NoError(t, store.CreateCompany(ctx, c))

	e := &sqlite.TimeEntry{
		CompanyID: c.ID,
		UserName:  "m.weber",
		Date:      billing.NewDate(2025, 7, 14),
		StartTime: "22:00",
	}
	require.NoError(t, store.CreateTimeEntry(ctx, e))
	assert.False(t, e.Completed)

	done, err := store.CompleteTimeEntry(ctx, e.ID, "06:00", 30)
	require.NoError(t, err)
	assert.True(t, done.Completed)
	require.NotNil(t, done.TotalHours)
	assert.Equal(t, 7.5, *done.TotalHours)

	entries, err := store.ListTimeEntries(ctx, c.ID, nil, "m.weber")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "06:00", entries[0].EndTime)
}

func TestStore_TimeEntry_RejectsBadClockTime(t *testing.T) {
	store := newTestStore(t)
	ctx := context.Background()

	c := testCompany("Uhr GmbH")
	require.NoError(t, store.CreateCompany(ctx, c))

	e := &sqlite.TimeEntry{
		CompanyID: c.ID,
		UserName:  "m.weber",
		Date:      billing.NewDate(2025, 7, 14),
		StartTime: "25:00",
	}
	err := store.CreateTimeEntry(ctx, e)
	assert.ErrorIs(t, err, billing.ErrInvalidTimeFormat)
}
