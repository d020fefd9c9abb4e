/*
companies.go - Client company records

  A company's weekly schedule is stored as a JSON object keyed by
  lowercase weekday names ("monday".."sunday"), each entry a start/end
  HH:MM pair - a tagged lookup table rather than fourteen parallel
  columns. WeeklySchedule() converts the record into the engine's form.
*/
package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/nachtwache/billing-engine/billing"
)

// ShiftTimes is one weekday's start/end pair as stored in schedule_json.
type ShiftTimes struct {
	Start string `json:"start"`
	End   string `json:"end"`
}

// Company is a client company record.
type Company struct {
	ID             int64
	Name           string
	CustomerNumber string
	ContactPerson  string
	Address        string
	PostalCode     string
	City           string
	Email          string
	Phone          string

	// FederalState selects the holiday calendar. Usually derived from
	// the postal code at write time.
	FederalState string

	// EarlyTakeoverPrice is the per-hour rate snapshotted onto invoices
	// that bill takeover hours. Nil when the company has none.
	EarlyTakeoverPrice *decimal.Decimal

	HolidayTakeover    bool
	HolidayScheduleRef string // lowercase weekday name, default "sunday"

	// Schedule maps lowercase weekday names to their shift window.
	Schedule map[string]ShiftTimes

	CreatedAt time.Time
}

// WeeklySchedule converts the record into the engine's schedule form.
func (c Company) WeeklySchedule() (billing.WeeklySchedule, error) {
	days := make(map[time.Weekday]billing.ShiftWindow, len(c.Schedule))
	for key, times := range c.Schedule {
		if times.Start == "" && times.End == "" {
			continue
		}
		start, err := billing.ParseClockTime(times.Start)
		if err != nil {
			return billing.WeeklySchedule{}, fmt.Errorf("company %d %s: %w", c.ID, key, err)
		}
		end, err := billing.ParseClockTime(times.End)
		if err != nil {
			return billing.WeeklySchedule{}, fmt.Errorf("company %d %s: %w", c.ID, key, err)
		}
		days[billing.ParseWeekdayName(key)] = billing.ShiftWindow{Start: start, End: end}
	}

	return billing.WeeklySchedule{
		Days:               days,
		State:              c.FederalState,
		HolidayTakeover:    c.HolidayTakeover,
		HolidayScheduleRef: billing.ParseWeekdayName(c.HolidayScheduleRef),
	}, nil
}

const companyColumns = `id, name, customer_number, contact_person, address, postal_code,
	city, email, phone, federal_state, early_takeover_price, holiday_takeover,
	holiday_schedule_ref, schedule_json, created_at`

// CreateCompany inserts a company and sets its ID.
func (s *Store) CreateCompany(ctx context.Context, c *Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduleJSON, err := json.Marshal(c.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	if c.HolidayScheduleRef == "" {
		c.HolidayScheduleRef = "sunday"
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO companies
		(name, customer_number, contact_person, address, postal_code, city, email,
		 phone, federal_state, early_takeover_price, holiday_takeover,
		 holiday_schedule_ref, schedule_json, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		c.Name,
		nullString(c.CustomerNumber),
		nullString(c.ContactPerson),
		nullString(c.Address),
		nullString(c.PostalCode),
		nullString(c.City),
		nullString(c.Email),
		nullString(c.Phone),
		nullString(c.FederalState),
		nullDecimal(c.EarlyTakeoverPrice),
		c.HolidayTakeover,
		c.HolidayScheduleRef,
		string(scheduleJSON),
		now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create company: %w", err)
	}

	c.ID, err = res.LastInsertId()
	return err
}

// UpdateCompany replaces all mutable fields of a company.
func (s *Store) UpdateCompany(ctx context.Context, c *Company) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	scheduleJSON, err := json.Marshal(c.Schedule)
	if err != nil {
		return fmt.Errorf("failed to encode schedule: %w", err)
	}
	if c.HolidayScheduleRef == "" {
		c.HolidayScheduleRef = "sunday"
	}

	res, err := s.db.ExecContext(ctx, `
		UPDATE companies SET
			name = ?, customer_number = ?, contact_person = ?, address = ?,
			postal_code = ?, city = ?, email = ?, phone = ?, federal_state = ?,
			early_takeover_price = ?, holiday_takeover = ?, holiday_schedule_ref = ?,
			schedule_json = ?
		WHERE id = ?`,
		c.Name,
		nullString(c.CustomerNumber),
		nullString(c.ContactPerson),
		nullString(c.Address),
		nullString(c.PostalCode),
		nullString(c.City),
		nullString(c.Email),
		nullString(c.Phone),
		nullString(c.FederalState),
		nullDecimal(c.EarlyTakeoverPrice),
		c.HolidayTakeover,
		c.HolidayScheduleRef,
		string(scheduleJSON),
		c.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update company: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// GetCompany loads a company by ID.
func (s *Store) GetCompany(ctx context.Context, id int64) (*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+companyColumns+` FROM companies WHERE id = ?`, id)
	return scanCompany(row)
}

// ListCompanies returns all companies ordered by name.
func (s *Store) ListCompanies(ctx context.Context) ([]*Company, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx,
		`SELECT `+companyColumns+` FROM companies ORDER BY name ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list companies: %w", err)
	}
	defer rows.Close()

	var companies []*Company
	for rows.Next() {
		c, err := scanCompany(rows)
		if err != nil {
			return nil, err
		}
		companies = append(companies, c)
	}
	return companies, rows.Err()
}

// DeleteCompany removes a company.
func (s *Store) DeleteCompany(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM companies WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete company: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanCompany(row rowScanner) (*Company, error) {
	var (
		c            Company
		customerNo   sql.NullString
		contact      sql.NullString
		address      sql.NullString
		postalCode   sql.NullString
		city         sql.NullString
		email        sql.NullString
		phone        sql.NullString
		state        sql.NullString
		price        sql.NullString
		scheduleJSON string
		createdAt    string
	)

	err := row.Scan(&c.ID, &c.Name, &customerNo, &contact, &address, &postalCode,
		&city, &email, &phone, &state, &price, &c.HolidayTakeover,
		&c.HolidayScheduleRef, &scheduleJSON, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan company: %w", err)
	}

	c.CustomerNumber = customerNo.String
	c.ContactPerson = contact.String
	c.Address = address.String
	c.PostalCode = postalCode.String
	c.City = city.String
	c.Email = email.String
	c.Phone = phone.String
	c.FederalState = state.String

	if c.EarlyTakeoverPrice, err = scanDecimalPtr(price); err != nil {
		return nil, fmt.Errorf("company %d: bad takeover price: %w", c.ID, err)
	}
	if err := json.Unmarshal([]byte(scheduleJSON), &c.Schedule); err != nil {
		return nil, fmt.Errorf("company %d: bad schedule: %w", c.ID, err)
	}
	if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
		c.CreatedAt = t
	}
	return &c, nil
}
