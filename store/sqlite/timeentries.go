/*
timeentries.go - Ad-hoc employee clock records

  A time entry is opened with a start time and completed later with an
  end time; completion computes the worked hours with the same shift
  arithmetic the billing engine uses, so an overnight clock-out lands on
  the right side of midnight.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nachtwache/billing-engine/billing"
)

// TimeEntry is a single employee clock record.
type TimeEntry struct {
	ID           int64
	CompanyID    int64
	UserName     string
	Date         billing.Date
	StartTime    string
	EndTime      string
	PauseMinutes int
	TotalHours   *float64
	Notes        string
	Completed    bool
}

const timeEntryColumns = `id, company_id, user_name, date, start_time, end_time,
	pause_minutes, total_hours, notes, is_completed`

// CreateTimeEntry opens a clock record. EndTime may be empty; the entry
// stays incomplete until CompleteTimeEntry is called.
func (s *Store) CreateTimeEntry(ctx context.Context, e *TimeEntry) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, err := billing.ParseClockTime(e.StartTime); err != nil {
		return err
	}
	if e.EndTime != "" {
		if err := completeEntry(e); err != nil {
			return err
		}
	}

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO time_entries
		(company_id, user_name, date, start_time, end_time, pause_minutes,
		 total_hours, notes, is_completed, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.CompanyID, e.UserName, e.Date.ISO(), e.StartTime,
		nullString(e.EndTime), e.PauseMinutes, nullFloat(e.TotalHours),
		nullString(e.Notes), e.Completed, now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create time entry: %w", err)
	}
	e.ID, err = res.LastInsertId()
	return err
}

// CompleteTimeEntry closes an open entry with an end time and pause,
// computing the worked hours.
func (s *Store) CompleteTimeEntry(ctx context.Context, id int64, endTime string, pauseMinutes int) (*TimeEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+timeEntryColumns+` FROM time_entries WHERE id = ?`, id)
	e, err := scanTimeEntry(row)
	if err != nil {
		return nil, err
	}

	e.EndTime = endTime
	e.PauseMinutes = pauseMinutes
	if err := completeEntry(e); err != nil {
		return nil, err
	}

	if _, err := s.db.ExecContext(ctx, `
		UPDATE time_entries
		SET end_time = ?, pause_minutes = ?, total_hours = ?, is_completed = 1
		WHERE id = ?`,
		e.EndTime, e.PauseMinutes, nullFloat(e.TotalHours), id); err != nil {
		return nil, fmt.Errorf("failed to complete time entry: %w", err)
	}
	return e, nil
}

// ListTimeEntries returns entries for a company, newest date first.
// A zero period disables the date filter; an empty userName matches all.
func (s *Store) ListTimeEntries(ctx context.Context, companyID int64, period *billing.Period, userName string) ([]*TimeEntry, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + timeEntryColumns + ` FROM time_entries WHERE company_id = ?`
	args := []any{companyID}
	if period != nil {
		query += ` AND date >= ? AND date <= ?`
		args = append(args, period.Start.ISO(), period.End.ISO())
	}
	if userName != "" {
		query += ` AND user_name = ?`
		args = append(args, userName)
	}
	query += ` ORDER BY date DESC, start_time DESC, id DESC`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query time entries: %w", err)
	}
	defer rows.Close()

	var entries []*TimeEntry
	for rows.Next() {
		e, err := scanTimeEntry(rows)
		if err != nil {
			return nil, err
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// DeleteTimeEntry removes a clock record.
func (s *Store) DeleteTimeEntry(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM time_entries WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete time entry: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func completeEntry(e *TimeEntry) error {
	start, err := billing.ParseClockTime(e.StartTime)
	if err != nil {
		return err
	}
	end, err := billing.ParseClockTime(e.EndTime)
	if err != nil {
		return err
	}
	hours := billing.WorkedHours(start, end, e.PauseMinutes)
	e.TotalHours = &hours
	e.Completed = true
	return nil
}

func scanTimeEntry(row rowScanner) (*TimeEntry, error) {
	var (
		e       TimeEntry
		date    string
		endTime sql.NullString
		hours   sql.NullFloat64
		notes   sql.NullString
	)
	err := row.Scan(&e.ID, &e.CompanyID, &e.UserName, &date, &e.StartTime,
		&endTime, &e.PauseMinutes, &hours, &notes, &e.Completed)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan time entry: %w", err)
	}
	if e.Date, err = billing.ParseDate(date); err != nil {
		return nil, err
	}
	e.EndTime = endTime.String
	e.Notes = notes.String
	if hours.Valid {
		e.TotalHours = &hours.Float64
	}
	return &e, nil
}
