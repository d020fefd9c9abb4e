/*
overrides.go - Takeover and compensation records

  Range queries use the usual interval-overlap predicate
  (start_date <= range end AND end_date >= range start) and return rows
  ordered by (start_date, id) so the resolver's first-match tie-break
  stays deterministic.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/nachtwache/billing-engine/billing"
)

// TakeoverRecord is a persisted early-takeover override.
type TakeoverRecord struct {
	ID        int64
	CompanyID int64
	StartDate billing.Date
	EndDate   billing.Date
	StartTime string
	EndTime   string
	Notes     string
	CreatedBy string
	CreatedAt time.Time
}

// Takeover converts the record into the engine's form.
func (r TakeoverRecord) Takeover() (billing.Takeover, error) {
	start, err := billing.ParseClockTime(r.StartTime)
	if err != nil {
		return billing.Takeover{}, fmt.Errorf("takeover %d: %w", r.ID, err)
	}
	end, err := billing.ParseClockTime(r.EndTime)
	if err != nil {
		return billing.Takeover{}, fmt.Errorf("takeover %d: %w", r.ID, err)
	}
	period, err := billing.NewPeriod(r.StartDate, r.EndDate)
	if err != nil {
		return billing.Takeover{}, fmt.Errorf("takeover %d: %w", r.ID, err)
	}
	return billing.Takeover{Period: period, Start: start, End: end, Note: r.Notes}, nil
}

// CompensationRecord is a persisted hours-compensation adjustment.
type CompensationRecord struct {
	ID         int64
	CompanyID  int64
	StartDate  billing.Date
	EndDate    billing.Date
	TotalHours float64
	CreatedBy  string
	CreatedAt  time.Time
}

// Compensation converts the record into the engine's form.
func (r CompensationRecord) Compensation() (billing.Compensation, error) {
	period, err := billing.NewPeriod(r.StartDate, r.EndDate)
	if err != nil {
		return billing.Compensation{}, fmt.Errorf("compensation %d: %w", r.ID, err)
	}
	return billing.Compensation{Period: period, TotalHours: r.TotalHours}, nil
}

// =============================================================================
// TAKEOVERS
// =============================================================================

// CreateTakeover inserts a takeover and sets its ID.
func (s *Store) CreateTakeover(ctx context.Context, r *TakeoverRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO takeovers
		(company_id, start_date, end_date, start_time, end_time, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		r.CompanyID, r.StartDate.ISO(), r.EndDate.ISO(),
		r.StartTime, r.EndTime, nullString(r.Notes), nullString(r.CreatedBy), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create takeover: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// ListTakeovers returns takeovers, optionally filtered by company,
// newest range first.
func (s *Store) ListTakeovers(ctx context.Context, companyID int64) ([]*TakeoverRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, company_id, start_date, end_date, start_time, end_time,
		notes, created_by, created_at FROM takeovers`
	args := []any{}
	if companyID != 0 {
		query += ` WHERE company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY start_date DESC, id DESC`

	return s.queryTakeovers(ctx, query, args...)
}

// TakeoversOverlapping returns a company's takeovers that touch the
// period, ordered by (start_date, id) for the first-match tie-break.
func (s *Store) TakeoversOverlapping(ctx context.Context, companyID int64, period billing.Period) ([]*TakeoverRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryTakeovers(ctx, `
		SELECT id, company_id, start_date, end_date, start_time, end_time,
		       notes, created_by, created_at
		FROM takeovers
		WHERE company_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC`,
		companyID, period.End.ISO(), period.Start.ISO(),
	)
}

// DeleteTakeover removes a takeover.
func (s *Store) DeleteTakeover(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM takeovers WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete takeover: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryTakeovers(ctx context.Context, query string, args ...any) ([]*TakeoverRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query takeovers: %w", err)
	}
	defer rows.Close()

	var records []*TakeoverRecord
	for rows.Next() {
		var (
			r          TakeoverRecord
			start, end string
			notes      sql.NullString
			createdBy  sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&r.ID, &r.CompanyID, &start, &end, &r.StartTime,
			&r.EndTime, &notes, &createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan takeover: %w", err)
		}
		if r.StartDate, err = billing.ParseDate(start); err != nil {
			return nil, err
		}
		if r.EndDate, err = billing.ParseDate(end); err != nil {
			return nil, err
		}
		r.Notes = notes.String
		r.CreatedBy = createdBy.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}

// =============================================================================
// COMPENSATIONS
// =============================================================================

// CreateCompensation inserts a compensation and sets its ID.
func (s *Store) CreateCompensation(ctx context.Context, r *CompensationRecord) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		INSERT INTO compensations
		(company_id, start_date, end_date, total_hours, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		r.CompanyID, r.StartDate.ISO(), r.EndDate.ISO(),
		r.TotalHours, nullString(r.CreatedBy), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create compensation: %w", err)
	}
	r.ID, err = res.LastInsertId()
	return err
}

// ListCompensations returns compensations, optionally filtered by
// company, newest range first.
func (s *Store) ListCompensations(ctx context.Context, companyID int64) ([]*CompensationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT id, company_id, start_date, end_date, total_hours,
		created_by, created_at FROM compensations`
	args := []any{}
	if companyID != 0 {
		query += ` WHERE company_id = ?`
		args = append(args, companyID)
	}
	query += ` ORDER BY start_date DESC, id DESC`

	return s.queryCompensations(ctx, query, args...)
}

// CompensationsOverlapping returns a company's compensations that touch
// the period.
func (s *Store) CompensationsOverlapping(ctx context.Context, companyID int64, period billing.Period) ([]*CompensationRecord, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryCompensations(ctx, `
		SELECT id, company_id, start_date, end_date, total_hours, created_by, created_at
		FROM compensations
		WHERE company_id = ? AND start_date <= ? AND end_date >= ?
		ORDER BY start_date ASC, id ASC`,
		companyID, period.End.ISO(), period.Start.ISO(),
	)
}

// DeleteCompensation removes a compensation.
func (s *Store) DeleteCompensation(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `DELETE FROM compensations WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete compensation: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

func (s *Store) queryCompensations(ctx context.Context, query string, args ...any) ([]*CompensationRecord, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query compensations: %w", err)
	}
	defer rows.Close()

	var records []*CompensationRecord
	for rows.Next() {
		var (
			r          CompensationRecord
			start, end string
			createdBy  sql.NullString
			createdAt  string
		)
		if err := rows.Scan(&r.ID, &r.CompanyID, &start, &end, &r.TotalHours,
			&createdBy, &createdAt); err != nil {
			return nil, fmt.Errorf("failed to scan compensation: %w", err)
		}
		if r.StartDate, err = billing.ParseDate(start); err != nil {
			return nil, err
		}
		if r.EndDate, err = billing.ParseDate(end); err != nil {
			return nil, err
		}
		r.CreatedBy = createdBy.String
		if t, err := time.Parse(time.RFC3339, createdAt); err == nil {
			r.CreatedAt = t
		}
		records = append(records, &r)
	}
	return records, rows.Err()
}
