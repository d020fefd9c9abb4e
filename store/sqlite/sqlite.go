/*
Package sqlite provides the SQLite-backed persistence collaborator.

PURPOSE:
  Stores everything the billing engine consumes (companies with weekly
  schedules, takeovers, hour compensations) and everything the invoicing
  flow produces (invoices, payments, dunning notices, time entries). The
  engine itself stays pure; every request re-reads from here and
  recomputes from scratch.

KEY TABLES:
  companies:     Client master data incl. schedule (JSON) and holiday config
  takeovers:     Early-takeover overrides per company and date range
  compensations: Hour adjustments per company and date range
  invoices:      Invoices with billing-type-specific columns
  payments:      Payments against invoices
  dunnings:      Dunning notices against invoices
  time_entries:  Ad-hoc employee clock records

INVOICE NUMBERING:
  Invoice numbers (RE-YYYY-NNNN) are allocated inside the same database
  transaction that inserts the invoice, under the store's write lock, so
  concurrent requests can never observe the same "last number".

MONEY:
  All monetary columns are TEXT holding decimal strings; they are read
  back through decimal.NewFromString. Hours are REAL.

WAL MODE:
  SQLite is opened with WAL for better concurrency; a sync.RWMutex
  serializes writers within the process.

USAGE:
  store, err := sqlite.New("./data/backoffice.db")
  if err != nil {
      log.Fatal(err)
  }
  defer store.Close()
*/
package sqlite

import (
	"database/sql"
	"errors"
	"fmt"
	"sync"
	"time"

	_ "github.com/mattn/go-sqlite3"
	"github.com/shopspring/decimal"

	"github.com/nachtwache/billing-engine/billing"
)

// ErrNotFound is returned when a referenced record does not exist.
var ErrNotFound = errors.New("record not found")

// Store implements persistence for the back office using SQLite.
type Store struct {
	db *sql.DB
	mu sync.RWMutex
}

// New creates a SQLite store with the given database path.
// Use ":memory:" for an in-memory database.
func New(dbPath string) (*Store, error) {
	db, err := sql.Open("sqlite3", dbPath+"?_foreign_keys=on&_journal_mode=WAL")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}
	// One connection keeps ":memory:" databases coherent; writes are
	// serialized by the mutex anyway.
	db.SetMaxOpenConns(1)

	store := &Store{db: db}
	if err := store.migrate(); err != nil {
		db.Close()
		return nil, fmt.Errorf("failed to migrate database: %w", err)
	}

	return store, nil
}

// Close closes the database connection.
func (s *Store) Close() error {
	return s.db.Close()
}

// migrate creates the database schema.
func (s *Store) migrate() error {
	schema := `
	-- Client companies with their weekly schedule and holiday config
	CREATE TABLE IF NOT EXISTS companies (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		name TEXT NOT NULL,
		customer_number TEXT,
		contact_person TEXT,
		address TEXT,
		postal_code TEXT,
		city TEXT,
		email TEXT,
		phone TEXT,
		federal_state TEXT,
		early_takeover_price TEXT,
		holiday_takeover INTEGER NOT NULL DEFAULT 1,
		holiday_schedule_ref TEXT NOT NULL DEFAULT 'sunday',
		schedule_json TEXT NOT NULL DEFAULT '{}',
		created_at TEXT NOT NULL
	);

	-- Early takeover overrides
	CREATE TABLE IF NOT EXISTS takeovers (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT NOT NULL,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_takeovers_company_range
		ON takeovers(company_id, start_date, end_date);

	-- Hour compensation adjustments
	CREATE TABLE IF NOT EXISTS compensations (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		start_date TEXT NOT NULL,
		end_date TEXT NOT NULL,
		total_hours REAL NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_compensations_company_range
		ON compensations(company_id, start_date, end_date);

	-- Invoices
	CREATE TABLE IF NOT EXISTS invoices (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_number TEXT NOT NULL UNIQUE,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		invoice_date TEXT NOT NULL,
		due_date TEXT NOT NULL,
		period_start TEXT NOT NULL,
		period_end TEXT NOT NULL,
		billing_type TEXT NOT NULL,
		total_hours REAL,
		hourly_rate TEXT,
		takeover_hours REAL,
		takeover_rate TEXT,
		count_pkw INTEGER,
		count_lkw INTEGER,
		count_oilspill INTEGER,
		price_pkw TEXT,
		price_lkw TEXT,
		price_oilspill TEXT,
		service_fee TEXT,
		monthly_rate TEXT,
		subtotal TEXT NOT NULL,
		tax_rate TEXT NOT NULL,
		tax_amount TEXT NOT NULL,
		total_amount TEXT NOT NULL,
		status TEXT NOT NULL DEFAULT 'open',
		dunning_level INTEGER NOT NULL DEFAULT 0,
		paid_date TEXT,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_invoices_company
		ON invoices(company_id);
	CREATE INDEX IF NOT EXISTS idx_invoices_status_due
		ON invoices(status, due_date);

	-- Payments against invoices
	CREATE TABLE IF NOT EXISTS payments (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_id INTEGER NOT NULL REFERENCES invoices(id),
		amount TEXT NOT NULL,
		payment_date TEXT NOT NULL,
		payment_method TEXT,
		notes TEXT,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_payments_invoice
		ON payments(invoice_id);

	-- Dunning notices against invoices
	CREATE TABLE IF NOT EXISTS dunnings (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		invoice_id INTEGER NOT NULL REFERENCES invoices(id),
		dunning_level INTEGER NOT NULL,
		dunning_date TEXT NOT NULL,
		new_due_date TEXT NOT NULL,
		fee_amount TEXT NOT NULL,
		created_by TEXT,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_dunnings_invoice
		ON dunnings(invoice_id);

	-- Ad-hoc employee clock records
	CREATE TABLE IF NOT EXISTS time_entries (
		id INTEGER PRIMARY KEY AUTOINCREMENT,
		company_id INTEGER NOT NULL REFERENCES companies(id),
		user_name TEXT NOT NULL,
		date TEXT NOT NULL,
		start_time TEXT NOT NULL,
		end_time TEXT,
		pause_minutes INTEGER NOT NULL DEFAULT 0,
		total_hours REAL,
		notes TEXT,
		is_completed INTEGER NOT NULL DEFAULT 0,
		created_at TEXT NOT NULL
	);

	CREATE INDEX IF NOT EXISTS idx_time_entries_company_date
		ON time_entries(company_id, date);
	`

	_, err := s.db.Exec(schema)
	return err
}

// =============================================================================
// NULLABLE COLUMN HELPERS
// =============================================================================

func nullString(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func nullDecimal(d *decimal.Decimal) any {
	if d == nil {
		return nil
	}
	return d.String()
}

func nullFloat(f *float64) any {
	if f == nil {
		return nil
	}
	return *f
}

func nullDate(d *billing.Date) any {
	if d == nil {
		return nil
	}
	return d.ISO()
}

func scanDecimal(s sql.NullString) (decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s.String)
}

func scanDecimalPtr(s sql.NullString) (*decimal.Decimal, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := decimal.NewFromString(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func scanDatePtr(s sql.NullString) (*billing.Date, error) {
	if !s.Valid || s.String == "" {
		return nil, nil
	}
	d, err := billing.ParseDate(s.String)
	if err != nil {
		return nil, err
	}
	return &d, nil
}

func now() string {
	return time.Now().UTC().Format(time.RFC3339)
}
