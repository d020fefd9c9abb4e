/*
invoices.go - Invoice, payment and dunning persistence

  CreateInvoice allocates the next RE-YYYY-NNNN number and inserts the
  invoice in one database transaction under the store's write lock;
  concurrent creations can never draw the same number.

  RecordPayment writes the payment row and the resulting invoice status
  atomically; CreateDunning writes the notice and bumps the invoice's
  dunning level the same way.
*/
package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/nachtwache/billing-engine/billing"
	"github.com/nachtwache/billing-engine/invoicing"
)

const invoiceColumns = `id, invoice_number, company_id, invoice_date, due_date,
	period_start, period_end, billing_type, total_hours, hourly_rate,
	takeover_hours, takeover_rate, count_pkw, count_lkw, count_oilspill,
	price_pkw, price_lkw, price_oilspill, service_fee, monthly_rate,
	subtotal, tax_rate, tax_amount, total_amount, status, dunning_level,
	paid_date, notes, created_by`

// CreateInvoice allocates the invoice number and inserts the invoice
// atomically. The invoice's ID and Number are set on success.
func (s *Store) CreateInvoice(ctx context.Context, inv *invoicing.Invoice) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	year := inv.InvoiceDate.Year()
	var latest sql.NullString
	err = tx.QueryRowContext(ctx, `
		SELECT invoice_number FROM invoices
		WHERE invoice_number LIKE ?
		ORDER BY invoice_number DESC LIMIT 1`,
		invoicing.NumberPrefix(year)+"%",
	).Scan(&latest)
	if err != nil && err != sql.ErrNoRows {
		return fmt.Errorf("failed to find latest invoice number: %w", err)
	}
	inv.Number = invoicing.NextNumber(year, latest.String)

	res, err := tx.ExecContext(ctx, `
		INSERT INTO invoices
		(invoice_number, company_id, invoice_date, due_date, period_start, period_end,
		 billing_type, total_hours, hourly_rate, takeover_hours, takeover_rate,
		 count_pkw, count_lkw, count_oilspill, price_pkw, price_lkw, price_oilspill,
		 service_fee, monthly_rate, subtotal, tax_rate, tax_amount, total_amount,
		 status, dunning_level, paid_date, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		inv.Number,
		inv.CompanyID,
		inv.InvoiceDate.ISO(),
		inv.DueDate.ISO(),
		inv.Period.Start.ISO(),
		inv.Period.End.ISO(),
		string(inv.BillingType),
		inv.TotalHours,
		inv.HourlyRate.String(),
		inv.TakeoverHours,
		nullDecimal(inv.TakeoverRate),
		inv.CountPKW,
		inv.CountLKW,
		inv.CountOilspill,
		inv.PricePKW.String(),
		inv.PriceLKW.String(),
		inv.PriceOilspill.String(),
		inv.ServiceFee.String(),
		inv.MonthlyRate.String(),
		inv.Subtotal.String(),
		inv.TaxRate.String(),
		inv.TaxAmount.String(),
		inv.TotalAmount.String(),
		string(inv.Status),
		inv.DunningLevel,
		nullDate(inv.PaidDate),
		nullString(inv.Notes),
		nullString(inv.CreatedBy),
		now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create invoice: %w", err)
	}
	if inv.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	return tx.Commit()
}

// GetInvoice loads an invoice including its payments.
func (s *Store) GetInvoice(ctx context.Context, id int64) (*invoicing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	row := s.db.QueryRowContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE id = ?`, id)
	inv, err := scanInvoice(row)
	if err != nil {
		return nil, err
	}
	if inv.Payments, err = s.queryPayments(ctx, inv.ID); err != nil {
		return nil, err
	}
	return inv, nil
}

// ListInvoices returns invoices newest first, optionally filtered.
// Status "open" includes partially paid invoices; "all" or "" disables
// the status filter.
func (s *Store) ListInvoices(ctx context.Context, status string, companyID int64) ([]*invoicing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	query := `SELECT ` + invoiceColumns + ` FROM invoices`
	var (
		where []string
		args  []any
	)
	switch status {
	case "", "all":
	case "open":
		where = append(where, `status IN ('open', 'partial')`)
	default:
		where = append(where, `status = ?`)
		args = append(args, status)
	}
	if companyID != 0 {
		where = append(where, `company_id = ?`)
		args = append(args, companyID)
	}
	for i, w := range where {
		if i == 0 {
			query += ` WHERE ` + w
		} else {
			query += ` AND ` + w
		}
	}
	query += ` ORDER BY invoice_date DESC, id DESC`

	invoices, err := s.queryInvoices(ctx, query, args...)
	if err != nil {
		return nil, err
	}
	for _, inv := range invoices {
		if inv.Payments, err = s.queryPayments(ctx, inv.ID); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

// ListOverdueInvoices returns open invoices past their due date,
// earliest due date first.
func (s *Store) ListOverdueInvoices(ctx context.Context, today billing.Date) ([]*invoicing.Invoice, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	return s.queryInvoices(ctx, `
		SELECT `+invoiceColumns+` FROM invoices
		WHERE status = 'open' AND due_date < ?
		ORDER BY due_date ASC, id ASC`,
		today.ISO(),
	)
}

// UpdateInvoiceStatus sets status, paid date and notes.
func (s *Store) UpdateInvoiceStatus(ctx context.Context, id int64, status invoicing.Status, paidDate *billing.Date, notes string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	res, err := s.db.ExecContext(ctx, `
		UPDATE invoices SET status = ?, paid_date = ?, notes = ? WHERE id = ?`,
		string(status), nullDate(paidDate), nullString(notes), id)
	if err != nil {
		return fmt.Errorf("failed to update invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteInvoice removes an invoice and its payments atomically.
func (s *Store) DeleteInvoice(ctx context.Context, id int64) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.ExecContext(ctx, `DELETE FROM payments WHERE invoice_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete payments: %w", err)
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM dunnings WHERE invoice_id = ?`, id); err != nil {
		return fmt.Errorf("failed to delete dunnings: %w", err)
	}
	res, err := tx.ExecContext(ctx, `DELETE FROM invoices WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("failed to delete invoice: %w", err)
	}
	if n, _ := res.RowsAffected(); n == 0 {
		return ErrNotFound
	}
	return tx.Commit()
}

// =============================================================================
// PAYMENTS
// =============================================================================

// RecordPayment writes the payment and the invoice's new status in one
// transaction. Validation happens in the invoicing package before this
// is called.
func (s *Store) RecordPayment(ctx context.Context, p *invoicing.Payment, status invoicing.Status, paidDate *billing.Date) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO payments
		(invoice_id, amount, payment_date, payment_method, notes, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		p.InvoiceID, p.Amount.String(), p.Date.ISO(),
		nullString(p.Method), nullString(p.Notes), nullString(p.CreatedBy), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to record payment: %w", err)
	}
	if p.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices SET status = ?, paid_date = ? WHERE id = ?`,
		string(status), nullDate(paidDate), p.InvoiceID); err != nil {
		return fmt.Errorf("failed to update invoice status: %w", err)
	}

	return tx.Commit()
}

func (s *Store) queryPayments(ctx context.Context, invoiceID int64) ([]invoicing.Payment, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, amount, payment_date, payment_method, notes, created_by
		FROM payments WHERE invoice_id = ?
		ORDER BY payment_date ASC, id ASC`,
		invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query payments: %w", err)
	}
	defer rows.Close()

	payments := []invoicing.Payment{}
	for rows.Next() {
		var (
			p         invoicing.Payment
			amount    sql.NullString
			date      string
			method    sql.NullString
			notes     sql.NullString
			createdBy sql.NullString
		)
		if err := rows.Scan(&p.ID, &p.InvoiceID, &amount, &date, &method, &notes, &createdBy); err != nil {
			return nil, fmt.Errorf("failed to scan payment: %w", err)
		}
		if p.Amount, err = scanDecimal(amount); err != nil {
			return nil, err
		}
		if p.Date, err = billing.ParseDate(date); err != nil {
			return nil, err
		}
		p.Method = method.String
		p.Notes = notes.String
		p.CreatedBy = createdBy.String
		payments = append(payments, p)
	}
	return payments, rows.Err()
}

// =============================================================================
// DUNNINGS
// =============================================================================

// CreateDunning writes the notice and raises the invoice's dunning
// level in one transaction.
func (s *Store) CreateDunning(ctx context.Context, d *invoicing.Dunning) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `
		INSERT INTO dunnings
		(invoice_id, dunning_level, dunning_date, new_due_date, fee_amount, created_by, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?)`,
		d.InvoiceID, d.Level, d.Date.ISO(), d.NewDueDate.ISO(),
		d.Fee.String(), nullString(d.CreatedBy), now(),
	)
	if err != nil {
		return fmt.Errorf("failed to create dunning: %w", err)
	}
	if d.ID, err = res.LastInsertId(); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx, `
		UPDATE invoices SET dunning_level = ? WHERE id = ?`,
		d.Level, d.InvoiceID); err != nil {
		return fmt.Errorf("failed to update dunning level: %w", err)
	}

	return tx.Commit()
}

// ListDunnings returns an invoice's dunning notices, newest first.
func (s *Store) ListDunnings(ctx context.Context, invoiceID int64) ([]invoicing.Dunning, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rows, err := s.db.QueryContext(ctx, `
		SELECT id, invoice_id, dunning_level, dunning_date, new_due_date, fee_amount, created_by
		FROM dunnings WHERE invoice_id = ?
		ORDER BY dunning_date DESC, id DESC`,
		invoiceID)
	if err != nil {
		return nil, fmt.Errorf("failed to query dunnings: %w", err)
	}
	defer rows.Close()

	dunnings := []invoicing.Dunning{}
	for rows.Next() {
		var (
			d         invoicing.Dunning
			date      string
			newDue    string
			fee       sql.NullString
			createdBy sql.NullString
		)
		if err := rows.Scan(&d.ID, &d.InvoiceID, &d.Level, &date, &newDue, &fee, &createdBy); err != nil {
			return nil, fmt.Errorf("failed to scan dunning: %w", err)
		}
		if d.Date, err = billing.ParseDate(date); err != nil {
			return nil, err
		}
		if d.NewDueDate, err = billing.ParseDate(newDue); err != nil {
			return nil, err
		}
		if d.Fee, err = scanDecimal(fee); err != nil {
			return nil, err
		}
		d.CreatedBy = createdBy.String
		dunnings = append(dunnings, d)
	}
	return dunnings, rows.Err()
}

// =============================================================================
// INVOICE SCANNING
// =============================================================================

func (s *Store) queryInvoices(ctx context.Context, query string, args ...any) ([]*invoicing.Invoice, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to query invoices: %w", err)
	}
	defer rows.Close()

	var invoices []*invoicing.Invoice
	for rows.Next() {
		inv, err := scanInvoice(rows)
		if err != nil {
			return nil, err
		}
		invoices = append(invoices, inv)
	}
	return invoices, rows.Err()
}

func scanInvoice(row rowScanner) (*invoicing.Invoice, error) {
	var (
		inv         invoicing.Invoice
		invoiceDate string
		dueDate     string
		periodStart string
		periodEnd   string
		billingType string
		totalHours  sql.NullFloat64
		hourlyRate  sql.NullString
		toHours     sql.NullFloat64
		toRate      sql.NullString
		countPKW    sql.NullInt64
		countLKW    sql.NullInt64
		countOil    sql.NullInt64
		pricePKW    sql.NullString
		priceLKW    sql.NullString
		priceOil    sql.NullString
		serviceFee  sql.NullString
		monthlyRate sql.NullString
		subtotal    sql.NullString
		taxRate     sql.NullString
		taxAmount   sql.NullString
		totalAmount sql.NullString
		status      string
		paidDate    sql.NullString
		notes       sql.NullString
		createdBy   sql.NullString
	)

	err := row.Scan(&inv.ID, &inv.Number, &inv.CompanyID, &invoiceDate, &dueDate,
		&periodStart, &periodEnd, &billingType, &totalHours, &hourlyRate,
		&toHours, &toRate, &countPKW, &countLKW, &countOil,
		&pricePKW, &priceLKW, &priceOil, &serviceFee, &monthlyRate,
		&subtotal, &taxRate, &taxAmount, &totalAmount, &status, &inv.DunningLevel,
		&paidDate, &notes, &createdBy)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("failed to scan invoice: %w", err)
	}

	if inv.InvoiceDate, err = billing.ParseDate(invoiceDate); err != nil {
		return nil, err
	}
	if inv.DueDate, err = billing.ParseDate(dueDate); err != nil {
		return nil, err
	}
	start, err := billing.ParseDate(periodStart)
	if err != nil {
		return nil, err
	}
	end, err := billing.ParseDate(periodEnd)
	if err != nil {
		return nil, err
	}
	if inv.Period, err = billing.NewPeriod(start, end); err != nil {
		return nil, err
	}

	inv.BillingType = invoicing.BillingType(billingType)
	inv.TotalHours = totalHours.Float64
	inv.TakeoverHours = toHours.Float64
	inv.CountPKW = int(countPKW.Int64)
	inv.CountLKW = int(countLKW.Int64)
	inv.CountOilspill = int(countOil.Int64)
	inv.Status = invoicing.Status(status)
	inv.Notes = notes.String
	inv.CreatedBy = createdBy.String

	if inv.HourlyRate, err = scanDecimal(hourlyRate); err != nil {
		return nil, err
	}
	if inv.TakeoverRate, err = scanDecimalPtr(toRate); err != nil {
		return nil, err
	}
	if inv.PricePKW, err = scanDecimal(pricePKW); err != nil {
		return nil, err
	}
	if inv.PriceLKW, err = scanDecimal(priceLKW); err != nil {
		return nil, err
	}
	if inv.PriceOilspill, err = scanDecimal(priceOil); err != nil {
		return nil, err
	}
	if inv.ServiceFee, err = scanDecimal(serviceFee); err != nil {
		return nil, err
	}
	if inv.MonthlyRate, err = scanDecimal(monthlyRate); err != nil {
		return nil, err
	}
	if inv.Subtotal, err = scanDecimal(subtotal); err != nil {
		return nil, err
	}
	if inv.TaxRate, err = scanDecimal(taxRate); err != nil {
		return nil, err
	}
	if inv.TaxAmount, err = scanDecimal(taxAmount); err != nil {
		return nil, err
	}
	if inv.TotalAmount, err = scanDecimal(totalAmount); err != nil {
		return nil, err
	}
	if inv.PaidDate, err = scanDatePtr(paidDate); err != nil {
		return nil, err
	}

	return &inv, nil
}
