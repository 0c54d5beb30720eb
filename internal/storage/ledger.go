package storage

import (
	"context"
	"database/sql"
	"fmt"

	"tesouraria/internal/core"
)

const ledgerColumns = `id, city_id, entry_date, kind, description, category, amount_cents, payment_id`

func scanLedgerEntry(s scanner) (core.LedgerEntry, error) {
	var (
		e         core.LedgerEntry
		date      string
		kind      string
		paymentID sql.NullString
	)
	err := s.Scan(&e.ID, &e.CityID, &date, &kind, &e.Description, &e.Category, &e.Amount.Cents, &paymentID)
	if err != nil {
		return core.LedgerEntry{}, err
	}
	e.Kind = core.EntryKind(kind)
	e.PaymentID = paymentID.String
	if e.Date, err = parseDate(date); err != nil {
		return core.LedgerEntry{}, err
	}
	return e, nil
}

// CreateLedgerEntry stores e. A second entry for the same payment fails with ErrConflict.
func (r *SQLiteRepository) CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO ledger_entries (`+ledgerColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		e.ID, e.CityID, formatDate(e.Date), string(e.Kind), e.Description, e.Category,
		e.Amount.Cents, nullable(e.PaymentID))
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("create ledger entry: %w", mapError(err))
	}
	return e, nil
}

func (r *SQLiteRepository) GetLedgerEntry(ctx context.Context, id string) (core.LedgerEntry, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+ledgerColumns+` FROM ledger_entries WHERE id = ?`, id)
	e, err := scanLedgerEntry(row)
	if err != nil {
		return core.LedgerEntry{}, fmt.Errorf("get ledger entry %s: %w", id, mapError(err))
	}
	return e, nil
}

func (r *SQLiteRepository) DeleteLedgerEntry(ctx context.Context, id string) error {
	if err := r.execOne(ctx, `DELETE FROM ledger_entries WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete ledger entry %s: %w", id, err)
	}
	return nil
}

// DeleteLedgerEntryByPayment removes the entry posted for paymentID.
func (r *SQLiteRepository) DeleteLedgerEntryByPayment(ctx context.Context, paymentID string) error {
	if err := r.execOne(ctx, `DELETE FROM ledger_entries WHERE payment_id = ?`, paymentID); err != nil {
		return fmt.Errorf("delete ledger entry of payment %s: %w", paymentID, err)
	}
	return nil
}

// ListLedgerEntries returns the entries of cityID dated within [from, to].
// A zero bound leaves that side open.
func (r *SQLiteRepository) ListLedgerEntries(ctx context.Context, cityID string, from, to core.Date) ([]core.LedgerEntry, error) {
	query := `SELECT ` + ledgerColumns + ` FROM ledger_entries WHERE city_id = ?`
	args := []any{cityID}
	if !from.IsZero() {
		query += ` AND entry_date >= ?`
		args = append(args, formatDate(from))
	}
	if !to.IsZero() {
		query += ` AND entry_date <= ?`
		args = append(args, formatDate(to))
	}
	query += ` ORDER BY entry_date, created_at, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list ledger entries: %w", err)
	}
	defer rows.Close()

	entries := []core.LedgerEntry{}
	for rows.Next() {
		e, err := scanLedgerEntry(rows)
		if err != nil {
			return nil, fmt.Errorf("scan ledger entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, rows.Err()
}

// LedgerBalanceBefore sums credits minus debits of cityID dated before date.
func (r *SQLiteRepository) LedgerBalanceBefore(ctx context.Context, cityID string, date core.Date) (core.Money, error) {
	var cents int64
	err := r.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE kind WHEN 'debit' THEN -amount_cents ELSE amount_cents END), 0)
		FROM ledger_entries WHERE city_id = ? AND entry_date < ?`,
		cityID, formatDate(date)).Scan(&cents)
	if err != nil {
		return core.Money{}, fmt.Errorf("ledger balance: %w", err)
	}
	return core.Money{Cents: cents}, nil
}
