package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tesouraria/internal/core"
)

// PaymentFilter narrows ListPayments. Empty fields match everything.
// TeamID and CityID select payments of the members currently in that team
// or city, not the team recorded on the payment.
type PaymentFilter struct {
	MemberID       string
	TeamID         string
	CityID         string
	ReferenceMonth string
}

const paymentColumns = `p.id, p.member_id, p.team_id, p.amount_cents, p.paid_on,
	p.reference_month, p.status, p.launched_by`

func scanPayment(s scanner) (core.Payment, error) {
	var (
		p      core.Payment
		teamID sql.NullString
		paidOn string
		status string
	)
	err := s.Scan(&p.ID, &p.MemberID, &teamID, &p.Amount.Cents, &paidOn,
		&p.ReferenceMonth, &status, &p.LaunchedBy)
	if err != nil {
		return core.Payment{}, err
	}
	p.TeamID = teamID.String
	p.Status = core.PaymentStatus(status)
	if p.Date, err = parseDate(paidOn); err != nil {
		return core.Payment{}, err
	}
	return p, nil
}

func (r *SQLiteRepository) CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error) {
	if p.ID == "" {
		p.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO payments (id, member_id, team_id, amount_cents, paid_on, reference_month, status, launched_by)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		p.ID, p.MemberID, nullable(p.TeamID), p.Amount.Cents, formatDate(p.Date),
		p.ReferenceMonth, string(p.Status), p.LaunchedBy)
	if err != nil {
		return core.Payment{}, fmt.Errorf("create payment: %w", mapError(err))
	}
	return p, nil
}

func (r *SQLiteRepository) GetPayment(ctx context.Context, id string) (core.Payment, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+paymentColumns+` FROM payments p WHERE p.id = ?`, id)
	p, err := scanPayment(row)
	if err != nil {
		return core.Payment{}, fmt.Errorf("get payment %s: %w", id, mapError(err))
	}
	return p, nil
}

func (r *SQLiteRepository) DeletePayment(ctx context.Context, id string) error {
	if err := r.execOne(ctx, `DELETE FROM payments WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete payment %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListPayments(ctx context.Context, f PaymentFilter) ([]core.Payment, error) {
	var (
		where []string
		args  []any
	)
	if f.MemberID != "" {
		where = append(where, `p.member_id = ?`)
		args = append(args, f.MemberID)
	}
	if f.TeamID != "" {
		where = append(where, `p.member_id IN (SELECT id FROM members WHERE team_id = ?)`)
		args = append(args, f.TeamID)
	}
	if f.CityID != "" {
		where = append(where, `p.member_id IN (SELECT id FROM members
			WHERE city_id = ? OR team_id IN (SELECT id FROM teams WHERE city_id = ?))`)
		args = append(args, f.CityID, f.CityID)
	}
	if f.ReferenceMonth != "" {
		where = append(where, `p.reference_month = ?`)
		args = append(args, f.ReferenceMonth)
	}

	query := `SELECT ` + paymentColumns + ` FROM payments p`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY p.paid_on, p.created_at, p.id`

	return r.queryPayments(ctx, query, args...)
}

// ListUnpostedPayments returns paid payments with no ledger entry, oldest
// first. Payments whose member cannot be tied to a city are skipped since
// they have no cash book to be posted to.
func (r *SQLiteRepository) ListUnpostedPayments(ctx context.Context, limit int) ([]core.Payment, error) {
	return r.queryPayments(ctx,
		`SELECT `+paymentColumns+` FROM payments p
		LEFT JOIN ledger_entries l ON l.payment_id = p.id
		WHERE l.id IS NULL AND p.status = ? AND p.amount_cents > 0
			AND EXISTS (
				SELECT 1 FROM members m LEFT JOIN teams t ON t.id = m.team_id
				WHERE m.id = p.member_id AND COALESCE(m.city_id, t.city_id) IS NOT NULL
			)
		ORDER BY p.created_at, p.id
		LIMIT ?`,
		string(core.PaymentPaid), limit)
}

func (r *SQLiteRepository) queryPayments(ctx context.Context, query string, args ...any) ([]core.Payment, error) {
	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list payments: %w", err)
	}
	defer rows.Close()

	payments := []core.Payment{}
	for rows.Next() {
		p, err := scanPayment(rows)
		if err != nil {
			return nil, fmt.Errorf("scan payment: %w", err)
		}
		payments = append(payments, p)
	}
	return payments, rows.Err()
}
