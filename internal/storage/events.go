package storage

import (
	"context"
	"database/sql"
	"fmt"

	"tesouraria/internal/core"
)

const eventColumns = `id, city_id, name, event_date, ticket_price_cents, ticket_goal`

func scanEvent(s scanner) (core.Event, error) {
	var (
		e    core.Event
		date string
	)
	if err := s.Scan(&e.ID, &e.CityID, &e.Name, &date, &e.TicketPrice.Cents, &e.TicketGoal); err != nil {
		return core.Event{}, err
	}
	var err error
	if e.Date, err = parseDate(date); err != nil {
		return core.Event{}, err
	}
	return e, nil
}

func (r *SQLiteRepository) CreateEvent(ctx context.Context, e core.Event) (core.Event, error) {
	if e.ID == "" {
		e.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`) VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.CityID, e.Name, formatDate(e.Date), e.TicketPrice.Cents, e.TicketGoal)
	if err != nil {
		return core.Event{}, fmt.Errorf("create event: %w", mapError(err))
	}
	return e, nil
}

func (r *SQLiteRepository) GetEvent(ctx context.Context, id string) (core.Event, error) {
	e, err := scanEvent(r.db.QueryRowContext(ctx, `SELECT `+eventColumns+` FROM events WHERE id = ?`, id))
	if err != nil {
		return core.Event{}, fmt.Errorf("get event %s: %w", id, mapError(err))
	}
	return e, nil
}

// ListEvents returns the events of cityID, newest first. Empty cityID lists all.
func (r *SQLiteRepository) ListEvents(ctx context.Context, cityID string) ([]core.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events`
	var args []any
	if cityID != "" {
		query += ` WHERE city_id = ?`
		args = append(args, cityID)
	}
	query += ` ORDER BY event_date DESC, name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list events: %w", err)
	}
	defer rows.Close()

	events := []core.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("scan event: %w", err)
		}
		events = append(events, e)
	}
	return events, rows.Err()
}

func (r *SQLiteRepository) CreateEventSale(ctx context.Context, s core.EventSale) (core.EventSale, error) {
	if s.ID == "" {
		s.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO event_sales (id, event_id, team_id, member_id, buyer, quantity, amount_cents, sale_date)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
		s.ID, s.EventID, nullable(s.TeamID), nullable(s.MemberID), s.Buyer, s.Quantity,
		s.Amount.Cents, formatDate(s.Date))
	if err != nil {
		return core.EventSale{}, fmt.Errorf("create event sale: %w", mapError(err))
	}
	return s, nil
}

func (r *SQLiteRepository) ListEventSales(ctx context.Context, eventID string) ([]core.EventSale, error) {
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, event_id, team_id, member_id, buyer, quantity, amount_cents, sale_date
		FROM event_sales WHERE event_id = ? ORDER BY sale_date, created_at, id`, eventID)
	if err != nil {
		return nil, fmt.Errorf("list event sales: %w", err)
	}
	defer rows.Close()

	sales := []core.EventSale{}
	for rows.Next() {
		var (
			s        core.EventSale
			teamID   sql.NullString
			memberID sql.NullString
			date     string
		)
		if err := rows.Scan(&s.ID, &s.EventID, &teamID, &memberID, &s.Buyer, &s.Quantity, &s.Amount.Cents, &date); err != nil {
			return nil, fmt.Errorf("scan event sale: %w", err)
		}
		s.TeamID = teamID.String
		s.MemberID = memberID.String
		if s.Date, err = parseDate(date); err != nil {
			return nil, err
		}
		sales = append(sales, s)
	}
	return sales, rows.Err()
}
