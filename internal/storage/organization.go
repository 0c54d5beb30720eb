package storage

import (
	"context"
	"fmt"

	"tesouraria/internal/core"
)

func (r *SQLiteRepository) CreateCity(ctx context.Context, c core.City) (core.City, error) {
	if c.ID == "" {
		c.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO cities (id, name, state) VALUES (?, ?, ?)`,
		c.ID, c.Name, c.State)
	if err != nil {
		return core.City{}, fmt.Errorf("create city: %w", mapError(err))
	}
	return c, nil
}

func (r *SQLiteRepository) GetCity(ctx context.Context, id string) (core.City, error) {
	var c core.City
	err := r.db.QueryRowContext(ctx,
		`SELECT id, name, state FROM cities WHERE id = ?`, id).
		Scan(&c.ID, &c.Name, &c.State)
	if err != nil {
		return core.City{}, fmt.Errorf("get city %s: %w", id, mapError(err))
	}
	return c, nil
}

func (r *SQLiteRepository) ListCities(ctx context.Context) ([]core.City, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT id, name, state FROM cities ORDER BY name`)
	if err != nil {
		return nil, fmt.Errorf("list cities: %w", err)
	}
	defer rows.Close()

	cities := []core.City{}
	for rows.Next() {
		var c core.City
		if err := rows.Scan(&c.ID, &c.Name, &c.State); err != nil {
			return nil, fmt.Errorf("scan city: %w", err)
		}
		cities = append(cities, c)
	}
	return cities, rows.Err()
}

func (r *SQLiteRepository) CreateTeam(ctx context.Context, t core.Team) (core.Team, error) {
	if t.ID == "" {
		t.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO teams (id, city_id, name) VALUES (?, ?, ?)`,
		t.ID, t.CityID, t.Name)
	if err != nil {
		return core.Team{}, fmt.Errorf("create team: %w", mapError(err))
	}
	return t, nil
}

func (r *SQLiteRepository) GetTeam(ctx context.Context, id string) (core.Team, error) {
	var t core.Team
	err := r.db.QueryRowContext(ctx,
		`SELECT id, city_id, name FROM teams WHERE id = ?`, id).
		Scan(&t.ID, &t.CityID, &t.Name)
	if err != nil {
		return core.Team{}, fmt.Errorf("get team %s: %w", id, mapError(err))
	}
	return t, nil
}

// ListTeams returns the teams of cityID, or every team when cityID is empty.
func (r *SQLiteRepository) ListTeams(ctx context.Context, cityID string) ([]core.Team, error) {
	query := `SELECT id, city_id, name FROM teams`
	var args []any
	if cityID != "" {
		query += ` WHERE city_id = ?`
		args = append(args, cityID)
	}
	query += ` ORDER BY name`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list teams: %w", err)
	}
	defer rows.Close()

	teams := []core.Team{}
	for rows.Next() {
		var t core.Team
		if err := rows.Scan(&t.ID, &t.CityID, &t.Name); err != nil {
			return nil, fmt.Errorf("scan team: %w", err)
		}
		teams = append(teams, t)
	}
	return teams, rows.Err()
}

func (r *SQLiteRepository) UpdateTeam(ctx context.Context, t core.Team) error {
	err := r.execOne(ctx,
		`UPDATE teams SET city_id = ?, name = ? WHERE id = ?`,
		t.CityID, t.Name, t.ID)
	if err != nil {
		return fmt.Errorf("update team %s: %w", t.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteTeam(ctx context.Context, id string) error {
	if err := r.execOne(ctx, `DELETE FROM teams WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete team %s: %w", id, err)
	}
	return nil
}
