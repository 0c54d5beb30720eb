package storage

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"tesouraria/internal/core"
)

// MemberFilter narrows ListMembers. Empty fields match everything.
// CityID matches members registered in the city directly or through their team.
type MemberFilter struct {
	CityID string
	TeamID string
	Status core.MemberStatus
}

const memberColumns = `id, name, family_name, relationship, team_id, city_id, status,
	pays_monthly, cpf, email, phone, birth_date, cep, address`

func scanMember(s scanner) (core.Member, error) {
	var (
		m            core.Member
		teamID       sql.NullString
		cityID       sql.NullString
		relationship string
		status       string
		birth        string
	)
	err := s.Scan(&m.ID, &m.Name, &m.FamilyName, &relationship, &teamID, &cityID, &status,
		&m.PaysMonthly, &m.CPF, &m.Email, &m.Phone, &birth, &m.CEP, &m.Address)
	if err != nil {
		return core.Member{}, err
	}
	m.Relationship = core.Relationship(relationship)
	m.Status = core.MemberStatus(status)
	m.TeamID = teamID.String
	m.CityID = cityID.String
	if m.BirthDate, err = parseDate(birth); err != nil {
		return core.Member{}, err
	}
	return m, nil
}

func (r *SQLiteRepository) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if m.ID == "" {
		m.ID = newID()
	}
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO members (`+memberColumns+`) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		m.ID, m.Name, m.FamilyName, string(m.Relationship), nullable(m.TeamID), nullable(m.CityID),
		string(m.Status), m.PaysMonthly, m.CPF, m.Email, m.Phone, formatDate(m.BirthDate), m.CEP, m.Address)
	if err != nil {
		return core.Member{}, fmt.Errorf("create member: %w", mapError(err))
	}
	return m, nil
}

func (r *SQLiteRepository) GetMember(ctx context.Context, id string) (core.Member, error) {
	row := r.db.QueryRowContext(ctx, `SELECT `+memberColumns+` FROM members WHERE id = ?`, id)
	m, err := scanMember(row)
	if err != nil {
		return core.Member{}, fmt.Errorf("get member %s: %w", id, mapError(err))
	}
	return m, nil
}

func (r *SQLiteRepository) UpdateMember(ctx context.Context, m core.Member) error {
	err := r.execOne(ctx,
		`UPDATE members SET name = ?, family_name = ?, relationship = ?, team_id = ?, city_id = ?,
			status = ?, pays_monthly = ?, cpf = ?, email = ?, phone = ?, birth_date = ?, cep = ?,
			address = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ?`,
		m.Name, m.FamilyName, string(m.Relationship), nullable(m.TeamID), nullable(m.CityID),
		string(m.Status), m.PaysMonthly, m.CPF, m.Email, m.Phone, formatDate(m.BirthDate), m.CEP,
		m.Address, m.ID)
	if err != nil {
		return fmt.Errorf("update member %s: %w", m.ID, err)
	}
	return nil
}

func (r *SQLiteRepository) DeleteMember(ctx context.Context, id string) error {
	if err := r.execOne(ctx, `DELETE FROM members WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete member %s: %w", id, err)
	}
	return nil
}

func (r *SQLiteRepository) ListMembers(ctx context.Context, f MemberFilter) ([]core.Member, error) {
	var (
		where []string
		args  []any
	)
	if f.CityID != "" {
		where = append(where, `(city_id = ? OR team_id IN (SELECT id FROM teams WHERE city_id = ?))`)
		args = append(args, f.CityID, f.CityID)
	}
	if f.TeamID != "" {
		where = append(where, `team_id = ?`)
		args = append(args, f.TeamID)
	}
	if f.Status != "" {
		where = append(where, `status = ?`)
		args = append(args, string(f.Status))
	}

	query := `SELECT ` + memberColumns + ` FROM members`
	if len(where) > 0 {
		query += ` WHERE ` + strings.Join(where, " AND ")
	}
	query += ` ORDER BY name, id`

	rows, err := r.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	defer rows.Close()

	members := []core.Member{}
	for rows.Next() {
		m, err := scanMember(rows)
		if err != nil {
			return nil, fmt.Errorf("scan member: %w", err)
		}
		members = append(members, m)
	}
	return members, rows.Err()
}
