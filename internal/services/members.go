package services

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"tesouraria/internal/core"
	applog "tesouraria/internal/log"
	"tesouraria/internal/storage"
)

// MemberService manages the member roll.
type MemberService struct {
	store  Store
	logger *applog.Logger
}

func NewMemberService(store Store, logger *applog.Logger) *MemberService {
	return &MemberService{store: store, logger: componentLogger(logger, applog.ComponentMembers)}
}

// prepare normalizes m and checks its references. A member placed in a team
// takes the team's city.
func (s *MemberService) prepare(ctx context.Context, m core.Member) (core.Member, error) {
	m.Name = strings.TrimSpace(m.Name)
	m.FamilyName = strings.TrimSpace(m.FamilyName)
	m.CPF = core.NormalizeCPF(m.CPF)
	if m.Status == "" {
		m.Status = core.StatusPending
	}
	if err := m.Validate(); err != nil {
		return core.Member{}, invalid(err)
	}

	if m.TeamID != "" {
		team, err := s.store.GetTeam(ctx, m.TeamID)
		if errors.Is(err, storage.ErrNotFound) {
			return core.Member{}, invalid(fmt.Errorf("unknown team %q", m.TeamID))
		}
		if err != nil {
			return core.Member{}, err
		}
		if m.CityID != "" && m.CityID != team.CityID {
			return core.Member{}, invalid(fmt.Errorf("team %s is not in city %s", team.ID, m.CityID))
		}
		m.CityID = team.CityID
	}
	return m, nil
}

func (s *MemberService) CreateMember(ctx context.Context, m core.Member) (core.Member, error) {
	m, err := s.prepare(ctx, m)
	if err != nil {
		return core.Member{}, err
	}
	created, err := s.store.CreateMember(ctx, m)
	if err != nil {
		return core.Member{}, err
	}
	s.logger.InfoContext(ctx, "Member created",
		applog.FieldMemberID, created.ID, applog.FieldTeamID, created.TeamID)
	return created, nil
}

func (s *MemberService) UpdateMember(ctx context.Context, m core.Member) (core.Member, error) {
	if _, err := s.store.GetMember(ctx, m.ID); err != nil {
		return core.Member{}, err
	}
	m, err := s.prepare(ctx, m)
	if err != nil {
		return core.Member{}, err
	}
	if err := s.store.UpdateMember(ctx, m); err != nil {
		return core.Member{}, err
	}
	return m, nil
}

func (s *MemberService) DeleteMember(ctx context.Context, id string) error {
	if err := s.store.DeleteMember(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Member deleted", applog.FieldMemberID, id)
	return nil
}

func (s *MemberService) GetMember(ctx context.Context, id string) (core.Member, error) {
	return s.store.GetMember(ctx, id)
}

func (s *MemberService) ListMembers(ctx context.Context, f storage.MemberFilter) ([]core.Member, error) {
	return s.store.ListMembers(ctx, f)
}

// Stats summarizes the members of a city, or of everyone when cityID is empty.
func (s *MemberService) Stats(ctx context.Context, cityID string, now time.Time) (core.MemberStats, error) {
	members, err := s.store.ListMembers(ctx, storage.MemberFilter{CityID: cityID})
	if err != nil {
		return core.MemberStats{}, err
	}
	return core.ComputeMemberStats(members, now), nil
}
