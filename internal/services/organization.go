package services

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"tesouraria/internal/core"
	applog "tesouraria/internal/log"
	"tesouraria/internal/storage"
)

// OrganizationService manages cities and their teams.
type OrganizationService struct {
	store  Store
	logger *applog.Logger
}

func NewOrganizationService(store Store, logger *applog.Logger) *OrganizationService {
	return &OrganizationService{store: store, logger: componentLogger(logger, applog.ComponentTreasury)}
}

func (s *OrganizationService) CreateCity(ctx context.Context, c core.City) (core.City, error) {
	c.Name = strings.TrimSpace(c.Name)
	c.State = strings.ToUpper(strings.TrimSpace(c.State))
	if err := c.Validate(); err != nil {
		return core.City{}, invalid(err)
	}
	created, err := s.store.CreateCity(ctx, c)
	if err != nil {
		return core.City{}, err
	}
	s.logger.InfoContext(ctx, "City created", applog.FieldCityID, created.ID)
	return created, nil
}

func (s *OrganizationService) GetCity(ctx context.Context, id string) (core.City, error) {
	return s.store.GetCity(ctx, id)
}

func (s *OrganizationService) ListCities(ctx context.Context) ([]core.City, error) {
	return s.store.ListCities(ctx)
}

func (s *OrganizationService) CreateTeam(ctx context.Context, t core.Team) (core.Team, error) {
	t, err := s.prepareTeam(ctx, t)
	if err != nil {
		return core.Team{}, err
	}
	created, err := s.store.CreateTeam(ctx, t)
	if err != nil {
		return core.Team{}, err
	}
	s.logger.InfoContext(ctx, "Team created",
		applog.FieldTeamID, created.ID, applog.FieldCityID, created.CityID)
	return created, nil
}

func (s *OrganizationService) UpdateTeam(ctx context.Context, t core.Team) (core.Team, error) {
	if _, err := s.store.GetTeam(ctx, t.ID); err != nil {
		return core.Team{}, err
	}
	t, err := s.prepareTeam(ctx, t)
	if err != nil {
		return core.Team{}, err
	}
	if err := s.store.UpdateTeam(ctx, t); err != nil {
		return core.Team{}, err
	}
	return t, nil
}

func (s *OrganizationService) prepareTeam(ctx context.Context, t core.Team) (core.Team, error) {
	t.Name = strings.TrimSpace(t.Name)
	if err := t.Validate(); err != nil {
		return core.Team{}, invalid(err)
	}
	if _, err := s.store.GetCity(ctx, t.CityID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.Team{}, invalid(fmt.Errorf("unknown city %q", t.CityID))
		}
		return core.Team{}, err
	}
	return t, nil
}

func (s *OrganizationService) GetTeam(ctx context.Context, id string) (core.Team, error) {
	return s.store.GetTeam(ctx, id)
}

func (s *OrganizationService) ListTeams(ctx context.Context, cityID string) ([]core.Team, error) {
	return s.store.ListTeams(ctx, cityID)
}

// DeleteTeam removes a team. Its members stay on the roll without a team.
func (s *OrganizationService) DeleteTeam(ctx context.Context, id string) error {
	if err := s.store.DeleteTeam(ctx, id); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Team deleted", applog.FieldTeamID, id)
	return nil
}
