package services

import (
	"context"
	"errors"
	"fmt"

	"golang.org/x/sync/errgroup"

	"tesouraria/internal/core"
	"tesouraria/internal/dues"
	applog "tesouraria/internal/log"
	"tesouraria/internal/storage"
)

// maxTeamWorkers bounds the per-team queries CitySummary runs at once.
const maxTeamWorkers = 4

// TeamReport is the dues status of one team for a month.
type TeamReport struct {
	Team   core.Team       `json:"team"`
	Month  string          `json:"reference_month"`
	Flat   core.Money      `json:"flat_amount"`
	Status dues.TeamStatus `json:"status"`
}

// TeamBreakdown lists what each member of a team owes for a month.
type TeamBreakdown struct {
	TeamReport
	Members []dues.MemberDue `json:"members"`
}

// CitySummary rolls the team reports of a city up into one status.
type CitySummary struct {
	City  core.City       `json:"city"`
	Month string          `json:"reference_month"`
	Flat  core.Money      `json:"flat_amount"`
	Teams []TeamReport    `json:"teams"`
	Total dues.TeamStatus `json:"total"`
}

// TreasuryService computes dues expectations from the stored members and
// payments. Every call works on a fresh snapshot.
type TreasuryService struct {
	store       Store
	defaultFlat core.Money
	logger      *applog.Logger
}

// NewTreasuryService returns a service that falls back to defaultFlat until a
// dues amount has been saved.
func NewTreasuryService(store Store, defaultFlat core.Money, logger *applog.Logger) *TreasuryService {
	return &TreasuryService{
		store:       store,
		defaultFlat: defaultFlat,
		logger:      componentLogger(logger, applog.ComponentTreasury),
	}
}

// DuesAmount returns the configured monthly flat amount.
func (s *TreasuryService) DuesAmount(ctx context.Context) (core.Money, error) {
	amount, err := s.store.GetDuesAmount(ctx)
	if errors.Is(err, storage.ErrNotFound) {
		return s.defaultFlat, nil
	}
	if err != nil {
		return core.Money{}, err
	}
	return amount, nil
}

func (s *TreasuryService) SetDuesAmount(ctx context.Context, amount core.Money) error {
	if amount.IsNegative() {
		return fmt.Errorf("%w: flat amount %s is negative", dues.ErrInvalidConfig, amount)
	}
	if err := s.store.SetDuesAmount(ctx, amount); err != nil {
		return err
	}
	s.logger.InfoContext(ctx, "Dues amount updated", applog.FieldAmountCents, amount.Cents)
	return nil
}

// TeamStatus aggregates the dues of a team for month.
func (s *TreasuryService) TeamStatus(ctx context.Context, teamID string, month core.MonthRef) (TeamReport, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return TeamReport{}, err
	}
	flat, err := s.DuesAmount(ctx)
	if err != nil {
		return TeamReport{}, err
	}
	return s.teamReport(ctx, team, month, flat)
}

func (s *TreasuryService) TeamBreakdown(ctx context.Context, teamID string, month core.MonthRef) (TeamBreakdown, error) {
	team, err := s.store.GetTeam(ctx, teamID)
	if err != nil {
		return TeamBreakdown{}, err
	}
	flat, err := s.DuesAmount(ctx)
	if err != nil {
		return TeamBreakdown{}, err
	}
	members, payments, err := s.teamSnapshot(ctx, team.ID, month)
	if err != nil {
		return TeamBreakdown{}, err
	}

	key := month.Key()
	status, err := dues.AggregateTeamStatus(members, payments, key, flat)
	if err != nil {
		return TeamBreakdown{}, err
	}
	rows, err := dues.Breakdown(members, payments, key, flat)
	if err != nil {
		return TeamBreakdown{}, err
	}
	return TeamBreakdown{
		TeamReport: TeamReport{Team: team, Month: key, Flat: flat, Status: status},
		Members:    rows,
	}, nil
}

// CitySummary computes every team of the city in parallel and rolls them up.
func (s *TreasuryService) CitySummary(ctx context.Context, cityID string, month core.MonthRef) (CitySummary, error) {
	city, err := s.store.GetCity(ctx, cityID)
	if err != nil {
		return CitySummary{}, err
	}
	flat, err := s.DuesAmount(ctx)
	if err != nil {
		return CitySummary{}, err
	}
	teams, err := s.store.ListTeams(ctx, city.ID)
	if err != nil {
		return CitySummary{}, err
	}

	reports := make([]TeamReport, len(teams))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(maxTeamWorkers)
	for i, team := range teams {
		g.Go(func() error {
			r, err := s.teamReport(gctx, team, month, flat)
			if err != nil {
				return fmt.Errorf("team %s: %w", team.ID, err)
			}
			reports[i] = r
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return CitySummary{}, err
	}

	statuses := make([]dues.TeamStatus, len(reports))
	for i, r := range reports {
		statuses[i] = r.Status
	}
	s.logger.DebugContext(ctx, "City summary computed",
		applog.FieldCityID, city.ID,
		applog.FieldMonth, month.Key(),
		"teams", len(teams))

	return CitySummary{
		City:  city,
		Month: month.Key(),
		Flat:  flat,
		Teams: reports,
		Total: dues.Rollup(statuses...),
	}, nil
}

func (s *TreasuryService) teamReport(ctx context.Context, team core.Team, month core.MonthRef, flat core.Money) (TeamReport, error) {
	members, payments, err := s.teamSnapshot(ctx, team.ID, month)
	if err != nil {
		return TeamReport{}, err
	}
	status, err := dues.AggregateTeamStatus(members, payments, month.Key(), flat)
	if err != nil {
		return TeamReport{}, err
	}
	return TeamReport{Team: team, Month: month.Key(), Flat: flat, Status: status}, nil
}

func (s *TreasuryService) teamSnapshot(ctx context.Context, teamID string, month core.MonthRef) ([]core.Member, []core.Payment, error) {
	members, err := s.store.ListMembers(ctx, storage.MemberFilter{TeamID: teamID})
	if err != nil {
		return nil, nil, err
	}
	payments, err := s.store.ListPayments(ctx, storage.PaymentFilter{TeamID: teamID, ReferenceMonth: month.Key()})
	if err != nil {
		return nil, nil, err
	}
	return members, payments, nil
}
