package services

import (
	"context"
	"time"

	"golang.org/x/sync/errgroup"

	"tesouraria/internal/core"
)

// Dashboard is the landing view of a city.
type Dashboard struct {
	City        core.City        `json:"city"`
	Month       string           `json:"reference_month"`
	Members     core.MemberStats `json:"members"`
	TeamCount   int              `json:"team_count"`
	Dues        CitySummary      `json:"dues"`
	CashBalance core.Money       `json:"cash_balance"`
}

// DashboardService assembles the city dashboard from the other services.
type DashboardService struct {
	org      *OrganizationService
	members  *MemberService
	treasury *TreasuryService
	ledger   *LedgerService
}

func NewDashboardService(org *OrganizationService, members *MemberService, treasury *TreasuryService, ledger *LedgerService) *DashboardService {
	return &DashboardService{org: org, members: members, treasury: treasury, ledger: ledger}
}

// CityDashboard gathers the figures of cityID as of now. The parts are
// independent and load concurrently.
func (s *DashboardService) CityDashboard(ctx context.Context, cityID string, now time.Time) (Dashboard, error) {
	city, err := s.org.GetCity(ctx, cityID)
	if err != nil {
		return Dashboard{}, err
	}
	month := core.MonthOf(now)
	d := Dashboard{City: city, Month: month.Key()}
	today := core.NewDate(now.Year(), int(now.Month()), now.Day())

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		var err error
		d.Members, err = s.members.Stats(gctx, cityID, now)
		return err
	})
	g.Go(func() error {
		var err error
		d.Dues, err = s.treasury.CitySummary(gctx, cityID, month)
		d.TeamCount = len(d.Dues.Teams)
		return err
	})
	g.Go(func() error {
		var err error
		d.CashBalance, err = s.ledger.Balance(gctx, cityID, today)
		return err
	})
	if err := g.Wait(); err != nil {
		return Dashboard{}, err
	}
	return d, nil
}
