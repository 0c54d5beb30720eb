package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"tesouraria/internal/core"
	applog "tesouraria/internal/log"
	"tesouraria/internal/storage"
)

// EventService tracks fundraising events and their ticket sales.
type EventService struct {
	store  Store
	logger *applog.Logger
}

func NewEventService(store Store, logger *applog.Logger) *EventService {
	return &EventService{store: store, logger: componentLogger(logger, applog.ComponentEvents)}
}

func (s *EventService) CreateEvent(ctx context.Context, e core.Event) (core.Event, error) {
	e.Name = strings.TrimSpace(e.Name)
	if err := e.Validate(); err != nil {
		return core.Event{}, invalid(err)
	}
	if _, err := s.store.GetCity(ctx, e.CityID); err != nil {
		if errors.Is(err, storage.ErrNotFound) {
			return core.Event{}, invalid(fmt.Errorf("unknown city %q", e.CityID))
		}
		return core.Event{}, err
	}
	created, err := s.store.CreateEvent(ctx, e)
	if err != nil {
		return core.Event{}, err
	}
	s.logger.InfoContext(ctx, "Event created",
		applog.FieldEventID, created.ID, applog.FieldCityID, created.CityID)
	return created, nil
}

func (s *EventService) GetEvent(ctx context.Context, id string) (core.Event, error) {
	return s.store.GetEvent(ctx, id)
}

func (s *EventService) ListEvents(ctx context.Context, cityID string) ([]core.Event, error) {
	return s.store.ListEvents(ctx, cityID)
}

// RecordSale stores a ticket sale. A sale without an amount is charged at
// the event's ticket price.
func (s *EventService) RecordSale(ctx context.Context, sale core.EventSale) (core.EventSale, error) {
	event, err := s.store.GetEvent(ctx, sale.EventID)
	if err != nil {
		return core.EventSale{}, err
	}
	if sale.Amount.IsZero() {
		sale.Amount = event.TicketPrice.Mul(int64(sale.Quantity))
	}
	if err := sale.Validate(); err != nil {
		return core.EventSale{}, invalid(err)
	}
	created, err := s.store.CreateEventSale(ctx, sale)
	if errors.Is(err, storage.ErrInvalidReference) {
		return core.EventSale{}, invalid(err)
	}
	if err != nil {
		return core.EventSale{}, err
	}
	s.logger.InfoContext(ctx, "Ticket sale recorded",
		applog.FieldEventID, event.ID,
		applog.FieldTeamID, created.TeamID,
		"quantity", created.Quantity)
	return created, nil
}

// SalesSummary totals the tickets of an event, overall and per team. Teams
// are ordered by tickets sold, most first. Sales without a team are grouped
// under an empty team ID.
func (s *EventService) SalesSummary(ctx context.Context, eventID string) (core.SalesSummary, error) {
	event, err := s.store.GetEvent(ctx, eventID)
	if err != nil {
		return core.SalesSummary{}, err
	}
	sales, err := s.store.ListEventSales(ctx, eventID)
	if err != nil {
		return core.SalesSummary{}, err
	}

	summary := core.SalesSummary{Event: event, ByTeam: []core.TeamSales{}}
	index := map[string]int{}
	for _, sale := range sales {
		summary.Tickets += sale.Quantity
		summary.Revenue = summary.Revenue.Add(sale.Amount)

		i, ok := index[sale.TeamID]
		if !ok {
			i = len(summary.ByTeam)
			index[sale.TeamID] = i
			summary.ByTeam = append(summary.ByTeam, core.TeamSales{TeamID: sale.TeamID})
		}
		summary.ByTeam[i].Tickets += sale.Quantity
		summary.ByTeam[i].Revenue = summary.ByTeam[i].Revenue.Add(sale.Amount)
	}
	if event.TicketGoal > 0 {
		summary.GoalPercent = float64(summary.Tickets) / float64(event.TicketGoal) * 100
	}
	sort.SliceStable(summary.ByTeam, func(i, j int) bool {
		if summary.ByTeam[i].Tickets != summary.ByTeam[j].Tickets {
			return summary.ByTeam[i].Tickets > summary.ByTeam[j].Tickets
		}
		return summary.ByTeam[i].TeamID < summary.ByTeam[j].TeamID
	})
	return summary, nil
}
