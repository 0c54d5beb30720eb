package services

import (
	"context"
	"errors"
	"fmt"

	"tesouraria/internal/amqp"
	"tesouraria/internal/core"
	applog "tesouraria/internal/log"
	"tesouraria/internal/storage"
)

// ErrValidation wraps every input error reported by the services. The
// underlying cause stays reachable through errors.Is.
var ErrValidation = errors.New("validation failed")

func invalid(err error) error {
	return fmt.Errorf("%w: %w", ErrValidation, err)
}

// Store is the persistence surface the services need.
// *storage.SQLiteRepository implements it.
type Store interface {
	CreateCity(ctx context.Context, c core.City) (core.City, error)
	GetCity(ctx context.Context, id string) (core.City, error)
	ListCities(ctx context.Context) ([]core.City, error)

	CreateTeam(ctx context.Context, t core.Team) (core.Team, error)
	GetTeam(ctx context.Context, id string) (core.Team, error)
	ListTeams(ctx context.Context, cityID string) ([]core.Team, error)
	UpdateTeam(ctx context.Context, t core.Team) error
	DeleteTeam(ctx context.Context, id string) error

	CreateMember(ctx context.Context, m core.Member) (core.Member, error)
	GetMember(ctx context.Context, id string) (core.Member, error)
	UpdateMember(ctx context.Context, m core.Member) error
	DeleteMember(ctx context.Context, id string) error
	ListMembers(ctx context.Context, f storage.MemberFilter) ([]core.Member, error)

	CreatePayment(ctx context.Context, p core.Payment) (core.Payment, error)
	GetPayment(ctx context.Context, id string) (core.Payment, error)
	DeletePayment(ctx context.Context, id string) error
	ListPayments(ctx context.Context, f storage.PaymentFilter) ([]core.Payment, error)
	ListUnpostedPayments(ctx context.Context, limit int) ([]core.Payment, error)

	CreateLedgerEntry(ctx context.Context, e core.LedgerEntry) (core.LedgerEntry, error)
	GetLedgerEntry(ctx context.Context, id string) (core.LedgerEntry, error)
	DeleteLedgerEntry(ctx context.Context, id string) error
	DeleteLedgerEntryByPayment(ctx context.Context, paymentID string) error
	ListLedgerEntries(ctx context.Context, cityID string, from, to core.Date) ([]core.LedgerEntry, error)
	LedgerBalanceBefore(ctx context.Context, cityID string, date core.Date) (core.Money, error)

	CreateEvent(ctx context.Context, e core.Event) (core.Event, error)
	GetEvent(ctx context.Context, id string) (core.Event, error)
	ListEvents(ctx context.Context, cityID string) ([]core.Event, error)
	CreateEventSale(ctx context.Context, s core.EventSale) (core.EventSale, error)
	ListEventSales(ctx context.Context, eventID string) ([]core.EventSale, error)

	GetDuesAmount(ctx context.Context) (core.Money, error)
	SetDuesAmount(ctx context.Context, amount core.Money) error
}

var _ Store = (*storage.SQLiteRepository)(nil)

// Publisher sends payment events to the worker.
type Publisher interface {
	PublishPaymentEvent(ctx context.Context, ev *amqp.PaymentEvent) error
}

func componentLogger(l *applog.Logger, component string) *applog.Logger {
	if l == nil {
		l = applog.FromContext(context.Background())
	}
	return l.WithComponent(component)
}

// cityOfMember resolves the city a member belongs to, directly or through
// their team. An empty result means the member is not tied to any city.
func cityOfMember(ctx context.Context, store Store, m core.Member) (string, error) {
	if m.CityID != "" {
		return m.CityID, nil
	}
	if m.TeamID == "" {
		return "", nil
	}
	team, err := store.GetTeam(ctx, m.TeamID)
	if err != nil {
		return "", err
	}
	return team.CityID, nil
}
