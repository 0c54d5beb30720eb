package services

import (
	"bytes"
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesouraria/internal/amqp"
	"tesouraria/internal/core"
	"tesouraria/internal/dues"
	applog "tesouraria/internal/log"
	"tesouraria/internal/storage"
)

type fakePublisher struct {
	mu     sync.Mutex
	events []*amqp.PaymentEvent
	err    error
}

func (f *fakePublisher) PublishPaymentEvent(_ context.Context, ev *amqp.PaymentEvent) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.err != nil {
		return f.err
	}
	f.events = append(f.events, ev)
	return nil
}

func (f *fakePublisher) types() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.events))
	for i, ev := range f.events {
		out[i] = ev.Type
	}
	return out
}

type env struct {
	repo      *storage.SQLiteRepository
	pub       *fakePublisher
	org       *OrganizationService
	members   *MemberService
	payments  *PaymentService
	ledger    *LedgerService
	treasury  *TreasuryService
	events    *EventService
	dashboard *DashboardService

	city  core.City
	teamA core.Team
	teamB core.Team
}

func newEnv(t *testing.T) *env {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "services.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	e := &env{repo: repo, pub: &fakePublisher{}}
	e.org = NewOrganizationService(repo, logger)
	e.members = NewMemberService(repo, logger)
	e.ledger = NewLedgerService(repo, logger)
	e.payments = NewPaymentService(repo, e.pub, e.ledger, logger)
	e.payments.now = func() time.Time { return time.Date(2026, 3, 15, 12, 0, 0, 0, time.UTC) }
	e.treasury = NewTreasuryService(repo, core.Reais(50, 0), logger)
	e.events = NewEventService(repo, logger)
	e.dashboard = NewDashboardService(e.org, e.members, e.treasury, e.ledger)

	ctx := context.Background()
	e.city, err = e.org.CreateCity(ctx, core.City{Name: " Campinas ", State: "sp"})
	require.NoError(t, err)
	e.teamA, err = e.org.CreateTeam(ctx, core.Team{CityID: e.city.ID, Name: "Equipe A"})
	require.NoError(t, err)
	e.teamB, err = e.org.CreateTeam(ctx, core.Team{CityID: e.city.ID, Name: "Equipe B"})
	require.NoError(t, err)
	return e
}

func (e *env) member(t *testing.T, m core.Member) core.Member {
	t.Helper()
	if m.Status == "" {
		m.Status = core.StatusActive
	}
	created, err := e.members.CreateMember(context.Background(), m)
	require.NoError(t, err)
	return created
}

var march = core.MonthRef{Year: 2026, Month: 3}

func TestOrganization_Validation(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	assert.Equal(t, "Campinas", e.city.Name)
	assert.Equal(t, "SP", e.city.State)

	_, err := e.org.CreateTeam(ctx, core.Team{CityID: "missing", Name: "X"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.org.CreateTeam(ctx, core.Team{CityID: e.city.ID, Name: "Equipe A"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	_, err = e.org.UpdateTeam(ctx, core.Team{ID: "missing", CityID: e.city.ID, Name: "Y"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestMemberService_CreateNormalizes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	m := e.member(t, core.Member{Name: "  Ana  ", TeamID: e.teamA.ID, CPF: "529.982.247-25", PaysMonthly: true})
	assert.Equal(t, "Ana", m.Name)
	assert.Equal(t, "52998224725", m.CPF)
	assert.Equal(t, e.city.ID, m.CityID, "member takes the team's city")

	_, err := e.members.CreateMember(ctx, core.Member{Name: "Bruno", CPF: "111.111.111-11"})
	assert.ErrorIs(t, err, ErrValidation)
	assert.ErrorIs(t, err, core.ErrInvalidCPF)

	_, err = e.members.CreateMember(ctx, core.Member{Name: "Carla", TeamID: "nope"})
	assert.ErrorIs(t, err, ErrValidation)

	_, err = e.members.CreateMember(ctx, core.Member{Name: "Ana Dup", CPF: "52998224725"})
	assert.ErrorIs(t, err, storage.ErrConflict)

	pending, err := e.members.CreateMember(ctx, core.Member{Name: "Duda"})
	require.NoError(t, err)
	assert.Equal(t, core.StatusPending, pending.Status)
}

func TestMemberService_Update(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	m := e.member(t, core.Member{Name: "Ana", TeamID: e.teamA.ID, PaysMonthly: true})
	m.TeamID = e.teamB.ID
	m.CityID = ""
	updated, err := e.members.UpdateMember(ctx, m)
	require.NoError(t, err)
	assert.Equal(t, e.teamB.ID, updated.TeamID)

	got, err := e.members.GetMember(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, e.teamB.ID, got.TeamID)

	_, err = e.members.UpdateMember(ctx, core.Member{ID: "missing", Name: "X"})
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestPaymentService_RecordNormalizesAndPublishes(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := e.member(t, core.Member{Name: "Ana", TeamID: e.teamA.ID, PaysMonthly: true})

	p, err := e.payments.RecordPayment(ctx, core.Payment{
		MemberID:       ana.ID,
		Amount:         core.Reais(50, 0),
		ReferenceMonth: "03/2026",
	})
	require.NoError(t, err)
	assert.Equal(t, "3/2026", p.ReferenceMonth)
	assert.Equal(t, core.PaymentPaid, p.Status)
	assert.Equal(t, e.teamA.ID, p.TeamID)
	assert.Equal(t, "2026-03-15", p.Date.String())
	assert.Equal(t, []string{amqp.EventPaymentRecorded}, e.pub.types())

	// The worker posts it; nothing is posted inline when publishing works.
	book, err := e.ledger.CashBook(ctx, e.city.ID, core.Date{}, core.Date{})
	require.NoError(t, err)
	assert.Empty(t, book.Entries)

	found, err := e.payments.ListPayments(ctx, storage.PaymentFilter{ReferenceMonth: "03/2026"})
	require.NoError(t, err)
	require.Len(t, found, 1)

	require.NoError(t, e.payments.DeletePayment(ctx, p.ID))
	assert.Equal(t, []string{amqp.EventPaymentRecorded, amqp.EventPaymentDeleted}, e.pub.types())
	assert.ErrorIs(t, e.payments.DeletePayment(ctx, p.ID), storage.ErrNotFound)
}

func TestPaymentService_RejectsBadInput(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := e.member(t, core.Member{Name: "Ana", TeamID: e.teamA.ID, PaysMonthly: true})

	cases := []core.Payment{
		{MemberID: ana.ID, Amount: core.Reais(50, 0), ReferenceMonth: "13/2026"},
		{MemberID: ana.ID, Amount: core.Reais(50, 0), ReferenceMonth: "march"},
		{MemberID: ana.ID, Amount: core.Money{Cents: -1}, ReferenceMonth: "3/2026"},
		{MemberID: "ghost", Amount: core.Reais(50, 0), ReferenceMonth: "3/2026"},
	}
	for _, p := range cases {
		_, err := e.payments.RecordPayment(ctx, p)
		assert.ErrorIs(t, err, ErrValidation, "%+v", p)
	}
	assert.Empty(t, e.pub.types())
}

func TestPaymentService_PostsInlineWhenPublishFails(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.pub.err = errors.New("broker down")
	ana := e.member(t, core.Member{Name: "Ana", TeamID: e.teamA.ID, PaysMonthly: true})

	p, err := e.payments.RecordPayment(ctx, core.Payment{
		MemberID: ana.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026",
	})
	require.NoError(t, err, "publish failures never fail the request")

	book, err := e.ledger.CashBook(ctx, e.city.ID, core.Date{}, core.Date{})
	require.NoError(t, err)
	require.Len(t, book.Entries, 1)
	assert.Equal(t, p.ID, book.Entries[0].PaymentID)
	assert.Equal(t, "Mensalidade 3/2026 - Ana", book.Entries[0].Description)

	require.NoError(t, e.payments.DeletePayment(ctx, p.ID))
	book, err = e.ledger.CashBook(ctx, e.city.ID, core.Date{}, core.Date{})
	require.NoError(t, err)
	assert.Empty(t, book.Entries)
}

func TestLedgerService_PostIsIdempotent(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := e.member(t, core.Member{Name: "Ana", TeamID: e.teamA.ID, PaysMonthly: true})
	p, err := e.payments.RecordPayment(ctx, core.Payment{
		MemberID: ana.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026",
	})
	require.NoError(t, err)

	posted, err := e.ledger.PostPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, posted)

	posted, err = e.ledger.PostPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, posted, "second post is a no-op")

	posted, err = e.ledger.PostPayment(ctx, "gone")
	require.NoError(t, err)
	assert.False(t, posted)

	removed, err := e.ledger.UnpostPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.True(t, removed)
	removed, err = e.ledger.UnpostPayment(ctx, p.ID)
	require.NoError(t, err)
	assert.False(t, removed)
}

func TestLedgerService_ProcessUnposted(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	ana := e.member(t, core.Member{Name: "Ana", TeamID: e.teamA.ID, PaysMonthly: true})
	bia := e.member(t, core.Member{Name: "Bia", TeamID: e.teamB.ID, PaysMonthly: true})
	loner := e.member(t, core.Member{Name: "Sem Cidade", PaysMonthly: true})

	for _, m := range []core.Member{ana, bia, loner} {
		_, err := e.payments.RecordPayment(ctx, core.Payment{
			MemberID: m.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026",
		})
		require.NoError(t, err)
	}
	_, err := e.payments.RecordPayment(ctx, core.Payment{
		MemberID: ana.ID, Status: core.PaymentExempt, ReferenceMonth: "4/2026",
	})
	require.NoError(t, err)

	n, err := e.ledger.ProcessUnposted(ctx, 10)
	require.NoError(t, err)
	assert.Equal(t, 2, n, "exempt and city-less payments are not posted")

	n, err = e.ledger.ProcessUnposted(ctx, 10)
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestLedgerService_CashBook(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	entry := func(day int, kind core.EntryKind, cents int64) {
		_, err := e.ledger.RecordEntry(ctx, core.LedgerEntry{
			CityID:      e.city.ID,
			Date:        core.NewDate(2026, 3, day),
			Kind:        kind,
			Description: "lançamento",
			Amount:      core.Money{Cents: cents},
		})
		require.NoError(t, err)
	}
	entry(1, core.EntryCredit, 10000)
	entry(10, core.EntryDebit, 2500)
	entry(20, core.EntryCredit, 4000)
	entry(31, core.EntryDebit, 1000)

	book, err := e.ledger.CashBook(ctx, e.city.ID, core.NewDate(2026, 3, 5), core.NewDate(2026, 3, 25))
	require.NoError(t, err)
	assert.Equal(t, int64(10000), book.OpeningBalance.Cents)
	assert.Equal(t, int64(4000), book.TotalIn.Cents)
	assert.Equal(t, int64(2500), book.TotalOut.Cents)
	assert.Equal(t, int64(11500), book.ClosingBalance.Cents)
	assert.Len(t, book.Entries, 2)

	balance, err := e.ledger.Balance(ctx, e.city.ID, core.NewDate(2026, 3, 31))
	require.NoError(t, err)
	assert.Equal(t, int64(10500), balance.Cents)

	_, err = e.ledger.CashBook(ctx, e.city.ID, core.NewDate(2026, 3, 25), core.NewDate(2026, 3, 5))
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.ledger.CashBook(ctx, "missing", core.Date{}, core.Date{})
	assert.ErrorIs(t, err, storage.ErrNotFound)

	_, err = e.ledger.RecordEntry(ctx, core.LedgerEntry{
		CityID: e.city.ID, Date: core.NewDate(2026, 3, 1), Kind: core.EntryCredit,
		Description: "x", Amount: core.Reais(1, 0), PaymentID: "p1",
	})
	assert.ErrorIs(t, err, ErrPostedEntry)
}

func TestLedgerService_DeleteEntryRefusesPostedCredits(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.pub.err = errors.New("broker down")
	ana := e.member(t, core.Member{Name: "Ana", TeamID: e.teamA.ID, PaysMonthly: true})
	_, err := e.payments.RecordPayment(ctx, core.Payment{
		MemberID: ana.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026",
	})
	require.NoError(t, err)

	book, err := e.ledger.CashBook(ctx, e.city.ID, core.Date{}, core.Date{})
	require.NoError(t, err)
	require.Len(t, book.Entries, 1)
	assert.ErrorIs(t, e.ledger.DeleteEntry(ctx, book.Entries[0].ID), ErrPostedEntry)
}

func TestTreasuryService_TeamStatusAndBreakdown(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	joao := e.member(t, core.Member{Name: "João", FamilyName: "Silva", Relationship: core.RelTitular, TeamID: e.teamA.ID, PaysMonthly: true})
	maria := e.member(t, core.Member{Name: "Maria", FamilyName: " Silva ", Relationship: core.RelSpouse, TeamID: e.teamA.ID, PaysMonthly: true})
	pedro := e.member(t, core.Member{Name: "Pedro", TeamID: e.teamA.ID, PaysMonthly: true})
	e.member(t, core.Member{Name: "Isento", TeamID: e.teamA.ID, PaysMonthly: false})

	_, err := e.payments.RecordPayment(ctx, core.Payment{MemberID: joao.ID, Amount: core.Reais(50, 0), ReferenceMonth: "03/2026"})
	require.NoError(t, err)
	_, err = e.payments.RecordPayment(ctx, core.Payment{MemberID: pedro.ID, Amount: core.Reais(50, 0), ReferenceMonth: "2/2026"})
	require.NoError(t, err)

	report, err := e.treasury.TeamStatus(ctx, e.teamA.ID, march)
	require.NoError(t, err)
	assert.Equal(t, "3/2026", report.Month)
	assert.Equal(t, int64(10000), report.Status.Expected.Cents, "couple owes one flat, Pedro another")
	assert.Equal(t, int64(5000), report.Status.PaidTotal.Cents)
	assert.Equal(t, 1, report.Status.PaidCount)
	assert.Equal(t, 4, report.Status.ActiveCount)
	assert.InDelta(t, 50.0, report.Status.CurrencyPercent, 0.001)
	assert.InDelta(t, 25.0, report.Status.HeadcountPercent, 0.001)

	bd, err := e.treasury.TeamBreakdown(ctx, e.teamA.ID, march)
	require.NoError(t, err)
	rows := map[string]dues.MemberDue{}
	for _, r := range bd.Members {
		rows[r.MemberID] = r
	}
	assert.Equal(t, maria.ID, rows[joao.ID].PartnerID)
	assert.Equal(t, int64(2500), rows[maria.ID].Expected.Cents)
	assert.Equal(t, int64(5000), rows[pedro.ID].Expected.Cents)
	assert.True(t, rows[joao.ID].IsPaid)
	assert.False(t, rows[pedro.ID].IsPaid, "February payment does not count for March")

	_, err = e.treasury.TeamStatus(ctx, "missing", march)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestTreasuryService_DuesAmount(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	amount, err := e.treasury.DuesAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(5000), amount.Cents, "falls back to the configured default")

	require.NoError(t, e.treasury.SetDuesAmount(ctx, core.Reais(25, 0)))
	amount, err = e.treasury.DuesAmount(ctx)
	require.NoError(t, err)
	assert.Equal(t, int64(2500), amount.Cents)

	assert.ErrorIs(t, e.treasury.SetDuesAmount(ctx, core.Money{Cents: -100}), dues.ErrInvalidConfig)
}

func TestTreasuryService_CitySummaryRollsUpTeams(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	a1 := e.member(t, core.Member{Name: "A1", TeamID: e.teamA.ID, PaysMonthly: true})
	e.member(t, core.Member{Name: "A2", TeamID: e.teamA.ID, PaysMonthly: true})
	b1 := e.member(t, core.Member{Name: "B1", TeamID: e.teamB.ID, PaysMonthly: true})

	for _, m := range []core.Member{a1, b1} {
		_, err := e.payments.RecordPayment(ctx, core.Payment{MemberID: m.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026"})
		require.NoError(t, err)
	}

	sum, err := e.treasury.CitySummary(ctx, e.city.ID, march)
	require.NoError(t, err)
	require.Len(t, sum.Teams, 2)
	assert.Equal(t, int64(15000), sum.Total.Expected.Cents)
	assert.Equal(t, int64(10000), sum.Total.PaidTotal.Cents)
	assert.Equal(t, 3, sum.Total.ActiveCount)
	assert.InDelta(t, 66.666, sum.Total.CurrencyPercent, 0.01)

	_, err = e.treasury.CitySummary(ctx, "missing", march)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}

func TestEventService_SalesSummary(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()

	ev, err := e.events.CreateEvent(ctx, core.Event{
		CityID: e.city.ID, Name: "Festa Junina", Date: core.NewDate(2026, 6, 20),
		TicketPrice: core.Reais(20, 0), TicketGoal: 10,
	})
	require.NoError(t, err)

	sales := []core.EventSale{
		{EventID: ev.ID, TeamID: e.teamA.ID, Quantity: 2},
		{EventID: ev.ID, TeamID: e.teamB.ID, Quantity: 3},
		{EventID: ev.ID, TeamID: e.teamA.ID, Quantity: 1, Amount: core.Reais(15, 0)},
		{EventID: ev.ID, Quantity: 1, Buyer: "balcão"},
	}
	for _, s := range sales {
		_, err := e.events.RecordSale(ctx, s)
		require.NoError(t, err)
	}

	sum, err := e.events.SalesSummary(ctx, ev.ID)
	require.NoError(t, err)
	assert.Equal(t, 7, sum.Tickets)
	assert.Equal(t, int64(4000+6000+1500+2000), sum.Revenue.Cents)
	assert.InDelta(t, 70.0, sum.GoalPercent, 0.001)
	require.Len(t, sum.ByTeam, 3)
	assert.Equal(t, 3, sum.ByTeam[0].Tickets)
	assert.Equal(t, 3, sum.ByTeam[1].Tickets)
	assert.Equal(t, "", sum.ByTeam[2].TeamID)

	_, err = e.events.RecordSale(ctx, core.EventSale{EventID: ev.ID, Quantity: 0})
	assert.ErrorIs(t, err, ErrValidation)
	_, err = e.events.RecordSale(ctx, core.EventSale{EventID: "missing", Quantity: 1})
	assert.ErrorIs(t, err, storage.ErrNotFound)
	_, err = e.events.CreateEvent(ctx, core.Event{CityID: "missing", Name: "X"})
	assert.ErrorIs(t, err, ErrValidation)
}

func TestDashboardService_CityDashboard(t *testing.T) {
	e := newEnv(t)
	ctx := context.Background()
	e.pub.err = errors.New("broker down")

	ana := e.member(t, core.Member{Name: "Ana", TeamID: e.teamA.ID, PaysMonthly: true, BirthDate: core.NewDate(1990, 3, 2)})
	e.member(t, core.Member{Name: "Bia", TeamID: e.teamB.ID, PaysMonthly: true, Status: core.StatusInactive})
	_, err := e.payments.RecordPayment(ctx, core.Payment{MemberID: ana.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026"})
	require.NoError(t, err)

	now := time.Date(2026, 3, 20, 9, 0, 0, 0, time.UTC)
	d, err := e.dashboard.CityDashboard(ctx, e.city.ID, now)
	require.NoError(t, err)
	assert.Equal(t, "3/2026", d.Month)
	assert.Equal(t, 2, d.TeamCount)
	assert.Equal(t, 2, d.Members.Total)
	require.Len(t, d.Members.Birthdays, 1)
	assert.Equal(t, "Ana", d.Members.Birthdays[0].Name)
	assert.Equal(t, int64(5000), d.Dues.Total.PaidTotal.Cents)
	assert.Equal(t, int64(5000), d.CashBalance.Cents)

	_, err = e.dashboard.CityDashboard(ctx, "missing", now)
	assert.ErrorIs(t, err, storage.ErrNotFound)
}
