package worker

import (
	"bytes"
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"tesouraria/internal/amqp"
	"tesouraria/internal/core"
	applog "tesouraria/internal/log"
	"tesouraria/internal/services"
	"tesouraria/internal/sheets"
	"tesouraria/internal/sheets/memory"
	"tesouraria/internal/storage"
)

type okPublisher struct{ events []*amqp.PaymentEvent }

func (p *okPublisher) PublishPaymentEvent(_ context.Context, ev *amqp.PaymentEvent) error {
	p.events = append(p.events, ev)
	return nil
}

type fixture struct {
	worker   *Worker
	payments *services.PaymentService
	ledger   *services.LedgerService
	reports  *memory.Store
	pub      *okPublisher
	city     core.City
	member   core.Member
}

func setup(t *testing.T) fixture {
	t.Helper()
	repo, err := storage.NewSQLiteRepository(filepath.Join(t.TempDir(), "worker.db"))
	require.NoError(t, err)
	t.Cleanup(func() { repo.Close() })

	logger := applog.New(applog.Config{Output: &bytes.Buffer{}})
	ctx := context.Background()
	org := services.NewOrganizationService(repo, logger)
	members := services.NewMemberService(repo, logger)
	ledger := services.NewLedgerService(repo, logger)
	treasury := services.NewTreasuryService(repo, core.Reais(50, 0), logger)
	pub := &okPublisher{}
	payments := services.NewPaymentService(repo, pub, ledger, logger)
	reports := memory.New()

	city, err := org.CreateCity(ctx, core.City{Name: "Campinas", State: "SP"})
	require.NoError(t, err)
	team, err := org.CreateTeam(ctx, core.Team{CityID: city.ID, Name: "Equipe A"})
	require.NoError(t, err)
	m, err := members.CreateMember(ctx, core.Member{Name: "Ana", TeamID: team.ID, Status: core.StatusActive, PaysMonthly: true})
	require.NoError(t, err)
	_, err = members.CreateMember(ctx, core.Member{Name: "Bia", TeamID: team.ID, Status: core.StatusActive, PaysMonthly: true})
	require.NoError(t, err)

	w := New(ledger, org, treasury, reports, Config{BatchSize: 10, SweepInterval: time.Hour, ExportInterval: time.Hour}, logger)
	w.now = func() time.Time { return time.Date(2026, 3, 20, 10, 0, 0, 0, time.UTC) }
	return fixture{worker: w, payments: payments, ledger: ledger, reports: reports, pub: pub, city: city, member: m}
}

func (f fixture) entries(t *testing.T) []core.LedgerEntry {
	t.Helper()
	book, err := f.ledger.CashBook(context.Background(), f.city.ID, core.Date{}, core.Date{})
	require.NoError(t, err)
	return book.Entries
}

func TestHandlePaymentEvent(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	p, err := f.payments.RecordPayment(ctx, core.Payment{MemberID: f.member.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026"})
	require.NoError(t, err)
	require.Len(t, f.pub.events, 1)
	recorded := f.pub.events[0]

	require.NoError(t, f.worker.HandlePaymentEvent(ctx, recorded))
	require.NoError(t, f.worker.HandlePaymentEvent(ctx, recorded), "redelivery is harmless")
	entries := f.entries(t)
	require.Len(t, entries, 1)
	assert.Equal(t, p.ID, entries[0].PaymentID)
	assert.Equal(t, int64(5000), entries[0].Amount.Cents)

	require.NoError(t, f.payments.DeletePayment(ctx, p.ID))
	require.Len(t, f.pub.events, 2)
	deleted := f.pub.events[1]
	require.NoError(t, f.worker.HandlePaymentEvent(ctx, deleted))
	require.NoError(t, f.worker.HandlePaymentEvent(ctx, deleted))
	assert.Empty(t, f.entries(t))

	assert.Error(t, f.worker.HandlePaymentEvent(ctx, &amqp.PaymentEvent{Type: "payment.unknown", PaymentID: "x"}))
}

func TestProcessUnposted(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.payments.RecordPayment(ctx, core.Payment{MemberID: f.member.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026"})
	require.NoError(t, err)

	n, err := f.worker.ProcessUnposted(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, f.entries(t), 1)
}

func TestExportReport(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.payments.RecordPayment(ctx, core.Payment{MemberID: f.member.ID, Amount: core.Reais(50, 0), ReferenceMonth: "03/2026"})
	require.NoError(t, err)

	ref, err := f.worker.ExportReport(ctx)
	require.NoError(t, err)
	assert.Equal(t, "mem:1", ref)

	rows := f.reports.Rows("3/2026")
	require.Len(t, rows, 2)
	assert.Equal(t, "Equipe A", rows[0].Team)
	assert.Equal(t, sheets.TotalLabel, rows[1].Team)
	assert.Equal(t, int64(10000), rows[1].Expected.Cents)
	assert.Equal(t, int64(5000), rows[1].Paid.Cents)
	assert.InDelta(t, 50.0, rows[1].CurrencyPercent, 0.001)

	// A second export overwrites the same rows.
	_, err = f.worker.ExportReport(ctx)
	require.NoError(t, err)
	assert.Len(t, f.reports.Rows("3/2026"), 2)
}

func TestExportDisabledWithoutWriter(t *testing.T) {
	f := setup(t)
	f.worker.reports = nil
	ref, err := f.worker.ExportReport(context.Background())
	require.NoError(t, err)
	assert.Empty(t, ref)
}

func TestStartStop(t *testing.T) {
	f := setup(t)
	ctx := context.Background()

	_, err := f.payments.RecordPayment(ctx, core.Payment{MemberID: f.member.ID, Amount: core.Reais(50, 0), ReferenceMonth: "3/2026"})
	require.NoError(t, err)

	require.NoError(t, f.worker.Start(ctx))
	assert.True(t, f.worker.IsRunning())
	assert.Error(t, f.worker.Start(ctx), "second start is rejected")

	// The loop sweeps and exports once on startup.
	require.Eventually(t, func() bool {
		book, err := f.ledger.CashBook(ctx, f.city.ID, core.Date{}, core.Date{})
		return err == nil && len(book.Entries) == 1 && f.reports.Writes() == 1
	}, 2*time.Second, 10*time.Millisecond)

	stopCtx, cancel := context.WithTimeout(ctx, time.Second)
	defer cancel()
	require.NoError(t, f.worker.Stop(stopCtx))
	assert.False(t, f.worker.IsRunning())
	require.NoError(t, f.worker.Stop(stopCtx))
}
