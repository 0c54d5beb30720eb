// Package worker keeps the cash book in step with dues payments and exports
// the monthly dues report.
package worker

import (
	"context"
	"fmt"
	"sync"
	"time"

	"tesouraria/internal/amqp"
	"tesouraria/internal/core"
	"tesouraria/internal/dues"
	applog "tesouraria/internal/log"
	"tesouraria/internal/services"
	"tesouraria/internal/sheets"
)

// Config holds the worker schedule.
type Config struct {
	// BatchSize caps the payments posted per sweep (default: 50)
	BatchSize int

	// SweepInterval is how often unposted payments are looked for (default: 1m)
	SweepInterval time.Duration

	// ExportInterval is how often the report is exported (default: 1h)
	ExportInterval time.Duration
}

func DefaultConfig() Config {
	return Config{
		BatchSize:      50,
		SweepInterval:  time.Minute,
		ExportInterval: time.Hour,
	}
}

type Worker struct {
	ledger   *services.LedgerService
	org      *services.OrganizationService
	treasury *services.TreasuryService
	reports  sheets.ReportWriter
	config   Config
	logger   *applog.Logger
	now      func() time.Time

	mu      sync.Mutex
	running bool
	stopCh  chan struct{}
	doneCh  chan struct{}
}

// New creates a worker. reports may be nil, which disables the export.
func New(ledger *services.LedgerService, org *services.OrganizationService, treasury *services.TreasuryService,
	reports sheets.ReportWriter, config Config, logger *applog.Logger) *Worker {
	def := DefaultConfig()
	if config.BatchSize <= 0 {
		config.BatchSize = def.BatchSize
	}
	if config.SweepInterval <= 0 {
		config.SweepInterval = def.SweepInterval
	}
	if config.ExportInterval <= 0 {
		config.ExportInterval = def.ExportInterval
	}
	return &Worker{
		ledger:   ledger,
		org:      org,
		treasury: treasury,
		reports:  reports,
		config:   config,
		logger:   logger.WithComponent(applog.ComponentWorker),
		now:      time.Now,
	}
}

// HandlePaymentEvent applies one payment event to the cash book. Handling the
// same event twice has no further effect.
func (w *Worker) HandlePaymentEvent(ctx context.Context, ev *amqp.PaymentEvent) error {
	w.logger.DebugContext(ctx, "Processing payment event",
		applog.FieldRoutingKey, ev.Type,
		applog.FieldPaymentID, ev.PaymentID)

	switch ev.Type {
	case amqp.EventPaymentRecorded:
		if _, err := w.ledger.PostPayment(ctx, ev.PaymentID); err != nil {
			return fmt.Errorf("post payment %s: %w", ev.PaymentID, err)
		}
	case amqp.EventPaymentDeleted:
		if _, err := w.ledger.UnpostPayment(ctx, ev.PaymentID); err != nil {
			return fmt.Errorf("unpost payment %s: %w", ev.PaymentID, err)
		}
	default:
		return fmt.Errorf("unknown event type %q", ev.Type)
	}
	return nil
}

// ProcessUnposted posts paid payments the event stream missed.
func (w *Worker) ProcessUnposted(ctx context.Context) (int, error) {
	n, err := w.ledger.ProcessUnposted(ctx, w.config.BatchSize)
	if n > 0 {
		w.logger.InfoContext(ctx, "Posted missed payments", "count", n)
	}
	return n, err
}

// BuildReport computes the dues report of month: one row per team and a
// total row per city.
func (w *Worker) BuildReport(ctx context.Context, month core.MonthRef) (sheets.Report, error) {
	cities, err := w.org.ListCities(ctx)
	if err != nil {
		return sheets.Report{}, fmt.Errorf("list cities: %w", err)
	}

	report := sheets.Report{Month: month, GeneratedAt: w.now()}
	for _, city := range cities {
		sum, err := w.treasury.CitySummary(ctx, city.ID, month)
		if err != nil {
			return sheets.Report{}, fmt.Errorf("summary of city %s: %w", city.ID, err)
		}
		for _, t := range sum.Teams {
			report.Rows = append(report.Rows, reportRow(city.Name, t.Team.Name, t.Status))
		}
		report.Rows = append(report.Rows, reportRow(city.Name, sheets.TotalLabel, sum.Total))
	}
	return report, nil
}

// ExportReport writes the report of the current month.
func (w *Worker) ExportReport(ctx context.Context) (string, error) {
	if w.reports == nil {
		return "", nil
	}
	month := core.MonthOf(w.now())
	report, err := w.BuildReport(ctx, month)
	if err != nil {
		return "", err
	}
	ref, err := w.reports.WriteReport(ctx, report)
	if err != nil {
		return "", fmt.Errorf("write report: %w", err)
	}
	w.logger.InfoContext(ctx, "Dues report exported",
		applog.FieldMonth, month.Key(),
		applog.FieldSheetsRef, ref,
		"rows", len(report.Rows))
	return ref, nil
}

// Start runs the periodic sweep and export until Stop is called or ctx ends.
// Returns an error if already running.
func (w *Worker) Start(ctx context.Context) error {
	w.mu.Lock()
	if w.running {
		w.mu.Unlock()
		return fmt.Errorf("worker is already running")
	}
	w.running = true
	w.stopCh = make(chan struct{})
	w.doneCh = make(chan struct{})
	w.mu.Unlock()

	go w.runLoop(ctx)

	w.logger.InfoContext(ctx, "Worker started",
		"sweep_interval", w.config.SweepInterval,
		"export_interval", w.config.ExportInterval,
		"batch_size", w.config.BatchSize,
		"export_enabled", w.reports != nil)
	return nil
}

// Stop signals the loop and waits for it, or for ctx to expire.
func (w *Worker) Stop(ctx context.Context) error {
	w.mu.Lock()
	if !w.running {
		w.mu.Unlock()
		return nil
	}
	w.running = false
	stopCh, doneCh := w.stopCh, w.doneCh
	w.mu.Unlock()

	close(stopCh)
	select {
	case <-doneCh:
		w.logger.InfoContext(ctx, "Worker stopped")
		return nil
	case <-ctx.Done():
		w.logger.WarnContext(ctx, "Worker stop timed out")
		return ctx.Err()
	}
}

func (w *Worker) IsRunning() bool {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.running
}

func (w *Worker) runLoop(ctx context.Context) {
	defer close(w.doneCh)

	sweep := time.NewTicker(w.config.SweepInterval)
	defer sweep.Stop()
	export := time.NewTicker(w.config.ExportInterval)
	defer export.Stop()

	// Catch up on startup
	w.sweep(ctx)
	w.export(ctx)

	for {
		select {
		case <-w.stopCh:
			return
		case <-ctx.Done():
			return
		case <-sweep.C:
			w.sweep(ctx)
		case <-export.C:
			w.export(ctx)
		}
	}
}

func (w *Worker) sweep(ctx context.Context) {
	if _, err := w.ProcessUnposted(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Sweep failed", applog.FieldError, err)
	}
}

func (w *Worker) export(ctx context.Context) {
	if _, err := w.ExportReport(ctx); err != nil && ctx.Err() == nil {
		w.logger.ErrorContext(ctx, "Report export failed",
			applog.FieldOperation, applog.OpExport, applog.FieldError, err)
	}
}

func reportRow(city, team string, st dues.TeamStatus) sheets.ReportRow {
	return sheets.ReportRow{
		City:             city,
		Team:             team,
		Expected:         st.Expected,
		Paid:             st.PaidTotal,
		PaidCount:        st.PaidCount,
		ActiveCount:      st.ActiveCount,
		HeadcountPercent: st.HeadcountPercent,
		CurrencyPercent:  st.CurrencyPercent,
	}
}
