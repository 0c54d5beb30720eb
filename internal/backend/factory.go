package backend

import (
	"context"
	"errors"
	"fmt"

	"tesouraria/internal/address"
	"tesouraria/internal/amqp"
	"tesouraria/internal/cache"
	applog "tesouraria/internal/log"
	"tesouraria/internal/services"
	gsheet "tesouraria/internal/sheets/google"
	"tesouraria/internal/sheets/memory"
	"tesouraria/internal/storage"
)

// DefaultFactory implements the Factory interface
type DefaultFactory struct {
	logger *applog.Logger
}

// NewFactory creates a new backend factory
func NewFactory(logger *applog.Logger) Factory {
	if logger == nil {
		logger = applog.FromContext(context.Background())
	}
	return &DefaultFactory{logger: logger.WithComponent(applog.ComponentBackend)}
}

// Create opens the database, connects to the broker when configured and
// builds the services. On error everything opened so far is released.
func (f *DefaultFactory) Create(ctx context.Context, config Config) (_ *App, err error) {
	if config.Reports == "" {
		config.Reports = ReportsNone
	}
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid backend config: %w", err)
	}

	app := &App{}
	defer func() {
		if err != nil {
			_ = app.Close()
		}
	}()

	repo, err := storage.NewSQLiteRepository(config.SQLiteDBPath)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize SQLite repository: %w", err)
	}
	app.Repo = repo
	app.addCleanup(repo.Close)

	var publisher services.Publisher
	if config.AMQPURL != "" {
		client, err := amqp.NewClient(config.AMQPURL, config.AMQPExchange, config.AMQPQueue)
		if err != nil {
			f.logger.WarnContext(ctx, "Failed to initialize AMQP client, posting payments inline",
				applog.FieldError, err.Error())
		} else {
			app.AMQP = client
			app.addCleanup(client.Close)
			publisher = client
			f.logger.InfoContext(ctx, "Initialized AMQP client",
				"exchange", config.AMQPExchange,
				"queue", config.AMQPQueue)
		}
	}

	switch config.Reports {
	case ReportsSheets:
		client, err := gsheet.New(ctx, gsheet.Config{
			SpreadsheetID:      config.GoogleSpreadsheetID,
			SheetName:          config.GoogleSheetName,
			ServiceAccountJSON: config.GoogleServiceAccountJSON,
			ServiceAccountFile: config.GoogleServiceAccountFile,
		}, f.logger)
		if err != nil {
			return nil, fmt.Errorf("failed to initialize Google Sheets client: %w", err)
		}
		app.Reports = client
	case ReportsMemory:
		app.Reports = memory.New()
	}

	app.Organization = services.NewOrganizationService(repo, f.logger)
	app.Members = services.NewMemberService(repo, f.logger)
	app.Ledger = services.NewLedgerService(repo, f.logger)
	app.Payments = services.NewPaymentService(repo, publisher, app.Ledger, f.logger)
	app.Treasury = services.NewTreasuryService(repo, config.DefaultDuesAmount, f.logger)
	app.Events = services.NewEventService(repo, f.logger)
	app.Dashboard = services.NewDashboardService(app.Organization, app.Members, app.Treasury, app.Ledger)

	app.Address = address.NewClient(config.CEPBaseURL, config.CEPCacheTTL, nil, f.logger)
	app.Caches = cache.NewManager(f.logger)
	app.Caches.Register(app.Address.Cache())
	if config.CacheCleanupInterval > 0 {
		app.Caches.StartCleanup(config.CacheCleanupInterval)
	}
	app.addCleanup(func() error { app.Caches.Stop(); return nil })

	f.logger.InfoContext(ctx, "Initialized backend",
		"db_path", config.SQLiteDBPath,
		"amqp_enabled", app.AMQP != nil,
		"reports", config.Reports.String())
	return app, nil
}

func (a *App) addCleanup(fn CleanupFunc) {
	a.cleanups = append(a.cleanups, fn)
}

// Close releases resources in reverse order of acquisition and reports every
// failure.
func (a *App) Close() error {
	var errs []error
	for i := len(a.cleanups) - 1; i >= 0; i-- {
		if err := a.cleanups[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.cleanups = nil
	return errors.Join(errs...)
}
