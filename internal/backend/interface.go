// Package backend wires storage, messaging, report export and the
// application services into one App shared by the server and the worker.
package backend

import (
	"context"
	"time"

	"tesouraria/internal/address"
	"tesouraria/internal/amqp"
	"tesouraria/internal/cache"
	"tesouraria/internal/core"
	"tesouraria/internal/services"
	"tesouraria/internal/sheets"
	"tesouraria/internal/storage"
)

// CleanupFunc releases one resource held by an App.
type CleanupFunc func() error

// App holds every wired component. AMQP and Reports are nil when disabled.
type App struct {
	Repo    *storage.SQLiteRepository
	AMQP    *amqp.Client
	Reports sheets.ReportWriter
	Caches  *cache.Manager

	Organization *services.OrganizationService
	Members      *services.MemberService
	Payments     *services.PaymentService
	Treasury     *services.TreasuryService
	Ledger       *services.LedgerService
	Events       *services.EventService
	Dashboard    *services.DashboardService
	Address      *address.Client

	cleanups []CleanupFunc
}

// Factory creates an App from configuration.
type Factory interface {
	Create(ctx context.Context, config Config) (*App, error)
}

// Config holds what the factory needs to build an App.
type Config struct {
	SQLiteDBPath string

	// AMQP is optional; an empty URL posts payments to the ledger inline.
	AMQPURL      string
	AMQPExchange string
	AMQPQueue    string

	DefaultDuesAmount core.Money

	Reports                  ReportBackend
	GoogleSpreadsheetID      string
	GoogleSheetName          string
	GoogleServiceAccountFile string
	GoogleServiceAccountJSON string

	CEPBaseURL           string
	CEPCacheTTL          time.Duration
	CacheCleanupInterval time.Duration
}

// ReportBackend selects where the monthly dues report is exported.
type ReportBackend string

const (
	ReportsNone   ReportBackend = "none"
	ReportsSheets ReportBackend = "sheets"
	ReportsMemory ReportBackend = "memory"
)

// String implements fmt.Stringer
func (rb ReportBackend) String() string {
	return string(rb)
}

// IsValid returns true if the report backend is known
func (rb ReportBackend) IsValid() bool {
	switch rb {
	case ReportsNone, ReportsSheets, ReportsMemory:
		return true
	default:
		return false
	}
}
