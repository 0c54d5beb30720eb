// Package sheets defines the outbound report ports and the row layout shared
// by their adapters.
package sheets

import (
	"context"
	"time"

	"tesouraria/internal/core"
)

// TotalLabel marks the row carrying a city's total in the Team column.
const TotalLabel = "TOTAL"

// Header is the first row of a report sheet.
var Header = []string{
	"Mês", "Cidade", "Equipe", "Esperado", "Arrecadado",
	"Pagantes", "Ativos", "% Pessoas", "% Valor", "Atualizado em",
}

type (
	// ReportRow is the dues status of one team, or of a whole city when Team
	// is TotalLabel.
	ReportRow struct {
		City             string
		Team             string
		Expected         core.Money
		Paid             core.Money
		PaidCount        int
		ActiveCount      int
		HeadcountPercent float64
		CurrencyPercent  float64
	}

	// Report is the monthly dues report exported by the worker.
	Report struct {
		Month       core.MonthRef
		GeneratedAt time.Time
		Rows        []ReportRow
	}
)

// Key identifies a row within a report sheet. Writing the same key twice
// overwrites the earlier row.
func (r ReportRow) Key(month core.MonthRef) string {
	return month.Key() + "|" + r.City + "|" + r.Team
}

// Ports for outbound adapters.
type (
	ReportWriter interface {
		// WriteReport upserts the rows of report and returns a reference to
		// where they were written.
		WriteReport(ctx context.Context, report Report) (ref string, err error)
	}
)
