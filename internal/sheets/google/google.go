// Package google writes dues reports to a Google Sheets spreadsheet using a
// service account.
package google

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	applog "tesouraria/internal/log"
	ports "tesouraria/internal/sheets"
)

// Config selects the spreadsheet and the credentials used to reach it.
type Config struct {
	SpreadsheetID string
	// SheetName is the base tab name; the report year is prefixed ("2026 Mensalidades").
	SheetName          string
	ServiceAccountJSON string
	ServiceAccountFile string
}

type Client struct {
	svc           *gsheet.Service
	spreadsheetID string
	sheetBase     string
	logger        *applog.Logger
}

var _ ports.ReportWriter = (*Client)(nil)

// New creates a client authenticated with the service account in cfg.
func New(ctx context.Context, cfg Config, logger *applog.Logger) (*Client, error) {
	if strings.TrimSpace(cfg.SpreadsheetID) == "" {
		return nil, errors.New("missing spreadsheet id")
	}
	logger = logger.WithComponent(applog.ComponentSheets)
	svc, err := newSheetsService(ctx, cfg, logger)
	if err != nil {
		return nil, fmt.Errorf("sheets service: %w", err)
	}
	return NewWithService(svc, cfg.SpreadsheetID, cfg.SheetName, logger), nil
}

// NewWithService wraps an existing Sheets service.
func NewWithService(svc *gsheet.Service, spreadsheetID, sheetBase string, logger *applog.Logger) *Client {
	if strings.TrimSpace(sheetBase) == "" {
		sheetBase = "Mensalidades"
	}
	return &Client{
		svc:           svc,
		spreadsheetID: spreadsheetID,
		sheetBase:     sheetBase,
		logger:        logger.WithComponent(applog.ComponentSheets),
	}
}

// newSheetsService resolves service account credentials from cfg, falling
// back to GOOGLE_APPLICATION_CREDENTIALS.
func newSheetsService(ctx context.Context, cfg Config, logger *applog.Logger) (*gsheet.Service, error) {
	serviceAccountJSON := strings.TrimSpace(cfg.ServiceAccountJSON)
	serviceAccountFile := strings.TrimSpace(cfg.ServiceAccountFile)
	if serviceAccountJSON == "" && serviceAccountFile == "" {
		serviceAccountFile = strings.TrimSpace(os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"))
	}

	var (
		credentialsJSON []byte
		err             error
	)
	switch {
	case serviceAccountJSON != "":
		logger.DebugContext(ctx, "Using inline service account credentials")
		credentialsJSON = []byte(serviceAccountJSON)
	case serviceAccountFile != "":
		logger.DebugContext(ctx, "Reading service account credentials", "path", serviceAccountFile)
		credentialsJSON, err = os.ReadFile(serviceAccountFile)
		if err != nil {
			return nil, fmt.Errorf("read service account file: %w", err)
		}
	default:
		return nil, errors.New("missing service account credentials (set GOOGLE_SERVICE_ACCOUNT_JSON, GOOGLE_SERVICE_ACCOUNT_FILE, or GOOGLE_APPLICATION_CREDENTIALS)")
	}

	service, err := gsheet.NewService(ctx,
		goption.WithCredentialsJSON(credentialsJSON),
		goption.WithScopes(gsheet.SpreadsheetsScope))
	if err != nil {
		return nil, fmt.Errorf("create sheets service: %w", err)
	}
	return service, nil
}

// WriteReport upserts the report rows into the year's tab. Rows already
// present for the same month, city and team are overwritten in place; the
// rest are appended. Everything is sent in a single batch update.
func (c *Client) WriteReport(ctx context.Context, report ports.Report) (string, error) {
	if c.svc == nil {
		return "", errors.New("sheets service not initialized")
	}
	if report.Month.IsZero() {
		return "", errors.New("report without month")
	}

	sheet := yearPrefixedName(c.sheetBase, report.Month.Year)
	rng := fmt.Sprintf("%s!A:C", sheet)
	resp, err := c.svc.Spreadsheets.Values.Get(c.spreadsheetID, rng).Context(ctx).Do()
	if err != nil {
		return "", fmt.Errorf("read %s: %w", rng, err)
	}

	data := planWrites(sheet, resp.Values, report)
	req := &gsheet.BatchUpdateValuesRequest{ValueInputOption: "USER_ENTERED", Data: data}
	if _, err := c.svc.Spreadsheets.Values.BatchUpdate(c.spreadsheetID, req).Context(ctx).Do(); err != nil {
		return "", fmt.Errorf("write report to %s: %w", sheet, err)
	}

	c.logger.InfoContext(ctx, "Report written",
		applog.FieldMonth, report.Month.Key(),
		"sheet", sheet,
		"ranges", len(data))
	return fmt.Sprintf("%s!%s", sheet, report.Month.Key()), nil
}

// planWrites maps each report row onto a sheet row: the row already holding
// its key when there is one, otherwise the next free row. A header is
// written when the sheet is empty.
func planWrites(sheet string, existing [][]any, report ports.Report) []*gsheet.ValueRange {
	var data []*gsheet.ValueRange
	rowOf := make(map[string]int, len(existing))
	next := len(existing) + 1

	if len(existing) == 0 {
		header := make([]any, len(ports.Header))
		for i, h := range ports.Header {
			header[i] = h
		}
		data = append(data, &gsheet.ValueRange{
			Range:  fmt.Sprintf("%s!A1:J1", sheet),
			Values: [][]any{header},
		})
		next = 2
	}
	for i, raw := range existing {
		cols := toStrings(raw)
		key := strings.Join([]string{safeGet(cols, 0), safeGet(cols, 1), safeGet(cols, 2)}, "|")
		if _, seen := rowOf[key]; !seen {
			rowOf[key] = i + 1
		}
	}

	stamp := report.GeneratedAt.Format(time.DateTime)
	for _, r := range report.Rows {
		key := r.Key(report.Month)
		row, ok := rowOf[key]
		if !ok {
			row = next
			next++
			rowOf[key] = row
		}
		data = append(data, &gsheet.ValueRange{
			Range: fmt.Sprintf("%s!A%d:J%d", sheet, row, row),
			Values: [][]any{{
				report.Month.Key(), r.City, r.Team,
				r.Expected.Float(), r.Paid.Float(),
				r.PaidCount, r.ActiveCount,
				round2(r.HeadcountPercent), round2(r.CurrencyPercent),
				stamp,
			}},
		})
	}
	return data
}

func round2(f float64) float64 {
	v, _ := strconv.ParseFloat(strconv.FormatFloat(f, 'f', 2, 64), 64)
	return v
}

func toStrings(in []any) []string {
	out := make([]string, len(in))
	for i, v := range in {
		out[i] = strings.TrimSpace(fmt.Sprint(v))
	}
	return out
}

func safeGet(arr []string, idx int) string {
	if idx < 0 || idx >= len(arr) {
		return ""
	}
	return arr[idx]
}

// yearPrefixedName returns "<year> <base>" unless base already starts with a 4-digit year.
func yearPrefixedName(base string, year int) string {
	base = strings.TrimSpace(base)
	if base == "" {
		return base
	}
	if len(base) >= 5 {
		if y, err := strconv.Atoi(base[0:4]); err == nil && base[4] == ' ' && y > 1900 && y < 3000 {
			return base
		}
	}
	return fmt.Sprintf("%d %s", year, base)
}
