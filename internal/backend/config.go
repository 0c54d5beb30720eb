package backend

import (
	"errors"
	"fmt"
	"time"

	"tesouraria/internal/config"
)

const defaultCacheCleanupInterval = 10 * time.Minute

// FromAppConfig converts the application config to backend config. Reports
// go to Google Sheets when a spreadsheet is configured and nowhere otherwise.
func FromAppConfig(appConfig *config.Config) (Config, error) {
	if appConfig == nil {
		return Config{}, errors.New("app config is nil")
	}
	flat, err := appConfig.FlatAmount()
	if err != nil {
		return Config{}, err
	}

	reports := ReportsNone
	if appConfig.SheetsEnabled() {
		reports = ReportsSheets
	}

	return Config{
		SQLiteDBPath: appConfig.SQLiteDBPath,
		AMQPURL:      appConfig.AMQPURL,
		AMQPExchange: appConfig.AMQPExchange,
		AMQPQueue:    appConfig.AMQPQueue,

		DefaultDuesAmount: flat,

		Reports:                  reports,
		GoogleSpreadsheetID:      appConfig.GoogleSpreadsheetID,
		GoogleSheetName:          appConfig.GoogleSheetName,
		GoogleServiceAccountFile: appConfig.GoogleServiceAccountFile,
		GoogleServiceAccountJSON: appConfig.GoogleServiceAccountJSON,

		CEPBaseURL:           appConfig.CEPBaseURL,
		CEPCacheTTL:          appConfig.CEPCacheTTL,
		CacheCleanupInterval: defaultCacheCleanupInterval,
	}, nil
}

// Validate validates the backend configuration
func (c Config) Validate() error {
	if c.SQLiteDBPath == "" {
		return errors.New("SQLite database path is required")
	}
	if c.DefaultDuesAmount.IsNegative() {
		return fmt.Errorf("default dues amount %s is negative", c.DefaultDuesAmount.Decimal())
	}
	if !c.Reports.IsValid() && c.Reports != "" {
		return fmt.Errorf("invalid report backend: %s", c.Reports)
	}
	if c.AMQPURL != "" && (c.AMQPExchange == "" || c.AMQPQueue == "") {
		return errors.New("AMQP exchange and queue are required when AMQP is enabled")
	}

	if c.Reports == ReportsSheets {
		if c.GoogleSpreadsheetID == "" {
			return errors.New("Google Spreadsheet ID is required for the sheets report backend")
		}
		// Credentials may also come from GOOGLE_APPLICATION_CREDENTIALS, which
		// the sheets client checks itself.
	}
	if c.CEPBaseURL == "" {
		return errors.New("CEP base URL is required")
	}
	return nil
}

// GetReportBackends returns all valid report backends
func GetReportBackends() []ReportBackend {
	return []ReportBackend{ReportsNone, ReportsSheets, ReportsMemory}
}
