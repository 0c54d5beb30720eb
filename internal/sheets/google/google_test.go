package google

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	goption "google.golang.org/api/option"
	gsheet "google.golang.org/api/sheets/v4"

	"tesouraria/internal/core"
	applog "tesouraria/internal/log"
	ports "tesouraria/internal/sheets"
)

var march = core.MonthRef{Year: 2026, Month: 3}

func testLogger() *applog.Logger {
	return applog.New(applog.Config{Output: &bytes.Buffer{}})
}

func sampleReport() ports.Report {
	return ports.Report{
		Month:       march,
		GeneratedAt: time.Date(2026, 3, 20, 8, 30, 0, 0, time.UTC),
		Rows: []ports.ReportRow{
			{City: "Campinas", Team: "Equipe A", Expected: core.Reais(100, 0), Paid: core.Reais(50, 0), PaidCount: 1, ActiveCount: 2, HeadcountPercent: 50, CurrencyPercent: 50},
			{City: "Campinas", Team: ports.TotalLabel, Expected: core.Reais(100, 0), Paid: core.Reais(50, 0), PaidCount: 1, ActiveCount: 2, HeadcountPercent: 50, CurrencyPercent: 50},
		},
	}
}

func TestYearPrefixedName(t *testing.T) {
	cases := []struct {
		base string
		year int
		want string
	}{
		{"Mensalidades", 2026, "2026 Mensalidades"},
		{"  Mensalidades ", 2025, "2025 Mensalidades"},
		{"2024 Mensalidades", 2026, "2024 Mensalidades"},
		{"", 2026, ""},
	}
	for _, tc := range cases {
		if got := yearPrefixedName(tc.base, tc.year); got != tc.want {
			t.Errorf("yearPrefixedName(%q, %d) = %q, want %q", tc.base, tc.year, got, tc.want)
		}
	}
}

func TestPlanWrites_EmptySheetGetsHeader(t *testing.T) {
	data := planWrites("2026 Mensalidades", nil, sampleReport())
	if len(data) != 3 {
		t.Fatalf("expected header plus 2 rows, got %d ranges", len(data))
	}
	if data[0].Range != "2026 Mensalidades!A1:J1" {
		t.Errorf("unexpected header range %q", data[0].Range)
	}
	if data[1].Range != "2026 Mensalidades!A2:J2" || data[2].Range != "2026 Mensalidades!A3:J3" {
		t.Errorf("unexpected row ranges %q %q", data[1].Range, data[2].Range)
	}
	row := data[1].Values[0]
	if row[0] != "3/2026" || row[2] != "Equipe A" || row[3] != 100.0 || row[9] != "2026-03-20 08:30:00" {
		t.Errorf("unexpected row values %v", row)
	}
}

func TestPlanWrites_OverwritesExistingKeys(t *testing.T) {
	existing := [][]any{
		{"Mês", "Cidade", "Equipe"},
		{"2/2026", "Campinas", "Equipe A"},
		{"3/2026", "Campinas", "Equipe A"},
	}
	data := planWrites("S", existing, sampleReport())
	if len(data) != 2 {
		t.Fatalf("expected 2 ranges, got %d", len(data))
	}
	if data[0].Range != "S!A3:J3" {
		t.Errorf("expected Equipe A to overwrite row 3, got %q", data[0].Range)
	}
	if data[1].Range != "S!A4:J4" {
		t.Errorf("expected total to be appended at row 4, got %q", data[1].Range)
	}
}

func TestClient_WriteReport(t *testing.T) {
	var batch gsheet.BatchUpdateValuesRequest
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		switch {
		case r.Method == http.MethodGet && strings.Contains(r.URL.Path, "/values/"):
			json.NewEncoder(w).Encode(map[string]any{
				"range":  "2026 Mensalidades!A1:C2",
				"values": [][]string{{"Mês", "Cidade", "Equipe"}, {"3/2026", "Campinas", "TOTAL"}},
			})
		case r.Method == http.MethodPost && strings.HasSuffix(r.URL.Path, "values:batchUpdate"):
			if err := json.NewDecoder(r.Body).Decode(&batch); err != nil {
				http.Error(w, err.Error(), http.StatusBadRequest)
				return
			}
			json.NewEncoder(w).Encode(map[string]any{"spreadsheetId": "sheet-id"})
		default:
			http.Error(w, "unexpected "+r.Method+" "+r.URL.Path, http.StatusNotFound)
		}
	}))
	defer srv.Close()

	svc, err := gsheet.NewService(context.Background(),
		goption.WithEndpoint(srv.URL+"/"),
		goption.WithHTTPClient(srv.Client()),
	)
	if err != nil {
		t.Fatalf("new service: %v", err)
	}

	c := NewWithService(svc, "sheet-id", "", testLogger())
	ref, err := c.WriteReport(context.Background(), sampleReport())
	if err != nil {
		t.Fatalf("write report: %v", err)
	}
	if ref != "2026 Mensalidades!3/2026" {
		t.Errorf("unexpected ref %q", ref)
	}
	if batch.ValueInputOption != "USER_ENTERED" || len(batch.Data) != 2 {
		t.Fatalf("unexpected batch %+v", batch)
	}
	if batch.Data[0].Range != "2026 Mensalidades!A3:J3" || batch.Data[1].Range != "2026 Mensalidades!A2:J2" {
		t.Errorf("unexpected ranges %q %q", batch.Data[0].Range, batch.Data[1].Range)
	}
}

func TestClient_WriteReportErrors(t *testing.T) {
	c := &Client{}
	if _, err := c.WriteReport(context.Background(), sampleReport()); err == nil {
		t.Fatal("expected error without service")
	}

	if _, err := New(context.Background(), Config{}, testLogger()); err == nil {
		t.Fatal("expected error without spreadsheet id")
	}

	t.Setenv("GOOGLE_APPLICATION_CREDENTIALS", "")
	_, err := New(context.Background(), Config{SpreadsheetID: "x"}, testLogger())
	if err == nil || !strings.Contains(err.Error(), "missing service account credentials") {
		t.Fatalf("expected missing credentials error, got %v", err)
	}
}
