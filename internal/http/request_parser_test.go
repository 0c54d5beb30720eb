package http

import (
	"errors"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"tesouraria/internal/services"
)

func TestParseMonthParams(t *testing.T) {
	now := time.Date(2026, 3, 15, 0, 0, 0, 0, time.UTC)
	tests := []struct {
		name      string
		query     url.Values
		wantKey   string
		malformed bool
		invalid   bool
	}{
		{name: "defaults to now", query: url.Values{}, wantKey: "3/2026"},
		{name: "both provided", query: url.Values{"year": {"2025"}, "month": {"12"}}, wantKey: "12/2025"},
		{name: "only month", query: url.Values{"month": {" 7 "}}, wantKey: "7/2026"},
		{name: "month not a number", query: url.Values{"month": {"mar"}}, malformed: true},
		{name: "year not a number", query: url.Values{"year": {"20x6"}}, malformed: true},
		{name: "month out of range", query: url.Values{"month": {"0"}}, invalid: true},
		{name: "year out of range", query: url.Values{"year": {"12"}}, invalid: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ref, err := ParseMonthParams(tt.query, now)
			switch {
			case tt.malformed:
				if !errors.Is(err, errMalformedBody) {
					t.Fatalf("want malformed error, got %v", err)
				}
			case tt.invalid:
				if !errors.Is(err, services.ErrValidation) {
					t.Fatalf("want validation error, got %v", err)
				}
			default:
				if err != nil {
					t.Fatalf("unexpected error: %v", err)
				}
				if ref.Key() != tt.wantKey {
					t.Errorf("Key() = %q, want %q", ref.Key(), tt.wantKey)
				}
			}
		})
	}
}

func TestParseDateParam(t *testing.T) {
	q := url.Values{"from": {"2026-03-01"}, "to": {"31/03/2026"}}

	d, err := parseDateParam(q, "from")
	if err != nil || d.String() != "2026-03-01" {
		t.Fatalf("from = %v, %v", d, err)
	}
	if _, err := parseDateParam(q, "to"); !errors.Is(err, errMalformedBody) {
		t.Fatalf("want malformed error, got %v", err)
	}
	d, err = parseDateParam(q, "missing")
	if err != nil || !d.IsZero() {
		t.Fatalf("missing = %v, %v", d, err)
	}
}

func TestDecodeJSON(t *testing.T) {
	type payload struct {
		Name string `json:"name"`
	}
	tests := []struct {
		name    string
		body    string
		wantErr bool
	}{
		{"valid", `{"name":"Ana"}`, false},
		{"empty", ``, true},
		{"syntax", `{"name":`, true},
		{"unknown field", `{"name":"Ana","age":3}`, true},
		{"trailing data", `{"name":"Ana"}{"name":"Bia"}`, true},
		{"too large", `{"name":"` + strings.Repeat("a", maxBodyBytes) + `"}`, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(tt.body))
			var p payload
			err := decodeJSON(httptest.NewRecorder(), req, &p)
			if tt.wantErr {
				if !errors.Is(err, errMalformedBody) {
					t.Fatalf("want malformed error, got %v", err)
				}
				return
			}
			if err != nil || p.Name != "Ana" {
				t.Fatalf("got %+v, %v", p, err)
			}
		})
	}
}

func TestSanitizeInput(t *testing.T) {
	tests := []struct {
		input string
		want  string
	}{
		{"  Mensalidade  ", "Mensalidade"},
		{"a\x00b\x07c", "abc"},
		{"linha\nnova\ttab", "linha\nnova\ttab"},
		{"", ""},
	}
	for _, tt := range tests {
		if got := sanitizeInput(tt.input); got != tt.want {
			t.Errorf("sanitizeInput(%q) = %q, want %q", tt.input, got, tt.want)
		}
	}
}
