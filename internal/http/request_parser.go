package http

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"tesouraria/internal/core"
	"tesouraria/internal/services"
)

// maxBodyBytes caps request bodies.
const maxBodyBytes = 1 << 20

var errMalformedBody = errors.New("malformed request body")

// decodeJSON reads one JSON object from r into dst. Unknown fields, trailing
// data and oversized bodies are rejected as malformed.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) error {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			return fmt.Errorf("%w: empty body", errMalformedBody)
		}
		return fmt.Errorf("%w: %v", errMalformedBody, err)
	}
	if dec.More() {
		return fmt.Errorf("%w: trailing data", errMalformedBody)
	}
	return nil
}

// ParseMonthParams reads year and month from the query string. Missing values
// default to now. Non-numeric values are malformed; out-of-range ones fail
// validation.
func ParseMonthParams(query url.Values, now time.Time) (core.MonthRef, error) {
	year, month := now.Year(), int(now.Month())

	if v := strings.TrimSpace(query.Get("year")); v != "" {
		y, err := strconv.Atoi(v)
		if err != nil {
			return core.MonthRef{}, fmt.Errorf("%w: year %q", errMalformedBody, v)
		}
		year = y
	}
	if v := strings.TrimSpace(query.Get("month")); v != "" {
		m, err := strconv.Atoi(v)
		if err != nil {
			return core.MonthRef{}, fmt.Errorf("%w: month %q", errMalformedBody, v)
		}
		month = m
	}
	ref, err := core.NewMonthRef(year, month)
	if err != nil {
		return core.MonthRef{}, fmt.Errorf("%w: %w", services.ErrValidation, err)
	}
	return ref, nil
}

// parseDateParam parses an optional YYYY-MM-DD query value.
func parseDateParam(query url.Values, key string) (core.Date, error) {
	v := strings.TrimSpace(query.Get(key))
	if v == "" {
		return core.Date{}, nil
	}
	d, err := core.ParseDate(v)
	if err != nil {
		return core.Date{}, fmt.Errorf("%w: %s %q is not YYYY-MM-DD", errMalformedBody, key, v)
	}
	return d, nil
}

// sanitizeInput trims s and drops control characters except tab, newline
// and carriage return.
func sanitizeInput(s string) string {
	return strings.Map(func(r rune) rune {
		if r < 32 && r != '\t' && r != '\n' && r != '\r' {
			return -1
		}
		return r
	}, strings.TrimSpace(s))
}
