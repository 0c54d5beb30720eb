package core

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// MonthRef identifies a dues reference month.
type MonthRef struct {
	Year  int
	Month int // 1-12
}

// NewMonthRef validates year and month.
func NewMonthRef(year, month int) (MonthRef, error) {
	if month < 1 || month > 12 {
		return MonthRef{}, ErrInvalidMonth
	}
	if year < 1900 || year > 9999 {
		return MonthRef{}, fmt.Errorf("invalid year %d", year)
	}
	return MonthRef{Year: year, Month: month}, nil
}

// MonthOf returns the reference month containing t.
func MonthOf(t time.Time) MonthRef {
	return MonthRef{Year: t.Year(), Month: int(t.Month())}
}

// ParseMonthRef parses "M/YYYY" or "MM/YYYY".
func ParseMonthRef(s string) (MonthRef, error) {
	parts := strings.Split(strings.TrimSpace(s), "/")
	if len(parts) != 2 {
		return MonthRef{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	if !digits(parts[0]) || len(parts[0]) > 2 || !digits(parts[1]) || len(parts[1]) != 4 {
		return MonthRef{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	month, err := strconv.Atoi(parts[0])
	if err != nil {
		return MonthRef{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	year, err := strconv.Atoi(parts[1])
	if err != nil {
		return MonthRef{}, fmt.Errorf("%w: %q", ErrInvalidMonth, s)
	}
	return NewMonthRef(year, month)
}

func digits(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}

// Key formats the month as the unpadded "M/YYYY" key used by payment records.
func (m MonthRef) Key() string {
	return strconv.Itoa(m.Month) + "/" + strconv.Itoa(m.Year)
}

func (m MonthRef) String() string {
	return m.Key()
}

// Start returns midnight UTC of the first day of the month.
func (m MonthRef) Start() time.Time {
	return time.Date(m.Year, time.Month(m.Month), 1, 0, 0, 0, 0, time.UTC)
}

// Next returns the following month.
func (m MonthRef) Next() MonthRef {
	return MonthOf(m.Start().AddDate(0, 1, 0))
}

func (m MonthRef) IsZero() bool {
	return m.Year == 0 && m.Month == 0
}

// NormalizeMonthKey rewrites a month key to its canonical unpadded form.
func NormalizeMonthKey(s string) (string, error) {
	m, err := ParseMonthRef(s)
	if err != nil {
		return "", err
	}
	return m.Key(), nil
}
