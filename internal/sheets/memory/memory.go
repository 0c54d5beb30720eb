// Package memory is an in-process ReportWriter used when Google Sheets is
// not configured and in tests.
package memory

import (
	"context"
	"fmt"
	"sync"

	"tesouraria/internal/sheets"
)

type Store struct {
	mu     sync.Mutex
	rows   []sheets.ReportRow
	index  map[string]int
	months []string
	writes int
}

var _ sheets.ReportWriter = (*Store)(nil)

func New() *Store {
	return &Store{index: make(map[string]int)}
}

// WriteReport upserts every row by month, city and team.
func (s *Store) WriteReport(_ context.Context, report sheets.Report) (string, error) {
	if report.Month.IsZero() {
		return "", fmt.Errorf("report without month")
	}
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, row := range report.Rows {
		key := row.Key(report.Month)
		if i, ok := s.index[key]; ok {
			s.rows[i] = row
			continue
		}
		s.index[key] = len(s.rows)
		s.rows = append(s.rows, row)
		s.months = append(s.months, report.Month.Key())
	}
	s.writes++
	return fmt.Sprintf("mem:%d", s.writes), nil
}

// Rows returns a copy of the rows stored for month.
func (s *Store) Rows(month string) []sheets.ReportRow {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []sheets.ReportRow
	for i, row := range s.rows {
		if s.months[i] == month {
			out = append(out, row)
		}
	}
	return out
}

// Writes counts the successful WriteReport calls.
func (s *Store) Writes() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.writes
}
