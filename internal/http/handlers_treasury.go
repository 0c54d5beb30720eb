package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tesouraria/internal/core"
)

type duesSetting struct {
	FlatAmount core.Money `json:"flat_amount"`
}

func (s *Server) handleGetDues(w http.ResponseWriter, r *http.Request) {
	flat, err := s.svc.Treasury.DuesAmount(r.Context())
	if err != nil {
		writeError(w, r, "get_dues", err)
		return
	}
	writeJSON(w, http.StatusOK, duesSetting{FlatAmount: flat})
}

func (s *Server) handleSetDues(w http.ResponseWriter, r *http.Request) {
	var body duesSetting
	if err := decodeJSON(w, r, &body); err != nil {
		writeError(w, r, "set_dues", err)
		return
	}
	if err := s.svc.Treasury.SetDuesAmount(r.Context(), body.FlatAmount); err != nil {
		writeError(w, r, "set_dues", err)
		return
	}
	writeJSON(w, http.StatusOK, body)
}

func (s *Server) handleTeamStatus(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, "team_status", err)
		return
	}
	report, err := s.svc.Treasury.TeamStatus(r.Context(), chi.URLParam(r, "teamID"), month)
	if err != nil {
		writeError(w, r, "team_status", err)
		return
	}
	writeJSON(w, http.StatusOK, report)
}

func (s *Server) handleTeamBreakdown(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, "team_breakdown", err)
		return
	}
	breakdown, err := s.svc.Treasury.TeamBreakdown(r.Context(), chi.URLParam(r, "teamID"), month)
	if err != nil {
		writeError(w, r, "team_breakdown", err)
		return
	}
	writeJSON(w, http.StatusOK, breakdown)
}

func (s *Server) handleCitySummary(w http.ResponseWriter, r *http.Request) {
	month, err := ParseMonthParams(r.URL.Query(), s.now())
	if err != nil {
		writeError(w, r, "city_summary", err)
		return
	}
	summary, err := s.svc.Treasury.CitySummary(r.Context(), chi.URLParam(r, "cityID"), month)
	if err != nil {
		writeError(w, r, "city_summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
