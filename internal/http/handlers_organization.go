package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tesouraria/internal/core"
	"tesouraria/internal/services"
)

// requireQuery returns the trimmed query value key, failing validation when
// it is empty.
func requireQuery(r *http.Request, key string) (string, error) {
	v := sanitizeInput(r.URL.Query().Get(key))
	if v == "" {
		return "", fmt.Errorf("%w: query parameter %q is required", services.ErrValidation, key)
	}
	return v, nil
}

func (s *Server) handleListCities(w http.ResponseWriter, r *http.Request) {
	cities, err := s.svc.Organization.ListCities(r.Context())
	if err != nil {
		writeError(w, r, "list_cities", err)
		return
	}
	writeList(w, cities)
}

func (s *Server) handleCreateCity(w http.ResponseWriter, r *http.Request) {
	var c core.City
	if err := decodeJSON(w, r, &c); err != nil {
		writeError(w, r, "create_city", err)
		return
	}
	created, err := s.svc.Organization.CreateCity(r.Context(), c)
	if err != nil {
		writeError(w, r, "create_city", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetCity(w http.ResponseWriter, r *http.Request) {
	c, err := s.svc.Organization.GetCity(r.Context(), chi.URLParam(r, "cityID"))
	if err != nil {
		writeError(w, r, "get_city", err)
		return
	}
	writeJSON(w, http.StatusOK, c)
}

func (s *Server) handleListTeams(w http.ResponseWriter, r *http.Request) {
	teams, err := s.svc.Organization.ListTeams(r.Context(), strings.TrimSpace(r.URL.Query().Get("city")))
	if err != nil {
		writeError(w, r, "list_teams", err)
		return
	}
	writeList(w, teams)
}

func (s *Server) handleCreateTeam(w http.ResponseWriter, r *http.Request) {
	var t core.Team
	if err := decodeJSON(w, r, &t); err != nil {
		writeError(w, r, "create_team", err)
		return
	}
	created, err := s.svc.Organization.CreateTeam(r.Context(), t)
	if err != nil {
		writeError(w, r, "create_team", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetTeam(w http.ResponseWriter, r *http.Request) {
	t, err := s.svc.Organization.GetTeam(r.Context(), chi.URLParam(r, "teamID"))
	if err != nil {
		writeError(w, r, "get_team", err)
		return
	}
	writeJSON(w, http.StatusOK, t)
}

func (s *Server) handleUpdateTeam(w http.ResponseWriter, r *http.Request) {
	var t core.Team
	if err := decodeJSON(w, r, &t); err != nil {
		writeError(w, r, "update_team", err)
		return
	}
	t.ID = chi.URLParam(r, "teamID")
	updated, err := s.svc.Organization.UpdateTeam(r.Context(), t)
	if err != nil {
		writeError(w, r, "update_team", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteTeam(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Organization.DeleteTeam(r.Context(), chi.URLParam(r, "teamID")); err != nil {
		writeError(w, r, "delete_team", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
