package http

import (
	"errors"
	"net/http"

	"github.com/go-chi/chi/v5"
)

var errAddressDisabled = errors.New("address lookup is not configured")

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	cityID, err := requireQuery(r, "city")
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	d, err := s.svc.Dashboard.CityDashboard(r.Context(), cityID, s.now())
	if err != nil {
		writeError(w, r, "dashboard", err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleAddress(w http.ResponseWriter, r *http.Request) {
	if s.svc.Address == nil {
		ErrorResponse(http.StatusServiceUnavailable, errAddressDisabled.Error()).Write(w)
		return
	}
	addr, err := s.svc.Address.Lookup(r.Context(), chi.URLParam(r, "cep"))
	if err != nil {
		writeError(w, r, "address_lookup", err)
		return
	}
	writeJSON(w, http.StatusOK, addr)
}
