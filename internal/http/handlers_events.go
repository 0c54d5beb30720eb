package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tesouraria/internal/core"
)

func (s *Server) handleListEvents(w http.ResponseWriter, r *http.Request) {
	events, err := s.svc.Events.ListEvents(r.Context(), strings.TrimSpace(r.URL.Query().Get("city")))
	if err != nil {
		writeError(w, r, "list_events", err)
		return
	}
	writeList(w, events)
}

func (s *Server) handleCreateEvent(w http.ResponseWriter, r *http.Request) {
	var e core.Event
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, r, "create_event", err)
		return
	}
	e.Name = sanitizeInput(e.Name)
	created, err := s.svc.Events.CreateEvent(r.Context(), e)
	if err != nil {
		writeError(w, r, "create_event", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetEvent(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Events.GetEvent(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, r, "get_event", err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleRecordSale(w http.ResponseWriter, r *http.Request) {
	var sale core.EventSale
	if err := decodeJSON(w, r, &sale); err != nil {
		writeError(w, r, "record_sale", err)
		return
	}
	sale.EventID = chi.URLParam(r, "eventID")
	sale.Buyer = sanitizeInput(sale.Buyer)
	created, err := s.svc.Events.RecordSale(r.Context(), sale)
	if err != nil {
		writeError(w, r, "record_sale", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleSalesSummary(w http.ResponseWriter, r *http.Request) {
	summary, err := s.svc.Events.SalesSummary(r.Context(), chi.URLParam(r, "eventID"))
	if err != nil {
		writeError(w, r, "sales_summary", err)
		return
	}
	writeJSON(w, http.StatusOK, summary)
}
