package http

import (
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tesouraria/internal/core"
	"tesouraria/internal/storage"
)

func (s *Server) handleListPayments(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	payments, err := s.svc.Payments.ListPayments(r.Context(), storage.PaymentFilter{
		MemberID:       strings.TrimSpace(q.Get("member")),
		TeamID:         strings.TrimSpace(q.Get("team")),
		CityID:         strings.TrimSpace(q.Get("city")),
		ReferenceMonth: strings.TrimSpace(q.Get("reference_month")),
	})
	if err != nil {
		writeError(w, r, "list_payments", err)
		return
	}
	writeList(w, payments)
}

func (s *Server) handleCreatePayment(w http.ResponseWriter, r *http.Request) {
	var p core.Payment
	if err := decodeJSON(w, r, &p); err != nil {
		writeError(w, r, "record_payment", err)
		return
	}
	p.LaunchedBy = sanitizeInput(p.LaunchedBy)
	created, err := s.svc.Payments.RecordPayment(r.Context(), p)
	if err != nil {
		writeError(w, r, "record_payment", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetPayment(w http.ResponseWriter, r *http.Request) {
	p, err := s.svc.Payments.GetPayment(r.Context(), chi.URLParam(r, "paymentID"))
	if err != nil {
		writeError(w, r, "get_payment", err)
		return
	}
	writeJSON(w, http.StatusOK, p)
}

func (s *Server) handleDeletePayment(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Payments.DeletePayment(r.Context(), chi.URLParam(r, "paymentID")); err != nil {
		writeError(w, r, "delete_payment", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
