package http

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"tesouraria/internal/core"
)

// handleCashBook serves the cash book of ?city= between the optional ?from=
// and ?to= dates (YYYY-MM-DD, inclusive).
func (s *Server) handleCashBook(w http.ResponseWriter, r *http.Request) {
	cityID, err := requireQuery(r, "city")
	if err != nil {
		writeError(w, r, "cash_book", err)
		return
	}
	q := r.URL.Query()
	from, err := parseDateParam(q, "from")
	if err != nil {
		writeError(w, r, "cash_book", err)
		return
	}
	to, err := parseDateParam(q, "to")
	if err != nil {
		writeError(w, r, "cash_book", err)
		return
	}
	book, err := s.svc.Ledger.CashBook(r.Context(), cityID, from, to)
	if err != nil {
		writeError(w, r, "cash_book", err)
		return
	}
	if book.Entries == nil {
		book.Entries = []core.LedgerEntry{}
	}
	writeJSON(w, http.StatusOK, book)
}

func (s *Server) handleCreateEntry(w http.ResponseWriter, r *http.Request) {
	var e core.LedgerEntry
	if err := decodeJSON(w, r, &e); err != nil {
		writeError(w, r, "record_entry", err)
		return
	}
	e.Description = sanitizeInput(e.Description)
	e.Category = sanitizeInput(e.Category)
	created, err := s.svc.Ledger.RecordEntry(r.Context(), e)
	if err != nil {
		writeError(w, r, "record_entry", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleDeleteEntry(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Ledger.DeleteEntry(r.Context(), chi.URLParam(r, "entryID")); err != nil {
		writeError(w, r, "delete_entry", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
