package http

import (
	"fmt"
	"net/http"
	"strings"

	"github.com/go-chi/chi/v5"

	"tesouraria/internal/core"
	"tesouraria/internal/services"
	"tesouraria/internal/storage"
)

// decodeMember reads a member and resolves Portuguese status and
// relationship labels to their canonical values.
func decodeMember(w http.ResponseWriter, r *http.Request) (core.Member, error) {
	var m core.Member
	if err := decodeJSON(w, r, &m); err != nil {
		return core.Member{}, err
	}
	status, err := core.ParseMemberStatus(string(m.Status))
	if err != nil {
		return core.Member{}, fmt.Errorf("%w: %w %q", services.ErrValidation, err, m.Status)
	}
	rel, err := core.ParseRelationship(string(m.Relationship))
	if err != nil {
		return core.Member{}, fmt.Errorf("%w: %w %q", services.ErrValidation, err, m.Relationship)
	}
	m.Status, m.Relationship = status, rel
	m.Name = sanitizeInput(m.Name)
	m.FamilyName = sanitizeInput(m.FamilyName)
	m.Address = sanitizeInput(m.Address)
	return m, nil
}

func (s *Server) handleListMembers(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	f := storage.MemberFilter{
		CityID: strings.TrimSpace(q.Get("city")),
		TeamID: strings.TrimSpace(q.Get("team")),
	}
	if v := q.Get("status"); v != "" {
		st, err := core.ParseMemberStatus(v)
		if err != nil {
			writeError(w, r, "list_members", fmt.Errorf("%w: %w %q", services.ErrValidation, err, v))
			return
		}
		f.Status = st
	}
	members, err := s.svc.Members.ListMembers(r.Context(), f)
	if err != nil {
		writeError(w, r, "list_members", err)
		return
	}
	writeList(w, members)
}

func (s *Server) handleCreateMember(w http.ResponseWriter, r *http.Request) {
	m, err := decodeMember(w, r)
	if err != nil {
		writeError(w, r, "create_member", err)
		return
	}
	created, err := s.svc.Members.CreateMember(r.Context(), m)
	if err != nil {
		writeError(w, r, "create_member", err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetMember(w http.ResponseWriter, r *http.Request) {
	m, err := s.svc.Members.GetMember(r.Context(), chi.URLParam(r, "memberID"))
	if err != nil {
		writeError(w, r, "get_member", err)
		return
	}
	writeJSON(w, http.StatusOK, m)
}

func (s *Server) handleUpdateMember(w http.ResponseWriter, r *http.Request) {
	m, err := decodeMember(w, r)
	if err != nil {
		writeError(w, r, "update_member", err)
		return
	}
	m.ID = chi.URLParam(r, "memberID")
	updated, err := s.svc.Members.UpdateMember(r.Context(), m)
	if err != nil {
		writeError(w, r, "update_member", err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteMember(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Members.DeleteMember(r.Context(), chi.URLParam(r, "memberID")); err != nil {
		writeError(w, r, "delete_member", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleMemberStats(w http.ResponseWriter, r *http.Request) {
	stats, err := s.svc.Members.Stats(r.Context(), strings.TrimSpace(r.URL.Query().Get("city")), s.now())
	if err != nil {
		writeError(w, r, "member_stats", err)
		return
	}
	writeJSON(w, http.StatusOK, stats)
}
