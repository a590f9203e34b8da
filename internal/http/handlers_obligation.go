package http

import (
	"net/http"

	"sicof/internal/core"

	"github.com/go-chi/chi/v5"
)

type fulfilRequest struct {
	ProcessNumber string `json:"processNumber"`
	Notes         string `json:"notes"`
}

type fulfilResponse struct {
	Fulfilled core.Obligation  `json:"fulfilled"`
	Next      *core.Obligation `json:"next,omitempty"`
}

type linkRequest struct {
	ExpenseIDs []string `json:"expenseIds"`
}

func (s *Server) handleGetObligation(w http.ResponseWriter, r *http.Request) {
	o, err := s.svc.Accountability.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}

func (s *Server) handleFulfilObligation(w http.ResponseWriter, r *http.Request) {
	var req fulfilRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	fulfilled, next, err := s.svc.Accountability.Fulfil(r.Context(), chi.URLParam(r, "id"),
		sanitizeInput(req.ProcessNumber), sanitizeInput(req.Notes))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, fulfilResponse{Fulfilled: fulfilled, Next: next})
}

// handleLinkExpenses replaces the evidence list; only Liquidated or Paid
// expenses are accepted.
func (s *Server) handleLinkExpenses(w http.ResponseWriter, r *http.Request) {
	var req linkRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Accountability.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Accountability.CheckEligible(r.Context(), req.ExpenseIDs); err != nil {
		writeError(w, r, err)
		return
	}
	o, err := s.svc.Accountability.LinkExpenses(r.Context(), id, req.ExpenseIDs)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, o)
}
