package http

import (
	"net/http"

	"sicof/internal/core"

	"github.com/go-chi/chi/v5"
)

type fundingRequest struct {
	FundingSources     []core.FundingSource `json:"fundingSources"`
	ExcludingExpenseID string               `json:"excludingExpenseId"`
}

func (s *Server) handleListExpenses(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	status := core.ExpenseStatus(sanitizeInput(q.Get("status")))
	expenses, err := s.svc.Expenses.List(r.Context(), status, sanitizeInput(q.Get("q")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, expenses)
}

func (s *Server) handleCreateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if err := decodeJSON(w, r, maxBodyBytes, &e); err != nil {
		writeError(w, r, err)
		return
	}
	created, err := s.svc.Expenses.Create(r.Context(), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, created)
}

func (s *Server) handleGetExpense(w http.ResponseWriter, r *http.Request) {
	e, err := s.svc.Expenses.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, e)
}

func (s *Server) handleUpdateExpense(w http.ResponseWriter, r *http.Request) {
	var e core.Expense
	if err := decodeJSON(w, r, maxBodyBytes, &e); err != nil {
		writeError(w, r, err)
		return
	}
	updated, err := s.svc.Expenses.Update(r.Context(), chi.URLParam(r, "id"), e)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, updated)
}

func (s *Server) handleDeleteExpense(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Expenses.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleExpenseDetail(w http.ResponseWriter, r *http.Request) {
	detail, err := s.svc.Query.GetExpenseDetail(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, detail)
}

// handleValidateFunding checks sources against live balances without saving.
func (s *Server) handleValidateFunding(w http.ResponseWriter, r *http.Request) {
	var req fundingRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Expenses.ValidateFunding(r.Context(), req.FundingSources, req.ExcludingExpenseID); err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, map[string]bool{"valid": true})
}
