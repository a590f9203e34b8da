package http

import (
	"encoding/json"
	"fmt"
	"net/http"

	"sicof/internal/core"
	"sicof/internal/log"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleListCredits(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	credits, err := s.svc.Credits.List(r.Context(), year, sanitizeInput(r.URL.Query().Get("q")))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, credits)
}

func (s *Server) handleCreateCredit(w http.ResponseWriter, r *http.Request) {
	var c core.Credit
	if err := decodeJSON(w, r, maxBodyBytes, &c); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Credits.Create(r.Context(), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, view)
}

func (s *Server) handleGetCredit(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Credits.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleUpdateCredit(w http.ResponseWriter, r *http.Request) {
	var c core.Credit
	if err := decodeJSON(w, r, maxBodyBytes, &c); err != nil {
		writeError(w, r, err)
		return
	}
	view, err := s.svc.Credits.Update(r.Context(), chi.URLParam(r, "id"), c)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleDeleteCredit(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Credits.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleCloseCredit(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Credits.Close(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleReopenCredit(w http.ResponseWriter, r *http.Request) {
	view, err := s.svc.Credits.Reopen(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, view)
}

func (s *Server) handleCreditObligations(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Credits.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	list, err := s.svc.Accountability.ListByCredit(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, list)
}

// handleObligationStream pushes the credit's schedule as server-sent events,
// once on connect and after every obligation change.
func (s *Server) handleObligationStream(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "id")
	if _, err := s.svc.Credits.Get(r.Context(), id); err != nil {
		writeError(w, r, err)
		return
	}
	flusher, ok := w.(http.Flusher)
	if !ok {
		writeError(w, r, fmt.Errorf("streaming not supported"))
		return
	}
	updates, err := s.svc.Accountability.Watch(r.Context(), id)
	if err != nil {
		writeError(w, r, err)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	logger := log.FromContext(r.Context())
	for list := range updates {
		data, err := json.Marshal(list)
		if err != nil {
			logger.ErrorContext(r.Context(), "Failed to encode obligations", log.FieldError, err.Error())
			return
		}
		if _, err := fmt.Fprintf(w, "event: obligations\ndata: %s\n\n", data); err != nil {
			return
		}
		flusher.Flush()
	}
}
