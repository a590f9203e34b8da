package http

import (
	"net/http"

	"sicof/internal/storage"

	"github.com/go-chi/chi/v5"
)

type goalRequest struct {
	Description string `json:"description"`
}

type closingRequest struct {
	FiscalYear      int    `json:"fiscalYear"`
	ResponsibleUser string `json:"responsibleUser"`
}

type backupRequest struct {
	Name string `json:"name"`
}

func (s *Server) handleListGoals(w http.ResponseWriter, r *http.Request) {
	goals, err := s.svc.Goals.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, goals)
}

func (s *Server) handleCreateGoal(w http.ResponseWriter, r *http.Request) {
	var req goalRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	g, err := s.svc.Goals.Create(r.Context(), sanitizeInput(req.Description))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, g)
}

func (s *Server) handleDeleteGoal(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Goals.Delete(r.Context(), chi.URLParam(r, "id")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListClosings(w http.ResponseWriter, r *http.Request) {
	closings, err := s.svc.Closings.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, closings)
}

func (s *Server) handleCloseYear(w http.ResponseWriter, r *http.Request) {
	var req closingRequest
	if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
		writeError(w, r, err)
		return
	}
	closing, err := s.svc.Closings.CloseYear(r.Context(), req.FiscalYear, sanitizeInput(req.ResponsibleUser))
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, closing)
}

func (s *Server) handleExport(w http.ResponseWriter, r *http.Request) {
	snap, err := s.svc.Backup.ExportAll(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	w.Header().Set("Content-Disposition", `attachment; filename="sicof-backup.json"`)
	writeJSON(w, http.StatusOK, snap)
}

// handleImport overwrites the whole store with the uploaded snapshot.
func (s *Server) handleImport(w http.ResponseWriter, r *http.Request) {
	var snap storage.Snapshot
	if err := decodeJSON(w, r, maxSnapshotBytes, &snap); err != nil {
		writeError(w, r, err)
		return
	}
	if err := s.svc.Backup.ImportAll(r.Context(), snap); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (s *Server) handleListBackups(w http.ResponseWriter, r *http.Request) {
	names, err := s.svc.Backup.List(r.Context())
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, names)
}

func (s *Server) handleCreateBackup(w http.ResponseWriter, r *http.Request) {
	var req backupRequest
	if r.ContentLength != 0 {
		if err := decodeJSON(w, r, maxBodyBytes, &req); err != nil {
			writeError(w, r, err)
			return
		}
	}
	name, err := s.svc.Backup.Backup(r.Context(), req.Name)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusCreated, backupRequest{Name: name})
}

func (s *Server) handleRestoreBackup(w http.ResponseWriter, r *http.Request) {
	if err := s.svc.Backup.Restore(r.Context(), chi.URLParam(r, "name")); err != nil {
		writeError(w, r, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
