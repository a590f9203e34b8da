package http

import (
	"fmt"
	"net/http"
	"strings"

	"sicof/internal/core"
	"sicof/internal/reports"

	"github.com/go-chi/chi/v5"
)

func (s *Server) handleDashboard(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	d, err := s.svc.Dashboard.Summary(r.Context(), year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	writeJSON(w, http.StatusOK, d)
}

func (s *Server) handleListReports(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, reports.Names)
}

// handleReport serves a report as JSON, or as a CSV download with
// ?format=csv.
func (s *Server) handleReport(w http.ResponseWriter, r *http.Request) {
	year, err := queryYear(r)
	if err != nil {
		writeError(w, r, err)
		return
	}
	format := strings.ToLower(strings.TrimSpace(r.URL.Query().Get("format")))
	if format != "" && format != "json" && format != "csv" {
		writeError(w, r, core.NewValidationError("format", "must be json or csv"))
		return
	}

	name := chi.URLParam(r, "name")
	tbl, err := s.svc.Reports.Build(r.Context(), name, year)
	if err != nil {
		writeError(w, r, err)
		return
	}
	if format != "csv" {
		writeJSON(w, http.StatusOK, tbl)
		return
	}
	if len(tbl.Records) == 0 {
		writeError(w, r, fmt.Errorf("%s: %w", name, core.ErrEmptyReport))
		return
	}

	filename := name
	if year != 0 {
		filename = fmt.Sprintf("%s-%d", name, year)
	}
	w.Header().Set("Content-Type", "text/csv; charset=utf-8")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename+".csv"))
	if err := reports.WriteRecords(w, tbl.Records); err != nil {
		s.logger.ErrorContext(r.Context(), "Failed to write csv", "report", name, "error", err)
	}
}
