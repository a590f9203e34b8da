package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"sicof/internal/core"
	"sicof/internal/log"
	"sicof/internal/reports"
)

const (
	maxBodyBytes     = 1 << 20
	maxSnapshotBytes = 64 << 20
)

type errorBody struct {
	Error        string            `json:"error"`
	Fields       map[string]string `json:"fields,omitempty"`
	CreditID     string            `json:"creditId,omitempty"`
	Available    *core.Money       `json:"available,omitempty"`
	Requested    *core.Money       `json:"requested,omitempty"`
	ReferencedBy []string          `json:"referencedBy,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if v == nil {
		return
	}
	_ = json.NewEncoder(w).Encode(v)
}

// statusFor maps the error taxonomy to a response status. Not-found is
// checked first because store errors may wrap it.
func statusFor(err error) int {
	var (
		validation   *core.ValidationError
		insufficient *core.InsufficientBalanceError
		integrity    *core.ReferentialIntegrityError
		store        *core.StoreError
	)
	switch {
	case errors.As(err, &validation), errors.Is(err, core.ErrInvalidAmount), errors.Is(err, core.ErrInvalidPath):
		return http.StatusBadRequest
	case errors.Is(err, core.ErrNotFound), errors.Is(err, reports.ErrUnknownReport):
		return http.StatusNotFound
	case errors.As(err, &insufficient), errors.As(err, &integrity), errors.Is(err, core.ErrYearClosed):
		return http.StatusConflict
	case errors.Is(err, core.ErrEmptyReport):
		return http.StatusUnprocessableEntity
	case errors.As(err, &store):
		return http.StatusServiceUnavailable
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusInternalServerError
	}
}

func writeError(w http.ResponseWriter, r *http.Request, err error) {
	status := statusFor(err)
	body := errorBody{Error: err.Error()}

	var (
		validation   *core.ValidationError
		insufficient *core.InsufficientBalanceError
		integrity    *core.ReferentialIntegrityError
	)
	switch {
	case errors.As(err, &validation):
		body.Fields = validation.Fields
	case errors.As(err, &insufficient):
		body.CreditID = insufficient.CreditID
		body.Available = &insufficient.Available
		body.Requested = &insufficient.Requested
	case errors.As(err, &integrity):
		body.ReferencedBy = integrity.ReferencedBy
	}

	logger := log.FromContext(r.Context())
	switch {
	case status >= 500:
		errType := log.ErrorTypeInternal
		if status == http.StatusServiceUnavailable {
			errType = log.ErrorTypeDatabase
		}
		logger.ErrorContext(r.Context(), "Request failed",
			log.NewFields().WithError(err, errType).WithHTTPRequest(r.Method, r.URL.Path, r.URL.RawQuery, "").ToSlice()...)
		if status == http.StatusInternalServerError {
			body.Error = "internal error"
		}
	default:
		logger.DebugContext(r.Context(), "Request rejected", log.FieldStatusCode, status, log.FieldError, err.Error())
	}
	writeJSON(w, status, body)
}

// decodeJSON reads one JSON document of at most limit bytes into v. Any
// malformed body is a validation error on "body".
func decodeJSON(w http.ResponseWriter, r *http.Request, limit int64, v any) error {
	r.Body = http.MaxBytesReader(w, r.Body, limit)
	if err := json.NewDecoder(r.Body).Decode(v); err != nil {
		return core.NewValidationError("body", "invalid JSON: "+err.Error())
	}
	return nil
}

// queryYear reads ?year=, 0 when absent.
func queryYear(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("year"))
	if v == "" {
		return 0, nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 0 {
		return 0, core.NewValidationError("year", "must be a positive integer")
	}
	return year, nil
}

// sanitizeInput removes control characters except tab and newlines.
func sanitizeInput(s string) string {
	s = strings.TrimSpace(s)
	return strings.Map(func(r rune) rune {
		if r < 32 && r != 9 && r != 10 && r != 13 {
			return -1
		}
		return r
	}, s)
}
