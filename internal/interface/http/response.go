package http

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/phishguard/phishguard-hub/internal/domain/shared"
	"github.com/phishguard/phishguard-hub/pkg/logger"
)

// ══════════════════════════════════════════════════════════════════════════════
// RESPONSE HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// APIVersion is reported in every response envelope.
const APIVersion = "v1"

// JSONResponse represents a standard JSON response.
type JSONResponse struct {
	Success   bool          `json:"success"`
	Data      interface{}   `json:"data,omitempty"`
	Error     *APIError     `json:"error,omitempty"`
	Meta      *ResponseMeta `json:"meta,omitempty"`
	RequestID string        `json:"request_id,omitempty"`
}

// APIError represents an API error.
type APIError struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// ResponseMeta contains response metadata.
type ResponseMeta struct {
	Timestamp time.Time `json:"timestamp"`
	Version   string    `json:"version,omitempty"`
}

func newMeta() *ResponseMeta {
	return &ResponseMeta{Timestamp: time.Now().UTC(), Version: APIVersion}
}

// writeJSON writes a success envelope.
func writeJSON(w http.ResponseWriter, r *http.Request, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success:   status >= 200 && status < 300,
		Data:      data,
		Meta:      newMeta(),
		RequestID: getRequestID(r.Context()),
	})
}

// writeJSONError writes an error envelope.
func writeJSONError(w http.ResponseWriter, r *http.Request, status int, code, message string) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)

	_ = json.NewEncoder(w).Encode(JSONResponse{
		Success:   false,
		Error:     &APIError{Code: code, Message: message},
		Meta:      newMeta(),
		RequestID: getRequestID(r.Context()),
	})
}

// ══════════════════════════════════════════════════════════════════════════════
// ERROR MAPPING
// ══════════════════════════════════════════════════════════════════════════════

// httpError is the HTTP rendering of an application error.
type httpError struct {
	Status  int
	Code    string
	Message string
}

// mapError translates an application error into a status, a stable code
// and a client-safe message. Storage details never leave the process.
func mapError(err error) httpError {
	msg := func(fallback string) string {
		var de *shared.DomainError
		if errors.As(err, &de) && de.Message != "" {
			return de.Message
		}
		return fallback
	}

	switch {
	case shared.IsDuplicateAttempt(err):
		return httpError{http.StatusConflict, "already_attempted", msg("You have already attempted this simulation")}
	case shared.IsValidation(err):
		return httpError{http.StatusBadRequest, "validation_error", msg("Invalid request")}
	case shared.IsNotFound(err):
		return httpError{http.StatusNotFound, "not_found", msg("Resource not found")}
	case shared.IsUnauthorized(err):
		return httpError{http.StatusUnauthorized, "unauthorized", "Authentication required"}
	case shared.IsConflict(err):
		return httpError{http.StatusServiceUnavailable, "conflict", "Too many concurrent updates, try again later"}
	case errors.Is(err, context.DeadlineExceeded), errors.Is(err, shared.ErrServiceUnavailable):
		return httpError{http.StatusServiceUnavailable, "unavailable", "Service temporarily unavailable"}
	default:
		return httpError{http.StatusInternalServerError, "internal_error", "An unexpected error occurred"}
	}
}

// writeError maps err and writes it. Server-side failures are logged.
func writeError(w http.ResponseWriter, r *http.Request, err error) {
	he := mapError(err)
	log := logger.FromContext(r.Context())
	if he.Status >= 500 {
		log.Error("request failed", logger.Err(err), logger.String("path", r.URL.Path))
	} else {
		log.Debug("request rejected", logger.Err(err), logger.Int("status", he.Status))
	}
	if he.Status == http.StatusServiceUnavailable {
		w.Header().Set("Retry-After", "1")
	}
	writeJSONError(w, r, he.Status, he.Code, he.Message)
}

// ══════════════════════════════════════════════════════════════════════════════
// REQUEST HELPERS
// ══════════════════════════════════════════════════════════════════════════════

// getQueryParamInt extracts an integer query parameter with a default value.
func getQueryParamInt(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}

// pathID parses a positive integer path parameter.
func pathID(r *http.Request, key string) (int64, bool) {
	id, err := strconv.ParseInt(chi.URLParam(r, key), 10, 64)
	if err != nil || id <= 0 {
		return 0, false
	}
	return id, true
}

// currentUser returns the identity attached by the auth middleware.
func currentUser(r *http.Request) int64 {
	id, _ := UserIDFromContext(r.Context())
	return id
}
