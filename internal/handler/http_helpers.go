package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"pdf-signer/internal/domain"
	"pdf-signer/internal/service"
	apperrors "pdf-signer/pkg/errors"
)

type contextKey string

const sessionContextKey contextKey = "session"

const maxJSONBody = 1 << 20

// SessionFromContext returns the session resolved by SessionMiddleware.
func SessionFromContext(r *http.Request) (*service.Session, bool) {
	sess, ok := r.Context().Value(sessionContextKey).(*service.Session)
	return sess, ok
}

// writeError writes an error response (helper function)
func writeError(w http.ResponseWriter, statusCode int, message string) {
	writeJSON(w, statusCode, map[string]string{"error": message})
}

// writeJSON writes a JSON response
func writeJSON(w http.ResponseWriter, statusCode int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(data)
}

// writeAppError maps err to its status code and a client-safe message. Server-side
// failures are logged.
func writeAppError(w http.ResponseWriter, logger domain.Logger, err error) {
	status := apperrors.GetStatusCode(err)
	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", err, "status", status)
	}
	writeError(w, status, apperrors.PublicMessage(err))
}

// decodeJSON reads a JSON request body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxJSONBody))
	if err := dec.Decode(v); err != nil {
		if errors.Is(err, io.EOF) {
			return apperrors.NewValidationError("Request body is required")
		}
		return apperrors.NewValidationError("Invalid request body", err.Error())
	}
	return nil
}
