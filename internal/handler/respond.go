package handler

import (
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"

	"github.com/minicrm/backend/internal/service"
	"github.com/minicrm/backend/pkg/auth"
)

// maxBodyBytes caps JSON request bodies.
const maxBodyBytes = 1 << 20

type errorResponse struct {
	Error  string            `json:"error"`
	Fields map[string]string `json:"fields,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("failed to write response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, code string) {
	writeJSON(w, status, errorResponse{Error: code})
}

// decodeJSON reads a single JSON object from the request body. Unknown
// fields are accepted so clients may send extra keys such as owner_id.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		if errors.Is(err, io.EOF) {
			writeError(w, http.StatusBadRequest, "empty_body")
			return false
		}
		writeError(w, http.StatusBadRequest, "invalid_json")
		return false
	}
	return true
}

// callerFrom returns the principal placed in the context by auth.RequireAuth.
// Unauthenticated requests yield the zero principal, which every service
// rejects with ErrUnauthenticated.
func callerFrom(r *http.Request) auth.Principal {
	p, _ := auth.PrincipalFromContext(r.Context())
	return p
}

// Errors renders service errors as JSON responses.
type Errors struct {
	// MaskForbidden renders access-denied outcomes as 404 so callers
	// cannot tell a foreign record from a missing one.
	MaskForbidden bool
}

func (e Errors) Write(w http.ResponseWriter, r *http.Request, err error) {
	var ve *service.ValidationError
	switch {
	case errors.As(err, &ve):
		writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Error: "validation_failed", Fields: ve.Fields})
	case errors.Is(err, service.ErrStoreWriteFailed):
		slog.Error("store write failed", "method", r.Method, "path", r.URL.Path, "error", err)
		w.Header().Set("Retry-After", "1")
		writeError(w, http.StatusServiceUnavailable, "store_write_failed")
	case errors.Is(err, service.ErrUnauthenticated):
		writeError(w, http.StatusUnauthorized, "unauthorized")
	case errors.Is(err, service.ErrInvalidCredentials):
		writeError(w, http.StatusUnauthorized, "invalid_credentials")
	case errors.Is(err, service.ErrNotFound):
		writeError(w, http.StatusNotFound, "not_found")
	case errors.Is(err, service.ErrAccessDenied):
		if e.MaskForbidden {
			writeError(w, http.StatusNotFound, "not_found")
			return
		}
		writeError(w, http.StatusForbidden, "forbidden")
	case errors.Is(err, service.ErrListingDisabled):
		writeError(w, http.StatusForbidden, "listing_disabled")
	case errors.Is(err, service.ErrEmailTaken):
		writeError(w, http.StatusConflict, "email_taken")
	default:
		slog.Error("request failed", "method", r.Method, "path", r.URL.Path, "error", err)
		writeError(w, http.StatusInternalServerError, "internal_error")
	}
}
