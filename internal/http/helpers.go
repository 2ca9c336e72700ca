package http

import (
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"fliptrack/internal/auth"
	"fliptrack/internal/core"
	"fliptrack/internal/storage"
)

type errorResponse struct {
	Error   string   `json:"error"`
	Missing []string `json:"missing_keys,omitempty"`
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("Failed to encode response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	writeJSON(w, status, errorResponse{Error: msg})
}

func writeMissingKeys(w http.ResponseWriter, keys []string) {
	writeJSON(w, http.StatusBadRequest, errorResponse{
		Error:   "missing required keys",
		Missing: keys,
	})
}

// decodeJSON parses the request body into dst, rejecting unknown garbage
// with a 400. Returns false when a response has already been written.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any) bool {
	dec := json.NewDecoder(r.Body)
	if err := dec.Decode(dst); err != nil {
		writeError(w, http.StatusBadRequest, "malformed request body: "+err.Error())
		return false
	}
	return true
}

// requireUser pulls the authenticated user ID out of the request context.
// The auth middleware guarantees it is set on every protected route.
func requireUser(w http.ResponseWriter, r *http.Request) (int64, bool) {
	id := auth.UserID(r.Context())
	if id == 0 {
		writeError(w, http.StatusUnauthorized, "not authenticated")
		return 0, false
	}
	return id, true
}

// parseYear reads the optional ?year= query parameter, defaulting to the
// current year.
func parseYear(r *http.Request) (int, error) {
	v := strings.TrimSpace(r.URL.Query().Get("year"))
	if v == "" {
		return time.Now().Year(), nil
	}
	year, err := strconv.Atoi(v)
	if err != nil || year < 1 || year > 9999 {
		return 0, errors.New("year must be a four-digit number")
	}
	return year, nil
}

// parsePathID reads the {id} path segment.
func parsePathID(r *http.Request) (int64, error) {
	id, err := strconv.ParseInt(r.PathValue("id"), 10, 64)
	if err != nil || id <= 0 {
		return 0, errors.New("invalid id")
	}
	return id, nil
}

// writeDomainError maps service errors onto HTTP statuses: unknown records
// are 404, validation failures are 422, the rest are 500.
func writeDomainError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case errors.Is(err, storage.ErrNotFound):
		writeError(w, http.StatusNotFound, "not found")
	case isValidationError(err):
		writeError(w, http.StatusUnprocessableEntity, err.Error())
	default:
		slog.ErrorContext(r.Context(), "Request failed", "error", err, "url", r.URL.Path)
		writeError(w, http.StatusInternalServerError, "internal error")
	}
}

func isValidationError(err error) bool {
	for _, sentinel := range []error{
		core.ErrInvalidAmount,
		core.ErrInvalidDate,
		core.ErrMissingUser,
		core.ErrMissingSupplyType,
		core.ErrEmptyTitle,
		core.ErrNotSold,
	} {
		if errors.Is(err, sentinel) {
			return true
		}
	}
	return false
}
