package handlers

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"time"

	"github.com/benvon/chore-tracker/internal/database"
	logpkg "github.com/benvon/chore-tracker/internal/logger"
	"github.com/benvon/chore-tracker/internal/scheduler"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// maxErrorMessageLength caps error messages returned to clients
const maxErrorMessageLength = 200

// respondJSON sends a JSON response
func respondJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   true,
		"data":      data,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	_ = json.NewEncoder(w).Encode(response) // headers are already out; nothing to recover
}

// respondJSONError sends an error JSON response with a truncated message
func respondJSONError(w http.ResponseWriter, status int, errorType, message string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	response := map[string]any{
		"success":   false,
		"error":     errorType,
		"message":   logpkg.SanitizeString(message, maxErrorMessageLength),
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	}

	_ = json.NewEncoder(w).Encode(response)
}

// respondEngineError maps scheduling and storage errors to HTTP statuses.
// Anything unrecognised is logged and reported as a 500 with the fallback message.
func respondEngineError(w http.ResponseWriter, logger *zap.Logger, err error, fallback string) {
	var (
		validationErr *scheduler.ValidationError
		invalidOpErr  *scheduler.InvalidOperationError
	)
	switch {
	case errors.As(err, &validationErr):
		respondJSONError(w, http.StatusBadRequest, "Bad Request", validationErr.Error())
	case errors.As(err, &invalidOpErr):
		respondJSONError(w, http.StatusConflict, "Conflict", invalidOpErr.Error())
	case errors.Is(err, database.ErrNotFound):
		respondJSONError(w, http.StatusNotFound, "Not Found", "Resource not found")
	case errors.Is(err, database.ErrConflict):
		respondJSONError(w, http.StatusConflict, "Conflict", err.Error())
	default:
		logger.Error("request_failed", zap.String("reason", fallback), zap.Error(err))
		respondJSONError(w, http.StatusInternalServerError, "Internal Server Error", fallback)
	}
}

// decodeJSON reads the request body into dst. An empty body leaves dst untouched
// when allowEmpty is set. It writes the error response itself and reports whether
// the caller may continue.
func decodeJSON(w http.ResponseWriter, r *http.Request, dst any, allowEmpty bool) bool {
	dec := json.NewDecoder(r.Body)
	dec.DisallowUnknownFields()
	err := dec.Decode(dst)
	if err == nil {
		return true
	}
	if allowEmpty && errors.Is(err, io.EOF) {
		return true
	}
	var maxBytesErr *http.MaxBytesError
	if errors.As(err, &maxBytesErr) {
		respondJSONError(w, http.StatusRequestEntityTooLarge, "Request Entity Too Large",
			fmt.Sprintf("Request body exceeds maximum size of %d bytes", maxBytesErr.Limit))
		return false
	}
	respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid request body: "+err.Error())
	return false
}

// pathID parses a UUID route variable
func pathID(w http.ResponseWriter, r *http.Request, name, label string) (uuid.UUID, bool) {
	id, err := uuid.Parse(mux.Vars(r)[name])
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Invalid "+label+" ID")
		return uuid.Nil, false
	}
	return id, true
}

// queryInt reads a non-negative integer query parameter, falling back to def when absent
func queryInt(r *http.Request, key string, def int) (int, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("%s must be a non-negative integer", key)
	}
	return n, nil
}

// queryBool reads a boolean query parameter, falling back to def when absent
func queryBool(r *http.Request, key string, def bool) (bool, error) {
	raw := r.URL.Query().Get(key)
	if raw == "" {
		return def, nil
	}
	b, err := strconv.ParseBool(raw)
	if err != nil {
		return false, fmt.Errorf("%s must be true or false", key)
	}
	return b, nil
}

// parseDate parses a calendar date (YYYY-MM-DD) as midnight UTC
func parseDate(value string) (time.Time, error) {
	d, err := time.Parse(time.DateOnly, value)
	if err != nil {
		return time.Time{}, fmt.Errorf("invalid date %q: expected YYYY-MM-DD", value)
	}
	return d, nil
}
