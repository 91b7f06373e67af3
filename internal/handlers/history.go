package handlers

import (
	"net/http"

	"github.com/benvon/chore-tracker/internal/database"
	"go.uber.org/zap"
)

// MaxHistoryLimit bounds the history page size
const MaxHistoryLimit = 1000

// HistoryHandler serves the household completion history
type HistoryHandler struct {
	completions database.CompletionStore
	logger      *zap.Logger
}

// NewHistoryHandler creates a new history handler
func NewHistoryHandler(completions database.CompletionStore, logger *zap.Logger) *HistoryHandler {
	return &HistoryHandler{completions: completions, logger: logger}
}

// ListHistory lists recent completions, newest first, with task and member names
func (h *HistoryHandler) ListHistory(w http.ResponseWriter, r *http.Request) {
	limit, err := queryInt(r, "limit", database.DefaultHistoryLimit)
	if err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", err.Error())
		return
	}
	if limit == 0 {
		limit = database.DefaultHistoryLimit
	}
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	entries, err := h.completions.List(r.Context(), limit)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve history")
		return
	}
	respondJSON(w, http.StatusOK, nonNil(entries))
}
