package handlers

import (
	"net/http"

	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/request"
	"go.uber.org/zap"
)

// MaxNoteLength is the maximum length of the household notepad
const MaxNoteLength = 50000

// NoteHandler serves the shared household notepad
type NoteHandler struct {
	notes  database.NoteStore
	logger *zap.Logger
}

// NewNoteHandler creates a new note handler
func NewNoteHandler(notes database.NoteStore, logger *zap.Logger) *NoteHandler {
	return &NoteHandler{notes: notes, logger: logger}
}

// UpdateNoteRequest replaces the notepad content
type UpdateNoteRequest struct {
	Content *string `json:"content"`
}

// GetNote returns the notepad. An untouched notepad is returned empty.
func (h *NoteHandler) GetNote(w http.ResponseWriter, r *http.Request) {
	note, err := h.notes.Get(r.Context())
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve note")
		return
	}
	respondJSON(w, http.StatusOK, note)
}

// UpdateNote replaces the notepad content
func (h *NoteHandler) UpdateNote(w http.ResponseWriter, r *http.Request) {
	var req UpdateNoteRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if req.Content == nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "content is required")
		return
	}
	if len(*req.Content) > MaxNoteLength {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "content is too long")
		return
	}

	note, err := h.notes.Save(r.Context(), *req.Content)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to save note")
		return
	}

	fields := []zap.Field{zap.Int("length", len(note.Content))}
	if claims := request.MemberFromContext(r); claims != nil {
		fields = append(fields, zap.String("member_id", claims.MemberID.String()))
	}
	h.logger.Info("note_updated", fields...)
	respondJSON(w, http.StatusOK, note)
}
