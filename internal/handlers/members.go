package handlers

import (
	"net/http"
	"time"

	"github.com/benvon/chore-tracker/internal/database"
	logpkg "github.com/benvon/chore-tracker/internal/logger"
	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/request"
	"github.com/benvon/chore-tracker/internal/validation"
	"github.com/google/uuid"
	"github.com/gorilla/mux"
	"go.uber.org/zap"
)

// MemberHandler handles household member requests
type MemberHandler struct {
	members     database.MemberStore
	completions database.CompletionStore
	logger      *zap.Logger
}

// NewMemberHandler creates a new member handler
func NewMemberHandler(members database.MemberStore, completions database.CompletionStore, logger *zap.Logger) *MemberHandler {
	return &MemberHandler{members: members, completions: completions, logger: logger}
}

// RegisterRoutes registers member routes on a router that already has the /members prefix
func (h *MemberHandler) RegisterRoutes(r *mux.Router) {
	r.HandleFunc("", h.ListMembers).Methods(http.MethodGet)
	r.HandleFunc("", h.CreateMember).Methods(http.MethodPost)
	r.HandleFunc("/{id}", h.DeleteMember).Methods(http.MethodDelete)
	r.HandleFunc("/{id}/history", h.MemberHistory).Methods(http.MethodGet)
}

// CreateMemberRequest represents a create member request. Members without an
// email can be assigned tasks but cannot sign in.
type CreateMemberRequest struct {
	Name  string  `json:"name" validate:"required,max=200"`
	Email *string `json:"email,omitempty" validate:"omitempty,email,max=320"`
}

// ListMembers lists every household member
func (h *MemberHandler) ListMembers(w http.ResponseWriter, r *http.Request) {
	members, err := h.members.List(r.Context())
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve members")
		return
	}
	respondJSON(w, http.StatusOK, nonNil(members))
}

// CreateMember adds a household member
func (h *MemberHandler) CreateMember(w http.ResponseWriter, r *http.Request) {
	var req CreateMemberRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	req.Name = validation.SanitizeText(req.Name)
	if err := validation.Validate.Struct(req); err != nil {
		respondJSONError(w, http.StatusBadRequest, "Bad Request", "Validation failed: "+err.Error())
		return
	}

	member := &models.Member{
		ID:        uuid.New(),
		Name:      req.Name,
		Email:     req.Email,
		CreatedAt: time.Now().UTC(),
	}
	if err := h.members.Create(r.Context(), member); err != nil {
		respondEngineError(w, h.logger, err, "Failed to create member")
		return
	}

	h.logger.Info("member_created",
		zap.String("member_id", member.ID.String()),
		zap.String("member_name", logpkg.SanitizeName(member.Name)),
		zap.Bool("registered", member.IsRegistered()),
	)
	respondJSON(w, http.StatusCreated, member)
}

// DeleteMember removes a member. Their assignments are cleared and their
// completions stay in history without a name.
func (h *MemberHandler) DeleteMember(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "member")
	if !ok {
		return
	}

	if claims := request.MemberFromContext(r); claims != nil && claims.MemberID == id {
		respondJSONError(w, http.StatusConflict, "Conflict", "You cannot remove yourself")
		return
	}

	if err := h.members.Delete(r.Context(), id); err != nil {
		respondEngineError(w, h.logger, err, "Failed to delete member")
		return
	}

	h.logger.Info("member_deleted", zap.String("member_id", id.String()))
	w.WriteHeader(http.StatusNoContent)
}

// MemberHistory lists the completions recorded by one member
func (h *MemberHandler) MemberHistory(w http.ResponseWriter, r *http.Request) {
	id, ok := pathID(w, r, "id", "member")
	if !ok {
		return
	}

	ctx := r.Context()
	if _, err := h.members.GetByID(ctx, id); err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve member")
		return
	}
	entries, err := h.completions.ListByMember(ctx, id)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve history")
		return
	}
	respondJSON(w, http.StatusOK, nonNil(entries))
}

// GetMe returns the signed-in member
func (h *MemberHandler) GetMe(w http.ResponseWriter, r *http.Request) {
	claims := request.MemberFromContext(r)
	if claims == nil {
		respondJSONError(w, http.StatusUnauthorized, "Unauthorized", "Member not found in context")
		return
	}

	member, err := h.members.GetByID(r.Context(), claims.MemberID)
	if err != nil {
		respondEngineError(w, h.logger, err, "Failed to retrieve member")
		return
	}
	respondJSON(w, http.StatusOK, member)
}
