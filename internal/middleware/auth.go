package middleware

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/benvon/chore-tracker/internal/database"
	"github.com/benvon/chore-tracker/internal/models"
	"github.com/benvon/chore-tracker/internal/request"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionVerifier validates session tokens
type SessionVerifier interface {
	Verify(token string) (*models.SessionClaims, error)
}

// MemberGetter looks up the member behind a session
type MemberGetter interface {
	GetByID(ctx context.Context, id uuid.UUID) (*models.Member, error)
}

// Auth creates authentication middleware that validates session tokens.
// Tokens of members that have since been removed from the household are rejected.
func Auth(verifier SessionVerifier, members MemberGetter, logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authHeader := r.Header.Get("Authorization")
			if authHeader == "" {
				respondError(w, http.StatusUnauthorized, "Missing Authorization header")
				return
			}

			scheme, token, ok := strings.Cut(authHeader, " ")
			if !ok || !strings.EqualFold(scheme, "Bearer") || token == "" {
				respondError(w, http.StatusUnauthorized, "Invalid Authorization header format")
				return
			}

			claims, err := verifier.Verify(token)
			if err != nil {
				logger.Debug("session_verification_failed", zap.Error(err))
				respondError(w, http.StatusUnauthorized, "Invalid or expired session")
				return
			}

			ctx := r.Context()
			if members != nil {
				member, err := members.GetByID(ctx, claims.MemberID)
				switch {
				case errors.Is(err, database.ErrNotFound):
					respondError(w, http.StatusUnauthorized, "Member no longer exists")
					return
				case err != nil:
					logger.Error("failed_to_load_session_member",
						zap.String("member_id", claims.MemberID.String()),
						zap.Error(err),
					)
					respondError(w, http.StatusInternalServerError, "Database error")
					return
				}
				claims.Name = member.Name
			}

			next.ServeHTTP(w, r.WithContext(request.WithMember(ctx, claims)))
		})
	}
}

// errorBody mirrors the API error envelope
type errorBody struct {
	Success   bool   `json:"success"`
	Error     string `json:"error"`
	Message   string `json:"message,omitempty"`
	Timestamp string `json:"timestamp"`
	Path      string `json:"path,omitempty"`
}

func respondError(w http.ResponseWriter, status int, message string) {
	writeErrorBody(w, status, errorBody{
		Success:   false,
		Error:     http.StatusText(status),
		Message:   message,
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	})
}

func writeErrorBody(w http.ResponseWriter, status int, body errorBody) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(body) // client went away; nothing left to report
}
