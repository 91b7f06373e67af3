package request

import (
	"context"
	"net"
	"net/http"
	"strings"

	"github.com/benvon/chore-tracker/internal/models"
)

type contextKey string

const memberContextKey contextKey = "member"

// MemberContextKey returns the context key used for the signed-in member. Exposed for tests that inject other values.
func MemberContextKey() contextKey { return memberContextKey }

// ClientIP extracts the client IP from the request, respecting X-Forwarded-For and X-Real-IP.
// The port is stripped from RemoteAddr so that rate limit keys are per host.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		first, _, _ := strings.Cut(xff, ",")
		if ip := strings.TrimSpace(first); ip != "" {
			return ip
		}
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
		return host
	}
	return r.RemoteAddr
}

// WithMember returns a context with the signed-in member attached.
func WithMember(ctx context.Context, claims *models.SessionClaims) context.Context {
	return context.WithValue(ctx, memberContextKey, claims)
}

// MemberFromContext returns the signed-in member, or nil if missing or wrong type.
func MemberFromContext(r *http.Request) *models.SessionClaims {
	c, _ := r.Context().Value(memberContextKey).(*models.SessionClaims)
	return c
}
