package middleware

import (
	"context"
	"mime"
	"net/http"
	"time"
)

const (
	// DefaultMaxRequestSize caps request bodies (64KB; task payloads are small)
	DefaultMaxRequestSize int64 = 64 << 10
	// DefaultRequestTimeout bounds handler execution
	DefaultRequestTimeout = 15 * time.Second
)

// SecurityHeaders sets security headers on all responses.
// HSTS is only sent over TLS and when enabled, so local development keeps working.
func SecurityHeaders(enableHSTS bool) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "strict-origin-when-cross-origin")
			h.Set("Permissions-Policy", "camera=(), microphone=(), geolocation=()")
			h.Set("Content-Security-Policy", "default-src 'none'")
			h.Set("Cache-Control", "no-store")
			if enableHSTS && r.TLS != nil {
				h.Set("Strict-Transport-Security", "max-age=31536000; includeSubDomains")
			}
			next.ServeHTTP(w, r)
		})
	}
}

// MaxRequestSize rejects bodies larger than maxBytes
func MaxRequestSize(maxBytes int64) func(http.Handler) http.Handler {
	if maxBytes <= 0 {
		maxBytes = DefaultMaxRequestSize
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if r.ContentLength > maxBytes {
				respondError(w, http.StatusRequestEntityTooLarge, "Request body too large")
				return
			}
			r.Body = http.MaxBytesReader(w, r.Body, maxBytes)
			next.ServeHTTP(w, r)
		})
	}
}

// ContentType requires JSON on requests that carry a body.
// Bodyless POSTs (complete, postpone) are allowed through.
func ContentType(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if hasBody(r) {
			ct := r.Header.Get("Content-Type")
			if ct == "" {
				respondError(w, http.StatusBadRequest, "Content-Type header is required")
				return
			}
			mediaType, _, err := mime.ParseMediaType(ct)
			if err != nil || mediaType != "application/json" {
				respondError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
				return
			}
		}
		next.ServeHTTP(w, r)
	})
}

func hasBody(r *http.Request) bool {
	switch r.Method {
	case http.MethodPost, http.MethodPatch, http.MethodPut:
		return r.ContentLength != 0
	default:
		return false
	}
}

// Timeout cancels the request context after timeout and answers 503 if the handler has not written yet
func Timeout(timeout time.Duration) func(http.Handler) http.Handler {
	if timeout <= 0 {
		timeout = DefaultRequestTimeout
	}

	return func(next http.Handler) http.Handler {
		th := http.TimeoutHandler(next, timeout, `{"success":false,"error":"Service Unavailable","message":"Request timed out"}`)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx, cancel := context.WithTimeout(r.Context(), timeout)
			defer cancel()
			th.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
