package middleware

import (
	"net/http"

	logpkg "github.com/benvon/chore-tracker/internal/logger"
	"github.com/benvon/chore-tracker/internal/request"
	"go.uber.org/zap"
)

// Audit logs rejected sessions and rate limit violations
func Audit(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			var event string
			switch wrapped.statusCode {
			case http.StatusUnauthorized, http.StatusForbidden:
				event = "security_event"
			case http.StatusTooManyRequests:
				event = "rate_limit_violation"
			default:
				return
			}
			logger.Warn(event,
				zap.Int("status_code", wrapped.statusCode),
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.String("ip", logpkg.SanitizeString(request.ClientIP(r), logpkg.MaxGeneralStringLength)),
			)
		})
	}
}
