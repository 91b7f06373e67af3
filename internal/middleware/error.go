package middleware

import (
	"net/http"
	"runtime/debug"
	"time"

	logpkg "github.com/benvon/chore-tracker/internal/logger"
	"go.uber.org/zap"
)

// ErrorResponse represents an error response
type ErrorResponse = errorBody

// ErrorHandler recovers from handler panics and answers with a JSON 500
func ErrorHandler(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				// Panic details stay server-side
				logger.Error("panic_recovered",
					zap.Any("error", rec),
					zap.String("path", logpkg.SanitizePath(r.URL.Path)),
					zap.String("method", r.Method),
					zap.ByteString("stack", debug.Stack()),
				)
				writeErrorBody(w, http.StatusInternalServerError, ErrorResponse{
					Success:   false,
					Error:     "Internal Server Error",
					Message:   "An unexpected error occurred",
					Timestamp: time.Now().UTC().Format(time.RFC3339),
					Path:      r.URL.Path,
				})
			}()

			next.ServeHTTP(w, r)
		})
	}
}
