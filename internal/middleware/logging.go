package middleware

import (
	"net/http"
	"time"

	logpkg "github.com/benvon/chore-tracker/internal/logger"
	"go.uber.org/zap"
)

// Logging writes one structured line per request
func Logging(logger *zap.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			wrapped := &statusRecorder{ResponseWriter: w, statusCode: http.StatusOK}

			next.ServeHTTP(wrapped, r)

			fields := []zap.Field{
				zap.String("method", r.Method),
				zap.String("path", logpkg.SanitizePath(r.URL.Path)),
				zap.Int("status_code", wrapped.statusCode),
				zap.Int64("duration_ms", time.Since(start).Milliseconds()),
				zap.Int("bytes", wrapped.bytes),
			}

			switch {
			case wrapped.statusCode >= http.StatusInternalServerError:
				logger.Error("http_request", fields...)
			case wrapped.statusCode >= http.StatusBadRequest:
				logger.Warn("http_request", fields...)
			default:
				logger.Info("http_request", fields...)
			}
		})
	}
}

// statusRecorder captures the status code and body size of a response
type statusRecorder struct {
	http.ResponseWriter
	statusCode  int
	bytes       int
	wroteHeader bool
}

func (rw *statusRecorder) WriteHeader(code int) {
	if !rw.wroteHeader {
		rw.statusCode = code
		rw.wroteHeader = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *statusRecorder) Write(b []byte) (int, error) {
	rw.wroteHeader = true
	n, err := rw.ResponseWriter.Write(b)
	rw.bytes += n
	return n, err
}

// Unwrap lets http.ResponseController reach the underlying writer
func (rw *statusRecorder) Unwrap() http.ResponseWriter {
	return rw.ResponseWriter
}
