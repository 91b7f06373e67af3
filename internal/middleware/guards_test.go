package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"
)

func okHandler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})
}

func TestSecurityHeaders(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name     string
		hsts     bool
		tls      bool
		wantHSTS bool
	}{
		{name: "hsts disabled", hsts: false, tls: true},
		{name: "hsts enabled over plain http", hsts: true, tls: false},
		{name: "hsts enabled over tls", hsts: true, tls: true, wantHSTS: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			if !tt.tls {
				req.TLS = nil
			} else if req.TLS == nil {
				req = httptest.NewRequest(http.MethodGet, "https://chores.example/api/v1/tasks", nil)
			}
			w := httptest.NewRecorder()
			SecurityHeaders(tt.hsts)(okHandler()).ServeHTTP(w, req)

			if got := w.Header().Get("X-Content-Type-Options"); got != "nosniff" {
				t.Errorf("Expected nosniff, got %q", got)
			}
			if got := w.Header().Get("X-Frame-Options"); got != "DENY" {
				t.Errorf("Expected DENY, got %q", got)
			}
			hasHSTS := w.Header().Get("Strict-Transport-Security") != ""
			if hasHSTS != tt.wantHSTS {
				t.Errorf("Expected HSTS=%v, got %v", tt.wantHSTS, hasHSTS)
			}
		})
	}
}

func TestContentType(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name        string
		method      string
		body        string
		contentType string
		wantStatus  int
	}{
		{name: "GET without content type", method: http.MethodGet, wantStatus: http.StatusOK},
		{name: "bodyless POST", method: http.MethodPost, wantStatus: http.StatusOK},
		{name: "JSON POST", method: http.MethodPost, body: `{"name":"Stofzuigen"}`, contentType: "application/json", wantStatus: http.StatusOK},
		{name: "JSON with charset", method: http.MethodPatch, body: `{}`, contentType: "application/json; charset=utf-8", wantStatus: http.StatusOK},
		{name: "missing content type", method: http.MethodPost, body: `{}`, wantStatus: http.StatusBadRequest},
		{name: "form body", method: http.MethodPut, body: "content=x", contentType: "application/x-www-form-urlencoded", wantStatus: http.StatusUnsupportedMediaType},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			var body io.Reader
			if tt.body != "" {
				body = strings.NewReader(tt.body)
			}
			req := httptest.NewRequest(tt.method, "/api/v1/tasks", body)
			if tt.contentType != "" {
				req.Header.Set("Content-Type", tt.contentType)
			}
			w := httptest.NewRecorder()
			ContentType(okHandler()).ServeHTTP(w, req)

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
		})
	}
}

func TestMaxRequestSize(t *testing.T) {
	t.Parallel()

	readAll := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if _, err := io.ReadAll(r.Body); err != nil {
			w.WriteHeader(http.StatusRequestEntityTooLarge)
			return
		}
		w.WriteHeader(http.StatusOK)
	})
	handler := MaxRequestSize(16)(readAll)

	small := httptest.NewRequest(http.MethodPost, "/api/v1/notes", strings.NewReader(`{"content":"a"}`))
	w := httptest.NewRecorder()
	handler.ServeHTTP(w, small)
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200 for small body, got %d", w.Code)
	}

	large := httptest.NewRequest(http.MethodPost, "/api/v1/notes", strings.NewReader(strings.Repeat("x", 64)))
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, large)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for declared large body, got %d", w.Code)
	}

	// Without Content-Length the limit is enforced while reading
	chunked := httptest.NewRequest(http.MethodPost, "/api/v1/notes", strings.NewReader(strings.Repeat("x", 64)))
	chunked.ContentLength = -1
	w = httptest.NewRecorder()
	handler.ServeHTTP(w, chunked)
	if w.Code != http.StatusRequestEntityTooLarge {
		t.Errorf("Expected 413 for streamed large body, got %d", w.Code)
	}
}

func TestTimeout(t *testing.T) {
	t.Parallel()

	slow := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		<-r.Context().Done()
	})
	w := httptest.NewRecorder()
	Timeout(20*time.Millisecond)(slow).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))

	if w.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", w.Code)
	}

	w = httptest.NewRecorder()
	Timeout(time.Second)(okHandler()).ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil))
	if w.Code != http.StatusOK {
		t.Errorf("Expected 200, got %d", w.Code)
	}
}
