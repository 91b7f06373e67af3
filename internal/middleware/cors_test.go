package middleware

import (
	"net/http"
	"net/http/httptest"
	"reflect"
	"testing"
)

func TestAllowedOrigins(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name  string
		input string
		want  []string
	}{
		{name: "empty", input: "", want: []string{DefaultFrontendOrigin}},
		{name: "single", input: "https://chores.example", want: []string{"https://chores.example"}},
		{name: "trim and dedupe", input: " https://a.example, ,https://b.example,https://a.example ", want: []string{"https://a.example", "https://b.example"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			if got := AllowedOrigins(tt.input); !reflect.DeepEqual(got, tt.want) {
				t.Errorf("AllowedOrigins(%q) = %v, want %v", tt.input, got, tt.want)
			}
		})
	}
}

func TestCORS(t *testing.T) {
	t.Parallel()

	handler := CORS("https://chores.example")(okHandler())

	tests := []struct {
		name       string
		origin     string
		wantHeader string
	}{
		{name: "allowed origin", origin: "https://chores.example", wantHeader: "https://chores.example"},
		{name: "unknown origin", origin: "https://evil.example", wantHeader: ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			req := httptest.NewRequest(http.MethodGet, "/api/v1/tasks", nil)
			req.Header.Set("Origin", tt.origin)
			w := httptest.NewRecorder()
			handler.ServeHTTP(w, req)

			if got := w.Header().Get("Access-Control-Allow-Origin"); got != tt.wantHeader {
				t.Errorf("Expected Access-Control-Allow-Origin %q, got %q", tt.wantHeader, got)
			}
		})
	}
}
