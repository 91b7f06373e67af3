package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"go.uber.org/zap"
)

func TestHealthChecker(t *testing.T) {
	t.Parallel()

	ok := func(context.Context) error { return nil }
	down := func(context.Context) error { return errors.New("dial tcp: connection refused") }

	tests := []struct {
		name       string
		query      string
		opts       []HealthOption
		wantStatus int
		wantBody   string
		wantChecks map[string]string
	}{
		{
			name:       "basic mode skips dependency checks",
			opts:       []HealthOption{WithCheck("database", down)},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
		},
		{
			name:       "extended mode all healthy",
			query:      "?mode=extended",
			opts:       []HealthOption{WithCheck("database", ok), WithCheck("redis", ok), WithCheck("rabbitmq", ok)},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
			wantChecks: map[string]string{"database": "healthy", "redis": "healthy", "rabbitmq": "healthy"},
		},
		{
			name:       "extended mode with a failing dependency",
			query:      "?mode=extended",
			opts:       []HealthOption{WithCheck("database", down), WithCheck("redis", ok)},
			wantStatus: http.StatusServiceUnavailable,
			wantBody:   "unhealthy",
			wantChecks: map[string]string{"database": "unhealthy", "redis": "healthy"},
		},
		{
			name:       "nil checks are ignored",
			query:      "?mode=extended",
			opts:       []HealthOption{WithCheck("rabbitmq", nil), WithCheck("database", ok)},
			wantStatus: http.StatusOK,
			wantBody:   "healthy",
			wantChecks: map[string]string{"database": "healthy"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()

			h := NewHealthChecker(zap.NewNop(), tt.opts...)
			w := httptest.NewRecorder()
			h.HealthCheck(w, httptest.NewRequest(http.MethodGet, "/healthz"+tt.query, nil))

			if w.Code != tt.wantStatus {
				t.Errorf("Expected status %d, got %d", tt.wantStatus, w.Code)
			}
			var body HealthResponse
			if err := json.NewDecoder(w.Body).Decode(&body); err != nil {
				t.Fatalf("Failed to decode response: %v", err)
			}
			if body.Status != tt.wantBody {
				t.Errorf("Expected status %q, got %q", tt.wantBody, body.Status)
			}
			if len(body.Checks) != len(tt.wantChecks) {
				t.Fatalf("Expected checks %v, got %v", tt.wantChecks, body.Checks)
			}
			for k, v := range tt.wantChecks {
				if body.Checks[k] != v {
					t.Errorf("Expected check %s=%s, got %s", k, v, body.Checks[k])
				}
			}
		})
	}
}
