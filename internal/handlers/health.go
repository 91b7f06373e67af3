package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"sort"
	"time"

	"go.uber.org/zap"
)

// healthCheckTimeout bounds each dependency check
const healthCheckTimeout = 5 * time.Second

// CheckFunc reports whether one dependency is reachable
type CheckFunc func(ctx context.Context) error

type namedCheck struct {
	name  string
	check CheckFunc
}

// HealthChecker handles health check requests
type HealthChecker struct {
	checks []namedCheck
	logger *zap.Logger
}

// HealthOption configures a HealthChecker
type HealthOption func(*HealthChecker)

// WithCheck adds a dependency check reported in extended mode. A nil check is ignored.
func WithCheck(name string, check CheckFunc) HealthOption {
	return func(h *HealthChecker) {
		if check != nil {
			h.checks = append(h.checks, namedCheck{name: name, check: check})
		}
	}
}

// NewHealthChecker creates a new health checker
func NewHealthChecker(logger *zap.Logger, opts ...HealthOption) *HealthChecker {
	h := &HealthChecker{logger: logger}
	for _, opt := range opts {
		opt(h)
	}
	sort.SliceStable(h.checks, func(i, j int) bool { return h.checks[i].name < h.checks[j].name })
	return h
}

// HealthResponse represents the health check response
type HealthResponse struct {
	Status    string            `json:"status"`
	Timestamp string            `json:"timestamp"`
	Checks    map[string]string `json:"checks,omitempty"`
}

// HealthCheck handles the /healthz endpoint. Basic mode only reports that the
// process is serving; ?mode=extended also checks every dependency.
func (h *HealthChecker) HealthCheck(w http.ResponseWriter, r *http.Request) {
	response := HealthResponse{
		Status:    "healthy",
		Timestamp: time.Now().UTC().Format(time.RFC3339),
	}
	statusCode := http.StatusOK

	if r.URL.Query().Get("mode") == "extended" {
		response.Checks = make(map[string]string, len(h.checks))
		for _, c := range h.checks {
			if err := h.run(r.Context(), c); err != nil {
				response.Status = "unhealthy"
				response.Checks[c.name] = "unhealthy"
				h.logger.Warn("health_check_failed", zap.String("check", c.name), zap.Error(err))
				continue
			}
			response.Checks[c.name] = "healthy"
		}
		if response.Status != "healthy" {
			statusCode = http.StatusServiceUnavailable
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(statusCode)
	_ = json.NewEncoder(w).Encode(response)
}

func (h *HealthChecker) run(ctx context.Context, c namedCheck) error {
	ctx, cancel := context.WithTimeout(ctx, healthCheckTimeout)
	defer cancel()
	return c.check(ctx)
}
