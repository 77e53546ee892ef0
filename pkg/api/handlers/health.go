package handlers

import (
	"context"
	"net/http"
	"sort"
	"time"
)

// CheckFunc reports whether a component is usable.
type CheckFunc func(ctx context.Context) error

// HealthHandler handles health check endpoints.
//
// Health endpoints provide:
//   - Liveness probe: Is the server process running?
//   - Readiness probe: Do all registered components pass their check?
type HealthHandler struct {
	checks  map[string]CheckFunc
	timeout time.Duration
}

// NewHealthHandler creates a health handler running checks on readiness
// probes. checks may be nil.
func NewHealthHandler(checks map[string]CheckFunc) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: 5 * time.Second}
}

// ComponentHealth is the outcome of one readiness check.
type ComponentHealth struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	Error   string `json:"error,omitempty"`
	Latency string `json:"latency,omitempty"`
}

// Liveness handles GET /health.
//
// Returns 200 OK as long as the HTTP server is responsive.
func (h *HealthHandler) Liveness(w http.ResponseWriter, r *http.Request) {
	WriteJSON(w, http.StatusOK, healthyResponse(map[string]string{
		"service": "dittoio",
	}))
}

// Readiness handles GET /health/ready.
//
// Every check runs under a shared timeout. Returns 503 Service Unavailable
// when any check fails.
func (h *HealthHandler) Readiness(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	components := make([]ComponentHealth, 0, len(names))
	allHealthy := true
	for _, name := range names {
		start := time.Now()
		err := h.checks[name](ctx)
		c := ComponentHealth{
			Name:    name,
			Status:  "healthy",
			Latency: time.Since(start).String(),
		}
		if err != nil {
			c.Status = "unhealthy"
			c.Error = err.Error()
			allHealthy = false
		}
		components = append(components, c)
	}

	if !allHealthy {
		WriteJSON(w, http.StatusServiceUnavailable, unhealthyResponse("one or more components are unhealthy", components))
		return
	}
	WriteJSON(w, http.StatusOK, healthyResponse(components))
}
