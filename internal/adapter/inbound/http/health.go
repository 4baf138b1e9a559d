package http

import (
	"encoding/json"
	"fmt"
	"net/http"
	"runtime"

	"github.com/signetgate/signetgate/internal/domain/secret"
)

// HealthResponse is the JSON response from the /health endpoint.
type HealthResponse struct {
	Status  string            `json:"status"`            // "healthy" or "unhealthy"
	Checks  map[string]string `json:"checks"`            // Component check results
	Version string            `json:"version,omitempty"` // Optional version info
}

// HealthChecker verifies component health.
type HealthChecker struct {
	secretCache *secret.Cache
	version     string
}

// NewHealthChecker creates a HealthChecker with optional components.
// Pass nil for components that aren't available.
func NewHealthChecker(secretCache *secret.Cache, version string) *HealthChecker {
	return &HealthChecker{
		secretCache: secretCache,
		version:     version,
	}
}

// Check performs health checks on all components.
func (h *HealthChecker) Check() HealthResponse {
	checks := make(map[string]string)

	// Check secret cache accessibility
	if h.secretCache != nil {
		// Len() acquires the cache lock - if this hangs, we have a problem
		stats := h.secretCache.Stats()
		checks["secret_cache"] = fmt.Sprintf("ok: %d entries, %d hits, %d misses",
			h.secretCache.Len(), stats.Hits, stats.Misses)
		if stats.FetchErrors > 0 {
			checks["secret_fetch_errors"] = fmt.Sprintf("%d", stats.FetchErrors)
		}
	} else {
		checks["secret_cache"] = "not configured"
	}

	// Add Go runtime info
	checks["goroutines"] = fmt.Sprintf("%d", runtime.NumGoroutine())

	return HealthResponse{
		Status:  "healthy",
		Checks:  checks,
		Version: h.version,
	}
}

// Handler returns an HTTP handler for the health endpoint.
func (h *HealthChecker) Handler() http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		health := h.Check()

		w.Header().Set("Content-Type", "application/json")
		if health.Status != "healthy" {
			w.WriteHeader(http.StatusServiceUnavailable)
		} else {
			w.WriteHeader(http.StatusOK)
		}

		_ = json.NewEncoder(w).Encode(health)
	})
}
