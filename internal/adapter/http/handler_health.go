package http

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/fixora/analytics/internal/infra/logger"
)

const defaultCheckTimeout = 2 * time.Second

// Pinger reports whether a dependency is reachable
type Pinger interface {
	Ping(ctx context.Context) error
}

// HealthCheck is one named readiness dependency
type HealthCheck struct {
	Name   string
	Pinger Pinger
}

// HealthHandler answers /health, failing with 503 when a check is down
type HealthHandler struct {
	checks  []HealthCheck
	timeout time.Duration
	logger  logger.Logger
}

// NewHealthHandler creates a health handler. With no checks it always
// reports ok.
func NewHealthHandler(log logger.Logger, checks ...HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, timeout: defaultCheckTimeout, logger: log}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func (h *HealthHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	resp := healthResponse{Status: "ok"}
	status := http.StatusOK

	for _, check := range h.checks {
		if resp.Checks == nil {
			resp.Checks = make(map[string]string, len(h.checks))
		}
		ctx, cancel := context.WithTimeout(r.Context(), h.timeout)
		err := check.Pinger.Ping(ctx)
		cancel()
		if err != nil {
			h.logger.Warn(r.Context(), "Health check failed", map[string]interface{}{
				"check": check.Name,
				"error": err.Error(),
			})
			resp.Checks[check.Name] = "down"
			resp.Status = "unavailable"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[check.Name] = "ok"
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(resp)
}
