package api

import (
	"net/http"

	"github.com/vidasana/coach/internal/log"
)

// HealthHandler serves the liveness and readiness probes.
type HealthHandler struct {
	coach         Coach
	conversations Conversations
	logger        log.Logger
}

// liveness reports whether the process is alive.
func (h *HealthHandler) liveness(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// readinessResponse is the /ready body.
type readinessResponse struct {
	Status string `json:"status"`
	Index  string `json:"index"`
	Memory string `json:"memory"`
}

// readiness reports whether the service can answer questions. The index
// must be loaded; conversation memory is reported but never blocks
// readiness (degraded mode is stateless, not broken).
func (h *HealthHandler) readiness(w http.ResponseWriter, r *http.Request) {
	resp := readinessResponse{Status: "ready", Index: "ready", Memory: "available"}

	if !h.coach.Ready() {
		resp.Status = "not_ready"
		resp.Index = "not_loaded"
	}

	if h.conversations == nil || !h.conversations.Available() {
		resp.Memory = "degraded"
	} else if err := h.conversations.Ping(r.Context()); err != nil {
		h.logger.Warn("readiness: conversation store unreachable", "error", err)
		resp.Memory = "degraded"
	}

	status := http.StatusOK
	if resp.Status != "ready" {
		status = http.StatusServiceUnavailable
	}
	writeJSON(w, status, resp)
}
