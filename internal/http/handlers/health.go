// Package handlers holds HTTP endpoints that sit outside the chat core.
package handlers

import (
	"context"
	"encoding/json"
	"net/http"
	"time"

	"github.com/oakhart/claude-agent/internal/sysmetrics"
	"github.com/oakhart/claude-agent/pkg/logging"
)

// Version is the reported service version.
const Version = "1.0.0"

type pinger interface {
	Ping(ctx context.Context) error
}

type hostSampler interface {
	Sample(ctx context.Context) (sysmetrics.HostSample, error)
	UptimeSeconds() int64
}

// HealthHandler reports process, database, and host status.
type HealthHandler struct {
	db            pinger
	sampler       hostSampler
	apiConfigured bool
	logger        *logging.Logger
}

// NewHealthHandler creates a health handler. db may be nil when the service
// runs without a database.
func NewHealthHandler(db pinger, sampler hostSampler, apiConfigured bool, logger *logging.Logger) *HealthHandler {
	if logger == nil {
		logger = logging.Default()
	}
	return &HealthHandler{
		db:            db,
		sampler:       sampler,
		apiConfigured: apiConfigured,
		logger:        logger,
	}
}

type healthResponse struct {
	Status         string                 `json:"status"`
	Timestamp      string                 `json:"timestamp"`
	Version        string                 `json:"version"`
	APIConfigured  bool                   `json:"api_configured"`
	DatabaseStatus string                 `json:"database_status"`
	UptimeSeconds  int64                  `json:"uptime_seconds"`
	SystemMetrics  *sysmetrics.HostSample `json:"system_metrics,omitempty"`
}

// Health returns liveness plus a live host sample.
// GET /health
func (h *HealthHandler) Health(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 5*time.Second)
	defer cancel()

	resp := healthResponse{
		Status:        "healthy",
		Timestamp:     time.Now().UTC().Format(time.RFC3339),
		Version:       Version,
		APIConfigured: h.apiConfigured,
	}

	resp.DatabaseStatus = "not_configured"
	if h.db != nil {
		if err := h.db.Ping(ctx); err != nil {
			h.logger.Warn("database ping failed", "error", err)
			resp.DatabaseStatus = "unhealthy"
			resp.Status = "degraded"
		} else {
			resp.DatabaseStatus = "healthy"
		}
	}

	if h.sampler != nil {
		resp.UptimeSeconds = h.sampler.UptimeSeconds()
		if sample, err := h.sampler.Sample(ctx); err != nil {
			h.logger.Warn("host sample failed", "error", err)
		} else {
			resp.SystemMetrics = &sample
			if sysmetrics.HealthStatus(sample) == sysmetrics.HealthCritical {
				resp.Status = "degraded"
			}
		}
	}

	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(resp); err != nil {
		h.logger.Error("failed to encode health response", "error", err)
	}
}
