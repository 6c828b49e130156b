package handler

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/klya-ai/klya-api/internal/circuitbreaker"
	"github.com/klya-ai/klya-api/internal/healthcheck"
)

// DependencyStatus is the cached view of the background health checker.
type DependencyStatus interface {
	Healthy() bool
	Statuses() []healthcheck.Status
}

// HealthHandler reports dependency health and the upstream breaker state.
type HealthHandler struct {
	deps     DependencyStatus
	upstream func() circuitbreaker.Snapshot
	started  time.Time
	log      *slog.Logger
}

func NewHealthHandler(deps DependencyStatus, upstream func() circuitbreaker.Snapshot, log *slog.Logger) *HealthHandler {
	return &HealthHandler{
		deps:     deps,
		upstream: upstream,
		started:  time.Now(),
		log:      log,
	}
}

// Handles GET /health
func (h *HealthHandler) Health(c *gin.Context) {
	statuses := h.deps.Statuses()

	checks := make(gin.H, len(statuses))
	for _, s := range statuses {
		checks[s.Name] = s.Healthy
	}

	body := gin.H{
		"status":         "healthy",
		"service":        "klya-api",
		"timestamp":      time.Now().Unix(),
		"uptime_seconds": int64(time.Since(h.started).Seconds()),
		"checks":         checks,
		"dependencies":   statuses,
	}
	if h.upstream != nil {
		body["upstream"] = h.upstream()
	}

	status := http.StatusOK
	if !h.deps.Healthy() {
		body["status"] = "degraded"
		status = http.StatusServiceUnavailable
	}

	c.JSON(status, body)
}
