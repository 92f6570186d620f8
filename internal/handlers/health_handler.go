package handlers

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// HealthChecker reports whether a dependency is usable
type HealthChecker interface {
	HealthCheck() error
}

// HealthHandler serves the liveness endpoint
type HealthHandler struct {
	journal   HealthChecker
	service   string
	startedAt time.Time
}

// NewHealthHandler creates a new health handler. journal may be nil when
// the journal is disabled.
func NewHealthHandler(service string, journal HealthChecker) *HealthHandler {
	return &HealthHandler{
		journal:   journal,
		service:   service,
		startedAt: time.Now(),
	}
}

// Health reports gateway and journal status
func (h *HealthHandler) Health(c *gin.Context) {
	body := gin.H{
		"status":    "healthy",
		"service":   h.service,
		"timestamp": time.Now().UTC(),
		"uptime":    time.Since(h.startedAt).Round(time.Second).String(),
		"journal":   "disabled",
	}

	if h.journal != nil {
		if err := h.journal.HealthCheck(); err != nil {
			body["status"] = "degraded"
			body["journal"] = err.Error()
			c.JSON(http.StatusServiceUnavailable, body)
			return
		}
		body["journal"] = "ok"
	}

	c.JSON(http.StatusOK, body)
}
