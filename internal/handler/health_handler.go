package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"motscan/internal/port"
)

// Pinger reports whether the backing database is reachable. *sqlx.DB
// satisfies it.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// HealthHandler handles health check endpoints.
type HealthHandler struct {
	db          Pinger
	modelNames  []string
	minRequired int
}

// NewHealthHandler creates a new HealthHandler.
func NewHealthHandler(db Pinger, models []port.VisionModel, minRequired int) *HealthHandler {
	names := make([]string, 0, len(models))
	for _, m := range models {
		names = append(names, m.Name())
	}
	return &HealthHandler{db: db, modelNames: names, minRequired: minRequired}
}

// Liveness handles GET /healthz
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Readiness handles GET /readyz. Ready means the database answers and
// enough vision models are configured to clear the ensemble minimum.
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.db.PingContext(c.Request.Context()); err != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable", "error": "database not reachable"})
		return
	}
	if len(h.modelNames) < h.minRequired {
		c.JSON(http.StatusServiceUnavailable, gin.H{
			"status": "unavailable",
			"error":  "not enough vision models configured",
			"models": h.modelNames,
		})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok", "models": h.modelNames})
}
