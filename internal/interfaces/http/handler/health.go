package handler

import (
	"net/http"
	"runtime"
	"time"

	"github.com/backoffice/backend/internal/infrastructure/persistence"
	"github.com/gin-gonic/gin"
)

// HealthHandler handles liveness and readiness endpoints
type HealthHandler struct {
	BaseHandler
	db        *persistence.Database
	startTime time.Time
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(db *persistence.Database) *HealthHandler {
	return &HealthHandler{
		db:        db,
		startTime: time.Now(),
	}
}

// RegisterRoutes registers health routes directly on the engine so they
// stay outside the versioned API group
func (h *HealthHandler) RegisterRoutes(engine *gin.Engine) {
	engine.GET("/healthz", h.Liveness)
	engine.GET("/readyz", h.Readiness)
}

// healthResponse is the liveness report
type healthResponse struct {
	Status    string `json:"status"`
	GoVersion string `json:"go_version"`
	Uptime    string `json:"uptime"`
}

// Liveness reports that the process is running
func (h *HealthHandler) Liveness(c *gin.Context) {
	c.JSON(http.StatusOK, healthResponse{
		Status:    "ok",
		GoVersion: runtime.Version(),
		Uptime:    time.Since(h.startTime).Round(time.Second).String(),
	})
}

// readinessResponse is the readiness report
type readinessResponse struct {
	Status   string `json:"status"`
	Database string `json:"database"`
}

// Readiness reports whether the service can reach its database
func (h *HealthHandler) Readiness(c *gin.Context) {
	if err := h.db.Ping(); err != nil {
		c.JSON(http.StatusServiceUnavailable, readinessResponse{
			Status:   "unavailable",
			Database: "unreachable",
		})
		return
	}
	c.JSON(http.StatusOK, readinessResponse{
		Status:   "ok",
		Database: "ok",
	})
}
