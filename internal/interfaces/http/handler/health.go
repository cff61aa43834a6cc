package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/erp/replicator/internal/infrastructure/logger"
	"github.com/erp/replicator/internal/interfaces/http/dto"
	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

// HealthSources are the components the health endpoint reports on. Nil fields are skipped.
type HealthSources struct {
	Ping      func(ctx context.Context) error
	Busy      func() bool
	Listeners func() int
}

// HealthHandler reports session state and whether a replication is in flight
type HealthHandler struct {
	src     HealthSources
	timeout time.Duration
}

// NewHealthHandler creates a new HealthHandler
func NewHealthHandler(src HealthSources) *HealthHandler {
	return &HealthHandler{src: src, timeout: 5 * time.Second}
}

// Health answers 200 when the host session responds and 503 otherwise
func (h *HealthHandler) Health(c *gin.Context) {
	resp := dto.HealthResponse{
		Status:  "healthy",
		Time:    time.Now().Format(time.RFC3339),
		Session: "ok",
	}
	if h.src.Busy != nil {
		resp.Replicating = h.src.Busy()
	}
	if h.src.Listeners != nil {
		resp.Listeners = h.src.Listeners()
	}

	if h.src.Ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), h.timeout)
		defer cancel()
		if err := h.src.Ping(ctx); err != nil {
			logger.GetGinLogger(c).Warn("Health check failed", zap.Error(err))
			resp.Status = "unhealthy"
			resp.Session = "error"
			c.JSON(http.StatusServiceUnavailable, resp)
			return
		}
	}
	c.JSON(http.StatusOK, resp)
}
