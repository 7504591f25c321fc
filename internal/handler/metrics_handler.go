package handler

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/internal/service"
	"github.com/spoorthyconceptschool/spoorthy-school-system-sub002/pkg/response"
)

// MetricsHandler exposes observability endpoints.
type MetricsHandler struct {
	metrics *service.MetricsService
	pingDB  func(ctx context.Context) error
}

// NewMetricsHandler constructs a metrics handler. pingDB may be nil when
// readiness should not gate on the database.
func NewMetricsHandler(metrics *service.MetricsService, pingDB func(ctx context.Context) error) *MetricsHandler {
	return &MetricsHandler{metrics: metrics, pingDB: pingDB}
}

// Prometheus serves the Prometheus metrics endpoint.
func (h *MetricsHandler) Prometheus(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	h.metrics.Handler().ServeHTTP(c.Writer, c.Request)
}

// Health responds with a generic OK payload for liveness probes.
func (h *MetricsHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}

// Ready reports readiness, checking the database when a ping is wired.
func (h *MetricsHandler) Ready(c *gin.Context) {
	if h.pingDB != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := h.pingDB(ctx); err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"status": "degraded", "database": err.Error()})
			return
		}
	}
	c.JSON(http.StatusOK, gin.H{"status": "ready"})
}

// Status godoc
// @Summary System metrics snapshot
// @Tags System
// @Produce json
// @Success 200 {object} response.Envelope{data=models.SystemMetrics}
// @Router /system/metrics [get]
func (h *MetricsHandler) Status(c *gin.Context) {
	if h.metrics == nil {
		c.Status(http.StatusServiceUnavailable)
		return
	}
	response.JSON(c, http.StatusOK, h.metrics.Snapshot(), nil)
}
