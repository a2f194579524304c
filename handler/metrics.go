package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/n3utron0/telecom-call-data-analyzer/service"
)

// MetricsHandler exposes the runtime processing counters.
type MetricsHandler struct {
	metrics *service.Metrics
}

func NewMetricsHandler(metrics *service.Metrics) *MetricsHandler {
	return &MetricsHandler{metrics: metrics}
}

// Get returns the current counters.
func (h *MetricsHandler) Get(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"summary": h.metrics.Snapshot()})
}

// Reset zeroes all counters.
func (h *MetricsHandler) Reset(c *gin.Context) {
	h.metrics.Reset()
	c.JSON(http.StatusOK, gin.H{"status": "success", "message": "Metrics reset successfully."})
}
