package handlers

import (
	"net/http"
	"strconv"

	"metrics-chat-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// MonitoringHandler exposes the in-process request log.
type MonitoringHandler struct {
	Service *services.MonitoringService
}

// NewMonitoringHandler creates a new MonitoringHandler.
func NewMonitoringHandler(service *services.MonitoringService) *MonitoringHandler {
	return &MonitoringHandler{Service: service}
}

// GetLogs returns the most recent request log entries.
func (h *MonitoringHandler) GetLogs(c *gin.Context) {
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "100"))
	if err != nil || limit <= 0 {
		limit = 100
	}
	c.JSON(http.StatusOK, gin.H{"logs": h.Service.RecentLogs(limit)})
}
