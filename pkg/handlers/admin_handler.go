package handlers

import (
	"net/http"

	"metrics-chat-api/pkg/services"

	"github.com/gin-gonic/gin"
)

// AdminHandler serves operator endpoints: dataset reload and KPI inspection.
type AdminHandler struct {
	chatService *services.ChatService
	store       *services.MetricsStore
}

// NewAdminHandler creates a new AdminHandler.
func NewAdminHandler(chatService *services.ChatService, store *services.MetricsStore) *AdminHandler {
	return &AdminHandler{chatService: chatService, store: store}
}

// ReloadDataset re-reads the source file and rebuilds all derived caches.
func (h *AdminHandler) ReloadDataset(c *gin.Context) {
	if err := h.chatService.Reload(); err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "reload failed: " + err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":     "dataset reloaded",
		"latest_date": h.store.LatestDate().Format("2006-01-02"),
	})
}

// ListMetrics returns the dataset schema and the latest anchor date.
func (h *AdminHandler) ListMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"metrics":     h.store.Metrics(),
		"latest_date": h.store.LatestDate().Format("2006-01-02"),
	})
}

// HealthCheck reports service liveness.
func HealthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
