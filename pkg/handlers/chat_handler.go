package handlers

import (
	"net/http"
	"time"

	"metrics-chat-api/pkg/models"
	"metrics-chat-api/pkg/services"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// ChatHandler serves the conversational API surface.
type ChatHandler struct {
	chatService *services.ChatService
}

// NewChatHandler creates a new ChatHandler.
func NewChatHandler(chatService *services.ChatService) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Chat answers one user message. The session_id keys an independent
// conversation memory; a missing one gets a fresh session.
func (h *ChatHandler) Chat(c *gin.Context) {
	var req models.ChatRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return
	}
	if req.Message == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "message is required"})
		return
	}

	if req.SessionID == "" {
		req.SessionID = uuid.New().String()
	}

	result := h.chatService.Handle(c.Request.Context(), req.SessionID, req.Message)

	c.JSON(http.StatusOK, models.ChatResponse{
		Reply:     result.Reply,
		Followups: result.Followups,
		SessionID: req.SessionID,
		Intent:    string(result.Intent),
		Timestamp: time.Now().Format(time.RFC3339),
	})
}
