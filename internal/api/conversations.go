package api

import (
	"errors"
	"net/http"
	"strconv"

	"omnichan/backend/internal/ai"
	"omnichan/backend/internal/models"
	"omnichan/backend/internal/repository"
	"omnichan/backend/internal/service"
	"omnichan/backend/internal/sync"
	"omnichan/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// ConversationHandler handles inbox requests
type ConversationHandler struct {
	service *service.ConversationService
	ai      *ai.Service
	logger  *logger.Logger
}

func NewConversationHandler(service *service.ConversationService, aiService *ai.Service, logger *logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		service: service,
		ai:      aiService,
		logger:  logger,
	}
}

// List returns the account's conversations, newest activity first
func (h *ConversationHandler) List(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	filter := repository.ConversationFilter{
		Status:   c.Query("status"),
		Platform: c.Query("platform"),
	}
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	conversations, err := h.service.List(c.Request.Context(), userID, filter, limit, offset)
	if err != nil {
		h.logger.Error("Error listing conversations", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list conversations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

// Get returns one conversation with its customer
func (h *ConversationHandler) Get(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation ID must be a number"})
		return
	}

	conversation, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		h.respondServiceError(c, err, "Error getting conversation")
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// Messages returns the conversation history, oldest first
func (h *ConversationHandler) Messages(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation ID must be a number"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "100"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.service.Messages(c.Request.Context(), userID, id, limit, offset)
	if err != nil {
		h.respondServiceError(c, err, "Error listing messages")
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

// UpdateStatus changes the conversation's workflow status
func (h *ConversationHandler) UpdateStatus(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation ID must be a number"})
		return
	}

	var req models.UpdateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	conversation, err := h.service.UpdateStatus(c.Request.Context(), userID, id, req.Status)
	if err != nil {
		h.respondServiceError(c, err, "Error updating conversation status")
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// Reply sends an agent message to the customer through the platform
func (h *ConversationHandler) Reply(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation ID must be a number"})
		return
	}

	var req struct {
		Text string `json:"text" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Reply text is required"})
		return
	}

	message, err := h.service.Reply(c.Request.Context(), userID, id, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, service.ErrConversationNotFound), errors.Is(err, sync.ErrNotFound):
			c.JSON(http.StatusNotFound, gin.H{"error": "Conversation or integration not found"})
		case errors.Is(err, sync.ErrDeliveryFailed):
			h.logger.Error("Reply delivery failed", "conversation_id", id, "error", err.Error())
			c.JSON(http.StatusBadGateway, gin.H{"error": "The platform rejected the message"})
		default:
			h.logger.Error("Error sending reply", "conversation_id", id, "error", err.Error())
			c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to send reply"})
		}
		return
	}

	c.JSON(http.StatusCreated, message)
}

// SuggestReply drafts an AI reply without sending it
func (h *ConversationHandler) SuggestReply(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Conversation ID must be a number"})
		return
	}

	if _, err := h.service.Get(c.Request.Context(), userID, id); err != nil {
		h.respondServiceError(c, err, "Error getting conversation")
		return
	}

	// show the customer a typing bubble while the draft is composed
	_ = h.service.Typing(c.Request.Context(), userID, id, true)
	defer func() { _ = h.service.Typing(c.Request.Context(), userID, id, false) }()

	suggestion, err := h.ai.SuggestReply(c.Request.Context(), id)
	if err != nil {
		h.logger.Error("Error suggesting reply", "conversation_id", id, "error", err.Error())
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Reply suggestion is unavailable right now"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"suggestion": suggestion})
}

func (h *ConversationHandler) respondServiceError(c *gin.Context, err error, logMsg string) {
	switch {
	case errors.Is(err, service.ErrConversationNotFound):
		c.JSON(http.StatusNotFound, gin.H{"error": "Conversation not found"})
	case errors.Is(err, service.ErrInvalidStatus):
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid conversation status"})
	default:
		h.logger.Error(logMsg, "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
	}
}

func parseID(c *gin.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 32)
	return uint(id), err
}
