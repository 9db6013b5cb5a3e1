package api

import (
	"errors"
	"net/http"

	"omnichan/backend/internal/models"
	"omnichan/backend/internal/service"
	"omnichan/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// IntegrationHandler handles platform connection requests
type IntegrationHandler struct {
	service *service.IntegrationService
	logger  *logger.Logger
}

func NewIntegrationHandler(service *service.IntegrationService, logger *logger.Logger) *IntegrationHandler {
	return &IntegrationHandler{service: service, logger: logger}
}

// ConnectFacebook runs the OAuth connect flow for the user's pages
func (h *IntegrationHandler) ConnectFacebook(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	var req models.ConnectFacebookRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Code and redirect URI are required"})
		return
	}

	integrations, err := h.service.ConnectFacebook(c.Request.Context(), userID, &req)
	if err != nil {
		h.logger.Error("Error connecting Facebook pages", "user_id", userID, "error", err.Error())
		c.JSON(http.StatusBadGateway, gin.H{"error": "Failed to connect Facebook pages"})
		return
	}

	c.JSON(http.StatusCreated, gin.H{"integrations": integrations})
}

func (h *IntegrationHandler) List(c *gin.Context) {
	userID := c.MustGet("userId").(uint)

	integrations, err := h.service.List(c.Request.Context(), userID)
	if err != nil {
		h.logger.Error("Error listing integrations", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list integrations"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"integrations": integrations})
}

// SetActive enables or disables webhook processing for one integration
func (h *IntegrationHandler) SetActive(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Integration ID must be a number"})
		return
	}

	var req struct {
		Active *bool `json:"active" binding:"required"`
	}
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Active flag is required"})
		return
	}

	if err := h.service.SetActive(c.Request.Context(), userID, id, *req.Active); err != nil {
		if errors.Is(err, service.ErrIntegrationNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Integration not found"})
			return
		}
		h.logger.Error("Error toggling integration", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update integration"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"success": true})
}
