package api

import (
	"errors"
	"net/http"
	"strconv"

	"omnichan/backend/internal/models"
	"omnichan/backend/internal/service"
	"omnichan/backend/pkg/logger"

	"github.com/gin-gonic/gin"
)

// CustomerHandler handles customer profile requests
type CustomerHandler struct {
	service *service.CustomerService
	logger  *logger.Logger
}

func NewCustomerHandler(service *service.CustomerService, logger *logger.Logger) *CustomerHandler {
	return &CustomerHandler{service: service, logger: logger}
}

func (h *CustomerHandler) List(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	customers, err := h.service.List(c.Request.Context(), userID, limit, offset)
	if err != nil {
		h.logger.Error("Error listing customers", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to list customers"})
		return
	}

	c.JSON(http.StatusOK, gin.H{"customers": customers})
}

func (h *CustomerHandler) Get(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer ID must be a number"})
		return
	}

	customer, err := h.service.Get(c.Request.Context(), userID, id)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		h.logger.Error("Error getting customer", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Internal server error"})
		return
	}

	c.JSON(http.StatusOK, customer)
}

// Update edits the profile fields an agent can set by hand
func (h *CustomerHandler) Update(c *gin.Context) {
	userID := c.MustGet("userId").(uint)
	id, err := parseID(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Customer ID must be a number"})
		return
	}

	var req models.UpdateCustomerRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Invalid request format"})
		return
	}

	customer, err := h.service.Update(c.Request.Context(), userID, id, &req)
	if err != nil {
		if errors.Is(err, service.ErrCustomerNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Customer not found"})
			return
		}
		h.logger.Error("Error updating customer", "error", err.Error())
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to update customer"})
		return
	}

	c.JSON(http.StatusOK, customer)
}
