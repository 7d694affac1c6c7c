package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// HealthHandler handles health check endpoints
type HealthHandler struct {
	provider string
}

// NewHealthHandler creates a new health handler
func NewHealthHandler(provider string) *HealthHandler {
	return &HealthHandler{provider: provider}
}

// Health returns the health status of the service
func (h *HealthHandler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":   "ok",
		"provider": h.provider,
	})
}
