package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// HealthHandler reports liveness.
type HealthHandler struct {
	svc *panel.Service
}

// NewHealthHandler constructs a HealthHandler.
func NewHealthHandler(svc *panel.Service) *HealthHandler {
	return &HealthHandler{svc: svc}
}

// Healthz answers 200 while the record store is reachable.
func (h *HealthHandler) Healthz(c *gin.Context) {
	if _, errSettings := h.svc.Settings(c.Request.Context()); errSettings != nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"status": "unavailable"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"status": "ok"})
}
