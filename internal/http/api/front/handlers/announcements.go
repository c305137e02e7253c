package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// AnnouncementFrontHandler serves active announcements to users.
type AnnouncementFrontHandler struct {
	svc *panel.Service
}

// NewAnnouncementFrontHandler constructs an AnnouncementFrontHandler.
func NewAnnouncementFrontHandler(svc *panel.Service) *AnnouncementFrontHandler {
	return &AnnouncementFrontHandler{svc: svc}
}

// List returns active announcements, newest first. It is also mounted publicly under /api/auth.
func (h *AnnouncementFrontHandler) List(c *gin.Context) {
	rows, errList := h.svc.ListAnnouncements(c.Request.Context(), true)
	if errList != nil {
		respond.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": rows})
}
