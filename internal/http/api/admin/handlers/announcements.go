package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// AnnouncementHandler manages announcements.
type AnnouncementHandler struct {
	svc *panel.Service
}

// NewAnnouncementHandler constructs an AnnouncementHandler.
func NewAnnouncementHandler(svc *panel.Service) *AnnouncementHandler {
	return &AnnouncementHandler{svc: svc}
}

type updateAnnouncementRequest struct {
	Title    *string `json:"title"`
	Content  *string `json:"content"`
	IsActive *bool   `json:"is_active"`
}

// List returns every announcement, newest first.
func (h *AnnouncementHandler) List(c *gin.Context) {
	rows, errList := h.svc.ListAnnouncements(c.Request.Context(), false)
	if errList != nil {
		respond.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, gin.H{"announcements": rows})
}

// Create publishes an announcement.
func (h *AnnouncementHandler) Create(c *gin.Context) {
	var body panel.AnnouncementRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	created, errCreate := h.svc.CreateAnnouncement(c.Request.Context(), body)
	if errCreate != nil {
		respond.Error(c, errCreate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "announcement created", "announcement": created})
}

// Update edits an announcement.
func (h *AnnouncementHandler) Update(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	var body updateAnnouncementRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	patch := models.AnnouncementPatch{Title: body.Title, Content: body.Content, IsActive: body.IsActive}
	if errUpdate := h.svc.UpdateAnnouncement(c.Request.Context(), id, patch); errUpdate != nil {
		respond.Error(c, errUpdate)
		return
	}
	respond.Message(c, "announcement updated")
}

// Delete removes an announcement.
func (h *AnnouncementHandler) Delete(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.DeleteAnnouncement(c.Request.Context(), id); errDelete != nil {
		respond.Error(c, errDelete)
		return
	}
	respond.Message(c, "announcement deleted")
}
