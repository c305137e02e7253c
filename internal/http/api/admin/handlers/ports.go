package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	fronthandlers "github.com/router-for-me/FRPPanel/internal/http/api/front/handlers"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// PortHandler manages any user's port mappings on behalf of administrators.
type PortHandler struct {
	svc *panel.Service
}

// NewPortHandler constructs a PortHandler.
func NewPortHandler(svc *panel.Service) *PortHandler {
	return &PortHandler{svc: svc}
}

// Create adds a mapping for user :id, subject to that user's quota.
func (h *PortHandler) Create(c *gin.Context) {
	userID, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	var body panel.PortRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	port, errCreate := h.svc.CreatePort(c.Request.Context(), userID, body)
	if errCreate != nil {
		respond.Error(c, errCreate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "port created", "port": port})
}

// Update changes mapping :portId owned by user :id.
func (h *PortHandler) Update(c *gin.Context) {
	userID, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	portID, ok := respond.ParamID(c, "portId")
	if !ok {
		return
	}
	var body fronthandlers.UpdatePortRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	if errUpdate := h.svc.UpdatePort(c.Request.Context(), userID, portID, body.Patch()); errUpdate != nil {
		respond.Error(c, errUpdate)
		return
	}
	respond.Message(c, "port updated")
}

// Delete removes mapping :portId owned by user :id.
func (h *PortHandler) Delete(c *gin.Context) {
	userID, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	portID, ok := respond.ParamID(c, "portId")
	if !ok {
		return
	}
	if errDelete := h.svc.DeletePort(c.Request.Context(), userID, portID); errDelete != nil {
		respond.Error(c, errDelete)
		return
	}
	respond.Message(c, "port deleted")
}
