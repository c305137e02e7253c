package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/http/middleware"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// PortHandler serves the signed-in user's port mappings.
type PortHandler struct {
	svc *panel.Service
}

// NewPortHandler constructs a PortHandler.
func NewPortHandler(svc *panel.Service) *PortHandler {
	return &PortHandler{svc: svc}
}

// UpdatePortRequest is the body accepted when changing a mapping.
type UpdatePortRequest struct {
	Port      *int    `json:"port"`
	Name      *string `json:"name"`
	Protocol  *string `json:"protocol"`
	LocalIP   *string `json:"local_ip"`
	LocalPort *int    `json:"local_port"`
	IsActive  *bool   `json:"is_active"`
}

// Patch converts the request into a port patch.
func (r UpdatePortRequest) Patch() models.PortPatch {
	return models.PortPatch{
		Port:      r.Port,
		Name:      r.Name,
		Protocol:  r.Protocol,
		LocalIP:   r.LocalIP,
		LocalPort: r.LocalPort,
		IsActive:  r.IsActive,
	}
}

// List returns the user's mappings and quota.
func (h *PortHandler) List(c *gin.Context) {
	list, errList := h.svc.ListPorts(c.Request.Context(), middleware.UserID(c))
	if errList != nil {
		respond.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, list)
}

// Create claims a new external port.
func (h *PortHandler) Create(c *gin.Context) {
	var body panel.PortRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	port, errCreate := h.svc.CreatePort(c.Request.Context(), middleware.UserID(c), body)
	if errCreate != nil {
		respond.Error(c, errCreate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "port created", "port": port})
}

// Update changes one of the user's mappings.
func (h *PortHandler) Update(c *gin.Context) {
	portID, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	var body UpdatePortRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	if errUpdate := h.svc.UpdatePort(c.Request.Context(), middleware.UserID(c), portID, body.Patch()); errUpdate != nil {
		respond.Error(c, errUpdate)
		return
	}
	respond.Message(c, "port updated")
}

// Delete removes one of the user's mappings.
func (h *PortHandler) Delete(c *gin.Context) {
	portID, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.DeletePort(c.Request.Context(), middleware.UserID(c), portID); errDelete != nil {
		respond.Error(c, errDelete)
		return
	}
	respond.Message(c, "port deleted")
}

// Random suggests a free external port.
func (h *PortHandler) Random(c *gin.Context) {
	port, errRandom := h.svc.RandomFreePort(c.Request.Context())
	if errRandom != nil {
		respond.Error(c, errRandom)
		return
	}
	c.JSON(http.StatusOK, gin.H{"port": port})
}
