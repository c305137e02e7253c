package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// SettingHandler reads and updates the system settings.
type SettingHandler struct {
	svc *panel.Service
}

// NewSettingHandler constructs a settings handler.
func NewSettingHandler(svc *panel.Service) *SettingHandler {
	return &SettingHandler{svc: svc}
}

// updateSettingsRequest captures a partial settings change; omitted fields keep their value.
type updateSettingsRequest struct {
	AllowRegister         *bool   `json:"allow_register"`
	RequireEmailVerify    *bool   `json:"require_email_verify"`
	ServerAddr            *string `json:"server_ip"`
	DefaultPortLimit      *int    `json:"default_port_limit"`
	DefaultBandwidthLimit *int64  `json:"default_bandwidth_limit"`
}

// Get returns the current settings.
func (h *SettingHandler) Get(c *gin.Context) {
	current, errGet := h.svc.Settings(c.Request.Context())
	if errGet != nil {
		respond.Error(c, errGet)
		return
	}
	c.JSON(http.StatusOK, current)
}

// Update applies a partial settings change and returns the result.
func (h *SettingHandler) Update(c *gin.Context) {
	var body updateSettingsRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	updated, errUpdate := h.svc.UpdateSettings(c.Request.Context(), models.SettingsPatch{
		AllowRegister:         body.AllowRegister,
		RequireEmailVerify:    body.RequireEmailVerify,
		ServerAddr:            body.ServerAddr,
		DefaultPortLimit:      body.DefaultPortLimit,
		DefaultBandwidthLimit: body.DefaultBandwidthLimit,
	})
	if errUpdate != nil {
		respond.Error(c, errUpdate)
		return
	}
	c.JSON(http.StatusOK, updated)
}
