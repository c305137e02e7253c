package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/http/middleware"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// UserHandler serves the signed-in user's own account endpoints.
type UserHandler struct {
	svc *panel.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *panel.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

type changePasswordRequest struct {
	CurrentPassword string `json:"currentPassword"`
	NewPassword     string `json:"newPassword"`
}

// Profile returns the account and its port mappings.
func (h *UserHandler) Profile(c *gin.Context) {
	profile, errProfile := h.svc.Profile(c.Request.Context(), middleware.UserID(c))
	if errProfile != nil {
		respond.Error(c, errProfile)
		return
	}
	c.JSON(http.StatusOK, profile)
}

// ChangePassword replaces the password after checking the current one.
func (h *UserHandler) ChangePassword(c *gin.Context) {
	var body changePasswordRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	if errChange := h.svc.ChangePassword(c.Request.Context(), middleware.UserID(c), body.CurrentPassword, body.NewPassword); errChange != nil {
		respond.Error(c, errChange)
		return
	}
	respond.Message(c, "password changed")
}

// Traffic returns hourly traffic for the last ?hours (default 24, at most 48).
func (h *UserHandler) Traffic(c *gin.Context) {
	report, errReport := h.svc.UserTraffic(c.Request.Context(), middleware.UserID(c), respond.QueryInt(c, "hours", 0))
	if errReport != nil {
		respond.Error(c, errReport)
		return
	}
	c.JSON(http.StatusOK, report)
}
