package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// StatsHandler serves dashboard counters and traffic reports.
type StatsHandler struct {
	svc *panel.Service
}

// NewStatsHandler constructs a StatsHandler.
func NewStatsHandler(svc *panel.Service) *StatsHandler {
	return &StatsHandler{svc: svc}
}

// System returns user, port and traffic totals.
func (h *StatsHandler) System(c *gin.Context) {
	stats, errStats := h.svc.SystemStats(c.Request.Context())
	if errStats != nil {
		respond.Error(c, errStats)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// User returns hourly traffic for :userId over ?hours.
func (h *StatsHandler) User(c *gin.Context) {
	userID, ok := respond.ParamID(c, "userId")
	if !ok {
		return
	}
	report, errReport := h.svc.UserTraffic(c.Request.Context(), userID, respond.QueryInt(c, "hours", 0))
	if errReport != nil {
		respond.Error(c, errReport)
		return
	}
	c.JSON(http.StatusOK, report)
}

// Global returns hourly traffic for all users over ?hours with the top users.
func (h *StatsHandler) Global(c *gin.Context) {
	report, errReport := h.svc.GlobalTraffic(c.Request.Context(), respond.QueryInt(c, "hours", 0))
	if errReport != nil {
		respond.Error(c, errReport)
		return
	}
	c.JSON(http.StatusOK, report)
}
