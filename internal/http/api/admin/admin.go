package admin

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/config"
	handlers "github.com/router-for-me/FRPPanel/internal/http/api/admin/handlers"
	"github.com/router-for-me/FRPPanel/internal/http/middleware"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// RegisterAdminRoutes registers the health check, the administrator API under /api/admin
// and the admin-only traffic reports under /api/stats.
func RegisterAdminRoutes(r *gin.Engine, svc *panel.Service, jwtCfg config.JWTConfig) {
	if r == nil || svc == nil {
		return
	}

	healthHandler := handlers.NewHealthHandler(svc)
	r.GET("/healthz", healthHandler.Healthz)

	authed := r.Group("/api/admin")
	authed.Use(middleware.Auth(svc, jwtCfg))
	authed.Use(middleware.AdminOnly())

	settingHandler := handlers.NewSettingHandler(svc)
	authed.GET("/settings", settingHandler.Get)
	authed.PUT("/settings", settingHandler.Update)

	userHandler := handlers.NewUserHandler(svc)
	authed.POST("/users", userHandler.Create)
	authed.GET("/users", userHandler.List)
	authed.GET("/users/:id", userHandler.Get)
	authed.PUT("/users/:id", userHandler.Update)
	authed.DELETE("/users/:id", userHandler.Delete)
	authed.GET("/users/:id/config", userHandler.ClientConfig)

	portHandler := handlers.NewPortHandler(svc)
	authed.POST("/users/:id/ports", portHandler.Create)
	authed.PUT("/users/:id/ports/:portId", portHandler.Update)
	authed.DELETE("/users/:id/ports/:portId", portHandler.Delete)

	announcementHandler := handlers.NewAnnouncementHandler(svc)
	authed.GET("/announcements", announcementHandler.List)
	authed.POST("/announcements", announcementHandler.Create)
	authed.PUT("/announcements/:id", announcementHandler.Update)
	authed.DELETE("/announcements/:id", announcementHandler.Delete)

	statsHandler := handlers.NewStatsHandler(svc)
	authed.GET("/stats", statsHandler.System)
	authed.GET("/stats/user/:userId", statsHandler.User)
	authed.GET("/stats/global", statsHandler.Global)

	statsGroup := r.Group("/api/stats")
	statsGroup.Use(middleware.Auth(svc, jwtCfg))
	statsGroup.Use(middleware.AdminOnly())
	statsGroup.GET("/user/:userId", statsHandler.User)
	statsGroup.GET("/global", statsHandler.Global)
}
