package front

import (
	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/config"
	"github.com/router-for-me/FRPPanel/internal/http/api/front/handlers"
	"github.com/router-for-me/FRPPanel/internal/http/middleware"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// RegisterFrontRoutes registers the user-facing API under /api.
func RegisterFrontRoutes(r *gin.Engine, svc *panel.Service, jwtCfg config.JWTConfig, publicURL string) {
	if r == nil || svc == nil {
		return
	}
	authRequired := middleware.Auth(svc, jwtCfg)

	authHandler := handlers.NewAuthHandler(svc, jwtCfg, publicURL)
	authGroup := r.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.GET("/verify", authHandler.Verify)
	authGroup.POST("/login", authHandler.Login)
	authGroup.POST("/logout", authHandler.Logout)
	authGroup.GET("/me", authRequired, authHandler.Me)
	authGroup.POST("/forgot-password", authHandler.ForgotPassword)
	authGroup.POST("/reset-password", authHandler.ResetPassword)
	authGroup.GET("/settings", authHandler.Settings)

	userHandler := handlers.NewUserHandler(svc)
	userGroup := r.Group("/api/user", authRequired)
	userGroup.GET("/profile", userHandler.Profile)
	userGroup.POST("/change-password", userHandler.ChangePassword)
	userGroup.GET("/traffic", userHandler.Traffic)

	portHandler := handlers.NewPortHandler(svc)
	portGroup := r.Group("/api/ports", authRequired)
	portGroup.GET("", portHandler.List)
	portGroup.POST("", portHandler.Create)
	portGroup.GET("/random", portHandler.Random)
	portGroup.PUT("/:id", portHandler.Update)
	portGroup.DELETE("/:id", portHandler.Delete)

	announcementHandler := handlers.NewAnnouncementFrontHandler(svc)
	r.GET("/api/announcements", authRequired, announcementHandler.List)
	authGroup.GET("/announcements", announcementHandler.List)
}
