package middleware

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/config"
	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/panel"
	"github.com/router-for-me/FRPPanel/internal/security"
)

// TokenCookie is the cookie a browser session token is stored in.
const TokenCookie = "token"

const (
	ctxUserID  = "userID"
	ctxIsAdmin = "isAdmin"
	ctxUser    = "user"
)

// Auth validates the session JWT from the Authorization header or the token cookie
// and loads the account behind it.
func Auth(svc *panel.Service, jwtCfg config.JWTConfig) gin.HandlerFunc {
	return func(c *gin.Context) {
		token := bearerToken(c)
		if token == "" {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "please sign in"})
			return
		}
		claims, errJWT := security.ParseUserToken(jwtCfg.Secret, token)
		if errJWT != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "invalid token"})
			return
		}
		user, errAuth := svc.Authenticate(c.Request.Context(), claims.UserID)
		if errAuth != nil {
			c.AbortWithStatusJSON(http.StatusUnauthorized, gin.H{"error": "account is disabled or does not exist"})
			return
		}
		c.Set(ctxUserID, user.ID)
		c.Set(ctxIsAdmin, user.IsAdmin)
		c.Set(ctxUser, user)
		c.Next()
	}
}

// AdminOnly rejects requests whose authenticated user is not an administrator.
// It must run after Auth.
func AdminOnly() gin.HandlerFunc {
	return func(c *gin.Context) {
		if !c.GetBool(ctxIsAdmin) {
			c.AbortWithStatusJSON(http.StatusForbidden, gin.H{"error": "administrator access required"})
			return
		}
		c.Next()
	}
}

// UserID returns the authenticated user id, or 0 outside Auth.
func UserID(c *gin.Context) int64 {
	return c.GetInt64(ctxUserID)
}

// CurrentUser returns the authenticated user loaded by Auth.
func CurrentUser(c *gin.Context) (models.User, bool) {
	v, ok := c.Get(ctxUser)
	if !ok {
		return models.User{}, false
	}
	user, ok := v.(models.User)
	return user, ok
}

func bearerToken(c *gin.Context) string {
	if authHeader := c.GetHeader("Authorization"); authHeader != "" {
		token := strings.TrimPrefix(authHeader, "Bearer ")
		if token == authHeader {
			return ""
		}
		return strings.TrimSpace(token)
	}
	if cookie, errCookie := c.Cookie(TokenCookie); errCookie == nil {
		return strings.TrimSpace(cookie)
	}
	return ""
}
