package handlers

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/config"
	"github.com/router-for-me/FRPPanel/internal/http/middleware"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/models"
	"github.com/router-for-me/FRPPanel/internal/panel"
	"github.com/router-for-me/FRPPanel/internal/security"
)

// AuthHandler serves registration, sign-in and password recovery.
type AuthHandler struct {
	svc       *panel.Service
	jwtCfg    config.JWTConfig
	publicURL string
}

// NewAuthHandler constructs an AuthHandler. publicURL prefixes emailed links;
// when empty the request's own scheme and host are used.
func NewAuthHandler(svc *panel.Service, jwtCfg config.JWTConfig, publicURL string) *AuthHandler {
	return &AuthHandler{svc: svc, jwtCfg: jwtCfg, publicURL: strings.TrimRight(publicURL, "/")}
}

type credentialsRequest struct {
	Email    string `json:"email"`
	Password string `json:"password"`
}

type forgotPasswordRequest struct {
	Email string `json:"email"`
}

type resetPasswordRequest struct {
	Token    string `json:"token"`
	Password string `json:"password"`
}

// sessionUser is the account summary returned to the browser.
func sessionUser(user models.User) gin.H {
	return gin.H{"id": user.ID, "email": user.Email, "isAdmin": user.IsAdmin}
}

func (h *AuthHandler) baseURL(c *gin.Context) string {
	if h.publicURL != "" {
		return h.publicURL
	}
	scheme := "http"
	if c.Request.TLS != nil || strings.EqualFold(c.GetHeader("X-Forwarded-Proto"), "https") {
		scheme = "https"
	}
	return scheme + "://" + c.Request.Host
}

// Register creates a self-service account.
func (h *AuthHandler) Register(c *gin.Context) {
	var body credentialsRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	result, errRegister := h.svc.Register(c.Request.Context(), body.Email, body.Password, h.baseURL(c))
	if errRegister != nil {
		respond.Error(c, errRegister)
		return
	}
	message := "registration successful, please sign in"
	if result.NeedsVerification {
		message = "registration successful, please check your email to verify the account"
	}
	c.JSON(http.StatusOK, gin.H{"message": message, "needs_verification": result.NeedsVerification})
}

// Verify activates an account from an emailed link.
func (h *AuthHandler) Verify(c *gin.Context) {
	if errVerify := h.svc.Verify(c.Request.Context(), c.Query("token")); errVerify != nil {
		respond.Error(c, errVerify)
		return
	}
	respond.Message(c, "email verified, please sign in")
}

// Login checks credentials and issues a session token as a cookie and in the body.
func (h *AuthHandler) Login(c *gin.Context) {
	var body credentialsRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	user, errLogin := h.svc.Login(c.Request.Context(), body.Email, body.Password)
	if errLogin != nil {
		respond.Error(c, errLogin)
		return
	}
	token, errToken := security.IssueUserToken(h.jwtCfg.Secret, user.ID, user.IsAdmin, h.jwtCfg.Expiry)
	if errToken != nil {
		respond.Error(c, errToken)
		return
	}
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, token, int(h.jwtCfg.Expiry/time.Second), "/", "", c.Request.TLS != nil, true)
	c.JSON(http.StatusOK, gin.H{"token": token, "user": sessionUser(user)})
}

// Logout clears the session cookie.
func (h *AuthHandler) Logout(c *gin.Context) {
	c.SetSameSite(http.SameSiteStrictMode)
	c.SetCookie(middleware.TokenCookie, "", -1, "/", "", c.Request.TLS != nil, true)
	respond.Message(c, "signed out")
}

// Me returns the signed-in account.
func (h *AuthHandler) Me(c *gin.Context) {
	user, ok := middleware.CurrentUser(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "please sign in"})
		return
	}
	c.JSON(http.StatusOK, gin.H{"user": sessionUser(user)})
}

// ForgotPassword mails a reset link. The response does not reveal whether the email exists.
func (h *AuthHandler) ForgotPassword(c *gin.Context) {
	var body forgotPasswordRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	if errForgot := h.svc.ForgotPassword(c.Request.Context(), body.Email, h.baseURL(c)); errForgot != nil {
		respond.Error(c, errForgot)
		return
	}
	respond.Message(c, "if the email exists, a reset link has been sent")
}

// ResetPassword sets a new password from a reset link.
func (h *AuthHandler) ResetPassword(c *gin.Context) {
	var body resetPasswordRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	if errReset := h.svc.ResetPassword(c.Request.Context(), body.Token, body.Password); errReset != nil {
		respond.Error(c, errReset)
		return
	}
	respond.Message(c, "password has been reset")
}

// Settings returns the registration flags the sign-up page needs. It is public.
func (h *AuthHandler) Settings(c *gin.Context) {
	current, errSettings := h.svc.Settings(c.Request.Context())
	if errSettings != nil {
		respond.Error(c, errSettings)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"allow_register":       current.AllowRegister,
		"require_email_verify": current.RequireEmailVerify,
	})
}
