package handlers

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/http/respond"
	"github.com/router-for-me/FRPPanel/internal/panel"
)

// UserHandler manages user accounts on behalf of administrators.
type UserHandler struct {
	svc *panel.Service
}

// NewUserHandler constructs a UserHandler.
func NewUserHandler(svc *panel.Service) *UserHandler {
	return &UserHandler{svc: svc}
}

// Create creates a user account.
func (h *UserHandler) Create(c *gin.Context) {
	var body panel.CreateUserRequest
	if !respond.BindJSON(c, &body) {
		return
	}
	user, errCreate := h.svc.CreateUser(c.Request.Context(), body)
	if errCreate != nil {
		respond.Error(c, errCreate)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "user created", "user": user})
}

// List returns a page of users filtered by ?search.
func (h *UserHandler) List(c *gin.Context) {
	page, errList := h.svc.ListUsers(c.Request.Context(), panel.ListUsersQuery{
		Page:   respond.QueryInt(c, "page", 1),
		Limit:  respond.QueryInt(c, "limit", 0),
		Search: strings.TrimSpace(c.Query("search")),
	})
	if errList != nil {
		respond.Error(c, errList)
		return
	}
	c.JSON(http.StatusOK, page)
}

// Get returns a user with its mappings.
func (h *UserHandler) Get(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	detail, errGet := h.svc.GetUser(c.Request.Context(), id)
	if errGet != nil {
		respond.Error(c, errGet)
		return
	}
	c.JSON(http.StatusOK, detail)
}

// Update changes a user's status and quotas.
func (h *UserHandler) Update(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	var body panel.AdminUserUpdate
	if !respond.BindJSON(c, &body) {
		return
	}
	if errUpdate := h.svc.UpdateUser(c.Request.Context(), id, body); errUpdate != nil {
		respond.Error(c, errUpdate)
		return
	}
	respond.Message(c, "user updated")
}

// Delete removes a user with its mappings and traffic.
func (h *UserHandler) Delete(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	if errDelete := h.svc.DeleteUser(c.Request.Context(), id); errDelete != nil {
		respond.Error(c, errDelete)
		return
	}
	respond.Message(c, "user deleted")
}

// ClientConfig returns the frpc.toml for a user's active mappings.
func (h *UserHandler) ClientConfig(c *gin.Context) {
	id, ok := respond.ParamID(c, "id")
	if !ok {
		return
	}
	rendered, errRender := h.svc.ClientConfig(c.Request.Context(), id)
	if errRender != nil {
		respond.Error(c, errRender)
		return
	}
	c.JSON(http.StatusOK, gin.H{"config": rendered})
}
