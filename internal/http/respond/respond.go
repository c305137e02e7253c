package respond

import (
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/router-for-me/FRPPanel/internal/panel"
	log "github.com/sirupsen/logrus"
)

// Error writes err as a JSON error body with the status matching its panel error kind.
// Unclassified errors are logged and reported as 500 without their details.
func Error(c *gin.Context, err error) {
	var panelErr *panel.Error
	if errors.As(err, &panelErr) {
		c.JSON(Status(err), gin.H{"error": panelErr.Message})
		return
	}
	log.WithError(err).Errorf("%s %s failed", c.Request.Method, c.Request.URL.Path)
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
}

// Status maps a panel error kind to an HTTP status code.
func Status(err error) int {
	switch {
	case errors.Is(err, panel.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, panel.ErrConflict):
		return http.StatusConflict
	case errors.Is(err, panel.ErrInvalidInput):
		return http.StatusBadRequest
	case errors.Is(err, panel.ErrUnauthorized):
		return http.StatusUnauthorized
	case errors.Is(err, panel.ErrForbidden):
		return http.StatusForbidden
	default:
		return http.StatusInternalServerError
	}
}

// ParamID parses the positive integer path parameter name.
// It writes a 400 response and returns false when the parameter is malformed.
func ParamID(c *gin.Context, name string) (int64, bool) {
	id, errParse := strconv.ParseInt(strings.TrimSpace(c.Param(name)), 10, 64)
	if errParse != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid " + name})
		return 0, false
	}
	return id, true
}

// QueryInt parses an integer query parameter, returning def when absent or malformed.
func QueryInt(c *gin.Context, name string, def int) int {
	raw := strings.TrimSpace(c.Query(name))
	if raw == "" {
		return def
	}
	v, errParse := strconv.Atoi(raw)
	if errParse != nil {
		return def
	}
	return v
}

// BindJSON decodes the request body into dst, writing a 400 response on failure.
func BindJSON(c *gin.Context, dst any) bool {
	if errBind := c.ShouldBindJSON(dst); errBind != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid json"})
		return false
	}
	return true
}

// Message writes a 200 response carrying a human-readable message.
func Message(c *gin.Context, message string) {
	c.JSON(http.StatusOK, gin.H{"message": message})
}
