package httpapi

import (
	"net/http"

	"voicebot-platform/internal/apperr"
	"voicebot-platform/pkg/logger"

	"github.com/gin-gonic/gin"
)

// envelope is the shape of every JSON response.
type envelope struct {
	Success bool   `json:"success"`
	Message string `json:"message,omitempty"`
	Data    any    `json:"data,omitempty"`
}

func ok(c *gin.Context, status int, msg string, data any) {
	c.JSON(status, envelope{Success: true, Message: msg, Data: data})
}

func badRequest(c *gin.Context, msg string) {
	c.AbortWithStatusJSON(http.StatusBadRequest, envelope{Success: false, Message: msg})
}

// fail maps a service error to its status and client message. Causes of
// server-side failures are attached to the gin context for the request log
// and never sent to the client.
func fail(c *gin.Context, err error) {
	kind := apperr.KindOf(err)
	status := apperr.HTTPStatus(kind)
	if status >= http.StatusInternalServerError {
		_ = c.Error(err)
	} else {
		logger.FromGin(c).Debug("request rejected", "kind", kind, "err", err)
	}

	msg := apperr.Message(err)
	if kind == apperr.KindPersistence {
		msg = "internal error"
	}
	c.AbortWithStatusJSON(status, envelope{Success: false, Message: msg})
}
