package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"voicebot-platform/internal/calls"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListBotCalls(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	list, err := h.Calls.ListByBot(c.Request.Context(), uid, c.Param("botId"), queryLimit(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"calls": list})
}

func (h Handlers) ListCalls(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	list, err := h.Calls.ListByUser(c.Request.Context(), uid, queryLimit(c))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"calls": list})
}

// CallCompleted receives the engine's end-of-call report. Guarded by
// auth.RequireWebhookSecret, not by a user token.
func (h Handlers) CallCompleted(c *gin.Context) {
	var req calls.Completion
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, bindMessage(err))
		return
	}
	row, err := h.Calls.Reconcile(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Call log updated successfully", gin.H{"callId": row.ID, "status": row.Status})
}

func bindMessage(err error) string {
	var typeErr *json.UnmarshalTypeError
	switch {
	case errors.Is(err, calls.ErrResponsesNotObject):
		return "invalid payload: responses must be an object"
	case errors.As(err, &typeErr) && typeErr.Field != "":
		return "invalid payload: " + typeErr.Field + " has the wrong type"
	default:
		return "invalid payload"
	}
}
