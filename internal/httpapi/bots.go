package httpapi

import (
	"net/http"

	"voicebot-platform/internal/bots"

	"github.com/gin-gonic/gin"
)

func (h Handlers) ListBots(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	list, err := h.Bots.List(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"bots": list})
}

func (h Handlers) CreateBot(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	var req bots.CreateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	b, err := h.Bots.Create(c.Request.Context(), uid, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "Bot created successfully", gin.H{"bot": b})
}

func (h Handlers) GetBot(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	b, err := h.Bots.Get(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"bot": b})
}

func (h Handlers) UpdateBot(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	var req bots.UpdateInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	b, err := h.Bots.Update(c.Request.Context(), uid, c.Param("id"), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Bot updated successfully", gin.H{"bot": b})
}

func (h Handlers) DeleteBot(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	if err := h.Bots.Delete(c.Request.Context(), uid, c.Param("id")); err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Bot deleted successfully", gin.H{})
}

func (h Handlers) Dashboard(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	d, err := h.Bots.Dashboard(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", d)
}

func (h Handlers) GenerateAudio(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	b, err := h.Calls.GenerateAudio(c.Request.Context(), uid, c.Param("id"))
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Audio files generated successfully", gin.H{"bot": b})
}

type triggerCallRequest struct {
	PhoneNumber string `json:"phoneNumber"`
}

func (h Handlers) TriggerCall(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	var req triggerCallRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	res, err := h.Calls.Trigger(c.Request.Context(), uid, c.Param("id"), req.PhoneNumber)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Call triggered successfully", res)
}
