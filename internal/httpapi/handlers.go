package httpapi

import (
	"context"
	"net/http"
	"strconv"

	"voicebot-platform/internal/auth"
	"voicebot-platform/internal/bots"
	"voicebot-platform/internal/calls"
	"voicebot-platform/internal/telephony"
	"voicebot-platform/internal/users"

	"github.com/gin-gonic/gin"
)

// Pinger is satisfied by *sql.DB.
type Pinger interface {
	PingContext(ctx context.Context) error
}

// Handlers groups HTTP handlers for dependency injection.
// Keep these thin: parse/validate input, call internal services, return JSON.
type Handlers struct {
	Users *users.Service
	Bots  *bots.Service
	Calls *calls.Service

	DB     Pinger
	Engine telephony.CallEngine
}

// userID reads the identity RequireAccessToken put on the request.
func userID(c *gin.Context) (string, bool) {
	uid, err := auth.UserID(c.Request.Context())
	if err != nil {
		c.AbortWithStatusJSON(http.StatusUnauthorized, envelope{Success: false, Message: "not authorized"})
		return "", false
	}
	return uid, true
}

func queryLimit(c *gin.Context) int {
	n, err := strconv.Atoi(c.Query("limit"))
	if err != nil {
		return 0
	}
	return n
}

// --- Auth ---

func (h Handlers) Register(c *gin.Context) {
	var req users.RegisterInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	sess, err := h.Users.Register(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusCreated, "User registered successfully", sess)
}

func (h Handlers) Login(c *gin.Context) {
	var req users.LoginInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	if req.Email == "" || req.Password == "" {
		badRequest(c, "please provide email and password")
		return
	}
	sess, err := h.Users.Login(c.Request.Context(), req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Login successful", sess)
}

func (h Handlers) Me(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	u, err := h.Users.Get(c.Request.Context(), uid)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "", gin.H{"user": u})
}

type profileRequest struct {
	Name   string `json:"name"`
	Avatar string `json:"avatar"`
}

func (h Handlers) UpdateProfile(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	var req profileRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	u, err := h.Users.UpdateProfile(c.Request.Context(), uid, req.Name, req.Avatar)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Profile updated successfully", gin.H{"user": u})
}

func (h Handlers) UpdateTelephony(c *gin.Context) {
	uid, good := userID(c)
	if !good {
		return
	}
	var req users.TelephonyInput
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, "invalid json")
		return
	}
	u, err := h.Users.UpdateTelephony(c.Request.Context(), uid, req)
	if err != nil {
		fail(c, err)
		return
	}
	ok(c, http.StatusOK, "Telephony configuration updated", gin.H{"user": u})
}
