package httpapi

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
)

// Health reports 503 when the database is unreachable. Engine status is
// informational only; the API still serves reads without it.
func (h Handlers) Health(c *gin.Context) {
	ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
	defer cancel()

	data := gin.H{"timestamp": time.Now().UTC().Format(time.RFC3339)}

	dbStatus := "ok"
	if h.DB == nil {
		dbStatus = "not configured"
	} else if err := h.DB.PingContext(ctx); err != nil {
		dbStatus = "unreachable"
		_ = c.Error(err)
	}
	data["database"] = dbStatus

	if h.Engine != nil {
		engineStatus := "ok"
		if err := h.Engine.HealthCheck(ctx); err != nil {
			engineStatus = "unreachable"
		}
		data["callEngine"] = engineStatus
	}

	if dbStatus != "ok" {
		c.JSON(http.StatusServiceUnavailable, envelope{Success: false, Message: "database unavailable", Data: data})
		return
	}
	ok(c, http.StatusOK, "VoiceBot API is running", data)
}
