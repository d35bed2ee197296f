package httpapi

import (
	"voicebot-platform/internal/audit"

	"github.com/gin-gonic/gin"
)

// ClientIP attaches the resolved client IP to the request context so audit
// events can record it without depending on gin.
func ClientIP() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Request = c.Request.WithContext(audit.WithClientIP(c.Request.Context(), c.ClientIP()))
		c.Next()
	}
}
