package main

import (
	"net/http"

	"voicebot-platform/internal/httpapi"

	"github.com/gin-gonic/gin"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, h httpapi.Handlers, authMW, webhookMW gin.HandlerFunc) {
	api := r.Group("/api")

	// public
	api.GET("/health", h.Health)

	authGroup := api.Group("/auth")
	{
		authGroup.POST("/register", h.Register)
		authGroup.POST("/login", h.Login)

		authGroup.GET("/me", authMW, h.Me)
		authGroup.PUT("/profile", authMW, h.UpdateProfile)
		authGroup.PUT("/telephony", authMW, h.UpdateTelephony)
		// Older clients still call the provider-named path.
		authGroup.PUT("/twilio", authMW, h.UpdateTelephony)
	}

	botsGroup := api.Group("/bots")
	botsGroup.Use(authMW)
	{
		botsGroup.GET("/stats/dashboard", h.Dashboard)
		botsGroup.GET("", h.ListBots)
		botsGroup.POST("", h.CreateBot)
		botsGroup.GET("/:id", h.GetBot)
		botsGroup.PUT("/:id", h.UpdateBot)
		botsGroup.DELETE("/:id", h.DeleteBot)
		botsGroup.POST("/:id/generate-audio", h.GenerateAudio)
		botsGroup.POST("/:id/trigger-call", h.TriggerCall)
	}

	callsGroup := api.Group("/calls")
	callsGroup.Use(authMW)
	{
		callsGroup.GET("", h.ListCalls)
		callsGroup.GET("/bot/:botId", h.ListBotCalls)
	}

	// Engine callbacks carry the shared secret instead of a user token.
	webhooks := api.Group("/webhooks")
	webhooks.Use(webhookMW)
	{
		webhooks.POST("/call-completed", h.CallCompleted)
	}

	r.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{"success": false, "message": "Route not found"})
	})
}
