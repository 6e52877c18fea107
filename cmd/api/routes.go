package main

import (
	"github.com/gin-gonic/gin"

	"voice-concierge/internal/httpapi"
	"voice-concierge/internal/telephony"
)

// registerRoutes wires HTTP routes to handlers.
// Keep this file free of business logic. Handlers should delegate to internal modules.
func registerRoutes(r *gin.Engine, webhook telephony.VoiceWebhookHandler, api httpapi.Handlers, authMW gin.HandlerFunc) {
	// public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(200, gin.H{"status": "ok"})
	})

	// Provider webhook. Authentication happens inside the handler via the
	// signature gate so rejected deliveries still get a logged request line.
	r.POST(voiceWebhookPath, webhook.Handle)

	// Demo surface: classify a pasted transcript without placing a call.
	r.POST("/simulate", api.Simulate)

	// dashboard API group
	v1 := r.Group("/v1")
	v1.Use(authMW)
	{
		v1.GET("/calls", api.ListCalls)
		v1.GET("/calls/:call_id", api.GetCall)
		v1.GET("/reports/summary", api.CallsSummary)
	}
}
