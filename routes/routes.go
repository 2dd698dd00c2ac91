package routes

import (
	"github.com/gin-gonic/gin"

	"agendabot/handlers"
	"agendabot/middleware"
)

// RegisterWebhookRoutes wires the WhatsApp Cloud API webhook endpoints.
func RegisterWebhookRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/webhook", hb.WebhookVerifyHandler)
	r.POST("/webhook", hb.WebhookReceiveHandler)
}

// RegisterAdminRoutes wires the owner-facing agenda endpoints.
func RegisterAdminRoutes(r *gin.Engine, hb *handlers.HandlerBundle) {
	api := r.Group("/api/agenda")
	{
		api.Use(middleware.RateLimitMiddleware())
		api.GET("/day/:date", hb.AgendaDayHandler)
		api.POST("/day-off/:date", hb.MarkDayOffHandler)
		api.POST("/generate", hb.GenerateHorizonHandler)
		api.POST("/summary", hb.TriggerSummaryHandler)
	}
}

// RegisterHealthRoute registers a health-check endpoint.
func RegisterHealthRoute(r *gin.Engine, hb *handlers.HandlerBundle) {
	r.GET("/health", hb.HealthHandler)
}
