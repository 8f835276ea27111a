package routes

import (
	"campaign-messaging-api/controllers"
	"campaign-messaging-api/middleware"

	"github.com/gin-gonic/gin"
)

// Handlers carries the wired controllers the router dispatches to.
type Handlers struct {
	Campaigns *controllers.CampaignController
	Protected *controllers.ProtectedController
	JWTSecret string
}

func SetupRoutes(router *gin.Engine, h Handlers) {
	// API v1 group
	v1 := router.Group("/api/v1")
	{
		// Public routes
		public := v1.Group("")
		{
			public.GET("/health", controllers.Health)

			// Recipients open protected messages with the hash their client derived.
			public.POST("/protect/:id", h.Protected.Retrieve)
		}

		// Protected routes (require authentication)
		protected := v1.Group("")
		protected.Use(middleware.AuthMiddleware(h.JWTSecret))
		{
			campaigns := protected.Group("/campaigns/:campaignId")
			{
				campaigns.POST("/upload", h.Campaigns.UploadRecipients)
				campaigns.GET("/preview", h.Campaigns.Preview)
				campaigns.POST("/credentials/default", h.Campaigns.BindDefaultCredential)
				campaigns.POST("/test-send", h.Campaigns.TestSend)
			}
		}
	}

	router.NoRoute(func(c *gin.Context) {
		c.JSON(404, gin.H{
			"error":  "Endpoint not found",
			"path":   c.Request.URL.Path,
			"method": c.Request.Method,
		})
	})
}
