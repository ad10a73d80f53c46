package routes

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"marketplace-server/middleware"
	"marketplace-server/repository"
	"marketplace-server/services"
	"marketplace-server/websocket"
)

// Deps carries what the handlers need from main
type Deps struct {
	Store  repository.Store
	Tokens middleware.TokenValidator
	Hub    *websocket.Hub
}

// RegisterRoutes registers all API routes. Global middleware is left to the caller.
func RegisterRoutes(router *gin.Engine, deps Deps) {
	// Health check
	router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	var notifier Notifier
	if deps.Hub != nil {
		notifier = websocket.NewServiceBroadcaster(deps.Hub)
	}

	apiV1 := router.Group("/api/v1")
	{
		requests := apiV1.Group("/requests")
		requests.Use(middleware.AuthMiddleware(deps.Tokens))
		RegisterServiceRequestRoutes(requests, deps.Store, notifier)

		reviews := apiV1.Group("/reviews")
		reviews.Use(middleware.AuthMiddleware(deps.Tokens))
		RegisterReviewRoutes(reviews, deps.Store)

		if deps.Hub != nil {
			apiV1.GET("/ws", middleware.WebSocketAuthMiddleware(deps.Tokens), serveWebSocket(deps.Hub))
		}
	}
}

// serveWebSocket attaches the caller's dashboard to the hub. The locale comes
// from ?lang= or Accept-Language and decides the language of pushed updates.
func serveWebSocket(hub *websocket.Hub) gin.HandlerFunc {
	return func(c *gin.Context) {
		userID, role := middleware.CurrentUser(c)
		locale := c.Query("lang")
		if locale == "" {
			locale = c.GetHeader("Accept-Language")
		}
		websocket.ServeWebSocket(hub, c.Writer, c.Request, userID, string(role), services.NormalizeLocale(locale))
	}
}
