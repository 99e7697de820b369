package chat

import (
	"hr-collab/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb *redis.Client) {
	chats := r.Group("/chat")
	// Rate: 10 req/s per user, burst 30. Chat polling is chatty.
	chats.Use(middleware.AuthMiddleware(), middleware.CompanyContext(), middleware.RateLimitByUser(10, 30))
	{
		chats.GET("/conversations", handler.GetConversations)
		chats.POST("/conversations", handler.CreateConversation)
		chats.GET("/conversations/:id/messages", handler.GetMessages)
		chats.POST("/conversations/:id/messages", middleware.Idempotency(rdb), handler.SendMessage)
		chats.GET("/users", handler.GetUsers)
	}
}
