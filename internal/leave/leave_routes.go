package leave

import (
	"hr-collab/internal/middleware"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler, rdb *redis.Client) {
	leaves := r.Group("/leave")
	leaves.Use(middleware.AuthMiddleware())
	{
		leaves.GET("/vacation-types", handler.GetVacationTypes)
		leaves.POST("/requests", middleware.Idempotency(rdb), handler.Apply)
		leaves.GET("/requests", handler.GetHistory)
		leaves.GET("/balance", handler.GetBalance)
		leaves.GET("/requests/:id", handler.GetDetails)
		leaves.POST("/requests/:id/cancel", handler.Cancel)
	}
}
