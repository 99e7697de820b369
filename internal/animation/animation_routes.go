package animation

import (
	"hr-collab/internal/middleware"
	"hr-collab/internal/user"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	animations := r.Group("/animations")
	animations.Use(middleware.AuthMiddleware())
	{
		animations.POST("", handler.Upload)
		animations.POST("/validate", handler.Validate)
		animations.GET("/me", handler.Get)
		animations.DELETE("/me", handler.Delete)
		animations.GET("", middleware.RequireRole(user.RoleAdmin), handler.ListAll)
	}
}
