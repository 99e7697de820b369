package auth

import (
	"hr-collab/internal/middleware"
	"hr-collab/internal/user"

	"github.com/gin-gonic/gin"
)

func RegisterRoutes(r *gin.RouterGroup, handler *Handler) {
	authGroup := r.Group("/auth")
	{
		authGroup.POST("/login", handler.Login)
		authGroup.POST("/refresh", handler.Refresh)
		authGroup.GET("/me", middleware.AuthMiddleware(), handler.Me)
		authGroup.POST("/register",
			middleware.AuthMiddleware(),
			middleware.RequireRole(user.RoleAdmin),
			handler.Register,
		)
	}
}
