package app

import (
	"database/sql"

	"hr-collab/internal/animation"
	"hr-collab/internal/auth"
	"hr-collab/internal/chat"
	"hr-collab/internal/employee"
	"hr-collab/internal/identity"
	"hr-collab/internal/leave"
	"hr-collab/internal/messaging/kafka"
	"hr-collab/internal/shared/storage"
	"hr-collab/internal/user"

	"github.com/gin-gonic/gin"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"
)

func registerModules(
	router *gin.Engine,
	db *sql.DB,
	gormDB *gorm.DB,
	rdb *redis.Client,
	store storage.BlobStore,
) error {
	// --- Repositories ---
	userRepo := user.NewRepository(gormDB)
	employeeRepo := employee.NewRepository(gormDB)
	leaveRepo := leave.NewRepository(gormDB)
	chatRepo := chat.NewRepository(gormDB)
	outboxRepo := kafka.NewOutboxRepository(db)

	// --- Shared infrastructure ---
	resolver := identity.NewResolver(gormDB, rdb)
	broadcaster := chat.NewRedisBroadcaster(rdb)

	// --- Services ---
	authService := auth.NewService(userRepo, employeeRepo)
	animationService := animation.NewService(employeeRepo, store)
	leaveService := leave.NewServiceWithOutbox(db, leaveRepo, employeeRepo, outboxRepo)
	chatService := chat.NewService(chat.ServiceDeps{
		DB:          db,
		Repo:        chatRepo,
		Users:       userRepo,
		Resolver:    resolver,
		Store:       store,
		Outbox:      outboxRepo,
		Broadcaster: broadcaster,
		Redis:       rdb,
	})

	// --- Handlers ---
	authHandler := auth.NewHandler(authService)
	animationHandler := animation.NewHandler(animationService)
	leaveHandler := leave.NewHandlerWithRedis(leaveService, rdb)
	chatHandler := chat.NewHandlerWithRedis(chatService, rdb)

	// --- Routes Registration ---
	api := router.Group("/api/v1")
	{
		auth.RegisterRoutes(api, authHandler)
		animation.RegisterRoutes(api, animationHandler)
		leave.RegisterRoutes(api, leaveHandler, rdb)
		chat.RegisterRoutes(api, chatHandler, rdb)
	}

	return nil
}
