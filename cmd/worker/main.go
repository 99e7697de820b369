package main

import (
	"os"

	"hr-collab/internal/app"
	"hr-collab/internal/bootstrap"
	"hr-collab/internal/shared/apperror"

	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

func main() {
	_ = godotenv.Load()

	logger, err := bootstrap.NewLogger(os.Getenv("APP_ENV"), os.Getenv("LOG_FILE"))
	if err != nil {
		panic(err)
	}
	defer logger.Sync()
	zap.ReplaceGlobals(logger)

	apperror.Init()

	if err := app.RunWorker(); err != nil {
		logger.Fatal("run worker failed", zap.Error(err))
	}
}
