package main

import (
	"context"
	"fmt"
	"os"

	"github.com/fdk/resource-service/internal/repository"
	"github.com/fdk/resource-service/pkg/config"
	"github.com/fdk/resource-service/pkg/database"
	"github.com/fdk/resource-service/pkg/logger"
	"go.uber.org/zap"
)

func main() {
	cfg := config.MustLoad()
	log, err := logger.Init(cfg.LogLevel, cfg.LogFormat)
	if err != nil {
		panic(err)
	}
	defer logger.Sync()

	db, err := database.Open(context.Background(), cfg.Database.URL)
	if err != nil {
		log.Fatal("failed to connect to database", zap.Error(err))
	}

	if err := repository.Migrate(db); err != nil {
		log.Fatal("migration failed", zap.Error(err))
	}

	fmt.Fprintln(os.Stdout, "migrations completed")
}
