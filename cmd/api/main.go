package main

import (
	"context"
	"fmt"
	"log"
	"net/http"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/config"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/database"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/logging"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/server"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("Warning: could not load .env file: %v", err)
	}

	cfg, err := config.New()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := cfg.RequireDatabase(); err != nil {
		log.Fatal(err)
	}

	logger, _, err := logging.New(cfg.LogDir, "api", false)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	dbpool, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Failed to connect to the database", zap.Error(err))
	}
	defer dbpool.Close()

	dbManager := database.NewPostgresDBManager(context.Background(), dbpool, logger)
	router := server.SetupRoutes(server.NewCountryService(dbManager, logger))

	logger.Info("Server starting", zap.String("port", cfg.APIPort))
	if err := http.ListenAndServe(fmt.Sprintf(":%s", cfg.APIPort), router); err != nil {
		logger.Fatal("Failed to start server", zap.Error(err))
	}
}
