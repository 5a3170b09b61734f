package main

import (
	"context"
	"log"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/config"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/database"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/logging"
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

	logger, _, err := logging.New(cfg.LogDir, "setup", false)
	if err != nil {
		log.Fatal(err)
	}
	defer logger.Sync()

	logger.Info("Starting database setup")

	dbpool, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal("Unable to connect to database", zap.Error(err))
	}
	defer dbpool.Close()

	dbManager := database.NewPostgresDBManager(context.Background(), dbpool, logger)

	steps := []struct {
		name string
		run  func() error
	}{
		{"file_records table", dbManager.CreateFileRecordsTable},
		{"vaccination_records table", dbManager.CreateVaccinationRecordsTable},
		{"vaccination_records indexes", dbManager.CreateVaccinationRecordIndexes},
	}
	for _, step := range steps {
		logger.Info("Creating " + step.name)
		if err := step.run(); err != nil {
			logger.Fatal("Error creating "+step.name, zap.Error(err))
		}
	}

	logger.Info("Database setup finished successfully")
}
