package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

type Config struct {
	DatabaseURL         string
	NumParserWorkers    int    `validate:"min=1"`
	NumDBWorkers        int    `validate:"min=1"`
	ResultsChannelSize  int    `validate:"min=1"`
	DBBatchSize         int    `validate:"min=1"`
	ChecksumConcurrency int    `validate:"min=1"`
	StrictMode          bool
	InvalidRecordsDir   string `validate:"required"`
	ViewsDir            string `validate:"required"`
	LogDir              string `validate:"required"`
	APIPort             string `validate:"required,numeric"`
	ColumnMapFile       string
	Columns             schema.ColumnMap `validate:"-"`
}

// New reads the configuration from the environment. The caller loads .env
// beforehand.
func New() (*Config, error) {
	cfg := &Config{
		DatabaseURL:         os.Getenv("DATABASE_URL"),
		NumParserWorkers:    4,
		NumDBWorkers:        2,
		ResultsChannelSize:  10000,
		DBBatchSize:         5000,
		ChecksumConcurrency: 8,
		InvalidRecordsDir:   getEnv("INVALID_RECORDS_DIR", "data/invalid_records"),
		ViewsDir:            getEnv("VIEWS_DIR", "scripts/dml/generated"),
		LogDir:              getEnv("LOG_DIR", "logs"),
		APIPort:             getEnv("API_PORT", "8080"),
		ColumnMapFile:       os.Getenv("COLUMN_MAP_FILE"),
	}

	var err error
	cfg.NumParserWorkers, err = getEnvAsInt("NUM_PARSER_WORKERS", cfg.NumParserWorkers)
	if err != nil {
		return nil, err
	}

	cfg.NumDBWorkers, err = getEnvAsInt("NUM_DB_WORKERS", cfg.NumDBWorkers)
	if err != nil {
		return nil, err
	}

	cfg.ResultsChannelSize, err = getEnvAsInt("RESULTS_CHANNEL_SIZE", cfg.ResultsChannelSize)
	if err != nil {
		return nil, err
	}

	cfg.DBBatchSize, err = getEnvAsInt("DB_BATCH_SIZE", cfg.DBBatchSize)
	if err != nil {
		return nil, err
	}

	cfg.ChecksumConcurrency, err = getEnvAsInt("CHECKSUM_CONCURRENCY", cfg.ChecksumConcurrency)
	if err != nil {
		return nil, err
	}

	cfg.StrictMode, err = getEnvAsBool("STRICT_MODE", false)
	if err != nil {
		return nil, err
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, describe(err)
	}

	cfg.Columns = schema.DefaultColumnMap()
	if cfg.ColumnMapFile != "" {
		cfg.Columns, err = schema.LoadColumnMap(cfg.ColumnMapFile)
		if err != nil {
			return nil, fmt.Errorf("failed to load column map: %w", err)
		}
	}

	return cfg, nil
}

// RequireDatabase fails when no connection string is configured.
func (c *Config) RequireDatabase() error {
	if c.DatabaseURL == "" {
		return fmt.Errorf("DATABASE_URL environment variable is not set")
	}
	return nil
}

func describe(err error) error {
	var validationErrors validator.ValidationErrors
	if !errors.As(err, &validationErrors) {
		return fmt.Errorf("invalid config: %w", err)
	}

	problems := make([]string, 0, len(validationErrors))
	for _, ve := range validationErrors {
		problems = append(problems, fmt.Sprintf("%s failed %s=%s (got '%v')", ve.Field(), ve.Tag(), ve.Param(), ve.Value()))
	}
	return fmt.Errorf("invalid config: %s", strings.Join(problems, "; "))
}

func getEnv(key, defaultValue string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) (int, error) {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return 0, fmt.Errorf("invalid value for %s: expected an integer, got '%s'", key, valueStr)
	}

	return value, nil
}

func getEnvAsBool(key string, defaultValue bool) (bool, error) {
	valueStr := strings.TrimSpace(os.Getenv(key))
	if valueStr == "" {
		return defaultValue, nil
	}

	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return false, fmt.Errorf("invalid value for %s: expected a boolean, got '%s'", key, valueStr)
	}

	return value, nil
}
