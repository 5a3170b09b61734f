package main

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/config"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/database"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/ingestion"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/parser"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/report"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/validator"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/views"
)

type runOptions struct {
	strict bool
	views  bool
}

func newRunCmd(global *globalOptions) *cobra.Command {
	var opts runOptions

	cmd := &cobra.Command{
		Use:   "run <dir>",
		Short: "Ingest every .csv and .xlsx file under a directory",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment("ingestion", global)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("strict") {
				cfg.StrictMode = opts.strict
			}
			return runIngestion(cmd.Context(), args[0], *cfg, opts.views, logger)
		},
	}

	cmd.Flags().BoolVar(&opts.strict, "strict", false, "Reject files missing a mandatory column")
	cmd.Flags().BoolVar(&opts.views, "views", false, "Refresh per-country views after loading")
	return cmd
}

func newViewsCmd(global *globalOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "views",
		Short: "Generate and execute per-country views",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment("views", global)
			if err != nil {
				return err
			}
			defer logger.Sync()

			service, cleanup, err := buildService(cmd.Context(), *cfg, uuid.NewString(), logger)
			if err != nil {
				return err
			}
			defer cleanup()

			return service.RefreshViews()
		},
	}
}

func newValidateCmd(global *globalOptions) *cobra.Command {
	var strict bool

	cmd := &cobra.Command{
		Use:   "validate <file>",
		Short: "Validate one file without touching the database",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, logger, err := loadEnvironment("validate", global)
			if err != nil {
				return err
			}
			defer logger.Sync()

			if cmd.Flags().Changed("strict") {
				cfg.StrictMode = strict
			}
			return validateFile(cmd, args[0], *cfg, logger)
		},
	}

	cmd.Flags().BoolVar(&strict, "strict", false, "Reject the file when a mandatory column is missing")
	return cmd
}

func runIngestion(ctx context.Context, filesPath string, cfg config.Config, refreshViews bool, logger *zap.Logger) error {
	startTime := time.Now()
	runID := uuid.NewString()
	logger = logger.With(zap.String("run_id", runID))

	service, cleanup, err := buildService(ctx, cfg, runID, logger)
	if err != nil {
		return err
	}
	defer cleanup()

	logger.Info("Starting extraction process", zap.String("path", filesPath), zap.Bool("strict", cfg.StrictMode))
	if err := service.Execute(filesPath); err != nil {
		return fmt.Errorf("error during extraction: %w", err)
	}

	if refreshViews {
		if err := service.RefreshViews(); err != nil {
			return fmt.Errorf("error refreshing views: %w", err)
		}
	}

	logger.Info("Execution finished", zap.Duration("elapsed", time.Since(startTime)))
	return nil
}

func buildService(ctx context.Context, cfg config.Config, runID string, logger *zap.Logger) (*ingestion.IngestionService, func(), error) {
	if err := cfg.RequireDatabase(); err != nil {
		return nil, nil, err
	}

	dbpool, err := database.ConnectDB(cfg.DatabaseURL)
	if err != nil {
		return nil, nil, fmt.Errorf("unable to connect to database: %w", err)
	}
	if ctx == nil {
		ctx = context.Background()
	}
	dbManager := database.NewPostgresDBManager(ctx, dbpool, logger)

	v := validator.New(cfg.Columns, schema.DefaultExternalMap(), logger)
	fileProcessor := ingestion.NewFileProcessor(dbManager, logger, cfg.ChecksumConcurrency)
	asyncWorker := ingestion.NewAsyncWorker(dbManager, v, report.NewWriter(cfg.InvalidRecordsDir, logger), logger, ingestion.AsyncWorkerConfig{
		DBBatchSize: cfg.DBBatchSize,
		Strict:      cfg.StrictMode,
		RunID:       runID,
	})

	service := ingestion.NewIngestionService(
		dbManager,
		ingestion.Setup{ResultsChannelSize: cfg.ResultsChannelSize},
		asyncWorker,
		fileProcessor,
		views.NewGenerator(cfg.ViewsDir, logger),
		cfg,
		logger,
	)

	return service, func() {
		logger.Debug("Closing database pool")
		dbpool.Close()
	}, nil
}

func validateFile(cmd *cobra.Command, path string, cfg config.Config, logger *zap.Logger) error {
	batch, err := parser.ReadFile(path)
	if err != nil {
		return err
	}

	v := validator.New(cfg.Columns, schema.DefaultExternalMap(), logger)
	result, err := v.Validate(batch, cfg.StrictMode)
	if err != nil {
		return err
	}
	admitted := v.SelectValid(result.Clean)

	reportPath, err := report.NewWriter(cfg.InvalidRecordsDir, logger).Write(batch.SourceID, result.Invalid)
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "source:   %s\n", batch.SourceID)
	fmt.Fprintf(out, "rows:     %d\n", len(batch.Rows))
	fmt.Fprintf(out, "admitted: %d\n", len(admitted))
	fmt.Fprintf(out, "invalid:  %d\n", len(result.Invalid))
	if reportPath != "" {
		fmt.Fprintf(out, "report:   %s\n", reportPath)
	}
	if len(admitted) == 0 {
		fmt.Fprintln(os.Stderr, "Warning: no record would be loaded from this file")
	}
	return nil
}
