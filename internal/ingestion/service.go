package ingestion

import (
	"fmt"

	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/config"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/database"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/views"
)

// ViewGenerator writes one view script per country and runs them.
type ViewGenerator interface {
	Generate(countries []string) ([]string, error)
	Execute(exec views.Executor) error
}

type IngestionService struct {
	dbManager     database.DBManager
	setupService  ISetup
	asyncWorker   Worker
	fileProcessor Processor
	viewGenerator ViewGenerator
	config        config.Config
	logger        *zap.Logger
}

func NewIngestionService(dbManager database.DBManager, setupService ISetup, worker Worker, processor Processor, viewGenerator ViewGenerator, cfg config.Config, logger *zap.Logger) *IngestionService {
	return &IngestionService{
		dbManager:     dbManager,
		setupService:  setupService,
		asyncWorker:   worker,
		fileProcessor: processor,
		viewGenerator: viewGenerator,
		config:        cfg,
		logger:        logger,
	}
}

// Execute orchestrates the file processing workflow.
func (h *IngestionService) Execute(filesPath string) error {
	// Step 0: Setup the extraction environment.
	environmentConfig, err := h.setupService.build()
	if err != nil {
		return err
	}
	channels, waitGroups, fileMap, fileErrorsMap, fileStatsMap := environmentConfig.GetValues()

	// Step 0.1: Find input files and their checksums.
	fileInfos, err := h.fileProcessor.ScanForFiles(filesPath)
	if err != nil {
		h.logger.Error("Failed to scan files", zap.Error(err))
		return err
	}
	if len(fileInfos) == 0 {
		h.logger.Info("No files to process", zap.String("path", filesPath))
		return nil
	}

	// Step 0.2: An empty table skips the per-row existence check.
	hasRecords, err := h.dbManager.HasVaccinationRecords()
	if err != nil {
		h.logger.Error("Failed to check existing records", zap.Error(err))
		return err
	}

	// Step 0.3: One staging table per DB worker.
	cleanup, stagingTableNames, err := h.setupDatabase()
	if err != nil {
		h.logger.Error("Failed to setup database", zap.Error(err))
		return err
	}
	defer cleanup()
	defer func() {
		h.logger.Info("Re-creating vaccination record indexes")
		if err := h.dbManager.CreateVaccinationRecordIndexes(); err != nil {
			h.logger.Error("Failed to re-create indexes", zap.Error(err))
		}
	}()

	// Step 0.4: Drop indexes while loading.
	h.logger.Info("Dropping vaccination record indexes")
	if err := h.dbManager.DropVaccinationRecordIndexes(); err != nil {
		h.logger.Warn("Failed to drop indexes", zap.Error(err))
	}

	// Step 0.5: Workers panic without channels and wait groups.
	h.asyncWorker.WithChannels(channels).WithWaitGroups(waitGroups)

	// Step 1: Build every runner before starting any goroutine, so a setup
	// failure leaves nothing running.
	// The dispatcher shares MainWg with the error worker.
	dispatcherWorkerRunner, _, err := h.asyncWorker.SetupJobDispatcherWorker(fileInfos, *fileMap)
	if err != nil {
		return err
	}
	errorWorkerRunner, mainWaitGroup, err := h.asyncWorker.SetupErrorWorker()
	if err != nil {
		return err
	}
	parserWorkersRunner, parserWorkerWaitGroup, err := h.asyncWorker.SetupParserWorkers(h.config.NumParserWorkers)
	if err != nil {
		return err
	}
	dbWorkersRunner, dbWorkerWaitGroup, err := h.asyncWorker.SetupDBWorkers(stagingTableNames)
	if err != nil {
		return err
	}

	// Step 2: DB workers drain the results channel in batches.
	err = dbWorkersRunner.Run(func(records *[]*models.VaccinationRecord, stagingTableName string) error {
		if !hasRecords {
			return h.dbManager.InsertAllStagingTableData(*records, stagingTableName)
		}
		return h.dbManager.InsertDiffFromStagingTable(*records, stagingTableName)
	})
	if err != nil {
		return err
	}

	// Step 3: Collect async errors per file.
	errorWorkerRunner.Run(fileErrorsMap)

	// Step 4: Parser workers read, validate and project files, fed by the
	// dispatcher.
	parserWorkersRunner.Run(fileStatsMap)
	dispatcherWorkerRunner.Run()

	// Step 5: Wait for all processing to complete.
	h.logger.Info("Waiting for parser workers to finish")
	parserWorkerWaitGroup.Wait()
	close(channels.Results)

	h.logger.Info("Waiting for DB workers to finish")
	dbWorkerWaitGroup.Wait()

	// Nothing else can produce errors now.
	close(channels.Errors)

	h.logger.Info("Waiting for error worker to finish")
	mainWaitGroup.Wait()

	// Step 6: Close every file record with its status and errors.
	if err := h.fileProcessor.UpdateFileStatus(fileErrorsMap, fileStatsMap, fileMap); err != nil {
		return err
	}

	h.logger.Info("Extraction process finished", zap.Int("files", len(*fileMap)))
	return nil
}

// RefreshViews regenerates and runs the per-country view scripts.
func (h *IngestionService) RefreshViews() error {
	countries, err := h.dbManager.DistinctCountries()
	if err != nil {
		return fmt.Errorf("failed to list countries: %w", err)
	}

	paths, err := h.viewGenerator.Generate(countries)
	if err != nil {
		return err
	}
	h.logger.Info("Generated view scripts", zap.Int("count", len(paths)))

	return h.viewGenerator.Execute(h.dbManager)
}

func (h *IngestionService) setupDatabase() (func(), []string, error) {
	h.logger.Info("Creating staging tables", zap.Int("count", h.config.NumDBWorkers))

	stagingTableNames, err := h.dbManager.CreateWorkerStagingTables(h.config.NumDBWorkers)
	if err != nil {
		return nil, nil, err
	}

	return func() {
		for _, tableName := range stagingTableNames {
			h.logger.Debug("Cleaning up staging table", zap.String("table", tableName))
			if err := h.dbManager.DropWorkerStagingTable(tableName); err != nil {
				h.logger.Warn("Failed to drop staging table", zap.String("table", tableName), zap.Error(err))
			}
		}
	}, stagingTableNames, nil
}
