package ingestion

import (
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/database"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/parser"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/validator"
	"github.com/ThiagoRGoveia/vaccination-etl/pkg/checksum"
)

// maxErrorsPerFile caps the errors kept for one file. Past that the file is
// probably malformed and the rest are only logged.
const maxErrorsPerFile = 100

type Runner[T any] struct {
	Run T
}

type AsyncWorkerConfig struct {
	DBBatchSize int
	Strict      bool
	RunID       string
}

// BatchHandler persists one batch of records through a staging table.
type BatchHandler func(records *[]*models.VaccinationRecord, stagingTableName string) error

// Reporter stores the invalid records of one source for manual review.
type Reporter interface {
	Write(sourceID string, invalid []models.InvalidRecord) (string, error)
}

// Worker defines the interface for asynchronous processing tasks.
type Worker interface {
	WithChannels(channels *models.ExtractionChannels) Worker
	WithWaitGroups(waitGroups *models.ExtractionWaitGroups) Worker
	SetupErrorWorker() (Runner[func(*models.FileErrorMap)], *sync.WaitGroup, error)
	SetupParserWorkers(numberOfWorkers int) (Runner[func(*models.FileStatsMap)], *sync.WaitGroup, error)
	SetupDBWorkers(stagingTableNames []string) (Runner[func(BatchHandler) error], *sync.WaitGroup, error)
	SetupJobDispatcherWorker(fileInfos []models.FileInfo, fileMap models.FileMap) (Runner[func()], *sync.WaitGroup, error)
}

type AsyncWorker struct {
	config     AsyncWorkerConfig
	dbManager  database.DBManager
	validator  *validator.Validator
	reporter   Reporter
	logger     *zap.Logger
	channels   *models.ExtractionChannels
	waitGroups *models.ExtractionWaitGroups
}

func NewAsyncWorker(dbManager database.DBManager, v *validator.Validator, reporter Reporter, logger *zap.Logger, cfg AsyncWorkerConfig) *AsyncWorker {
	return &AsyncWorker{
		dbManager: dbManager,
		validator: v,
		reporter:  reporter,
		logger:    logger,
		config:    cfg,
	}
}

func (w *AsyncWorker) WithChannels(channels *models.ExtractionChannels) Worker {
	w.channels = channels
	return w
}

func (w *AsyncWorker) WithWaitGroups(waitGroups *models.ExtractionWaitGroups) Worker {
	w.waitGroups = waitGroups
	return w
}

// ParserWorker reads, validates and projects every file job it receives and
// forwards admitted records to the DB workers.
func (w *AsyncWorker) ParserWorker(fileStatsMap *models.FileStatsMap) {
	defer w.waitGroups.ParserWg.Done()
	for job := range w.channels.Jobs {
		w.logger.Info("Parser worker started job", zap.String("path", job.FilePath), zap.Int("file_id", job.FileID))
		stats := w.processJob(job)
		fileStatsMap.Set(job.FileID, stats)
		w.logger.Info("Parser worker finished job", zap.String("path", job.FilePath), zap.Int("file_id", job.FileID))
	}
}

func (w *AsyncWorker) processJob(job models.FileProcessingJob) models.FileStats {
	batch, err := parser.ReadFile(job.FilePath)
	if err != nil {
		w.channels.Errors <- models.AppError{FileID: job.FileID, Message: "Failed to open or read file", Err: err}
		return models.FileStats{Fatal: true}
	}

	stats := models.FileStats{Rows: len(batch.Rows)}

	result, err := w.validator.Validate(batch, w.config.Strict)
	if err != nil {
		message := "Batch validation failed"
		var missing *validator.MissingMandatoryColumnError
		if errors.As(err, &missing) {
			message = "Missing mandatory columns"
		}
		w.channels.Errors <- models.AppError{FileID: job.FileID, Message: message, Err: err}
		stats.Fatal = true
		return stats
	}

	if _, err := w.reporter.Write(batch.SourceID, result.Invalid); err != nil {
		w.channels.Errors <- models.AppError{FileID: job.FileID, Message: "Failed to write invalid records report", Err: err}
	}
	// Row-level rejects go to the report and the stats only.
	stats.Invalid = len(result.Invalid)

	for _, values := range w.validator.SelectValid(result.Clean) {
		w.channels.Results <- &models.VaccinationRecord{
			FileID:   job.FileID,
			CheckSum: recordChecksum(values),
			Values:   values,
		}
		stats.Admitted++
	}
	return stats
}

func (w *AsyncWorker) SetupParserWorkers(numberOfWorkers int) (Runner[func(*models.FileStatsMap)], *sync.WaitGroup, error) {
	if numberOfWorkers < 1 {
		return Runner[func(*models.FileStatsMap)]{}, nil, fmt.Errorf("at least one parser worker is required, got %d", numberOfWorkers)
	}
	return Runner[func(*models.FileStatsMap)]{
		Run: func(fileStatsMap *models.FileStatsMap) {
			for i := 1; i <= numberOfWorkers; i++ {
				w.waitGroups.ParserWg.Add(1)
				go w.ParserWorker(fileStatsMap)
			}
		},
	}, w.waitGroups.ParserWg, nil
}

func (w *AsyncWorker) DbWorker(workerId int, stagingTableName string, dbHandler BatchHandler) {
	w.logger.Info("DB worker started", zap.Int("worker", workerId), zap.String("staging_table", stagingTableName))
	defer w.waitGroups.DbWg.Done()
	records := make([]*models.VaccinationRecord, 0, w.config.DBBatchSize)

	for result := range w.channels.Results {
		records = append(records, result)
		if len(records) >= w.config.DBBatchSize {
			w.flush(workerId, stagingTableName, &records, dbHandler, "Failed to insert batch of records")
			records = records[:0]
		}
	}

	if len(records) > 0 {
		w.flush(workerId, stagingTableName, &records, dbHandler, "Failed to insert remaining batch of records")
	}

	w.logger.Info("DB worker finished", zap.Int("worker", workerId))
}

func (w *AsyncWorker) flush(workerId int, stagingTableName string, records *[]*models.VaccinationRecord, dbHandler BatchHandler, failure string) {
	w.logger.Debug("Inserting batch", zap.Int("worker", workerId), zap.Int("records", len(*records)), zap.String("staging_table", stagingTableName))
	err := dbHandler(records, stagingTableName)
	if err == nil {
		return
	}
	// report once for each file present in the failed batch
	fileIDs := make(map[int]bool)
	for _, record := range *records {
		fileIDs[record.FileID] = true
	}
	for fileID := range fileIDs {
		w.channels.Errors <- models.AppError{FileID: fileID, Message: failure, Err: err}
	}
}

func (w *AsyncWorker) SetupDBWorkers(stagingTableNames []string) (Runner[func(BatchHandler) error], *sync.WaitGroup, error) {
	if len(stagingTableNames) == 0 {
		return Runner[func(BatchHandler) error]{}, nil, errors.New("no staging tables available for DB workers")
	}
	return Runner[func(BatchHandler) error]{
		Run: func(dbHandler BatchHandler) error {
			if dbHandler == nil {
				return errors.New("db handler is required")
			}
			for i, tableName := range stagingTableNames {
				w.waitGroups.DbWg.Add(1)
				go w.DbWorker(i+1, tableName, dbHandler)
			}
			return nil
		},
	}, w.waitGroups.DbWg, nil
}

func (w *AsyncWorker) ErrorWorker(fileErrorsMap *models.FileErrorMap) {
	defer w.waitGroups.MainWg.Done()
	for appErr := range w.channels.Errors {
		w.logger.Warn("Caught error", zap.Int("file_id", appErr.FileID), zap.String("error", appErr.Error()))
		if appErr.FileID == -1 {
			continue
		}
		fileErrorsMap.Mu.Lock()
		if len(fileErrorsMap.Errors[appErr.FileID]) < maxErrorsPerFile {
			fileErrorsMap.Errors[appErr.FileID] = append(fileErrorsMap.Errors[appErr.FileID], appErr)
		} else {
			w.logger.Debug("File has too many errors, dropping", zap.Int("file_id", appErr.FileID))
		}
		fileErrorsMap.Mu.Unlock()
	}
}

// PreprocessAndDispatchJobs registers every new file and hands it to the
// parser workers. Files whose checksum was already loaded, or that repeat
// an earlier file of this run, are skipped.
func (w *AsyncWorker) PreprocessAndDispatchJobs(fileInfos []models.FileInfo, fileMap models.FileMap) {
	defer close(w.channels.Jobs)
	defer w.waitGroups.MainWg.Done()

	seen := make(map[string]string, len(fileInfos))
	for _, fileInfo := range fileInfos {
		if first, dup := seen[fileInfo.CheckSum]; dup {
			w.logger.Info("File has the same content as another file of this run, skipping",
				zap.String("path", fileInfo.Path), zap.String("same_as", first))
			continue
		}
		seen[fileInfo.CheckSum] = fileInfo.Path

		isProcessed, err := w.dbManager.IsFileAlreadyProcessed(fileInfo.CheckSum)
		if err != nil {
			w.logger.Error("Failed to check if file is already processed, skipping", zap.String("path", fileInfo.Path), zap.Error(err))
			continue
		}
		if isProcessed {
			w.logger.Info("File has already been processed, skipping", zap.String("path", fileInfo.Path), zap.String("checksum", fileInfo.CheckSum))
			continue
		}

		fileID, err := w.dbManager.InsertFileRecord(
			fileInfo.Path,
			time.Now(),
			database.FILE_STATUS_PROCESSING,
			fileInfo.CheckSum,
			w.config.RunID,
		)
		if err != nil {
			w.logger.Error("Failed to insert file record, skipping", zap.String("path", fileInfo.Path), zap.Error(err))
			continue
		}

		fileMap[fileID] = fileInfo.Path

		w.logger.Info("Dispatching job", zap.String("path", fileInfo.Path), zap.Int("file_id", fileID))
		w.channels.Jobs <- models.FileProcessingJob{FilePath: fileInfo.Path, SourceID: fileInfo.SourceID, FileID: fileID}
	}
}

func (w *AsyncWorker) SetupJobDispatcherWorker(fileInfos []models.FileInfo, fileMap models.FileMap) (Runner[func()], *sync.WaitGroup, error) {
	return Runner[func()]{
		Run: func() {
			w.waitGroups.MainWg.Add(1)
			go w.PreprocessAndDispatchJobs(fileInfos, fileMap)
		},
	}, w.waitGroups.MainWg, nil
}

func (w *AsyncWorker) SetupErrorWorker() (Runner[func(*models.FileErrorMap)], *sync.WaitGroup, error) {
	return Runner[func(*models.FileErrorMap)]{
		Run: func(fileErrorsMap *models.FileErrorMap) {
			w.waitGroups.MainWg.Add(1)
			go w.ErrorWorker(fileErrorsMap)
		},
	}, w.waitGroups.MainWg, nil
}

// recordChecksum identifies a record by its column values, independent of
// the file it came from.
func recordChecksum(values models.ExternalRecord) string {
	keys := make([]string, 0, len(values))
	for k := range values {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	parts := make([]string, len(keys))
	for i, k := range keys {
		v := values[k]
		if v == nil {
			parts[i] = k + "="
			continue
		}
		parts[i] = fmt.Sprintf("%s=%v", k, v)
	}
	return checksum.CalculateCheckSum(parts)
}
