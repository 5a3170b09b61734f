package ingestion

import (
	"fmt"
	"io/fs"
	"path/filepath"
	"sort"

	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/database"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/parser"
	"github.com/ThiagoRGoveia/vaccination-etl/pkg/checksum"
)

// Processor defines the interface for file processing operations.
type Processor interface {
	ScanForFiles(rootPath string) ([]models.FileInfo, error)
	UpdateFileStatus(fileErrorsMap *models.FileErrorMap, fileStatsMap *models.FileStatsMap, fileMap *models.FileMap) error
}

// FileProcessor discovers input files and records the outcome of each one.
type FileProcessor struct {
	dbManager   database.DBManager
	logger      *zap.Logger
	concurrency int
}

func NewFileProcessor(dbManager database.DBManager, logger *zap.Logger, concurrency int) *FileProcessor {
	if concurrency <= 0 {
		concurrency = 1
	}
	return &FileProcessor{
		dbManager:   dbManager,
		logger:      logger,
		concurrency: concurrency,
	}
}

// ScanForFiles walks rootPath for .csv and .xlsx files and checksums them
// concurrently. Files that cannot be hashed are skipped. The result is
// sorted by path.
func (fp *FileProcessor) ScanForFiles(rootPath string) ([]models.FileInfo, error) {
	fp.logger.Info("Scanning for files", zap.String("path", rootPath))

	var paths []string
	err := filepath.WalkDir(rootPath, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.IsDir() {
			return nil
		}
		if !parser.IsSupported(path) {
			fp.logger.Debug("Skipping unsupported file", zap.String("path", path))
			return nil
		}
		paths = append(paths, path)
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("error walking directory %s: %w", rootPath, err)
	}
	sort.Strings(paths)

	infos := make([]*models.FileInfo, len(paths))
	var g errgroup.Group
	g.SetLimit(fp.concurrency)
	for i, path := range paths {
		g.Go(func() error {
			sum, err := checksum.GetFileChecksum(path)
			if err != nil {
				fp.logger.Warn("Could not checksum file, skipping", zap.String("path", path), zap.Error(err))
				return nil
			}
			infos[i] = &models.FileInfo{Path: path, SourceID: filepath.Base(path), CheckSum: sum}
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	fileInfos := make([]models.FileInfo, 0, len(infos))
	for _, info := range infos {
		if info != nil {
			fileInfos = append(fileInfos, *info)
		}
	}

	fp.logger.Info("Found files to process", zap.Int("count", len(fileInfos)))
	return fileInfos, nil
}

// UpdateFileStatus closes the file_records row of every dispatched file.
func (fp *FileProcessor) UpdateFileStatus(fileErrorsMap *models.FileErrorMap, fileStatsMap *models.FileStatsMap, fileMap *models.FileMap) error {
	for fileID, path := range *fileMap {
		appErrors := fileErrorsMap.Errors[fileID]
		stats := fileStatsMap.Get(fileID)

		status := database.FILE_STATUS_DONE
		switch {
		case stats.Fatal:
			status = database.FILE_STATUS_FATAL
		case len(appErrors) > 0:
			status = database.FILE_STATUS_DONE_WITH_ERRORS
		}

		if err := fp.dbManager.UpdateFileStatus(fileID, status, appErrors); err != nil {
			fp.logger.Error("Failed to update file status", zap.Int("file_id", fileID), zap.Error(err))
			continue
		}

		fp.logger.Info("File processed",
			zap.String("path", path),
			zap.String("status", status),
			zap.Int("rows", stats.Rows),
			zap.Int("admitted", stats.Admitted),
			zap.Int("invalid", stats.Invalid),
			zap.Int("errors", len(appErrors)))
	}
	return nil
}
