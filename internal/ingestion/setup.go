package ingestion

import (
	"sync"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
)

type ISetup interface {
	build() (models.SetupReturn, error)
}

type Setup struct {
	ResultsChannelSize int
}

// Instantiate all channels and data structures used by one ingestion run.
// Kept apart so tests can inject their own.
func (h Setup) build() (models.SetupReturn, error) {
	size := h.ResultsChannelSize
	if size <= 0 {
		size = 1000
	}

	channels := models.ExtractionChannels{
		Results: make(chan *models.VaccinationRecord, size),
		Errors:  make(chan models.AppError, 100),
		Jobs:    make(chan models.FileProcessingJob, 100),
	}

	var parserWg, dbWg, mainWg sync.WaitGroup
	fileMap := make(models.FileMap)
	return models.SetupReturn{
		Channels:      &channels,
		WaitGroups:    &models.ExtractionWaitGroups{ParserWg: &parserWg, DbWg: &dbWg, MainWg: &mainWg},
		FileMap:       &fileMap,
		FileErrorsMap: &models.FileErrorMap{Errors: make(map[int][]models.AppError)},
		FileStatsMap:  &models.FileStatsMap{Stats: make(map[int]models.FileStats)},
	}, nil
}
