package database

import (
	"time"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
)

const (
	FILE_STATUS_DONE             = "DONE"
	FILE_STATUS_DONE_WITH_ERRORS = "DONE_WITH_ERRORS"
	FILE_STATUS_PROCESSING       = "PROCESSING"
	FILE_STATUS_FATAL            = "FATAL"
)

type DBManager interface {
	CreateFileRecordsTable() error
	CreateVaccinationRecordsTable() error
	CreateVaccinationRecordIndexes() error
	DropVaccinationRecordIndexes() error
	InsertFileRecord(fileName string, date time.Time, status string, checksum string, runID string) (int, error)
	UpdateFileStatus(fileID int, status string, errors any) error
	IsFileAlreadyProcessed(checksum string) (bool, error)
	HasVaccinationRecords() (bool, error)
	CreateWorkerStagingTables(numTables int) ([]string, error)
	DropWorkerStagingTable(tableName string) error
	InsertAllStagingTableData(records []*models.VaccinationRecord, stagingTableName string) error
	InsertDiffFromStagingTable(records []*models.VaccinationRecord, stagingTableName string) error
	DistinctCountries() ([]string, error)
	ExecuteSQL(query string) error
	GetCountrySummary(country string) (*models.CountrySummary, error)
}
