package models

import (
	"encoding/json"
	"fmt"
	"sync"
	"time"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

// RawBatch is one tabular input as read from a source: ordered column names,
// row cells (string or scalar, nil when missing) and the source identifier,
// usually the file name.
type RawBatch struct {
	SourceID string
	Columns  []string
	Rows     [][]any
}

// Record is a canonical record. A nil value or a missing key is null.
type Record map[schema.Field]any

func (r Record) Clone() Record {
	out := make(Record, len(r))
	for k, v := range r {
		out[k] = v
	}
	return out
}

// InvalidRecord is a rejected field value with the reason it failed. Record
// holds the values as they were before the field was nulled.
type InvalidRecord struct {
	Record   Record
	Field    schema.Field
	Reason   string
	SourceID string
	Row      int
}

// ExternalRecord is an admitted record keyed by warehouse column name.
type ExternalRecord map[string]any

// VaccinationRecord is what DB workers persist.
type VaccinationRecord struct {
	FileID   int
	CheckSum string
	Values   ExternalRecord
}

type AppError struct {
	FileID  int
	Message string
	Err     error
	Record  *VaccinationRecord
}

func (e *AppError) Error() string {
	var recordDetails string
	if e.Record != nil {
		recordJSON, err := json.Marshal(e.Record.Values)
		if err != nil {
			recordDetails = "failed to marshal record to JSON"
		} else {
			recordDetails = string(recordJSON)
		}
	}

	if e.Err != nil {
		if recordDetails != "" {
			return fmt.Sprintf("FileID %d: %s - %v - Record: %s", e.FileID, e.Message, e.Err, recordDetails)
		}
		return fmt.Sprintf("FileID %d: %s - %v", e.FileID, e.Message, e.Err)
	}

	if recordDetails != "" {
		return fmt.Sprintf("FileID %d: %s - Record: %s", e.FileID, e.Message, recordDetails)
	}

	return fmt.Sprintf("FileID %d: %s", e.FileID, e.Message)
}

// MarshalJSON keeps the wrapped error readable in the file_records.errors column.
func (e AppError) MarshalJSON() ([]byte, error) {
	var errText string
	if e.Err != nil {
		errText = e.Err.Error()
	}
	return json.Marshal(struct {
		FileID  int    `json:"file_id"`
		Message string `json:"message"`
		Err     string `json:"error,omitempty"`
	}{e.FileID, e.Message, errText})
}

type FileProcessingJob struct {
	FilePath string
	SourceID string
	FileID   int
}

type FileInfo struct {
	Path     string
	SourceID string
	CheckSum string
}

type FileErrorMap struct {
	Errors map[int][]AppError
	Mu     sync.Mutex
}

// FileStats counts what happened to the rows of one file.
type FileStats struct {
	Rows     int
	Admitted int
	Invalid  int
	// Fatal is set when the file could not be read or failed batch-level
	// validation.
	Fatal bool
}

type FileStatsMap struct {
	Stats map[int]FileStats
	Mu    sync.Mutex
}

func (m *FileStatsMap) Set(fileID int, stats FileStats) {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	m.Stats[fileID] = stats
}

func (m *FileStatsMap) Get(fileID int) FileStats {
	m.Mu.Lock()
	defer m.Mu.Unlock()
	return m.Stats[fileID]
}

type ExtractionChannels struct {
	Results chan *VaccinationRecord
	Errors  chan AppError
	Jobs    chan FileProcessingJob
}

type ExtractionWaitGroups struct {
	ParserWg *sync.WaitGroup
	DbWg     *sync.WaitGroup
	MainWg   *sync.WaitGroup
}

type FileMap = map[int]string

type SetupReturn struct {
	Channels      *ExtractionChannels
	WaitGroups    *ExtractionWaitGroups
	FileMap       *FileMap
	FileErrorsMap *FileErrorMap
	FileStatsMap  *FileStatsMap
}

func (s *SetupReturn) GetValues() (*ExtractionChannels, *ExtractionWaitGroups, *FileMap, *FileErrorMap, *FileStatsMap) {
	return s.Channels, s.WaitGroups, s.FileMap, s.FileErrorsMap, s.FileStatsMap
}

// CountrySummary is served by the API for one country.
type CountrySummary struct {
	Country       string     `json:"country"`
	Records       int64      `json:"records"`
	Customers     int64      `json:"customers"`
	LastConsulted *time.Time `json:"last_consulted,omitempty"`
}
