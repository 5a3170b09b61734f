package parser

import (
	"fmt"

	"github.com/xuri/excelize/v2"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
)

// ReadXLSX reads the first sheet of a workbook. Its first row is the header.
func ReadXLSX(path, sourceID string) (models.RawBatch, error) {
	f, err := excelize.OpenFile(path)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("failed to open workbook %s: %w", path, err)
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return models.RawBatch{}, fmt.Errorf("workbook %s has no sheets", path)
	}

	rows, err := f.GetRows(sheets[0])
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("failed to read sheet %s of %s: %w", sheets[0], path, err)
	}
	if len(rows) == 0 {
		return models.RawBatch{}, fmt.Errorf("sheet %s of %s is empty, no header row found", sheets[0], path)
	}

	batch := models.RawBatch{SourceID: sourceID, Columns: rows[0]}
	for _, record := range rows[1:] {
		batch.Rows = append(batch.Rows, toRow(record))
	}
	return batch, nil
}
