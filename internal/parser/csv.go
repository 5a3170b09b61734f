package parser

import (
	"bytes"
	"encoding/csv"
	"errors"
	"fmt"
	"io"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
)

// Cells spelled like this are read as missing values.
var nullTokens = map[string]struct{}{
	"":     {},
	"NA":   {},
	"N/A":  {},
	"n/a":  {},
	"NaN":  {},
	"nan":  {},
	"NULL": {},
	"null": {},
	"None": {},
	"<NA>": {},
	"#N/A": {},
}

// ReadCSV reads comma separated data whose first line is the header.
func ReadCSV(r io.Reader, sourceID string) (models.RawBatch, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("failed to read %s: %w", sourceID, err)
	}

	decoded, _, err := decode(data)
	if err != nil {
		return models.RawBatch{}, fmt.Errorf("failed to decode %s: %w", sourceID, err)
	}

	reader := csv.NewReader(bytes.NewReader(decoded))
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true

	header, err := reader.Read()
	if err != nil {
		if errors.Is(err, io.EOF) {
			return models.RawBatch{}, fmt.Errorf("file %s is empty, no header row found", sourceID)
		}
		return models.RawBatch{}, fmt.Errorf("failed to read header from %s: %w", sourceID, err)
	}

	batch := models.RawBatch{SourceID: sourceID, Columns: header}
	for {
		record, err := reader.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return models.RawBatch{}, fmt.Errorf("failed to read record from %s: %w", sourceID, err)
		}
		batch.Rows = append(batch.Rows, toRow(record))
	}

	return batch, nil
}

func toRow(record []string) []any {
	row := make([]any, len(record))
	for i, v := range record {
		row[i] = cell(v)
	}
	return row
}

func cell(v string) any {
	if _, null := nullTokens[v]; null {
		return nil
	}
	return v
}
