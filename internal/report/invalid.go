// Package report writes invalid records to CSV files for manual review.
package report

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/dates"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

const (
	fieldColumn  = "Invalid_Field"
	reasonColumn = "Validation_Error"
)

type Writer struct {
	dir    string
	logger *zap.Logger
	now    func() time.Time
}

func NewWriter(dir string, logger *zap.Logger) *Writer {
	return &Writer{dir: dir, logger: logger, now: time.Now}
}

// Write saves invalid as invalid_records_<source>_<timestamp>.csv and returns
// the file path. Nothing is written for an empty slice.
func (w *Writer) Write(sourceID string, invalid []models.InvalidRecord) (string, error) {
	if len(invalid) == 0 {
		return "", nil
	}

	if err := os.MkdirAll(w.dir, 0755); err != nil {
		return "", fmt.Errorf("failed to create report directory %s: %w", w.dir, err)
	}

	name := fmt.Sprintf("invalid_records_%s_%s.csv", sourceStem(sourceID), w.now().Format("20060102_150405"))
	path := filepath.Join(w.dir, name)

	file, err := os.Create(path)
	if err != nil {
		return "", fmt.Errorf("failed to create report %s: %w", path, err)
	}
	defer file.Close()

	fields := presentFields(invalid)
	header := make([]string, 0, len(fields)+2)
	for _, f := range fields {
		header = append(header, string(f))
	}
	header = append(header, fieldColumn, reasonColumn)

	out := csv.NewWriter(file)
	if err := out.Write(header); err != nil {
		return "", fmt.Errorf("failed to write report header: %w", err)
	}

	for _, inv := range invalid {
		row := make([]string, 0, len(header))
		for _, f := range fields {
			row = append(row, formatValue(inv.Record[f]))
		}
		row = append(row, string(inv.Field), inv.Reason)
		if err := out.Write(row); err != nil {
			return "", fmt.Errorf("failed to write report row: %w", err)
		}
	}

	out.Flush()
	if err := out.Error(); err != nil {
		return "", fmt.Errorf("failed to flush report %s: %w", path, err)
	}

	w.logger.Info("Saved invalid records", zap.Int("count", len(invalid)), zap.String("path", path))
	for _, inv := range invalid {
		w.logger.Info("Invalid record",
			zap.String("customer_id", formatValue(inv.Record[schema.CustomerId])),
			zap.String("customer_name", formatValue(inv.Record[schema.CustomerName])),
			zap.String("field", string(inv.Field)),
			zap.String("reason", inv.Reason))
	}

	return path, nil
}

// presentFields returns the canonical fields set on any of the records, in
// schema order.
func presentFields(invalid []models.InvalidRecord) []schema.Field {
	var fields []schema.Field
	for _, f := range schema.AllFields() {
		for _, inv := range invalid {
			if _, ok := inv.Record[f]; ok {
				fields = append(fields, f)
				break
			}
		}
	}
	return fields
}

func sourceStem(sourceID string) string {
	if sourceID == "" {
		return "batch"
	}
	base := filepath.Base(sourceID)
	stem := strings.TrimSuffix(base, filepath.Ext(base))
	return strings.Map(func(r rune) rune {
		switch r {
		case ' ', '/', '\\', ':':
			return '_'
		}
		return r
	}, stem)
}

func formatValue(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case dates.Date:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
