// Package validator reconciles heterogeneous source batches into canonical
// records, classifies them and selects the ones ready to persist.
package validator

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

const headerMarkerPrefix = "|H|"

// Result holds the classified records of one batch.
type Result struct {
	Clean   []models.Record
	Invalid []models.InvalidRecord
}

// Validator runs the batch-level steps in order: legacy header marker,
// column reconciliation, classification. It holds no per-batch state and can
// be shared between goroutines.
type Validator struct {
	reconciler *Reconciler
	classifier *Classifier
	filter     *Filter
	logger     *zap.Logger
}

func New(columns schema.ColumnMap, external schema.ExternalMap, logger *zap.Logger) *Validator {
	return &Validator{
		reconciler: NewReconciler(columns, logger),
		classifier: NewClassifier(logger),
		filter:     NewFilter(external, logger),
		logger:     logger,
	}
}

// Validate reconciles and classifies batch. Structural problems abort the
// batch with an error; row-level problems are returned in Result.Invalid.
func (v *Validator) Validate(batch models.RawBatch, strict bool) (Result, error) {
	v.logger.Info("Starting batch validation",
		zap.String("source", batch.SourceID),
		zap.Int("rows", len(batch.Rows)),
		zap.Int("columns", len(batch.Columns)))

	batch = v.stripHeaderMarker(batch)

	records, err := v.reconciler.Reconcile(batch, strict)
	if err != nil {
		v.logger.Error("Batch validation failed", zap.String("source", batch.SourceID), zap.Error(err))
		return Result{}, err
	}

	clean, invalid := v.classifier.Classify(records)
	for i := range invalid {
		invalid[i].SourceID = batch.SourceID
	}

	v.logger.Info("Batch validation completed",
		zap.String("source", batch.SourceID),
		zap.Int("clean", len(clean)),
		zap.Int("invalid", len(invalid)))

	return Result{Clean: clean, Invalid: invalid}, nil
}

func (v *Validator) SelectValid(records []models.Record) []models.ExternalRecord {
	return v.filter.SelectValid(records)
}

// stripHeaderMarker removes the legacy "|H|..." sentinel row. When the first
// row carries the marker, every row whose first cell starts with "|" is
// dropped and the marker is compared with schema.ExpectedHeader.
func (v *Validator) stripHeaderMarker(batch models.RawBatch) models.RawBatch {
	if len(batch.Rows) == 0 {
		return batch
	}

	header, found := findHeaderMarker(batch.Rows[0])
	if !found {
		return batch
	}

	rows := make([][]any, 0, len(batch.Rows))
	for _, row := range batch.Rows {
		if len(row) > 0 {
			if s, ok := row[0].(string); ok && strings.HasPrefix(s, "|") {
				continue
			}
		}
		rows = append(rows, row)
	}
	v.logger.Info("Stripped legacy header rows",
		zap.String("source", batch.SourceID),
		zap.Int("removed", len(batch.Rows)-len(rows)))

	if header != schema.ExpectedHeader {
		v.logger.Warn("Header does not match expected format",
			zap.String("source", batch.SourceID),
			zap.String("expected", schema.ExpectedHeader),
			zap.String("received", header))
	}

	batch.Rows = rows
	return batch
}

func findHeaderMarker(row []any) (string, bool) {
	for _, cell := range row {
		if s, ok := cell.(string); ok && strings.HasPrefix(s, headerMarkerPrefix) {
			return s, true
		}
	}
	return "", false
}
