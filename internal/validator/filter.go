package validator

import (
	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

// Filter selects the records ready to persist and renames them for the
// warehouse. It does no validation of its own.
type Filter struct {
	external schema.ExternalMap
	logger   *zap.Logger
}

func NewFilter(external schema.ExternalMap, logger *zap.Logger) *Filter {
	return &Filter{external: external, logger: logger}
}

// SelectValid admits a record when OpenDate is set and CustomerName and
// CustomerId are set and non-empty as text.
func (f *Filter) SelectValid(records []models.Record) []models.ExternalRecord {
	admitted := make([]models.ExternalRecord, 0, len(records))
	for i, record := range records {
		if field, ok := f.rejectedBy(record); ok {
			f.logger.Debug("Record excluded, mandatory field missing",
				zap.Int("row", i),
				zap.String("field", string(field)))
			continue
		}
		admitted = append(admitted, f.project(record))
	}

	f.logger.Info("Filtered valid records",
		zap.Int("total", len(records)),
		zap.Int("admitted", len(admitted)))
	return admitted
}

func (f *Filter) rejectedBy(record models.Record) (schema.Field, bool) {
	for _, field := range schema.MandatoryDateFields() {
		if record[field] == nil {
			return field, true
		}
	}
	for _, field := range schema.MandatoryFields() {
		if isDateField(field) {
			continue
		}
		if v := record[field]; v == nil || textOf(v) == "" {
			return field, true
		}
	}
	return "", false
}

func isDateField(field schema.Field) bool {
	for _, d := range schema.MandatoryDateFields() {
		if d == field {
			return true
		}
	}
	return false
}

func (f *Filter) project(record models.Record) models.ExternalRecord {
	out := make(models.ExternalRecord, len(record))
	for field, v := range record {
		out[f.external.Name(field)] = v
	}
	return out
}
