package validator

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

// Reconciler maps arbitrarily named source columns onto the canonical schema.
type Reconciler struct {
	columns schema.ColumnMap
	logger  *zap.Logger
}

func NewReconciler(columns schema.ColumnMap, logger *zap.Logger) *Reconciler {
	return &Reconciler{columns: columns, logger: logger}
}

// Reconcile builds one canonical record per row of batch. When several source
// columns map to the same field, each record takes the first non-empty value
// in the column map's declared order. Unknown columns are dropped.
//
// With strict set, a batch lacking any mandatory field fails with a
// *MissingMandatoryColumnError before any record is built.
func (r *Reconciler) Reconcile(batch models.RawBatch, strict bool) ([]models.Record, error) {
	if len(batch.Rows) == 0 {
		return nil, &StructuralInputError{SourceID: batch.SourceID, Reason: "batch has no data rows"}
	}

	positions := make(map[string]int, len(batch.Columns))
	for i, col := range batch.Columns {
		name := schema.NormalizeHeader(col)
		if _, dup := positions[name]; !dup {
			positions[name] = i
		}
	}

	// Targets follow the order their first source column appears in the batch.
	var targets []schema.Field
	sources := make(map[schema.Field][]int)
	for _, col := range batch.Columns {
		target, ok := r.columns.Target(schema.NormalizeHeader(col))
		if !ok {
			continue
		}
		if _, seen := sources[target]; seen {
			continue
		}
		for _, src := range r.columns.SourcesFor(target) {
			if idx, ok := positions[src]; ok {
				sources[target] = append(sources[target], idx)
			}
		}
		targets = append(targets, target)
	}

	if len(targets) == 0 {
		return nil, &StructuralInputError{SourceID: batch.SourceID, Reason: "no column maps to a canonical field"}
	}

	present := make(map[schema.Field]bool, len(targets)+1)
	for _, t := range targets {
		present[t] = true
	}

	countryCode := ""
	if !present[schema.Country] && batch.SourceID != "" {
		countryCode = countryFromSource(batch.SourceID)
		present[schema.Country] = true
		r.logger.Info("Extracted country code from source identifier",
			zap.String("source", batch.SourceID),
			zap.String("country", countryCode))
	}

	if missing := missingFields(schema.MandatoryFields(), present); len(missing) > 0 {
		r.logger.Warn("Missing mandatory columns",
			zap.String("source", batch.SourceID),
			zap.Strings("columns", fieldNames(missing)))
		if strict {
			return nil, &MissingMandatoryColumnError{SourceID: batch.SourceID, Fields: missing}
		}
	}

	if missing := missingFields(schema.OptionalFields(), present); len(missing) > 0 {
		r.logger.Warn("Missing optional columns",
			zap.String("source", batch.SourceID),
			zap.Strings("columns", fieldNames(missing)))
	}

	records := make([]models.Record, len(batch.Rows))
	for i, row := range batch.Rows {
		record := make(models.Record, len(targets)+1)
		for _, t := range targets {
			record[t] = coalesce(row, sources[t])
		}
		if countryCode != "" {
			record[schema.Country] = countryCode
		}
		records[i] = record
	}

	final := make([]schema.Field, 0, len(present))
	for _, f := range schema.AllFields() {
		if present[f] {
			final = append(final, f)
		}
	}
	r.logger.Info("Final columns after mapping",
		zap.String("source", batch.SourceID),
		zap.Strings("columns", fieldNames(final)),
		zap.Int("rows", len(records)))

	return records, nil
}

// coalesce returns the first non-empty cell among indexes, or nil.
func coalesce(row []any, indexes []int) any {
	for _, idx := range indexes {
		if idx >= len(row) {
			continue
		}
		if v := row[idx]; !isEmpty(v) {
			return v
		}
	}
	return nil
}

func isEmpty(v any) bool {
	if v == nil {
		return true
	}
	s, ok := v.(string)
	return ok && s == ""
}

// countryFromSource follows the file naming convention where a source id
// starts with a three letter country code, e.g. "USA_2024.csv".
func countryFromSource(sourceID string) string {
	runes := []rune(sourceID)
	if len(runes) > 3 {
		runes = runes[:3]
	}
	return strings.ToUpper(string(runes))
}

func missingFields(fields []schema.Field, present map[schema.Field]bool) []schema.Field {
	var missing []schema.Field
	for _, f := range fields {
		if !present[f] {
			missing = append(missing, f)
		}
	}
	return missing
}

func fieldNames(fields []schema.Field) []string {
	names := make([]string, len(fields))
	for i, f := range fields {
		names[i] = string(f)
	}
	return names
}
