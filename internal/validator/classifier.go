package validator

import (
	"fmt"
	"strconv"
	"time"

	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/dates"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

// Classifier coerces canonical records and validates their dates.
type Classifier struct {
	logger *zap.Logger
}

func NewClassifier(logger *zap.Logger) *Classifier {
	return &Classifier{logger: logger}
}

// Classify returns cleaned copies of records plus the mandatory date failures.
// A record whose OpenDate fails keeps its place in the clean slice with the
// field nulled; the Filter decides admission. Optional date failures are only
// logged. Valid dates are stored as dates.Date.
func (c *Classifier) Classify(records []models.Record) ([]models.Record, []models.InvalidRecord) {
	cleaned := make([]models.Record, len(records))
	var invalid []models.InvalidRecord
	failures := make(map[schema.Field]int)

	for i, source := range records {
		record := source.Clone()

		for _, f := range schema.StringFields() {
			if v, ok := record[f]; ok {
				record[f] = coerceText(v)
			}
		}

		for _, f := range schema.MandatoryDateFields() {
			v, ok := record[f]
			if !ok {
				continue
			}
			d, err := dates.Parse(textOf(v))
			if err != nil {
				invalid = append(invalid, models.InvalidRecord{
					Record: record.Clone(),
					Field:  f,
					Reason: err.Error(),
					Row:    i,
				})
				failures[f]++
				c.logger.Warn("Invalid mandatory date",
					zap.String("field", string(f)),
					zap.Any("customer_id", record[schema.CustomerId]),
					zap.String("reason", err.Error()))
				record[f] = nil
				continue
			}
			record[f] = d
		}

		for _, f := range schema.OptionalDateFields() {
			v, ok := record[f]
			if !ok {
				continue
			}
			d, err := dates.Parse(textOf(v))
			if err != nil {
				failures[f]++
				c.logger.Info("Invalid optional date",
					zap.String("field", string(f)),
					zap.Any("customer_id", record[schema.CustomerId]),
					zap.String("reason", err.Error()))
				record[f] = nil
				continue
			}
			record[f] = d
		}

		cleaned[i] = record
	}

	for f, n := range failures {
		c.logger.Info("Date validation summary",
			zap.String("field", string(f)),
			zap.Bool("mandatory", f.IsMandatory()),
			zap.Int("invalid", n))
	}

	return cleaned, invalid
}

// coerceText converts a scalar cell to text. nil stays nil.
func coerceText(v any) any {
	if v == nil {
		return nil
	}
	return textOf(v)
}

func textOf(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	case float32:
		return strconv.FormatFloat(float64(t), 'f', -1, 32)
	case int:
		return strconv.Itoa(t)
	case int64:
		return strconv.FormatInt(t, 10)
	case bool:
		return strconv.FormatBool(t)
	case time.Time:
		return dates.FromTime(t).String()
	case dates.Date:
		return t.String()
	case fmt.Stringer:
		return t.String()
	default:
		return fmt.Sprint(t)
	}
}
