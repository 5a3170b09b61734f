package validator

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

func newObservedLogger() (*zap.Logger, *observer.ObservedLogs) {
	core, logs := observer.New(zapcore.DebugLevel)
	return zap.New(core), logs
}

func TestReconciler_Coalescing(t *testing.T) {
	reconciler := NewReconciler(schema.DefaultColumnMap(), zap.NewNop())

	batch := models.RawBatch{
		SourceID: "IND_2024.csv",
		Columns:  []string{"Unique ID", "Patient Name", "DOB", "Date of Birth", "Date of Vaccination", "Country"},
		Rows: [][]any{
			{"1", "Asha", "01011990", "02021991", "03032023", "IND"},
			{"2", "Ravi", "04041992", "", "03032023", "IND"},
			{"3", "Mira", nil, nil, "03032023", "IND"},
		},
	}

	records, err := reconciler.Reconcile(batch, false)
	require.NoError(t, err)
	require.Len(t, records, 3)

	// "Date of Birth" is declared before "DOB" in the column map.
	assert.Equal(t, "02021991", records[0][schema.DateOfBirth])
	assert.Equal(t, "04041992", records[1][schema.DateOfBirth])
	assert.Nil(t, records[2][schema.DateOfBirth])
	assert.Contains(t, records[2], schema.DateOfBirth)

	assert.Equal(t, "1", records[0][schema.CustomerId])
	assert.Equal(t, "Asha", records[0][schema.CustomerName])
	assert.Equal(t, "03032023", records[0][schema.OpenDate])
}

func TestReconciler_PrecedenceIgnoresBatchColumnOrder(t *testing.T) {
	reconciler := NewReconciler(schema.DefaultColumnMap(), zap.NewNop())

	batch := models.RawBatch{
		Columns: []string{"Unique ID", "ID", "Name"},
		Rows:    [][]any{{"U-1", "I-1", "Lee"}, {"U-2", "", "Kim"}},
	}

	records, err := reconciler.Reconcile(batch, false)
	require.NoError(t, err)

	assert.Equal(t, "I-1", records[0][schema.CustomerId])
	assert.Equal(t, "U-2", records[1][schema.CustomerId])
}

func TestReconciler_CountryFallback(t *testing.T) {
	reconciler := NewReconciler(schema.DefaultColumnMap(), zap.NewNop())

	t.Run("derives country from source identifier", func(t *testing.T) {
		batch := models.RawBatch{
			SourceID: "USA_2024.csv",
			Columns:  []string{"ID", "Name", "VaccinationDate"},
			Rows:     [][]any{{"1", "Ann", "01012024"}, {"2", "Bob", "01022024"}},
		}

		records, err := reconciler.Reconcile(batch, false)
		require.NoError(t, err)
		for _, r := range records {
			assert.Equal(t, "USA", r[schema.Country])
		}
	})

	t.Run("lower case and short identifiers", func(t *testing.T) {
		assert.Equal(t, "AUS", countryFromSource("aus_customers.csv"))
		assert.Equal(t, "NZ", countryFromSource("nz"))
	})

	t.Run("existing country column wins", func(t *testing.T) {
		batch := models.RawBatch{
			SourceID: "USA_2024.csv",
			Columns:  []string{"ID", "Country Name"},
			Rows:     [][]any{{"1", "PHIL"}, {"2", nil}},
		}

		records, err := reconciler.Reconcile(batch, false)
		require.NoError(t, err)
		assert.Equal(t, "PHIL", records[0][schema.Country])
		assert.Nil(t, records[1][schema.Country])
	})

	t.Run("no source identifier leaves country out", func(t *testing.T) {
		batch := models.RawBatch{Columns: []string{"ID"}, Rows: [][]any{{"1"}}}

		records, err := reconciler.Reconcile(batch, false)
		require.NoError(t, err)
		assert.NotContains(t, records[0], schema.Country)
	})
}

func TestReconciler_DropsUnknownColumns(t *testing.T) {
	reconciler := NewReconciler(schema.DefaultColumnMap(), zap.NewNop())

	batch := models.RawBatch{
		SourceID: "AUS.csv",
		Columns:  []string{"ID", "Favourite Colour", "\uFEFFName "},
		Rows:     [][]any{{"1", "blue", "Zoe"}, {"2"}},
	}

	records, err := reconciler.Reconcile(batch, false)
	require.NoError(t, err)

	known := append(schema.MandatoryFields(), schema.OptionalFields()...)
	for _, r := range records {
		for field := range r {
			assert.Contains(t, known, field)
		}
	}
	assert.Equal(t, "Zoe", records[0][schema.CustomerName])
	assert.Nil(t, records[1][schema.CustomerName], "short rows read as missing cells")
}

func TestReconciler_StructuralErrors(t *testing.T) {
	reconciler := NewReconciler(schema.DefaultColumnMap(), zap.NewNop())

	t.Run("no data rows", func(t *testing.T) {
		_, err := reconciler.Reconcile(models.RawBatch{SourceID: "a.csv", Columns: []string{"ID"}}, false)

		var structural *StructuralInputError
		require.ErrorAs(t, err, &structural)
		assert.Equal(t, "batch has no data rows", structural.Reason)
	})

	t.Run("no usable columns", func(t *testing.T) {
		_, err := reconciler.Reconcile(models.RawBatch{
			SourceID: "a.csv",
			Columns:  []string{"foo", "bar"},
			Rows:     [][]any{{"1", "2"}},
		}, true)

		var structural *StructuralInputError
		require.ErrorAs(t, err, &structural)
		assert.Equal(t, "no column maps to a canonical field", structural.Reason)
	})
}

func TestReconciler_MissingMandatory(t *testing.T) {
	batch := models.RawBatch{
		SourceID: "USA_2024.csv",
		Columns:  []string{"Patient Name", "Date of Vaccination"},
		Rows:     [][]any{{"Ann", "01012024"}, {"Bob", "01022024"}},
	}

	t.Run("strict mode fails fast", func(t *testing.T) {
		logger, logs := newObservedLogger()
		reconciler := NewReconciler(schema.DefaultColumnMap(), logger)

		records, err := reconciler.Reconcile(batch, true)
		assert.Nil(t, records)

		var missing *MissingMandatoryColumnError
		require.True(t, errors.As(err, &missing))
		assert.Equal(t, []schema.Field{schema.CustomerId}, missing.Fields)

		var structural *StructuralInputError
		assert.True(t, errors.As(err, &structural))

		assert.Equal(t, 1, logs.FilterMessage("Missing mandatory columns").Len())
	})

	t.Run("non strict mode defers to row validation", func(t *testing.T) {
		logger, logs := newObservedLogger()
		reconciler := NewReconciler(schema.DefaultColumnMap(), logger)

		records, err := reconciler.Reconcile(batch, false)
		require.NoError(t, err)
		assert.Len(t, records, 2)

		warnings := logs.FilterLevelExact(zapcore.WarnLevel)
		assert.Equal(t, 1, warnings.FilterMessage("Missing mandatory columns").Len())
		assert.Equal(t, 1, warnings.FilterMessage("Missing optional columns").Len())
	})
}
