package validator

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/dates"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/models"
	"github.com/ThiagoRGoveia/vaccination-etl/internal/schema"
)

func TestFilter_SelectValid(t *testing.T) {
	filter := NewFilter(schema.DefaultExternalMap(), zap.NewNop())
	openDate := dates.Date{Year: 2024, Month: time.March, Day: 1}

	tests := []struct {
		name     string
		record   models.Record
		admitted bool
	}{
		{"complete record", models.Record{schema.CustomerName: "Ann", schema.CustomerId: "1", schema.OpenDate: openDate}, true},
		{"null open date", models.Record{schema.CustomerName: "Ann", schema.CustomerId: "1", schema.OpenDate: nil}, false},
		{"absent open date", models.Record{schema.CustomerName: "Ann", schema.CustomerId: "1"}, false},
		{"empty name", models.Record{schema.CustomerName: "", schema.CustomerId: "1", schema.OpenDate: openDate}, false},
		{"null id", models.Record{schema.CustomerName: "Ann", schema.CustomerId: nil, schema.OpenDate: openDate}, false},
		{"numeric id", models.Record{schema.CustomerName: "Ann", schema.CustomerId: int64(7), schema.OpenDate: openDate}, true},
		{"optional fields may be null", models.Record{schema.CustomerName: "Ann", schema.CustomerId: "1", schema.OpenDate: openDate, schema.DateOfBirth: nil}, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out := filter.SelectValid([]models.Record{tt.record})
			if tt.admitted {
				assert.Len(t, out, 1)
			} else {
				assert.Empty(t, out)
			}
		})
	}
}

func TestFilter_Projection(t *testing.T) {
	filter := NewFilter(schema.DefaultExternalMap(), zap.NewNop())
	openDate := dates.Date{Year: 2024, Month: time.March, Day: 1}

	out := filter.SelectValid([]models.Record{{
		schema.CustomerName:      "Ann",
		schema.CustomerId:        "1",
		schema.OpenDate:          openDate,
		schema.LastConsultedDate: nil,
		schema.VaccinationId:     "MVD",
		schema.DoctorName:        "Dr. Who",
		schema.State:             "TN",
		schema.Country:           "IND",
		schema.PostalCode:        "600001",
		schema.DateOfBirth:       nil,
		schema.IsActive:          "A",
	}})
	require.Len(t, out, 1)

	assert.Equal(t, models.ExternalRecord{
		"Name":       "Ann",
		"Cust_I":     "1",
		"Open_Dt":    openDate,
		"Consul_Dt":  nil,
		"VAC_ID":     "MVD",
		"DR_Name":    "Dr. Who",
		"State":      "TN",
		"Country":    "IND",
		"PostalCode": "600001",
		"DOB":        nil,
		"FLAG":       "A",
	}, out[0])
}
