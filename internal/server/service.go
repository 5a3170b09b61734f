package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"go.uber.org/zap"

	"github.com/ThiagoRGoveia/vaccination-etl/internal/database"
)

type CountryService struct {
	DBManager database.DBManager
	logger    *zap.Logger
}

func NewCountryService(dbManager database.DBManager, logger *zap.Logger) *CountryService {
	return &CountryService{DBManager: dbManager, logger: logger}
}

// GetCountrySummary serves GET /countries/{country}.
func (h *CountryService) GetCountrySummary(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		http.Error(w, "Method not allowed", http.StatusMethodNotAllowed)
		return
	}

	country := strings.Trim(strings.TrimPrefix(r.URL.Path, "/countries/"), "/ ")
	if country == "" {
		http.Error(w, "Country is required in the URL path /countries/{country}", http.StatusBadRequest)
		return
	}

	summary, err := h.DBManager.GetCountrySummary(country)
	if err != nil {
		h.logger.Error("Failed to retrieve country summary", zap.String("country", country), zap.Error(err))
		http.Error(w, "Failed to retrieve country summary", http.StatusInternalServerError)
		return
	}
	if summary.Records == 0 {
		http.Error(w, "No records for country "+country, http.StatusNotFound)
		return
	}

	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(summary); err != nil {
		http.Error(w, "Failed to encode response", http.StatusInternalServerError)
		return
	}
}
