package server

import (
	"net/http"
)

func SetupRoutes(countryHandler *CountryService) *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/countries/", countryHandler.GetCountrySummary)

	return mux
}
