package models

// CompanyRecord is one company returned by the public registry
type CompanyRecord struct {
	BusinessID       string `json:"business_id"`
	Name             string `json:"name"`
	CompanyForm      string `json:"company_form,omitempty"`
	RegistrationDate string `json:"registration_date,omitempty"`
	Industry         string `json:"industry,omitempty"`
	Website          string `json:"website,omitempty"`
}

// RegistryResult is the parsed registry response along with the raw XML
type RegistryResult struct {
	Companies []CompanyRecord `json:"companies"`
	RawXML    string          `json:"raw_xml"`
}

// MetricForecast is the history and forecast of a single account
type MetricForecast struct {
	AccountNumber int       `json:"account_number"`
	Label         string    `json:"label"`
	HistoryStart  string    `json:"history_start"`
	Historical    []float64 `json:"historical"`
	ForecastStart string    `json:"forecast_start"`
	Forecast      []float64 `json:"forecast"`
	Low           []float64 `json:"low"`
	High          []float64 `json:"high"`
}
