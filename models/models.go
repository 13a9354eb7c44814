package models

import (
	"time"
)

// EventType is one kind of customer behavior event
type EventType string

const (
	EventInactivity   EventType = "inactivity"
	EventSupportQuery EventType = "support_query"
	EventMakePurchase EventType = "make_purchase"
	EventUpgradePlan  EventType = "upgrade_plan"
	EventLogin        EventType = "login"
	EventViewFeature  EventType = "view_feature"

	// EventChurned is a terminal marker written by data sources, never by the forecaster
	EventChurned EventType = "churned"
)

// EventTypes lists the closed vocabulary, terminal marker included
var EventTypes = []EventType{
	EventInactivity,
	EventSupportQuery,
	EventMakePurchase,
	EventUpgradePlan,
	EventLogin,
	EventViewFeature,
	EventChurned,
}

// IsValid reports whether t belongs to the closed vocabulary
func (t EventType) IsValid() bool {
	for _, known := range EventTypes {
		if t == known {
			return true
		}
	}
	return false
}

// Event is a single dated customer activity record
type Event struct {
	Date string    `json:"date"` // YYYY-MM-DD
	Type EventType `json:"type"`
}

// Customer holds the event history of one customer
type Customer struct {
	ID                  string  `json:"customer_id"`
	StartDate           string  `json:"start_date"`
	LastActivityDate    string  `json:"last_activity_date"`
	Churned             bool    `json:"churned"`
	ChurnDate           string  `json:"churn_date,omitempty"`
	Events              []Event `json:"events"`
	ChurnPropensityTrue float64 `json:"churn_propensity_true,omitempty"` // only known for synthetic data
}

// ForecastPercentiles summarizes the sample distribution of a forecast
type ForecastPercentiles struct {
	P10    float64 `json:"p10"`
	P25    float64 `json:"p25"`
	Median float64 `json:"median"`
	P75    float64 `json:"p75"`
	P90    float64 `json:"p90"`
}

// SimulationResult is the outcome of one Monte Carlo forecast
type SimulationResult struct {
	Mean        float64             `json:"mean"`
	StdDev      float64             `json:"std_dev"`
	Samples     []float64           `json:"samples"` // one per trial, in trial order
	Baseline    float64             `json:"baseline"`
	Percentiles ForecastPercentiles `json:"percentiles"`
}

// Risk levels used by intervention suggestions
const (
	RiskHigh     = "HIGH"
	RiskModerate = "MODERATE"
	RiskLow      = "LOW"
)

// Intervention is a recommended retention action for a churn probability
type Intervention struct {
	Level       string   `json:"level"`
	Title       string   `json:"title"`
	Description string   `json:"description"`
	Actions     []string `json:"actions"`
	Color       string   `json:"color"`
}

// Analysis combines everything computed for one customer
type Analysis struct {
	ForecastID    string            `json:"forecast_id"`
	CustomerID    string            `json:"customer_id"`
	Baseline      float64           `json:"baseline"`
	Forecast      *SimulationResult `json:"forecast"`
	Intervention  Intervention      `json:"intervention"`
	UnknownEvents int               `json:"unknown_events"`
	Simulations   int               `json:"simulations"`
	ForecastDays  int               `json:"forecast_days"`
	CreatedAt     time.Time         `json:"created_at"`
}
