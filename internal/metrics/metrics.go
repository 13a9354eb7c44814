package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus collectors of the churn analyzer
type Metrics struct {
	ForecastsTotal    *prometheus.CounterVec
	ForecastDuration  prometheus.Histogram
	ChurnProbability  prometheus.Histogram
	UnknownEventTypes prometheus.Counter
	RiskLevels        *prometheus.CounterVec
	IngestedEvents    *prometheus.CounterVec
	AlertsSent        *prometheus.CounterVec
}

// NewMetrics creates the collectors and registers them with reg
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)

	return &Metrics{
		ForecastsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_forecasts_total",
				Help: "Total number of Monte Carlo forecasts run",
			},
			[]string{"status"}, // status: ok, error
		),

		ForecastDuration: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "churn_forecast_duration_seconds",
				Help:    "Duration of a complete Monte Carlo forecast",
				Buckets: prometheus.DefBuckets,
			},
		),

		ChurnProbability: factory.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "churn_forecast_mean_probability",
				Help:    "Mean forecast churn probability per analyzed customer",
				Buckets: prometheus.LinearBuckets(0.1, 0.1, 10),
			},
		),

		UnknownEventTypes: factory.NewCounter(
			prometheus.CounterOpts{
				Name: "churn_unknown_event_types_total",
				Help: "Events in the scoring window whose type is outside the event vocabulary",
			},
		),

		RiskLevels: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_risk_level_total",
				Help: "Analyzed customers by suggested intervention level",
			},
			[]string{"level"},
		),

		IngestedEvents: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_ingested_events_total",
				Help: "Customer events ingested from billing webhooks",
			},
			[]string{"type"},
		),

		AlertsSent: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "churn_alerts_sent_total",
				Help: "High risk alerts delivered to chat",
			},
			[]string{"status"}, // status: sent, failed
		),
	}
}
