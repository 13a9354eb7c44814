package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/Alias1177/ChurnPredictor/internal/analyze"
	"github.com/Alias1177/ChurnPredictor/internal/churn"
	"github.com/Alias1177/ChurnPredictor/internal/database"
	"github.com/Alias1177/ChurnPredictor/internal/metrics"
	"github.com/Alias1177/ChurnPredictor/internal/payment"
	"github.com/Alias1177/ChurnPredictor/models"
)

// maxWebhookBody caps webhook payloads, Stripe events are far smaller
const maxWebhookBody = 1 << 16

// Store is the persistence the HTTP handlers need
type Store interface {
	models.CustomerStore
	AppendEvent(ctx context.Context, customerID string, e models.Event, source string) error
}

// Deps bundles what the router hands to its handlers
type Deps struct {
	Store    Store
	Stripe   *payment.StripeService
	Analyzer *analyze.Analyzer
	Metrics  *metrics.Metrics
	Gatherer prometheus.Gatherer
	Logger   zerolog.Logger
}

// NewRouter registers every route of the churn service
func NewRouter(d Deps) *mux.Router {
	r := mux.NewRouter()
	r.HandleFunc("/webhook", StripeWebhook(d)).Methods(http.MethodPost)
	r.HandleFunc("/customers/{id}/forecast", CustomerForecast(d)).Methods(http.MethodGet)
	r.HandleFunc("/health", Health()).Methods(http.MethodGet)
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{})).Methods(http.MethodGet)
	}
	return r
}

// StripeWebhook ingests billing events as customer events.
// Events without a churn signal are acknowledged so Stripe stops retrying them.
func StripeWebhook(d Deps) http.HandlerFunc {
	logger := d.Logger.With().Str("handler", "webhook").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxWebhookBody))
		if err != nil {
			logger.Warn().Err(err).Msg("Error reading request body")
			http.Error(w, "Error reading request body", http.StatusBadRequest)
			return
		}

		signature := r.Header.Get("Stripe-Signature")
		if signature == "" {
			http.Error(w, "Stripe-Signature header required", http.StatusBadRequest)
			return
		}

		event, err := d.Stripe.VerifyWebhookSignature(body, signature)
		if err != nil {
			logger.Warn().Err(err).Msg("Failed to verify webhook signature")
			http.Error(w, "Invalid signature", http.StatusBadRequest)
			return
		}

		ingested, err := payment.EventFromStripe(event)
		if err != nil {
			if errors.Is(err, payment.ErrUnhandledEvent) || errors.Is(err, payment.ErrMissingCustomer) {
				logger.Debug().Err(err).Str("event_id", event.ID).Msg("Event ignored")
				writeJSON(w, http.StatusOK, map[string]string{"status": "ignored"})
				return
			}
			logger.Error().Err(err).Str("event_id", event.ID).Msg("Failed to process event")
			http.Error(w, "Error processing event", http.StatusInternalServerError)
			return
		}

		if err := d.Store.AppendEvent(r.Context(), ingested.CustomerID, ingested.Event, "stripe"); err != nil {
			logger.Error().Err(err).Str("customer_id", ingested.CustomerID).Msg("Failed to store event")
			http.Error(w, "Error storing event", http.StatusInternalServerError)
			return
		}
		if d.Metrics != nil {
			d.Metrics.IngestedEvents.WithLabelValues(string(ingested.Event.Type)).Inc()
		}

		logger.Info().
			Str("event_id", ingested.StripeEventID).
			Str("customer_id", ingested.CustomerID).
			Str("type", string(ingested.Event.Type)).
			Msg("Event ingested")

		writeJSON(w, http.StatusOK, map[string]string{"status": "success"})
	}
}

// CustomerForecast analyzes a stored customer and returns the forecast
func CustomerForecast(d Deps) http.HandlerFunc {
	logger := d.Logger.With().Str("handler", "forecast").Logger()

	return func(w http.ResponseWriter, r *http.Request) {
		id := mux.Vars(r)["id"]

		customer, err := d.Store.GetCustomer(r.Context(), id)
		if err != nil {
			if errors.Is(err, database.ErrNotFound) {
				http.Error(w, "Customer not found", http.StatusNotFound)
				return
			}
			logger.Error().Err(err).Str("customer_id", id).Msg("Failed to load customer")
			http.Error(w, "Error loading customer", http.StatusInternalServerError)
			return
		}

		analysis, err := d.Analyzer.Analyze(r.Context(), *customer)
		if err != nil {
			if errors.Is(err, churn.ErrMalformedDate) {
				http.Error(w, err.Error(), http.StatusUnprocessableEntity)
				return
			}
			http.Error(w, err.Error(), http.StatusInternalServerError)
			return
		}

		if err := d.Store.SaveForecast(r.Context(), analysis); err != nil {
			logger.Error().Err(err).Str("customer_id", id).Msg("Failed to store forecast")
		}

		writeJSON(w, http.StatusOK, analysis)
	}
}

// Health reports that the server is running
func Health() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
	}
}

func writeJSON(w http.ResponseWriter, status int, v interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(v)
}
