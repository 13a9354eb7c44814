package analyze

import (
	"context"
	"fmt"
	"math/rand"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Alias1177/ChurnPredictor/internal/churn"
	"github.com/Alias1177/ChurnPredictor/internal/intervention"
	"github.com/Alias1177/ChurnPredictor/internal/metrics"
	"github.com/Alias1177/ChurnPredictor/models"
)

// Analyzer runs the full churn analysis of a customer:
// baseline score, Monte Carlo forecast and suggested intervention.
type Analyzer struct {
	forecaster *churn.Forecaster
	metrics    *metrics.Metrics
	logger     zerolog.Logger
	opts       churn.Options

	// guards rng, *rand.Rand is not safe for concurrent use
	mu  sync.Mutex
	rng *rand.Rand
}

// Settings configures an Analyzer
type Settings struct {
	Simulations  int
	ForecastDays int
	// Seed of the master random source, 0 seeds from the clock
	Seed int64
}

// NewAnalyzer creates an analyzer. m may be nil when metrics are not exported.
func NewAnalyzer(forecaster *churn.Forecaster, m *metrics.Metrics, logger zerolog.Logger, settings Settings) (*Analyzer, error) {
	opts := churn.Options{
		Simulations:  settings.Simulations,
		ForecastDays: settings.ForecastDays,
	}
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	seed := settings.Seed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}

	return &Analyzer{
		forecaster: forecaster,
		metrics:    m,
		logger:     logger.With().Str("component", "analyzer").Logger(),
		opts:       opts,
		rng:        rand.New(rand.NewSource(seed)),
	}, nil
}

// Analyze forecasts the churn risk of one customer
func (a *Analyzer) Analyze(ctx context.Context, customer models.Customer) (*models.Analysis, error) {
	scorer := a.forecaster.Scorer()

	unknown := scorer.UnknownEvents(customer.Events)
	if unknown > 0 {
		a.logger.Warn().
			Str("customer_id", customer.ID).
			Int("unknown_events", unknown).
			Msg("Events with unknown type ignored by scorer")
		if a.metrics != nil {
			a.metrics.UnknownEventTypes.Add(float64(unknown))
		}
	}

	opts := a.opts
	opts.Rand = a.trialSource()

	started := time.Now()
	result, err := a.forecaster.Forecast(ctx, customer, opts)
	if a.metrics != nil {
		a.metrics.ForecastDuration.Observe(time.Since(started).Seconds())
	}
	if err != nil {
		if a.metrics != nil {
			a.metrics.ForecastsTotal.WithLabelValues("error").Inc()
		}
		return nil, fmt.Errorf("analyzing customer %s: %w", customer.ID, err)
	}

	suggestion := intervention.Suggest(result.Mean)
	if a.metrics != nil {
		a.metrics.ForecastsTotal.WithLabelValues("ok").Inc()
		a.metrics.ChurnProbability.Observe(result.Mean)
		a.metrics.RiskLevels.WithLabelValues(suggestion.Level).Inc()
	}

	analysis := &models.Analysis{
		ForecastID:    uuid.NewString(),
		CustomerID:    customer.ID,
		Baseline:      result.Baseline,
		Forecast:      result,
		Intervention:  suggestion,
		UnknownEvents: unknown,
		Simulations:   opts.Simulations,
		ForecastDays:  opts.ForecastDays,
		CreatedAt:     time.Now().UTC(),
	}

	a.logger.Info().
		Str("customer_id", customer.ID).
		Str("forecast_id", analysis.ForecastID).
		Float64("baseline", result.Baseline).
		Float64("mean", result.Mean).
		Float64("std_dev", result.StdDev).
		Str("risk", suggestion.Level).
		Msg("Customer analyzed")

	return analysis, nil
}

// AnalyzeAll analyzes customers in order, skipping churned ones.
// Failures are logged and returned alongside the successful analyses.
func (a *Analyzer) AnalyzeAll(ctx context.Context, customers []models.Customer) ([]*models.Analysis, []error) {
	var (
		results []*models.Analysis
		errs    []error
	)
	for _, customer := range customers {
		if customer.Churned {
			continue
		}
		if err := ctx.Err(); err != nil {
			errs = append(errs, err)
			break
		}
		analysis, err := a.Analyze(ctx, customer)
		if err != nil {
			a.logger.Error().Err(err).Str("customer_id", customer.ID).Msg("Analysis failed")
			errs = append(errs, err)
			continue
		}
		results = append(results, analysis)
	}
	return results, errs
}

// trialSource derives an independent master source for one forecast
func (a *Analyzer) trialSource() *rand.Rand {
	a.mu.Lock()
	defer a.mu.Unlock()
	return rand.New(rand.NewSource(a.rng.Int63()))
}
