package churn

import (
	"context"
	"fmt"
	"math/rand"
	"runtime"
	"time"

	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"

	"github.com/Alias1177/ChurnPredictor/models"
)

const (
	DefaultSimulations  = 100
	DefaultForecastDays = 90

	// share of simulated days with some activity for a customer at zero risk
	baseActivityRate = 0.6
)

// simulatedActivity is the vocabulary of positive simulated days.
// upgrade_plan is never simulated.
var simulatedActivity = []models.EventType{
	models.EventLogin,
	models.EventViewFeature,
	models.EventMakePurchase,
	models.EventSupportQuery,
}

// Options controls one forecast run
type Options struct {
	Simulations  int
	ForecastDays int
	// Rand is the master random source. It only hands out one seed per trial,
	// so equal seeds give equal samples regardless of scheduling.
	// Nil means a time-seeded source.
	Rand *rand.Rand
}

// DefaultOptions returns 100 simulations over a 90 day horizon
func DefaultOptions() Options {
	return Options{
		Simulations:  DefaultSimulations,
		ForecastDays: DefaultForecastDays,
	}
}

// Validate checks the preconditions of a forecast
func (o Options) Validate() error {
	if o.Simulations < 1 {
		return fmt.Errorf("%w: num_simulations must be >= 1, got %d", ErrInvalidParameter, o.Simulations)
	}
	if o.ForecastDays < 0 {
		return fmt.Errorf("%w: forecast_days must be >= 0, got %d", ErrInvalidParameter, o.ForecastDays)
	}
	return nil
}

// Forecaster projects churn risk forward with Monte Carlo simulation
type Forecaster struct {
	scorer  *Scorer
	workers int
	logger  zerolog.Logger
}

// NewForecaster creates a forecaster. workers <= 0 uses GOMAXPROCS.
func NewForecaster(scorer *Scorer, logger zerolog.Logger, workers int) *Forecaster {
	if scorer == nil {
		scorer = NewScorer(nil, DefaultWindow)
	}
	if workers <= 0 {
		workers = runtime.GOMAXPROCS(0)
	}
	return &Forecaster{
		scorer:  scorer,
		workers: workers,
		logger:  logger.With().Str("component", "forecaster").Logger(),
	}
}

// Scorer returns the scorer used for baseline and trial rescoring
func (f *Forecaster) Scorer() *Scorer {
	return f.scorer
}

// Forecast scores the customer's history once, then runs opts.Simulations independent
// trials. Each trial appends opts.ForecastDays simulated days after the last activity
// date and rescores the combined history. The baseline is not updated inside a trial.
func (f *Forecaster) Forecast(ctx context.Context, customer models.Customer, opts Options) (*models.SimulationResult, error) {
	if err := opts.Validate(); err != nil {
		return nil, err
	}

	lastActivity, err := models.ParseDate(customer.LastActivityDate)
	if err != nil {
		return nil, fmt.Errorf("%w: last_activity_date of customer %q: %v", ErrMalformedDate, customer.ID, err)
	}
	start := lastActivity.AddDate(0, 0, 1)

	baseline := f.scorer.Score(customer.Events)
	activityProbability := baseActivityRate * (1 - baseline)

	master := opts.Rand
	if master == nil {
		master = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	seeds := make([]int64, opts.Simulations)
	for i := range seeds {
		seeds[i] = master.Int63()
	}

	started := time.Now()
	samples := make([]float64, opts.Simulations)

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(f.workers)
	for trial := 0; trial < opts.Simulations; trial++ {
		trial := trial
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			rng := rand.New(rand.NewSource(seeds[trial]))
			future := simulateFuture(rng, start, opts.ForecastDays, activityProbability)
			samples[trial] = f.scorer.Score(concat(customer.Events, future))
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("forecast for customer %q: %w", customer.ID, err)
	}

	avg := mean(samples)
	result := &models.SimulationResult{
		Mean:        avg,
		StdDev:      populationStdDev(samples, avg),
		Samples:     samples,
		Baseline:    baseline,
		Percentiles: Percentiles(samples),
	}

	f.logger.Debug().
		Str("customer_id", customer.ID).
		Int("simulations", opts.Simulations).
		Int("forecast_days", opts.ForecastDays).
		Float64("baseline", baseline).
		Float64("mean", result.Mean).
		Float64("std_dev", result.StdDev).
		Dur("elapsed", time.Since(started)).
		Msg("Forecast completed")

	return result, nil
}

// simulateFuture draws one event per day starting at start.
// A day is active with the given probability, its type uniform over simulatedActivity;
// otherwise it is inactivity.
func simulateFuture(rng *rand.Rand, start time.Time, days int, activityProbability float64) []models.Event {
	events := make([]models.Event, 0, days)
	date := start
	for day := 0; day < days; day++ {
		eventType := models.EventInactivity
		if rng.Float64() < activityProbability {
			eventType = simulatedActivity[rng.Intn(len(simulatedActivity))]
		}
		events = append(events, models.Event{Date: models.FormatDate(date), Type: eventType})
		date = date.AddDate(0, 0, 1)
	}
	return events
}

func concat(history, future []models.Event) []models.Event {
	out := make([]models.Event, 0, len(history)+len(future))
	out = append(out, history...)
	return append(out, future...)
}
