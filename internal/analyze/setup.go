package analyze

import (
	"github.com/rs/zerolog"

	"github.com/Alias1177/ChurnPredictor/internal/churn"
	"github.com/Alias1177/ChurnPredictor/internal/config"
	"github.com/Alias1177/ChurnPredictor/internal/metrics"
)

// FromConfig wires the scorer, forecaster and analyzer described by cfg.
// Weights come from WEIGHTS_FILE when set, the built-in table otherwise.
func FromConfig(cfg *config.Config, m *metrics.Metrics, logger zerolog.Logger) (*Analyzer, error) {
	weights := churn.DefaultWeights()
	if cfg.WeightsFile != "" {
		loaded, err := churn.LoadWeights(cfg.WeightsFile)
		if err != nil {
			return nil, err
		}
		weights = loaded
		logger.Info().Str("file", cfg.WeightsFile).Int("types", len(weights)).Msg("Loaded event weights")
	}

	scorer := churn.NewScorer(weights, cfg.ScoreWindow)
	forecaster := churn.NewForecaster(scorer, logger, cfg.Workers)

	return NewAnalyzer(forecaster, m, logger, Settings{
		Simulations:  cfg.NumSimulations,
		ForecastDays: cfg.ForecastDays,
		Seed:         cfg.RandomSeed,
	})
}
