package churn

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/ChurnPredictor/models"
)

func mixedHistory() []models.Event {
	return []models.Event{
		{Date: "2024-06-01", Type: models.EventLogin},
		{Date: "2024-06-05", Type: models.EventInactivity},
		{Date: "2024-06-08", Type: models.EventViewFeature},
		{Date: "2024-06-10", Type: models.EventInactivity},
		{Date: "2024-06-12", Type: models.EventSupportQuery},
		{Date: "2024-06-15", Type: models.EventLogin},
	}
}

func repeatEvents(t models.EventType, n int) []models.Event {
	events := make([]models.Event, n)
	for i := range events {
		events[i] = models.Event{Date: "2024-01-01", Type: t}
	}
	return events
}

func TestRecencyWeights(t *testing.T) {
	tests := []struct {
		name     string
		n        int
		expected []float64
	}{
		{name: "empty", n: 0, expected: nil},
		{name: "single event gets full weight", n: 1, expected: []float64{1.0}},
		{name: "two events", n: 2, expected: []float64{0.1, 1.0}},
		{name: "six events", n: 6, expected: []float64{0.1, 0.28, 0.46, 0.64, 0.82, 1.0}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			weights := RecencyWeights(tt.n)
			require.Len(t, weights, len(tt.expected))
			for i := range tt.expected {
				assert.InDelta(t, tt.expected[i], weights[i], 1e-12)
			}
		})
	}
}

func TestScoreEmptyHistory(t *testing.T) {
	scorer := NewScorer(nil, DefaultWindow)

	assert.Equal(t, 0.5, scorer.Score(nil))
	assert.Equal(t, 0.5, scorer.Score([]models.Event{}))
	assert.Equal(t, 0.5, scorer.ScoreWindow(mixedHistory(), 0))
}

func TestScoreMixedHistory(t *testing.T) {
	scorer := NewScorer(nil, DefaultWindow)

	// 0.1*-0.05 + 0.28*0.2 + 0.46*-0.05 + 0.64*0.2 + 0.82*0.15 + 1.0*-0.05
	raw := -0.005 + 0.056 - 0.023 + 0.128 + 0.123 - 0.05
	expected := 1 / (1 + math.Exp(-raw))

	score := scorer.Score(mixedHistory())
	assert.InDelta(t, expected, score, 1e-12)
	assert.Equal(t, score, scorer.Score(mixedHistory()))
}

func TestScoreBounds(t *testing.T) {
	scorer := NewScorer(nil, DefaultWindow)

	histories := map[string][]models.Event{
		"all inactivity": repeatEvents(models.EventInactivity, 200),
		"all upgrades":   repeatEvents(models.EventUpgradePlan, 200),
		"single login":   repeatEvents(models.EventLogin, 1),
		"mixed":        mixedHistory(),
	}

	for name, history := range histories {
		t.Run(name, func(t *testing.T) {
			score := scorer.Score(history)
			assert.GreaterOrEqual(t, score, 0.0)
			assert.LessOrEqual(t, score, 1.0)
		})
	}

	assert.Greater(t, scorer.Score(histories["all inactivity"]), 0.5)
	assert.Less(t, scorer.Score(histories["all upgrades"]), 0.5)
}

func TestScoreUpgradeNeverIncreasesRisk(t *testing.T) {
	scorer := NewScorer(nil, DefaultWindow)

	histories := [][]models.Event{
		mixedHistory(),
		repeatEvents(models.EventInactivity, 5),
		repeatEvents(models.EventLogin, 12),
		repeatEvents(models.EventUpgradePlan, DefaultWindow),
		repeatEvents(models.EventSupportQuery, 45),
	}

	for _, history := range histories {
		without := scorer.Score(history)
		with := scorer.Score(append(append([]models.Event{}, history...),
			models.Event{Date: "2024-07-01", Type: models.EventUpgradePlan}))
		assert.LessOrEqual(t, with, without+1e-12)
	}
}

func TestScoreIgnoresEventsBeyondWindow(t *testing.T) {
	scorer := NewScorer(nil, DefaultWindow)
	history := mixedHistory()

	for _, window := range []int{1, 3, 6} {
		older := append(repeatEvents(models.EventInactivity, 40), history...)
		assert.Equal(t,
			scorer.ScoreWindow(history, window),
			scorer.ScoreWindow(older, window),
			"window %d", window)
	}

	long := append(repeatEvents(models.EventUpgradePlan, 10), repeatEvents(models.EventInactivity, DefaultWindow)...)
	assert.Equal(t, scorer.Score(repeatEvents(models.EventInactivity, DefaultWindow)), scorer.Score(long))
}

func TestScoreUnknownEventTypeContributesNothing(t *testing.T) {
	scorer := NewScorer(nil, DefaultWindow)

	history := []models.Event{
		{Date: "2024-06-01", Type: "teleported"},
		{Date: "2024-06-02", Type: models.EventChurned},
	}
	assert.Equal(t, 0.5, scorer.Score(history))
	assert.Equal(t, 1, scorer.UnknownEvents(history))
	assert.Equal(t, 0, scorer.UnknownEvents(mixedHistory()))
}

func TestUnknownEventsIgnoresUnweightedVocabulary(t *testing.T) {
	churned := []models.Event{
		{Date: "2024-06-01", Type: models.EventLogin},
		{Date: "2024-06-02", Type: models.EventChurned},
	}
	assert.Equal(t, 0, NewScorer(nil, DefaultWindow).UnknownEvents(churned))

	// a weights file may leave vocabulary types out
	partial := NewScorer(WeightTable{models.EventInactivity: 0.3}, DefaultWindow)
	assert.Equal(t, 0, partial.UnknownEvents(churned))
	assert.Equal(t, 0, partial.UnknownEvents(mixedHistory()))
	assert.Equal(t, 1, partial.UnknownEvents([]models.Event{{Date: "2024-06-01", Type: "teleported"}}))
}

func TestScoreWithAlternateWeights(t *testing.T) {
	weights := WeightTable{models.EventLogin: 1.0}
	scorer := NewScorer(weights, 2)

	history := repeatEvents(models.EventLogin, 2)
	assert.InDelta(t, 1/(1+math.Exp(-1.1)), scorer.Score(history), 1e-12)

	weights[models.EventLogin] = -5
	assert.InDelta(t, 1/(1+math.Exp(-1.1)), scorer.Score(history), 1e-12, "scorer keeps its own copy")
	assert.Equal(t, 2, scorer.Window())
}
