package churn

import (
	"math"

	"github.com/Alias1177/ChurnPredictor/models"
)

// DefaultWindow is the number of most recent events a score looks at
const DefaultWindow = 30

const (
	minRecencyWeight = 0.1
	maxRecencyWeight = 1.0
)

// Scorer maps an event history to a churn probability.
// It holds no mutable state and is safe for concurrent use.
type Scorer struct {
	weights WeightTable
	window  int
}

// NewScorer creates a scorer. A nil table falls back to DefaultWeights,
// a non-positive window to DefaultWindow.
func NewScorer(weights WeightTable, window int) *Scorer {
	if weights == nil {
		weights = DefaultWeights()
	}
	if window <= 0 {
		window = DefaultWindow
	}
	return &Scorer{
		weights: weights.Clone(),
		window:  window,
	}
}

// Window returns the default window of the scorer
func (s *Scorer) Window() int {
	return s.window
}

// Weights returns a copy of the weight table in use
func (s *Scorer) Weights() WeightTable {
	return s.weights.Clone()
}

// Score returns the churn probability of history using the scorer's window
func (s *Scorer) Score(history []models.Event) float64 {
	return s.ScoreWindow(history, s.window)
}

// ScoreWindow returns the churn probability of the last window events of history.
// Recent events weigh more: weights are spaced linearly from 0.1 (oldest) to 1.0 (newest).
// An empty window scores 0 which maps to probability 0.5.
func (s *Scorer) ScoreWindow(history []models.Event, window int) float64 {
	recent := tail(history, window)
	weights := RecencyWeights(len(recent))

	score := 0.0
	for i, event := range recent {
		score += weights[i] * s.weights.Magnitude(event.Type)
	}

	return clamp01(sigmoid(score))
}

// UnknownEvents counts events in the scored window whose type is outside the
// event vocabulary. Vocabulary types without a weight, such as churned, are not unknown.
func (s *Scorer) UnknownEvents(history []models.Event) int {
	count := 0
	for _, event := range tail(history, s.window) {
		if !event.Type.IsValid() {
			count++
		}
	}
	return count
}

// RecencyWeights returns n weights spaced linearly from 0.1 to 1.0 inclusive.
// A single weight is 1.0.
func RecencyWeights(n int) []float64 {
	if n <= 0 {
		return nil
	}
	weights := make([]float64, n)
	if n == 1 {
		weights[0] = maxRecencyWeight
		return weights
	}

	step := (maxRecencyWeight - minRecencyWeight) / float64(n-1)
	for i := range weights {
		weights[i] = minRecencyWeight + float64(i)*step
	}
	weights[n-1] = maxRecencyWeight
	return weights
}

func tail(history []models.Event, window int) []models.Event {
	if window <= 0 {
		return nil
	}
	if len(history) <= window {
		return history
	}
	return history[len(history)-window:]
}

func sigmoid(x float64) float64 {
	return 1 / (1 + math.Exp(-x))
}

func clamp01(p float64) float64 {
	return math.Max(0, math.Min(1, p))
}
