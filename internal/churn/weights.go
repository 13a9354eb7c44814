package churn

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v2"

	"github.com/Alias1177/ChurnPredictor/models"
)

// WeightTable maps an event type to its signed contribution to the risk score.
// Positive magnitudes increase churn risk, negative ones decrease it.
type WeightTable map[models.EventType]float64

var defaultWeights = WeightTable{
	models.EventInactivity:   0.20,
	models.EventSupportQuery: 0.15,
	models.EventMakePurchase: -0.10,
	models.EventUpgradePlan:  -0.20,
	models.EventLogin:        -0.05,
	models.EventViewFeature:  -0.05,
}

// DefaultWeights returns a copy of the built-in weight table
func DefaultWeights() WeightTable {
	return defaultWeights.Clone()
}

// Clone returns an independent copy of the table
func (w WeightTable) Clone() WeightTable {
	out := make(WeightTable, len(w))
	for k, v := range w {
		out[k] = v
	}
	return out
}

// Magnitude returns the weight of an event type, 0 when the type is not in the table
func (w WeightTable) Magnitude(t models.EventType) float64 {
	if m, exists := w[t]; exists {
		return m
	}
	return 0
}

// Known reports whether the table has a weight for t
func (w WeightTable) Known(t models.EventType) bool {
	_, exists := w[t]
	return exists
}

// LoadWeights reads a weight table from a YAML file of the form
//
//	inactivity: 0.2
//	login: -0.05
//
// Types outside the event vocabulary are rejected.
func LoadWeights(path string) (WeightTable, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading weights file: %w", err)
	}
	return ParseWeights(data)
}

// ParseWeights decodes a YAML weight table
func ParseWeights(data []byte) (WeightTable, error) {
	var raw map[string]float64
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parsing weights: %w", err)
	}
	if len(raw) == 0 {
		return nil, fmt.Errorf("weights table is empty")
	}

	table := make(WeightTable, len(raw))
	for name, magnitude := range raw {
		t := models.EventType(name)
		if !t.IsValid() {
			return nil, fmt.Errorf("unknown event type %q in weights", name)
		}
		table[t] = magnitude
	}
	return table, nil
}
