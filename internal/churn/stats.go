package churn

import (
	"math"
	"sort"

	"github.com/Alias1177/ChurnPredictor/models"
)

func mean(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

// populationStdDev divides by N, not N-1
func populationStdDev(values []float64, avg float64) float64 {
	if len(values) == 0 {
		return 0
	}
	variance := 0.0
	for _, v := range values {
		diff := v - avg
		variance += diff * diff
	}
	variance /= float64(len(values))
	return math.Sqrt(variance)
}

// Percentiles uses nearest-rank indexing on a sorted copy, the samples keep their order
func Percentiles(values []float64) models.ForecastPercentiles {
	if len(values) == 0 {
		return models.ForecastPercentiles{}
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	n := len(sorted)
	return models.ForecastPercentiles{
		P10:    sorted[n/10],
		P25:    sorted[n/4],
		Median: sorted[n/2],
		P75:    sorted[n*3/4],
		P90:    sorted[n*9/10],
	}
}
