package dashboard

import (
	"bytes"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/ChurnPredictor/models"
)

var now = time.Date(2024, 6, 30, 0, 0, 0, 0, time.UTC)

func testCustomers() []models.Customer {
	return []models.Customer{
		{
			ID: "CUST-0000", StartDate: "2024-06-01", LastActivityDate: "2024-06-29",
			ChurnPropensityTrue: 0.1,
			Events: []models.Event{
				{Date: "2024-06-01", Type: models.EventLogin},
				{Date: "2024-06-02", Type: models.EventLogin},
				{Date: "2024-06-03", Type: models.EventInactivity},
			},
		},
		{
			ID: "CUST-0001", StartDate: "2024-05-01", LastActivityDate: "2024-06-10",
			ChurnPropensityTrue: 0.5,
			Events: []models.Event{
				{Date: "2024-05-01", Type: models.EventInactivity},
				{Date: "2024-05-02", Type: models.EventLogin},
			},
		},
		{
			ID: "CUST-0002", StartDate: "2024-04-01", LastActivityDate: "2024-04-21",
			Churned: true, ChurnDate: "2024-04-21", ChurnPropensityTrue: 0.9,
			Events: []models.Event{
				{Date: "2024-04-21", Type: models.EventChurned},
			},
		},
	}
}

func TestCompute(t *testing.T) {
	stats := Compute(testCustomers(), now)

	assert.Equal(t, 3, stats.TotalCustomers)
	assert.Equal(t, 2, stats.ActiveCustomers)
	assert.Equal(t, 1, stats.ChurnedCustomers)
	assert.InDelta(t, 33.333, stats.ChurnRate, 0.01)
	assert.InDelta(t, (29.0+60.0)/2, stats.AvgTenureActive, 1e-9)
	assert.InDelta(t, 20.0, stats.AvgTenureChurned, 1e-9)
	assert.Zero(t, stats.UnparseableRecords)

	require.Len(t, stats.EventCounts, 3)
	assert.Equal(t, EventCount{Type: models.EventLogin, Count: 3}, stats.EventCounts[0])
	assert.Equal(t, EventCount{Type: models.EventInactivity, Count: 2}, stats.EventCounts[1])
	assert.Equal(t, EventCount{Type: models.EventChurned, Count: 1}, stats.EventCounts[2])

	total := 0
	for _, b := range stats.PropensityBins {
		total += b.Count
	}
	assert.Equal(t, 3, total)
}

func TestComputeEmptyAndBadDates(t *testing.T) {
	empty := Compute(nil, now)
	assert.Zero(t, empty.TotalCustomers)
	assert.Zero(t, empty.ChurnRate)
	assert.Nil(t, empty.PropensityBins)

	bad := Compute([]models.Customer{{ID: "X", StartDate: "not-a-date"}}, now)
	assert.Equal(t, 1, bad.UnparseableRecords)
	assert.Zero(t, bad.AvgTenureActive)
}

func TestHistogram(t *testing.T) {
	bins := Histogram([]float64{0, 0.1, 0.5, 0.95, 1.0}, 10)
	require.Len(t, bins, 10)
	assert.Equal(t, 1, bins[0].Count)
	assert.Equal(t, 1, bins[1].Count)
	assert.Equal(t, 1, bins[5].Count)
	assert.Equal(t, 2, bins[9].Count, "maximum falls in the last bin")
	assert.Equal(t, 1.0, bins[9].Upper)

	same := Histogram([]float64{0.3, 0.3}, 4)
	require.Len(t, same, 4)
	assert.InDelta(t, -0.2, same[0].Lower, 1e-12)
	assert.InDelta(t, 0.8, same[3].Upper, 1e-12)

	assert.Nil(t, Histogram(nil, 10))
	assert.Nil(t, Histogram([]float64{1}, 0))
}

func TestRender(t *testing.T) {
	var buf bytes.Buffer
	Render(&buf, Compute(testCustomers(), now))

	out := buf.String()
	assert.Contains(t, out, "CUSTOMER HEALTH DASHBOARD")
	assert.Contains(t, out, "Total Customers: 3")
	assert.Contains(t, out, "Churn Rate: 33.33%")
	assert.Contains(t, out, "Average Tenure (Churned Customers): 20 days")
	assert.Contains(t, out, "login")

	buf.Reset()
	RenderHistogram(&buf, "Samples", []float64{0.2, 0.4}, 2)
	assert.Contains(t, buf.String(), "Samples:")

	buf.Reset()
	RenderHistogram(&buf, "Samples", nil, 2)
	assert.Contains(t, buf.String(), "no data")
}
