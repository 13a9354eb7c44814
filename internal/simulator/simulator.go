package simulator

import (
	"fmt"
	"math"
	"math/rand"
	"time"

	"github.com/Alias1177/ChurnPredictor/models"
)

const (
	// DefaultActivityRate is the daily activity probability of a customer with zero propensity
	DefaultActivityRate = 0.5

	minTenureDays = 30
	maxTenureDays = 365

	// propensity ~ Beta(1, propensityBeta), skewed towards loyal customers
	propensityBeta = 5.0
)

// historicalActivity includes upgrades, unlike the forecaster's simulated futures
var historicalActivity = []models.EventType{
	models.EventLogin,
	models.EventViewFeature,
	models.EventMakePurchase,
	models.EventSupportQuery,
	models.EventUpgradePlan,
}

// Simulator generates synthetic customer histories
type Simulator struct {
	rng *rand.Rand
	now time.Time
}

// New creates a simulator. A nil rng is seeded from the clock.
func New(rng *rand.Rand, now time.Time) *Simulator {
	if rng == nil {
		rng = rand.New(rand.NewSource(time.Now().UnixNano()))
	}
	return &Simulator{rng: rng, now: now.UTC().Truncate(24 * time.Hour)}
}

// GenerateEvents simulates days of daily activity ending today.
// It returns the events, whether the customer churned and the day index of churn (-1 if none).
func (s *Simulator) GenerateEvents(days int, propensity, activityRate float64) ([]models.Event, bool, int) {
	if days <= 0 {
		return nil, false, -1
	}

	events := make([]models.Event, 0, days+1)
	date := s.now.AddDate(0, 0, -days)
	activityProbability := activityRate * (1 - propensity)
	dailyChurnProbability := propensity / float64(days)

	for day := 0; day < days; day++ {
		eventType := models.EventInactivity
		if s.rng.Float64() < activityProbability {
			eventType = historicalActivity[s.rng.Intn(len(historicalActivity))]
		}
		events = append(events, models.Event{Date: models.FormatDate(date), Type: eventType})

		if s.rng.Float64() < dailyChurnProbability {
			events = append(events, models.Event{Date: models.FormatDate(date), Type: models.EventChurned})
			return events, true, day
		}

		date = date.AddDate(0, 0, 1)
	}

	return events, false, -1
}

// Customers generates n synthetic customers with IDs CUST-0000, CUST-0001, ...
func (s *Simulator) Customers(n int) []models.Customer {
	customers := make([]models.Customer, 0, n)
	for i := 0; i < n; i++ {
		tenure := minTenureDays + s.rng.Intn(maxTenureDays-minTenureDays+1)
		start := s.now.AddDate(0, 0, -tenure)
		propensity := s.propensity()

		events, churned, _ := s.GenerateEvents(tenure, propensity, DefaultActivityRate)

		customer := models.Customer{
			ID:                  fmt.Sprintf("CUST-%04d", i),
			StartDate:           models.FormatDate(start),
			LastActivityDate:    models.FormatDate(start),
			Churned:             churned,
			Events:              events,
			ChurnPropensityTrue: propensity,
		}
		if len(events) > 0 {
			customer.LastActivityDate = events[len(events)-1].Date
		}
		if churned {
			customer.ChurnDate = events[len(events)-1].Date
		}

		customers = append(customers, customer)
	}
	return customers
}

// propensity samples Beta(1, b) by inverting its CDF 1-(1-x)^b
func (s *Simulator) propensity() float64 {
	return 1 - math.Pow(1-s.rng.Float64(), 1/propensityBeta)
}
