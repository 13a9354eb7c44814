package dashboard

import (
	"fmt"
	"io"
	"sort"
	"strings"
	"time"

	"github.com/Alias1177/ChurnPredictor/models"
)

const (
	DefaultBins = 10
	maxBarWidth = 40
)

// Bin is one histogram bucket, [Lower, Upper) except the last which is closed
type Bin struct {
	Lower float64 `json:"lower"`
	Upper float64 `json:"upper"`
	Count int     `json:"count"`
}

// EventCount is the number of occurrences of one event type
type EventCount struct {
	Type  models.EventType `json:"type"`
	Count int              `json:"count"`
}

// PortfolioStats summarizes the health of a set of customers
type PortfolioStats struct {
	TotalCustomers     int          `json:"total_customers"`
	ActiveCustomers    int          `json:"active_customers"`
	ChurnedCustomers   int          `json:"churned_customers"`
	ChurnRate          float64      `json:"churn_rate_pct"`
	AvgTenureActive    float64      `json:"avg_tenure_active_days"`
	AvgTenureChurned   float64      `json:"avg_tenure_churned_days"`
	PropensityBins     []Bin        `json:"propensity_bins"`
	EventCounts        []EventCount `json:"event_counts"`
	UnparseableRecords int          `json:"unparseable_records"`
}

// Compute aggregates portfolio statistics as of now.
// Customers whose dates cannot be parsed are left out of tenure averages and counted.
func Compute(customers []models.Customer, now time.Time) PortfolioStats {
	stats := PortfolioStats{TotalCustomers: len(customers)}

	var activeTenure, churnedTenure []float64
	propensities := make([]float64, 0, len(customers))
	counts := make(map[models.EventType]int)

	for _, c := range customers {
		if c.Churned {
			stats.ChurnedCustomers++
		} else {
			stats.ActiveCustomers++
		}

		propensities = append(propensities, c.ChurnPropensityTrue)
		for _, e := range c.Events {
			counts[e.Type]++
		}

		start, err := models.ParseDate(c.StartDate)
		if err != nil {
			stats.UnparseableRecords++
			continue
		}
		if !c.Churned {
			activeTenure = append(activeTenure, float64(models.DaysBetween(start, now)))
			continue
		}
		churnDate, err := models.ParseDate(c.ChurnDate)
		if err != nil {
			stats.UnparseableRecords++
			continue
		}
		churnedTenure = append(churnedTenure, float64(models.DaysBetween(start, churnDate)))
	}

	if stats.TotalCustomers > 0 {
		stats.ChurnRate = float64(stats.ChurnedCustomers) / float64(stats.TotalCustomers) * 100
	}
	stats.AvgTenureActive = average(activeTenure)
	stats.AvgTenureChurned = average(churnedTenure)
	stats.PropensityBins = Histogram(propensities, DefaultBins)

	for t, n := range counts {
		stats.EventCounts = append(stats.EventCounts, EventCount{Type: t, Count: n})
	}
	sort.Slice(stats.EventCounts, func(i, j int) bool {
		if stats.EventCounts[i].Count != stats.EventCounts[j].Count {
			return stats.EventCounts[i].Count > stats.EventCounts[j].Count
		}
		return stats.EventCounts[i].Type < stats.EventCounts[j].Type
	})

	return stats
}

// Histogram splits values into equal-width bins between their minimum and maximum.
// Identical values are centered in a unit-wide range.
func Histogram(values []float64, bins int) []Bin {
	if len(values) == 0 || bins <= 0 {
		return nil
	}

	lo, hi := values[0], values[0]
	for _, v := range values {
		if v < lo {
			lo = v
		}
		if v > hi {
			hi = v
		}
	}
	if lo == hi {
		lo -= 0.5
		hi += 0.5
	}

	width := (hi - lo) / float64(bins)
	out := make([]Bin, bins)
	for i := range out {
		out[i].Lower = lo + float64(i)*width
		out[i].Upper = lo + float64(i+1)*width
	}
	out[bins-1].Upper = hi

	for _, v := range values {
		idx := int((v - lo) / width)
		if idx >= bins {
			idx = bins - 1
		}
		if idx < 0 {
			idx = 0
		}
		out[idx].Count++
	}
	return out
}

// Render writes the customer health dashboard
func Render(w io.Writer, stats PortfolioStats) {
	line := strings.Repeat("=", 70)
	fmt.Fprintf(w, "\n%s\n", line)
	fmt.Fprintf(w, "%s\n", center("CUSTOMER HEALTH DASHBOARD", 70))
	fmt.Fprintf(w, "%s\n", line)

	fmt.Fprintf(w, "Total Customers: %d\n", stats.TotalCustomers)
	fmt.Fprintf(w, "Active Customers: %d\n", stats.ActiveCustomers)
	fmt.Fprintf(w, "Churned Customers: %d\n", stats.ChurnedCustomers)
	if stats.TotalCustomers > 0 {
		fmt.Fprintf(w, "Churn Rate: %.2f%%\n", stats.ChurnRate)
	} else {
		fmt.Fprintln(w, "No customers to calculate churn rate.")
	}

	if stats.ActiveCustomers > 0 {
		fmt.Fprintf(w, "Average Tenure (Active Customers): %.0f days\n", stats.AvgTenureActive)
	} else {
		fmt.Fprintln(w, "No active customers to calculate average tenure.")
	}
	if stats.ChurnedCustomers > 0 {
		fmt.Fprintf(w, "Average Tenure (Churned Customers): %.0f days\n", stats.AvgTenureChurned)
	} else {
		fmt.Fprintln(w, "No churned customers to calculate average tenure.")
	}
	if stats.UnparseableRecords > 0 {
		fmt.Fprintf(w, "Records with unparseable dates: %d\n", stats.UnparseableRecords)
	}

	if len(stats.PropensityBins) > 0 {
		renderBins(w, "Distribution of True Churn Propensity", stats.PropensityBins)
	}

	if len(stats.EventCounts) > 0 {
		fmt.Fprintln(w, "\nOverall Distribution of Event Types:")
		for _, ec := range stats.EventCounts {
			fmt.Fprintf(w, "%-15s %d\n", ec.Type, ec.Count)
		}
	} else {
		fmt.Fprintln(w, "\nNo event data to display distribution.")
	}

	fmt.Fprintf(w, "\n%s\n", line)
}

// RenderHistogram writes a text histogram of values, e.g. Monte Carlo samples
func RenderHistogram(w io.Writer, title string, values []float64, bins int) {
	hist := Histogram(values, bins)
	if len(hist) == 0 {
		fmt.Fprintf(w, "\n%s: no data\n", title)
		return
	}
	renderBins(w, title, hist)
}

func renderBins(w io.Writer, title string, bins []Bin) {
	peak := 0
	for _, b := range bins {
		if b.Count > peak {
			peak = b.Count
		}
	}

	fmt.Fprintf(w, "\n%s:\n", title)
	for _, b := range bins {
		bar := 0
		if peak > 0 {
			bar = b.Count * maxBarWidth / peak
		}
		fmt.Fprintf(w, "[%.2f - %.2f] %-*s %d\n", b.Lower, b.Upper, maxBarWidth, strings.Repeat("#", bar), b.Count)
	}
}

func average(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sum := 0.0
	for _, v := range values {
		sum += v
	}
	return sum / float64(len(values))
}

func center(s string, width int) string {
	if len(s) >= width {
		return s
	}
	return strings.Repeat(" ", (width-len(s))/2) + s
}
