package main

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"math/rand"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"github.com/Alias1177/ChurnPredictor/internal/analyze"
	"github.com/Alias1177/ChurnPredictor/internal/config"
	"github.com/Alias1177/ChurnPredictor/internal/dashboard"
	"github.com/Alias1177/ChurnPredictor/internal/database"
	"github.com/Alias1177/ChurnPredictor/internal/simulator"
	"github.com/Alias1177/ChurnPredictor/models"
)

const recentEvents = 10

func main() {
	// 1) Config and logger
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.SetupLogger()

	analyzer, err := analyze.FromConfig(cfg, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build analyzer")
	}

	ctx := context.Background()

	// 2) Synthetic customers
	seed := cfg.RandomSeed
	if seed == 0 {
		seed = time.Now().UnixNano()
	}
	sim := simulator.New(rand.New(rand.NewSource(seed)), time.Now())

	fmt.Println("--- Customer Churn Prediction & Intervention ---")
	fmt.Println("Generating synthetic customer data...")
	customers := sim.Customers(cfg.NumCustomers)
	fmt.Printf("Generated %d customers.\n", len(customers))

	// 3) Optional persistence
	app := &menu{
		analyzer:  analyzer,
		customers: customers,
		logger:    logger,
		now:       time.Now,
	}
	if cfg.HasDatabase() {
		db, err := database.New(ctx, cfg.DB)
		if err != nil {
			logger.Fatal().Err(err).Msg("Failed to initialize database")
		}
		defer db.Close()

		for _, c := range customers {
			if err := db.UpsertCustomer(ctx, c); err != nil {
				logger.Error().Err(err).Str("customer_id", c.ID).Msg("Failed to store customer")
			}
		}
		app.store = db
	}

	app.run(ctx, os.Stdin, os.Stdout)
}

// menu is the interactive loop over a generated portfolio
type menu struct {
	analyzer  *analyze.Analyzer
	customers []models.Customer
	store     models.CustomerStore
	logger    zerolog.Logger
	now       func() time.Time
}

func (m *menu) run(ctx context.Context, in io.Reader, out io.Writer) {
	scanner := bufio.NewScanner(in)

	for {
		fmt.Fprintln(out, "\n--- Main Menu ---")
		fmt.Fprintln(out, "1. View Customer Health Dashboard")
		fmt.Fprintln(out, "2. Analyze Individual Customer Churn")
		fmt.Fprintln(out, "3. Exit")
		fmt.Fprint(out, "Enter your choice (1, 2, or 3): ")

		if !scanner.Scan() {
			return
		}

		switch strings.TrimSpace(scanner.Text()) {
		case "1":
			dashboard.Render(out, dashboard.Compute(m.customers, m.now()))
		case "2":
			customer, ok := m.selectCustomer(scanner, out)
			if !ok {
				return
			}
			m.analyzeCustomer(ctx, out, customer)
		case "3":
			fmt.Fprintln(out, "Exiting application. Goodbye!")
			return
		default:
			fmt.Fprintln(out, "Invalid choice. Please enter 1, 2, or 3.")
		}
	}
}

// selectCustomer lists the portfolio and reads a 1-based index until it is valid
func (m *menu) selectCustomer(scanner *bufio.Scanner, out io.Writer) (models.Customer, bool) {
	fmt.Fprintln(out, "\nAvailable Customers:")
	for i, c := range m.customers {
		fmt.Fprintf(out, "  %d. %s\n", i+1, c.ID)
	}

	for {
		fmt.Fprint(out, "Enter the number of the customer to analyze: ")
		if !scanner.Scan() {
			return models.Customer{}, false
		}
		n, err := strconv.Atoi(strings.TrimSpace(scanner.Text()))
		if err != nil {
			fmt.Fprintln(out, "Invalid input. Please enter a number.")
			continue
		}
		if n < 1 || n > len(m.customers) {
			fmt.Fprintln(out, "Invalid number. Please enter a number from the list.")
			continue
		}
		return m.customers[n-1], true
	}
}

func (m *menu) analyzeCustomer(ctx context.Context, out io.Writer, c models.Customer) {
	fmt.Fprintf(out, "\nAnalyzing Customer: %s\n", c.ID)
	fmt.Fprintln(out, strings.Repeat("-", 70))

	fmt.Fprintln(out, "\n--- Customer Overview ---")
	fmt.Fprintf(out, "Start Date: %s\n", c.StartDate)
	fmt.Fprintf(out, "Last Activity Date: %s\n", c.LastActivityDate)
	if c.Churned {
		fmt.Fprintf(out, "Status: CHURNED on %s\n", c.ChurnDate)
	} else {
		fmt.Fprintln(out, "Status: Active")
	}
	fmt.Fprintf(out, "(True Churn Propensity: %.2f)\n", c.ChurnPropensityTrue)

	fmt.Fprintln(out, "\n--- Recent Customer Activity ---")
	if len(c.Events) == 0 {
		fmt.Fprintln(out, "No recent activity recorded for this customer.")
	}
	start := len(c.Events) - recentEvents
	if start < 0 {
		start = 0
	}
	for _, e := range c.Events[start:] {
		fmt.Fprintf(out, "  %s  %s\n", e.Date, e.Type)
	}

	fmt.Fprintln(out, "\nRunning Monte Carlo simulations for churn prediction...")
	analysis, err := m.analyzer.Analyze(ctx, c)
	if err != nil {
		m.logger.Error().Err(err).Str("customer_id", c.ID).Msg("Prediction failed")
		fmt.Fprintf(out, "Prediction failed: %v\n", err)
		return
	}

	fmt.Fprintln(out, "\n--- Prediction Results ---")
	fmt.Fprintf(out, "Current Churn Probability: %.2f\n", analysis.Baseline)
	fmt.Fprintf(out, "Predicted Churn Probability (Mean): %.2f\n", analysis.Forecast.Mean)
	fmt.Fprintf(out, "Standard Deviation of Predictions: %.2f\n", analysis.Forecast.StdDev)
	p := analysis.Forecast.Percentiles
	fmt.Fprintf(out, "Percentiles: P10 %.2f  P25 %.2f  P50 %.2f  P75 %.2f  P90 %.2f\n",
		p.P10, p.P25, p.Median, p.P75, p.P90)

	dashboard.RenderHistogram(out, "Monte Carlo Churn Probability Distribution",
		analysis.Forecast.Samples, dashboard.DefaultBins)

	fmt.Fprintln(out, "\n--- Suggested Intervention Strategy ---")
	fmt.Fprintf(out, "Title: %s\n", analysis.Intervention.Title)
	fmt.Fprintf(out, "Description: %s\n", analysis.Intervention.Description)
	fmt.Fprintln(out, "Recommended Actions:")
	for _, action := range analysis.Intervention.Actions {
		fmt.Fprintf(out, "- %s\n", action)
	}

	if m.store != nil {
		if err := m.store.SaveForecast(ctx, analysis); err != nil {
			m.logger.Error().Err(err).Str("customer_id", c.ID).Msg("Failed to store forecast")
		}
	}
}
