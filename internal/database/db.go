package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/cenkalti/backoff/v4"
	"github.com/lib/pq"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/ChurnPredictor/internal/churn"
	"github.com/Alias1177/ChurnPredictor/internal/intervention"
	"github.com/Alias1177/ChurnPredictor/models"
)

// ErrNotFound is returned when a customer or forecast does not exist
var ErrNotFound = errors.New("not found")

// DB represents a database connection
type DB struct {
	*sql.DB
}

// ConnectionParams holds PostgreSQL connection parameters
type ConnectionParams struct {
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// ConnString builds the lib/pq connection string
func (p ConnectionParams) ConnString() string {
	return fmt.Sprintf(
		"host=%s port=%s user=%s password=%s dbname=%s sslmode=%s",
		p.Host, p.Port, p.User, p.Password, p.DBName, p.SSLMode,
	)
}

// New creates a new database connection, retrying the initial ping
func New(ctx context.Context, params ConnectionParams) (*DB, error) {
	db, err := sql.Open("postgres", params.ConnString())
	if err != nil {
		return nil, err
	}

	// Check connection, the database may still be starting
	backoffStrategy := backoff.NewExponentialBackOff()
	backoffStrategy.MaxElapsedTime = 30 * time.Second
	ping := func() error {
		if err := db.PingContext(ctx); err != nil {
			log.Warn().Err(err).Str("host", params.Host).Msg("Database not reachable, retrying")
			return err
		}
		return nil
	}
	if err := backoff.Retry(ping, backoff.WithContext(backoffStrategy, ctx)); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	// Create tables if they don't exist
	if err := createTables(ctx, db); err != nil {
		db.Close()
		return nil, err
	}

	return &DB{db}, nil
}

// createTables creates the necessary tables if they don't exist
func createTables(ctx context.Context, db *sql.DB) error {
	statements := []string{
		`CREATE TABLE IF NOT EXISTS customers (
			customer_id TEXT PRIMARY KEY,
			start_date DATE NOT NULL,
			last_activity_date DATE NOT NULL,
			churned BOOLEAN NOT NULL DEFAULT FALSE,
			churn_date DATE,
			churn_propensity DOUBLE PRECISION NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE TABLE IF NOT EXISTS customer_events (
			id BIGSERIAL PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers(customer_id) ON DELETE CASCADE,
			event_date DATE NOT NULL,
			event_type TEXT NOT NULL,
			source TEXT NOT NULL DEFAULT '',
			created_at TIMESTAMP NOT NULL DEFAULT NOW()
		)`,
		`CREATE INDEX IF NOT EXISTS customer_events_customer_idx
			ON customer_events (customer_id, event_date, id)`,
		`CREATE TABLE IF NOT EXISTS churn_forecasts (
			forecast_id UUID PRIMARY KEY,
			customer_id TEXT NOT NULL REFERENCES customers(customer_id) ON DELETE CASCADE,
			baseline DOUBLE PRECISION NOT NULL,
			mean DOUBLE PRECISION NOT NULL,
			std_dev DOUBLE PRECISION NOT NULL,
			samples DOUBLE PRECISION[] NOT NULL,
			simulations INTEGER NOT NULL,
			forecast_days INTEGER NOT NULL,
			risk_level TEXT NOT NULL,
			unknown_events INTEGER NOT NULL DEFAULT 0,
			created_at TIMESTAMP NOT NULL
		)`,
	}

	for _, stmt := range statements {
		if _, err := db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating tables: %w", err)
		}
	}
	return nil
}

// UpsertCustomer stores a customer and replaces its event history
func (db *DB) UpsertCustomer(ctx context.Context, c models.Customer) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (
			customer_id, start_date, last_activity_date, churned, churn_date, churn_propensity
		) VALUES ($1, $2, $3, $4, $5, $6)
		ON CONFLICT (customer_id)
		DO UPDATE SET
			start_date = EXCLUDED.start_date,
			last_activity_date = EXCLUDED.last_activity_date,
			churned = EXCLUDED.churned,
			churn_date = EXCLUDED.churn_date,
			churn_propensity = EXCLUDED.churn_propensity
	`,
		c.ID, c.StartDate, c.LastActivityDate, c.Churned, nullString(c.ChurnDate), c.ChurnPropensityTrue)
	if err != nil {
		return fmt.Errorf("upserting customer %s: %w", c.ID, err)
	}

	if _, err := tx.ExecContext(ctx, `DELETE FROM customer_events WHERE customer_id = $1`, c.ID); err != nil {
		return fmt.Errorf("clearing events of %s: %w", c.ID, err)
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO customer_events (customer_id, event_date, event_type, source)
		VALUES ($1, $2, $3, 'import')
	`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	for _, e := range c.Events {
		if _, err := stmt.ExecContext(ctx, c.ID, e.Date, string(e.Type)); err != nil {
			return fmt.Errorf("inserting event of %s: %w", c.ID, err)
		}
	}

	return tx.Commit()
}

// AppendEvent records a new event, creating the customer on first sight.
// The last activity date only moves forward; a churned event marks the customer churned.
func (db *DB) AppendEvent(ctx context.Context, customerID string, e models.Event, source string) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer tx.Rollback()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customers (customer_id, start_date, last_activity_date)
		VALUES ($1, $2, $2)
		ON CONFLICT (customer_id)
		DO UPDATE SET last_activity_date = GREATEST(customers.last_activity_date, EXCLUDED.last_activity_date)
	`, customerID, e.Date)
	if err != nil {
		return fmt.Errorf("updating customer %s: %w", customerID, err)
	}

	_, err = tx.ExecContext(ctx, `
		INSERT INTO customer_events (customer_id, event_date, event_type, source)
		VALUES ($1, $2, $3, $4)
	`, customerID, e.Date, string(e.Type), source)
	if err != nil {
		return fmt.Errorf("inserting event of %s: %w", customerID, err)
	}

	if e.Type == models.EventChurned {
		_, err = tx.ExecContext(ctx, `
			UPDATE customers
			SET churned = TRUE, churn_date = COALESCE(churn_date, $2)
			WHERE customer_id = $1
		`, customerID, e.Date)
		if err != nil {
			return fmt.Errorf("marking %s churned: %w", customerID, err)
		}
	}

	return tx.Commit()
}

// GetCustomer retrieves a customer with its events in chronological order
func (db *DB) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	var c models.Customer
	var churnDate sql.NullString

	err := db.QueryRowContext(ctx, `
		SELECT
			customer_id,
			to_char(start_date, 'YYYY-MM-DD'),
			to_char(last_activity_date, 'YYYY-MM-DD'),
			churned,
			to_char(churn_date, 'YYYY-MM-DD'),
			churn_propensity
		FROM customers
		WHERE customer_id = $1
	`, id).Scan(&c.ID, &c.StartDate, &c.LastActivityDate, &c.Churned, &churnDate, &c.ChurnPropensityTrue)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("customer %s: %w", id, ErrNotFound)
		}
		return nil, err
	}
	if churnDate.Valid {
		c.ChurnDate = churnDate.String
	}

	events, err := db.events(ctx, id)
	if err != nil {
		return nil, err
	}
	c.Events = events

	return &c, nil
}

// ListCustomers retrieves every customer with its events
func (db *DB) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	rows, err := db.QueryContext(ctx, `SELECT customer_id FROM customers ORDER BY customer_id`)
	if err != nil {
		return nil, err
	}

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			rows.Close()
			return nil, err
		}
		ids = append(ids, id)
	}
	rows.Close()
	if err := rows.Err(); err != nil {
		return nil, err
	}

	customers := make([]models.Customer, 0, len(ids))
	for _, id := range ids {
		c, err := db.GetCustomer(ctx, id)
		if err != nil {
			return nil, err
		}
		customers = append(customers, *c)
	}
	return customers, nil
}

func (db *DB) events(ctx context.Context, customerID string) ([]models.Event, error) {
	rows, err := db.QueryContext(ctx, `
		SELECT to_char(event_date, 'YYYY-MM-DD'), event_type
		FROM customer_events
		WHERE customer_id = $1
		ORDER BY event_date, id
	`, customerID)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var events []models.Event
	for rows.Next() {
		var e models.Event
		var eventType string
		if err := rows.Scan(&e.Date, &eventType); err != nil {
			return nil, err
		}
		e.Type = models.EventType(eventType)
		events = append(events, e)
	}
	return events, rows.Err()
}

// SaveForecast stores the outcome of an analysis
func (db *DB) SaveForecast(ctx context.Context, a *models.Analysis) error {
	if a == nil || a.Forecast == nil {
		return errors.New("nil forecast")
	}

	_, err := db.ExecContext(ctx, `
		INSERT INTO churn_forecasts (
			forecast_id, customer_id, baseline, mean, std_dev, samples,
			simulations, forecast_days, risk_level, unknown_events, created_at
		) VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
	`,
		a.ForecastID, a.CustomerID, a.Baseline, a.Forecast.Mean, a.Forecast.StdDev,
		pq.Array(a.Forecast.Samples), a.Simulations, a.ForecastDays,
		a.Intervention.Level, a.UnknownEvents, a.CreatedAt)
	if err != nil {
		return fmt.Errorf("saving forecast for %s: %w", a.CustomerID, err)
	}
	return nil
}

// LatestForecast returns the most recent stored forecast of a customer
func (db *DB) LatestForecast(ctx context.Context, customerID string) (*models.Analysis, error) {
	a := models.Analysis{Forecast: &models.SimulationResult{}}
	var samples pq.Float64Array

	err := db.QueryRowContext(ctx, `
		SELECT
			forecast_id, customer_id, baseline, mean, std_dev, samples,
			simulations, forecast_days, risk_level, unknown_events, created_at
		FROM churn_forecasts
		WHERE customer_id = $1
		ORDER BY created_at DESC
		LIMIT 1
	`, customerID).Scan(
		&a.ForecastID, &a.CustomerID, &a.Baseline, &a.Forecast.Mean, &a.Forecast.StdDev, &samples,
		&a.Simulations, &a.ForecastDays, &a.Intervention.Level, &a.UnknownEvents, &a.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("forecast of %s: %w", customerID, ErrNotFound)
		}
		return nil, err
	}

	a.Forecast.Samples = []float64(samples)
	a.Forecast.Baseline = a.Baseline
	a.Forecast.Percentiles = churn.Percentiles(a.Forecast.Samples)
	a.Intervention = interventionFor(a.Intervention.Level, a.Forecast.Mean)
	return &a, nil
}

// interventionFor restores the intervention template of a stored forecast.
// The stored level wins over the mean if the thresholds changed since.
func interventionFor(level string, mean float64) models.Intervention {
	suggested := intervention.Suggest(mean)
	if suggested.Level == level || level == "" {
		return suggested
	}
	for _, p := range []float64{1, intervention.ModerateRiskThreshold, 0} {
		if candidate := intervention.Suggest(p); candidate.Level == level {
			return candidate
		}
	}
	return models.Intervention{Level: level}
}

func nullString(s string) sql.NullString {
	return sql.NullString{String: s, Valid: s != ""}
}
