package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/rs/zerolog"

	"github.com/Alias1177/ChurnPredictor/internal/analyze"
	"github.com/Alias1177/ChurnPredictor/internal/config"
	"github.com/Alias1177/ChurnPredictor/internal/database"
	"github.com/Alias1177/ChurnPredictor/internal/notify"
	"github.com/Alias1177/ChurnPredictor/models"
)

// alerter abstracts notify.Alerter for the broadcast run
type alerter interface {
	Alert(ctx context.Context, analysis *models.Analysis) error
}

// stats summarizes one broadcast run
type stats struct {
	Analyzed int
	Failed   int
	Alerts   int
	AlertErr int
}

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.SetupLogger()

	if cfg.TelegramBotToken == "" {
		logger.Fatal().Msg("TELEGRAM_BOT_TOKEN not set in environment")
	}
	if cfg.AlertChatID == 0 {
		logger.Fatal().Msg("ALERT_CHAT_ID not set in environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	bot, err := notify.NewBot(cfg.TelegramBotToken, cfg.AlertsPerSecond)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize Telegram bot")
	}

	analyzer, err := analyze.FromConfig(cfg, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build analyzer")
	}

	s, err := broadcast(ctx, db, analyzer, notify.NewAlerter(bot, cfg.AlertChatID, nil, logger), cfg.AlertThreshold, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Broadcast failed")
	}

	logger.Info().
		Int("analyzed", s.Analyzed).
		Int("failed", s.Failed).
		Int("alerts", s.Alerts).
		Int("alert_errors", s.AlertErr).
		Msg("Broadcast completed")
}

// broadcast analyzes every active stored customer, stores the forecasts and
// alerts on those whose mean forecast reaches threshold
func broadcast(ctx context.Context, store models.CustomerStore, analyzer *analyze.Analyzer, alerts alerter, threshold float64, logger zerolog.Logger) (stats, error) {
	var s stats

	customers, err := store.ListCustomers(ctx)
	if err != nil {
		return s, fmt.Errorf("listing customers: %w", err)
	}
	logger.Info().Int("customers", len(customers)).Msg("Found customers in database")

	analyses, errs := analyzer.AnalyzeAll(ctx, customers)
	s.Analyzed = len(analyses)
	s.Failed = len(errs)

	for _, a := range analyses {
		if err := store.SaveForecast(ctx, a); err != nil {
			logger.Error().Err(err).Str("customer_id", a.CustomerID).Msg("Failed to store forecast")
		}

		if a.Forecast.Mean < threshold {
			continue
		}
		if err := alerts.Alert(ctx, a); err != nil {
			s.AlertErr++
			if ctx.Err() != nil {
				return s, ctx.Err()
			}
			continue
		}
		s.Alerts++
	}

	return s, nil
}
