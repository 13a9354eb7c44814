package main

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"

	"github.com/Alias1177/ChurnPredictor/internal/analyze"
	"github.com/Alias1177/ChurnPredictor/internal/config"
	"github.com/Alias1177/ChurnPredictor/internal/database"
	"github.com/Alias1177/ChurnPredictor/internal/handlers"
	"github.com/Alias1177/ChurnPredictor/internal/metrics"
	"github.com/Alias1177/ChurnPredictor/internal/payment"
)

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	logger := cfg.SetupLogger()

	if cfg.StripeWebhookSecret == "" {
		logger.Fatal().Msg("STRIPE_WEBHOOK_SECRET not set in environment")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	logger.Info().
		Str("host", cfg.DB.Host).
		Str("port", cfg.DB.Port).
		Str("dbname", cfg.DB.DBName).
		Msg("Webhook server starting")

	db, err := database.New(ctx, cfg.DB)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to initialize database")
	}
	defer db.Close()

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.NewMetrics(reg)

	analyzer, err := analyze.FromConfig(cfg, m, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build analyzer")
	}

	router := handlers.NewRouter(handlers.Deps{
		Store:    db,
		Stripe:   payment.NewStripeService(cfg.StripeWebhookSecret),
		Analyzer: analyzer,
		Metrics:  m,
		Gatherer: reg,
		Logger:   logger,
	})

	srv := &http.Server{
		Addr:              ":" + cfg.Port,
		Handler:           router,
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			logger.Error().Err(err).Msg("Server shutdown failed")
		}
	}()

	logger.Info().Str("port", cfg.Port).Msg("Starting webhook server")
	if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Fatal().Err(err).Msg("Failed to start server")
	}
	logger.Info().Msg("Webhook server stopped")
}
