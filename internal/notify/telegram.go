package notify

import (
	"context"
	"fmt"
	"strings"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Alias1177/ChurnPredictor/internal/metrics"
	platformhttp "github.com/Alias1177/ChurnPredictor/internal/platform/http"
	"github.com/Alias1177/ChurnPredictor/models"
)

// Sender delivers a Telegram message, *tgbotapi.BotAPI implements it
type Sender interface {
	Send(c tgbotapi.Chattable) (tgbotapi.Message, error)
}

// NewBot creates a Telegram bot whose API calls go through a rate limited,
// retrying HTTP client
func NewBot(token string, requestsPerSec float64) (*tgbotapi.BotAPI, error) {
	client := platformhttp.NewClient(platformhttp.ClientOptions{RequestsPerSec: requestsPerSec})
	bot, err := tgbotapi.NewBotAPIWithClient(token, tgbotapi.APIEndpoint, client)
	if err != nil {
		return nil, fmt.Errorf("initializing telegram bot: %w", err)
	}
	return bot, nil
}

// Alerter posts high risk customers to a chat
type Alerter struct {
	sender  Sender
	chatID  int64
	metrics *metrics.Metrics
	logger  zerolog.Logger
}

// NewAlerter creates an alerter. m may be nil.
func NewAlerter(sender Sender, chatID int64, m *metrics.Metrics, logger zerolog.Logger) *Alerter {
	return &Alerter{
		sender:  sender,
		chatID:  chatID,
		metrics: m,
		logger:  logger.With().Str("component", "alerter").Logger(),
	}
}

// Alert sends one analysis to the alert chat
func (a *Alerter) Alert(ctx context.Context, analysis *models.Analysis) error {
	if err := ctx.Err(); err != nil {
		return err
	}

	msg := tgbotapi.NewMessage(a.chatID, FormatAlert(analysis))
	msg.ParseMode = tgbotapi.ModeMarkdown

	if _, err := a.sender.Send(msg); err != nil {
		a.record("failed")
		a.logger.Error().Err(err).Str("customer_id", analysis.CustomerID).Msg("Failed to send alert")
		return fmt.Errorf("sending alert for %s: %w", analysis.CustomerID, err)
	}

	a.record("sent")
	a.logger.Info().Str("customer_id", analysis.CustomerID).Int64("chat_id", a.chatID).Msg("Alert sent")
	return nil
}

func (a *Alerter) record(status string) {
	if a.metrics != nil {
		a.metrics.AlertsSent.WithLabelValues(status).Inc()
	}
}

// FormatAlert renders an analysis as a Markdown chat message
func FormatAlert(a *models.Analysis) string {
	var sb strings.Builder

	fmt.Fprintf(&sb, "⚠️ *%s* churn risk for `%s`\n\n", a.Intervention.Level, a.CustomerID)
	fmt.Fprintf(&sb, "Current probability: %.1f%%\n", a.Baseline*100)
	if a.Forecast != nil {
		fmt.Fprintf(&sb, "%d-day forecast: %.1f%% ± %.1f%%\n",
			a.ForecastDays, a.Forecast.Mean*100, a.Forecast.StdDev*100)
		fmt.Fprintf(&sb, "P10-P90: %.1f%% - %.1f%%\n",
			a.Forecast.Percentiles.P10*100, a.Forecast.Percentiles.P90*100)
	}

	fmt.Fprintf(&sb, "\n*%s*\n%s\n", a.Intervention.Title, a.Intervention.Description)
	for _, action := range a.Intervention.Actions {
		fmt.Fprintf(&sb, "• %s\n", action)
	}

	return sb.String()
}
