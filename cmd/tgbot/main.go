package main

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"os"
	"os/signal"
	"strings"
	"syscall"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"

	"github.com/Alias1177/ChurnPredictor/internal/analyze"
	"github.com/Alias1177/ChurnPredictor/internal/config"
	"github.com/Alias1177/ChurnPredictor/internal/dashboard"
	"github.com/Alias1177/ChurnPredictor/internal/database"
	"github.com/Alias1177/ChurnPredictor/internal/notify"
	"github.com/Alias1177/ChurnPredictor/models"
)

// Telegram rejects messages longer than this
const maxMessageLen = 4096

// store is the persistence the bot reads from
type store interface {
	models.CustomerStore
	LatestForecast(ctx context.Context, customerID string) (*models.Analysis, error)
}

// handler answers chat commands over the customer store
type handler struct {
	sender   notify.Sender
	store    store
	analyzer *analyze.Analyzer
	logger   zerolog.Logger
	now      func() time.Time
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
	logger.Info().Str("username", bot.Self.UserName).Msg("Authorized on Telegram")

	analyzer, err := analyze.FromConfig(cfg, nil, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("Failed to build analyzer")
	}

	h := &handler{
		sender:   bot,
		store:    db,
		analyzer: analyzer,
		logger:   logger,
		now:      time.Now,
	}

	// Setup update configuration
	updateConfig := tgbotapi.NewUpdate(0)
	updateConfig.Timeout = 60
	updates := bot.GetUpdatesChan(updateConfig)

	for {
		select {
		case <-ctx.Done():
			bot.StopReceivingUpdates()
			logger.Info().Msg("Bot stopped")
			return
		case update := <-updates:
			if update.Message != nil {
				h.handleMessage(ctx, update.Message)
			}
		}
	}
}

func (h *handler) handleMessage(ctx context.Context, message *tgbotapi.Message) {
	chatID := message.Chat.ID

	h.logger.Info().
		Int64("chat_id", chatID).
		Str("text", message.Text).
		Msg("Received message")

	switch message.Command() {
	case "start":
		msg := tgbotapi.NewMessage(chatID, "Welcome to the Churn Predictor Bot! What would you like to do?")
		msg.ReplyMarkup = tgbotapi.NewReplyKeyboard(
			tgbotapi.NewKeyboardButtonRow(
				tgbotapi.NewKeyboardButton("/customers"),
				tgbotapi.NewKeyboardButton("/dashboard"),
			),
		)
		h.send(msg)

	case "customers":
		h.send(tgbotapi.NewMessage(chatID, h.customerList(ctx)))

	case "analyze":
		id := strings.TrimSpace(message.CommandArguments())
		if id == "" {
			h.send(tgbotapi.NewMessage(chatID, "Usage: /analyze <customer_id>"))
			return
		}
		text, markdown := h.analyzeCustomer(ctx, id)
		h.send(reply(chatID, text, markdown))

	case "forecast":
		id := strings.TrimSpace(message.CommandArguments())
		if id == "" {
			h.send(tgbotapi.NewMessage(chatID, "Usage: /forecast <customer_id>"))
			return
		}
		text, markdown := h.latestForecast(ctx, id)
		h.send(reply(chatID, text, markdown))

	case "dashboard":
		msg := tgbotapi.NewMessage(chatID, h.dashboard(ctx))
		msg.ParseMode = tgbotapi.ModeMarkdown
		h.send(msg)

	default:
		h.send(tgbotapi.NewMessage(chatID, "Unknown command. Use /customers, /analyze <customer_id>, /forecast <customer_id> or /dashboard."))
	}
}

func (h *handler) customerList(ctx context.Context) string {
	customers, err := h.store.ListCustomers(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list customers")
		return "Sorry, there was an error. Please try again later."
	}
	if len(customers) == 0 {
		return "No customers stored yet."
	}

	var sb strings.Builder
	fmt.Fprintf(&sb, "%d customers:\n", len(customers))
	for _, c := range customers {
		status := "active"
		if c.Churned {
			status = "churned " + c.ChurnDate
		}
		fmt.Fprintf(&sb, "%s  last activity %s  %s\n", c.ID, c.LastActivityDate, status)
	}
	return truncate(sb.String())
}

// analyzeCustomer runs a fresh forecast. markdown is true only for the formatted
// analysis; plain replies may echo ids with underscores.
func (h *handler) analyzeCustomer(ctx context.Context, id string) (string, bool) {
	customer, err := h.store.GetCustomer(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Sprintf("Customer %s not found.", id), false
		}
		h.logger.Error().Err(err).Str("customer_id", id).Msg("Failed to load customer")
		return "Sorry, there was an error. Please try again later.", false
	}

	analysis, err := h.analyzer.Analyze(ctx, *customer)
	if err != nil {
		return fmt.Sprintf("Analysis failed: %v", err), false
	}

	if err := h.store.SaveForecast(ctx, analysis); err != nil {
		h.logger.Error().Err(err).Str("customer_id", id).Msg("Failed to store forecast")
	}

	return truncate(notify.FormatAlert(analysis)), true
}

// latestForecast shows the most recent stored forecast without rerunning it
func (h *handler) latestForecast(ctx context.Context, id string) (string, bool) {
	analysis, err := h.store.LatestForecast(ctx, id)
	if err != nil {
		if errors.Is(err, database.ErrNotFound) {
			return fmt.Sprintf("No stored forecast for %s. Use /analyze %s to run one.", id, id), false
		}
		h.logger.Error().Err(err).Str("customer_id", id).Msg("Failed to load forecast")
		return "Sorry, there was an error. Please try again later.", false
	}

	return truncate(fmt.Sprintf("Stored %s\n%s",
		analysis.CreatedAt.UTC().Format("2006-01-02 15:04 UTC"), notify.FormatAlert(analysis))), true
}

func (h *handler) dashboard(ctx context.Context) string {
	customers, err := h.store.ListCustomers(ctx)
	if err != nil {
		h.logger.Error().Err(err).Msg("Failed to list customers")
		return "Sorry, there was an error. Please try again later."
	}

	var buf bytes.Buffer
	dashboard.Render(&buf, dashboard.Compute(customers, h.now()))

	// leave room for the code fence
	return "```\n" + truncateTo(buf.String(), maxMessageLen-8) + "\n```"
}

func reply(chatID int64, text string, markdown bool) tgbotapi.MessageConfig {
	msg := tgbotapi.NewMessage(chatID, text)
	if markdown {
		msg.ParseMode = tgbotapi.ModeMarkdown
	}
	return msg
}

func (h *handler) send(msg tgbotapi.MessageConfig) {
	if _, err := h.sender.Send(msg); err != nil {
		h.logger.Error().Err(err).Int64("chat_id", msg.ChatID).Msg("Failed to send message")
	}
}

func truncate(s string) string {
	return truncateTo(s, maxMessageLen)
}

func truncateTo(s string, n int) string {
	if len(s) <= n {
		return s
	}
	cut := n - len("\n...")
	// keep a valid UTF-8 boundary
	for cut > 0 && (s[cut]&0xC0) == 0x80 {
		cut--
	}
	return s[:cut] + "\n..."
}
