package main

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	tgbotapi "github.com/go-telegram-bot-api/telegram-bot-api/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Alias1177/ChurnPredictor/internal/analyze"
	"github.com/Alias1177/ChurnPredictor/internal/churn"
	"github.com/Alias1177/ChurnPredictor/internal/database"
	"github.com/Alias1177/ChurnPredictor/models"
)

type captureSender struct {
	sent []tgbotapi.MessageConfig
}

func (c *captureSender) Send(msg tgbotapi.Chattable) (tgbotapi.Message, error) {
	c.sent = append(c.sent, msg.(tgbotapi.MessageConfig))
	return tgbotapi.Message{}, nil
}

type mapStore struct {
	customers []models.Customer
	saved     []*models.Analysis
}

func (s *mapStore) LatestForecast(ctx context.Context, customerID string) (*models.Analysis, error) {
	for i := len(s.saved) - 1; i >= 0; i-- {
		if s.saved[i].CustomerID == customerID {
			return s.saved[i], nil
		}
	}
	return nil, fmt.Errorf("forecast of %s: %w", customerID, database.ErrNotFound)
}

func (s *mapStore) GetCustomer(ctx context.Context, id string) (*models.Customer, error) {
	for _, c := range s.customers {
		if c.ID == id {
			return &c, nil
		}
	}
	return nil, fmt.Errorf("customer %s: %w", id, database.ErrNotFound)
}

func (s *mapStore) ListCustomers(ctx context.Context) ([]models.Customer, error) {
	return s.customers, nil
}

func (s *mapStore) SaveForecast(ctx context.Context, a *models.Analysis) error {
	s.saved = append(s.saved, a)
	return nil
}

func newTestHandler(t *testing.T) (*handler, *captureSender, *mapStore) {
	t.Helper()
	forecaster := churn.NewForecaster(churn.NewScorer(nil, churn.DefaultWindow), zerolog.Nop(), 2)
	analyzer, err := analyze.NewAnalyzer(forecaster, nil, zerolog.Nop(), analyze.Settings{Simulations: 5, ForecastDays: 5, Seed: 1})
	require.NoError(t, err)

	sender := &captureSender{}
	store := &mapStore{customers: []models.Customer{
		{
			ID: "CUST-0001", StartDate: "2024-01-01", LastActivityDate: "2024-06-15",
			Events: []models.Event{{Date: "2024-06-15", Type: models.EventLogin}},
		},
		{
			ID: "CUST-0002", StartDate: "2024-01-01", LastActivityDate: "2024-03-01",
			Churned: true, ChurnDate: "2024-03-01",
			Events: []models.Event{{Date: "2024-03-01", Type: models.EventChurned}},
		},
	}}

	return &handler{
		sender:   sender,
		store:    store,
		analyzer: analyzer,
		logger:   zerolog.Nop(),
		now:      func() time.Time { return time.Date(2024, 6, 16, 0, 0, 0, 0, time.UTC) },
	}, sender, store
}

func command(text string) *tgbotapi.Message {
	length := len(text)
	if i := strings.IndexByte(text, ' '); i >= 0 {
		length = i
	}
	return &tgbotapi.Message{
		Text:     text,
		Chat:     &tgbotapi.Chat{ID: 42},
		Entities: []tgbotapi.MessageEntity{{Type: "bot_command", Offset: 0, Length: length}},
	}
}

func TestHandleCommands(t *testing.T) {
	tests := []struct {
		text     string
		contains string
	}{
		{"/start", "Welcome to the Churn Predictor Bot"},
		{"/customers", "CUST-0002  last activity 2024-03-01  churned 2024-03-01"},
		{"/analyze", "Usage: /analyze <customer_id>"},
		{"/analyze CUST-0001", "churn risk for `CUST-0001`"},
		{"/analyze CUST-0404", "Customer CUST-0404 not found."},
		{"/dashboard", "Total Customers: 2"},
		{"/forecast", "Usage: /forecast <customer_id>"},
		{"/forecast CUST-0001", "No stored forecast for CUST-0001"},
		{"/whatever", "Unknown command"},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h, sender, _ := newTestHandler(t)
			h.handleMessage(context.Background(), command(tt.text))

			require.Len(t, sender.sent, 1)
			assert.Equal(t, int64(42), sender.sent[0].ChatID)
			assert.Contains(t, sender.sent[0].Text, tt.contains)
		})
	}
}

func TestAnalyzeStoresForecast(t *testing.T) {
	h, _, store := newTestHandler(t)
	h.handleMessage(context.Background(), command("/analyze CUST-0001"))

	require.Len(t, store.saved, 1)
	assert.Equal(t, "CUST-0001", store.saved[0].CustomerID)
}

func TestForecastShowsStoredAnalysis(t *testing.T) {
	h, sender, store := newTestHandler(t)
	h.handleMessage(context.Background(), command("/analyze CUST-0001"))
	require.Len(t, store.saved, 1)

	h.handleMessage(context.Background(), command("/forecast CUST-0001"))

	require.Len(t, sender.sent, 2)
	assert.Contains(t, sender.sent[1].Text, "Stored ")
	assert.Contains(t, sender.sent[1].Text, "churn risk for `CUST-0001`")
	assert.Equal(t, tgbotapi.ModeMarkdown, sender.sent[1].ParseMode)
}

func TestPlainRepliesSkipMarkdown(t *testing.T) {
	tests := []struct {
		text     string
		markdown bool
	}{
		{"/analyze cus_ABC", false},
		{"/forecast cus_ABC", false},
		{"/analyze CUST-0001", true},
	}

	for _, tt := range tests {
		t.Run(tt.text, func(t *testing.T) {
			h, sender, _ := newTestHandler(t)
			h.handleMessage(context.Background(), command(tt.text))

			require.Len(t, sender.sent, 1)
			if tt.markdown {
				assert.Equal(t, tgbotapi.ModeMarkdown, sender.sent[0].ParseMode)
			} else {
				assert.Empty(t, sender.sent[0].ParseMode)
				assert.Contains(t, sender.sent[0].Text, "cus_ABC")
			}
		})
	}
}

func TestTruncate(t *testing.T) {
	short := "hello"
	assert.Equal(t, short, truncate(short))

	long := strings.Repeat("é", maxMessageLen)
	out := truncate(long)
	assert.LessOrEqual(t, len(out), maxMessageLen)
	assert.True(t, strings.HasSuffix(out, "\n..."))
	assert.True(t, strings.HasPrefix(out, "éé"))
}
