package config

import (
	"os"
	"strconv"

	"github.com/joho/godotenv"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"

	"github.com/Alias1177/ChurnPredictor/internal/database"
)

// Config holds all application configuration
type Config struct {
	LogLevel string `env:"LOG_LEVEL" envDefault:"info"`

	NumSimulations int    `env:"NUM_SIMULATIONS" envDefault:"100"`
	ForecastDays   int    `env:"FORECAST_DAYS" envDefault:"90"`
	ScoreWindow    int    `env:"SCORE_WINDOW" envDefault:"30"`
	Workers        int    `env:"SIM_WORKERS" envDefault:"0"` // 0 = GOMAXPROCS
	RandomSeed     int64  `env:"RANDOM_SEED" envDefault:"0"` // 0 = seeded from clock
	WeightsFile    string `env:"WEIGHTS_FILE" envDefault:""`
	NumCustomers   int    `env:"NUM_CUSTOMERS" envDefault:"50"`

	DB database.ConnectionParams

	Port                string  `env:"PORT" envDefault:"8080"`
	StripeWebhookSecret string  `env:"STRIPE_WEBHOOK_SECRET"`
	TelegramBotToken    string  `env:"TELEGRAM_BOT_TOKEN"`
	AlertChatID         int64   `env:"ALERT_CHAT_ID"`
	AlertThreshold      float64 `env:"ALERT_THRESHOLD" envDefault:"0.7"`
	AlertsPerSecond     float64 `env:"ALERTS_PER_SECOND" envDefault:"20"`
}

// Load initializes configuration from environment variables
func Load() (*Config, error) {
	// Load environment variables from .env file if present
	if err := godotenv.Load(); err != nil {
		log.Warn().Msg(".env file not found, relying on actual environment variables")
	}

	var cfg Config

	cfg.LogLevel = getEnvWithDefault("LOG_LEVEL", "info")

	cfg.NumSimulations = getEnvIntWithDefault("NUM_SIMULATIONS", 100)
	cfg.ForecastDays = getEnvIntWithDefault("FORECAST_DAYS", 90)
	cfg.ScoreWindow = getEnvIntWithDefault("SCORE_WINDOW", 30)
	cfg.Workers = getEnvIntWithDefault("SIM_WORKERS", 0)
	cfg.RandomSeed = getEnvInt64WithDefault("RANDOM_SEED", 0)
	cfg.WeightsFile = os.Getenv("WEIGHTS_FILE")
	cfg.NumCustomers = getEnvIntWithDefault("NUM_CUSTOMERS", 50)

	cfg.DB = database.ConnectionParams{
		Host:     os.Getenv("DB_HOST"),
		Port:     getEnvWithDefault("DB_PORT", "5432"),
		User:     os.Getenv("DB_USER"),
		Password: os.Getenv("DB_PASSWORD"),
		DBName:   os.Getenv("DB_NAME"),
		SSLMode:  getEnvWithDefault("DB_SSLMODE", "disable"),
	}

	cfg.Port = getEnvWithDefault("PORT", "8080")
	cfg.StripeWebhookSecret = os.Getenv("STRIPE_WEBHOOK_SECRET")
	cfg.TelegramBotToken = os.Getenv("TELEGRAM_BOT_TOKEN")
	cfg.AlertChatID = getEnvInt64WithDefault("ALERT_CHAT_ID", 0)
	cfg.AlertThreshold = getEnvFloatWithDefault("ALERT_THRESHOLD", 0.7)
	cfg.AlertsPerSecond = getEnvFloatWithDefault("ALERTS_PER_SECOND", 20)

	return &cfg, nil
}

// HasDatabase reports whether a database host is configured
func (c *Config) HasDatabase() bool {
	return c.DB.Host != ""
}

// Helper functions for environment variable handling
func getEnvWithDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvIntWithDefault(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvInt64WithDefault(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid integer, using default")
	}
	return defaultValue
}

func getEnvFloatWithDefault(key string, defaultValue float64) float64 {
	if value := os.Getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
		log.Warn().Str("key", key).Str("value", value).Msg("Invalid float, using default")
	}
	return defaultValue
}

// SetupLogger builds the console logger at the configured level and installs it
// as the global logger
func (c *Config) SetupLogger() zerolog.Logger {
	lvl, err := zerolog.ParseLevel(c.LogLevel)
	if err != nil || lvl == zerolog.NoLevel {
		lvl = zerolog.InfoLevel
	}
	logger := zerolog.New(zerolog.ConsoleWriter{Out: os.Stderr}).Level(lvl).With().Timestamp().Logger()
	log.Logger = logger
	return logger
}
