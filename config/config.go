package config

import (
	"fmt"
	"os"
	"strconv"
	"sync"

	"github.com/joho/godotenv"
)

// Config holds all application configuration
type Config struct {
	// Telegram configuration
	TelegramToken string

	// Database configuration
	DatabaseURL  string
	DatabaseName string

	// Scheduler configuration (hours in UTC, 0-23)
	BroadcastHour int // weekly broadcast to active subscribers (Mondays)
	ReminderHour  int // daily expiry reminders
	ReconcileHour int // daily revoke-on-expiry reconciliation

	// Reminder look-ahead window in days
	ExpiryLookaheadDays int

	// Environment: "development", "production" or "test"
	Environment string
}

var (
	instance *Config
	once     sync.Once
)

// Get returns the global configuration instance
func Get() *Config {
	once.Do(func() {
		var err error
		instance, err = load()
		if err != nil {
			panic(fmt.Sprintf("failed to load config: %v", err))
		}
	})
	return instance
}

// load loads configuration from the environment, reading a .env file first
// when one is present.
func load() (*Config, error) {
	_ = godotenv.Load()

	config := &Config{
		TelegramToken: os.Getenv("TELEGRAM_TOKEN"),
		DatabaseURL:   os.Getenv("DATABASE_URL"),
		DatabaseName:  os.Getenv("DATABASE_NAME"),

		// Schedule defaults mirror the community's established rhythm:
		// broadcast 09:00, reminders 10:00, reconciliation 23:00.
		BroadcastHour:       9,
		ReminderHour:        10,
		ReconcileHour:       23,
		ExpiryLookaheadDays: 3,

		Environment: os.Getenv("ENVIRONMENT"),
	}

	if hour := os.Getenv("BROADCAST_HOUR"); hour != "" {
		if parsed, err := strconv.Atoi(hour); err == nil && parsed >= 0 && parsed <= 23 {
			config.BroadcastHour = parsed
		}
	}
	if hour := os.Getenv("REMINDER_HOUR"); hour != "" {
		if parsed, err := strconv.Atoi(hour); err == nil && parsed >= 0 && parsed <= 23 {
			config.ReminderHour = parsed
		}
	}
	if hour := os.Getenv("RECONCILE_HOUR"); hour != "" {
		if parsed, err := strconv.Atoi(hour); err == nil && parsed >= 0 && parsed <= 23 {
			config.ReconcileHour = parsed
		}
	}
	if days := os.Getenv("EXPIRY_LOOKAHEAD_DAYS"); days != "" {
		if parsed, err := strconv.Atoi(days); err == nil && parsed > 0 {
			config.ExpiryLookaheadDays = parsed
		}
	}

	if config.Environment == "" {
		config.Environment = "development"
	}

	if config.Environment != "test" {
		if config.TelegramToken == "" {
			return nil, fmt.Errorf("TELEGRAM_TOKEN is required")
		}
		if config.DatabaseURL == "" {
			return nil, fmt.Errorf("DATABASE_URL is required")
		}
	}

	return config, nil
}
