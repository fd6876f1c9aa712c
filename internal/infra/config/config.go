package config

import (
	"fmt"
	"os"
	"strconv"
	"strings" // For LogLevel normalization
	"time"

	"github.com/joho/godotenv"
)

// Acknowledgement store backends.
const (
	AckStorePostgres = "postgres"
	AckStoreRedis    = "redis"
	AckStoreMemory   = "memory"
)

// AppConfig holds all configuration for the application
type AppConfig struct {
	DatabaseURL     string
	TelegramToken   string // empty disables the bot
	AdminTelegramID int64
	LogLevel        string
	Environment     string
	HTTPAddr        string

	CronSpecRefresh string
	CronSpecDigest  string

	AckStore      string
	RedisURL      string
	AckStorageKey string

	FetchTimeout      time.Duration
	DueSoonDays       int
	EndingSoonDays    int
	RecentlyEndedDays int
	Location          *time.Location
}

// BotEnabled reports whether the Telegram consumer should start.
func (c *AppConfig) BotEnabled() bool {
	return c.TelegramToken != ""
}

// Load reads configuration from environment variables and .env file (if present).
func Load() (*AppConfig, error) {
	// godotenv.Load will not override existing env variables.
	_ = godotenv.Load()

	cfg := &AppConfig{}
	var err error

	cfg.DatabaseURL = os.Getenv("DATABASE_URL")
	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is not set")
	}

	cfg.TelegramToken = os.Getenv("TELEGRAM_TOKEN")
	if cfg.TelegramToken != "" {
		adminIDStr := os.Getenv("ADMIN_TELEGRAM_ID")
		if adminIDStr == "" {
			return nil, fmt.Errorf("ADMIN_TELEGRAM_ID is not set")
		}
		cfg.AdminTelegramID, err = strconv.ParseInt(adminIDStr, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ADMIN_TELEGRAM_ID: %w", err)
		}
	}

	cfg.LogLevel = strings.ToLower(getEnv("LOG_LEVEL", "info"))
	cfg.Environment = strings.ToLower(getEnv("ENVIRONMENT", "development"))
	cfg.HTTPAddr = getEnv("HTTP_ADDR", ":8080")

	cfg.CronSpecRefresh = getEnv("CRON_SPEC_REFRESH", "@every 5m")
	cfg.CronSpecDigest = getEnv("CRON_SPEC_DIGEST", "0 9 * * *") // 9 AM daily

	cfg.AckStore = strings.ToLower(getEnv("ACK_STORE", AckStorePostgres))
	switch cfg.AckStore {
	case AckStorePostgres, AckStoreMemory:
	case AckStoreRedis:
		cfg.RedisURL = os.Getenv("REDIS_URL")
		if cfg.RedisURL == "" {
			return nil, fmt.Errorf("REDIS_URL is not set (required when ACK_STORE=redis)")
		}
	default:
		return nil, fmt.Errorf("invalid ACK_STORE %q: expected postgres, redis or memory", cfg.AckStore)
	}
	cfg.AckStorageKey = getEnv("ACK_STORAGE_KEY", "notification_acknowledgements")

	if cfg.FetchTimeout, err = getDuration("FETCH_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if cfg.DueSoonDays, err = getDays("DUE_SOON_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.EndingSoonDays, err = getDays("ENDING_SOON_DAYS", 7); err != nil {
		return nil, err
	}
	if cfg.RecentlyEndedDays, err = getDays("RECENTLY_ENDED_DAYS", 3); err != nil {
		return nil, err
	}

	tz := getEnv("TIMEZONE", "Local")
	cfg.Location, err = time.LoadLocation(tz)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", tz, err)
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil || d <= 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a positive duration", key, v)
	}
	return d, nil
}

func getDays(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil || n < 0 {
		return 0, fmt.Errorf("invalid %s %q: expected a non-negative number of days", key, v)
	}
	return n, nil
}
