package config

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func setBaseEnv(t *testing.T) {
	t.Helper()
	t.Setenv("DATABASE_URL", "postgres://localhost/alerts?sslmode=disable")
	for _, key := range []string{
		"TELEGRAM_TOKEN", "ADMIN_TELEGRAM_ID", "LOG_LEVEL", "ENVIRONMENT", "HTTP_ADDR",
		"CRON_SPEC_REFRESH", "CRON_SPEC_DIGEST", "ACK_STORE", "REDIS_URL", "ACK_STORAGE_KEY",
		"FETCH_TIMEOUT", "DUE_SOON_DAYS", "ENDING_SOON_DAYS", "RECENTLY_ENDED_DAYS", "TIMEZONE",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadDefaults(t *testing.T) {
	setBaseEnv(t)

	cfg, err := Load()
	require.NoError(t, err)
	assert.False(t, cfg.BotEnabled())
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, "development", cfg.Environment)
	assert.Equal(t, ":8080", cfg.HTTPAddr)
	assert.Equal(t, "@every 5m", cfg.CronSpecRefresh)
	assert.Equal(t, "0 9 * * *", cfg.CronSpecDigest)
	assert.Equal(t, AckStorePostgres, cfg.AckStore)
	assert.Equal(t, "notification_acknowledgements", cfg.AckStorageKey)
	assert.Equal(t, 30*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 7, cfg.DueSoonDays)
	assert.Equal(t, 7, cfg.EndingSoonDays)
	assert.Equal(t, 3, cfg.RecentlyEndedDays)
	assert.Equal(t, time.Local, cfg.Location)
}

func TestLoadOverrides(t *testing.T) {
	setBaseEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("ADMIN_TELEGRAM_ID", "123456")
	t.Setenv("LOG_LEVEL", "DEBUG")
	t.Setenv("ACK_STORE", "redis")
	t.Setenv("REDIS_URL", "redis://localhost:6379/0")
	t.Setenv("FETCH_TIMEOUT", "5s")
	t.Setenv("DUE_SOON_DAYS", "3")
	t.Setenv("TIMEZONE", "Europe/Paris")

	cfg, err := Load()
	require.NoError(t, err)
	assert.True(t, cfg.BotEnabled())
	assert.Equal(t, int64(123456), cfg.AdminTelegramID)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, AckStoreRedis, cfg.AckStore)
	assert.Equal(t, 5*time.Second, cfg.FetchTimeout)
	assert.Equal(t, 3, cfg.DueSoonDays)
	assert.Equal(t, "Europe/Paris", cfg.Location.String())
}

func TestLoadErrors(t *testing.T) {
	cases := map[string]map[string]string{
		"missing database url":     {"DATABASE_URL": ""},
		"token without admin id":   {"TELEGRAM_TOKEN": "token"},
		"non numeric admin id":     {"TELEGRAM_TOKEN": "token", "ADMIN_TELEGRAM_ID": "admin"},
		"unknown ack store":        {"ACK_STORE": "sqlite"},
		"redis store without url":  {"ACK_STORE": "redis"},
		"bad fetch timeout":        {"FETCH_TIMEOUT": "soon"},
		"negative due soon window": {"DUE_SOON_DAYS": "-1"},
		"unknown timezone":         {"TIMEZONE": "Mars/Olympus"},
	}
	for name, env := range cases {
		t.Run(name, func(t *testing.T) {
			setBaseEnv(t)
			for k, v := range env {
				t.Setenv(k, v)
			}
			_, err := Load()
			assert.Error(t, err)
		})
	}
}
