package config

import (
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var managedVars = []string{
	"TELEGRAM_TOKEN", "YANDEX_TOKEN", "LOG_LEVEL", "LOG_FILE", "LOG_MAX_SIZE_MB",
	"BOT_MODE", "WEBHOOK_HOST", "WEBHOOK_PATH", "WEBHOOK_SECRET", "HTTP_ADDR", "PORT",
	"INLINE_TIMEOUT", "DOWNLOAD_TIMEOUT", "MAX_PARALLEL_DOWNLOADS", "SEARCH_LIMIT",
}

// clearEnv registers every variable with t.Setenv so it is restored, then unsets it.
func clearEnv(t *testing.T) {
	t.Helper()
	for _, key := range managedVars {
		t.Setenv(key, "")
		require.NoError(t, os.Unsetenv(key))
	}
}

func TestLoadDefaults(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", " token ")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "token", cfg.TelegramToken)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ModePolling, cfg.BotMode)
	assert.Equal(t, "/webhook", cfg.WebhookPath)
	assert.Equal(t, ":8000", cfg.HTTPAddr)
	assert.Equal(t, 10*time.Second, cfg.InlineTimeout)
	assert.Equal(t, 3*time.Minute, cfg.DownloadTimeout)
	assert.Equal(t, 4, cfg.MaxParallelDownloads)
	assert.Equal(t, 5, cfg.SearchLimit)
	assert.Equal(t, 50, cfg.LogMaxSizeMB)
}

func TestLoadRequiresTelegramToken(t *testing.T) {
	clearEnv(t)

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "TELEGRAM_TOKEN")
}

func TestLoadPortFallback(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("PORT", "9090")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ":9090", cfg.HTTPAddr)
}

func TestLoadEmptyHTTPAddrDisablesListener(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("HTTP_ADDR", "")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Empty(t, cfg.HTTPAddr)
}

func TestLoadWebhookMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("BOT_MODE", "Webhook")

	_, err := Load()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "WEBHOOK_HOST")

	t.Setenv("WEBHOOK_HOST", "https://bot.example.com/")
	t.Setenv("WEBHOOK_PATH", "hook")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, ModeWebhook, cfg.BotMode)
	assert.Equal(t, "https://bot.example.com/hook", cfg.WebhookURL())
}

func TestLoadRejectsUnknownMode(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("BOT_MODE", "carrier-pigeon")

	_, err := Load()
	require.Error(t, err)
}

func TestLoadParsesOverrides(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("INLINE_TIMEOUT", "2s")
	t.Setenv("DOWNLOAD_TIMEOUT", "90s")
	t.Setenv("MAX_PARALLEL_DOWNLOADS", "8")
	t.Setenv("SEARCH_LIMIT", "3")

	cfg, err := Load()
	require.NoError(t, err)
	assert.Equal(t, 2*time.Second, cfg.InlineTimeout)
	assert.Equal(t, 90*time.Second, cfg.DownloadTimeout)
	assert.Equal(t, 8, cfg.MaxParallelDownloads)
	assert.Equal(t, 3, cfg.SearchLimit)
}

func TestLoadRejectsBadNumbers(t *testing.T) {
	clearEnv(t)
	t.Setenv("TELEGRAM_TOKEN", "token")
	t.Setenv("MAX_PARALLEL_DOWNLOADS", "zero")

	_, err := Load()
	require.Error(t, err)

	t.Setenv("MAX_PARALLEL_DOWNLOADS", "")
	t.Setenv("INLINE_TIMEOUT", "-1s")
	_, err = Load()
	require.Error(t, err)
}
