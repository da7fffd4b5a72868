package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Bot modes.
const (
	ModePolling = "polling"
	ModeWebhook = "webhook"
)

// Config holds application settings sourced from environment variables.
type Config struct {
	TelegramToken string
	YandexToken   string
	LogLevel      string
	LogFile       string
	LogMaxSizeMB  int

	BotMode       string
	WebhookHost   string
	WebhookPath   string
	WebhookSecret string
	HTTPAddr      string

	InlineTimeout        time.Duration
	DownloadTimeout      time.Duration
	MaxParallelDownloads int
	SearchLimit          int
}

// WebhookURL is the public address Telegram posts updates to.
func (c Config) WebhookURL() string {
	return strings.TrimRight(c.WebhookHost, "/") + c.WebhookPath
}

// Load reads configuration from the environment.
func Load() (Config, error) {
	cfg := Config{
		TelegramToken: strings.TrimSpace(os.Getenv("TELEGRAM_TOKEN")),
		YandexToken:   strings.TrimSpace(os.Getenv("YANDEX_TOKEN")),
		LogLevel:      strings.TrimSpace(os.Getenv("LOG_LEVEL")),
		LogFile:       strings.TrimSpace(os.Getenv("LOG_FILE")),
		BotMode:       strings.ToLower(strings.TrimSpace(os.Getenv("BOT_MODE"))),
		WebhookHost:   strings.TrimSpace(os.Getenv("WEBHOOK_HOST")),
		WebhookPath:   strings.TrimSpace(os.Getenv("WEBHOOK_PATH")),
		WebhookSecret: strings.TrimSpace(os.Getenv("WEBHOOK_SECRET")),
	}

	if cfg.LogLevel == "" {
		cfg.LogLevel = "info"
	}
	if cfg.BotMode == "" {
		cfg.BotMode = ModePolling
	}
	if cfg.WebhookPath == "" {
		cfg.WebhookPath = "/webhook"
	}
	if !strings.HasPrefix(cfg.WebhookPath, "/") {
		cfg.WebhookPath = "/" + cfg.WebhookPath
	}

	if addr, ok := os.LookupEnv("HTTP_ADDR"); ok {
		cfg.HTTPAddr = strings.TrimSpace(addr)
	} else if port := strings.TrimSpace(os.Getenv("PORT")); port != "" {
		cfg.HTTPAddr = ":" + port
	} else {
		cfg.HTTPAddr = ":8000"
	}

	var err error
	if cfg.LogMaxSizeMB, err = envInt("LOG_MAX_SIZE_MB", 50); err != nil {
		return cfg, err
	}
	if cfg.MaxParallelDownloads, err = envInt("MAX_PARALLEL_DOWNLOADS", 4); err != nil {
		return cfg, err
	}
	if cfg.SearchLimit, err = envInt("SEARCH_LIMIT", 5); err != nil {
		return cfg, err
	}
	if cfg.InlineTimeout, err = envDuration("INLINE_TIMEOUT", 10*time.Second); err != nil {
		return cfg, err
	}
	if cfg.DownloadTimeout, err = envDuration("DOWNLOAD_TIMEOUT", 3*time.Minute); err != nil {
		return cfg, err
	}

	if cfg.TelegramToken == "" {
		return cfg, fmt.Errorf("TELEGRAM_TOKEN is not set")
	}

	switch cfg.BotMode {
	case ModePolling:
	case ModeWebhook:
		if cfg.WebhookHost == "" {
			return cfg, fmt.Errorf("WEBHOOK_HOST is required in webhook mode")
		}
		if cfg.HTTPAddr == "" {
			return cfg, fmt.Errorf("HTTP_ADDR must not be empty in webhook mode")
		}
	default:
		return cfg, fmt.Errorf("unknown BOT_MODE: %s", cfg.BotMode)
	}

	return cfg, nil
}

func envInt(key string, fallback int) (int, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := strconv.Atoi(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive integer, got %q", key, raw)
	}
	return v, nil
}

func envDuration(key string, fallback time.Duration) (time.Duration, error) {
	raw := strings.TrimSpace(os.Getenv(key))
	if raw == "" {
		return fallback, nil
	}
	v, err := time.ParseDuration(raw)
	if err != nil || v <= 0 {
		return 0, fmt.Errorf("%s must be a positive duration, got %q", key, raw)
	}
	return v, nil
}
