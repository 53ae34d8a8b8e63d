package config

import (
	"os"
	"strconv"
	"time"
)

type Config struct {
	Port                    int
	DatabaseURL             string
	DailyAPIKey             string
	DailyAPIURL             string
	ProviderTimeout         time.Duration
	ProviderDownloadTimeout time.Duration
	ProviderMaxConcurrent   int
	NatsURL                 string
	LogLevel                string
	SlackBotToken           string
	SlackAlertChannel       string
}

func Load() Config {
	return Config{
		Port:                    envInt("SCRIBE_PORT", 8600),
		DatabaseURL:             envStr("DATABASE_URL", ""),
		DailyAPIKey:             envStr("DAILY_API_KEY", ""),
		DailyAPIURL:             envStr("DAILY_API_URL", "https://api.daily.co/v1"),
		ProviderTimeout:         time.Duration(envInt("PROVIDER_TIMEOUT_MS", 10000)) * time.Millisecond,
		ProviderDownloadTimeout: time.Duration(envInt("PROVIDER_DOWNLOAD_TIMEOUT_MS", 30000)) * time.Millisecond,
		ProviderMaxConcurrent:   envInt("PROVIDER_MAX_CONCURRENT", 8),
		NatsURL:                 envStr("NATS_URL", ""),
		LogLevel:                envStr("LOG_LEVEL", "info"),
		SlackBotToken:           envStr("SLACK_BOT_TOKEN", ""),
		SlackAlertChannel:       envStr("SLACK_ALERT_CHANNEL", ""),
	}
}

func envStr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
