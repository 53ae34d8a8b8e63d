package main

import (
	"context"
	"log/slog"
	"os"
	"os/signal"
	"syscall"

	"github.com/IsaacCespedes/BriefingRoom/internal/api"
	"github.com/IsaacCespedes/BriefingRoom/internal/bus"
	"github.com/IsaacCespedes/BriefingRoom/internal/config"
	"github.com/IsaacCespedes/BriefingRoom/internal/daily"
	slackalert "github.com/IsaacCespedes/BriefingRoom/internal/slack"
	"github.com/IsaacCespedes/BriefingRoom/internal/store"
	"github.com/IsaacCespedes/BriefingRoom/internal/transcript"
)

func main() {
	cfg := config.Load()
	setupLogging(cfg.LogLevel)

	slog.Info("scribe starting",
		"port", cfg.Port,
		"daily_api_url", cfg.DailyAPIURL,
		"provider_max_concurrent", cfg.ProviderMaxConcurrent,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Step 1: Connect to database.
	if cfg.DatabaseURL == "" {
		slog.Error("DATABASE_URL is required")
		os.Exit(1)
	}

	db, err := store.New(ctx, cfg.DatabaseURL)
	if err != nil {
		slog.Error("failed to connect to database", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("database connected")

	// Step 2: Build the Daily client.
	if cfg.DailyAPIKey == "" {
		slog.Error("DAILY_API_KEY is required")
		os.Exit(1)
	}
	dailyClient := daily.NewClient(cfg.DailyAPIKey, cfg.DailyAPIURL, daily.Options{
		Timeout:         cfg.ProviderTimeout,
		DownloadTimeout: cfg.ProviderDownloadTimeout,
		MaxConcurrent:   int64(cfg.ProviderMaxConcurrent),
	})

	// Step 3: Wire the reconciler.
	rec := transcript.NewReconciler(db, transcript.NewProviderAdapter(dailyClient))

	// Conditionally connect NATS for stored-transcript announcements.
	if cfg.NatsURL != "" {
		b, err := bus.Connect(cfg.NatsURL)
		if err != nil {
			slog.Error("failed to connect to NATS", "error", err)
			os.Exit(1)
		}
		defer b.Close()
		rec.SetPublisher(b.Publish)
		slog.Info("NATS connected", "url", cfg.NatsURL)
	}

	// Conditionally create Slack alerter for failed transcripts.
	if cfg.SlackBotToken != "" && cfg.SlackAlertChannel != "" {
		rec.SetFailureNotifier(slackalert.NewAlerter(cfg.SlackBotToken, cfg.SlackAlertChannel))
		slog.Info("Slack failure alerter enabled", "channel", cfg.SlackAlertChannel)
	}

	// Step 4: Start HTTP API.
	srv := api.NewServer(db, rec, cfg.Port)
	go func() {
		if err := srv.Start(); err != nil {
			slog.Error("HTTP server error", "error", err)
		}
	}()

	slog.Info("scribe ready", "port", cfg.Port)

	// Wait for shutdown signal.
	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	sig := <-sigCh

	slog.Info("shutting down", "signal", sig)
	cancel()
	slog.Info("scribe stopped")
}

func setupLogging(level string) {
	var lvl slog.Level
	switch level {
	case "debug":
		lvl = slog.LevelDebug
	case "warn":
		lvl = slog.LevelWarn
	case "error":
		lvl = slog.LevelError
	default:
		lvl = slog.LevelInfo
	}

	handler := slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: lvl})
	slog.SetDefault(slog.New(handler))
}
