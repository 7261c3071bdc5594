package main

import (
	"context"
	"errors"
	"log/slog"
	"os"
	"os/signal"
	"sync"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"github.com/khushi491/interview-buddy-sub000/internal/analysis"
	"github.com/khushi491/interview-buddy-sub000/internal/api"
	"github.com/khushi491/interview-buddy-sub000/internal/config"
	"github.com/khushi491/interview-buddy-sub000/internal/interviewer"
	"github.com/khushi491/interview-buddy-sub000/internal/metrics"
	"github.com/khushi491/interview-buddy-sub000/internal/server"
	"github.com/khushi491/interview-buddy-sub000/internal/session"
	"github.com/khushi491/interview-buddy-sub000/internal/storage"
	"github.com/khushi491/interview-buddy-sub000/internal/telegram"
)

func main() {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		slog.Warn("failed to load .env file", "error", err)
	}

	appCfg := config.LoadAppConfig()
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: appCfg.LogLevel}))
	slog.SetDefault(logger)

	if err := run(appCfg, logger); err != nil {
		logger.Error("fatal", "error", err)
		os.Exit(1)
	}
}

func run(appCfg *config.AppConfig, logger *slog.Logger) error {
	if err := appCfg.Validate(); err != nil {
		return err
	}

	cfg, err := config.Load(appCfg.Interview.ConfigPath)
	if err != nil {
		return err
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	store, err := storage.Open(ctx, storage.Config{
		Backend:       appCfg.Storage.Backend,
		Path:          appCfg.Storage.Path,
		MongoURI:      appCfg.Storage.MongoURI,
		MongoDatabase: appCfg.Storage.MongoDatabase,
	})
	if err != nil {
		return err
	}
	defer func() {
		if err := store.Close(); err != nil {
			logger.Error("failed to close store", "error", err)
		}
	}()

	met := metrics.NewMetrics()
	writer := storage.NewWriter(store, met, logger)

	client := api.NewOpenAIClient(api.Config{
		APIKey:            appCfg.OpenAI.APIKey,
		BaseURL:           appCfg.OpenAI.BaseURL,
		Model:             appCfg.OpenAI.Model,
		MaxTokens:         appCfg.OpenAI.MaxTokens,
		Temperature:       appCfg.OpenAI.Temperature,
		Timeout:           appCfg.OpenAI.Timeout,
		RequestsPerSecond: appCfg.OpenAI.RequestsPerSecond,
	})
	logger.Info("model configured", "model", appCfg.OpenAI.GetModelInfo())

	manager := session.NewManager(session.Dependencies{
		Config:      cfg,
		Interviewer: interviewer.New(client, cfg.NewDetector(), met, logger),
		Analyzer:    analysis.New(client, met, logger),
		Writer:      writer,
		Store:       store,
		Recorder:    met,
		Logger:      logger,
	}, appCfg.Interview.SessionTTL)

	var wg sync.WaitGroup
	wg.Add(1)
	go func() {
		defer wg.Done()
		manager.RunCleanup(ctx, appCfg.Interview.CleanupInterval)
	}()

	if appCfg.Telegram.Token != "" {
		bot := telegram.New(appCfg.Telegram.Token, "", appCfg.Telegram.PollTimeout)
		handler := telegram.NewHandler(bot, manager, appCfg.Telegram.MessagesPerMin, logger)
		wg.Add(1)
		go func() {
			defer wg.Done()
			logger.Info("telegram bot polling")
			if err := bot.StartPolling(ctx, logger, handler.HandleUpdate); err != nil {
				logger.Error("telegram polling stopped", "error", err)
			}
		}()
	} else {
		logger.Info("TELEGRAM_BOT_TOKEN not set, telegram transport disabled")
	}

	srv := server.New(appCfg.Server, manager, cfg.FlowTypes(), met.Handler(), logger)
	errCh := make(chan error, 1)
	go func() {
		errCh <- srv.Start()
	}()

	logger.Info("interview service started",
		"flows", cfg.FlowTypes(),
		"storage", appCfg.Storage.Backend,
		"auto_advance", cfg.AutoAdvanceEnabled(),
	)

	select {
	case <-ctx.Done():
		logger.Info("shutting down")
	case err := <-errCh:
		if err != nil {
			return err
		}
	}
	stop()

	if err := srv.Shutdown(context.Background()); err != nil {
		logger.Error("http shutdown failed", "error", err)
	}
	wg.Wait()
	manager.Shutdown()

	flushCtx, cancel := context.WithTimeout(context.Background(), 15*time.Second)
	defer cancel()
	if err := writer.Close(flushCtx); err != nil {
		logger.Error("failed to flush pending writes", "error", err)
	}
	return nil
}
