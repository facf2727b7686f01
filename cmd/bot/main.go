package main

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"

	"carpet-studio/internal/album"
	"carpet-studio/internal/app"
	"carpet-studio/internal/config"
	"carpet-studio/internal/handlers"
	"carpet-studio/internal/logging"
	"carpet-studio/internal/settings"
	"carpet-studio/internal/telegram"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CARPET_CONFIG"))
	if err != nil {
		panic(err)
	}
	if err := cfg.RequireTelegram(); err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	// Every chat keeps its own settings record.
	a, err := app.New(ctx, cfg, logger, app.Options{
		SettingsKey: func(sessionID string) string { return settings.DefaultKey + ":" + sessionID },
		UserAgent:   "carpet-studio-bot",
	})
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	tg, err := telegram.New(telegram.Options{
		Token:      cfg.Telegram.Token,
		HTTPClient: a.HTTP,
		Logger:     logger,
		Debug:      cfg.Debug,
	})
	if err != nil {
		logger.Error("telegram init failed", "err", err)
		os.Exit(1)
	}

	handler := handlers.New(handlers.Options{
		Telegram: tg,
		Studio:   a.Studio,
		Logger:   logger,
	})

	go a.Sessions.RunJanitor(ctx, time.Minute)

	sem := make(chan struct{}, cfg.Telegram.MaxConcurrent)
	onAlbum := func(batch album.Batch) {
		select {
		case sem <- struct{}{}:
		case <-ctx.Done():
			return
		}

		go func() {
			defer func() { <-sem }()

			reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout*time.Duration(len(batch.FileIDs)))
			defer cancel()

			handler.HandleAlbum(reqCtx, batch)
		}()
	}

	albums := album.New(album.Options{
		Debounce: cfg.Telegram.AlbumDebounce,
		OnFlush:  onAlbum,
	})
	defer albums.Stop()
	handler.SetAlbumCollector(albums)

	logger.Info("bot started", "username", tg.Username())

	updates := tg.Updates(telegram.UpdatesOptions{
		Timeout: 30 * time.Second,
	})
	defer tg.StopUpdates()

	for {
		select {
		case <-ctx.Done():
			logger.Info("shutting down")
			return
		case update, ok := <-updates:
			if !ok {
				logger.Info("updates channel closed")
				return
			}

			select {
			case sem <- struct{}{}:
			case <-ctx.Done():
				return
			}

			go func(update telegram.Update) {
				defer func() { <-sem }()

				reqCtx, cancel := context.WithTimeout(ctx, cfg.RequestTimeout)
				defer cancel()

				if err := handler.HandleUpdate(reqCtx, update); err != nil && !errors.Is(err, context.Canceled) {
					logger.Error("handle update failed", "err", err)
				}
			}(update)
		}
	}
}
