// Package app wires the configured clients, stores and sinks into a studio
// service shared by the bot, the web server and the CLI.
package app

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/http"

	"carpet-studio/internal/cache"
	"carpet-studio/internal/config"
	"carpet-studio/internal/export"
	"carpet-studio/internal/gemini"
	"carpet-studio/internal/httpclient"
	"carpet-studio/internal/logging"
	"carpet-studio/internal/removal"
	"carpet-studio/internal/session"
	"carpet-studio/internal/settings"
	"carpet-studio/internal/studio"
)

const (
	SinkDir = "dir"
	SinkS3  = "s3"
)

type Options struct {
	// SettingsKey maps a session id to its settings record. Nil shares one
	// record between all sessions.
	SettingsKey func(sessionID string) string
	UserAgent   string
}

type App struct {
	Config   config.Config
	Logger   *slog.Logger
	HTTP     *http.Client
	Sessions *session.Store
	Settings settings.Store
	Studio   *studio.Service
	Sinks    map[string]export.Sink

	closers []func() error
}

func New(ctx context.Context, cfg config.Config, logger *slog.Logger, opts Options) (*App, error) {
	if logger == nil {
		logger = logging.Discard()
	}
	a := &App{
		Config: cfg,
		Logger: logger,
		Sinks:  make(map[string]export.Sink),
	}

	a.HTTP = httpclient.New(httpclient.Options{
		PreferIPv4: cfg.PreferIPv4,
		Timeout:    cfg.HTTPTimeout,
		UserAgent:  opts.UserAgent,
	})

	store, err := a.settingsStore(ctx)
	if err != nil {
		_ = a.Close()
		return nil, err
	}
	a.Settings = store

	cutouts, err := cache.New(cache.Options{MaxBytes: cfg.Removal.CacheBytes})
	if err != nil {
		_ = a.Close()
		return nil, fmt.Errorf("cutout cache: %w", err)
	}
	a.closers = append(a.closers, func() error { cutouts.Close(); return nil })

	var remover studio.Remover
	if cfg.Removal.URL != "" {
		remover = removal.New(removal.Options{
			BaseURL:    cfg.Removal.URL,
			Model:      cfg.Removal.Model,
			HTTPClient: a.HTTP,
			Logger:     logger,
		})
	} else {
		logger.Warn("removal.url is not set, only manual masking is available")
	}

	gem := gemini.New(gemini.Options{
		APIKey:     cfg.Gemini.APIKey,
		BaseURL:    cfg.Gemini.BaseURL,
		APIVersion: cfg.Gemini.APIVersion,
		HTTPClient: a.HTTP,
		Logger:     logger,
	})

	a.Sessions = session.NewStore(session.Options{IdleTTL: cfg.Web.SessionTTL})
	a.Studio = studio.New(studio.Options{
		Sessions:      a.Sessions,
		Generator:     gem,
		Remover:       remover,
		Cache:         cutouts,
		Settings:      store,
		SettingsKey:   opts.SettingsKey,
		MaskWidth:     cfg.Mask.Width,
		MaskHeight:    cfg.Mask.Height,
		WatermarkText: cfg.Watermark.Text,
		Logger:        logger,
	})

	if err := a.sinks(ctx); err != nil {
		_ = a.Close()
		return nil, err
	}
	return a, nil
}

func (a *App) settingsStore(ctx context.Context) (settings.Store, error) {
	cfg := a.Config
	switch cfg.Settings.Backend {
	case "", "file":
		store, err := settings.NewFileStore(cfg.Settings.Dir)
		if err != nil {
			return nil, err
		}
		return store, nil
	case "redis":
		store := settings.NewRedisStore(settings.RedisOptions{
			Addr:     cfg.Redis.Addr,
			Password: cfg.Redis.Password,
			DB:       cfg.Redis.DB,
		})
		a.closers = append(a.closers, store.Close)
		if err := store.Ping(ctx); err != nil {
			return nil, fmt.Errorf("redis ping %s: %w", cfg.Redis.Addr, err)
		}
		return store, nil
	case "none":
		return nil, nil
	default:
		return nil, fmt.Errorf("unknown settings backend %q", cfg.Settings.Backend)
	}
}

func (a *App) sinks(ctx context.Context) error {
	cfg := a.Config.Export
	if cfg.Dir != "" {
		dir, err := export.NewDirSink(cfg.Dir)
		if err != nil {
			return err
		}
		a.Sinks[SinkDir] = dir
	}
	if cfg.S3.Bucket != "" {
		s3, err := export.NewS3Sink(ctx, export.S3Options{
			Bucket:          cfg.S3.Bucket,
			Prefix:          cfg.S3.Prefix,
			Region:          cfg.S3.Region,
			Endpoint:        cfg.S3.Endpoint,
			AccessKeyID:     cfg.S3.AccessKeyID,
			SecretAccessKey: cfg.S3.SecretAccessKey,
			HTTPClient:      a.HTTP,
		})
		if err != nil {
			return fmt.Errorf("s3 sink: %w", err)
		}
		a.Sinks[SinkS3] = s3
	}
	return nil
}

// Close releases the cache and any store connections.
func (a *App) Close() error {
	var errs []error
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	a.closers = nil
	return errors.Join(errs...)
}
