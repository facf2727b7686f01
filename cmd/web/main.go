package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"

	"carpet-studio/internal/app"
	"carpet-studio/internal/config"
	"carpet-studio/internal/logging"
	"carpet-studio/internal/web"
)

func main() {
	_ = godotenv.Load()

	cfg, err := config.Load(os.Getenv("CARPET_CONFIG"))
	if err != nil {
		panic(err)
	}

	logger := logging.New(cfg.LogLevel, os.Stdout)
	gin.SetMode(cfg.Web.Mode)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	a, err := app.New(ctx, cfg, logger, app.Options{UserAgent: "carpet-studio-web"})
	if err != nil {
		logger.Error("startup failed", "err", err)
		os.Exit(1)
	}
	defer a.Close()

	go a.Sessions.RunJanitor(ctx, time.Minute)

	srv := web.New(web.Options{
		Studio:         a.Studio,
		Sinks:          a.Sinks,
		MaxUploadBytes: cfg.Web.MaxUploadBytes,
		RequestTimeout: cfg.RequestTimeout,
		Logger:         logger,
	})

	httpServer := &http.Server{
		Addr:              cfg.Web.Addr,
		Handler:           srv.Handler(),
		ReadHeaderTimeout: 10 * time.Second,
	}

	go func() {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = httpServer.Shutdown(shutdownCtx)
	}()

	logger.Info("web started", "addr", cfg.Web.Addr)
	if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		logger.Error("web server failed", "err", err)
		os.Exit(1)
	}
	logger.Info("shutting down")
}
