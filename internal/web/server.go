package web

import (
	"io"
	"log/slog"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"carpet-studio/internal/export"
	"carpet-studio/internal/studio"
)

type Options struct {
	Studio         *studio.Service
	Sinks          map[string]export.Sink
	MaxUploadBytes int64
	RequestTimeout time.Duration
	Logger         *slog.Logger
}

type Server struct {
	studio         *studio.Service
	sinks          map[string]export.Sink
	maxUploadBytes int64
	requestTimeout time.Duration
	logger         *slog.Logger
}

func New(opts Options) *Server {
	logger := opts.Logger
	if logger == nil {
		logger = slog.New(slog.NewTextHandler(io.Discard, nil))
	}

	maxUpload := opts.MaxUploadBytes
	if maxUpload <= 0 {
		maxUpload = 25 << 20
	}

	timeout := opts.RequestTimeout
	if timeout <= 0 {
		timeout = 240 * time.Second
	}

	return &Server{
		studio:         opts.Studio,
		sinks:          opts.Sinks,
		maxUploadBytes: maxUpload,
		requestTimeout: timeout,
		logger:         logger,
	}
}

// Handler builds the gin engine with every route mounted.
func (s *Server) Handler() http.Handler {
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(requestLogger(s.logger))
	r.Use(cors())

	r.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := r.Group("/api/v1")
	api.GET("/catalog", s.catalog)
	api.POST("/sessions", s.createSession)

	sess := api.Group("/sessions/:id")
	sess.GET("/status", s.status)

	sess.POST("/image", s.uploadImage)
	sess.GET("/image", s.sourceImage)

	sess.POST("/cutout/auto", s.autoCutout)
	sess.GET("/cutout", s.download(studio.FileCutout))

	sess.POST("/mask", s.openMask)
	sess.DELETE("/mask", s.closeMask)
	sess.POST("/mask/strokes", s.paint)
	sess.POST("/mask/clear", s.clearMask)
	sess.GET("/mask/preview", s.maskPreview)
	sess.POST("/mask/commit", s.commitMask)

	sess.GET("/settings", s.getSettings)
	sess.PUT("/settings", s.putSettings)
	sess.DELETE("/settings", s.resetSettings)
	sess.POST("/settings/ornaments", s.ornaments)
	sess.POST("/settings/preset/:name", s.preset)

	sess.GET("/prompts", s.prompts)
	sess.POST("/generate", s.generate)
	sess.POST("/regenerate", s.generate)

	sess.GET("/files/:name", s.file)
	sess.POST("/export", s.export)

	return r
}

func requestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		path := c.Request.URL.Path

		c.Next()

		logger.Info("http",
			"method", c.Request.Method,
			"path", path,
			"status", c.Writer.Status(),
			"ip", c.ClientIP(),
			"dur_ms", time.Since(start).Milliseconds(),
		)
	}
}

func cors() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type")
		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}
