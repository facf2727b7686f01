package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func chdir(t *testing.T, dir string) {
	t.Helper()
	wd, err := os.Getwd()
	require.NoError(t, err)
	require.NoError(t, os.Chdir(dir))
	t.Cleanup(func() { _ = os.Chdir(wd) })
}

func TestLoadDefaults(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("TELEGRAM_BOT_TOKEN", "")
	t.Setenv("TELEGRAM_TOKEN", "")
	t.Setenv("LOG_LEVEL", "")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "info", cfg.LogLevel)
	assert.Equal(t, ":8080", cfg.Web.Addr)
	assert.Equal(t, 1200*time.Millisecond, cfg.Telegram.AlbumDebounce)
	assert.Equal(t, "file", cfg.Settings.Backend)
	assert.Equal(t, 1024, cfg.Mask.Width)
	assert.Equal(t, "carpet aesthetic", cfg.Watermark.Text)
	assert.Error(t, cfg.RequireTelegram())
}

func TestLoadEnvOverrides(t *testing.T) {
	chdir(t, t.TempDir())
	t.Setenv("GEMINI_API_KEY", " secret ")
	t.Setenv("TELEGRAM_BOT_TOKEN", "tok")
	t.Setenv("REMOVAL_URL", "http://rembg:7000")
	t.Setenv("EXPORT_S3_BUCKET", "studio")
	t.Setenv("WEB_SESSION_TTL", "30m")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, "secret", cfg.Gemini.APIKey)
	assert.Equal(t, "tok", cfg.Telegram.Token)
	assert.Equal(t, "http://rembg:7000", cfg.Removal.URL)
	assert.Equal(t, "studio", cfg.Export.S3.Bucket)
	assert.Equal(t, 30*time.Minute, cfg.Web.SessionTTL)
	assert.NoError(t, cfg.RequireTelegram())
}

func TestLoadFile(t *testing.T) {
	t.Setenv("LOG_LEVEL", "")
	t.Setenv("SETTINGS_BACKEND", "")
	path := filepath.Join(t.TempDir(), "studio.yaml")
	require.NoError(t, os.WriteFile(path, []byte(`
log_level: DEBUG
settings:
  backend: redis
redis:
  addr: cache:6379
telegram:
  max_concurrent: 0
mask:
  width: 800
`), 0o644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "debug", cfg.LogLevel)
	assert.Equal(t, "redis", cfg.Settings.Backend)
	assert.Equal(t, "cache:6379", cfg.Redis.Addr)
	assert.Equal(t, 1, cfg.Telegram.MaxConcurrent)
	assert.Equal(t, 800, cfg.Mask.Width)
	assert.Equal(t, 1024, cfg.Mask.Height)

	_, err = Load(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}
