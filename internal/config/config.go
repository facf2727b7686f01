package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

type Config struct {
	LogLevel       string        `mapstructure:"log_level"`
	Debug          bool          `mapstructure:"debug"`
	PreferIPv4     bool          `mapstructure:"prefer_ipv4"`
	HTTPTimeout    time.Duration `mapstructure:"http_timeout"`
	RequestTimeout time.Duration `mapstructure:"request_timeout"`

	Telegram  TelegramConfig  `mapstructure:"telegram"`
	Gemini    GeminiConfig    `mapstructure:"gemini"`
	Removal   RemovalConfig   `mapstructure:"removal"`
	Web       WebConfig       `mapstructure:"web"`
	Mask      MaskConfig      `mapstructure:"mask"`
	Watermark WatermarkConfig `mapstructure:"watermark"`
	Settings  SettingsConfig  `mapstructure:"settings"`
	Redis     RedisConfig     `mapstructure:"redis"`
	Export    ExportConfig    `mapstructure:"export"`
}

type TelegramConfig struct {
	Token         string        `mapstructure:"token"`
	AlbumDebounce time.Duration `mapstructure:"album_debounce"`
	MaxConcurrent int           `mapstructure:"max_concurrent"`
}

type GeminiConfig struct {
	APIKey     string `mapstructure:"api_key"`
	BaseURL    string `mapstructure:"base_url"`
	APIVersion string `mapstructure:"api_version"`
}

type RemovalConfig struct {
	URL        string `mapstructure:"url"`
	Model      string `mapstructure:"model"`
	CacheBytes int64  `mapstructure:"cache_bytes"`
}

type WebConfig struct {
	Addr           string        `mapstructure:"addr"`
	Mode           string        `mapstructure:"mode"`
	MaxUploadBytes int64         `mapstructure:"max_upload_bytes"`
	SessionTTL     time.Duration `mapstructure:"session_ttl"`
}

type MaskConfig struct {
	Width  int `mapstructure:"width"`
	Height int `mapstructure:"height"`
}

type WatermarkConfig struct {
	Text string `mapstructure:"text"`
}

type SettingsConfig struct {
	// Backend is "file" or "redis".
	Backend string `mapstructure:"backend"`
	Dir     string `mapstructure:"dir"`
}

type RedisConfig struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

type ExportConfig struct {
	Dir string   `mapstructure:"dir"`
	S3  S3Config `mapstructure:"s3"`
}

type S3Config struct {
	Bucket          string `mapstructure:"bucket"`
	Prefix          string `mapstructure:"prefix"`
	Region          string `mapstructure:"region"`
	Endpoint        string `mapstructure:"endpoint"`
	AccessKeyID     string `mapstructure:"access_key_id"`
	SecretAccessKey string `mapstructure:"secret_access_key"`
}

// Load reads defaults, then the YAML file at path (or ./config.yaml when path
// is empty and the file exists), then environment variables. Nested keys map
// to upper-case env names with dots as underscores, e.g. GEMINI_API_KEY.
func Load(path string) (Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()
	_ = v.BindEnv("telegram.token", "TELEGRAM_BOT_TOKEN", "TELEGRAM_TOKEN")

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName("config")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, fmt.Errorf("failed to unmarshal config: %w", err)
	}
	cfg.normalize()
	return cfg, nil
}

func (c Config) RequireTelegram() error {
	if c.Telegram.Token == "" {
		return errors.New("TELEGRAM_BOT_TOKEN is required")
	}
	return nil
}

func (c *Config) normalize() {
	c.LogLevel = strings.ToLower(strings.TrimSpace(c.LogLevel))
	c.Telegram.Token = strings.TrimSpace(c.Telegram.Token)
	c.Gemini.APIKey = strings.TrimSpace(c.Gemini.APIKey)
	c.Settings.Backend = strings.ToLower(strings.TrimSpace(c.Settings.Backend))

	if c.Telegram.MaxConcurrent < 1 {
		c.Telegram.MaxConcurrent = 1
	}
	if c.RequestTimeout <= 0 {
		c.RequestTimeout = 240 * time.Second
	}
	if c.HTTPTimeout <= 0 {
		c.HTTPTimeout = 180 * time.Second
	}
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("log_level", "info")
	v.SetDefault("debug", false)
	v.SetDefault("prefer_ipv4", true)
	v.SetDefault("http_timeout", 180*time.Second)
	v.SetDefault("request_timeout", 240*time.Second)

	v.SetDefault("telegram.token", "")
	v.SetDefault("telegram.album_debounce", 1200*time.Millisecond)
	v.SetDefault("telegram.max_concurrent", 4)

	v.SetDefault("gemini.api_key", "")
	v.SetDefault("gemini.base_url", "https://generativelanguage.googleapis.com")
	v.SetDefault("gemini.api_version", "v1beta")

	v.SetDefault("removal.url", "")
	v.SetDefault("removal.model", "isnet-general-use")
	v.SetDefault("removal.cache_bytes", 256<<20)

	v.SetDefault("web.addr", ":8080")
	v.SetDefault("web.mode", "release")
	v.SetDefault("web.max_upload_bytes", 25<<20)
	v.SetDefault("web.session_ttl", 2*time.Hour)

	v.SetDefault("mask.width", 1024)
	v.SetDefault("mask.height", 1024)

	v.SetDefault("watermark.text", "carpet aesthetic")

	v.SetDefault("settings.backend", "file")
	v.SetDefault("settings.dir", "./data/settings")

	v.SetDefault("redis.addr", "localhost:6379")
	v.SetDefault("redis.password", "")
	v.SetDefault("redis.db", 0)

	v.SetDefault("export.dir", "./exports")
	v.SetDefault("export.s3.bucket", "")
	v.SetDefault("export.s3.prefix", "carpet-studio")
	v.SetDefault("export.s3.region", "auto")
	v.SetDefault("export.s3.endpoint", "")
	v.SetDefault("export.s3.access_key_id", "")
	v.SetDefault("export.s3.secret_access_key", "")
}
