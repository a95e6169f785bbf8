// README: Config loader with env defaults for HTTP, chat, persistence, OCR and dispatch settings.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

type ChatConfig struct {
	Token          string `validate:"required"`
	DispatchChatID int64  `validate:"required"`
	PoolSize       int    `validate:"min=1"`
	RatePerSec     float64
	Brand          string `validate:"required"`
}

type PersistenceConfig struct {
	URL      string        `validate:"required"`
	Password string
	TTL      time.Duration `validate:"gt=0"`
}

type RetentionConfig struct {
	Days     int           `validate:"min=0"`
	Interval time.Duration `validate:"gt=0"`
}

type Config struct {
	HTTP struct {
		Addr string `validate:"required"`
	}
	Chat    ChatConfig
	Webhook struct {
		Secret string `validate:"required"`
	}
	Persistence PersistenceConfig
	Retention   RetentionConfig
	Timezone    string `validate:"required"`
	OCR         struct {
		GeminiKey string
	}
	Maps struct {
		APIKey string
	}
	Lock struct {
		Driver string `validate:"oneof=local redis"`
	}
	Log struct {
		Level    string `validate:"oneof=debug info warn error"`
		Encoding string `validate:"oneof=json console"`
	}
	Sentry struct {
		DSN string
	}

	Location *time.Location `validate:"-"`
	Registry *Registry      `validate:"-"`
}

var loadEnvOnce sync.Once

func Load() (Config, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})

	var cfg Config
	cfg.HTTP.Addr = envOrDefault("HTTP_ADDR", ":8080")
	cfg.Chat.Token = os.Getenv("BOT_TOKEN")
	cfg.Chat.DispatchChatID = envOrDefaultInt64("DISPATCH_CHAT_ID", 0)
	cfg.Chat.PoolSize = envOrDefaultInt("CHAT_POOL_SIZE", 32)
	cfg.Chat.RatePerSec = envOrDefaultFloat("CHAT_RATE_PER_SEC", 25)
	cfg.Chat.Brand = envOrDefault("BRAND_NAME", "dishbee")
	cfg.Webhook.Secret = os.Getenv("WEBHOOK_SECRET")
	cfg.Persistence.URL = envOrDefault("PERSISTENCE_URL", "redis://localhost:6379/0")
	cfg.Persistence.Password = os.Getenv("PERSISTENCE_PASSWORD")
	cfg.Persistence.TTL = envOrDefaultDuration("ORDER_TTL", 7*24*time.Hour)
	cfg.Retention.Days = envOrDefaultInt("RETENTION_DAYS", 1)
	cfg.Retention.Interval = envOrDefaultDuration("RETENTION_INTERVAL", time.Hour)
	cfg.Timezone = envOrDefault("TIMEZONE", "Europe/Berlin")
	cfg.OCR.GeminiKey = os.Getenv("GEMINI_API_KEY")
	cfg.Maps.APIKey = os.Getenv("MAPS_API_KEY")
	cfg.Lock.Driver = strings.ToLower(envOrDefault("LOCK_DRIVER", "local"))
	cfg.Log.Level = strings.ToLower(envOrDefault("LOG_LEVEL", "info"))
	cfg.Log.Encoding = strings.ToLower(envOrDefault("LOG_ENCODING", "json"))
	cfg.Sentry.DSN = os.Getenv("SENTRY_DSN")

	if err := validator.New().Struct(cfg); err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return Config{}, fmt.Errorf("config: load timezone %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	reg, err := NewRegistryFromEnv(
		os.Getenv("VENDOR_CHAT_IDS"),
		os.Getenv("VENDOR_CODES"),
		os.Getenv("VENDOR_PHONES"),
		os.Getenv("VENDOR_ADDRESSES"),
		os.Getenv("COURIERS"),
	)
	if err != nil {
		return Config{}, fmt.Errorf("config: %w", err)
	}
	cfg.Registry = reg
	return cfg, nil
}

// LoadPersistence loads only what the operational CLIs need (no chat or registry settings).
func LoadPersistence() (PersistenceConfig, RetentionConfig, *time.Location, error) {
	loadEnvOnce.Do(func() {
		_ = godotenv.Load()
	})
	p := PersistenceConfig{
		URL:      envOrDefault("PERSISTENCE_URL", "redis://localhost:6379/0"),
		Password: os.Getenv("PERSISTENCE_PASSWORD"),
		TTL:      envOrDefaultDuration("ORDER_TTL", 7*24*time.Hour),
	}
	r := RetentionConfig{
		Days:     envOrDefaultInt("RETENTION_DAYS", 1),
		Interval: envOrDefaultDuration("RETENTION_INTERVAL", time.Hour),
	}
	v := validator.New()
	if err := v.Struct(p); err != nil {
		return p, r, nil, fmt.Errorf("config: %w", err)
	}
	if err := v.Struct(r); err != nil {
		return p, r, nil, fmt.Errorf("config: %w", err)
	}
	loc, err := time.LoadLocation(envOrDefault("TIMEZONE", "Europe/Berlin"))
	if err != nil {
		return p, r, nil, fmt.Errorf("config: %w", err)
	}
	return p, r, loc, nil
}

func envOrDefault(key, def string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return def
}

func envOrDefaultInt(key string, def int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultInt64(key string, def int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultFloat(key string, def float64) float64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseFloat(v, 64); err == nil {
			return n
		}
	}
	return def
}

func envOrDefaultDuration(key string, def time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return def
}
