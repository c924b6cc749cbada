package config

import (
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

const (
	BackendSupabase = "supabase"
	BackendPostgres = "postgres"

	SessionStoreMemory = "memory"
	SessionStoreBolt   = "bolt"
)

type Config struct {
	TelegramToken string

	// Хранилище транзакций
	StorageBackend string
	SupabaseURL    string
	SupabaseKey    string
	SupabaseSchema string
	DatabaseURL    string

	// Google Cloud Vision. Если оба пусты, используются учетные данные по умолчанию.
	GoogleCredentialsFile string
	GoogleCredentialsJSON string

	// Сессии диалога
	SessionStore         string
	BoltPath             string
	SessionTTL           time.Duration
	SessionSweepInterval time.Duration

	ExternalTimeout time.Duration

	// Вебхук. Пустой WebhookURL включает long polling.
	WebhookURL string
	Port       string

	LogLevel slog.Level
}

func LoadConfig() (*Config, error) {
	// .env необязателен
	_ = godotenv.Load()

	cfg := &Config{
		TelegramToken:         os.Getenv("TELEGRAM_TOKEN"),
		StorageBackend:        strings.ToLower(getEnvDefault("STORAGE_BACKEND", BackendSupabase)),
		SupabaseURL:           os.Getenv("SUPABASE_URL"),
		SupabaseKey:           os.Getenv("SUPABASE_KEY"),
		SupabaseSchema:        getEnvDefault("SUPABASE_SCHEMA", "fintrack"),
		DatabaseURL:           os.Getenv("DATABASE_URL"),
		GoogleCredentialsFile: os.Getenv("GOOGLE_APPLICATION_CREDENTIALS"),
		GoogleCredentialsJSON: os.Getenv("GOOGLE_CREDENTIALS_JSON"),
		SessionStore:          strings.ToLower(getEnvDefault("SESSION_STORE", SessionStoreMemory)),
		BoltPath:              getEnvDefault("BOLT_PATH", "fintrack.db"),
		WebhookURL:            os.Getenv("WEBHOOK_URL"),
		Port:                  getEnvDefault("PORT", "8080"),
	}

	var err error
	if cfg.SessionTTL, err = getDurationDefault("SESSION_TTL", 30*time.Minute); err != nil {
		return nil, err
	}
	if cfg.SessionSweepInterval, err = getDurationDefault("SESSION_SWEEP_INTERVAL", time.Minute); err != nil {
		return nil, err
	}
	if cfg.ExternalTimeout, err = getDurationDefault("EXTERNAL_TIMEOUT", 30*time.Second); err != nil {
		return nil, err
	}
	if err := cfg.LogLevel.UnmarshalText([]byte(getEnvDefault("LOG_LEVEL", "INFO"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL: %w", err)
	}

	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) validate() error {
	if c.TelegramToken == "" {
		return fmt.Errorf("TELEGRAM_TOKEN is required")
	}

	switch c.StorageBackend {
	case BackendSupabase:
		if c.SupabaseURL == "" {
			return fmt.Errorf("SUPABASE_URL is required")
		}
		if c.SupabaseKey == "" {
			return fmt.Errorf("SUPABASE_KEY is required")
		}
	case BackendPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required")
		}
	default:
		return fmt.Errorf("STORAGE_BACKEND must be %q or %q, got %q", BackendSupabase, BackendPostgres, c.StorageBackend)
	}

	switch c.SessionStore {
	case SessionStoreMemory, SessionStoreBolt:
	default:
		return fmt.Errorf("SESSION_STORE must be %q or %q, got %q", SessionStoreMemory, SessionStoreBolt, c.SessionStore)
	}

	if c.WebhookURL != "" {
		parsed, err := url.Parse(c.WebhookURL)
		if err != nil || parsed.Scheme != "https" || parsed.Host == "" {
			return fmt.Errorf("WEBHOOK_URL must be an https URL, got %q", c.WebhookURL)
		}
	}
	return nil
}

// WebhookPath путь, на который Telegram присылает обновления
func (c *Config) WebhookPath() string {
	return "/bot" + c.TelegramToken
}

func getEnvDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getDurationDefault(key string, defaultValue time.Duration) (time.Duration, error) {
	value := os.Getenv(key)
	if value == "" {
		return defaultValue, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("%s: %w", key, err)
	}
	return d, nil
}
