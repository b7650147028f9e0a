package internal

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

type Config struct {
	Env         string
	Port        int
	LogLevel    string
	DatabaseUrl string

	// Database pool
	DBMaxOpenConns    int
	DBMaxIdleConns    int
	DBConnMaxLifetime time.Duration

	// Application base URL (gateway redirect targets, scheduler callbacks)
	BaseURL string

	// Business timezone used for usage months and billing periods
	Timezone string

	// Storage Configuration
	StorageProvider string // "local" or "supabase"

	// Local Storage (development)
	LocalStoragePath string
	LocalStorageURL  string

	// Supabase Storage (S3-compatible endpoint)
	SupabaseProjectRef    string
	SupabaseS3Region      string
	SupabaseS3AccessKeyID string
	SupabaseS3SecretKey   string
	SupabaseBucket        string
	SupabasePublicURL     string // Optional override for object URLs
	MaxUploadSize         int64

	// Worker Configuration
	WorkerEnabled      bool
	WorkerConcurrency  int
	WorkerPollInterval time.Duration
	WorkerJobTimeout   time.Duration

	// AI Provider Configuration
	AIProvider       string // "openai" or "mock"
	OpenAIAPIKey     string
	OpenAIModel      string
	AIMaxRetries     int
	AIRetryBaseDelay time.Duration
	AIRequestTimeout time.Duration

	// Generated artifacts
	PresentationSlides int
	ReportFontPath     string // UTF-8 TTF used for report text; core fonts cannot render Hangul

	// Authentication
	SessionDuration time.Duration
	AdminEmails     []string // Accounts promoted to the admin role at registration

	// Payment gateway
	PaymentProvider     string // "toss", "stripe" or "mock"
	TossSecretKey       string
	TossClientKey       string
	TossAPIBaseURL      string
	StripeSecretKey     string
	StripeWebhookSecret string

	// Shared secret presented by the billing scheduler
	CronSecret string

	// Billing scheduler (cmd/billing-scheduler)
	BillingCron        string
	BillingBatchSize   int
	BillingConcurrency int

	// Telegram notifications (disabled when token is empty)
	TelegramBotToken string
	TelegramChatID   string

	// Rate limiting. Redis is used when RedisURL is set.
	RedisURL        string
	LoginRateLimit  int
	CouponRateLimit int
	RateLimitWindow time.Duration

	// Metrics endpoint authentication
	// If both are empty, the /metrics endpoint will be unprotected (not recommended)
	MetricsUsername string
	MetricsPassword string
}

func NewConfig() (*Config, error) {
	// Load .env file if it exists (ignored in production)
	_ = godotenv.Load()

	cfg := &Config{
		Env:      getEnv("ENV", "development"),
		Port:     getEnvInt("PORT", 8080),
		LogLevel: getEnv("LOG_LEVEL", "debug"),

		DBMaxOpenConns:    getEnvInt("DB_MAX_OPEN_CONNS", 25),
		DBMaxIdleConns:    getEnvInt("DB_MAX_IDLE_CONNS", 5),
		DBConnMaxLifetime: getEnvDuration("DB_CONN_MAX_LIFETIME", 30*time.Minute),

		BaseURL:  getEnv("BASE_URL", "http://localhost:8080"),
		Timezone: getEnv("APP_TIMEZONE", "Asia/Seoul"),

		StorageProvider:  getEnv("STORAGE_PROVIDER", "local"),
		LocalStoragePath: getEnv("LOCAL_STORAGE_PATH", "./storage"),
		LocalStorageURL:  getEnv("LOCAL_STORAGE_URL", "http://localhost:8080/files"),

		SupabaseProjectRef:    getEnv("SUPABASE_PROJECT_REF", ""),
		SupabaseS3Region:      getEnv("SUPABASE_S3_REGION", "ap-northeast-2"),
		SupabaseS3AccessKeyID: getEnv("SUPABASE_S3_ACCESS_KEY_ID", ""),
		SupabaseS3SecretKey:   getEnv("SUPABASE_S3_SECRET_ACCESS_KEY", ""),
		SupabaseBucket:        getEnv("SUPABASE_BUCKET", "documents"),
		SupabasePublicURL:     getEnv("SUPABASE_PUBLIC_URL", ""),
		MaxUploadSize:         int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 20)) << 20,

		WorkerEnabled:      getEnvBool("WORKER_ENABLED", true),
		WorkerConcurrency:  getEnvInt("WORKER_CONCURRENCY", 2),
		WorkerPollInterval: getEnvDuration("WORKER_POLL_INTERVAL", 5*time.Second),
		WorkerJobTimeout:   getEnvDuration("WORKER_JOB_TIMEOUT", 5*time.Minute),

		SessionDuration: getEnvDuration("SESSION_DURATION", 24*time.Hour),

		AIProvider:       getEnv("AI_PROVIDER", "mock"),
		OpenAIAPIKey:     getEnv("OPENAI_API_KEY", ""),
		OpenAIModel:      getEnv("OPENAI_MODEL", "gpt-4o-mini"),
		AIMaxRetries:     getEnvInt("AI_MAX_RETRIES", 3),
		AIRetryBaseDelay: getEnvDuration("AI_RETRY_BASE_DELAY", 1*time.Second),
		AIRequestTimeout: getEnvDuration("AI_REQUEST_TIMEOUT", 90*time.Second),

		PresentationSlides: getEnvInt("PRESENTATION_SLIDES", 0),
		ReportFontPath:     getEnv("REPORT_FONT_PATH", ""),

		PaymentProvider:     getEnv("PAYMENT_PROVIDER", "mock"),
		TossSecretKey:       getEnv("TOSS_SECRET_KEY", ""),
		TossClientKey:       getEnv("TOSS_CLIENT_KEY", ""),
		TossAPIBaseURL:      getEnv("TOSS_API_BASE_URL", "https://api.tosspayments.com"),
		StripeSecretKey:     getEnv("STRIPE_SECRET_KEY", ""),
		StripeWebhookSecret: getEnv("STRIPE_WEBHOOK_SECRET", ""),

		CronSecret: getEnv("CRON_SECRET", ""),

		BillingCron:        getEnv("BILLING_CRON", "0 10 * * *"),
		BillingBatchSize:   getEnvInt("BILLING_BATCH_SIZE", 500),
		BillingConcurrency: getEnvInt("BILLING_CONCURRENCY", 4),

		TelegramBotToken: getEnv("TELEGRAM_BOT_TOKEN", ""),
		TelegramChatID:   getEnv("TELEGRAM_CHAT_ID", ""),

		RedisURL:        getEnv("REDIS_URL", ""),
		LoginRateLimit:  getEnvInt("LOGIN_RATE_LIMIT", 5),
		CouponRateLimit: getEnvInt("COUPON_RATE_LIMIT", 10),
		RateLimitWindow: getEnvDuration("RATE_LIMIT_WINDOW", time.Minute),

		MetricsUsername: getEnv("METRICS_USERNAME", ""),
		MetricsPassword: getEnv("METRICS_PASSWORD", ""),
	}

	cfg.AdminEmails = splitList(getEnv("ADMIN_EMAILS", ""), strings.ToLower)

	// Required
	cfg.DatabaseUrl = os.Getenv("DATABASE_URL")
	if cfg.DatabaseUrl == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	if _, err := time.LoadLocation(cfg.Timezone); err != nil {
		return nil, fmt.Errorf("APP_TIMEZONE %q is not a valid location: %w", cfg.Timezone, err)
	}

	// Validate storage configuration
	switch cfg.StorageProvider {
	case "local":
	case "supabase":
		if cfg.SupabaseProjectRef == "" {
			return nil, fmt.Errorf("SUPABASE_PROJECT_REF is required when STORAGE_PROVIDER is 'supabase'")
		}
		if cfg.SupabaseS3AccessKeyID == "" {
			return nil, fmt.Errorf("SUPABASE_S3_ACCESS_KEY_ID is required when STORAGE_PROVIDER is 'supabase'")
		}
		if cfg.SupabaseS3SecretKey == "" {
			return nil, fmt.Errorf("SUPABASE_S3_SECRET_ACCESS_KEY is required when STORAGE_PROVIDER is 'supabase'")
		}
	default:
		return nil, fmt.Errorf("STORAGE_PROVIDER must be either 'local' or 'supabase', got: %s", cfg.StorageProvider)
	}

	// Validate AI provider configuration
	if cfg.AIProvider == "openai" {
		if cfg.OpenAIAPIKey == "" {
			return nil, fmt.Errorf("OPENAI_API_KEY is required when AI_PROVIDER is 'openai'")
		}
	} else if cfg.AIProvider != "mock" {
		return nil, fmt.Errorf("AI_PROVIDER must be either 'openai' or 'mock', got: %s", cfg.AIProvider)
	}

	// Validate payment gateway configuration
	switch cfg.PaymentProvider {
	case "mock":
	case "toss":
		if cfg.TossSecretKey == "" {
			return nil, fmt.Errorf("TOSS_SECRET_KEY is required when PAYMENT_PROVIDER is 'toss'")
		}
	case "stripe":
		if cfg.StripeSecretKey == "" {
			return nil, fmt.Errorf("STRIPE_SECRET_KEY is required when PAYMENT_PROVIDER is 'stripe'")
		}
	default:
		return nil, fmt.Errorf("PAYMENT_PROVIDER must be one of 'toss', 'stripe' or 'mock', got: %s", cfg.PaymentProvider)
	}

	if cfg.Env != "development" && cfg.CronSecret == "" {
		return nil, fmt.Errorf("CRON_SECRET is required outside development")
	}

	return cfg, nil
}

// Location returns the configured business timezone.
func (c *Config) Location() *time.Location {
	loc, err := time.LoadLocation(c.Timezone)
	if err != nil {
		return time.UTC
	}
	return loc
}

func splitList(value string, normalize func(string) string) []string {
	var out []string
	for _, item := range strings.Split(value, ",") {
		trimmed := strings.TrimSpace(normalize(item))
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if i, err := strconv.Atoi(value); err == nil {
			return i
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil {
			return d
		}
	}
	return fallback
}
