package main

import (
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/dukerupert/railinspect"
	"github.com/dukerupert/railinspect/inspection"
	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// Server settings
	Host        string
	Port        int
	Environment string
	LogLevel    string

	// Database settings. DatabaseURLOverride, when set, wins over the
	// individual fields.
	DBUser              string
	DBPassword          string
	DBHost              string
	DBPort              string
	DBName              string
	DatabaseURLOverride string

	// Session settings
	SessionDuration        time.Duration
	SessionSecure          bool
	SessionCacheTTL        time.Duration
	SessionCleanupInterval time.Duration

	// Audit trail retention; zero keeps entries forever
	AuditRetention time.Duration

	// Checklist settings
	CacheProvider         string
	CacheTTL              time.Duration
	RedisURL              string
	FallbackChecklistPath string
	EditorIdleTTL         time.Duration

	// Submission settings
	SubmitConfirmThreshold float64
	FormMinCompletion      float64
	OneDraftPerDay         bool
	ReportTimezone         string

	// Export settings
	PDFProvider string
	PDFTimeout  time.Duration

	// Email settings
	EmailProvider      string
	EmailPostmarkToken string
	EmailFromAddress   string
	EmailFromName      string
	EmailLoginURL      string

	// Storage settings
	StorageProvider  string
	StorageLocalPath string
	StorageLocalURL  string
	StorageS3Bucket  string
	StorageS3Region  string
	StorageS3BaseURL string
	MinioEndpoint    string
	MinioAccessKey   string
	MinioSecretKey   string
	MinioBucket      string
	MinioUseSSL      bool
	MinioBaseURL     string

	// Queue settings
	QueueProvider        string
	QueueWorkerCount     int
	QueuePollInterval    time.Duration
	QueueJobTimeout      time.Duration
	QueueShutdownTimeout time.Duration
}

// LoadConfig loads configuration from environment variables.
func LoadConfig(getenv func(string) string) (*Config, error) {
	cfg := &Config{
		// Server settings
		Host:        envString(getenv, "SERVER_HOST", "localhost"),
		Port:        envInt(getenv, "SERVER_PORT", 8080),
		Environment: envString(getenv, "ENVIRONMENT", "dev"),
		LogLevel:    envString(getenv, "LOG_LEVEL", "info"),

		// Database settings
		DBUser:              envString(getenv, "DB_USER", "postgres"),
		DBPassword:          envString(getenv, "DB_PASSWORD", ""),
		DBHost:              envString(getenv, "DB_HOSTNAME", "localhost"),
		DBPort:              envString(getenv, "DB_PORT", "5432"),
		DBName:              envString(getenv, "DB_NAME", "railinspect"),
		DatabaseURLOverride: envString(getenv, "DATABASE_URL", ""),

		// Session settings
		SessionDuration:        envDuration(getenv, "SESSION_DURATION", 7*24*time.Hour),
		SessionCacheTTL:        envDuration(getenv, "SESSION_CACHE_TTL", time.Minute),
		SessionCleanupInterval: envDuration(getenv, "SESSION_CLEANUP_INTERVAL", time.Hour),

		AuditRetention: envDuration(getenv, "AUDIT_RETENTION", 0),

		// Checklist settings
		CacheProvider:         envString(getenv, "CHECKLIST_CACHE_PROVIDER", "memory"),
		CacheTTL:              envDuration(getenv, "CHECKLIST_CACHE_TTL", inspection.DefaultCacheTTL),
		RedisURL:              envString(getenv, "REDIS_URL", ""),
		FallbackChecklistPath: envString(getenv, "FALLBACK_CHECKLIST_PATH", ""),
		EditorIdleTTL:         envDuration(getenv, "EDITOR_IDLE_TTL", inspection.DefaultEditorIdleTTL),

		// Submission settings
		SubmitConfirmThreshold: envFloat(getenv, "SUBMIT_CONFIRM_THRESHOLD", inspection.DefaultConfirmThreshold),
		FormMinCompletion:      envFloat(getenv, "FORM_MIN_COMPLETION", inspection.DefaultFormMinCompletion),
		OneDraftPerDay:         envBool(getenv, "ONE_DRAFT_PER_DAY", true),
		ReportTimezone:         envString(getenv, "REPORT_TIMEZONE", "UTC"),

		// Export settings
		PDFProvider: envString(getenv, "PDF_PROVIDER", "chrome"),
		PDFTimeout:  envDuration(getenv, "PDF_TIMEOUT", 30*time.Second),

		// Email settings
		EmailProvider:      envString(getenv, "EMAIL_PROVIDER", "mock"),
		EmailPostmarkToken: envString(getenv, "POSTMARK_SERVER_TOKEN", ""),
		EmailFromAddress:   envString(getenv, "EMAIL_FROM_ADDRESS", "noreply@example.com"),
		EmailFromName:      envString(getenv, "EMAIL_FROM_NAME", "Rail Inspect"),
		EmailLoginURL:      envString(getenv, "EMAIL_LOGIN_URL", "http://localhost:8080/login"),

		// Storage settings
		StorageProvider:  envString(getenv, "STORAGE_PROVIDER", "local"),
		StorageLocalPath: envString(getenv, "STORAGE_LOCAL_PATH", "./reports"),
		StorageLocalURL:  envString(getenv, "STORAGE_LOCAL_URL", "http://localhost:8080/reports"),
		StorageS3Bucket:  envString(getenv, "STORAGE_S3_BUCKET", ""),
		StorageS3Region:  envString(getenv, "STORAGE_S3_REGION", "us-east-1"),
		StorageS3BaseURL: envString(getenv, "STORAGE_S3_BASE_URL", ""),
		MinioEndpoint:    envString(getenv, "MINIO_ENDPOINT", ""),
		MinioAccessKey:   envString(getenv, "MINIO_ACCESS_KEY", ""),
		MinioSecretKey:   envString(getenv, "MINIO_SECRET_KEY", ""),
		MinioBucket:      envString(getenv, "MINIO_BUCKET", ""),
		MinioUseSSL:      envBool(getenv, "MINIO_USE_SSL", false),
		MinioBaseURL:     envString(getenv, "MINIO_BASE_URL", ""),

		// Queue settings
		QueueProvider:        envString(getenv, "QUEUE_PROVIDER", "postgres"),
		QueueWorkerCount:     envInt(getenv, "QUEUE_WORKER_COUNT", 3),
		QueuePollInterval:    envDuration(getenv, "QUEUE_POLL_INTERVAL", time.Second),
		QueueJobTimeout:      envDuration(getenv, "QUEUE_JOB_TIMEOUT", 60*time.Second),
		QueueShutdownTimeout: envDuration(getenv, "QUEUE_SHUTDOWN_TIMEOUT", 30*time.Second),
	}

	// Session secure only in production
	cfg.SessionSecure = cfg.IsProduction()

	if err := cfg.validate(); err != nil {
		return nil, err
	}

	return cfg, nil
}

// IsProduction reports whether the service runs in production.
func (c *Config) IsProduction() bool {
	return c.Environment == "prod" || c.Environment == "production"
}

// DatabaseURL returns the PostgreSQL connection string.
func (c *Config) DatabaseURL() string {
	if c.DatabaseURLOverride != "" {
		return c.DatabaseURLOverride
	}
	return fmt.Sprintf("postgresql://%s:%s@%s:%s/%s",
		c.DBUser, c.DBPassword, c.DBHost, c.DBPort, c.DBName)
}

// Location returns the time zone that defines a report's calendar day.
func (c *Config) Location() (*time.Location, error) {
	return time.LoadLocation(c.ReportTimezone)
}

// CacheConfig returns the checklist cache configuration.
func (c *Config) CacheConfig() railinspect.CacheConfig {
	return railinspect.CacheConfig{
		Provider: c.CacheProvider,
		TTL:      c.CacheTTL,
		RedisURL: c.RedisURL,
	}
}

// StorageConfig returns the report storage configuration.
func (c *Config) StorageConfig() railinspect.StorageConfig {
	return railinspect.StorageConfig{
		Provider:       c.StorageProvider,
		LocalPath:      c.StorageLocalPath,
		LocalURL:       c.StorageLocalURL,
		S3Bucket:       c.StorageS3Bucket,
		S3Region:       c.StorageS3Region,
		S3BaseURL:      c.StorageS3BaseURL,
		MinioEndpoint:  c.MinioEndpoint,
		MinioAccessKey: c.MinioAccessKey,
		MinioSecretKey: c.MinioSecretKey,
		MinioBucket:    c.MinioBucket,
		MinioUseSSL:    c.MinioUseSSL,
		MinioBaseURL:   c.MinioBaseURL,
	}
}

// EmailConfig returns the email configuration.
func (c *Config) EmailConfig() railinspect.EmailConfig {
	return railinspect.EmailConfig{
		Provider:            c.EmailProvider,
		FromAddress:         c.EmailFromAddress,
		FromName:            c.EmailFromName,
		LoginURL:            c.EmailLoginURL,
		PostmarkServerToken: c.EmailPostmarkToken,
	}
}

// QueueConfig returns the job queue configuration.
func (c *Config) QueueConfig() railinspect.QueueConfig {
	return railinspect.QueueConfig{
		Provider:     c.QueueProvider,
		WorkerCount:  c.QueueWorkerCount,
		PollInterval: c.QueuePollInterval,
		JobTimeout:   c.QueueJobTimeout,
	}
}

// validate checks value ranges and production requirements.
func (c *Config) validate() error {
	if c.SubmitConfirmThreshold <= 0 || c.SubmitConfirmThreshold > 1 {
		return fmt.Errorf("SUBMIT_CONFIRM_THRESHOLD must be in (0, 1], got %v", c.SubmitConfirmThreshold)
	}
	if c.FormMinCompletion <= 0 || c.FormMinCompletion > 1 {
		return fmt.Errorf("FORM_MIN_COMPLETION must be in (0, 1], got %v", c.FormMinCompletion)
	}
	if _, err := c.Location(); err != nil {
		return fmt.Errorf("REPORT_TIMEZONE: %w", err)
	}
	switch c.CacheProvider {
	case "memory", "none":
	case "redis":
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL is required when CHECKLIST_CACHE_PROVIDER is redis")
		}
	default:
		return fmt.Errorf("unknown CHECKLIST_CACHE_PROVIDER: %s", c.CacheProvider)
	}

	if c.IsProduction() {
		if c.DBPassword == "" && c.DatabaseURLOverride == "" {
			return fmt.Errorf("DB_PASSWORD must be set in production environment")
		}
		if c.EmailProvider == "postmark" && c.EmailPostmarkToken == "" {
			return fmt.Errorf("POSTMARK_SERVER_TOKEN must be set when EMAIL_PROVIDER is postmark")
		}
	}
	return nil
}

// loadDotEnv loads .env from the working directory or up to two parent
// directories. A missing file is not an error.
func loadDotEnv() bool {
	if err := godotenv.Load(); err == nil {
		return true
	}
	dir, err := os.Getwd()
	if err != nil {
		return false
	}
	for i := 0; i < 2; i++ {
		dir = filepath.Join(dir, "..")
		if err := godotenv.Load(filepath.Join(dir, ".env")); err == nil {
			return true
		}
	}
	return false
}

// Helper functions for loading environment variables with defaults.

func envString(getenv func(string) string, key, defaultValue string) string {
	if value := getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func envInt(getenv func(string) string, key string, defaultValue int) int {
	if value := getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func envFloat(getenv func(string) string, key string, defaultValue float64) float64 {
	if value := getenv(key); value != "" {
		if floatValue, err := strconv.ParseFloat(value, 64); err == nil {
			return floatValue
		}
	}
	return defaultValue
}

func envBool(getenv func(string) string, key string, defaultValue bool) bool {
	if value := getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func envDuration(getenv func(string) string, key string, defaultValue time.Duration) time.Duration {
	if value := getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}
