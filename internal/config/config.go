package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration for the import service.
// Values are read from the environment; only DATABASE_URL is required.
type Config struct {
	// HTTPAddr is the listen address for the API server.
	HTTPAddr string

	// DatabaseURL is the Postgres connection string (required).
	DatabaseURL string

	// GeminiModel is the model used for document extraction.
	// The genai SDK reads its API key from its own environment variables.
	GeminiModel string

	// PreviewTTL is how long a preview stays commit-eligible after creation.
	PreviewTTL time.Duration

	// PreviewSweepInterval is how often expired previews are swept.
	PreviewSweepInterval time.Duration

	// MaxReceiptBytes caps receipt image uploads.
	MaxReceiptBytes int64

	// MaxStatementBytes caps statement file uploads.
	MaxStatementBytes int64

	// DefaultCurrency is applied to candidates that carry no currency.
	DefaultCurrency string

	// CommitTimeout bounds a single commit request end to end.
	CommitTimeout time.Duration

	// BigQueryProject and BigQueryDataset enable the extraction audit trail
	// when both are set. Empty project disables auditing entirely.
	BigQueryProject string
	BigQueryDataset string

	// LogLevel is the zerolog level name (debug, info, warn, error).
	LogLevel string
}

// Defaults applied when the corresponding environment variable is unset.
const (
	DefaultHTTPAddr             = ":8080"
	DefaultGeminiModel          = "gemini-2.5-flash"
	DefaultPreviewTTL           = 15 * time.Minute
	DefaultPreviewSweepInterval = time.Minute
	DefaultMaxReceiptBytes      = 10 << 20
	DefaultMaxStatementBytes    = 20 << 20
	DefaultCurrencyCode         = "INR"
	DefaultCommitTimeout        = 30 * time.Second
	DefaultBigQueryDataset      = "finance"
)

// Load reads configuration from the environment, applying defaults.
// It fails fast when a required value is missing or unparseable.
func Load() (*Config, error) {
	cfg := &Config{
		HTTPAddr:        getEnv("HTTP_ADDR", DefaultHTTPAddr),
		DatabaseURL:     os.Getenv("DATABASE_URL"),
		GeminiModel:     getEnv("GEMINI_MODEL", DefaultGeminiModel),
		DefaultCurrency: strings.ToUpper(getEnv("DEFAULT_CURRENCY", DefaultCurrencyCode)),
		BigQueryProject: os.Getenv("BIGQUERY_PROJECT"),
		BigQueryDataset: getEnv("BIGQUERY_DATASET", DefaultBigQueryDataset),
		LogLevel:        getEnv("LOG_LEVEL", "info"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("config: DATABASE_URL is required")
	}

	var err error
	if cfg.PreviewTTL, err = getDuration("PREVIEW_TTL", DefaultPreviewTTL); err != nil {
		return nil, err
	}
	if cfg.PreviewSweepInterval, err = getDuration("PREVIEW_SWEEP_INTERVAL", DefaultPreviewSweepInterval); err != nil {
		return nil, err
	}
	if cfg.CommitTimeout, err = getDuration("COMMIT_TIMEOUT", DefaultCommitTimeout); err != nil {
		return nil, err
	}
	if cfg.MaxReceiptBytes, err = getBytes("MAX_RECEIPT_BYTES", DefaultMaxReceiptBytes); err != nil {
		return nil, err
	}
	if cfg.MaxStatementBytes, err = getBytes("MAX_STATEMENT_BYTES", DefaultMaxStatementBytes); err != nil {
		return nil, err
	}

	if cfg.PreviewTTL <= 0 {
		return nil, fmt.Errorf("config: PREVIEW_TTL must be positive, got %s", cfg.PreviewTTL)
	}
	// The sweeper ticker panics on a non-positive interval.
	if cfg.PreviewSweepInterval <= 0 {
		return nil, fmt.Errorf("config: PREVIEW_SWEEP_INTERVAL must be positive, got %s", cfg.PreviewSweepInterval)
	}
	if cfg.CommitTimeout <= 0 {
		return nil, fmt.Errorf("config: COMMIT_TIMEOUT must be positive, got %s", cfg.CommitTimeout)
	}

	return cfg, nil
}

// AuditEnabled reports whether the BigQuery extraction audit is configured.
func (c *Config) AuditEnabled() bool {
	return c.BigQueryProject != ""
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	return d, nil
}

func getBytes(key string, fallback int64) (int64, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.ParseInt(v, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("config: %s: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("config: %s must be positive, got %d", key, n)
	}
	return n, nil
}
