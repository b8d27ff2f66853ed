// Package config loads application configuration from environment variables.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds all application configuration.
type Config struct {
	// telegram
	TGApiID       int
	TGApiHash     string
	TGSessionPath string
	TGRateLimit   float64 // requests per second

	// scan
	Channel       string
	ScanLimit     int
	OldestFirst   bool
	PacingDelayMs int
	MaxRetryWaits int

	// media retries
	MediaAttempts     int
	MediaRetryDelayMs int

	// output
	DownloadsDir       string
	ExportFormat       string
	ImageBaseURL       string
	BigCommerceProfile string

	// catalog sink, disabled when empty
	DatabaseURL string

	// product events, disabled when empty
	NatsURL string

	// image mirror, disabled when S3Endpoint is empty
	S3Endpoint  string
	S3AccessKey string
	S3SecretKey string
	S3Bucket    string
	S3Prefix    string
	S3UseSSL    bool

	// server
	HTTPPort int

	// logging
	LogLevel string
	LogFile  string
}

// validation errors
var (
	ErrMissingCredentials = errors.New("TG_API_ID and TG_API_HASH are required")
	ErrMissingChannel     = errors.New("CHANNEL must be set or passed with --channel")
	ErrInvalidLimit       = errors.New("scan limit must be positive")
	ErrInvalidFormat      = errors.New("export format must be csv or xlsx")
)

// Load reads configuration from environment variables with sensible defaults.
// A .env file in the working directory is loaded first when present;
// variables already set in the environment win.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("load .env: %w", err)
	}

	cfg := &Config{
		TGApiID:       getEnvInt("TG_API_ID", 0),
		TGApiHash:     getEnv("TG_API_HASH", ""),
		TGSessionPath: getEnv("TG_SESSION_PATH", "tg_session.db"),
		TGRateLimit:   getEnvFloat("TG_RPS", 2.0),

		Channel:       getEnv("CHANNEL", ""),
		ScanLimit:     getEnvInt("SCAN_LIMIT", 100),
		OldestFirst:   getEnvBool("SCAN_OLDEST_FIRST", false),
		PacingDelayMs: getEnvInt("PACING_DELAY_MS", 1000),
		MaxRetryWaits: getEnvInt("MAX_RETRY_WAITS", 0),

		MediaAttempts:     getEnvInt("MEDIA_RETRY_ATTEMPTS", 3),
		MediaRetryDelayMs: getEnvInt("MEDIA_RETRY_DELAY_MS", 3000),

		DownloadsDir:       getEnv("DOWNLOADS_DIR", "Downloads"),
		ExportFormat:       getEnv("EXPORT_FORMAT", "csv"),
		ImageBaseURL:       getEnv("IMAGE_BASE_URL", ""),
		BigCommerceProfile: getEnv("BIGCOMMERCE_PROFILE", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		NatsURL:     getEnv("NATS_URL", ""),

		S3Endpoint:  getEnv("S3_ENDPOINT", ""),
		S3AccessKey: getEnv("S3_ACCESS_KEY", ""),
		S3SecretKey: getEnv("S3_SECRET_KEY", ""),
		S3Bucket:    getEnv("S3_BUCKET", "products"),
		S3Prefix:    getEnv("S3_PREFIX", ""),
		S3UseSSL:    getEnvBool("S3_USE_SSL", true),

		HTTPPort: getEnvInt("HTTP_PORT", 3100),

		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),
	}

	return cfg, nil
}

// Validate reports the problems that must abort a scrape before it starts.
func (c *Config) Validate() error {
	errs := c.commonErrors()
	if strings.TrimSpace(c.Channel) == "" {
		errs = append(errs, ErrMissingChannel)
	}
	return errors.Join(errs...)
}

// ValidateServe is Validate for the HTTP control API, where every request
// names its own channel.
func (c *Config) ValidateServe() error {
	return errors.Join(c.commonErrors()...)
}

func (c *Config) commonErrors() []error {
	var errs []error
	if c.TGApiID == 0 || c.TGApiHash == "" {
		errs = append(errs, ErrMissingCredentials)
	}
	if c.ScanLimit <= 0 {
		errs = append(errs, ErrInvalidLimit)
	}
	switch strings.ToLower(c.ExportFormat) {
	case "csv", "xlsx":
	default:
		errs = append(errs, fmt.Errorf("%w: %q", ErrInvalidFormat, c.ExportFormat))
	}
	return errs
}

// getEnv returns the value of an environment variable or a default value.
func getEnv(key, defaultVal string) string {
	if val := os.Getenv(key); val != "" {
		return val
	}
	return defaultVal
}

// getEnvInt returns the integer value of an environment variable or a default.
func getEnvInt(key string, defaultVal int) int {
	if val := os.Getenv(key); val != "" {
		if i, err := strconv.Atoi(val); err == nil {
			return i
		}
	}
	return defaultVal
}

func getEnvFloat(key string, defaultVal float64) float64 {
	if val := os.Getenv(key); val != "" {
		if f, err := strconv.ParseFloat(val, 64); err == nil {
			return f
		}
	}
	return defaultVal
}

func getEnvBool(key string, defaultVal bool) bool {
	if val := os.Getenv(key); val != "" {
		if b, err := strconv.ParseBool(val); err == nil {
			return b
		}
	}
	return defaultVal
}
