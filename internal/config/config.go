/**
 * Configuration for the OCR worker.
 *
 * Loads configuration from environment variables.
 */

package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
)

// Config holds worker configuration
type Config struct {
	// Redis configuration (queue + session result store)
	RedisURL string

	// PostgreSQL artifact registry, optional
	DatabaseURL string

	// Remote OCR provider configuration
	OCRAPIKey      string
	OCRSecretKey   string
	OCRTokenURL    string
	OCREndpointURL string
	OCRMaxRetries  int

	// Engine selection
	PrimaryEngine   string
	FallbackEnabled bool

	// Local engine configuration
	TesseractLang string

	// Export locations
	ResultsDir string
	ArchiveDir string

	// Worker configuration
	WorkerConcurrency int
	QueueName         string
	SessionTTLHours   int
}

// LoadConfig loads configuration from environment variables
func LoadConfig() (*Config, error) {
	cfg := &Config{
		RedisURL:          getEnvOrDefault("REDIS_URL", "redis://localhost:6379"),
		DatabaseURL:       getEnvOrDefault("DATABASE_URL", ""),
		OCRAPIKey:         getEnvOrDefault("BAIDU_OCR_API_KEY", ""),
		OCRSecretKey:      getEnvOrDefault("BAIDU_OCR_SECRET_KEY", ""),
		OCRTokenURL:       getEnvOrDefault("BAIDU_OCR_TOKEN_URL", "https://aip.baidubce.com/oauth/2.0/token"),
		OCREndpointURL:    getEnvOrDefault("BAIDU_OCR_ENDPOINT", "https://aip.baidubce.com/rest/2.0/ocr/v1"),
		OCRMaxRetries:     getEnvAsIntOrDefault("BAIDU_OCR_MAX_RETRIES", 3),
		PrimaryEngine:     getEnvOrDefault("PRIMARY_ENGINE", "remote"),
		FallbackEnabled:   getEnvAsBoolOrDefault("FALLBACK_ENABLED", true),
		TesseractLang:     getEnvOrDefault("TESSERACT_LANG", "chi_sim+eng"),
		ResultsDir:        getEnvOrDefault("RESULTS_DIR", "data/results"),
		ArchiveDir:        getEnvOrDefault("ARCHIVE_DIR", "data/results/archive"),
		WorkerConcurrency: getEnvAsIntOrDefault("WORKER_CONCURRENCY", 4),
		QueueName:         getEnvOrDefault("QUEUE_NAME", "ocr:jobs"),
		SessionTTLHours:   getEnvAsIntOrDefault("SESSION_TTL_HOURS", 24),
	}

	// Validate required fields
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// Validate checks if configuration is valid
func (c *Config) Validate() error {
	if c.RedisURL == "" {
		return fmt.Errorf("REDIS_URL is required")
	}

	if c.PrimaryEngine != "remote" && c.PrimaryEngine != "local" {
		return fmt.Errorf("PRIMARY_ENGINE must be 'remote' or 'local', got %q", c.PrimaryEngine)
	}

	// The remote engine is exercised whenever it is primary or reachable
	// through fallback, so its credentials are required in both cases.
	if c.PrimaryEngine == "remote" || c.FallbackEnabled {
		if c.OCRAPIKey == "" {
			return fmt.Errorf("BAIDU_OCR_API_KEY is required")
		}
		if c.OCRSecretKey == "" {
			return fmt.Errorf("BAIDU_OCR_SECRET_KEY is required")
		}
	}

	if c.OCRMaxRetries < 1 || c.OCRMaxRetries > 10 {
		return fmt.Errorf("BAIDU_OCR_MAX_RETRIES must be between 1 and 10, got %d", c.OCRMaxRetries)
	}

	if c.WorkerConcurrency < 1 || c.WorkerConcurrency > 100 {
		return fmt.Errorf("WORKER_CONCURRENCY must be between 1 and 100, got %d", c.WorkerConcurrency)
	}

	if c.ResultsDir == "" {
		return fmt.Errorf("RESULTS_DIR is required")
	}

	return nil
}

// getEnvOrDefault gets environment variable or returns default
func getEnvOrDefault(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsIntOrDefault gets environment variable as int or returns default
func getEnvAsIntOrDefault(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}

	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}

	return value
}

// getEnvAsBoolOrDefault gets environment variable as bool or returns default
func getEnvAsBoolOrDefault(key string, defaultValue bool) bool {
	valueStr := strings.ToLower(os.Getenv(key))
	if valueStr == "" {
		return defaultValue
	}

	switch valueStr {
	case "1", "t", "true", "yes", "on":
		return true
	case "0", "f", "false", "no", "off":
		return false
	}

	return defaultValue
}
