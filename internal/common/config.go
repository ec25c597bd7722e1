package common

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	Extraction ExtractionConfig
	OpenAI     OpenAIConfig
	Workflow   WorkflowConfig
	Mapping    MappingConfig
	Metrics    MetricsConfig
	Log        LogConfig
}

// ExtractionConfig selects and tunes the extraction boundary
type ExtractionConfig struct {
	Provider    string // "remote" or "openai"
	URL         string
	Timeout     time.Duration
	Concurrency int
	CacheSize   int
}

// OpenAIConfig holds OpenAI-related configuration
type OpenAIConfig struct {
	Model       string
	APIKey      string
	BaseURL     string
	Temperature float32
}

// WorkflowConfig holds workflow controller configuration
type WorkflowConfig struct {
	RejectEmptyRows bool
}

// MappingConfig points at an optional rule table override
type MappingConfig struct {
	RulesPath string
}

// MetricsConfig holds metrics endpoint configuration
type MetricsConfig struct {
	Addr string
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

const (
	ProviderRemote = "remote"
	ProviderOpenAI = "openai"
)

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Extraction: ExtractionConfig{
			Provider:    strings.ToLower(getEnv("EXTRACTION_PROVIDER", ProviderRemote)),
			URL:         getEnv("EXTRACTION_URL", "http://localhost:5001/api/extract"),
			Timeout:     getEnvAsDuration("EXTRACTION_TIMEOUT", 3*time.Minute),
			Concurrency: getEnvAsInt("EXTRACTION_CONCURRENCY", 4),
			CacheSize:   getEnvAsInt("EXTRACTION_CACHE_SIZE", 128),
		},
		OpenAI: OpenAIConfig{
			Model:       getEnv("OPENAI_MODEL", "gpt-4o-mini"),
			APIKey:      getEnv("OPENAI_API_KEY", ""),
			BaseURL:     getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			Temperature: getEnvAsFloat32("OPENAI_TEMPERATURE", 0.0),
		},
		Workflow: WorkflowConfig{
			RejectEmptyRows: getEnvAsBool("WORKFLOW_REJECT_EMPTY_ROWS", false),
		},
		Mapping: MappingConfig{
			RulesPath: getEnv("MAPPING_RULES_PATH", ""),
		},
		Metrics: MetricsConfig{
			Addr: getEnv("METRICS_ADDR", ""),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if b, err := strconv.ParseBool(value); err == nil {
			return b
		}
	}
	return defaultValue
}

func getEnvAsFloat32(key string, defaultValue float32) float32 {
	if value := os.Getenv(key); value != "" {
		if floatVal, err := strconv.ParseFloat(value, 32); err == nil {
			return float32(floatVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// Validate validates the loaded configuration
func (c *Config) Validate() error {
	switch c.Extraction.Provider {
	case ProviderRemote:
		if c.Extraction.URL == "" {
			return NewAppError("CONFIG_ERROR", "EXTRACTION_URL is required", ErrInvalidInput)
		}
	case ProviderOpenAI:
		if c.OpenAI.APIKey == "" {
			return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
		}
	default:
		return NewAppError("CONFIG_ERROR", "EXTRACTION_PROVIDER must be remote or openai", ErrInvalidInput)
	}
	if c.Extraction.Timeout <= 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_TIMEOUT must be positive", ErrInvalidInput)
	}
	if c.Extraction.Concurrency <= 0 {
		return NewAppError("CONFIG_ERROR", "EXTRACTION_CONCURRENCY must be positive", ErrInvalidInput)
	}
	return nil
}
