package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Host     string
	Port     string
	Env      string
	LogLevel string
	LogFile  string

	DatabaseURL string

	AnthropicAPIKey  string
	AnthropicBaseURL string
	LLMProvider      string
	FallbackProvider string
	DefaultModel     string
	AWSRegion        string
	BedrockModelID   string

	RateLimitRequests int
	RateLimitWindow   time.Duration

	MetricsInterval time.Duration
	CleanupInterval time.Duration
	RetentionWindow time.Duration

	AllowedOrigins []string
	AllowedHosts   []string
}

// DefaultModel is the model used when a chat request does not name one.
const DefaultModel = "claude-3-sonnet-20240229"

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Host:     getEnv("HOST", "0.0.0.0"),
		Port:     getEnv("PORT", "8080"),
		Env:      getEnv("ENV", "development"),
		LogLevel: getEnv("LOG_LEVEL", "info"),
		LogFile:  getEnv("LOG_FILE", ""),

		DatabaseURL: getEnv("DATABASE_URL", ""),

		AnthropicAPIKey:  getEnv("ANTHROPIC_API_KEY", ""),
		AnthropicBaseURL: getEnv("ANTHROPIC_BASE_URL", ""),
		LLMProvider:      strings.ToLower(strings.TrimSpace(getEnv("LLM_PROVIDER", "anthropic"))),
		FallbackProvider: strings.ToLower(strings.TrimSpace(getEnv("LLM_FALLBACK_PROVIDER", ""))),
		DefaultModel:     getEnv("DEFAULT_MODEL", DefaultModel),
		AWSRegion:        getEnv("AWS_REGION", "us-east-1"),
		BedrockModelID:   getEnv("BEDROCK_MODEL_ID", ""),

		RateLimitRequests: getEnvAsInt("RATE_LIMIT_REQUESTS", 100),
		RateLimitWindow:   getEnvAsSeconds("RATE_LIMIT_WINDOW", time.Hour),

		MetricsInterval: getEnvAsSeconds("METRICS_INTERVAL", 5*time.Minute),
		CleanupInterval: getEnvAsSeconds("CLEANUP_INTERVAL", 24*time.Hour),
		RetentionWindow: getEnvAsDuration("RETENTION_WINDOW", 30*24*time.Hour),

		AllowedOrigins: splitList(getEnv("ALLOWED_ORIGINS", "*")),
		AllowedHosts:   splitList(getEnv("ALLOWED_HOSTS", "*")),
	}
}

// APIConfigured reports whether a usable Anthropic API key is present.
func (c *Config) APIConfigured() bool {
	key := strings.TrimSpace(c.AnthropicAPIKey)
	return key != "" && key != "your_anthropic_api_key_here"
}

// getEnv retrieves an environment variable or returns a default value
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

// getEnvAsInt retrieves an environment variable as an integer or returns a default value
func getEnvAsInt(key string, defaultValue int) int {
	valueStr := getEnv(key, "")
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsSeconds parses a bare integer as seconds, or a Go duration string.
func getEnvAsSeconds(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if secs, err := strconv.Atoi(valueStr); err == nil && secs > 0 {
		return time.Duration(secs) * time.Second
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil && value > 0 {
		return value
	}
	return defaultValue
}

func splitList(raw string) []string {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}
