package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	Port            string
	Env             string
	LogLevel        string
	DatabaseURL     string
	RedisAddr       string
	RedisPassword   string
	RedisTLS        bool
	RateLimitPerMin int
	// RateLimitBackend is "memory" or "redis".
	RateLimitBackend   string
	CORSAllowedOrigins []string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	// LLM
	BedrockModelID string
	GeminiAPIKey   string
	GeminiModelID  string
	LLMMaxTokens   int
	LLMTemperature float64
	LLMTimeout     time.Duration

	// AIM OS case-management integration
	AIMOSBaseURL       string
	AIMOSAPIKey        string
	AIMOSTimeout       time.Duration
	AIMOSWebhookSecret string

	// Outbox delivery of tracked events to AIM OS
	OutboxPollInterval time.Duration
	OutboxBatchSize    int

	BookingTokenTTL  time.Duration
	IntakeSessionTTL time.Duration

	// Escalation email notifications
	EmailProvider     string
	SendGridAPIKey    string
	SendGridFromEmail string
	SendGridFromName  string
	SESFromEmail      string
	EscalationEmail   string
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:               getEnv("PORT", "8080"),
		Env:                getEnv("ENV", "development"),
		LogLevel:           getEnv("LOG_LEVEL", "info"),
		DatabaseURL:        getEnv("DATABASE_URL", ""),
		RedisAddr:          getEnv("REDIS_ADDR", ""),
		RedisPassword:      getEnv("REDIS_PASSWORD", ""),
		RedisTLS:           getEnvAsBool("REDIS_TLS", false),
		RateLimitPerMin:    getEnvAsInt("RATE_LIMIT_PER_MIN", 60),
		RateLimitBackend:   getEnv("RATE_LIMIT_BACKEND", "memory"),
		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		AWSRegion:           getEnv("AWS_REGION", "ca-central-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		BedrockModelID: getEnv("BEDROCK_MODEL_ID", ""),
		GeminiAPIKey:   getEnv("GEMINI_API_KEY", ""),
		GeminiModelID:  getEnv("GEMINI_MODEL_ID", "gemini-2.5-flash"),
		LLMMaxTokens:   getEnvAsInt("LLM_MAX_TOKENS", 800),
		LLMTemperature: getEnvAsFloat("LLM_TEMPERATURE", 0.2),
		LLMTimeout:     getEnvAsDuration("LLM_TIMEOUT", 20*time.Second),

		AIMOSBaseURL:       getEnv("AIM_OS_API_BASE", "https://api.aimos.ca"),
		AIMOSAPIKey:        getEnv("AIM_OS_API_KEY", ""),
		AIMOSTimeout:       getEnvAsDuration("AIM_OS_TIMEOUT", 5*time.Second),
		AIMOSWebhookSecret: getEnv("AIM_OS_WEBHOOK_SECRET", ""),

		OutboxPollInterval: getEnvAsDuration("OUTBOX_POLL_INTERVAL", 2*time.Second),
		OutboxBatchSize:    getEnvAsInt("OUTBOX_BATCH_SIZE", 25),

		BookingTokenTTL:  getEnvAsDuration("BOOKING_TOKEN_TTL", 30*24*time.Hour),
		IntakeSessionTTL: getEnvAsDuration("INTAKE_SESSION_TTL", 24*time.Hour),

		EmailProvider:     getEnv("EMAIL_PROVIDER", "stub"),
		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", "info@albertainjurymanagement.ca"),
		SendGridFromName:  getEnv("SENDGRID_FROM_NAME", "AIM Intake"),
		SESFromEmail:      getEnv("SES_FROM_EMAIL", "info@albertainjurymanagement.ca"),
		EscalationEmail:   getEnv("ESCALATION_EMAIL", ""),
	}
}

// LLMConfigured reports whether any model provider credential is present.
func (c *Config) LLMConfigured() bool {
	return strings.TrimSpace(c.BedrockModelID) != "" || strings.TrimSpace(c.GeminiAPIKey) != ""
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

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

// getEnvAsBool retrieves an environment variable as a boolean or returns a default value
func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := getEnv(key, "")
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := getEnv(key, "")
	if valueStr == "" {
		return defaultValue
	}
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string) []string {
	raw := getEnv(key, "")
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
