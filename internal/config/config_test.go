package config

import (
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"PORT", "ENV", "LOG_LEVEL", "BEDROCK_MODEL_ID", "GEMINI_API_KEY", "RATE_LIMIT_PER_MIN", "AIM_OS_API_BASE", "CORS_ALLOWED_ORIGINS", "LLM_TEMPERATURE"} {
		t.Setenv(key, "")
	}
	cfg := Load()
	if cfg.Port != "8080" {
		t.Fatalf("expected default port, got %s", cfg.Port)
	}
	if cfg.Env != "development" {
		t.Fatalf("expected default env, got %s", cfg.Env)
	}
	if cfg.RateLimitPerMin != 60 {
		t.Fatalf("expected 60 requests per minute, got %d", cfg.RateLimitPerMin)
	}
	if cfg.AIMOSBaseURL != "https://api.aimos.ca" {
		t.Fatalf("unexpected AIM OS base %s", cfg.AIMOSBaseURL)
	}
	if cfg.AIMOSTimeout != 5*time.Second {
		t.Fatalf("expected 5s AIM OS timeout, got %s", cfg.AIMOSTimeout)
	}
	if cfg.BookingTokenTTL != 30*24*time.Hour {
		t.Fatalf("expected 30 day booking token ttl, got %s", cfg.BookingTokenTTL)
	}
	if cfg.LLMMaxTokens != 800 || cfg.LLMTemperature != 0.2 {
		t.Fatalf("unexpected llm defaults %d %v", cfg.LLMMaxTokens, cfg.LLMTemperature)
	}
	if cfg.LLMConfigured() {
		t.Fatalf("expected no llm provider configured by default")
	}
	if cfg.CORSAllowedOrigins != nil {
		t.Fatalf("expected no cors origins, got %v", cfg.CORSAllowedOrigins)
	}
}

func TestLoadOverrides(t *testing.T) {
	t.Setenv("PORT", "9090")
	t.Setenv("ENV", "production")
	t.Setenv("LOG_LEVEL", "debug")
	t.Setenv("DATABASE_URL", "postgres://user@host/db")
	t.Setenv("RATE_LIMIT_PER_MIN", "5")
	t.Setenv("RATE_LIMIT_BACKEND", "redis")
	t.Setenv("GEMINI_API_KEY", "key")
	t.Setenv("AIM_OS_TIMEOUT", "2s")
	t.Setenv("LLM_TEMPERATURE", "0.5")
	t.Setenv("CORS_ALLOWED_ORIGINS", "https://aim.example, ,https://www.aim.example")

	cfg := Load()
	if cfg.Port != "9090" || cfg.Env != "production" || cfg.LogLevel != "debug" {
		t.Fatalf("unexpected basic overrides: %+v", cfg)
	}
	if cfg.DatabaseURL != "postgres://user@host/db" {
		t.Fatalf("unexpected database url %s", cfg.DatabaseURL)
	}
	if cfg.RateLimitPerMin != 5 || cfg.RateLimitBackend != "redis" {
		t.Fatalf("unexpected rate limit config %d %s", cfg.RateLimitPerMin, cfg.RateLimitBackend)
	}
	if !cfg.LLMConfigured() {
		t.Fatalf("expected llm configured with gemini key")
	}
	if cfg.AIMOSTimeout != 2*time.Second {
		t.Fatalf("expected 2s timeout, got %s", cfg.AIMOSTimeout)
	}
	if cfg.LLMTemperature != 0.5 {
		t.Fatalf("expected temperature override, got %v", cfg.LLMTemperature)
	}
	if len(cfg.CORSAllowedOrigins) != 2 || cfg.CORSAllowedOrigins[1] != "https://www.aim.example" {
		t.Fatalf("unexpected cors origins %v", cfg.CORSAllowedOrigins)
	}
}

func TestInvalidNumbersFallBackToDefaults(t *testing.T) {
	t.Setenv("RATE_LIMIT_PER_MIN", "lots")
	t.Setenv("AIM_OS_TIMEOUT", "soon")
	cfg := Load()
	if cfg.RateLimitPerMin != 60 {
		t.Fatalf("expected default on bad int, got %d", cfg.RateLimitPerMin)
	}
	if cfg.AIMOSTimeout != 5*time.Second {
		t.Fatalf("expected default on bad duration, got %s", cfg.AIMOSTimeout)
	}
}
