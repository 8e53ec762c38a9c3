package config

import (
	"fmt"
	"os"
	"strconv"
)

// Config holds process configuration, read once at startup.
type Config struct {
	DatabaseURL      string
	ServerPort       string
	BaseURL          string
	FrontendURL      string
	Timezone         string
	OpenAIKey        string
	AIProvider       string
	AIModel          string
	AIBaseURL        string
	EnableHSTS       bool
	OIDCProvider     string
	RedisURL         string
	RabbitMQURL      string
	RabbitMQPrefetch int
	PushGatewayURL   string
	PushGatewayToken string
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load reads configuration from environment variables. DATABASE_URL and
// RABBITMQ_URL have no usable defaults and are required.
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      envString("DATABASE_URL", ""),
		ServerPort:       envString("SERVER_PORT", "8080"),
		BaseURL:          envString("BASE_URL", "http://localhost:8080"),
		FrontendURL:      envString("FRONTEND_URL", "http://localhost:3000"),
		Timezone:         envString("APP_TIMEZONE", ""),
		OpenAIKey:        envString("OPENAI_API_KEY", ""),
		AIProvider:       envString("AI_PROVIDER", "openai"),
		AIModel:          envString("AI_MODEL", ""),
		AIBaseURL:        envString("AI_BASE_URL", ""),
		EnableHSTS:       envBool("ENABLE_HSTS", false),
		OIDCProvider:     envString("OIDC_PROVIDER", "cognito"),
		RedisURL:         envString("REDIS_URL", "redis://localhost:6379/0"),
		RabbitMQURL:      envString("RABBITMQ_URL", ""),
		RabbitMQPrefetch: envInt("RABBITMQ_PREFETCH", 1),
		PushGatewayURL:   envString("PUSH_GATEWAY_URL", ""),
		PushGatewayToken: envString("PUSH_GATEWAY_TOKEN", ""),
		WorkerDebugMode:  envBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  envBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      envBool("OTEL_ENABLED", false),
		OTELEndpoint:     envString("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.RabbitMQURL == "" {
		return nil, fmt.Errorf("RABBITMQ_URL is required for reminder scheduling")
	}

	return cfg, nil
}

func envString(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		return v == "true" || v == "1" || v == "yes"
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
