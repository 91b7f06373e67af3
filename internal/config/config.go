package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds application configuration
type Config struct {
	DatabaseURL      string
	ServerPort       string
	FrontendURL      string
	EnableHSTS       bool
	RedisURL         string
	RateLimit        string
	RabbitMQURL      string
	RabbitMQPrefetch int
	SessionSecret    string
	SessionTTL       time.Duration
	SweepSchedule    string
	Timezone         string
	Location         *time.Location
	AdminEmail       string
	AdminName        string
	WorkerDebugMode  bool
	ServerDebugMode  bool
	OTELEnabled      bool
	OTELEndpoint     string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		DatabaseURL:      getEnv("DATABASE_URL", ""),
		ServerPort:       getEnv("SERVER_PORT", "8080"),
		FrontendURL:      getEnv("FRONTEND_URL", "http://localhost:3000"),
		EnableHSTS:       getEnvBool("ENABLE_HSTS", false),
		RedisURL:         getEnv("REDIS_URL", "redis://localhost:6379/0"),
		RateLimit:        getEnv("RATE_LIMIT", "300-M"),
		RabbitMQURL:      getEnv("RABBITMQ_URL", ""),
		RabbitMQPrefetch: getEnvInt("RABBITMQ_PREFETCH", 1),
		SessionSecret:    getEnv("SESSION_SECRET", ""),
		SessionTTL:       getEnvDuration("SESSION_TTL", 30*24*time.Hour),
		SweepSchedule:    getEnv("SWEEP_SCHEDULE", "@every 15m"),
		Timezone:         getEnv("TIMEZONE", "Europe/Amsterdam"),
		AdminEmail:       strings.TrimSpace(getEnv("ADMIN_EMAIL", "")),
		AdminName:        getEnv("ADMIN_NAME", "Admin"),
		WorkerDebugMode:  getEnvBool("WORKER_DEBUG_MODE", false),
		ServerDebugMode:  getEnvBool("SERVER_DEBUG_MODE", false),
		OTELEnabled:      getEnvBool("OTEL_ENABLED", false),
		OTELEndpoint:     getEnv("OTEL_EXPORTER_OTLP_ENDPOINT", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}

	loc, err := time.LoadLocation(cfg.Timezone)
	if err != nil {
		return nil, fmt.Errorf("invalid TIMEZONE %q: %w", cfg.Timezone, err)
	}
	cfg.Location = loc

	return cfg, nil
}

// RequireSession checks the settings the API server needs to sign sessions
func (c *Config) RequireSession() error {
	if c.SessionSecret == "" {
		return fmt.Errorf("SESSION_SECRET is required")
	}
	return nil
}

// RequireQueue checks the settings the sweep worker needs
func (c *Config) RequireQueue() error {
	if c.RabbitMQURL == "" {
		return fmt.Errorf("RABBITMQ_URL is required for the sweep worker")
	}
	return nil
}

// Now returns the current time in the household's time zone. Calendar dates
// ("today") are taken from this value.
func (c *Config) Now() time.Time {
	if c.Location == nil {
		return time.Now()
	}
	return time.Now().In(c.Location)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		return value == "true" || value == "1" || value == "yes"
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if d, err := time.ParseDuration(value); err == nil && d > 0 {
			return d
		}
	}
	return defaultValue
}
