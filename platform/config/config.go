// Package config provides application configuration loading.
// This is part of the platform layer and contains no business logic.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// =============================================================================
// Module-Specific Config Interfaces (Principle of Least Privilege)
// =============================================================================

// DatabaseConfig provides database connection settings.
type DatabaseConfig interface {
	GetDatabaseURL() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
	GetRateLimitRPS() float64
	GetRateLimitBurst() int
}

// SchedulerConfig provides settings for the asynq client and worker.
type SchedulerConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// TwilioConfig provides settings for the SMS provider.
type TwilioConfig interface {
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioPhoneNumber() string
	GetTwilioBaseURL() string
	GetTwilioTimeout() time.Duration
	IsTwilioEnabled() bool
}

// WebhookConfig provides settings for inbound provider webhooks.
type WebhookConfig interface {
	GetTwilioAuthToken() string
	GetTwilioWebhookValidate() bool
	GetPublicBaseURL() string
}

// ChaseConfig provides settings for the automated chase cadence.
type ChaseConfig interface {
	GetChaseFollowupDelay() time.Duration
}

// IntakeConfig provides settings for the lead intake pipeline.
type IntakeConfig interface {
	GetAutoChase() bool
}

// CleanupConfig provides settings for the idempotency key cleanup loop.
type CleanupConfig interface {
	GetIdempotencyKeyRetention() time.Duration
	GetIdempotencyCleanupInterval() time.Duration
}

// WorkerMetricsConfig provides the listen address for the scheduler's
// /metrics endpoint. Empty disables it.
type WorkerMetricsConfig interface {
	GetSchedulerMetricsAddr() string
}

// PhoneConfig provides settings for phone number handling.
type PhoneConfig interface {
	GetDefaultRegion() string
}

// Config holds all application settings loaded from the environment.
type Config struct {
	Env            string
	HTTPAddr       string
	DatabaseURL    string
	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool
	RateLimitRPS   float64
	RateLimitBurst int

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int

	SchedulerMetricsAddr string

	TwilioAccountSID      string
	TwilioAuthToken       string
	TwilioPhoneNumber     string
	TwilioBaseURL         string
	TwilioTimeout         time.Duration
	TwilioWebhookValidate bool
	PublicBaseURL         string

	ChaseFollowupDelay time.Duration
	AutoChase          bool
	DefaultRegion      string

	IdempotencyKeyRetention    time.Duration
	IdempotencyCleanupInterval time.Duration
}

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }
func (c *Config) GetRateLimitRPS() float64 { return c.RateLimitRPS }
func (c *Config) GetRateLimitBurst() int   { return c.RateLimitBurst }

// SchedulerConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

func (c *Config) GetSchedulerMetricsAddr() string { return c.SchedulerMetricsAddr }

// TwilioConfig implementation
func (c *Config) GetTwilioAccountSID() string     { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string      { return c.TwilioAuthToken }
func (c *Config) GetTwilioPhoneNumber() string    { return c.TwilioPhoneNumber }
func (c *Config) GetTwilioBaseURL() string        { return c.TwilioBaseURL }
func (c *Config) GetTwilioTimeout() time.Duration { return c.TwilioTimeout }
func (c *Config) GetTwilioWebhookValidate() bool  { return c.TwilioWebhookValidate }
func (c *Config) GetPublicBaseURL() string        { return c.PublicBaseURL }
func (c *Config) IsTwilioEnabled() bool {
	return c.TwilioAccountSID != "" && c.TwilioAuthToken != "" && c.TwilioPhoneNumber != ""
}

// ChaseConfig / IntakeConfig / PhoneConfig implementation
func (c *Config) GetChaseFollowupDelay() time.Duration { return c.ChaseFollowupDelay }
func (c *Config) GetAutoChase() bool                   { return c.AutoChase }
func (c *Config) GetDefaultRegion() string             { return c.DefaultRegion }

// CleanupConfig implementation
func (c *Config) GetIdempotencyKeyRetention() time.Duration    { return c.IdempotencyKeyRetention }
func (c *Config) GetIdempotencyCleanupInterval() time.Duration { return c.IdempotencyCleanupInterval }

// Load reads configuration from the environment, loading a .env file first when present.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	cfg := &Config{
		Env:            getEnv("APP_ENV", "development"),
		HTTPAddr:       getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:    getEnv("DATABASE_URL", ""),
		CORSAllowAll:   corsAllowAll,
		CORSOrigins:    corsOrigins,
		CORSAllowCreds: strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "false"), "true"),
		RateLimitRPS:   mustFloat(getEnv("RATE_LIMIT_RPS", "10")),
		RateLimitBurst: int(mustInt64(getEnv("RATE_LIMIT_BURST", "20"))),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),

		SchedulerMetricsAddr: getEnv("SCHEDULER_METRICS_ADDR", ":9091"),

		TwilioAccountSID:      getEnv("TWILIO_ACCOUNT_SID", ""),
		TwilioAuthToken:       getEnv("TWILIO_AUTH_TOKEN", ""),
		TwilioPhoneNumber:     getEnv("TWILIO_PHONE_NUMBER", ""),
		TwilioBaseURL:         getEnv("TWILIO_BASE_URL", "https://api.twilio.com"),
		TwilioTimeout:         mustDuration(getEnv("TWILIO_TIMEOUT", "10s")),
		TwilioWebhookValidate: strings.EqualFold(getEnv("TWILIO_WEBHOOK_VALIDATE", "true"), "true"),
		PublicBaseURL:         strings.TrimRight(getEnv("PUBLIC_BASE_URL", ""), "/"),

		ChaseFollowupDelay: mustDuration(getEnv("CHASE_FOLLOWUP_DELAY", "4h")),
		AutoChase:          strings.EqualFold(getEnv("LEAD_AUTO_CHASE", "true"), "true"),
		DefaultRegion:      strings.ToUpper(getEnv("PHONE_DEFAULT_REGION", "GB")),

		IdempotencyKeyRetention:    mustDuration(getEnv("IDEMPOTENCY_KEY_RETENTION", "720h")),
		IdempotencyCleanupInterval: mustDuration(getEnv("IDEMPOTENCY_CLEANUP_INTERVAL", "1h")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}
	if cfg.TwilioWebhookValidate && cfg.TwilioAuthToken == "" {
		return nil, fmt.Errorf("TWILIO_AUTH_TOKEN is required when TWILIO_WEBHOOK_VALIDATE is true")
	}
	if cfg.ChaseFollowupDelay <= 0 {
		return nil, fmt.Errorf("CHASE_FOLLOWUP_DELAY must be a positive duration")
	}
	if cfg.TwilioTimeout <= 0 {
		cfg.TwilioTimeout = 10 * time.Second
	}

	return cfg, nil
}

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func mustDuration(value string) time.Duration {
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0
	}
	return d
}

func mustInt64(value string) int64 {
	result, err := strconv.ParseInt(value, 10, 64)
	if err != nil {
		return 0
	}
	return result
}

func mustFloat(value string) float64 {
	result, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return 0
	}
	return result
}

func splitCSV(value string) []string {
	parts := strings.Split(value, ",")
	results := make([]string, 0, len(parts))
	for _, part := range parts {
		trimmed := strings.TrimSpace(part)
		if trimmed != "" {
			results = append(results, trimmed)
		}
	}
	return results
}

func containsWildcard(values []string) bool {
	for _, value := range values {
		if value == "*" {
			return true
		}
	}
	return false
}
