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

// JWTConfig provides JWT validation settings for middleware.
type JWTConfig interface {
	GetJWTAccessSecret() string
}

// AuthServiceConfig provides settings needed by the auth service.
type AuthServiceConfig interface {
	JWTConfig
	GetAccessTokenTTL() time.Duration
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// RedisConfig provides Redis connection settings for caching and scheduling.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// CacheConfig provides settings for the dashboard cache.
type CacheConfig interface {
	RedisConfig
	GetDashboardCacheTTL() time.Duration
}

// AnalyticsConfig provides settings for the aggregation engine.
type AnalyticsConfig interface {
	GetAnalyticsHistoryDays() int
	GetAnalyticsRefreshInterval() time.Duration
}

// SchedulerConfig provides settings for the background worker.
type SchedulerConfig interface {
	RedisConfig
	AnalyticsConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// EmailConfig provides settings for email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// PhoneConfig provides settings for phone number normalization.
type PhoneConfig interface {
	GetPhoneDefaultRegion() string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                      string
	HTTPAddr                 string
	DatabaseURL              string
	JWTAccessSecret          string
	AccessTokenTTL           time.Duration
	CORSAllowAll             bool
	CORSOrigins              []string
	CORSAllowCreds           bool
	RedisURL                 string
	RedisTLSInsecure         bool
	DashboardCacheTTL        time.Duration
	AnalyticsHistoryDays     int
	AnalyticsRefreshInterval time.Duration
	AsynqQueueName           string
	AsynqConcurrency         int
	EmailEnabled             bool
	SMTPHost                 string
	SMTPPort                 int
	SMTPUsername             string
	SMTPPassword             string
	EmailFromName            string
	EmailFromAddress         string
	PhoneDefaultRegion       string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// JWTConfig implementation
func (c *Config) GetJWTAccessSecret() string { return c.JWTAccessSecret }

// AuthServiceConfig implementation
func (c *Config) GetAccessTokenTTL() time.Duration { return c.AccessTokenTTL }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool  { return c.CORSAllowCreds }

// RedisConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }

// CacheConfig implementation
func (c *Config) GetDashboardCacheTTL() time.Duration { return c.DashboardCacheTTL }

// AnalyticsConfig implementation
func (c *Config) GetAnalyticsHistoryDays() int { return c.AnalyticsHistoryDays }
func (c *Config) GetAnalyticsRefreshInterval() time.Duration {
	return c.AnalyticsRefreshInterval
}

// SchedulerConfig implementation
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// EmailConfig implementation
func (c *Config) GetEmailEnabled() bool       { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }

// PhoneConfig implementation
func (c *Config) GetPhoneDefaultRegion() string { return c.PhoneDefaultRegion }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	historyDays := mustInt(getEnv("ANALYTICS_HISTORY_DAYS", "14"))
	if historyDays < 1 {
		historyDays = 1
	}

	cfg := &Config{
		Env:                      getEnv("APP_ENV", "development"),
		HTTPAddr:                 getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:              getEnv("DATABASE_URL", ""),
		JWTAccessSecret:          getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:           mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		CORSAllowAll:             corsAllowAll,
		CORSOrigins:              corsOrigins,
		CORSAllowCreds:           strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		RedisURL:                 getEnv("REDIS_URL", ""),
		RedisTLSInsecure:         strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		DashboardCacheTTL:        mustDuration(getEnv("DASHBOARD_CACHE_TTL", "60s")),
		AnalyticsHistoryDays:     historyDays,
		AnalyticsRefreshInterval: mustDuration(getEnv("ANALYTICS_REFRESH_INTERVAL", "5m")),
		AsynqQueueName:           getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:         mustInt(getEnv("ASYNQ_CONCURRENCY", "10")),
		EmailEnabled:             emailEnabled && smtpHost != "",
		SMTPHost:                 smtpHost,
		SMTPPort:                 mustInt(getEnv("SMTP_PORT", "587")),
		SMTPUsername:             getEnv("SMTP_USERNAME", ""),
		SMTPPassword:             getEnv("SMTP_PASSWORD", ""),
		EmailFromName:            getEnv("EMAIL_FROM_NAME", "FieldOps"),
		EmailFromAddress:         getEnv("EMAIL_FROM_ADDRESS", ""),
		PhoneDefaultRegion:       getEnv("PHONE_DEFAULT_REGION", "FR"),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.JWTAccessSecret == "" {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET is required")
	}
	if cfg.EmailEnabled && cfg.EmailFromAddress == "" {
		return nil, fmt.Errorf("EMAIL_FROM_ADDRESS is required when email is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
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

func mustInt(value string) int {
	result, err := strconv.Atoi(value)
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
