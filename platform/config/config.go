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

// WebhookConfig provides settings for verifying inbound voice-platform webhooks.
type WebhookConfig interface {
	GetWebhookSecret() string
}

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
}

// DashboardConfig provides settings for the downstream dashboard sync client.
type DashboardConfig interface {
	GetDashboardBaseURL() string
	GetDashboardSecret() string
	IsDashboardEnabled() bool
}

// SchedulingConfig provides settings for the external booking provider.
type SchedulingConfig interface {
	GetSchedulingAPIURL() string
	GetSchedulingAPIKey() string
	GetSchedulingCalendarID() string
	IsSchedulingEnabled() bool
}

// SMSConfig provides settings for the SMS notification gateway.
type SMSConfig interface {
	GetSMSGatewayURL() string
	GetSMSGatewayKey() string
	GetSMSFromNumber() string
	GetOwnerAlertPhone() string
	IsSMSEnabled() bool
}

// EmailConfig provides settings for owner alert emails.
type EmailConfig interface {
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
	GetOwnerAlertEmail() string
	IsEmailEnabled() bool
}

// ResyncConfig provides settings for the deferred dashboard re-sync queue.
type ResyncConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
}

// RetryConfig provides settings for outbound retry behavior.
type RetryConfig interface {
	GetOutboundTimeout() time.Duration
	GetOutboundMaxRetries() int
}

// BusinessConfig provides settings describing the served business.
type BusinessConfig interface {
	GetBusinessName() string
	GetServiceAreaZIPPrefixes() []string
}

// =============================================================================
// Main Config Struct
// =============================================================================

// Config holds all application configuration values.
type Config struct {
	Env                    string
	HTTPAddr               string
	DatabaseURL            string
	WebhookSecret          string
	CORSAllowAll           bool
	CORSOrigins            []string
	DashboardBaseURL       string
	DashboardSecret        string
	SchedulingAPIURL       string
	SchedulingAPIKey       string
	SchedulingCalendarID   string
	SMSGatewayURL          string
	SMSGatewayKey          string
	SMSFromNumber          string
	OwnerAlertPhone        string
	SMTPHost               string
	SMTPPort               int
	SMTPUsername           string
	SMTPPassword           string
	EmailFromName          string
	EmailFromAddress       string
	OwnerAlertEmail        string
	RedisURL               string
	RedisTLSInsecure       bool
	AsynqQueueName         string
	AsynqConcurrency       int
	OutboundTimeout        time.Duration
	OutboundMaxRetries     int
	BusinessName           string
	ServiceAreaZIPPrefixes []string
}

// =============================================================================
// Interface Implementations
// =============================================================================

// DatabaseConfig implementation
func (c *Config) GetDatabaseURL() string { return c.DatabaseURL }

// WebhookConfig implementation
func (c *Config) GetWebhookSecret() string { return c.WebhookSecret }

// HTTPConfig implementation
func (c *Config) GetHTTPAddr() string      { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool    { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string { return c.CORSOrigins }

// DashboardConfig implementation
func (c *Config) GetDashboardBaseURL() string { return c.DashboardBaseURL }
func (c *Config) GetDashboardSecret() string  { return c.DashboardSecret }
func (c *Config) IsDashboardEnabled() bool    { return c.DashboardBaseURL != "" }

// SchedulingConfig implementation
func (c *Config) GetSchedulingAPIURL() string     { return c.SchedulingAPIURL }
func (c *Config) GetSchedulingAPIKey() string     { return c.SchedulingAPIKey }
func (c *Config) GetSchedulingCalendarID() string { return c.SchedulingCalendarID }
func (c *Config) IsSchedulingEnabled() bool       { return c.SchedulingAPIURL != "" }

// SMSConfig implementation
func (c *Config) GetSMSGatewayURL() string   { return c.SMSGatewayURL }
func (c *Config) GetSMSGatewayKey() string   { return c.SMSGatewayKey }
func (c *Config) GetSMSFromNumber() string   { return c.SMSFromNumber }
func (c *Config) GetOwnerAlertPhone() string { return c.OwnerAlertPhone }
func (c *Config) IsSMSEnabled() bool         { return c.SMSGatewayURL != "" }

// EmailConfig implementation
func (c *Config) GetSMTPHost() string         { return c.SMTPHost }
func (c *Config) GetSMTPPort() int            { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string     { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string     { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string    { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string { return c.EmailFromAddress }
func (c *Config) GetOwnerAlertEmail() string  { return c.OwnerAlertEmail }
func (c *Config) IsEmailEnabled() bool {
	return c.SMTPHost != "" && c.OwnerAlertEmail != ""
}

// ResyncConfig implementation
func (c *Config) GetRedisURL() string       { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int  { return c.AsynqConcurrency }

// RetryConfig implementation
func (c *Config) GetOutboundTimeout() time.Duration { return c.OutboundTimeout }
func (c *Config) GetOutboundMaxRetries() int        { return c.OutboundMaxRetries }

// BusinessConfig implementation
func (c *Config) GetBusinessName() string             { return c.BusinessName }
func (c *Config) GetServiceAreaZIPPrefixes() []string { return c.ServiceAreaZIPPrefixes }

// Load reads configuration from environment variables.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{
		Env:                    getEnv("APP_ENV", "development"),
		HTTPAddr:               getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:            getEnv("DATABASE_URL", ""),
		WebhookSecret:          getEnv("WEBHOOK_SECRET", ""),
		CORSAllowAll:           strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true"),
		CORSOrigins:            splitCSV(getEnv("CORS_ORIGINS", "http://localhost:3000")),
		DashboardBaseURL:       strings.TrimRight(getEnv("DASHBOARD_BASE_URL", ""), "/"),
		DashboardSecret:        getEnv("DASHBOARD_SECRET", ""),
		SchedulingAPIURL:       getEnv("SCHEDULING_API_URL", ""),
		SchedulingAPIKey:       getEnv("SCHEDULING_API_KEY", ""),
		SchedulingCalendarID:   getEnv("SCHEDULING_CALENDAR_ID", ""),
		SMSGatewayURL:          getEnv("SMS_GATEWAY_URL", ""),
		SMSGatewayKey:          getEnv("SMS_GATEWAY_KEY", ""),
		SMSFromNumber:          getEnv("SMS_FROM_NUMBER", ""),
		OwnerAlertPhone:        getEnv("OWNER_ALERT_PHONE", ""),
		SMTPHost:               getEnv("SMTP_HOST", ""),
		SMTPPort:               int(mustInt64(getEnv("SMTP_PORT", "587"))),
		SMTPUsername:           getEnv("SMTP_USERNAME", ""),
		SMTPPassword:           getEnv("SMTP_PASSWORD", ""),
		EmailFromName:          getEnv("EMAIL_FROM_NAME", "Receptionist"),
		EmailFromAddress:       getEnv("EMAIL_FROM_ADDRESS", ""),
		OwnerAlertEmail:        getEnv("OWNER_ALERT_EMAIL", ""),
		RedisURL:               getEnv("REDIS_URL", ""),
		RedisTLSInsecure:       strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:         getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency:       int(mustInt64(getEnv("ASYNQ_CONCURRENCY", "10"))),
		OutboundTimeout:        mustDuration(getEnv("OUTBOUND_TIMEOUT", "10s")),
		OutboundMaxRetries:     int(mustInt64(getEnv("OUTBOUND_MAX_RETRIES", "3"))),
		BusinessName:           getEnv("BUSINESS_NAME", ""),
		ServiceAreaZIPPrefixes: splitCSV(getEnv("SERVICE_AREA_ZIP_PREFIXES", "")),
	}

	if cfg.DatabaseURL == "" {
		return nil, fmt.Errorf("DATABASE_URL is required")
	}
	if cfg.WebhookSecret == "" {
		return nil, fmt.Errorf("WEBHOOK_SECRET is required")
	}
	if cfg.DashboardBaseURL != "" && cfg.DashboardSecret == "" {
		return nil, fmt.Errorf("DASHBOARD_SECRET is required when DASHBOARD_BASE_URL is set")
	}
	if cfg.OutboundTimeout <= 0 {
		cfg.OutboundTimeout = 10 * time.Second
	}
	if cfg.OutboundMaxRetries < 0 {
		cfg.OutboundMaxRetries = 0
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
