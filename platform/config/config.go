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

// HTTPConfig provides settings for the HTTP server.
type HTTPConfig interface {
	GetHTTPAddr() string
	GetCORSAllowAll() bool
	GetCORSOrigins() []string
	GetCORSAllowCreds() bool
}

// EmailConfig provides settings for SMTP email sending.
type EmailConfig interface {
	GetEmailEnabled() bool
	GetSMTPHost() string
	GetSMTPPort() int
	GetSMTPUsername() string
	GetSMTPPassword() string
	GetEmailFromName() string
	GetEmailFromAddress() string
}

// SMSConfig provides settings for SMS sending via Twilio.
type SMSConfig interface {
	GetSMSEnabled() bool
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
	GetTwilioMessagingFrom() string
}

// TelephonyConfig provides settings for call tracking webhooks.
type TelephonyConfig interface {
	GetAppBaseURL() string
	GetTwilioAccountSID() string
	GetTwilioAuthToken() string
}

// PaymentConfig provides settings for the payment gateway.
type PaymentConfig interface {
	GetPaymentEnabled() bool
	GetStripeAPIKey() string
	GetStripeAPIBaseURL() string
}

// RedisConfig provides Redis connection settings.
type RedisConfig interface {
	GetRedisURL() string
	GetRedisTLSInsecure() bool
}

// SchedulerConfig provides settings for the background worker.
type SchedulerConfig interface {
	RedisConfig
	GetAsynqQueueName() string
	GetAsynqConcurrency() int
	GetSweepInterval() time.Duration
}

// CronConfig provides the shared secret used by cron-style trigger endpoints.
type CronConfig interface {
	GetCronSecret() string
}

// SubscriptionWebhookConfig provides the shared secret the payment provider
// signs subscription lifecycle webhooks with.
type SubscriptionWebhookConfig interface {
	GetSubscriptionWebhookSecret() string
}

// NotificationConfig provides settings for notification rendering.
type NotificationConfig interface {
	GetAppBaseURL() string
}

// =============================================================================
// Config
// =============================================================================

// Config holds all application configuration loaded from the environment.
type Config struct {
	Env      string
	HTTPAddr string

	DatabaseURL string

	JWTAccessSecret string
	AccessTokenTTL  time.Duration

	CORSAllowAll   bool
	CORSOrigins    []string
	CORSAllowCreds bool

	AppBaseURL string

	EmailEnabled     bool
	SMTPHost         string
	SMTPPort         int
	SMTPUsername     string
	SMTPPassword     string
	EmailFromName    string
	EmailFromAddress string

	SMSEnabled          bool
	TwilioAccountSID    string
	TwilioAuthToken     string
	TwilioMessagingFrom string

	PaymentEnabled   bool
	StripeAPIKey     string
	StripeAPIBaseURL string

	RedisURL         string
	RedisTLSInsecure bool
	AsynqQueueName   string
	AsynqConcurrency int
	SweepInterval    time.Duration

	CronSecret                string
	SubscriptionWebhookSecret string
}

// Load reads configuration from the environment (and .env if present).
func Load() (*Config, error) {
	_ = godotenv.Load()

	corsOrigins := splitCSV(getEnv("CORS_ORIGINS", "http://localhost:4200"))
	corsAllowAll := strings.EqualFold(getEnv("CORS_ALLOW_ALL", "false"), "true")
	if containsWildcard(corsOrigins) {
		corsAllowAll = true
	}

	smtpHost := getEnv("SMTP_HOST", "")
	emailEnabled := strings.EqualFold(getEnv("EMAIL_ENABLED", "true"), "true")

	twilioSID := getEnv("TWILIO_ACCOUNT_SID", "")
	twilioToken := getEnv("TWILIO_AUTH_TOKEN", "")
	smsEnabled := strings.EqualFold(getEnv("SMS_ENABLED", "true"), "true")

	stripeKey := getEnv("STRIPE_API_KEY", "")
	paymentEnabled := strings.EqualFold(getEnv("PAYMENT_ENABLED", "true"), "true")

	cfg := &Config{
		Env:             getEnv("APP_ENV", "development"),
		HTTPAddr:        getEnv("HTTP_ADDR", ":8080"),
		DatabaseURL:     getEnv("DATABASE_URL", ""),
		JWTAccessSecret: getEnv("JWT_ACCESS_SECRET", ""),
		AccessTokenTTL:  mustDuration(getEnv("JWT_ACCESS_TTL", "15m")),
		CORSAllowAll:    corsAllowAll,
		CORSOrigins:     corsOrigins,
		CORSAllowCreds:  strings.EqualFold(getEnv("CORS_ALLOW_CREDENTIALS", "true"), "true"),
		AppBaseURL:      getEnv("APP_BASE_URL", "http://localhost:8080"),

		EmailEnabled:     emailEnabled && smtpHost != "",
		SMTPHost:         smtpHost,
		SMTPPort:         getIntEnv("SMTP_PORT", 587),
		SMTPUsername:     getEnv("SMTP_USERNAME", ""),
		SMTPPassword:     getEnv("SMTP_PASSWORD", ""),
		EmailFromName:    getEnv("EMAIL_FROM_NAME", "Lead Market"),
		EmailFromAddress: getEnv("EMAIL_FROM_ADDRESS", ""),

		SMSEnabled:          smsEnabled && twilioSID != "" && twilioToken != "",
		TwilioAccountSID:    twilioSID,
		TwilioAuthToken:     twilioToken,
		TwilioMessagingFrom: getEnv("TWILIO_MESSAGING_FROM", ""),

		PaymentEnabled:   paymentEnabled && stripeKey != "",
		StripeAPIKey:     stripeKey,
		StripeAPIBaseURL: getEnv("STRIPE_API_BASE_URL", "https://api.stripe.com"),

		RedisURL:         getEnv("REDIS_URL", ""),
		RedisTLSInsecure: strings.EqualFold(getEnv("REDIS_TLS_INSECURE", "false"), "true"),
		AsynqQueueName:   getEnv("ASYNQ_QUEUE", "default"),
		AsynqConcurrency: getIntEnv("ASYNQ_CONCURRENCY", 10),
		SweepInterval:    mustDuration(getEnv("TRACKING_SWEEP_INTERVAL", "15m")),

		CronSecret:                getEnv("CRON_SECRET", ""),
		SubscriptionWebhookSecret: getEnv("SUBSCRIPTION_WEBHOOK_SECRET", ""),
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
	if cfg.SMSEnabled && cfg.TwilioMessagingFrom == "" {
		return nil, fmt.Errorf("TWILIO_MESSAGING_FROM is required when SMS is enabled")
	}
	if cfg.CORSAllowAll && cfg.CORSAllowCreds {
		return nil, fmt.Errorf("CORS_ALLOW_CREDENTIALS cannot be true when CORS_ALLOW_ALL is true")
	}

	return cfg, nil
}

// =============================================================================
// Interface implementations
// =============================================================================

func (c *Config) GetDatabaseURL() string         { return c.DatabaseURL }
func (c *Config) GetJWTAccessSecret() string     { return c.JWTAccessSecret }
func (c *Config) GetHTTPAddr() string            { return c.HTTPAddr }
func (c *Config) GetCORSAllowAll() bool          { return c.CORSAllowAll }
func (c *Config) GetCORSOrigins() []string       { return c.CORSOrigins }
func (c *Config) GetCORSAllowCreds() bool        { return c.CORSAllowCreds }
func (c *Config) GetEmailEnabled() bool          { return c.EmailEnabled }
func (c *Config) GetSMTPHost() string            { return c.SMTPHost }
func (c *Config) GetSMTPPort() int               { return c.SMTPPort }
func (c *Config) GetSMTPUsername() string        { return c.SMTPUsername }
func (c *Config) GetSMTPPassword() string        { return c.SMTPPassword }
func (c *Config) GetEmailFromName() string       { return c.EmailFromName }
func (c *Config) GetEmailFromAddress() string    { return c.EmailFromAddress }
func (c *Config) GetSMSEnabled() bool            { return c.SMSEnabled }
func (c *Config) GetTwilioAccountSID() string    { return c.TwilioAccountSID }
func (c *Config) GetTwilioAuthToken() string     { return c.TwilioAuthToken }
func (c *Config) GetTwilioMessagingFrom() string { return c.TwilioMessagingFrom }
func (c *Config) GetAppBaseURL() string          { return c.AppBaseURL }
func (c *Config) GetPaymentEnabled() bool        { return c.PaymentEnabled }
func (c *Config) GetStripeAPIKey() string        { return c.StripeAPIKey }
func (c *Config) GetStripeAPIBaseURL() string    { return c.StripeAPIBaseURL }
func (c *Config) GetRedisURL() string            { return c.RedisURL }
func (c *Config) GetRedisTLSInsecure() bool      { return c.RedisTLSInsecure }
func (c *Config) GetAsynqQueueName() string      { return c.AsynqQueueName }
func (c *Config) GetAsynqConcurrency() int       { return c.AsynqConcurrency }
func (c *Config) GetSweepInterval() time.Duration { return c.SweepInterval }
func (c *Config) GetCronSecret() string          { return c.CronSecret }
func (c *Config) GetSubscriptionWebhookSecret() string { return c.SubscriptionWebhookSecret }

// =============================================================================
// Helpers
// =============================================================================

func getEnv(key, fallback string) string {
	if val, ok := os.LookupEnv(key); ok {
		return val
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	raw := getEnv(key, "")
	if raw == "" {
		return fallback
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return fallback
	}
	return n
}

func mustDuration(raw string) time.Duration {
	d, err := time.ParseDuration(raw)
	if err != nil {
		return 0
	}
	return d
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		trimmed := strings.TrimSpace(p)
		if trimmed != "" {
			out = append(out, trimmed)
		}
	}
	return out
}

func containsWildcard(items []string) bool {
	for _, item := range items {
		if item == "*" {
			return true
		}
	}
	return false
}
