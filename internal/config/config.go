package config

import (
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	SiteURL       string
	LogLevel      string
	DatabaseURL   string
	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	// Rate limiting for the booking form
	RateLimitStore     string
	RateLimitPerHour   int
	RateLimitRetention time.Duration
	RateLimitPruneCron string

	// Admin dashboard
	AdminUser      string
	AdminPassword  string
	AdminJWTSecret string

	// Alternate contact channels surfaced to throttled visitors
	WhatsAppNumber        string
	WhatsAppDisplayNumber string

	CORSAllowedOrigins []string

	// Lead notification email
	NotifyEmailProvider string
	NotifyEmailTo       string
	SendGridAPIKey      string
	EmailFromAddress    string
	EmailFromName       string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string
}

// Load reads configuration from environment variables. A .env file in the
// working directory is applied first without overriding real environment.
func Load() *Config {
	_ = godotenv.Load()

	return &Config{
		Port:          getEnv("PORT", "8080"),
		Env:           getEnv("ENV", "development"),
		SiteURL:       strings.TrimRight(getEnv("SITE_URL", "http://localhost:8080"), "/"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		DatabaseURL:   getEnv("DATABASE_URL", ""),
		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		RateLimitStore:     strings.ToLower(strings.TrimSpace(getEnv("RATE_LIMIT_STORE", "postgres"))),
		RateLimitPerHour:   getEnvAsInt("RATE_LIMIT_PER_HOUR", 5),
		RateLimitRetention: getEnvAsDuration("RATE_LIMIT_RETENTION", 24*time.Hour),
		RateLimitPruneCron: getEnv("RATE_LIMIT_PRUNE_CRON", "@hourly"),

		AdminUser:      getEnv("ADMIN_USER", "admin"),
		AdminPassword:  getEnv("ADMIN_PASSWORD", ""),
		AdminJWTSecret: getEnv("ADMIN_JWT_SECRET", ""),

		WhatsAppNumber:        getEnv("WHATSAPP_NUMBER", ""),
		WhatsAppDisplayNumber: getEnv("WHATSAPP_DISPLAY_NUMBER", ""),

		CORSAllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS"),

		NotifyEmailProvider: strings.ToLower(strings.TrimSpace(getEnv("NOTIFY_EMAIL_PROVIDER", "stub"))),
		NotifyEmailTo:       getEnv("NOTIFY_EMAIL_TO", ""),
		SendGridAPIKey:      getEnv("SENDGRID_API_KEY", ""),
		EmailFromAddress:    getEnv("EMAIL_FROM_ADDRESS", ""),
		EmailFromName:       getEnv("EMAIL_FROM_NAME", "Clinic Website"),

		AWSRegion:           getEnv("AWS_REGION", "eu-west-2"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),
	}
}

// ContactNumber returns the WhatsApp number to show visitors, preferring the
// formatted display variant.
func (c *Config) ContactNumber() string {
	if c == nil {
		return ""
	}
	if c.WhatsAppDisplayNumber != "" {
		return c.WhatsAppDisplayNumber
	}
	return c.WhatsAppNumber
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
	raw := strings.TrimSpace(getEnv(key, ""))
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
