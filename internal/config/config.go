package config

import (
	"errors"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
)

// Mail providers understood by the bootstrap package.
const (
	MailProviderSMTP     = "smtp"
	MailProviderSendGrid = "sendgrid"
	MailProviderSES      = "ses"
	MailProviderStub     = "stub"
)

// Config holds application configuration
type Config struct {
	Port          string
	Env           string
	LogLevel      string
	SiteURL       string
	PublicDir     string
	LeadStorePath string

	// Lead notifications
	HREmail       string
	MailProvider  string
	MailUser      string
	MailPass      string
	MailSMTPHost  string
	MailSMTPPort  int
	MailFromName  string
	NotifyTimeout time.Duration
	SheetsWebhook string
	LeadQueueURL  string

	// SendGrid Email Configuration
	SendGridAPIKey    string
	SendGridFromEmail string

	// SES Email Configuration
	SESFromEmail string

	AWSRegion           string
	AWSAccessKeyID      string
	AWSSecretAccessKey  string
	AWSEndpointOverride string

	RedisAddr     string
	RedisPassword string
	RedisTLS      bool

	LeadRateLimitPerMinute int
	CORSAllowedOrigins     []string
	MetricsEnabled         bool
}

// LoadDotEnv merges key=value pairs from the given files into the process
// environment. Variables that are already set win. Missing files are ignored.
func LoadDotEnv(paths ...string) error {
	if len(paths) == 0 {
		paths = []string{".env"}
	}
	for _, path := range paths {
		if err := godotenv.Load(path); err != nil {
			if errors.Is(err, fs.ErrNotExist) {
				continue
			}
			return err
		}
	}
	return nil
}

// Load reads configuration from environment variables
func Load() *Config {
	return &Config{
		Port:          getEnv("PORT", "3000"),
		Env:           getEnv("ENV", "development"),
		LogLevel:      getEnv("LOG_LEVEL", "info"),
		SiteURL:       strings.TrimRight(strings.TrimSpace(getEnv("SITE_URL", "")), "/"),
		PublicDir:     getEnv("PUBLIC_DIR", "public"),
		LeadStorePath: getEnv("LEAD_STORE_PATH", "data/leads.ndjson"),

		HREmail:       getEnv("HR_EMAIL", "hr.dollarport@gmail.com"),
		MailProvider:  strings.ToLower(strings.TrimSpace(getEnv("MAIL_PROVIDER", MailProviderSMTP))),
		MailUser:      getEnv("MAIL_USER", ""),
		MailPass:      getEnv("MAIL_PASS", ""),
		MailSMTPHost:  getEnv("MAIL_SMTP_HOST", "smtp.gmail.com"),
		MailSMTPPort:  getEnvAsInt("MAIL_SMTP_PORT", 587),
		MailFromName:  getEnv("MAIL_FROM_NAME", "DollarPort Edu Lead"),
		NotifyTimeout: getEnvAsDuration("NOTIFY_TIMEOUT", 10*time.Second),
		SheetsWebhook: strings.TrimSpace(getEnv("GOOGLE_SHEETS_WEBHOOK_URL", "")),
		LeadQueueURL:  strings.TrimSpace(getEnv("LEAD_QUEUE_URL", "")),

		SendGridAPIKey:    getEnv("SENDGRID_API_KEY", ""),
		SendGridFromEmail: getEnv("SENDGRID_FROM_EMAIL", ""),

		SESFromEmail: getEnv("SES_FROM_EMAIL", ""),

		AWSRegion:           getEnv("AWS_REGION", "ap-south-1"),
		AWSAccessKeyID:      getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretAccessKey:  getEnv("AWS_SECRET_ACCESS_KEY", ""),
		AWSEndpointOverride: getEnv("AWS_ENDPOINT_OVERRIDE", ""),

		RedisAddr:     getEnv("REDIS_ADDR", ""),
		RedisPassword: getEnv("REDIS_PASSWORD", ""),
		RedisTLS:      getEnvAsBool("REDIS_TLS", false),

		LeadRateLimitPerMinute: getEnvAsInt("LEAD_RATE_LIMIT_PER_MINUTE", 0),
		CORSAllowedOrigins:     getEnvAsList("CORS_ALLOWED_ORIGINS"),
		MetricsEnabled:         getEnvAsBool("METRICS_ENABLED", true),
	}
}

// MailConfigured reports whether the selected mail provider has the
// credentials it needs. Leads are still captured when it returns false.
func (c *Config) MailConfigured() bool {
	switch c.MailProvider {
	case MailProviderSendGrid:
		return c.SendGridAPIKey != "" && c.SendGridFromEmail != ""
	case MailProviderSES:
		return c.SESFromEmail != ""
	case MailProviderStub:
		return true
	default:
		return c.MailUser != "" && c.MailPass != ""
	}
}

// NeedsAWS reports whether any AWS-backed integration is enabled.
func (c *Config) NeedsAWS() bool {
	return c.LeadQueueURL != "" || (c.MailProvider == MailProviderSES && c.SESFromEmail != "")
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
