package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all runtime configuration loaded from environment variables.
type Config struct {
	AppPort string
	AppEnv  string

	AWSRegion      string
	AWSEndpointURL string // empty in prod, set to LocalStack URL in dev
	AWSAccessKeyID string
	AWSSecretKey   string
	DynamoTables   DynamoTables

	SessionLifetime    time.Duration
	SessionRenewWithin time.Duration // renew when less than this remains
	OTPLength          int
	OTPTTL             time.Duration
	LoginRateLimit     int
	LoginRateWindow    time.Duration
	RateLimitRetention time.Duration
	SweepInterval      time.Duration

	CookieDomain string
	CookieSecure bool

	OAuthClientID       string
	OAuthClientSecret   string
	OAuthRedirectURL    string
	OAuthAllowedDomains []string // empty = any domain
	OAuthSuccessURL     string
	OAuthErrorURL       string

	SMTPHost     string
	SMTPPort     string
	SMTPFrom     string
	SMTPUsername string
	SMTPPassword string
	SMTPTimeout  time.Duration

	SNSRegion string

	AllowedOrigins []string // CORS allowed origins
}

// DynamoTables holds the DynamoDB table name for each entity.
type DynamoTables struct {
	Users      string
	Sessions   string
	OtpCodes   string
	RateLimits string
}

// Load reads all configuration from environment variables.
func Load() *Config {
	return &Config{
		AppPort: getEnv("APP_PORT", "3000"),
		AppEnv:  getEnv("APP_ENV", "development"),

		AWSRegion:      getEnv("AWS_REGION", "us-east-1"),
		AWSEndpointURL: getEnv("AWS_ENDPOINT_URL", ""),
		AWSAccessKeyID: getEnv("AWS_ACCESS_KEY_ID", ""),
		AWSSecretKey:   getEnv("AWS_SECRET_ACCESS_KEY", ""),
		DynamoTables: DynamoTables{
			Users:      getEnv("DYNAMO_TABLE_USERS", "users"),
			Sessions:   getEnv("DYNAMO_TABLE_SESSIONS", "sessions"),
			OtpCodes:   getEnv("DYNAMO_TABLE_OTP_CODES", "otp_codes"),
			RateLimits: getEnv("DYNAMO_TABLE_RATE_LIMITS", "rate_limits"),
		},

		SessionLifetime:    getEnvDuration("SESSION_LIFETIME", 7*24*time.Hour),
		SessionRenewWithin: getEnvDuration("SESSION_RENEW_WITHIN", 3*24*time.Hour),
		OTPLength:          getEnvInt("OTP_LENGTH", 5),
		OTPTTL:             getEnvDuration("OTP_TTL", 15*time.Minute),
		LoginRateLimit:     getEnvInt("LOGIN_RATE_LIMIT", 3),
		LoginRateWindow:    getEnvDuration("LOGIN_RATE_WINDOW", 60*time.Second),
		RateLimitRetention: getEnvDuration("RATE_LIMIT_RETENTION", 30*24*time.Hour),
		SweepInterval:      getEnvDuration("SWEEP_INTERVAL", time.Hour),

		CookieDomain: getEnv("COOKIE_DOMAIN", ""),
		CookieSecure: getEnvBool("COOKIE_SECURE", false),

		OAuthClientID:       getEnv("OAUTH_CLIENT_ID", ""),
		OAuthClientSecret:   getEnv("OAUTH_CLIENT_SECRET", ""),
		OAuthRedirectURL:    getEnv("OAUTH_REDIRECT_URL", "http://localhost:3000/v1/oauth/google/callback"),
		OAuthAllowedDomains: splitNonEmpty(getEnv("OAUTH_ALLOWED_DOMAINS", "")),
		OAuthSuccessURL:     getEnv("OAUTH_SUCCESS_URL", "/"),
		OAuthErrorURL:       getEnv("OAUTH_ERROR_URL", "/auth/error"),

		SMTPHost:     getEnv("SMTP_HOST", "localhost"),
		SMTPPort:     getEnv("SMTP_PORT", "1025"),
		SMTPFrom:     getEnv("SMTP_FROM", "noreply@example.com"),
		SMTPUsername: getEnv("SMTP_USERNAME", ""),
		SMTPPassword: getEnv("SMTP_PASSWORD", ""),
		SMTPTimeout:  getEnvDuration("SMTP_TIMEOUT", 10*time.Second),

		SNSRegion: getEnv("SNS_REGION", "us-east-1"),

		AllowedOrigins: strings.Split(getEnv("ALLOWED_ORIGINS", "*"), ","),
	}
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnvBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func getEnvDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}

func splitNonEmpty(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
