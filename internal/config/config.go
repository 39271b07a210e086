// internal/config/config.go
// Centralized configuration management
// Loads from environment variables with sensible defaults

package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration
type Config struct {
	// Server
	Port        string
	Environment string
	BaseURL     string
	LogLevel    string
	// AllowedOrigins limits websocket and CORS origins. Empty allows any.
	AllowedOrigins []string

	// Database. An empty DatabaseURL runs the API on sample data.
	DatabaseURL string
	RedisURL    string

	// Security
	JWTSecret           string
	BCryptCost          int
	AccessTokenExpiry   time.Duration
	RefreshTokenExpiry  time.Duration
	AdminEmails         []string
	AllowedEmailDomain  string
	LoginAttemptsMax    int
	LoginAttemptsWindow time.Duration
	PasswordResetExpiry time.Duration
	GoogleClientID      string

	// Email
	EmailProvider  string // "sendgrid", "smtp" or "mock"
	EmailFrom      string
	SendGridAPIKey string
	SMTPHost       string
	SMTPPort       int
	SMTPUsername   string
	SMTPPassword   string
	ResetURL       string

	// Storage
	UseS3          bool
	S3Bucket       string
	S3Region       string
	S3PublicURL    string
	LocalUploadDir string
	MaxUploadSize  int64

	// AI captioning
	CaptionEndpoint string
	CaptionAPIKey   string
	CaptionTimeout  time.Duration

	// Push notifications
	FirebaseCredentialsFile string

	// Chat
	ChatHistoryLimit int
	ChatRetention    time.Duration
	FeedWindow       int
}

// Load reads configuration from environment variables
func Load() *Config {
	cfg := &Config{
		Port:        getEnv("PORT", "8080"),
		Environment: getEnv("ENVIRONMENT", "development"),
		BaseURL:     getEnv("BASE_URL", ""),
		LogLevel:    getEnv("LOG_LEVEL", ""),

		AllowedOrigins: getEnvList("ALLOWED_ORIGINS"),

		DatabaseURL: getEnv("DATABASE_URL", ""),
		RedisURL:    getEnv("REDIS_URL", ""),

		JWTSecret:           getEnv("JWT_SECRET", "dev-secret-change-me"),
		BCryptCost:          getEnvInt("BCRYPT_COST", 10),
		AccessTokenExpiry:   getEnvDuration("ACCESS_TOKEN_EXPIRY", "1h"),
		RefreshTokenExpiry:  getEnvDuration("REFRESH_TOKEN_EXPIRY", "720h"),
		AdminEmails:         getEnvList("ADMIN_EMAILS"),
		AllowedEmailDomain:  getEnv("ALLOWED_EMAIL_DOMAIN", ""),
		LoginAttemptsMax:    getEnvInt("LOGIN_ATTEMPTS_MAX", 5),
		LoginAttemptsWindow: getEnvDuration("LOGIN_ATTEMPTS_WINDOW", "15m"),
		PasswordResetExpiry: getEnvDuration("PASSWORD_RESET_EXPIRY", "30m"),
		GoogleClientID:      getEnv("GOOGLE_CLIENT_ID", ""),

		EmailProvider:  getEnv("EMAIL_PROVIDER", "mock"),
		EmailFrom:      getEnv("EMAIL_FROM", "noreply@dugunanilari.com"),
		SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		SMTPHost:       getEnv("SMTP_HOST", ""),
		SMTPPort:       getEnvInt("SMTP_PORT", 587),
		SMTPUsername:   getEnv("SMTP_USERNAME", ""),
		SMTPPassword:   getEnv("SMTP_PASSWORD", ""),
		ResetURL:       getEnv("PASSWORD_RESET_URL", ""),

		UseS3:          getEnvBool("USE_S3", false),
		S3Bucket:       getEnv("S3_BUCKET_NAME", "wedding-share-media"),
		S3Region:       getEnv("AWS_REGION", "eu-central-1"),
		S3PublicURL:    getEnv("S3_PUBLIC_URL", ""),
		LocalUploadDir: getEnv("LOCAL_UPLOAD_DIR", "./uploads"),
		MaxUploadSize:  int64(getEnvInt("MAX_UPLOAD_SIZE_MB", 50)) << 20,

		CaptionEndpoint: getEnv("CAPTION_ENDPOINT", ""),
		CaptionAPIKey:   getEnv("CAPTION_API_KEY", ""),
		CaptionTimeout:  getEnvDuration("CAPTION_TIMEOUT", "15s"),

		FirebaseCredentialsFile: getEnv("FCM_CREDENTIALS_FILE", ""),

		ChatHistoryLimit: getEnvInt("CHAT_HISTORY_LIMIT", 100),
		ChatRetention:    getEnvDuration("CHAT_RETENTION", "2160h"),
		FeedWindow:       getEnvInt("FEED_WINDOW", 50),
	}

	if cfg.BaseURL == "" {
		cfg.BaseURL = fmt.Sprintf("http://localhost:%s", cfg.Port)
	}
	if cfg.ResetURL == "" {
		cfg.ResetURL = cfg.BaseURL + "/reset-password"
	}
	if cfg.S3PublicURL == "" {
		cfg.S3PublicURL = fmt.Sprintf("https://%s.s3.%s.amazonaws.com", cfg.S3Bucket, cfg.S3Region)
	}

	return cfg
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.IsProduction() {
		if c.JWTSecret == "dev-secret-change-me" {
			return errors.New("JWT secret must be changed for production")
		}
		if c.DatabaseURL == "" {
			return errors.New("database URL is required in production")
		}
		if c.EmailProvider == "mock" {
			return errors.New("mock email provider cannot be used in production")
		}
	}

	switch c.EmailProvider {
	case "sendgrid":
		if c.SendGridAPIKey == "" {
			return errors.New("SendGrid API key is required")
		}
	case "smtp":
		if c.SMTPHost == "" || c.SMTPUsername == "" {
			return errors.New("SMTP host and username are required")
		}
	case "mock":
	default:
		return fmt.Errorf("invalid email provider: %s", c.EmailProvider)
	}

	if c.UseS3 && c.S3Bucket == "" {
		return errors.New("S3 bucket is required when USE_S3 is set")
	}
	if !c.UseS3 && c.LocalUploadDir == "" {
		return errors.New("local upload directory not specified")
	}

	if c.BCryptCost < 4 || c.BCryptCost > 31 {
		return errors.New("bcrypt cost must be between 4 and 31")
	}
	if c.LoginAttemptsMax < 1 {
		return errors.New("login attempts max must be positive")
	}
	if c.ChatHistoryLimit < 1 || c.FeedWindow < 1 {
		return errors.New("chat history limit and feed window must be positive")
	}

	return nil
}

// SampleMode reports whether the hosted database is missing and the API
// should serve read-only sample content.
func (c *Config) SampleMode() bool {
	return c.DatabaseURL == ""
}

// IsAdminEmail reports whether the email is on the server side admin list
func (c *Config) IsAdminEmail(email string) bool {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return false
	}
	for _, admin := range c.AdminEmails {
		if admin == email {
			return true
		}
	}
	return false
}

// IsProduction returns true if running in production
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// Helper functions

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvDuration(key string, defaultValue string) time.Duration {
	value := getEnv(key, defaultValue)
	duration, err := time.ParseDuration(value)
	if err != nil {
		duration, _ = time.ParseDuration(defaultValue)
	}
	return duration
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}

// getEnvList splits a comma separated variable into lower-cased entries
func getEnvList(key string) []string {
	raw := os.Getenv(key)
	if raw == "" {
		return nil
	}
	var out []string
	for _, part := range strings.Split(raw, ",") {
		if part = strings.ToLower(strings.TrimSpace(part)); part != "" {
			out = append(out, part)
		}
	}
	return out
}
