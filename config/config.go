package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Config holds application configuration loaded from environment.
type Config struct {
	Server   ServerConfig
	Database DatabaseConfig
	Redis    RedisConfig
	JWT      JWTConfig
	Zoom     ZoomConfig
	Email    EmailConfig
	OTP      OTPConfig
	Worker   WorkerConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Port               string
	ReadTimeout        int
	WriteTimeout       int
	CORSAllowedOrigins string // comma-separated, or "*" for all
}

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	URL      string // if set, used as-is (e.g. postgres://localhost:5432/studify?sslmode=disable)
	Host     string
	Port     string
	User     string
	Password string
	DBName   string
	SSLMode  string
}

// RedisConfig holds Redis connection settings.
type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

// JWTConfig holds JWT signing and validation settings.
type JWTConfig struct {
	Secret      string
	ExpireHours int
}

// ZoomConfig holds server-to-server OAuth credentials and endpoints of the meeting provider.
type ZoomConfig struct {
	AccountID    string
	ClientID     string
	ClientSecret string
	AuthURL      string // token endpoint, e.g. https://zoom.us/oauth/token
	APIBaseURL   string // e.g. https://api.zoom.us/v2
	TimeoutSec   int
	MaxRetries   int // extra attempts for idempotent calls (update, delete)
}

// Enabled reports whether provider credentials are present.
func (c ZoomConfig) Enabled() bool {
	return c.AccountID != "" && c.ClientID != "" && c.ClientSecret != ""
}

// EmailConfig for outbound notifications.
type EmailConfig struct {
	FromAddress    string
	FromName       string
	SendGridAPIKey string // empty = log emails instead of sending
}

// OTPConfig controls teacher email verification codes.
type OTPConfig struct {
	Length      int
	TTLMinutes  int
	MaxAttempts int
}

// WorkerConfig holds background job settings.
type WorkerConfig struct {
	RetryBackoffSec int
}

// DSN returns the PostgreSQL connection string.
// If DatabaseConfig.URL is set (e.g. DATABASE_URL env), it is used as-is; otherwise built from components.
func (c DatabaseConfig) DSN() string {
	if c.URL != "" {
		return c.URL
	}
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s",
		c.User, c.Password, c.Host, c.Port, c.DBName, c.SSLMode,
	)
}

// Load reads configuration from environment, with optional .env file.
func Load() (*Config, error) {
	_ = godotenv.Load()      // .env
	_ = godotenv.Load("env") // env (no leading dot)

	cfg := &Config{
		Server: ServerConfig{
			Port:               getEnv("PORT", "8080"),
			ReadTimeout:        getEnvInt("READ_TIMEOUT_SEC", 30),
			WriteTimeout:       getEnvInt("WRITE_TIMEOUT_SEC", 30),
			CORSAllowedOrigins: getEnv("CORS_ALLOWED_ORIGINS", "http://localhost:3000"),
		},
		Database: DatabaseConfig{
			URL:      getEnv("DATABASE_URL", ""),
			Host:     getEnv("DB_HOST", "localhost"),
			Port:     getEnv("DB_PORT", "5432"),
			User:     getEnv("DB_USER", "postgres"),
			Password: getEnv("DB_PASSWORD", "postgres"),
			DBName:   getEnv("DB_NAME", "studify"),
			SSLMode:  getEnv("DB_SSLMODE", "disable"),
		},
		Redis: RedisConfig{
			Addr:     getEnv("REDIS_ADDR", "localhost:6379"),
			Password: getEnv("REDIS_PASSWORD", ""),
			DB:       getEnvInt("REDIS_DB", 0),
		},
		JWT: JWTConfig{
			Secret:      getEnv("JWT_SECRET", "change-me-in-production"),
			ExpireHours: getEnvInt("JWT_EXPIRE_HOURS", 24),
		},
		Zoom: ZoomConfig{
			AccountID:    getEnv("ZOOM_ACCOUNT_ID", ""),
			ClientID:     getEnv("ZOOM_CLIENT_ID", ""),
			ClientSecret: getEnv("ZOOM_CLIENT_SECRET", ""),
			AuthURL:      getEnv("ZOOM_AUTH_URL", "https://zoom.us/oauth/token"),
			APIBaseURL:   strings.TrimRight(getEnv("ZOOM_API_BASE_URL", "https://api.zoom.us/v2"), "/"),
			TimeoutSec:   getEnvInt("ZOOM_TIMEOUT_SEC", 15),
			MaxRetries:   getEnvInt("ZOOM_MAX_RETRIES", 2),
		},
		Email: EmailConfig{
			FromAddress:    getEnv("EMAIL_FROM_ADDRESS", "noreply@example.com"),
			FromName:       getEnv("EMAIL_FROM_NAME", "Studify"),
			SendGridAPIKey: getEnv("SENDGRID_API_KEY", ""),
		},
		OTP: OTPConfig{
			Length:      getEnvInt("OTP_LENGTH", 6),
			TTLMinutes:  getEnvInt("OTP_TTL_MINUTES", 10),
			MaxAttempts: getEnvInt("OTP_MAX_ATTEMPTS", 5),
		},
		Worker: WorkerConfig{
			RetryBackoffSec: getEnvInt("WORKER_RETRY_BACKOFF_SEC", 10),
		},
	}
	return cfg, nil
}

func getEnvInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func getEnv(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
