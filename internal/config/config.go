package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	log "github.com/sirupsen/logrus"
)

// Config holds all configuration for the application
type Config struct {
	// Environment name ("development", "production", ...)
	Env string

	Server      ServerConfig
	Database    DatabaseConfig
	JWT         JWTConfig
	Email       EmailConfig
	OAuth       OAuthConfig
	Payments    PaymentsConfig
	Marketplace MarketplaceConfig
	Redis       RedisConfig
	Storage     StorageConfig
	Schools     SchoolsConfig
	CORS        CORSConfig
	RateLimit   RateLimitConfig
	Log         LogConfig
	Jobs        JobsConfig
}

// ServerConfig holds server-related configuration
type ServerConfig struct {
	Port            string
	ReadTimeout     time.Duration
	WriteTimeout    time.Duration
	IdleTimeout     time.Duration
	ShutdownTimeout time.Duration
	FrontendURL     string
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	Host         string
	Port         string
	User         string
	Password     string
	Name         string
	SSLMode      string
	MaxConns     int32
	MinConns     int32
	MaxLifetime  time.Duration
	ConnTimeout  time.Duration
	QueryTimeout time.Duration
	// SimpleProtocol is required behind PgBouncer (Supabase pooler on :6543)
	SimpleProtocol bool
	AutoMigrate    bool
}

// JWTConfig holds JWT-related configuration
type JWTConfig struct {
	Secret         string
	AccessTokenTTL time.Duration
	ResetTokenTTL  time.Duration
}

// EmailConfig holds email service configuration.
// Resend is used when ResendAPIKey is set, SMTP otherwise.
type EmailConfig struct {
	ResendAPIKey string
	SMTPHost     string
	SMTPPort     string
	SMTPUsername string
	SMTPPassword string
	FromEmail    string
	FromName     string
}

// OAuthProviderConfig holds one provider's OAuth client
type OAuthProviderConfig struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
}

// OAuthConfig holds the social login providers
type OAuthConfig struct {
	Kakao  OAuthProviderConfig
	Naver  OAuthProviderConfig
	Google OAuthProviderConfig
}

// BankAccount is the platform account buyers transfer to in the P2P flow
type BankAccount struct {
	BankName      string `json:"bank_name"`
	AccountNumber string `json:"account_number"`
	AccountHolder string `json:"account_holder"`
}

// PaymentsConfig holds payment gateway configuration
type PaymentsConfig struct {
	TossSecretKey        string
	TossBaseURL          string
	PortOneAPISecret     string
	PortOneBaseURL       string
	PortOneWebhookSecret string
	P2PAccount           BankAccount
}

// MarketplaceConfig holds revenue and payout rules
type MarketplaceConfig struct {
	CreatorSharePercent int
	MinPayoutAmount     int64
	PurchasePendingTTL  time.Duration
}

// RedisConfig holds the optional Redis connection
type RedisConfig struct {
	URL string
}

// StorageConfig holds Supabase Storage settings used for signed download URLs
type StorageConfig struct {
	SupabaseURL    string
	ServiceRoleKey string
	Bucket         string
	SignedURLTTL   time.Duration
}

// SchoolsConfig holds the study map dataset location
type SchoolsConfig struct {
	DataPath string
}

// CORSConfig holds CORS configuration
type CORSConfig struct {
	AllowedOrigins   []string
	AllowedMethods   []string
	AllowedHeaders   []string
	AllowCredentials bool
}

// RateLimitConfig holds per-key request limits
type RateLimitConfig struct {
	AuthPerSecond     int
	AuthBurst         int
	WebhookPerSecond  int
	WebhookBurst      int
	PurchasePerSecond int
	PurchaseBurst     int
}

// LogConfig holds logger configuration
type LogConfig struct {
	Level  string
	Format string
}

// JobsConfig holds background job schedules
type JobsConfig struct {
	ExpirePurchasesSchedule string
}

// Load loads configuration from environment variables
func Load() (*Config, error) {
	// Load .env file
	if err := godotenv.Load("../.env"); err != nil {
		// Try loading from current directory if not found in parent
		if err := godotenv.Load(".env"); err != nil {
			log.Warnf(".env file not found: %v", err)
		}
	}

	config := &Config{
		Env: getEnv("APP_ENV", "development"),
		Server: ServerConfig{
			Port:            getEnv("SERVER_PORT", "8080"),
			ReadTimeout:     getDurationEnv("SERVER_READ_TIMEOUT", 5*time.Second),
			WriteTimeout:    getDurationEnv("SERVER_WRITE_TIMEOUT", 15*time.Second),
			IdleTimeout:     getDurationEnv("SERVER_IDLE_TIMEOUT", 120*time.Second),
			ShutdownTimeout: getDurationEnv("SERVER_SHUTDOWN_TIMEOUT", 5*time.Second),
			FrontendURL:     strings.TrimRight(getEnv("FRONTEND_URL", "http://localhost:3000"), "/"),
		},
		Database: DatabaseConfig{
			Host:           getEnv("DB_HOST", "localhost"),
			Port:           getEnv("DB_PORT", "5432"),
			User:           getEnv("DB_USER", "postgres"),
			Password:       getEnv("DB_PASSWORD", ""),
			Name:           getEnv("DB_NAME", "postgres"),
			SSLMode:        getEnv("DB_SSLMODE", "disable"),
			MaxConns:       getInt32Env("DB_MAX_CONNS", 5),
			MinConns:       getInt32Env("DB_MIN_CONNS", 0),
			MaxLifetime:    getDurationEnv("DB_MAX_LIFETIME", time.Hour),
			ConnTimeout:    getDurationEnv("DB_CONN_TIMEOUT", 10*time.Second),
			QueryTimeout:   getDurationEnv("DB_QUERY_TIMEOUT", 30*time.Second),
			SimpleProtocol: getBoolEnv("DB_SIMPLE_PROTOCOL", true),
			AutoMigrate:    getBoolEnv("DB_AUTO_MIGRATE", false),
		},
		JWT: JWTConfig{
			Secret:         getEnv("JWT_SECRET", "your-secret-key-change-in-production"),
			AccessTokenTTL: getDurationEnv("JWT_ACCESS_TTL", 7*24*time.Hour), // 7 days
			ResetTokenTTL:  getDurationEnv("JWT_RESET_TTL", 10*time.Minute),
		},
		Email: EmailConfig{
			ResendAPIKey: getEnv("RESEND_API_KEY", ""),
			SMTPHost:     getEnv("SMTP_HOST", "smtp.gmail.com"),
			SMTPPort:     getEnv("SMTP_PORT", "587"),
			SMTPUsername: getEnv("SMTP_USERNAME", ""),
			SMTPPassword: getEnv("SMTP_PASSWORD", ""),
			FromEmail:    getEnv("EMAIL_FROM", ""),
			FromName:     getEnv("EMAIL_FROM_NAME", "Studyhub"),
		},
		OAuth: OAuthConfig{
			Kakao: OAuthProviderConfig{
				ClientID:     getEnv("KAKAO_CLIENT_ID", ""),
				ClientSecret: getEnv("KAKAO_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("KAKAO_REDIRECT_URL", "http://localhost:8080/api/auth/kakao/callback"),
			},
			Naver: OAuthProviderConfig{
				ClientID:     getEnv("NAVER_CLIENT_ID", ""),
				ClientSecret: getEnv("NAVER_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("NAVER_REDIRECT_URL", "http://localhost:8080/api/auth/naver/callback"),
			},
			Google: OAuthProviderConfig{
				ClientID:     getEnv("GOOGLE_CLIENT_ID", ""),
				ClientSecret: getEnv("GOOGLE_CLIENT_SECRET", ""),
				RedirectURL:  getEnv("GOOGLE_REDIRECT_URL", "http://localhost:8080/api/auth/google/callback"),
			},
		},
		Payments: PaymentsConfig{
			TossSecretKey:        getEnv("TOSS_SECRET_KEY", ""),
			TossBaseURL:          getEnv("TOSS_BASE_URL", "https://api.tosspayments.com"),
			PortOneAPISecret:     getEnv("PORTONE_API_SECRET", ""),
			PortOneBaseURL:       getEnv("PORTONE_BASE_URL", "https://api.portone.io"),
			PortOneWebhookSecret: getEnv("PORTONE_WEBHOOK_SECRET", ""),
			P2PAccount: BankAccount{
				BankName:      getEnv("P2P_BANK_NAME", ""),
				AccountNumber: getEnv("P2P_ACCOUNT_NUMBER", ""),
				AccountHolder: getEnv("P2P_ACCOUNT_HOLDER", ""),
			},
		},
		Marketplace: MarketplaceConfig{
			CreatorSharePercent: getIntEnv("CREATOR_SHARE_PERCENT", 80),
			MinPayoutAmount:     getInt64Env("MIN_PAYOUT_AMOUNT", 10000),
			PurchasePendingTTL:  getDurationEnv("PURCHASE_PENDING_TTL", 72*time.Hour),
		},
		Redis: RedisConfig{
			URL: getEnv("REDIS_URL", ""),
		},
		Storage: StorageConfig{
			SupabaseURL:    strings.TrimRight(getEnv("SUPABASE_URL", ""), "/"),
			ServiceRoleKey: getEnv("SUPABASE_SERVICE_ROLE_KEY", ""),
			Bucket:         getEnv("SUPABASE_STORAGE_BUCKET", "contents"),
			SignedURLTTL:   getDurationEnv("SIGNED_URL_TTL", time.Hour),
		},
		Schools: SchoolsConfig{
			DataPath: getEnv("SCHOOLS_DATA_PATH", "data/schools.yaml"),
		},
		CORS: CORSConfig{
			AllowedOrigins:   getStringSliceEnv("CORS_ALLOWED_ORIGINS", []string{"*"}),
			AllowedMethods:   getStringSliceEnv("CORS_ALLOWED_METHODS", []string{"GET", "POST", "PUT", "DELETE", "OPTIONS"}),
			AllowedHeaders:   getStringSliceEnv("CORS_ALLOWED_HEADERS", []string{"*"}),
			AllowCredentials: getBoolEnv("CORS_ALLOW_CREDENTIALS", true),
		},
		RateLimit: RateLimitConfig{
			AuthPerSecond:     getIntEnv("RATE_LIMIT_AUTH_RPS", 5),
			AuthBurst:         getIntEnv("RATE_LIMIT_AUTH_BURST", 10),
			WebhookPerSecond:  getIntEnv("RATE_LIMIT_WEBHOOK_RPS", 20),
			WebhookBurst:      getIntEnv("RATE_LIMIT_WEBHOOK_BURST", 40),
			PurchasePerSecond: getIntEnv("RATE_LIMIT_PURCHASE_RPS", 2),
			PurchaseBurst:     getIntEnv("RATE_LIMIT_PURCHASE_BURST", 5),
		},
		Log: LogConfig{
			Level:  getEnv("LOG_LEVEL", "info"),
			Format: getEnv("LOG_FORMAT", "text"),
		},
		Jobs: JobsConfig{
			ExpirePurchasesSchedule: getEnv("JOB_EXPIRE_PURCHASES_SCHEDULE", "@every 1h"),
		},
	}

	// Validate required configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return config, nil
}

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.Database.Password == "" {
		return fmt.Errorf("DB_PASSWORD is required")
	}
	if c.IsProduction() && len(c.JWT.Secret) < 16 {
		return fmt.Errorf("JWT_SECRET must be at least 16 characters in production")
	}
	if c.Marketplace.CreatorSharePercent < 0 || c.Marketplace.CreatorSharePercent > 100 {
		return fmt.Errorf("CREATOR_SHARE_PERCENT must be between 0 and 100, got %d", c.Marketplace.CreatorSharePercent)
	}
	if c.Marketplace.MinPayoutAmount <= 0 {
		return fmt.Errorf("MIN_PAYOUT_AMOUNT must be positive, got %d", c.Marketplace.MinPayoutAmount)
	}

	if !c.IsEmailConfigured() {
		log.Warn("email not configured (RESEND_API_KEY or SMTP credentials). Emails will be skipped.")
	}
	if !c.IsOAuthConfigured(c.OAuth.Kakao) {
		log.Warn("Kakao OAuth credentials not configured. Kakao login will not work.")
	}
	if !c.IsOAuthConfigured(c.OAuth.Naver) {
		log.Warn("Naver OAuth credentials not configured. Naver login will not work.")
	}
	if c.Payments.TossSecretKey == "" {
		log.Warn("TOSS_SECRET_KEY not configured. Toss payments will fail.")
	}
	if c.Payments.PortOneAPISecret == "" {
		log.Warn("PORTONE_API_SECRET not configured. PortOne payments will fail.")
	}
	if c.Payments.PortOneWebhookSecret == "" {
		log.Warn("PORTONE_WEBHOOK_SECRET not configured. PortOne webhooks will be rejected.")
	}
	if c.Redis.URL == "" {
		log.Info("REDIS_URL not set, OAuth state kept in memory")
	}

	return nil
}

// IsProduction reports whether the service runs in production
func (c *Config) IsProduction() bool {
	return strings.EqualFold(c.Env, "production")
}

// GetDSN returns the database connection string
func (c *Config) GetDSN() string {
	return fmt.Sprintf(
		"postgres://%s:%s@%s:%s/%s?sslmode=%s&connect_timeout=%d",
		c.Database.User,
		c.Database.Password,
		c.Database.Host,
		c.Database.Port,
		c.Database.Name,
		c.Database.SSLMode,
		int(c.Database.ConnTimeout.Seconds()),
	)
}

// IsEmailConfigured checks if an email transport is configured
func (c *Config) IsEmailConfigured() bool {
	if c.Email.ResendAPIKey != "" {
		return c.Email.FromEmail != ""
	}
	return c.Email.SMTPUsername != "" && c.Email.SMTPPassword != ""
}

// IsOAuthConfigured checks if a provider has client credentials
func (c *Config) IsOAuthConfigured(p OAuthProviderConfig) bool {
	return p.ClientID != "" && p.ClientSecret != ""
}

// IsStorageConfigured checks if signed storage URLs can be issued
func (c *Config) IsStorageConfigured() bool {
	return c.Storage.SupabaseURL != "" && c.Storage.ServiceRoleKey != ""
}

// Helper functions for environment variable parsing

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getIntEnv(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.Atoi(value); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getInt32Env(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intValue)
		}
	}
	return defaultValue
}

func getInt64Env(key string, defaultValue int64) int64 {
	if value := os.Getenv(key); value != "" {
		if intValue, err := strconv.ParseInt(value, 10, 64); err == nil {
			return intValue
		}
	}
	return defaultValue
}

func getBoolEnv(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolValue, err := strconv.ParseBool(value); err == nil {
			return boolValue
		}
	}
	return defaultValue
}

func getDurationEnv(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

func getStringSliceEnv(key string, defaultValue []string) []string {
	if value := os.Getenv(key); value != "" {
		parts := []string{}
		for _, part := range strings.Split(value, ",") {
			if p := strings.TrimSpace(part); p != "" {
				parts = append(parts, p)
			}
		}
		if len(parts) > 0 {
			return parts
		}
	}
	return defaultValue
}
