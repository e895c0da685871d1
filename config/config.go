package config

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/spf13/viper"
)

type Config struct {
	Server       ServerConfig
	Database     DatabaseConfig
	JWT          JWTConfig
	Redis        RedisConfig
	Cloudinary   CloudinaryConfig
	Firebase     FirebaseConfig
	Payment      PaymentConfig
	Stripe       StripeConfig
	LiberecMpesa LiberecMpesaConfig
	SLA          SLAConfig
	Sweeper      SweeperConfig
	Maintenance  MaintenanceConfig
}

type ServerConfig struct {
	Port         string
	Env          string
	ReadTimeout  time.Duration
	WriteTimeout time.Duration
	ClientOrigin string
}

type DatabaseConfig struct {
	DSN             string
	MaxIdleConns    int
	MaxOpenConns    int
	ConnMaxLifetime time.Duration
}

type JWTConfig struct {
	AccessSecret string
	AccessExpiry time.Duration
	Issuer       string
}

type RedisConfig struct {
	Addr     string
	Password string
	DB       int
}

type CloudinaryConfig struct {
	CloudName string
	APIKey    string
	APISecret string
}

type FirebaseConfig struct {
	ServiceAccountPath string
}

// PaymentConfig selects the checkout gateway. Provider is "stripe" or "stub".
type PaymentConfig struct {
	Provider        string
	WebhookSecret   string
	Currency        string
	PlatformFeeRate float64
	CheckoutTTL     time.Duration
}

type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
}

// LiberecMpesaConfig for M-Pesa B2C payouts of answerer earnings.
type LiberecMpesaConfig struct {
	BaseURL        string
	Email          string
	Password       string
	WebhookBaseURL string // callback is WebhookBaseURL + /api/v1/webhooks/withdrawal
}

// SLAConfig. DeadlineAnchor is "created" (question submission time) or "paid"
// (payment confirmation time).
type SLAConfig struct {
	DeadlineAnchor string
}

type SweeperConfig struct {
	Enabled           bool
	Interval          time.Duration
	BatchSize         int
	RefundRetryEvery  time.Duration
	RefundMaxAttempts int
	// RefundStaleAfter is how long a PENDING refund waits before a retry.
	RefundStaleAfter time.Duration
	LockTTL          time.Duration
}

type MaintenanceConfig struct {
	Token string
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("PORT", "8099")
	v.SetDefault("APP_ENV", "development")
	v.SetDefault("READ_TIMEOUT", 10*time.Second)
	v.SetDefault("WRITE_TIMEOUT", 10*time.Second)
	v.SetDefault("CLIENT_ORIGIN", "http://localhost:3000")

	v.SetDefault("DB_DSN", "qa:qa@tcp(localhost:3306)/qa?charset=utf8mb4&parseTime=True&loc=UTC")
	v.SetDefault("DB_MAX_IDLE_CONNS", 10)
	v.SetDefault("DB_MAX_OPEN_CONNS", 100)
	v.SetDefault("DB_CONN_MAX_LIFETIME", time.Hour)

	v.SetDefault("JWT_SECRET", defaultJWTSecret)
	v.SetDefault("JWT_EXPIRY", 24*time.Hour)
	v.SetDefault("JWT_ISSUER", "qa-backend")

	v.SetDefault("REDIS_ADDR", "")
	v.SetDefault("REDIS_DB", 0)

	v.SetDefault("PAYMENT_PROVIDER", "stub")
	v.SetDefault("PAYMENT_CURRENCY", "usd")
	v.SetDefault("PLATFORM_FEE_RATE", 0.0)
	v.SetDefault("CHECKOUT_TTL", time.Hour)

	v.SetDefault("MPESA_BASE_URL", "https://card-api.theliberec.com")

	v.SetDefault("SLA_DEADLINE_ANCHOR", "created")

	v.SetDefault("SWEEPER_ENABLED", true)
	v.SetDefault("SWEEP_INTERVAL", time.Hour)
	v.SetDefault("SWEEP_BATCH_SIZE", 200)
	v.SetDefault("REFUND_RETRY_INTERVAL", 15*time.Minute)
	v.SetDefault("REFUND_MAX_ATTEMPTS", 5)
	v.SetDefault("REFUND_STALE_AFTER", 10*time.Minute)
	v.SetDefault("SWEEP_LOCK_TTL", 10*time.Minute)
}

// Load reads configuration from the environment, after loading an optional
// .env file from the working directory.
func Load() *Config {
	_ = godotenv.Load()

	v := viper.New()
	setDefaults(v)
	v.AutomaticEnv()

	return &Config{
		Server: ServerConfig{
			Port:         v.GetString("PORT"),
			Env:          v.GetString("APP_ENV"),
			ReadTimeout:  v.GetDuration("READ_TIMEOUT"),
			WriteTimeout: v.GetDuration("WRITE_TIMEOUT"),
			ClientOrigin: strings.TrimRight(v.GetString("CLIENT_ORIGIN"), "/"),
		},
		Database: DatabaseConfig{
			DSN:             v.GetString("DB_DSN"),
			MaxIdleConns:    v.GetInt("DB_MAX_IDLE_CONNS"),
			MaxOpenConns:    v.GetInt("DB_MAX_OPEN_CONNS"),
			ConnMaxLifetime: v.GetDuration("DB_CONN_MAX_LIFETIME"),
		},
		JWT: JWTConfig{
			AccessSecret: v.GetString("JWT_SECRET"),
			AccessExpiry: v.GetDuration("JWT_EXPIRY"),
			Issuer:       v.GetString("JWT_ISSUER"),
		},
		Redis: RedisConfig{
			Addr:     v.GetString("REDIS_ADDR"),
			Password: v.GetString("REDIS_PASSWORD"),
			DB:       v.GetInt("REDIS_DB"),
		},
		Cloudinary: CloudinaryConfig{
			CloudName: v.GetString("CLOUDINARY_CLOUD_NAME"),
			APIKey:    v.GetString("CLOUDINARY_API_KEY"),
			APISecret: v.GetString("CLOUDINARY_API_SECRET"),
		},
		Firebase: FirebaseConfig{
			ServiceAccountPath: v.GetString("FIREBASE_SERVICE_ACCOUNT_PATH"),
		},
		Payment: PaymentConfig{
			Provider:        strings.ToLower(v.GetString("PAYMENT_PROVIDER")),
			WebhookSecret:   v.GetString("PAYMENT_WEBHOOK_SECRET"),
			Currency:        strings.ToLower(v.GetString("PAYMENT_CURRENCY")),
			PlatformFeeRate: v.GetFloat64("PLATFORM_FEE_RATE"),
			CheckoutTTL:     v.GetDuration("CHECKOUT_TTL"),
		},
		Stripe: StripeConfig{
			SecretKey:     v.GetString("STRIPE_SECRET_KEY"),
			WebhookSecret: v.GetString("STRIPE_WEBHOOK_SECRET"),
		},
		LiberecMpesa: LiberecMpesaConfig{
			BaseURL:        v.GetString("MPESA_BASE_URL"),
			Email:          v.GetString("MPESA_EMAIL"),
			Password:       v.GetString("MPESA_PASSWORD"),
			WebhookBaseURL: v.GetString("MPESA_WEBHOOK_BASE_URL"),
		},
		SLA: SLAConfig{
			DeadlineAnchor: strings.ToLower(v.GetString("SLA_DEADLINE_ANCHOR")),
		},
		Sweeper: SweeperConfig{
			Enabled:           v.GetBool("SWEEPER_ENABLED"),
			Interval:          v.GetDuration("SWEEP_INTERVAL"),
			BatchSize:         v.GetInt("SWEEP_BATCH_SIZE"),
			RefundRetryEvery:  v.GetDuration("REFUND_RETRY_INTERVAL"),
			RefundMaxAttempts: v.GetInt("REFUND_MAX_ATTEMPTS"),
			RefundStaleAfter:  v.GetDuration("REFUND_STALE_AFTER"),
			LockTTL:           v.GetDuration("SWEEP_LOCK_TTL"),
		},
		Maintenance: MaintenanceConfig{
			Token: v.GetString("MAINTENANCE_TOKEN"),
		},
	}
}

const defaultJWTSecret = "change-me-in-production"

// Validate rejects settings the server cannot run with.
func (c *Config) Validate() error {
	if c.SLA.DeadlineAnchor != "created" && c.SLA.DeadlineAnchor != "paid" {
		return fmt.Errorf("SLA_DEADLINE_ANCHOR must be created or paid, got %q", c.SLA.DeadlineAnchor)
	}
	if c.Payment.PlatformFeeRate < 0 || c.Payment.PlatformFeeRate >= 1 {
		return fmt.Errorf("PLATFORM_FEE_RATE must be in [0, 1), got %v", c.Payment.PlatformFeeRate)
	}
	// Stripe accepts checkout expiry between 30 minutes and 24 hours out.
	if c.Payment.CheckoutTTL < 30*time.Minute || c.Payment.CheckoutTTL > 24*time.Hour {
		return fmt.Errorf("CHECKOUT_TTL must be between 30m and 24h, got %v", c.Payment.CheckoutTTL)
	}
	if c.Sweeper.RefundStaleAfter <= 0 {
		return fmt.Errorf("REFUND_STALE_AFTER must be positive, got %v", c.Sweeper.RefundStaleAfter)
	}
	if c.Server.Env == "production" {
		if c.JWT.AccessSecret == "" || c.JWT.AccessSecret == defaultJWTSecret {
			return errors.New("JWT_SECRET must be set in production")
		}
		if c.Maintenance.Token == "" {
			return errors.New("MAINTENANCE_TOKEN must be set in production")
		}
	}
	return nil
}
