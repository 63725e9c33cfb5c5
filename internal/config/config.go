package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/labstack/gommon/random"
)

// Config is the process configuration, read from the environment.
type Config struct {
	Env      string
	HTTPPort string

	DatabaseURL string

	JWTSecret          string
	JWTSecretGenerated bool
	JWTJWKSURL         string

	RedisAddr     string
	RedisPassword string
	RedisDB       int
	CacheTTL      time.Duration

	MinioEndpoint  string
	MinioAccessKey string
	MinioSecretKey string
	MinioBucket    string
	MinioUseSSL    bool
	PDFURLExpiry   time.Duration

	MerchantKey           string
	MerchantSalt          string
	PaymentSuccessURL     string
	PaymentFailureURL     string
	PaymentCallbackSecret string

	StalePaymentInterval time.Duration
	StalePaymentAge      time.Duration
}

// Load reads an optional .env file and then the environment.
func Load() (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, os.ErrNotExist) {
		return nil, fmt.Errorf("failed to load .env: %w", err)
	}
	return FromEnv(os.Getenv)
}

// FromEnv builds a Config from a lookup function.
func FromEnv(getenv func(string) string) (*Config, error) {
	get := func(key, def string) string {
		if v := strings.TrimSpace(getenv(key)); v != "" {
			return v
		}
		return def
	}

	cfg := &Config{
		Env:                   get("APP_ENV", "production"),
		HTTPPort:              get("PORT", "8080"),
		DatabaseURL:           get("DATABASE_URL", ""),
		JWTSecret:             get("JWT_SECRET", ""),
		JWTJWKSURL:            get("JWT_JWKS_URL", ""),
		RedisAddr:             get("REDIS_ADDR", "localhost:6379"),
		RedisPassword:         get("REDIS_PASSWORD", ""),
		MinioEndpoint:         get("MINIO_ENDPOINT", "localhost:9000"),
		MinioAccessKey:        get("MINIO_ACCESS_KEY", "minioadmin"),
		MinioSecretKey:        get("MINIO_SECRET_KEY", "minioadmin"),
		MinioBucket:           get("MINIO_BUCKET", "invoices"),
		MinioUseSSL:           get("MINIO_USE_SSL", "false") == "true",
		MerchantKey:           get("PAYMENT_MERCHANT_KEY", ""),
		MerchantSalt:          get("PAYMENT_MERCHANT_SALT", ""),
		PaymentSuccessURL:     get("PAYMENT_SUCCESS_URL", "/payment/success"),
		PaymentFailureURL:     get("PAYMENT_FAILURE_URL", "/payment/failure"),
		PaymentCallbackSecret: get("PAYMENT_CALLBACK_SECRET", ""),
	}

	if cfg.DatabaseURL == "" {
		return nil, errors.New("DATABASE_URL environment variable is required")
	}

	var err error
	if cfg.RedisDB, err = strconv.Atoi(get("REDIS_DB", "0")); err != nil {
		return nil, fmt.Errorf("invalid REDIS_DB: %w", err)
	}

	durations := []struct {
		key string
		def string
		dst *time.Duration
	}{
		{"CACHE_TTL", "5m", &cfg.CacheTTL},
		{"PDF_URL_EXPIRY", "15m", &cfg.PDFURLExpiry},
		{"STALE_PAYMENT_INTERVAL", "10m", &cfg.StalePaymentInterval},
		{"STALE_PAYMENT_AGE", "30m", &cfg.StalePaymentAge},
	}
	for _, d := range durations {
		if *d.dst, err = time.ParseDuration(get(d.key, d.def)); err != nil {
			return nil, fmt.Errorf("invalid %s: %w", d.key, err)
		}
	}

	if cfg.JWTSecret == "" && cfg.JWTJWKSURL == "" {
		cfg.JWTSecret = random.String(32)
		cfg.JWTSecretGenerated = true
	}

	return cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}
