package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"
)

// Config holds all configuration for the storefront client and the reference backend.
// Values are resolved in three layers: built-in defaults, an optional YAML file named by
// STOREFRONT_CONFIG, then environment variables (a local .env file is loaded first).
type Config struct {
	Server    ServerConfig   `yaml:"server"`
	Auth      AuthConfig     `yaml:"auth"`
	Coupon    CouponConfig   `yaml:"coupon"`
	Client    ClientConfig   `yaml:"client"`
	Pricing   PricingConfig  `yaml:"pricing"`
	Tracking  TrackingConfig `yaml:"tracking"`
	LogLevel  string         `yaml:"log_level"`
	LogFormat string         `yaml:"log_format"`
}

type ServerConfig struct {
	Port            string `yaml:"port"`
	Host            string `yaml:"host"`
	ReadTimeout     int    `yaml:"read_timeout"`
	WriteTimeout    int    `yaml:"write_timeout"`
	ShutdownTimeout int    `yaml:"shutdown_timeout"`
}

type AuthConfig struct {
	JWTSecret string `yaml:"jwt_secret"` // HMAC secret the backend verifies bearer tokens with
	Token     string `yaml:"token"`      // bearer token the client attaches
	// DevTokens lets the client sign its own token with JWTSecret when Token is
	// empty. Local development only.
	DevTokens bool `yaml:"dev_tokens"`
}

type CouponConfig struct {
	// Sources are gzipped JSON-lines coupon files (http(s) URLs or local paths)
	// loaded by the backend in addition to its seeded coupons.
	Sources []string `yaml:"sources"`
}

type ClientConfig struct {
	BaseURL         string        `yaml:"base_url"`
	UserID          string        `yaml:"user_id"`
	RequestTimeout  time.Duration `yaml:"request_timeout"`
	MaxReadAttempts int           `yaml:"max_read_attempts"`
}

type PricingConfig struct {
	DeliveryFee int64  `yaml:"delivery_fee"`
	TaxRate     string `yaml:"tax_rate"`
}

type TrackingConfig struct {
	PollInterval    time.Duration `yaml:"poll_interval"`
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	PrepWindow      time.Duration `yaml:"prep_window"`
}

// Default returns the configuration used when nothing is overridden
func Default() *Config {
	return &Config{
		Server: ServerConfig{
			Port:            "8080",
			Host:            "0.0.0.0",
			ReadTimeout:     15,
			WriteTimeout:    15,
			ShutdownTimeout: 30,
		},
		Auth: AuthConfig{
			JWTSecret: "dev-secret",
		},
		Client: ClientConfig{
			BaseURL:         "http://localhost:8080/api",
			RequestTimeout:  10 * time.Second,
			MaxReadAttempts: 3,
		},
		Pricing: PricingConfig{
			DeliveryFee: 30,
			TaxRate:     "0.05",
		},
		Tracking: TrackingConfig{
			PollInterval:    30 * time.Second,
			RefreshInterval: 60 * time.Second,
			PrepWindow:      40 * time.Minute,
		},
		LogLevel:  "info",
		LogFormat: "json",
	}
}

// Load reads configuration from the optional file and environment variables
func Load() (*Config, error) {
	if err := loadDotEnv(".env"); err != nil {
		return nil, err
	}

	cfg := Default()

	if path := os.Getenv("STOREFRONT_CONFIG"); path != "" {
		if err := cfg.loadFile(path); err != nil {
			return nil, err
		}
	}

	cfg.applyEnv()

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("failed to load %s: %w", path, err)
	}
	return nil
}

func (c *Config) loadFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("failed to parse config file %s: %w", path, err)
	}
	return nil
}

func (c *Config) applyEnv() {
	c.Server.Port = getEnv("PORT", c.Server.Port)
	c.Server.Host = getEnv("HOST", c.Server.Host)
	c.Server.ReadTimeout = getEnvAsInt("READ_TIMEOUT", c.Server.ReadTimeout)
	c.Server.WriteTimeout = getEnvAsInt("WRITE_TIMEOUT", c.Server.WriteTimeout)
	c.Server.ShutdownTimeout = getEnvAsInt("SHUTDOWN_TIMEOUT", c.Server.ShutdownTimeout)

	c.Auth.JWTSecret = getEnv("JWT_SECRET", c.Auth.JWTSecret)
	c.Auth.Token = getEnv("STOREFRONT_TOKEN", c.Auth.Token)
	c.Auth.DevTokens = getEnvAsBool("STOREFRONT_DEV_TOKENS", c.Auth.DevTokens)

	c.Coupon.Sources = getEnvAsSlice("COUPON_SOURCES", c.Coupon.Sources)

	c.Client.BaseURL = getEnv("STOREFRONT_API_URL", c.Client.BaseURL)
	c.Client.UserID = getEnv("STOREFRONT_USER_ID", c.Client.UserID)
	c.Client.RequestTimeout = getEnvAsDuration("REQUEST_TIMEOUT", c.Client.RequestTimeout)
	c.Client.MaxReadAttempts = getEnvAsInt("MAX_READ_ATTEMPTS", c.Client.MaxReadAttempts)

	c.Pricing.DeliveryFee = int64(getEnvAsInt("DELIVERY_FEE", int(c.Pricing.DeliveryFee)))
	c.Pricing.TaxRate = getEnv("TAX_RATE", c.Pricing.TaxRate)

	c.Tracking.PollInterval = getEnvAsDuration("POLL_INTERVAL", c.Tracking.PollInterval)
	c.Tracking.RefreshInterval = getEnvAsDuration("REFRESH_INTERVAL", c.Tracking.RefreshInterval)
	c.Tracking.PrepWindow = getEnvAsDuration("PREP_WINDOW", c.Tracking.PrepWindow)

	c.LogLevel = getEnv("LOG_LEVEL", c.LogLevel)
	c.LogFormat = getEnv("LOG_FORMAT", c.LogFormat)
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Server.Port == "" {
		return fmt.Errorf("PORT is required")
	}

	if c.Auth.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET is required")
	}

	if c.Pricing.DeliveryFee < 0 {
		return fmt.Errorf("delivery fee cannot be negative: %d", c.Pricing.DeliveryFee)
	}

	rate, err := c.Pricing.Rate()
	if err != nil {
		return err
	}
	if rate.IsNegative() {
		return fmt.Errorf("tax rate cannot be negative: %s", c.Pricing.TaxRate)
	}

	if c.Client.RequestTimeout <= 0 {
		return fmt.Errorf("REQUEST_TIMEOUT must be positive")
	}

	if c.Client.MaxReadAttempts < 1 {
		return fmt.Errorf("MAX_READ_ATTEMPTS must be at least 1")
	}

	if c.Tracking.PollInterval <= 0 || c.Tracking.RefreshInterval <= 0 {
		return fmt.Errorf("tracking intervals must be positive")
	}

	validLogLevels := map[string]bool{"debug": true, "info": true, "warn": true, "error": true}
	if !validLogLevels[strings.ToLower(c.LogLevel)] {
		return fmt.Errorf("invalid log level: %s (must be debug, info, warn, or error)", c.LogLevel)
	}

	return nil
}

// Rate parses the configured tax rate
func (p PricingConfig) Rate() (decimal.Decimal, error) {
	rate, err := decimal.NewFromString(p.TaxRate)
	if err != nil {
		return decimal.Zero, fmt.Errorf("invalid tax rate %q: %w", p.TaxRate, err)
	}
	return rate, nil
}

// Helper functions for reading environment variables

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.Atoi(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := strconv.ParseBool(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	value, err := time.ParseDuration(valueStr)
	if err != nil {
		return defaultValue
	}
	return value
}

func getEnvAsSlice(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	return strings.Split(valueStr, ",")
}
