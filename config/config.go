package config

import (
	"errors"
	"fmt"
	"os"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for the application
type Config struct {
	Server   ServerConfig
	Logging  LoggingConfig
	Metering MeteringConfig
	Storage  StorageConfig
	Database DatabaseConfig
	Redis    RedisConfig
	Gemini   GeminiConfig
	News     NewsConfig
	Stripe   StripeConfig
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Port            int
	Host            string
	ShutdownTimeout time.Duration
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level  string // debug, info, warn, error
	Format string // json, console
}

// MeteringConfig holds free-tier and credit configuration
type MeteringConfig struct {
	FreeLimit          int // generations allowed before credits are required
	CreditsPerPurchase int // credits granted per bulk purchase
	MaxEditRounds      int // refinements allowed per generation cycle
}

// StorageConfig holds profile record storage configuration
type StorageConfig struct {
	Backend      string // local, s3
	LocalPath    string
	S3Bucket     string
	S3Region     string
	AWSAccessKey string
	AWSSecretKey string
}

// DatabaseConfig holds the optional Postgres backend configuration.
// When URL is empty the blob storage backend is used instead.
type DatabaseConfig struct {
	URL string
}

// RedisConfig holds Redis configuration for the news cache
type RedisConfig struct {
	Host     string
	Port     int
	Password string
	DB       int
}

// GeminiConfig holds text-generation API configuration
type GeminiConfig struct {
	APIKey string
}

// NewsConfig holds news search API configuration
type NewsConfig struct {
	APIKey   string
	Language string
	Country  string
	CacheTTL time.Duration
}

// StripeConfig holds payment configuration
type StripeConfig struct {
	SecretKey     string
	WebhookSecret string
	FrontendURL   string
}

// Load reads configuration from file and environment variables
func Load(configPath string) (*Config, error) {
	viper.SetConfigFile(configPath)
	viper.SetConfigType("yaml")
	viper.AutomaticEnv()

	setDefaults()

	// A missing config file is fine; env vars and defaults cover everything.
	if err := viper.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) && !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	var config Config
	if err := viper.Unmarshal(&config); err != nil {
		return nil, fmt.Errorf("failed to unmarshal config: %w", err)
	}

	bindEnvOverrides(&config)

	return &config, nil
}

func setDefaults() {
	// Server defaults
	viper.SetDefault("server.port", 8080)
	viper.SetDefault("server.host", "0.0.0.0")
	viper.SetDefault("server.shutdownTimeout", "10s")

	// Logging defaults
	viper.SetDefault("logging.level", "info")
	viper.SetDefault("logging.format", "json")

	// Metering defaults match the shipped product: 3 free generations,
	// 10 credits per bulk purchase, 3 refinement rounds per generation.
	viper.SetDefault("metering.freeLimit", 3)
	viper.SetDefault("metering.creditsPerPurchase", 10)
	viper.SetDefault("metering.maxEditRounds", 3)

	// Storage defaults
	viper.SetDefault("storage.backend", "local")
	viper.SetDefault("storage.localPath", "./user_configs")
	viper.SetDefault("storage.s3Region", "us-east-1")

	// Redis defaults
	viper.SetDefault("redis.host", "localhost")
	viper.SetDefault("redis.port", 6379)
	viper.SetDefault("redis.password", "")
	viper.SetDefault("redis.db", 0)

	// News defaults
	viper.SetDefault("news.language", "en")
	viper.SetDefault("news.country", "au")
	viper.SetDefault("news.cacheTTL", "1h")

	// Stripe defaults
	viper.SetDefault("stripe.frontendURL", "http://localhost:3000")
}

// bindEnvOverrides applies the well-known environment variable names used in
// deployment, which do not follow viper's dotted key scheme.
func bindEnvOverrides(config *Config) {
	if v := viper.GetString("DATABASE_URL"); v != "" {
		config.Database.URL = v
	}
	if v := viper.GetString("GEMINI_API_KEY"); v != "" {
		config.Gemini.APIKey = v
	}
	if v := viper.GetString("NEWS_API_KEY"); v != "" {
		config.News.APIKey = v
	}
	if v := viper.GetString("STRIPE_SECRET_KEY"); v != "" {
		config.Stripe.SecretKey = v
	}
	if v := viper.GetString("STRIPE_WEBHOOK_SECRET"); v != "" {
		config.Stripe.WebhookSecret = v
	}
	if v := viper.GetString("FRONTEND_URL"); v != "" {
		config.Stripe.FrontendURL = v
	}
	if v := viper.GetString("AWS_ACCESS_KEY_ID"); v != "" {
		config.Storage.AWSAccessKey = v
	}
	if v := viper.GetString("AWS_SECRET_ACCESS_KEY"); v != "" {
		config.Storage.AWSSecretKey = v
	}
	if v := viper.GetString("AWS_S3_BUCKET"); v != "" {
		config.Storage.S3Bucket = v
	}
}
