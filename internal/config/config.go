// Package config loads and validates app config from env and an optional .env file using Viper.
package config

import (
	"errors"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	StoreTypePostgres = "postgres"
	StoreTypeMemory   = "memory"
)

// Config holds application configuration loaded from the environment.
type Config struct {
	// HTTPAddr is the address the API listens on.
	HTTPAddr string `mapstructure:"HTTP_ADDR"`
	// Env is the application environment (e.g. "development", "production").
	Env string `mapstructure:"APP_ENV"`
	// LogDev switches the logger to human readable console output.
	LogDev bool `mapstructure:"LOG_DEV"`

	// StoreType selects the backing store: postgres or memory.
	StoreType string `mapstructure:"STORE_TYPE"`
	// DatabaseURL is the Postgres DSN; required when StoreType is postgres.
	DatabaseURL string `mapstructure:"DATABASE_URL"`
	// AutoMigrate applies embedded migrations on startup.
	AutoMigrate bool `mapstructure:"AUTO_MIGRATE"`

	// JWTSecret signs session and invitation tokens (HS256).
	JWTSecret string `mapstructure:"JWT_SECRET"`
	// JWTTTL is the session token lifetime (e.g. "168h").
	JWTTTL string `mapstructure:"JWT_TTL"`
	// InviteTTL is the invitation link lifetime.
	InviteTTL string `mapstructure:"INVITE_TTL"`
	// BcryptCost is the bcrypt cost factor (4–31).
	BcryptCost int `mapstructure:"BCRYPT_COST"`

	// RedisURL enables rate limiting when set.
	RedisURL string `mapstructure:"REDIS_URL"`

	// NATSURL enables post lifecycle events when set.
	NATSURL string `mapstructure:"NATS_URL"`
	// NATSNKeySeed is an optional user nkey seed used to authenticate to NATS.
	NATSNKeySeed string `mapstructure:"NATS_NKEY_SEED"`
	// NATSUserJWT is an optional user JWT, used together with NATSNKeySeed.
	NATSUserJWT string `mapstructure:"NATS_USER_JWT"`

	// SlackWebhookURL receives review notifications when set.
	SlackWebhookURL string `mapstructure:"SLACK_WEBHOOK_URL"`

	// FrontendURL is the base of invitation links.
	FrontendURL string `mapstructure:"FRONTEND_URL"`
	// CORSOrigins is a comma-separated list of allowed browser origins.
	CORSOrigins string `mapstructure:"CORS_ORIGINS"`

	// UploadDir is where uploaded media is written.
	UploadDir string `mapstructure:"UPLOAD_DIR"`
	// MaxUploadBytes caps request bodies carrying media.
	MaxUploadBytes int64 `mapstructure:"MAX_UPLOAD_BYTES"`

	// PublishInterval is how often the scheduler publishes due posts.
	PublishInterval string `mapstructure:"PUBLISH_INTERVAL"`

	OTLPEndpoint string `mapstructure:"OTEL_EXPORTER_OTLP_ENDPOINT"`
	OTLPInsecure bool   `mapstructure:"OTEL_EXPORTER_OTLP_INSECURE"`
}

// Load reads .env (if present), then builds and validates Config from the environment via Viper.
func Load() (*Config, error) {
	v := viper.New()

	v.SetConfigFile(".env")
	v.SetConfigType("env")
	_ = v.ReadInConfig() // ignore ErrConfigFileNotFound

	v.AutomaticEnv()

	v.SetDefault("HTTP_ADDR", ":8080")
	v.SetDefault("APP_ENV", "")
	v.SetDefault("LOG_DEV", false)
	v.SetDefault("STORE_TYPE", StoreTypePostgres)
	v.SetDefault("DATABASE_URL", "")
	v.SetDefault("AUTO_MIGRATE", false)
	v.SetDefault("JWT_SECRET", "")
	v.SetDefault("JWT_TTL", "168h")
	v.SetDefault("INVITE_TTL", "168h")
	v.SetDefault("BCRYPT_COST", 10)
	v.SetDefault("REDIS_URL", "")
	v.SetDefault("NATS_URL", "")
	v.SetDefault("NATS_NKEY_SEED", "")
	v.SetDefault("NATS_USER_JWT", "")
	v.SetDefault("SLACK_WEBHOOK_URL", "")
	v.SetDefault("FRONTEND_URL", "http://localhost:3000")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("UPLOAD_DIR", "uploads")
	v.SetDefault("MAX_UPLOAD_BYTES", 10<<20)
	v.SetDefault("PUBLISH_INTERVAL", "1m")
	v.SetDefault("OTEL_EXPORTER_OTLP_ENDPOINT", "")
	v.SetDefault("OTEL_EXPORTER_OTLP_INSECURE", false)

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, err
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// Validate checks required fields and ranges.
func (c *Config) Validate() error {
	if c.HTTPAddr == "" {
		return errors.New("config: HTTP_ADDR must be set")
	}
	if c.JWTSecret == "" {
		return errors.New("config: JWT_SECRET is required")
	}
	switch c.StoreType {
	case StoreTypePostgres:
		if c.DatabaseURL == "" {
			return errors.New("config: DATABASE_URL is required when STORE_TYPE=postgres")
		}
	case StoreTypeMemory:
	default:
		return errors.New("config: STORE_TYPE must be postgres or memory")
	}
	if c.BcryptCost < 4 || c.BcryptCost > 31 {
		return errors.New("config: BCRYPT_COST must be between 4 and 31")
	}
	if c.MaxUploadBytes <= 0 {
		return errors.New("config: MAX_UPLOAD_BYTES must be positive")
	}
	return nil
}

// TokenTTL parses JWTTTL. Returns 7 days if unset or invalid.
func (c *Config) TokenTTL() time.Duration {
	return parseDuration(c.JWTTTL, 7*24*time.Hour)
}

// InvitationTTL parses InviteTTL. Returns 7 days if unset or invalid.
func (c *Config) InvitationTTL() time.Duration {
	return parseDuration(c.InviteTTL, 7*24*time.Hour)
}

// PublishEvery parses PublishInterval. Returns 1m if unset or invalid.
func (c *Config) PublishEvery() time.Duration {
	return parseDuration(c.PublishInterval, time.Minute)
}

// CORSOriginList splits CORSOrigins on commas, dropping blanks.
func (c *Config) CORSOriginList() []string {
	if c == nil || c.CORSOrigins == "" {
		return nil
	}
	parts := strings.Split(c.CORSOrigins, ",")
	out := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			out = append(out, s)
		}
	}
	return out
}

func parseDuration(s string, fallback time.Duration) time.Duration {
	d, err := time.ParseDuration(s)
	if err != nil || d <= 0 {
		return fallback
	}
	return d
}
