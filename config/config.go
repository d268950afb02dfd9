package config

import (
	"encoding/base64"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// MinJWTKeyBytes is the shortest decoded HS256 key accepted.
const MinJWTKeyBytes = 32

type Config struct {
	Env      string `env:"ENV" envDefault:"local" validate:"required,oneof=local staging production"`
	Port     string `env:"PORT" envDefault:"8080" validate:"required"`
	LogLevel string `env:"LOG_LEVEL" envDefault:"info" validate:"oneof=debug info warn error"`

	// Empty in local runs means the in-memory store.
	DatabaseURL string `env:"DATABASE_URL" validate:"required_unless=Env local"`
	MetricsPort string `env:"METRICS_PORT" envDefault:"9090"`

	JWTSecret                string `env:"JWT_SECRET,required" validate:"required,base64"`
	AccessTokenExpirationMS  int64  `env:"ACCESS_TOKEN_EXPIRATION_MS" envDefault:"900000" validate:"min=1000"`
	RefreshTokenExpirationMS int64  `env:"REFRESH_TOKEN_EXPIRATION_MS" envDefault:"604800000" validate:"min=1000,gtefield=AccessTokenExpirationMS"`
	BcryptCost               int    `env:"BCRYPT_COST" envDefault:"10" validate:"min=4,max=31"`

	ResendAPIKey      string `env:"RESEND_API_KEY"         validate:"required_if=Env production,required_if=Env staging"`
	ResendFrom        string `env:"RESEND_FROM"            validate:"required_if=Env production,required_if=Env staging"`
	InviteLinkBaseURL string `env:"INVITE_LINK_BASE_URL"   envDefault:"http://localhost:3000" validate:"required,url"`

	InviteSweepSchedule string        `env:"INVITE_SWEEP_SCHEDULE" envDefault:"@every 1h" validate:"required"`
	InviteRetention     time.Duration `env:"INVITE_RETENTION" envDefault:"720h" validate:"min=0"`

	RedisURL        string        `env:"REDIS_URL"`
	LoginRateLimit  int           `env:"LOGIN_RATE_LIMIT" envDefault:"10" validate:"min=1"`
	LoginRateWindow time.Duration `env:"LOGIN_RATE_WINDOW" envDefault:"1m" validate:"min=1s"`

	CORSAllowedOrigins []string `env:"CORS_ALLOWED_ORIGINS" envSeparator:"," envDefault:"http://localhost:3000"`

	jwtKey []byte
}

// Load reads configuration from the environment, after applying a .env file
// if one is present in the working directory.
func Load() (*Config, error) {
	_ = godotenv.Load()

	cfg := &Config{}

	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parse env: %w", err)
	}

	if err := validator.New().Struct(cfg); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	key, err := base64.StdEncoding.DecodeString(strings.TrimSpace(cfg.JWTSecret))
	if err != nil {
		return nil, fmt.Errorf("invalid config: JWT_SECRET is not base64: %w", err)
	}
	if len(key) < MinJWTKeyBytes {
		return nil, fmt.Errorf("invalid config: JWT_SECRET decodes to %d bytes, need at least %d", len(key), MinJWTKeyBytes)
	}
	cfg.jwtKey = key

	return cfg, nil
}

// JWTKey is the decoded HMAC signing key.
func (c *Config) JWTKey() []byte {
	return c.jwtKey
}

func (c *Config) AccessTokenTTL() time.Duration {
	return time.Duration(c.AccessTokenExpirationMS) * time.Millisecond
}

func (c *Config) RefreshTokenTTL() time.Duration {
	return time.Duration(c.RefreshTokenExpirationMS) * time.Millisecond
}

func (c *Config) SlogLevel() slog.Level {
	switch c.LogLevel {
	case "debug":
		return slog.LevelDebug
	case "warn":
		return slog.LevelWarn
	case "error":
		return slog.LevelError
	default:
		return slog.LevelInfo
	}
}

// UseMemoryStore reports whether the process should run without Postgres.
func (c *Config) UseMemoryStore() bool {
	return c.Env == "local" && c.DatabaseURL == ""
}
