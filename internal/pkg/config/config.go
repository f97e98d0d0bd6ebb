package config

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/sethvargo/go-envconfig"

	"github.com/thamco/customer-identity/internal/core/domain"
)

type Config struct {
	Port     string `env:"PORT,      default=8080"`
	Env      string `env:"ENV,       default=development"`
	LogLevel string `env:"LOG_LEVEL, default=info"`

	Token    TokenConfig
	Mongo    MongoConfig
	Redis    RedisConfig
	Password PasswordConfig
	Lockout  LockoutConfig
}

type TokenConfig struct {
	Secret  string            `env:"JWT_SECRET, required"`
	Issuer  string            `env:"TOKEN_ISSUER, default=customer-identity"`
	TTL     time.Duration     `env:"TOKEN_TTL, default=1h"`
	Clients map[string]string `env:"OAUTH_CLIENT_SECRETS"`
}

type MongoConfig struct {
	URI      string        `env:"MONGO_URI,     default=mongodb://localhost:27017"`
	Database string        `env:"MONGO_DB,      default=customer_identity"`
	Timeout  time.Duration `env:"MONGO_TIMEOUT, default=10s"`
}

type RedisConfig struct {
	Addr     string `env:"REDIS_ADDR, default=localhost:6379"`
	Password string `env:"REDIS_PASSWORD"`
	DB       int    `env:"REDIS_DB,   default=0"`
}

type PasswordConfig struct {
	RequiredLength         int  `env:"PASSWORD_REQUIRED_LENGTH,       default=8"`
	RequiredUniqueChars    int  `env:"PASSWORD_REQUIRED_UNIQUE_CHARS, default=6"`
	RequireDigit           bool `env:"PASSWORD_REQUIRE_DIGIT,         default=true"`
	RequireLowercase       bool `env:"PASSWORD_REQUIRE_LOWERCASE,     default=true"`
	RequireUppercase       bool `env:"PASSWORD_REQUIRE_UPPERCASE,     default=true"`
	RequireNonAlphanumeric bool `env:"PASSWORD_REQUIRE_NON_ALPHANUMERIC, default=true"`
}

type LockoutConfig struct {
	MaxFailedAttempts int           `env:"LOCKOUT_MAX_FAILED_ATTEMPTS, default=5"`
	Duration          time.Duration `env:"LOCKOUT_DURATION,            default=10m"`
}

// Load reads configuration from environment variables using go-envconfig.
func Load(ctx context.Context) (*Config, error) {
	return LoadWith(ctx, envconfig.OsLookuper())
}

// LoadWith reads configuration from l.
func LoadWith(ctx context.Context, l envconfig.Lookuper) (*Config, error) {
	var cfg Config
	if err := envconfig.ProcessWith(ctx, &envconfig.Config{Target: &cfg, Lookuper: l}); err != nil {
		return nil, fmt.Errorf("config: %w", err)
	}
	if cfg.Lockout.MaxFailedAttempts <= 0 {
		return nil, errors.New("config: LOCKOUT_MAX_FAILED_ATTEMPTS must be positive")
	}
	return &cfg, nil
}

func (c *Config) IsDevelopment() bool {
	return c.Env == "development"
}

// PasswordPolicy returns the configured credential rules.
func (c *Config) PasswordPolicy() domain.PasswordPolicy {
	return domain.PasswordPolicy{
		RequiredLength:         c.Password.RequiredLength,
		RequiredUniqueChars:    c.Password.RequiredUniqueChars,
		RequireDigit:           c.Password.RequireDigit,
		RequireLowercase:       c.Password.RequireLowercase,
		RequireUppercase:       c.Password.RequireUppercase,
		RequireNonAlphanumeric: c.Password.RequireNonAlphanumeric,
	}
}
