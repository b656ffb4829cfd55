package config

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"strings"
	"time"

	"github.com/spf13/viper"
)

const (
	DriverMemory   = "memory"
	DriverPostgres = "postgres"
	DriverSQLite   = "sqlite"
)

type Config struct {
	Port          string        `mapstructure:"PORT"`
	Env           string        `mapstructure:"ENV"`
	LogLevel      string        `mapstructure:"LOG_LEVEL"`
	AuthMode      string        `mapstructure:"AUTH_MODE"`
	StoreDriver   string        `mapstructure:"STORE_DRIVER"`
	DatabaseURL   string        `mapstructure:"DATABASE_URL"`
	DBMaxConns    int32         `mapstructure:"DB_MAX_CONNS"`
	DBMinConns    int32         `mapstructure:"DB_MIN_CONNS"`
	DBSchema      string        `mapstructure:"DB_SCHEMA"`
	SQLitePath    string        `mapstructure:"SQLITE_PATH"`
	JWTSigningKey string        `mapstructure:"JWT_SIGNING_KEY"`
	JWTIssuer     string        `mapstructure:"JWT_ISSUER"`
	TokenTTL      time.Duration `mapstructure:"TOKEN_TTL"`
	CORSOrigins   []string      `mapstructure:"CORS_ORIGINS"`
	AdminLogin    string        `mapstructure:"ADMIN_LOGIN"`
	AdminPassword string        `mapstructure:"ADMIN_PASSWORD"`
}

var keys = []string{
	"PORT", "ENV", "LOG_LEVEL", "AUTH_MODE", "STORE_DRIVER",
	"DATABASE_URL", "DB_MAX_CONNS", "DB_MIN_CONNS", "DB_SCHEMA", "SQLITE_PATH",
	"JWT_SIGNING_KEY", "JWT_ISSUER", "TOKEN_TTL", "CORS_ORIGINS",
	"ADMIN_LOGIN", "ADMIN_PASSWORD",
}

func Load() (*Config, error) {
	v := viper.New()
	v.SetConfigFile(".env")
	v.AutomaticEnv()

	v.SetDefault("PORT", "8000")
	v.SetDefault("ENV", "development")
	v.SetDefault("LOG_LEVEL", "info")
	v.SetDefault("AUTH_MODE", "") // "" -> inferred from ENV
	v.SetDefault("STORE_DRIVER", DriverMemory)
	v.SetDefault("DB_MAX_CONNS", 20)
	v.SetDefault("DB_MIN_CONNS", 2)
	v.SetDefault("DB_SCHEMA", "public")
	v.SetDefault("SQLITE_PATH", "caremgr.db")
	v.SetDefault("JWT_ISSUER", "caremgr")
	v.SetDefault("TOKEN_TTL", "1h")
	v.SetDefault("CORS_ORIGINS", "http://localhost:3000")
	v.SetDefault("ADMIN_LOGIN", "admin")

	// Bind explicitly so Unmarshal picks up values that only exist in the env.
	for _, k := range keys {
		_ = v.BindEnv(k)
	}

	// .env is optional
	_ = v.ReadInConfig()

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshal config: %w", err)
	}

	if len(cfg.CORSOrigins) == 1 && strings.Contains(cfg.CORSOrigins[0], ",") {
		cfg.CORSOrigins = strings.Split(cfg.CORSOrigins[0], ",")
	}
	for i, o := range cfg.CORSOrigins {
		cfg.CORSOrigins[i] = strings.TrimSpace(o)
	}

	return cfg, nil
}

func (c *Config) IsDev() bool {
	return c.Env == "development"
}

func (c *Config) IsProduction() bool {
	return c.Env == "production"
}

// ResolvedAuthMode returns AUTH_MODE when set, otherwise "development" for
// ENV=development and "jwt" for everything else.
func (c *Config) ResolvedAuthMode() string {
	if c.AuthMode != "" {
		return c.AuthMode
	}
	if c.IsDev() {
		return "development"
	}
	return "jwt"
}

// SigningKey decodes JWT_SIGNING_KEY. When no key is configured a random one
// is generated, so issued tokens only survive until the process exits.
func (c *Config) SigningKey() ([]byte, error) {
	if c.JWTSigningKey == "" {
		key := make([]byte, 32)
		if _, err := rand.Read(key); err != nil {
			return nil, fmt.Errorf("generate signing key: %w", err)
		}
		return key, nil
	}
	key, err := hex.DecodeString(c.JWTSigningKey)
	if err != nil {
		return nil, fmt.Errorf("JWT_SIGNING_KEY is not valid hex: %w", err)
	}
	return key, nil
}

// Validate checks that the configuration is safe to run.
func (c *Config) Validate() error {
	switch c.StoreDriver {
	case DriverMemory:
	case DriverPostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL is required when STORE_DRIVER is %q", DriverPostgres)
		}
		if c.DBMinConns > c.DBMaxConns {
			return fmt.Errorf("DB_MIN_CONNS (%d) must not exceed DB_MAX_CONNS (%d)", c.DBMinConns, c.DBMaxConns)
		}
	case DriverSQLite:
		if c.SQLitePath == "" {
			return fmt.Errorf("SQLITE_PATH is required when STORE_DRIVER is %q", DriverSQLite)
		}
	default:
		return fmt.Errorf("STORE_DRIVER must be %q, %q, or %q, got %q",
			DriverMemory, DriverPostgres, DriverSQLite, c.StoreDriver)
	}

	mode := c.ResolvedAuthMode()
	if mode != "development" && mode != "jwt" {
		return fmt.Errorf("AUTH_MODE must be \"development\" or \"jwt\", got %q", mode)
	}
	if c.IsProduction() && mode == "development" {
		return fmt.Errorf("AUTH_MODE=development is not allowed in production")
	}

	if c.IsProduction() && c.JWTSigningKey == "" {
		return fmt.Errorf("JWT_SIGNING_KEY is required in production")
	}
	if c.JWTSigningKey != "" {
		keyBytes, err := hex.DecodeString(c.JWTSigningKey)
		if err != nil {
			return fmt.Errorf("JWT_SIGNING_KEY is not valid hex: %w", err)
		}
		if len(keyBytes) < 32 {
			return fmt.Errorf("JWT_SIGNING_KEY must be at least 32 bytes (64 hex chars), got %d bytes", len(keyBytes))
		}
	}

	if c.TokenTTL <= 0 {
		return fmt.Errorf("TOKEN_TTL must be positive, got %s", c.TokenTTL)
	}
	return nil
}
