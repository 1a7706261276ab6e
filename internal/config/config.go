package config

import (
	"bytes"
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

const (
	// DefaultConfigPath is used when --config is not provided.
	DefaultConfigPath = "config.yml"

	defaultPort     = 4000
	defaultEnv      = "development"
	defaultDSN      = "root:password@tcp(127.0.0.1:3306)/blogstack?charset=utf8mb4&parseTime=True&loc=Local"
	defaultRedisURL = "redis://localhost:6379/0"

	defaultJWTIssuer          = "blogstack-api"
	defaultJWTAudience        = "blogstack-client"
	defaultAccessTTLMinutes   = 15
	defaultRefreshExpiresDays = 7
	defaultRefreshCookieName  = "refresh_token"
	defaultRefreshCookiePath  = "/api/v1/auth"

	defaultBcryptCost         = 12
	defaultMaxLoginAttempts   = 5
	defaultAccountLockMinutes = 15
)

// AppConfig holds runtime startup configuration loaded from YAML.
type AppConfig struct {
	Port           int            `yaml:"port"`
	Env            string         `yaml:"env"` // "development" | "production"
	DSN            string         `yaml:"dsn"` // MySQL DSN
	RedisURL       string         `yaml:"redis_url"`
	AllowedOrigins []string       `yaml:"allowed_origins"`
	JWT            JWTConfig      `yaml:"jwt"`
	Security       SecurityConfig `yaml:"security"`
}

// JWTConfig configures the token codec and refresh cookie delivery.
type JWTConfig struct {
	Secret             string `yaml:"secret"`
	RefreshHashKey     string `yaml:"refresh_hash_key"`
	Issuer             string `yaml:"issuer"`
	Audience           string `yaml:"audience"`
	AccessTTLMinutes   int    `yaml:"access_ttl_minutes"`
	RefreshExpiresDays int    `yaml:"refresh_expires_days"`
	RefreshCookieName  string `yaml:"refresh_cookie_name"`
	RefreshCookiePath  string `yaml:"refresh_cookie_path"`
}

// SecurityConfig configures password hashing and account lockout policy.
type SecurityConfig struct {
	BcryptCost         int `yaml:"bcrypt_cost"`
	MaxLoginAttempts   int `yaml:"max_login_attempts"`
	AccountLockMinutes int `yaml:"account_lock_minutes"`
}

// Load reads and validates the YAML config at path, applying defaults for
// every omitted field.
func Load(configPath string) (*AppConfig, error) {
	path := strings.TrimSpace(configPath)
	if path == "" {
		path = DefaultConfigPath
	}

	content, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config file %q: %w", path, err)
	}

	cfg := Default()
	decoder := yaml.NewDecoder(bytes.NewReader(content))
	decoder.KnownFields(true)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("parse config file %q: %w", path, err)
	}

	if err := cfg.validate(path); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Default returns a config with every field set to its default value.
func Default() *AppConfig {
	return &AppConfig{
		Port:     defaultPort,
		Env:      defaultEnv,
		DSN:      defaultDSN,
		RedisURL: defaultRedisURL,
		JWT: JWTConfig{
			Issuer:             defaultJWTIssuer,
			Audience:           defaultJWTAudience,
			AccessTTLMinutes:   defaultAccessTTLMinutes,
			RefreshExpiresDays: defaultRefreshExpiresDays,
			RefreshCookieName:  defaultRefreshCookieName,
			RefreshCookiePath:  defaultRefreshCookiePath,
		},
		Security: SecurityConfig{
			BcryptCost:         defaultBcryptCost,
			MaxLoginAttempts:   defaultMaxLoginAttempts,
			AccountLockMinutes: defaultAccountLockMinutes,
		},
	}
}

func (c *AppConfig) validate(path string) error {
	if c.Port < 1 || c.Port > 65535 {
		return fmt.Errorf("invalid port %d in %q, expected 1-65535", c.Port, path)
	}
	if c.JWT.Secret == "" {
		return fmt.Errorf("jwt.secret is required in %q", path)
	}
	if c.JWT.AccessTTLMinutes < 1 {
		return fmt.Errorf("invalid jwt.access_ttl_minutes %d in %q", c.JWT.AccessTTLMinutes, path)
	}
	if c.JWT.RefreshExpiresDays < 1 {
		return fmt.Errorf("invalid jwt.refresh_expires_days %d in %q", c.JWT.RefreshExpiresDays, path)
	}
	if c.Security.MaxLoginAttempts < 1 {
		return fmt.Errorf("invalid security.max_login_attempts %d in %q", c.Security.MaxLoginAttempts, path)
	}
	if c.Security.AccountLockMinutes < 1 {
		return fmt.Errorf("invalid security.account_lock_minutes %d in %q", c.Security.AccountLockMinutes, path)
	}
	return nil
}

// IsDev reports whether the app runs in development mode.
func (c *AppConfig) IsDev() bool {
	return strings.EqualFold(c.Env, "development") || strings.EqualFold(c.Env, "dev")
}

// AccessTTL is the access-token lifetime.
func (c *AppConfig) AccessTTL() time.Duration {
	return time.Duration(c.JWT.AccessTTLMinutes) * time.Minute
}

// RefreshTTL is the refresh lineage lifetime.
func (c *AppConfig) RefreshTTL() time.Duration {
	return time.Duration(c.JWT.RefreshExpiresDays) * 24 * time.Hour
}

// LockWindow is how long an account stays locked after too many failures.
func (c *AppConfig) LockWindow() time.Duration {
	return time.Duration(c.Security.AccountLockMinutes) * time.Minute
}
