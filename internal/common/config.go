// Package common provides shared utilities for agentdrugs
package common

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/bobmcallan/agentdrugs/internal/models"
	toml "github.com/pelletier/go-toml/v2"
)

// Config holds all configuration for agentdrugs
type Config struct {
	Environment string          `toml:"environment"`
	Server      ServerConfig    `toml:"server"`
	Storage     StorageConfig   `toml:"storage"`
	State       StateConfig     `toml:"state"`
	Auth        AuthConfig      `toml:"auth"`
	RateLimit   RateLimitConfig `toml:"ratelimit"`
	Logging     LoggingConfig   `toml:"logging"`
	Drugs       []models.Drug   `toml:"drugs"` // Catalog entries seeded at startup
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Host       string `toml:"host"`
	Port       int    `toml:"port"`
	PublicURL  string `toml:"public_url"`  // Externally visible base URL, used as the OAuth issuer
	WebsiteURL string `toml:"website_url"` // Where GET / redirects
}

// StorageConfig selects and configures the durable record store.
type StorageConfig struct {
	Backend   string `toml:"backend"` // "memory" or "surrealdb"
	Address   string `toml:"address"`
	Namespace string `toml:"namespace"`
	Database  string `toml:"database"`
	Username  string `toml:"username"`
	Password  string `toml:"password"`
}

// StateConfig selects where active drug sets live.
type StateConfig struct {
	Backend string      `toml:"backend"` // "store" (same as Storage) or "redis"
	Redis   RedisConfig `toml:"redis"`
}

// RedisConfig holds Redis connection settings for the active drug state.
type RedisConfig struct {
	Address   string `toml:"address"`
	Password  string `toml:"password"`
	DB        int    `toml:"db"`
	KeyPrefix string `toml:"key_prefix"`
}

// AuthConfig holds the authorization server configuration.
type AuthConfig struct {
	Issuer         string `toml:"issuer"`          // Defaults to Server.PublicURL
	ConsentURL     string `toml:"consent_url"`     // Consent surface that /authorize redirects to
	IdentitySecret string `toml:"identity_secret"` // HS256 key for end-user identity tokens
	CodeExpiry     string `toml:"code_expiry"`     // duration string, default "10m"
	AgentTTL       string `toml:"agent_ttl"`       // duration string, default "2160h" (90 days)
	PurgeInterval  string `toml:"purge_interval"`  // duration string, default "15m"
}

// GetCodeExpiry parses and returns the authorization code lifetime.
func (c *AuthConfig) GetCodeExpiry() time.Duration {
	d, err := time.ParseDuration(c.CodeExpiry)
	if err != nil || d <= 0 {
		return 10 * time.Minute
	}
	return d
}

// GetAgentTTL parses and returns the bearer credential lifetime.
func (c *AuthConfig) GetAgentTTL() time.Duration {
	d, err := time.ParseDuration(c.AgentTTL)
	if err != nil || d <= 0 {
		return 90 * 24 * time.Hour
	}
	return d
}

// GetPurgeInterval parses and returns how often expired codes are purged.
func (c *AuthConfig) GetPurgeInterval() time.Duration {
	d, err := time.ParseDuration(c.PurgeInterval)
	if err != nil || d <= 0 {
		return 15 * time.Minute
	}
	return d
}

// RateLimitConfig limits unauthenticated OAuth endpoints per client IP.
type RateLimitConfig struct {
	RequestsPerSecond float64 `toml:"requests_per_second"` // 0 disables limiting
	Burst             int     `toml:"burst"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level    string   `toml:"level"`
	Format   string   `toml:"format"` // "console" or "json"
	Outputs  []string `toml:"outputs"`
	FilePath string   `toml:"file_path"`
}

// NewDefaultConfig returns a Config with sensible defaults
func NewDefaultConfig() *Config {
	return &Config{
		Environment: "development",
		Server: ServerConfig{
			Host:       "0.0.0.0",
			Port:       8080,
			PublicURL:  "http://localhost:8080",
			WebsiteURL: "http://localhost:3000",
		},
		Storage: StorageConfig{
			Backend:   "memory",
			Address:   "ws://localhost:8000/rpc",
			Namespace: "agentdrugs",
			Database:  "agentdrugs",
			Username:  "root",
			Password:  "root",
		},
		State: StateConfig{
			Backend: "store",
			Redis: RedisConfig{
				Address:   "localhost:6379",
				KeyPrefix: "agentdrugs:",
			},
		},
		Auth: AuthConfig{
			ConsentURL:     "http://localhost:3000/consent",
			IdentitySecret: "dev-identity-secret-change-in-production",
			CodeExpiry:     "10m",
			AgentTTL:       "2160h",
			PurgeInterval:  "15m",
		},
		RateLimit: RateLimitConfig{
			RequestsPerSecond: 5,
			Burst:             20,
		},
		Logging: LoggingConfig{
			Level:    "info",
			Format:   "console",
			Outputs:  []string{"console"},
			FilePath: "./logs/agentdrugs.log",
		},
	}
}

// LoadConfig loads configuration from files with environment overrides
func LoadConfig(paths ...string) (*Config, error) {
	config := NewDefaultConfig()

	// Later files override earlier ones
	for _, path := range paths {
		if path == "" {
			continue
		}

		if _, err := os.Stat(path); os.IsNotExist(err) {
			continue
		}

		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}

		if err := toml.Unmarshal(data, config); err != nil {
			return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
		}
	}

	applyEnvOverrides(config)

	if err := config.Validate(); err != nil {
		return nil, err
	}

	return config, nil
}

// applyEnvOverrides applies environment variable overrides to config
func applyEnvOverrides(config *Config) {
	if env := os.Getenv("AGENTDRUGS_ENV"); env != "" {
		config.Environment = env
	}

	if host := os.Getenv("AGENTDRUGS_HOST"); host != "" {
		config.Server.Host = host
	}

	if port := os.Getenv("AGENTDRUGS_PORT"); port != "" {
		if p, err := strconv.Atoi(port); err == nil {
			config.Server.Port = p
		}
	}

	if v := os.Getenv("AGENTDRUGS_PUBLIC_URL"); v != "" {
		config.Server.PublicURL = v
	}
	if v := os.Getenv("AGENTDRUGS_WEBSITE_URL"); v != "" {
		config.Server.WebsiteURL = v
	}

	if level := os.Getenv("AGENTDRUGS_LOG_LEVEL"); level != "" {
		config.Logging.Level = level
	}

	// Storage overrides
	if v := os.Getenv("AGENTDRUGS_STORAGE_BACKEND"); v != "" {
		config.Storage.Backend = v
	}
	if v := os.Getenv("AGENTDRUGS_STORAGE_ADDRESS"); v != "" {
		config.Storage.Address = v
	}
	if v := os.Getenv("AGENTDRUGS_STORAGE_USERNAME"); v != "" {
		config.Storage.Username = v
	}
	if v := os.Getenv("AGENTDRUGS_STORAGE_PASSWORD"); v != "" {
		config.Storage.Password = v
	}

	// State overrides
	if v := os.Getenv("AGENTDRUGS_STATE_BACKEND"); v != "" {
		config.State.Backend = v
	}
	if v := os.Getenv("AGENTDRUGS_REDIS_ADDRESS"); v != "" {
		config.State.Redis.Address = v
	}
	if v := os.Getenv("AGENTDRUGS_REDIS_PASSWORD"); v != "" {
		config.State.Redis.Password = v
	}

	// Auth overrides
	if v := os.Getenv("AGENTDRUGS_AUTH_ISSUER"); v != "" {
		config.Auth.Issuer = v
	}
	if v := os.Getenv("AGENTDRUGS_AUTH_CONSENT_URL"); v != "" {
		config.Auth.ConsentURL = v
	}
	if v := os.Getenv("AGENTDRUGS_AUTH_IDENTITY_SECRET"); v != "" {
		config.Auth.IdentitySecret = v
	}
}

// Validate checks enumerated settings.
func (c *Config) Validate() error {
	switch c.Storage.Backend {
	case "memory", "surrealdb":
	default:
		return fmt.Errorf("invalid storage backend %q (want memory or surrealdb)", c.Storage.Backend)
	}
	switch c.State.Backend {
	case "store", "redis":
	default:
		return fmt.Errorf("invalid state backend %q (want store or redis)", c.State.Backend)
	}
	if c.Auth.ConsentURL == "" {
		return fmt.Errorf("auth.consent_url is required")
	}
	return nil
}

// Issuer returns the OAuth issuer identifier without a trailing slash.
func (c *Config) Issuer() string {
	issuer := c.Auth.Issuer
	if issuer == "" {
		issuer = c.Server.PublicURL
	}
	return strings.TrimRight(issuer, "/")
}

// IsProduction returns true if running in production mode
func (c *Config) IsProduction() bool {
	env := strings.ToLower(strings.TrimSpace(c.Environment))
	return env == "production" || env == "prod"
}
