// Package config loads environment-based configuration for the gateway.
package config

import (
	"fmt"
	"log"
	"os"
	"path/filepath"
	"runtime"
	"time"

	"github.com/caarlos0/env/v11"
	"github.com/joho/godotenv"
)

// Config holds all environment-based configuration for meraki-mcp.
type Config struct {
	// Meraki dashboard API access.
	MerakiAPIKey  string `env:"MERAKI_API_KEY"`
	MerakiBaseURL string `env:"MERAKI_BASE_URL" envDefault:"https://api.meraki.com/api/v1"`

	// Upstream identity provider (Cloudflare Access in the reference
	// deployment). The gateway acts as an OAuth client toward it.
	AccessClientID         string `env:"ACCESS_CLIENT_ID"`
	AccessClientSecret     string `env:"ACCESS_CLIENT_SECRET"`
	AccessAuthorizationURL string `env:"ACCESS_AUTHORIZATION_URL"`
	AccessTokenURL         string `env:"ACCESS_TOKEN_URL"`
	AccessJWKSURL          string `env:"ACCESS_JWKS_URL"`

	// Secret for HMAC-signing the approved-clients cookie. Signing
	// without a key is not possible, so this is validated at startup.
	CookieEncryptionKey string `env:"COOKIE_ENCRYPTION_KEY"`

	// HTTP server settings. ServerURL is the external HTTPS URL of
	// this gateway, used for callback and metadata URLs.
	ListenAddr string `env:"LISTEN_ADDR" envDefault:":8080"`
	ServerURL  string `env:"SERVER_URL"`

	// Path of the bbolt database holding OAuth state and cached
	// responses. Defaults to ~/.meraki-mcp/state.db.
	StatePath string `env:"STATE_PATH"`

	// Cache TTL overrides, in seconds.
	CacheTTLOrganizations int `env:"CACHE_TTL_ORGANIZATIONS" envDefault:"1800"`
	CacheTTLNetworks      int `env:"CACHE_TTL_NETWORKS" envDefault:"900"`
	CacheTTLJWKS          int `env:"CACHE_TTL_JWKS" envDefault:"3600"`

	// Environment controls log format.
	Environment string `env:"ENVIRONMENT" envDefault:"development"`
	LogLevel    string `env:"LOG_LEVEL" envDefault:"info"`
}

// warnInsecureEnvFile checks whether the .env file (if present) has
// overly permissive permissions. On Unix systems, group or world
// readable files risk exposing credentials to other users.
func warnInsecureEnvFile() {
	if runtime.GOOS == "windows" {
		return
	}

	info, err := os.Stat(".env")
	if err != nil {
		return // file does not exist, nothing to check
	}

	mode := info.Mode().Perm()
	if mode&0o077 != 0 {
		log.Printf("WARNING: .env file has insecure permissions %04o; recommended 0600", mode)
	}
}

// Load reads configuration from environment variables.
// It first attempts to load a .env file if present, then parses env vars.
func Load() (*Config, error) {
	_ = godotenv.Load()

	warnInsecureEnvFile()

	cfg := &Config{}
	if err := env.Parse(cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if cfg.StatePath == "" {
		path, err := defaultStatePath()
		if err != nil {
			return nil, err
		}

		cfg.StatePath = path
	}

	if err := cfg.validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

func defaultStatePath() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("determining home directory: %w", err)
	}

	return filepath.Join(home, ".meraki-mcp", "state.db"), nil
}

func (c *Config) validate() error {
	if c.MerakiAPIKey == "" {
		return fmt.Errorf("MERAKI_API_KEY is required")
	}

	if c.ServerURL == "" {
		return fmt.Errorf("SERVER_URL is required")
	}

	if c.CookieEncryptionKey == "" {
		return fmt.Errorf("COOKIE_ENCRYPTION_KEY is required; cookies cannot be signed without a key")
	}

	if c.AccessClientID == "" || c.AccessClientSecret == "" {
		return fmt.Errorf("ACCESS_CLIENT_ID and ACCESS_CLIENT_SECRET are required")
	}

	if c.AccessAuthorizationURL == "" || c.AccessTokenURL == "" {
		return fmt.Errorf("ACCESS_AUTHORIZATION_URL and ACCESS_TOKEN_URL are required")
	}

	if c.AccessJWKSURL == "" {
		return fmt.Errorf("ACCESS_JWKS_URL is required")
	}

	if c.CacheTTLOrganizations <= 0 || c.CacheTTLNetworks <= 0 || c.CacheTTLJWKS <= 0 {
		return fmt.Errorf("cache TTLs must be positive")
	}

	return nil
}

// IsProduction returns true when the environment is set to production.
func (c *Config) IsProduction() bool {
	return c.Environment == "production"
}

// OrganizationsTTL returns the cache TTL for the organization list.
func (c *Config) OrganizationsTTL() time.Duration {
	return time.Duration(c.CacheTTLOrganizations) * time.Second
}

// NetworksTTL returns the cache TTL for network lists.
func (c *Config) NetworksTTL() time.Duration {
	return time.Duration(c.CacheTTLNetworks) * time.Second
}

// JWKSTTL returns the cache TTL for the identity provider's key set.
func (c *Config) JWKSTTL() time.Duration {
	return time.Duration(c.CacheTTLJWKS) * time.Second
}
