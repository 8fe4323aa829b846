package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"
)

// Cache TTL configuration
const (
	UserTTL        = 5 * time.Minute  // Single user lookups change often enough
	UserListTTL    = 10 * time.Minute // Paged listings are expensive to rebuild
	ProductListTTL = 30 * time.Minute // Product catalogs change rarely
	GroupListTTL   = 30 * time.Minute // Group definitions change rarely
	ActionTTL      = 1 * time.Minute  // Mutations stay cached briefly to absorb duplicate submissions
)

// Default cache TTL used when a call site does not pick a class
const DefaultCacheTTL = UserTTL

// Orchestration defaults, overridable through the config file
const (
	DefaultCacheCapacity = 1000
	DefaultMaxConcurrent = 10
	DefaultMaxRetries    = 3
	DefaultBackoffBase   = 2.0
	DefaultPageSize      = 100
)

// API endpoints
const (
	DefaultBaseURL  = "https://usermanagement.adobe.io"
	DefaultTokenURL = "https://ims-na1.adobelogin.com/ims/token/v3"
)

// UI configuration
const (
	DefaultTableHeight = 20
	MinTableHeight     = 5

	// Table column widths
	CacheColumnWidth   = 5
	EmailColumnWidth   = 35
	NameColumnWidth    = 24
	CountryColumnWidth = 7
	StatusColumnWidth  = 10
)

// Config holds credentials and the orchestration knobs
type Config struct {
	OrgID        string `json:"org_id"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	BaseURL      string `json:"base_url"`
	TokenURL     string `json:"token_url"`

	CacheCapacity     int     `json:"cache_capacity"`
	DefaultTTLSeconds int     `json:"default_ttl_seconds"`
	MaxConcurrent     int     `json:"max_concurrent"`
	MaxRetries        int     `json:"max_retries"`
	BackoffBase       float64 `json:"backoff_base"`
}

// Default returns a config with every knob at its default and no credentials
func Default() *Config {
	return &Config{
		BaseURL:           DefaultBaseURL,
		TokenURL:          DefaultTokenURL,
		CacheCapacity:     DefaultCacheCapacity,
		DefaultTTLSeconds: int(DefaultCacheTTL / time.Second),
		MaxConcurrent:     DefaultMaxConcurrent,
		MaxRetries:        DefaultMaxRetries,
		BackoffBase:       DefaultBackoffBase,
	}
}

// Load reads the config file, fills in defaults, and applies environment
// overrides. An empty path resolves through AUM_CONFIG and the XDG config
// directory; a missing file is not an error, credentials can come entirely
// from the environment.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path == "" {
		path = resolveConfigPath()
	}

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case os.IsNotExist(err):
			// Fall through to env overrides
		case err != nil:
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		default:
			if err := json.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
			}
		}
	}

	applyEnvOverrides(cfg)
	applyDefaults(cfg)

	return cfg, nil
}

// DefaultTTL returns the configured default TTL as a duration
func (c *Config) DefaultTTL() time.Duration {
	return time.Duration(c.DefaultTTLSeconds) * time.Second
}

// Validate checks that the credentials needed for API calls are present
func (c *Config) Validate() error {
	if c.OrgID == "" {
		return fmt.Errorf("org_id is required (config file or AUM_ORG_ID)")
	}
	if c.ClientID == "" {
		return fmt.Errorf("client_id is required (config file or AUM_CLIENT_ID)")
	}
	if c.ClientSecret == "" {
		return fmt.Errorf("client_secret is required (config file or AUM_CLIENT_SECRET)")
	}
	return nil
}

func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("AUM_ORG_ID"); v != "" {
		cfg.OrgID = v
	}
	if v := os.Getenv("AUM_CLIENT_ID"); v != "" {
		cfg.ClientID = v
	}
	if v := os.Getenv("AUM_CLIENT_SECRET"); v != "" {
		cfg.ClientSecret = v
	}
	if v := os.Getenv("AUM_BASE_URL"); v != "" {
		cfg.BaseURL = v
	}
	if v := os.Getenv("AUM_TOKEN_URL"); v != "" {
		cfg.TokenURL = v
	}
}

// applyDefaults re-fills zero values a sparse config file may have cleared
func applyDefaults(cfg *Config) {
	if cfg.BaseURL == "" {
		cfg.BaseURL = DefaultBaseURL
	}
	if cfg.TokenURL == "" {
		cfg.TokenURL = DefaultTokenURL
	}
	if cfg.CacheCapacity < 0 {
		cfg.CacheCapacity = 0
	}
	if cfg.DefaultTTLSeconds <= 0 {
		cfg.DefaultTTLSeconds = int(DefaultCacheTTL / time.Second)
	}
	if cfg.MaxConcurrent <= 0 {
		cfg.MaxConcurrent = DefaultMaxConcurrent
	}
	if cfg.MaxRetries <= 0 {
		cfg.MaxRetries = DefaultMaxRetries
	}
	if cfg.BackoffBase <= 0 {
		cfg.BackoffBase = DefaultBackoffBase
	}
}

// resolveConfigPath returns the config file location following XDG standards
func resolveConfigPath() string {
	if path := os.Getenv("AUM_CONFIG"); path != "" {
		return path
	}

	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "aum", "config.json")
	}

	homeDir, err := os.UserHomeDir()
	if err != nil {
		return ""
	}

	return filepath.Join(homeDir, ".config", "aum", "config.json")
}
