// Copyright (c) 2025 Thomas Phan
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides unified configuration loading for inferproxy.
//
// Supports both TOML and JSON configuration formats, with sensible defaults,
// environment variable overrides, and validation.
//
// Configuration file locations (in order of precedence):
//   - ~/.inferproxy/config.toml
//   - ~/.inferproxy/config.json
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync"

	"github.com/BurntSushi/toml"

	"github.com/thomasmphan/inference-proxy/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete inferproxy configuration.
type Config struct {
	// General settings
	Version      string `toml:"version" json:"version"`
	DefaultModel string `toml:"default_model" json:"default_model"`

	// Proxy server configuration
	Server ServerConfig `toml:"server" json:"server"`

	// Upstream (Anthropic API) configuration
	Upstream UpstreamConfig `toml:"upstream" json:"upstream"`

	// Client configuration (TUI, REPL, ask)
	Client ClientConfig `toml:"client" json:"client"`

	// Cache configuration
	Cache CacheConfig `toml:"cache" json:"cache"`

	// Telemetry configuration
	Telemetry TelemetryConfig `toml:"telemetry" json:"telemetry"`

	// UI configuration
	UI UIConfig `toml:"ui" json:"ui"`
}

// ServerConfig contains the proxy server configuration.
type ServerConfig struct {
	// ListenAddr is the host:port the proxy binds to
	ListenAddr string `toml:"listen_addr" json:"listen_addr"`
	// AuthToken, when set, requires a matching bearer token on every request
	AuthToken string `toml:"auth_token" json:"auth_token"`
	// AuthTokenHash is a bcrypt hash alternative to AuthToken, so the
	// plaintext token never has to live in the config file
	AuthTokenHash string `toml:"auth_token_hash" json:"auth_token_hash"`
	// RateLimitPerSec is the per-client request rate (0 = unlimited)
	RateLimitPerSec float64 `toml:"rate_limit_per_sec" json:"rate_limit_per_sec"`
	// RateBurst is the burst allowance for the rate limiter
	RateBurst int `toml:"rate_burst" json:"rate_burst"`
	// PricingFile optionally overrides model aliases and token rates
	PricingFile string `toml:"pricing_file" json:"pricing_file"`
	// MaxBodyBytes caps request body size
	MaxBodyBytes int64 `toml:"max_body_bytes" json:"max_body_bytes"`
}

// UpstreamConfig contains the Anthropic API configuration.
type UpstreamConfig struct {
	// BaseURL is the Messages API base URL
	BaseURL string `toml:"base_url" json:"base_url"`
	// APIKeyEnv names the environment variable holding the API key.
	// The key itself never lives in the config file.
	APIKeyEnv string `toml:"api_key_env" json:"api_key_env"`
	// MaxTokens caps upstream response length
	MaxTokens int `toml:"max_tokens" json:"max_tokens"`
	// TimeoutSecs bounds buffered upstream requests
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// ClientConfig contains settings for the local chat clients.
type ClientConfig struct {
	// BaseURL is the proxy URL the clients talk to
	BaseURL string `toml:"base_url" json:"base_url"`
	// TimeoutSecs bounds the wait for response headers
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs"`
}

// CacheConfig contains response cache configuration.
type CacheConfig struct {
	// Enabled controls whether identical submissions replay from cache
	Enabled bool `toml:"enabled" json:"enabled"`
	// MaxEntries is the maximum number of cached responses
	MaxEntries int `toml:"max_entries" json:"max_entries"`
}

// TelemetryConfig contains local usage tracking configuration.
type TelemetryConfig struct {
	// Enabled controls whether requests are recorded
	Enabled bool `toml:"enabled" json:"enabled"`
	// DBPath is the SQLite database path (empty = ~/.inferproxy/usage.db)
	DBPath string `toml:"db_path" json:"db_path"`
}

// UIConfig contains display configuration.
type UIConfig struct {
	// Theme selects the color theme: "dark", "light"
	Theme string `toml:"theme" json:"theme"`
	// ShowCost controls the cost summary line under responses
	ShowCost bool `toml:"show_cost" json:"show_cost"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// Default returns a configuration with all default values.
func Default() *Config {
	return &Config{
		Version:      "1",
		DefaultModel: "haiku",
		Server: ServerConfig{
			ListenAddr:   "127.0.0.1:8600",
			RateBurst:    10,
			MaxBodyBytes: 1 << 20, // 1MB
		},
		Upstream: UpstreamConfig{
			BaseURL:     "https://api.anthropic.com/v1",
			APIKeyEnv:   "ANTHROPIC_API_KEY",
			MaxTokens:   1024,
			TimeoutSecs: 60,
		},
		Client: ClientConfig{
			BaseURL:     "http://127.0.0.1:8600",
			TimeoutSecs: 10,
		},
		Cache: CacheConfig{
			Enabled:    true,
			MaxEntries: 1024,
		},
		Telemetry: TelemetryConfig{
			Enabled: true,
		},
		UI: UIConfig{
			Theme:    "dark",
			ShowCost: true,
		},
	}
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// ConfigDir returns the inferproxy configuration directory path.
func ConfigDir() (string, error) {
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".inferproxy"), nil
}

// ConfigPathTOML returns the path to the TOML config file.
func ConfigPathTOML() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// ConfigPathJSON returns the path to the JSON config file.
func ConfigPathJSON() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.json"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0755)
}

// ensureSecurePermissions checks and fixes permissions on config files.
// SECURITY: Config files should be 0600 since they may carry auth tokens.
func ensureSecurePermissions(path string) error {
	info, err := os.Stat(path)
	if err != nil {
		return err
	}

	if mode := info.Mode().Perm(); mode != 0600 {
		if err := os.Chmod(path, 0600); err != nil {
			return fmt.Errorf("failed to fix insecure permissions (was %o): %w", mode, err)
		}
	}
	return nil
}

// =============================================================================
// LOAD FUNCTIONS
// =============================================================================

// Load loads configuration from the config file(s).
// Tries TOML first, then JSON, and falls back to defaults.
// Environment overrides are applied last.
func Load() (*Config, error) {
	if tomlPath, err := ConfigPathTOML(); err == nil {
		if _, statErr := os.Stat(tomlPath); statErr == nil {
			return LoadFromPath(tomlPath)
		}
	}
	if jsonPath, err := ConfigPathJSON(); err == nil {
		if _, statErr := os.Stat(jsonPath); statErr == nil {
			return LoadFromPath(jsonPath)
		}
	}

	cfg := Default()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file path with full
// validation. JSON is chosen by extension, anything else parses as TOML.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read JSON config from %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config from %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config from %s: %w", path, err)
		}
	}

	cfg.fillDefaults()
	cfg.ApplyEnvOverrides()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// fillDefaults fills in any missing values with defaults. Decoding on top
// of Default() covers most fields; zero values that decoding may have
// introduced for required settings are restored here.
func (c *Config) fillDefaults() {
	defaults := Default()

	if c.Version == "" {
		c.Version = defaults.Version
	}
	if c.DefaultModel == "" {
		c.DefaultModel = defaults.DefaultModel
	}
	if c.Server.ListenAddr == "" {
		c.Server.ListenAddr = defaults.Server.ListenAddr
	}
	if c.Server.MaxBodyBytes == 0 {
		c.Server.MaxBodyBytes = defaults.Server.MaxBodyBytes
	}
	if c.Server.RateBurst == 0 {
		c.Server.RateBurst = defaults.Server.RateBurst
	}
	if c.Upstream.BaseURL == "" {
		c.Upstream.BaseURL = defaults.Upstream.BaseURL
	}
	if c.Upstream.APIKeyEnv == "" {
		c.Upstream.APIKeyEnv = defaults.Upstream.APIKeyEnv
	}
	if c.Upstream.MaxTokens == 0 {
		c.Upstream.MaxTokens = defaults.Upstream.MaxTokens
	}
	if c.Upstream.TimeoutSecs == 0 {
		c.Upstream.TimeoutSecs = defaults.Upstream.TimeoutSecs
	}
	if c.Client.BaseURL == "" {
		c.Client.BaseURL = defaults.Client.BaseURL
	}
	if c.Client.TimeoutSecs == 0 {
		c.Client.TimeoutSecs = defaults.Client.TimeoutSecs
	}
	if c.Cache.MaxEntries == 0 {
		c.Cache.MaxEntries = defaults.Cache.MaxEntries
	}
	if c.UI.Theme == "" {
		c.UI.Theme = defaults.UI.Theme
	}
}

// =============================================================================
// ENVIRONMENT OVERRIDES
// =============================================================================

// ApplyEnvOverrides applies INFERPROXY_* environment variables on top of
// the loaded configuration. Environment always wins over file values.
func (c *Config) ApplyEnvOverrides() {
	if model := os.Getenv("INFERPROXY_MODEL"); model != "" {
		c.DefaultModel = model
	}
	if addr := os.Getenv("INFERPROXY_LISTEN_ADDR"); addr != "" {
		c.Server.ListenAddr = addr
	}
	if token := os.Getenv("INFERPROXY_AUTH_TOKEN"); token != "" {
		c.Server.AuthToken = token
	}
	if pricing := os.Getenv("INFERPROXY_PRICING_FILE"); pricing != "" {
		c.Server.PricingFile = pricing
	}
	if base := os.Getenv("INFERPROXY_BASE_URL"); base != "" {
		c.Client.BaseURL = base
	}
	if upstream := os.Getenv("INFERPROXY_UPSTREAM_URL"); upstream != "" {
		c.Upstream.BaseURL = upstream
	}
	if cache := os.Getenv("INFERPROXY_CACHE"); cache != "" {
		c.Cache.Enabled = parseBool(cache, c.Cache.Enabled)
	}
	if telemetry := os.Getenv("INFERPROXY_TELEMETRY"); telemetry != "" {
		c.Telemetry.Enabled = parseBool(telemetry, c.Telemetry.Enabled)
	}
}

func parseBool(s string, fallback bool) bool {
	v, err := strconv.ParseBool(s)
	if err != nil {
		return fallback
	}
	return v
}

// =============================================================================
// VALIDATION
// =============================================================================

// ValidationError describes a single invalid configuration value.
type ValidationError struct {
	Field   string
	Message string
}

func (e ValidationError) Error() string {
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// Validate checks the configuration for invalid values.
func (c *Config) Validate() error {
	if c.DefaultModel == "" {
		return ValidationError{Field: "default_model", Message: "must not be empty"}
	}
	if _, _, err := net.SplitHostPort(c.Server.ListenAddr); err != nil {
		return ValidationError{Field: "server.listen_addr", Message: "must be host:port"}
	}
	if c.Server.RateLimitPerSec < 0 {
		return ValidationError{Field: "server.rate_limit_per_sec", Message: "must not be negative"}
	}
	if c.Server.AuthToken != "" && c.Server.AuthTokenHash != "" {
		return ValidationError{Field: "server.auth_token", Message: "set either auth_token or auth_token_hash, not both"}
	}
	if u, err := url.Parse(c.Upstream.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "upstream.base_url", Message: "must be an absolute URL"}
	}
	if u, err := url.Parse(c.Client.BaseURL); err != nil || u.Scheme == "" || u.Host == "" {
		return ValidationError{Field: "client.base_url", Message: "must be an absolute URL"}
	}
	if c.Upstream.MaxTokens <= 0 {
		return ValidationError{Field: "upstream.max_tokens", Message: "must be positive"}
	}
	return nil
}

// APIKey resolves the upstream API key from the configured environment
// variable. Empty when unset.
func (c *Config) APIKey() string {
	return os.Getenv(c.Upstream.APIKeyEnv)
}

// TelemetryDBPath resolves the telemetry database path, defaulting into
// the config directory.
func (c *Config) TelemetryDBPath() (string, error) {
	if c.Telemetry.DBPath != "" {
		return c.Telemetry.DBPath, nil
	}
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "usage.db"), nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save saves the configuration to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPathTOML()
	if err != nil {
		return err
	}
	return SaveTOML(cfg, path)
}

// SaveTOML saves the configuration to a TOML file.
// SECURITY: Creates config files with 0600 permissions (owner read/write only).
func SaveTOML(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	file, err := os.OpenFile(path, os.O_WRONLY|os.O_CREATE|os.O_TRUNC, 0600)
	if err != nil {
		return fmt.Errorf("failed to create config file: %w", err)
	}
	defer file.Close()

	if err := os.Chmod(path, 0600); err != nil {
		return fmt.Errorf("failed to set config file permissions: %w", err)
	}

	fmt.Fprintln(file, "# inferproxy configuration file")
	fmt.Fprintln(file, "# Generated by inferproxy - edit with care")
	fmt.Fprintln(file, "")

	encoder := toml.NewEncoder(file)
	if err := encoder.Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	return nil
}

// SaveJSON saves the configuration to a JSON file.
// RELIABILITY: Atomic write prevents data loss on crash.
func SaveJSON(cfg *Config, path string) error {
	if err := EnsureConfigDir(); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := json.MarshalIndent(cfg, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}

	if err := util.AtomicWriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// GLOBAL CONFIG
// =============================================================================

var (
	globalConfig *Config
	globalOnce   sync.Once
)

// Global returns the process-wide configuration, loading it on first use.
// Load errors fall back to defaults.
func Global() *Config {
	globalOnce.Do(func() {
		cfg, err := Load()
		if err != nil {
			cfg = Default()
		}
		globalConfig = cfg
	})
	return globalConfig
}
