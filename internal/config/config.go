// Copyright (c) 2024-2025 Jesse Morgan / Morgan Forge
// SPDX-License-Identifier: AGPL-3.0-or-later

// Package config provides configuration loading and management for socratic.
//
// Configuration file locations (in order of precedence):
//   - Environment variables (SOCRATIC_*)
//   - ~/.socratic/config.toml
//   - Built-in defaults
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/BurntSushi/toml"

	"github.com/jeranaias/socratic-tui/internal/util"
)

// =============================================================================
// CONFIG STRUCTURES
// =============================================================================

// Config represents the complete socratic configuration.
type Config struct {
	Version string `toml:"version" json:"version" env:"CONFIG_VERSION"`

	// Backend API the client talks to
	Backend BackendConfig `toml:"backend" json:"backend" envPrefix:"BACKEND_"`

	// Health polling
	Health HealthConfig `toml:"health" json:"health" envPrefix:"HEALTH_"`

	// Where the bearer credential comes from
	Identity IdentityConfig `toml:"identity" json:"identity" envPrefix:"IDENTITY_"`

	// Terminal UI
	UI UIConfig `toml:"ui" json:"ui" envPrefix:"UI_"`

	// Logging
	Logging LoggingConfig `toml:"logging" json:"logging" envPrefix:"LOG_"`

	// Reference dev backend (socratic serve)
	Server ServerConfig `toml:"server" json:"server" envPrefix:"SERVER_"`
}

// BackendConfig contains the REST backend settings.
type BackendConfig struct {
	BaseURL string `toml:"base_url" json:"base_url" env:"BASE_URL"`

	// Transport timeout for every request. 0 disables it.
	TimeoutSecs int `toml:"timeout_secs" json:"timeout_secs" env:"TIMEOUT_SECS"`

	// Client-side bound on a single POST /chat. 0 disables it.
	ChatTimeoutSecs int `toml:"chat_timeout_secs" json:"chat_timeout_secs" env:"CHAT_TIMEOUT_SECS"`

	// Restrict the backend to loopback hosts
	LocalOnly bool `toml:"local_only" json:"local_only" env:"LOCAL_ONLY"`
}

// HealthConfig contains health poller settings.
type HealthConfig struct {
	PollIntervalSecs int `toml:"poll_interval_secs" json:"poll_interval_secs" env:"POLL_INTERVAL_SECS"`

	// Disable submission while chat_enabled is false
	GateSubmit bool `toml:"gate_submit" json:"gate_submit" env:"GATE_SUBMIT"`
}

// Identity sources.
const (
	IdentityStatic = "static"
	IdentityEnv    = "env"
	IdentityFile   = "file"
)

// IdentityConfig selects and configures the credential provider.
type IdentityConfig struct {
	// static | env | file
	Source string `toml:"source" json:"source" env:"SOURCE"`

	// Token for the static source
	Token string `toml:"token" json:"token" env:"TOKEN"`

	// Environment variable read on every call by the env source
	TokenEnv string `toml:"token_env" json:"token_env" env:"TOKEN_ENV"`

	// Credentials file for the file source
	TokenFile string `toml:"token_file" json:"token_file" env:"TOKEN_FILE"`

	// Watch the credentials file and reload on change
	Watch bool `toml:"watch" json:"watch" env:"WATCH"`

	UserID      string `toml:"user_id" json:"user_id" env:"USER_ID"`
	Email       string `toml:"email" json:"email" env:"EMAIL"`
	DisplayName string `toml:"display_name" json:"display_name" env:"DISPLAY_NAME"`
}

// UIConfig contains terminal UI preferences.
type UIConfig struct {
	// auto | dark | light
	Theme string `toml:"theme" json:"theme" env:"THEME"`

	// Render assistant replies as markdown
	Markdown bool `toml:"markdown" json:"markdown" env:"MARKDOWN"`

	// Show which tier produced each reply
	ShowSource bool `toml:"show_source" json:"show_source" env:"SHOW_SOURCE"`

	SidebarWidth int `toml:"sidebar_width" json:"sidebar_width" env:"SIDEBAR_WIDTH"`
}

// LoggingConfig contains zerolog settings.
type LoggingConfig struct {
	// debug | info | warn | error
	Level  string `toml:"level" json:"level" env:"LEVEL"`
	Pretty bool   `toml:"pretty" json:"pretty" env:"PRETTY"`

	// Log file; the TUI always logs here because it owns the terminal
	File string `toml:"file" json:"file" env:"FILE"`
}

// ServerConfig configures the reference dev backend.
type ServerConfig struct {
	Addr         string `toml:"addr" json:"addr" env:"ADDR"`
	DatabasePath string `toml:"database_path" json:"database_path" env:"DATABASE_PATH"`

	// Bearer token -> user id
	Tokens map[string]string `toml:"tokens" json:"tokens" env:"TOKENS"`

	// Per-user requests per second and burst
	RateLimit float64 `toml:"rate_limit" json:"rate_limit" env:"RATE_LIMIT"`
	RateBurst int     `toml:"rate_burst" json:"rate_burst" env:"RATE_BURST"`

	CORSOrigins []string `toml:"cors_origins" json:"cors_origins" env:"CORS_ORIGINS"`
	Metrics     bool     `toml:"metrics" json:"metrics" env:"METRICS"`

	// Primary reply tier (Ollama)
	OllamaURL   string `toml:"ollama_url" json:"ollama_url" env:"OLLAMA_URL"`
	OllamaModel string `toml:"ollama_model" json:"ollama_model" env:"OLLAMA_MODEL"`

	// Fallback reply tier (OpenAI-compatible endpoint)
	FallbackURL   string `toml:"fallback_url" json:"fallback_url" env:"FALLBACK_URL"`
	FallbackKey   string `toml:"fallback_key" json:"fallback_key" env:"FALLBACK_KEY"`
	FallbackModel string `toml:"fallback_model" json:"fallback_model" env:"FALLBACK_MODEL"`
}

// =============================================================================
// DEFAULTS
// =============================================================================

// CurrentVersion is the config schema version written by Save.
const CurrentVersion = "1"

// Default returns a Config with sensible default values.
func Default() *Config {
	return &Config{
		Version: CurrentVersion,

		Backend: BackendConfig{
			BaseURL:         "http://127.0.0.1:8000",
			TimeoutSecs:     90,
			ChatTimeoutSecs: 60,
		},

		Health: HealthConfig{
			PollIntervalSecs: 30,
			GateSubmit:       true,
		},

		Identity: IdentityConfig{
			Source:   IdentityEnv,
			TokenEnv: "SOCRATIC_TOKEN",
			UserID:   "local",
		},

		UI: UIConfig{
			Theme:        "auto",
			Markdown:     true,
			ShowSource:   false,
			SidebarWidth: 28,
		},

		Logging: LoggingConfig{
			Level: "info",
		},

		Server: ServerConfig{
			Addr:          "127.0.0.1:8000",
			RateLimit:     1,
			RateBurst:     5,
			Metrics:       true,
			OllamaURL:     "http://127.0.0.1:11434",
			OllamaModel:   "mistral:7b-instruct",
			FallbackModel: "mistralai/Mistral-7B-Instruct-v0.3",
		},
	}
}

// SetDefaults fills zero values with defaults. Booleans are left as set.
func (c *Config) SetDefaults() {
	d := Default()

	if c.Version == "" {
		c.Version = d.Version
	}
	if c.Backend.BaseURL == "" {
		c.Backend.BaseURL = d.Backend.BaseURL
	}
	if c.Health.PollIntervalSecs <= 0 {
		c.Health.PollIntervalSecs = d.Health.PollIntervalSecs
	}
	if c.Identity.Source == "" {
		c.Identity.Source = d.Identity.Source
	}
	if c.Identity.TokenEnv == "" {
		c.Identity.TokenEnv = d.Identity.TokenEnv
	}
	if c.Identity.UserID == "" {
		c.Identity.UserID = d.Identity.UserID
	}
	if c.Identity.Source == IdentityFile && c.Identity.TokenFile == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Identity.TokenFile = filepath.Join(dir, "credentials.toml")
		}
	}
	if c.UI.Theme == "" {
		c.UI.Theme = d.UI.Theme
	}
	if c.UI.SidebarWidth <= 0 {
		c.UI.SidebarWidth = d.UI.SidebarWidth
	}
	if c.Logging.Level == "" {
		c.Logging.Level = d.Logging.Level
	}
	if c.Server.Addr == "" {
		c.Server.Addr = d.Server.Addr
	}
	if c.Server.DatabasePath == "" {
		if dir, err := ConfigDir(); err == nil {
			c.Server.DatabasePath = filepath.Join(dir, "server.db")
		}
	}
	if c.Server.RateLimit <= 0 {
		c.Server.RateLimit = d.Server.RateLimit
	}
	if c.Server.RateBurst <= 0 {
		c.Server.RateBurst = d.Server.RateBurst
	}
	if c.Server.OllamaModel == "" {
		c.Server.OllamaModel = d.Server.OllamaModel
	}
	if c.Server.FallbackModel == "" {
		c.Server.FallbackModel = d.Server.FallbackModel
	}
}

// PollInterval returns the health poll interval.
func (c *Config) PollInterval() time.Duration {
	return time.Duration(c.Health.PollIntervalSecs) * time.Second
}

// ChatTimeout returns the client-side bound on POST /chat, or 0 for none.
func (c *Config) ChatTimeout() time.Duration {
	return time.Duration(c.Backend.ChatTimeoutSecs) * time.Second
}

// RequestTimeout returns the transport timeout, or 0 for none.
func (c *Config) RequestTimeout() time.Duration {
	return time.Duration(c.Backend.TimeoutSecs) * time.Second
}

// =============================================================================
// CONFIG PATH HELPERS
// =============================================================================

// HomeEnv overrides the configuration directory.
const HomeEnv = "SOCRATIC_HOME"

// ConfigDir returns the socratic configuration directory path.
func ConfigDir() (string, error) {
	if dir := os.Getenv(HomeEnv); dir != "" {
		return dir, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("could not determine home directory: %w", err)
	}
	return filepath.Join(home, ".socratic"), nil
}

// ConfigPath returns the path to the TOML config file.
func ConfigPath() (string, error) {
	dir, err := ConfigDir()
	if err != nil {
		return "", err
	}
	return filepath.Join(dir, "config.toml"), nil
}

// EnsureConfigDir ensures the config directory exists.
func EnsureConfigDir() error {
	dir, err := ConfigDir()
	if err != nil {
		return err
	}
	return os.MkdirAll(dir, 0700)
}

// ensureSecurePermissions tightens a config file to 0600.
// SECURITY: The file may hold the static token and the fallback API key.
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

// Load reads ~/.socratic/config.toml if present, then applies environment
// overrides, defaults and validation. A missing file is not an error.
func Load() (*Config, error) {
	path, err := ConfigPath()
	if err != nil {
		return nil, err
	}
	if _, statErr := os.Stat(path); statErr != nil {
		cfg := Default()
		return finish(cfg)
	}
	return LoadFromPath(path)
}

// LoadFromPath loads configuration from a specific TOML or JSON file.
func LoadFromPath(path string) (*Config, error) {
	cfg := Default()

	if err := ensureSecurePermissions(path); err != nil {
		fmt.Fprintf(os.Stderr, "Warning: could not ensure secure permissions on %s: %v\n", path, err)
	}

	if strings.HasSuffix(path, ".json") {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read config %s: %w", path, err)
		}
		if err := json.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode JSON config %s: %w", path, err)
		}
	} else {
		if _, err := toml.DecodeFile(path, cfg); err != nil {
			return nil, fmt.Errorf("failed to decode TOML config %s: %w", path, err)
		}
	}

	return finish(cfg)
}

// finish applies env overrides, defaults and validation in that order.
func finish(cfg *Config) (*Config, error) {
	if err := cfg.ApplyEnvOverrides(); err != nil {
		return nil, err
	}
	cfg.SetDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// =============================================================================
// SAVE FUNCTIONS
// =============================================================================

// Save writes cfg to the default TOML file.
func Save(cfg *Config) error {
	path, err := ConfigPath()
	if err != nil {
		return err
	}
	return SaveTo(cfg, path)
}

// SaveTo writes cfg as TOML to path.
// SECURITY: Written with 0600 permissions via an atomic rename.
func SaveTo(cfg *Config, path string) error {
	var sb strings.Builder
	sb.WriteString("# socratic configuration file\n")
	sb.WriteString("# Generated by socratic - edit with care\n\n")

	if err := toml.NewEncoder(&sb).Encode(cfg); err != nil {
		return fmt.Errorf("failed to encode config: %w", err)
	}
	if err := util.AtomicWriteFile(path, []byte(sb.String()), 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}

// =============================================================================
// COPY AND DISPLAY
// =============================================================================

// Clone returns a deep copy of the configuration.
func (c *Config) Clone() *Config {
	clone := *c
	if c.Server.Tokens != nil {
		clone.Server.Tokens = make(map[string]string, len(c.Server.Tokens))
		for k, v := range c.Server.Tokens {
			clone.Server.Tokens[k] = v
		}
	}
	if c.Server.CORSOrigins != nil {
		clone.Server.CORSOrigins = append([]string(nil), c.Server.CORSOrigins...)
	}
	return &clone
}

// Redacted is the placeholder shown for secrets.
const Redacted = "[REDACTED]"

// String returns a JSON rendering of the config.
// SECURITY: Tokens and API keys are redacted.
func (c *Config) String() string {
	safe := c.Clone()
	if safe.Identity.Token != "" {
		safe.Identity.Token = Redacted
	}
	if safe.Server.FallbackKey != "" {
		safe.Server.FallbackKey = Redacted
	}
	if len(safe.Server.Tokens) > 0 {
		users := make([]string, 0, len(safe.Server.Tokens))
		for _, user := range safe.Server.Tokens {
			users = append(users, user)
		}
		sort.Strings(users)
		redacted := make(map[string]string, len(users))
		for i, user := range users {
			redacted[fmt.Sprintf("%s-%d", Redacted, i+1)] = user
		}
		safe.Server.Tokens = redacted
	}

	data, _ := json.MarshalIndent(safe, "", "  ")
	return string(data)
}
