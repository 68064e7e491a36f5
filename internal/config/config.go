// Package config loads and validates the gateway configuration. The
// config is parsed once at startup into typed structs and passed down;
// nothing re-parses it per call. Secrets can be supplied via
// environment variables instead of the file.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"

	"github.com/phazurlabs/openclaw-fortress/internal/alert"
	"github.com/phazurlabs/openclaw-fortress/internal/allowlist"
	"github.com/phazurlabs/openclaw-fortress/internal/model"
	"github.com/phazurlabs/openclaw-fortress/internal/retention"
)

// GatewayConfig controls the browser-chat gateway listener.
type GatewayConfig struct {
	Listen string `yaml:"listen"`
	Token  string `yaml:"token"`
}

// LLMConfig points at the chat completions backend.
type LLMConfig struct {
	APIURL       string `yaml:"api_url"`
	APIKey       string `yaml:"api_key"`
	Model        string `yaml:"model"`
	MaxTokens    int    `yaml:"max_tokens"`
	SystemPrompt string `yaml:"system_prompt"`
}

// SecurityConfig holds the secrets and storage roots of the security
// pipeline.
type SecurityConfig struct {
	MasterKey            string `yaml:"master_key"`
	PIIHMACSecret        string `yaml:"pii_hmac_secret"`
	SessionMaxAgeSeconds int    `yaml:"session_max_age_seconds"`
	StateDir             string `yaml:"state_dir"`
	AuditLog             string `yaml:"audit_log"`
}

// Config is the full validated gateway configuration.
type Config struct {
	Gateway   GatewayConfig               `yaml:"gateway"`
	LLM       LLMConfig                   `yaml:"llm"`
	Security  SecurityConfig              `yaml:"security"`
	Channels  map[string]allowlist.Config `yaml:"channels"`
	Alerts    []alert.Config              `yaml:"alerts"`
	Retention retention.Config            `yaml:"retention"`
}

// DefaultDir returns the standard state directory (~/.openclaw).
func DefaultDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".openclaw"
	}
	return filepath.Join(home, ".openclaw")
}

// DefaultPath returns the standard config file path.
func DefaultPath() string {
	return filepath.Join(DefaultDir(), "config.yaml")
}

// Load reads, overrides, defaults, and validates a config file.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}

	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse %s: %w", path, err)
	}

	cfg.applyEnv()
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyEnv lets secrets come from the environment, overriding the
// file so config files can stay secret-free.
func (c *Config) applyEnv() {
	if v := os.Getenv("OPENCLAW_GATEWAY_TOKEN"); v != "" {
		c.Gateway.Token = v
	}
	if v := os.Getenv("OPENCLAW_MASTER_KEY"); v != "" {
		c.Security.MasterKey = v
	}
	if v := os.Getenv("OPENCLAW_PII_HMAC_SECRET"); v != "" {
		c.Security.PIIHMACSecret = v
	}
	if v := os.Getenv("OPENCLAW_LLM_API_KEY"); v != "" {
		c.LLM.APIKey = v
	}
}

func (c *Config) applyDefaults() {
	if c.Gateway.Listen == "" {
		c.Gateway.Listen = "127.0.0.1:8788"
	}
	if c.Security.StateDir == "" {
		c.Security.StateDir = DefaultDir()
	}
	if c.Security.AuditLog == "" {
		c.Security.AuditLog = filepath.Join(c.Security.StateDir, "audit.jsonl")
	}
	if c.Security.SessionMaxAgeSeconds <= 0 {
		c.Security.SessionMaxAgeSeconds = 86400
	}
	if c.Retention.ArchiveDB == "" {
		c.Retention.ArchiveDB = filepath.Join(c.Security.StateDir, "archive.db")
	}
	if c.Retention.AuditMaxAgeDays <= 0 {
		c.Retention.AuditMaxAgeDays = 90
	}
}

// Validate rejects configurations that cannot run. Missing optional
// secrets (PII HMAC) are not errors here: they fail at point of use.
func (c *Config) Validate() error {
	for name, ch := range c.Channels {
		if !model.Channel(name).Valid() {
			return fmt.Errorf("config: unknown channel %q", name)
		}
		if ch.RateLimitPerMinute < 0 {
			return fmt.Errorf("config: channel %q: negative rate limit", name)
		}
	}
	if c.LLM.MaxTokens < 0 {
		return fmt.Errorf("config: negative llm max_tokens")
	}
	return nil
}

// SessionsDir returns the directory session files live in.
func (c *Config) SessionsDir() string {
	return filepath.Join(c.Security.StateDir, "sessions")
}

// SafetyPath returns the safety-number store file.
func (c *Config) SafetyPath() string {
	return filepath.Join(c.Security.StateDir, "safety.json")
}

// ConsentPath returns the encrypted consent store file.
func (c *Config) ConsentPath() string {
	return filepath.Join(c.Security.StateDir, "consent.enc")
}

// ChannelConfig returns the allowlist config for a channel. A channel
// with no section runs fully open (empty sets, default rate limit).
func (c *Config) ChannelConfig(channel model.Channel) allowlist.Config {
	if cfg, ok := c.Channels[string(channel)]; ok {
		return cfg
	}
	return allowlist.Config{RateLimitPerMinute: 60}
}
