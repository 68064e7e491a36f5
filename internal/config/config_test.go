package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/phazurlabs/openclaw-fortress/internal/model"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatal(err)
	}
	return path
}

const sampleConfig = `
gateway:
  listen: "127.0.0.1:9000"
  token: "file-token"
llm:
  api_url: "https://api.example.com/v1/chat/completions"
  api_key: "file-key"
  model: "gpt-test"
  max_tokens: 512
  system_prompt: "be helpful"
security:
  master_key: "file-master"
  session_max_age_seconds: 1800
channels:
  messaging:
    allowed_numbers: ["+15551234567"]
    rate_limit_per_minute: 10
  team-chat:
    allowed_groups: ["ops-room"]
`

func TestLoad(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Gateway.Listen != "127.0.0.1:9000" || cfg.Gateway.Token != "file-token" {
		t.Errorf("gateway not parsed: %+v", cfg.Gateway)
	}
	if cfg.LLM.Model != "gpt-test" || cfg.LLM.MaxTokens != 512 {
		t.Errorf("llm not parsed: %+v", cfg.LLM)
	}
	if cfg.Security.SessionMaxAgeSeconds != 1800 {
		t.Errorf("expected max age 1800, got %d", cfg.Security.SessionMaxAgeSeconds)
	}

	ch := cfg.ChannelConfig(model.ChannelMessaging)
	if len(ch.AllowedNumbers) != 1 || ch.AllowedNumbers[0] != "+15551234567" {
		t.Errorf("messaging channel not parsed: %+v", ch)
	}
	if ch.RateLimitPerMinute != 10 {
		t.Errorf("expected rate limit 10, got %d", ch.RateLimitPerMinute)
	}
}

func TestLoadMissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.yaml"))
	if err == nil {
		t.Error("expected error for missing file")
	}
}

func TestLoadInvalidYAML(t *testing.T) {
	path := writeConfig(t, "gateway: [not a map")
	if _, err := Load(path); err == nil {
		t.Error("expected parse error")
	}
}

func TestLoadDefaults(t *testing.T) {
	path := writeConfig(t, "llm:\n  model: m\n")
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}

	if cfg.Gateway.Listen != "127.0.0.1:8788" {
		t.Errorf("expected default listen, got %q", cfg.Gateway.Listen)
	}
	if cfg.Security.SessionMaxAgeSeconds != 86400 {
		t.Errorf("expected default max age, got %d", cfg.Security.SessionMaxAgeSeconds)
	}
	if cfg.Security.StateDir == "" {
		t.Error("expected default state dir")
	}
	if cfg.Security.AuditLog != filepath.Join(cfg.Security.StateDir, "audit.jsonl") {
		t.Errorf("expected audit log under state dir, got %q", cfg.Security.AuditLog)
	}
	if cfg.Retention.AuditMaxAgeDays != 90 {
		t.Errorf("expected default retention age, got %d", cfg.Retention.AuditMaxAgeDays)
	}
}

func TestLoadEnvOverrides(t *testing.T) {
	t.Setenv("OPENCLAW_GATEWAY_TOKEN", "env-token")
	t.Setenv("OPENCLAW_MASTER_KEY", "env-master")
	t.Setenv("OPENCLAW_PII_HMAC_SECRET", "env-pii")
	t.Setenv("OPENCLAW_LLM_API_KEY", "env-llm")

	cfg, err := Load(writeConfig(t, sampleConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Gateway.Token != "env-token" {
		t.Errorf("expected env token to win, got %q", cfg.Gateway.Token)
	}
	if cfg.Security.MasterKey != "env-master" {
		t.Errorf("expected env master key to win, got %q", cfg.Security.MasterKey)
	}
	if cfg.Security.PIIHMACSecret != "env-pii" {
		t.Errorf("expected env pii secret, got %q", cfg.Security.PIIHMACSecret)
	}
	if cfg.LLM.APIKey != "env-llm" {
		t.Errorf("expected env llm key to win, got %q", cfg.LLM.APIKey)
	}
}

func TestValidateUnknownChannel(t *testing.T) {
	path := writeConfig(t, "channels:\n  carrier-pigeon:\n    rate_limit_per_minute: 5\n")
	_, err := Load(path)
	if err == nil || !strings.Contains(err.Error(), "unknown channel") {
		t.Errorf("expected unknown channel error, got %v", err)
	}
}

func TestValidateNegativeRateLimit(t *testing.T) {
	path := writeConfig(t, "channels:\n  messaging:\n    rate_limit_per_minute: -1\n")
	if _, err := Load(path); err == nil {
		t.Error("expected negative rate limit rejected")
	}
}

func TestValidateNegativeMaxTokens(t *testing.T) {
	path := writeConfig(t, "llm:\n  max_tokens: -5\n")
	if _, err := Load(path); err == nil {
		t.Error("expected negative max_tokens rejected")
	}
}

func TestChannelConfigUnconfigured(t *testing.T) {
	cfg := &Config{}
	ch := cfg.ChannelConfig(model.ChannelWeb)
	if len(ch.AllowedNumbers) != 0 || len(ch.AllowedGroups) != 0 {
		t.Errorf("expected open config, got %+v", ch)
	}
	if ch.RateLimitPerMinute != 60 {
		t.Errorf("expected default rate limit 60, got %d", ch.RateLimitPerMinute)
	}
}

func TestStatePaths(t *testing.T) {
	cfg := &Config{}
	cfg.Security.StateDir = "/var/lib/openclaw"
	if cfg.SessionsDir() != "/var/lib/openclaw/sessions" {
		t.Errorf("unexpected sessions dir %q", cfg.SessionsDir())
	}
	if cfg.SafetyPath() != "/var/lib/openclaw/safety.json" {
		t.Errorf("unexpected safety path %q", cfg.SafetyPath())
	}
	if cfg.ConsentPath() != "/var/lib/openclaw/consent.enc" {
		t.Errorf("unexpected consent path %q", cfg.ConsentPath())
	}
}
