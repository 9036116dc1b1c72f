package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefault(t *testing.T) {
	cfg := Default()

	if cfg.Server.Addr != ":8080" {
		t.Errorf("expected default addr ':8080', got %q", cfg.Server.Addr)
	}

	if cfg.Server.StreamBuffer != 64 {
		t.Errorf("expected default stream buffer 64, got %d", cfg.Server.StreamBuffer)
	}

	if cfg.Timeouts.Department != 5*time.Minute {
		t.Errorf("expected department timeout 5m, got %v", cfg.Timeouts.Department)
	}

	if cfg.Sandbox.SettleTime != 3*time.Second {
		t.Errorf("expected sandbox settle time 3s, got %v", cfg.Sandbox.SettleTime)
	}

	if cfg.Sandbox.CreateTimeout != 90*time.Second {
		t.Errorf("expected sandbox create timeout 90s, got %v", cfg.Sandbox.CreateTimeout)
	}

	if cfg.Sandbox.Endpoint != "" {
		t.Errorf("expected previews disabled by default, got endpoint %q", cfg.Sandbox.Endpoint)
	}

	if cfg.Images.Endpoint != "" {
		t.Errorf("expected placeholder logos by default, got endpoint %q", cfg.Images.Endpoint)
	}

	if cfg.Store.Path != "" {
		t.Errorf("expected in-memory store by default, got path %q", cfg.Store.Path)
	}

	if cfg.TUI.RefreshRate != 100*time.Millisecond {
		t.Errorf("expected refresh rate 100ms, got %v", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPath(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
anthropic:
  api_key: sk-ant-test-key
  model: claude-opus-4-20250514
  use_bedrock: true
  aws_region: eu-west-1
server:
  addr: ":9090"
  stream_buffer: 128
sandbox:
  endpoint: https://sandboxes.example.com
  settle_time: 5s
  create_timeout: 2m
images:
  endpoint: https://images.example.com
store:
  path: /tmp/boardroom.db
timeouts:
  department: 10m
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Anthropic.APIKey != "sk-ant-test-key" {
		t.Errorf("api_key = %q", cfg.Anthropic.APIKey)
	}
	if cfg.Anthropic.Model != "claude-opus-4-20250514" {
		t.Errorf("model = %q", cfg.Anthropic.Model)
	}
	if !cfg.Anthropic.UseBedrock {
		t.Error("use_bedrock should be true")
	}
	if cfg.Anthropic.AWSRegion != "eu-west-1" {
		t.Errorf("aws_region = %q", cfg.Anthropic.AWSRegion)
	}
	if cfg.Server.Addr != ":9090" {
		t.Errorf("addr = %q", cfg.Server.Addr)
	}
	if cfg.Server.StreamBuffer != 128 {
		t.Errorf("stream_buffer = %d", cfg.Server.StreamBuffer)
	}
	if cfg.Sandbox.Endpoint != "https://sandboxes.example.com" {
		t.Errorf("sandbox endpoint = %q", cfg.Sandbox.Endpoint)
	}
	if cfg.Sandbox.SettleTime != 5*time.Second {
		t.Errorf("settle_time = %v", cfg.Sandbox.SettleTime)
	}
	if cfg.Sandbox.CreateTimeout != 2*time.Minute {
		t.Errorf("create_timeout = %v", cfg.Sandbox.CreateTimeout)
	}
	if cfg.Images.Endpoint != "https://images.example.com" {
		t.Errorf("images endpoint = %q", cfg.Images.Endpoint)
	}
	if cfg.Store.Path != "/tmp/boardroom.db" {
		t.Errorf("store path = %q", cfg.Store.Path)
	}
	if cfg.Timeouts.Department != 10*time.Minute {
		t.Errorf("department timeout = %v", cfg.Timeouts.Department)
	}
}

func TestLoadFromPathPartialFileKeepsDefaults(t *testing.T) {
	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")

	configContent := `
server:
  addr: ":3000"
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}

	if cfg.Server.Addr != ":3000" {
		t.Errorf("addr = %q, want override", cfg.Server.Addr)
	}
	if cfg.Timeouts.Department != 5*time.Minute {
		t.Errorf("department timeout = %v, want default 5m", cfg.Timeouts.Department)
	}
	if cfg.TUI.RefreshRate != 100*time.Millisecond {
		t.Errorf("refresh rate = %v, want default 100ms", cfg.TUI.RefreshRate)
	}
}

func TestLoadFromPathExpandsEnvInAPIKey(t *testing.T) {
	t.Setenv("TEST_BOARDROOM_KEY", "sk-ant-expanded-key")

	tmpDir := t.TempDir()
	configPath := filepath.Join(tmpDir, "config.yaml")
	configContent := `
anthropic:
  api_key: ${TEST_BOARDROOM_KEY}
`
	if err := os.WriteFile(configPath, []byte(configContent), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}

	cfg, err := LoadFromPath(configPath)
	if err != nil {
		t.Fatalf("LoadFromPath failed: %v", err)
	}
	if cfg.Anthropic.APIKey != "sk-ant-expanded-key" {
		t.Errorf("api_key = %q, want expanded value", cfg.Anthropic.APIKey)
	}
}

func TestLoadFromPathMissingFile(t *testing.T) {
	if _, err := LoadFromPath(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing config file")
	}
}

func TestSaveRoundTrip(t *testing.T) {
	tmpDir := t.TempDir()
	t.Setenv("XDG_CONFIG_HOME", tmpDir)

	cfg := Default()
	cfg.Server.Addr = ":4000"
	cfg.Store.Path = "state.db"
	cfg.Images.Endpoint = "https://images.example.com"

	if err := Save(cfg); err != nil {
		t.Fatalf("Save failed: %v", err)
	}

	loaded, err := LoadFromPath(GetUserConfigPath())
	if err != nil {
		t.Fatalf("reload failed: %v", err)
	}
	if loaded.Server.Addr != ":4000" {
		t.Errorf("addr = %q after round trip", loaded.Server.Addr)
	}
	if loaded.Store.Path != "state.db" {
		t.Errorf("store path = %q after round trip", loaded.Store.Path)
	}
	if loaded.Images.Endpoint != "https://images.example.com" {
		t.Errorf("images endpoint = %q after round trip", loaded.Images.Endpoint)
	}
}
