// Package config handles configuration loading for the boardroom server
// and CLI. It supports XDG config paths, project-level overrides, and
// environment variables.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/spf13/viper"
)

// Config holds all configuration for boardroom.
type Config struct {
	Anthropic AnthropicConfig `mapstructure:"anthropic"`
	Server    ServerConfig    `mapstructure:"server"`
	Sandbox   SandboxConfig   `mapstructure:"sandbox"`
	Images    ImagesConfig    `mapstructure:"images"`
	Store     StoreConfig     `mapstructure:"store"`
	Timeouts  TimeoutsConfig  `mapstructure:"timeouts"`
	TUI       TUIConfig       `mapstructure:"tui"`
}

// AnthropicConfig holds model provider settings.
type AnthropicConfig struct {
	// APIKey is the Anthropic API key. Supports ${VAR} expansion.
	APIKey string `mapstructure:"api_key"`
	// Model is the model id used for department runs.
	Model string `mapstructure:"model"`
	// UseBedrock routes calls through AWS Bedrock instead of the direct API.
	UseBedrock bool `mapstructure:"use_bedrock"`
	// AWSRegion is the AWS region for Bedrock.
	AWSRegion string `mapstructure:"aws_region"`
	// AWSProfile is the optional AWS profile name.
	AWSProfile string `mapstructure:"aws_profile"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	// Addr is the listen address, host:port.
	Addr string `mapstructure:"addr"`
	// StreamBuffer is the per-execution event channel capacity.
	StreamBuffer int `mapstructure:"stream_buffer"`
}

// SandboxConfig holds preview sandbox settings.
type SandboxConfig struct {
	// Endpoint is the base URL of the sandbox service. Empty disables
	// previews; generated files are still returned as artifacts.
	Endpoint string `mapstructure:"endpoint"`
	// SettleTime is how long to wait after seeding before the preview
	// address is considered reachable.
	SettleTime time.Duration `mapstructure:"settle_time"`
	// CreateTimeout bounds sandbox bring-up plus file writes.
	CreateTimeout time.Duration `mapstructure:"create_timeout"`
}

// ImagesConfig holds image-generation service settings.
type ImagesConfig struct {
	// Endpoint is the base URL of the image-generation service. Empty makes
	// logo tools fall back to an inline placeholder.
	Endpoint string `mapstructure:"endpoint"`
}

// StoreConfig holds thread/document store settings.
type StoreConfig struct {
	// Path is the SQLite database file. Empty selects the in-memory store.
	Path string `mapstructure:"path"`
}

// TimeoutsConfig holds execution timeout settings.
type TimeoutsConfig struct {
	// Department bounds a single department run.
	Department time.Duration `mapstructure:"department"`
}

// TUIConfig holds terminal UI settings.
type TUIConfig struct {
	RefreshRate time.Duration `mapstructure:"refresh_rate"`
}

// Load loads configuration from XDG paths, project overrides, and
// environment variables. Precedence (highest to lowest):
// 1. Environment variables (ANTHROPIC_API_KEY, BOARDROOM_*)
// 2. Project config (.boardroom.yaml in current directory or a parent)
// 3. User config (~/.config/boardroom/config.yaml)
// 4. Built-in defaults
func Load() (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(getUserConfigDir())

	if err := v.ReadInConfig(); err != nil {
		if _, ok := err.(viper.ConfigFileNotFoundError); !ok {
			return nil, fmt.Errorf("reading user config: %w", err)
		}
	}

	if projectConfig := findProjectConfig(); projectConfig != "" {
		projectViper := viper.New()
		projectViper.SetConfigFile(projectConfig)
		if err := projectViper.ReadInConfig(); err == nil {
			if err := v.MergeConfigMap(projectViper.AllSettings()); err != nil {
				return nil, fmt.Errorf("merging project config: %w", err)
			}
		}
	}

	v.AutomaticEnv()
	v.BindEnv("anthropic.api_key", "ANTHROPIC_API_KEY")
	v.BindEnv("anthropic.model", "BOARDROOM_MODEL")
	v.BindEnv("server.addr", "BOARDROOM_ADDR")
	v.BindEnv("sandbox.endpoint", "BOARDROOM_SANDBOX_ENDPOINT")
	v.BindEnv("images.endpoint", "BOARDROOM_IMAGES_ENDPOINT")
	v.BindEnv("store.path", "BOARDROOM_STORE_PATH")

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// LoadFromPath loads configuration from a specific file (for testing).
func LoadFromPath(path string) (*Config, error) {
	v := viper.New()
	setDefaults(v)

	v.SetConfigFile(path)
	if err := v.ReadInConfig(); err != nil {
		return nil, fmt.Errorf("reading config from %s: %w", path, err)
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("unmarshaling config: %w", err)
	}

	cfg.Anthropic.APIKey = os.ExpandEnv(cfg.Anthropic.APIKey)
	return cfg, nil
}

// Save writes the configuration to the user config file.
func Save(cfg *Config) error {
	userConfigDir := getUserConfigDir()
	if err := os.MkdirAll(userConfigDir, 0700); err != nil {
		return fmt.Errorf("creating config directory: %w", err)
	}

	v := viper.New()
	v.SetConfigFile(filepath.Join(userConfigDir, "config.yaml"))

	v.Set("anthropic.api_key", cfg.Anthropic.APIKey)
	v.Set("anthropic.model", cfg.Anthropic.Model)
	v.Set("anthropic.use_bedrock", cfg.Anthropic.UseBedrock)
	v.Set("anthropic.aws_region", cfg.Anthropic.AWSRegion)
	v.Set("server.addr", cfg.Server.Addr)
	v.Set("server.stream_buffer", cfg.Server.StreamBuffer)
	v.Set("sandbox.endpoint", cfg.Sandbox.Endpoint)
	v.Set("sandbox.settle_time", cfg.Sandbox.SettleTime.String())
	v.Set("sandbox.create_timeout", cfg.Sandbox.CreateTimeout.String())
	v.Set("images.endpoint", cfg.Images.Endpoint)
	v.Set("store.path", cfg.Store.Path)
	v.Set("timeouts.department", cfg.Timeouts.Department.String())
	v.Set("tui.refresh_rate", cfg.TUI.RefreshRate.String())

	return v.WriteConfig()
}

// GetUserConfigPath returns the path to the user config file.
func GetUserConfigPath() string {
	return filepath.Join(getUserConfigDir(), "config.yaml")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("anthropic.api_key", "")
	v.SetDefault("anthropic.model", "claude-sonnet-4-20250514")
	v.SetDefault("anthropic.use_bedrock", false)
	v.SetDefault("anthropic.aws_region", "us-east-1")

	v.SetDefault("server.addr", ":8080")
	v.SetDefault("server.stream_buffer", 64)

	v.SetDefault("sandbox.endpoint", "")
	v.SetDefault("sandbox.settle_time", "3s")
	v.SetDefault("sandbox.create_timeout", "90s")

	v.SetDefault("images.endpoint", "")

	v.SetDefault("store.path", "")

	v.SetDefault("timeouts.department", "5m")
	v.SetDefault("tui.refresh_rate", "100ms")
}

// getUserConfigDir returns the XDG config directory for boardroom.
func getUserConfigDir() string {
	if xdgConfig := os.Getenv("XDG_CONFIG_HOME"); xdgConfig != "" {
		return filepath.Join(xdgConfig, "boardroom")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", ".config", "boardroom")
	}
	return filepath.Join(home, ".config", "boardroom")
}

// findProjectConfig searches for .boardroom.yaml in the current directory
// and parents.
func findProjectConfig() string {
	cwd, err := os.Getwd()
	if err != nil {
		return ""
	}

	for {
		configPath := filepath.Join(cwd, ".boardroom.yaml")
		if _, err := os.Stat(configPath); err == nil {
			return configPath
		}
		parent := filepath.Dir(cwd)
		if parent == cwd {
			break
		}
		cwd = parent
	}
	return ""
}

// Default returns a Config with default values.
func Default() *Config {
	return &Config{
		Anthropic: AnthropicConfig{
			Model:     "claude-sonnet-4-20250514",
			AWSRegion: "us-east-1",
		},
		Server: ServerConfig{
			Addr:         ":8080",
			StreamBuffer: 64,
		},
		Sandbox: SandboxConfig{
			SettleTime:    3 * time.Second,
			CreateTimeout: 90 * time.Second,
		},
		Timeouts: TimeoutsConfig{
			Department: 5 * time.Minute,
		},
		TUI: TUIConfig{
			RefreshRate: 100 * time.Millisecond,
		},
	}
}
