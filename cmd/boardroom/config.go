package main

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/sgranger-dev/boardroom/internal/config"
)

var configCmd = &cobra.Command{
	Use:   "config [key] [value]",
	Short: "Manage configuration",
	Long: `View or modify boardroom configuration.

Without arguments, displays current configuration.
With one argument (key), displays the value for that key.
With two arguments (key value), sets the configuration value.

Configuration is stored at ~/.config/boardroom/config.yaml
Project-specific overrides can be placed in .boardroom.yaml`,
	Run: func(cmd *cobra.Command, args []string) {
		cfg, err := config.Load()
		if err != nil {
			fmt.Fprintf(os.Stderr, "Error loading config: %v\n", err)
			os.Exit(1)
		}

		switch len(args) {
		case 0:
			displayAllConfig(cfg)
		case 1:
			displayConfigKey(cfg, args[0])
		default:
			setConfigKey(cfg, args[0], args[1])
		}
	},
}

// displayAllConfig prints all configuration values.
func displayAllConfig(cfg *config.Config) {
	apiKeyDisplay := "(not set)"
	if key, err := config.GetAPIKey(cfg); err == nil {
		apiKeyDisplay = fmt.Sprintf("%s (from %s)", config.MaskAPIKey(key), config.GetAPIKeySource(cfg))
	}

	fmt.Printf("anthropic.api_key: %s\n", apiKeyDisplay)
	fmt.Printf("anthropic.model: %s\n", cfg.Anthropic.Model)
	fmt.Printf("anthropic.use_bedrock: %t\n", cfg.Anthropic.UseBedrock)
	fmt.Printf("server.addr: %s\n", cfg.Server.Addr)
	fmt.Printf("server.stream_buffer: %d\n", cfg.Server.StreamBuffer)
	fmt.Printf("sandbox.endpoint: %s\n", cfg.Sandbox.Endpoint)
	fmt.Printf("sandbox.settle_time: %s\n", cfg.Sandbox.SettleTime)
	fmt.Printf("sandbox.create_timeout: %s\n", cfg.Sandbox.CreateTimeout)
	fmt.Printf("images.endpoint: %s\n", cfg.Images.Endpoint)
	fmt.Printf("store.path: %s\n", cfg.Store.Path)
	fmt.Printf("timeouts.department: %s\n", cfg.Timeouts.Department)
	fmt.Printf("tui.refresh_rate: %s\n", cfg.TUI.RefreshRate)
}

// displayConfigKey prints one configuration value.
func displayConfigKey(cfg *config.Config, key string) {
	switch key {
	case "anthropic.api_key":
		fmt.Println(config.MaskAPIKey(cfg.Anthropic.APIKey))
	case "anthropic.model":
		fmt.Println(cfg.Anthropic.Model)
	case "anthropic.use_bedrock":
		fmt.Println(cfg.Anthropic.UseBedrock)
	case "server.addr":
		fmt.Println(cfg.Server.Addr)
	case "server.stream_buffer":
		fmt.Println(cfg.Server.StreamBuffer)
	case "sandbox.endpoint":
		fmt.Println(cfg.Sandbox.Endpoint)
	case "sandbox.settle_time":
		fmt.Println(cfg.Sandbox.SettleTime)
	case "sandbox.create_timeout":
		fmt.Println(cfg.Sandbox.CreateTimeout)
	case "images.endpoint":
		fmt.Println(cfg.Images.Endpoint)
	case "store.path":
		fmt.Println(cfg.Store.Path)
	case "timeouts.department":
		fmt.Println(cfg.Timeouts.Department)
	case "tui.refresh_rate":
		fmt.Println(cfg.TUI.RefreshRate)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
}

// setConfigKey updates one configuration value and writes the user config.
func setConfigKey(cfg *config.Config, key, value string) {
	var err error
	switch key {
	case "anthropic.api_key":
		if err := config.ValidateAPIKey(value); err != nil {
			fmt.Fprintf(os.Stderr, "Invalid value for %s: %v\n", key, err)
			os.Exit(1)
		}
		cfg.Anthropic.APIKey = value
	case "anthropic.model":
		cfg.Anthropic.Model = value
	case "anthropic.use_bedrock":
		cfg.Anthropic.UseBedrock = value == "true"
	case "server.addr":
		cfg.Server.Addr = value
	case "sandbox.endpoint":
		cfg.Sandbox.Endpoint = value
	case "images.endpoint":
		cfg.Images.Endpoint = value
	case "sandbox.settle_time":
		cfg.Sandbox.SettleTime, err = time.ParseDuration(value)
	case "sandbox.create_timeout":
		cfg.Sandbox.CreateTimeout, err = time.ParseDuration(value)
	case "store.path":
		cfg.Store.Path = value
	case "timeouts.department":
		cfg.Timeouts.Department, err = time.ParseDuration(value)
	case "tui.refresh_rate":
		cfg.TUI.RefreshRate, err = time.ParseDuration(value)
	default:
		fmt.Fprintf(os.Stderr, "Unknown config key: %s\n", key)
		os.Exit(1)
	}
	if err != nil {
		fmt.Fprintf(os.Stderr, "Invalid value for %s: %v\n", key, err)
		os.Exit(1)
	}

	if err := config.Save(cfg); err != nil {
		fmt.Fprintf(os.Stderr, "Error saving config: %v\n", err)
		os.Exit(1)
	}
	fmt.Printf("Set %s = %s\n", key, value)
	fmt.Printf("Written to %s\n", config.GetUserConfigPath())
}
