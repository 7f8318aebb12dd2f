// Package config loads and persists webpilot configuration from
// ~/.webpilot/config.yaml, with environment-variable overrides for
// credentials.
package config

import (
	"fmt"
	"os"
	"path/filepath"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration document.
type Config struct {
	LLM     LLMConfig     `yaml:"llm"`
	MCP     MCPConfig     `yaml:"mcp"`
	Browser BrowserConfig `yaml:"browser"`

	// ServerWhitelist holds glob patterns of external tool servers the
	// agent may install without prompting (e.g. "gmail", "github*").
	// Empty means any server is allowed.
	ServerWhitelist []string `yaml:"server_whitelist"`
}

// LLMConfig configures the LLM provider.
type LLMConfig struct {
	APIKey      string  `yaml:"api_key"`
	BaseURL     string  `yaml:"base_url"`
	Model       string  `yaml:"model"`
	Temperature float64 `yaml:"temperature"`
}

// MCPConfig configures the external tool-server remote API.
type MCPConfig struct {
	APIKey       string `yaml:"api_key"`
	BaseURL      string `yaml:"base_url"`
	PlatformName string `yaml:"platform_name"`
}

// BrowserConfig configures the browser driver.
type BrowserConfig struct {
	Headless bool `yaml:"headless"`
}

// Default values applied where the file is silent.
const (
	DefaultModel        = "gpt-4o"
	DefaultTemperature  = 0.2
	DefaultMCPBaseURL   = "https://api.klavis.ai"
	DefaultPlatformName = "webpilot"
)

// DefaultPath returns ~/.webpilot/config.yaml.
func DefaultPath() (string, error) {
	homeDir, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get user home directory: %w", err)
	}
	return filepath.Join(homeDir, ".webpilot", "config.yaml"), nil
}

// Load reads the configuration from path, merges defaults, and applies
// environment overrides (OPENAI_API_KEY, OPENAI_BASE_URL, KLAVIS_API_KEY).
// A missing file is not an error; defaults and environment are used.
func Load(path string) (*Config, error) {
	cfg := &Config{}

	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return nil, err
		}
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !os.IsNotExist(err) {
			return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
		}
	} else if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	cfg.applyDefaults()
	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.LLM.Model == "" {
		c.LLM.Model = DefaultModel
	}
	if c.LLM.Temperature == 0 {
		c.LLM.Temperature = DefaultTemperature
	}
	if c.MCP.BaseURL == "" {
		c.MCP.BaseURL = DefaultMCPBaseURL
	}
	if c.MCP.PlatformName == "" {
		c.MCP.PlatformName = DefaultPlatformName
	}
}

func (c *Config) applyEnv() {
	if key := os.Getenv("OPENAI_API_KEY"); key != "" {
		c.LLM.APIKey = key
	}
	if url := os.Getenv("OPENAI_BASE_URL"); url != "" {
		c.LLM.BaseURL = url
	}
	if key := os.Getenv("KLAVIS_API_KEY"); key != "" {
		c.MCP.APIKey = key
	}
}

// Save writes the configuration to path, creating parent directories.
func (c *Config) Save(path string) error {
	if path == "" {
		var err error
		if path, err = DefaultPath(); err != nil {
			return err
		}
	}

	if err := os.MkdirAll(filepath.Dir(path), 0750); err != nil {
		return fmt.Errorf("failed to create config directory: %w", err)
	}

	data, err := yaml.Marshal(c)
	if err != nil {
		return fmt.Errorf("failed to marshal config: %w", err)
	}
	if err := os.WriteFile(path, data, 0600); err != nil {
		return fmt.Errorf("failed to write config file: %w", err)
	}
	return nil
}
