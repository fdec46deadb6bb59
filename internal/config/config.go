// Package config provides YAML-based configuration loading for Automatix.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the top-level Automatix configuration, loaded from automatix.yaml.
type Config struct {
	ScriptDirs []string        `yaml:"script_dirs"`
	SSH        SSHConfig       `yaml:"ssh"`
	History    HistoryConfig   `yaml:"history"`
	Notify     NotifyConfig    `yaml:"notify"`
	Dashboard  DashboardConfig `yaml:"dashboard"`
	Defaults   DefaultsConfig  `yaml:"defaults"`
	Sync       SyncConfig      `yaml:"sync"`
}

// SSHConfig holds defaults for remote command execution.
type SSHConfig struct {
	User                  string        `yaml:"user"`
	KeyFile               string        `yaml:"key_file"`
	ConnectTimeout        time.Duration `yaml:"connect_timeout"`
	InsecureIgnoreHostKey bool          `yaml:"insecure_ignore_host_key"`
}

// HistoryConfig holds connection settings for the run-history store.
type HistoryConfig struct {
	Driver     string `yaml:"driver"` // sqlite or mysql
	SQLitePath string `yaml:"sqlite_path"`
	Host       string `yaml:"host"`
	Port       int    `yaml:"port"`
	Database   string `yaml:"database"`
	User       string `yaml:"user"`
	Password   string `yaml:"password"`
}

// NotifyConfig configures run-completion notification channels.
type NotifyConfig struct {
	Slack   SlackConfig   `yaml:"slack"`
	Discord DiscordConfig `yaml:"discord"`
	Command string        `yaml:"command"` // shell template, e.g. "notify-send 'Automatix' '{{.Subject}}'"
}

// SlackConfig holds Slack notifier credentials.
type SlackConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DiscordConfig holds Discord notifier credentials.
type DiscordConfig struct {
	BotToken string `yaml:"bot_token"`
	Channel  string `yaml:"channel"`
}

// DashboardConfig holds settings for the HTTP dashboard.
type DashboardConfig struct {
	Port int `yaml:"port"`
}

// DefaultsConfig holds execution defaults that scripts may override.
type DefaultsConfig struct {
	StepTimeout time.Duration `yaml:"step_timeout"`
	MaxParallel int           `yaml:"max_parallel"`
}

// SyncConfig points at a GitHub repository directory holding shared scripts.
type SyncConfig struct {
	Owner string `yaml:"owner"`
	Repo  string `yaml:"repo"`
	Path  string `yaml:"path"`
	Ref   string `yaml:"ref"`
	Token string `yaml:"token"`
}

// DefaultPath returns the config file path: the AUTOMATIX_CONFIG environment
// variable if set, otherwise automatix.yaml in the working directory.
func DefaultPath() string {
	if p := os.Getenv("AUTOMATIX_CONFIG"); p != "" {
		return p
	}
	return "automatix.yaml"
}

// Load reads a YAML config file from path and returns a validated Config.
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("config: read %s: %w", path, err)
	}
	return Parse(data)
}

// LoadOrDefault loads the config from path if it exists, otherwise returns
// a default config. A missing config file is not an error: every setting
// has a usable default for local runs.
func LoadOrDefault(path string) (*Config, error) {
	if _, err := os.Stat(path); os.IsNotExist(err) {
		cfg := &Config{}
		cfg.applyDefaults()
		return cfg, nil
	}
	return Load(path)
}

// Parse unmarshals YAML bytes into a validated Config.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("config: parse: %w", err)
	}
	cfg.applyDefaults()
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}

// applyDefaults fills in derived and default values.
func (c *Config) applyDefaults() {
	if len(c.ScriptDirs) == 0 {
		c.ScriptDirs = []string{"."}
	}
	if c.SSH.User == "" {
		c.SSH.User = os.Getenv("USER")
	}
	if c.SSH.ConnectTimeout == 0 {
		c.SSH.ConnectTimeout = 10 * time.Second
	}
	if c.History.Driver == "" {
		c.History.Driver = "sqlite"
	}
	if c.History.SQLitePath == "" {
		home, err := os.UserHomeDir()
		if err != nil {
			home = "."
		}
		c.History.SQLitePath = filepath.Join(home, ".automatix", "automatix.db")
	}
	if c.History.Host == "" {
		c.History.Host = "127.0.0.1"
	}
	if c.History.Port == 0 {
		c.History.Port = 3306
	}
	if c.History.Database == "" {
		c.History.Database = "automatix"
	}
	if c.History.User == "" {
		c.History.User = "root"
	}
	if c.Dashboard.Port == 0 {
		c.Dashboard.Port = 8080
	}
	if c.Defaults.StepTimeout == 0 {
		c.Defaults.StepTimeout = 1 * time.Hour
	}
	if c.Defaults.MaxParallel == 0 {
		c.Defaults.MaxParallel = 4
	}
	if c.Sync.Path == "" {
		c.Sync.Path = "scripts"
	}
}

// validate checks that all present fields are consistent.
func (c *Config) validate() error {
	var errs []string
	switch c.History.Driver {
	case "sqlite", "mysql":
	default:
		errs = append(errs, fmt.Sprintf("history.driver must be sqlite or mysql, got %q", c.History.Driver))
	}
	if c.Notify.Slack.BotToken != "" && c.Notify.Slack.Channel == "" {
		errs = append(errs, "notify.slack.channel is required when a slack bot token is set")
	}
	if c.Notify.Discord.BotToken != "" && c.Notify.Discord.Channel == "" {
		errs = append(errs, "notify.discord.channel is required when a discord bot token is set")
	}
	if c.Defaults.MaxParallel < 0 {
		errs = append(errs, "defaults.max_parallel must not be negative")
	}
	if len(errs) > 0 {
		return fmt.Errorf("config: validation failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
