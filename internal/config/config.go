// Package config loads the daemon configuration from a YAML file with
// environment-variable overrides. Configuration is read once at startup and
// never hot-reloaded.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds all hyprpilot configuration.
type Config struct {
	// Gemini API settings.
	AI AIConfig `yaml:"ai"`

	// Web gateway bind settings.
	Web WebConfig `yaml:"web"`

	// Context store location.
	Store StoreConfig `yaml:"store"`

	// Telemetry sampling.
	Telemetry TelemetryConfig `yaml:"telemetry"`

	// Log verbosity ("debug", "info", ...). The --verbose flag wins.
	LogLevel string `yaml:"log_level"`
}

// AIConfig configures the Gemini model client.
type AIConfig struct {
	APIKey string `yaml:"api_key"`
	Model  string `yaml:"model"`
}

// WebConfig configures the HTTP/WebSocket gateway.
type WebConfig struct {
	Host string `yaml:"host"`
	Port int    `yaml:"port"`
}

// StoreConfig configures the sqlite context store.
type StoreConfig struct {
	DatabasePath string `yaml:"database_path"`
	// HyprlandConfigPath is where keybindings are parsed from.
	HyprlandConfigPath string `yaml:"hyprland_config_path"`
}

// TelemetryConfig configures the system sampler. Intervals are plain
// seconds in the YAML file.
type TelemetryConfig struct {
	IntervalSeconds int `yaml:"interval_seconds"`
	// PersistSeconds is how often the daemon snapshots full system
	// state into the context store.
	PersistSeconds int `yaml:"persist_seconds"`
}

// Interval returns the sampling cadence as a duration.
func (t TelemetryConfig) Interval() time.Duration {
	return time.Duration(t.IntervalSeconds) * time.Second
}

// PersistInterval returns the state-persist cadence as a duration.
func (t TelemetryConfig) PersistInterval() time.Duration {
	return time.Duration(t.PersistSeconds) * time.Second
}

// Default returns the built-in configuration. Paths are resolved against
// the user's home directory.
func Default() Config {
	home, _ := os.UserHomeDir()
	return Config{
		AI: AIConfig{
			Model: "gemini-2.0-flash",
		},
		Web: WebConfig{
			Host: "127.0.0.1",
			Port: 8765,
		},
		Store: StoreConfig{
			DatabasePath:       filepath.Join(home, ".local", "share", "hyprpilot", "context.db"),
			HyprlandConfigPath: filepath.Join(home, ".config", "hypr", "hyprland.conf"),
		},
		Telemetry: TelemetryConfig{
			IntervalSeconds: 5,
			PersistSeconds:  30,
		},
		LogLevel: "info",
	}
}

// DefaultPath returns the conventional config file location.
func DefaultPath() string {
	home, _ := os.UserHomeDir()
	return filepath.Join(home, ".config", "hyprpilot", "config.yaml")
}

// Load reads configuration from path, falling back to defaults when the
// file does not exist. Environment overrides are applied last.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = DefaultPath()
	}

	data, err := os.ReadFile(path)
	switch {
	case os.IsNotExist(err):
		// No file is fine; defaults plus env carry the daemon.
	case err != nil:
		return cfg, fmt.Errorf("read config %s: %w", path, err)
	default:
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			return cfg, fmt.Errorf("parse config %s: %w", path, err)
		}
	}

	cfg.applyEnv()

	if err := cfg.validate(); err != nil {
		return cfg, err
	}
	return cfg, nil
}

func (c *Config) applyEnv() {
	if v := os.Getenv("GEMINI_API_KEY"); v != "" {
		c.AI.APIKey = v
	}
	if v := os.Getenv("HYPRPILOT_MODEL"); v != "" {
		c.AI.Model = v
	}
	if v := os.Getenv("HYPRPILOT_HOST"); v != "" {
		c.Web.Host = v
	}
	if v := os.Getenv("HYPRPILOT_DB"); v != "" {
		c.Store.DatabasePath = v
	}
	if v := os.Getenv("HYPRPILOT_LOG_LEVEL"); v != "" {
		c.LogLevel = v
	}
}

func (c *Config) validate() error {
	if c.Web.Port <= 0 || c.Web.Port > 65535 {
		return fmt.Errorf("invalid web port %d", c.Web.Port)
	}
	if c.Telemetry.IntervalSeconds <= 0 {
		c.Telemetry.IntervalSeconds = 5
	}
	if c.Telemetry.PersistSeconds <= 0 {
		c.Telemetry.PersistSeconds = 30
	}
	return nil
}
