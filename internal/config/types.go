package config

import (
	"fmt"
	"time"

	"gopkg.in/yaml.v3"
)

// Config represents the complete premiere-bridge configuration.
type Config struct {
	Service ServiceConfig `yaml:"service"`
	Bridge  BridgeConfig  `yaml:"bridge"`
	Journal JournalConfig `yaml:"journal"`
	API     APIConfig     `yaml:"api,omitempty"`
}

// ServiceConfig defines core service settings.
type ServiceConfig struct {
	Name     string `yaml:"name"`
	LogLevel string `yaml:"log_level"`
}

// BridgeConfig defines the command/response scratch directory settings.
type BridgeConfig struct {
	// Dir is the scratch directory shared with the panel. Empty means a
	// fresh session-scoped directory under the system temp dir.
	Dir          string   `yaml:"dir,omitempty"`
	Timeout      Duration `yaml:"timeout"`
	PollInterval Duration `yaml:"poll_interval"`
	// SweepAfter is the age at which orphaned command/response files are
	// reclaimed. Zero disables sweeping.
	SweepAfter Duration `yaml:"sweep_after,omitempty"`
}

// JournalConfig defines the command audit log settings.
type JournalConfig struct {
	Path string `yaml:"path"`
}

// APIConfig defines HTTP API server settings.
type APIConfig struct {
	Enabled bool          `yaml:"enabled"`
	Listen  string        `yaml:"listen"`
	Auth    APIAuthConfig `yaml:"auth"`
}

// APIAuthConfig defines API authentication settings.
type APIAuthConfig struct {
	// APIKey is the legacy single bearer token (admin/full access).
	// Prefer Tokens for scoped access.
	APIKey string     `yaml:"api_key"`
	Tokens []APIToken `yaml:"tokens,omitempty"`
}

// APIToken defines a bearer token and its scopes.
type APIToken struct {
	Token  string   `yaml:"token"`
	Scopes []string `yaml:"scopes"`
}

// Duration accepts YAML duration strings like "30s" or "100ms".
type Duration time.Duration

// D returns the value as a time.Duration.
func (d Duration) D() time.Duration { return time.Duration(d) }

func (d Duration) MarshalYAML() (any, error) {
	return time.Duration(d).String(), nil
}

func (d *Duration) UnmarshalYAML(value *yaml.Node) error {
	var s string
	if err := value.Decode(&s); err != nil {
		return fmt.Errorf("duration must be a string like \"30s\": %w", err)
	}
	parsed, err := time.ParseDuration(s)
	if err != nil {
		return fmt.Errorf("invalid duration %q: %w", s, err)
	}
	*d = Duration(parsed)
	return nil
}

// Defaults returns a Config with sensible defaults.
func Defaults() *Config {
	return &Config{
		Service: ServiceConfig{
			Name:     "premiere-bridge",
			LogLevel: "info",
		},
		Bridge: BridgeConfig{
			Timeout:      Duration(30 * time.Second),
			PollInterval: Duration(100 * time.Millisecond),
			SweepAfter:   Duration(1 * time.Hour),
		},
		Journal: JournalConfig{
			Path: "./data/journal.db",
		},
		API: APIConfig{
			Enabled: false,
			Listen:  "127.0.0.1:8221",
			Auth: APIAuthConfig{
				APIKey: "",
			},
		},
	}
}
