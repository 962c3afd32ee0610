package config

import (
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"strings"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

const DefaultConfigPath = "/etc/backupnotify/config.yaml"

// Sensu client socket defaults
const (
	DefaultSensuHost = "127.0.0.1"
	DefaultSensuPort = 3030
	DefaultSensuName = "Backup Results"
)

// DefaultSensuHandler returns a fresh copy of the default handler list
func DefaultSensuHandler() []string {
	return []string{"default"}
}

type Config struct {
	Notifications NotificationConfig `yaml:"notifications"`
	Policy        PolicyConfig       `yaml:"policy"`
	History       HistoryConfig      `yaml:"history"`
}

type NotificationConfig struct {
	Sensu   SensuConfig   `yaml:"sensu"`
	Ntfy    NtfyConfig    `yaml:"ntfy"`
	Webhook WebhookConfig `yaml:"webhook"`
}

type SensuConfig struct {
	Enabled bool     `yaml:"enabled"`
	Host    string   `yaml:"host"`
	Port    int      `yaml:"port"`
	Name    string   `yaml:"name"`    // check name reported to the receiver
	Handler []string `yaml:"handler"` // receiver-side handler names
}

type NtfyConfig struct {
	Enabled bool   `yaml:"enabled"`
	Topic   string `yaml:"topic"`
	Server  string `yaml:"server"`
	Token   string `yaml:"token"`
}

type WebhookConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Method  string `yaml:"method"`
}

// PolicyConfig decides which outcomes are reported at all
type PolicyConfig struct {
	OnSuccess bool `yaml:"on_success"`
	OnWarning bool `yaml:"on_warning"`
	OnFailure bool `yaml:"on_failure"`
}

type HistoryConfig struct {
	Enabled       bool   `yaml:"enabled"`
	Path          string `yaml:"path"`
	RetentionDays int    `yaml:"retention_days"`
}

// Load reads and parses the config file, expanding env vars
func Load(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config: %w", err)
	}

	expanded := os.ExpandEnv(string(data))

	cfg := DefaultConfig()
	if err := yaml.Unmarshal([]byte(expanded), cfg); err != nil {
		return nil, fmt.Errorf("parsing config: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns sane defaults
func DefaultConfig() *Config {
	return &Config{
		Notifications: NotificationConfig{
			Sensu: SensuConfig{
				Enabled: true,
				Host:    DefaultSensuHost,
				Port:    DefaultSensuPort,
				Name:    DefaultSensuName,
				Handler: DefaultSensuHandler(),
			},
			Ntfy: NtfyConfig{
				Server: "https://ntfy.sh",
			},
			Webhook: WebhookConfig{
				Method: "POST",
			},
		},
		Policy: PolicyConfig{
			OnSuccess: true,
			OnWarning: true,
			OnFailure: true,
		},
		History: HistoryConfig{
			Enabled:       true,
			Path:          "/var/lib/backupnotify/history.db",
			RetentionDays: 30,
		},
	}
}

// Validate checks the config for errors
func (c *Config) Validate() error {
	if !c.HasNotifier() {
		return fmt.Errorf("at least one notification channel must be enabled")
	}

	// Port 0 falls back to DefaultSensuPort when the notifier is built.
	if c.Notifications.Sensu.Enabled {
		if p := c.Notifications.Sensu.Port; p < 0 || p > 65535 {
			return fmt.Errorf("sensu port %d out of range", p)
		}
	}

	if c.Notifications.Ntfy.Enabled && c.Notifications.Ntfy.Topic == "" {
		return fmt.Errorf("ntfy topic is required when ntfy is enabled")
	}

	if c.Notifications.Webhook.Enabled {
		if c.Notifications.Webhook.URL == "" {
			return fmt.Errorf("webhook url is required when webhook is enabled")
		}
		switch strings.ToUpper(c.Notifications.Webhook.Method) {
		case "", "POST", "PUT":
		default:
			return fmt.Errorf("invalid webhook method: %s (must be POST or PUT)", c.Notifications.Webhook.Method)
		}
	}

	if c.History.Enabled && c.History.Path == "" {
		return fmt.Errorf("history path is required when history is enabled")
	}

	return nil
}

// LoadEnvFile exports the KEY=value pairs in path into the process
// environment so ${VAR} references in the config resolve. Variables that
// are already set keep their value. A missing file is not an error.
func LoadEnvFile(path string) error {
	if path == "" {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			slog.Debug("env file not found", "path", path)
			return nil
		}
		return fmt.Errorf("loading env file: %w", err)
	}
	return nil
}

// HasNotifier returns whether at least one notifier is configured
func (c *Config) HasNotifier() bool {
	return c.Notifications.Sensu.Enabled ||
		c.Notifications.Ntfy.Enabled ||
		c.Notifications.Webhook.Enabled
}
