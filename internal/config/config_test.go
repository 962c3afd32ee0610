package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func writeConfigFile(t *testing.T, yaml string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(yaml), 0600); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	return path
}

const minimalValidConfig = `
notifications:
  sensu:
    enabled: true
`

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()
	s := cfg.Notifications.Sensu

	if !s.Enabled {
		t.Error("Sensu.Enabled should default to true")
	}
	if s.Host != "127.0.0.1" {
		t.Errorf("Sensu.Host = %q, want %q", s.Host, "127.0.0.1")
	}
	if s.Port != 3030 {
		t.Errorf("Sensu.Port = %d, want 3030", s.Port)
	}
	if s.Name != "Backup Results" {
		t.Errorf("Sensu.Name = %q, want %q", s.Name, "Backup Results")
	}
	if len(s.Handler) != 1 || s.Handler[0] != "default" {
		t.Errorf("Sensu.Handler = %v, want [default]", s.Handler)
	}
	if !cfg.Policy.OnSuccess || !cfg.Policy.OnWarning || !cfg.Policy.OnFailure {
		t.Errorf("Policy = %+v, want all true", cfg.Policy)
	}
	if cfg.History.RetentionDays != 30 {
		t.Errorf("History.RetentionDays = %d, want 30", cfg.History.RetentionDays)
	}
}

func TestDefaultSensuHandler_FreshCopy(t *testing.T) {
	a := DefaultSensuHandler()
	a[0] = "mutated"
	if b := DefaultSensuHandler(); b[0] != "default" {
		t.Errorf("DefaultSensuHandler()[0] = %q after mutating a previous copy", b[0])
	}
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfigFile(t, minimalValidConfig)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Notifications.Sensu.Port != 3030 {
		t.Errorf("port = %d, want default 3030", cfg.Notifications.Sensu.Port)
	}
}

func TestLoad_SensuOverrides(t *testing.T) {
	yaml := `
notifications:
  sensu:
    enabled: true
    host: "10.0.0.5"
    port: 3131
    name: "Nightly Backups"
    handler: ["pagerduty", "default"]
policy:
  on_success: false
`
	path := writeConfigFile(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	s := cfg.Notifications.Sensu
	if s.Host != "10.0.0.5" || s.Port != 3131 || s.Name != "Nightly Backups" {
		t.Errorf("sensu = %+v", s)
	}
	if len(s.Handler) != 2 || s.Handler[0] != "pagerduty" || s.Handler[1] != "default" {
		t.Errorf("handler = %v, want [pagerduty default]", s.Handler)
	}
	if cfg.Policy.OnSuccess {
		t.Error("on_success should be false")
	}
	if !cfg.Policy.OnFailure {
		t.Error("on_failure should keep its default")
	}
}

func TestLoad_EnvVarExpansion(t *testing.T) {
	t.Setenv("BACKUPNOTIFY_TEST_TOPIC", "backups")
	t.Setenv("BACKUPNOTIFY_TEST_TOKEN", "my-secret-token")

	yaml := `
notifications:
  sensu:
    enabled: false
  ntfy:
    enabled: true
    topic: "${BACKUPNOTIFY_TEST_TOPIC}"
    token: "${BACKUPNOTIFY_TEST_TOKEN}"
`
	path := writeConfigFile(t, yaml)
	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error: %v", err)
	}
	if cfg.Notifications.Ntfy.Topic != "backups" {
		t.Errorf("Topic = %q, want %q", cfg.Notifications.Ntfy.Topic, "backups")
	}
	if cfg.Notifications.Ntfy.Token != "my-secret-token" {
		t.Errorf("Token = %q, want %q", cfg.Notifications.Ntfy.Token, "my-secret-token")
	}
}

func TestLoad_FileNotFound(t *testing.T) {
	_, err := Load("/nonexistent/path/config.yaml")
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !strings.Contains(err.Error(), "reading config") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "reading config")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfigFile(t, "{{{{not: valid yaml at all")
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "parsing config") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "parsing config")
	}
}

func TestLoad_ValidationFailure(t *testing.T) {
	yaml := `
notifications:
  sensu:
    enabled: false
`
	path := writeConfigFile(t, yaml)
	_, err := Load(path)
	if err == nil {
		t.Fatal("expected validation error")
	}
	if !strings.Contains(err.Error(), "invalid config") {
		t.Errorf("error = %q, want it to contain %q", err.Error(), "invalid config")
	}
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name    string
		set     func(*Config)
		wantErr string
	}{
		{"defaults", func(c *Config) {}, ""},
		{"no notifiers", func(c *Config) { c.Notifications.Sensu.Enabled = false }, "at least one notification channel"},
		{"port too high", func(c *Config) { c.Notifications.Sensu.Port = 70000 }, "out of range"},
		{"negative port", func(c *Config) { c.Notifications.Sensu.Port = -1 }, "out of range"},
		{"zero port selects default", func(c *Config) { c.Notifications.Sensu.Port = 0 }, ""},
		{"ntfy missing topic", func(c *Config) { c.Notifications.Ntfy.Enabled = true }, "topic"},
		{"webhook missing url", func(c *Config) { c.Notifications.Webhook.Enabled = true }, "url"},
		{"webhook bad method", func(c *Config) {
			c.Notifications.Webhook.Enabled = true
			c.Notifications.Webhook.URL = "http://example.com"
			c.Notifications.Webhook.Method = "DELETE"
		}, "invalid webhook method"},
		{"webhook put", func(c *Config) {
			c.Notifications.Webhook.Enabled = true
			c.Notifications.Webhook.URL = "http://example.com"
			c.Notifications.Webhook.Method = "put"
		}, ""},
		{"history without path", func(c *Config) { c.History.Path = "" }, "history path"},
		{"history disabled without path", func(c *Config) {
			c.History.Enabled = false
			c.History.Path = ""
		}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.set(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error: %v", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("expected error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("error = %q, want it to contain %q", err.Error(), tt.wantErr)
			}
		})
	}
}

func TestHasNotifier(t *testing.T) {
	tests := []struct {
		name string
		set  func(*Config)
		want bool
	}{
		{"none", func(c *Config) { c.Notifications.Sensu.Enabled = false }, false},
		{"sensu", func(c *Config) {}, true},
		{"ntfy", func(c *Config) {
			c.Notifications.Sensu.Enabled = false
			c.Notifications.Ntfy.Enabled = true
		}, true},
		{"webhook", func(c *Config) {
			c.Notifications.Sensu.Enabled = false
			c.Notifications.Webhook.Enabled = true
		}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.set(cfg)
			if got := cfg.HasNotifier(); got != tt.want {
				t.Errorf("HasNotifier() = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestLoadEnvFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env")
	if err := os.WriteFile(path, []byte("BACKUPNOTIFY_TEST_TOKEN=from-file\n"), 0600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	t.Setenv("BACKUPNOTIFY_TEST_TOKEN", "")
	os.Unsetenv("BACKUPNOTIFY_TEST_TOKEN")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("BACKUPNOTIFY_TEST_TOKEN"); got != "from-file" {
		t.Errorf("token = %q, want from-file", got)
	}
}

func TestLoadEnvFile_KeepsExistingValue(t *testing.T) {
	path := filepath.Join(t.TempDir(), "env")
	if err := os.WriteFile(path, []byte("BACKUPNOTIFY_TEST_TOKEN=from-file\n"), 0600); err != nil {
		t.Fatalf("writing env file: %v", err)
	}
	t.Setenv("BACKUPNOTIFY_TEST_TOKEN", "from-shell")

	if err := LoadEnvFile(path); err != nil {
		t.Fatalf("LoadEnvFile: %v", err)
	}
	if got := os.Getenv("BACKUPNOTIFY_TEST_TOKEN"); got != "from-shell" {
		t.Errorf("token = %q, want from-shell", got)
	}
}

func TestLoadEnvFile_Missing(t *testing.T) {
	if err := LoadEnvFile(filepath.Join(t.TempDir(), "nope")); err != nil {
		t.Errorf("LoadEnvFile(missing) error: %v", err)
	}
	if err := LoadEnvFile(""); err != nil {
		t.Errorf("LoadEnvFile(\"\") error: %v", err)
	}
}
