package config

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

const validJWTSecret = "test-secret-key-at-least-32-chars!"

// writeConfig writes content to a config.yaml inside a fresh temp dir.
func writeConfig(t *testing.T, content string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte(content), 0600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	return path
}

func TestLoad_ValidConfig(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
cloud:
  client_id: "abc"
  secret: "shh"
  region: "us"
bridge:
  sync_interval: 1m
  resync_delay: 500ms
  platforms: ["google", "matter"]
database:
  path: "/tmp/test.db"
api:
  port: 8091
security:
  jwt:
    secret: "`+validJWTSecret+`"
`)

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}

	if cfg.Site.ID != "test-site" {
		t.Errorf("Site.ID = %q, want %q", cfg.Site.ID, "test-site")
	}
	if cfg.Cloud.Region != "us" {
		t.Errorf("Cloud.Region = %q, want %q", cfg.Cloud.Region, "us")
	}
	if cfg.Bridge.SyncInterval != time.Minute {
		t.Errorf("Bridge.SyncInterval = %v, want 1m", cfg.Bridge.SyncInterval)
	}
	if cfg.Bridge.ResyncDelay != 500*time.Millisecond {
		t.Errorf("Bridge.ResyncDelay = %v, want 500ms", cfg.Bridge.ResyncDelay)
	}
	if len(cfg.Bridge.Platforms) != 2 {
		t.Errorf("Bridge.Platforms = %v, want 2 entries", cfg.Bridge.Platforms)
	}
	// Defaults survive when the file omits a section.
	if cfg.Cloud.RequestTimeout != 15*time.Second {
		t.Errorf("Cloud.RequestTimeout = %v, want default 15s", cfg.Cloud.RequestTimeout)
	}
}

func TestLoad_MissingFile(t *testing.T) {
	if _, err := Load("/nonexistent/path/config.yaml"); err == nil {
		t.Error("Load() expected error for missing file, got nil")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	path := writeConfig(t, "invalid: [yaml: content")
	if _, err := Load(path); err == nil {
		t.Error("Load() expected error for invalid YAML, got nil")
	}
}

func TestLoad_DotEnvSuppliesCredentials(t *testing.T) {
	path := writeConfig(t, `
site:
  id: "test-site"
`)
	env := strings.Join([]string{
		"CLOUDBRIDGE_CLOUD_CLIENT_ID=from-dotenv",
		"CLOUDBRIDGE_CLOUD_SECRET=dotenv-secret",
		"CLOUDBRIDGE_JWT_SECRET=" + validJWTSecret,
	}, "\n")
	if err := os.WriteFile(filepath.Join(filepath.Dir(path), ".env"), []byte(env), 0600); err != nil {
		t.Fatalf("write .env: %v", err)
	}
	// godotenv writes into the process environment; make sure the test
	// leaves nothing behind.
	for _, k := range []string{"CLOUDBRIDGE_CLOUD_CLIENT_ID", "CLOUDBRIDGE_CLOUD_SECRET", "CLOUDBRIDGE_JWT_SECRET"} {
		t.Setenv(k, "")
		os.Unsetenv(k)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("Load() error = %v", err)
	}
	if cfg.Cloud.ClientID != "from-dotenv" {
		t.Errorf("Cloud.ClientID = %q, want %q", cfg.Cloud.ClientID, "from-dotenv")
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	t.Setenv("CLOUDBRIDGE_CLOUD_REGION", "in")
	t.Setenv("CLOUDBRIDGE_CLOUD_SECRET", "env-secret")
	t.Setenv("CLOUDBRIDGE_BRIDGE_PLATFORMS", "alexa, homekit,,")

	cfg := defaultConfig()
	applyEnvOverrides(cfg)

	if cfg.Cloud.Region != "in" {
		t.Errorf("Cloud.Region = %q, want %q", cfg.Cloud.Region, "in")
	}
	if cfg.Cloud.Secret != "env-secret" {
		t.Errorf("Cloud.Secret = %q, want %q", cfg.Cloud.Secret, "env-secret")
	}
	if got := strings.Join(cfg.Bridge.Platforms, ","); got != "alexa,homekit" {
		t.Errorf("Bridge.Platforms = %q, want %q", got, "alexa,homekit")
	}
}

func TestConfig_Validate(t *testing.T) {
	valid := func() *Config {
		cfg := defaultConfig()
		cfg.Cloud.ClientID = "client"
		cfg.Cloud.Secret = "secret"
		cfg.Security.JWT.Secret = validJWTSecret
		return cfg
	}

	tests := []struct {
		name    string
		mutate  func(*Config)
		wantErr string
	}{
		{name: "valid config", mutate: func(*Config) {}},
		{name: "missing client id", mutate: func(c *Config) { c.Cloud.ClientID = "" }, wantErr: "cloud.client_id"},
		{name: "missing secret", mutate: func(c *Config) { c.Cloud.Secret = "" }, wantErr: "cloud.secret"},
		{name: "empty site id", mutate: func(c *Config) { c.Site.ID = "" }, wantErr: "site.id"},
		{name: "sync interval too short", mutate: func(c *Config) { c.Bridge.SyncInterval = time.Millisecond }, wantErr: "sync_interval"},
		{name: "negative resync delay", mutate: func(c *Config) { c.Bridge.ResyncDelay = -time.Second }, wantErr: "resync_delay"},
		{name: "unknown platform", mutate: func(c *Config) { c.Bridge.Platforms = []string{"zigbee"} }, wantErr: "zigbee"},
		{name: "invalid qos", mutate: func(c *Config) { c.MQTT.QoS = 3 }, wantErr: "mqtt.qos"},
		{name: "invalid port", mutate: func(c *Config) { c.API.Port = 0 }, wantErr: "api.port"},
		{name: "influx without url", mutate: func(c *Config) { c.InfluxDB.Enabled = true }, wantErr: "influxdb.url"},
		{name: "short jwt secret", mutate: func(c *Config) { c.Security.JWT.Secret = "short" }, wantErr: "at least 32"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := valid()
			tt.mutate(cfg)
			err := cfg.Validate()
			if tt.wantErr == "" {
				if err != nil {
					t.Errorf("Validate() error = %v, want nil", err)
				}
				return
			}
			if err == nil {
				t.Fatalf("Validate() error = nil, want error containing %q", tt.wantErr)
			}
			if !strings.Contains(err.Error(), tt.wantErr) {
				t.Errorf("Validate() error = %v, want it to contain %q", err, tt.wantErr)
			}
		})
	}
}

func TestConfig_Timeouts(t *testing.T) {
	cfg := defaultConfig()
	if got := cfg.GetReadTimeout(); got != 30*time.Second {
		t.Errorf("GetReadTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetWriteTimeout(); got != 30*time.Second {
		t.Errorf("GetWriteTimeout() = %v, want 30s", got)
	}
	if got := cfg.GetIdleTimeout(); got != 60*time.Second {
		t.Errorf("GetIdleTimeout() = %v, want 60s", got)
	}
}
