package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/nerrad567/gray-logic-cloudbridge/internal/auth"
)

const testSecret = "test-secret-for-development-only-0123456789"

// writeConfig writes a minimal valid config with MQTT and InfluxDB disabled
// and points CLOUDBRIDGE_CONFIG at it.
func writeConfig(t *testing.T, extra string) string {
	t.Helper()
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  id: test-site

cloud:
  client_id: test-client
  secret: test-secret
  base_url: "http://127.0.0.1:1"
  request_timeout: 1s

database:
  path: "` + filepath.Join(dir, "bridge.db") + `"
  wal_mode: true
  busy_timeout: 5

mqtt:
  enabled: false

influxdb:
  enabled: false

logging:
  level: error
  format: text
  output: stdout

api:
  host: "127.0.0.1"
  port: 18091

security:
  jwt:
    secret: "` + testSecret + `"
    issuer: test-issuer
` + extra
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatalf("failed to write test config: %v", err)
	}
	t.Setenv(configEnv, path)
	return path
}

func TestRun_InvalidConfig(t *testing.T) {
	t.Setenv(configEnv, "/nonexistent/path/config.yaml")

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := run(ctx); err == nil {
		t.Fatal("run() should fail with invalid config path")
	}
}

func TestRun_MissingCloudCredentials(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := `
site:
  id: test-site
security:
  jwt:
    secret: "` + testSecret + `"
`
	if err := os.WriteFile(path, []byte(content), 0o600); err != nil {
		t.Fatal(err)
	}
	t.Setenv(configEnv, path)
	t.Setenv("CLOUDBRIDGE_CLOUD_CLIENT_ID", "")
	t.Setenv("CLOUDBRIDGE_CLOUD_SECRET", "")

	err := run(context.Background())
	if err == nil {
		t.Fatal("run() should fail without cloud credentials")
	}
	if !strings.Contains(err.Error(), "cloud.client_id") {
		t.Errorf("error = %v, want mention of cloud.client_id", err)
	}
}

// An unreachable cloud fails authentication, which aborts startup.
func TestRun_UnreachableCloud(t *testing.T) {
	writeConfig(t, "")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	err := run(ctx)
	if err == nil {
		t.Fatal("run() should fail when the cloud is unreachable")
	}
	if !strings.Contains(err.Error(), "initialising bridge") {
		t.Errorf("error = %v, want initialisation failure", err)
	}
}

func TestGetConfigPath_Default(t *testing.T) {
	t.Setenv(configEnv, "")
	if got := getConfigPath(); got != defaultConfigPath {
		t.Errorf("getConfigPath() = %q, want %q", got, defaultConfigPath)
	}
}

func TestGetConfigPath_EnvOverride(t *testing.T) {
	t.Setenv(configEnv, "/custom/path/config.yaml")
	if got := getConfigPath(); got != "/custom/path/config.yaml" {
		t.Errorf("getConfigPath() = %q", got)
	}
}

func TestIssueToken(t *testing.T) {
	writeConfig(t, "")

	var out bytes.Buffer
	if err := issueToken([]string{"-subject", "dashboard", "-scope", "control", "-ttl", "1h"}, &out); err != nil {
		t.Fatalf("issueToken() error = %v", err)
	}

	claims, err := auth.ParseToken(strings.TrimSpace(out.String()), testSecret, "test-issuer")
	if err != nil {
		t.Fatalf("ParseToken() error = %v", err)
	}
	if claims.Subject != "dashboard" || claims.Scope != auth.ScopeControl {
		t.Errorf("claims = %+v", claims)
	}
}

func TestIssueToken_Errors(t *testing.T) {
	writeConfig(t, "")

	tests := []struct {
		name string
		args []string
	}{
		{"missing subject", []string{"-scope", "read"}},
		{"bad scope", []string{"-subject", "x", "-scope", "admin"}},
		{"unknown flag", []string{"-nope"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var out bytes.Buffer
			if err := issueToken(tt.args, &out); err == nil {
				t.Error("issueToken() should fail")
			}
		})
	}
}

func TestMetricsRegistry(t *testing.T) {
	reg := newMetricsRegistry()
	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("Gather() error = %v", err)
	}
	var sawGo bool
	for _, f := range families {
		if strings.HasPrefix(f.GetName(), "go_") {
			sawGo = true
		}
	}
	if !sawGo {
		t.Error("registry should expose Go runtime metrics")
	}
}
