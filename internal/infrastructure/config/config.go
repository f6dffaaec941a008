package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// envPrefix is prepended to every environment override.
const envPrefix = "CLOUDBRIDGE_"

// Config is the root configuration structure for the cloud bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Cloud     CloudConfig     `yaml:"cloud"`
	Bridge    BridgeConfig    `yaml:"bridge"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Logging   LoggingConfig   `yaml:"logging"`
	Security  SecurityConfig  `yaml:"security"`
}

// SiteConfig identifies the installation this bridge serves.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// CloudConfig contains device cloud credentials and endpoint selection.
type CloudConfig struct {
	ClientID string `yaml:"client_id"`
	Secret   string `yaml:"secret"`

	// Region selects the OpenAPI host (cn, us, us-e, eu, eu-w, in).
	Region string `yaml:"region"`

	// BaseURL overrides Region when set. Mostly useful for tests and proxies.
	BaseURL string `yaml:"base_url"`

	// HomeID is the cloud home that owns scenes.
	HomeID string `yaml:"home_id"`

	// RequestTimeout bounds every HTTP round trip to the cloud.
	RequestTimeout time.Duration `yaml:"request_timeout"`
}

// BridgeConfig contains orchestrator behaviour settings.
type BridgeConfig struct {
	ID string `yaml:"id"`

	// SyncInterval is the period of the pull-based resync of every known device.
	SyncInterval time.Duration `yaml:"sync_interval"`

	// ResyncDelay is how long to wait after a successful command before
	// reading the device back.
	ResyncDelay time.Duration `yaml:"resync_delay"`

	// HealthInterval is how often bridge health is published to MQTT.
	HealthInterval time.Duration `yaml:"health_interval"`

	// Platforms lists the ecosystems devices are exposed to.
	// Empty means all supported ecosystems.
	Platforms []string `yaml:"platforms"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
	Enabled   bool                `yaml:"enabled"`
	Broker    MQTTBrokerConfig    `yaml:"broker"`
	Auth      MQTTAuthConfig      `yaml:"auth"`
	QoS       int                 `yaml:"qos"`
	Reconnect MQTTReconnectConfig `yaml:"reconnect"`
}

// MQTTBrokerConfig contains MQTT broker connection details.
type MQTTBrokerConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	TLS      bool   `yaml:"tls"`
	ClientID string `yaml:"client_id"`
}

// MQTTAuthConfig contains MQTT authentication credentials.
type MQTTAuthConfig struct {
	Username string `yaml:"username"`
	Password string `yaml:"password"`
}

// MQTTReconnectConfig contains MQTT reconnection settings (seconds).
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	TLS      TLSConfig        `yaml:"tls"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// TLSConfig contains TLS certificate settings.
type TLSConfig struct {
	Enabled  bool   `yaml:"enabled"`
	CertFile string `yaml:"cert_file"`
	KeyFile  string `yaml:"key_file"`
}

// APITimeoutConfig contains HTTP timeout settings (seconds).
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
	AllowedMethods []string `yaml:"allowed_methods"`
	AllowedHeaders []string `yaml:"allowed_headers"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	MaxMessageSize int `yaml:"max_message_size"`
	PingInterval   int `yaml:"ping_interval"`
	PongTimeout    int `yaml:"pong_timeout"`
}

// InfluxDBConfig contains InfluxDB connection settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// SecurityConfig contains API and webhook security settings.
type SecurityConfig struct {
	JWT     JWTConfig     `yaml:"jwt"`
	Webhook WebhookConfig `yaml:"webhook"`
}

// JWTConfig contains JWT verification settings for the API.
type JWTConfig struct {
	Secret string `yaml:"secret"`
	Issuer string `yaml:"issuer"`
}

// WebhookConfig contains the shared token expected on webhook deliveries.
// An empty token accepts unauthenticated deliveries.
type WebhookConfig struct {
	Token string `yaml:"token"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. A .env file next to the YAML file, if present (never overrides the real environment)
//  4. Environment variables (override file values)
//
// Environment variables follow the pattern: CLOUDBRIDGE_SECTION_KEY
// For example: CLOUDBRIDGE_CLOUD_SECRET, CLOUDBRIDGE_API_PORT
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	if err := loadDotEnv(filepath.Join(filepath.Dir(path), ".env")); err != nil {
		return nil, err
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// loadDotEnv populates the process environment from a dotenv file.
// A missing file is not an error.
func loadDotEnv(path string) error {
	if _, err := os.Stat(path); errors.Is(err, fs.ErrNotExist) {
		return nil
	}
	if err := godotenv.Load(path); err != nil {
		return fmt.Errorf("loading env file %s: %w", path, err)
	}
	return nil
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Cloud: CloudConfig{
			Region:         "eu",
			RequestTimeout: 15 * time.Second,
		},
		Bridge: BridgeConfig{
			ID:             "cloudbridge-01",
			SyncInterval:   5 * time.Minute,
			ResyncDelay:    2 * time.Second,
			HealthInterval: 30 * time.Second,
		},
		Database: DatabaseConfig{
			Path:        "./data/cloudbridge.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: true,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "gray-logic-cloudbridge",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Host: "0.0.0.0",
			Port: 8090,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				Issuer: "gray-logic",
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: CLOUDBRIDGE_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	overrides := map[string]*string{
		"CLOUD_CLIENT_ID": &cfg.Cloud.ClientID,
		"CLOUD_SECRET":    &cfg.Cloud.Secret,
		"CLOUD_REGION":    &cfg.Cloud.Region,
		"CLOUD_BASE_URL":  &cfg.Cloud.BaseURL,
		"CLOUD_HOME_ID":   &cfg.Cloud.HomeID,
		"DATABASE_PATH":   &cfg.Database.Path,
		"MQTT_HOST":       &cfg.MQTT.Broker.Host,
		"MQTT_USERNAME":   &cfg.MQTT.Auth.Username,
		"MQTT_PASSWORD":   &cfg.MQTT.Auth.Password,
		"API_HOST":        &cfg.API.Host,
		"INFLUXDB_TOKEN":  &cfg.InfluxDB.Token,
		"JWT_SECRET":      &cfg.Security.JWT.Secret,
		"WEBHOOK_TOKEN":   &cfg.Security.Webhook.Token,
		"LOGGING_LEVEL":   &cfg.Logging.Level,
		"LOGGING_FORMAT":  &cfg.Logging.Format,
	}

	for key, target := range overrides {
		if v := os.Getenv(envPrefix + key); v != "" {
			*target = v
		}
	}

	if v := os.Getenv(envPrefix + "BRIDGE_PLATFORMS"); v != "" {
		cfg.Bridge.Platforms = splitList(v)
	}
}

// splitList splits a comma separated value, dropping empty items.
func splitList(v string) []string {
	var out []string
	for _, item := range strings.Split(v, ",") {
		if item = strings.TrimSpace(item); item != "" {
			out = append(out, item)
		}
	}
	return out
}

// Validate checks the configuration for errors and security issues.
//
// Returns:
//   - error: Description of validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Cloud credentials are needed for the very first request, so there is
	// no degraded mode without them.
	if c.Cloud.ClientID == "" {
		errs = append(errs, "cloud.client_id is required (set CLOUDBRIDGE_CLOUD_CLIENT_ID)")
	}
	if c.Cloud.Secret == "" {
		errs = append(errs, "cloud.secret is required (set CLOUDBRIDGE_CLOUD_SECRET)")
	}
	if c.Cloud.RequestTimeout <= 0 {
		errs = append(errs, "cloud.request_timeout must be positive")
	}

	if c.Bridge.SyncInterval < time.Second {
		errs = append(errs, "bridge.sync_interval must be at least 1s")
	}
	if c.Bridge.ResyncDelay < 0 {
		errs = append(errs, "bridge.resync_delay cannot be negative")
	}
	for _, p := range c.Bridge.Platforms {
		if !isKnownPlatform(p) {
			errs = append(errs, fmt.Sprintf("bridge.platforms: unknown platform %q", p))
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Port < 1 || c.API.Port > 65535 {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret == "" {
		errs = append(errs, "security.jwt.secret is required (set CLOUDBRIDGE_JWT_SECRET)")
	} else if len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// knownPlatforms mirrors the adapter names in the platform package.
var knownPlatforms = []string{"alexa", "google", "homekit", "smartthings", "matter"}

func isKnownPlatform(name string) bool {
	for _, p := range knownPlatforms {
		if p == name {
			return true
		}
	}
	return false
}

// GetReadTimeout returns the API read timeout as a Duration.
func (c *Config) GetReadTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Read) * time.Second
}

// GetWriteTimeout returns the API write timeout as a Duration.
func (c *Config) GetWriteTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Write) * time.Second
}

// GetIdleTimeout returns the API idle timeout as a Duration.
func (c *Config) GetIdleTimeout() time.Duration {
	return time.Duration(c.API.Timeouts.Idle) * time.Second
}
