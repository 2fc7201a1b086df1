package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Config is the root configuration structure for the Scanlink gateway.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	App       AppConfig       `yaml:"app"`
	Server    ServerConfig    `yaml:"server"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Security  SecurityConfig  `yaml:"security"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// AppConfig identifies the running application to scanner clients.
type AppConfig struct {
	// Name is the advertised mDNS instance name.
	Name string `yaml:"name"`

	// Version overrides the build version reported in the handshake reply.
	// Empty means use the version baked in at build time.
	Version string `yaml:"version"`
}

// ServerConfig contains the WebSocket listener settings.
type ServerConfig struct {
	Host           string               `yaml:"host"`
	Port           int                  `yaml:"port"`
	Path           string               `yaml:"path"`
	MaxMessageSize int                  `yaml:"max_message_size"`
	PingInterval   int                  `yaml:"ping_interval"`
	PongTimeout    int                  `yaml:"pong_timeout"`
	SendBuffer     int                  `yaml:"send_buffer"`
	Timeouts       ServerTimeoutsConfig `yaml:"timeouts"`
}

// ServerTimeoutsConfig contains HTTP timeout settings in seconds.
type ServerTimeoutsConfig struct {
	ReadHeader int `yaml:"read_header"`
	Idle       int `yaml:"idle"`
}

// DiscoveryConfig contains local network announcement settings.
type DiscoveryConfig struct {
	Enabled     bool   `yaml:"enabled"`
	ServiceType string `yaml:"service_type"`
	Domain      string `yaml:"domain"`

	// Interface restricts announcements to one network interface.
	// Empty means all multicast-capable interfaces.
	Interface string `yaml:"interface"`

	// TTL is the record time-to-live. Zero keeps the library default.
	TTL time.Duration `yaml:"ttl"`

	// Strategies lists announcement mechanisms in the order they are tried.
	// Known values: "zeroconf", "bonjour".
	Strategies []string `yaml:"strategies"`
}

// DatabaseConfig contains SQLite database settings for the settings store.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains the host channel broker settings.
type MQTTConfig struct {
	Enabled     bool                `yaml:"enabled"`
	Broker      MQTTBrokerConfig    `yaml:"broker"`
	Auth        MQTTAuthConfig      `yaml:"auth"`
	QoS         int                 `yaml:"qos"`
	Reconnect   MQTTReconnectConfig `yaml:"reconnect"`
	TopicPrefix string              `yaml:"topic_prefix"`
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

// MQTTReconnectConfig contains MQTT reconnection settings in seconds.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
}

// InfluxDBConfig contains connection telemetry settings.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`
}

// SecurityConfig contains host API security settings.
type SecurityConfig struct {
	JWT JWTConfig `yaml:"jwt"`
}

// JWTConfig contains host token settings.
//
// With no secret the device endpoints reject every request.
type JWTConfig struct {
	Secret   string `yaml:"secret"`
	TokenTTL int    `yaml:"token_ttl"` // hours
}

// TTL returns the host token lifetime as a Duration.
func (j JWTConfig) TTL() time.Duration {
	return time.Duration(j.TokenTTL) * time.Hour
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// A missing file is not an error: the gateway runs on defaults so it can be
// started without any setup on a desktop machine.
//
// Environment variables follow the pattern: SCANLINK_SECTION_KEY
// For example: SCANLINK_SERVER_PORT, SCANLINK_DATABASE_PATH
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	switch {
	case err == nil:
		if err := yaml.Unmarshal(data, cfg); err != nil {
			return nil, fmt.Errorf("parsing config file: %w", err)
		}
	case os.IsNotExist(err):
		// Defaults only
	default:
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration without reading any file.
func Default() *Config {
	return defaultConfig()
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		App: AppConfig{
			Name: "Scanlink",
		},
		Server: ServerConfig{
			Host:           "0.0.0.0",
			Port:           57891,
			Path:           "/",
			MaxMessageSize: 1 << 20,
			PingInterval:   30,
			PongTimeout:    10,
			SendBuffer:     64,
			Timeouts: ServerTimeoutsConfig{
				ReadHeader: 10,
				Idle:       60,
			},
		},
		Discovery: DiscoveryConfig{
			Enabled:     true,
			ServiceType: "_http._tcp",
			Domain:      "local.",
			Strategies:  []string{"zeroconf", "bonjour"},
		},
		Database: DatabaseConfig{
			Path:        "./data/scanlink.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Enabled: false,
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "scanlink-gateway",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
			TopicPrefix: "scanlink",
		},
		Security: SecurityConfig{
			JWT: JWTConfig{
				TokenTTL: 24 * 30,
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
func applyEnvOverrides(cfg *Config) {
	if v := os.Getenv("SCANLINK_APP_NAME"); v != "" {
		cfg.App.Name = v
	}

	if v := os.Getenv("SCANLINK_SERVER_HOST"); v != "" {
		cfg.Server.Host = v
	}
	if v := os.Getenv("SCANLINK_SERVER_PORT"); v != "" {
		if port, err := strconv.Atoi(v); err == nil {
			cfg.Server.Port = port
		}
	}

	if v := os.Getenv("SCANLINK_DISCOVERY_INTERFACE"); v != "" {
		cfg.Discovery.Interface = v
	}

	if v := os.Getenv("SCANLINK_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	if v := os.Getenv("SCANLINK_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("SCANLINK_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("SCANLINK_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	if v := os.Getenv("SCANLINK_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Keep the host token secret out of config files.
	if v := os.Getenv("SCANLINK_JWT_SECRET"); v != "" {
		cfg.Security.JWT.Secret = v
	}

	if v := os.Getenv("SCANLINK_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// knownStrategies are the discovery mechanisms the gateway can drive.
var knownStrategies = map[string]bool{
	"zeroconf": true,
	"bonjour":  true,
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.App.Name == "" {
		errs = append(errs, "app.name is required")
	}

	// Port 0 binds an ephemeral port, which is then advertised.
	if c.Server.Port < 0 || c.Server.Port > 65535 {
		errs = append(errs, "server.port must be between 0 and 65535")
	}
	if !strings.HasPrefix(c.Server.Path, "/") {
		errs = append(errs, "server.path must start with /")
	}
	if c.Server.MaxMessageSize <= 0 {
		errs = append(errs, "server.max_message_size must be positive")
	}
	if c.Server.PingInterval <= 0 || c.Server.PongTimeout <= 0 {
		errs = append(errs, "server.ping_interval and server.pong_timeout must be positive")
	}

	if c.Discovery.Enabled {
		for _, s := range c.Discovery.Strategies {
			if !knownStrategies[s] {
				errs = append(errs, fmt.Sprintf("discovery.strategies: unknown strategy %q", s))
			}
		}
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.TopicPrefix == "" {
		errs = append(errs, "mqtt.topic_prefix is required when mqtt is enabled")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	const minJWTSecretLength = 32
	if c.Security.JWT.Secret != "" && len(c.Security.JWT.Secret) < minJWTSecretLength {
		errs = append(errs, "security.jwt.secret must be at least 32 characters")
	}
	if c.Security.JWT.TokenTTL <= 0 {
		errs = append(errs, "security.jwt.token_ttl must be positive")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// Addr returns the listen address for the WebSocket server.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}

// PingPeriod returns the keepalive ping interval as a Duration.
func (s ServerConfig) PingPeriod() time.Duration {
	return time.Duration(s.PingInterval) * time.Second
}

// PongWait returns how long a connection may stay silent before it is dropped.
func (s ServerConfig) PongWait() time.Duration {
	return s.PingPeriod() + time.Duration(s.PongTimeout)*time.Second
}
