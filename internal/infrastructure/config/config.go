package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-rf433/internal/rf433"
)

// Config is the root configuration structure for the RF433 bridge.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Site      SiteConfig      `yaml:"site"`
	Receiver  ReceiverConfig  `yaml:"receiver"`
	Database  DatabaseConfig  `yaml:"database"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	API       APIConfig       `yaml:"api"`
	WebSocket WebSocketConfig `yaml:"websocket"`
	InfluxDB  InfluxDBConfig  `yaml:"influxdb"`
	Discovery DiscoveryConfig `yaml:"discovery"`
	Modbus    ModbusConfig    `yaml:"modbus"`
	Logging   LoggingConfig   `yaml:"logging"`
}

// SiteConfig contains site-specific information.
type SiteConfig struct {
	ID   string `yaml:"id"`
	Name string `yaml:"name"`
}

// ReceiverConfig describes the 433 MHz receiver and its decoding rule.
// Zero timing values take the protocol's defaults.
type ReceiverConfig struct {
	// Pin is the GPIO name of the receiver data line (e.g. "GPIO17").
	Pin string `yaml:"pin"`

	// Protocol is "switch" or "sensor".
	Protocol string `yaml:"protocol"`

	ZeroThresholdUS uint32 `yaml:"zero_threshold_us"`
	OneThresholdUS  uint32 `yaml:"one_threshold_us"`
	SyncThresholdUS uint32 `yaml:"sync_threshold_us"`
	NoiseFloorUS    uint32 `yaml:"noise_floor_us"`
	PreambleMin     int    `yaml:"preamble_min"`
	RawLength       int    `yaml:"raw_length"`
	QueueSize       int    `yaml:"queue_size"`

	// DedupWindowMS suppresses repeats of the same frame (milliseconds).
	DedupWindowMS int `yaml:"dedup_window_ms"`

	// ProbePin is an optional debug output toggled on every edge.
	ProbePin string `yaml:"probe_pin"`

	// HealthInterval is the health publish period in seconds.
	HealthInterval int `yaml:"health_interval"`
}

// DatabaseConfig contains SQLite database settings.
type DatabaseConfig struct {
	Path        string `yaml:"path"`
	WALMode     bool   `yaml:"wal_mode"`
	BusyTimeout int    `yaml:"busy_timeout"`
}

// MQTTConfig contains MQTT broker connection settings.
type MQTTConfig struct {
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

// MQTTReconnectConfig contains MQTT reconnection settings.
type MQTTReconnectConfig struct {
	InitialDelay int `yaml:"initial_delay"`
	MaxDelay     int `yaml:"max_delay"`
	MaxAttempts  int `yaml:"max_attempts"`
}

// APIConfig contains HTTP diagnostics server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
	CORS     CORSConfig       `yaml:"cors"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// CORSConfig contains Cross-Origin Resource Sharing settings.
type CORSConfig struct {
	AllowedOrigins []string `yaml:"allowed_origins"`
}

// WebSocketConfig contains WebSocket server settings.
type WebSocketConfig struct {
	Path           string `yaml:"path"`
	MaxMessageSize int    `yaml:"max_message_size"`
	PingInterval   int    `yaml:"ping_interval"`
	PongTimeout    int    `yaml:"pong_timeout"`
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

// DiscoveryConfig controls mDNS/DNS-SD advertisement of the API.
type DiscoveryConfig struct {
	Enabled  bool   `yaml:"enabled"`
	Instance string `yaml:"instance"`
	Service  string `yaml:"service"`
	Domain   string `yaml:"domain"`
}

// ModbusConfig contains the Modbus TCP register export settings.
type ModbusConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Endpoint     string `yaml:"endpoint"` // host:port
	UnitID       int    `yaml:"unit_id"`
	BaseRegister int    `yaml:"base_register"`
	Slots        int    `yaml:"slots"`
	Timeout      int    `yaml:"timeout"` // seconds
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"` // json, text, console, auto
	Output string `yaml:"output"` // stdout, stderr
}

// Load reads configuration from a YAML file and applies environment variable overrides.
//
// The configuration loading order is:
//  1. Default values (hardcoded)
//  2. YAML file values (override defaults)
//  3. Environment variables (override file values)
//
// Environment variables follow the pattern: GRAYLOGIC_SECTION_KEY
// For example: GRAYLOGIC_RF433_PIN, GRAYLOGIC_MQTT_HOST
func Load(path string) (*Config, error) {
	cfg := defaultConfig()

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading config file: %w", err)
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parsing config file: %w", err)
	}

	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("validating config: %w", err)
	}

	return cfg, nil
}

// Default returns the built-in configuration with environment overrides
// applied. Used when no config file is given.
func Default() *Config {
	cfg := defaultConfig()
	applyEnvOverrides(cfg)
	return cfg
}

// defaultConfig returns a Config with sensible defaults.
func defaultConfig() *Config {
	return &Config{
		Site: SiteConfig{
			ID:   "site-001",
			Name: "Gray Logic",
		},
		Receiver: ReceiverConfig{
			Pin:            "GPIO17",
			Protocol:       "switch",
			HealthInterval: 30,
		},
		Database: DatabaseConfig{
			Path:        "./data/rf433.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "graylogic-rf433",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
			},
		},
		API: APIConfig{
			Enabled: true,
			Host:    "0.0.0.0",
			Port:    8433,
			Timeouts: APITimeoutConfig{
				Read:  30,
				Write: 30,
				Idle:  60,
			},
		},
		WebSocket: WebSocketConfig{
			Path:           "/ws",
			MaxMessageSize: 8192,
			PingInterval:   30,
			PongTimeout:    10,
		},
		InfluxDB: InfluxDBConfig{
			BatchSize:     100,
			FlushInterval: 10,
		},
		Discovery: DiscoveryConfig{
			Instance: "graylogic-rf433",
			Service:  "_graylogic-rf433._tcp",
			Domain:   "local.",
		},
		Modbus: ModbusConfig{
			UnitID:  1,
			Slots:   8,
			Timeout: 5,
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
	// Receiver
	if v := os.Getenv("GRAYLOGIC_RF433_PIN"); v != "" {
		cfg.Receiver.Pin = v
	}
	if v := os.Getenv("GRAYLOGIC_RF433_PROTOCOL"); v != "" {
		cfg.Receiver.Protocol = v
	}

	// Database
	if v := os.Getenv("GRAYLOGIC_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("GRAYLOGIC_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("GRAYLOGIC_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("GRAYLOGIC_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("GRAYLOGIC_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Modbus
	if v := os.Getenv("GRAYLOGIC_MODBUS_ENDPOINT"); v != "" {
		cfg.Modbus.Endpoint = v
	}
}

// Validate checks the configuration for errors.
func (c *Config) Validate() error {
	var errs []string

	if c.Site.ID == "" {
		errs = append(errs, "site.id is required")
	}

	// Receiver: the decoder's own checks run on the converted config.
	if c.Receiver.Pin == "" {
		errs = append(errs, "receiver.pin is required")
	}
	if c.Receiver.DedupWindowMS < 0 {
		errs = append(errs, "receiver.dedup_window_ms must not be negative")
	}
	if rc, err := c.ReceiverConfig(); err != nil {
		errs = append(errs, "receiver: "+err.Error())
	} else if err := rc.Validate(); err != nil {
		errs = append(errs, "receiver: "+err.Error())
	}

	if c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}

	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required when influxdb is enabled")
	}

	if c.Discovery.Enabled && c.Discovery.Service == "" {
		errs = append(errs, "discovery.service is required when discovery is enabled")
	}

	if c.Modbus.Enabled {
		if c.Modbus.Endpoint == "" {
			errs = append(errs, "modbus.endpoint is required when modbus is enabled")
		}
		if c.Modbus.UnitID < 1 || c.Modbus.UnitID > 247 {
			errs = append(errs, "modbus.unit_id must be between 1 and 247")
		}
		if c.Modbus.BaseRegister < 0 || c.Modbus.BaseRegister > 0xFFFF {
			errs = append(errs, "modbus.base_register must be between 0 and 65535")
		}
		if c.Modbus.Slots < 1 {
			errs = append(errs, "modbus.slots must be positive")
		}
	}

	switch c.Logging.Format {
	case "json", "text", "console", "auto":
	default:
		errs = append(errs, "logging.format must be json, text, console or auto")
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// ReceiverConfig converts the receiver section into a decoder config.
// Unset timing fields are filled from the protocol preset by rf433.Init.
func (c *Config) ReceiverConfig() (rf433.Config, error) {
	v, err := rf433.ParseVariant(c.Receiver.Protocol)
	if err != nil {
		return rf433.Config{}, err
	}

	rc := rf433.Config{
		Pin:             c.Receiver.Pin,
		Variant:         v,
		ZeroThresholdUS: c.Receiver.ZeroThresholdUS,
		OneThresholdUS:  c.Receiver.OneThresholdUS,
		SyncThresholdUS: c.Receiver.SyncThresholdUS,
		NoiseFloorUS:    c.Receiver.NoiseFloorUS,
		PreambleMin:     c.Receiver.PreambleMin,
		RawLength:       c.Receiver.RawLength,
		QueueSize:       c.Receiver.QueueSize,
		DedupWindow:     time.Duration(c.Receiver.DedupWindowMS) * time.Millisecond,
	}
	return rc.WithDefaults(), nil
}

// GetHealthInterval returns the health publish period as a Duration.
func (c *Config) GetHealthInterval() time.Duration {
	return time.Duration(c.Receiver.HealthInterval) * time.Second
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
