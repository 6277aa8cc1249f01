package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"

	"github.com/nerrad567/gray-logic-lampfx/internal/effect"
	"github.com/nerrad567/gray-logic-lampfx/internal/zone"
)

// Config is the root configuration structure for lampfx.
// All configuration is loaded from YAML and can be overridden by environment variables.
type Config struct {
	Engine    EngineConfig     `yaml:"engine"`
	Effect    effect.Spec      `yaml:"effect"`
	Overrides []OverrideConfig `yaml:"overrides"`
	Layout    LayoutConfig     `yaml:"layout"`
	Database  DatabaseConfig   `yaml:"database"`
	MQTT      MQTTConfig       `yaml:"mqtt"`
	API       APIConfig        `yaml:"api"`
	InfluxDB  InfluxDBConfig   `yaml:"influxdb"`
	Logging   LoggingConfig    `yaml:"logging"`
	Console   ConsoleConfig    `yaml:"console"`
	Screen    ScreenConfig     `yaml:"screen"`
}

// EngineConfig contains render loop settings.
type EngineConfig struct {
	// FrameRate is the number of frames rendered per second.
	FrameRate int `yaml:"frame_rate"`

	// Brightness scales every channel, 0.0 to 1.0.
	Brightness float64 `yaml:"brightness"`

	// Speed multiplies animation time, 0.1 to 5.0.
	Speed float64 `yaml:"speed"`

	// SmoothTransition blends between effects when switching.
	SmoothTransition bool `yaml:"smooth_transition"`

	// TransitionDuration is the blend length in milliseconds.
	TransitionDuration int `yaml:"transition_duration"`
}

// OverrideConfig pins an effect to a set of lamps.
type OverrideConfig struct {
	// Indices is a range expression such as "0-5,7;9".
	Indices string      `yaml:"indices"`
	Effect  effect.Spec `yaml:"effect"`
}

// LayoutConfig points at the logical keyboard layout file.
type LayoutConfig struct {
	Path string `yaml:"path"`
}

// DatabaseConfig contains SQLite settings for the device inventory.
type DatabaseConfig struct {
	Enabled     bool   `yaml:"enabled"`
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
	Bridge    MQTTBridgeConfig    `yaml:"bridge"`
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

// MQTTBridgeConfig configures networked lamp array discovery.
type MQTTBridgeConfig struct {
	// SettleDelay is how long to collect retained announcements before
	// reporting enumeration complete, in milliseconds.
	SettleDelay int `yaml:"settle_delay"`
}

// APIConfig contains HTTP API server settings.
type APIConfig struct {
	Enabled  bool             `yaml:"enabled"`
	Host     string           `yaml:"host"`
	Port     int              `yaml:"port"`
	Timeouts APITimeoutConfig `yaml:"timeouts"`
}

// APITimeoutConfig contains HTTP timeout settings.
type APITimeoutConfig struct {
	Read  int `yaml:"read"`
	Write int `yaml:"write"`
	Idle  int `yaml:"idle"`
}

// InfluxDBConfig contains InfluxDB connection settings for render telemetry.
type InfluxDBConfig struct {
	Enabled       bool   `yaml:"enabled"`
	URL           string `yaml:"url"`
	Token         string `yaml:"token"`
	Org           string `yaml:"org"`
	Bucket        string `yaml:"bucket"`
	BatchSize     int    `yaml:"batch_size"`
	FlushInterval int    `yaml:"flush_interval"`

	// SampleEvery writes one frame point per this many rendered frames.
	SampleEvery int `yaml:"sample_every"`
}

// LoggingConfig contains logging settings.
type LoggingConfig struct {
	Level  string `yaml:"level"`
	Format string `yaml:"format"`
	Output string `yaml:"output"`
}

// ConsoleConfig configures the terminal preview device.
type ConsoleConfig struct {
	Enabled bool `yaml:"enabled"`

	// Lamps is the number of virtual lamps.
	Lamps int `yaml:"lamps"`

	// Columns is the number of lamps per terminal row.
	Columns int `yaml:"columns"`
}

// ScreenConfig configures the screen feed for the aurora_sync effect.
type ScreenConfig struct {
	Enabled bool `yaml:"enabled"`

	// Path is an image file refreshed by an external capture tool.
	Path string `yaml:"path"`

	// Width and Height are the sampling grid the capture is scaled to.
	Width  int `yaml:"width"`
	Height int `yaml:"height"`

	// Interval between captures in milliseconds.
	Interval int `yaml:"interval"`

	// Capture optionally runs a long-lived helper that keeps Path fresh.
	Capture CaptureConfig `yaml:"capture"`
}

// CaptureConfig supervises the external screen capture helper.
type CaptureConfig struct {
	// Command is the executable and its arguments. Empty disables it.
	Command []string `yaml:"command"`

	// MaxAge is how old the capture file may get, in milliseconds, before
	// the helper is considered hung.
	MaxAge int `yaml:"max_age"`

	// RestartDelay is the first restart backoff step in milliseconds.
	RestartDelay int `yaml:"restart_delay"`

	// MaxRestarts limits consecutive restarts; 0 means unlimited.
	MaxRestarts int `yaml:"max_restarts"`
}

// Load reads configuration from a YAML file and applies environment overrides.
//
// Environment variables override config file values using the pattern:
// LAMPFX_{SECTION}_{KEY} in uppercase with underscores.
// For example: LAMPFX_DATABASE_PATH, LAMPFX_MQTT_HOST
//
// Parameters:
//   - path: Path to the YAML configuration file
//
// Returns:
//   - *Config: Loaded and validated configuration
//   - error: If file cannot be read, parsed, or validation fails
func Load(path string) (*Config, error) {
	cfg := Default()

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

// Default returns a Config with sensible defaults: a static white effect at
// 30 fps, with every optional integration disabled.
func Default() *Config {
	return &Config{
		Engine: EngineConfig{
			FrameRate:          30,
			Brightness:         1.0,
			Speed:              1.0,
			SmoothTransition:   true,
			TransitionDuration: 500,
		},
		Effect: effect.Spec{
			Type:  effect.KindStatic,
			Color: "#ffffff",
		},
		Database: DatabaseConfig{
			Path:        "./data/lampfx.db",
			WALMode:     true,
			BusyTimeout: 5,
		},
		MQTT: MQTTConfig{
			Broker: MQTTBrokerConfig{
				Host:     "localhost",
				Port:     1883,
				ClientID: "lampfx",
			},
			QoS: 1,
			Reconnect: MQTTReconnectConfig{
				InitialDelay: 1,
				MaxDelay:     60,
				MaxAttempts:  0,
			},
			Bridge: MQTTBridgeConfig{
				SettleDelay: 500,
			},
		},
		API: APIConfig{
			Host: "127.0.0.1",
			Port: 8480,
			Timeouts: APITimeoutConfig{
				Read:  10,
				Write: 10,
				Idle:  60,
			},
		},
		InfluxDB: InfluxDBConfig{
			Org:           "lampfx",
			Bucket:        "lampfx",
			BatchSize:     500,
			FlushInterval: 10,
			SampleEvery:   30,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Console: ConsoleConfig{
			Lamps:   24,
			Columns: 12,
		},
		Screen: ScreenConfig{
			Width:    32,
			Height:   12,
			Interval: 100,
			Capture: CaptureConfig{
				MaxAge:       5000,
				RestartDelay: 1000,
			},
		},
	}
}

// applyEnvOverrides applies environment variable overrides to the configuration.
// Environment variables follow the pattern: LAMPFX_SECTION_KEY
func applyEnvOverrides(cfg *Config) {
	// Engine
	if v := os.Getenv("LAMPFX_ENGINE_BRIGHTNESS"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.Brightness = f
		}
	}
	if v := os.Getenv("LAMPFX_ENGINE_SPEED"); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			cfg.Engine.Speed = f
		}
	}

	// Database
	if v := os.Getenv("LAMPFX_DATABASE_PATH"); v != "" {
		cfg.Database.Path = v
	}

	// MQTT
	if v := os.Getenv("LAMPFX_MQTT_HOST"); v != "" {
		cfg.MQTT.Broker.Host = v
	}
	if v := os.Getenv("LAMPFX_MQTT_USERNAME"); v != "" {
		cfg.MQTT.Auth.Username = v
	}
	if v := os.Getenv("LAMPFX_MQTT_PASSWORD"); v != "" {
		cfg.MQTT.Auth.Password = v
	}

	// API
	if v := os.Getenv("LAMPFX_API_HOST"); v != "" {
		cfg.API.Host = v
	}

	// InfluxDB
	if v := os.Getenv("LAMPFX_INFLUXDB_TOKEN"); v != "" {
		cfg.InfluxDB.Token = v
	}

	// Logging
	if v := os.Getenv("LAMPFX_LOG_LEVEL"); v != "" {
		cfg.Logging.Level = v
	}
}

// Validate checks the configuration for errors.
//
// Returns:
//   - error: Description of every validation failure, or nil if valid
func (c *Config) Validate() error {
	var errs []string

	// Engine validation
	if c.Engine.FrameRate < 1 || c.Engine.FrameRate > 240 {
		errs = append(errs, "engine.frame_rate must be between 1 and 240")
	}
	if c.Engine.Brightness < 0 || c.Engine.Brightness > 1 {
		errs = append(errs, "engine.brightness must be between 0 and 1")
	}
	if c.Engine.Speed < 0.1 || c.Engine.Speed > 5 {
		errs = append(errs, "engine.speed must be between 0.1 and 5")
	}
	if c.Engine.TransitionDuration < 0 {
		errs = append(errs, "engine.transition_duration must not be negative")
	}

	// Effects
	if c.Effect.Type != "" {
		if _, err := effect.New(c.Effect); err != nil {
			errs = append(errs, fmt.Sprintf("effect: %v", err))
		}
	}
	for i, o := range c.Overrides {
		if _, err := zone.ParseIndices(o.Indices); err != nil {
			errs = append(errs, fmt.Sprintf("overrides[%d].indices: %v", i, err))
		}
		if _, err := effect.New(o.Effect); err != nil {
			errs = append(errs, fmt.Sprintf("overrides[%d].effect: %v", i, err))
		}
	}

	// Database validation
	if c.Database.Enabled && c.Database.Path == "" {
		errs = append(errs, "database.path is required")
	}

	// MQTT validation
	if c.MQTT.QoS < 0 || c.MQTT.QoS > 2 {
		errs = append(errs, "mqtt.qos must be 0, 1, or 2")
	}
	if c.MQTT.Enabled && c.MQTT.Broker.Host == "" {
		errs = append(errs, "mqtt.broker.host is required")
	}

	// API validation
	if c.API.Enabled && (c.API.Port < 1 || c.API.Port > 65535) {
		errs = append(errs, "api.port must be between 1 and 65535")
	}

	// InfluxDB validation
	if c.InfluxDB.Enabled && c.InfluxDB.URL == "" {
		errs = append(errs, "influxdb.url is required")
	}

	// Screen validation
	if c.Screen.Enabled {
		if c.Screen.Path == "" {
			errs = append(errs, "screen.path is required")
		}
		if c.Screen.Width < 1 || c.Screen.Height < 1 {
			errs = append(errs, "screen.width and screen.height must be positive")
		}
		if len(c.Screen.Capture.Command) > 0 && c.Screen.Capture.MaxAge < 1 {
			errs = append(errs, "screen.capture.max_age must be positive")
		}
	}

	if len(errs) > 0 {
		return fmt.Errorf("configuration errors: %s", strings.Join(errs, "; "))
	}

	return nil
}

// FrameInterval returns the render tick period.
func (c *Config) FrameInterval() time.Duration {
	if c.Engine.FrameRate <= 0 {
		return time.Second / 30
	}
	return time.Second / time.Duration(c.Engine.FrameRate)
}

// TransitionDuration returns the effect blend length.
func (c *Config) TransitionDuration() time.Duration {
	return time.Duration(c.Engine.TransitionDuration) * time.Millisecond
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
