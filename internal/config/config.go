package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"os"
	"path/filepath"
	"time"

	"gopkg.in/yaml.v3"
)

// Config holds the settings of the controller server and its CLI client.
type Config struct {
	// ServerAddress is the gRPC address the server listens on and the CLI dials.
	ServerAddress string `yaml:"server_addr"`
	// Timeout bounds every HTTP call to the node and every RPC call.
	Timeout time.Duration `yaml:"timeout"`
	// LogLevel is the minimum zap level name.
	LogLevel string `yaml:"log_level"`
	// Door configures the node and the watch timing.
	Door DoorConfig `yaml:"door"`
	// HomeKit configures the optional HomeKit accessory.
	HomeKit HomeKitConfig `yaml:"homekit"`
	// MQTT configures the optional MQTT bridge.
	MQTT MQTTConfig `yaml:"mqtt"`
	// InfluxDB configures the optional state telemetry.
	InfluxDB InfluxDBConfig `yaml:"influxdb"`
}

// DoorConfig describes the relay/sensor node and how long a door movement is watched.
type DoorConfig struct {
	// Name identifies the door in logs, topics and the accessory.
	Name string `yaml:"name"`
	// NodeURL is the base URL of the node: GET returns sensors, POST /relay toggles.
	NodeURL string `yaml:"node_url"`
	// RefreshInterval is the delay between two polls of a watch session.
	RefreshInterval time.Duration `yaml:"refresh_interval"`
	// MaximumDuration is how long a watch session may run before escalating.
	MaximumDuration time.Duration `yaml:"maximum_duration"`
	// CommandAttempts is the number of toggle attempts per command.
	CommandAttempts int `yaml:"command_attempts"`
	// RefetchOnTimeout makes the expiry check read the sensors once more before classifying.
	RefetchOnTimeout bool `yaml:"refetch_on_timeout"`
}

// HomeKitConfig configures the HomeKit IP transport.
type HomeKitConfig struct {
	Enabled      bool   `yaml:"enabled"`
	Pin          string `yaml:"pin"`
	Port         string `yaml:"port"`
	StoragePath  string `yaml:"storage_path"`
	Manufacturer string `yaml:"manufacturer"`
	Model        string `yaml:"model"`
	SerialNumber string `yaml:"serial_number"`
}

// MQTTConfig configures the MQTT bridge.
type MQTTConfig struct {
	Enabled     bool   `yaml:"enabled"`
	Broker      string `yaml:"broker"`
	ClientID    string `yaml:"client_id"`
	TopicPrefix string `yaml:"topic_prefix"`
	QoS         byte   `yaml:"qos"`
}

// InfluxDBConfig configures the InfluxDB v2 writer.
type InfluxDBConfig struct {
	Enabled bool   `yaml:"enabled"`
	URL     string `yaml:"url"`
	Token   string `yaml:"token"`
	Org     string `yaml:"org"`
	Bucket  string `yaml:"bucket"`
}

const (
	// DefaultConfigFilename is the default filename for the settings.
	DefaultConfigFilename = "garage-door-settings.yaml"

	// DefaultTimeout is the default duration for network operations.
	DefaultTimeout = 5 * time.Second

	// DefaultDoorName is used when the door has no name configured.
	DefaultDoorName = "Garage Door"

	// DefaultRefreshInterval is the default delay between two polls.
	DefaultRefreshInterval = 5 * time.Second

	// DefaultMaximumDuration is the default watch budget.
	DefaultMaximumDuration = 60 * time.Second

	// DefaultCommandAttempts is the default number of toggle attempts.
	DefaultCommandAttempts = 5

	// DefaultHomeKitStoragePath is where the HomeKit pairing data is kept.
	DefaultHomeKitStoragePath = "./homekit"

	// DefaultTopicPrefix is the MQTT topic prefix.
	DefaultTopicPrefix = "garage/door"

	// DefaultClientID is the MQTT client identifier.
	DefaultClientID = "garage-door"

	// DefaultFilePermissions is the default file permission for config files.
	DefaultFilePermissions = 0o600

	// maxQoS is the highest MQTT quality of service level.
	maxQoS = 2
)

var (
	// errConfigIsNotSet is returned when a nil configuration is provided.
	errConfigIsNotSet = errors.New("configuration is not set")
	// errServerAddressRequired is returned when the server address is missing.
	errServerAddressRequired = errors.New("server address must be provided")
	// ErrNotHTTPURL is returned for a URL that is not an absolute http(s) URL.
	ErrNotHTTPURL = errors.New("url must be an absolute http or https url")

	// errNodeURLRequired is returned when the node URL is missing.
	errNodeURLRequired = errors.New("door node url must be provided")
	// errBudgetTooShort is returned when the watch budget does not exceed the interval.
	errBudgetTooShort = errors.New("maximum duration must be greater than refresh interval")
	// errHomeKitPin is returned when HomeKit is enabled without a pin.
	errHomeKitPin = errors.New("homekit pin must be 8 digits")
	// errMQTTBroker is returned when MQTT is enabled without a broker.
	errMQTTBroker = errors.New("mqtt broker must be provided")
	// errMQTTQoS is returned for an unsupported MQTT QoS.
	errMQTTQoS = errors.New("mqtt qos must be 0, 1 or 2")
	// errInfluxDB is returned when InfluxDB is enabled but incomplete.
	errInfluxDB = errors.New("influxdb url, org and bucket must be provided")
)

// Load reads configuration from the provided path and validates it.
func Load(path string) (*Config, error) {
	if path == "" {
		path = DefaultConfigFilename
	}

	contents, err := os.ReadFile(filepath.Clean(path))
	if err != nil {
		return nil, fmt.Errorf("read settings: %w", err)
	}

	var cfg Config
	if err := yaml.Unmarshal(contents, &cfg); err != nil {
		return nil, fmt.Errorf("unmarshal settings: %w", err)
	}

	if err := Validate(&cfg); err != nil {
		return nil, err
	}

	return &cfg, nil
}

// Save writes the settings to the provided path.
func Save(path string, cfg *Config) error {
	if cfg == nil {
		return errConfigIsNotSet
	}

	if path == "" {
		path = DefaultConfigFilename
	}

	if err := Validate(cfg); err != nil {
		return err
	}

	data, err := yaml.Marshal(cfg)
	if err != nil {
		return fmt.Errorf("marshal settings: %w", err)
	}

	// Restrict permissions, the file may carry tokens.
	if err := os.WriteFile(filepath.Clean(path), data, DefaultFilePermissions); err != nil {
		return fmt.Errorf("write settings: %w", err)
	}

	return nil
}

// Validate checks required fields and fills defaults in place.
func Validate(settings *Config) error {
	if settings == nil {
		return errConfigIsNotSet
	}

	if settings.ServerAddress == "" {
		return errServerAddressRequired
	}

	if _, err := net.ResolveTCPAddr("tcp", settings.ServerAddress); err != nil {
		return fmt.Errorf("invalid server address: %w", err)
	}

	if settings.Timeout <= 0 {
		settings.Timeout = DefaultTimeout
	}

	if settings.LogLevel == "" {
		settings.LogLevel = "info"
	}

	if err := validateDoor(&settings.Door); err != nil {
		return err
	}

	if err := validateHomeKit(&settings.HomeKit); err != nil {
		return err
	}

	if err := validateMQTT(&settings.MQTT); err != nil {
		return err
	}

	return validateInfluxDB(&settings.InfluxDB)
}

// validateDoor checks the node URL and the watch timing.
func validateDoor(door *DoorConfig) error {
	if door.NodeURL == "" {
		return errNodeURLRequired
	}

	if err := ValidateHTTPURL(door.NodeURL); err != nil {
		return fmt.Errorf("invalid door node url: %w", err)
	}

	if door.Name == "" {
		door.Name = DefaultDoorName
	}

	if door.RefreshInterval <= 0 {
		door.RefreshInterval = DefaultRefreshInterval
	}

	if door.MaximumDuration <= 0 {
		door.MaximumDuration = DefaultMaximumDuration
	}

	if door.MaximumDuration <= door.RefreshInterval {
		return fmt.Errorf("%w: %s <= %s", errBudgetTooShort, door.MaximumDuration, door.RefreshInterval)
	}

	if door.CommandAttempts <= 0 {
		door.CommandAttempts = DefaultCommandAttempts
	}

	return nil
}

// validateHomeKit checks the accessory settings when HomeKit is enabled.
func validateHomeKit(homeKit *HomeKitConfig) error {
	if !homeKit.Enabled {
		return nil
	}

	if len(homeKit.Pin) != 8 {
		return errHomeKitPin
	}

	for _, r := range homeKit.Pin {
		if r < '0' || r > '9' {
			return errHomeKitPin
		}
	}

	if homeKit.StoragePath == "" {
		homeKit.StoragePath = DefaultHomeKitStoragePath
	}

	return nil
}

// validateMQTT checks the bridge settings when MQTT is enabled.
func validateMQTT(mqtt *MQTTConfig) error {
	if !mqtt.Enabled {
		return nil
	}

	if mqtt.Broker == "" {
		return errMQTTBroker
	}

	if mqtt.QoS > maxQoS {
		return errMQTTQoS
	}

	if mqtt.ClientID == "" {
		mqtt.ClientID = DefaultClientID
	}

	if mqtt.TopicPrefix == "" {
		mqtt.TopicPrefix = DefaultTopicPrefix
	}

	return nil
}

// validateInfluxDB checks the telemetry settings when InfluxDB is enabled.
func validateInfluxDB(influx *InfluxDBConfig) error {
	if !influx.Enabled {
		return nil
	}

	if influx.URL == "" || influx.Org == "" || influx.Bucket == "" {
		return errInfluxDB
	}

	if err := ValidateHTTPURL(influx.URL); err != nil {
		return fmt.Errorf("invalid influxdb url: %w", err)
	}

	return nil
}

// ValidateHTTPURL checks that raw is an absolute http or https URL with a host.
func ValidateHTTPURL(raw string) error {
	parsed, err := url.Parse(raw)
	if err != nil {
		return fmt.Errorf("%w: %w", ErrNotHTTPURL, err)
	}

	if (parsed.Scheme != "http" && parsed.Scheme != "https") || parsed.Host == "" {
		return fmt.Errorf("%w: %q", ErrNotHTTPURL, raw)
	}

	return nil
}
