// internal/config/config.go
package config

type Config struct {
	Guard GuardConfig `yaml:"guard"`
}

type GuardConfig struct {
	TickMs    int             `yaml:"tick_ms"`
	Backend   BackendConfig   `yaml:"backend"`
	Serial    SerialConfig    `yaml:"serial"`
	Distance  DistanceConfig  `yaml:"distance"`
	Alarm     AlarmConfig     `yaml:"alarm"`
	Registry  RegistryConfig  `yaml:"registry"`
	Assets    []AssetConfig   `yaml:"assets"`
	State     StateConfig     `yaml:"state"`
	MQTT      MQTTConfig      `yaml:"mqtt"`
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// ---- BACKEND ----

type BackendConfig struct {
	BaseURL   string `yaml:"base_url"`
	TimeoutMs int    `yaml:"timeout_ms"`
}

// ---- SERIAL (distance source) ----

const (
	ProtocolLines  = "lines"
	ProtocolModbus = "modbus"
)

type SerialConfig struct {
	Port          string `yaml:"port"`
	Baud          int    `yaml:"baud"`
	ReadTimeoutMs int    `yaml:"read_timeout_ms"`
	DrainMs       int    `yaml:"drain_ms"`    // lines: max time spent draining per poll
	StaleAfter    int    `yaml:"stale_after"` // lines: polls without a valid line before warning
	Protocol      string `yaml:"protocol"`

	Modbus ModbusConfig `yaml:"modbus"`
}

type ModbusConfig struct {
	SlaveID uint8   `yaml:"slave_id"`
	Address uint16  `yaml:"address"`
	Scale   float64 `yaml:"scale"` // register units per centimeter
}

// ---- FUSION ----

const (
	PolicyTooClose = "too_close"
	PolicyTooFar   = "too_far"
)

type DistanceConfig struct {
	Policy      string  `yaml:"policy"`
	ThresholdCm float64 `yaml:"threshold_cm"`
}

// ---- ACTUATOR ----

type AlarmConfig struct {
	Chip      string        `yaml:"chip"`
	Pin       *int          `yaml:"pin"`
	ActiveLow bool          `yaml:"active_low"`
	Pattern   PatternConfig `yaml:"pattern"`
}

// PatternConfig: Pulses x (on, off), then pause. Pulses=1, pause=0 is a
// plain square wave.
type PatternConfig struct {
	OnMs    int `yaml:"on_ms"`
	OffMs   int `yaml:"off_ms"`
	Pulses  int `yaml:"pulses"`
	PauseMs int `yaml:"pause_ms"`
}

// ---- REGISTRY ----

const (
	SourceConfig   = "config"
	SourcePostgres = "postgres"
)

type RegistryConfig struct {
	Source      string `yaml:"source"`
	PostgresURL string `yaml:"postgres_url"`
}

type AssetConfig struct {
	Serial  string `yaml:"serial"`
	MAC     string `yaml:"mac"`
	Channel *int   `yaml:"channel"` // optional
}

// ---- REPORTED STATE ----

const (
	StateMemory = "memory"
	StateRedis  = "redis"
)

type StateConfig struct {
	Backend   string `yaml:"backend"`
	RedisAddr string `yaml:"redis_addr"`
	RedisDB   int    `yaml:"redis_db"`
	KeyPrefix string `yaml:"key_prefix"`
}

// ---- EVENTS ----

type MQTTConfig struct {
	Broker   string `yaml:"broker"` // empty disables publishing
	ClientID string `yaml:"client_id"`
	Username string `yaml:"username"`
	Password string `yaml:"password"`
	Topic    string `yaml:"topic"`
	LogTopic string `yaml:"log_topic"`
}

type TelemetryConfig struct {
	Disabled bool `yaml:"disabled"`
	Queue    int  `yaml:"queue"`
}
