// internal/config/normalize.go
package config

import "strings"

// Defaults applied by Normalize.
const (
	DefaultTickMs           = 2000
	DefaultBackendTimeoutMs = 5000
	DefaultBaud             = 9600
	DefaultReadTimeoutMs    = 50
	DefaultDrainMs          = 250
	DefaultStaleAfter       = 5
	DefaultThresholdCm      = 5.0
	DefaultChip             = "gpiochip0"
	DefaultPin              = 18
	DefaultOnMs             = 500
	DefaultOffMs            = 500
	DefaultModbusScale      = 1.0
	DefaultKeyPrefix        = "guard:"
	DefaultMQTTClientID     = "beacon-guard"
	DefaultMQTTTopic        = "guard/events"
	DefaultTelemetryQueue   = 32
)

// Normalize applies post-validation normalization.
// It is allowed to mutate configuration.
// It MUST be called only after Validate().
func Normalize(cfg *Config) {
	if cfg == nil {
		return
	}
	g := &cfg.Guard

	if g.TickMs == 0 {
		g.TickMs = DefaultTickMs
	}
	if g.Backend.TimeoutMs == 0 {
		g.Backend.TimeoutMs = DefaultBackendTimeoutMs
	}
	g.Backend.BaseURL = strings.TrimRight(g.Backend.BaseURL, "/")

	// ---- serial ----
	if g.Serial.Baud == 0 {
		g.Serial.Baud = DefaultBaud
	}
	if g.Serial.ReadTimeoutMs == 0 {
		g.Serial.ReadTimeoutMs = DefaultReadTimeoutMs
	}
	if g.Serial.DrainMs == 0 {
		g.Serial.DrainMs = DefaultDrainMs
	}
	if g.Serial.StaleAfter == 0 {
		g.Serial.StaleAfter = DefaultStaleAfter
	}
	if g.Serial.Protocol == "" {
		g.Serial.Protocol = ProtocolLines
	}
	if g.Serial.Modbus.Scale == 0 {
		g.Serial.Modbus.Scale = DefaultModbusScale
	}
	if g.Serial.Modbus.SlaveID == 0 {
		g.Serial.Modbus.SlaveID = 1
	}

	// ---- fusion ----
	if g.Distance.Policy == "" {
		g.Distance.Policy = PolicyTooClose
	}
	if g.Distance.ThresholdCm == 0 {
		g.Distance.ThresholdCm = DefaultThresholdCm
	}

	// ---- actuator ----
	if g.Alarm.Chip == "" {
		g.Alarm.Chip = DefaultChip
	}
	if g.Alarm.Pin == nil {
		pin := DefaultPin
		g.Alarm.Pin = &pin
	}
	p := &g.Alarm.Pattern
	if p.OnMs == 0 {
		p.OnMs = DefaultOnMs
	}
	if p.OffMs == 0 {
		p.OffMs = DefaultOffMs
	}
	if p.Pulses == 0 {
		p.Pulses = 1
	}

	// ---- registry / state ----
	if g.Registry.Source == "" {
		g.Registry.Source = SourceConfig
	}
	for i := range g.Assets {
		g.Assets[i].MAC = strings.ToUpper(strings.TrimSpace(g.Assets[i].MAC))
		g.Assets[i].Serial = strings.TrimSpace(g.Assets[i].Serial)
	}
	if g.State.Backend == "" {
		g.State.Backend = StateMemory
	}
	if g.State.KeyPrefix == "" {
		g.State.KeyPrefix = DefaultKeyPrefix
	}

	// ---- events ----
	if g.MQTT.ClientID == "" {
		g.MQTT.ClientID = DefaultMQTTClientID
	}
	if g.MQTT.Topic == "" {
		g.MQTT.Topic = DefaultMQTTTopic
	}
	if g.Telemetry.Queue == 0 {
		g.Telemetry.Queue = DefaultTelemetryQueue
	}
}
