// internal/config/validate.go
package config

import (
	"errors"
	"fmt"
	"net"
	"net/url"
	"strings"
)

// MaxChannel is the highest distance channel index (4-channel reader).
const MaxChannel = 3

// Validate checks configuration correctness.
// It performs declarative validation only.
// Zero values are accepted where Normalize supplies a default.
// It MUST NOT mutate configuration.
func Validate(cfg *Config) error {
	if cfg == nil {
		return errors.New("config is nil")
	}
	g := cfg.Guard

	if g.TickMs < 0 {
		return fmt.Errorf("tick_ms must be > 0, got %d", g.TickMs)
	}

	// ------------------------------------------------------------
	// BACKEND
	// ------------------------------------------------------------

	if g.Backend.BaseURL == "" {
		return errors.New("backend.base_url is required")
	}
	u, err := url.Parse(g.Backend.BaseURL)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") || u.Host == "" {
		return fmt.Errorf("backend.base_url %q must be an absolute http(s) URL", g.Backend.BaseURL)
	}
	if g.Backend.TimeoutMs < 0 {
		return fmt.Errorf("backend.timeout_ms must be > 0, got %d", g.Backend.TimeoutMs)
	}

	// ------------------------------------------------------------
	// SERIAL
	// ------------------------------------------------------------

	if g.Serial.Port == "" {
		return errors.New("serial.port is required")
	}
	if g.Serial.Baud < 0 || g.Serial.ReadTimeoutMs < 0 || g.Serial.DrainMs < 0 || g.Serial.StaleAfter < 0 {
		return errors.New("serial: baud, read_timeout_ms, drain_ms and stale_after must not be negative")
	}
	switch g.Serial.Protocol {
	case "", ProtocolLines, ProtocolModbus:
	default:
		return fmt.Errorf("serial.protocol %q: want %q or %q", g.Serial.Protocol, ProtocolLines, ProtocolModbus)
	}
	if g.Serial.Modbus.Scale < 0 {
		return fmt.Errorf("serial.modbus.scale must be > 0, got %v", g.Serial.Modbus.Scale)
	}
	if g.Serial.Modbus.SlaveID > 247 {
		return fmt.Errorf("serial.modbus.slave_id %d out of range 1-247", g.Serial.Modbus.SlaveID)
	}

	// ------------------------------------------------------------
	// FUSION POLICY (exactly one)
	// ------------------------------------------------------------

	switch g.Distance.Policy {
	case "", PolicyTooClose, PolicyTooFar:
	default:
		return fmt.Errorf("distance.policy %q: want %q or %q", g.Distance.Policy, PolicyTooClose, PolicyTooFar)
	}
	if g.Distance.ThresholdCm < 0 {
		return fmt.Errorf("distance.threshold_cm must be > 0, got %v", g.Distance.ThresholdCm)
	}

	// ------------------------------------------------------------
	// ACTUATOR
	// ------------------------------------------------------------

	if g.Alarm.Pin != nil && *g.Alarm.Pin < 0 {
		return fmt.Errorf("alarm.pin must be >= 0, got %d", *g.Alarm.Pin)
	}
	p := g.Alarm.Pattern
	if p.OnMs < 0 || p.OffMs < 0 || p.PauseMs < 0 || p.Pulses < 0 {
		return errors.New("alarm.pattern: durations and pulses must not be negative")
	}

	// ------------------------------------------------------------
	// REGISTRY
	// ------------------------------------------------------------

	switch g.Registry.Source {
	case "", SourceConfig:
		if len(g.Assets) == 0 {
			return errors.New("no assets configured")
		}
	case SourcePostgres:
		if g.Registry.PostgresURL == "" {
			return errors.New("registry.postgres_url is required when registry.source is postgres")
		}
	default:
		return fmt.Errorf("registry.source %q: want %q or %q", g.Registry.Source, SourceConfig, SourcePostgres)
	}

	serials := make(map[string]int)
	macs := make(map[string]int)
	for i, a := range g.Assets {
		serial := strings.TrimSpace(a.Serial)
		if serial == "" {
			return fmt.Errorf("assets[%d]: serial is required", i)
		}
		if err := ValidateMAC(a.MAC); err != nil {
			return fmt.Errorf("asset %q: %w", serial, err)
		}
		if a.Channel != nil && (*a.Channel < 0 || *a.Channel > MaxChannel) {
			return fmt.Errorf("asset %q: channel %d out of range 0-%d", serial, *a.Channel, MaxChannel)
		}

		if prev, exists := serials[serial]; exists {
			return fmt.Errorf("duplicate serial %q in assets[%d] and assets[%d]", serial, prev, i)
		}
		serials[serial] = i

		mac := strings.ToUpper(strings.TrimSpace(a.MAC))
		if prev, exists := macs[mac]; exists {
			return fmt.Errorf("duplicate mac %s in assets[%d] and assets[%d]", mac, prev, i)
		}
		macs[mac] = i
	}

	// ------------------------------------------------------------
	// REPORTED STATE STORE
	// ------------------------------------------------------------

	switch g.State.Backend {
	case "", StateMemory:
	case StateRedis:
		if g.State.RedisAddr == "" {
			return errors.New("state.redis_addr is required when state.backend is redis")
		}
	default:
		return fmt.Errorf("state.backend %q: want %q or %q", g.State.Backend, StateMemory, StateRedis)
	}

	if g.Telemetry.Queue < 0 {
		return fmt.Errorf("telemetry.queue must not be negative, got %d", g.Telemetry.Queue)
	}

	return nil
}

// ValidateMAC accepts six colon-separated hex octets, either case.
func ValidateMAC(mac string) error {
	mac = strings.TrimSpace(mac)
	if mac == "" {
		return errors.New("mac is required")
	}
	hw, err := net.ParseMAC(mac)
	if err != nil || len(hw) != 6 || strings.Count(mac, ":") != 5 {
		return fmt.Errorf("mac %q: want six colon-separated hex octets", mac)
	}
	return nil
}
