// internal/distance/modbus.go
package distance

import (
	"encoding/binary"
	"fmt"
	"log/slog"
)

// RegisterReader is the Modbus call the source needs.
// goburrow/modbus.Client satisfies it.
type RegisterReader interface {
	ReadHoldingRegisters(address, quantity uint16) ([]byte, error)
}

// ModbusSource reads Channels consecutive holding registers from an RTU
// slave. Each register is a distance in 1/scale centimeters.
type ModbusSource struct {
	client  RegisterReader
	address uint16
	scale   float64
	logger  *slog.Logger
	last    Snapshot
}

func NewModbusSource(client RegisterReader, address uint16, scale float64, logger *slog.Logger) *ModbusSource {
	if scale <= 0 {
		scale = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &ModbusSource{
		client:  client,
		address: address,
		scale:   scale,
		logger:  logger,
	}
}

// Poll performs one register read. Any failure keeps the previous values.
func (s *ModbusSource) Poll() Snapshot {
	raw, err := s.client.ReadHoldingRegisters(s.address, Channels)
	if err != nil {
		s.logger.Warn("distance register read failed", "address", s.address, "error", err)
		return s.last
	}
	snap, err := decodeRegisters(raw, s.scale)
	if err != nil {
		s.logger.Warn("discarding distance registers", "error", err)
		return s.last
	}
	s.last = snap
	return s.last
}

// decodeRegisters unpacks big-endian registers (Modbus memory order).
func decodeRegisters(raw []byte, scale float64) (Snapshot, error) {
	var snap Snapshot
	if len(raw) != 2*Channels {
		return snap, fmt.Errorf("want %d bytes, got %d", 2*Channels, len(raw))
	}
	for i := 0; i < Channels; i++ {
		snap[i] = float64(binary.BigEndian.Uint16(raw[2*i:])) / scale
	}
	return snap, nil
}
