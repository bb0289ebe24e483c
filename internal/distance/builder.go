// internal/distance/builder.go
package distance

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/goburrow/modbus"
	"github.com/goburrow/serial"

	"github.com/tamzrod/beacon-guard/internal/clock"
	cfg "github.com/tamzrod/beacon-guard/internal/config"
)

// Build opens the serial link described by c and returns the matching
// Source plus a closer for the port.
// Opening is attempted once: a port that cannot be opened is a startup fault.
func Build(c cfg.SerialConfig, clk clock.Clock, logger *slog.Logger) (Source, func() error, error) {
	if c.Port == "" {
		return nil, nil, errors.New("distance: serial port required")
	}
	timeout := time.Duration(c.ReadTimeoutMs) * time.Millisecond

	switch c.Protocol {
	case cfg.ProtocolModbus:
		h := modbus.NewRTUClientHandler(c.Port)
		h.BaudRate = c.Baud
		h.DataBits = 8
		h.Parity = "N"
		h.StopBits = 1
		h.SlaveId = c.Modbus.SlaveID
		h.Timeout = timeout
		if err := h.Connect(); err != nil {
			return nil, nil, fmt.Errorf("distance: open %s: %w", c.Port, err)
		}
		src := NewModbusSource(modbus.NewClient(h), c.Modbus.Address, c.Modbus.Scale, logger)
		return src, h.Close, nil

	default:
		port, err := serial.Open(&serial.Config{
			Address:  c.Port,
			BaudRate: c.Baud,
			DataBits: 8,
			StopBits: 1,
			Parity:   "N",
			Timeout:  timeout,
		})
		if err != nil {
			return nil, nil, fmt.Errorf("distance: open %s: %w", c.Port, err)
		}
		src := NewLineSource(port, LineOptions{
			Drain:      time.Duration(c.DrainMs) * time.Millisecond,
			StaleAfter: c.StaleAfter,
			Clock:      clk,
			Logger:     logger,
		})
		return src, port.Close, nil
	}
}
