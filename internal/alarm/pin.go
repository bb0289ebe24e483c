// internal/alarm/pin.go
package alarm

import (
	"fmt"
	"log/slog"

	"github.com/warthog618/go-gpiocdev"
)

const consumer = "beacon-guard"

// GPIOPin is a buzzer line on a Linux GPIO character device.
// Active-low wiring is handled by the kernel, so Set(true) always means
// "sound".
type GPIOPin struct {
	line *gpiocdev.Line
}

// OpenGPIO requests offset on chip as an output, initially inactive.
func OpenGPIO(chip string, offset int, activeLow bool) (*GPIOPin, error) {
	opts := []gpiocdev.LineReqOption{
		gpiocdev.WithConsumer(consumer),
		gpiocdev.AsOutput(0),
	}
	if activeLow {
		opts = append(opts, gpiocdev.AsActiveLow)
	}
	l, err := gpiocdev.RequestLine(chip, offset, opts...)
	if err != nil {
		return nil, fmt.Errorf("alarm: request %s line %d: %w", chip, offset, err)
	}
	return &GPIOPin{line: l}, nil
}

func (p *GPIOPin) Set(active bool) error {
	v := 0
	if active {
		v = 1
	}
	return p.line.SetValue(v)
}

// Close drives the line inactive and releases it.
func (p *GPIOPin) Close() error {
	_ = p.line.SetValue(0)
	return p.line.Close()
}

// LogPin stands in for hardware on machines without a buzzer.
type LogPin struct {
	Logger *slog.Logger
}

func (p LogPin) Set(active bool) error {
	p.Logger.Debug("buzzer", "active", active)
	return nil
}
