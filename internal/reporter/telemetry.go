// internal/reporter/telemetry.go
package reporter

import (
	"context"
	"log/slog"

	"github.com/tamzrod/beacon-guard/internal/reporter/backend"
)

// SensorSink receives per-laptop readings.
type SensorSink interface {
	SendSensorData(ctx context.Context, d backend.SensorData) error
}

// Telemetry forwards readings to the backend from its own worker.
// Submit never blocks; readings that do not fit in the queue are dropped.
// Delivery is best effort with no retry.
type Telemetry struct {
	sink   SensorSink
	queue  chan backend.SensorData
	logger *slog.Logger
}

func NewTelemetry(sink SensorSink, size int, logger *slog.Logger) *Telemetry {
	if size < 1 {
		size = 1
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Telemetry{
		sink:   sink,
		queue:  make(chan backend.SensorData, size),
		logger: logger,
	}
}

// Submit enqueues d and reports whether it was accepted.
func (t *Telemetry) Submit(d backend.SensorData) bool {
	select {
	case t.queue <- d:
		return true
	default:
		t.logger.Debug("telemetry queue full, reading dropped", "serial", d.SerialNumber)
		return false
	}
}

func (t *Telemetry) Run(ctx context.Context) error {
	for {
		select {
		case <-ctx.Done():
			return nil
		case d := <-t.queue:
			if err := t.sink.SendSensorData(ctx, d); err != nil && ctx.Err() == nil {
				t.logger.Warn("sensor data push failed", "serial", d.SerialNumber, "error", err)
			}
		}
	}
}
