// internal/scheduler/types.go
package scheduler

import (
	"time"

	"github.com/tamzrod/beacon-guard/internal/distance"
	"github.com/tamzrod/beacon-guard/internal/fusion"
	"github.com/tamzrod/beacon-guard/internal/presence"
	"github.com/tamzrod/beacon-guard/internal/reporter/backend"
)

// PresenceSource hands over everything heard since the previous call.
type PresenceSource interface {
	SnapshotAndClear() presence.Snapshot
}

// Actuator is the alarm owner. Sync reports whether the state changed.
type Actuator interface {
	Sync(danger bool) bool
	Stop()
}

// StatusReporter takes every verdict; it decides what is an edge.
type StatusReporter interface {
	Report(serial string, stolen bool)
}

// TelemetrySink takes per-laptop readings without blocking.
type TelemetrySink interface {
	Submit(d backend.SensorData) bool
}

// TickResult is what one tick saw and decided.
type TickResult struct {
	At       time.Time
	Seen     int
	Distance distance.Snapshot
	Verdicts fusion.Verdicts

	Alarming     bool
	AlarmChanged bool
}
