// internal/scheduler/scheduler.go
package scheduler

import (
	"errors"
	"log/slog"
	"time"

	"github.com/tamzrod/beacon-guard/internal/clock"
	"github.com/tamzrod/beacon-guard/internal/distance"
	"github.com/tamzrod/beacon-guard/internal/events"
	"github.com/tamzrod/beacon-guard/internal/fusion"
	"github.com/tamzrod/beacon-guard/internal/registry"
	"github.com/tamzrod/beacon-guard/internal/reporter/backend"
)

// Config is the immutable loop configuration.
type Config struct {
	Period time.Duration
	Rule   fusion.Rule
}

// Deps are the collaborators sampled and driven each tick.
// Telemetry and Events are optional.
type Deps struct {
	Registry  *registry.Registry
	Presence  PresenceSource
	Distance  distance.Source
	Actuator  Actuator
	Reporter  StatusReporter
	Telemetry TelemetrySink
	Events    events.Publisher
	Clock     clock.Clock
	Logger    *slog.Logger
}

// Scheduler runs collect, fuse, actuate and report once per period.
// Nothing in a tick blocks on the network or on the serial port beyond
// its bounded drain.
type Scheduler struct {
	cfg Config
	d   Deps
}

func New(cfg Config, d Deps) (*Scheduler, error) {
	if cfg.Period <= 0 {
		return nil, errors.New("scheduler: period must be > 0")
	}
	if d.Registry == nil || d.Registry.Len() == 0 {
		return nil, errors.New("scheduler: at least one asset required")
	}
	if d.Presence == nil || d.Distance == nil {
		return nil, errors.New("scheduler: presence and distance sources required")
	}
	if d.Actuator == nil {
		return nil, errors.New("scheduler: actuator required")
	}
	if d.Reporter == nil {
		return nil, errors.New("scheduler: reporter required")
	}
	if d.Events == nil {
		d.Events = events.Nop{}
	}
	if d.Clock == nil {
		d.Clock = clock.Real()
	}
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	return &Scheduler{cfg: cfg, d: d}, nil
}

// Tick performs exactly one control cycle.
func (s *Scheduler) Tick() TickResult {
	res := TickResult{At: s.d.Clock.Now()}

	// collect
	seen := s.d.Presence.SnapshotAndClear()
	dist := s.d.Distance.Poll()
	res.Seen = len(seen)
	res.Distance = dist

	// fuse
	verdicts := fusion.Evaluate(s.d.Registry, seen, dist, s.cfg.Rule)
	res.Verdicts = verdicts

	// actuate
	danger := verdicts.AnyDanger()
	res.Alarming = danger
	if s.d.Actuator.Sync(danger) {
		res.AlarmChanged = true
		s.announce(danger, verdicts, res.At)
	}

	// report
	for _, a := range s.d.Registry.Assets() {
		v := verdicts[a.Serial]
		if v.InDanger {
			s.d.Logger.Debug("asset in danger", "serial", a.Serial, "reason", v.Reason.String(), "distance_cm", v.DistanceCm)
		}
		s.d.Reporter.Report(a.Serial, v.InDanger)

		if s.d.Telemetry == nil {
			continue
		}
		obs, heard := seen[a.MAC]
		if !heard {
			continue
		}
		s.d.Telemetry.Submit(backend.SensorData{
			SerialNumber:        a.Serial,
			IBeaconRSSI:         obs.RSSI,
			UltrasonicDistances: dist.Slice(),
		})
	}

	s.d.Logger.Debug("tick", "seen", res.Seen, "distance", dist.String(), "alarming", danger)
	return res
}

func (s *Scheduler) announce(on bool, v fusion.Verdicts, at time.Time) {
	danger := v.Danger()
	kind := events.AlarmOff
	if on {
		kind = events.AlarmOn
		s.d.Logger.Info("alarm on", "danger", danger)
	} else {
		s.d.Logger.Info("alarm off")
	}
	s.d.Events.Publish(events.Event{Type: kind, Serials: danger, At: at})
}
