// internal/scheduler/scheduler_test.go
package scheduler

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/tamzrod/beacon-guard/internal/alarm"
	"github.com/tamzrod/beacon-guard/internal/clock"
	"github.com/tamzrod/beacon-guard/internal/distance"
	"github.com/tamzrod/beacon-guard/internal/events"
	"github.com/tamzrod/beacon-guard/internal/fusion"
	"github.com/tamzrod/beacon-guard/internal/presence"
	"github.com/tamzrod/beacon-guard/internal/registry"
	"github.com/tamzrod/beacon-guard/internal/reporter/backend"
)

const (
	macA    = "D7:6F:22:D8:59:C9"
	serialA = "00032072025"
	macB    = "C0:2F:AE:A5:B9:45"
	serialB = "00001082025"
)

// ---- fakes ----

// scriptedPresence returns one scripted snapshot per call, then empty.
type scriptedPresence struct {
	ticks [][]string
}

func (p *scriptedPresence) SnapshotAndClear() presence.Snapshot {
	s := presence.Snapshot{}
	if len(p.ticks) == 0 {
		return s
	}
	for _, mac := range p.ticks[0] {
		s[mac] = presence.Observation{RSSI: -60}
	}
	p.ticks = p.ticks[1:]
	return s
}

type fixedDistance struct{ snap distance.Snapshot }

func (d fixedDistance) Poll() distance.Snapshot { return d.snap }

// countingActuator follows the idle/alarming contract and counts transitions.
type countingActuator struct {
	alarming bool
	starts   int
	stops    int
	forced   int
}

func (a *countingActuator) Sync(danger bool) bool {
	switch {
	case danger && !a.alarming:
		a.alarming = true
		a.starts++
		return true
	case !danger && a.alarming:
		a.alarming = false
		a.stops++
		return true
	}
	return false
}

func (a *countingActuator) Stop() { a.forced++; a.alarming = false }

type report struct {
	serial string
	stolen bool
}

type recordingReporter struct{ got []report }

func (r *recordingReporter) Report(serial string, stolen bool) {
	r.got = append(r.got, report{serial, stolen})
}

type recordingTelemetry struct{ got []backend.SensorData }

func (t *recordingTelemetry) Submit(d backend.SensorData) bool {
	t.got = append(t.got, d)
	return true
}

type recordingEvents struct {
	mu  sync.Mutex
	got []events.Event
}

func (e *recordingEvents) Publish(ev events.Event) {
	e.mu.Lock()
	e.got = append(e.got, ev)
	e.mu.Unlock()
}

type fakePin struct {
	mu     sync.Mutex
	active bool
}

func (p *fakePin) Set(active bool) error {
	p.mu.Lock()
	p.active = active
	p.mu.Unlock()
	return nil
}

func (p *fakePin) isActive() bool {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.active
}

func quiet() *slog.Logger { return slog.New(slog.NewTextHandler(io.Discard, nil)) }

var epoch = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)

func testRegistry(t *testing.T) *registry.Registry {
	t.Helper()
	r, err := registry.New([]registry.Asset{
		{Serial: serialA, MAC: macA, Channel: 0},
		{Serial: serialB, MAC: macB, Channel: 1},
	})
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	return r
}

var rule = fusion.Rule{Policy: fusion.TooClose, ThresholdCm: 5}

// ---- tests ----

func TestNew_Validation(t *testing.T) {
	reg := testRegistry(t)
	ok := Deps{
		Registry: reg,
		Presence: &scriptedPresence{},
		Distance: fixedDistance{},
		Actuator: &countingActuator{},
		Reporter: &recordingReporter{},
	}

	if _, err := New(Config{Period: 0}, ok); err == nil {
		t.Fatalf("expected error for zero period")
	}
	noAct := ok
	noAct.Actuator = nil
	if _, err := New(Config{Period: time.Second}, noAct); err == nil {
		t.Fatalf("expected error for missing actuator")
	}
	if _, err := New(Config{Period: time.Second}, ok); err != nil {
		t.Fatalf("New: %v", err)
	}
}

func TestTick_DangerSetTransitionsOnceEachWay(t *testing.T) {
	// danger sets: {} -> {A} -> {A,B} -> {}
	pres := &scriptedPresence{ticks: [][]string{
		{macA, macB},
		{macB},
		{},
		{macA, macB},
	}}
	act := &countingActuator{}
	ev := &recordingEvents{}

	s, err := New(Config{Period: 2 * time.Second, Rule: rule}, Deps{
		Registry: testRegistry(t),
		Presence: pres,
		Distance: fixedDistance{snap: distance.Snapshot{20, 20, 0, 0}},
		Actuator: act,
		Reporter: &recordingReporter{},
		Events:   ev,
		Clock:    clock.Fake(epoch),
		Logger:   quiet(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	wantDanger := [][]string{{}, {serialA}, {serialA, serialB}, {}}
	for i, want := range wantDanger {
		res := s.Tick()
		got := res.Verdicts.Danger()
		if len(got) != len(want) {
			t.Fatalf("tick %d: danger=%v want=%v", i, got, want)
		}
	}

	if act.starts != 1 || act.stops != 1 {
		t.Fatalf("starts=%d stops=%d, want 1/1", act.starts, act.stops)
	}
	if len(ev.got) != 2 || ev.got[0].Type != events.AlarmOn || ev.got[1].Type != events.AlarmOff {
		t.Fatalf("events=%+v", ev.got)
	}
	if len(ev.got[0].Serials) != 1 || ev.got[0].Serials[0] != serialA {
		t.Fatalf("alarm_on serials=%v", ev.got[0].Serials)
	}
}

func TestTick_ReportsEveryVerdictAndTelemetryForHeard(t *testing.T) {
	rep := &recordingReporter{}
	tel := &recordingTelemetry{}

	s, err := New(Config{Period: time.Second, Rule: rule}, Deps{
		Registry:  testRegistry(t),
		Presence:  &scriptedPresence{ticks: [][]string{{macB}}},
		Distance:  fixedDistance{snap: distance.Snapshot{3, 10, 8, 20}},
		Actuator:  &countingActuator{},
		Reporter:  rep,
		Telemetry: tel,
		Clock:     clock.Fake(epoch),
		Logger:    quiet(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	res := s.Tick()
	if !res.AlarmChanged || !res.Alarming {
		t.Fatalf("res=%+v", res)
	}

	// registry order is by serial: B (00001...) before A (00032...)
	want := []report{{serialB, false}, {serialA, true}}
	if len(rep.got) != len(want) {
		t.Fatalf("reports=%v", rep.got)
	}
	for i := range want {
		if rep.got[i] != want[i] {
			t.Fatalf("reports=%v want=%v", rep.got, want)
		}
	}

	if len(tel.got) != 1 || tel.got[0].SerialNumber != serialB {
		t.Fatalf("telemetry=%+v", tel.got)
	}
	if d := tel.got[0].UltrasonicDistances; len(d) != 4 || d[1] != 10 {
		t.Fatalf("distances=%v", d)
	}
	if tel.got[0].IBeaconRSSI != -60 {
		t.Fatalf("rssi=%d", tel.got[0].IBeaconRSSI)
	}
}

func TestRun_CancelWhileAlarmingLeavesPinInactive(t *testing.T) {
	pin := &fakePin{}
	alarmClk := clock.Fake(epoch)
	act := alarm.New(pin, alarm.Pattern{On: time.Second, Off: time.Second, Pulses: 1}, alarmClk, quiet())

	schedClk := clock.Fake(epoch)
	s, err := New(Config{Period: 2 * time.Second, Rule: rule}, Deps{
		Registry: testRegistry(t),
		Presence: &scriptedPresence{}, // nothing heard: everything absent
		Distance: fixedDistance{},
		Actuator: act,
		Reporter: &recordingReporter{},
		Clock:    schedClk,
		Logger:   quiet(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	schedClk.WaitForTimers(1)
	schedClk.Advance(2 * time.Second)
	alarmClk.WaitForTimers(1) // pulse task is in its on phase

	if !act.Alarming() || !pin.isActive() {
		t.Fatalf("alarm not running after a danger tick")
	}

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("Run: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatalf("Run did not return after cancel")
	}

	if act.Alarming() {
		t.Fatalf("still alarming after shutdown")
	}
	if pin.isActive() {
		t.Fatalf("pin active after shutdown")
	}
}

func TestRun_StopsActuatorEvenWhenIdle(t *testing.T) {
	act := &countingActuator{}
	s, err := New(Config{Period: time.Second, Rule: rule}, Deps{
		Registry: testRegistry(t),
		Presence: &scriptedPresence{},
		Distance: fixedDistance{},
		Actuator: act,
		Reporter: &recordingReporter{},
		Clock:    clock.Fake(epoch),
		Logger:   quiet(),
	})
	if err != nil {
		t.Fatalf("New: %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := s.Run(ctx); err != nil {
		t.Fatalf("Run: %v", err)
	}
	if act.forced != 1 {
		t.Fatalf("forced stops=%d, want 1", act.forced)
	}
}
