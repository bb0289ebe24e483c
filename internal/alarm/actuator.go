// internal/alarm/actuator.go

// Package alarm owns the buzzer.
//
// Actuator is the only holder of the pulse task. Callers express intent
// with Sync(danger) and never see the task itself. A stop request does
// not return until the task has exited and the pin has been driven
// inactive.
package alarm

import (
	"log/slog"
	"sync"
	"time"

	"github.com/tamzrod/beacon-guard/internal/clock"
	cfg "github.com/tamzrod/beacon-guard/internal/config"
)

// Pin is one digital output. Set(true) sounds the buzzer.
type Pin interface {
	Set(active bool) error
}

// Pattern repeats Pulses x (On, Off) followed by Pause.
type Pattern struct {
	On     time.Duration
	Off    time.Duration
	Pulses int
	Pause  time.Duration
}

// PatternFromConfig converts the normalized config block.
func PatternFromConfig(p cfg.PatternConfig) Pattern {
	return Pattern{
		On:     time.Duration(p.OnMs) * time.Millisecond,
		Off:    time.Duration(p.OffMs) * time.Millisecond,
		Pulses: p.Pulses,
		Pause:  time.Duration(p.PauseMs) * time.Millisecond,
	}
}

func (p Pattern) normalized() Pattern {
	if p.On <= 0 {
		p.On = 500 * time.Millisecond
	}
	if p.Off <= 0 && p.Pause <= 0 {
		p.Off = p.On
	}
	if p.Pulses < 1 {
		p.Pulses = 1
	}
	return p
}

// Actuator drives Pin with Pattern while alarming.
// States: idle (task == nil) and alarming (exactly one task).
type Actuator struct {
	pin     Pin
	pattern Pattern
	clock   clock.Clock
	logger  *slog.Logger

	mu   sync.Mutex
	task *pulseTask
}

type pulseTask struct {
	stop chan struct{}
	done chan struct{}
}

func New(pin Pin, pattern Pattern, clk clock.Clock, logger *slog.Logger) *Actuator {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Actuator{
		pin:     pin,
		pattern: pattern.normalized(),
		clock:   clk,
		logger:  logger,
	}
}

// Sync starts the pulse task when danger is true and none is running, and
// stops it when danger is false and one is running. Anything else is a
// no-op. It reports whether the state changed.
func (a *Actuator) Sync(danger bool) bool {
	a.mu.Lock()
	defer a.mu.Unlock()

	switch {
	case danger && a.task == nil:
		a.startLocked()
		return true
	case !danger && a.task != nil:
		a.stopLocked()
		return true
	}
	return false
}

// Alarming reports whether the pulse task is running.
func (a *Actuator) Alarming() bool {
	a.mu.Lock()
	defer a.mu.Unlock()
	return a.task != nil
}

// Stop forces the actuator idle and the pin inactive, even if it was
// already idle. Safe to call more than once; used on shutdown.
func (a *Actuator) Stop() {
	a.mu.Lock()
	defer a.mu.Unlock()

	if a.task != nil {
		a.stopLocked()
		return
	}
	a.set(false)
}

func (a *Actuator) startLocked() {
	t := &pulseTask{
		stop: make(chan struct{}),
		done: make(chan struct{}),
	}
	a.task = t
	go a.run(t)
}

// stopLocked blocks until the task acknowledges and the pin is low.
func (a *Actuator) stopLocked() {
	t := a.task
	a.task = nil
	close(t.stop)
	<-t.done
	// run already drove the pin low; repeat in case that write failed
	a.set(false)
}

func (a *Actuator) run(t *pulseTask) {
	defer close(t.done)
	defer a.set(false)

	p := a.pattern
	for {
		for i := 0; i < p.Pulses; i++ {
			a.set(true)
			if !a.wait(t.stop, p.On) {
				return
			}
			a.set(false)
			if !a.wait(t.stop, p.Off) {
				return
			}
		}
		if p.Pause > 0 && !a.wait(t.stop, p.Pause) {
			return
		}
	}
}

func (a *Actuator) wait(stop <-chan struct{}, d time.Duration) bool {
	if d <= 0 {
		select {
		case <-stop:
			return false
		default:
			return true
		}
	}
	select {
	case <-stop:
		return false
	case <-a.clock.After(d):
		return true
	}
}

// set is best effort: a failed write is logged and never blocks a stop.
func (a *Actuator) set(active bool) {
	if err := a.pin.Set(active); err != nil {
		a.logger.Warn("buzzer pin write failed", "active", active, "error", err)
	}
}
