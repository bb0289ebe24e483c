// internal/presence/map.go

// Package presence tracks which beacons were heard since the last tick.
package presence

import (
	"strings"
	"sync"
	"time"
)

// Observation is the latest advertisement heard from one beacon.
type Observation struct {
	RSSI   int16
	SeenAt time.Time
}

// Snapshot maps MAC address to the latest observation within one tick.
type Snapshot map[string]Observation

// Has reports whether mac was heard.
func (s Snapshot) Has(mac string) bool {
	_, ok := s[mac]
	return ok
}

// Map is written by the scan callback and drained by the tick loop.
// Observe only holds the lock for a map insert, so the callback never
// waits on tick processing.
type Map struct {
	mu      sync.Mutex
	cur     Snapshot
	tracked map[string]struct{}
}

// NewMap returns a Map that keeps only the given MACs. With no MACs every
// observation is kept.
func NewMap(tracked ...string) *Map {
	m := &Map{cur: make(Snapshot)}
	if len(tracked) > 0 {
		m.tracked = make(map[string]struct{}, len(tracked))
		for _, mac := range tracked {
			m.tracked[NormalizeMAC(mac)] = struct{}{}
		}
	}
	return m
}

// Observe records one advertisement. It reports whether the MAC is tracked.
// Repeated observations within a tick keep the latest.
func (m *Map) Observe(mac string, rssi int16, at time.Time) bool {
	mac = NormalizeMAC(mac)
	if m.tracked != nil {
		if _, ok := m.tracked[mac]; !ok {
			return false
		}
	}

	m.mu.Lock()
	m.cur[mac] = Observation{RSSI: rssi, SeenAt: at}
	m.mu.Unlock()
	return true
}

// SnapshotAndClear swaps in an empty map and returns what was collected.
// Every Observe lands in exactly one snapshot.
func (m *Map) SnapshotAndClear() Snapshot {
	m.mu.Lock()
	snap := m.cur
	m.cur = make(Snapshot, len(snap))
	m.mu.Unlock()
	return snap
}

// NormalizeMAC upper-cases and trims a MAC so registry and scanner keys match.
func NormalizeMAC(mac string) string {
	return strings.ToUpper(strings.TrimSpace(mac))
}
