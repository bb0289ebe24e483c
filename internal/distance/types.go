// internal/distance/types.go
package distance

import "fmt"

// Channels is the number of ultrasonic channels on the reader.
const Channels = 4

// Snapshot holds the last known good reading per channel, in centimeters.
// Zero means no data has been seen on that channel yet.
type Snapshot [Channels]float64

// Source yields the latest snapshot. Poll never fails: transient faults
// are logged and the previous values are returned.
type Source interface {
	Poll() Snapshot
}

// At returns the reading on channel ch. ok is false when ch is out of
// range or the channel has not reported a positive value yet.
func (s Snapshot) At(ch int) (cm float64, ok bool) {
	if ch < 0 || ch >= Channels {
		return 0, false
	}
	v := s[ch]
	return v, v > 0
}

// Slice returns the readings in channel order, for JSON payloads.
func (s Snapshot) Slice() []float64 {
	out := make([]float64, Channels)
	copy(out, s[:])
	return out
}

func (s Snapshot) String() string {
	return fmt.Sprintf("[%.1f,%.1f,%.1f,%.1f]", s[0], s[1], s[2], s[3])
}
