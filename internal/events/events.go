// internal/events/events.go
package events

import "time"

// Event types published on the events topic.
const (
	AlarmOn  = "alarm_on"
	AlarmOff = "alarm_off"
	Stolen   = "stolen"
	Returned = "returned"
)

// Event is one controller transition.
// Alarm events carry the danger set; asset events carry a single serial.
type Event struct {
	Type    string    `json:"type"`
	Serial  string    `json:"serial,omitempty"`
	Serials []string  `json:"serials,omitempty"`
	At      time.Time `json:"at"`
}

// Publisher delivers events. Implementations must not block for long and
// never fail the caller.
type Publisher interface {
	Publish(e Event)
}

// Nop discards events. Used when no broker is configured.
type Nop struct{}

func (Nop) Publish(Event) {}
