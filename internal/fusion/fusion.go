// internal/fusion/fusion.go

// Package fusion turns one tick of presence and distance data into a
// per-asset danger verdict.
package fusion

import (
	"fmt"
	"sort"

	cfg "github.com/tamzrod/beacon-guard/internal/config"
	"github.com/tamzrod/beacon-guard/internal/distance"
	"github.com/tamzrod/beacon-guard/internal/presence"
	"github.com/tamzrod/beacon-guard/internal/registry"
)

// Policy selects which side of the threshold counts as an anomaly.
type Policy int

const (
	// TooClose flags readings below the threshold.
	TooClose Policy = iota
	// TooFar flags readings above the threshold.
	TooFar
)

func (p Policy) String() string {
	if p == TooFar {
		return cfg.PolicyTooFar
	}
	return cfg.PolicyTooClose
}

// ParsePolicy maps the config spelling to a Policy.
func ParsePolicy(s string) (Policy, error) {
	switch s {
	case cfg.PolicyTooClose, "":
		return TooClose, nil
	case cfg.PolicyTooFar:
		return TooFar, nil
	}
	return TooClose, fmt.Errorf("fusion: unknown policy %q", s)
}

// Rule is the proximity check applied to assets with a distance channel.
type Rule struct {
	Policy      Policy
	ThresholdCm float64
}

// Anomalous reports whether an observed reading breaks the rule.
// Non-positive readings are "no data yet" and never anomalous.
func (r Rule) Anomalous(cm float64) bool {
	if cm <= 0 {
		return false
	}
	if r.Policy == TooFar {
		return cm > r.ThresholdCm
	}
	return cm < r.ThresholdCm
}

// Reason says why an asset is in danger.
type Reason int

const (
	Safe Reason = iota
	Absent
	Proximity
)

func (r Reason) String() string {
	switch r {
	case Absent:
		return "beacon_absent"
	case Proximity:
		return "distance"
	}
	return "safe"
}

// Verdict is one asset's result for one tick.
type Verdict struct {
	Serial     string
	InDanger   bool
	Reason     Reason
	RSSI       int16   // valid when the beacon was heard
	DistanceCm float64 // reading on the asset's channel, 0 without one
}

// Verdicts holds a verdict for every registered asset, safe ones included.
type Verdicts map[string]Verdict

// Danger returns the serials in danger, sorted.
func (v Verdicts) Danger() []string {
	var out []string
	for serial, vd := range v {
		if vd.InDanger {
			out = append(out, serial)
		}
	}
	sort.Strings(out)
	return out
}

// AnyDanger reports whether the danger set is non-empty.
func (v Verdicts) AnyDanger() bool {
	for _, vd := range v {
		if vd.InDanger {
			return true
		}
	}
	return false
}

// Evaluate computes the verdict for every asset in reg.
// A beacon not heard this tick is in danger regardless of distance.
// Otherwise an asset with a channel is in danger when its observed
// reading breaks rule.
func Evaluate(reg *registry.Registry, seen presence.Snapshot, dist distance.Snapshot, rule Rule) Verdicts {
	out := make(Verdicts, reg.Len())

	for _, a := range reg.Assets() {
		v := Verdict{Serial: a.Serial}
		cm, observed := dist.At(a.Channel) // NoChannel is never observed
		v.DistanceCm = cm

		obs, heard := seen[a.MAC]
		if !heard {
			v.InDanger, v.Reason = true, Absent
		} else {
			v.RSSI = obs.RSSI
			if observed && rule.Anomalous(cm) {
				v.InDanger, v.Reason = true, Proximity
			}
		}

		out[a.Serial] = v
	}
	return out
}
