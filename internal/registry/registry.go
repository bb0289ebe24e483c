// internal/registry/registry.go

// Package registry maps beacon MACs to the assets they guard.
package registry

import (
	"context"
	"errors"
	"fmt"
	"sort"

	cfg "github.com/tamzrod/beacon-guard/internal/config"
	"github.com/tamzrod/beacon-guard/internal/presence"
)

// NoChannel marks an asset without an ultrasonic channel.
const NoChannel = -1

// Asset is one tracked laptop. Immutable for the process lifetime.
type Asset struct {
	Serial  string
	MAC     string
	Channel int // 0..3, or NoChannel
}

// HasChannel reports whether a distance channel is assigned.
func (a Asset) HasChannel() bool { return a.Channel != NoChannel }

// Loader fetches the asset list from an external source.
type Loader interface {
	Load(ctx context.Context) ([]Asset, error)
}

// Registry is the validated, read-only asset set.
type Registry struct {
	assets []Asset
	byMAC  map[string]int
}

// New validates assets and builds a Registry. An empty list is an error.
func New(assets []Asset) (*Registry, error) {
	if len(assets) == 0 {
		return nil, errors.New("registry: no assets configured")
	}

	r := &Registry{
		assets: make([]Asset, 0, len(assets)),
		byMAC:  make(map[string]int, len(assets)),
	}
	serials := make(map[string]struct{}, len(assets))

	for _, a := range assets {
		a.MAC = presence.NormalizeMAC(a.MAC)
		if a.Serial == "" {
			return nil, fmt.Errorf("registry: asset with mac %s has no serial", a.MAC)
		}
		if err := cfg.ValidateMAC(a.MAC); err != nil {
			return nil, fmt.Errorf("registry: asset %q: %w", a.Serial, err)
		}
		if a.Channel != NoChannel && (a.Channel < 0 || a.Channel > cfg.MaxChannel) {
			return nil, fmt.Errorf("registry: asset %q: channel %d out of range 0-%d", a.Serial, a.Channel, cfg.MaxChannel)
		}
		if _, dup := serials[a.Serial]; dup {
			return nil, fmt.Errorf("registry: duplicate serial %q", a.Serial)
		}
		if _, dup := r.byMAC[a.MAC]; dup {
			return nil, fmt.Errorf("registry: duplicate mac %s", a.MAC)
		}
		serials[a.Serial] = struct{}{}
		r.byMAC[a.MAC] = len(r.assets)
		r.assets = append(r.assets, a)
	}

	sort.SliceStable(r.assets, func(i, j int) bool { return r.assets[i].Serial < r.assets[j].Serial })
	for i, a := range r.assets {
		r.byMAC[a.MAC] = i
	}
	return r, nil
}

// Assets returns the assets ordered by serial. The slice must not be modified.
func (r *Registry) Assets() []Asset { return r.assets }

// Len returns the number of assets.
func (r *Registry) Len() int { return len(r.assets) }

// ByMAC looks up an asset by beacon MAC (any case).
func (r *Registry) ByMAC(mac string) (Asset, bool) {
	i, ok := r.byMAC[presence.NormalizeMAC(mac)]
	if !ok {
		return Asset{}, false
	}
	return r.assets[i], true
}

// MACs returns every tracked MAC, for the scan filter.
func (r *Registry) MACs() []string {
	out := make([]string, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a.MAC)
	}
	return out
}

// Serials returns every serial in registry order.
func (r *Registry) Serials() []string {
	out := make([]string, 0, len(r.assets))
	for _, a := range r.assets {
		out = append(out, a.Serial)
	}
	return out
}

// Load runs l and builds a Registry from the result.
func Load(ctx context.Context, l Loader) (*Registry, error) {
	assets, err := l.Load(ctx)
	if err != nil {
		return nil, err
	}
	return New(assets)
}
