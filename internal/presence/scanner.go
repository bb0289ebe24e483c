// internal/presence/scanner.go
package presence

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"

	"tinygo.org/x/bluetooth"

	"github.com/tamzrod/beacon-guard/internal/clock"
)

// Observer receives advertisements from the scan callback.
type Observer interface {
	Observe(mac string, rssi int16, at time.Time) bool
}

// Scanner runs a continuous BLE scan and feeds every advertisement to an
// Observer. It does no I/O from the callback.
type Scanner struct {
	adapter *bluetooth.Adapter
	sink    Observer
	clock   clock.Clock
	logger  *slog.Logger
}

func NewScanner(adapter *bluetooth.Adapter, sink Observer, clk clock.Clock, logger *slog.Logger) *Scanner {
	if clk == nil {
		clk = clock.Real()
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Scanner{adapter: adapter, sink: sink, clock: clk, logger: logger}
}

// Enable powers up the adapter. Failure is a startup fault.
func (s *Scanner) Enable() error {
	if err := s.adapter.Enable(); err != nil {
		return fmt.Errorf("presence: enable adapter: %w", err)
	}
	return nil
}

// Run scans until ctx is cancelled.
func (s *Scanner) Run(ctx context.Context) error {
	if ctx.Err() != nil {
		return nil
	}
	stopped := make(chan struct{})
	defer close(stopped)
	go stopOnCancel(ctx, s.adapter, stopped, s.clock)

	s.logger.Info("beacon scan started")
	err := s.adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		mac := r.Address.String()
		if s.sink.Observe(mac, r.RSSI, s.clock.Now()) {
			s.logger.Debug("beacon seen", "mac", mac, "rssi", r.RSSI)
		}
	})
	if ctx.Err() != nil {
		s.logger.Info("beacon scan stopped")
		return nil
	}
	if err != nil {
		return fmt.Errorf("presence: scan: %w", err)
	}
	// without a scan every beacon looks absent
	return errors.New("presence: scan ended unexpectedly")
}

// Discover scans for d and returns every iBeacon heard, strongest first.
func Discover(ctx context.Context, adapter *bluetooth.Adapter, d time.Duration) ([]IBeacon, error) {
	if err := adapter.Enable(); err != nil {
		return nil, fmt.Errorf("presence: enable adapter: %w", err)
	}

	var mu sync.Mutex
	found := make(map[string]IBeacon)

	ctx, cancel := context.WithTimeout(ctx, d)
	defer cancel()
	stopped := make(chan struct{})
	go stopOnCancel(ctx, adapter, stopped, clock.Real())

	err := adapter.Scan(func(_ *bluetooth.Adapter, r bluetooth.ScanResult) {
		for _, md := range r.ManufacturerData() {
			b, ok := ParseIBeacon(md.CompanyID, md.Data)
			if !ok {
				continue
			}
			b.MAC = NormalizeMAC(r.Address.String())
			b.RSSI = r.RSSI
			mu.Lock()
			found[b.MAC] = b
			mu.Unlock()
		}
	})
	close(stopped)
	if err != nil && ctx.Err() == nil {
		return nil, fmt.Errorf("presence: scan: %w", err)
	}

	mu.Lock()
	defer mu.Unlock()
	out := make([]IBeacon, 0, len(found))
	for _, b := range found {
		out = append(out, b)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].RSSI > out[j].RSSI })
	return out, nil
}
